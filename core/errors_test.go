package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same code", Errorf(ErrSchema, "missing column %q", "tempo"), ErrSchema, true},
		{"wrapped with fmt", fmt.Errorf("load: %w", Errorf(ErrUnknownTrack, "id %q", "x")), ErrUnknownTrack, true},
		{"different code", Errorf(ErrSchema, "bad"), ErrIndexVersion, false},
		{"module scoped sentinel", ErrStoreNotFound, ErrStoreNotFound, true},
		{"plain error", errors.New("boom"), ErrSchema, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(ErrSchema, cause, "read %s", "matrix.bin")

	assert.True(t, IsSchemaError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "schema error: read matrix.bin: unexpected EOF", err.Error())
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsIndexNotLoaded(fmt.Errorf("query: %w", ErrIndexNotLoaded)))
	assert.True(t, IsDimensionMismatch(Errorf(ErrDimensionMismatch, "got 3 want 20")))
	assert.True(t, IsStoreNotFound(ErrStoreNotFound))
	assert.False(t, IsStoreNotFound(Errorf(ErrSchema, "x")))
	assert.False(t, IsUnknownTrack(nil))
}
