package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigGetInt(t *testing.T) {
	cfg := map[string]any{"yaml": 5, "json": 7.0, "bad": "x"}

	assert.Equal(t, 5, ConfigGetInt(cfg, "yaml", 1))
	assert.Equal(t, 7, ConfigGetInt(cfg, "json", 1))
	assert.Equal(t, 1, ConfigGetInt(cfg, "bad", 1))
	assert.Equal(t, 1, ConfigGetInt(cfg, "missing", 1))
	assert.Equal(t, 1, ConfigGetInt(nil, "missing", 1))
}

func TestConfigGetIntPtr(t *testing.T) {
	cfg := map[string]any{"min": 40}

	p := ConfigGetIntPtr(cfg, "min")
	if assert.NotNil(t, p) {
		assert.Equal(t, 40, *p)
	}
	assert.Nil(t, ConfigGetIntPtr(cfg, "max"))
}

func TestSliceAnyToString(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SliceAnyToString([]any{"a", 1, "b"}))
	assert.Nil(t, SliceAnyToString("nope"))
	assert.Equal(t, "x", ConfigGet(map[string]any{"k": "x"}, "k", ""))
}
