package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lower", "Bohemian Rhapsody", "bohemian rhapsody"},
		{"collapse whitespace", "  Bohemian \t Rhapsody  ", "bohemian rhapsody"},
		{"fullwidth", "ＡＢＣ", "abc"},
		{"german sharp s", "Straße", "strasse"},
		{"keeps punctuation", "Song (Live)", "song (live)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fold(tt.in))
		})
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("Bohemian Rhapsody - Remastered 2011", "rhapsody"))
	assert.True(t, Contains("QUEEN", "queen"))
	assert.False(t, Contains("Queen", "   "))
	assert.False(t, Contains("Queen", "king"))
	assert.True(t, Equal("Under  Pressure", "under pressure"))
}
