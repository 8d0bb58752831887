package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArtists(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "python list", in: `['Queen', 'David Bowie']`, want: []string{"Queen", "David Bowie"}},
		{name: "json list", in: `["Queen","David Bowie"]`, want: []string{"Queen", "David Bowie"}},
		{name: "escaped quote", in: `['Guns N\' Roses']`, want: []string{"Guns N' Roses"}},
		{name: "mixed quotes", in: `["Sinéad O'Connor", 'U2']`, want: []string{"Sinéad O'Connor", "U2"}},
		{name: "semicolon", in: "Queen; David Bowie ;", want: []string{"Queen", "David Bowie"}},
		{name: "single", in: "  Adele ", want: []string{"Adele"}},
		{name: "empty", in: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArtists(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseArtists(`['unterminated]`)
	assert.Error(t, err)
}

func TestParseInt(t *testing.T) {
	n, err := parseInt("2019.0")
	require.NoError(t, err)
	assert.Equal(t, 2019, n)

	_, err = parseInt("2019.5")
	assert.Error(t, err)
}

func TestRecordTrack(t *testing.T) {
	rec := Record{ID: "a", Name: "Song", Artists: []string{"X", "Y"}, Popularity: 50, ReleaseYear: 2001}
	tr := rec.Track()
	assert.Equal(t, "X", tr.LeadArtist())
	tr.Artists[0] = "mutated"
	assert.Equal(t, "X", rec.Artists[0])
}
