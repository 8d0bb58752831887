package dsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pkg/utils"
)

func testItem() *core.Item {
	it := core.NewItem("t1", 0)
	it.Score = 0.93
	it.Track = &core.Track{
		ID:          "t1",
		Name:        "Around the World",
		Artists:     []string{"Daft Punk"},
		Popularity:  72,
		ReleaseYear: 1997,
	}
	it.PutLabel("recall_source", utils.Label{Value: "similar", Source: "recall"})
	return it
}

func TestExpr_Evaluate(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"popularity", "track.popularity >= 40", true},
		{"year range", "track.release_year >= 2015 && track.release_year <= 2020", false},
		{"artist membership", `"Daft Punk" in track.artists`, true},
		{"lead artist", `track.lead_artist != "Queen"`, true},
		{"score", "track.score > 0.95", false},
		{"label", `label.recall_source == "similar"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Compile(tt.expr)
			require.NoError(t, err)
			got, err := e.Evaluate(testItem(), core.NewRecommendContext(nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompile_Rejects(t *testing.T) {
	_, err := Compile("track.popularity >=")
	assert.True(t, core.IsInvalidInput(err))

	_, err = Compile(`"not a bool"`)
	assert.True(t, core.IsInvalidInput(err))
}
