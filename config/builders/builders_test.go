package builders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/songrec/config"
	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pipeline"
	"github.com/rushteam/songrec/rerank"
)

func TestRegistered(t *testing.T) {
	assert.Subset(t, config.SupportedTypes(), []string{
		"filter", "filter.popularity", "filter.year_range", "filter.expr",
		"filter.exclude", "rerank.diversity", "rerank.topn",
	})
}

func TestBuildFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  name: extra
  nodes:
    - type: filter
      config:
        filters:
          - {type: popularity, min: 50}
          - {type: exclude, ids: ["b"]}
    - type: filter.expr
      config:
        expr: 'track.release_year >= 2000'
    - type: rerank.diversity
      config:
        cap: 2
        backfill: true
    - type: rerank.topn
      config:
        n: 2
`), 0o644))

	cfg, err := pipeline.LoadFromYAML(path)
	require.NoError(t, err)
	require.NoError(t, config.ValidatePipelineConfig(cfg))

	p, err := cfg.BuildPipeline(config.DefaultFactory())
	require.NoError(t, err)
	require.Len(t, p.Nodes, 4)
	div := p.Nodes[2].(*rerank.Diversity)
	assert.Equal(t, 2, div.Cap)
	assert.True(t, div.Backfill)

	mk := func(id string, pop, year int) *core.Item {
		it := core.NewItem(id, 0)
		it.Track = &core.Track{ID: id, Artists: []string{"X"}, Popularity: pop, ReleaseYear: year}
		return it
	}
	items := []*core.Item{mk("a", 60, 2010), mk("b", 90, 2010), mk("c", 10, 2010), mk("d", 70, 1990), mk("e", 80, 2005), mk("f", 80, 2006)}
	out, err := p.Run(context.Background(), core.NewRecommendContext(nil), items)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "e", out[1].ID)
}

func TestBuildErrors(t *testing.T) {
	f := config.DefaultFactory()
	tests := []struct {
		name string
		typ  string
		cfg  map[string]any
	}{
		{name: "popularity without min", typ: "filter.popularity", cfg: map[string]any{}},
		{name: "year range reversed", typ: "filter.year_range", cfg: map[string]any{"from": 2020, "to": 2000}},
		{name: "bad expr", typ: "filter.expr", cfg: map[string]any{"expr": "track.popularity >"}},
		{name: "unknown filter", typ: "filter", cfg: map[string]any{"filters": []any{map[string]any{"type": "nope"}}}},
		{name: "filters missing", typ: "filter", cfg: map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Build(tt.typ, tt.cfg)
			assert.True(t, core.IsInvalidInput(err), "%v", err)
		})
	}

	bad := &pipeline.Config{}
	bad.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "rank.lr"}}
	assert.True(t, core.IsInvalidInput(config.ValidatePipelineConfig(bad)))
}
