package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/songrec/core"
)

type dropFirst struct{}

func (dropFirst) Name() string { return "test.drop_first" }
func (dropFirst) Kind() Kind   { return KindFilter }
func (dropFirst) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}
	return items[1:], nil
}

type failing struct{}

func (failing) Name() string { return "test.fail" }
func (failing) Kind() Kind   { return KindReRank }
func (failing) Process(context.Context, *core.RecommendContext, []*core.Item) ([]*core.Item, error) {
	return nil, errors.New("boom")
}

func TestPipelineRun(t *testing.T) {
	var seen []int
	p := &Pipeline{
		Nodes:   []Node{dropFirst{}, dropFirst{}},
		Observe: func(_ Node, in, out int) { seen = append(seen, in, out) },
	}
	items := []*core.Item{core.NewItem("a", 0), core.NewItem("b", 1), core.NewItem("c", 2)}

	out, err := p.Run(context.Background(), core.NewRecommendContext(nil), items)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, []int{3, 2, 2, 1}, seen)
	assert.Equal(t, []Kind{KindFilter, KindFilter}, p.Kinds())
}

func TestPipelineRunError(t *testing.T) {
	p := (&Pipeline{Nodes: []Node{dropFirst{}}}).With(failing{})
	_, err := p.Run(context.Background(), core.NewRecommendContext(nil), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.fail: boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, core.NewRecommendContext(nil), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipelineWithDoesNotMutate(t *testing.T) {
	base := &Pipeline{Nodes: make([]Node, 1, 4)}
	base.Nodes[0] = dropFirst{}
	a := base.With(failing{})
	b := base.With(dropFirst{})
	assert.Len(t, base.Nodes, 1)
	assert.Equal(t, "test.fail", a.Nodes[1].Name())
	assert.Equal(t, "test.drop_first", b.Nodes[1].Name())
}

func TestConfigBuildPipeline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  name: test
  nodes:
    - type: test.drop_first
    - type: test.drop_first
      config:
        ignored: 1
`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.Pipeline.Name)

	f := NewNodeFactory()
	f.Register("test.drop_first", func(map[string]any) (Node, error) { return dropFirst{}, nil })
	p, err := cfg.BuildPipeline(f)
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 2)

	_, err = f.Build("nope", nil)
	assert.True(t, core.IsInvalidInput(err))

	jsonPath := filepath.Join(dir, "pipeline.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"pipeline":{"name":"j","nodes":[{"type":"test.drop_first"}]}}`), 0o644))
	cfg, err = LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "j", cfg.Pipeline.Name)
}
