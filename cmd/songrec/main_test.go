package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/feature/featuretest"
	"github.com/rushteam/songrec/server"
)

func TestParseFeatures(t *testing.T) {
	got, err := parseFeatures(" danceability=0.9, energy = 0.8,,")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"danceability": 0.9, "energy": 0.8}, got)

	got, err = parseFeatures("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseFeatures("danceability")
	assert.True(t, core.IsInvalidInput(err))
	_, err = parseFeatures("danceability=high")
	assert.True(t, core.IsInvalidInput(err))
}

func TestUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"explode"}, &bytes.Buffer{})
	assert.True(t, core.IsInvalidInput(err))
	assert.Equal(t, 2, exitCode(err))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "similar-to-features")
}

func TestBuildPublishRecommend(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "tracks.csv")
	f, err := os.Create(data)
	require.NoError(t, err)
	require.NoError(t, featuretest.WriteCSV(f, featuretest.Random(60, 2, 5)))
	require.NoError(t, f.Close())

	t.Setenv("SONGREC_CONFIG", "")
	t.Setenv("SONGREC_INDEX__ROOT", filepath.Join(dir, "index"))
	t.Setenv("SONGREC_LOGGING__LEVEL", "disabled")
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"build", "-data", data, "-publish"}, &out))
	artifact := strings.TrimSpace(out.String())
	assert.DirExists(t, artifact)

	out.Reset()
	require.NoError(t, run(ctx, []string{"recommend", "-id", "t4", "-n", "3", "-diversity"}, &out))
	var res server.RecommendationsResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	require.Len(t, res.Recommendations, 3)
	for _, r := range res.Recommendations {
		assert.NotEqual(t, "t4", r.ID)
	}

	out.Reset()
	require.NoError(t, run(ctx, []string{"search", "-name", "song 12"}, &out))
	var found server.SearchResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &found))
	require.NotEmpty(t, found.Tracks)
	assert.Equal(t, "t12", found.Tracks[0].ID)

	out.Reset()
	require.NoError(t, run(ctx, []string{"similar-to-features", "-f", "danceability=0.9", "-n", "2"}, &out))
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Len(t, res.Recommendations, 2)

	err = run(ctx, []string{"recommend", "-id", "nonexistent-id"}, &bytes.Buffer{})
	assert.True(t, core.IsUnknownTrack(err))

	out.Reset()
	require.NoError(t, run(ctx, []string{"publish", "-dir", artifact}, &out))
	assert.Equal(t, artifact, strings.TrimSpace(out.String()))
}
