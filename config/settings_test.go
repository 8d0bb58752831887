package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/songrec/core"
)

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv(SettingsPathEnvVar, "")
	t.Chdir(t.TempDir())

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, "file", s.Index.Registry)
	assert.Equal(t, ":8080", s.Server.Addr)
	assert.Equal(t, 5*time.Second, s.Server.ReadTimeout)
	assert.Equal(t, core.DefaultOversampleFactor, s.Recommend.OversampleFactor())
	assert.Equal(t, core.DefaultDiversityCap, s.Recommend.DiversityCap())
	assert.Equal(t, "info", s.Logging.Level)
}

func TestLoadSettingsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songrec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data:
  path: /data/tracks.csv
index:
  root: /data/index
recommend:
  diversity_cap: 2
  pool_rounds: 4
server:
  read_timeout: 2s
logging:
  level: debug
`), 0o644))

	t.Setenv("SONGREC_RECOMMEND__DIVERSITY_CAP", "3")
	t.Setenv("SONGREC_INDEX__REGISTRY", "redis")
	t.Setenv("SONGREC_INDEX__REDIS_ADDR", "localhost:6379")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/tracks.csv", s.Data.Path)
	assert.Equal(t, "/data/index", s.Index.Root)
	assert.Equal(t, 3, s.Recommend.DiversityCap())
	assert.Equal(t, 4, s.Recommend.PoolRounds())
	assert.Equal(t, 2*time.Second, s.Server.ReadTimeout)
	assert.Equal(t, "redis", s.Index.Registry)
	assert.Equal(t, "localhost:6379", s.Index.RedisAddr)
	assert.Equal(t, "debug", s.Logging.Level)
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Settings)
	}{
		{name: "unknown registry", edit: func(s *Settings) { s.Index.Registry = "s3" }},
		{name: "redis without addr", edit: func(s *Settings) { s.Index.Registry = "redis" }},
		{name: "negative cap", edit: func(s *Settings) { s.Recommend.Cap = -1 }},
		{name: "oversample one", edit: func(s *Settings) { s.Recommend.Oversample = 1 }},
		{name: "empty root", edit: func(s *Settings) { s.Index.Root = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.edit(s)
			assert.True(t, core.IsInvalidInput(s.Validate()))
		})
	}
	assert.NoError(t, DefaultSettings().Validate())
}

func TestRecommendSettingsFallback(t *testing.T) {
	var r RecommendSettings
	assert.Equal(t, core.DefaultTopN, r.DefaultN())
	assert.Equal(t, core.DefaultPoolRounds, r.PoolRounds())
}
