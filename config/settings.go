package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pkg/logging"
)

// 配置文件查找顺序：SONGREC_CONFIG 指定的路径，其次是 DefaultSettingsPaths 中第一个存在的文件。
const (
	SettingsPathEnvVar = "SONGREC_CONFIG"
	EnvPrefix          = "SONGREC_"
)

var DefaultSettingsPaths = []string{
	"songrec.yaml",
	"songrec.yml",
	"/etc/songrec/songrec.yaml",
}

// Settings 是应用配置。优先级：环境变量 > 配置文件 > 默认值。
//
// 环境变量以 SONGREC_ 为前缀，层级用双下划线分隔，例如：
//
//	SONGREC_INDEX__ROOT=/data/index      -> index.root
//	SONGREC_RECOMMEND__DIVERSITY_CAP=2   -> recommend.diversity_cap
type Settings struct {
	Data      DataSettings      `koanf:"data"`
	Index     IndexSettings     `koanf:"index"`
	Recommend RecommendSettings `koanf:"recommend"`
	Server    ServerSettings    `koanf:"server"`
	Logging   logging.Config    `koanf:"logging"`
}

// DataSettings 数据集来源
type DataSettings struct {
	Path  string `koanf:"path"`  // .csv 或 .db/.sqlite
	Table string `koanf:"table"` // SQLite 表名
}

// IndexSettings 索引产物与注册表
type IndexSettings struct {
	Root      string `koanf:"root"`       // 产物根目录
	Registry  string `koanf:"registry"`   // file / redis / memory
	RedisAddr string `koanf:"redis_addr"` // registry=redis 时使用
	RedisDB   int    `koanf:"redis_db"`
	Key       string `koanf:"key"` // 注册表 key
	Workers   int    `koanf:"workers"`
}

// RecommendSettings 推荐参数，实现 core.RecommendConfig。
type RecommendSettings struct {
	TopN       int    `koanf:"default_n"`
	Oversample int    `koanf:"oversample_factor"`
	Rounds     int    `koanf:"pool_rounds"`
	Cap        int    `koanf:"diversity_cap"`
	Shards     int    `koanf:"shards"`   // 检索分片数，0 为自动
	Pipeline   string `koanf:"pipeline"` // 额外 Node 的 YAML/JSON 配置
}

func (r RecommendSettings) DefaultN() int         { return positive(r.TopN, core.DefaultTopN) }
func (r RecommendSettings) OversampleFactor() int { return positive(r.Oversample, core.DefaultOversampleFactor) }
func (r RecommendSettings) PoolRounds() int       { return positive(r.Rounds, core.DefaultPoolRounds) }
func (r RecommendSettings) DiversityCap() int     { return positive(r.Cap, core.DefaultDiversityCap) }

var _ core.RecommendConfig = RecommendSettings{}

// ServerSettings HTTP 服务
type ServerSettings struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxLimit        int           `koanf:"max_limit"` // 单次返回条数上限
}

func positive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// DefaultSettings 返回默认配置
func DefaultSettings() *Settings {
	return &Settings{
		Data: DataSettings{Table: "tracks"},
		Index: IndexSettings{
			Root:     "data/index",
			Registry: "file",
			Key:      "songrec:index:current",
		},
		Recommend: RecommendSettings{
			TopN:       core.DefaultTopN,
			Oversample: core.DefaultOversampleFactor,
			Rounds:     core.DefaultPoolRounds,
			Cap:        core.DefaultDiversityCap,
		},
		Server: ServerSettings{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxLimit:        100,
		},
		Logging: logging.Config{Level: "info", Format: "json"},
	}
}

// LoadSettings 依次叠加默认值、配置文件、环境变量。path 为空时按默认路径查找，找不到文件不是错误。
func LoadSettings(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findSettingsFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	s := &Settings{}
	if err := k.Unmarshal("", s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// envKey: SONGREC_INDEX__REDIS_ADDR -> index.redis_addr
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func findSettingsFile() string {
	if p := os.Getenv(SettingsPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultSettingsPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate 校验取值范围
func (s *Settings) Validate() error {
	switch s.Index.Registry {
	case "file", "memory":
	case "redis":
		if s.Index.RedisAddr == "" {
			return core.Errorf(core.ErrInvalidInput, "index.redis_addr is required when index.registry=redis")
		}
	default:
		return core.Errorf(core.ErrInvalidInput, "index.registry must be file, redis or memory, got %q", s.Index.Registry)
	}
	if s.Index.Root == "" {
		return core.Errorf(core.ErrInvalidInput, "index.root is required")
	}
	for name, v := range map[string]int{
		"recommend.default_n":         s.Recommend.TopN,
		"recommend.oversample_factor": s.Recommend.Oversample,
		"recommend.pool_rounds":       s.Recommend.Rounds,
		"recommend.diversity_cap":     s.Recommend.Cap,
		"recommend.shards":            s.Recommend.Shards,
		"server.max_limit":            s.Server.MaxLimit,
	} {
		if v < 0 {
			return core.Errorf(core.ErrInvalidInput, "%s must not be negative, got %d", name, v)
		}
	}
	if s.Recommend.Oversample == 1 {
		return core.Errorf(core.ErrInvalidInput, "recommend.oversample_factor must be at least 2 for the pool to grow")
	}
	return nil
}
