// Command songrec 构建、发布、查询音乐推荐索引，或以 HTTP 服务方式提供查询。
//
//	songrec build   -data tracks.csv [-publish]
//	songrec publish -dir data/index/<content-id>
//	songrec search  -name "yesterday" [-artist beatles]
//	songrec recommend -id <track-id> [-n 10 -diversity -min-popularity 40 -year-from 2015 -year-to 2024]
//	songrec similar-to-features -f danceability=0.9,energy=0.8 [-n 10]
//	songrec serve
//
// 所有子命令都接受 -config 指定配置文件，其余配置见 config.Settings。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rushteam/songrec/config"
	_ "github.com/rushteam/songrec/config/builders"
	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/feature"
	"github.com/rushteam/songrec/index"
	"github.com/rushteam/songrec/pipeline"
	"github.com/rushteam/songrec/pkg/logging"
	"github.com/rushteam/songrec/pkg/metrics"
	"github.com/rushteam/songrec/recommender"
	"github.com/rushteam/songrec/store"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, args []string, stdout io.Writer) error
}

var commands = []command{
	{"build", "load the dataset, build the index and save it under index.root", runBuild},
	{"publish", "mark a saved index as the current one", runPublish},
	{"search", "find tracks by name", runSearch},
	{"recommend", "recommend tracks similar to a seed track", runRecommend},
	{"similar-to-features", "recommend tracks close to raw feature values", runByFeatures},
	{"serve", "serve the HTTP API", runServe},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "songrec:", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		usage(stdout)
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, args[1:], stdout)
		}
	}
	usage(os.Stderr)
	return core.Errorf(core.ErrInvalidInput, "unknown command %q", args[0])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: songrec <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-20s %s\n", c.name, c.usage)
	}
}

func exitCode(err error) int {
	switch {
	case core.IsInvalidInput(err), core.IsSchemaError(err), core.IsUnknownTrack(err):
		return 2
	default:
		return 1
	}
}

// app 是子命令共享的运行环境。
type app struct {
	settings *config.Settings
	registry index.Registry
	closers  []io.Closer
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	s, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(s.Logging)

	a := &app{settings: s}
	switch s.Index.Registry {
	case "redis":
		rs, err := store.NewRedisStore(ctx, s.Index.RedisAddr, s.Index.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rs)
		a.registry = index.NewStoreRegistry(rs, s.Index.Key)
	case "memory":
		ms := store.NewMemoryStore()
		a.closers = append(a.closers, ms)
		a.registry = index.NewStoreRegistry(ms, s.Index.Key)
	default:
		a.registry = index.NewFileRegistry(s.Index.Root)
	}
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logging.Warn().Err(err).Msg("close")
		}
	}
}

func (a *app) loadDataset(ctx context.Context, path string) (*feature.Dataset, error) {
	if path == "" {
		return nil, core.Errorf(core.ErrInvalidInput, "no dataset: pass -data or set data.path")
	}
	schema := feature.DefaultSchema()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return feature.NewSQLiteLoader(schema, a.settings.Data.Table).Load(ctx, path)
	default:
		return feature.LoadDataset(ctx, path, schema)
	}
}

func (a *app) build(ctx context.Context, dataPath string) (string, error) {
	ds, err := a.loadDataset(ctx, dataPath)
	if err != nil {
		return "", err
	}
	idx, err := index.NewBuilder(index.WithWorkers(a.settings.Index.Workers)).Build(ctx, ds)
	if err != nil {
		return "", err
	}
	return idx.Save(a.settings.Index.Root)
}

// recommender 创建 Recommender 并加载当前发布的索引。
// memory 注册表在进程内为空，此时先用 data.path 构建并发布一份索引。
func (a *app) recommender(ctx context.Context, reg prometheus.Registerer) (*recommender.Recommender, error) {
	opts := []recommender.Option{
		recommender.WithConfig(a.settings.Recommend),
		recommender.WithShards(a.settings.Recommend.Shards),
		recommender.WithMetrics(metrics.New(reg)),
	}
	if p := a.settings.Recommend.Pipeline; p != "" {
		nodes, err := loadNodes(p)
		if err != nil {
			return nil, err
		}
		opts = append(opts, recommender.WithNodes(nodes...))
	}
	rec := recommender.New(opts...)

	if a.settings.Index.Registry == "memory" {
		dir, err := a.build(ctx, a.settings.Data.Path)
		if err != nil {
			return nil, err
		}
		if err := a.registry.Publish(ctx, dir); err != nil {
			return nil, err
		}
	}
	if err := rec.LoadCurrent(ctx, a.registry); err != nil {
		return nil, err
	}
	return rec, nil
}

func loadNodes(path string) ([]pipeline.Node, error) {
	cfg, err := pipeline.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := config.ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	p, err := cfg.BuildPipeline(config.DefaultFactory())
	if err != nil {
		return nil, err
	}
	return p.Nodes, nil
}
