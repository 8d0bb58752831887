package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pkg/logging"
	"github.com/rushteam/songrec/recommender"
	"github.com/rushteam/songrec/server"
)

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", "", "settings file (default: $SONGREC_CONFIG or ./songrec.yaml)")
	return fs, configPath
}

func runBuild(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("build")
	data := fs.String("data", "", "dataset path (.csv or .db/.sqlite); overrides data.path")
	out := fs.String("out", "", "artifact root; overrides index.root")
	publish := fs.Bool("publish", false, "publish the new index after saving it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	if *out != "" {
		a.settings.Index.Root = *out
	}
	path := a.settings.Data.Path
	if *data != "" {
		path = *data
	}

	dir, err := a.build(ctx, path)
	if err != nil {
		return err
	}
	logging.Info().Str("dir", dir).Msg("index saved")

	if *publish {
		if err := a.registry.Publish(ctx, dir); err != nil {
			return err
		}
		logging.Info().Str("dir", dir).Msg("index published")
	}
	fmt.Fprintln(stdout, dir)
	return nil
}

func runPublish(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("publish")
	dir := fs.String("dir", "", "saved index directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return core.Errorf(core.ErrInvalidInput, "-dir is required")
	}

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.registry.Publish(ctx, *dir); err != nil {
		return err
	}
	resolved, err := a.registry.Resolve(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, resolved)
	return nil
}

func runSearch(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("search")
	name := fs.String("name", "", "track name or part of it")
	artist := fs.String("artist", "", "artist name or part of it")
	limit := fs.Int("limit", 10, "maximum matches, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	rec, err := a.recommender(ctx, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	matches, err := rec.FindTrackByName(*name, *artist, *limit)
	if err != nil {
		return err
	}
	return printJSON(stdout, server.SearchResponse{Tracks: matches})
}

// queryFlags 是 recommend 与 similar-to-features 共用的查询参数。
type queryFlags struct {
	n             *int
	diversity     *bool
	backfill      *bool
	minPopularity *int
	yearFrom      *int
	yearTo        *int
	expr          *string
}

func addQueryFlags(fs *flag.FlagSet) *queryFlags {
	return &queryFlags{
		n:             fs.Int("n", 0, "number of recommendations (default: recommend.default_n)"),
		diversity:     fs.Bool("diversity", false, "cap picks per lead artist"),
		backfill:      fs.Bool("backfill", false, "fill up with capped artists when too few remain"),
		minPopularity: fs.Int("min-popularity", -1, "drop tracks below this popularity (-1: off)"),
		yearFrom:      fs.Int("year-from", 0, "earliest release year (0: off)"),
		yearTo:        fs.Int("year-to", 0, "latest release year (0: off)"),
		expr:          fs.String("expr", "", "CEL expression a track must satisfy"),
	}
}

func (q *queryFlags) options() recommender.Options {
	opts := recommender.Options{
		N:         *q.n,
		Diversity: *q.diversity,
		Backfill:  *q.backfill,
		Expr:      *q.expr,
	}
	if *q.minPopularity >= 0 {
		opts.MinPopularity = q.minPopularity
	}
	if *q.yearFrom != 0 || *q.yearTo != 0 {
		yr := &recommender.YearRange{From: *q.yearFrom, To: *q.yearTo}
		if yr.To == 0 {
			yr.To = int(^uint(0) >> 1)
		}
		opts.YearRange = yr
	}
	return opts
}

func runRecommend(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("recommend")
	id := fs.String("id", "", "seed track id")
	name := fs.String("name", "", "seed track name, used when -id is empty (best match wins)")
	q := addQueryFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	rec, err := a.recommender(ctx, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	seed := *id
	if seed == "" {
		matches, err := rec.FindTrackByName(*name, "", 1)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			return core.Errorf(core.ErrUnknownTrack, "no track named %q", *name)
		}
		seed = matches[0].ID
		logging.Info().Str("id", seed).Str("name", matches[0].Name).Msg("seed resolved")
	}

	recs, err := rec.GetRecommendations(ctx, seed, q.options())
	if err != nil {
		return err
	}
	return printJSON(stdout, server.RecommendationsResponse{Recommendations: recs, DiversityScore: recommender.DiversityScore(recs)})
}

func runByFeatures(ctx context.Context, args []string, stdout io.Writer) error {
	fs, configPath := newFlagSet("similar-to-features")
	raw := fs.String("f", "", "comma separated feature=value pairs, e.g. danceability=0.9,energy=0.8")
	q := addQueryFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	features, err := parseFeatures(*raw)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	rec, err := a.recommender(ctx, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	recs, err := rec.GetRecommendationsByFeatures(ctx, features, q.options())
	if err != nil {
		return err
	}
	return printJSON(stdout, server.RecommendationsResponse{Recommendations: recs, DiversityScore: recommender.DiversityScore(recs)})
}

func runServe(ctx context.Context, args []string, _ io.Writer) error {
	fs, configPath := newFlagSet("serve")
	addr := fs.String("addr", "", "listen address; overrides server.addr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()
	if *addr != "" {
		a.settings.Server.Addr = *addr
	}

	rec, err := a.recommender(ctx, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	s := a.settings.Server
	srv := server.New(rec, server.WithMaxLimit(s.MaxLimit))
	return srv.ListenAndServe(ctx, s.Addr, s.ReadTimeout, s.WriteTimeout, s.ShutdownTimeout)
}

// parseFeatures 解析 "a=1,b=2"。
func parseFeatures(s string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, core.Errorf(core.ErrInvalidInput, "feature %q: want name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, core.Errorf(core.ErrInvalidInput, "feature %q: %q is not a number", name, value)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
