package recommender

import (
	"context"
	"time"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/filter"
	"github.com/rushteam/songrec/pipeline"
	"github.com/rushteam/songrec/recall"
	"github.com/rushteam/songrec/rerank"
)

// 指标中的查询类型
const (
	OpSearch     = "search"
	OpRecommend  = "recommend"
	OpByFeatures = "by_features"
)

// GetRecommendations 返回与 trackID 最相似的曲目，种子曲目本身不会出现在结果中。
// 结果按相似度降序（同分按行号升序）；满足条件的候选不足 N 条时返回实际条数。
func (r *Recommender) GetRecommendations(ctx context.Context, trackID string, opts Options) (recs []Recommendation, err error) {
	start := time.Now()
	defer func() { r.metrics.ObserveQuery(OpRecommend, start, err) }()

	s, err := r.session()
	if err != nil {
		return nil, err
	}
	row, ok := s.idx.Row(trackID)
	if !ok {
		return nil, core.Errorf(core.ErrUnknownTrack, "track %q is not in the index", trackID)
	}

	rctx := core.NewRecommendContext(s.idx.Vector(row))
	rctx.SeedID = trackID
	rctx.SeedRow = row
	return r.recommend(ctx, s, rctx, opts)
}

// GetRecommendationsByFeatures 以原始特征值构造查询：未给出的特征取目录均值，
// 再用建索引时拟合的同一套归一化与权重变换到索引空间。
// 未知特征名或非有限值返回 SchemaError。
func (r *Recommender) GetRecommendationsByFeatures(ctx context.Context, overrides map[string]float64, opts Options) (recs []Recommendation, err error) {
	start := time.Now()
	defer func() { r.metrics.ObserveQuery(OpByFeatures, start, err) }()

	s, err := r.session()
	if err != nil {
		return nil, err
	}
	t := s.idx.Transform()
	raw, err := t.RawFromOverrides(overrides)
	if err != nil {
		return nil, err
	}
	query, err := t.Apply(raw, nil)
	if err != nil {
		return nil, err
	}
	return r.recommend(ctx, s, core.NewRecommendContext(query), opts)
}

func (r *Recommender) recommend(ctx context.Context, s *session, rctx *core.RecommendContext, opts Options) ([]Recommendation, error) {
	n, err := opts.n(r.cfg)
	if err != nil {
		return nil, err
	}
	rctx.Params = opts.params(n)

	tail, err := r.stages(s, n, opts)
	if err != nil {
		return nil, err
	}

	eligible := s.idx.Rows()
	if rctx.HasSeed() {
		eligible--
	}
	if eligible <= 0 {
		return []Recommendation{}, nil
	}

	factor := max(r.cfg.OversampleFactor(), 1)
	rounds := max(r.cfg.PoolRounds(), 1)

	var items []*core.Item
	pool := n
	for round := 1; round <= rounds; round++ {
		pool = grow(pool, factor, eligible)

		p := &pipeline.Pipeline{
			Nodes:   []pipeline.Node{&recall.Node{Source: &recall.Similar{Catalog: s.catalog, TopK: pool, Round: round}}},
			Observe: r.observe,
		}
		items, err = p.With(tail...).Run(ctx, rctx, nil)
		if err != nil {
			return nil, err
		}

		r.log.Debug().
			Str("seed", rctx.SeedID).
			Int("n", n).
			Int("round", round).
			Int("pool", pool).
			Int("results", len(items)).
			Msg("recommend round")

		if len(items) >= n || pool >= eligible {
			break
		}
	}

	out := make([]Recommendation, len(items))
	for i, it := range items {
		out[i] = toRecommendation(s.idx, it.Row, it.Score)
	}
	return out, nil
}

// stages 返回召回之后的各阶段：内置过滤、配置追加的 Node、多样性重排、截断。
func (r *Recommender) stages(s *session, n int, opts Options) ([]pipeline.Node, error) {
	var filters []filter.Filter
	if opts.MinPopularity != nil {
		filters = append(filters, filter.NewPopularityFilter(*opts.MinPopularity))
	}
	if yr := opts.YearRange; yr != nil {
		f, err := filter.NewYearRangeFilter(yr.From, yr.To, nil)
		if err != nil {
			return nil, err
		}
		f.Rows = s.idx.RowsInYears(yr.From, yr.To)
		filters = append(filters, f)
	}
	if opts.Expr != "" {
		f, err := filter.NewExprFilter(opts.Expr)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	var nodes []pipeline.Node
	if len(filters) > 0 {
		nodes = append(nodes, filter.NewFilterNode(filters...))
	}
	nodes = append(nodes, r.extra...)
	if opts.Diversity {
		nodes = append(nodes, &rerank.Diversity{
			Cap:      r.cfg.DiversityCap(),
			N:        n,
			Backfill: opts.Backfill,
			Key:      s.leadKey,
		})
	}
	nodes = append(nodes, &rerank.TopNNode{N: n})
	return nodes, nil
}

func (r *Recommender) observe(node pipeline.Node, _, out int) {
	r.metrics.ObserveCandidates(string(node.Kind()), out)
}

// grow 返回 min(pool*factor, limit)，乘法不会溢出。
func grow(pool, factor, limit int) int {
	if pool >= limit || pool > limit/factor {
		return limit
	}
	return pool * factor
}
