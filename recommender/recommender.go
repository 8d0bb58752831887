// Package recommender 是推荐引擎的会话对象：持有一份已加载的特征索引，
// 提供按名称查找曲目、按种子曲目推荐、按原始特征推荐三类查询。
//
// Recommender 显式构造并在调用方之间传递，不存在进程级单例；
// 索引通过 Load / Swap 原子替换，进行中的查询继续使用替换前的索引。
package recommender

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/index"
	"github.com/rushteam/songrec/pipeline"
	"github.com/rushteam/songrec/pkg/logging"
	"github.com/rushteam/songrec/pkg/metrics"
	"github.com/rushteam/songrec/pkg/textnorm"
	"github.com/rushteam/songrec/vector"
)

// Recommender 推荐会话。并发安全。
type Recommender struct {
	cfg     core.RecommendConfig
	extra   []pipeline.Node
	shards  int
	metrics *metrics.Metrics
	log     zerolog.Logger

	cur atomic.Pointer[session]
}

// session 是一份索引及其派生的查询辅助结构，构建后只读。
type session struct {
	idx     *index.Index
	catalog *catalog

	nameKeys   []string   // 折叠后的曲名
	artistKeys [][]string // 折叠后的艺人列表
}

// catalog 用带分片配置的检索服务覆盖索引默认的检索服务。
type catalog struct {
	*index.Index
	searcher vector.Searcher
}

func (c *catalog) Searcher() vector.Searcher { return c.searcher }

// Option 构造选项
type Option func(*Recommender)

// WithConfig 指定推荐参数（默认 core.DefaultRecommendConfig）。
func WithConfig(cfg core.RecommendConfig) Option {
	return func(r *Recommender) { r.cfg = cfg }
}

// WithNodes 追加在内置过滤器之后、多样性重排之前执行的 Node（通常来自 pipeline 配置文件）。
func WithNodes(nodes ...pipeline.Node) Option {
	return func(r *Recommender) { r.extra = append(r.extra, nodes...) }
}

// WithShards 指定检索并发分片数，0 为自动。
func WithShards(n int) Option {
	return func(r *Recommender) { r.shards = n }
}

// WithMetrics 指定 Prometheus 指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recommender) { r.metrics = m }
}

// WithLogger 指定日志
func WithLogger(l zerolog.Logger) Option {
	return func(r *Recommender) { r.log = l }
}

// New 创建未加载索引的 Recommender；在 Load / Swap 之前的查询返回 IndexNotLoaded。
func New(opts ...Option) *Recommender {
	r := &Recommender{
		cfg: &core.DefaultRecommendConfig{},
		log: logging.With("recommender"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load 从产物目录加载索引并切换。
func (r *Recommender) Load(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx, err := index.Load(dir)
	r.metrics.IndexLoaded(rowsOf(idx), err)
	if err != nil {
		return err
	}
	r.Swap(idx)
	return nil
}

// LoadCurrent 加载注册表中当前发布的索引。
func (r *Recommender) LoadCurrent(ctx context.Context, reg index.Registry) error {
	dir, err := reg.Resolve(ctx)
	if err != nil {
		return err
	}
	return r.Load(ctx, dir)
}

// Swap 原子替换索引并返回旧索引（可能为 nil）。
func (r *Recommender) Swap(idx *index.Index) *index.Index {
	s := newSession(idx, r.shards)
	prev := r.cur.Swap(s)

	ev := r.log.Info().Str("content_id", idx.ContentID()).Int("rows", idx.Rows())
	if prev != nil {
		ev = ev.Str("previous", prev.idx.ContentID())
	}
	ev.Msg("index swapped")

	if prev == nil {
		return nil
	}
	return prev.idx
}

// Index 返回当前索引。
func (r *Recommender) Index() (*index.Index, error) {
	s, err := r.session()
	if err != nil {
		return nil, err
	}
	return s.idx, nil
}

// Loaded 表示是否已加载索引。
func (r *Recommender) Loaded() bool { return r.cur.Load() != nil }

func (r *Recommender) session() (*session, error) {
	s := r.cur.Load()
	if s == nil {
		return nil, core.Errorf(core.ErrIndexNotLoaded, "call Load before querying")
	}
	return s, nil
}

// leadKey 返回候选的主艺人比较键，取索引构建时预先折叠的结果。
func (s *session) leadKey(it *core.Item) string {
	if it.Row < 0 || it.Row >= s.idx.Rows() {
		return textnorm.Fold(it.LeadArtist())
	}
	return s.idx.LeadKey(it.Row)
}

func newSession(idx *index.Index, shards int) *session {
	s := &session{
		idx: idx,
		catalog: &catalog{
			Index:    idx,
			searcher: &vector.ExactSearcher{Matrix: idx.Matrix(), Shards: shards},
		},
		nameKeys:   make([]string, idx.Rows()),
		artistKeys: make([][]string, idx.Rows()),
	}
	for row := range s.nameKeys {
		tr := idx.Track(row)
		s.nameKeys[row] = textnorm.Fold(tr.Name)
		keys := make([]string, len(tr.Artists))
		for i, a := range tr.Artists {
			keys[i] = textnorm.Fold(a)
		}
		s.artistKeys[row] = keys
	}
	return s
}

func rowsOf(idx *index.Index) int {
	if idx == nil {
		return 0
	}
	return idx.Rows()
}
