package recall

import (
	"context"
	"strconv"

	"github.com/RoaringBitmap/roaring"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pipeline"
	"github.com/rushteam/songrec/pkg/utils"
	"github.com/rushteam/songrec/vector"
)

// Catalog 是召回所需的最小索引视图，*index.Index 满足该接口。
type Catalog interface {
	Searcher() vector.Searcher
	ID(row int) string
	Track(row int) *core.Track
}

// Similar 是余弦相似召回源：以 rctx.Query 为查询向量，取相似度最高的 TopK 行。
// 种子曲目（rctx.SeedRow）永远不会出现在结果中。
type Similar struct {
	Catalog Catalog
	TopK    int
	Round   int // 候选池扩容轮次，仅用于打标
}

func (r *Similar) Name() string { return "recall.similar" }

func (r *Similar) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	if rctx == nil || rctx.Query == nil {
		return nil, core.Errorf(core.ErrInvalidInput, "recall without query vector")
	}

	req := &vector.SearchRequest{Vector: rctx.Query, TopK: r.TopK}
	if rctx.HasSeed() {
		req.Exclude = roaring.BitmapOf(uint32(rctx.SeedRow))
	}
	res, err := r.Catalog.Searcher().Search(ctx, req)
	if err != nil {
		return nil, err
	}

	round := strconv.Itoa(r.Round)
	items := make([]*core.Item, 0, len(res.Hits))
	for _, h := range res.Hits {
		it := core.NewItem(r.Catalog.ID(h.Row), h.Row)
		it.Score = h.Score
		it.Track = r.Catalog.Track(h.Row)
		it.PutLabel(utils.LabelRecallSource, utils.Label{Value: "similar", Source: "recall"})
		it.PutLabel(utils.LabelRecallRound, utils.Label{Value: round, Source: "recall"})
		items = append(items, it)
	}
	return items, nil
}

// Node 把 Source 包装成 Pipeline 的召回 Node，输入 items 被忽略。
type Node struct {
	Source Source
}

func (n *Node) Name() string        { return n.Source.Name() }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Node) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	return n.Source.Recall(ctx, rctx)
}

var (
	_ Source        = (*Similar)(nil)
	_ pipeline.Node = (*Node)(nil)
)
