package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/rushteam/songrec/core"
)

// Pipeline 把一次推荐拆成可组合的 Node 链：recall -> filter -> rerank。
// Pipeline 本身无状态，可被并发查询共享。
type Pipeline struct {
	Nodes []Node

	// Observe 在每个 Node 执行后回调（可选），in/out 为该 Node 前后的候选数
	Observe func(node Node, in, out int)
}

// Run 依次执行全部 Node。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		if p.Observe != nil {
			p.Observe(node, len(cur), len(next))
		}
		cur = next
	}
	return cur, nil
}

// With 返回追加了 nodes 的新 Pipeline，原 Pipeline 不变。
func (p *Pipeline) With(nodes ...Node) *Pipeline {
	out := &Pipeline{Observe: p.Observe}
	out.Nodes = slices.Concat(p.Nodes, nodes)
	return out
}

// Kinds 返回按顺序排列的 Node 类型，便于日志与校验。
func (p *Pipeline) Kinds() []Kind {
	out := make([]Kind, len(p.Nodes))
	for i, n := range p.Nodes {
		out[i] = n.Kind()
	}
	return out
}
