package rerank

import (
	"context"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，用于在过滤与重排后截取前 N 个候选。
//
// 示例：
//
//	p := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.Node{Source: &recall.Similar{...}},
//	        filter.NewFilterNode(...),
//	        &rerank.Diversity{N: 10},
//	        &rerank.TopNNode{N: 10},
//	    },
//	}
type TopNNode struct {
	// N 要保留的数量
	// 如果 N <= 0，则返回所有候选（不截断）
	// 如果 N > len(items)，则返回所有候选
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
