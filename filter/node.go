package filter

import (
	"context"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pipeline"
	"github.com/rushteam/songrec/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉；过滤器出错时整个查询失败。
// 过滤不改变剩余候选的相对顺序。
type FilterNode struct {
	Filters []Filter
}

func NewFilterNode(filters ...Filter) *FilterNode {
	return &FilterNode{Filters: filters}
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			drop, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				return nil, err
			}
			if drop {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			// 记录过滤原因，用于调试/观测
			item.PutLabel(utils.LabelFiltered, utils.Label{Value: "true", Source: reason})
			continue
		}
		out = append(out, item)
	}

	return out, nil
}
