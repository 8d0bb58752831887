package rerank

import (
	"context"
	"slices"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pipeline"
	"github.com/rushteam/songrec/pkg/textnorm"
	"github.com/rushteam/songrec/pkg/utils"
)

// Diversity 是按主艺人去重的多样性重排：沿相似度顺序贪心选取，
// 同一主艺人（折叠大小写与空白后比较）最多入选 Cap 次，选满 N 个即停止。
//
// 输入必须已按得分降序排列；输出保持输入的相对顺序，不重新打分。
// 没有艺人信息的候选不受上限约束。
//
// Backfill 为 true 时，若去重后不足 N 个，再按原顺序从被上限拒绝的候选中补齐，
// 用于候选池中不同艺人数量本身不足的情况；补入的候选打上 diversity=backfill 标签。
type Diversity struct {
	Cap      int // 每位主艺人最多入选次数，<= 0 时取 core.DefaultDiversityCap
	N        int // 目标数量，<= 0 表示不限
	Backfill bool

	// Key 返回候选的主艺人比较键；为空时对 LeadArtist 做 textnorm.Fold
	Key func(it *core.Item) string
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	limit := n.Cap
	if limit <= 0 {
		limit = core.DefaultDiversityCap
	}
	want := n.N
	if want <= 0 || want > len(items) {
		want = len(items)
	}
	key := n.Key
	if key == nil {
		key = foldLeadArtist
	}

	counts := make(map[string]int, want)
	picked := make([]int, 0, want)
	var rejected []int

	for i, it := range items {
		if len(picked) == want {
			break
		}
		if it == nil {
			continue
		}
		k := key(it)
		if k != "" && counts[k] >= limit {
			rejected = append(rejected, i)
			continue
		}
		if k != "" {
			counts[k]++
		}
		it.PutLabel(utils.LabelDiversity, utils.Label{Value: "kept", Source: n.Name()})
		picked = append(picked, i)
	}

	if n.Backfill && len(picked) < want {
		for _, i := range rejected {
			if len(picked) == want {
				break
			}
			items[i].PutLabel(utils.LabelDiversity, utils.Label{Value: "backfill", Source: n.Name()})
			picked = append(picked, i)
		}
		// 恢复原始（得分）顺序
		slices.Sort(picked)
	}

	out := make([]*core.Item, len(picked))
	for j, i := range picked {
		out[j] = items[i]
	}
	return out, nil
}

func foldLeadArtist(it *core.Item) string {
	return textnorm.Fold(it.LeadArtist())
}
