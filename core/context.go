package core

import "github.com/rushteam/songrec/pkg/utils"

// RecommendContext 承载一次查询的请求级信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	// SeedID 是种子曲目 ID；按特征查询时为空
	SeedID string

	// SeedRow 是种子曲目在矩阵中的行号；按特征查询时为 -1
	SeedRow int

	// Query 是已经归一化并加权的查询向量
	Query []float64

	// Labels 是请求级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级参数，例如 n、min_popularity 等，供 explain / 表达式过滤读取
	Params map[string]any
}

// NewRecommendContext 创建按特征查询的上下文（无种子）。
func NewRecommendContext(query []float64) *RecommendContext {
	return &RecommendContext{
		SeedRow: -1,
		Query:   query,
		Labels:  make(map[string]utils.Label),
		Params:  make(map[string]any),
	}
}

// HasSeed 表示本次查询是否由种子曲目发起。
func (rctx *RecommendContext) HasSeed() bool {
	return rctx != nil && rctx.SeedRow >= 0
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
