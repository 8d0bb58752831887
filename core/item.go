package core

import "github.com/rushteam/songrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：曲目、分数、元信息、标签。
// Labels 用于解释与策略驱动；Score 是与查询向量的余弦相似度，用于排序决策。
type Item struct {
	ID     string
	Row    int // 在特征矩阵中的行号
	Score  float64
	Track  *Track
	Labels map[string]utils.Label
}

func NewItem(id string, row int) *Item {
	return &Item{
		ID:     id,
		Row:    row,
		Labels: make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// LeadArtist 返回首位艺人，Track 缺失时返回空串。
func (it *Item) LeadArtist() string {
	if it.Track == nil {
		return ""
	}
	return it.Track.LeadArtist()
}
