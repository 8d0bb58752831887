// Package songrec 是一个基于音频特征的音乐推荐引擎。
//
// 设计要点：
// - Index-first: 离线把目录构建为不可变的加权特征矩阵 + 元数据（index 包），在线只读
// - Pipeline-first: 每次推荐由 Node 串联完成（Recall → Filter → ReRank）
// - Labels-first: labels 全链路透传，记录召回轮次、过滤原因、多样性去重结果
// - 原子切换: 新索引写入新目录后再发布，Recommender 通过 Swap 替换，不就地修改
package songrec

import (
	"github.com/rushteam/songrec/pipeline"
	"github.com/rushteam/songrec/recommender"
)

// 轻量 facade：便于直接 import "songrec" 使用核心抽象。
type (
	Pipeline       = pipeline.Pipeline
	Node           = pipeline.Node
	Kind           = pipeline.Kind
	Recommender    = recommender.Recommender
	Options        = recommender.Options
	Recommendation = recommender.Recommendation
)

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

// New 创建 Recommender，见 recommender.New。
var New = recommender.New
