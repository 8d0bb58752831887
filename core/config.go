package core

// RecommendConfig 是推荐相关的配置接口，用于提供默认值。
type RecommendConfig interface {
	// DefaultN 返回默认的推荐条数
	DefaultN() int

	// OversampleFactor 返回候选池相对 n 的放大倍数
	OversampleFactor() int

	// PoolRounds 返回候选池最多扩容的轮数（含第一轮）
	PoolRounds() int

	// DiversityCap 返回同一首位艺人最多入选的条数
	DiversityCap() int
}

const (
	// DefaultOversampleFactor 候选池 = n * 5，与离线评估时的设置一致
	DefaultOversampleFactor = 5
	// DefaultPoolRounds 过滤后不足 n 条时最多扩容到第 3 轮
	DefaultPoolRounds = 3
	// DefaultDiversityCap 每位首位艺人最多 1 条
	DefaultDiversityCap = 1
	// DefaultTopN 默认推荐条数
	DefaultTopN = 10
)

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultN() int { return DefaultTopN }

func (c *DefaultRecommendConfig) OversampleFactor() int { return DefaultOversampleFactor }

func (c *DefaultRecommendConfig) PoolRounds() int { return DefaultPoolRounds }

func (c *DefaultRecommendConfig) DiversityCap() int { return DefaultDiversityCap }
