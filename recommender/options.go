package recommender

import (
	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/index"
)

// YearRange 是发行年份闭区间。
type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Options 是一次推荐查询的全部可选参数。
type Options struct {
	// N 期望返回条数；0 取配置默认值，负数非法
	N int

	// Diversity 开启按主艺人去重的多样性重排
	Diversity bool

	// MinPopularity 非空时过滤 popularity < *MinPopularity 的曲目
	MinPopularity *int

	// YearRange 非空时过滤发行年份不在区间内的曲目
	YearRange *YearRange

	// Expr 非空时是额外的 CEL 保留条件，见 filter.ExprFilter
	Expr string

	// Backfill 多样性去重后不足 N 条时，用被拒绝的候选按得分补齐
	Backfill bool
}

// Recommendation 是一条推荐结果。
type Recommendation struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Artists         []string `json:"artists"`
	SimilarityScore float64  `json:"similarity_score"`
	Popularity      int      `json:"popularity"`
	ReleaseYear     int      `json:"release_year"`
}

// TrackMatch 是一条名称查找结果。
type TrackMatch struct {
	core.Track
	Exact bool `json:"exact"` // 曲名（及给定的艺人）归一化后完全一致
}

func (o Options) n(cfg core.RecommendConfig) (int, error) {
	switch {
	case o.N < 0:
		return 0, core.Errorf(core.ErrInvalidInput, "n must not be negative, got %d", o.N)
	case o.N == 0:
		return cfg.DefaultN(), nil
	default:
		return o.N, nil
	}
}

func (o Options) params(n int) map[string]any {
	p := map[string]any{
		"n":         int64(n),
		"diversity": o.Diversity,
	}
	if o.MinPopularity != nil {
		p["min_popularity"] = int64(*o.MinPopularity)
	}
	if o.YearRange != nil {
		p["year_from"] = int64(o.YearRange.From)
		p["year_to"] = int64(o.YearRange.To)
	}
	return p
}

func toRecommendation(idx *index.Index, row int, score float64) Recommendation {
	tr := idx.Track(row)
	artists := make([]string, len(tr.Artists))
	copy(artists, tr.Artists)
	return Recommendation{
		ID:              tr.ID,
		Name:            tr.Name,
		Artists:         artists,
		SimilarityScore: score,
		Popularity:      tr.Popularity,
		ReleaseYear:     tr.ReleaseYear,
	}
}
