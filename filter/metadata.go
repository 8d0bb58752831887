package filter

import (
	"context"

	"github.com/RoaringBitmap/roaring"

	"github.com/rushteam/songrec/core"
)

// PopularityFilter 过滤 popularity < Min 的曲目。
type PopularityFilter struct {
	Min int
}

func NewPopularityFilter(min int) *PopularityFilter {
	return &PopularityFilter{Min: min}
}

func (f *PopularityFilter) Name() string { return "filter.popularity" }

func (f *PopularityFilter) ShouldFilter(_ context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	if item.Track == nil {
		return true, nil
	}
	return item.Track.Popularity < f.Min, nil
}

// YearRangeFilter 过滤发行年份不在 [From, To]（闭区间）内的曲目。
// Rows 是可选的预计算行集合（index.RowsInYears），提供时按行号判断。
type YearRangeFilter struct {
	From, To int
	Rows     *roaring.Bitmap
}

// NewYearRangeFilter 创建年份过滤器；from > to 返回 InvalidInput。
func NewYearRangeFilter(from, to int, rows *roaring.Bitmap) (*YearRangeFilter, error) {
	if from > to {
		return nil, core.Errorf(core.ErrInvalidInput, "year range [%d, %d] is empty", from, to)
	}
	return &YearRangeFilter{From: from, To: to, Rows: rows}, nil
}

func (f *YearRangeFilter) Name() string { return "filter.year_range" }

func (f *YearRangeFilter) ShouldFilter(_ context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	if f.Rows != nil && item.Row >= 0 {
		return !f.Rows.Contains(uint32(item.Row)), nil
	}
	if item.Track == nil {
		return true, nil
	}
	y := item.Track.ReleaseYear
	return y < f.From || y > f.To, nil
}

// ExcludeFilter 过滤指定 ID 的曲目。
type ExcludeFilter struct {
	ids map[string]struct{}
}

func NewExcludeFilter(ids ...string) *ExcludeFilter {
	f := &ExcludeFilter{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		f.ids[id] = struct{}{}
	}
	return f
}

func (f *ExcludeFilter) Name() string { return "filter.exclude" }

func (f *ExcludeFilter) ShouldFilter(_ context.Context, _ *core.RecommendContext, item *core.Item) (bool, error) {
	_, ok := f.ids[item.ID]
	return ok, nil
}

var (
	_ Filter = (*PopularityFilter)(nil)
	_ Filter = (*YearRangeFilter)(nil)
	_ Filter = (*ExcludeFilter)(nil)
)
