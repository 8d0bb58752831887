package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pkg/utils"
)

func item(id string, row, popularity, year int, artist string) *core.Item {
	it := core.NewItem(id, row)
	it.Track = &core.Track{ID: id, Name: "Song " + id, Artists: []string{artist}, Popularity: popularity, ReleaseYear: year}
	return it
}

func fixtureItems() []*core.Item {
	return []*core.Item{
		item("a", 0, 80, 2019, "Queen"),
		item("b", 1, 30, 2018, "Queen"),
		item("c", 2, 55, 2001, "ABBA"),
		item("d", 3, 40, 2015, "Blur"),
		item("e", 4, 99, 2020, "Oasis"),
	}
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFilterNode(t *testing.T) {
	years, err := NewYearRangeFilter(2015, 2024, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{name: "no filters", want: []string{"a", "b", "c", "d", "e"}},
		{name: "popularity", filters: []Filter{NewPopularityFilter(40)}, want: []string{"a", "c", "d", "e"}},
		{name: "year range", filters: []Filter{years}, want: []string{"a", "b", "d", "e"}},
		{name: "both", filters: []Filter{NewPopularityFilter(40), years}, want: []string{"a", "d", "e"}},
		{name: "exclude", filters: []Filter{NewExcludeFilter("a", "e", "zz")}, want: []string{"b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewFilterNode(tt.filters...).Process(context.Background(), core.NewRecommendContext(nil), fixtureItems())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(out))
		})
	}
}

func TestFilterNodeLabelsDropped(t *testing.T) {
	items := fixtureItems()
	_, err := NewFilterNode(NewPopularityFilter(40)).Process(context.Background(), nil, items)
	require.NoError(t, err)
	assert.Equal(t, "filter.popularity", items[1].Labels[utils.LabelFiltered].Source)
	assert.NotContains(t, items[0].Labels, utils.LabelFiltered)
}

type errFilter struct{}

func (errFilter) Name() string { return "filter.err" }
func (errFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return false, errors.New("broken")
}

func TestFilterNodePropagatesErrors(t *testing.T) {
	_, err := NewFilterNode(errFilter{}).Process(context.Background(), nil, fixtureItems())
	assert.EqualError(t, err, "broken")
}

func TestYearRangeFilterBitmap(t *testing.T) {
	f, err := NewYearRangeFilter(2015, 2024, roaring.BitmapOf(0, 3))
	require.NoError(t, err)
	out, err := NewFilterNode(f).Process(context.Background(), nil, fixtureItems())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "d"}, ids(out))

	_, err = NewYearRangeFilter(2020, 2010, nil)
	assert.True(t, core.IsInvalidInput(err))
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter(`track.popularity >= 50 && track.lead_artist != "Queen"`)
	require.NoError(t, err)
	assert.Equal(t, "filter.expr", f.Name())

	out, err := NewFilterNode(f).Process(context.Background(), core.NewRecommendContext(nil), fixtureItems())
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "e"}, ids(out))

	_, err = NewExprFilter(`track.popularity +`)
	assert.True(t, core.IsInvalidInput(err))

	_, err = NewExprFilter(`"not a predicate"`)
	assert.True(t, core.IsInvalidInput(err))
}
