package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/songrec/core"
)

func twoColumnSchema() *Schema {
	return &Schema{Columns: []Column{
		{Name: "energy", Weight: 2, Norm: NormZScore},
		{Name: "tempo", Weight: 1, Norm: NormMinMax},
	}}
}

func TestFit(t *testing.T) {
	ds := &Dataset{Records: []Record{
		{Features: []float64{0, 100}},
		{Features: []float64{1, 200}},
		{Features: []float64{2, 300}},
	}}
	tr, err := Fit(twoColumnSchema(), ds, 2)
	require.NoError(t, err)
	require.Equal(t, 2, tr.Dim())

	assert.InDelta(t, 1.0, tr.Stats[0].Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), tr.Stats[0].Std, 1e-12)
	assert.Equal(t, 100.0, tr.Stats[1].Min)
	assert.Equal(t, 300.0, tr.Stats[1].Max)

	v, err := tr.Apply([]float64{1, 300}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, v[0], 1e-12)
	assert.InDelta(t, 1, v[1], 1e-12)

	v, err = tr.Apply([]float64{2, 100}, v)
	require.NoError(t, err)
	assert.InDelta(t, 2*1/math.Sqrt(2.0/3.0), v[0], 1e-9)
	assert.InDelta(t, 0, v[1], 1e-12)
}

func TestFitDegenerateColumn(t *testing.T) {
	ds := &Dataset{Records: []Record{
		{Features: []float64{0.5, 120}},
		{Features: []float64{0.5, 120}},
	}}
	tr, err := Fit(twoColumnSchema(), ds, 0)
	require.NoError(t, err)

	v, err := tr.Apply([]float64{0.9, 80}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, v)
}

func TestFitEmpty(t *testing.T) {
	_, err := Fit(twoColumnSchema(), &Dataset{}, 1)
	assert.True(t, core.IsEmptyDataset(err))
}

func TestApplyDimensionMismatch(t *testing.T) {
	tr := &Transform{Schema: twoColumnSchema(), Stats: make([]ColumnStats, 2)}
	_, err := tr.Apply([]float64{1}, nil)
	assert.True(t, core.IsDimensionMismatch(err))
}

func TestRawFromOverrides(t *testing.T) {
	tr := &Transform{
		Schema: twoColumnSchema(),
		Stats:  []ColumnStats{{Mean: 0.4}, {Mean: 118}},
	}

	raw, err := tr.RawFromOverrides(map[string]float64{"energy": 0.9})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 118}, raw)

	_, err = tr.RawFromOverrides(map[string]float64{"bogus": 1})
	assert.True(t, core.IsSchemaError(err))

	_, err = tr.RawFromOverrides(map[string]float64{"tempo": math.NaN()})
	assert.True(t, core.IsSchemaError(err))
}

func TestTransformValidate(t *testing.T) {
	tr := &Transform{Schema: twoColumnSchema(), Stats: []ColumnStats{{}}}
	assert.True(t, core.IsSchemaError(tr.Validate()))

	tr.Stats = append(tr.Stats, ColumnStats{Std: math.Inf(1)})
	assert.True(t, core.IsSchemaError(tr.Validate()))

	tr.Stats[1] = ColumnStats{}
	assert.NoError(t, tr.Validate())
}

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()
	require.NoError(t, s.Validate())
	assert.Equal(t, 20, s.Len())
	assert.Equal(t, "danceability", s.Names()[0])
	assert.Equal(t, "track_age_normalized", s.Names()[19])
	assert.Equal(t, 2.5, s.Weights()[s.IndexOf("mood_score")])
	assert.Equal(t, NormMinMax, s.Columns[s.IndexOf("key")].Norm)
	assert.Equal(t, -1, s.IndexOf("nope"))
	assert.True(t, s.Equal(DefaultSchema()))

	bad := &Schema{Columns: []Column{{Name: "a", Weight: 1, Norm: NormZScore}, {Name: "a", Weight: 1, Norm: NormZScore}}}
	assert.True(t, core.IsSchemaError(bad.Validate()))
}
