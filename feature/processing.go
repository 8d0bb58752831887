package feature

import (
	"math"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rushteam/songrec/core"
)

// ColumnStats 是单列在整个目录上拟合出的统计量，对应持久化的 scaler 参数。
type ColumnStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"` // 总体标准差
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Transform 是拟合好的“归一化 + 加权”变换。
// 索引构建与按特征查询共用同一个 Transform，保证查询向量与矩阵行处于同一空间。
type Transform struct {
	Schema *Schema       `json:"schema"`
	Stats  []ColumnStats `json:"stats"`
}

// Fit 在数据集上逐列拟合统计量，列之间并发计算。
// workers <= 0 时使用 GOMAXPROCS。
func Fit(schema *Schema, ds *Dataset, workers int) (*Transform, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if ds == nil || len(ds.Records) == 0 {
		return nil, core.Errorf(core.ErrEmptyDataset, "no rows to fit")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	stats := make([]ColumnStats, schema.Len())
	p := pool.New().WithMaxGoroutines(workers)
	for j := range schema.Columns {
		p.Go(func() {
			col := make([]float64, len(ds.Records))
			for i := range ds.Records {
				col[i] = ds.Records[i].Features[j]
			}
			mean, std := stat.PopMeanStdDev(col, nil)
			stats[j] = ColumnStats{
				Mean: mean,
				Std:  std,
				Min:  floats.Min(col),
				Max:  floats.Max(col),
			}
		})
	}
	p.Wait()

	return &Transform{Schema: schema, Stats: stats}, nil
}

// Dim 返回变换后的向量维度。
func (t *Transform) Dim() int { return len(t.Stats) }

// NormalizeValue 按第 j 列的归一化方式处理单个值（不加权）。
// 退化列（σ 为 0 或 max == min）统一映射为 0。
func (t *Transform) NormalizeValue(j int, value float64) float64 {
	s := t.Stats[j]
	switch t.Schema.Columns[j].Norm {
	case NormMinMax:
		if r := s.Max - s.Min; r > 0 {
			return (value - s.Min) / r
		}
		return 0
	default:
		if s.Std > 0 {
			return (value - s.Mean) / s.Std
		}
		return 0
	}
}

// Apply 把一行原始特征变换到加权空间，结果写入 dst（容量不足时重新分配）。
func (t *Transform) Apply(raw []float64, dst []float64) ([]float64, error) {
	if len(raw) != t.Dim() {
		return nil, core.Errorf(core.ErrDimensionMismatch, "got %d features, want %d", len(raw), t.Dim())
	}
	if cap(dst) < len(raw) {
		dst = make([]float64, len(raw))
	}
	dst = dst[:len(raw)]
	for j, v := range raw {
		dst[j] = t.NormalizeValue(j, v) * t.Schema.Columns[j].Weight
	}
	return dst, nil
}

// Means 返回每列的目录均值（原始空间），用作未指定特征的默认值。
func (t *Transform) Means() []float64 {
	out := make([]float64, len(t.Stats))
	for j, s := range t.Stats {
		out[j] = s.Mean
	}
	return out
}

// RawFromOverrides 以目录均值为底，覆盖调用方给出的特征值，得到完整的原始特征向量。
// 未知特征名或非有限值返回 SchemaError。
func (t *Transform) RawFromOverrides(overrides map[string]float64) ([]float64, error) {
	raw := t.Means()
	for name, v := range overrides {
		j := t.Schema.IndexOf(name)
		if j < 0 {
			return nil, core.Errorf(core.ErrSchema, "unknown feature %q", name)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.Errorf(core.ErrSchema, "feature %q is not a finite number", name)
		}
		raw[j] = v
	}
	return raw, nil
}

// Validate 检查 Transform 与 Schema 的列数一致、统计量有限。
func (t *Transform) Validate() error {
	if t == nil || t.Schema == nil {
		return core.Errorf(core.ErrSchema, "transform has no schema")
	}
	if err := t.Schema.Validate(); err != nil {
		return err
	}
	if len(t.Stats) != t.Schema.Len() {
		return core.Errorf(core.ErrSchema, "transform has %d stats for %d columns", len(t.Stats), t.Schema.Len())
	}
	for j, s := range t.Stats {
		for _, v := range []float64{s.Mean, s.Std, s.Min, s.Max} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.Errorf(core.ErrSchema, "non-finite statistic for %q", t.Schema.Columns[j].Name)
			}
		}
	}
	return nil
}
