package vector

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/songrec/core"
)

// Matrix 是只读的稠密特征矩阵（行优先），附带预计算的行范数。
// 构建后不再修改，可被任意多个查询并发读取。
type Matrix struct {
	dense *mat.Dense
	norms []float64
}

// NewMatrix 以 rows×cols 的行优先数据创建矩阵，data 被直接持有，调用方之后不得修改。
func NewMatrix(rows, cols int, data []float64) (*Matrix, error) {
	if rows <= 0 {
		return nil, core.Errorf(core.ErrEmptyDataset, "matrix has no rows")
	}
	if cols <= 0 {
		return nil, core.Errorf(core.ErrSchema, "matrix has no columns")
	}
	if len(data) != rows*cols {
		return nil, core.Errorf(core.ErrDimensionMismatch, "got %d values for %dx%d matrix", len(data), rows, cols)
	}
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, core.Errorf(core.ErrSchema, "non-finite value at row %d col %d", i/cols, i%cols)
		}
	}

	m := &Matrix{
		dense: mat.NewDense(rows, cols, data),
		norms: make([]float64, rows),
	}
	for i := range m.norms {
		m.norms[i] = floats.Norm(m.dense.RawRowView(i), 2)
	}
	return m, nil
}

// Dims 返回行数与列数。
func (m *Matrix) Dims() (rows, cols int) { return m.dense.Dims() }

// Rows 返回行数。
func (m *Matrix) Rows() int {
	r, _ := m.dense.Dims()
	return r
}

// Cols 返回列数（特征维度）。
func (m *Matrix) Cols() int {
	_, c := m.dense.Dims()
	return c
}

// RowView 返回第 i 行的只读视图，不拷贝。
func (m *Matrix) RowView(i int) []float64 { return m.dense.RawRowView(i) }

// Row 返回第 i 行的拷贝。
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, m.Cols())
	copy(out, m.dense.RawRowView(i))
	return out
}

// Norm 返回第 i 行的 L2 范数。
func (m *Matrix) Norm(i int) float64 { return m.norms[i] }

// Data 返回底层行优先数据（只读），用于持久化。
func (m *Matrix) Data() []float64 { return m.dense.RawMatrix().Data }

// Cosine 计算两个向量的余弦相似度；任一向量范数为 0 时返回 0。
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, core.Errorf(core.ErrDimensionMismatch, "vectors have length %d and %d", len(a), len(b))
	}
	return cosine(floats.Dot(a, b), floats.Norm(a, 2), floats.Norm(b, 2)), nil
}

func cosine(dot, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (na * nb)
	// 浮点误差可能让自相似略超出 [-1, 1]
	return math.Max(-1, math.Min(1, s))
}
