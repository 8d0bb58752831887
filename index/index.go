// Package index 定义特征索引：加权矩阵、id/行号双向映射、元数据表，以及它的构建、持久化与发布。
//
// 索引构建后不可变，可被任意多个查询并发读取；更新只能整体重建后原子替换。
package index

import (
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/feature"
	"github.com/rushteam/songrec/pkg/textnorm"
	"github.com/rushteam/songrec/vector"
)

// SchemaVersion 是持久化产物的版本戳，格式变化时必须递增。
const SchemaVersion = "songrec.index/v1"

// Index 是加载到内存的特征索引。
type Index struct {
	transform *feature.Transform
	matrix    *vector.Matrix
	searcher  *vector.ExactSearcher

	ids      []string       // row_to_id
	idToRow  map[string]int // id_to_row
	meta     []core.Track   // metadata_table
	leadKeys []string       // 折叠后的主艺人，供多样性重排比较
	yearRows map[int]*roaring.Bitmap

	contentID string
}

// assemble 从矩阵、映射与元数据推导出全部查询辅助结构。Build 与 Load 共用。
func assemble(t *feature.Transform, m *vector.Matrix, meta []core.Track, contentID string) (*Index, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	rows, cols := m.Dims()
	if cols != t.Dim() {
		return nil, core.Errorf(core.ErrDimensionMismatch, "matrix has %d columns, schema has %d", cols, t.Dim())
	}
	if len(meta) != rows {
		return nil, core.Errorf(core.ErrSchema, "metadata has %d rows, matrix has %d", len(meta), rows)
	}

	idx := &Index{
		transform: t,
		matrix:    m,
		searcher:  vector.NewExactSearcher(m),
		ids:       make([]string, rows),
		idToRow:   make(map[string]int, rows),
		meta:      meta,
		leadKeys:  make([]string, rows),
		yearRows:  make(map[int]*roaring.Bitmap),
		contentID: contentID,
	}
	for row := range meta {
		tr := &meta[row]
		if prev, dup := idx.idToRow[tr.ID]; dup {
			return nil, core.Errorf(core.ErrSchema, "duplicate id %q at rows %d and %d", tr.ID, prev, row)
		}
		idx.ids[row] = tr.ID
		idx.idToRow[tr.ID] = row
		idx.leadKeys[row] = textnorm.Fold(tr.LeadArtist())

		bm, ok := idx.yearRows[tr.ReleaseYear]
		if !ok {
			bm = roaring.New()
			idx.yearRows[tr.ReleaseYear] = bm
		}
		bm.Add(uint32(row))
	}
	for _, bm := range idx.yearRows {
		bm.RunOptimize()
	}
	return idx, nil
}

// Schema 返回特征列定义。
func (idx *Index) Schema() *feature.Schema { return idx.transform.Schema }

// Transform 返回构建时拟合的归一化 + 加权变换。
func (idx *Index) Transform() *feature.Transform { return idx.transform }

// Matrix 返回加权特征矩阵。
func (idx *Index) Matrix() *vector.Matrix { return idx.matrix }

// Searcher 返回矩阵上的精确检索服务。
func (idx *Index) Searcher() vector.Searcher { return idx.searcher }

// Rows 返回曲目数。
func (idx *Index) Rows() int { return len(idx.ids) }

// Dim 返回特征维度。
func (idx *Index) Dim() int { return idx.matrix.Cols() }

// ContentID 返回由内容推导出的确定性 ID，同一数据集重复构建得到同一 ID。
func (idx *Index) ContentID() string { return idx.contentID }

// Row 按曲目 ID 查行号。
func (idx *Index) Row(id string) (int, bool) {
	row, ok := idx.idToRow[id]
	return row, ok
}

// ID 按行号查曲目 ID。
func (idx *Index) ID(row int) string { return idx.ids[row] }

// Track 返回第 row 行的元数据，调用方不得修改。
func (idx *Index) Track(row int) *core.Track { return &idx.meta[row] }

// LeadKey 返回第 row 行折叠后的主艺人。
func (idx *Index) LeadKey(row int) string { return idx.leadKeys[row] }

// Vector 返回第 row 行加权向量的拷贝。
func (idx *Index) Vector(row int) []float64 { return idx.matrix.Row(row) }

// Weights 返回权重向量。
func (idx *Index) Weights() []float64 { return idx.transform.Schema.Weights() }

// Years 返回目录中出现过的年份（升序）。
func (idx *Index) Years() []int {
	return slices.Sorted(maps.Keys(idx.yearRows))
}

// RowsInYears 返回发行年份落在 [from, to] 内的全部行。
func (idx *Index) RowsInYears(from, to int) *roaring.Bitmap {
	var parts []*roaring.Bitmap
	for year, bm := range idx.yearRows {
		if year >= from && year <= to {
			parts = append(parts, bm)
		}
	}
	if len(parts) == 0 {
		return roaring.New()
	}
	return roaring.FastOr(parts...)
}
