package feature

import (
	"github.com/rushteam/songrec/core"
)

// NormKind 是单列的归一化方式。
type NormKind string

const (
	// NormZScore: z = (x - μ) / σ，σ 为总体标准差
	NormZScore NormKind = "zscore"
	// NormMinMax: x' = (x - min) / (max - min)
	NormMinMax NormKind = "minmax"
)

// Column 描述一个参与相似度计算的特征列。
type Column struct {
	Name   string   `json:"name"`
	Weight float64  `json:"weight"`
	Norm   NormKind `json:"norm"`
}

// 展示元数据列，与特征列一起构成数据集的必需列。
const (
	ColumnID          = "id"
	ColumnName        = "name"
	ColumnArtists     = "artists"
	ColumnPopularity  = "popularity"
	ColumnReleaseYear = "release_year"
)

// 曲目取值范围。
const (
	MinPopularity  = 0
	MaxPopularity  = 100
	MinReleaseYear = 1921
	MaxReleaseYear = 2020
)

// Schema 是固定顺序的特征列表。列顺序即矩阵列顺序，不可在索引构建后变更。
type Schema struct {
	Columns []Column `json:"columns"`
}

// DefaultSchema 返回 20 列加权特征：11 个原始音频特征 + 9 个派生/归一化/时间特征。
//
// 权重反映感知重要性：舞曲性、能量、情绪效价、速度、情绪分更高；调式、调号、现场感、语音度更低。
// 归一化：loudness、tempo、key、acoustic_ratio 取值不在单位区间，使用 min-max；
// 其余列使用 z-score，让余弦相似度比较的是相对目录均值的偏离。
func DefaultSchema() *Schema {
	return &Schema{Columns: []Column{
		// 原始音频特征
		{Name: "danceability", Weight: 2.0, Norm: NormZScore},
		{Name: "energy", Weight: 2.0, Norm: NormZScore},
		{Name: "loudness", Weight: 1.0, Norm: NormMinMax},
		{Name: "speechiness", Weight: 0.5, Norm: NormZScore},
		{Name: "acousticness", Weight: 1.5, Norm: NormZScore},
		{Name: "instrumentalness", Weight: 1.5, Norm: NormZScore},
		{Name: "liveness", Weight: 0.5, Norm: NormZScore},
		{Name: "valence", Weight: 2.0, Norm: NormZScore},
		{Name: "tempo", Weight: 1.0, Norm: NormMinMax},
		{Name: "mode", Weight: 0.3, Norm: NormZScore},
		{Name: "key", Weight: 0.3, Norm: NormMinMax},

		// 归一化特征
		{Name: "loudness_normalized", Weight: 1.0, Norm: NormZScore},
		{Name: "tempo_normalized", Weight: 2.0, Norm: NormZScore},

		// 派生特征
		{Name: "energy_danceability", Weight: 2.0, Norm: NormZScore},
		{Name: "mood_score", Weight: 2.5, Norm: NormZScore},
		{Name: "acoustic_ratio", Weight: 1.0, Norm: NormMinMax},
		{Name: "vocal_presence", Weight: 1.0, Norm: NormZScore},
		{Name: "intensity", Weight: 1.5, Norm: NormZScore},
		{Name: "chill_factor", Weight: 1.5, Norm: NormZScore},

		// 时间特征
		{Name: "track_age_normalized", Weight: 0.5, Norm: NormZScore},
	}}
}

// Len 返回特征列数。
func (s *Schema) Len() int { return len(s.Columns) }

// Names 返回按顺序排列的列名。
func (s *Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Weights 返回按顺序排列的权重向量。
func (s *Schema) Weights() []float64 {
	w := make([]float64, len(s.Columns))
	for i, c := range s.Columns {
		w[i] = c.Weight
	}
	return w
}

// IndexOf 返回列名对应的位置，不存在时返回 -1。
func (s *Schema) IndexOf(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// RequiredColumns 返回数据集必须包含的全部列（元数据列在前）。
func (s *Schema) RequiredColumns() []string {
	cols := []string{ColumnID, ColumnName, ColumnArtists, ColumnPopularity, ColumnReleaseYear}
	return append(cols, s.Names()...)
}

// Validate 检查 Schema 本身：非空、列名唯一、权重非负、归一化方式合法。
func (s *Schema) Validate() error {
	if s == nil || len(s.Columns) == 0 {
		return core.Errorf(core.ErrSchema, "schema has no feature columns")
	}
	seen := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == "" {
			return core.Errorf(core.ErrSchema, "feature column with empty name")
		}
		if _, dup := seen[c.Name]; dup {
			return core.Errorf(core.ErrSchema, "duplicate feature column %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Weight < 0 {
			return core.Errorf(core.ErrSchema, "negative weight %v for %q", c.Weight, c.Name)
		}
		if c.Norm != NormZScore && c.Norm != NormMinMax {
			return core.Errorf(core.ErrSchema, "unknown normalization %q for %q", c.Norm, c.Name)
		}
	}
	return nil
}

// Equal 判断两个 Schema 的列名、权重与归一化方式是否逐列一致。
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil || len(s.Columns) != len(other.Columns) {
		return false
	}
	for i := range s.Columns {
		if s.Columns[i] != other.Columns[i] {
			return false
		}
	}
	return true
}
