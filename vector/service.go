package vector

import (
	"context"

	"github.com/RoaringBitmap/roaring"
)

// Searcher 是抽象的向量检索服务接口。
// 默认实现 ExactSearcher 做暴力精确检索；近似检索实现只需满足同一接口。
type Searcher interface {
	// Search 向量搜索
	Search(ctx context.Context, req *SearchRequest) (*SearchResult, error)
	// Dim 返回向量维度
	Dim() int
}

// SearchRequest 向量搜索请求
type SearchRequest struct {
	// Vector 查询向量（已处于加权空间）
	Vector []float64

	// TopK 返回 TopK 个最相似的结果
	TopK int

	// Exclude 不参与检索的行
	Exclude *roaring.Bitmap
}

// SearchResult 向量搜索结果，按相似度降序
type SearchResult struct {
	Hits []Hit
}

// Rows 返回结果中的行号
func (r *SearchResult) Rows() []int {
	out := make([]int, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.Row
	}
	return out
}

// ExactSearcher 在 Matrix 上做精确余弦检索。
type ExactSearcher struct {
	Matrix *Matrix
	Shards int
}

// NewExactSearcher 创建精确检索服务
func NewExactSearcher(m *Matrix) *ExactSearcher {
	return &ExactSearcher{Matrix: m}
}

func (s *ExactSearcher) Dim() int { return s.Matrix.Cols() }

func (s *ExactSearcher) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	hits, err := Search(ctx, s.Matrix, req.Vector, req.TopK, WithExclude(req.Exclude), WithShards(s.Shards))
	if err != nil {
		return nil, err
	}
	return &SearchResult{Hits: hits}, nil
}

var _ Searcher = (*ExactSearcher)(nil)
