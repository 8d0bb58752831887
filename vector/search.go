package vector

import (
	"container/heap"
	"context"
	"runtime"
	"slices"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/songrec/core"
)

// minRowsPerShard 以下不再切分，单协程扫描更快。
const minRowsPerShard = 4096

// Hit 是一条检索结果：矩阵行号 + 余弦相似度。
type Hit struct {
	Row   int     `json:"row"`
	Score float64 `json:"score"`
}

type searchOptions struct {
	exclude *roaring.Bitmap
	shards  int
}

// SearchOption 检索选项
type SearchOption func(*searchOptions)

// WithExclude 排除指定行（例如种子曲目自身）。
func WithExclude(rows *roaring.Bitmap) SearchOption {
	return func(o *searchOptions) { o.exclude = rows }
}

// WithShards 指定并发分片数；<= 0 时按行数与 GOMAXPROCS 自动决定。
func WithShards(n int) SearchOption {
	return func(o *searchOptions) { o.shards = n }
}

// Search 对全部（未排除的）行做精确余弦检索，返回得分最高的 k 行。
//
// 排序：得分降序，得分相同按行号升序。k 超过可选行数时截断到可选行数；
// k <= 0 返回 InvalidInput；query 长度与列数不符返回 DimensionMismatch。
func Search(ctx context.Context, m *Matrix, query []float64, k int, opts ...SearchOption) ([]Hit, error) {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}

	rows, cols := m.Dims()
	if len(query) != cols {
		return nil, core.Errorf(core.ErrDimensionMismatch, "query has %d features, index has %d", len(query), cols)
	}
	if k <= 0 {
		return nil, core.Errorf(core.ErrInvalidInput, "k must be positive, got %d", k)
	}

	eligible := rows
	if o.exclude != nil {
		eligible -= int(o.exclude.Rank(uint32(rows - 1)))
	}
	k = min(k, eligible)
	if k <= 0 {
		return []Hit{}, nil
	}

	shards := o.shards
	if shards <= 0 {
		shards = min(runtime.GOMAXPROCS(0), rows/minRowsPerShard)
	}
	shards = max(1, min(shards, rows))

	qnorm := floats.Norm(query, 2)
	qvec := mat.NewVecDense(cols, query)
	parts := make([][]Hit, shards)

	eg, ctx := errgroup.WithContext(ctx)
	for s := 0; s < shards; s++ {
		lo, hi := s*rows/shards, (s+1)*rows/shards
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts[s] = m.scanShard(lo, hi, qvec, qnorm, k, o.exclude)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := slices.Concat(parts...)
	slices.SortFunc(merged, compareHits)
	return merged[:k], nil
}

// scanShard 计算 [lo, hi) 行的得分并保留该分片内最好的 k 个。
func (m *Matrix) scanShard(lo, hi int, q *mat.VecDense, qnorm float64, k int, exclude *roaring.Bitmap) []Hit {
	sub := m.dense.Slice(lo, hi, 0, m.Cols())
	dots := mat.NewVecDense(hi-lo, nil)
	dots.MulVec(sub, q)

	h := make(hitHeap, 0, k)
	for i := 0; i < hi-lo; i++ {
		row := lo + i
		if exclude != nil && exclude.Contains(uint32(row)) {
			continue
		}
		hit := Hit{Row: row, Score: cosine(dots.AtVec(i), m.norms[row], qnorm)}
		if len(h) < k {
			heap.Push(&h, hit)
		} else if better(hit, h[0]) {
			h[0] = hit
			heap.Fix(&h, 0)
		}
	}
	return h
}

func better(a, b Hit) bool {
	return a.Score > b.Score || (a.Score == b.Score && a.Row < b.Row)
}

func compareHits(a, b Hit) int {
	switch {
	case better(a, b):
		return -1
	case better(b, a):
		return 1
	default:
		return 0
	}
}

// hitHeap 堆顶是当前保留结果中最差的一个。
type hitHeap []Hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(Hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
