package filter

import (
	"context"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述保留条件：表达式为 true 的曲目保留，其余过滤。
//
// 可用变量：
//   - track.id / track.name / track.artists / track.lead_artist
//   - track.popularity / track.release_year（int）
//   - track.score（与查询的余弦相似度）
//   - label.<key>、params.<key>
//
// 示例：
//
//	track.popularity >= 50 && track.release_year >= 2010
//	!(track.lead_artist in ['Drake', 'Future'])
type ExprFilter struct {
	expr *dsl.Expr
}

func NewExprFilter(expr string) (*ExprFilter, error) {
	e, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{expr: e}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

// Expr 返回表达式源码
func (f *ExprFilter) Expr() string { return f.expr.String() }

func (f *ExprFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	keep, err := f.expr.Evaluate(item, rctx)
	if err != nil {
		return false, core.Wrap(core.ErrInvalidInput, err, "filter.expr %q", f.expr.String())
	}
	return !keep, nil
}

var _ Filter = (*ExprFilter)(nil)
