package recall

import (
	"context"

	"github.com/rushteam/songrec/core"
)

// Source 表示一个可复用的召回源。
// 召回源只负责“从哪里取候选”，过滤与重排交给后续 Node。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
