package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/songrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("track", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("params", cel.DynType),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Expr 是编译好的候选过滤表达式，使用 CEL (Common Expression Language) 实现。
// 编译一次，可并发多次求值（cel.Program 线程安全）。
//
// 可用变量：
//   - track.id / track.name / track.artists / track.lead_artist
//   - track.popularity / track.release_year / track.score
//   - label.<key>：候选上的 Label 值
//   - params.<key>：请求级参数
//
// 示例：
//   - `track.popularity >= 40 && track.release_year >= 2015`
//   - `track.lead_artist != "Queen"`
//   - `track.score > 0.8 || "Daft Punk" in track.artists`
type Expr struct {
	src string
	prg cel.Program
}

// Compile 编译表达式，表达式必须返回 bool。
func Compile(expr string) (*Expr, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, core.Wrap(core.ErrInvalidInput, issues.Err(), "compile expression %q", expr)
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, core.Errorf(core.ErrInvalidInput, "expression %q must return bool, got %v", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Expr{src: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (e *Expr) String() string { return e.src }

// Evaluate 对候选求值，返回布尔结果。
func (e *Expr) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	track := map[string]any{
		"id":    item.ID,
		"score": item.Score,
	}
	if t := item.Track; t != nil {
		artists := make([]string, len(t.Artists))
		copy(artists, t.Artists)
		track["name"] = t.Name
		track["artists"] = artists
		track["lead_artist"] = t.LeadArtist()
		track["popularity"] = int64(t.Popularity)
		track["release_year"] = int64(t.ReleaseYear)
	}

	labels := make(map[string]any, len(item.Labels))
	for k, v := range item.Labels {
		labels[k] = v.Value
	}

	params := map[string]any{}
	if rctx != nil && rctx.Params != nil {
		params = rctx.Params
	}

	return map[string]any{
		"track":  track,
		"label":  labels,
		"params": params,
	}
}
