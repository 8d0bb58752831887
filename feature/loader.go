package feature

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rushteam/songrec/core"
)

// Loader 数据集加载器接口
// 支持从不同来源加载曲目目录（CSV 文件、SQLite 数据库等）
type Loader interface {
	// Load 加载并校验数据集
	// source 是数据源标识（文件路径、DSN 等）
	Load(ctx context.Context, source string) (*Dataset, error)
}

// LoaderFor 根据 source 的扩展名选择加载器。
//   - .csv                     -> CSVLoader
//   - .db / .sqlite / .sqlite3 -> SQLiteLoader（表名 tracks）
func LoaderFor(source string, schema *Schema) (Loader, error) {
	if schema == nil {
		schema = DefaultSchema()
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".csv":
		return NewCSVLoader(schema), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteLoader(schema, DefaultTable), nil
	default:
		return nil, core.Errorf(core.ErrInvalidInput, "no loader for %q", source)
	}
}

// LoadDataset 是 LoaderFor + Load 的便捷组合。
func LoadDataset(ctx context.Context, source string, schema *Schema) (*Dataset, error) {
	l, err := LoaderFor(source, schema)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, source)
}

// collect 把逐行读取的结果汇总为 Dataset，处理空数据集与 ctx 取消。
func collect(ctx context.Context, p *rowParser, next func() ([]string, bool, error)) (*Dataset, error) {
	ds := &Dataset{Schema: p.schema}
	for {
		if len(ds.Records)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, ok, err := next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rec, err := p.parse(row)
		if err != nil {
			return nil, err
		}
		ds.Records = append(ds.Records, rec)
	}
	if len(ds.Records) == 0 {
		return nil, core.Errorf(core.ErrEmptyDataset, "dataset has no rows")
	}
	return ds, nil
}
