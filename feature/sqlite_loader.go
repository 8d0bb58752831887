package feature

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rushteam/songrec/core"
)

// DefaultTable 是 SQLite 目录默认表名。
const DefaultTable = "tracks"

// SQLiteLoader 从 SQLite 数据库的单表加载数据集，只读打开。
type SQLiteLoader struct {
	schema *Schema
	Table  string
}

// NewSQLiteLoader 创建 SQLite 加载器
func NewSQLiteLoader(schema *Schema, table string) *SQLiteLoader {
	if schema == nil {
		schema = DefaultSchema()
	}
	if table == "" {
		table = DefaultTable
	}
	return &SQLiteLoader{schema: schema, Table: table}
}

// Load 打开 path 指向的数据库并读取全部行
func (l *SQLiteLoader) Load(ctx context.Context, path string) (*Dataset, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return l.Query(ctx, db)
}

// Query 在已打开的连接上读取，便于测试使用内存库。
func (l *SQLiteLoader) Query(ctx context.Context, db *sql.DB) (*Dataset, error) {
	cols := l.schema.RequiredColumns()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	q := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(quoted, ", "), quoteIdent(l.Table))

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		// 缺表或缺列都在这里暴露
		return nil, core.Wrap(core.ErrSchema, err, "query table %q", l.Table)
	}
	defer rows.Close()

	p, err := newRowParser(l.schema, cols)
	if err != nil {
		return nil, err
	}
	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}

	ds, err := collect(ctx, p, func() ([]string, bool, error) {
		if !rows.Next() {
			return nil, false, rows.Err()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, false, core.Wrap(core.ErrSchema, err, "scan row %d", p.line+1)
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		return row, true, nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
