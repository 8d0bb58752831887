package feature

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/rushteam/songrec/core"
)

// CSVLoader 从带表头的 CSV 文件加载数据集，列按表头名匹配，顺序无关，多余列忽略。
type CSVLoader struct {
	schema *Schema
}

// NewCSVLoader 创建 CSV 加载器
func NewCSVLoader(schema *Schema) *CSVLoader {
	if schema == nil {
		schema = DefaultSchema()
	}
	return &CSVLoader{schema: schema}
}

// Load 从本地文件加载
func (l *CSVLoader) Load(ctx context.Context, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l.Read(ctx, f)
}

// Read 从任意 reader 读取 CSV 内容
func (l *CSVLoader) Read(ctx context.Context, r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.Errorf(core.ErrEmptyDataset, "csv has no header")
	}
	if err != nil {
		return nil, core.Wrap(core.ErrSchema, err, "read csv header")
	}
	if len(header) > 0 {
		// Excel 导出的 UTF-8 BOM
		header[0] = trimBOM(header[0])
	}

	p, err := newRowParser(l.schema, header)
	if err != nil {
		return nil, err
	}
	return collect(ctx, p, func() ([]string, bool, error) {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, core.Wrap(core.ErrSchema, err, "read csv row %d", p.line+1)
		}
		return row, true, nil
	})
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
