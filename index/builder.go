package index

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/feature"
	"github.com/rushteam/songrec/pkg/logging"
	"github.com/rushteam/songrec/vector"
)

// contentNamespace 是内容 ID 的 UUIDv5 命名空间。
var contentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rushteam/songrec/index"))

// Builder 把数据集构建成 Index。构建是纯函数：不修改输入，同一输入得到逐位相同的结果。
type Builder struct {
	schema  *feature.Schema
	workers int
	log     zerolog.Logger
}

// BuilderOption 构建选项
type BuilderOption func(*Builder)

// WithSchema 指定特征列定义，默认 feature.DefaultSchema()。
func WithSchema(s *feature.Schema) BuilderOption {
	return func(b *Builder) { b.schema = s }
}

// WithWorkers 指定拟合统计量的并发数。
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) { b.workers = n }
}

// WithLogger 指定日志
func WithLogger(l zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.log = l }
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		schema: feature.DefaultSchema(),
		log:    logging.With("index.builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 拟合归一化参数、组装加权矩阵与映射。
func (b *Builder) Build(ctx context.Context, ds *feature.Dataset) (*Index, error) {
	if ds == nil || len(ds.Records) == 0 {
		return nil, core.Errorf(core.ErrEmptyDataset, "dataset has no rows")
	}
	if ds.Schema != nil && !ds.Schema.Equal(b.schema) {
		return nil, core.Errorf(core.ErrSchema, "dataset columns %v do not match index columns %v", ds.Schema.Names(), b.schema.Names())
	}
	cols := b.schema.Len()
	for i, rec := range ds.Records {
		if len(rec.Features) != cols {
			return nil, core.Errorf(core.ErrSchema, "row %d (%s): %d features, want %d", i+1, rec.ID, len(rec.Features), cols)
		}
		for j, v := range rec.Features {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, core.Errorf(core.ErrSchema, "row %d (%s): non-finite value for %q", i+1, rec.ID, b.schema.Columns[j].Name)
			}
		}
	}

	t, err := feature.Fit(b.schema, ds, b.workers)
	if err != nil {
		return nil, err
	}

	rows := len(ds.Records)
	data := make([]float64, rows*cols)
	meta := make([]core.Track, rows)
	for i := range ds.Records {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec := &ds.Records[i]
		if _, err := t.Apply(rec.Features, data[i*cols:(i+1)*cols]); err != nil {
			return nil, err
		}
		meta[i] = *rec.Track()
	}

	m, err := vector.NewMatrix(rows, cols, data)
	if err != nil {
		return nil, err
	}
	id, err := contentID(t, m, meta)
	if err != nil {
		return nil, err
	}
	idx, err := assemble(t, m, meta, id)
	if err != nil {
		return nil, err
	}

	b.log.Info().
		Int("rows", rows).
		Int("cols", cols).
		Str("content_id", id).
		Int("years", len(idx.yearRows)).
		Msg("index built")
	return idx, nil
}

// contentID 对版本戳、变换参数、矩阵与元数据做摘要，映射为 UUIDv5。
func contentID(t *feature.Transform, m *vector.Matrix, meta []core.Track) (string, error) {
	h := sha256.New()
	h.Write([]byte(SchemaVersion))

	tj, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	h.Write(tj)

	if err := binary.Write(h, binary.LittleEndian, m.Data()); err != nil {
		return "", err
	}

	mj, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	h.Write(mj)

	return uuid.NewSHA1(contentNamespace, h.Sum(nil)).String(), nil
}
