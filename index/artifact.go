package index

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/feature"
	"github.com/rushteam/songrec/pkg/logging"
	"github.com/rushteam/songrec/vector"
)

// 产物文件名
const (
	MatrixFile  = "matrix.bin"
	SidecarFile = "index.json"
)

// matrix.bin 头部：magic(4) + format(u32) + rows(u64) + cols(u32)，其后为行优先 float64 小端数据。
const (
	matrixMagic  = "SGIX"
	matrixFormat = uint32(1)
)

// Sidecar 是 index.json 的内容。
type Sidecar struct {
	SchemaVersion string             `json:"schema_version"`
	ContentID     string             `json:"content_id"`
	Rows          int                `json:"rows"`
	Cols          int                `json:"cols"`
	MatrixSHA256  string             `json:"matrix_sha256"`
	WeightVector  []float64          `json:"weight_vector"`
	Transform     *feature.Transform `json:"transform"`
	RowToID       []string           `json:"row_to_id"`
	IDToRow       map[string]int     `json:"id_to_row"`
	Metadata      []core.Track       `json:"metadata_table"`
}

// Save 把索引写到 root 下以内容 ID 命名的目录并返回该目录。
// 先写入同级临时目录再整体 rename，读者永远看不到写了一半的产物；
// 目标目录已存在时（同一内容重复构建）直接复用。
func (idx *Index) Save(root string) (string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	final := filepath.Join(root, idx.contentID)
	if _, err := os.Stat(filepath.Join(final, SidecarFile)); err == nil {
		return final, nil
	}

	tmp, err := os.MkdirTemp(root, ".tmp-"+idx.contentID+"-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmp)

	sum, err := writeMatrix(filepath.Join(tmp, MatrixFile), idx.matrix)
	if err != nil {
		return "", fmt.Errorf("write %s: %w", MatrixFile, err)
	}
	sc := &Sidecar{
		SchemaVersion: SchemaVersion,
		ContentID:     idx.contentID,
		Rows:          idx.Rows(),
		Cols:          idx.Dim(),
		MatrixSHA256:  sum,
		WeightVector:  idx.Weights(),
		Transform:     idx.transform,
		RowToID:       idx.ids,
		IDToRow:       idx.idToRow,
		Metadata:      idx.meta,
	}
	if err := writeJSON(filepath.Join(tmp, SidecarFile), sc); err != nil {
		return "", fmt.Errorf("write %s: %w", SidecarFile, err)
	}

	if err := os.Rename(tmp, final); err != nil {
		// 并发构建同一内容时另一方先完成
		if _, statErr := os.Stat(filepath.Join(final, SidecarFile)); statErr == nil {
			return final, nil
		}
		return "", err
	}
	logging.Info().Str("dir", final).Int("rows", sc.Rows).Msg("index saved")
	return final, nil
}

// Load 从目录加载索引。版本戳不符返回 IndexVersionError；文件损坏或互相矛盾返回 SchemaError。
func Load(dir string) (*Index, error) {
	sc, err := Inspect(dir)
	if err != nil {
		return nil, err
	}
	if sc.Transform == nil {
		return nil, core.Errorf(core.ErrSchema, "%s: missing transform", SidecarFile)
	}
	if len(sc.RowToID) != sc.Rows || len(sc.Metadata) != sc.Rows {
		return nil, core.Errorf(core.ErrSchema, "%s: row_to_id/metadata_table length does not match %d rows", SidecarFile, sc.Rows)
	}
	for row, id := range sc.RowToID {
		if sc.Metadata[row].ID != id {
			return nil, core.Errorf(core.ErrSchema, "%s: metadata row %d has id %q, row_to_id has %q", SidecarFile, row, sc.Metadata[row].ID, id)
		}
		if got, ok := sc.IDToRow[id]; !ok || got != row {
			return nil, core.Errorf(core.ErrSchema, "%s: id_to_row[%q] does not point at row %d", SidecarFile, id, row)
		}
	}
	if len(sc.IDToRow) != sc.Rows {
		return nil, core.Errorf(core.ErrSchema, "%s: id_to_row has %d entries for %d rows", SidecarFile, len(sc.IDToRow), sc.Rows)
	}

	m, sum, err := readMatrix(filepath.Join(dir, MatrixFile))
	if err != nil {
		return nil, err
	}
	if sum != sc.MatrixSHA256 {
		return nil, core.Errorf(core.ErrSchema, "%s checksum mismatch", MatrixFile)
	}
	if r, c := m.Dims(); r != sc.Rows || c != sc.Cols {
		return nil, core.Errorf(core.ErrSchema, "%s is %dx%d, %s says %dx%d", MatrixFile, r, c, SidecarFile, sc.Rows, sc.Cols)
	}

	idx, err := assemble(sc.Transform, m, sc.Metadata, sc.ContentID)
	if err != nil {
		return nil, err
	}
	logging.Info().
		Str("dir", dir).
		Str("schema_version", sc.SchemaVersion).
		Str("content_id", sc.ContentID).
		Int("rows", sc.Rows).
		Msg("index loaded")
	return idx, nil
}

// Inspect 只读取并校验 index.json，不加载矩阵。
func Inspect(dir string) (*Sidecar, error) {
	f, err := os.Open(filepath.Join(dir, SidecarFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sc Sidecar
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&sc); err != nil {
		return nil, core.Wrap(core.ErrSchema, err, "decode %s", SidecarFile)
	}
	if sc.SchemaVersion != SchemaVersion {
		return nil, core.Errorf(core.ErrIndexVersion, "artifact has %q, engine expects %q", sc.SchemaVersion, SchemaVersion)
	}
	return &sc, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeMatrix(path string, m *vector.Matrix) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	w := bufio.NewWriter(io.MultiWriter(f, h))

	rows, cols := m.Dims()
	header := []any{[]byte(matrixMagic), matrixFormat, uint64(rows), uint32(cols), m.Data()}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			return "", err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), f.Close()
}

func readMatrix(path string) (*vector.Matrix, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	h := sha256.New()
	r := io.TeeReader(bufio.NewReader(f), h)

	var (
		magic  [4]byte
		format uint32
		rows   uint64
		cols   uint32
	)
	for _, v := range []any{&magic, &format, &rows, &cols} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, "", core.Wrap(core.ErrSchema, err, "read %s header", MatrixFile)
		}
	}
	if string(magic[:]) != matrixMagic {
		return nil, "", core.Errorf(core.ErrSchema, "%s: bad magic %q", MatrixFile, magic[:])
	}
	if format != matrixFormat {
		return nil, "", core.Errorf(core.ErrIndexVersion, "%s: format %d, engine expects %d", MatrixFile, format, matrixFormat)
	}
	const maxCells = 1 << 31
	if rows == 0 || cols == 0 || rows*uint64(cols) > maxCells {
		return nil, "", core.Errorf(core.ErrSchema, "%s: implausible shape %dx%d", MatrixFile, rows, cols)
	}

	data := make([]float64, int(rows)*int(cols))
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, "", core.Wrap(core.ErrSchema, err, "read %s data", MatrixFile)
	}
	// 多余字节视为损坏
	if n, _ := io.Copy(io.Discard, r); n != 0 {
		return nil, "", core.Errorf(core.ErrSchema, "%s: %d trailing bytes", MatrixFile, n)
	}

	m, err := vector.NewMatrix(int(rows), int(cols), data)
	if err != nil {
		if errors.Is(err, core.ErrDimensionMismatch) {
			return nil, "", core.Wrap(core.ErrSchema, err, "%s", MatrixFile)
		}
		return nil, "", err
	}
	return m, hex.EncodeToString(h.Sum(nil)), nil
}
