package feature

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/songrec/core"
)

// Record 是目录中的一行：展示元数据 + 按 Schema 顺序排列的原始特征。
type Record struct {
	ID          string
	Name        string
	Artists     []string
	Popularity  int
	ReleaseYear int
	Features    []float64
}

// Track 返回该行的展示元数据。
func (r *Record) Track() *core.Track {
	artists := make([]string, len(r.Artists))
	copy(artists, r.Artists)
	return &core.Track{
		ID:          r.ID,
		Name:        r.Name,
		Artists:     artists,
		Popularity:  r.Popularity,
		ReleaseYear: r.ReleaseYear,
	}
}

// Dataset 是预处理完成的目录，只读。
type Dataset struct {
	Schema  *Schema
	Records []Record
}

// rowParser 把表头映射到必需列的位置，并把每行字符串解析成 Record。
// CSV 与 SQLite 加载器共用它，保证两种来源的校验规则完全一致。
type rowParser struct {
	schema  *Schema
	pos     map[string]int
	feature []int
	line    int
	seen    map[string]int
}

func newRowParser(schema *Schema, header []string) (*rowParser, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(h)] = i
	}

	var missing []string
	for _, c := range schema.RequiredColumns() {
		if _, ok := pos[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, core.Errorf(core.ErrSchema, "missing columns %v", missing)
	}

	feature := make([]int, schema.Len())
	for j, c := range schema.Columns {
		feature[j] = pos[c.Name]
	}
	return &rowParser{schema: schema, pos: pos, feature: feature, seen: make(map[string]int)}, nil
}

func (p *rowParser) parse(row []string) (Record, error) {
	p.line++
	cell := func(col string) string {
		i := p.pos[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := Record{
		ID:   cell(ColumnID),
		Name: cell(ColumnName),
	}
	if rec.ID == "" {
		return rec, core.Errorf(core.ErrSchema, "row %d: empty id", p.line)
	}
	if first, dup := p.seen[rec.ID]; dup {
		return rec, core.Errorf(core.ErrSchema, "row %d: duplicate id %q (first seen at row %d)", p.line, rec.ID, first)
	}
	p.seen[rec.ID] = p.line

	artists, err := ParseArtists(cell(ColumnArtists))
	if err != nil {
		return rec, core.Wrap(core.ErrSchema, err, "row %d: column %q", p.line, ColumnArtists)
	}
	if len(artists) == 0 {
		return rec, core.Errorf(core.ErrSchema, "row %d: no artists", p.line)
	}
	rec.Artists = artists

	if rec.Popularity, err = parseInt(cell(ColumnPopularity)); err != nil {
		return rec, core.Wrap(core.ErrSchema, err, "row %d: column %q", p.line, ColumnPopularity)
	}
	if rec.Popularity < MinPopularity || rec.Popularity > MaxPopularity {
		return rec, core.Errorf(core.ErrSchema, "row %d: popularity %d outside [%d,%d]", p.line, rec.Popularity, MinPopularity, MaxPopularity)
	}
	if rec.ReleaseYear, err = parseInt(cell(ColumnReleaseYear)); err != nil {
		return rec, core.Wrap(core.ErrSchema, err, "row %d: column %q", p.line, ColumnReleaseYear)
	}
	if rec.ReleaseYear < MinReleaseYear || rec.ReleaseYear > MaxReleaseYear {
		return rec, core.Errorf(core.ErrSchema, "row %d: release_year %d outside [%d,%d]", p.line, rec.ReleaseYear, MinReleaseYear, MaxReleaseYear)
	}

	rec.Features = make([]float64, len(p.feature))
	for j, i := range p.feature {
		name := p.schema.Columns[j].Name
		raw := ""
		if i < len(row) {
			raw = strings.TrimSpace(row[i])
		}
		if raw == "" {
			return rec, core.Errorf(core.ErrSchema, "row %d: missing value for %q", p.line, name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return rec, core.Errorf(core.ErrSchema, "row %d: non-numeric value %q for %q", p.line, raw, name)
		}
		rec.Features[j] = v
	}
	return rec, nil
}

// parseInt 接受 "2019" 与 "2019.0" 两种写法（pandas 导出的整数列常带小数点）。
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return int(f), nil
}

// ParseArtists 解析 artists 列。
//
// 支持的写法：
//   - JSON 数组：["Queen", "David Bowie"]
//   - Python 列表字面量：['Queen', 'David Bowie']（原始 Spotify 数据集的导出格式）
//   - 分号分隔：Queen; David Bowie
//   - 单个名字：Queen
func ParseArtists(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "[") {
		return cleanNames(strings.Split(s, ";")), nil
	}

	var names []string
	if err := json.Unmarshal([]byte(s), &names); err == nil {
		return cleanNames(names), nil
	}
	names, err := parsePyList(s)
	if err != nil {
		return nil, err
	}
	return cleanNames(names), nil
}

// parsePyList 解析单引号或双引号的 Python 列表字面量，支持反斜杠转义。
func parsePyList(s string) ([]string, error) {
	if !strings.HasSuffix(s, "]") {
		return nil, strconv.ErrSyntax
	}
	body := []rune(s[1 : len(s)-1])
	var (
		names []string
		cur   strings.Builder
		quote rune
	)
	for i := 0; i < len(body); i++ {
		r := body[i]
		switch {
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
			cur.Reset()
		case quote == 0 && (r == ',' || r == ' '):
		case quote == 0:
			return nil, strconv.ErrSyntax
		case r == '\\' && i+1 < len(body):
			i++
			cur.WriteRune(body[i])
		case r == quote:
			names = append(names, cur.String())
			quote = 0
		default:
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, strconv.ErrSyntax
	}
	return names, nil
}

func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
