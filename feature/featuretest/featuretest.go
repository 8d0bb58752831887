// Package featuretest 提供构造测试目录的工具函数。
package featuretest

import (
	"encoding/csv"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/rushteam/songrec/feature"
)

// Record 构造一行，features 按 DefaultSchema 顺序给出。
func Record(id, name string, artists []string, popularity, year int, features []float64) feature.Record {
	f := make([]float64, len(features))
	copy(f, features)
	return feature.Record{
		ID:          id,
		Name:        name,
		Artists:     artists,
		Popularity:  popularity,
		ReleaseYear: year,
		Features:    f,
	}
}

// Dataset 用 DefaultSchema 包装若干行。
func Dataset(records ...feature.Record) *feature.Dataset {
	return &feature.Dataset{Schema: feature.DefaultSchema(), Records: records}
}

// Features 返回一组取值合理的随机特征。
func Features(r *rand.Rand) []float64 {
	s := feature.DefaultSchema()
	out := make([]float64, s.Len())
	for j, c := range s.Columns {
		switch c.Name {
		case "loudness":
			out[j] = -60 + 60*r.Float64()
		case "tempo":
			out[j] = 50 + 150*r.Float64()
		case "mode":
			out[j] = float64(r.IntN(2))
		case "key":
			out[j] = float64(r.IntN(12))
		default:
			out[j] = r.Float64()
		}
	}
	return out
}

// Random 生成 n 行确定性的随机目录：每 artistsEvery 行共用一位主艺人，
// 便于测试多样性约束。
func Random(n, artistsEvery int, seed uint64) *feature.Dataset {
	if artistsEvery <= 0 {
		artistsEvery = 1
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	records := make([]feature.Record, n)
	for i := range records {
		id := "t" + strconv.Itoa(i)
		artist := "Artist " + strconv.Itoa(i/artistsEvery)
		records[i] = Record(id, "Song "+strconv.Itoa(i), []string{artist}, r.IntN(101), 1921+r.IntN(100), Features(r))
	}
	return Dataset(records...)
}

// WriteCSV 把数据集写成 CSVLoader 可读取的格式，artists 使用 Python 列表写法。
func WriteCSV(w io.Writer, ds *feature.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Schema.RequiredColumns()); err != nil {
		return err
	}
	for _, rec := range ds.Records {
		quoted := make([]string, len(rec.Artists))
		for i, a := range rec.Artists {
			quoted[i] = "'" + strings.ReplaceAll(a, "'", `\'`) + "'"
		}
		row := []string{
			rec.ID,
			rec.Name,
			"[" + strings.Join(quoted, ", ") + "]",
			strconv.Itoa(rec.Popularity),
			strconv.Itoa(rec.ReleaseYear),
		}
		for _, v := range rec.Features {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
