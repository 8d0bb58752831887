package feature_test

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/songrec/core"
	"github.com/rushteam/songrec/feature"
	"github.com/rushteam/songrec/feature/featuretest"
)

func TestCSVLoaderRoundTrip(t *testing.T) {
	want := featuretest.Random(25, 3, 7)
	var buf bytes.Buffer
	require.NoError(t, featuretest.WriteCSV(&buf, want))

	got, err := feature.NewCSVLoader(nil).Read(context.Background(), &buf)
	require.NoError(t, err)
	require.Len(t, got.Records, 25)
	for i := range want.Records {
		assert.Equal(t, want.Records[i], got.Records[i])
	}
}

func TestCSVLoaderErrors(t *testing.T) {
	base := featuretest.Random(2, 1, 1)
	var buf bytes.Buffer
	require.NoError(t, featuretest.WriteCSV(&buf, base))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	header, row := lines[0], lines[1]

	read := func(content string) error {
		_, err := feature.NewCSVLoader(nil).Read(context.Background(), strings.NewReader(content))
		return err
	}

	t.Run("header only", func(t *testing.T) {
		assert.True(t, core.IsEmptyDataset(read(header+"\n")))
	})
	t.Run("empty input", func(t *testing.T) {
		assert.True(t, core.IsEmptyDataset(read("")))
	})
	t.Run("missing column", func(t *testing.T) {
		err := read(strings.Replace(header, "valence", "valance", 1) + "\n" + row + "\n")
		require.True(t, core.IsSchemaError(err))
		assert.Contains(t, err.Error(), "valence")
	})
	t.Run("non numeric", func(t *testing.T) {
		cells := strings.Split(row, ",")
		cells[len(cells)-1] = "abc"
		err := read(header + "\n" + strings.Join(cells, ",") + "\n")
		require.True(t, core.IsSchemaError(err))
		assert.Contains(t, err.Error(), "track_age_normalized")
		assert.Contains(t, err.Error(), "row 1")
	})
	t.Run("empty feature", func(t *testing.T) {
		cells := strings.Split(row, ",")
		cells[len(cells)-1] = ""
		assert.True(t, core.IsSchemaError(read(header+"\n"+strings.Join(cells, ",")+"\n")))
	})
	t.Run("duplicate id", func(t *testing.T) {
		assert.True(t, core.IsSchemaError(read(header+"\n"+row+"\n"+row+"\n")))
	})
}

func TestCSVLoaderRanges(t *testing.T) {
	features := make([]float64, feature.DefaultSchema().Len())
	tests := []struct {
		name       string
		popularity int
		year       int
	}{
		{name: "popularity above range", popularity: 101, year: 2000},
		{name: "popularity below range", popularity: -1, year: 2000},
		{name: "year before catalog", popularity: 10, year: 1920},
		{name: "year after catalog", popularity: 10, year: 2021},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := featuretest.Dataset(featuretest.Record("a", "A", []string{"X"}, tt.popularity, tt.year, features))
			var buf bytes.Buffer
			require.NoError(t, featuretest.WriteCSV(&buf, ds))
			_, err := feature.NewCSVLoader(nil).Read(context.Background(), &buf)
			assert.True(t, core.IsSchemaError(err))
		})
	}
}

func TestLoaderFor(t *testing.T) {
	l, err := feature.LoaderFor("catalog.CSV", nil)
	require.NoError(t, err)
	assert.IsType(t, &feature.CSVLoader{}, l)

	l, err = feature.LoaderFor("catalog.sqlite3", nil)
	require.NoError(t, err)
	assert.IsType(t, &feature.SQLiteLoader{}, l)

	_, err = feature.LoaderFor("catalog.parquet", nil)
	assert.True(t, core.IsInvalidInput(err))
}

func TestLoadDatasetFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, featuretest.WriteCSV(f, featuretest.Random(10, 2, 3)))
	require.NoError(t, f.Close())

	ds, err := feature.LoadDataset(context.Background(), path, nil)
	require.NoError(t, err)
	assert.Len(t, ds.Records, 10)
}

func TestSQLiteLoader(t *testing.T) {
	want := featuretest.Random(12, 4, 11)
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	cols := want.Schema.RequiredColumns()
	ddl := "CREATE TABLE tracks (id TEXT, name TEXT, artists TEXT, popularity INTEGER, release_year INTEGER"
	for _, c := range cols[5:] {
		ddl += ", " + c + " REAL"
	}
	_, err = db.Exec(ddl + ")")
	require.NoError(t, err)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	stmt, err := db.Prepare("INSERT INTO tracks (" + strings.Join(cols, ",") + ") VALUES (" + placeholders + ")")
	require.NoError(t, err)
	for _, rec := range want.Records {
		args := []any{rec.ID, rec.Name, strings.Join(rec.Artists, ";"), rec.Popularity, rec.ReleaseYear}
		for _, v := range rec.Features {
			args = append(args, v)
		}
		_, err = stmt.Exec(args...)
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, db.Close())

	got, err := feature.LoadDataset(context.Background(), path, nil)
	require.NoError(t, err)
	require.Len(t, got.Records, len(want.Records))
	for i := range want.Records {
		assert.Equal(t, want.Records[i].ID, got.Records[i].ID)
		assert.Equal(t, want.Records[i].Artists, got.Records[i].Artists)
		assert.InDeltaSlice(t, want.Records[i].Features, got.Records[i].Features, 1e-12)
	}

	_, err = feature.NewSQLiteLoader(nil, "missing").Load(context.Background(), path)
	assert.True(t, core.IsSchemaError(err))
}
