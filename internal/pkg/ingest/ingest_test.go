package ingest

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/fredbi/chartviz/internal/pkg/config"
	_ "github.com/mattn/go-sqlite3"
	"github.com/xuri/excelize/v2"

	"github.com/go-openapi/testify/v2/assert"
	"github.com/go-openapi/testify/v2/require"
)

func TestReadCSV(t *testing.T) {
	ld := New()

	tbl, err := ld.Read(config.Seed{
		File:   testdataPath("enrollments.csv"),
		Table:  "enrollments",
		Format: config.SeedCSV,
	})
	require.NoError(t, err)

	assert.Equal(t, "enrollments", tbl.Name)
	assert.Equal(t, []string{"student", "institute", "year", "fee"}, tbl.Columns)
	require.Len(t, tbl.Rows, 4, "blank lines should be skipped")

	assert.Equal(t, []any{"Alice", "MIT", int64(2023), 1200.5}, tbl.Rows[0])
	assert.Equal(t, []any{"Chloe", "MIT", int64(2024), nil}, tbl.Rows[2])
	assert.Equal(t, []any{"Dan", nil, int64(2024), int64(990)}, tbl.Rows[3])

	assert.Equal(t, []columnType{columnText, columnText, columnInteger, columnReal}, tbl.columnTypes())
}

func TestReadCSVWithComma(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "semicolon.csv", "a;b\n1;x\n")

	tbl, err := New(WithComma(';')).Read(config.Seed{File: file, Format: config.SeedCSV})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, tbl.Columns)
	assert.Equal(t, [][]any{{int64(1), "x"}}, tbl.Rows)
}

func TestReadMissingFile(t *testing.T) {
	_, err := New().Read(config.Seed{File: testdataPath("nonexistent.csv"), Format: config.SeedCSV})
	require.Error(t, err)
}

func TestReadUnsupportedFormat(t *testing.T) {
	_, err := New().Read(config.Seed{File: testdataPath("enrollments.csv"), Format: "parquet"})
	require.Error(t, err)
}

func TestHeader(t *testing.T) {
	for _, tt := range []struct {
		name  string
		cells []string
		want  []string
	}{
		{name: "blank and repeated", cells: []string{" a ", "", "a", "b"}, want: []string{"a", "column_2", "a_2", "b"}},
		{name: "renamed column already present", cells: []string{"a", "a", "a_2"}, want: []string{"a", "a_2", "a_2_2"}},
		{name: "present before the repeat", cells: []string{"a", "a_2", "a"}, want: []string{"a", "a_2", "a_3"}},
		{name: "repeated thrice", cells: []string{"a", "a", "a"}, want: []string{"a", "a_2", "a_3"}},
		{name: "blank colliding with a name", cells: []string{"column_2", ""}, want: []string{"column_2", "column_2_2"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			columns := header(tt.cells)
			assert.Equal(t, tt.want, columns)

			unique := make(map[string]struct{}, len(columns))
			for _, column := range columns {
				unique[column] = struct{}{}
			}
			assert.Len(t, unique, len(columns))
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"", nil},
		{"  ", nil},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.5", 3.5},
		{"1e3", 1000.0},
		{"2024-01-15", "2024-01-15"},
		{"MIT", "MIT"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseValue(tt.input))
		})
	}
}

func TestReadBenchmarkText(t *testing.T) {
	tbl, err := New().Read(config.Seed{
		File:   testdataPath("run.txt"),
		Table:  "run",
		Format: config.SeedBenchmark,
	})
	require.NoError(t, err)

	assert.Equal(t, benchmarkColumns, tbl.Columns)
	require.Len(t, tbl.Rows, 4)

	first := tbl.Rows[0]
	assert.Equal(t, "BenchmarkJSON/standard/small-16", first[0])
	assert.Equal(t, "JSON/standard/small", first[1])
	assert.Equal(t, int64(16), first[2])
	assert.Equal(t, int64(419802), first[3])
	assert.InDelta(t, 2850.0, first[4], 1e-9)
	assert.Equal(t, int64(11), first[5])
	assert.Equal(t, int64(704), first[6])
	assert.InDelta(t, 62.46, first[7], 1e-9)
	assert.Equal(t, "linux amd64 cpu: AMD Ryzen 7 5800X 8-Core Processor", first[8])
	assert.Equal(t, testdataPath("run.txt"), first[9])

	last := tbl.Rows[3]
	assert.Equal(t, "isEmpty", last[1])
	assert.Nil(t, last[5], "unreported metrics should be null")
	assert.Nil(t, last[7])
}

func TestReadBenchmarkJSON(t *testing.T) {
	tbl, err := New().Read(config.Seed{
		File:   testdataPath("run.json"),
		Table:  "run",
		Format: config.SeedBenchJSON,
	})
	require.NoError(t, err)

	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "Positive/reflect/int", tbl.Rows[0][1])
	assert.Equal(t, int64(8), tbl.Rows[0][2])
	assert.Equal(t, "Positive/generic/int", tbl.Rows[1][1])
	assert.Equal(t, int64(0), tbl.Rows[1][5], "zero allocations are reported")
	assert.Equal(t, "darwin arm64", tbl.Rows[0][8])
}

func TestSplitBenchmarkName(t *testing.T) {
	tests := []struct {
		name     string
		function string
		procs    any
	}{
		{"BenchmarkFoo-8", "Foo", int64(8)},
		{"BenchmarkFoo/bar-baz", "Foo/bar-baz", nil},
		{"BenchmarkFoo", "Foo", nil},
		{"Benchmark_isEmpty-16", "isEmpty", int64(16)},
		{"BenchmarkFoo-", "Foo-", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			function, procs := splitBenchmarkName(tt.name)
			assert.Equal(t, tt.function, function)
			assert.Equal(t, tt.procs, procs)
		})
	}
}

func TestExtractEnvironment(t *testing.T) {
	assert.Equal(t, "unknown environment", extractEnvironment("PASS\n"))
	assert.Equal(t, "linux amd64", extractEnvironment("goos: linux\ngoarch: amd64\n"))
}

func TestReadXLSX(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "book.xlsx")

	f := excelize.NewFile()
	_, err := f.NewSheet("Q2")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"region", "amount"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"north", 12}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"south", 7.5}))
	require.NoError(t, f.SetSheetRow("Q2", "A1", &[]any{"region", "amount"}))
	require.NoError(t, f.SetSheetRow("Q2", "A2", &[]any{"east", 3}))
	require.NoError(t, f.SaveAs(file))
	require.NoError(t, f.Close())

	t.Run("first sheet by default", func(t *testing.T) {
		tbl, err := New().Read(config.Seed{File: file, Format: config.SeedXLSX, Table: "book"})
		require.NoError(t, err)

		assert.Equal(t, []string{"region", "amount"}, tbl.Columns)
		assert.Equal(t, [][]any{{"north", int64(12)}, {"south", 7.5}}, tbl.Rows)
	})

	t.Run("named sheet", func(t *testing.T) {
		tbl, err := New().Read(config.Seed{File: file, Format: config.SeedXLSX, Table: "book", Sheet: "Q2"})
		require.NoError(t, err)

		assert.Equal(t, [][]any{{"east", int64(3)}}, tbl.Rows)
	})

	t.Run("missing sheet", func(t *testing.T) {
		_, err := New().Read(config.Seed{File: file, Format: config.SeedXLSX, Sheet: "nope"})
		require.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	ld := New()

	seed := config.Seed{
		File:   testdataPath("enrollments.csv"),
		Table:  "enrollments",
		Format: config.SeedCSV,
	}
	require.NoError(t, ld.Load(ctx, db, config.DriverSQLite, seed))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM enrollments WHERE institute = 'MIT'`).Scan(&count))
	assert.Equal(t, 2, count)

	var total float64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT SUM(fee) FROM enrollments`).Scan(&total))
	assert.InDelta(t, 3290.5, total, 1e-9)

	t.Run("loading again replaces the table", func(t *testing.T) {
		require.NoError(t, ld.Load(ctx, db, config.DriverSQLite, seed))
		require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM enrollments`).Scan(&count))
		assert.Equal(t, 4, count)
	})

	t.Run("benchmarks", func(t *testing.T) {
		require.NoError(t, ld.Load(ctx, db, config.DriverSQLite, config.Seed{
			File:   testdataPath("run.txt"),
			Table:  "run",
			Format: config.SeedBenchmark,
		}))

		var function string
		require.NoError(t, db.QueryRowContext(ctx, `SELECT function FROM run ORDER BY ns_per_op DESC LIMIT 1`).Scan(&function))
		assert.Equal(t, "JSON/standard/large", function)
	})

	t.Run("colliding column names", func(t *testing.T) {
		file := writeFile(t, t.TempDir(), "dup.csv", "a,a,a_2\n1,2,3\n")
		require.NoError(t, ld.Load(ctx, db, config.DriverSQLite, config.Seed{
			File:   file,
			Table:  "dup",
			Format: config.SeedCSV,
		}))

		var a, a2, a22 int
		require.NoError(t, db.QueryRowContext(ctx, `SELECT a, a_2, a_2_2 FROM dup`).Scan(&a, &a2, &a22))
		assert.Equal(t, []int{1, 2, 3}, []int{a, a2, a22})
	})
}

func TestStoreWithoutColumns(t *testing.T) {
	db := openTestDB(t)

	require.Error(t, store(context.Background(), db, config.DriverSQLite, Table{Name: "empty"}))
}

func TestColumnTypeSQL(t *testing.T) {
	assert.Equal(t, "INTEGER", columnInteger.sql(config.DriverSQLite))
	assert.Equal(t, "BIGINT", columnInteger.sql(config.DriverPostgres))
	assert.Equal(t, "REAL", columnReal.sql(config.DriverSQLite))
	assert.Equal(t, "DOUBLE PRECISION", columnReal.sql(config.DriverPostgres))
	assert.Equal(t, "TEXT", columnText.sql(config.DriverPostgres))
}

func TestQuoteAndPlaceholder(t *testing.T) {
	assert.Equal(t, `"my ""table"""`, quote(`my "table"`))
	assert.Equal(t, "?", placeholder(config.DriverSQLite, 3))
	assert.Equal(t, "$3", placeholder(config.DriverPostgres, 3))
}

func testdataPath(name string) string {
	return filepath.Join("testdata", name)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	return file
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}
