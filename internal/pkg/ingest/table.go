// Package ingest loads seed files into database tables, so that chart queries have data to run against.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/fredbi/chartviz/internal/pkg/config"
)

// Table is a set of rows read from a seed file, ready to be stored.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// columnType is the SQL affinity inferred for a column.
type columnType int

const (
	columnInteger columnType = iota
	columnReal
	columnText
)

func (c columnType) sql(driver config.Driver) string {
	switch c {
	case columnInteger:
		if driver == config.DriverPostgres {
			return "BIGINT"
		}

		return "INTEGER"
	case columnReal:
		if driver == config.DriverPostgres {
			return "DOUBLE PRECISION"
		}

		return "REAL"
	default:
		return "TEXT"
	}
}

// columnTypes infers the narrowest type holding every non-null value of each column.
func (t Table) columnTypes() []columnType {
	types := make([]columnType, len(t.Columns))
	for i := range t.Columns {
		for _, row := range t.Rows {
			if i >= len(row) || row[i] == nil {
				continue
			}

			var ct columnType
			switch row[i].(type) {
			case int, int64, uint64:
				ct = columnInteger
			case float64:
				ct = columnReal
			default:
				ct = columnText
			}

			types[i] = max(types[i], ct)
		}
	}

	return types
}

// store replaces the table in the database with the rows of t.
func store(ctx context.Context, db *sql.DB, driver config.Driver, t Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s: no columns", t.Name)
	}

	types := t.columnTypes()
	defs := make([]string, len(t.Columns))
	names := make([]string, len(t.Columns))
	params := make([]string, len(t.Columns))

	for i, column := range t.Columns {
		names[i] = quote(column)
		defs[i] = names[i] + " " + types[i].sql(driver)
		params[i] = placeholder(driver, i+1)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("table %s: %w", t.Name, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(t.Name)); err != nil {
		return fmt.Errorf("dropping table %s: %w", t.Name, err)
	}

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quote(t.Name), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("creating table %s: %w", t.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quote(t.Name), strings.Join(names, ", "), strings.Join(params, ", "),
	))
	if err != nil {
		return fmt.Errorf("preparing insert into %s: %w", t.Name, err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	args := make([]any, len(t.Columns))
	for n, row := range t.Rows {
		for i := range args {
			args[i] = nil
			if i < len(row) {
				args[i] = row[i]
			}
		}

		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting row %d into %s: %w", n+1, t.Name, err)
		}
	}

	return tx.Commit()
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func placeholder(driver config.Driver, n int) string {
	if driver == config.DriverPostgres {
		return "$" + strconv.Itoa(n)
	}

	return "?"
}

// parseValue reads a cell as an integer, a real or a string. Empty cells are null.
func parseValue(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}

	return s
}

// header makes column names out of a header row: blank or repeated names are replaced.
func header(cells []string) []string {
	columns := make([]string, len(cells))
	seen := make(map[string]int, len(cells))

	for i, cell := range cells {
		name := strings.TrimSpace(cell)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}

		if n, ok := seen[name]; ok {
			base := name
			for {
				n++
				name = base + "_" + strconv.Itoa(n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 1

		columns[i] = name
	}

	return columns
}

func parseRecords(name string, records [][]string) Table {
	if len(records) == 0 {
		return Table{Name: name}
	}

	t := Table{
		Name:    name,
		Columns: header(records[0]),
		Rows:    make([][]any, 0, len(records)-1),
	}

	for _, record := range records[1:] {
		row := make([]any, len(t.Columns))
		empty := true
		for i := range row {
			if i < len(record) {
				row[i] = parseValue(record[i])
			}
			if row[i] != nil {
				empty = false
			}
		}

		if empty {
			continue
		}

		t.Rows = append(t.Rows, row)
	}

	return t
}
