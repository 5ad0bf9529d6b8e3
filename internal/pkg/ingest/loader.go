package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fredbi/chartviz/internal/pkg/config"
)

// Loader reads seed files and stores them as tables.
type Loader struct {
	options

	l *slog.Logger
}

// New [Loader] ready to load seed files.
func New(opts ...Option) *Loader {
	return &Loader{
		options: optionsWithDefaults(opts),
		l:       slog.Default().With(slog.String("module", "ingest")),
	}
}

// Load a seed file into the database. An existing table with the same name is replaced.
func (ld *Loader) Load(ctx context.Context, db *sql.DB, driver config.Driver, seed config.Seed) error {
	t, err := ld.Read(seed)
	if err != nil {
		return err
	}

	if err := store(ctx, db, driver, t); err != nil {
		return fmt.Errorf("seed %q: %w", seed.File, err)
	}

	ld.l.Info("seed loaded",
		slog.String("file", seed.File),
		slog.String("table", t.Name),
		slog.Int("rows", len(t.Rows)),
	)

	return nil
}

// Read a seed file as a [Table], without storing it.
func (ld *Loader) Read(seed config.Seed) (Table, error) {
	var (
		t   Table
		err error
	)

	if seed.Format == config.SeedXLSX {
		t, err = readXLSX(seed.File, seed.Sheet)
	} else {
		t, err = ld.readFile(seed)
	}
	if err != nil {
		return Table{}, fmt.Errorf("seed %q: %w", seed.File, err)
	}

	t.Name = seed.Table
	if len(t.Rows) == 0 {
		ld.l.Warn("seed file has no rows", slog.String("file", seed.File))
	}

	return t, nil
}

func (ld *Loader) readFile(seed config.Seed) (Table, error) {
	var (
		reader io.ReadCloser
		err    error
	)

	if seed.File == "-" {
		reader = os.Stdin
	} else {
		reader, err = os.Open(seed.File)
		if err != nil {
			return Table{}, err
		}

		defer func() {
			_ = reader.Close()
		}()
	}

	switch seed.Format {
	case config.SeedCSV:
		return ld.readCSV(reader)
	case config.SeedBenchmark:
		return readBenchmarkText(reader, seed.File)
	case config.SeedBenchJSON:
		return readBenchmarkJSON(reader, seed.File)
	default:
		return Table{}, fmt.Errorf("unsupported seed format %q", seed.Format)
	}
}
