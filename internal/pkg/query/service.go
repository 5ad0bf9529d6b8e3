package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/config"
	"github.com/fredbi/chartviz/internal/pkg/model"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// ErrUnknownConnection is returned when a request names a database connection that is not registered.
var ErrUnknownConnection = errors.New("database connection not found")

var _ Fetcher = &Service{}

// Service runs chart queries against registered database connections.
//
// Connections are opened on first use, then seeded with their seed files.
type Service struct {
	options

	mx          sync.Mutex
	connections map[string]config.Connection
	dbs         map[string]*sql.DB
	cache       *cache
	l           *slog.Logger
}

// NewService builds a [Service] for a set of database connections.
func NewService(connections []config.Connection, opts ...Option) *Service {
	s := &Service{
		options:     optionsWithDefaults(opts),
		connections: make(map[string]config.Connection, len(connections)),
		dbs:         make(map[string]*sql.DB, len(connections)),
		l:           slog.Default().With(slog.String("module", "query")),
	}

	for _, conn := range connections {
		s.connections[conn.ID] = conn
	}

	if s.cacheTTL > 0 {
		s.cache = newCache(s.cacheTTL, s.now)
	}

	return s
}

// Connections returns the IDs of the registered database connections.
func (s *Service) Connections() []string {
	s.mx.Lock()
	defer s.mx.Unlock()

	ids := make([]string, 0, len(s.connections))
	for id := range s.connections {
		ids = append(ids, id)
	}

	return ids
}

// FetchChartRows runs the query of a [Request].
//
// Failures are reported as an unsuccessful [Response]: the returned error is always nil.
func (s *Service) FetchChartRows(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Failed("query is required"), nil
	}

	if err := req.Validate(); err != nil {
		return Failed(err.Error()), nil
	}

	db, conn, err := s.DB(ctx, req.Connection)
	if err != nil {
		s.l.Warn("query rejected", slog.String("chart", req.ChartID), slog.String("error", err.Error()))

		return Failed(err.Error()), nil
	}

	key := cacheKey{connection: req.Connection, query: req.Query, from: req.FromDate, to: req.ToDate}
	if entry, ok := s.cache.get(key); ok {
		return Succeeded(entry.records, &model.Metadata{
			ExecutionTime: entry.executionTime,
			CachedAt:      entry.at.UTC().Format(time.RFC3339),
		}), nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	query, args := bindDates(conn.Driver, req.Query, req.FromDate, req.ToDate)

	start := time.Now()
	records, err := queryRecords(ctx, db, query, args...)
	if err != nil {
		s.l.Warn("query failed",
			slog.String("chart", req.ChartID),
			slog.String("connection", req.Connection),
			slog.String("error", err.Error()),
		)

		return Failed(err.Error()), nil
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	s.cache.put(key, records, elapsed)
	s.l.Debug("query executed",
		slog.String("chart", req.ChartID),
		slog.Int("rows", len(records)),
		slog.Float64("execution_time_ms", elapsed),
	)

	return Succeeded(records, &model.Metadata{ExecutionTime: elapsed}), nil
}

// DB returns the database of a connection, opening and seeding it on first use.
func (s *Service) DB(ctx context.Context, id string) (*sql.DB, config.Connection, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	conn, ok := s.connections[id]
	if !ok {
		return nil, conn, fmt.Errorf("%w: %q", ErrUnknownConnection, id)
	}

	if db, ok := s.dbs[id]; ok {
		return db, conn, nil
	}

	db, err := s.open(ctx, conn)
	if err != nil {
		return nil, conn, fmt.Errorf("connection %s: %w", id, err)
	}

	s.dbs[id] = db

	return db, conn, nil
}

func (s *Service) open(ctx context.Context, conn config.Connection) (*sql.DB, error) {
	driver := conn.Driver
	if driver == "" {
		driver = config.DriverSQLite
	}

	db, err := sql.Open(driver.String(), conn.DSN)
	if err != nil {
		return nil, err
	}

	if driver == config.DriverSQLite {
		// an in-memory database lives as long as its single connection
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	for _, seed := range conn.Seeds {
		if err = s.loader.Load(ctx, db, driver, seed); err != nil {
			_ = db.Close()

			return nil, err
		}
	}

	s.l.Info("database connection opened",
		slog.String("connection", conn.ID),
		slog.String("driver", driver.String()),
		slog.Int("seeds", len(conn.Seeds)),
	)

	return db, nil
}

// Close all opened databases.
func (s *Service) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()

	var errs []error
	for id, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("connection %s: %w", id, err))
		}
		delete(s.dbs, id)
	}

	return errors.Join(errs...)
}

func queryRecords(ctx context.Context, db *sql.DB, query string, args ...any) (model.Records, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := model.Records{}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		var row model.Row
		for i, column := range columns {
			row.Set(column, scanned(values[i]))
		}

		records = append(records, row)
	}

	return records, rows.Err()
}

// scanned converts a scanned column value into a JSON-friendly scalar.
func scanned(v any) any {
	switch value := v.(type) {
	case []byte:
		return string(value)
	case time.Time:
		if value.Hour() == 0 && value.Minute() == 0 && value.Second() == 0 && value.Nanosecond() == 0 {
			return model.FormatDate(value)
		}

		return value.Format(time.RFC3339)
	default:
		return v
	}
}
