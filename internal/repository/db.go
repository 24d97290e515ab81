package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/tungarlabs/fuelbills/internal/common"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store wraps a database handle with its dialect.
type Store struct {
	DB     *sql.DB
	Driver string

	pool   *pgxpool.Pool // nil for sqlite
	logger *slog.Logger
}

// Open connects according to cfg.Driver and applies the schema.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	case DriverSQLite:
		return OpenSQLite(ctx, cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unsupported db driver: %q", cfg.Driver)
	}
}

// openPostgres creates a pgx pool and wraps it as database/sql.
func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	logger.Info("connecting to database", "driver", DriverPostgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "fuelbills"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	s := &Store{DB: db, Driver: DriverPostgres, pool: pool, logger: logger}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("successfully connected to database")
	return s, nil
}

// OpenSQLite opens a local or in-memory SQLite store with the usual safety
// pragmas. DSN ":memory:" gives an in-memory database for tests and --inmem.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dsn == "" || dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	s := &Store{DB: db, Driver: DriverSQLite, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connections gracefully.
func (s *Store) Close() {
	s.logger.Info("closing database connections")
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			s.logger.Error("failed to close db", "error", err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// HealthCheck pings the database to catch DSN issues early.
func (s *Store) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.DB.PingContext(ctx)
}

// rebind converts '?' placeholders to '$n' for Postgres. Queries in this
// package are written with '?'.
func (s *Store) rebind(query string) string {
	if s.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) migrate(ctx context.Context) error {
	var ddl []string
	switch s.Driver {
	case DriverPostgres:
		ddl = postgresSchema
	case DriverSQLite:
		ddl = sqliteSchema
	}
	for _, stmt := range ddl {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// The bills.seq column preserves insertion order, which is the input-file
// order the export must reproduce.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS bill_files (
		id           UUID PRIMARY KEY,
		source_path  TEXT NOT NULL,
		filename     TEXT NOT NULL,
		file_ext     TEXT NOT NULL,
		file_size    BIGINT NOT NULL,
		content_hash BYTEA NOT NULL UNIQUE,
		uploaded_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extract_jobs (
		id            UUID PRIMARY KEY,
		file_id       UUID NOT NULL REFERENCES bill_files(id),
		format        TEXT NOT NULL,
		status        TEXT NOT NULL,
		pages         INT NOT NULL DEFAULT 0,
		model_name    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS bills (
		seq        BIGSERIAL PRIMARY KEY,
		id         UUID NOT NULL UNIQUE,
		file_id    UUID NOT NULL REFERENCES bill_files(id),
		bill_no    TEXT NOT NULL,
		page       INT NOT NULL,
		pump_name  TEXT NOT NULL DEFAULT '',
		product    TEXT NOT NULL DEFAULT '',
		bill_date  TEXT NOT NULL DEFAULT '',
		volume     TEXT NOT NULL DEFAULT '',
		rate       TEXT NOT NULL DEFAULT '',
		total      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS bill_files (
		id           TEXT PRIMARY KEY,
		source_path  TEXT NOT NULL,
		filename     TEXT NOT NULL,
		file_ext     TEXT NOT NULL,
		file_size    INTEGER NOT NULL,
		content_hash BLOB NOT NULL UNIQUE,
		uploaded_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extract_jobs (
		id            TEXT PRIMARY KEY,
		file_id       TEXT NOT NULL REFERENCES bill_files(id),
		format        TEXT NOT NULL,
		status        TEXT NOT NULL,
		pages         INTEGER NOT NULL DEFAULT 0,
		model_name    TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		started_at    TIMESTAMP NOT NULL,
		finished_at   TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS bills (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		file_id    TEXT NOT NULL REFERENCES bill_files(id),
		bill_no    TEXT NOT NULL,
		page       INTEGER NOT NULL,
		pump_name  TEXT NOT NULL DEFAULT '',
		product    TEXT NOT NULL DEFAULT '',
		bill_date  TEXT NOT NULL DEFAULT '',
		volume     TEXT NOT NULL DEFAULT '',
		rate       TEXT NOT NULL DEFAULT '',
		total      TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
}
