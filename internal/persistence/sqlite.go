package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spec-kit/user-directory/internal/config"
)

// SQLite wraps a database/sql handle backed by the pure-Go sqlite driver.
type SQLite struct {
	DB *sql.DB
}

// NewSQLite opens the database file named in cfg. ":memory:" is accepted and
// pins the pool to a single connection, since every sqlite connection would
// otherwise see its own empty in-memory database.
func NewSQLite(ctx context.Context, cfg config.SQLiteConfig, logger *zap.Logger) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path not provided")
	}

	db, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, err
	}
	if isMemory(cfg.Path) {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("opened sqlite database", zap.String("path", cfg.Path))
	return &SQLite{DB: db}, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// dsn turns on a busy timeout so concurrent writers wait for the file lock
// instead of failing immediately.
func dsn(path string) string {
	if isMemory(path) || strings.Contains(path, "_pragma=") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)"
}

// Close releases the handle.
func (s *SQLite) Close() {
	if s != nil && s.DB != nil {
		_ = s.DB.Close()
	}
}

// Ping verifies database connectivity.
func (s *SQLite) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("sqlite database not configured")
	}
	return s.DB.PingContext(ctx)
}

// ExecSchema runs a DDL script.
func (s *SQLite) ExecSchema(ctx context.Context, script string) error {
	_, err := s.DB.ExecContext(ctx, script)
	return err
}
