// Package postgres opens the PostgreSQL pool and applies the embedded schema.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"gatekeeper/internal/platform/config"
	txcontext "gatekeeper/pkg/platform/tx"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open creates the connection pool and waits, with exponential backoff, for
// the database to accept connections.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	bo := backoff.NewExponentialBackOff()
	if cfg.ConnectTimeout > 0 {
		bo.MaxElapsedTime = cfg.ConnectTimeout
	}
	if err := backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(bo, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migration is one embedded schema file.
type Migration struct {
	Version string
	SQL     string
}

// Migrations returns the embedded migrations in apply order.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		body, err := fs.ReadFile(migrationFS, "migrations/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		out = append(out, Migration{
			Version: strings.TrimSuffix(e.Name(), ".sql"),
			SQL:     string(body),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies every embedded migration not yet recorded in
// schema_migrations. Each migration runs in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) (int, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}

	migrations, err := Migrations()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		err := txcontext.Run(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`, m.Version)
			if err != nil {
				return fmt.Errorf("record migration: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return nil
			}
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("apply migration: %w", err)
			}
			applied++
			if logger != nil {
				logger.InfoContext(ctx, "applied migration", "version", m.Version)
			}
			return nil
		})
		if err != nil {
			return applied, fmt.Errorf("migration %s: %w", m.Version, err)
		}
	}
	return applied, nil
}
