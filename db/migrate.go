// Package db holds the SQL schema and applies it.
package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one schema file.
type Migration struct {
	Name     string
	SQL      string
	Checksum string
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    id BIGSERIAL PRIMARY KEY,
    filename TEXT NOT NULL UNIQUE,
    checksum TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrations returns the embedded migrations in lexical order.
func Migrations() ([]Migration, error) {
	return readMigrations(migrationFS, "migrations")
}

func readMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	var out []Migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return nil, errors.Wrapf(err, "read migration %s", e.Name())
		}
		sum := sha256.Sum256(content)
		out = append(out, Migration{Name: e.Name(), SQL: string(content), Checksum: hex.EncodeToString(sum[:])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Apply runs every pending migration, each in its own transaction, and
// returns the names of those it applied.
func Apply(ctx context.Context, db *sql.DB, logger *slog.Logger) ([]string, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	return apply(ctx, db, migrations, logger)
}

func apply(ctx context.Context, db *sql.DB, migrations []Migration, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, errors.Wrap(err, "create schema_migrations")
	}

	var applied []string
	for _, m := range migrations {
		var checksum string
		err := db.QueryRowContext(ctx, `SELECT checksum FROM schema_migrations WHERE filename = $1`, m.Name).Scan(&checksum)
		switch {
		case err == nil:
			if checksum != m.Checksum {
				logger.Warn("applied migration changed on disk", "file", m.Name)
			}
			logger.Debug("migration already applied", "file", m.Name)
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return applied, errors.Wrapf(err, "check migration %s", m.Name)
		}

		if err := applyOne(ctx, db, m); err != nil {
			return applied, err
		}
		logger.Info("migration applied", "file", m.Name)
		applied = append(applied, m.Name)
	}
	return applied, nil
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin migration %s", m.Name)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return errors.Wrapf(err, "apply migration %s", m.Name)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (filename, checksum) VALUES ($1, $2)`, m.Name, m.Checksum); err != nil {
		return errors.Wrapf(err, "record migration %s", m.Name)
	}
	return errors.Wrapf(tx.Commit(), "commit migration %s", m.Name)
}
