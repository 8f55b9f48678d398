// Package sqlbase holds the SQL plumbing shared by the database backed stores.
package sqlbase

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
)

// Migration is one forward-only schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies pending migrations, each in its own transaction.
type Migrator struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
}

func NewMigrator(logger *slog.Logger, db *sql.DB, migrations []Migration) *Migrator {
	sorted := slices.SortedFunc(slices.Values(migrations), func(a, b Migration) int {
		return cmp.Compare(a.Version, b.Version)
	})

	return &Migrator{
		db:         db,
		logger:     logger.With("component", "migrator"),
		migrations: sorted,
	}
}

// Latest returns the highest known version, or 0 with no migrations.
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}

	return m.migrations[len(m.migrations)-1].Version
}

// Up brings the schema to Latest.
func (m *Migrator) Up(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	pending := slices.DeleteFunc(slices.Clone(m.migrations), func(mig Migration) bool {
		return mig.Version <= current
	})

	m.logger.InfoContext(ctx, "Schema version checked", "current", current, "latest", m.Latest(), "pending", len(pending))

	for _, mig := range pending {
		if err := m.apply(ctx, mig); err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", mig.Version, err)
	}

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to execute migration %d (%s): %w", mig.Version, mig.Name, err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to record migration %d: %w", mig.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", mig.Version, err)
	}

	m.logger.InfoContext(ctx, "Migration applied", "version", mig.Version, "name", mig.Name)

	return nil
}
