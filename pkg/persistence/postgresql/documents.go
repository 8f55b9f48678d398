package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flightline/pkg/persistence"
)

// meta is what a table needs to know about a stored document.
type meta struct {
	ID         string
	AircraftID string
	CreatedAt  time.Time
}

// documents stores values of T as JSONB rows of one table.
type documents[T any] struct {
	db       *sql.DB
	logger   *slog.Logger
	table    string
	notFound error
	metaOf   func(*T) meta
}

func newDocuments[T any](db *sql.DB, logger *slog.Logger, table string, notFound error, metaOf func(*T) meta) *documents[T] {
	return &documents[T]{
		db:       db,
		logger:   logger,
		table:    table,
		notFound: notFound,
		metaOf:   metaOf,
	}
}

// ByID loads the document stored under id.
func (d *documents[T]) ByID(ctx context.Context, id string) (*T, error) {
	query := `SELECT data FROM ` + d.table + ` WHERE id = $1`

	var data []byte

	err := d.db.QueryRowContext(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRecordError("ByID", d.table, id, d.notFound)
		}

		return nil, fmt.Errorf("failed to query %s %s: %w", d.table, id, err)
	}

	return d.decode(id, data)
}

// All loads every document, oldest first.
func (d *documents[T]) All(ctx context.Context) ([]*T, error) {
	return d.list(ctx, `SELECT id, data FROM `+d.table+` ORDER BY created_at, id`)
}

// ByAircraft loads every document of an aircraft, oldest first.
func (d *documents[T]) ByAircraft(ctx context.Context, aircraftID string) ([]*T, error) {
	return d.list(ctx, `SELECT id, data FROM `+d.table+` WHERE aircraft_id = $1 ORDER BY created_at, id`, aircraftID)
}

func (d *documents[T]) list(ctx context.Context, query string, args ...any) ([]*T, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", d.table, err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			d.logger.ErrorContext(ctx, "failed to close rows", "table", d.table, "error", err)
		}
	}()

	values := make([]*T, 0)

	for rows.Next() {
		var (
			id   string
			data []byte
		)

		err := rows.Scan(&id, &data)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", d.table, err)
		}

		value, err := d.decode(id, data)
		if err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", d.table, err)
	}

	return values, nil
}

// Save inserts or replaces a document.
func (d *documents[T]) Save(ctx context.Context, value *T) error {
	m := d.metaOf(value)
	if m.ID == "" {
		return fmt.Errorf("failed to save %s: id is empty", d.table)
	}

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", d.table, m.ID, err)
	}

	query := `
		INSERT INTO ` + d.table + ` (id, aircraft_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			aircraft_id = EXCLUDED.aircraft_id
		  , data = EXCLUDED.data
		  , updated_at = NOW()
	`

	_, err = d.db.ExecContext(ctx, query, m.ID, m.AircraftID, data, createdAt)
	if err != nil {
		return persistence.NewRecordError("Save", d.table, m.ID, err)
	}

	return nil
}

// Delete removes the document stored under id.
func (d *documents[T]) Delete(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM `+d.table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", d.table, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.NewRecordError("Delete", d.table, id, d.notFound)
	}

	return nil
}

func (d *documents[T]) decode(id string, data []byte) (*T, error) {
	var value T

	err := json.Unmarshal(data, &value)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", d.table, id, err)
	}

	return &value, nil
}
