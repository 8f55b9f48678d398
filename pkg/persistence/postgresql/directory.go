package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/personnel"
	"github.com/lib/pq"
)

// Directory is a personnel.Directory over the personnel table.
type Directory struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ personnel.Directory = (*Directory)(nil)

// NewDirectory creates a new personnel directory.
func NewDirectory(db *sql.DB, logger *slog.Logger) *Directory {
	return &Directory{db: db, logger: logger}
}

// Lookup returns the identity for pno, PIN hash included.
func (d *Directory) Lookup(ctx context.Context, pno string) (*models.PersonnelIdentity, error) {
	query := `
		SELECT
			pno
		  , name
		  , rank
		  , trade
		  , roles
		  , pin_hash
		FROM personnel
		WHERE UPPER(pno) = UPPER($1)
	`

	identity, err := scanIdentity(d.db.QueryRowContext(ctx, query, strings.TrimSpace(pno)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, opserr.New(opserr.CodePersonnelNotFound, "personnel %s not found", pno)
		}

		return nil, fmt.Errorf("failed to query personnel %s: %w", pno, err)
	}

	return identity, nil
}

// Search narrows the table with ILIKE and ranks the rows the way the in-memory directory does.
func (d *Directory) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < personnel.MinQueryLength {
		return []models.Candidate{}, nil
	}

	pattern := "%" + escapeLike(q) + "%"

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			pno
		  , name
		  , rank
		  , trade
		  , roles
		  , pin_hash
		FROM personnel
		WHERE pno ILIKE $1 OR name ILIKE $1
		ORDER BY pno
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search personnel: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			d.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	entries := make([]models.PersonnelIdentity, 0)

	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan personnel: %w", err)
		}

		entries = append(entries, *identity)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating personnel: %w", err)
	}

	return personnel.Rank(entries, q), nil
}

// Import inserts or replaces identities in one transaction.
func (d *Directory) Import(ctx context.Context, identities []models.PersonnelIdentity) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `
		INSERT INTO personnel (pno, name, rank, trade, roles, pin_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pno) DO UPDATE SET
			name = EXCLUDED.name
		  , rank = EXCLUDED.rank
		  , trade = EXCLUDED.trade
		  , roles = EXCLUDED.roles
		  , pin_hash = EXCLUDED.pin_hash
	`

	for _, p := range identities {
		roles := make([]string, len(p.Roles))
		for i, r := range p.Roles {
			roles[i] = string(r)
		}

		_, err = tx.ExecContext(ctx, query, p.PNO, p.Name, p.Rank, string(p.Trade), pq.Array(roles), p.PINHash)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to import personnel %s: %w", p.PNO, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit personnel import: %w", err)
	}

	d.logger.InfoContext(ctx, "personnel imported", "count", len(identities))

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*models.PersonnelIdentity, error) {
	var (
		identity models.PersonnelIdentity
		trade    string
		roles    []string
	)

	err := row.Scan(&identity.PNO, &identity.Name, &identity.Rank, &trade, pq.Array(&roles), &identity.PINHash)
	if err != nil {
		return nil, err
	}

	identity.Trade = models.Trade(trade)

	for _, r := range roles {
		identity.Roles = append(identity.Roles, models.Role(r))
	}

	return &identity, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
