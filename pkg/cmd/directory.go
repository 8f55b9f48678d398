// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"errors"
	"log/slog"

	"github.com/dukex/flightline/pkg/persistence"
	"github.com/dukex/flightline/pkg/persistence/postgresql"
	"github.com/dukex/flightline/pkg/personnel"
)

// ErrNoDirectory is returned when neither a personnel file nor a database directory is configured.
var ErrNoDirectory = errors.New("no personnel directory: set a personnel file or use PostgreSQL persistence")

// NewDirectory prefers the personnel file when one is set, then the personnel table of a
// PostgreSQL store.
func NewDirectory(logger *slog.Logger, personnelFile string, store persistence.Persistence, pinCost int) (personnel.Directory, error) {
	if personnelFile != "" {
		return personnel.LoadFile(logger, personnelFile, pinCost)
	}

	if pg, ok := store.(*postgresql.Persistence); ok {
		return pg.Directory(), nil
	}

	return nil, ErrNoDirectory
}
