package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dukex/flightline/pkg/persistence"
	"github.com/dukex/flightline/pkg/persistence/file"
	"github.com/dukex/flightline/pkg/persistence/postgresql"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql"}

// NewPersistence opens the storage backend named by the scheme of databaseURL.
// URLs without a known scheme are treated as a file directory.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		root := strings.Replace(databaseURL, "file://", "", 1)

		err := os.MkdirAll(root, 0750)
		if err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", root, err)
		}

		return file.NewPersistence(root), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
