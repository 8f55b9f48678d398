package personnel

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dukex/flightline/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var directorySchema []byte

// fileEntry is the on-disk form of an identity. Either PINHash or a plain PIN is set;
// plain PINs are hashed on load and never kept.
type fileEntry struct {
	PNO     string        `json:"pno"`
	Name    string        `json:"name"`
	Rank    string        `json:"rank"`
	Trade   models.Trade  `json:"trade"`
	Roles   []models.Role `json:"roles,omitempty"`
	PINHash string        `json:"pin_hash,omitempty"`
	PIN     string        `json:"pin,omitempty"`
}

// LoadFile reads a JSON directory file, validates it against the embedded schema and
// returns an in-memory directory.
func LoadFile(logger *slog.Logger, path string, cost int) (*MemoryDirectory, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read personnel file %s: %w", path, err)
	}

	return Parse(logger, data, cost)
}

// Parse validates and decodes a JSON directory document.
func Parse(logger *slog.Logger, data []byte, cost int) (*MemoryDirectory, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var raw []fileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode personnel file: %w", err)
	}

	entries := make([]models.PersonnelIdentity, 0, len(raw))
	plain := 0

	for _, r := range raw {
		hash := r.PINHash
		if hash == "" {
			h, err := HashPIN(r.PIN, cost)
			if err != nil {
				return nil, fmt.Errorf("failed to hash pin for %s: %w", r.PNO, err)
			}

			hash = h
			plain++
		}

		entries = append(entries, models.PersonnelIdentity{
			PNO:     r.PNO,
			Name:    r.Name,
			Rank:    r.Rank,
			Trade:   r.Trade,
			Roles:   r.Roles,
			PINHash: hash,
		})
	}

	if plain > 0 {
		logger.Warn("Personnel file contains plain PINs, store pin_hash instead", "count", plain)
	}

	logger.Info("Loaded personnel directory", "entries", len(entries))

	return NewMemoryDirectory(entries...), nil
}

// ValidateDocument checks a directory document against the embedded JSON schema.
func ValidateDocument(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(directorySchema)
	dataLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate personnel file: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}

		return fmt.Errorf("invalid personnel file: %s", strings.Join(errs, "; "))
	}

	return nil
}
