package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadFile reads a JSON array of aircraft.
func LoadFile(path string) ([]*models.Aircraft, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read aircraft file %s: %w", path, err)
	}

	var aircraft []*models.Aircraft
	if err := json.Unmarshal(data, &aircraft); err != nil {
		return nil, fmt.Errorf("failed to decode aircraft file %s: %w", path, err)
	}

	return aircraft, nil
}

// Seed validates and saves fleet entries. Entries without a status are SERVICEABLE.
// Nothing is saved when any entry is invalid.
func Seed(ctx context.Context, repo persistence.AircraftRepository, aircraft []*models.Aircraft) error {
	seen := make(map[string]bool, len(aircraft))

	for i, a := range aircraft {
		if err := opserr.Validate(validate, a); err != nil {
			return fmt.Errorf("aircraft %d: %w", i, err)
		}

		if seen[a.ID] {
			return opserr.New(opserr.CodeDuplicate, "aircraft %s is listed twice", a.ID)
		}

		seen[a.ID] = true
	}

	now := time.Now().UTC()

	for _, a := range aircraft {
		if a.Status == "" {
			a.Status = models.AircraftStatusServiceable
		}

		a.UpdatedAt = now

		if err := repo.Save(ctx, a); err != nil {
			return fmt.Errorf("failed to save aircraft %s: %w", a.ID, err)
		}
	}

	return nil
}
