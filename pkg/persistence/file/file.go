// Package file provides file-based persistence implementation for aircraft and stage records.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root        string
	aircraft    *collection[models.Aircraft]
	states      *WorkflowStateRepository
	servicing   *collection[models.ServicingRecord]
	acceptances *collection[models.PilotAcceptance]
	postFlights *collection[models.PostFlying]
	jobCards    *collection[models.JobCard]
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root: cleanRoot,
		aircraft: newCollection(cleanRoot, "aircraft", persistence.ErrAircraftNotFound, func(a *models.Aircraft) meta {
			return meta{ID: a.ID, AircraftID: a.ID}
		}),
		states: NewWorkflowStateRepository(cleanRoot),
		servicing: newCollection(cleanRoot, "servicing", persistence.ErrRecordNotFound, func(r *models.ServicingRecord) meta {
			return meta{ID: r.ID, AircraftID: r.AircraftID, CreatedAt: r.CreatedAt}
		}),
		acceptances: newCollection(cleanRoot, "acceptances", persistence.ErrRecordNotFound, func(a *models.PilotAcceptance) meta {
			return meta{ID: a.ID, AircraftID: a.AircraftID, CreatedAt: a.CreatedAt}
		}),
		postFlights: newCollection(cleanRoot, "post_flights", persistence.ErrRecordNotFound, func(p *models.PostFlying) meta {
			return meta{ID: p.ID, AircraftID: p.AircraftID, CreatedAt: p.CreatedAt}
		}),
		jobCards: newCollection(cleanRoot, "job_cards", persistence.ErrJobCardNotFound, func(c *models.JobCard) meta {
			return meta{ID: c.ID, AircraftID: c.AircraftID, CreatedAt: c.CreatedAt}
		}),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) AircraftRepository() persistence.AircraftRepository {
	return fp.aircraft
}

func (fp *Persistence) WorkflowStateRepository() persistence.WorkflowStateRepository {
	return fp.states
}

func (fp *Persistence) ServicingRepository() persistence.ServicingRepository {
	return fp.servicing
}

func (fp *Persistence) AcceptanceRepository() persistence.AcceptanceRepository {
	return fp.acceptances
}

func (fp *Persistence) PostFlyingRepository() persistence.PostFlyingRepository {
	return fp.postFlights
}

func (fp *Persistence) JobCardRepository() persistence.JobCardRepository {
	return fp.jobCards
}
