// Package persistence provides data storage abstraction layer for aircraft and stage records.
package persistence

import (
	"context"

	"github.com/dukex/flightline/pkg/models"
)

// Persistence gives access to every repository of a storage backend.
type Persistence interface {
	AircraftRepository() AircraftRepository
	WorkflowStateRepository() WorkflowStateRepository
	ServicingRepository() ServicingRepository
	AcceptanceRepository() AcceptanceRepository
	PostFlyingRepository() PostFlyingRepository
	JobCardRepository() JobCardRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// AircraftRepository stores fleet entries.
type AircraftRepository interface {
	All(ctx context.Context) ([]*models.Aircraft, error)
	ByID(ctx context.Context, id string) (*models.Aircraft, error)
	Save(ctx context.Context, aircraft *models.Aircraft) error
}

// WorkflowStateRepository stores the single workflow state of each aircraft.
type WorkflowStateRepository interface {
	ByAircraft(ctx context.Context, aircraftID string) (*models.WorkflowState, error)
	Save(ctx context.Context, state *models.WorkflowState) error
}

// ServicingRepository stores BFS and AFS records.
type ServicingRepository interface {
	ByID(ctx context.Context, id string) (*models.ServicingRecord, error)
	ByAircraft(ctx context.Context, aircraftID string) ([]*models.ServicingRecord, error)
	Save(ctx context.Context, record *models.ServicingRecord) error
}

// AcceptanceRepository stores pilot acceptances.
type AcceptanceRepository interface {
	ByID(ctx context.Context, id string) (*models.PilotAcceptance, error)
	ByAircraft(ctx context.Context, aircraftID string) ([]*models.PilotAcceptance, error)
	Save(ctx context.Context, acceptance *models.PilotAcceptance) error
}

// PostFlyingRepository stores post-flight records.
type PostFlyingRepository interface {
	ByID(ctx context.Context, id string) (*models.PostFlying, error)
	ByAircraft(ctx context.Context, aircraftID string) ([]*models.PostFlying, error)
	Save(ctx context.Context, record *models.PostFlying) error
}

// JobCardRepository stores maintenance job cards.
type JobCardRepository interface {
	ByID(ctx context.Context, id string) (*models.JobCard, error)
	ByAircraft(ctx context.Context, aircraftID string) ([]*models.JobCard, error)
	Save(ctx context.Context, card *models.JobCard) error
	Delete(ctx context.Context, id string) error
}
