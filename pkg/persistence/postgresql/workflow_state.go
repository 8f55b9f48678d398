package postgresql

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/persistence"
)

// WorkflowStateRepository stores one workflow state row per aircraft.
type WorkflowStateRepository struct {
	states *documents[models.WorkflowState]
}

// NewWorkflowStateRepository creates a new workflow state repository.
func NewWorkflowStateRepository(db *sql.DB, logger *slog.Logger) *WorkflowStateRepository {
	return &WorkflowStateRepository{
		states: newDocuments(db, logger, "workflow_states", persistence.ErrWorkflowStateNotFound, func(s *models.WorkflowState) meta {
			return meta{ID: s.AircraftID, AircraftID: s.AircraftID, CreatedAt: s.StartedAt}
		}),
	}
}

// ByAircraft returns the workflow state of an aircraft.
func (r *WorkflowStateRepository) ByAircraft(ctx context.Context, aircraftID string) (*models.WorkflowState, error) {
	return r.states.ByID(ctx, aircraftID)
}

// Save replaces the workflow state of an aircraft.
func (r *WorkflowStateRepository) Save(ctx context.Context, state *models.WorkflowState) error {
	return r.states.Save(ctx, state)
}
