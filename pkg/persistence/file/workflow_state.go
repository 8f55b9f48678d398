package file

import (
	"context"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/persistence"
)

// WorkflowStateRepository keeps one JSON document per aircraft under root/workflow_states.
type WorkflowStateRepository struct {
	states *collection[models.WorkflowState]
}

func NewWorkflowStateRepository(root string) *WorkflowStateRepository {
	return &WorkflowStateRepository{
		states: newCollection(root, "workflow_states", persistence.ErrWorkflowStateNotFound, func(s *models.WorkflowState) meta {
			return meta{ID: s.AircraftID, AircraftID: s.AircraftID, CreatedAt: s.StartedAt}
		}),
	}
}

// ByAircraft returns the state of aircraftID, or ErrWorkflowStateNotFound before Start.
func (r *WorkflowStateRepository) ByAircraft(ctx context.Context, aircraftID string) (*models.WorkflowState, error) {
	return r.states.ByID(ctx, aircraftID)
}

// Save replaces the state of the aircraft.
func (r *WorkflowStateRepository) Save(ctx context.Context, state *models.WorkflowState) error {
	return r.states.Save(ctx, state)
}
