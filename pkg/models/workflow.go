// Package models defines the core domain models for aircraft flying operations
package models

import "time"

// Stage is the top-level position of an aircraft in the flying operations cycle.
type Stage string

const (
	StageInit                Stage = "INIT"
	StageBFS                 Stage = "BFS"
	StagePilotAcceptance     Stage = "PILOT_ACCEPTANCE"
	StagePostFlying          Stage = "POST_FLYING"
	StageAFS                 Stage = "AFS"
	StageDone                Stage = "DONE"
	StageMaintenanceRequired Stage = "MAINTENANCE_REQUIRED"
)

// StageOrder is the linear order of the main path.
var StageOrder = []Stage{StageInit, StageBFS, StagePilotAcceptance, StagePostFlying, StageAFS, StageDone}

// IsTerminal reports whether the stage ends the cycle.
func (s Stage) IsTerminal() bool {
	return s == StageDone || s == StageMaintenanceRequired
}

// WorkflowState is the single state value held per aircraft. It only changes through
// the workflow controller, which always returns a new value.
type WorkflowState struct {
	AircraftID   string    `json:"aircraft_id"             validate:"required"`
	Stage        Stage     `json:"stage"                   validate:"required"`
	Cycle        int       `json:"cycle"`
	BFSID        string    `json:"bfs_id,omitempty"`
	AcceptanceID string    `json:"acceptance_id,omitempty"`
	PostFlyingID string    `json:"post_flying_id,omitempty"`
	AFSID        string    `json:"afs_id,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewWorkflowState returns the initial state of an aircraft that never started a cycle.
func NewWorkflowState(aircraftID string, now time.Time) WorkflowState {
	return WorkflowState{
		AircraftID: aircraftID,
		Stage:      StageInit,
		Cycle:      1,
		StartedAt:  now,
		UpdatedAt:  now,
	}
}

// CycleRecords groups the records created during one cycle of an aircraft.
type CycleRecords struct {
	Cycle      int              `json:"cycle"`
	BFS        *ServicingRecord `json:"bfs,omitempty"`
	Acceptance *PilotAcceptance `json:"acceptance,omitempty"`
	PostFlying *PostFlying      `json:"post_flying,omitempty"`
	AFS        *ServicingRecord `json:"afs,omitempty"`
}
