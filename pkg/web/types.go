package web

import "github.com/dukex/flightline/pkg/models"

// SessionHeader carries the operator session id that selects the current aircraft.
const SessionHeader = "X-Session-ID"

// SelectAircraftRequest selects the aircraft a session works on.
type SelectAircraftRequest struct {
	AircraftID string `json:"aircraft_id" validate:"required"`
}

// SignRequest is the body of every sign-off endpoint. A blank PIN is rejected by
// the sign-off itself with EMPTY_PIN, so only the PNO is required here.
type SignRequest struct {
	PNO string `json:"pno" validate:"required"`
	PIN string `json:"pin"`
}

// TradeSignRequest signs a trade slot.
type TradeSignRequest struct {
	Trade models.Trade `json:"trade" validate:"required,oneof=AE AL AR AO SE"`
	PNO   string       `json:"pno"   validate:"required"`
	PIN   string       `json:"pin"`
}

// TradeRequest selects a trade for the record.
type TradeRequest struct {
	Trade models.Trade `json:"trade" validate:"required,oneof=AE AL AR AO SE"`
}

// AssignRequest assigns a person to a trade.
type AssignRequest struct {
	Trade models.Trade `json:"trade" validate:"required,oneof=AE AL AR AO SE"`
	PNO   string       `json:"pno"   validate:"required"`
}

// SupervisorRequest sets the supervisor of a servicing record.
type SupervisorRequest struct {
	PNO string `json:"pno" validate:"required"`
}

// OutcomeRequest records how a flight ended.
type OutcomeRequest struct {
	FlightStatus models.FlightStatus `json:"flight_status" validate:"required,oneof=COMPLETED TERMINATED NOT_FLOWN"`
	DefectStatus models.DefectStatus `json:"defect_status" validate:"required,oneof=NO_DEFECT WITH_DEFECT"`
}

// CreateJobCardRequest opens a maintenance job card for the session aircraft.
type CreateJobCardRequest struct {
	Type         models.MaintenanceType `json:"type"          validate:"required"`
	FromTemplate bool                   `json:"from_template"`
}

// RemarksRequest replaces the remarks of a job.
type RemarksRequest struct {
	Remarks string `json:"remarks" validate:"max=2000"`
}

// RemoveSignatureRequest removes one job signature.
type RemoveSignatureRequest struct {
	Slot models.Slot `json:"slot" validate:"required"`
	PNO  string      `json:"pno"  validate:"required"`
}

// SessionResponse is the aircraft selected by a session.
type SessionResponse struct {
	SessionID string           `json:"session_id"`
	Aircraft  *models.Aircraft `json:"aircraft"`
}
