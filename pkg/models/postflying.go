package models

import "time"

// FlightStatus is how the flight ended.
type FlightStatus string

const (
	FlightCompleted  FlightStatus = "COMPLETED"
	FlightTerminated FlightStatus = "TERMINATED"
	FlightNotFlown   FlightStatus = "NOT_FLOWN"
)

// DefectStatus reports whether the crew found defects.
type DefectStatus string

const (
	DefectNone DefectStatus = "NO_DEFECT"
	DefectWith DefectStatus = "WITH_DEFECT"
)

// PostFlyingStatus is the status of a post-flight record.
type PostFlyingStatus string

const (
	PostFlyingStatusDraft               PostFlyingStatus = "DRAFT"
	PostFlyingStatusPilotAuthenticated  PostFlyingStatus = "PILOT_AUTHENTICATED"
	PostFlyingStatusCompleted           PostFlyingStatus = "COMPLETED"
	PostFlyingStatusTerminated          PostFlyingStatus = "TERMINATED"
	PostFlyingStatusMaintenanceRequired PostFlyingStatus = "MAINTENANCE_REQUIRED"
)

// IsFinal reports whether the engineer closed the record.
func (s PostFlyingStatus) IsFinal() bool {
	switch s {
	case PostFlyingStatusCompleted, PostFlyingStatusTerminated, PostFlyingStatusMaintenanceRequired:
		return true
	default:
		return false
	}
}

// FlightData holds the figures reported after the flight. Which fields are required
// depends on the flight and defect status.
type FlightData struct {
	Landings              *int     `json:"landings,omitempty"                 validate:"omitempty,gte=0"`
	FlightHours           *float64 `json:"flight_hours,omitempty"             validate:"omitempty,gte=0"`
	AirframeHours         *float64 `json:"airframe_hours,omitempty"           validate:"omitempty,gte=0"`
	FuelConsumed          *float64 `json:"fuel_consumed,omitempty"            validate:"omitempty,gte=0"`
	FuelLevelAfter        *float64 `json:"fuel_level_after,omitempty"         validate:"omitempty,gte=0"`
	TirePressureMainAfter *float64 `json:"tire_pressure_main_after,omitempty" validate:"omitempty,gte=0"`
	TirePressureNoseAfter *float64 `json:"tire_pressure_nose_after,omitempty" validate:"omitempty,gte=0"`
	TerminationReason     string   `json:"termination_reason,omitempty"`
	DefectNarrative       string   `json:"defect_narrative,omitempty"`
	EngineCondition       string   `json:"engine_condition,omitempty"`
}

// PostFlying is the post-flight report linked to an accepted pilot acceptance.
type PostFlying struct {
	ID           string           `json:"id"`
	AircraftID   string           `json:"aircraft_id"             validate:"required"`
	Cycle        int              `json:"cycle"`
	AcceptanceID string           `json:"acceptance_id"           validate:"required"`
	PilotPNO     string           `json:"pilot_pno"`
	FlightStatus FlightStatus     `json:"flight_status,omitempty"`
	DefectStatus DefectStatus     `json:"defect_status,omitempty"`
	Data         FlightData       `json:"data"`
	Signatures   SignatureSet     `json:"signatures"`
	Status       PostFlyingStatus `json:"status"                  validate:"required"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
}

// NewPostFlying returns a draft post-flight record for the pilot who accepted the aircraft.
func NewPostFlying(aircraftID, acceptanceID, pilotPNO string, cycle int, now time.Time) *PostFlying {
	return &PostFlying{
		AircraftID:   aircraftID,
		Cycle:        cycle,
		AcceptanceID: acceptanceID,
		PilotPNO:     pilotPNO,
		Status:       PostFlyingStatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// PilotDataAuthenticated reports whether the pilot signed the flight data.
func (p *PostFlying) PilotDataAuthenticated() bool {
	return p.Signatures.HasSlot(SlotPilot)
}

// EngineerSigned reports whether the engineer closed the record.
func (p *PostFlying) EngineerSigned() bool {
	return p.Signatures.HasSlot(SlotEngineer)
}
