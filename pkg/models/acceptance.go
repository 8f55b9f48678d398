package models

import "time"

// AcceptanceStatus is the status of a pilot acceptance.
type AcceptanceStatus string

const (
	AcceptanceStatusDraft    AcceptanceStatus = "DRAFT"
	AcceptanceStatusAccepted AcceptanceStatus = "ACCEPTED"
)

// ChecklistItem is one pre-flight safety check done by the pilot.
type ChecklistItem string

const (
	CheckFuelLevel     ChecklistItem = "fuel_level"
	CheckTirePressure  ChecklistItem = "tire_pressure"
	CheckEngine        ChecklistItem = "engine"
	CheckControls      ChecklistItem = "controls"
	CheckInstruments   ChecklistItem = "instruments"
	CheckCommunication ChecklistItem = "communication"
)

// AcceptanceChecklist lists every check that must pass before the pilot can sign.
var AcceptanceChecklist = []ChecklistItem{
	CheckFuelLevel,
	CheckTirePressure,
	CheckEngine,
	CheckControls,
	CheckInstruments,
	CheckCommunication,
}

// AcceptanceReadings are the figures the pilot observes at acceptance.
type AcceptanceReadings struct {
	FuelLevel        *float64 `json:"fuel_level,omitempty"         validate:"omitempty,gte=0"`
	TirePressureMain *float64 `json:"tire_pressure_main,omitempty" validate:"omitempty,gte=0"`
	TirePressureNose *float64 `json:"tire_pressure_nose,omitempty" validate:"omitempty,gte=0"`
}

// PilotAcceptance is the pilot taking the aircraft over from an approved BFS.
type PilotAcceptance struct {
	ID          string                 `json:"id"`
	AircraftID  string                 `json:"aircraft_id"          validate:"required"`
	Cycle       int                    `json:"cycle"`
	BFSID       string                 `json:"bfs_id"               validate:"required"`
	Checks      map[ChecklistItem]bool `json:"checks"`
	Readings    AcceptanceReadings     `json:"readings"`
	Remarks     string                 `json:"remarks,omitempty"`
	Signatures  SignatureSet           `json:"signatures"`
	Status      AcceptanceStatus       `json:"status"               validate:"required"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	AcceptedAt  *time.Time             `json:"accepted_at,omitempty"`
}

// NewPilotAcceptance returns a draft acceptance with every check unset.
func NewPilotAcceptance(aircraftID, bfsID string, cycle int, now time.Time) *PilotAcceptance {
	checks := make(map[ChecklistItem]bool, len(AcceptanceChecklist))
	for _, item := range AcceptanceChecklist {
		checks[item] = false
	}

	return &PilotAcceptance{
		AircraftID: aircraftID,
		Cycle:      cycle,
		BFSID:      bfsID,
		Checks:     checks,
		Status:     AcceptanceStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// UncheckedItems returns the checklist items not yet confirmed, in checklist order.
func (a *PilotAcceptance) UncheckedItems() []string {
	var out []string

	for _, item := range AcceptanceChecklist {
		if !a.Checks[item] {
			out = append(out, string(item))
		}
	}

	return out
}

// Pilot returns the accepting pilot's signature.
func (a *PilotAcceptance) Pilot() (Signature, bool) {
	return a.Signatures.First(SlotPilot)
}
