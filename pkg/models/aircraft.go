package models

import "time"

// AircraftStatus represents the serviceability of an aircraft.
type AircraftStatus string

const (
	AircraftStatusServiceable AircraftStatus = "SERVICEABLE"
	AircraftStatusMaintenance AircraftStatus = "MAINTENANCE"
	AircraftStatusGrounded    AircraftStatus = "GROUNDED"
)

// Aircraft is a fleet entry. Totals are updated when a post-flight record completes.
type Aircraft struct {
	ID               string         `json:"id"                 validate:"required"`
	AircraftNumber   string         `json:"aircraft_number"    validate:"required"`
	Model            string         `json:"model"`
	Type             string         `json:"type"`
	Status           AircraftStatus `json:"status"`
	TotalFlyingHours float64        `json:"total_flying_hours" validate:"gte=0"`
	CurrentFuelLevel float64        `json:"current_fuel_level" validate:"gte=0"`
	TirePressureMain float64        `json:"tire_pressure_main" validate:"gte=0"`
	TirePressureNose float64        `json:"tire_pressure_nose" validate:"gte=0"`
	LastPostFlyingID string         `json:"last_post_flying_id,omitempty"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
