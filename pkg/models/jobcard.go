package models

import (
	"slices"
	"time"
)

// MaintenanceType is a scheduled maintenance inspection.
type MaintenanceType string

const (
	Maintenance100Hourly MaintenanceType = "100_HOURLY"
	Maintenance200Hourly MaintenanceType = "200_HOURLY"
	MaintenanceWeekly    MaintenanceType = "WEEKLY"
	Maintenance3Monthly  MaintenanceType = "3_MONTHLY"
	Maintenance6Monthly  MaintenanceType = "6_MONTHLY"
	Maintenance12Monthly MaintenanceType = "12_MONTHLY"
)

// MaintenanceSections are the trades a job card is split into.
var MaintenanceSections = []Trade{TradeAE, TradeAL, TradeAR, TradeAO}

// JobCardStatus is the status of a job card.
type JobCardStatus string

const (
	JobCardStatusOpen      JobCardStatus = "OPEN"
	JobCardStatusATOSigned JobCardStatus = "ATO_SIGNED"
)

// Job is one line of work on a job card. Tradesmen sign the section slot, supervisors SUPERVISOR.
type Job struct {
	ID          string       `json:"id"`
	Section     Trade        `json:"section"     validate:"required,oneof=AE AL AR AO"`
	Description string       `json:"description" validate:"required"`
	ManHours    float64      `json:"man_hours"   validate:"gte=0"`
	Remarks     string       `json:"remarks,omitempty"`
	Signatures  SignatureSet `json:"signatures"`
}

// TradesmanSigned reports whether at least one tradesman of the section signed.
func (j *Job) TradesmanSigned() bool {
	return j.Signatures.HasSlot(TradeSlot(j.Section))
}

// SupervisorSigned reports whether at least one supervisor signed.
func (j *Job) SupervisorSigned() bool {
	return j.Signatures.HasSlot(SlotSupervisor)
}

// JobCard is a scheduled maintenance work package for one aircraft.
type JobCard struct {
	ID         string          `json:"id"`
	AircraftID string          `json:"aircraft_id"         validate:"required"`
	Type       MaintenanceType `json:"type"                validate:"required"`
	Jobs       []Job           `json:"jobs"`
	Signatures SignatureSet    `json:"signatures"`
	Status     JobCardStatus   `json:"status"              validate:"required"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	SignedAt   *time.Time      `json:"signed_at,omitempty"`
}

// TotalManHours sums the man-hours of jobs a supervisor has signed.
func (c *JobCard) TotalManHours() float64 {
	var total float64

	for i := range c.Jobs {
		if c.Jobs[i].SupervisorSigned() {
			total += c.Jobs[i].ManHours
		}
	}

	return total
}

// JobIndex returns the index of the job with id, or -1.
func (c *JobCard) JobIndex(id string) int {
	return slices.IndexFunc(c.Jobs, func(j Job) bool { return j.ID == id })
}
