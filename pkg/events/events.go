// Package events defines event types and structures for flying operations lifecycle notifications.
package events

import (
	"time"

	"github.com/dukex/flightline/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic is the Kafka topic every workflow event is published on.
const Topic = "flightline.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow lifecycle events.
	StageEnteredEvent  EventType = "workflow.stage_entered"
	WorkflowResetEvent EventType = "workflow.reset"

	// Sign-off events.
	SignatureAppliedEvent     EventType = "signature.applied"
	SignatureInvalidatedEvent EventType = "signature.invalidated"

	// Stage completion events.
	ServicingCompletedEvent  EventType = "servicing.completed"
	AcceptanceSignedEvent    EventType = "acceptance.signed"
	PostFlightCompletedEvent EventType = "post_flight.completed"

	// Maintenance events.
	JobCardSignedEvent EventType = "job_card.ato_signed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	AircraftID string         `json:"aircraft_id"`
	Cycle      int            `json:"cycle,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, aircraftID string, cycle int) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		AircraftID: aircraftID,
		Cycle:      cycle,
	}
}

type StageEntered struct {
	BaseEvent

	From     models.Stage `json:"from"`
	To       models.Stage `json:"to"`
	RecordID string       `json:"record_id,omitempty"`
}

func (e StageEntered) GetType() EventType {
	return StageEnteredEvent
}

type WorkflowReset struct {
	BaseEvent

	PreviousStage models.Stage `json:"previous_stage"`
	PreviousCycle int          `json:"previous_cycle"`
}

func (e WorkflowReset) GetType() EventType {
	return WorkflowResetEvent
}

type SignatureApplied struct {
	BaseEvent

	RecordKind string           `json:"record_kind"`
	RecordID   string           `json:"record_id"`
	Signature  models.Signature `json:"signature"`
}

func (e SignatureApplied) GetType() EventType {
	return SignatureAppliedEvent
}

type SignatureInvalidated struct {
	BaseEvent

	RecordKind string        `json:"record_kind"`
	RecordID   string        `json:"record_id"`
	PNO        string        `json:"pno"`
	Slots      []models.Slot `json:"slots"`
}

func (e SignatureInvalidated) GetType() EventType {
	return SignatureInvalidatedEvent
}

type ServicingCompleted struct {
	BaseEvent

	RecordID string                 `json:"record_id"`
	Kind     models.ServicingKind   `json:"kind"`
	Status   models.ServicingStatus `json:"status"`
}

func (e ServicingCompleted) GetType() EventType {
	return ServicingCompletedEvent
}

type AcceptanceSigned struct {
	BaseEvent

	AcceptanceID string `json:"acceptance_id"`
	PilotPNO     string `json:"pilot_pno"`
}

func (e AcceptanceSigned) GetType() EventType {
	return AcceptanceSignedEvent
}

type PostFlightCompleted struct {
	BaseEvent

	PostFlyingID string                  `json:"post_flying_id"`
	FlightStatus models.FlightStatus     `json:"flight_status"`
	DefectStatus models.DefectStatus     `json:"defect_status"`
	FinalStatus  models.PostFlyingStatus `json:"final_status"`
	Data         models.FlightData       `json:"data"`
}

func (e PostFlightCompleted) GetType() EventType {
	return PostFlightCompletedEvent
}

type JobCardSigned struct {
	BaseEvent

	JobCardID     string                 `json:"job_card_id"`
	Maintenance   models.MaintenanceType `json:"maintenance_type"`
	TotalManHours float64                `json:"total_man_hours"`
}

func (e JobCardSigned) GetType() EventType {
	return JobCardSignedEvent
}
