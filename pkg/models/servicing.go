package models

import (
	"slices"
	"time"
)

// ServicingKind distinguishes the two servicing stages that share the same record shape.
type ServicingKind string

const (
	ServicingBFS ServicingKind = "BFS" // Before-Flying-Service
	ServicingAFS ServicingKind = "AFS" // After-Flying-Servicing
)

// ServicingStatus is the persisted status of a servicing record.
type ServicingStatus string

const (
	ServicingStatusDraft             ServicingStatus = "DRAFT"
	ServicingStatusPersonnelAssigned ServicingStatus = "PERSONNEL_ASSIGNED"
	ServicingStatusDataEntered       ServicingStatus = "DATA_ENTERED"
	ServicingStatusFSIApproved       ServicingStatus = "FSI_APPROVED"
	ServicingStatusCompleted         ServicingStatus = "COMPLETED"
)

// SubStep is a position inside a servicing stage.
type SubStep string

const (
	SubStepFSIInitAuth     SubStep = "FSI_INIT_AUTH"
	SubStepPersonnelAssign SubStep = "PERSONNEL_ASSIGN"
	SubStepDataEntry       SubStep = "DATA_ENTRY"
	SubStepTradesmenSign   SubStep = "TRADESMEN_SIGN"
	SubStepSupervisorSign  SubStep = "SUPERVISOR_SIGN"
	SubStepFSIFinalApprove SubStep = "FSI_FINAL_APPROVE"
	SubStepDone            SubStep = "DONE"
)

// Variant configures which sub-steps a servicing stage has and how many people a trade takes.
type Variant struct {
	MaxPerTrade        int     `json:"max_per_trade"        validate:"gte=0"`
	SeparateFSIAuth    bool    `json:"separate_fsi_auth"`
	DataEntry          bool    `json:"data_entry"`
	FinalApproval      bool    `json:"final_approval"`
	SupervisorRequired bool    `json:"supervisor_required"`
	MandatoryTrades    []Trade `json:"mandatory_trades,omitempty"`
}

// DefaultBFSVariant is the before-flying configuration.
func DefaultBFSVariant() Variant {
	return Variant{
		MaxPerTrade:        1,
		SeparateFSIAuth:    true,
		DataEntry:          true,
		FinalApproval:      true,
		SupervisorRequired: true,
		MandatoryTrades:    []Trade{TradeAE},
	}
}

// DefaultAFSVariant is the after-flying configuration.
func DefaultAFSVariant() Variant {
	return Variant{
		MaxPerTrade:        0,
		SeparateFSIAuth:    true,
		SupervisorRequired: true,
	}
}

// Steps returns the sub-steps present in the variant, ending with SubStepDone.
func (v Variant) Steps() []SubStep {
	steps := make([]SubStep, 0, 7)

	if v.SeparateFSIAuth {
		steps = append(steps, SubStepFSIInitAuth)
	}

	steps = append(steps, SubStepPersonnelAssign)

	if v.DataEntry {
		steps = append(steps, SubStepDataEntry)
	}

	steps = append(steps, SubStepTradesmenSign)

	if v.SupervisorRequired {
		steps = append(steps, SubStepSupervisorSign)
	}

	if v.FinalApproval {
		steps = append(steps, SubStepFSIFinalApprove)
	}

	return append(steps, SubStepDone)
}

// First returns the sub-step a new record starts at.
func (v Variant) First() SubStep {
	return v.Steps()[0]
}

// Next returns the sub-step following step, or SubStepDone.
func (v Variant) Next(step SubStep) SubStep {
	steps := v.Steps()

	i := slices.Index(steps, step)
	if i < 0 || i == len(steps)-1 {
		return SubStepDone
	}

	return steps[i+1]
}

// Has reports whether step is part of the variant.
func (v Variant) Has(step SubStep) bool {
	return slices.Contains(v.Steps(), step)
}

// Readings are the servicing figures entered by the Air Engineer.
type Readings struct {
	FuelQuantity     *float64 `json:"fuel_quantity,omitempty"      validate:"omitempty,gte=0"`
	TyrePressureMain *float64 `json:"tyre_pressure_main,omitempty" validate:"omitempty,gte=0"`
	TyrePressureNose *float64 `json:"tyre_pressure_nose,omitempty" validate:"omitempty,gte=0"`
	OilFilled        *bool    `json:"oil_filled,omitempty"`
}

// Missing returns the names of readings that have not been entered.
func (r Readings) Missing() []string {
	var missing []string

	if r.FuelQuantity == nil {
		missing = append(missing, "fuel_quantity")
	}

	if r.TyrePressureMain == nil {
		missing = append(missing, "tyre_pressure_main")
	}

	if r.TyrePressureNose == nil {
		missing = append(missing, "tyre_pressure_nose")
	}

	if r.OilFilled == nil {
		missing = append(missing, "oil_filled")
	}

	return missing
}

// AFSPhase is the coarse progress of an after-flying servicing.
type AFSPhase string

const (
	AFSPhaseAssign AFSPhase = "ASSIGN"
	AFSPhaseWork   AFSPhase = "WORK"
	AFSPhaseDone   AFSPhase = "DONE"
)

// ServicingRecord is one occurrence of BFS or AFS for an aircraft.
type ServicingRecord struct {
	ID             string          `json:"id"`
	AircraftID     string          `json:"aircraft_id"              validate:"required"`
	Cycle          int             `json:"cycle"`
	Kind           ServicingKind   `json:"kind"                     validate:"required"`
	Variant        Variant         `json:"variant"`
	Status         ServicingStatus `json:"status"                   validate:"required"`
	SubStep        SubStep         `json:"sub_step"                 validate:"required"`
	SelectedTrades []Trade         `json:"selected_trades"`
	Assignment     Assignment      `json:"assignment"`
	Supervisor     *PersonnelRef   `json:"supervisor,omitempty"`
	Inspector      *PersonnelRef   `json:"inspector,omitempty"`
	Readings       Readings        `json:"readings"`
	Signatures     SignatureSet    `json:"signatures"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// NewServicingRecord returns a draft record at the first sub-step of variant.
func NewServicingRecord(kind ServicingKind, aircraftID string, cycle int, variant Variant, now time.Time) *ServicingRecord {
	selected := slices.Clone(variant.MandatoryTrades)

	return &ServicingRecord{
		AircraftID:     aircraftID,
		Cycle:          cycle,
		Kind:           kind,
		Variant:        variant,
		Status:         ServicingStatusDraft,
		SubStep:        variant.First(),
		SelectedTrades: selected,
		Assignment:     NewAssignment(variant.MaxPerTrade),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TerminalStatus is the status that closes the record.
func (r *ServicingRecord) TerminalStatus() ServicingStatus {
	if r.Variant.FinalApproval {
		return ServicingStatusFSIApproved
	}

	return ServicingStatusCompleted
}

// IsTerminal reports whether the record reached its terminal status.
func (r *ServicingRecord) IsTerminal() bool {
	return r.Status == r.TerminalStatus()
}

// IsSelected reports whether trade is part of the work.
func (r *ServicingRecord) IsSelected(trade Trade) bool {
	return slices.Contains(r.SelectedTrades, trade)
}

// UnsignedTrades returns each selected trade where an assignee has not signed, or nobody is assigned.
func (r *ServicingRecord) UnsignedTrades() []string {
	var missing []string

	for _, trade := range WorkTrades {
		if !r.IsSelected(trade) {
			continue
		}

		people := r.Assignment.Assigned(trade)
		if len(people) == 0 {
			missing = append(missing, string(trade))

			continue
		}

		for _, p := range people {
			if !r.Signatures.Has(TradeSlot(trade), p.PNO) {
				missing = append(missing, string(trade))

				break
			}
		}
	}

	return missing
}

// Phase maps the sub-step onto the coarse after-flying progress.
func (r *ServicingRecord) Phase() AFSPhase {
	switch r.SubStep {
	case SubStepFSIInitAuth, SubStepPersonnelAssign:
		return AFSPhaseAssign
	case SubStepDone:
		return AFSPhaseDone
	default:
		return AFSPhaseWork
	}
}
