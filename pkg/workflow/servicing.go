package workflow

import (
	"context"
	"slices"
	"strings"

	"github.com/dukex/flightline/pkg/events"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/signoff"
)

// dataTrade is the trade that enters and authenticates servicing readings.
const dataTrade = models.TradeAE

// steps in which the crew of a servicing record can still change.
var staffingSteps = []models.SubStep{
	models.SubStepPersonnelAssign,
	models.SubStepDataEntry,
	models.SubStepTradesmenSign,
}

func (c *Controller) servicingOp(
	ctx context.Context,
	op, aircraftID string,
	kind models.ServicingKind,
	fn func(t *tx) (*models.ServicingRecord, error),
) (*models.ServicingRecord, error) {
	op = strings.ToLower(string(kind)) + "." + op

	if kind != models.ServicingBFS && kind != models.ServicingAFS {
		return nil, c.fail(op, opserr.New(opserr.CodeInvalidInput, "unknown servicing kind %q", kind))
	}

	var out *models.ServicingRecord

	err := c.run(ctx, op, aircraftID, func(t *tx) error {
		rec, err := fn(t)
		if err != nil {
			return err
		}

		t.saveServicing(rec)
		out = rec

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// openServicing loads the record of kind for mutation at one of steps.
func (t *tx) openServicing(kind models.ServicingKind, steps ...models.SubStep) (*models.ServicingRecord, error) {
	rec, err := t.servicing(kind)
	if err != nil {
		return nil, err
	}

	if err := t.editable(rec, steps...); err != nil {
		return nil, err
	}

	return rec, nil
}

func (t *tx) editable(rec *models.ServicingRecord, steps ...models.SubStep) error {
	if rec.IsTerminal() {
		return opserr.New(opserr.CodePreconditionNotMet, "%s is %s and read-only", rec.Kind, rec.Status)
	}

	if stage := stageOf(rec.Kind); t.state.Stage != stage {
		return opserr.New(opserr.CodeStageLocked, "workflow is at %s, not %s", t.state.Stage, stage)
	}

	if len(steps) > 0 && !slices.Contains(steps, rec.SubStep) {
		return opserr.New(opserr.CodePreconditionNotMet, "%s is at %s, expected %s", rec.Kind, rec.SubStep, joinSteps(steps))
	}

	return nil
}

func joinSteps(steps []models.SubStep) string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = string(s)
	}

	return strings.Join(names, " or ")
}

func workTrade(trade models.Trade) error {
	if !slices.Contains(models.WorkTrades, trade) {
		return opserr.New(opserr.CodeInvalidInput, "%q is not a servicing trade", trade)
	}

	return nil
}

// guard checks that the current sub-step of rec is complete, reporting every missing item.
func (t *tx) guard(rec *models.ServicingRecord) error {
	switch rec.SubStep {
	case models.SubStepFSIInitAuth:
		if !rec.Signatures.HasSlot(models.SlotFSIInit) {
			return opserr.WithMissing(opserr.CodeUnsignedSlots, "unsigned slots", []string{string(models.SlotFSIInit)})
		}

	case models.SubStepPersonnelAssign:
		supervisorPNO := ""
		if rec.Supervisor != nil {
			supervisorPNO = rec.Supervisor.PNO
		}

		supervisor, err := t.c.assignments.ValidateComplete(t.ctx, rec.SelectedTrades, rec.Assignment, supervisorPNO, rec.Variant.SupervisorRequired)
		if err != nil {
			return err
		}

		if supervisor != nil {
			ref := supervisor.Ref()
			rec.Supervisor = &ref
		}

		rec.Status = models.ServicingStatusPersonnelAssigned

	case models.SubStepDataEntry:
		if err := dataAuthenticated(rec); err != nil {
			return err
		}

		rec.Status = models.ServicingStatusDataEntered

	case models.SubStepTradesmenSign:
		if err := dataAuthenticated(rec); err != nil {
			return err
		}

		if missing := rec.UnsignedTrades(); len(missing) > 0 {
			return opserr.WithMissing(opserr.CodeUnsignedSlots, "unsigned trades", missing)
		}

	case models.SubStepSupervisorSign:
		if !rec.Signatures.HasSlot(models.SlotSupervisor) {
			return opserr.WithMissing(opserr.CodeUnsignedSlots, "unsigned slots", []string{string(models.SlotSupervisor)})
		}

	case models.SubStepFSIFinalApprove:
		if !rec.Signatures.HasSlot(models.SlotFSI) {
			return opserr.WithMissing(opserr.CodeUnsignedSlots, "unsigned slots", []string{string(models.SlotFSI)})
		}

	default:
		return opserr.New(opserr.CodePreconditionNotMet, "%s is already complete", rec.Kind)
	}

	return nil
}

func dataAuthenticated(rec *models.ServicingRecord) error {
	if !rec.Variant.DataEntry {
		return nil
	}

	if missing := rec.Readings.Missing(); len(missing) > 0 {
		return opserr.WithMissing(opserr.CodeMissingReading, "missing readings", missing)
	}

	if !rec.Signatures.HasSlot(models.DataSlot(dataTrade)) {
		return opserr.WithMissing(opserr.CodeUnsignedSlots, "readings not authenticated", []string{string(models.DataSlot(dataTrade))})
	}

	return nil
}

// prerequisites lists every signature the terminal approval of rec depends on.
func prerequisites(rec *models.ServicingRecord) []string {
	var missing []string

	if rec.Variant.SeparateFSIAuth && !rec.Signatures.HasSlot(models.SlotFSIInit) {
		missing = append(missing, string(models.SlotFSIInit))
	}

	if rec.Variant.DataEntry && !rec.Signatures.HasSlot(models.DataSlot(dataTrade)) {
		missing = append(missing, string(models.DataSlot(dataTrade)))
	}

	missing = append(missing, rec.UnsignedTrades()...)

	if rec.Variant.SupervisorRequired && !rec.Signatures.HasSlot(models.SlotSupervisor) {
		missing = append(missing, string(models.SlotSupervisor))
	}

	return missing
}

// advance moves rec past its current sub-step once the guard holds. Reaching DONE
// closes the record.
func (t *tx) advance(rec *models.ServicingRecord) error {
	if err := t.guard(rec); err != nil {
		return err
	}

	rec.SubStep = rec.Variant.Next(rec.SubStep)
	if rec.SubStep == models.SubStepDone {
		t.completeServicing(rec)
	}

	return nil
}

func (t *tx) completeServicing(rec *models.ServicingRecord) {
	completedAt := t.now
	rec.Status = rec.TerminalStatus()
	rec.CompletedAt = &completedAt
	t.terminal = true

	t.emit(events.ServicingCompleted{
		BaseEvent: t.base(events.ServicingCompletedEvent),
		RecordID:  rec.ID,
		Kind:      rec.Kind,
		Status:    rec.Status,
	})

	if rec.Kind == models.ServicingAFS {
		t.moveTo(models.StageDone, rec.ID)
	}

	t.c.logger.Info("Servicing completed", "aircraft_id", rec.AircraftID, "kind", rec.Kind, "record_id", rec.ID, "status", rec.Status)
}

// sign resolves pno, verifies the PIN against req and appends the signature for slot.
func (t *tx) sign(rec *models.ServicingRecord, slot models.Slot, pno, pin string, req signoff.Requirement) (models.Signature, error) {
	candidate, err := t.c.lookup(t.ctx, pno)
	if err != nil {
		return models.Signature{}, err
	}

	sig, err := t.c.verifier.Verify(&rec.Signatures, slot, candidate, pin, req)
	if err != nil {
		return models.Signature{}, err
	}

	t.signed(string(rec.Kind), rec.ID, sig)

	return sig, nil
}

// alreadySigned rejects a terminal slot that carries someone's signature.
func alreadySigned(sigs models.SignatureSet, slot models.Slot) error {
	if sig, ok := sigs.First(slot); ok {
		return opserr.New(opserr.CodeAlreadySigned, "%s already signed by %s", slot, sig.PNO)
	}

	return nil
}

// AuthenticateFSI records the inspector who opens the servicing.
func (c *Controller) AuthenticateFSI(ctx context.Context, aircraftID string, kind models.ServicingKind, pno, pin string) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "authenticate_fsi", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		rec, err := t.openServicing(kind, models.SubStepFSIInitAuth)
		if err != nil {
			return nil, err
		}

		sig, err := t.sign(rec, models.SlotFSIInit, pno, pin, signoff.Requirement{Role: models.RoleFSI})
		if err != nil {
			return nil, err
		}

		rec.Inspector = &models.PersonnelRef{PNO: sig.PNO, Name: sig.Name, Rank: sig.Rank, Trade: sig.Trade}

		return rec, t.advance(rec)
	})
}

// SelectTrade adds trade to the work of the servicing.
func (c *Controller) SelectTrade(ctx context.Context, aircraftID string, kind models.ServicingKind, trade models.Trade) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "select_trade", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		if err := workTrade(trade); err != nil {
			return nil, err
		}

		rec, err := t.openServicing(kind, models.SubStepPersonnelAssign)
		if err != nil {
			return nil, err
		}

		if !rec.IsSelected(trade) {
			rec.SelectedTrades = append(rec.SelectedTrades, trade)
		}

		return rec, nil
	})
}

// DeselectTrade removes trade from the work and clears its assignees.
func (c *Controller) DeselectTrade(ctx context.Context, aircraftID string, kind models.ServicingKind, trade models.Trade) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "deselect_trade", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		if err := workTrade(trade); err != nil {
			return nil, err
		}

		rec, err := t.openServicing(kind, models.SubStepPersonnelAssign)
		if err != nil {
			return nil, err
		}

		if slices.Contains(rec.Variant.MandatoryTrades, trade) {
			return nil, opserr.New(opserr.CodePreconditionNotMet, "%s is mandatory for %s", trade, kind)
		}

		rec.SelectedTrades = slices.DeleteFunc(rec.SelectedTrades, func(s models.Trade) bool { return s == trade })
		t.c.assignments.Clear(&rec.Assignment, &rec.Signatures, trade)

		return rec, nil
	})
}

// Assign puts the person pno on trade. In single-assignment variants the current
// assignee is replaced and loses their signatures.
func (c *Controller) Assign(ctx context.Context, aircraftID string, kind models.ServicingKind, trade models.Trade, pno string) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "assign", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		if err := workTrade(trade); err != nil {
			return nil, err
		}

		rec, err := t.openServicing(kind, staffingSteps...)
		if err != nil {
			return nil, err
		}

		if !rec.IsSelected(trade) {
			if rec.SubStep != models.SubStepPersonnelAssign {
				return nil, opserr.New(opserr.CodePreconditionNotMet, "%s is not part of this %s", trade, kind)
			}

			rec.SelectedTrades = append(rec.SelectedTrades, trade)
		}

		candidate, err := t.c.lookup(t.ctx, pno)
		if err != nil {
			return nil, err
		}

		replaced, err := t.c.assignments.Assign(&rec.Assignment, &rec.Signatures, trade, candidate)
		if err != nil {
			return nil, err
		}

		if replaced != nil {
			t.invalidated(string(kind), rec.ID, replaced.PNO, models.TradeSlot(trade), models.DataSlot(trade))
			reopenDataEntry(rec, trade)
		}

		return rec, nil
	})
}

// Unassign removes pno from trade and invalidates their signatures.
func (c *Controller) Unassign(ctx context.Context, aircraftID string, kind models.ServicingKind, trade models.Trade, pno string) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "unassign", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		if err := workTrade(trade); err != nil {
			return nil, err
		}

		rec, err := t.openServicing(kind, staffingSteps...)
		if err != nil {
			return nil, err
		}

		if err := t.c.assignments.Unassign(&rec.Assignment, &rec.Signatures, trade, pno); err != nil {
			return nil, err
		}

		t.invalidated(string(kind), rec.ID, pno, models.TradeSlot(trade), models.DataSlot(trade))
		reopenDataEntry(rec, trade)

		return rec, nil
	})
}

// reopenDataEntry moves rec back to DATA_ENTRY when a roster change on the data trade
// removed the readings authentication after that step was passed.
func reopenDataEntry(rec *models.ServicingRecord, trade models.Trade) {
	if trade != dataTrade || !rec.Variant.DataEntry || rec.SubStep != models.SubStepTradesmenSign {
		return
	}

	if rec.Signatures.HasSlot(models.DataSlot(dataTrade)) {
		return
	}

	rec.SubStep = models.SubStepDataEntry
	rec.Status = models.ServicingStatusPersonnelAssigned
}

// SetSupervisor names the SUP tradesman who will countersign the work.
func (c *Controller) SetSupervisor(ctx context.Context, aircraftID string, kind models.ServicingKind, pno string) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "set_supervisor", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		rec, err := t.openServicing(kind, staffingSteps...)
		if err != nil {
			return nil, err
		}

		if strings.TrimSpace(pno) == "" {
			return nil, opserr.New(opserr.CodeNoSupervisor, "supervisor is required")
		}

		supervisor, err := t.c.lookup(t.ctx, pno)
		if err != nil {
			if opserr.HasCode(err, opserr.CodePersonnelNotFound) {
				return nil, opserr.New(opserr.CodeNoSupervisor, "supervisor %s not found", pno)
			}

			return nil, err
		}

		if supervisor.Trade != models.TradeSUP {
			return nil, opserr.New(opserr.CodeNotSupervisorTrade, "%s is trade %s, supervisor must be SUP", supervisor.PNO, supervisor.Trade)
		}

		if rec.Supervisor != nil && !strings.EqualFold(rec.Supervisor.PNO, supervisor.PNO) {
			if rec.Signatures.Invalidate(rec.Supervisor.PNO, models.SlotSupervisor) > 0 {
				t.invalidated(string(kind), rec.ID, rec.Supervisor.PNO, models.SlotSupervisor)
			}
		}

		ref := supervisor.Ref()
		rec.Supervisor = &ref

		return rec, nil
	})
}

// Advance moves the servicing to its next sub-step when the current one is complete.
func (c *Controller) Advance(ctx context.Context, aircraftID string, kind models.ServicingKind) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "advance", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		rec, err := t.openServicing(kind)
		if err != nil {
			return nil, err
		}

		return rec, t.advance(rec)
	})
}

// EnterReadings stores the servicing readings. Fields left nil keep their value.
// Any earlier authentication of the readings is invalidated.
func (c *Controller) EnterReadings(ctx context.Context, aircraftID string, kind models.ServicingKind, readings models.Readings) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "enter_readings", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		if err := validateInput(readings); err != nil {
			return nil, err
		}

		rec, err := t.openServicing(kind, models.SubStepDataEntry)
		if err != nil {
			return nil, err
		}

		if readings.FuelQuantity != nil {
			rec.Readings.FuelQuantity = readings.FuelQuantity
		}

		if readings.TyrePressureMain != nil {
			rec.Readings.TyrePressureMain = readings.TyrePressureMain
		}

		if readings.TyrePressureNose != nil {
			rec.Readings.TyrePressureNose = readings.TyrePressureNose
		}

		if readings.OilFilled != nil {
			rec.Readings.OilFilled = readings.OilFilled
		}

		slot := models.DataSlot(dataTrade)
		for _, pno := range rec.Signatures.InvalidateSlot(slot) {
			t.invalidated(string(kind), rec.ID, pno, slot)
		}

		return rec, nil
	})
}

// AuthenticateReadings has the assigned Air Engineer confirm the readings by PIN.
func (c *Controller) AuthenticateReadings(ctx context.Context, aircraftID string, kind models.ServicingKind, pno, pin string) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "authenticate_readings", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		rec, err := t.openServicing(kind, models.SubStepDataEntry)
		if err != nil {
			return nil, err
		}

		if missing := rec.Readings.Missing(); len(missing) > 0 {
			return nil, opserr.WithMissing(opserr.CodeMissingReading, "missing readings", missing)
		}

		req := signoff.Requirement{Trade: dataTrade, Members: rec.Assignment.Members(dataTrade)}
		if _, err := t.sign(rec, models.DataSlot(dataTrade), pno, pin, req); err != nil {
			return nil, err
		}

		return rec, t.advance(rec)
	})
}

// SignTradesman applies the sign-off of an assigned tradesman for trade.
func (c *Controller) SignTradesman(ctx context.Context, aircraftID string, kind models.ServicingKind, trade models.Trade, pno, pin string) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "sign_tradesman", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		if err := workTrade(trade); err != nil {
			return nil, err
		}

		rec, err := t.openServicing(kind, models.SubStepTradesmenSign)
		if err != nil {
			return nil, err
		}

		if !rec.IsSelected(trade) {
			return nil, opserr.New(opserr.CodePreconditionNotMet, "%s is not part of this %s", trade, kind)
		}

		req := signoff.Requirement{Trade: trade, Members: rec.Assignment.Members(trade)}
		if _, err := t.sign(rec, models.TradeSlot(trade), pno, pin, req); err != nil {
			return nil, err
		}

		return rec, nil
	})
}

// SignSupervisor applies the supervisor countersignature once every tradesman has signed.
// When the variant has no final approval this closes the servicing.
func (c *Controller) SignSupervisor(ctx context.Context, aircraftID string, kind models.ServicingKind, pno, pin string) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "sign_supervisor", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		rec, err := t.servicing(kind)
		if err != nil {
			return nil, err
		}

		if err := alreadySigned(rec.Signatures, models.SlotSupervisor); err != nil {
			return nil, err
		}

		if err := t.editable(rec, models.SubStepSupervisorSign); err != nil {
			return nil, err
		}

		if rec.Supervisor == nil {
			return nil, opserr.New(opserr.CodeNoSupervisor, "no supervisor set for %s", kind)
		}

		if missing := rec.UnsignedTrades(); len(missing) > 0 {
			return nil, opserr.WithMissing(opserr.CodeUnsignedSlots, "unsigned trades", missing)
		}

		req := signoff.Requirement{Trade: models.TradeSUP, Members: []string{rec.Supervisor.PNO}}
		if _, err := t.sign(rec, models.SlotSupervisor, pno, pin, req); err != nil {
			return nil, err
		}

		return rec, t.advance(rec)
	})
}

// FinalApprove is the terminal FSI signature. Every prerequisite signature is
// re-checked against the stored record first.
func (c *Controller) FinalApprove(ctx context.Context, aircraftID string, kind models.ServicingKind, pno, pin string) (*models.ServicingRecord, error) {
	return c.servicingOp(ctx, "final_approve", aircraftID, kind, func(t *tx) (*models.ServicingRecord, error) {
		rec, err := t.servicing(kind)
		if err != nil {
			return nil, err
		}

		if err := alreadySigned(rec.Signatures, models.SlotFSI); err != nil {
			return nil, err
		}

		if err := t.editable(rec, models.SubStepFSIFinalApprove); err != nil {
			return nil, err
		}

		if missing := prerequisites(rec); len(missing) > 0 {
			return nil, opserr.WithMissing(opserr.CodeUnsignedSlots, "unsigned slots", missing)
		}

		if err := dataAuthenticated(rec); err != nil {
			return nil, err
		}

		req := signoff.Requirement{Role: models.RoleFSI}
		if rec.Inspector != nil {
			req.Members = []string{rec.Inspector.PNO}
		}

		if _, err := t.sign(rec, models.SlotFSI, pno, pin, req); err != nil {
			return nil, err
		}

		return rec, t.advance(rec)
	})
}
