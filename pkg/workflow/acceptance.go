package workflow

import (
	"context"
	"slices"

	"github.com/dukex/flightline/pkg/events"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/signoff"
)

// AcceptanceUpdate changes a draft pilot acceptance. Nil fields are left as they are.
type AcceptanceUpdate struct {
	Checks   map[models.ChecklistItem]bool `json:"checks,omitempty"`
	Readings *models.AcceptanceReadings    `json:"readings,omitempty"`
	Remarks  *string                       `json:"remarks,omitempty"`
}

func (c *Controller) acceptanceOp(
	ctx context.Context,
	op, aircraftID string,
	fn func(t *tx, acc *models.PilotAcceptance) error,
) (*models.PilotAcceptance, error) {
	var out *models.PilotAcceptance

	err := c.run(ctx, "acceptance."+op, aircraftID, func(t *tx) error {
		acc, err := t.acceptance()
		if err != nil {
			return err
		}

		if err := fn(t, acc); err != nil {
			return err
		}

		t.saveAcceptance(acc)
		out = acc

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (t *tx) editableAcceptance(acc *models.PilotAcceptance) error {
	if acc.Status != models.AcceptanceStatusDraft {
		return opserr.New(opserr.CodePreconditionNotMet, "pilot acceptance is %s and read-only", acc.Status)
	}

	if t.state.Stage != models.StagePilotAcceptance {
		return opserr.New(opserr.CodeStageLocked, "workflow is at %s, not %s", t.state.Stage, models.StagePilotAcceptance)
	}

	return nil
}

// UpdateAcceptance records checklist answers, readings and remarks on the draft acceptance.
func (c *Controller) UpdateAcceptance(ctx context.Context, aircraftID string, update AcceptanceUpdate) (*models.PilotAcceptance, error) {
	return c.acceptanceOp(ctx, "update", aircraftID, func(t *tx, acc *models.PilotAcceptance) error {
		if err := t.editableAcceptance(acc); err != nil {
			return err
		}

		var unknown []string

		for item := range update.Checks {
			if !slices.Contains(models.AcceptanceChecklist, item) {
				unknown = append(unknown, string(item))
			}
		}

		if len(unknown) > 0 {
			slices.Sort(unknown)

			return opserr.WithMissing(opserr.CodeInvalidInput, "unknown checklist items", unknown)
		}

		if update.Readings != nil {
			if err := validateInput(update.Readings); err != nil {
				return err
			}

			acc.Readings = *update.Readings
		}

		if acc.Checks == nil {
			acc.Checks = map[models.ChecklistItem]bool{}
		}

		for item, ok := range update.Checks {
			acc.Checks[item] = ok
		}

		if update.Remarks != nil {
			acc.Remarks = *update.Remarks
		}

		return nil
	})
}

// SignAcceptance is the terminal pilot signature. Every checklist item must be confirmed
// and the linked BFS must still be approved.
func (c *Controller) SignAcceptance(ctx context.Context, aircraftID, pno, pin string) (*models.PilotAcceptance, error) {
	return c.acceptanceOp(ctx, "sign_pilot", aircraftID, func(t *tx, acc *models.PilotAcceptance) error {
		if err := alreadySigned(acc.Signatures, models.SlotPilot); err != nil {
			return err
		}

		if err := t.editableAcceptance(acc); err != nil {
			return err
		}

		if unchecked := acc.UncheckedItems(); len(unchecked) > 0 {
			return opserr.WithMissing(opserr.CodeChecklistIncomplete, "WARNING: not all checks complete", unchecked)
		}

		bfs, err := t.servicing(models.ServicingBFS)
		if err != nil {
			return err
		}

		if bfs.ID != acc.BFSID || !bfs.IsTerminal() {
			return opserr.New(opserr.CodePreconditionNotMet, "linked BFS %s is not approved", acc.BFSID)
		}

		candidate, err := t.c.lookup(t.ctx, pno)
		if err != nil {
			return err
		}

		sig, err := t.c.verifier.Verify(&acc.Signatures, models.SlotPilot, candidate, pin, signoff.Requirement{Role: models.RolePilot})
		if err != nil {
			return err
		}

		acceptedAt := t.now
		acc.Status = models.AcceptanceStatusAccepted
		acc.AcceptedAt = &acceptedAt
		t.terminal = true

		t.signed("ACCEPTANCE", acc.ID, sig)
		t.emit(events.AcceptanceSigned{
			BaseEvent:    t.base(events.AcceptanceSignedEvent),
			AcceptanceID: acc.ID,
			PilotPNO:     sig.PNO,
		})

		t.c.logger.Info("Pilot acceptance signed", "aircraft_id", acc.AircraftID, "acceptance_id", acc.ID, "pilot", sig.PNO)

		return nil
	})
}
