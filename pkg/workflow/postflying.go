package workflow

import (
	"context"
	"slices"

	"github.com/dukex/flightline/pkg/events"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/outcome"
	"github.com/dukex/flightline/pkg/signoff"
)

// stages from which the post-flight record can still be closed by the engineer.
var postFlyingStages = []models.Stage{models.StagePostFlying, models.StageAFS, models.StageDone}

func (c *Controller) postFlyingOp(
	ctx context.Context,
	op, aircraftID string,
	fn func(t *tx, pf *models.PostFlying) error,
) (*models.PostFlying, error) {
	var out *models.PostFlying

	err := c.run(ctx, "post_flying."+op, aircraftID, func(t *tx) error {
		pf, err := t.postFlying()
		if err != nil {
			return err
		}

		if err := fn(t, pf); err != nil {
			return err
		}

		t.savePostFlying(pf)
		out = pf

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// editablePostFlying allows changes to the flight report until the pilot authenticates it.
func (t *tx) editablePostFlying(pf *models.PostFlying) error {
	if pf.Status != models.PostFlyingStatusDraft {
		return opserr.New(opserr.CodePreconditionNotMet, "post-flying is %s, flight data can no longer change", pf.Status)
	}

	if t.state.Stage != models.StagePostFlying {
		return opserr.New(opserr.CodeStageLocked, "workflow is at %s, not %s", t.state.Stage, models.StagePostFlying)
	}

	return nil
}

func (t *tx) resolve(pf *models.PostFlying) (outcome.Outcome, error) {
	if pf.FlightStatus == "" || pf.DefectStatus == "" {
		return outcome.Outcome{}, opserr.New(opserr.CodePreconditionNotMet, "flight outcome has not been recorded")
	}

	return t.c.resolver.Resolve(pf.FlightStatus, pf.DefectStatus)
}

// RecordOutcome sets how the flight ended and whether defects were found.
func (c *Controller) RecordOutcome(
	ctx context.Context,
	aircraftID string,
	flight models.FlightStatus,
	defect models.DefectStatus,
) (*models.PostFlying, error) {
	return c.postFlyingOp(ctx, "record_outcome", aircraftID, func(t *tx, pf *models.PostFlying) error {
		if _, err := t.c.resolver.Resolve(flight, defect); err != nil {
			return err
		}

		if err := t.editablePostFlying(pf); err != nil {
			return err
		}

		pf.FlightStatus = flight
		pf.DefectStatus = defect

		return nil
	})
}

// RecordFlightData replaces the flight figures of the draft report.
func (c *Controller) RecordFlightData(ctx context.Context, aircraftID string, data models.FlightData) (*models.PostFlying, error) {
	return c.postFlyingOp(ctx, "record_flight_data", aircraftID, func(t *tx, pf *models.PostFlying) error {
		if err := validateInput(data); err != nil {
			return err
		}

		if err := t.editablePostFlying(pf); err != nil {
			return err
		}

		pf.Data = data

		return nil
	})
}

// AuthenticatePilotData has the pilot who accepted the aircraft confirm the flight report.
// Every field the outcome requires must be present.
func (c *Controller) AuthenticatePilotData(ctx context.Context, aircraftID, pno, pin string) (*models.PostFlying, error) {
	return c.postFlyingOp(ctx, "sign_pilot", aircraftID, func(t *tx, pf *models.PostFlying) error {
		if err := alreadySigned(pf.Signatures, models.SlotPilot); err != nil {
			return err
		}

		if err := t.editablePostFlying(pf); err != nil {
			return err
		}

		out, err := t.resolve(pf)
		if err != nil {
			return err
		}

		if missing := out.Missing(pf.Data); len(missing) > 0 {
			return opserr.WithMissing(opserr.CodeMissingReading, "missing flight data", missing)
		}

		candidate, err := t.c.lookup(t.ctx, pno)
		if err != nil {
			return err
		}

		req := signoff.Requirement{Role: models.RolePilot, Members: []string{pf.PilotPNO}}

		sig, err := t.c.verifier.Verify(&pf.Signatures, models.SlotPilot, candidate, pin, req)
		if err != nil {
			return err
		}

		pf.Status = models.PostFlyingStatusPilotAuthenticated
		t.signed("POST_FLYING", pf.ID, sig)

		return nil
	})
}

// SignEngineer is the terminal engineer signature. The record takes the final status of
// its outcome; outcomes that do not continue to AFS end the cycle at MAINTENANCE_REQUIRED.
func (c *Controller) SignEngineer(ctx context.Context, aircraftID, pno, pin string) (*models.PostFlying, error) {
	return c.postFlyingOp(ctx, "sign_engineer", aircraftID, func(t *tx, pf *models.PostFlying) error {
		if err := alreadySigned(pf.Signatures, models.SlotEngineer); err != nil {
			return err
		}

		if !slices.Contains(postFlyingStages, t.state.Stage) {
			return opserr.New(opserr.CodeStageLocked, "workflow is at %s", t.state.Stage)
		}

		if !pf.PilotDataAuthenticated() {
			return opserr.WithMissing(opserr.CodePreconditionNotMet, "pilot data not authenticated", []string{string(models.SlotPilot)})
		}

		out, err := t.resolve(pf)
		if err != nil {
			return err
		}

		if missing := out.Missing(pf.Data); len(missing) > 0 {
			return opserr.WithMissing(opserr.CodeMissingReading, "missing flight data", missing)
		}

		candidate, err := t.c.lookup(t.ctx, pno)
		if err != nil {
			return err
		}

		sig, err := t.c.verifier.Verify(&pf.Signatures, models.SlotEngineer, candidate, pin, signoff.Requirement{Role: models.RoleEngineer})
		if err != nil {
			return err
		}

		completedAt := t.now
		pf.Status = out.FinalStatus
		pf.CompletedAt = &completedAt
		t.terminal = true

		t.signed("POST_FLYING", pf.ID, sig)
		t.emit(events.PostFlightCompleted{
			BaseEvent:    t.base(events.PostFlightCompletedEvent),
			PostFlyingID: pf.ID,
			FlightStatus: pf.FlightStatus,
			DefectStatus: pf.DefectStatus,
			FinalStatus:  pf.Status,
			Data:         pf.Data,
		})

		if !out.AllowsAFS() && t.state.Stage == models.StagePostFlying {
			t.moveTo(models.StageMaintenanceRequired, pf.ID)
		}

		t.c.logger.Info("Post-flying completed", "aircraft_id", pf.AircraftID, "post_flying_id", pf.ID, "status", pf.Status)

		return nil
	})
}
