package workflow

import (
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
)

// nextStage is the stage an operator may enter from stage. DONE and
// MAINTENANCE_REQUIRED are reached automatically and lead nowhere.
func nextStage(stage models.Stage) models.Stage {
	switch stage {
	case models.StageInit:
		return models.StageBFS
	case models.StageBFS:
		return models.StagePilotAcceptance
	case models.StagePilotAcceptance:
		return models.StagePostFlying
	case models.StagePostFlying:
		return models.StageAFS
	default:
		return ""
	}
}

func (t *tx) canEnter(stage models.Stage) error {
	if next := nextStage(t.state.Stage); next != stage {
		if t.state.Stage.IsTerminal() {
			return opserr.New(opserr.CodeStageLocked, "cycle %d ended at %s, start a new operation", t.state.Cycle, t.state.Stage)
		}

		return opserr.New(opserr.CodeStageLocked, "cannot enter %s from %s", stage, t.state.Stage)
	}

	switch stage {
	case models.StageBFS:
		return nil

	case models.StagePilotAcceptance:
		bfs, err := t.servicing(models.ServicingBFS)
		if err != nil {
			return err
		}

		if !bfs.IsTerminal() {
			return opserr.New(opserr.CodeStageLocked, "BFS is %s, pilot acceptance needs %s", bfs.Status, bfs.TerminalStatus())
		}

		return nil

	case models.StagePostFlying:
		acc, err := t.acceptance()
		if err != nil {
			return err
		}

		if acc.Status != models.AcceptanceStatusAccepted {
			return opserr.New(opserr.CodeStageLocked, "pilot acceptance is %s, post-flying needs %s", acc.Status, models.AcceptanceStatusAccepted)
		}

		return nil

	case models.StageAFS:
		pf, err := t.postFlying()
		if err != nil {
			return err
		}

		if !pf.PilotDataAuthenticated() {
			return opserr.New(opserr.CodeStageLocked, "post-flying pilot data is not authenticated")
		}

		out, err := t.c.resolver.Resolve(pf.FlightStatus, pf.DefectStatus)
		if err != nil {
			return err
		}

		if !out.AllowsAFS() {
			return opserr.New(opserr.CodeStageLocked, "AFS is not reachable after a %s flight with %s", pf.FlightStatus, pf.DefectStatus)
		}

		return nil

	default:
		return opserr.New(opserr.CodeStageLocked, "%s cannot be entered directly", stage)
	}
}

// enter creates the record of stage and points the workflow at it. canEnter must hold.
func (t *tx) enter(stage models.Stage) error {
	s := &t.state

	switch stage {
	case models.StageBFS:
		rec := models.NewServicingRecord(models.ServicingBFS, s.AircraftID, s.Cycle, t.c.bfsVariant, t.now)
		rec.ID = t.c.newID()
		s.BFSID = rec.ID
		t.saveServicing(rec)
		t.moveTo(stage, rec.ID)

	case models.StagePilotAcceptance:
		acc := models.NewPilotAcceptance(s.AircraftID, s.BFSID, s.Cycle, t.now)
		acc.ID = t.c.newID()
		s.AcceptanceID = acc.ID
		t.saveAcceptance(acc)
		t.moveTo(stage, acc.ID)

	case models.StagePostFlying:
		acc, err := t.acceptance()
		if err != nil {
			return err
		}

		pilot, ok := acc.Pilot()
		if !ok {
			return opserr.New(opserr.CodePreconditionNotMet, "accepted acceptance %s has no pilot signature", acc.ID)
		}

		pf := models.NewPostFlying(s.AircraftID, acc.ID, pilot.PNO, s.Cycle, t.now)
		pf.ID = t.c.newID()
		s.PostFlyingID = pf.ID
		t.savePostFlying(pf)
		t.moveTo(stage, pf.ID)

	case models.StageAFS:
		rec := models.NewServicingRecord(models.ServicingAFS, s.AircraftID, s.Cycle, t.c.afsVariant, t.now)
		rec.ID = t.c.newID()
		s.AFSID = rec.ID
		t.saveServicing(rec)
		t.moveTo(stage, rec.ID)

	default:
		return opserr.New(opserr.CodeStageLocked, "%s cannot be entered directly", stage)
	}

	t.c.logger.Info("Stage entered", "aircraft_id", s.AircraftID, "stage", stage, "cycle", s.Cycle)

	return nil
}

func stageOf(kind models.ServicingKind) models.Stage {
	if kind == models.ServicingAFS {
		return models.StageAFS
	}

	return models.StageBFS
}
