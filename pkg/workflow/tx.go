package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flightline/pkg/eventbus"
	"github.com/dukex/flightline/pkg/events"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/persistence"
)

// tx is one controller operation on one aircraft. Records are read fresh from
// persistence, mutated in memory and only written by commit once the operation
// succeeded, so a rejected operation leaves stored state untouched.
type tx struct {
	ctx   context.Context
	c     *Controller
	now   time.Time
	state models.WorkflowState

	stateDirty bool
	terminal   bool
	saves      []func(ctx context.Context) error
	events     []eventbus.Event
}

func (c *Controller) begin(ctx context.Context, aircraftID string) (*tx, error) {
	state, err := c.store.WorkflowStateRepository().ByAircraft(ctx, aircraftID)
	if err != nil {
		if persistence.IsWorkflowStateNotFound(err) {
			return nil, opserr.New(opserr.CodeRecordNotFound, "no operation started for aircraft %s", aircraftID)
		}

		return nil, fmt.Errorf("failed to load workflow state: %w", err)
	}

	return &tx{ctx: ctx, c: c, now: c.now(), state: *state}, nil
}

func (t *tx) servicing(kind models.ServicingKind) (*models.ServicingRecord, error) {
	id := t.state.BFSID
	if kind == models.ServicingAFS {
		id = t.state.AFSID
	}

	if id == "" {
		return nil, opserr.New(opserr.CodeStageLocked, "%s has not been entered in cycle %d", kind, t.state.Cycle)
	}

	rec, err := t.c.store.ServicingRepository().ByID(t.ctx, id)
	if err != nil {
		return nil, notFound(err, "%s record %s", kind, id)
	}

	return rec, nil
}

func (t *tx) acceptance() (*models.PilotAcceptance, error) {
	if t.state.AcceptanceID == "" {
		return nil, opserr.New(opserr.CodeStageLocked, "pilot acceptance has not been entered in cycle %d", t.state.Cycle)
	}

	acc, err := t.c.store.AcceptanceRepository().ByID(t.ctx, t.state.AcceptanceID)
	if err != nil {
		return nil, notFound(err, "acceptance %s", t.state.AcceptanceID)
	}

	return acc, nil
}

func (t *tx) postFlying() (*models.PostFlying, error) {
	if t.state.PostFlyingID == "" {
		return nil, opserr.New(opserr.CodeStageLocked, "post-flying has not been entered in cycle %d", t.state.Cycle)
	}

	pf, err := t.c.store.PostFlyingRepository().ByID(t.ctx, t.state.PostFlyingID)
	if err != nil {
		return nil, notFound(err, "post-flying record %s", t.state.PostFlyingID)
	}

	return pf, nil
}

func (t *tx) saveServicing(rec *models.ServicingRecord) {
	rec.UpdatedAt = t.now
	t.saves = append(t.saves, func(ctx context.Context) error {
		return t.c.store.ServicingRepository().Save(ctx, rec)
	})
}

func (t *tx) saveAcceptance(acc *models.PilotAcceptance) {
	acc.UpdatedAt = t.now
	t.saves = append(t.saves, func(ctx context.Context) error {
		return t.c.store.AcceptanceRepository().Save(ctx, acc)
	})
}

func (t *tx) savePostFlying(pf *models.PostFlying) {
	pf.UpdatedAt = t.now
	t.saves = append(t.saves, func(ctx context.Context) error {
		return t.c.store.PostFlyingRepository().Save(ctx, pf)
	})
}

// moveTo points the workflow at stage and records the transition.
func (t *tx) moveTo(stage models.Stage, recordID string) {
	from := t.state.Stage
	t.state.Stage = stage
	t.stateDirty = true

	t.emit(events.StageEntered{
		BaseEvent: t.base(events.StageEnteredEvent),
		From:      from,
		To:        stage,
		RecordID:  recordID,
	})

	if t.c.metrics != nil {
		t.c.metrics.StageTransitions.WithLabelValues(string(from), string(stage)).Inc()
	}
}

func (t *tx) emit(event eventbus.Event) {
	t.events = append(t.events, event)
}

func (t *tx) base(eventType events.EventType) events.BaseEvent {
	return events.NewBaseEvent(eventType, t.state.AircraftID, t.state.Cycle)
}

func (t *tx) signed(kind string, recordID string, sig models.Signature) {
	t.emit(events.SignatureApplied{
		BaseEvent:  t.base(events.SignatureAppliedEvent),
		RecordKind: kind,
		RecordID:   recordID,
		Signature:  sig,
	})
}

func (t *tx) invalidated(kind string, recordID, pno string, slots ...models.Slot) {
	t.emit(events.SignatureInvalidated{
		BaseEvent:  t.base(events.SignatureInvalidatedEvent),
		RecordKind: kind,
		RecordID:   recordID,
		PNO:        pno,
		Slots:      slots,
	})
}

// commit writes every touched record, then the workflow state.
func (t *tx) commit() error {
	for _, save := range t.saves {
		if err := save(t.ctx); err != nil {
			return err
		}
	}

	if t.stateDirty {
		t.state.UpdatedAt = t.now
		if err := t.c.store.WorkflowStateRepository().Save(t.ctx, &t.state); err != nil {
			return err
		}
	}

	return nil
}

func notFound(err error, format string, args ...any) error {
	if persistence.IsNotFound(err) {
		return opserr.New(opserr.CodeRecordNotFound, format+" not found", args...)
	}

	return fmt.Errorf("failed to load "+format+": %w", append(args, err)...)
}
