// Package workflow drives an aircraft through the flying operations cycle:
// BFS, pilot acceptance, post-flying and AFS, with role-gated PIN sign-off.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dukex/flightline/pkg/assignment"
	"github.com/dukex/flightline/pkg/eventbus"
	"github.com/dukex/flightline/pkg/events"
	"github.com/dukex/flightline/pkg/metrics"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/otelhelper"
	"github.com/dukex/flightline/pkg/outcome"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/dukex/flightline/pkg/personnel"
	"github.com/dukex/flightline/pkg/signoff"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Controller is the only way to change the workflow state of an aircraft.
// Operations on the same aircraft are serialized.
type Controller struct {
	logger      *slog.Logger
	store       persistence.Persistence
	verifier    *signoff.Verifier
	assignments *assignment.Manager
	resolver    *outcome.Resolver
	publisher   eventbus.EventPublisher
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	bfsVariant  models.Variant
	afsVariant  models.Variant
	now         func() time.Time
	newID       func() string
	locks       *keyedMutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher publishes lifecycle events after each committed operation.
func WithPublisher(p eventbus.EventPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) { c.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// WithVariants sets the servicing configuration used for new BFS and AFS records.
func WithVariants(bfs, afs models.Variant) Option {
	return func(c *Controller) {
		c.bfsVariant = bfs
		c.afsVariant = afs
	}
}

// NewController creates a controller storing records in store and resolving people through directory.
func NewController(
	logger *slog.Logger,
	store persistence.Persistence,
	directory personnel.Directory,
	verifier *signoff.Verifier,
	opts ...Option,
) *Controller {
	c := &Controller{
		logger:      logger.With("module", "workflow"),
		store:       store,
		verifier:    verifier,
		assignments: assignment.NewManager(directory),
		resolver:    outcome.NewResolver(),
		tracer:      otelhelper.DefaultTracer("flightline/workflow"),
		bfsVariant:  models.DefaultBFSVariant(),
		afsVariant:  models.DefaultAFSVariant(),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       newID,
		locks:       newKeyedMutex(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// Assignments exposes the assignment manager for personnel search.
func (c *Controller) Assignments() *assignment.Manager {
	return c.assignments
}

// Resolver exposes the post-flight outcome table.
func (c *Controller) Resolver() *outcome.Resolver {
	return c.resolver
}

// run executes fn as one serialized operation on aircraftID and commits its writes.
func (c *Controller) run(ctx context.Context, op, aircraftID string, fn func(t *tx) error) error {
	if strings.TrimSpace(aircraftID) == "" {
		return c.fail(op, opserr.New(opserr.CodeNoAircraftSelected, "no aircraft selected"))
	}

	unlock := c.locks.Lock(aircraftID)
	defer unlock()

	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "workflow."+op,
		attribute.String(otelhelper.AircraftIDKey, aircraftID),
		attribute.String(otelhelper.OperationKey, op),
	)
	defer span.End()

	t, err := c.begin(ctx, aircraftID)
	if err == nil {
		err = fn(t)
	}

	if err == nil {
		if commitErr := t.commit(); commitErr != nil {
			err = fmt.Errorf("failed to save records: %w", commitErr)
			if t.terminal {
				err = opserr.Uncertain(op, commitErr)
			}
		}
	}

	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.ErrorCodeKey, string(opserr.CodeOf(err))))

		return c.fail(op, err)
	}

	span.SetAttributes(
		attribute.String(otelhelper.StageKey, string(t.state.Stage)),
		attribute.Int(otelhelper.CycleKey, t.state.Cycle),
	)

	c.publish(ctx, aircraftID, t.events)

	return nil
}

func (c *Controller) fail(op string, err error) error {
	code := opserr.CodeOf(err)
	if code == "" {
		code = "INTERNAL"
		c.logger.Error("Operation failed", "operation", op, "error", err)
	} else {
		c.logger.Debug("Operation rejected", "operation", op, "code", code, "error", err)
	}

	if c.metrics != nil {
		c.metrics.OperationErrors.WithLabelValues(op, string(code)).Inc()
	}

	return opserr.Wrap(op, err)
}

func (c *Controller) publish(ctx context.Context, aircraftID string, evs []eventbus.Event) {
	if c.publisher == nil {
		return
	}

	for _, ev := range evs {
		if err := c.publisher.Publish(ctx, aircraftID, ev); err != nil {
			c.logger.Error("Failed to publish event", "event_type", ev.GetType(), "aircraft_id", aircraftID, "error", err)
		}
	}
}

// Start opens the workflow for an aircraft. An aircraft that already has a workflow
// resumes where it left off.
func (c *Controller) Start(ctx context.Context, aircraftID string) (*models.WorkflowState, error) {
	const op = "start"

	if strings.TrimSpace(aircraftID) == "" {
		return nil, c.fail(op, opserr.New(opserr.CodeNoAircraftSelected, "no aircraft selected"))
	}

	unlock := c.locks.Lock(aircraftID)
	defer unlock()

	if _, err := c.store.AircraftRepository().ByID(ctx, aircraftID); err != nil {
		return nil, c.fail(op, notFound(err, "aircraft %s", aircraftID))
	}

	existing, err := c.store.WorkflowStateRepository().ByAircraft(ctx, aircraftID)
	if err == nil {
		return existing, nil
	}

	if !persistence.IsWorkflowStateNotFound(err) {
		return nil, c.fail(op, fmt.Errorf("failed to load workflow state: %w", err))
	}

	state := models.NewWorkflowState(aircraftID, c.now())
	if err := c.store.WorkflowStateRepository().Save(ctx, &state); err != nil {
		return nil, c.fail(op, fmt.Errorf("failed to save workflow state: %w", err))
	}

	c.logger.Info("Workflow started", "aircraft_id", aircraftID)

	return &state, nil
}

// Reset ends the current cycle at any stage and returns the aircraft to INIT with a new
// cycle number. Records of the old cycle stay as history.
func (c *Controller) Reset(ctx context.Context, aircraftID string) (*models.WorkflowState, error) {
	var out models.WorkflowState

	err := c.run(ctx, "reset", aircraftID, func(t *tx) error {
		previous := t.state

		t.state = models.WorkflowState{
			AircraftID: previous.AircraftID,
			Stage:      models.StageInit,
			Cycle:      previous.Cycle + 1,
			StartedAt:  t.now,
		}
		t.stateDirty = true

		t.emit(events.WorkflowReset{
			BaseEvent:     t.base(events.WorkflowResetEvent),
			PreviousStage: previous.Stage,
			PreviousCycle: previous.Cycle,
		})

		out = t.state

		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("Workflow reset", "aircraft_id", aircraftID, "cycle", out.Cycle)

	return &out, nil
}

// CanEnter reports whether stage is the next stage and its precondition holds.
// A nil error means the stage can be entered.
func (c *Controller) CanEnter(ctx context.Context, aircraftID string, stage models.Stage) error {
	t, err := c.begin(ctx, aircraftID)
	if err != nil {
		return opserr.Wrap("can_enter", err)
	}

	return opserr.Wrap("can_enter", t.canEnter(stage))
}

// EnterStage moves the aircraft into stage and creates its record.
func (c *Controller) EnterStage(ctx context.Context, aircraftID string, stage models.Stage) (*models.WorkflowState, error) {
	var out models.WorkflowState

	err := c.run(ctx, "enter_stage", aircraftID, func(t *tx) error {
		if err := t.canEnter(stage); err != nil {
			return err
		}

		if err := t.enter(stage); err != nil {
			return err
		}

		out = t.state

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

// Snapshot is the full view of an aircraft's current cycle.
type Snapshot struct {
	State        models.WorkflowState    `json:"state"`
	BFS          *models.ServicingRecord `json:"bfs,omitempty"`
	Acceptance   *models.PilotAcceptance `json:"acceptance,omitempty"`
	PostFlying   *models.PostFlying      `json:"post_flying,omitempty"`
	AFS          *models.ServicingRecord `json:"afs,omitempty"`
	NextStage    models.Stage            `json:"next_stage,omitempty"`
	NextUnlocked bool                    `json:"next_unlocked"`
	LockReason   string                  `json:"lock_reason,omitempty"`
	CanStartNew  bool                    `json:"can_start_new"`
}

// State returns the current cycle of an aircraft, used to resume after a reload.
func (c *Controller) State(ctx context.Context, aircraftID string) (*Snapshot, error) {
	const op = "state"

	if strings.TrimSpace(aircraftID) == "" {
		return nil, c.fail(op, opserr.New(opserr.CodeNoAircraftSelected, "no aircraft selected"))
	}

	t, err := c.begin(ctx, aircraftID)
	if err != nil {
		return nil, opserr.Wrap(op, err)
	}

	snap := &Snapshot{State: t.state, CanStartNew: t.state.Stage.IsTerminal()}

	if t.state.BFSID != "" {
		if snap.BFS, err = t.servicing(models.ServicingBFS); err != nil {
			return nil, opserr.Wrap(op, err)
		}
	}

	if t.state.AcceptanceID != "" {
		if snap.Acceptance, err = t.acceptance(); err != nil {
			return nil, opserr.Wrap(op, err)
		}
	}

	if t.state.PostFlyingID != "" {
		if snap.PostFlying, err = t.postFlying(); err != nil {
			return nil, opserr.Wrap(op, err)
		}
	}

	if t.state.AFSID != "" {
		if snap.AFS, err = t.servicing(models.ServicingAFS); err != nil {
			return nil, opserr.Wrap(op, err)
		}
	}

	if next := nextStage(t.state.Stage); next != "" {
		snap.NextStage = next

		if lockErr := t.canEnter(next); lockErr != nil {
			snap.LockReason = lockErr.Error()
		} else {
			snap.NextUnlocked = true
		}
	}

	return snap, nil
}

// History returns every cycle of an aircraft, oldest first.
func (c *Controller) History(ctx context.Context, aircraftID string) ([]models.CycleRecords, error) {
	const op = "history"

	if strings.TrimSpace(aircraftID) == "" {
		return nil, c.fail(op, opserr.New(opserr.CodeNoAircraftSelected, "no aircraft selected"))
	}

	cycles := map[int]*models.CycleRecords{}
	get := func(n int) *models.CycleRecords {
		if cycles[n] == nil {
			cycles[n] = &models.CycleRecords{Cycle: n}
		}

		return cycles[n]
	}

	servicing, err := c.store.ServicingRepository().ByAircraft(ctx, aircraftID)
	if err != nil {
		return nil, c.fail(op, fmt.Errorf("failed to list servicing records: %w", err))
	}

	for _, rec := range servicing {
		if rec.Kind == models.ServicingAFS {
			get(rec.Cycle).AFS = rec
		} else {
			get(rec.Cycle).BFS = rec
		}
	}

	acceptances, err := c.store.AcceptanceRepository().ByAircraft(ctx, aircraftID)
	if err != nil {
		return nil, c.fail(op, fmt.Errorf("failed to list acceptances: %w", err))
	}

	for _, acc := range acceptances {
		get(acc.Cycle).Acceptance = acc
	}

	postFlights, err := c.store.PostFlyingRepository().ByAircraft(ctx, aircraftID)
	if err != nil {
		return nil, c.fail(op, fmt.Errorf("failed to list post-flying records: %w", err))
	}

	for _, pf := range postFlights {
		get(pf.Cycle).PostFlying = pf
	}

	out := make([]models.CycleRecords, 0, len(cycles))
	for _, cycle := range cycles {
		out = append(out, *cycle)
	}

	slices.SortFunc(out, func(a, b models.CycleRecords) int { return a.Cycle - b.Cycle })

	return out, nil
}

// lookup resolves pno for a sign-off.
func (c *Controller) lookup(ctx context.Context, pno string) (*models.PersonnelIdentity, error) {
	return c.assignments.Lookup(ctx, pno)
}
