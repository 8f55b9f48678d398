// Package maintenance manages scheduled maintenance job cards: jobs per trade section,
// tradesman and supervisor sign-off per job and the final ATO signature.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dukex/flightline/pkg/eventbus"
	"github.com/dukex/flightline/pkg/events"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/dukex/flightline/pkg/personnel"
	"github.com/dukex/flightline/pkg/signoff"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// JobInput describes a job to add to a card.
type JobInput struct {
	Section     models.Trade `json:"section"     validate:"required,oneof=AE AL AR AO"`
	Description string       `json:"description" validate:"required"`
	ManHours    float64      `json:"man_hours"   validate:"gte=0"`
	Remarks     string       `json:"remarks"`
}

// Service is the only way to change job cards.
type Service struct {
	logger    *slog.Logger
	store     persistence.Persistence
	directory personnel.Directory
	verifier  *signoff.Verifier
	publisher eventbus.EventPublisher
	now       func() time.Time
	mu        sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

func WithPublisher(p eventbus.EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a job card service.
func NewService(
	logger *slog.Logger,
	store persistence.Persistence,
	directory personnel.Directory,
	verifier *signoff.Verifier,
	opts ...Option,
) *Service {
	s := &Service{
		logger:    logger.With("module", "maintenance"),
		store:     store,
		directory: directory,
		verifier:  verifier,
		now:       func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create opens a job card for an aircraft, pre-filled from the type's template when fromTemplate is set.
func (s *Service) Create(ctx context.Context, aircraftID string, t models.MaintenanceType, fromTemplate bool) (*models.JobCard, error) {
	const op = "job_card.create"

	if strings.TrimSpace(aircraftID) == "" {
		return nil, opserr.Wrap(op, opserr.New(opserr.CodeNoAircraftSelected, "no aircraft selected"))
	}

	if _, ok := IntervalOf(t); !ok {
		return nil, opserr.Wrap(op, opserr.New(opserr.CodeInvalidInput, "unknown maintenance type %q", t))
	}

	if _, err := s.store.AircraftRepository().ByID(ctx, aircraftID); err != nil {
		return nil, opserr.Wrap(op, notFound(err, "aircraft %s", aircraftID))
	}

	now := s.now()
	card := &models.JobCard{
		ID:         newID(),
		AircraftID: aircraftID,
		Type:       t,
		Jobs:       []models.Job{},
		Status:     models.JobCardStatusOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if fromTemplate {
		for _, tmpl := range Templates(t) {
			card.Jobs = append(card.Jobs, models.Job{
				ID:          newID(),
				Section:     tmpl.Section,
				Description: tmpl.Description,
				ManHours:    tmpl.ManHours,
			})
		}
	}

	if err := s.store.JobCardRepository().Save(ctx, card); err != nil {
		return nil, opserr.Wrap(op, fmt.Errorf("failed to save job card: %w", err))
	}

	s.logger.Info("Job card created", "job_card_id", card.ID, "aircraft_id", aircraftID, "type", t, "jobs", len(card.Jobs))

	return card, nil
}

// Get returns a job card.
func (s *Service) Get(ctx context.Context, id string) (*models.JobCard, error) {
	card, err := s.store.JobCardRepository().ByID(ctx, id)
	if err != nil {
		return nil, opserr.Wrap("job_card.get", notFound(err, "job card %s", id))
	}

	return card, nil
}

// ByAircraft lists the job cards of an aircraft, oldest first.
func (s *Service) ByAircraft(ctx context.Context, aircraftID string) ([]*models.JobCard, error) {
	cards, err := s.store.JobCardRepository().ByAircraft(ctx, aircraftID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job cards: %w", err)
	}

	return cards, nil
}

// Delete discards an open job card.
func (s *Service) Delete(ctx context.Context, id string) error {
	const op = "job_card.delete"

	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := s.store.JobCardRepository().ByID(ctx, id)
	if err != nil {
		return opserr.Wrap(op, notFound(err, "job card %s", id))
	}

	if card.Status != models.JobCardStatusOpen {
		return opserr.Wrap(op, opserr.New(opserr.CodePreconditionNotMet, "job card %s is %s and cannot be deleted", card.ID, card.Status))
	}

	if err := s.store.JobCardRepository().Delete(ctx, id); err != nil {
		return opserr.Wrap(op, notFound(err, "job card %s", id))
	}

	s.logger.Info("Job card deleted", "job_card_id", id, "aircraft_id", card.AircraftID)

	return nil
}

// update loads an open card, applies fn and saves it.
func (s *Service) update(ctx context.Context, op, id string, fn func(card *models.JobCard) error) error {
	op = "job_card." + op

	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := s.store.JobCardRepository().ByID(ctx, id)
	if err != nil {
		return opserr.Wrap(op, notFound(err, "job card %s", id))
	}

	if card.Status != models.JobCardStatusOpen {
		return opserr.Wrap(op, opserr.New(opserr.CodePreconditionNotMet, "job card %s is %s and read-only", card.ID, card.Status))
	}

	if err := fn(card); err != nil {
		s.logger.Debug("Job card operation rejected", "operation", op, "job_card_id", id, "error", err)

		return opserr.Wrap(op, err)
	}

	card.UpdatedAt = s.now()

	if err := s.store.JobCardRepository().Save(ctx, card); err != nil {
		return opserr.Wrap(op, fmt.Errorf("failed to save job card: %w", err))
	}

	return nil
}

func (s *Service) mutate(ctx context.Context, op, id string, fn func(card *models.JobCard) error) (*models.JobCard, error) {
	var out *models.JobCard

	err := s.update(ctx, op, id, func(card *models.JobCard) error {
		if err := fn(card); err != nil {
			return err
		}

		out = card

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func job(card *models.JobCard, jobID string) (*models.Job, error) {
	i := card.JobIndex(jobID)
	if i < 0 {
		return nil, opserr.New(opserr.CodeRecordNotFound, "job %s not found on card %s", jobID, card.ID)
	}

	return &card.Jobs[i], nil
}

// AddJob appends a job to a section of the card.
func (s *Service) AddJob(ctx context.Context, cardID string, in JobInput) (*models.JobCard, error) {
	return s.mutate(ctx, "add_job", cardID, func(card *models.JobCard) error {
		if err := validateInput(in); err != nil {
			return err
		}

		card.Jobs = append(card.Jobs, models.Job{
			ID:          newID(),
			Section:     in.Section,
			Description: strings.TrimSpace(in.Description),
			ManHours:    in.ManHours,
			Remarks:     in.Remarks,
		})

		return nil
	})
}

// UpdateRemarks replaces the remarks of a job.
func (s *Service) UpdateRemarks(ctx context.Context, cardID, jobID, remarks string) (*models.JobCard, error) {
	return s.mutate(ctx, "update_remarks", cardID, func(card *models.JobCard) error {
		j, err := job(card, jobID)
		if err != nil {
			return err
		}

		j.Remarks = remarks

		return nil
	})
}

// RemoveJob deletes a job and its signatures.
func (s *Service) RemoveJob(ctx context.Context, cardID, jobID string) (*models.JobCard, error) {
	return s.mutate(ctx, "remove_job", cardID, func(card *models.JobCard) error {
		i := card.JobIndex(jobID)
		if i < 0 {
			return opserr.New(opserr.CodeRecordNotFound, "job %s not found on card %s", jobID, card.ID)
		}

		card.Jobs = slices.Delete(card.Jobs, i, i+1)

		return nil
	})
}

func (s *Service) sign(ctx context.Context, set *models.SignatureSet, slot models.Slot, pno, pin string, req signoff.Requirement) (models.Signature, error) {
	if strings.TrimSpace(pno) == "" {
		return models.Signature{}, opserr.New(opserr.CodePersonnelNotFound, "no personnel selected")
	}

	candidate, err := s.directory.Lookup(ctx, pno)
	if err != nil {
		return models.Signature{}, err
	}

	return s.verifier.Verify(set, slot, candidate, pin, req)
}

// SignTradesman adds the signature of a tradesman of the job's section. Several tradesmen may sign.
func (s *Service) SignTradesman(ctx context.Context, cardID, jobID, pno, pin string) (*models.JobCard, error) {
	return s.mutate(ctx, "sign_tradesman", cardID, func(card *models.JobCard) error {
		j, err := job(card, jobID)
		if err != nil {
			return err
		}

		_, err = s.sign(ctx, &j.Signatures, models.TradeSlot(j.Section), pno, pin, signoff.Requirement{Trade: j.Section})

		return err
	})
}

// SignSupervisor adds a supervisor signature to a job that at least one tradesman signed.
func (s *Service) SignSupervisor(ctx context.Context, cardID, jobID, pno, pin string) (*models.JobCard, error) {
	return s.mutate(ctx, "sign_supervisor", cardID, func(card *models.JobCard) error {
		j, err := job(card, jobID)
		if err != nil {
			return err
		}

		if !j.TradesmanSigned() {
			return opserr.WithMissing(opserr.CodePreconditionNotMet, "at least one tradesman must sign before supervisor", []string{string(j.Section)})
		}

		_, err = s.sign(ctx, &j.Signatures, models.SlotSupervisor, pno, pin, signoff.Requirement{Trade: models.TradeSUP})

		return err
	})
}

// RemoveSignature withdraws the signature of pno from a job slot. The last tradesman
// signature of a job stays while a supervisor has countersigned it.
func (s *Service) RemoveSignature(ctx context.Context, cardID, jobID string, slot models.Slot, pno string) (*models.JobCard, error) {
	return s.mutate(ctx, "remove_signature", cardID, func(card *models.JobCard) error {
		j, err := job(card, jobID)
		if err != nil {
			return err
		}

		if slot != models.SlotSupervisor && slot != models.TradeSlot(j.Section) {
			return opserr.New(opserr.CodeInvalidInput, "slot %s does not belong to a %s job", slot, j.Section)
		}

		if j.Signatures.Invalidate(pno, slot) == 0 {
			return opserr.New(opserr.CodeRecordNotFound, "%s has not signed %s", pno, slot)
		}

		if !j.TradesmanSigned() && j.SupervisorSigned() {
			return opserr.WithMissing(opserr.CodePreconditionNotMet,
				"remove the supervisor signature before the last tradesman signature", []string{string(models.SlotSupervisor)})
		}

		return nil
	})
}

// unsignedJobs names every job that lacks a tradesman or supervisor signature.
func unsignedJobs(card *models.JobCard) []string {
	var missing []string

	for _, j := range card.Jobs {
		if !j.TradesmanSigned() || !j.SupervisorSigned() {
			missing = append(missing, fmt.Sprintf("%s: %s", j.Section, j.Description))
		}
	}

	return missing
}

// SignATO is the terminal signature of the card. Every job needs both signatures first.
func (s *Service) SignATO(ctx context.Context, cardID, pno, pin string) (*models.JobCard, error) {
	var signed *events.JobCardSigned

	card, err := s.mutate(ctx, "sign_ato", cardID, func(card *models.JobCard) error {
		if len(card.Jobs) == 0 {
			return opserr.New(opserr.CodePreconditionNotMet, "job card %s has no jobs", card.ID)
		}

		if missing := unsignedJobs(card); len(missing) > 0 {
			return opserr.WithMissing(opserr.CodeUnsignedSlots, "all jobs must be signed by tradesmen and supervisors", missing)
		}

		sig, err := s.sign(ctx, &card.Signatures, models.SlotATO, pno, pin, signoff.Requirement{Role: models.RoleATO})
		if err != nil {
			return err
		}

		signedAt := s.now()
		card.Status = models.JobCardStatusATOSigned
		card.SignedAt = &signedAt

		signed = &events.JobCardSigned{
			BaseEvent:     events.NewBaseEvent(events.JobCardSignedEvent, card.AircraftID, 0),
			JobCardID:     card.ID,
			Maintenance:   card.Type,
			TotalManHours: card.TotalManHours(),
		}
		signed.Metadata = map[string]any{"ato": sig.PNO}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Job card signed by ATO", "job_card_id", card.ID, "aircraft_id", card.AircraftID, "man_hours", card.TotalManHours())

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, card.AircraftID, *signed); err != nil {
			s.logger.Error("Failed to publish event", "event_type", signed.GetType(), "error", err)
		}
	}

	return card, nil
}

// NextDue computes when every maintenance type is next due for an aircraft.
func (s *Service) NextDue(ctx context.Context, aircraftID string) ([]Due, error) {
	const op = "job_card.next_due"

	aircraft, err := s.store.AircraftRepository().ByID(ctx, aircraftID)
	if err != nil {
		return nil, opserr.Wrap(op, notFound(err, "aircraft %s", aircraftID))
	}

	cards, err := s.ByAircraft(ctx, aircraftID)
	if err != nil {
		return nil, opserr.Wrap(op, err)
	}

	lastDone := map[models.MaintenanceType]*time.Time{}

	for _, card := range cards {
		if card.SignedAt == nil {
			continue
		}

		if last := lastDone[card.Type]; last == nil || card.SignedAt.After(*last) {
			lastDone[card.Type] = card.SignedAt
		}
	}

	now := s.now()
	out := make([]Due, 0, len(Types))

	for _, t := range Types {
		interval, _ := IntervalOf(t)

		due, err := NextDue(interval, aircraft, lastDone[t], now)
		if err != nil {
			return nil, opserr.Wrap(op, err)
		}

		out = append(out, due)
	}

	return out, nil
}

func validateInput(v any) error {
	return opserr.Validate(validate, v)
}

func notFound(err error, format string, args ...any) error {
	if persistence.IsNotFound(err) {
		return opserr.New(opserr.CodeRecordNotFound, format+" not found", args...)
	}

	return fmt.Errorf("failed to load "+format+": %w", append(args, err)...)
}
