package maintenance

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/flightline/pkg/events"
	"github.com/dukex/flightline/pkg/mocks"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/persistence/file"
	"github.com/dukex/flightline/pkg/personnel"
	"github.com/dukex/flightline/pkg/signoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const tail = "TAIL-07"

var signedAt = time.Date(2026, 5, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()

	crew := []struct {
		pno   string
		trade models.Trade
		pin   string
		roles []models.Role
	}{
		{"AE001", models.TradeAE, "1111", nil},
		{"AL001", models.TradeAL, "2222", nil},
		{"SUP001", models.TradeSUP, "9999", nil},
		{"ATO001", models.TradeSUP, "4321", []models.Role{models.RoleATO}},
	}

	entries := make([]models.PersonnelIdentity, 0, len(crew))

	for _, p := range crew {
		hash, err := personnel.HashPIN(p.pin, bcrypt.MinCost)
		require.NoError(t, err)

		entries = append(entries, models.PersonnelIdentity{PNO: p.pno, Name: p.pno, Trade: p.trade, Roles: p.roles, PINHash: hash})
	}

	store := file.NewPersistence(t.TempDir())
	require.NoError(t, store.AircraftRepository().Save(t.Context(), &models.Aircraft{
		ID:               tail,
		AircraftNumber:   "KT-107",
		TotalFlyingHours: 164.5,
	}))

	logger := slog.New(slog.DiscardHandler)
	base := []Option{WithClock(func() time.Time { return signedAt })}

	return NewService(logger, store, personnel.NewMemoryDirectory(entries...), signoff.NewVerifier(logger), append(base, opts...)...)
}

func TestService_CreateFromTemplate(t *testing.T) {
	s := newTestService(t)
	ctx := t.Context()

	card, err := s.Create(ctx, tail, models.Maintenance100Hourly, true)
	require.NoError(t, err)
	assert.Len(t, card.Jobs, 12)
	assert.Equal(t, models.JobCardStatusOpen, card.Status)
	assert.Equal(t, models.TradeAE, card.Jobs[0].Section)
	assert.NotEqual(t, card.Jobs[0].ID, card.Jobs[1].ID)
	assert.Zero(t, card.TotalManHours())

	empty, err := s.Create(ctx, tail, models.MaintenanceWeekly, false)
	require.NoError(t, err)
	assert.Empty(t, empty.Jobs)

	_, err = s.Create(ctx, tail, models.MaintenanceType("5_YEARLY"), false)
	assert.Equal(t, opserr.CodeInvalidInput, opserr.CodeOf(err))

	_, err = s.Create(ctx, "TAIL-99", models.MaintenanceWeekly, false)
	assert.Equal(t, opserr.CodeRecordNotFound, opserr.CodeOf(err))

	_, err = s.Create(ctx, "", models.MaintenanceWeekly, false)
	assert.Equal(t, opserr.CodeNoAircraftSelected, opserr.CodeOf(err))

	cards, err := s.ByAircraft(ctx, tail)
	require.NoError(t, err)
	assert.Len(t, cards, 2)
}

func TestService_JobEditing(t *testing.T) {
	s := newTestService(t)
	ctx := t.Context()

	card, err := s.Create(ctx, tail, models.MaintenanceWeekly, false)
	require.NoError(t, err)

	_, err = s.AddJob(ctx, card.ID, JobInput{Section: models.TradeSE, Description: "Check"})
	assert.Equal(t, opserr.CodeInvalidInput, opserr.CodeOf(err))

	_, err = s.AddJob(ctx, card.ID, JobInput{Section: models.TradeAE, ManHours: -1})
	assert.Equal(t, opserr.CodeInvalidInput, opserr.CodeOf(err))

	card, err = s.AddJob(ctx, card.ID, JobInput{Section: models.TradeAE, Description: "Inspect canopy seal", ManHours: 0.5})
	require.NoError(t, err)
	require.Len(t, card.Jobs, 1)

	jobID := card.Jobs[0].ID

	card, err = s.UpdateRemarks(ctx, card.ID, jobID, "seal replaced")
	require.NoError(t, err)
	assert.Equal(t, "seal replaced", card.Jobs[0].Remarks)

	_, err = s.UpdateRemarks(ctx, card.ID, "missing", "x")
	assert.Equal(t, opserr.CodeRecordNotFound, opserr.CodeOf(err))

	card, err = s.RemoveJob(ctx, card.ID, jobID)
	require.NoError(t, err)
	assert.Empty(t, card.Jobs)

	_, err = s.Get(ctx, "nope")
	assert.Equal(t, opserr.CodeRecordNotFound, opserr.CodeOf(err))
}

func TestService_SignOffAndATO(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, tail, mock.Anything).Return(nil)

	s := newTestService(t, WithPublisher(bus))
	ctx := t.Context()

	card, err := s.Create(ctx, tail, models.MaintenanceWeekly, false)
	require.NoError(t, err)

	card, err = s.AddJob(ctx, card.ID, JobInput{Section: models.TradeAE, Description: "Visual inspection", ManHours: 0.5})
	require.NoError(t, err)

	card, err = s.AddJob(ctx, card.ID, JobInput{Section: models.TradeAL, Description: "Battery check", ManHours: 0.25})
	require.NoError(t, err)

	id, aeJob, alJob := card.ID, card.Jobs[0].ID, card.Jobs[1].ID

	_, err = s.SignATO(ctx, card.ID, "ATO001", "4321")
	assert.Equal(t, opserr.CodeUnsignedSlots, opserr.CodeOf(err))

	_, err = s.SignSupervisor(ctx, card.ID, aeJob, "SUP001", "9999")
	assert.Equal(t, opserr.CodePreconditionNotMet, opserr.CodeOf(err))

	_, err = s.SignTradesman(ctx, card.ID, aeJob, "AL001", "2222")
	assert.Equal(t, opserr.CodeTradeMismatch, opserr.CodeOf(err))

	_, err = s.SignTradesman(ctx, card.ID, aeJob, "AE001", "0000")
	assert.Equal(t, opserr.CodeInvalidPIN, opserr.CodeOf(err))

	_, err = s.SignTradesman(ctx, card.ID, aeJob, "AE001", "1111")
	require.NoError(t, err)

	_, err = s.SignTradesman(ctx, card.ID, aeJob, "AE001", "1111")
	assert.Equal(t, opserr.CodeAlreadySigned, opserr.CodeOf(err))

	_, err = s.SignSupervisor(ctx, card.ID, aeJob, "AE001", "1111")
	assert.Equal(t, opserr.CodeTradeMismatch, opserr.CodeOf(err))

	card, err = s.SignSupervisor(ctx, card.ID, aeJob, "SUP001", "9999")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, card.TotalManHours(), 0)

	_, err = s.SignTradesman(ctx, card.ID, alJob, "AL001", "2222")
	require.NoError(t, err)

	_, err = s.SignATO(ctx, id, "ATO001", "4321")
	assert.Equal(t, opserr.CodeUnsignedSlots, opserr.CodeOf(err))
	assert.Equal(t, []string{"AL: Battery check"}, missingOf(err))

	_, err = s.SignSupervisor(ctx, id, alJob, "SUP001", "9999")
	require.NoError(t, err)

	_, err = s.SignATO(ctx, id, "SUP001", "9999")
	assert.Equal(t, opserr.CodeTradeMismatch, opserr.CodeOf(err))

	card, err = s.SignATO(ctx, id, "ATO001", "4321")
	require.NoError(t, err)
	assert.Equal(t, models.JobCardStatusATOSigned, card.Status)
	require.NotNil(t, card.SignedAt)
	assert.InDelta(t, 0.75, card.TotalManHours(), 0)

	_, err = s.AddJob(ctx, card.ID, JobInput{Section: models.TradeAE, Description: "late", ManHours: 1})
	assert.Equal(t, opserr.CodePreconditionNotMet, opserr.CodeOf(err))

	assert.Equal(t, opserr.CodePreconditionNotMet, opserr.CodeOf(s.Delete(ctx, card.ID)))

	published := bus.Published()
	require.Len(t, published, 1)

	ev, ok := published[0].(events.JobCardSigned)
	require.True(t, ok)
	assert.Equal(t, card.ID, ev.JobCardID)
	assert.Equal(t, models.MaintenanceWeekly, ev.Maintenance)
	assert.InDelta(t, 0.75, ev.TotalManHours, 0)
}

func TestService_RemoveSignature(t *testing.T) {
	s := newTestService(t)
	ctx := t.Context()

	card, err := s.Create(ctx, tail, models.MaintenanceWeekly, false)
	require.NoError(t, err)

	card, err = s.AddJob(ctx, card.ID, JobInput{Section: models.TradeAE, Description: "Visual inspection", ManHours: 0.5})
	require.NoError(t, err)

	jobID := card.Jobs[0].ID

	_, err = s.SignTradesman(ctx, card.ID, jobID, "AE001", "1111")
	require.NoError(t, err)

	_, err = s.RemoveSignature(ctx, card.ID, jobID, models.TradeSlot(models.TradeAL), "AE001")
	assert.Equal(t, opserr.CodeInvalidInput, opserr.CodeOf(err))

	_, err = s.RemoveSignature(ctx, card.ID, jobID, models.SlotSupervisor, "SUP001")
	assert.Equal(t, opserr.CodeRecordNotFound, opserr.CodeOf(err))

	_, err = s.SignSupervisor(ctx, card.ID, jobID, "SUP001", "9999")
	require.NoError(t, err)

	_, err = s.RemoveSignature(ctx, card.ID, jobID, models.TradeSlot(models.TradeAE), "AE001")
	assert.Equal(t, opserr.CodePreconditionNotMet, opserr.CodeOf(err))

	card, err = s.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, card.Jobs[0].TradesmanSigned())
	assert.True(t, card.Jobs[0].SupervisorSigned())

	_, err = s.RemoveSignature(ctx, card.ID, jobID, models.SlotSupervisor, "SUP001")
	require.NoError(t, err)

	card, err = s.RemoveSignature(ctx, card.ID, jobID, models.TradeSlot(models.TradeAE), "AE001")
	require.NoError(t, err)
	assert.False(t, card.Jobs[0].TradesmanSigned())

	require.NoError(t, s.Delete(ctx, card.ID))

	_, err = s.Get(ctx, card.ID)
	assert.Equal(t, opserr.CodeRecordNotFound, opserr.CodeOf(err))
}

func TestService_NextDue(t *testing.T) {
	s := newTestService(t)

	due, err := s.NextDue(t.Context(), tail)
	require.NoError(t, err)
	require.Len(t, due, len(Types))

	byType := map[models.MaintenanceType]Due{}
	for _, d := range due {
		byType[d.Type] = d
	}

	hundred := byType[models.Maintenance100Hourly]
	require.NotNil(t, hundred.DueAtHours)
	assert.InDelta(t, 200.0, *hundred.DueAtHours, 0)
	assert.InDelta(t, 35.5, *hundred.RemainingHours, 0.001)

	weekly := byType[models.MaintenanceWeekly]
	require.NotNil(t, weekly.DueAt)
	assert.Equal(t, time.Date(2026, 5, 18, 0, 0, 0, 0, time.UTC), *weekly.DueAt)
	assert.Nil(t, weekly.LastDoneAt)

	_, err = s.NextDue(t.Context(), "TAIL-99")
	assert.Equal(t, opserr.CodeRecordNotFound, opserr.CodeOf(err))
}

func missingOf(err error) []string {
	var e *opserr.Error
	if errors.As(err, &e) {
		return e.Missing
	}

	return nil
}
