package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/persistence"
	"github.com/dukex/flightline/pkg/persistence/file"
	"github.com/dukex/flightline/pkg/personnel"
	"github.com/dukex/flightline/pkg/signoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const tail = "TAIL-01"

type person struct {
	pno   string
	trade models.Trade
	pin   string
	roles []models.Role
}

var crew = []person{
	{"FSI001", models.TradeSUP, "1234", []models.Role{models.RoleFSI}},
	{"AE001", models.TradeAE, "1111", nil},
	{"AE002", models.TradeAE, "1112", nil},
	{"AL001", models.TradeAL, "2222", nil},
	{"AR001", models.TradeAR, "3333", nil},
	{"SUP001", models.TradeSUP, "9999", nil},
	{"PLT001", models.TradeSE, "5678", []models.Role{models.RolePilot}},
	{"PLT002", models.TradeSE, "5679", []models.Role{models.RolePilot}},
	{"SE001", models.TradeSE, "7890", []models.Role{models.RoleEngineer}},
}

func directory(t *testing.T) *personnel.MemoryDirectory {
	t.Helper()

	entries := make([]models.PersonnelIdentity, 0, len(crew))

	for _, p := range crew {
		hash, err := personnel.HashPIN(p.pin, bcrypt.MinCost)
		require.NoError(t, err)

		entries = append(entries, models.PersonnelIdentity{
			PNO:     p.pno,
			Name:    "Crew " + p.pno,
			Rank:    "Sgt",
			Trade:   p.trade,
			Roles:   p.roles,
			PINHash: hash,
		})
	}

	return personnel.NewMemoryDirectory(entries...)
}

func newController(t *testing.T, store persistence.Persistence, opts ...Option) *Controller {
	t.Helper()

	require.NoError(t, store.AircraftRepository().Save(t.Context(), &models.Aircraft{
		ID:             tail,
		AircraftNumber: "KT-101",
		Status:         models.AircraftStatusServiceable,
	}))

	logger := slog.New(slog.DiscardHandler)
	seq := 0
	clock := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

	base := []Option{
		WithIDGenerator(func() string {
			seq++

			return fmt.Sprintf("rec-%02d", seq)
		}),
		WithClock(func() time.Time {
			clock = clock.Add(time.Minute)

			return clock
		}),
	}

	return NewController(logger, store, directory(t), signoff.NewVerifier(logger), append(base, opts...)...)
}

func newTestController(t *testing.T, opts ...Option) *Controller {
	t.Helper()

	return newController(t, file.NewPersistence(t.TempDir()), opts...)
}

// minimalBFS has no data entry and no supervisor: FSI auth, assign, sign, final approval.
func minimalBFS() models.Variant {
	return models.Variant{
		MaxPerTrade:     1,
		SeparateFSIAuth: true,
		FinalApproval:   true,
		MandatoryTrades: []models.Trade{models.TradeAE},
	}
}

func ptr[T any](v T) *T {
	return &v
}

func assertCode(t *testing.T, err error, code opserr.Code) {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, code, opserr.CodeOf(err), err.Error())
}

func missingOf(err error) []string {
	var e *opserr.Error
	if errors.As(err, &e) {
		return e.Missing
	}

	return nil
}

func startBFS(t *testing.T, c *Controller) {
	t.Helper()

	ctx := t.Context()

	_, err := c.Start(ctx, tail)
	require.NoError(t, err)

	_, err = c.EnterStage(ctx, tail, models.StageBFS)
	require.NoError(t, err)

	_, err = c.AuthenticateFSI(ctx, tail, models.ServicingBFS, "FSI001", "1234")
	require.NoError(t, err)
}

// completeBFS drives a default BFS from INIT to FSI_APPROVED.
func completeBFS(t *testing.T, c *Controller) *models.ServicingRecord {
	t.Helper()

	ctx := t.Context()
	startBFS(t, c)

	steps := []func() (*models.ServicingRecord, error){
		func() (*models.ServicingRecord, error) { return c.Assign(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001") },
		func() (*models.ServicingRecord, error) { return c.SetSupervisor(ctx, tail, models.ServicingBFS, "SUP001") },
		func() (*models.ServicingRecord, error) { return c.Advance(ctx, tail, models.ServicingBFS) },
		func() (*models.ServicingRecord, error) {
			return c.EnterReadings(ctx, tail, models.ServicingBFS, models.Readings{
				FuelQuantity:     ptr(1200.0),
				TyrePressureMain: ptr(180.0),
				TyrePressureNose: ptr(60.0),
				OilFilled:        ptr(true),
			})
		},
		func() (*models.ServicingRecord, error) {
			return c.AuthenticateReadings(ctx, tail, models.ServicingBFS, "AE001", "1111")
		},
		func() (*models.ServicingRecord, error) {
			return c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "1111")
		},
		func() (*models.ServicingRecord, error) { return c.Advance(ctx, tail, models.ServicingBFS) },
		func() (*models.ServicingRecord, error) {
			return c.SignSupervisor(ctx, tail, models.ServicingBFS, "SUP001", "9999")
		},
		func() (*models.ServicingRecord, error) {
			return c.FinalApprove(ctx, tail, models.ServicingBFS, "FSI001", "1234")
		},
	}

	var rec *models.ServicingRecord

	for i, step := range steps {
		var err error

		rec, err = step()
		require.NoError(t, err, "step %d", i)
	}

	return rec
}

// acceptAircraft enters pilot acceptance after an approved BFS and signs it as PLT001.
func acceptAircraft(t *testing.T, c *Controller) *models.PilotAcceptance {
	t.Helper()

	ctx := t.Context()

	_, err := c.EnterStage(ctx, tail, models.StagePilotAcceptance)
	require.NoError(t, err)

	checks := map[models.ChecklistItem]bool{}
	for _, item := range models.AcceptanceChecklist {
		checks[item] = true
	}

	_, err = c.UpdateAcceptance(ctx, tail, AcceptanceUpdate{Checks: checks})
	require.NoError(t, err)

	acc, err := c.SignAcceptance(ctx, tail, "PLT001", "5678")
	require.NoError(t, err)

	return acc
}

func completedFlight() models.FlightData {
	return models.FlightData{
		Landings:       ptr(2),
		FlightHours:    ptr(1.5),
		AirframeHours:  ptr(1.7),
		FuelConsumed:   ptr(400.0),
		FuelLevelAfter: ptr(800.0),
	}
}

// failingServicing writes through to the wrapped repository and then reports a failure,
// as a store that applied a write but lost the acknowledgement would.
type failingServicing struct {
	persistence.ServicingRepository
	fail bool
}

func (f *failingServicing) Save(ctx context.Context, rec *models.ServicingRecord) error {
	if err := f.ServicingRepository.Save(ctx, rec); err != nil {
		return err
	}

	if f.fail {
		return errors.New("connection reset")
	}

	return nil
}

type flakyStore struct {
	persistence.Persistence
	servicing *failingServicing
}

func (s *flakyStore) ServicingRepository() persistence.ServicingRepository {
	return s.servicing
}
