package workflow

import (
	"testing"

	"github.com/dukex/flightline/pkg/events"
	"github.com/dukex/flightline/pkg/mocks"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func minimalController(t *testing.T, opts ...Option) *Controller {
	t.Helper()

	return newTestController(t, append([]Option{WithVariants(minimalBFS(), models.DefaultAFSVariant())}, opts...)...)
}

// staffMinimal assigns AE001 and moves a minimal BFS to TRADESMEN_SIGN.
func staffMinimal(t *testing.T, c *Controller) {
	t.Helper()

	startBFS(t, c)

	_, err := c.Assign(t.Context(), tail, models.ServicingBFS, models.TradeAE, "AE001")
	require.NoError(t, err)

	rec, err := c.Advance(t.Context(), tail, models.ServicingBFS)
	require.NoError(t, err)
	require.Equal(t, models.SubStepTradesmenSign, rec.SubStep)
}

func TestServicing_MinimalFlowUnlocksPilotAcceptance(t *testing.T) {
	c := minimalController(t)
	ctx := t.Context()

	staffMinimal(t, c)

	rec, err := c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "1111")
	require.NoError(t, err)
	assert.True(t, rec.Signatures.Has(models.TradeSlot(models.TradeAE), "AE001"))

	rec, err = c.Advance(ctx, tail, models.ServicingBFS)
	require.NoError(t, err)
	assert.Equal(t, models.SubStepFSIFinalApprove, rec.SubStep)

	assertCode(t, c.CanEnter(ctx, tail, models.StagePilotAcceptance), opserr.CodeStageLocked)

	rec, err = c.FinalApprove(ctx, tail, models.ServicingBFS, "FSI001", "1234")
	require.NoError(t, err)
	assert.Equal(t, models.ServicingStatusFSIApproved, rec.Status)
	assert.Equal(t, models.SubStepDone, rec.SubStep)
	assert.NotNil(t, rec.CompletedAt)

	require.NoError(t, c.CanEnter(ctx, tail, models.StagePilotAcceptance))
}

func TestServicing_WrongPINLeavesSlotUnsigned(t *testing.T) {
	c := minimalController(t)
	ctx := t.Context()

	staffMinimal(t, c)

	_, err := c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "0000")
	assertCode(t, err, opserr.CodeInvalidPIN)

	_, err = c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "  ")
	assertCode(t, err, opserr.CodeEmptyPIN)

	snap, err := c.State(ctx, tail)
	require.NoError(t, err)
	assert.False(t, snap.BFS.Signatures.HasSlot(models.TradeSlot(models.TradeAE)))

	_, err = c.Advance(ctx, tail, models.ServicingBFS)
	assertCode(t, err, opserr.CodeUnsignedSlots)
	assertCode(t, c.CanEnter(ctx, tail, models.StagePilotAcceptance), opserr.CodeStageLocked)
}

func TestServicing_FSIInitialAuthentication(t *testing.T) {
	c := newTestController(t)
	ctx := t.Context()

	_, err := c.Start(ctx, tail)
	require.NoError(t, err)

	_, err = c.EnterStage(ctx, tail, models.StageBFS)
	require.NoError(t, err)

	_, err = c.Advance(ctx, tail, models.ServicingBFS)
	assertCode(t, err, opserr.CodeUnsignedSlots)
	assert.Equal(t, []string{"FSI_INIT"}, missingOf(err))

	_, err = c.Assign(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001")
	assertCode(t, err, opserr.CodePreconditionNotMet)

	_, err = c.AuthenticateFSI(ctx, tail, models.ServicingBFS, "AE001", "1111")
	assertCode(t, err, opserr.CodeTradeMismatch)

	_, err = c.AuthenticateFSI(ctx, tail, models.ServicingBFS, "NOBODY", "1111")
	assertCode(t, err, opserr.CodePersonnelNotFound)

	rec, err := c.AuthenticateFSI(ctx, tail, models.ServicingBFS, "FSI001", "1234")
	require.NoError(t, err)
	assert.Equal(t, models.SubStepPersonnelAssign, rec.SubStep)
	require.NotNil(t, rec.Inspector)
	assert.Equal(t, "FSI001", rec.Inspector.PNO)
	assert.Equal(t, []models.Trade{models.TradeAE}, rec.SelectedTrades)
}

func TestServicing_DefaultFlowReportsEveryMissingItem(t *testing.T) {
	c := newTestController(t)
	ctx := t.Context()
	bfs := models.ServicingBFS

	startBFS(t, c)

	for _, trade := range []models.Trade{models.TradeAL, models.TradeAR} {
		_, err := c.SelectTrade(ctx, tail, bfs, trade)
		require.NoError(t, err)
	}

	_, err := c.Advance(ctx, tail, bfs)
	assertCode(t, err, opserr.CodeUnassignedTrade)
	assert.Equal(t, []string{"AE", "AL", "AR"}, missingOf(err))

	for pno, trade := range map[string]models.Trade{"AE001": models.TradeAE, "AL001": models.TradeAL, "AR001": models.TradeAR} {
		_, err := c.Assign(ctx, tail, bfs, trade, pno)
		require.NoError(t, err)
	}

	_, err = c.Advance(ctx, tail, bfs)
	assertCode(t, err, opserr.CodeNoSupervisor)

	_, err = c.SetSupervisor(ctx, tail, bfs, "")
	assertCode(t, err, opserr.CodeNoSupervisor)

	_, err = c.SetSupervisor(ctx, tail, bfs, "AE002")
	assertCode(t, err, opserr.CodeNotSupervisorTrade)

	_, err = c.SetSupervisor(ctx, tail, bfs, "SUP999")
	assertCode(t, err, opserr.CodeNoSupervisor)

	_, err = c.SetSupervisor(ctx, tail, bfs, "SUP001")
	require.NoError(t, err)

	rec, err := c.Advance(ctx, tail, bfs)
	require.NoError(t, err)
	assert.Equal(t, models.SubStepDataEntry, rec.SubStep)
	assert.Equal(t, models.ServicingStatusPersonnelAssigned, rec.Status)

	_, err = c.Advance(ctx, tail, bfs)
	assertCode(t, err, opserr.CodeMissingReading)
	assert.Equal(t, []string{"fuel_quantity", "tyre_pressure_main", "tyre_pressure_nose", "oil_filled"}, missingOf(err))

	_, err = c.AuthenticateReadings(ctx, tail, bfs, "AE001", "1111")
	assertCode(t, err, opserr.CodeMissingReading)

	_, err = c.EnterReadings(ctx, tail, bfs, models.Readings{FuelQuantity: ptr(-5.0)})
	assertCode(t, err, opserr.CodeInvalidInput)
	assert.Contains(t, missingOf(err), "fuelquantity gte")

	_, err = c.EnterReadings(ctx, tail, bfs, models.Readings{FuelQuantity: ptr(1200.0), OilFilled: ptr(true)})
	require.NoError(t, err)

	rec, err = c.EnterReadings(ctx, tail, bfs, models.Readings{TyrePressureMain: ptr(180.0), TyrePressureNose: ptr(60.0)})
	require.NoError(t, err)
	assert.Empty(t, rec.Readings.Missing())
	assert.InDelta(t, 1200.0, *rec.Readings.FuelQuantity, 0)

	_, err = c.Advance(ctx, tail, bfs)
	assertCode(t, err, opserr.CodeUnsignedSlots)
	assert.Equal(t, []string{"DATA_AE"}, missingOf(err))

	_, err = c.AuthenticateReadings(ctx, tail, bfs, "AE002", "1112")
	assertCode(t, err, opserr.CodeTradeMismatch)

	rec, err = c.AuthenticateReadings(ctx, tail, bfs, "AE001", "1111")
	require.NoError(t, err)
	assert.Equal(t, models.SubStepTradesmenSign, rec.SubStep)
	assert.Equal(t, models.ServicingStatusDataEntered, rec.Status)

	_, err = c.EnterReadings(ctx, tail, bfs, models.Readings{FuelQuantity: ptr(1000.0)})
	assertCode(t, err, opserr.CodePreconditionNotMet)

	_, err = c.Advance(ctx, tail, bfs)
	assertCode(t, err, opserr.CodeUnsignedSlots)
	assert.Equal(t, []string{"AE", "AL", "AR"}, missingOf(err))

	_, err = c.SignTradesman(ctx, tail, bfs, models.TradeAL, "AE001", "1111")
	assertCode(t, err, opserr.CodeTradeMismatch)

	_, err = c.SignSupervisor(ctx, tail, bfs, "SUP001", "9999")
	assertCode(t, err, opserr.CodePreconditionNotMet)

	for _, s := range []struct {
		trade    models.Trade
		pno, pin string
	}{
		{models.TradeAE, "AE001", "1111"},
		{models.TradeAL, "AL001", "2222"},
		{models.TradeAR, "AR001", "3333"},
	} {
		_, err := c.SignTradesman(ctx, tail, bfs, s.trade, s.pno, s.pin)
		require.NoError(t, err, s.pno)
	}

	rec, err = c.Advance(ctx, tail, bfs)
	require.NoError(t, err)
	assert.Equal(t, models.SubStepSupervisorSign, rec.SubStep)

	_, err = c.FinalApprove(ctx, tail, bfs, "FSI001", "1234")
	assertCode(t, err, opserr.CodePreconditionNotMet)

	_, err = c.SignSupervisor(ctx, tail, bfs, "FSI001", "1234")
	assertCode(t, err, opserr.CodeTradeMismatch)

	rec, err = c.SignSupervisor(ctx, tail, bfs, "SUP001", "9999")
	require.NoError(t, err)
	assert.Equal(t, models.SubStepFSIFinalApprove, rec.SubStep)

	_, err = c.FinalApprove(ctx, tail, bfs, "PLT001", "5678")
	assertCode(t, err, opserr.CodeTradeMismatch)

	rec, err = c.FinalApprove(ctx, tail, bfs, "FSI001", "1234")
	require.NoError(t, err)
	assert.Equal(t, models.ServicingStatusFSIApproved, rec.Status)
	assert.Len(t, rec.Signatures, 7)
}

func TestServicing_AlreadySigned(t *testing.T) {
	c := minimalController(t)
	ctx := t.Context()

	staffMinimal(t, c)

	rec, err := c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "1111")
	require.NoError(t, err)

	count := len(rec.Signatures)

	_, err = c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "1111")
	assertCode(t, err, opserr.CodeAlreadySigned)

	_, err = c.Advance(ctx, tail, models.ServicingBFS)
	require.NoError(t, err)

	rec, err = c.FinalApprove(ctx, tail, models.ServicingBFS, "FSI001", "1234")
	require.NoError(t, err)
	assert.Len(t, rec.Signatures, count+1)

	_, err = c.FinalApprove(ctx, tail, models.ServicingBFS, "FSI001", "1234")
	assertCode(t, err, opserr.CodeAlreadySigned)

	_, err = c.FinalApprove(ctx, tail, models.ServicingBFS, "FSI001", "wrong")
	assertCode(t, err, opserr.CodeAlreadySigned)

	snap, err := c.State(ctx, tail)
	require.NoError(t, err)
	assert.Len(t, snap.BFS.Signatures, count+1)
}

func TestServicing_ReplacingAssigneeInvalidatesSignature(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, tail, mock.Anything).Return(nil)

	c := minimalController(t, WithPublisher(bus))
	ctx := t.Context()

	staffMinimal(t, c)

	_, err := c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "1111")
	require.NoError(t, err)

	rec, err := c.Assign(ctx, tail, models.ServicingBFS, models.TradeAE, "AE002")
	require.NoError(t, err)
	assert.Equal(t, []string{"AE002"}, rec.Assignment.Members(models.TradeAE))
	assert.False(t, rec.Signatures.HasSlot(models.TradeSlot(models.TradeAE)))

	published := bus.Published()
	last, ok := published[len(published)-1].(events.SignatureInvalidated)
	require.True(t, ok)
	assert.Equal(t, "AE001", last.PNO)
	assert.Contains(t, last.Slots, models.TradeSlot(models.TradeAE))

	_, err = c.Advance(ctx, tail, models.ServicingBFS)
	assertCode(t, err, opserr.CodeUnsignedSlots)

	_, err = c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "1111")
	assertCode(t, err, opserr.CodeTradeMismatch)

	_, err = c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE002", "1112")
	require.NoError(t, err)

	_, err = c.Assign(ctx, tail, models.ServicingBFS, models.TradeAE, "AE002")
	assertCode(t, err, opserr.CodeDuplicate)

	_, err = c.Assign(ctx, tail, models.ServicingBFS, models.TradeAE, "AL001")
	assertCode(t, err, opserr.CodeTradeMismatch)

	_, err = c.Assign(ctx, tail, models.ServicingBFS, models.TradeAL, "AL001")
	assertCode(t, err, opserr.CodePreconditionNotMet)
}

func TestServicing_UnassignInvalidatesSignature(t *testing.T) {
	c := minimalController(t)
	ctx := t.Context()

	staffMinimal(t, c)

	_, err := c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "1111")
	require.NoError(t, err)

	_, err = c.Unassign(ctx, tail, models.ServicingBFS, models.TradeAE, "AE002")
	assertCode(t, err, opserr.CodePersonnelNotFound)

	rec, err := c.Unassign(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001")
	require.NoError(t, err)
	assert.Empty(t, rec.Assignment.Assigned(models.TradeAE))
	assert.Empty(t, rec.Signatures.BySlot(models.TradeSlot(models.TradeAE)))

	_, err = c.Advance(ctx, tail, models.ServicingBFS)
	assertCode(t, err, opserr.CodeUnsignedSlots)
	assert.Equal(t, []string{"AE"}, missingOf(err))
}

func TestServicing_DataTradeRosterChangeReopensDataEntry(t *testing.T) {
	c := newTestController(t)
	ctx := t.Context()
	bfs := models.ServicingBFS

	startBFS(t, c)

	_, err := c.Assign(ctx, tail, bfs, models.TradeAE, "AE001")
	require.NoError(t, err)
	_, err = c.SetSupervisor(ctx, tail, bfs, "SUP001")
	require.NoError(t, err)
	_, err = c.Advance(ctx, tail, bfs)
	require.NoError(t, err)
	_, err = c.EnterReadings(ctx, tail, bfs, models.Readings{
		FuelQuantity:     ptr(1200.0),
		TyrePressureMain: ptr(180.0),
		TyrePressureNose: ptr(60.0),
		OilFilled:        ptr(true),
	})
	require.NoError(t, err)

	rec, err := c.AuthenticateReadings(ctx, tail, bfs, "AE001", "1111")
	require.NoError(t, err)
	require.Equal(t, models.SubStepTradesmenSign, rec.SubStep)

	rec, err = c.Assign(ctx, tail, bfs, models.TradeAE, "AE002")
	require.NoError(t, err)
	assert.Equal(t, models.SubStepDataEntry, rec.SubStep)
	assert.Equal(t, models.ServicingStatusPersonnelAssigned, rec.Status)
	assert.False(t, rec.Signatures.HasSlot(models.DataSlot(models.TradeAE)))
	assert.Empty(t, rec.Readings.Missing())

	_, err = c.SignTradesman(ctx, tail, bfs, models.TradeAE, "AE002", "1112")
	assertCode(t, err, opserr.CodePreconditionNotMet)

	_, err = c.AuthenticateReadings(ctx, tail, bfs, "AE001", "1111")
	assertCode(t, err, opserr.CodeTradeMismatch)

	rec, err = c.AuthenticateReadings(ctx, tail, bfs, "AE002", "1112")
	require.NoError(t, err)
	require.Equal(t, models.SubStepTradesmenSign, rec.SubStep)

	rec, err = c.Unassign(ctx, tail, bfs, models.TradeAE, "AE002")
	require.NoError(t, err)
	assert.Equal(t, models.SubStepDataEntry, rec.SubStep)
	assert.Empty(t, rec.Assignment.Assigned(models.TradeAE))

	_, err = c.Assign(ctx, tail, bfs, models.TradeAE, "AE001")
	require.NoError(t, err)
	_, err = c.AuthenticateReadings(ctx, tail, bfs, "AE001", "1111")
	require.NoError(t, err)
	_, err = c.SignTradesman(ctx, tail, bfs, models.TradeAE, "AE001", "1111")
	require.NoError(t, err)
	_, err = c.Advance(ctx, tail, bfs)
	require.NoError(t, err)
	_, err = c.SignSupervisor(ctx, tail, bfs, "SUP001", "9999")
	require.NoError(t, err)

	rec, err = c.FinalApprove(ctx, tail, bfs, "FSI001", "1234")
	require.NoError(t, err)
	assert.Equal(t, models.ServicingStatusFSIApproved, rec.Status)
	require.NoError(t, c.CanEnter(ctx, tail, models.StagePilotAcceptance))
}

func TestServicing_OtherTradeRosterChangeKeepsStep(t *testing.T) {
	c := newTestController(t)
	ctx := t.Context()
	bfs := models.ServicingBFS

	startBFS(t, c)

	for _, step := range []func() (*models.ServicingRecord, error){
		func() (*models.ServicingRecord, error) { return c.Assign(ctx, tail, bfs, models.TradeAE, "AE001") },
		func() (*models.ServicingRecord, error) { return c.Assign(ctx, tail, bfs, models.TradeAL, "AL001") },
		func() (*models.ServicingRecord, error) { return c.SetSupervisor(ctx, tail, bfs, "SUP001") },
		func() (*models.ServicingRecord, error) { return c.Advance(ctx, tail, bfs) },
		func() (*models.ServicingRecord, error) {
			return c.EnterReadings(ctx, tail, bfs, models.Readings{
				FuelQuantity:     ptr(1200.0),
				TyrePressureMain: ptr(180.0),
				TyrePressureNose: ptr(60.0),
				OilFilled:        ptr(true),
			})
		},
		func() (*models.ServicingRecord, error) { return c.AuthenticateReadings(ctx, tail, bfs, "AE001", "1111") },
	} {
		_, err := step()
		require.NoError(t, err)
	}

	rec, err := c.Unassign(ctx, tail, bfs, models.TradeAL, "AL001")
	require.NoError(t, err)
	assert.Equal(t, models.SubStepTradesmenSign, rec.SubStep)
	assert.True(t, rec.Signatures.HasSlot(models.DataSlot(models.TradeAE)))
}

func TestServicing_SelectAndDeselectTrades(t *testing.T) {
	c := newTestController(t)
	ctx := t.Context()

	startBFS(t, c)

	_, err := c.SelectTrade(ctx, tail, models.ServicingBFS, models.TradeSUP)
	assertCode(t, err, opserr.CodeInvalidInput)

	_, err = c.SelectTrade(ctx, tail, models.ServicingKind("XFS"), models.TradeAL)
	assertCode(t, err, opserr.CodeInvalidInput)

	_, err = c.DeselectTrade(ctx, tail, models.ServicingBFS, models.TradeAE)
	assertCode(t, err, opserr.CodePreconditionNotMet)

	_, err = c.Assign(ctx, tail, models.ServicingBFS, models.TradeAL, "AL001")
	require.NoError(t, err)

	rec, err := c.DeselectTrade(ctx, tail, models.ServicingBFS, models.TradeAL)
	require.NoError(t, err)
	assert.Equal(t, []models.Trade{models.TradeAE}, rec.SelectedTrades)
	assert.Empty(t, rec.Assignment.Assigned(models.TradeAL))
}

func TestServicing_SetSupervisorReplacesSupervisor(t *testing.T) {
	c := newTestController(t)
	ctx := t.Context()
	bfs := models.ServicingBFS

	startBFS(t, c)

	rec, err := c.SetSupervisor(ctx, tail, bfs, "SUP001")
	require.NoError(t, err)
	require.NotNil(t, rec.Supervisor)
	assert.Equal(t, "SUP001", rec.Supervisor.PNO)

	rec, err = c.SetSupervisor(ctx, tail, bfs, "FSI001")
	require.NoError(t, err)
	assert.Equal(t, "FSI001", rec.Supervisor.PNO)
}

func TestServicing_PINThrottle(t *testing.T) {
	c := minimalController(t)
	ctx := t.Context()

	staffMinimal(t, c)

	for range 5 {
		_, err := c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "0000")
		assertCode(t, err, opserr.CodeInvalidPIN)
	}

	_, err := c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "1111")
	assertCode(t, err, opserr.CodeTooManyAttempts)
}

func TestServicing_UncertainTerminalWrite(t *testing.T) {
	inner := file.NewPersistence(t.TempDir())
	store := &flakyStore{
		Persistence: inner,
		servicing:   &failingServicing{ServicingRepository: inner.ServicingRepository()},
	}

	c := newController(t, store, WithVariants(minimalBFS(), models.DefaultAFSVariant()))
	ctx := t.Context()

	staffMinimal(t, c)

	_, err := c.SignTradesman(ctx, tail, models.ServicingBFS, models.TradeAE, "AE001", "1111")
	require.NoError(t, err)

	_, err = c.Advance(ctx, tail, models.ServicingBFS)
	require.NoError(t, err)

	store.servicing.fail = true

	_, err = c.FinalApprove(ctx, tail, models.ServicingBFS, "FSI001", "1234")
	assertCode(t, err, opserr.CodeUncertainState)
	assert.True(t, opserr.IsKind(err, opserr.KindUncertain))

	store.servicing.fail = false

	_, err = c.FinalApprove(ctx, tail, models.ServicingBFS, "FSI001", "1234")
	assertCode(t, err, opserr.CodeAlreadySigned)

	require.NoError(t, c.CanEnter(ctx, tail, models.StagePilotAcceptance))
}

func TestServicing_NonTerminalWriteFailureIsPlainError(t *testing.T) {
	inner := file.NewPersistence(t.TempDir())
	store := &flakyStore{
		Persistence: inner,
		servicing:   &failingServicing{ServicingRepository: inner.ServicingRepository()},
	}

	c := newController(t, store)
	startBFS(t, c)

	store.servicing.fail = true

	_, err := c.SelectTrade(t.Context(), tail, models.ServicingBFS, models.TradeAL)
	require.Error(t, err)
	assert.Empty(t, opserr.CodeOf(err))
}
