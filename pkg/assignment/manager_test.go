package assignment_test

import (
	"context"
	"testing"

	"github.com/dukex/flightline/pkg/assignment"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/personnel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ae1 = models.PersonnelIdentity{PNO: "AE001", Name: "Rajesh Kumar", Trade: models.TradeAE}
	ae2 = models.PersonnelIdentity{PNO: "AE002", Name: "Amit Sharma", Trade: models.TradeAE}
	al1 = models.PersonnelIdentity{PNO: "AL001", Name: "Suresh Patel", Trade: models.TradeAL}
	sup = models.PersonnelIdentity{PNO: "SUP001", Name: "Vijay Reddy", Trade: models.TradeSUP}
)

func newManager() *assignment.Manager {
	return assignment.NewManager(personnel.NewMemoryDirectory(ae1, ae2, al1, sup))
}

func TestManager_Assign(t *testing.T) {
	t.Parallel()

	t.Run("trade mismatch", func(t *testing.T) {
		t.Parallel()

		a := models.NewAssignment(0)
		_, err := newManager().Assign(&a, nil, models.TradeAL, &ae1)
		assert.True(t, opserr.HasCode(err, opserr.CodeTradeMismatch))
		assert.Empty(t, a.Trades)
	})

	t.Run("nil candidate", func(t *testing.T) {
		t.Parallel()

		a := models.NewAssignment(0)
		_, err := newManager().Assign(&a, nil, models.TradeAE, nil)
		assert.True(t, opserr.HasCode(err, opserr.CodePersonnelNotFound))
	})

	t.Run("duplicate", func(t *testing.T) {
		t.Parallel()

		m := newManager()
		a := models.NewAssignment(0)
		_, err := m.Assign(&a, nil, models.TradeAE, &ae1)
		require.NoError(t, err)

		_, err = m.Assign(&a, nil, models.TradeAE, &ae1)
		assert.True(t, opserr.HasCode(err, opserr.CodeDuplicate))
		assert.Len(t, a.Assigned(models.TradeAE), 1)
	})

	t.Run("multi variant appends in order", func(t *testing.T) {
		t.Parallel()

		m := newManager()
		a := models.NewAssignment(0)
		_, err := m.Assign(&a, nil, models.TradeAE, &ae1)
		require.NoError(t, err)
		_, err = m.Assign(&a, nil, models.TradeAE, &ae2)
		require.NoError(t, err)

		assert.Equal(t, []models.PersonnelRef{ae1.Ref(), ae2.Ref()}, a.Assigned(models.TradeAE))
	})

	t.Run("capped variant refuses extra assignee", func(t *testing.T) {
		t.Parallel()

		m := newManager()
		a := models.NewAssignment(2)
		extra := models.PersonnelIdentity{PNO: "AE003", Trade: models.TradeAE}

		_, err := m.Assign(&a, nil, models.TradeAE, &ae1)
		require.NoError(t, err)
		_, err = m.Assign(&a, nil, models.TradeAE, &ae2)
		require.NoError(t, err)
		_, err = m.Assign(&a, nil, models.TradeAE, &extra)
		assert.True(t, opserr.HasCode(err, opserr.CodePreconditionNotMet))
	})

	t.Run("single variant replaces and invalidates", func(t *testing.T) {
		t.Parallel()

		m := newManager()
		a := models.NewAssignment(1)
		sigs := models.SignatureSet{
			{Slot: "AE", PNO: "AE001"},
			{Slot: "DATA_AE", PNO: "AE001"},
		}

		_, err := m.Assign(&a, &sigs, models.TradeAE, &ae1)
		require.NoError(t, err)

		replaced, err := m.Assign(&a, &sigs, models.TradeAE, &ae2)
		require.NoError(t, err)
		require.NotNil(t, replaced)
		assert.Equal(t, "AE001", replaced.PNO)
		assert.Equal(t, []models.PersonnelRef{ae2.Ref()}, a.Assigned(models.TradeAE))
		assert.Empty(t, sigs)
	})
}

func TestManager_UnassignInvalidatesSignatures(t *testing.T) {
	t.Parallel()

	m := newManager()
	a := models.NewAssignment(0)
	sigs := models.SignatureSet{
		{Slot: "AE", PNO: "AE001"},
		{Slot: "AE", PNO: "AE002"},
		{Slot: "AL", PNO: "AL001"},
	}

	for _, p := range []*models.PersonnelIdentity{&ae1, &ae2} {
		_, err := m.Assign(&a, &sigs, models.TradeAE, p)
		require.NoError(t, err)
	}

	require.NoError(t, m.Unassign(&a, &sigs, models.TradeAE, "ae001"))

	assert.Equal(t, []models.PersonnelRef{ae2.Ref()}, a.Assigned(models.TradeAE))
	assert.False(t, sigs.Has("AE", "AE001"))
	assert.True(t, sigs.Has("AE", "AE002"))
	assert.True(t, sigs.Has("AL", "AL001"))

	err := m.Unassign(&a, &sigs, models.TradeAE, "AE001")
	assert.True(t, opserr.HasCode(err, opserr.CodePersonnelNotFound))
}

func TestManager_Clear(t *testing.T) {
	t.Parallel()

	m := newManager()
	a := models.NewAssignment(0)
	sigs := models.SignatureSet{{Slot: "AL", PNO: "AL001"}}

	_, err := m.Assign(&a, &sigs, models.TradeAL, &al1)
	require.NoError(t, err)

	m.Clear(&a, &sigs, models.TradeAL)

	assert.Empty(t, a.Assigned(models.TradeAL))
	assert.Empty(t, sigs)
}

func TestManager_ValidateComplete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	required := []models.Trade{models.TradeAE, models.TradeAL, models.TradeAR}

	t.Run("names every unassigned trade", func(t *testing.T) {
		t.Parallel()

		_, err := newManager().ValidateComplete(ctx, required, models.NewAssignment(1), "SUP001", true)

		var opErr *opserr.Error
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, opserr.CodeUnassignedTrade, opErr.Code)
		assert.Equal(t, []string{"AE", "AL", "AR"}, opErr.Missing)
		assert.Contains(t, opErr.Error(), "AE, AL, AR")
	})

	t.Run("no trades selected", func(t *testing.T) {
		t.Parallel()

		_, err := newManager().ValidateComplete(ctx, nil, models.NewAssignment(1), "SUP001", true)
		assert.True(t, opserr.HasCode(err, opserr.CodeUnassignedTrade))
	})

	complete := models.NewAssignment(1)
	complete.Trades[models.TradeAE] = []models.PersonnelRef{ae1.Ref()}

	tests := []struct {
		name       string
		supervisor string
		required   bool
		want       opserr.Code
	}{
		{name: "blank supervisor", supervisor: " ", required: true, want: opserr.CodeNoSupervisor},
		{name: "unknown supervisor", supervisor: "SUP999", required: true, want: opserr.CodeNoSupervisor},
		{name: "supervisor of wrong trade", supervisor: "AL001", required: true, want: opserr.CodeNotSupervisorTrade},
		{name: "valid supervisor", supervisor: "sup001", required: true},
		{name: "supervisor not required", supervisor: "", required: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := newManager().ValidateComplete(ctx, []models.Trade{models.TradeAE}, complete, tt.supervisor, tt.required)
			if tt.want != "" {
				assert.True(t, opserr.HasCode(err, tt.want), "got %v", err)

				return
			}

			require.NoError(t, err)

			if tt.required {
				assert.Equal(t, "SUP001", got.PNO)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}
