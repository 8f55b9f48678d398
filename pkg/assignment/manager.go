// Package assignment manages which personnel are assigned to each trade of a servicing stage.
package assignment

import (
	"context"
	"slices"
	"strings"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/personnel"
)

// Manager assigns personnel to trades and validates that a stage is fully staffed.
type Manager struct {
	directory personnel.Directory
}

// NewManager creates a manager backed by directory.
func NewManager(directory personnel.Directory) *Manager {
	return &Manager{directory: directory}
}

// Search returns live suggestions for query.
func (m *Manager) Search(ctx context.Context, query string) ([]models.Candidate, error) {
	return m.directory.Search(ctx, query)
}

// Lookup resolves pno through the directory.
func (m *Manager) Lookup(ctx context.Context, pno string) (*models.PersonnelIdentity, error) {
	if strings.TrimSpace(pno) == "" {
		return nil, opserr.New(opserr.CodePersonnelNotFound, "no personnel selected")
	}

	return m.directory.Lookup(ctx, pno)
}

// Assign adds candidate to trade. In single-assignment variants the current assignee is
// replaced and returned, and their signatures for the trade are invalidated.
func (m *Manager) Assign(
	a *models.Assignment,
	sigs *models.SignatureSet,
	trade models.Trade,
	candidate *models.PersonnelIdentity,
) (*models.PersonnelRef, error) {
	if candidate == nil {
		return nil, opserr.New(opserr.CodePersonnelNotFound, "no personnel selected")
	}

	if candidate.Trade != trade {
		return nil, opserr.New(opserr.CodeTradeMismatch, "%s is trade %s, cannot be assigned to %s", candidate.PNO, candidate.Trade, trade)
	}

	if a.IsAssigned(trade, candidate.PNO) {
		return nil, opserr.New(opserr.CodeDuplicate, "%s is already assigned to %s", candidate.PNO, trade)
	}

	if a.Trades == nil {
		a.Trades = map[models.Trade][]models.PersonnelRef{}
	}

	current := a.Trades[trade]

	if a.MaxPerTrade == 1 && len(current) > 0 {
		replaced := current[0]
		a.Trades[trade] = []models.PersonnelRef{candidate.Ref()}
		invalidate(sigs, trade, replaced.PNO)

		return &replaced, nil
	}

	if a.MaxPerTrade > 1 && len(current) >= a.MaxPerTrade {
		return nil, opserr.New(opserr.CodePreconditionNotMet, "trade %s already has %d assignees", trade, a.MaxPerTrade)
	}

	a.Trades[trade] = append(current, candidate.Ref())

	return nil, nil
}

// Unassign removes pno from trade and invalidates their signatures for it.
func (m *Manager) Unassign(a *models.Assignment, sigs *models.SignatureSet, trade models.Trade, pno string) error {
	people := a.Trades[trade]

	i := slices.IndexFunc(people, func(p models.PersonnelRef) bool { return strings.EqualFold(p.PNO, pno) })
	if i < 0 {
		return opserr.New(opserr.CodePersonnelNotFound, "%s is not assigned to %s", pno, trade)
	}

	a.Trades[trade] = slices.Delete(slices.Clone(people), i, i+1)
	if len(a.Trades[trade]) == 0 {
		delete(a.Trades, trade)
	}

	invalidate(sigs, trade, pno)

	return nil
}

// Clear removes every assignee of trade, invalidating their signatures.
func (m *Manager) Clear(a *models.Assignment, sigs *models.SignatureSet, trade models.Trade) {
	for _, p := range a.Trades[trade] {
		invalidate(sigs, trade, p.PNO)
	}

	delete(a.Trades, trade)
}

// ValidateComplete checks that every required trade has an assignee and, when
// supervisorRequired, that supervisorPNO resolves to a SUP tradesman. All unassigned
// trades are reported together. The resolved supervisor is returned.
func (m *Manager) ValidateComplete(
	ctx context.Context,
	required []models.Trade,
	a models.Assignment,
	supervisorPNO string,
	supervisorRequired bool,
) (*models.PersonnelIdentity, error) {
	if len(required) == 0 {
		return nil, opserr.New(opserr.CodeUnassignedTrade, "no trades selected")
	}

	var missing []string

	for _, trade := range required {
		if len(a.Assigned(trade)) == 0 {
			missing = append(missing, string(trade))
		}
	}

	if len(missing) > 0 {
		return nil, opserr.WithMissing(opserr.CodeUnassignedTrade, "trades not assigned", missing)
	}

	if !supervisorRequired {
		return nil, nil
	}

	if strings.TrimSpace(supervisorPNO) == "" {
		return nil, opserr.New(opserr.CodeNoSupervisor, "supervisor is required")
	}

	supervisor, err := m.directory.Lookup(ctx, supervisorPNO)
	if err != nil {
		if opserr.HasCode(err, opserr.CodePersonnelNotFound) {
			return nil, opserr.New(opserr.CodeNoSupervisor, "supervisor %s not found", supervisorPNO)
		}

		return nil, err
	}

	if supervisor.Trade != models.TradeSUP {
		return nil, opserr.New(opserr.CodeNotSupervisorTrade, "%s is trade %s, supervisor must be SUP", supervisor.PNO, supervisor.Trade)
	}

	return supervisor, nil
}

func invalidate(sigs *models.SignatureSet, trade models.Trade, pno string) {
	if sigs == nil {
		return
	}

	sigs.Invalidate(pno, models.TradeSlot(trade), models.DataSlot(trade))
}
