package models

import (
	"slices"
	"strings"
)

// Assignment maps each trade to the ordered list of people assigned to it.
// MaxPerTrade of 1 means a new assignee replaces the current one; 0 means unlimited.
type Assignment struct {
	MaxPerTrade int                      `json:"max_per_trade"`
	Trades      map[Trade][]PersonnelRef `json:"trades"`
}

// NewAssignment returns an empty assignment.
func NewAssignment(maxPerTrade int) Assignment {
	return Assignment{
		MaxPerTrade: maxPerTrade,
		Trades:      map[Trade][]PersonnelRef{},
	}
}

// Assigned returns the people assigned to trade.
func (a Assignment) Assigned(trade Trade) []PersonnelRef {
	return a.Trades[trade]
}

// IsAssigned reports whether pno is assigned to trade.
func (a Assignment) IsAssigned(trade Trade, pno string) bool {
	return slices.ContainsFunc(a.Trades[trade], func(p PersonnelRef) bool {
		return strings.EqualFold(p.PNO, pno)
	})
}

// AssignedTrades returns trades with at least one assignee, in WorkTrades order.
func (a Assignment) AssignedTrades() []Trade {
	var out []Trade

	for _, trade := range WorkTrades {
		if len(a.Trades[trade]) > 0 {
			out = append(out, trade)
		}
	}

	return out
}

// Members returns the PNOs assigned to trade. The result is never nil, so an
// unstaffed trade admits nobody.
func (a Assignment) Members(trade Trade) []string {
	out := make([]string, 0, len(a.Trades[trade]))
	for _, p := range a.Trades[trade] {
		out = append(out, p.PNO)
	}

	return out
}
