package models

import (
	"slices"
	"strings"
)

// Trade is a personnel specialty code.
type Trade string

const (
	TradeAE  Trade = "AE"  // Air Engineer
	TradeAL  Trade = "AL"  // Air Electrical
	TradeAR  Trade = "AR"  // Air Radio
	TradeAO  Trade = "AO"  // Air Ordnance
	TradeSE  Trade = "SE"  // Senior Engineer
	TradeSUP Trade = "SUP" // Supervisor
)

// WorkTrades are the trades that can be assigned to servicing work, in display order.
var WorkTrades = []Trade{TradeAE, TradeAL, TradeAR, TradeAO, TradeSE}

// ParseTrade parses a trade code case-insensitively.
func ParseTrade(s string) (Trade, bool) {
	t := Trade(strings.ToUpper(strings.TrimSpace(s)))
	if t == TradeSUP || slices.Contains(WorkTrades, t) {
		return t, true
	}

	return "", false
}

// Role is an authority held in addition to a trade.
type Role string

const (
	RoleFSI      Role = "FSI"      // Flight Safety Inspector
	RolePilot    Role = "PILOT"    // Pilot in command
	RoleEngineer Role = "ENGINEER" // Post-flight engineer
	RoleATO      Role = "ATO"      // Maintenance job card authority
)

// PersonnelIdentity is a directory entry. PINHash is a bcrypt hash and is never serialized.
type PersonnelIdentity struct {
	PNO     string `json:"pno"`
	Name    string `json:"name"`
	Rank    string `json:"rank"`
	Trade   Trade  `json:"trade"`
	Roles   []Role `json:"roles,omitempty"`
	PINHash string `json:"-"`
}

// HasRole reports whether the person holds role.
func (p *PersonnelIdentity) HasRole(role Role) bool {
	return slices.Contains(p.Roles, role)
}

// Candidate returns the public view of the identity.
func (p *PersonnelIdentity) Candidate() Candidate {
	return Candidate{
		PNO:   p.PNO,
		Name:  p.Name,
		Rank:  p.Rank,
		Trade: p.Trade,
		Roles: slices.Clone(p.Roles),
	}
}

// Ref returns a snapshot suitable for storing inside workflow records.
func (p *PersonnelIdentity) Ref() PersonnelRef {
	return PersonnelRef{
		PNO:   p.PNO,
		Name:  p.Name,
		Rank:  p.Rank,
		Trade: p.Trade,
	}
}

// Candidate is what the directory exposes to clients.
type Candidate struct {
	PNO   string `json:"pno"`
	Name  string `json:"name"`
	Rank  string `json:"rank"`
	Trade Trade  `json:"trade"`
	Roles []Role `json:"roles,omitempty"`
}

// PersonnelRef is a snapshot of a person taken at assignment or signing time.
type PersonnelRef struct {
	PNO   string `json:"pno"`
	Name  string `json:"name"`
	Rank  string `json:"rank"`
	Trade Trade  `json:"trade"`
}
