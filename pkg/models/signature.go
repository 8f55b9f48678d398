package models

import (
	"strings"
	"time"
)

// Slot names a place in a record where a signature can be applied.
type Slot string

const (
	SlotSupervisor Slot = "SUPERVISOR"
	SlotFSIInit    Slot = "FSI_INIT"
	SlotFSI        Slot = "FSI"
	SlotPilot      Slot = "PILOT"
	SlotEngineer   Slot = "ENGINEER"
	SlotATO        Slot = "ATO"
)

// TradeSlot is the tradesman slot for trade.
func TradeSlot(trade Trade) Slot {
	return Slot(trade)
}

// DataSlot is the slot used when a tradesman authenticates entered data.
func DataSlot(trade Trade) Slot {
	return Slot("DATA_" + string(trade))
}

// IsDataSlot reports whether s is a data-authentication slot.
func (s Slot) IsDataSlot() bool {
	return strings.HasPrefix(string(s), "DATA_")
}

// Signature records that a person signed a slot.
type Signature struct {
	Slot     Slot      `json:"slot"`
	PNO      string    `json:"pno"`
	Name     string    `json:"name"`
	Rank     string    `json:"rank"`
	Trade    Trade     `json:"trade"`
	SignedAt time.Time `json:"signed_at"`
}

// SignatureSet is the append-only signature log of one record.
type SignatureSet []Signature

// Has reports whether pno already signed slot.
func (s SignatureSet) Has(slot Slot, pno string) bool {
	for _, sig := range s {
		if sig.Slot == slot && strings.EqualFold(sig.PNO, pno) {
			return true
		}
	}

	return false
}

// HasSlot reports whether anyone signed slot.
func (s SignatureSet) HasSlot(slot Slot) bool {
	for _, sig := range s {
		if sig.Slot == slot {
			return true
		}
	}

	return false
}

// BySlot returns the signatures applied to slot in signing order.
func (s SignatureSet) BySlot(slot Slot) []Signature {
	var out []Signature

	for _, sig := range s {
		if sig.Slot == slot {
			out = append(out, sig)
		}
	}

	return out
}

// First returns the first signature of slot.
func (s SignatureSet) First(slot Slot) (Signature, bool) {
	for _, sig := range s {
		if sig.Slot == slot {
			return sig, true
		}
	}

	return Signature{}, false
}

// Append adds sig unless the same person already signed the slot.
func (s *SignatureSet) Append(sig Signature) bool {
	if s.Has(sig.Slot, sig.PNO) {
		return false
	}

	*s = append(*s, sig)

	return true
}

// Invalidate drops the signatures of pno on any of slots and returns how many were removed.
func (s *SignatureSet) Invalidate(pno string, slots ...Slot) int {
	kept := (*s)[:0]
	removed := 0

	for _, sig := range *s {
		if strings.EqualFold(sig.PNO, pno) && containsSlot(slots, sig.Slot) {
			removed++

			continue
		}

		kept = append(kept, sig)
	}

	*s = kept

	return removed
}

func containsSlot(slots []Slot, slot Slot) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}

	return false
}

// InvalidateSlot drops every signature on slot and returns the PNOs that were removed.
func (s *SignatureSet) InvalidateSlot(slot Slot) []string {
	var pnos []string

	for _, sig := range s.BySlot(slot) {
		pnos = append(pnos, sig.PNO)
		s.Invalidate(sig.PNO, slot)
	}

	return pnos
}
