// Package signoff implements the PIN sign-off primitive shared by every role.
package signoff

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dukex/flightline/pkg/metrics"
	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
	"github.com/dukex/flightline/pkg/personnel"
)

const (
	defaultMaxFailures = 5
	defaultRefill      = 30 * time.Second
)

// Requirement describes who may sign a slot.
type Requirement struct {
	// Trade the signer must hold. Empty accepts any trade.
	Trade models.Trade
	// Role the signer must hold. Empty requires no role.
	Role models.Role
	// Members restricts signing to these PNOs when non-nil.
	Members []string
}

func (r Requirement) admits(p *models.PersonnelIdentity) (bool, string) {
	if r.Trade != "" && p.Trade != r.Trade {
		return false, "trade " + string(p.Trade) + " does not match required trade " + string(r.Trade)
	}

	if r.Role != "" && !p.HasRole(r.Role) {
		return false, p.PNO + " does not hold role " + string(r.Role)
	}

	if r.Members != nil && !slices.ContainsFunc(r.Members, func(m string) bool { return strings.EqualFold(m, p.PNO) }) {
		return false, p.PNO + " is not assigned to this slot"
	}

	return true, ""
}

// Verifier checks a claimed identity and PIN and appends the resulting signature.
type Verifier struct {
	logger   *slog.Logger
	throttle *Throttle
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithThrottle overrides the failed-attempt throttle.
func WithThrottle(t *Throttle) Option {
	return func(v *Verifier) { v.throttle = t }
}

// WithMetrics records attempts on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Verifier) { v.metrics = m }
}

// NewVerifier creates a verifier with a default throttle of five failures per 30 seconds.
func NewVerifier(logger *slog.Logger, opts ...Option) *Verifier {
	v := &Verifier{
		logger:   logger.With("module", "signoff"),
		throttle: NewThrottle(defaultMaxFailures, defaultRefill),
		now:      func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Authenticate runs the identity and PIN checks without touching any signature set.
// Checks run in order: not found, trade or role mismatch, empty PIN, throttle, PIN.
func (v *Verifier) Authenticate(slot models.Slot, candidate *models.PersonnelIdentity, pin string, req Requirement) error {
	err := v.authenticate(candidate, pin, req)
	v.observe(slot, err)

	return err
}

func (v *Verifier) authenticate(candidate *models.PersonnelIdentity, pin string, req Requirement) error {
	if candidate == nil {
		return opserr.New(opserr.CodePersonnelNotFound, "no personnel selected")
	}

	if ok, reason := req.admits(candidate); !ok {
		return opserr.New(opserr.CodeTradeMismatch, "%s", reason)
	}

	if strings.TrimSpace(pin) == "" {
		return opserr.New(opserr.CodeEmptyPIN, "PIN is required for %s", candidate.PNO)
	}

	now := v.now()
	if v.throttle.Blocked(candidate.PNO, now) {
		v.logger.Warn("PIN attempts throttled", "pno", candidate.PNO)

		return opserr.New(opserr.CodeTooManyAttempts, "too many failed PIN attempts for %s, try again later", candidate.PNO)
	}

	if !personnel.ComparePIN(candidate.PINHash, pin) {
		v.throttle.Fail(candidate.PNO, now)

		return opserr.New(opserr.CodeInvalidPIN, "invalid PIN for %s", candidate.PNO)
	}

	v.throttle.Reset(candidate.PNO)

	return nil
}

// Verify authenticates candidate for slot and, on success, appends a new signature to set.
// A person who already signed the slot gets ALREADY_SIGNED and the set is left unchanged.
func (v *Verifier) Verify(
	set *models.SignatureSet,
	slot models.Slot,
	candidate *models.PersonnelIdentity,
	pin string,
	req Requirement,
) (models.Signature, error) {
	if err := v.authenticate(candidate, pin, req); err != nil {
		v.observe(slot, err)

		return models.Signature{}, err
	}

	if set.Has(slot, candidate.PNO) {
		err := opserr.New(opserr.CodeAlreadySigned, "%s already signed %s", candidate.PNO, slot)
		v.observe(slot, err)

		return models.Signature{}, err
	}

	sig := models.Signature{
		Slot:     slot,
		PNO:      candidate.PNO,
		Name:     candidate.Name,
		Rank:     candidate.Rank,
		Trade:    candidate.Trade,
		SignedAt: v.now(),
	}

	set.Append(sig)
	v.observe(slot, nil)
	v.logger.Info("Signature applied", "slot", slot, "pno", candidate.PNO)

	return sig, nil
}

func (v *Verifier) observe(slot models.Slot, err error) {
	if v.metrics == nil {
		return
	}

	result := "OK"
	if err != nil {
		result = string(opserr.CodeOf(err))
	}

	v.metrics.SignoffAttempts.WithLabelValues(slotLabel(slot), result).Inc()
}

// slotLabel keeps metric cardinality bounded by folding trade slots together.
func slotLabel(slot models.Slot) string {
	switch {
	case slot.IsDataSlot():
		return "DATA"
	case slices.Contains(models.WorkTrades, models.Trade(slot)):
		return "TRADESMAN"
	default:
		return string(slot)
	}
}
