// Package personnel provides the read-only personnel directory used for assignment and sign-off.
package personnel

import (
	"context"
	"slices"
	"strings"

	"github.com/dukex/flightline/pkg/models"
	"github.com/dukex/flightline/pkg/opserr"
)

const (
	// MaxSuggestions caps the number of candidates returned by Search.
	MaxSuggestions = 5

	// MinQueryLength is the shortest query that produces suggestions.
	MinQueryLength = 2
)

// Directory looks people up by PNO and serves live search suggestions.
type Directory interface {
	// Lookup returns the identity for pno, or a PERSONNEL_NOT_FOUND error.
	Lookup(ctx context.Context, pno string) (*models.PersonnelIdentity, error)

	// Search returns up to MaxSuggestions candidates matching query.
	Search(ctx context.Context, query string) ([]models.Candidate, error)
}

// MemoryDirectory is a Directory over a fixed set of identities.
type MemoryDirectory struct {
	entries []models.PersonnelIdentity
	byPNO   map[string]int
}

// NewMemoryDirectory creates a directory. Later entries with a duplicate PNO are ignored.
func NewMemoryDirectory(entries ...models.PersonnelIdentity) *MemoryDirectory {
	d := &MemoryDirectory{byPNO: make(map[string]int, len(entries))}

	for _, e := range entries {
		key := strings.ToUpper(e.PNO)
		if _, exists := d.byPNO[key]; exists {
			continue
		}

		d.byPNO[key] = len(d.entries)
		d.entries = append(d.entries, e)
	}

	return d
}

// Entries returns a copy of every identity, PIN hashes included.
func (d *MemoryDirectory) Entries() []models.PersonnelIdentity {
	return slices.Clone(d.entries)
}

// Lookup returns a copy of the identity for pno.
func (d *MemoryDirectory) Lookup(_ context.Context, pno string) (*models.PersonnelIdentity, error) {
	i, ok := d.byPNO[strings.ToUpper(strings.TrimSpace(pno))]
	if !ok {
		return nil, opserr.New(opserr.CodePersonnelNotFound, "personnel %s not found", pno)
	}

	identity := d.entries[i]
	identity.Roles = slices.Clone(identity.Roles)

	return &identity, nil
}

// Search matches query against PNO and name.
func (d *MemoryDirectory) Search(_ context.Context, query string) ([]models.Candidate, error) {
	return Rank(d.entries, query), nil
}

// Len returns the number of identities.
func (d *MemoryDirectory) Len() int {
	return len(d.entries)
}

// Rank filters entries by a case-insensitive substring match on PNO or name. PNO prefix
// matches come first, then name prefix matches, then the rest, each in directory order.
func Rank(entries []models.PersonnelIdentity, query string) []models.Candidate {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < MinQueryLength {
		return []models.Candidate{}
	}

	type scored struct {
		score int
		idx   int
	}

	var hits []scored

	for i := range entries {
		pno := strings.ToLower(entries[i].PNO)
		name := strings.ToLower(entries[i].Name)

		switch {
		case strings.HasPrefix(pno, q):
			hits = append(hits, scored{0, i})
		case strings.HasPrefix(name, q):
			hits = append(hits, scored{1, i})
		case strings.Contains(pno, q) || strings.Contains(name, q):
			hits = append(hits, scored{2, i})
		}
	}

	slices.SortStableFunc(hits, func(a, b scored) int { return a.score - b.score })

	out := make([]models.Candidate, 0, min(len(hits), MaxSuggestions))
	for _, h := range hits {
		if len(out) == MaxSuggestions {
			break
		}

		out = append(out, entries[h.idx].Candidate())
	}

	return out
}
