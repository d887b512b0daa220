package reward

import (
	"errors"
	"fmt"
)

// Special outcome tags on a prize entry.
const (
	// SpecialRespin grants another draw without consuming quota.
	SpecialRespin = "respin"
	// SpecialUnlock grants a one-time cosmetic unlock, then behaves as a respin.
	SpecialUnlock = "unlock"
)

// ErrMisconfiguredRewardTable marks a prize table the engine cannot draw
// from. Operator error, fatal; validated once at configuration time so
// selection itself never fails.
var ErrMisconfiguredRewardTable = errors.New("reward: misconfigured prize table")

// PrizeEntry is one configured wheel outcome. Weight is relative probability
// mass; PointDelta may be negative for penalty slots. UnlockKey names the
// item an unlock entry grants.
type PrizeEntry struct {
	Name       string `yaml:"name"`
	Rarity     string `yaml:"rarity"`
	Weight     int    `yaml:"weight"`
	PointDelta int64  `yaml:"point_delta"`
	Special    string `yaml:"special"`
	UnlockKey  string `yaml:"unlock_key"`
}

// PrizeTable is a validated, ordered set of prize entries. Declaration order
// is significant: ties in the cumulative-weight walk resolve to the earlier
// entry, deterministically.
type PrizeTable struct {
	entries     []PrizeEntry
	totalWeight int
}

// NewPrizeTable validates entries and builds a table. The table must be
// non-empty with a positive total weight, no negative weights, and every
// special tag known.
func NewPrizeTable(entries []PrizeEntry) (*PrizeTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrMisconfiguredRewardTable)
	}

	total := 0
	for i, entry := range entries {
		if entry.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrMisconfiguredRewardTable, i)
		}
		if entry.Weight < 0 {
			return nil, fmt.Errorf("%w: entry %q has negative weight %d", ErrMisconfiguredRewardTable, entry.Name, entry.Weight)
		}
		switch entry.Special {
		case "", SpecialRespin:
		case SpecialUnlock:
			if entry.UnlockKey == "" {
				return nil, fmt.Errorf("%w: unlock entry %q has no unlock key", ErrMisconfiguredRewardTable, entry.Name)
			}
		default:
			return nil, fmt.Errorf("%w: entry %q has unknown special %q", ErrMisconfiguredRewardTable, entry.Name, entry.Special)
		}
		total += entry.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: total weight is %d", ErrMisconfiguredRewardTable, total)
	}

	copied := make([]PrizeEntry, len(entries))
	copy(copied, entries)
	return &PrizeTable{entries: copied, totalWeight: total}, nil
}

// Entries returns the configured entries in declaration order.
func (t *PrizeTable) Entries() []PrizeEntry {
	out := make([]PrizeEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// TotalWeight returns the sum of all entry weights.
func (t *PrizeTable) TotalWeight() int {
	return t.totalWeight
}

// pick selects the first entry whose cumulative weight reaches r, with r in
// [1, totalWeight]. Each entry is selected with probability exactly
// weight/totalWeight; zero-weight entries are unreachable.
func (t *PrizeTable) pick(r int) PrizeEntry {
	acc := 0
	for _, entry := range t.entries {
		acc += entry.Weight
		if r <= acc {
			return entry
		}
	}
	// r is validated by the caller; the walk above always terminates inside
	// the slice.
	return t.entries[len(t.entries)-1]
}
