package extract

import (
	"cmp"
	"slices"

	"github.com/panbanda/corel/pkg/models"
)

// PairTable is a sparse co-change count keyed by canonical file pair. Each
// unordered pair of distinct files has at most one entry.
type PairTable struct {
	counts map[models.FilePair]int
}

// NewPairTable creates an empty pair table.
func NewPairTable() *PairTable {
	return &PairTable{counts: make(map[models.FilePair]int)}
}

// Increment adds one co-change for a and b in either order. It reports false
// and does nothing when a and b are the same file.
func (t *PairTable) Increment(a, b models.FileName) bool {
	pair, ok := models.MakeFilePair(a, b)
	if !ok {
		return false
	}
	t.counts[pair]++
	return true
}

// Count returns the co-change count of a and b in either order.
func (t *PairTable) Count(a, b models.FileName) int {
	pair, ok := models.MakeFilePair(a, b)
	if !ok {
		return 0
	}
	return t.counts[pair]
}

// Lookup returns the count stored under the exact (higher, lower) key.
func (t *PairTable) Lookup(higher, lower models.FileName) (int, bool) {
	n, ok := t.counts[models.FilePair{Higher: higher, Lower: lower}]
	return n, ok
}

// Len returns the number of distinct pairs.
func (t *PairTable) Len() int {
	return len(t.counts)
}

// PairCount is one entry of the table.
type PairCount struct {
	models.FilePair
	Count int `json:"count" toon:"count"`
}

// Entries returns every pair ordered by (higher, lower).
func (t *PairTable) Entries() []PairCount {
	entries := make([]PairCount, 0, len(t.counts))
	for p, n := range t.counts {
		entries = append(entries, PairCount{FilePair: p, Count: n})
	}
	slices.SortFunc(entries, func(a, b PairCount) int {
		if c := a.Higher.Compare(b.Higher); c != 0 {
			return c
		}
		return a.Lower.Compare(b.Lower)
	})
	return entries
}

// Top returns the n pairs with the highest counts, ties broken by
// (higher, lower). n <= 0 returns every pair.
func (t *PairTable) Top(n int) []PairCount {
	entries := t.Entries()
	slices.SortStableFunc(entries, func(a, b PairCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries
}
