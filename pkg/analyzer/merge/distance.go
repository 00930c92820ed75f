package merge

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/panbanda/corel/pkg/models"
)

// DistanceMode selects how DistanceMerger bounds a run of revisions.
type DistanceMode string

const (
	// DistanceFaithful bounds candidates by a fixed reference time that every
	// commit time satisfies, so a group is the whole consecutive run of one
	// author regardless of elapsed time. This matches the historical output
	// of the distance method and is the default.
	DistanceFaithful DistanceMode = "faithful"
	// DistanceCorrected bounds each candidate by the previous member:
	// a revision joins while it is at most one window after the last
	// revision absorbed.
	DistanceCorrected DistanceMode = "corrected"
)

// ParseDistanceMode converts a mode name. Empty means DistanceFaithful.
func ParseDistanceMode(s string) (DistanceMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "faithful":
		return DistanceFaithful, nil
	case "corrected":
		return DistanceCorrected, nil
	}
	return "", fmt.Errorf("unknown distance mode %q: %w", s, models.ErrInvalidArgument)
}

// DistanceMerger groups contiguous same-author runs.
type DistanceMerger struct {
	revisionPool
	window time.Duration
	mode   DistanceMode
}

// NewDistanceMerger creates a distance merger.
func NewDistanceMerger(window time.Duration, mode DistanceMode) (*DistanceMerger, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = DistanceFaithful
	}
	if mode != DistanceFaithful && mode != DistanceCorrected {
		return nil, fmt.Errorf("unknown distance mode %q: %w", mode, models.ErrInvalidArgument)
	}
	return &DistanceMerger{
		revisionPool: newRevisionPool(),
		window:       window,
		mode:         mode,
	}, nil
}

// Mode returns the configured distance mode.
func (m *DistanceMerger) Mode() DistanceMode {
	return m.mode
}

// Merge scans the revisions in (time, id) order.
func (m *DistanceMerger) Merge() []*models.RevisionGroup {
	revisions := m.sorted()
	windowMillis := m.window.Milliseconds()

	var groups []*models.RevisionGroup
	head := 0
	for head < len(revisions) {
		// In faithful mode the reference is computed once per group and sits
		// at the top of the int64 range, so reference+window never rejects.
		reference := int64(math.MaxInt64) - windowMillis
		next := head
		for next < len(revisions) &&
			revisions[next].Author == revisions[head].Author {
			if m.mode == DistanceCorrected && next > head {
				reference = revisions[next-1].Time
			}
			if revisions[next].Time > reference+windowMillis {
				break
			}
			next++
		}

		groups = emit(groups, revisions[head:next])
		head = next
	}
	return groups
}
