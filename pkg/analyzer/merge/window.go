package merge

import (
	"time"

	"github.com/panbanda/corel/pkg/models"
)

// SlidingWindowMerger groups each head revision with the immediately
// following revisions of the same author committed within the window.
type SlidingWindowMerger struct {
	revisionPool
	window          time.Duration
	allowDuplicated bool
}

// NewSlidingWindowMerger creates a sliding window merger. With
// allowDuplicated the head advances by one revision per group, so groups
// overlap; otherwise it jumps past each group and the groups partition the
// input.
func NewSlidingWindowMerger(window time.Duration, allowDuplicated bool) (*SlidingWindowMerger, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	return &SlidingWindowMerger{
		revisionPool:    newRevisionPool(),
		window:          window,
		allowDuplicated: allowDuplicated,
	}, nil
}

// Window returns the configured window size.
func (m *SlidingWindowMerger) Window() time.Duration {
	return m.window
}

// AllowDuplicated reports whether groups may overlap.
func (m *SlidingWindowMerger) AllowDuplicated() bool {
	return m.allowDuplicated
}

// Merge scans the revisions in (time, id) order.
func (m *SlidingWindowMerger) Merge() []*models.RevisionGroup {
	revisions := m.sorted()
	windowMillis := m.window.Milliseconds()

	var groups []*models.RevisionGroup
	head := 0
	for head < len(revisions) {
		maxTime := revisions[head].Time + windowMillis
		next := head
		for next < len(revisions) &&
			revisions[next].Time <= maxTime &&
			revisions[next].Author == revisions[head].Author {
			next++
		}

		groups = emit(groups, revisions[head:next])

		if m.allowDuplicated {
			head++
		} else {
			head = next
		}
	}
	return groups
}
