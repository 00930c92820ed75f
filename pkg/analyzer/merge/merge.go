// Package merge groups revisions into logical change-sets.
package merge

import (
	"fmt"
	"strings"
	"time"

	"github.com/panbanda/corel/pkg/models"
)

// Merger turns a flat revision set into revision groups.
type Merger interface {
	// SetRevisions adds revisions to the working set. Revisions are keyed by
	// id, so adding the same revision twice has no effect.
	SetRevisions(revisions []*models.Revision)
	// Merge groups the working set. Group ids start at 1 and increase in
	// emission order.
	Merge() []*models.RevisionGroup
}

// Method names a merge strategy.
type Method string

const (
	// MethodWindow is the non-overlapping sliding window.
	MethodWindow Method = "window"
	// MethodDuplicatedWindow is the overlapping sliding window.
	MethodDuplicatedWindow Method = "duplicated-window"
	// MethodDistance groups consecutive same-author revisions.
	MethodDistance Method = "distance"
	// MethodNone puts every revision in its own group.
	MethodNone Method = "none"
)

// Methods lists every supported merge method.
var Methods = []Method{MethodWindow, MethodDuplicatedWindow, MethodDistance, MethodNone}

// ParseMethod converts a method name, case-insensitively. "nomerge" is
// accepted as an alias of "none".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "window", "":
		return MethodWindow, nil
	case "duplicated-window", "duplicatedwindow":
		return MethodDuplicatedWindow, nil
	case "distance":
		return MethodDistance, nil
	case "none", "nomerge", "no-merge":
		return MethodNone, nil
	}
	return "", fmt.Errorf("unknown merge method %q: %w", s, models.ErrInvalidArgument)
}

// Options configures the window-based strategies.
type Options struct {
	Window       time.Duration
	DistanceMode DistanceMode
}

// DefaultWindow is the window used when none is configured.
const DefaultWindow = 60 * time.Second

// New builds the merger for method.
func New(method Method, opts Options) (Merger, error) {
	switch method {
	case MethodWindow:
		return NewSlidingWindowMerger(opts.Window, false)
	case MethodDuplicatedWindow:
		return NewSlidingWindowMerger(opts.Window, true)
	case MethodDistance:
		return NewDistanceMerger(opts.Window, opts.DistanceMode)
	case MethodNone:
		return NewNoMerger(), nil
	}
	return nil, fmt.Errorf("unknown merge method %q: %w", method, models.ErrInvalidArgument)
}

// revisionPool is the working set shared by every strategy.
type revisionPool struct {
	set *models.RevisionSet
}

func newRevisionPool() revisionPool {
	return revisionPool{set: models.NewRevisionSet()}
}

// SetRevisions adds revisions to the working set.
func (p *revisionPool) SetRevisions(revisions []*models.Revision) {
	p.set.Add(revisions...)
}

func (p *revisionPool) sorted() []*models.Revision {
	return p.set.Sorted()
}

func validateWindow(window time.Duration) error {
	if window < 0 {
		return fmt.Errorf("window size %s must not be negative: %w", window, models.ErrInvalidArgument)
	}
	return nil
}

// emit wraps a non-empty run of revisions in a group. Runs produced by the
// scans below always hold at least the head, so construction cannot fail.
func emit(groups []*models.RevisionGroup, members []*models.Revision) []*models.RevisionGroup {
	g, err := models.NewRevisionGroup(int64(len(groups)+1), members)
	if err != nil {
		panic(fmt.Sprintf("merge: %v", err))
	}
	return append(groups, g)
}
