package models

import (
	"cmp"
	"fmt"
	"slices"
)

// RevisionGroup is a cluster of revisions treated as one logical change.
// Members are kept sorted by (time, id); the earliest member is the head.
type RevisionGroup struct {
	ID        int64
	revisions []*Revision
}

// NewRevisionGroup creates a group from at least one revision. Revisions
// sharing an id are collapsed.
func NewRevisionGroup(id int64, revisions []*Revision) (*RevisionGroup, error) {
	set := NewRevisionSet()
	set.Add(revisions...)
	if set.Len() == 0 {
		return nil, fmt.Errorf("revision group %d must contain at least 1 revision: %w", id, ErrInvalidArgument)
	}
	return &RevisionGroup{
		ID:        id,
		revisions: set.Sorted(),
	}, nil
}

// Head returns the earliest revision of the group.
func (g *RevisionGroup) Head() *Revision {
	return g.revisions[0]
}

// HeadTime returns the commit time of the earliest revision.
func (g *RevisionGroup) HeadTime() int64 {
	return g.revisions[0].Time
}

// HeadID returns the id of the earliest revision.
func (g *RevisionGroup) HeadID() string {
	return g.revisions[0].ID
}

// Revisions returns a copy of the members in (time, id) order.
func (g *RevisionGroup) Revisions() []*Revision {
	return slices.Clone(g.revisions)
}

// Len returns the number of member revisions.
func (g *RevisionGroup) Len() int {
	return len(g.revisions)
}

// Files returns the sorted union of all member revisions' files.
func (g *RevisionGroup) Files() []FileName {
	seen := make(map[FileName]struct{})
	for _, r := range g.revisions {
		for f := range r.files {
			seen[f] = struct{}{}
		}
	}
	files := make([]FileName, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

// Packages returns the number of distinct parent directories in the group.
func (g *RevisionGroup) Packages() int {
	parents := make(map[string]struct{})
	for _, f := range g.Files() {
		parents[f.Parent()] = struct{}{}
	}
	return len(parents)
}

// CompareGroups orders groups by head time, breaking ties by group id.
// It is a presentation order only; group identity is the id.
func CompareGroups(a, b *RevisionGroup) int {
	if c := cmp.Compare(a.HeadTime(), b.HeadTime()); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortGroups returns a copy of groups ordered by (head time, id).
func SortGroups(groups []*RevisionGroup) []*RevisionGroup {
	out := slices.Clone(groups)
	slices.SortFunc(out, CompareGroups)
	return out
}
