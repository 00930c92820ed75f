package models

import (
	"cmp"
	"encoding/json"
	"slices"
	"time"
)

// Revision is one historical change: a commit hash or revision number, the
// author, the commit time in epoch milliseconds, the message and the set of
// files it touched.
type Revision struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Time    int64  `json:"time"`
	Message string `json:"message"`

	files map[FileName]struct{}
}

// NewRevision creates a revision with an empty file set.
func NewRevision(id string, timeMillis int64, author, message string) *Revision {
	return &Revision{
		ID:      id,
		Author:  author,
		Time:    timeMillis,
		Message: message,
		files:   make(map[FileName]struct{}),
	}
}

// AddFile adds a file to the revision. Duplicates collapse.
func (r *Revision) AddFile(file FileName) {
	if r.files == nil {
		r.files = make(map[FileName]struct{})
	}
	r.files[file] = struct{}{}
}

// AddPath normalizes path and adds it to the revision.
func (r *Revision) AddPath(path string) {
	r.AddFile(NewFileName(path))
}

// HasFile reports whether the revision touched file.
func (r *Revision) HasFile(file FileName) bool {
	_, ok := r.files[file]
	return ok
}

// FileCount returns the number of distinct files in the revision.
func (r *Revision) FileCount() int {
	return len(r.files)
}

// Files returns the changed files in ascending order.
func (r *Revision) Files() []FileName {
	files := make([]FileName, 0, len(r.files))
	for f := range r.files {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

// When returns the commit time as a time.Time in UTC.
func (r *Revision) When() time.Time {
	return time.UnixMilli(r.Time).UTC()
}

// CompareRevisions orders revisions by time, breaking ties by id.
// Every sort of revisions goes through this so that two revisions sharing a
// timestamp keep a stable, reproducible order.
func CompareRevisions(a, b *Revision) int {
	if c := cmp.Compare(a.Time, b.Time); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortRevisions sorts revisions in place by (time, id).
func SortRevisions(revisions []*Revision) {
	slices.SortFunc(revisions, CompareRevisions)
}

// RevisionSet is a set of revisions keyed by revision id. The first revision
// added under an id wins; later additions with the same id are ignored.
type RevisionSet struct {
	byID map[string]*Revision
}

// NewRevisionSet creates an empty revision set.
func NewRevisionSet() *RevisionSet {
	return &RevisionSet{byID: make(map[string]*Revision)}
}

// Add inserts revisions into the set.
func (s *RevisionSet) Add(revisions ...*Revision) {
	for _, r := range revisions {
		if r == nil {
			continue
		}
		if _, ok := s.byID[r.ID]; ok {
			continue
		}
		s.byID[r.ID] = r
	}
}

// Len returns the number of distinct revisions.
func (s *RevisionSet) Len() int {
	return len(s.byID)
}

// Sorted returns the revisions ordered by (time, id).
func (s *RevisionSet) Sorted() []*Revision {
	out := make([]*Revision, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	SortRevisions(out)
	return out
}

type revisionJSON struct {
	ID      string     `json:"id"`
	Author  string     `json:"author"`
	Time    int64      `json:"time"`
	Message string     `json:"message"`
	Files   []FileName `json:"files"`
}

// MarshalJSON encodes the revision including its sorted file list.
func (r *Revision) MarshalJSON() ([]byte, error) {
	return json.Marshal(revisionJSON{
		ID:      r.ID,
		Author:  r.Author,
		Time:    r.Time,
		Message: r.Message,
		Files:   r.Files(),
	})
}

// UnmarshalJSON decodes a revision produced by MarshalJSON.
func (r *Revision) UnmarshalJSON(data []byte) error {
	var raw revisionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = *NewRevision(raw.ID, raw.Time, raw.Author, raw.Message)
	for _, f := range raw.Files {
		r.AddPath(string(f))
	}
	return nil
}
