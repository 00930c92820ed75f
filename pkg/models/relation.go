package models

// FilePair is a canonical co-change pair: Higher > Lower under FileName
// ordering, so an unordered relationship has exactly one key.
type FilePair struct {
	Higher FileName `json:"from_file" toon:"from_file"`
	Lower  FileName `json:"to_file" toon:"to_file"`
}

// MakeFilePair orders a and b into a canonical pair. ok is false when a and b
// are the same file.
func MakeFilePair(a, b FileName) (pair FilePair, ok bool) {
	switch a.Compare(b) {
	case 0:
		return FilePair{}, false
	case -1:
		a, b = b, a
	}
	return FilePair{Higher: a, Lower: b}, true
}

// RevisionRecord is the exported view of a group member.
type RevisionRecord struct {
	ID      string `json:"id"`
	Time    int64  `json:"time"`
	Author  string `json:"author"`
	Message string `json:"message"`
}

// GroupRecord is the exported view of a revision group.
type GroupRecord struct {
	GroupID   int64            `json:"group_id"`
	HeadTime  int64            `json:"head_time"`
	Revisions []RevisionRecord `json:"revisions"`
	Files     []string         `json:"files"`
}

// NewGroupRecord flattens a group for export.
func NewGroupRecord(g *RevisionGroup) GroupRecord {
	rec := GroupRecord{
		GroupID:  g.ID,
		HeadTime: g.HeadTime(),
	}
	for _, r := range g.revisions {
		rec.Revisions = append(rec.Revisions, RevisionRecord{
			ID:      r.ID,
			Time:    r.Time,
			Author:  r.Author,
			Message: r.Message,
		})
	}
	for _, f := range g.Files() {
		rec.Files = append(rec.Files, f.String())
	}
	return rec
}

// AccumulatedRow is one (file, timestamp) point of an accumulated series.
type AccumulatedRow struct {
	File       string `json:"file"`
	Time       int64  `json:"time"`
	SameCount  int    `json:"same_count"`
	OtherCount int    `json:"other_count"`
	TotalCount int    `json:"total_count"`
}

// PairRow is one entry of the pair table. FromFile > ToFile always.
type PairRow struct {
	FromFile string `json:"from_file"`
	ToFile   string `json:"to_file"`
	Count    int    `json:"count"`
}
