// Package extract derives file co-change relations from revision groups.
package extract

import (
	"slices"

	"github.com/panbanda/corel/pkg/models"
)

// Extractor computes the distinct files, accumulated timelines and pair
// table of a fixed set of groups. Each view is computed on first access and
// reused afterwards. An Extractor is not safe for concurrent first access.
type Extractor struct {
	groups []*models.RevisionGroup

	files       []models.FileName
	accumulated map[models.FileName]*models.AccumulatedEntity
	pairs       *PairTable
	built       bool
}

// New creates an extractor over groups. The slice is copied; the groups
// themselves are never modified.
func New(groups []*models.RevisionGroup) *Extractor {
	return &Extractor{groups: slices.Clone(groups)}
}

// Groups returns the groups in (head time, id) order.
func (e *Extractor) Groups() []*models.RevisionGroup {
	return models.SortGroups(e.groups)
}

// Files returns every file touched by any group, sorted.
func (e *Extractor) Files() []models.FileName {
	if e.files == nil {
		seen := make(map[models.FileName]struct{})
		for _, g := range e.groups {
			for _, f := range g.Files() {
				seen[f] = struct{}{}
			}
		}
		files := make([]models.FileName, 0, len(seen))
		for f := range seen {
			files = append(files, f)
		}
		slices.Sort(files)
		e.files = files
	}
	return slices.Clone(e.files)
}

// Accumulated returns the per-file accumulated timelines. The returned map
// and entities are shared with the extractor and must not be modified.
func (e *Extractor) Accumulated() map[models.FileName]*models.AccumulatedEntity {
	e.build()
	return e.accumulated
}

// Pairs returns the co-change pair table.
func (e *Extractor) Pairs() *PairTable {
	e.build()
	return e.pairs
}

// build walks the groups once in (head time, id) order, filling both the
// accumulated timelines and the pair table. Later timeline values depend on
// every earlier delta, so the order is fixed.
func (e *Extractor) build() {
	if e.built {
		return
	}

	e.accumulated = make(map[models.FileName]*models.AccumulatedEntity)
	e.pairs = NewPairTable()

	for _, g := range models.SortGroups(e.groups) {
		files := g.Files()

		packages := make(map[string]int)
		for _, f := range files {
			packages[f.Parent()]++
		}

		for _, f := range files {
			same := packages[f.Parent()] - 1
			other := len(files) - same - 1

			entity, ok := e.accumulated[f]
			if !ok {
				entity = models.NewAccumulatedEntity()
				e.accumulated[f] = entity
			}
			// same and other are counts of other files in the group.
			if err := entity.AddCount(g.HeadTime(), same, other); err != nil {
				panic("extract: " + err.Error())
			}
		}

		for i := range files {
			for j := i + 1; j < len(files); j++ {
				e.pairs.Increment(files[i], files[j])
			}
		}
	}

	e.built = true
}
