package merge

import "github.com/panbanda/corel/pkg/models"

// NoMerger maps every revision to a singleton group.
type NoMerger struct {
	revisionPool
}

// NewNoMerger creates a NoMerger.
func NewNoMerger() *NoMerger {
	return &NoMerger{revisionPool: newRevisionPool()}
}

// Merge returns one group per revision, ids assigned in time order.
func (m *NoMerger) Merge() []*models.RevisionGroup {
	revisions := m.sorted()
	groups := make([]*models.RevisionGroup, 0, len(revisions))
	for _, r := range revisions {
		groups = emit(groups, []*models.Revision{r})
	}
	return groups
}
