package merge

import "github.com/panbanda/corel/pkg/models"

// FilterSingleFileGroups drops groups that touch fewer than two distinct
// files. Order and group ids are preserved.
func FilterSingleFileGroups(groups []*models.RevisionGroup) []*models.RevisionGroup {
	out := make([]*models.RevisionGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.Files()) < 2 {
			continue
		}
		out = append(out, g)
	}
	return out
}

// FilterMaxPackages drops groups whose files span more than maxPackages
// distinct parent directories. maxPackages <= 0 disables the filter.
func FilterMaxPackages(groups []*models.RevisionGroup, maxPackages int) []*models.RevisionGroup {
	if maxPackages <= 0 {
		return groups
	}
	out := make([]*models.RevisionGroup, 0, len(groups))
	for _, g := range groups {
		if g.Packages() > maxPackages {
			continue
		}
		out = append(out, g)
	}
	return out
}
