package extract

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/panbanda/corel/pkg/models"
	"github.com/panbanda/corel/pkg/stats"
)

// DefaultTop is the number of pairs and files kept in a summary.
const DefaultTop = 20

// FileGrowth is the trend of a file's total co-change count.
type FileGrowth struct {
	File     string  `json:"file" toon:"file"`
	Points   int     `json:"points" toon:"points"`
	Total    int     `json:"total" toon:"total"`
	Slope    float64 `json:"slope" toon:"slope"` // total count change per recorded timestamp
	RSquared float64 `json:"r_squared" toon:"r_squared"`
}

// RelationSummary aggregates an extraction for reporting.
type RelationSummary struct {
	Groups    int `json:"groups" toon:"groups"`
	Revisions int `json:"revisions" toon:"revisions"`
	Files     int `json:"files" toon:"files"`
	Pairs     int `json:"pairs" toon:"pairs"`

	FirstTime int64 `json:"first_time,omitempty" toon:"first_time"`
	LastTime  int64 `json:"last_time,omitempty" toon:"last_time"`

	MeanPairCount   float64 `json:"mean_pair_count" toon:"mean_pair_count"`
	StdDevPairCount float64 `json:"stddev_pair_count" toon:"stddev_pair_count"`
	MedianPairCount float64 `json:"median_pair_count" toon:"median_pair_count"`
	P90PairCount    float64 `json:"p90_pair_count" toon:"p90_pair_count"`
	MaxPairCount    int     `json:"max_pair_count" toon:"max_pair_count"`

	TopPairs  []PairCount  `json:"top_pairs" toon:"top_pairs"`
	TopGrowth []FileGrowth `json:"top_growth" toon:"top_growth"`
}

// Summarize computes a RelationSummary keeping the top entries. top <= 0
// uses DefaultTop.
func Summarize(e *Extractor, top int) *RelationSummary {
	if top <= 0 {
		top = DefaultTop
	}

	groups := e.Groups()
	pairs := e.Pairs()

	s := &RelationSummary{
		Groups: len(groups),
		Files:  len(e.Files()),
		Pairs:  pairs.Len(),
	}

	revisions := models.NewRevisionSet()
	for _, g := range groups {
		revisions.Add(g.Revisions()...)
	}
	s.Revisions = revisions.Len()
	if len(groups) > 0 {
		s.FirstTime = groups[0].HeadTime()
		s.LastTime = groups[len(groups)-1].HeadTime()
	}

	entries := pairs.Entries()
	if len(entries) > 0 {
		counts := make([]float64, len(entries))
		for i, p := range entries {
			counts[i] = float64(p.Count)
		}
		s.MeanPairCount = stat.Mean(counts, nil)
		if len(counts) > 1 {
			s.StdDevPairCount = stat.StdDev(counts, nil)
		}
		s.MaxPairCount = int(floats.Max(counts))
		slices.Sort(counts)
		s.MedianPairCount = stats.Median(counts)
		s.P90PairCount = stats.Percentile(counts, 90)
	}

	s.TopPairs = pairs.Top(top)
	s.TopGrowth = topGrowth(e, top)
	return s
}

func topGrowth(e *Extractor, top int) []FileGrowth {
	acc := e.Accumulated()

	var growth []FileGrowth
	for _, f := range e.Files() {
		entity, ok := acc[f]
		if !ok {
			continue
		}
		points := entity.Points()
		g := FileGrowth{
			File:   f.String(),
			Points: len(points),
			Total:  entity.Latest().Total(),
		}
		if len(points) >= 2 {
			xs := make([]float64, len(points))
			ys := make([]float64, len(points))
			for i, p := range points {
				xs[i] = float64(i)
				ys[i] = float64(p.Total())
			}
			intercept, slope := stat.LinearRegression(xs, ys, nil, false)
			g.Slope = slope
			g.RSquared = stat.RSquared(xs, ys, nil, intercept, slope)
			if math.IsNaN(g.RSquared) {
				g.RSquared = 0
			}
		}
		growth = append(growth, g)
	}

	slices.SortStableFunc(growth, func(a, b FileGrowth) int {
		if c := cmp.Compare(b.Slope, a.Slope); c != 0 {
			return c
		}
		return cmp.Compare(b.Total, a.Total)
	})
	if len(growth) > top {
		growth = growth[:top]
	}
	return growth
}
