package models

import (
	"fmt"
	"slices"
	"sort"
)

// CountEntity holds the cumulative co-change counts of a file at one point in
// time: Same counts co-changes with files in the same directory, Other with
// files elsewhere.
type CountEntity struct {
	Same  int `json:"same"`
	Other int `json:"other"`
}

// NewCountEntity creates a count entity, rejecting negative values.
func NewCountEntity(same, other int) (CountEntity, error) {
	var c CountEntity
	if err := c.AddSame(same); err != nil {
		return CountEntity{}, err
	}
	if err := c.AddOther(other); err != nil {
		return CountEntity{}, err
	}
	return c, nil
}

// AddSame adds delta to the same-directory count.
func (c *CountEntity) AddSame(delta int) error {
	if delta < 0 {
		return fmt.Errorf("same count delta %d is negative: %w", delta, ErrInvalidArgument)
	}
	c.Same += delta
	return nil
}

// AddOther adds delta to the other-directory count.
func (c *CountEntity) AddOther(delta int) error {
	if delta < 0 {
		return fmt.Errorf("other count delta %d is negative: %w", delta, ErrInvalidArgument)
	}
	c.Other += delta
	return nil
}

// Total returns Same + Other.
func (c CountEntity) Total() int {
	return c.Same + c.Other
}

// CountPoint is a CountEntity observed at an epoch millisecond timestamp.
type CountPoint struct {
	Time int64 `json:"time"`
	CountEntity
}

// AccumulatedEntity is a per-file time series of cumulative counts. Values
// never decrease as time increases.
type AccumulatedEntity struct {
	// times is kept sorted; counts[times[i]] is the value at that time.
	times  []int64
	counts map[int64]*CountEntity
}

// NewAccumulatedEntity creates an empty time series.
func NewAccumulatedEntity() *AccumulatedEntity {
	return &AccumulatedEntity{counts: make(map[int64]*CountEntity)}
}

// AddCount records same/other co-changes observed at time. A new timestamp
// starts from the value of the nearest earlier entry (zero if none); the
// deltas are then added to the entry at time and to every later entry.
func (a *AccumulatedEntity) AddCount(time int64, same, other int) error {
	if same < 0 || other < 0 {
		return fmt.Errorf("count deltas (%d, %d) must not be negative: %w", same, other, ErrInvalidArgument)
	}

	idx, found := slices.BinarySearch(a.times, time)
	if !found {
		var carried CountEntity
		if idx > 0 {
			carried = *a.counts[a.times[idx-1]]
		}
		a.times = slices.Insert(a.times, idx, time)
		a.counts[time] = &carried
	}

	for _, t := range a.times[idx:] {
		c := a.counts[t]
		c.Same += same
		c.Other += other
	}
	return nil
}

// Len returns the number of recorded timestamps.
func (a *AccumulatedEntity) Len() int {
	return len(a.times)
}

// Times returns the recorded timestamps in ascending order.
func (a *AccumulatedEntity) Times() []int64 {
	return slices.Clone(a.times)
}

// At returns the value in effect at time: the entry at the greatest recorded
// timestamp <= time, or zero when none exists.
func (a *AccumulatedEntity) At(time int64) CountEntity {
	idx := sort.Search(len(a.times), func(i int) bool { return a.times[i] > time })
	if idx == 0 {
		return CountEntity{}
	}
	return *a.counts[a.times[idx-1]]
}

// Points returns a time-ordered copy of the series.
func (a *AccumulatedEntity) Points() []CountPoint {
	points := make([]CountPoint, len(a.times))
	for i, t := range a.times {
		points[i] = CountPoint{Time: t, CountEntity: *a.counts[t]}
	}
	return points
}

// Latest returns the last value of the series, or zero for an empty series.
func (a *AccumulatedEntity) Latest() CountEntity {
	if len(a.times) == 0 {
		return CountEntity{}
	}
	return *a.counts[a.times[len(a.times)-1]]
}
