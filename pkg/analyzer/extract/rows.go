package extract

import "github.com/panbanda/corel/pkg/models"

// AccumulatedRows flattens the timelines into one row per (file, timestamp),
// ordered by file then time.
func (e *Extractor) AccumulatedRows() []models.AccumulatedRow {
	acc := e.Accumulated()

	var rows []models.AccumulatedRow
	for _, f := range e.Files() {
		entity, ok := acc[f]
		if !ok {
			continue
		}
		for _, p := range entity.Points() {
			rows = append(rows, models.AccumulatedRow{
				File:       f.String(),
				Time:       p.Time,
				SameCount:  p.Same,
				OtherCount: p.Other,
				TotalCount: p.Total(),
			})
		}
	}
	return rows
}

// PairRows returns the pair table as rows ordered by (from, to). FromFile is
// always the greater file.
func (e *Extractor) PairRows() []models.PairRow {
	entries := e.Pairs().Entries()
	rows := make([]models.PairRow, len(entries))
	for i, p := range entries {
		rows[i] = models.PairRow{
			FromFile: p.Higher.String(),
			ToFile:   p.Lower.String(),
			Count:    p.Count,
		}
	}
	return rows
}

// GroupRecords returns the exported view of every group in (head time, id)
// order.
func (e *Extractor) GroupRecords() []models.GroupRecord {
	groups := e.Groups()
	records := make([]models.GroupRecord, len(groups))
	for i, g := range groups {
		records[i] = models.NewGroupRecord(g)
	}
	return records
}
