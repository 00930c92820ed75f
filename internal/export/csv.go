package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/panbanda/corel/pkg/models"
)

// CSVExporter writes one <Table>.csv file per table into a directory.
type CSVExporter struct {
	dir    string
	logger *logrus.Logger
}

// NewCSVExporter creates the export directory and returns an exporter
// writing into it.
func NewCSVExporter(dir string, logger *logrus.Logger) (*CSVExporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &CSVExporter{dir: dir, logger: logger}, nil
}

// Dir returns the export directory.
func (e *CSVExporter) Dir() string {
	return e.dir
}

func (e *CSVExporter) parallelTables() bool {
	return true
}

// ExportOptions writes Options.csv.
func (e *CSVExporter) ExportOptions(ctx context.Context, options []Option) error {
	rows := make([][]string, len(options))
	for i, o := range options {
		rows[i] = []string{o.Name, o.Value}
	}
	return e.writeTable(ctx, TableOptions, []string{"Option", "Value"}, rows)
}

// ExportGroups writes Groups.csv, Revisions.csv and Files.csv.
func (e *CSVExporter) ExportGroups(ctx context.Context, groups []models.GroupRecord) error {
	var groupRows, revisionRows, fileRows [][]string
	for _, g := range groups {
		id := strconv.FormatInt(g.GroupID, 10)
		groupRows = append(groupRows, []string{id, models.FormatMillis(g.HeadTime)})
		for _, r := range g.Revisions {
			revisionRows = append(revisionRows, []string{r.ID, id, models.FormatMillis(r.Time), r.Author, r.Message})
		}
		for _, f := range g.Files {
			fileRows = append(fileRows, []string{id, f})
		}
	}

	if err := e.writeTable(ctx, TableGroups, []string{"GroupID", "Date"}, groupRows); err != nil {
		return err
	}
	if err := e.writeTable(ctx, TableRevisions, []string{"RevisionID", "GroupID", "Date", "Author", "Message"}, revisionRows); err != nil {
		return err
	}
	return e.writeTable(ctx, TableFiles, []string{"GroupID", "File"}, fileRows)
}

// ExportAccumulated writes AccumulatedCounts.csv. Date is second-resolution;
// Time carries the epoch milliseconds that identify the point.
func (e *CSVExporter) ExportAccumulated(ctx context.Context, rows []models.AccumulatedRow) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			models.FormatMillis(r.Time),
			strconv.FormatInt(r.Time, 10),
			r.File,
			strconv.Itoa(r.SameCount),
			strconv.Itoa(r.OtherCount),
			strconv.Itoa(r.TotalCount),
		}
	}
	return e.writeTable(ctx, TableAccumulated, []string{"Date", "Time", "File", "SameCount", "OtherCount", "TotalCount"}, out)
}

// ExportPairs writes Pairs.csv.
func (e *CSVExporter) ExportPairs(ctx context.Context, rows []models.PairRow) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.FromFile, r.ToFile, strconv.Itoa(r.Count)}
	}
	return e.writeTable(ctx, TablePairs, []string{"FromFile", "ToFile", "Count"}, out)
}

// ExportLatestRevision writes LatestRevision.csv.
func (e *CSVExporter) ExportLatestRevision(ctx context.Context, rev *models.Revision) error {
	var out [][]string
	if rev != nil {
		for _, f := range rev.Files() {
			out = append(out, []string{f.String()})
		}
	}
	return e.writeTable(ctx, TableLatest, []string{"File"}, out)
}

// Close is a no-op; every table is flushed when written.
func (e *CSVExporter) Close() error {
	return nil
}

func (e *CSVExporter) writeTable(ctx context.Context, table string, header []string, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(e.dir, table+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	e.logger.WithFields(logrus.Fields{
		"table": table,
		"rows":  len(rows),
	}).Debug("exported table")
	return f.Close()
}
