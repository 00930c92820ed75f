// Package export writes mined relations to CSV directories or SQLite
// databases.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/corel/pkg/models"
)

// Table and column names shared by every exporter.
const (
	TableOptions     = "Options"
	TableGroups      = "Groups"
	TableRevisions   = "Revisions"
	TableFiles       = "Files"
	TableAccumulated = "AccumulatedCounts"
	TablePairs       = "Pairs"
	TableLatest      = "LatestRevision"
)

// Type selects an exporter implementation.
type Type string

const (
	TypeCSV    Type = "csv"
	TypeSQLite Type = "sqlite"
)

// ParseType converts an export type name, case-insensitively.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return TypeCSV, nil
	case "sqlite", "sqlite3":
		return TypeSQLite, nil
	}
	return "", fmt.Errorf("unknown export type %q: %w", s, models.ErrInvalidArgument)
}

// Option is one name/value row of the Options table.
type Option struct {
	Name  string `db:"Option"`
	Value string `db:"Value"`
}

// Exporter writes each table of a mining run.
type Exporter interface {
	ExportOptions(ctx context.Context, options []Option) error
	ExportGroups(ctx context.Context, groups []models.GroupRecord) error
	ExportAccumulated(ctx context.Context, rows []models.AccumulatedRow) error
	ExportPairs(ctx context.Context, rows []models.PairRow) error
	// ExportLatestRevision writes the file listing of the newest revision.
	// A nil revision writes an empty table.
	ExportLatestRevision(ctx context.Context, rev *models.Revision) error
	Close() error
}

// parallelExporter is implemented by exporters whose tables are
// independent and may be written concurrently.
type parallelExporter interface {
	parallelTables() bool
}

// Data is everything a mining run exports.
type Data struct {
	Options     []Option
	Groups      []models.GroupRecord
	Accumulated []models.AccumulatedRow
	Pairs       []models.PairRow
	Latest      *models.Revision
}

// New creates the exporter of type typ at path.
func New(typ Type, path string, logger *logrus.Logger) (Exporter, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	switch typ {
	case TypeCSV:
		return NewCSVExporter(path, logger)
	case TypeSQLite:
		return NewSQLiteExporter(path, logger)
	}
	return nil, fmt.Errorf("unknown export type %q: %w", typ, models.ErrInvalidArgument)
}

// ExportAll writes every table of data with ex. Exporters that support it
// write their tables concurrently.
func ExportAll(ctx context.Context, ex Exporter, data Data) error {
	steps := []func(context.Context) error{
		func(ctx context.Context) error { return ex.ExportOptions(ctx, data.Options) },
		func(ctx context.Context) error { return ex.ExportGroups(ctx, data.Groups) },
		func(ctx context.Context) error { return ex.ExportAccumulated(ctx, data.Accumulated) },
		func(ctx context.Context) error { return ex.ExportPairs(ctx, data.Pairs) },
		func(ctx context.Context) error { return ex.ExportLatestRevision(ctx, data.Latest) },
	}

	if p, ok := ex.(parallelExporter); ok && p.parallelTables() {
		wp := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
		for _, step := range steps {
			wp.Go(step)
		}
		return wp.Wait()
	}

	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}
