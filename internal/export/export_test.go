package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/corel/pkg/analyzer/extract"
	"github.com/panbanda/corel/pkg/models"
)

func quietLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

func sampleData() Data {
	latest := models.NewRevision("c3", 3_000, "carol", "third")
	latest.AddPath("src/a.go")
	latest.AddPath("src/b.go")
	latest.AddPath("docs/readme.md")

	return Data{
		Options: []Option{
			{Name: "Branch", Value: "master"},
			{Name: "Window", Value: "60000"},
		},
		Groups: []models.GroupRecord{
			{
				GroupID:  1,
				HeadTime: 1_000,
				Revisions: []models.RevisionRecord{
					{ID: "c1", Time: 1_000, Author: "alice", Message: "first"},
					{ID: "c2", Time: 2_000, Author: "bob", Message: "second, with comma"},
				},
				Files: []string{"src/a.go", "src/b.go"},
			},
			{
				GroupID:  2,
				HeadTime: 2_000,
				Revisions: []models.RevisionRecord{
					{ID: "c2", Time: 2_000, Author: "bob", Message: "second, with comma"},
				},
				Files: []string{"src/b.go"},
			},
		},
		Accumulated: []models.AccumulatedRow{
			{File: "src/a.go", Time: 1_000, SameCount: 1, OtherCount: 0, TotalCount: 1},
			{File: "src/b.go", Time: 1_000, SameCount: 1, OtherCount: 0, TotalCount: 1},
		},
		Pairs: []models.PairRow{
			{FromFile: "src/b.go", ToFile: "src/a.go", Count: 1},
		},
		Latest: latest,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"", TypeCSV, false},
		{"CSV", TypeCSV, false},
		{"sqlite", TypeSQLite, false},
		{"SQLite3", TypeSQLite, false},
		{"parquet", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(Type("xml"), t.TempDir(), nil)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestCSVExporter_ExportAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "repo_csv")
	ex, err := New(TypeCSV, dir, quietLogger())
	require.NoError(t, err)

	require.NoError(t, ExportAll(context.Background(), ex, sampleData()))
	require.NoError(t, ex.Close())

	assert.Equal(t, [][]string{
		{"Option", "Value"},
		{"Branch", "master"},
		{"Window", "60000"},
	}, readCSV(t, filepath.Join(dir, "Options.csv")))

	assert.Equal(t, [][]string{
		{"GroupID", "Date"},
		{"1", "1970-01-01 00:00:01"},
		{"2", "1970-01-01 00:00:02"},
	}, readCSV(t, filepath.Join(dir, "Groups.csv")))

	revisions := readCSV(t, filepath.Join(dir, "Revisions.csv"))
	require.Len(t, revisions, 4)
	assert.Equal(t, []string{"RevisionID", "GroupID", "Date", "Author", "Message"}, revisions[0])
	assert.Equal(t, []string{"c2", "1", "1970-01-01 00:00:02", "bob", "second, with comma"}, revisions[2])
	assert.Equal(t, "2", revisions[3][1])

	assert.Equal(t, [][]string{
		{"GroupID", "File"},
		{"1", "src/a.go"},
		{"1", "src/b.go"},
		{"2", "src/b.go"},
	}, readCSV(t, filepath.Join(dir, "Files.csv")))

	assert.Equal(t, [][]string{
		{"Date", "Time", "File", "SameCount", "OtherCount", "TotalCount"},
		{"1970-01-01 00:00:01", "1000", "src/a.go", "1", "0", "1"},
		{"1970-01-01 00:00:01", "1000", "src/b.go", "1", "0", "1"},
	}, readCSV(t, filepath.Join(dir, "AccumulatedCounts.csv")))

	assert.Equal(t, [][]string{
		{"FromFile", "ToFile", "Count"},
		{"src/b.go", "src/a.go", "1"},
	}, readCSV(t, filepath.Join(dir, "Pairs.csv")))

	assert.Equal(t, [][]string{
		{"File"},
		{"docs/readme.md"},
		{"src/a.go"},
		{"src/b.go"},
	}, readCSV(t, filepath.Join(dir, "LatestRevision.csv")))
}

func TestCSVExporter_NilLatestWritesHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	ex, err := NewCSVExporter(dir, quietLogger())
	require.NoError(t, err)

	require.NoError(t, ex.ExportLatestRevision(context.Background(), nil))
	assert.Equal(t, [][]string{{"File"}}, readCSV(t, filepath.Join(dir, "LatestRevision.csv")))
}

func TestCSVExporter_CanceledContext(t *testing.T) {
	ex, err := NewCSVExporter(t.TempDir(), quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ExportAll(ctx, ex, sampleData()), context.Canceled)
}

func TestSQLiteExporter_ExportAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "repo.sqlite")
	ex, err := NewSQLiteExporter(path, quietLogger())
	require.NoError(t, err)
	defer ex.Close()

	require.NoError(t, ExportAll(context.Background(), ex, sampleData()))
	db := ex.DB()

	var options []Option
	require.NoError(t, db.Select(&options, `SELECT Option, Value FROM Options ORDER BY Option`))
	assert.Equal(t, sampleData().Options, options)

	var groupCount int
	require.NoError(t, db.Get(&groupCount, `SELECT COUNT(*) FROM "Groups"`))
	assert.Equal(t, 2, groupCount)

	// c2 belongs to both groups.
	var memberships int
	require.NoError(t, db.Get(&memberships, `SELECT COUNT(*) FROM Revisions WHERE RevisionID = 'c2'`))
	assert.Equal(t, 2, memberships)

	var files []string
	require.NoError(t, db.Select(&files, `SELECT File FROM Files WHERE GroupID = 1 ORDER BY File`))
	assert.Equal(t, []string{"src/a.go", "src/b.go"}, files)

	type accRow struct {
		Date       string `db:"Date"`
		Time       int64  `db:"Time"`
		File       string `db:"File"`
		SameCount  int    `db:"SameCount"`
		OtherCount int    `db:"OtherCount"`
		TotalCount int    `db:"TotalCount"`
	}
	var acc []accRow
	require.NoError(t, db.Select(&acc, `SELECT * FROM AccumulatedCounts ORDER BY File`))
	require.Len(t, acc, 2)
	assert.Equal(t, accRow{Date: "1970-01-01 00:00:01", Time: 1_000, File: "src/a.go", SameCount: 1, TotalCount: 1}, acc[0])

	var pairCount int
	require.NoError(t, db.Get(&pairCount, `SELECT Count FROM Pairs WHERE FromFile = 'src/b.go' AND ToFile = 'src/a.go'`))
	assert.Equal(t, 1, pairCount)

	var latest []string
	require.NoError(t, db.Select(&latest, `SELECT File FROM LatestRevision ORDER BY File`))
	assert.Equal(t, []string{"docs/readme.md", "src/a.go", "src/b.go"}, latest)
}

func TestSQLiteExporter_DuplicateGroupFails(t *testing.T) {
	ex, err := NewSQLiteExporter(filepath.Join(t.TempDir(), "dup.sqlite"), quietLogger())
	require.NoError(t, err)
	defer ex.Close()

	groups := sampleData().Groups
	groups = append(groups, groups[0])
	err = ex.ExportGroups(context.Background(), groups)
	require.Error(t, err)

	// The failed transaction leaves no partial rows.
	var n int
	require.NoError(t, ex.DB().Get(&n, `SELECT COUNT(*) FROM "Groups"`))
	assert.Zero(t, n)
}

func subSecondRows() []models.AccumulatedRow {
	return []models.AccumulatedRow{
		{File: "src/a.java", Time: 1_000_100, SameCount: 1, OtherCount: 0, TotalCount: 1},
		{File: "src/a.java", Time: 1_000_900, SameCount: 2, OtherCount: 1, TotalCount: 3},
		{File: "src/b.java", Time: 1_000_100, SameCount: 1, OtherCount: 0, TotalCount: 1},
	}
}

func TestSQLiteExporter_SubSecondHeadTimes(t *testing.T) {
	ex, err := NewSQLiteExporter(filepath.Join(t.TempDir(), "ms.sqlite"), quietLogger())
	require.NoError(t, err)
	defer ex.Close()

	require.NoError(t, ex.ExportAccumulated(context.Background(), subSecondRows()))

	var times []int64
	require.NoError(t, ex.DB().Select(&times,
		`SELECT Time FROM AccumulatedCounts WHERE File = 'src/a.java' ORDER BY Time`))
	assert.Equal(t, []int64{1_000_100, 1_000_900}, times)

	var dates []string
	require.NoError(t, ex.DB().Select(&dates,
		`SELECT DISTINCT Date FROM AccumulatedCounts WHERE File = 'src/a.java'`))
	assert.Equal(t, []string{"1970-01-01 00:16:40"}, dates)
}

func TestCSVExporter_SubSecondHeadTimes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ms_csv")
	ex, err := NewCSVExporter(dir, quietLogger())
	require.NoError(t, err)

	require.NoError(t, ex.ExportAccumulated(context.Background(), subSecondRows()))

	assert.Equal(t, [][]string{
		{"Date", "Time", "File", "SameCount", "OtherCount", "TotalCount"},
		{"1970-01-01 00:16:40", "1000100", "src/a.java", "1", "0", "1"},
		{"1970-01-01 00:16:40", "1000900", "src/a.java", "2", "1", "3"},
		{"1970-01-01 00:16:40", "1000100", "src/b.java", "1", "0", "1"},
	}, readCSV(t, filepath.Join(dir, "AccumulatedCounts.csv")))
}

func TestExportAll_ExtractedSubSecondGroups(t *testing.T) {
	var groups []*models.RevisionGroup
	for i, ms := range []int64{1_000_100, 1_000_900} {
		rev := models.NewRevision(string(rune('a'+i)), ms, "alice", "change")
		rev.AddPath("src/a.java")
		rev.AddPath("src/b.java")
		g, err := models.NewRevisionGroup(int64(i+1), []*models.Revision{rev})
		require.NoError(t, err)
		groups = append(groups, g)
	}
	ex := extract.New(groups)
	rows := ex.AccumulatedRows()
	require.Len(t, rows, 4)

	out, err := NewSQLiteExporter(filepath.Join(t.TempDir(), "extracted.sqlite"), quietLogger())
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, ExportAll(context.Background(), out, Data{
		Groups:      ex.GroupRecords(),
		Accumulated: rows,
		Pairs:       ex.PairRows(),
	}))

	var n int
	require.NoError(t, out.DB().Get(&n, `SELECT COUNT(*) FROM AccumulatedCounts`))
	assert.Equal(t, len(rows), n)
}
