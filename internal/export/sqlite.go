package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/panbanda/corel/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS Options (
	Option TEXT PRIMARY KEY NOT NULL,
	Value  TEXT
);

CREATE TABLE IF NOT EXISTS "Groups" (
	GroupID INTEGER PRIMARY KEY NOT NULL,
	Date    TEXT
);

CREATE TABLE IF NOT EXISTS Revisions (
	RevisionID TEXT NOT NULL,
	GroupID    INTEGER NOT NULL,
	Date       TEXT NOT NULL,
	Author     TEXT,
	Message    TEXT,
	PRIMARY KEY (RevisionID, GroupID),
	FOREIGN KEY (GroupID) REFERENCES "Groups"(GroupID)
);

CREATE TABLE IF NOT EXISTS Files (
	GroupID INTEGER NOT NULL,
	File    TEXT NOT NULL,
	PRIMARY KEY (GroupID, File),
	FOREIGN KEY (GroupID) REFERENCES "Groups"(GroupID)
);

CREATE TABLE IF NOT EXISTS AccumulatedCounts (
	Date       TEXT NOT NULL,
	Time       INTEGER NOT NULL,
	File       TEXT NOT NULL,
	SameCount  INTEGER,
	OtherCount INTEGER,
	TotalCount INTEGER,
	PRIMARY KEY (Time, File)
);

CREATE TABLE IF NOT EXISTS Pairs (
	FromFile TEXT NOT NULL,
	ToFile   TEXT NOT NULL,
	Count    INTEGER,
	PRIMARY KEY (FromFile, ToFile)
);

CREATE TABLE IF NOT EXISTS LatestRevision (
	File TEXT PRIMARY KEY NOT NULL
);
`

// SQLiteExporter writes every table into one SQLite database.
type SQLiteExporter struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteExporter opens (creating if needed) the database at path and
// initializes the schema.
func NewSQLiteExporter(path string, logger *logrus.Logger) (*SQLiteExporter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	// One connection keeps every transaction on the same handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteExporter{db: db, logger: logger}, nil
}

// DB exposes the underlying handle.
func (e *SQLiteExporter) DB() *sqlx.DB {
	return e.db
}

// ExportOptions writes the Options table.
func (e *SQLiteExporter) ExportOptions(ctx context.Context, options []Option) error {
	return e.inTx(ctx, TableOptions, len(options), func(tx *sqlx.Tx) error {
		for _, o := range options {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO Options (Option, Value) VALUES (?, ?)`,
				o.Name, o.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExportGroups writes the Groups, Revisions and Files tables.
func (e *SQLiteExporter) ExportGroups(ctx context.Context, groups []models.GroupRecord) error {
	return e.inTx(ctx, TableGroups, len(groups), func(tx *sqlx.Tx) error {
		for _, g := range groups {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO "Groups" (GroupID, Date) VALUES (?, ?)`,
				g.GroupID, models.FormatMillis(g.HeadTime)); err != nil {
				return err
			}
			for _, r := range g.Revisions {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO Revisions (RevisionID, GroupID, Date, Author, Message) VALUES (?, ?, ?, ?, ?)`,
					r.ID, g.GroupID, models.FormatMillis(r.Time), r.Author, r.Message); err != nil {
					return err
				}
			}
			for _, f := range g.Files {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO Files (GroupID, File) VALUES (?, ?)`,
					g.GroupID, f); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ExportAccumulated writes the AccumulatedCounts table.
func (e *SQLiteExporter) ExportAccumulated(ctx context.Context, rows []models.AccumulatedRow) error {
	return e.inTx(ctx, TableAccumulated, len(rows), func(tx *sqlx.Tx) error {
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO AccumulatedCounts (Date, Time, File, SameCount, OtherCount, TotalCount) VALUES (?, ?, ?, ?, ?, ?)`,
				models.FormatMillis(r.Time), r.Time, r.File, r.SameCount, r.OtherCount, r.TotalCount); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExportPairs writes the Pairs table.
func (e *SQLiteExporter) ExportPairs(ctx context.Context, rows []models.PairRow) error {
	return e.inTx(ctx, TablePairs, len(rows), func(tx *sqlx.Tx) error {
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO Pairs (FromFile, ToFile, Count) VALUES (?, ?, ?)`,
				r.FromFile, r.ToFile, r.Count); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExportLatestRevision writes the LatestRevision table.
func (e *SQLiteExporter) ExportLatestRevision(ctx context.Context, rev *models.Revision) error {
	var files []models.FileName
	if rev != nil {
		files = rev.Files()
	}
	return e.inTx(ctx, TableLatest, len(files), func(tx *sqlx.Tx) error {
		for _, f := range files {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO LatestRevision (File) VALUES (?)`, f.String()); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database connection.
func (e *SQLiteExporter) Close() error {
	return e.db.Close()
}

func (e *SQLiteExporter) inTx(ctx context.Context, table string, n int, fn func(tx *sqlx.Tx) error) error {
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", table, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}

	e.logger.WithFields(logrus.Fields{
		"table": table,
		"rows":  n,
	}).Debug("exported table")
	return nil
}
