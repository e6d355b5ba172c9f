// Package sqlite writes filtered PSM sets to a SQLite database consumed
// by downstream quantification
package sqlite

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/PepKey/pkg/pipeline"
)

// Date format for RunTable (ISO 8601)
const runDateFormat = "2006-01-02T15:04:05Z07:00"

// Writer handles writing filtered fractions to SQLite database files
type Writer struct {
	db     *sql.DB
	runID  string
	closed bool
}

// RunInfo describes the configuration a run was produced with
type RunInfo struct {
	Options    pipeline.Options
	NumSamples int
}

// fileURI builds a SQLite URI filename for path. The driver cuts plain
// filenames at the first '?', so the path is escaped.
func fileURI(path, query string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve database path: %w", err)
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	u := url.URL{Scheme: "file", Path: abs, RawQuery: query}
	return u.String(), nil
}

// NewWriter creates a new SQLite writer with a fresh run identifier
func NewWriter(outputPath string) (*Writer, error) {
	dsn, err := fileURI(outputPath, "")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	w := &Writer{
		db:    db,
		runID: uuid.NewString(),
	}

	if err := w.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return w, nil
}

// RunID returns the identifier stamped on every row of this run
func (w *Writer) RunID() string {
	return w.runID
}

// createTables creates the required database schema
func (w *Writer) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS RunTable (
		RunId TEXT PRIMARY KEY,
		CreationDate TEXT,
		QValue DOUBLE,
		SoftQValue DOUBLE,
		UniqueOnly BOOL,
		MinSampleFraction DOUBLE,
		UseSoftThreshold BOOL,
		MatchAcrossRuns BOOL,
		NumSamples INTEGER
	);

	CREATE TABLE IF NOT EXISTS PsmTable (
		PsmId INTEGER PRIMARY KEY AUTOINCREMENT,
		RunId TEXT REFERENCES RunTable(RunId),
		Sample TEXT,
		FileIdx INTEGER,
		Scan INTEGER,
		Charge INTEGER,
		Sequence TEXT,
		Concat TEXT,
		PepId TEXT,
		Evidence TEXT,
		PrecursorMz DOUBLE,
		NeutralMass DOUBLE,
		PeptideMass DOUBLE,
		Score DOUBLE,
		QValue DOUBLE,
		PEP DOUBLE,
		DistinctMatches INTEGER,
		ProteinId TEXT,
		FlankingAA TEXT
	);

	CREATE INDEX IF NOT EXISTS PsmTableFraction ON PsmTable (RunId, Sample, FileIdx);
	`

	_, err := w.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// WriteRun records the run configuration
func (w *Writer) WriteRun(info RunInfo) error {
	o := info.Options
	_, err := w.db.Exec(`
		INSERT INTO RunTable (
			RunId, CreationDate, QValue, SoftQValue, UniqueOnly,
			MinSampleFraction, UseSoftThreshold, MatchAcrossRuns, NumSamples
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.runID, time.Now().Format(runDateFormat), o.QValue, o.SoftQValue, o.UniqueOnly,
		o.MinSampleFraction, o.UseSoftThreshold, o.MatchAcrossRuns, info.NumSamples)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// WriteFraction writes every row of one filtered fraction in a single transaction
func (w *Writer) WriteFraction(res pipeline.Result) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO PsmTable (
			RunId, Sample, FileIdx, Scan, Charge, Sequence, Concat, PepId,
			Evidence, PrecursorMz, NeutralMass, PeptideMass, Score, QValue,
			PEP, DistinctMatches, ProteinId, FlankingAA
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare PSM statement: %w", err)
	}
	defer stmt.Close()

	for i := range res.PSMs {
		psm := &res.PSMs[i]

		// NULL when the source table had no q-value
		var q interface{}
		if psm.QValue != nil {
			q = *psm.QValue
		}

		_, err := stmt.Exec(
			w.runID,
			psm.Sample,
			psm.FileIndex,
			psm.Scan,
			psm.Charge,
			psm.Sequence,
			psm.Key(),
			psm.PepID,
			string(psm.Evidence),
			psm.PrecursorMZ,
			psm.NeutralMass,
			psm.PeptideMass,
			psm.Score,
			q,
			psm.PEP,
			psm.DistinctMatches,
			psm.ProteinIDs,
			psm.FlankingAA,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert PSM %s: %w", psm.Name(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit fraction %s/%d: %w", res.Sample, res.FileIndex, err)
	}
	return nil
}

// Close closes the database connection. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
