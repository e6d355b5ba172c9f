package sqlite

import (
	"database/sql"
	"fmt"
)

// EvidenceCount is the number of rows per sample and evidence label
type EvidenceCount struct {
	RunID    string
	Sample   string
	Evidence string
	Rows     int
}

// Summarize counts the rows of every run by sample and evidence
func Summarize(path string) ([]EvidenceCount, error) {
	dsn, err := fileURI(path, "mode=ro")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT RunId, Sample, Evidence, COUNT(*)
		FROM PsmTable
		GROUP BY RunId, Sample, Evidence
		ORDER BY RunId, Sample, Evidence
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query PSM table: %w", err)
	}
	defer rows.Close()

	var counts []EvidenceCount
	for rows.Next() {
		var c EvidenceCount
		if err := rows.Scan(&c.RunID, &c.Sample, &c.Evidence, &c.Rows); err != nil {
			return nil, fmt.Errorf("failed to read summary row: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	return counts, nil
}
