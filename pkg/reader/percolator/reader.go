// Package percolator provides a streaming reader for Percolator
// tab-delimited PSM tables (*.target.psms.txt)
package percolator

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/PepKey/pkg/core"
)

// Column names as written by Crux Percolator
const (
	ColFileIndex       = "file_idx"
	ColScan            = "scan"
	ColCharge          = "charge"
	ColPrecursorMZ     = "spectrum precursor m/z"
	ColNeutralMass     = "spectrum neutral mass"
	ColPeptideMass     = "peptide mass"
	ColScore           = "percolator score"
	ColQValue          = "percolator q-value"
	ColPEP             = "percolator PEP"
	ColDistinctMatches = "distinct matches/spectrum"
	ColSequence        = "sequence"
	ColProteinID       = "protein id"
	ColFlankingAA      = "flanking aa"
)

var requiredColumns = []string{ColFileIndex, ColScan, ColCharge, ColSequence}

// Reader provides streaming access to Percolator PSM tables
type Reader struct {
	csv     *csv.Reader
	modDB   *core.ModDatabase
	columns map[string]int
	lineNum int
	current *core.PSM
	err     error
}

// NewReader creates a new Percolator reader. The header is read on the
// first call to Next.
func NewReader(r io.Reader, modDB *core.ModDatabase) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	return &Reader{
		csv:   cr,
		modDB: modDB,
	}
}

// Next advances to the next PSM. Returns false when no more PSMs or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}

	if r.columns == nil {
		if err := r.readHeader(); err != nil {
			if err != io.EOF {
				r.err = err
			}
			return false
		}
	}

	for {
		record, err := r.csv.Read()
		if err != nil {
			if err != io.EOF {
				r.err = err
			}
			return false
		}
		r.lineNum, _ = r.csv.FieldPos(0)
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		psm, err := r.parseRecord(record)
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.lineNum, err)
			return false
		}
		r.current = psm
		return true
	}
}

// PSM returns the current PSM
func (r *Reader) PSM() *core.PSM {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// HasColumn reports whether the header contains the named column
func (r *Reader) HasColumn(name string) bool {
	_, ok := r.columns[name]
	return ok
}

// ReadAll reads every remaining PSM
func (r *Reader) ReadAll() ([]core.PSM, error) {
	var psms []core.PSM
	for r.Next() {
		psms = append(psms, *r.PSM())
	}
	return psms, r.Err()
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		return err
	}
	r.lineNum, _ = r.csv.FieldPos(0)

	r.columns = make(map[string]int, len(header))
	for i, name := range header {
		r.columns[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range requiredColumns {
		if !r.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("line %d: missing required columns: %s", r.lineNum, strings.Join(missing, ", "))
	}
	return nil
}

// parseRecord converts one table row into a PSM
func (r *Reader) parseRecord(record []string) (*core.PSM, error) {
	psm := &core.PSM{
		Sequence:   r.field(record, ColSequence),
		ProteinIDs: r.field(record, ColProteinID),
		FlankingAA: r.field(record, ColFlankingAA),
	}
	if psm.Sequence == "" {
		return nil, errors.New("empty sequence")
	}

	var err error
	if psm.FileIndex, err = r.intField(record, ColFileIndex); err != nil {
		return nil, err
	}
	if psm.Scan, err = r.intField(record, ColScan); err != nil {
		return nil, err
	}
	if psm.Charge, err = r.intField(record, ColCharge); err != nil {
		return nil, err
	}
	if psm.DistinctMatches, err = r.intField(record, ColDistinctMatches); err != nil {
		return nil, err
	}
	if psm.Score, err = r.floatField(record, ColScore); err != nil {
		return nil, err
	}
	if psm.PEP, err = r.floatField(record, ColPEP); err != nil {
		return nil, err
	}
	if psm.NeutralMass, err = r.floatField(record, ColNeutralMass); err != nil {
		return nil, err
	}

	if r.field(record, ColQValue) != "" {
		q, err := r.floatField(record, ColQValue)
		if err != nil {
			return nil, err
		}
		psm.QValue = core.QValueOf(q)
	}

	if err := r.parseMasses(psm, record); err != nil {
		return nil, err
	}

	return psm, nil
}

// parseMasses reads peptide mass and precursor m/z, computing them from
// the sequence when the table lacks the column
func (r *Reader) parseMasses(psm *core.PSM, record []string) error {
	var err error
	if r.HasColumn(ColPeptideMass) {
		if psm.PeptideMass, err = r.floatField(record, ColPeptideMass); err != nil {
			return err
		}
	}
	if r.HasColumn(ColPrecursorMZ) {
		if psm.PrecursorMZ, err = r.floatField(record, ColPrecursorMZ); err != nil {
			return err
		}
	}
	if r.HasColumn(ColPeptideMass) && r.HasColumn(ColPrecursorMZ) {
		return nil
	}

	residues, mods, err := r.modDB.ParseSequence(psm.Sequence)
	if err != nil {
		return err
	}
	if !r.HasColumn(ColPeptideMass) {
		psm.PeptideMass = core.CalculateNeutralMass(residues, mods)
	}
	if !r.HasColumn(ColPrecursorMZ) {
		psm.PrecursorMZ = core.CalculatePeptideMass(residues, psm.Charge, mods)
	}
	return nil
}

func (r *Reader) field(record []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// intField parses an integer column; absent columns and empty cells are 0
func (r *Reader) intField(record []string, name string) (int, error) {
	s := r.field(record, name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value '%s': %w", name, s, err)
	}
	return v, nil
}

// floatField parses a float column; absent columns and empty cells are 0
func (r *Reader) floatField(record []string, name string) (float64, error) {
	s := r.field(record, name)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value '%s': %w", name, s, err)
	}
	return v, nil
}
