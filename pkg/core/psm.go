// Package core provides the peptide-spectrum match (PSM) model, peptide
// chemistry and the error taxonomy shared by every PepKey package.
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// KeySeparator joins sequence and charge into a peptide/charge key.
const KeySeparator = "_"

// Evidence labels the provenance of a row in a filtered fraction.
type Evidence string

const (
	EvidenceNone            Evidence = ""
	EvidenceQValue          Evidence = "q_value"
	EvidenceSoft            Evidence = "soft"
	EvidenceMatchAcrossRuns Evidence = "match_across_runs"
)

// UnknownProtein is the protein id given to rows synthesized by match-across-runs.
const UnknownProtein = "NA"

// PSM is a single peptide-spectrum match as reported by Percolator.
type PSM struct {
	// Identity
	Sequence  string // Peptide sequence, possibly with bracket modifications
	Charge    int    // Precursor charge state
	Scan      int    // Acquisition order within the fraction
	FileIndex int    // Fraction within the sample
	Sample    string // Stamped by the loader

	// Confidence; QValue is nil when the source table has no q-value column
	QValue          *float64
	Score           float64
	PEP             float64
	DistinctMatches int

	// Masses
	PrecursorMZ float64
	NeutralMass float64
	PeptideMass float64

	ProteinIDs string // Comma-separated protein accessions
	FlankingAA string

	// Set while filtering a fraction
	PepID    string
	Evidence Evidence
}

// Key returns the peptide/charge identity of the PSM.
func (p *PSM) Key() string {
	return MakeKey(p.Sequence, p.Charge)
}

// HasQValue reports whether the PSM carries a q-value.
func (p *PSM) HasQValue() bool {
	return p.QValue != nil
}

// IsUnique reports whether the peptide maps to exactly one protein.
func (p *PSM) IsUnique() bool {
	return !strings.Contains(p.ProteinIDs, ",")
}

// Name returns the PSM name in format "Sequence/Charge"
func (p *PSM) Name() string {
	return fmt.Sprintf("%s/%d", p.Sequence, p.Charge)
}

// MakeKey builds the peptide/charge key "SEQUENCE_CHARGE".
func MakeKey(sequence string, charge int) string {
	return sequence + KeySeparator + strconv.Itoa(charge)
}

// ParseKey splits a peptide/charge key on its last separator.
func ParseKey(key string) (string, int, error) {
	i := strings.LastIndex(key, KeySeparator)
	if i <= 0 || i == len(key)-1 {
		return "", 0, &DataIntegrityError{Key: key, Reason: "expected SEQUENCE_CHARGE"}
	}
	charge, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return "", 0, &DataIntegrityError{Key: key, Reason: "charge is not an integer"}
	}
	return key[:i], charge, nil
}

// QValueOf returns a pointer to q, for building PSMs with a q-value.
func QValueOf(q float64) *float64 {
	return &q
}

// Clone returns a copy of the PSM that shares no memory with p.
func (p PSM) Clone() PSM {
	if p.QValue != nil {
		p.QValue = QValueOf(*p.QValue)
	}
	return p
}

// Keys returns the keys of psms in order.
func Keys(psms []PSM) []string {
	keys := make([]string, len(psms))
	for i := range psms {
		keys[i] = psms[i].Key()
	}
	return keys
}
