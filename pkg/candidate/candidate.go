// Package candidate builds the project-wide master list of peptide/charge
// pairs confidently identified in enough samples to be trusted elsewhere.
package candidate

import (
	"fmt"
	"math"
	"sort"

	"github.com/ChrisMcGann/PepKey/pkg/core"
	"github.com/ChrisMcGann/PepKey/pkg/filter"
	"github.com/ChrisMcGann/PepKey/pkg/store"
)

// DefaultMinFraction is the default minimum fraction of samples a
// peptide/charge must be identified in.
const DefaultMinFraction = 0.25

// Candidate summarizes one peptide/charge across all samples.
type Candidate struct {
	Key         string
	NumSamples  int     // Distinct samples with a confident identification
	FileIndex   int     // Median fraction index, valid when Nominal
	Nominal     bool    // False when the median fraction index is not integral
	PrecursorMZ float64 // Median
	PeptideMass float64 // Median
}

// Set is a read-only snapshot of quorum-passing candidates, ordered by key.
type Set struct {
	byKey map[string]Candidate
	keys  []string
}

type accumulator struct {
	samples     map[string]struct{}
	fileIndices []float64
	mz          []float64
	mass        []float64
}

// Build filters every record in the store, groups the survivors by
// peptide/charge key and keeps the groups seen in at least
// minFraction * NumSamples distinct samples.
func Build(st *store.Store, cfg filter.Config, minFraction float64) (*Set, error) {
	if st == nil || st.Empty() {
		return nil, fmt.Errorf("master candidates need loaded PSMs: %w", core.ErrState)
	}

	groups := make(map[string]*accumulator)
	for _, psm := range cfg.Apply(st.Records()) {
		key := psm.Key()
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{samples: make(map[string]struct{})}
			groups[key] = acc
		}
		acc.samples[psm.Sample] = struct{}{}
		acc.fileIndices = append(acc.fileIndices, float64(psm.FileIndex))
		acc.mz = append(acc.mz, psm.PrecursorMZ)
		acc.mass = append(acc.mass, psm.PeptideMass)
	}

	quorum := minFraction * float64(st.NumSamples())
	set := &Set{byKey: make(map[string]Candidate)}
	for key, acc := range groups {
		if float64(len(acc.samples)) < quorum {
			continue
		}
		medianIdx := core.Median(acc.fileIndices)
		set.byKey[key] = Candidate{
			Key:         key,
			NumSamples:  len(acc.samples),
			FileIndex:   int(medianIdx),
			Nominal:     medianIdx == math.Trunc(medianIdx),
			PrecursorMZ: core.Median(acc.mz),
			PeptideMass: core.Median(acc.mass),
		}
		set.keys = append(set.keys, key)
	}
	sort.Strings(set.keys)

	return set, nil
}

// Len returns the number of candidates
func (s *Set) Len() int {
	return len(s.keys)
}

// Get returns the candidate for key
func (s *Set) Get(key string) (Candidate, bool) {
	c, ok := s.byKey[key]
	return c, ok
}

// Keys returns all candidate keys, sorted
func (s *Set) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// ForFraction returns the candidates whose nominal fraction is fileIndex,
// ordered by key. Candidates with a non-integral median fraction never match.
func (s *Set) ForFraction(fileIndex int) []Candidate {
	var out []Candidate
	for _, key := range s.keys {
		c := s.byKey[key]
		if c.Nominal && c.FileIndex == fileIndex {
			out = append(out, c)
		}
	}
	return out
}
