// Package store holds every PSM loaded for a project. It is a pure
// container: callers receive copies and never mutate stored records.
package store

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/PepKey/pkg/core"
)

// Store keeps PSM records grouped by sample in load order.
type Store struct {
	samples  []string
	bySample map[string][]core.PSM
	total    int
}

// New creates an empty store
func New() *Store {
	return &Store{
		bySample: make(map[string][]core.PSM),
	}
}

// Add registers a sample and stamps its records with the sample name.
// A sample may be added with no records; it still counts toward the
// sample total. Adding a sample twice appends to it.
func (s *Store) Add(sample string, records []core.PSM) {
	if _, ok := s.bySample[sample]; !ok {
		s.samples = append(s.samples, sample)
		s.bySample[sample] = nil
	}
	for _, rec := range records {
		rec = rec.Clone()
		rec.Sample = sample
		s.bySample[sample] = append(s.bySample[sample], rec)
	}
	s.total += len(records)
}

// Len returns the number of records across all samples
func (s *Store) Len() int {
	return s.total
}

// Empty reports whether no records have been loaded
func (s *Store) Empty() bool {
	return s.total == 0
}

// NumSamples returns the number of registered samples
func (s *Store) NumSamples() int {
	return len(s.samples)
}

// Samples returns sample names in load order
func (s *Store) Samples() []string {
	out := make([]string, len(s.samples))
	copy(out, s.samples)
	return out
}

// HasSample reports whether sample has been registered
func (s *Store) HasSample(sample string) bool {
	_, ok := s.bySample[sample]
	return ok
}

// Records returns a copy of every record, samples in load order.
func (s *Store) Records() []core.PSM {
	out := make([]core.PSM, 0, s.total)
	for _, sample := range s.samples {
		out = appendClones(out, s.bySample[sample], nil)
	}
	return out
}

// SampleRecords returns a copy of the records of one sample.
func (s *Store) SampleRecords(sample string) ([]core.PSM, error) {
	recs, ok := s.bySample[sample]
	if !ok {
		return nil, fmt.Errorf("sample %q not loaded: %w", sample, core.ErrInvalidArgument)
	}
	return appendClones(nil, recs, nil), nil
}

// FileIndices returns the distinct fraction indices of a sample, ascending.
func (s *Store) FileIndices(sample string) ([]int, error) {
	recs, ok := s.bySample[sample]
	if !ok {
		return nil, fmt.Errorf("sample %q not loaded: %w", sample, core.ErrInvalidArgument)
	}
	seen := make(map[int]bool)
	var indices []int
	for i := range recs {
		if !seen[recs[i].FileIndex] {
			seen[recs[i].FileIndex] = true
			indices = append(indices, recs[i].FileIndex)
		}
	}
	sort.Ints(indices)
	return indices, nil
}

// FractionRecords returns a copy of the records of one sample and fraction.
// Unlike FileIndices it does not fail for a fraction the sample lacks;
// the result is then empty.
func (s *Store) FractionRecords(sample string, fileIndex int) ([]core.PSM, error) {
	recs, ok := s.bySample[sample]
	if !ok {
		return nil, fmt.Errorf("sample %q not loaded: %w", sample, core.ErrInvalidArgument)
	}
	return appendClones(nil, recs, func(p *core.PSM) bool {
		return p.FileIndex == fileIndex
	}), nil
}

func appendClones(dst, src []core.PSM, keep func(*core.PSM) bool) []core.PSM {
	for i := range src {
		if keep != nil && !keep(&src[i]) {
			continue
		}
		dst = append(dst, src[i].Clone())
	}
	return dst
}
