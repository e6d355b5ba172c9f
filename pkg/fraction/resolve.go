// Package fraction resolves the canonical PSM set of one sample fraction
// and rescues borderline identifications corroborated across samples.
package fraction

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ChrisMcGann/PepKey/pkg/core"
)

// Resolve selects the records of one fraction, keeps the best PSM per
// peptide/charge, orders the survivors by scan and numbers them from 0.
func Resolve(sampleRecords []core.PSM, fileIndex int) ([]core.PSM, error) {
	var frac []core.PSM
	for i := range sampleRecords {
		if sampleRecords[i].FileIndex == fileIndex {
			frac = append(frac, sampleRecords[i].Clone())
		}
	}
	if len(frac) == 0 {
		return nil, fmt.Errorf("fraction %d not present in sample records: %w", fileIndex, core.ErrInvalidArgument)
	}

	frac = Dedupe(frac)

	sort.SliceStable(frac, func(i, j int) bool {
		return frac[i].Scan < frac[j].Scan
	})
	for i := range frac {
		frac[i].PepID = strconv.Itoa(i)
	}

	return frac, nil
}

// Dedupe stable-sorts PSMs by ascending q-value and keeps the first PSM
// of every peptide/charge key. PSMs without a q-value sort last. The
// result stays in q-value order.
func Dedupe(psms []core.PSM) []core.PSM {
	sorted := make([]core.PSM, len(psms))
	copy(sorted, psms)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessQValue(&sorted[i], &sorted[j])
	})

	seen := make(map[string]bool, len(sorted))
	out := sorted[:0]
	for _, psm := range sorted {
		key := psm.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, psm)
	}
	return out
}

func lessQValue(a, b *core.PSM) bool {
	switch {
	case !a.HasQValue():
		return false
	case !b.HasQValue():
		return true
	default:
		return *a.QValue < *b.QValue
	}
}
