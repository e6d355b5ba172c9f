package fraction

import (
	"github.com/ChrisMcGann/PepKey/pkg/candidate"
	"github.com/ChrisMcGann/PepKey/pkg/core"
	"github.com/ChrisMcGann/PepKey/pkg/filter"
)

// DefaultSoftQValue is the looser q-value cutoff for soft-threshold rescue
const DefaultSoftQValue = 0.1

// Rescue admits PSMs of the unfiltered fraction whose q-value lies in
// [qValue, softQValue) and whose key is a quorum-passing candidate of
// the same fraction. Survivors are labeled soft, in fraction order.
func Rescue(fractionSet []core.PSM, candidates []candidate.Candidate, qValue, softQValue float64) []core.PSM {
	trusted := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		trusted[c.Key] = true
	}

	var rescued []core.PSM
	for i := range fractionSet {
		psm := &fractionSet[i]
		if !filter.InBand(psm, qValue, softQValue) || !trusted[psm.Key()] {
			continue
		}
		row := psm.Clone()
		row.Evidence = core.EvidenceSoft
		rescued = append(rescued, row)
	}
	return rescued
}
