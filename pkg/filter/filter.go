// Package filter provides the PSM confidence filter
package filter

import (
	"github.com/ChrisMcGann/PepKey/pkg/core"
)

// DefaultQValue is the default peptide q-value threshold
const DefaultQValue = 0.01

// Config holds filtering configuration
type Config struct {
	QValue     float64 // Keep only PSMs with q-value strictly below this
	UniqueOnly bool    // Keep only peptides mapping to a single protein
}

// Apply returns the PSMs passing every configured predicate, in input
// order. PSMs without a q-value are not filterable by the q-value
// predicate and pass it. The input is not modified.
func (c *Config) Apply(psms []core.PSM) []core.PSM {
	var filtered []core.PSM
	for i := range psms {
		if c.Keep(&psms[i]) {
			filtered = append(filtered, psms[i].Clone())
		}
	}
	return filtered
}

// Keep reports whether a single PSM passes the filter
func (c *Config) Keep(psm *core.PSM) bool {
	if psm.HasQValue() && !(*psm.QValue < c.QValue) {
		return false
	}
	if c.UniqueOnly && !psm.IsUnique() {
		return false
	}
	return true
}

// InBand reports whether the PSM q-value lies in [low, high). PSMs
// without a q-value are never in a band.
func InBand(psm *core.PSM, low, high float64) bool {
	if !psm.HasQValue() {
		return false
	}
	q := *psm.QValue
	return q >= low && q < high
}
