package filter

import (
	"testing"

	"github.com/ChrisMcGann/PepKey/pkg/core"
	"github.com/google/go-cmp/cmp"
)

func psm(seq string, q float64, proteins string) core.PSM {
	return core.PSM{Sequence: seq, Charge: 2, QValue: core.QValueOf(q), ProteinIDs: proteins}
}

func TestApplyQValue(t *testing.T) {
	in := []core.PSM{
		psm("AAA", 0.001, "P1"),
		psm("CCC", 0.01, "P1"), // equal to threshold, excluded
		psm("DDD", 0.5, "P1"),
		{Sequence: "EEE", Charge: 2, ProteinIDs: "P1"}, // no q-value, passes
	}
	cfg := Config{QValue: 0.01}
	got := core.Keys(cfg.Apply(in))
	want := []string{"AAA_2", "EEE_2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyUniqueOnly(t *testing.T) {
	in := []core.PSM{psm("AAA", 0.001, "P1,P2"), psm("CCC", 0.001, "P3")}

	tests := []struct {
		name       string
		uniqueOnly bool
		want       []string
	}{
		{"unique only", true, []string{"CCC_2"}},
		{"all proteins", false, []string{"AAA_2", "CCC_2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{QValue: DefaultQValue, UniqueOnly: tt.uniqueOnly}
			if diff := cmp.Diff(tt.want, core.Keys(cfg.Apply(in))); diff != "" {
				t.Errorf("Apply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApplyIdempotent(t *testing.T) {
	in := []core.PSM{
		psm("AAA", 0.001, "P1"),
		psm("CCC", 0.02, "P1"),
		psm("DDD", 0.005, "P1,P2"),
		psm("EEE", 0.0, "P4"),
	}
	cfg := Config{QValue: 0.01, UniqueOnly: true}
	once := cfg.Apply(in)
	twice := cfg.Apply(once)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("filter is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := []core.PSM{psm("AAA", 0.001, "P1")}
	cfg := Config{QValue: 0.01}
	out := cfg.Apply(in)
	*out[0].QValue = 1
	if *in[0].QValue != 0.001 {
		t.Errorf("input q-value mutated to %v", *in[0].QValue)
	}
}

func TestInBand(t *testing.T) {
	tests := []struct {
		name string
		p    core.PSM
		want bool
	}{
		{"at lower bound", psm("A", 0.01, ""), true},
		{"inside", psm("A", 0.05, ""), true},
		{"at upper bound", psm("A", 0.1, ""), false},
		{"below", psm("A", 0.001, ""), false},
		{"no q-value", core.PSM{Sequence: "A"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InBand(&tt.p, 0.01, 0.1); got != tt.want {
				t.Errorf("InBand() = %v, want %v", got, tt.want)
			}
		})
	}
}
