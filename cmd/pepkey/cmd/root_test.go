package cmd

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSamples(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  ", nil},
		{"time0", []string{"time0"}},
		{"time0, time6 ,,time12", []string{"time0", "time6", "time12"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseSamples(tt.in)); diff != "" {
			t.Errorf("parseSamples(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
