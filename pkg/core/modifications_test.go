package core

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSequence(t *testing.T) {
	db := DefaultModDatabase()

	tests := []struct {
		name     string
		sequence string
		wantSeq  string
		wantMods []Modification
		wantErr  bool
	}{
		{
			name:     "unmodified",
			sequence: "PEPTIDEK",
			wantSeq:  "PEPTIDEK",
		},
		{
			name:     "numeric mass",
			sequence: "PEPC[57.0215]TIDEK",
			wantSeq:  "PEPCTIDEK",
			wantMods: []Modification{{Mass: 57.0215, Position: 3, Name: "57.0215"}},
		},
		{
			name:     "named and n-terminal",
			sequence: "[Acetyl]M[Oxidation]PEPK",
			wantSeq:  "MPEPK",
			wantMods: []Modification{
				{Mass: 42.010565, Position: -1, Name: "Acetyl"},
				{Mass: 15.994915, Position: 0, Name: "Oxidation"},
			},
		},
		{name: "unknown name", sequence: "PEPK[Nope]", wantErr: true},
		{name: "unterminated", sequence: "PEPK[8.01", wantErr: true},
		{name: "stray close", sequence: "PEP]K", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, mods, err := db.ParseSequence(tt.sequence)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSequence() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if seq != tt.wantSeq {
				t.Errorf("sequence = %q, want %q", seq, tt.wantSeq)
			}
			if diff := cmp.Diff(tt.wantMods, mods); diff != "" {
				t.Errorf("modifications mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadFromCSV(t *testing.T) {
	db := NewModDatabase()
	csv := "mod,massshift,aa\nLabel:2H(9),9.0564,L\n\n"
	if err := db.LoadFromCSV(strings.NewReader(csv)); err != nil {
		t.Fatalf("LoadFromCSV() error = %v", err)
	}
	if mass, ok := db.GetMass("Label:2H(9)"); !ok || mass != 9.0564 {
		t.Errorf("GetMass() = %v, %v", mass, ok)
	}

	if err := db.LoadFromCSV(strings.NewReader("h\nbad,notamass\n")); err == nil {
		t.Error("expected error for invalid mass")
	}
}
