package core

import (
	"errors"
	"testing"
)

func TestMakeAndParseKey(t *testing.T) {
	tests := []struct {
		key        string
		wantSeq    string
		wantCharge int
		wantErr    bool
	}{
		{key: "PEPTIDE_2", wantSeq: "PEPTIDE", wantCharge: 2},
		{key: "PEP_TIDE_3", wantSeq: "PEP_TIDE", wantCharge: 3},
		{key: "PEPC[57.02]K_4", wantSeq: "PEPC[57.02]K", wantCharge: 4},
		{key: "PEPTIDE", wantErr: true},
		{key: "PEPTIDE_", wantErr: true},
		{key: "_2", wantErr: true},
		{key: "PEPTIDE_x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			seq, charge, err := ParseKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrDataIntegrity) {
					t.Fatalf("ParseKey(%q) error = %v, want ErrDataIntegrity", tt.key, err)
				}
				var die *DataIntegrityError
				if !errors.As(err, &die) || die.Key != tt.key {
					t.Errorf("error does not carry offending key: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKey(%q) error = %v", tt.key, err)
			}
			if seq != tt.wantSeq || charge != tt.wantCharge {
				t.Errorf("ParseKey(%q) = %q, %d", tt.key, seq, charge)
			}
			if MakeKey(seq, charge) != tt.key {
				t.Errorf("MakeKey() = %q, want %q", MakeKey(seq, charge), tt.key)
			}
		})
	}
}

func TestPSMKeyFollowsFields(t *testing.T) {
	p := PSM{Sequence: "PEPTIDE", Charge: 2}
	if p.Key() != "PEPTIDE_2" {
		t.Errorf("Key() = %q", p.Key())
	}
	p.Charge = 3
	if p.Key() != "PEPTIDE_3" {
		t.Errorf("Key() after charge change = %q", p.Key())
	}
	if p.Name() != "PEPTIDE/3" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestIsUnique(t *testing.T) {
	if !(&PSM{ProteinIDs: "P1"}).IsUnique() {
		t.Error("single protein should be unique")
	}
	if (&PSM{ProteinIDs: "P1,P2"}).IsUnique() {
		t.Error("two proteins should not be unique")
	}
}

func TestCloneDoesNotShareQValue(t *testing.T) {
	p := PSM{QValue: QValueOf(0.01)}
	c := p.Clone()
	*c.QValue = 0.5
	if *p.QValue != 0.01 {
		t.Errorf("clone mutated original q-value: %v", *p.QValue)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{nil, 0},
		{[]float64{3}, 3},
		{[]float64{104, 100}, 102},
		{[]float64{5, 1, 3}, 3},
		{[]float64{1, 2, 3, 10}, 2.5},
	}
	for _, tt := range tests {
		if got := Median(tt.in); got != tt.want {
			t.Errorf("Median(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
