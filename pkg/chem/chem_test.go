package chem

import (
	"math"
	"testing"
)

func TestParseFormula(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantMono float64
		wantErr  bool
	}{
		{"carbamidomethyl", "C2H3NO", 57.021464, false},
		{"oxidation", "O", 15.994915, false},
		{"explicit counts", "C2H3N1O1", 57.021464, false},
		{"negative counts", "H-1N-1O1", 0.984016, false},
		{"two letter element", "Se1", 79.916521, false},
		{"unknown element", "Qq2", 0, true},
		{"dangling sign", "C-", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFormula(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormula(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if math.Abs(f.Mono()-tt.wantMono) > 0.0001 {
				t.Errorf("Mono() = %.6f, want %.6f", f.Mono(), tt.wantMono)
			}
		})
	}
}

func TestFormulaArithmetic(t *testing.T) {
	water := Formula{"H": 2, "O": 1}
	ammonia := Formula{"N": 1, "H": 3}

	sum := water.Add(ammonia)
	if sum["H"] != 5 || sum["O"] != 1 || sum["N"] != 1 {
		t.Errorf("Add() = %v", sum)
	}

	diff := sum.Sub(ammonia)
	if math.Abs(diff.Mono()-water.Mono()) > 1e-9 {
		t.Errorf("Sub() mono = %.6f, want %.6f", diff.Mono(), water.Mono())
	}

	// Originals must be untouched.
	if water["N"] != 0 || len(ammonia) != 2 {
		t.Error("Add/Sub mutated an operand")
	}

	empty := Formula{}
	if !empty.IsEmpty() || !water.Sub(water).IsEmpty() {
		t.Error("IsEmpty() misreported")
	}
}

func TestFormulaStringRoundTrip(t *testing.T) {
	f := Formula{"C": 2, "H": -1, "N": 1, "O": 3, "S": 1}
	parsed, err := ParseFormula(f.String())
	if err != nil {
		t.Fatalf("ParseFormula(%q) failed: %v", f.String(), err)
	}
	if math.Abs(parsed.Mono()-f.Mono()) > 1e-9 {
		t.Errorf("round trip mono = %.6f, want %.6f", parsed.Mono(), f.Mono())
	}
}

func TestFormulaMassBitwiseStable(t *testing.T) {
	// Mass resolution feeds structural-equality comparisons downstream, so
	// repeated computation over equal formulas must agree to the last bit,
	// not merely within epsilon.
	ref := Formula{"H": 1, "N": 1, "O": -1}
	wantMono := ref.Mono()
	wantAvg := ref.Avg()
	for i := 0; i < 200; i++ {
		f := Formula{"O": -1, "N": 1, "H": 1}
		if got := f.Mono(); got != wantMono {
			t.Fatalf("iteration %d: Mono() = %v, want %v", i, got, wantMono)
		}
		if got := f.Avg(); got != wantAvg {
			t.Fatalf("iteration %d: Avg() = %v, want %v", i, got, wantAvg)
		}
	}
}

func TestAminoAcidMasses(t *testing.T) {
	tests := []struct {
		code byte
		mono float64
	}{
		{'G', 57.02146},
		{'A', 71.03711},
		{'K', 128.09496},
		{'W', 186.07931},
	}

	for _, tt := range tests {
		got, ok := AminoAcidMono(tt.code)
		if !ok {
			t.Fatalf("AminoAcidMono(%c): not found", tt.code)
		}
		if math.Abs(got-tt.mono) > 0.0001 {
			t.Errorf("AminoAcidMono(%c) = %.5f, want %.5f", tt.code, got, tt.mono)
		}
	}

	if _, ok := AminoAcidMono('B'); ok {
		t.Error("AminoAcidMono('B') should not resolve")
	}
}

func TestSideChain(t *testing.T) {
	// Glycine's side chain is a single hydrogen by definition.
	g, ok := SideChain('G')
	if !ok {
		t.Fatal("SideChain('G') not found")
	}
	if math.Abs(g.Mono()-Elements["H"].Mono) > 1e-9 {
		t.Errorf("SideChain('G') mono = %.6f, want H", g.Mono())
	}

	// Alanine's side chain is a methyl group.
	a, _ := SideChain('A')
	ch3 := Formula{"C": 1, "H": 3}
	if math.Abs(a.Mono()-ch3.Mono()) > 1e-9 {
		t.Errorf("SideChain('A') mono = %.6f, want CH3", a.Mono())
	}
}

func TestSatelliteLoss(t *testing.T) {
	if _, ok := SatelliteLoss('V'); !ok {
		t.Error("valine should have a defined satellite cleavage")
	}
	for _, code := range []byte{'G', 'A', 'P', 'F', 'Y', 'W', 'H'} {
		if _, ok := SatelliteLoss(code); ok {
			t.Errorf("SatelliteLoss(%c) should be undefined", code)
		}
	}
}
