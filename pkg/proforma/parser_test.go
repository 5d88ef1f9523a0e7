package proforma

import (
	"errors"
	"math"
	"testing"

	"github.com/mjhoffman/profrag/pkg/core"
)

func mustParse(t *testing.T, text string) *core.PeptidoformSet {
	t.Helper()
	set, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", text, err)
	}
	return set
}

func TestParseBareSequence(t *testing.T) {
	set := mustParse(t, "PEPTIDE")
	if len(set.Peptidoforms) != 1 {
		t.Fatalf("got %d peptidoforms, want 1", len(set.Peptidoforms))
	}
	pf := set.Peptidoforms[0]
	if pf.Sequence() != "PEPTIDE" {
		t.Errorf("Sequence() = %q", pf.Sequence())
	}
	if pf.ResidueCount() != 7 {
		t.Errorf("ResidueCount() = %d", pf.ResidueCount())
	}
}

func TestParseResidueModifications(t *testing.T) {
	pf := mustParse(t, "EM[Oxidation]EVEES[Phospho]PEK").Peptidoforms[0]

	if pf.Sequence() != "EMEVEESPEK" {
		t.Fatalf("Sequence() = %q", pf.Sequence())
	}
	ox := pf.ModificationsAt(1)
	if len(ox) != 1 || ox[0].Name != "Oxidation" {
		t.Errorf("position 1 mods = %v", ox)
	}
	ph := pf.ModificationsAt(6)
	if len(ph) != 1 || math.Abs(ph[0].Mono-79.966331) > 0.001 {
		t.Errorf("position 6 mods = %v", ph)
	}
}

func TestParseTerminalAndCharge(t *testing.T) {
	pf := mustParse(t, "[Acetyl]-PEPTIDE-[Amidated]/2").Peptidoforms[0]

	if len(pf.NTerm) != 1 || pf.NTerm[0].Name != "Acetyl" {
		t.Errorf("NTerm = %v", pf.NTerm)
	}
	if len(pf.CTerm) != 1 || pf.CTerm[0].Name != "Amidated" {
		t.Errorf("CTerm = %v", pf.CTerm)
	}
	if pf.TotalCharge() != 2 {
		t.Errorf("TotalCharge() = %d, want 2", pf.TotalCharge())
	}
}

func TestParseGlobalModification(t *testing.T) {
	pf := mustParse(t, "<[Carbamidomethyl]@C>PECTIDE").Peptidoforms[0]

	if len(pf.Globals) != 1 {
		t.Fatalf("Globals = %v", pf.Globals)
	}
	mods := pf.ModificationsAt(2) // the C
	if len(mods) != 1 || mods[0].Name != "Carbamidomethyl" {
		t.Errorf("mods at C = %v", mods)
	}
	if mods := pf.ModificationsAt(0); len(mods) != 0 {
		t.Errorf("mods at P = %v, want none", mods)
	}
}

func TestParseUnknownPosition(t *testing.T) {
	pf := mustParse(t, "[Phospho]?PESTIK").Peptidoforms[0]

	if len(pf.Ambiguous) != 1 {
		t.Fatalf("Ambiguous = %v", pf.Ambiguous)
	}
	g := pf.Ambiguous[0]
	if !g.Unknown || !g.ExactlyOne {
		t.Errorf("group = %+v", g)
	}
}

func TestParseUnknownPositionMultiplicity(t *testing.T) {
	pf := mustParse(t, "[Phospho]^2?PESTIK").Peptidoforms[0]
	if len(pf.Ambiguous) != 2 {
		t.Fatalf("got %d groups, want 2", len(pf.Ambiguous))
	}
}

func TestParseAmbiguityGroup(t *testing.T) {
	pf := mustParse(t, "PES[Phospho#g1(0.75)]T[#g1(0.25)]K").Peptidoforms[0]

	if len(pf.Ambiguous) != 1 {
		t.Fatalf("Ambiguous = %v", pf.Ambiguous)
	}
	g := pf.Ambiguous[0]
	if g.ID != "g1" || g.Unknown {
		t.Errorf("group = %+v", g)
	}
	if len(g.Positions) != 2 || g.Positions[0] != 2 || g.Positions[1] != 3 {
		t.Errorf("Positions = %v, want [2 3]", g.Positions)
	}
	if len(g.Scores) != 2 || g.Scores[0] != 0.75 || g.Scores[1] != 0.25 {
		t.Errorf("Scores = %v", g.Scores)
	}
	// The modification stays off the residues themselves.
	if mods := pf.ModificationsAt(2); len(mods) != 0 {
		t.Errorf("fixed mods at position 2 = %v, want none", mods)
	}
}

func TestParseRange(t *testing.T) {
	pf := mustParse(t, "PE(STY)[Phospho]AK").Peptidoforms[0]

	if pf.Sequence() != "PESTYAK" {
		t.Fatalf("Sequence() = %q", pf.Sequence())
	}
	if len(pf.Ambiguous) != 1 {
		t.Fatalf("Ambiguous = %v", pf.Ambiguous)
	}
	g := pf.Ambiguous[0]
	if g.ID != "" || len(g.Positions) != 3 || g.Positions[0] != 2 || g.Positions[2] != 4 {
		t.Errorf("group = %+v", g)
	}
}

func TestParseGlycanAndFormulaAndMass(t *testing.T) {
	pf := mustParse(t, "PEN[Glycan:HexNAc2Hex3]T[Formula:CH2]S[+79.966331]K").Peptidoforms[0]

	glyc := pf.ModificationsAt(2)
	if len(glyc) != 1 || glyc[0].Kind != core.ModGlycan {
		t.Fatalf("glycan mods = %v", glyc)
	}
	if glyc[0].Glycan["HexNAc"] != 2 || glyc[0].Glycan["Hex"] != 3 {
		t.Errorf("glycan composition = %v", glyc[0].Glycan)
	}
	if mods := pf.ModificationsAt(3); len(mods) != 1 || mods[0].Kind != core.ModFormula {
		t.Errorf("formula mods = %v", mods)
	}
	if mods := pf.ModificationsAt(4); len(mods) != 1 || mods[0].Kind != core.ModMass {
		t.Errorf("mass mods = %v", mods)
	}
}

func TestParseCrossLinkInterPeptidoform(t *testing.T) {
	set := mustParse(t, "PEK[XL:DSS#XL1]TIDE//AK[#XL1]A")

	if len(set.Peptidoforms) != 2 {
		t.Fatalf("got %d peptidoforms", len(set.Peptidoforms))
	}
	if len(set.CrossLinks) != 1 {
		t.Fatalf("CrossLinks = %v", set.CrossLinks)
	}
	xl := set.CrossLinks[0]
	if xl.Name != "XL1" || xl.Linker.Name != "DSS" {
		t.Errorf("cross-link = %+v", xl)
	}
	if xl.Intra() {
		t.Error("inter link reported intra")
	}
	want := [2]core.CrossLinkEndpoint{{Peptidoform: 0, Position: 2}, {Peptidoform: 1, Position: 1}}
	if xl.Endpoints != want {
		t.Errorf("Endpoints = %v, want %v", xl.Endpoints, want)
	}
	if len(set.Peptidoforms[0].CrossLinkRefs) != 1 || len(set.Peptidoforms[1].CrossLinkRefs) != 1 {
		t.Error("cross-link refs not wired into both peptidoforms")
	}
}

func TestParseDisulfideIntra(t *testing.T) {
	set := mustParse(t, "AC[XL:Disulfide#XL1]DC[#XL1]K")
	if len(set.CrossLinks) != 1 {
		t.Fatalf("CrossLinks = %v", set.CrossLinks)
	}
	xl := set.CrossLinks[0]
	if !xl.Intra() {
		t.Error("intra link reported inter")
	}
	if math.Abs(xl.Linker.Mono-(-2.015650)) > 0.001 {
		t.Errorf("disulfide mono = %.6f", xl.Linker.Mono)
	}
}

func TestParseChimeric(t *testing.T) {
	set := mustParse(t, "PEPTIDE/2+ANTHER/3")
	if len(set.Peptidoforms) != 2 {
		t.Fatalf("got %d peptidoforms", len(set.Peptidoforms))
	}
	if set.Peptidoforms[0].TotalCharge() != 2 || set.Peptidoforms[1].TotalCharge() != 3 {
		t.Errorf("charges = %d, %d", set.Peptidoforms[0].TotalCharge(), set.Peptidoforms[1].TotalCharge())
	}
}

func TestParseAdducts(t *testing.T) {
	pf := mustParse(t, "PEPTIDE/1[+2Na+,-H+]").Peptidoforms[0]
	if len(pf.ChargeCarriers) != 2 {
		t.Fatalf("carriers = %v", pf.ChargeCarriers)
	}
	na := pf.ChargeCarriers[0]
	if na.Count != 2 || na.Charge != 1 || na.Formula["Na"] != 1 {
		t.Errorf("sodium carrier = %+v", na)
	}
	h := pf.ChargeCarriers[1]
	if h.Count != -1 || h.Charge != 1 {
		t.Errorf("proton carrier = %+v", h)
	}
	if pf.TotalCharge() != 1 {
		t.Errorf("TotalCharge() = %d, want 1", pf.TotalCharge())
	}
}

func TestParseInfoIgnored(t *testing.T) {
	pf := mustParse(t, "PEP[INFO:looked odd]TIDE").Peptidoforms[0]
	if mods := pf.ModificationsAt(2); len(mods) != 0 {
		t.Errorf("INFO tag produced a modification: %v", mods)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind ErrorKind
	}{
		{"unknown residue", "PEBTIDE", UnknownResidue},
		{"unresolved modification", "PEP[Phosphoo]TIDE", UnresolvedModification},
		{"unresolved terminal", "[NotAMod]-PEPTIDE", UnresolvedModification},
		{"single cross-link endpoint", "PEK[XL:DSS#XL1]TIDE", InvalidCrossLink},
		{"three cross-link endpoints", "K[XL:DSS#XL1]K[#XL1]K[#XL1]", InvalidCrossLink},
		{"unknown linker", "PEK[XL:NotALinker#XL1]TIDE", UnresolvedModification},
		{"unclosed bracket", "PEP[TIDE", MalformedSyntax},
		{"unclosed range", "PE(STY", MalformedSyntax},
		{"range without modification", "PE(STY)AK", MalformedSyntax},
		{"dangling modification", "[Phospho]PEPTIDE", MalformedSyntax},
		{"charge without number", "PEPTIDE/", MalformedSyntax},
		{"empty", "", MalformedSyntax},
		{"empty peptidoform in set", "PEPTIDE+", MalformedSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want %v", tt.text, tt.kind)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error type = %T", err)
			}
			if pe.Kind != tt.kind {
				t.Errorf("kind = %v, want %v (err: %v)", pe.Kind, tt.kind, err)
			}
		})
	}
}

func TestParseErrorSpan(t *testing.T) {
	_, err := Parse("PEP[Phosphoo]TIDE")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T", err)
	}
	if pe.Start != 3 || pe.End != 13 {
		t.Errorf("span = %d-%d, want 3-13", pe.Start, pe.End)
	}
	if pe.Token != "Phosphoo" {
		t.Errorf("token = %q", pe.Token)
	}
}

func TestResolutionOrderMassBeforeName(t *testing.T) {
	// A signed numeric token is always a mass offset, never a name lookup.
	pf := mustParse(t, "PEP[+42.010565]TIDE").Peptidoforms[0]
	mods := pf.ModificationsAt(2)
	if len(mods) != 1 || mods[0].Kind != core.ModMass {
		t.Fatalf("mods = %v", mods)
	}
}

func TestResolutionOrderNameBeforeGlycan(t *testing.T) {
	// "Hex" is both a database name and a glycan composition; the named
	// lookup must win.
	pf := mustParse(t, "PES[Hex]K").Peptidoforms[0]
	mods := pf.ModificationsAt(2)
	if len(mods) != 1 || mods[0].Kind != core.ModNamed {
		t.Fatalf("mods = %v", mods)
	}
	// A composition that is not a plain name falls through to glycan.
	pf = mustParse(t, "PES[Hex2]K").Peptidoforms[0]
	mods = pf.ModificationsAt(2)
	if len(mods) != 1 || mods[0].Kind != core.ModGlycan {
		t.Fatalf("mods = %v", mods)
	}
}
