package fragment

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mjhoffman/profrag/pkg/core"
	"github.com/mjhoffman/profrag/pkg/proforma"
)

func mustParse(t *testing.T, text string) *core.PeptidoformSet {
	t.Helper()
	set, err := proforma.Parse(text)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", text, err)
	}
	return set
}

func mustGenerate(t *testing.T, set *core.PeptidoformSet, m Model) []Fragment {
	t.Helper()
	frags, err := Generate(set, m)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return frags
}

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %.6f, want %.6f", what, got, want)
	}
}

// find returns the fragments matching series, index, and charge.
func find(frags []Fragment, s Series, index, charge int) []Fragment {
	var out []Fragment
	for _, f := range frags {
		if f.Series == s && f.Index == index && f.Charge == charge {
			out = append(out, f)
		}
	}
	return out
}

func TestBackboneMasses(t *testing.T) {
	set := mustParse(t, "PEPTIDE")
	m := Default()
	m.MaxCharge = 1
	frags := mustGenerate(t, set, m)

	// b2 = P + E residues; y1 = E residue + water.
	b2 := find(frags, SeriesB, 2, 1)
	if len(b2) != 1 {
		t.Fatalf("got %d b2 fragments, want 1", len(b2))
	}
	approx(t, b2[0].MonoMass, 226.095357, 1e-4, "b2 neutral mass")
	approx(t, b2[0].MZ(), 227.102633, 1e-4, "b2 m/z")

	y1 := find(frags, SeriesY, 1, 1)
	if len(y1) != 1 {
		t.Fatalf("got %d y1 fragments, want 1", len(y1))
	}
	approx(t, y1[0].MonoMass, 147.053158, 1e-4, "y1 neutral mass")
}

// Complementary b/y pairs must reconstruct the peptidoform neutral mass.
func TestComplementaryPairs(t *testing.T) {
	set := mustParse(t, "EM[Oxidation]EVEESPEK")
	pf := set.Peptidoforms[0]
	n := pf.ResidueCount()
	m := Default()
	m.MaxCharge = 1
	frags := mustGenerate(t, set, m)

	for k := 1; k < n; k++ {
		b := find(frags, SeriesB, k, 1)
		y := find(frags, SeriesY, n-k, 1)
		if len(b) != 1 || len(y) != 1 {
			t.Fatalf("split %d: got %d b and %d y fragments", k, len(b), len(y))
		}
		approx(t, b[0].MonoMass+y[0].MonoMass, pf.NeutralMono(), 1e-6, "b+y sum")
	}
}

func TestSeriesOffsets(t *testing.T) {
	set := mustParse(t, "PEPTIDE")
	m := Model{
		Series:             SeriesSet{A: true, B: true, C: true, X: true, Y: true, Z: true},
		MaxCharge:          1,
		CombinatorialLimit: 512,
	}
	frags := mustGenerate(t, set, m)

	b2 := find(frags, SeriesB, 2, 1)[0]
	a2 := find(frags, SeriesA, 2, 1)[0]
	c2 := find(frags, SeriesC, 2, 1)[0]
	approx(t, b2.MonoMass-a2.MonoMass, 27.994915, 1e-4, "b-a offset (CO)")
	approx(t, c2.MonoMass-b2.MonoMass, 17.026549, 1e-4, "c-b offset (NH3)")

	y3 := find(frags, SeriesY, 3, 1)[0]
	x3 := find(frags, SeriesX, 3, 1)[0]
	z3 := find(frags, SeriesZ, 3, 1)[0]
	approx(t, x3.MonoMass-y3.MonoMass, 25.979265, 1e-4, "x-y offset (CO-H2)")
	// z-dot: y - NH3 + H.
	approx(t, y3.MonoMass-z3.MonoMass, 16.018724, 1e-4, "y-z offset")
}

func TestChargeExpansion(t *testing.T) {
	set := mustParse(t, "PEPTIDE")
	frags := mustGenerate(t, set, Default())
	if got := len(find(frags, SeriesY, 3, 1)); got != 1 {
		t.Errorf("got %d y3^1 fragments, want 1", got)
	}
	if got := len(find(frags, SeriesY, 3, 2)); got != 1 {
		t.Errorf("got %d y3^2 fragments, want 1", got)
	}

	// A declared precursor charge caps expansion.
	capped := mustGenerate(t, mustParse(t, "PEPTIDE/1"), Default())
	if got := len(find(capped, SeriesY, 3, 2)); got != 0 {
		t.Errorf("got %d y3^2 fragments for a 1+ precursor, want 0", got)
	}
}

func TestAmbiguousPlacementVariants(t *testing.T) {
	set := mustParse(t, "PES[Phospho#g1]T[#g1]K")
	m := Default()
	m.MaxCharge = 1
	frags := mustGenerate(t, set, m)

	// b2 covers neither candidate: a single variant.
	if got := len(find(frags, SeriesB, 2, 1)); got != 1 {
		t.Errorf("got %d b2 variants, want 1", got)
	}
	// b3 covers position 3 (S) but not 4 (T): one variant per candidate.
	b3 := find(frags, SeriesB, 3, 1)
	if len(b3) != 2 {
		t.Fatalf("got %d b3 variants, want 2", len(b3))
	}
	diff := math.Abs(b3[0].MonoMass - b3[1].MonoMass)
	approx(t, diff, 79.966331, 1e-4, "b3 variant mass difference")
	if b3[0].Placement == b3[1].Placement {
		t.Errorf("b3 variants share placement label %q", b3[0].Placement)
	}
	// b4 covers both candidates: still one variant per candidate, equal
	// masses, distinct placements.
	b4 := find(frags, SeriesB, 4, 1)
	if len(b4) != 2 {
		t.Fatalf("got %d b4 variants, want 2", len(b4))
	}
	approx(t, b4[0].MonoMass, b4[1].MonoMass, 1e-9, "b4 variant masses")
}

func TestCombinatorialLimit(t *testing.T) {
	set := mustParse(t, "PES[Phospho#g1]T[#g1]S[#g1]K")
	m := Default()
	m.CombinatorialLimit = 2
	_, err := Generate(set, m)
	var limitErr *CombinatorialLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("got error %v, want CombinatorialLimitError", err)
	}
	if limitErr.Limit != 2 || limitErr.Required != 3 {
		t.Errorf("got limit %d required %d, want 2 and 3", limitErr.Limit, limitErr.Required)
	}
}

func TestUnknownPositionSmear(t *testing.T) {
	set := mustParse(t, "[Phospho]?PESTIK")
	m := Default()
	m.MaxCharge = 1
	m.Precursor = true
	frags := mustGenerate(t, set, m)

	// Backbone fragments never cover the whole sequence, so none carries
	// the unplaced phospho mass and none is duplicated.
	b5 := find(frags, SeriesB, 5, 1)
	if len(b5) != 1 {
		t.Fatalf("got %d b5 variants, want 1", len(b5))
	}
	approx(t, b5[0].MonoMass, 527.259128, 1e-3, "b5 without unplaced phospho")

	// The precursor carries it.
	pre := find(frags, SeriesPrecursor, 0, 1)
	if len(pre) != 1 {
		t.Fatalf("got %d precursor fragments, want 1", len(pre))
	}
	approx(t, pre[0].MonoMass, set.Peptidoforms[0].NeutralMono(), 1e-9, "precursor mass")
}

func TestNeutralLosses(t *testing.T) {
	set := mustParse(t, "PEGTK")
	m := Default()
	m.MaxCharge = 1
	m.NeutralLosses = []NeutralLoss{{Name: "H2O", Formula: "H2O", Residues: "ST"}}
	frags := mustGenerate(t, set, m)

	// y2 = TK contains T: base ion plus the water-loss variant.
	y2 := find(frags, SeriesY, 2, 1)
	if len(y2) != 2 {
		t.Fatalf("got %d y2 variants, want 2", len(y2))
	}
	approx(t, y2[0].MonoMass-y2[1].MonoMass, 18.010565, 1e-4, "water loss offset")
	if y2[1].NeutralLoss != "H2O" {
		t.Errorf("loss variant labeled %q, want H2O", y2[1].NeutralLoss)
	}
	// y1 = K does not trigger the loss.
	if got := len(find(frags, SeriesY, 1, 1)); got != 1 {
		t.Errorf("got %d y1 variants, want 1", got)
	}
}

func TestSatelliteIons(t *testing.T) {
	set := mustParse(t, "PALK")
	m := Model{
		Satellite:          SatelliteSet{W: true, D: true, V: true},
		MaxCharge:          1,
		CombinatorialLimit: 512,
	}
	frags := mustGenerate(t, set, m)

	// Alanine has no side chain beyond the beta carbon, so no d2.
	if got := len(find(frags, SeriesD, 2, 1)); got != 0 {
		t.Fatalf("got %d d2 fragments for an alanine cleavage, want 0", got)
	}
	d3 := find(frags, SeriesD, 3, 1)
	if len(d3) != 1 {
		t.Fatalf("got %d d3 fragments, want 1", len(d3))
	}
	// a3 = P+A+L - CO; d3 = a3 minus the leucine cleavage (C3H7).
	a3 := 97.052764 + 71.037114 + 113.084064 - 27.994915
	approx(t, d3[0].MonoMass, a3-43.054775, 1e-3, "d3 mass")

	// v ions replace the side chain of the first suffix residue.
	v2 := find(frags, SeriesV, 2, 1)
	if len(v2) != 1 {
		t.Fatalf("got %d v2 fragments, want 1", len(v2))
	}
	// y2 with leucine reduced to glycine.
	y2 := 113.084064 + 128.094963 + 18.010565
	approx(t, v2[0].MonoMass, y2-57.070425+1.007825, 1e-3, "v2 mass")
}

func TestCrossLinkVariants(t *testing.T) {
	set := mustParse(t, "PEK[XL:DSS#XL1]TIDE//AK[#XL1]A")
	m := Default()
	m.MaxCharge = 1
	m.CrossLinkFragments = true
	frags := mustGenerate(t, set, m)

	// y5 of the first member covers the linked K: cleaved plus retained.
	var y5 []Fragment
	for _, f := range frags {
		if f.Peptidoform == 0 && f.Series == SeriesY && f.Index == 5 {
			y5 = append(y5, f)
		}
	}
	if len(y5) != 2 {
		t.Fatalf("got %d y5 variants, want 2", len(y5))
	}
	var cleaved, retained *Fragment
	for i := range y5 {
		if y5[i].Retained {
			retained = &y5[i]
		} else {
			cleaved = &y5[i]
		}
	}
	if cleaved == nil || retained == nil {
		t.Fatal("missing cleaved or retained y5 variant")
	}
	partner := set.Peptidoforms[1].NeutralMono()
	approx(t, retained.MonoMass-cleaved.MonoMass, 138.068080+partner, 1e-3, "retained offset")
	if cleaved.CrossLink != "XL1" || retained.CrossLink != "XL1" {
		t.Errorf("cross-link labels %q / %q, want XL1", cleaved.CrossLink, retained.CrossLink)
	}

	// y4 does not cover the endpoint: one plain variant.
	var y4 int
	for _, f := range frags {
		if f.Peptidoform == 0 && f.Series == SeriesY && f.Index == 4 {
			y4++
		}
	}
	if y4 != 1 {
		t.Errorf("got %d y4 variants, want 1", y4)
	}
}

func TestGlycanIons(t *testing.T) {
	set := mustParse(t, "PEN[Glycan:HexNAc2]TIDE")
	pf := set.Peptidoforms[0]
	m := Default()
	m.MaxCharge = 1
	m.Glycan = GlycanSet{B: true, Y: true}
	frags := mustGenerate(t, set, m)

	var bIons, yIons []Fragment
	for _, f := range frags {
		switch f.Series {
		case SeriesGlycanB:
			bIons = append(bIons, f)
		case SeriesGlycanY:
			yIons = append(yIons, f)
		}
	}
	// HexNAc2 has sub-compositions {2, 1, 0}: B for sizes 2 and 1,
	// Y for sizes 1 and 0.
	if len(bIons) != 2 || len(yIons) != 2 {
		t.Fatalf("got %d B and %d Y ions, want 2 and 2", len(bIons), len(yIons))
	}
	approx(t, bIons[0].MonoMass, 406.158745, 1e-3, "B:HexNAc2")
	approx(t, bIons[1].MonoMass, 203.079373, 1e-3, "B:HexNAc1")
	approx(t, yIons[1].MonoMass, pf.NeutralMono()-406.158745, 1e-3, "Y0")
}

func TestGlycanNeutralLosses(t *testing.T) {
	set := mustParse(t, "SEN[Glycan:HexNAc2]TK")
	m := HCD()
	m.MaxCharge = 1
	frags := mustGenerate(t, set, m)

	// The asparagine at the glycosylation site triggers the ammonia loss on
	// B ions.
	var bFull, bFullLoss *Fragment
	for i := range frags {
		f := &frags[i]
		if f.Series != SeriesGlycanB || f.GlycanKey != "HexNAc2" {
			continue
		}
		switch f.NeutralLoss {
		case "":
			bFull = f
		case "NH3":
			bFullLoss = f
		}
	}
	if bFull == nil || bFullLoss == nil {
		t.Fatal("missing B:HexNAc2 base or NH3-loss variant")
	}
	approx(t, bFull.MonoMass-bFullLoss.MonoMass, 17.026549, 1e-4, "B ammonia loss offset")

	// Y ions retain the backbone, so the S/T water loss applies.
	var y0, y0Loss *Fragment
	for i := range frags {
		f := &frags[i]
		if f.Series != SeriesGlycanY || f.GlycanKey != "" {
			continue
		}
		switch f.NeutralLoss {
		case "":
			y0 = f
		case "H2O":
			y0Loss = f
		}
	}
	if y0 == nil || y0Loss == nil {
		t.Fatal("missing Y0 base or H2O-loss variant")
	}
	approx(t, y0.MonoMass-y0Loss.MonoMass, 18.010565, 1e-4, "Y water loss offset")
}

func TestSubsetEnumerationGuard(t *testing.T) {
	// An any-subset group with more candidate positions than the choice
	// count can represent must fail with a saturated requirement, not wrap.
	pf := &core.Peptidoform{}
	positions := make([]int, 31)
	for i := range positions {
		pf.Residues = append(pf.Residues, core.Residue{AminoAcid: 'S'})
		positions[i] = i
	}
	pf.Residues = append(pf.Residues, core.Residue{AminoAcid: 'K'})
	pf.Ambiguous = append(pf.Ambiguous, core.AmbiguousGroup{
		ID:           "g1",
		Modification: core.MassModification(79.966331),
		Positions:    positions,
	})
	set := &core.PeptidoformSet{Peptidoforms: []*core.Peptidoform{pf}}

	_, err := Generate(set, Default())
	var limitErr *CombinatorialLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("got error %v, want CombinatorialLimitError", err)
	}
	if limitErr.Required != math.MaxInt {
		t.Errorf("Required = %d, want math.MaxInt", limitErr.Required)
	}
}

func TestZeroSeriesModel(t *testing.T) {
	set := mustParse(t, "PEPTIDE")
	m := Model{MaxCharge: 2, CombinatorialLimit: 512}
	frags := mustGenerate(t, set, m)
	if len(frags) != 0 {
		t.Errorf("got %d fragments for an empty model, want 0", len(frags))
	}
}

func TestDeterminism(t *testing.T) {
	set := mustParse(t, "PES[Phospho#g1]T[#g1]N[Glycan:HexNAc2Hex3]K")
	m := HCD()
	first := mustGenerate(t, set, m)
	second := mustGenerate(t, set, m)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("generation is not deterministic (-first +second):\n%s", diff)
	}
}

func TestChimericSetFragments(t *testing.T) {
	set := mustParse(t, "PEPTIDE/2+ANTHER/2")
	m := Default()
	m.MaxCharge = 1
	frags := mustGenerate(t, set, m)
	seen := map[int]bool{}
	for _, f := range frags {
		seen[f.Peptidoform] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("fragments missing for a set member: %v", seen)
	}
}

func TestAnnotation(t *testing.T) {
	cases := []struct {
		frag Fragment
		want string
	}{
		{Fragment{Series: SeriesY, Index: 3, Charge: 1}, "y3"},
		{Fragment{Series: SeriesY, Index: 3, Charge: 2}, "y3^2"},
		{Fragment{Series: SeriesB, Index: 2, Charge: 1, NeutralLoss: "H2O"}, "b2-H2O"},
		{Fragment{Series: SeriesGlycanB, GlycanKey: "HexNAc1", Charge: 1}, "B:HexNAc1"},
		{Fragment{Series: SeriesGlycanY, GlycanKey: "", Charge: 1}, "Y:0"},
		{Fragment{Series: SeriesPrecursor, Charge: 2}, "M^2"},
		{Fragment{Series: SeriesY, Index: 5, Charge: 1, CrossLink: "XL1", Retained: true}, "y5+XL1"},
	}
	for _, c := range cases {
		if got := c.frag.Annotation(); got != c.want {
			t.Errorf("Annotation() = %q, want %q", got, c.want)
		}
	}
}
