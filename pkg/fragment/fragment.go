package fragment

import (
	"strconv"
	"strings"

	"github.com/mjhoffman/profrag/pkg/chem"
)

// Series identifies an ion series.
type Series string

const (
	SeriesA Series = "a"
	SeriesB Series = "b"
	SeriesC Series = "c"
	SeriesX Series = "x"
	SeriesY Series = "y"
	SeriesZ Series = "z" // generated as the z-dot radical (z+1)
	SeriesD Series = "d"
	SeriesV Series = "v"
	SeriesW Series = "w"

	SeriesGlycanB  Series = "B"
	SeriesGlycanY  Series = "GY"
	SeriesInternal Series = "internal"

	SeriesPrecursor Series = "precursor"
)

// nTerminal reports whether the series keeps the N-terminal side of the
// backbone cleavage.
func (s Series) nTerminal() bool {
	switch s {
	case SeriesA, SeriesB, SeriesC, SeriesD:
		return true
	}
	return false
}

// Fragment is one theoretical product ion. MonoMass and AvgMass are neutral;
// the observable m/z follows from the charge.
type Fragment struct {
	Series Series
	// Index is the conventional series number (b2, y3). Zero for glycan
	// and precursor ions.
	Index int
	// Start and End bound the residue range [Start, End) retained by the
	// fragment. For glycan ions the range is the attachment residue.
	Start, End int
	// Peptidoform indexes the member of the set this fragment came from.
	Peptidoform int

	Charge   int
	MonoMass float64
	AvgMass  float64

	// Placement labels the ambiguous-group placement this variant assumes,
	// e.g. "g1@3". Empty when the fragment is placement-independent.
	Placement string
	// NeutralLoss names the applied loss rule, e.g. "H2O". Empty when none.
	NeutralLoss string
	// GlycanKey is the retained sub-composition for glycan series.
	GlycanKey string
	// CrossLink names the cross-link a variant accounts for; Retained
	// distinguishes the linker-plus-partner form from the cleaved form.
	CrossLink string
	Retained  bool
}

// MZ returns the mass-to-charge ratio under the protonation model.
func (f Fragment) MZ() float64 {
	z := float64(f.Charge)
	return (f.MonoMass + z*chem.ProtonMass) / z
}

// Annotation renders the conventional short label, e.g. "y3", "b2^2",
// "y5-H2O", "B:HexNAc1", "M^2".
func (f Fragment) Annotation() string {
	var sb strings.Builder
	key := f.GlycanKey
	if key == "" {
		key = "0"
	}
	switch f.Series {
	case SeriesPrecursor:
		sb.WriteString("M")
	case SeriesGlycanB:
		sb.WriteString("B:")
		sb.WriteString(key)
	case SeriesGlycanY:
		sb.WriteString("Y:")
		sb.WriteString(key)
	case SeriesInternal:
		sb.WriteString("BY:")
		sb.WriteString(key)
	default:
		sb.WriteString(string(f.Series))
		sb.WriteString(strconv.Itoa(f.Index))
	}
	if f.NeutralLoss != "" {
		sb.WriteString("-")
		sb.WriteString(f.NeutralLoss)
	}
	if f.CrossLink != "" {
		if f.Retained {
			sb.WriteString("+")
		} else {
			sb.WriteString("~")
		}
		sb.WriteString(f.CrossLink)
	}
	if f.Charge > 1 {
		sb.WriteString("^")
		sb.WriteString(strconv.Itoa(f.Charge))
	}
	return sb.String()
}
