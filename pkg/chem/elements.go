// Package chem provides the chemical reference tables and formula arithmetic
// used for peptide and glycan mass calculations. All tables are read-only
// after package initialization and safe for concurrent use.
package chem

import (
	"fmt"
	"sort"
	"strings"
)

// Fundamental masses (Da).
const (
	ProtonMass   = 1.00727646688
	ElectronMass = 0.00054857990924
)

// ElementMass holds the monoisotopic and average mass of an element.
type ElementMass struct {
	Mono float64
	Avg  float64
}

// Elements maps element symbols to their masses. Monoisotopic values are the
// most abundant isotope; average values are standard atomic weights.
var Elements = map[string]ElementMass{
	"H":  {1.00782503207, 1.00794},
	"C":  {12.0000000000, 12.0107},
	"N":  {14.0030740048, 14.0067},
	"O":  {15.9949146196, 15.9994},
	"S":  {31.9720710015, 32.065},
	"P":  {30.9737616320, 30.973762},
	"Se": {79.9165213000, 78.971},
	"Na": {22.9897692809, 22.989769},
	"K":  {38.9637066800, 39.0983},
	"Cl": {34.9688526800, 35.453},
	"F":  {18.9984032200, 18.998403},
	"Fe": {55.9349375000, 55.845},
	"I":  {126.904473000, 126.90447},
	"Li": {7.01600455000, 6.941},
	"Mg": {23.9850417000, 24.305},
	"Ca": {39.9625909800, 40.078},
	"Zn": {63.9291422000, 65.38},
	"Cu": {62.9295975000, 63.546},
}

// Common composite masses (monoisotopic).
var (
	WaterMono   = 2*Elements["H"].Mono + Elements["O"].Mono
	WaterAvg    = 2*Elements["H"].Avg + Elements["O"].Avg
	AmmoniaMono = Elements["N"].Mono + 3*Elements["H"].Mono
	COMono      = Elements["C"].Mono + Elements["O"].Mono
)

// Formula is an elemental composition, element symbol to count. Negative
// counts are legal and express net losses (e.g. Deamidated is H-1 N-1 O1).
type Formula map[string]int

// Add returns the sum of two formulas without mutating either.
func (f Formula) Add(other Formula) Formula {
	out := make(Formula, len(f)+len(other))
	for el, n := range f {
		out[el] = n
	}
	for el, n := range other {
		out[el] += n
	}
	return out
}

// Sub returns f minus other.
func (f Formula) Sub(other Formula) Formula {
	out := make(Formula, len(f)+len(other))
	for el, n := range f {
		out[el] = n
	}
	for el, n := range other {
		out[el] -= n
	}
	return out
}

// Scale returns f with every count multiplied by n.
func (f Formula) Scale(n int) Formula {
	out := make(Formula, len(f))
	for el, c := range f {
		out[el] = c * n
	}
	return out
}

// sortedElements returns the formula's element symbols in sorted order.
// Summation must follow a fixed order: float addition is not associative,
// and map iteration order would make the last ulp vary between calls.
func (f Formula) sortedElements() []string {
	els := make([]string, 0, len(f))
	for el := range f {
		els = append(els, el)
	}
	sort.Strings(els)
	return els
}

// Mono returns the monoisotopic mass of the formula. Elements missing from
// the reference table contribute zero; ParseFormula rejects them up front.
func (f Formula) Mono() float64 {
	mass := 0.0
	for _, el := range f.sortedElements() {
		mass += float64(f[el]) * Elements[el].Mono
	}
	return mass
}

// Avg returns the average mass of the formula.
func (f Formula) Avg() float64 {
	mass := 0.0
	for _, el := range f.sortedElements() {
		mass += float64(f[el]) * Elements[el].Avg
	}
	return mass
}

// IsEmpty reports whether every count is zero.
func (f Formula) IsEmpty() bool {
	for _, n := range f {
		if n != 0 {
			return false
		}
	}
	return true
}

// String renders the formula in Hill-ish order: C, H, then the remaining
// elements alphabetically. Counts of one are written explicitly so the
// output survives re-parsing unambiguously.
func (f Formula) String() string {
	var sb strings.Builder
	write := func(el string) {
		if n, ok := f[el]; ok && n != 0 {
			fmt.Fprintf(&sb, "%s%d", el, n)
		}
	}
	write("C")
	write("H")
	rest := make([]string, 0, len(f))
	for el := range f {
		if el != "C" && el != "H" {
			rest = append(rest, el)
		}
	}
	sort.Strings(rest)
	for _, el := range rest {
		write(el)
	}
	return sb.String()
}

// ParseFormula parses a formula string such as "C2H3NO" or "C-1H-2O1".
// An element symbol is one uppercase letter optionally followed by one
// lowercase letter; a count is an optional signed integer defaulting to 1.
func ParseFormula(s string) (Formula, error) {
	f := make(Formula)
	i := 0
	for i < len(s) {
		c := s[i]
		if c < 'A' || c > 'Z' {
			return nil, fmt.Errorf("invalid formula %q: expected element symbol at offset %d", s, i)
		}
		el := string(c)
		i++
		if i < len(s) && s[i] >= 'a' && s[i] <= 'z' {
			el += string(s[i])
			i++
		}
		if _, ok := Elements[el]; !ok {
			return nil, fmt.Errorf("invalid formula %q: unknown element %q", s, el)
		}
		start := i
		if i < len(s) && (s[i] == '-' || s[i] == '+') {
			i++
		}
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		count := 1
		if i > start {
			n := 0
			neg := false
			j := start
			if s[j] == '-' {
				neg = true
				j++
			} else if s[j] == '+' {
				j++
			}
			if j == i {
				return nil, fmt.Errorf("invalid formula %q: dangling sign at offset %d", s, start)
			}
			for ; j < i; j++ {
				n = n*10 + int(s[j]-'0')
			}
			if neg {
				n = -n
			}
			count = n
		}
		f[el] += count
	}
	if len(f) == 0 {
		return nil, fmt.Errorf("invalid formula %q: empty", s)
	}
	return f, nil
}
