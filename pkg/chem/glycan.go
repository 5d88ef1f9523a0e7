package chem

import (
	"fmt"
	"sort"
	"strings"
)

// monosaccharides maps canonical monosaccharide names to their residue
// compositions (the dehydrated, in-chain form).
var monosaccharides = map[string]Formula{
	"Hex":    {"C": 6, "H": 10, "O": 5},
	"HexNAc": {"C": 8, "H": 13, "N": 1, "O": 5},
	"dHex":   {"C": 6, "H": 10, "O": 4},
	"NeuAc":  {"C": 11, "H": 17, "N": 1, "O": 8},
	"NeuGc":  {"C": 11, "H": 17, "N": 1, "O": 9},
	"Pen":    {"C": 5, "H": 8, "O": 4},
	"HexA":   {"C": 6, "H": 8, "O": 6},
	"HexN":   {"C": 6, "H": 11, "N": 1, "O": 4},
}

// monosaccharideAliases maps accepted spellings to canonical names.
var monosaccharideAliases = map[string]string{
	"Fuc":    "dHex",
	"Pent":   "Pen",
	"Neu5Ac": "NeuAc",
	"Neu5Gc": "NeuGc",
	"HexNac": "HexNAc",
}

// MonosaccharideFormula resolves a monosaccharide name (canonical or alias)
// to its canonical name and composition.
func MonosaccharideFormula(name string) (string, Formula, bool) {
	if canonical, ok := monosaccharideAliases[name]; ok {
		name = canonical
	}
	f, ok := monosaccharides[name]
	return name, f, ok
}

// Composition is a structureless glycan: monosaccharide name to count.
// Counts may be negative in modification contexts (net sugar losses).
type Composition map[string]int

// sortedNames returns the composition's monosaccharide names in sorted
// order. Summation follows a fixed order so repeated calls yield bitwise
// identical masses.
func (c Composition) sortedNames() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mono returns the monoisotopic mass of the composition.
func (c Composition) Mono() float64 {
	mass := 0.0
	for _, name := range c.sortedNames() {
		mass += float64(c[name]) * monosaccharides[name].Mono()
	}
	return mass
}

// Avg returns the average mass of the composition.
func (c Composition) Avg() float64 {
	mass := 0.0
	for _, name := range c.sortedNames() {
		mass += float64(c[name]) * monosaccharides[name].Avg()
	}
	return mass
}

// Size returns the total number of monosaccharide units.
func (c Composition) Size() int {
	n := 0
	for _, count := range c {
		n += count
	}
	return n
}

// Clone returns an independent copy.
func (c Composition) Clone() Composition {
	out := make(Composition, len(c))
	for name, n := range c {
		out[name] = n
	}
	return out
}

// Key returns a deterministic string form (names sorted alphabetically),
// usable as a map key and as the serialized ProForma spelling.
func (c Composition) Key() string {
	names := make([]string, 0, len(c))
	for name, n := range c {
		if n != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s%d", name, c[name])
	}
	return sb.String()
}

// ParseComposition parses a glycan composition such as "HexNAc2Hex3" or
// "Hex 2 HexNAc" (spaces tolerated, count defaults to 1).
func ParseComposition(s string) (Composition, error) {
	c := make(Composition)
	i := 0
	for i < len(s) {
		if s[i] == ' ' {
			i++
			continue
		}
		// Longest-match against known names and aliases.
		name := ""
		for candidate := range monosaccharides {
			if strings.HasPrefix(s[i:], candidate) && len(candidate) > len(name) {
				name = candidate
			}
		}
		for alias := range monosaccharideAliases {
			if strings.HasPrefix(s[i:], alias) && len(alias) > len(name) {
				name = alias
			}
		}
		if name == "" {
			return nil, fmt.Errorf("invalid glycan composition %q: unknown monosaccharide at offset %d", s, i)
		}
		i += len(name)
		if canonical, ok := monosaccharideAliases[name]; ok {
			name = canonical
		}
		start := i
		if i < len(s) && s[i] == '-' {
			i++
		}
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		count := 1
		if i > start {
			n := 0
			j := start
			neg := s[j] == '-'
			if neg {
				j++
			}
			if j == i {
				return nil, fmt.Errorf("invalid glycan composition %q: dangling sign at offset %d", s, start)
			}
			for ; j < i; j++ {
				n = n*10 + int(s[j]-'0')
			}
			if neg {
				n = -n
			}
			count = n
		}
		c[name] += count
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("invalid glycan composition %q: empty", s)
	}
	return c, nil
}
