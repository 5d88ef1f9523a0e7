package core

import (
	"fmt"
	"strings"

	"github.com/mjhoffman/profrag/pkg/chem"
)

// Residue is one sequence position: an amino acid with its fixed
// modifications. Positions are stable 0-based indices used by all
// cross-references (ambiguous groups, cross-links).
type Residue struct {
	AminoAcid     byte
	Modifications []Modification
}

// ChargeCarrier is one adduct species contributing charge, e.g. 2 protons
// or a sodium cation. Count scales the contribution.
type ChargeCarrier struct {
	Formula chem.Formula
	Charge  int
	Count   int
}

// Proton returns the default charge carrier: n protons.
func Proton(n int) ChargeCarrier {
	return ChargeCarrier{Formula: chem.Formula{"H": 1}, Charge: 1, Count: n}
}

// GlobalModification is a fixed modification applied to every residue
// matching one of the target amino acids, or to a terminus.
type GlobalModification struct {
	Modification Modification
	Targets      []byte // amino acid codes; empty when terminal
	NTerm, CTerm bool
}

// AmbiguousGroup is a modification whose residue position is not determined,
// localized to a set of candidate positions.
type AmbiguousGroup struct {
	ID           string
	Modification Modification
	Positions    []int     // candidate residue positions, ascending
	Scores       []float64 // optional localization scores, parallel to Positions
	ExactlyOne   bool      // true: exactly one position carries the modification
	Unknown      bool      // true: declared with unknown position over the whole sequence
}

// CrossLinkEndpoint addresses one residue inside a PeptidoformSet.
type CrossLinkEndpoint struct {
	Peptidoform int
	Position    int
}

// CrossLink is a covalent bond between two residues, possibly in different
// peptidoforms of the same set. The linker mass contribution is counted once.
type CrossLink struct {
	Name      string
	Endpoints [2]CrossLinkEndpoint
	Linker    Modification
}

// Intra reports whether both endpoints are in the same peptidoform.
func (c CrossLink) Intra() bool {
	return c.Endpoints[0].Peptidoform == c.Endpoints[1].Peptidoform
}

// Peptidoform is an ordered residue sequence with attached modifications,
// terminal modifications, ambiguous groups, cross-link references, and
// charge carriers. After it is handed to the fragmentation engine it must be
// treated as immutable for the duration of that call.
type Peptidoform struct {
	Residues       []Residue
	NTerm, CTerm   []Modification
	Globals        []GlobalModification
	Ambiguous      []AmbiguousGroup
	ChargeCarriers []ChargeCarrier
	CrossLinkRefs  []int // indices into the owning set's CrossLinks arena
}

// ResidueCount returns the number of residues.
func (p *Peptidoform) ResidueCount() int {
	return len(p.Residues)
}

// Sequence returns the bare amino acid sequence.
func (p *Peptidoform) Sequence() string {
	var sb strings.Builder
	sb.Grow(len(p.Residues))
	for _, r := range p.Residues {
		sb.WriteByte(r.AminoAcid)
	}
	return sb.String()
}

// ModificationsAt returns the fixed modifications at a residue position,
// including matching global modifications. Ambiguous groups are not
// resolved here; placement enumeration belongs to the fragmentation engine.
func (p *Peptidoform) ModificationsAt(pos int) []Modification {
	if pos < 0 || pos >= len(p.Residues) {
		return nil
	}
	r := p.Residues[pos]
	mods := make([]Modification, 0, len(r.Modifications))
	mods = append(mods, r.Modifications...)
	for _, g := range p.Globals {
		for _, target := range g.Targets {
			if target == r.AminoAcid {
				mods = append(mods, g.Modification)
				break
			}
		}
	}
	return mods
}

// TotalCharge returns the net charge of the declared charge carriers, or 0
// when none are declared.
func (p *Peptidoform) TotalCharge() int {
	total := 0
	for _, c := range p.ChargeCarriers {
		total += c.Charge * c.Count
	}
	return total
}

// NeutralMono returns the neutral monoisotopic mass: residues plus one water
// plus terminal, fixed, global, and ambiguous-group modifications. Each
// ambiguous group contributes its mass exactly once regardless of placement.
func (p *Peptidoform) NeutralMono() float64 {
	return p.neutralMass(true)
}

// NeutralAvg returns the neutral average mass, with the same bookkeeping as
// NeutralMono.
func (p *Peptidoform) NeutralAvg() float64 {
	return p.neutralMass(false)
}

func (p *Peptidoform) neutralMass(mono bool) float64 {
	pick := func(m Modification) float64 {
		if mono {
			return m.Mono
		}
		return m.Avg
	}
	mass := 0.0
	if mono {
		mass = chem.WaterMono
	} else {
		mass = chem.WaterAvg
	}
	for i, r := range p.Residues {
		if mono {
			m, _ := chem.AminoAcidMono(r.AminoAcid)
			mass += m
		} else {
			m, _ := chem.AminoAcidAvg(r.AminoAcid)
			mass += m
		}
		for _, m := range p.ModificationsAt(i) {
			mass += pick(m)
		}
	}
	for _, m := range p.NTerm {
		mass += pick(m)
	}
	for _, m := range p.CTerm {
		mass += pick(m)
	}
	for _, g := range p.Globals {
		if g.NTerm || g.CTerm {
			mass += pick(g.Modification)
		}
	}
	for _, g := range p.Ambiguous {
		mass += pick(g.Modification)
	}
	return mass
}

// Validate checks structural invariants. A peptidoform with no residues is
// invalid, and every cross-reference must point at an existing residue.
func (p *Peptidoform) Validate() error {
	var errs []string
	if len(p.Residues) == 0 {
		errs = append(errs, "peptidoform has no residues")
	}
	for _, r := range p.Residues {
		if !chem.IsAminoAcid(r.AminoAcid) {
			errs = append(errs, fmt.Sprintf("unknown residue %q", string(r.AminoAcid)))
		}
	}
	for _, g := range p.Ambiguous {
		if len(g.Positions) == 0 && !g.Unknown {
			errs = append(errs, fmt.Sprintf("ambiguous group %q has no candidate positions", g.ID))
		}
		if g.Scores != nil && len(g.Scores) != len(g.Positions) {
			errs = append(errs, fmt.Sprintf("ambiguous group %q has %d scores for %d positions", g.ID, len(g.Scores), len(g.Positions)))
		}
		for _, pos := range g.Positions {
			if pos < 0 || pos >= len(p.Residues) {
				errs = append(errs, fmt.Sprintf("ambiguous group %q references position %d outside the sequence", g.ID, pos))
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Field: "Peptidoform", Message: strings.Join(errs, "; ")}
	}
	return nil
}

// PeptidoformSet is an ordered sequence of peptidoforms explaining one
// spectrum: either a chimeric mix of co-eluting peptidoforms or a
// cross-linked pair. Cross-links are stored in one arena and referenced by
// index to avoid ownership cycles.
type PeptidoformSet struct {
	Peptidoforms []*Peptidoform
	CrossLinks   []CrossLink
}

// CrossLinksFor returns the cross-links touching the peptidoform at index i.
func (s *PeptidoformSet) CrossLinksFor(i int) []CrossLink {
	var out []CrossLink
	for _, xl := range s.CrossLinks {
		if xl.Endpoints[0].Peptidoform == i || xl.Endpoints[1].Peptidoform == i {
			out = append(out, xl)
		}
	}
	return out
}

// NeutralMono returns the combined neutral monoisotopic mass of the set,
// including cross-linker contributions (counted once per link).
func (s *PeptidoformSet) NeutralMono() float64 {
	mass := 0.0
	for _, p := range s.Peptidoforms {
		mass += p.NeutralMono()
	}
	for _, xl := range s.CrossLinks {
		mass += xl.Linker.Mono
	}
	return mass
}

// Validate checks the set and every member peptidoform.
func (s *PeptidoformSet) Validate() error {
	var errs []string
	if len(s.Peptidoforms) == 0 {
		errs = append(errs, "set has no peptidoforms")
	}
	for i, p := range s.Peptidoforms {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("peptidoform %d: %v", i, err))
		}
	}
	for _, xl := range s.CrossLinks {
		for _, ep := range xl.Endpoints {
			if ep.Peptidoform < 0 || ep.Peptidoform >= len(s.Peptidoforms) {
				errs = append(errs, fmt.Sprintf("cross-link %q references peptidoform %d outside the set", xl.Name, ep.Peptidoform))
				continue
			}
			if ep.Position < 0 || ep.Position >= len(s.Peptidoforms[ep.Peptidoform].Residues) {
				errs = append(errs, fmt.Sprintf("cross-link %q references position %d outside peptidoform %d", xl.Name, ep.Position, ep.Peptidoform))
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Field: "PeptidoformSet", Message: strings.Join(errs, "; ")}
	}
	return nil
}
