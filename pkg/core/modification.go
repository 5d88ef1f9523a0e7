// Package core provides the peptidoform representation shared by the
// ProForma parser, the fragmentation engine, and the spectrum matcher.
package core

import (
	"fmt"

	"github.com/mjhoffman/profrag/pkg/chem"
)

// ModificationKind tags the closed set of modification variants.
type ModificationKind int

const (
	// ModMass is a plain mass offset, e.g. [+79.966].
	ModMass ModificationKind = iota
	// ModFormula is a chemical formula, e.g. [Formula:C2H3NO].
	ModFormula
	// ModNamed is a named modification resolved against a ModDatabase.
	ModNamed
	// ModGlycan is a structureless glycan composition, e.g. [Glycan:HexNAc2Hex3].
	ModGlycan
)

// Modification is one chemical modification attached to a residue, a
// terminus, or an ambiguous group. Every constructed value resolves to a
// deterministic monoisotopic and average mass.
type Modification struct {
	Kind    ModificationKind
	Name    string           // database name; empty for anonymous variants
	Mono    float64          // resolved monoisotopic mass
	Avg     float64          // resolved average mass
	Formula chem.Formula     // set for ModFormula, and ModNamed when known
	Glycan  chem.Composition // set for ModGlycan
}

// UnresolvedMassError reports a database modification whose name is not
// present in the modification database.
type UnresolvedMassError struct {
	Name string
}

func (e *UnresolvedMassError) Error() string {
	return fmt.Sprintf("unresolved modification mass: unknown name %q", e.Name)
}

// MassModification builds a plain mass-offset modification. Without a
// formula the average mass is taken equal to the monoisotopic one.
func MassModification(mono float64) Modification {
	return Modification{Kind: ModMass, Mono: mono, Avg: mono}
}

// FormulaModification builds a modification from an elemental composition.
func FormulaModification(f chem.Formula) Modification {
	return Modification{Kind: ModFormula, Formula: f, Mono: f.Mono(), Avg: f.Avg()}
}

// GlycanModification builds a modification from a glycan composition.
func GlycanModification(c chem.Composition) Modification {
	return Modification{Kind: ModGlycan, Glycan: c, Mono: c.Mono(), Avg: c.Avg()}
}

// DatabaseModification resolves a named modification against db. Returns an
// UnresolvedMassError when the name is unknown.
func DatabaseModification(db *ModDatabase, name string) (Modification, error) {
	entry, ok := db.Get(name)
	if !ok {
		return Modification{}, &UnresolvedMassError{Name: name}
	}
	return Modification{
		Kind:    ModNamed,
		Name:    name,
		Mono:    entry.Mono,
		Avg:     entry.Avg,
		Formula: entry.Formula,
	}, nil
}

// ModEntry is one named modification definition. When Formula is non-nil the
// masses are derived from it; otherwise Mono and Avg are stored explicitly
// (isotope-labelled tags have no plain-element formula).
type ModEntry struct {
	Formula chem.Formula
	Mono    float64
	Avg     float64
}

// ModDatabase stores named modification and cross-linker definitions.
type ModDatabase struct {
	mods    map[string]ModEntry
	linkers map[string]ModEntry
}

// NewModDatabase creates an empty modification database.
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods:    make(map[string]ModEntry),
		linkers: make(map[string]ModEntry),
	}
}

// Add adds or replaces a modification defined by an elemental composition.
func (db *ModDatabase) Add(name string, f chem.Formula) {
	db.mods[name] = ModEntry{Formula: f, Mono: f.Mono(), Avg: f.Avg()}
}

// AddMass adds or replaces a modification with explicit masses.
func (db *ModDatabase) AddMass(name string, mono, avg float64) {
	db.mods[name] = ModEntry{Mono: mono, Avg: avg}
}

// AddLinker adds or replaces a cross-linker definition.
func (db *ModDatabase) AddLinker(name string, f chem.Formula) {
	db.linkers[name] = ModEntry{Formula: f, Mono: f.Mono(), Avg: f.Avg()}
}

// Get returns the entry for a modification name.
func (db *ModDatabase) Get(name string) (ModEntry, bool) {
	e, ok := db.mods[name]
	return e, ok
}

// GetLinker returns the entry for a cross-linker name.
func (db *ModDatabase) GetLinker(name string) (ModEntry, bool) {
	e, ok := db.linkers[name]
	return e, ok
}

// LinkerModification resolves a named cross-linker to a Modification.
func (db *ModDatabase) LinkerModification(name string) (Modification, error) {
	entry, ok := db.GetLinker(name)
	if !ok {
		return Modification{}, &UnresolvedMassError{Name: name}
	}
	return Modification{
		Kind:    ModNamed,
		Name:    name,
		Mono:    entry.Mono,
		Avg:     entry.Avg,
		Formula: entry.Formula,
	}, nil
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common Unimod
// modifications and cross-linkers.
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	f := func(s string) chem.Formula {
		formula, err := chem.ParseFormula(s)
		if err != nil {
			panic(fmt.Sprintf("bad built-in modification formula %q: %v", s, err))
		}
		return formula
	}

	db.Add("Acetyl", f("C2H2O"))
	db.Add("Amidated", f("H1N1O-1"))
	db.Add("Biotin", f("C10H14N2O2S"))
	db.Add("Carbamidomethyl", f("C2H3NO"))
	db.Add("Carbamyl", f("CHNO"))
	db.Add("Carboxymethyl", f("C2H2O2"))
	db.Add("Deamidated", f("H-1N-1O1"))
	db.Add("Dehydrated", f("H-2O-1"))
	db.Add("Dimethyl", f("C2H4"))
	db.Add("Dioxidation", f("O2"))
	db.Add("Formyl", f("CO"))
	db.Add("Gln->pyro-Glu", f("H-3N-1"))
	db.Add("Glu->pyro-Glu", f("H-2O-1"))
	db.Add("Glutathione", f("C10H15N3O6S"))
	db.Add("Guanidinyl", f("CH2N2"))
	db.Add("Hex", f("C6H10O5"))
	db.Add("HexNAc", f("C8H13NO5"))
	db.Add("Methyl", f("CH2"))
	db.Add("Methylthio", f("CH2S"))
	db.Add("Nitro", f("H-1NO2"))
	db.Add("Oxidation", f("O"))
	db.Add("Palmitoyl", f("C16H30O"))
	db.Add("Phospho", f("HO3P"))
	db.Add("Propionamide", f("C3H5NO"))
	db.Add("Propionyl", f("C3H4O"))
	db.Add("Sulfo", f("O3S"))
	db.Add("Trimethyl", f("C3H6"))
	db.Add("Cation:Na", f("H-1Na1"))
	db.Add("Cation:K", f("H-1K1"))

	// Isobaric tags carry heavy isotopes, so only masses are stored.
	db.AddMass("TMT6plex", 229.162932, 229.2634)
	db.AddMass("TMT10plex", 229.162932, 229.2634)
	db.AddMass("TMT11plex", 229.162932, 229.2634)
	db.AddMass("TMTpro", 304.207146, 304.3127)
	db.AddMass("TMT16plex", 304.207146, 304.3127)
	db.AddMass("iTRAQ4plex", 144.102063, 144.1544)
	db.AddMass("iTRAQ8plex", 304.205360, 304.3081)

	// Cross-linkers: bridge composition between the two endpoints.
	db.AddLinker("DSS", f("C8H10O2"))
	db.AddLinker("BS3", f("C8H10O2"))
	db.AddLinker("DSSO", f("C6H6O3S"))
	db.AddLinker("DSBU", f("C9H12N2O3"))
	db.AddLinker("Disulfide", f("H-2"))

	return db
}
