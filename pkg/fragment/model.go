// Package fragment enumerates theoretical product ions for peptidoforms
// under a configurable fragmentation model.
package fragment

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/mjhoffman/profrag/pkg/chem"
)

// SeriesSet selects the backbone ion series to generate.
type SeriesSet struct {
	A bool `toml:"a"`
	B bool `toml:"b"`
	C bool `toml:"c"`
	X bool `toml:"x"`
	Y bool `toml:"y"`
	Z bool `toml:"z"`
}

// SatelliteSet selects the satellite ion series (side-chain cleavages).
type SatelliteSet struct {
	W bool `toml:"w"`
	D bool `toml:"d"`
	V bool `toml:"v"`
}

// GlycanSet selects the glycan ion series generated from glycan-composition
// modifications.
type GlycanSet struct {
	B        bool `toml:"b"`
	Y        bool `toml:"y"`
	Internal bool `toml:"internal"`
}

// NeutralLoss is one neutral-loss rule. The loss applies to a fragment when
// the fragment's residue range contains one of the listed residues, or a
// modification with the given name.
type NeutralLoss struct {
	Name         string `toml:"name"`         // label, e.g. "H2O"
	Formula      string `toml:"formula"`      // lost composition, e.g. "H2O"
	Residues     string `toml:"residues"`     // residue codes triggering the loss
	Modification string `toml:"modification"` // modification name triggering the loss
}

// Model is the full fragmentation configuration. Every option has an
// explicit default (see Default); there are no hidden globals.
type Model struct {
	Series    SeriesSet    `toml:"series"`
	Satellite SatelliteSet `toml:"satellite"`
	Glycan    GlycanSet    `toml:"glycan"`

	// MaxCharge is the highest product-ion charge to generate.
	MaxCharge int `toml:"max_charge"`
	// AllowExceedPrecursor permits fragment charges above the precursor's
	// declared charge. Without it the precursor charge caps expansion.
	AllowExceedPrecursor bool `toml:"allow_exceed_precursor_charge"`
	// Precursor emits the intact peptidoform as an ion.
	Precursor bool `toml:"precursor"`
	// UnknownPosition smears each ambiguous group over its candidate range
	// as one fragment instead of enumerating placements.
	UnknownPosition bool `toml:"unknown_position"`
	// CrossLinkFragments emits cleaved and retained variants for fragments
	// covering a cross-link endpoint.
	CrossLinkFragments bool `toml:"cross_link_fragments"`
	// CombinatorialLimit bounds ambiguous-placement and glycan
	// sub-composition enumeration. Exceeding it fails the generate call.
	CombinatorialLimit int `toml:"combinatorial_limit"`

	NeutralLosses []NeutralLoss `toml:"neutral_loss"`
}

// Default returns the default model: b and y ions up to charge 2, no
// satellites, no glycan series, no neutral losses, placement enumeration
// bounded at 512 variants.
func Default() Model {
	return Model{
		Series:             SeriesSet{B: true, Y: true},
		MaxCharge:          2,
		CombinatorialLimit: 512,
	}
}

// HCD returns a model for beam-type CID/HCD spectra: b and y backbone ions
// plus glycan oxonium and Y ions, with water and ammonia losses.
func HCD() Model {
	m := Default()
	m.Glycan = GlycanSet{B: true, Y: true}
	m.NeutralLosses = []NeutralLoss{
		{Name: "H2O", Formula: "H2O", Residues: "STED"},
		{Name: "NH3", Formula: "NH3", Residues: "RKNQ"},
	}
	return m
}

// ETD returns a model for electron-transfer dissociation: c and z ions with
// w satellites. The z series is generated as z-dot (z+1) radicals.
func ETD() Model {
	m := Default()
	m.Series = SeriesSet{C: true, Z: true}
	m.Satellite = SatelliteSet{W: true}
	return m
}

// LoadModel reads a TOML model file over the defaults, so a file only needs
// to state what it changes.
func LoadModel(path string) (Model, error) {
	m := Default()
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Model{}, fmt.Errorf("failed to load fragmentation model: %w", err)
	}
	if m.MaxCharge < 1 {
		return Model{}, fmt.Errorf("fragmentation model: max_charge must be at least 1")
	}
	if m.CombinatorialLimit < 1 {
		return Model{}, fmt.Errorf("fragmentation model: combinatorial_limit must be at least 1")
	}
	return m, nil
}

// compiledLoss is a NeutralLoss with its formula resolved.
type compiledLoss struct {
	name     string
	mono     float64
	avg      float64
	residues map[byte]bool
	modName  string
}

func compileLosses(losses []NeutralLoss) ([]compiledLoss, error) {
	out := make([]compiledLoss, 0, len(losses))
	for _, l := range losses {
		f, err := chem.ParseFormula(l.Formula)
		if err != nil {
			return nil, fmt.Errorf("neutral loss %q: %w", l.Name, err)
		}
		c := compiledLoss{
			name:    l.Name,
			mono:    f.Mono(),
			avg:     f.Avg(),
			modName: l.Modification,
		}
		if l.Residues != "" {
			c.residues = make(map[byte]bool, len(l.Residues))
			for i := 0; i < len(l.Residues); i++ {
				c.residues[l.Residues[i]] = true
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// CombinatorialLimitError reports that ambiguous-placement or glycan
// enumeration would exceed the configured bound.
type CombinatorialLimitError struct {
	Limit    int
	Required int
}

func (e *CombinatorialLimitError) Error() string {
	return fmt.Sprintf("combinatorial limit exceeded: %d variants required, limit is %d", e.Required, e.Limit)
}
