package fragment

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mjhoffman/profrag/pkg/chem"
	"github.com/mjhoffman/profrag/pkg/core"
)

// Composite masses for backbone series offsets.
var (
	coAvg      = chem.Elements["C"].Avg + chem.Elements["O"].Avg
	ammoniaAvg = chem.Elements["N"].Avg + 3*chem.Elements["H"].Avg
	h2Mono     = 2 * chem.Elements["H"].Mono
	h2Avg      = 2 * chem.Elements["H"].Avg
	hMono      = chem.Elements["H"].Mono
	hAvg       = chem.Elements["H"].Avg
)

// Generate enumerates every theoretical fragment of the set under the model.
// Output order is deterministic: peptidoforms in set order, backbone splits
// ascending, series in a fixed order, placement variants in declaration
// order, neutral losses after their base ion, charges ascending. The only
// error conditions are a malformed model and exceeding the combinatorial
// limit; well-formed input never fails.
func Generate(set *core.PeptidoformSet, model Model) ([]Fragment, error) {
	losses, err := compileLosses(model.NeutralLosses)
	if err != nil {
		return nil, err
	}
	maxCharge := model.MaxCharge
	if maxCharge < 1 {
		maxCharge = 1
	}
	var out []Fragment
	for idx, pf := range set.Peptidoforms {
		g := &gen{set: set, pf: pf, idx: idx, model: model, losses: losses}
		if err := g.prepare(maxCharge); err != nil {
			return nil, err
		}
		g.run()
		out = append(out, g.out...)
	}
	return out, nil
}

// groupChoice is one placement of an ambiguous group: the positions that
// carry the modification under this choice.
type groupChoice struct {
	label     string
	positions []int
}

// placedGroup is an ambiguous group prepared for enumeration.
type placedGroup struct {
	mono, avg  float64
	candidates []int
	choices    []groupChoice
}

// smearGroup is an ambiguous group handled in smear mode: its mass is
// attributed only to fragments covering the entire candidate range.
type smearGroup struct {
	label     string
	mono, avg float64
	min, max  int
}

type gen struct {
	set    *core.PeptidoformSet
	pf     *core.Peptidoform
	idx    int
	model  Model
	losses []compiledLoss

	prefMono, prefAvg []float64 // prefix residue sums, len n+1
	ntMono, ntAvg     float64
	ctMono, ctAvg     float64
	posMods           [][]core.Modification
	groups            []placedGroup
	smears            []smearGroup
	maxZ              int
	out               []Fragment
}

func (g *gen) prepare(maxCharge int) error {
	n := len(g.pf.Residues)
	g.prefMono = make([]float64, n+1)
	g.prefAvg = make([]float64, n+1)
	g.posMods = make([][]core.Modification, n)
	for i, r := range g.pf.Residues {
		mono, ok := chem.AminoAcidMono(r.AminoAcid)
		if !ok {
			return fmt.Errorf("unknown residue %q at position %d", string(r.AminoAcid), i)
		}
		avg, _ := chem.AminoAcidAvg(r.AminoAcid)
		mods := g.pf.ModificationsAt(i)
		for _, m := range mods {
			mono += m.Mono
			avg += m.Avg
		}
		g.posMods[i] = mods
		g.prefMono[i+1] = g.prefMono[i] + mono
		g.prefAvg[i+1] = g.prefAvg[i] + avg
	}
	for _, m := range g.pf.NTerm {
		g.ntMono += m.Mono
		g.ntAvg += m.Avg
	}
	for _, m := range g.pf.CTerm {
		g.ctMono += m.Mono
		g.ctAvg += m.Avg
	}
	for _, gm := range g.pf.Globals {
		if gm.NTerm {
			g.ntMono += gm.Modification.Mono
			g.ntAvg += gm.Modification.Avg
		}
		if gm.CTerm {
			g.ctMono += gm.Modification.Mono
			g.ctAvg += gm.Modification.Avg
		}
	}

	g.maxZ = maxCharge
	if !g.model.AllowExceedPrecursor {
		if tc := g.pf.TotalCharge(); tc > 0 && tc < g.maxZ {
			g.maxZ = tc
		}
	}

	required := 1
	for _, ag := range g.pf.Ambiguous {
		label := ag.ID
		if label == "" {
			label = "?"
		}
		if ag.Unknown || g.model.UnknownPosition || len(ag.Positions) == 0 {
			min, max := 0, n-1
			if len(ag.Positions) > 0 {
				min = ag.Positions[0]
				max = ag.Positions[len(ag.Positions)-1]
			}
			g.smears = append(g.smears, smearGroup{
				label: ag.ID + "?",
				mono:  ag.Modification.Mono,
				avg:   ag.Modification.Avg,
				min:   min,
				max:   max,
			})
			continue
		}
		pg := placedGroup{
			mono:       ag.Modification.Mono,
			avg:        ag.Modification.Avg,
			candidates: ag.Positions,
		}
		if ag.ExactlyOne {
			for _, pos := range ag.Positions {
				pg.choices = append(pg.choices, groupChoice{
					label:     label + "@" + strconv.Itoa(pos+1),
					positions: []int{pos},
				})
			}
		} else {
			if len(ag.Positions) > 30 {
				// 2^N choices would overflow; saturate the reported count.
				return &CombinatorialLimitError{Limit: g.model.CombinatorialLimit, Required: math.MaxInt}
			}
			for mask := 0; mask < 1<<len(ag.Positions); mask++ {
				var positions []int
				var parts []string
				for i, pos := range ag.Positions {
					if mask&(1<<i) != 0 {
						positions = append(positions, pos)
						parts = append(parts, strconv.Itoa(pos+1))
					}
				}
				l := label + "@-"
				if len(parts) > 0 {
					l = label + "@" + strings.Join(parts, "+")
				}
				pg.choices = append(pg.choices, groupChoice{label: l, positions: positions})
			}
		}
		required *= len(pg.choices)
		if required > g.model.CombinatorialLimit {
			return &CombinatorialLimitError{Limit: g.model.CombinatorialLimit, Required: required}
		}
		g.groups = append(g.groups, pg)
	}

	if g.model.Glycan.B || g.model.Glycan.Y || g.model.Glycan.Internal {
		for i := range g.posMods {
			for _, m := range g.posMods[i] {
				if m.Kind != core.ModGlycan {
					continue
				}
				if req := glycanVariantCount(m.Glycan); req > g.model.CombinatorialLimit {
					return &CombinatorialLimitError{Limit: g.model.CombinatorialLimit, Required: req}
				}
			}
		}
	}
	return nil
}

func (g *gen) run() {
	n := len(g.pf.Residues)
	if n == 0 {
		return
	}
	for k := 1; k < n; k++ {
		g.backbone(k)
	}
	g.glycans()
	if g.model.Precursor {
		g.precursor()
	}
}

// backbone emits all enabled ions for the cleavage between residue k-1 and k.
func (g *gen) backbone(k int) {
	n := len(g.pf.Residues)
	pref := g.prefMono[k] + g.ntMono
	prefA := g.prefAvg[k] + g.ntAvg
	suf := g.prefMono[n] - g.prefMono[k] + g.ctMono
	sufA := g.prefAvg[n] - g.prefAvg[k] + g.ctAvg

	type ion struct {
		series    Series
		enabled   bool
		mono, avg float64
	}
	ions := []ion{
		{SeriesA, g.model.Series.A, pref - chem.COMono, prefA - coAvg},
		{SeriesB, g.model.Series.B, pref, prefA},
		{SeriesC, g.model.Series.C, pref + chem.AmmoniaMono, prefA + ammoniaAvg},
		{SeriesX, g.model.Series.X, suf + chem.WaterMono + chem.COMono - h2Mono, sufA + chem.WaterAvg + coAvg - h2Avg},
		{SeriesY, g.model.Series.Y, suf + chem.WaterMono, sufA + chem.WaterAvg},
		{SeriesZ, g.model.Series.Z, suf + chem.WaterMono - chem.AmmoniaMono + hMono, sufA + chem.WaterAvg - ammoniaAvg + hAvg},
	}
	// Satellite series derive from a, z-dot, and y at the residue adjacent
	// to the cleavage.
	if g.model.Satellite.D {
		if loss, ok := chem.SatelliteLoss(g.pf.Residues[k-1].AminoAcid); ok {
			ions = append(ions, ion{SeriesD, true, pref - chem.COMono - loss.Mono(), prefA - coAvg - loss.Avg()})
		}
	}
	if g.model.Satellite.V {
		if sc, ok := chem.SideChain(g.pf.Residues[k].AminoAcid); ok {
			ions = append(ions, ion{SeriesV, true, suf + chem.WaterMono - sc.Mono() + hMono, sufA + chem.WaterAvg - sc.Avg() + hAvg})
		}
	}
	if g.model.Satellite.W {
		if loss, ok := chem.SatelliteLoss(g.pf.Residues[k].AminoAcid); ok {
			zMono := suf + chem.WaterMono - chem.AmmoniaMono + hMono
			zAvg := sufA + chem.WaterAvg - ammoniaAvg + hAvg
			ions = append(ions, ion{SeriesW, true, zMono - loss.Mono(), zAvg - loss.Avg()})
		}
	}

	for _, it := range ions {
		if !it.enabled {
			continue
		}
		start, end, index := 0, k, k
		if !it.series.nTerminal() {
			start, end, index = k, n, n-k
		}
		base := Fragment{
			Series:      it.series,
			Index:       index,
			Start:       start,
			End:         end,
			Peptidoform: g.idx,
			MonoMass:    it.mono,
			AvgMass:     it.avg,
		}
		g.emitVariants(base)
	}
}

// emitVariants expands one neutral backbone ion over placement variants,
// cross-link variants, neutral losses, and charges.
func (g *gen) emitVariants(base Fragment) {
	start, end := base.Start, base.End
	placements := g.placementsFor(start, end)
	xls := g.crossLinkVariants(start, end)
	losses := g.applicableLosses(start, end)

	for _, pv := range placements {
		for _, xv := range xls {
			f := base
			f.MonoMass += pv.mono + xv.mono
			f.AvgMass += pv.avg + xv.avg
			f.Placement = pv.label
			f.CrossLink = xv.label
			f.Retained = xv.retained
			g.emit(f, false)
			for _, l := range losses {
				fl := f
				fl.MonoMass -= l.mono
				fl.AvgMass -= l.avg
				fl.NeutralLoss = l.name
				g.emit(fl, false)
			}
		}
	}
}

type placementVariant struct {
	label     string
	mono, avg float64
}

// placementsFor returns one variant per combination of choices of the
// ambiguous groups overlapping [start, end). Groups with no candidate in the
// range contribute a single implicit "elsewhere" outcome. Smeared groups add
// their mass to every variant when the range covers all their candidates.
func (g *gen) placementsFor(start, end int) []placementVariant {
	var overlapping []placedGroup
	for _, pg := range g.groups {
		for _, pos := range pg.candidates {
			if pos >= start && pos < end {
				overlapping = append(overlapping, pg)
				break
			}
		}
	}

	var smearMono, smearAvg float64
	var smearLabels []string
	for _, s := range g.smears {
		if start <= s.min && s.max < end {
			smearMono += s.mono
			smearAvg += s.avg
			smearLabels = append(smearLabels, s.label)
		}
	}

	if len(overlapping) == 0 {
		return []placementVariant{{label: strings.Join(smearLabels, ";"), mono: smearMono, avg: smearAvg}}
	}

	variants := []placementVariant{{}}
	for _, pg := range overlapping {
		next := make([]placementVariant, 0, len(variants)*len(pg.choices))
		for _, v := range variants {
			for _, c := range pg.choices {
				nv := v
				for _, pos := range c.positions {
					if pos >= start && pos < end {
						nv.mono += pg.mono
						nv.avg += pg.avg
					}
				}
				if nv.label == "" {
					nv.label = c.label
				} else {
					nv.label += ";" + c.label
				}
				next = append(next, nv)
			}
		}
		variants = next
	}
	for i := range variants {
		variants[i].mono += smearMono
		variants[i].avg += smearAvg
		for _, l := range smearLabels {
			variants[i].label += ";" + l
		}
	}
	return variants
}

type xlVariant struct {
	label     string
	retained  bool
	mono, avg float64
}

// crossLinkVariants expands the cross-links whose endpoint falls inside
// [start, end). An intra-peptidoform link with both endpoints in range keeps
// its linker mass unconditionally (the link is intact within the fragment).
// A link severed by the cleavage yields a cleaved variant and, for
// inter-peptidoform links, a retained variant carrying the linker plus the
// whole partner peptidoform.
func (g *gen) crossLinkVariants(start, end int) []xlVariant {
	variants := []xlVariant{{}}
	for _, xl := range g.set.CrossLinksFor(g.idx) {
		var inRange, own int
		partner := -1
		for _, ep := range xl.Endpoints {
			if ep.Peptidoform != g.idx {
				partner = ep.Peptidoform
				continue
			}
			own++
			if ep.Position >= start && ep.Position < end {
				inRange++
			}
		}
		if inRange == 0 {
			continue
		}
		if own == 2 { // intra-peptidoform
			if inRange == 2 {
				for i := range variants {
					variants[i].mono += xl.Linker.Mono
					variants[i].avg += xl.Linker.Avg
					variants[i].label = joinName(variants[i].label, xl.Name)
				}
			} else if g.model.CrossLinkFragments {
				// One endpoint in range: the fragment is only observable
				// with the link broken, so annotate the cleaved form.
				for i := range variants {
					variants[i].label = joinName(variants[i].label, xl.Name)
				}
			}
			continue
		}
		if !g.model.CrossLinkFragments {
			continue
		}
		partnerPf := g.set.Peptidoforms[partner]
		next := make([]xlVariant, 0, len(variants)*2)
		for _, v := range variants {
			cleaved := v
			cleaved.label = joinName(v.label, xl.Name)
			next = append(next, cleaved)
			retained := v
			retained.label = joinName(v.label, xl.Name)
			retained.retained = true
			retained.mono += xl.Linker.Mono + partnerPf.NeutralMono()
			retained.avg += xl.Linker.Avg + partnerPf.NeutralAvg()
			next = append(next, retained)
		}
		variants = next
	}
	return variants
}

func joinName(existing, name string) string {
	if existing == "" {
		return name
	}
	return existing + "," + name
}

// applicableLosses returns the loss rules triggered by the residues or
// modifications inside [start, end).
func (g *gen) applicableLosses(start, end int) []compiledLoss {
	var out []compiledLoss
	for _, l := range g.losses {
		hit := false
		for i := start; i < end && !hit; i++ {
			if l.residues != nil && l.residues[g.pf.Residues[i].AminoAcid] {
				hit = true
				break
			}
			if l.modName != "" {
				for _, m := range g.posMods[i] {
					if m.Name == l.modName {
						hit = true
						break
					}
				}
			}
		}
		if hit {
			out = append(out, l)
		}
	}
	return out
}

// glycans emits B, Y, and internal glycan ions for every glycan-composition
// modification. B and internal ions are emitted singly charged (oxonium
// ions); Y ions carry the peptide and expand over the full charge range.
func (g *gen) glycans() {
	gm := g.model.Glycan
	if !gm.B && !gm.Y && !gm.Internal {
		return
	}
	for pos := range g.pf.Residues {
		for _, m := range g.posMods[pos] {
			if m.Kind != core.ModGlycan {
				continue
			}
			subs, err := subCompositions(m.Glycan, g.model.CombinatorialLimit)
			if err != nil {
				continue // limit already checked in prepare
			}
			full := m.Glycan.Size()
			pfMono := g.pf.NeutralMono()
			pfAvg := g.pf.NeutralAvg()
			glyMono := m.Glycan.Mono()
			glyAvg := m.Glycan.Avg()
			// B ions carry no peptide, so only losses triggered at the
			// glycosylation site apply; Y ions retain the whole backbone.
			bLosses := g.applicableLosses(pos, pos+1)
			yLosses := g.applicableLosses(0, len(g.pf.Residues))
			for _, sub := range subs {
				size := sub.Size()
				key := sub.Key()
				base := Fragment{
					Start:       pos,
					End:         pos + 1,
					Peptidoform: g.idx,
					GlycanKey:   key,
				}
				if gm.B && size >= 1 {
					f := base
					f.Series = SeriesGlycanB
					f.MonoMass = sub.Mono()
					f.AvgMass = sub.Avg()
					g.emitWithLosses(f, bLosses, true)
				}
				if gm.Internal && size >= 1 && size < full {
					f := base
					f.Series = SeriesInternal
					f.MonoMass = sub.Mono()
					f.AvgMass = sub.Avg()
					g.emit(f, true)
				}
				if gm.Y && size < full {
					f := base
					f.Series = SeriesGlycanY
					f.MonoMass = pfMono - glyMono + sub.Mono()
					f.AvgMass = pfAvg - glyAvg + sub.Avg()
					g.emitWithLosses(f, yLosses, false)
				}
			}
		}
	}
}

// precursor emits the intact peptidoform, including the linker mass of any
// intra-peptidoform cross-link.
func (g *gen) precursor() {
	mono := g.pf.NeutralMono()
	avg := g.pf.NeutralAvg()
	for _, xl := range g.set.CrossLinksFor(g.idx) {
		if xl.Intra() {
			mono += xl.Linker.Mono
			avg += xl.Linker.Avg
		}
	}
	n := len(g.pf.Residues)
	base := Fragment{
		Series:      SeriesPrecursor,
		Start:       0,
		End:         n,
		Peptidoform: g.idx,
		MonoMass:    mono,
		AvgMass:     avg,
	}
	g.emit(base, false)
	for _, l := range g.applicableLosses(0, n) {
		f := base
		f.MonoMass -= l.mono
		f.AvgMass -= l.avg
		f.NeutralLoss = l.name
		g.emit(f, false)
	}
}

// emitWithLosses emits a fragment followed by one variant per neutral loss.
func (g *gen) emitWithLosses(f Fragment, losses []compiledLoss, singleCharge bool) {
	g.emit(f, singleCharge)
	for _, l := range losses {
		fl := f
		fl.MonoMass -= l.mono
		fl.AvgMass -= l.avg
		fl.NeutralLoss = l.name
		g.emit(fl, singleCharge)
	}
}

// emit expands a neutral fragment over the charge range.
func (g *gen) emit(f Fragment, singleCharge bool) {
	max := g.maxZ
	if singleCharge {
		max = 1
	}
	for z := 1; z <= max; z++ {
		f.Charge = z
		g.out = append(g.out, f)
	}
}
