package proforma

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mjhoffman/profrag/pkg/core"
)

// Serialize renders a PeptidoformSet back to ProForma text. Parsing the
// output yields a set equal to the original (round-trip property). Members
// joined by a cross-link are separated by "//", chimeric members by "+".
func Serialize(set *core.PeptidoformSet) string {
	sep := "+"
	for _, xl := range set.CrossLinks {
		if !xl.Intra() {
			sep = "//"
			break
		}
	}
	parts := make([]string, len(set.Peptidoforms))
	for i, pf := range set.Peptidoforms {
		parts[i] = serializePeptidoform(set, pf, i)
	}
	return strings.Join(parts, sep)
}

// FormatModification renders one modification in its bracketed spelling,
// without the brackets.
func FormatModification(m core.Modification) string {
	switch m.Kind {
	case core.ModMass:
		return fmt.Sprintf("%+g", m.Mono)
	case core.ModFormula:
		return "Formula:" + m.Formula.String()
	case core.ModGlycan:
		return "Glycan:" + m.Glycan.Key()
	default:
		return m.Name
	}
}

func formatScore(s float64) string {
	return "(" + strconv.FormatFloat(s, 'g', -1, 64) + ")"
}

func serializePeptidoform(set *core.PeptidoformSet, pf *core.Peptidoform, index int) string {
	var sb strings.Builder

	for _, g := range pf.Globals {
		sb.WriteString("<[")
		sb.WriteString(FormatModification(g.Modification))
		sb.WriteString("]@")
		var targets []string
		if g.NTerm {
			targets = append(targets, "N-term")
		}
		if g.CTerm {
			targets = append(targets, "C-term")
		}
		for _, t := range g.Targets {
			targets = append(targets, string(t))
		}
		sb.WriteString(strings.Join(targets, ","))
		sb.WriteString(">")
	}

	// Unknown-position groups live in the prefix.
	for _, g := range pf.Ambiguous {
		if !g.Unknown {
			continue
		}
		sb.WriteString("[")
		sb.WriteString(FormatModification(g.Modification))
		if g.ID != "" {
			sb.WriteString("#")
			sb.WriteString(g.ID)
		}
		sb.WriteString("]?")
	}

	for _, m := range pf.NTerm {
		sb.WriteString("[")
		sb.WriteString(FormatModification(m))
		sb.WriteString("]")
	}
	if len(pf.NTerm) > 0 {
		sb.WriteString("-")
	}

	// Positional markers for named ambiguous groups.
	markers := make(map[int][]string)
	for _, g := range pf.Ambiguous {
		if g.Unknown || g.ID == "" {
			continue
		}
		for i, pos := range g.Positions {
			var m strings.Builder
			m.WriteString("[")
			if i == 0 {
				m.WriteString(FormatModification(g.Modification))
			}
			m.WriteString("#")
			m.WriteString(g.ID)
			if g.Scores != nil {
				m.WriteString(formatScore(g.Scores[i]))
			}
			m.WriteString("]")
			markers[pos] = append(markers[pos], m.String())
		}
	}

	// Cross-link markers: the first endpoint carries the linker definition.
	for _, xl := range set.CrossLinks {
		for epIdx, ep := range xl.Endpoints {
			if ep.Peptidoform != index {
				continue
			}
			var m strings.Builder
			m.WriteString("[")
			if epIdx == 0 && !strings.EqualFold(xl.Name, "BRANCH") {
				m.WriteString("XL:")
				m.WriteString(xl.Linker.Name)
			}
			m.WriteString("#")
			m.WriteString(xl.Name)
			m.WriteString("]")
			markers[ep.Position] = append(markers[ep.Position], m.String())
		}
	}

	// Anonymous groups serialize as ranges; their positions are contiguous
	// because only range syntax produces them.
	rangeStart := make(map[int][]string)
	rangeEnd := make(map[int]int)
	for _, g := range pf.Ambiguous {
		if g.Unknown || g.ID != "" || len(g.Positions) == 0 {
			continue
		}
		first := g.Positions[0]
		last := g.Positions[len(g.Positions)-1]
		rangeStart[first] = append(rangeStart[first], "["+FormatModification(g.Modification)+"]")
		if last > rangeEnd[first] {
			rangeEnd[first] = last
		}
	}

	openUntil := -1
	openStart := -1
	for pos, r := range pf.Residues {
		if _, ok := rangeStart[pos]; ok && openUntil < 0 {
			sb.WriteString("(")
			openUntil = rangeEnd[pos]
			openStart = pos
		}
		sb.WriteByte(r.AminoAcid)
		for _, m := range r.Modifications {
			sb.WriteString("[")
			sb.WriteString(FormatModification(m))
			sb.WriteString("]")
		}
		for _, m := range markers[pos] {
			sb.WriteString(m)
		}
		if openUntil == pos {
			sb.WriteString(")")
			for _, m := range rangeStart[openStart] {
				sb.WriteString(m)
			}
			openUntil, openStart = -1, -1
		}
	}

	for _, m := range pf.CTerm {
		sb.WriteString("-[")
		sb.WriteString(FormatModification(m))
		sb.WriteString("]")
	}

	if len(pf.ChargeCarriers) > 0 {
		sb.WriteString(serializeCharge(pf))
	}

	return sb.String()
}

func serializeCharge(pf *core.Peptidoform) string {
	carriers := pf.ChargeCarriers
	if len(carriers) == 1 && carriers[0].Charge == 1 && len(carriers[0].Formula) == 1 && carriers[0].Formula["H"] == 1 {
		return "/" + strconv.Itoa(carriers[0].Count)
	}
	var sb strings.Builder
	sb.WriteString("/")
	sb.WriteString(strconv.Itoa(pf.TotalCharge()))
	sb.WriteString("[")
	for i, c := range carriers {
		if i > 0 {
			sb.WriteString(",")
		}
		count := c.Count
		if count < 0 {
			sb.WriteString("-")
			count = -count
		} else {
			sb.WriteString("+")
		}
		sb.WriteString(strconv.Itoa(count))
		for el := range c.Formula {
			sb.WriteString(el)
		}
		charge := c.Charge
		sign := "+"
		if charge < 0 {
			sign = "-"
			charge = -charge
		}
		for j := 0; j < charge; j++ {
			sb.WriteString(sign)
		}
	}
	sb.WriteString("]")
	return sb.String()
}
