package proforma

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mjhoffman/profrag/pkg/chem"
	"github.com/mjhoffman/profrag/pkg/core"
)

// Parse parses ProForma text into a PeptidoformSet using the default
// modification database.
func Parse(text string) (*core.PeptidoformSet, error) {
	return ParseWith(text, core.DefaultModDatabase())
}

// ParseWith parses ProForma text against a caller-supplied modification
// database. Parsing is single pass; the only backtracking is the bounded
// resolution order for modification tokens (mass offset, then formula, then
// named lookup, then glycan composition). Any error aborts the whole input.
func ParseWith(text string, db *core.ModDatabase) (*core.PeptidoformSet, error) {
	if strings.TrimSpace(text) == "" {
		return nil, parseErr(MalformedSyntax, 0, 0, "empty input")
	}
	p := &parser{
		text: text,
		db:   db,
		set:  &core.PeptidoformSet{},
		xls:  make(map[string]*xlBuilder),
	}
	for {
		more, err := p.parsePeptidoform()
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	if err := p.finishCrossLinks(); err != nil {
		return nil, err
	}
	if err := p.set.Validate(); err != nil {
		return nil, parseErr(MalformedSyntax, 0, len(text), err.Error())
	}
	return p.set, nil
}

type parser struct {
	text string
	pos  int
	db   *core.ModDatabase
	set  *core.PeptidoformSet

	xls     map[string]*xlBuilder
	xlOrder []string
}

// xlBuilder accumulates cross-link endpoints across the whole set; the
// identifier may legally appear in different peptidoforms.
type xlBuilder struct {
	name      string
	linker    core.Modification
	hasLinker bool
	endpoints []core.CrossLinkEndpoint
	start     int
	end       int
}

// groupBuilder accumulates positions of one named ambiguous group.
type groupBuilder struct {
	id        string
	mod       core.Modification
	hasMod    bool
	positions []int
	scores    map[int]float64
	anyScore  bool
	start     int
	end       int
}

// modToken is one parsed [..] annotation.
type modToken struct {
	mod      core.Modification
	hasMod   bool
	isXL     bool // defined with the XL: scheme
	info     bool // INFO tag, carried no chemistry
	groupID  string
	score    float64
	hasScore bool
	start    int
	end      int
}

func (p *parser) parsePeptidoform() (more bool, err error) {
	pf := &core.Peptidoform{}
	pepIdx := len(p.set.Peptidoforms)
	groups := make(map[string]*groupBuilder)
	var groupOrder []string
	var pending []modToken

	// Prefix: global modifications, unknown-position modifications, and
	// N-terminal modifications, in any combination.
prefix:
	for p.pos < len(p.text) {
		switch p.text[p.pos] {
		case '<':
			if len(pending) > 0 {
				t := pending[0]
				return false, parseErr(MalformedSyntax, t.start, t.end, "modification before global annotation")
			}
			g, err := p.parseGlobal()
			if err != nil {
				return false, err
			}
			pf.Globals = append(pf.Globals, g)
		case '[':
			tok, err := p.parseBracket()
			if err != nil {
				return false, err
			}
			if tok.info {
				continue
			}
			pending = append(pending, tok)
		case '?':
			if len(pending) == 0 {
				return false, parseErr(MalformedSyntax, p.pos, p.pos+1, "?")
			}
			for _, tok := range pending {
				if !tok.hasMod {
					return false, parseErr(UnresolvedModification, tok.start, tok.end, p.text[tok.start:tok.end])
				}
				pf.Ambiguous = append(pf.Ambiguous, core.AmbiguousGroup{
					ID:           tok.groupID,
					Modification: tok.mod,
					ExactlyOne:   true,
					Unknown:      true,
				})
			}
			pending = nil
			p.pos++
		case '^':
			// Multiplicity for an unknown-position modification: [mod]^n?
			if len(pending) == 0 {
				return false, parseErr(MalformedSyntax, p.pos, p.pos+1, "^")
			}
			caret := p.pos
			p.pos++
			n, ok := p.parseUint()
			if !ok || n < 1 {
				return false, parseErr(MalformedSyntax, caret, p.pos, p.text[caret:p.pos])
			}
			if p.pos >= len(p.text) || p.text[p.pos] != '?' {
				return false, parseErr(MalformedSyntax, caret, p.pos, "multiplicity requires unknown-position marker")
			}
			p.pos++
			tok := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			if !tok.hasMod {
				return false, parseErr(UnresolvedModification, tok.start, tok.end, p.text[tok.start:tok.end])
			}
			for i := 0; i < n; i++ {
				pf.Ambiguous = append(pf.Ambiguous, core.AmbiguousGroup{
					ID:           tok.groupID,
					Modification: tok.mod,
					ExactlyOne:   true,
					Unknown:      true,
				})
			}
		case '-':
			if len(pending) == 0 {
				return false, parseErr(MalformedSyntax, p.pos, p.pos+1, "-")
			}
			for _, tok := range pending {
				if !tok.hasMod {
					return false, parseErr(UnresolvedModification, tok.start, tok.end, p.text[tok.start:tok.end])
				}
				pf.NTerm = append(pf.NTerm, tok.mod)
			}
			pending = nil
			p.pos++
			break prefix
		default:
			break prefix
		}
	}
	if len(pending) > 0 {
		t := pending[0]
		return false, parseErr(MalformedSyntax, t.start, t.end, "modification not attached to a residue or terminus")
	}

	// Body: residues, residue modifications, ranges, C-terminal
	// modifications, charge, and member separators.
	sawCTerm := false
	sawCharge := false
	done := false
	sep := byte(0)
body:
	for p.pos < len(p.text) {
		c := p.text[p.pos]
		switch {
		case c >= 'A' && c <= 'Z':
			if sawCTerm || sawCharge {
				return false, parseErr(MalformedSyntax, p.pos, p.pos+1, "residue after terminal annotation")
			}
			if !chem.IsAminoAcid(c) {
				return false, parseErr(UnknownResidue, p.pos, p.pos+1, string(c))
			}
			pf.Residues = append(pf.Residues, core.Residue{AminoAcid: c})
			pos := len(pf.Residues) - 1
			p.pos++
			for p.pos < len(p.text) && p.text[p.pos] == '[' {
				tok, err := p.parseBracket()
				if err != nil {
					return false, err
				}
				if err := p.attach(pf, pepIdx, pos, tok, groups, &groupOrder); err != nil {
					return false, err
				}
			}
		case c == '(':
			if err := p.parseRange(pf, pepIdx, groups, &groupOrder); err != nil {
				return false, err
			}
		case c == '-':
			p.pos++
			if p.pos >= len(p.text) || p.text[p.pos] != '[' {
				return false, parseErr(MalformedSyntax, p.pos-1, p.pos, "-")
			}
			for p.pos < len(p.text) && p.text[p.pos] == '[' {
				tok, err := p.parseBracket()
				if err != nil {
					return false, err
				}
				if tok.info {
					continue
				}
				if !tok.hasMod {
					return false, parseErr(UnresolvedModification, tok.start, tok.end, p.text[tok.start:tok.end])
				}
				pf.CTerm = append(pf.CTerm, tok.mod)
			}
			sawCTerm = true
		case c == '/':
			if p.pos+1 < len(p.text) && p.text[p.pos+1] == '/' {
				p.pos += 2
				done, sep = false, '/'
				break body
			}
			if err := p.parseCharge(pf); err != nil {
				return false, err
			}
			sawCharge = true
		case c == '+':
			p.pos++
			done, sep = false, '+'
			break body
		default:
			return false, parseErr(MalformedSyntax, p.pos, p.pos+1, string(c))
		}
	}
	if p.pos >= len(p.text) && sep == 0 {
		done = true
	}

	if err := p.finishGroups(pf, groups, groupOrder); err != nil {
		return false, err
	}
	p.set.Peptidoforms = append(p.set.Peptidoforms, pf)
	return !done, nil
}

// parseRange parses (SEQ)[mod]... producing one ambiguous group per trailing
// modification token, localized over the enclosed positions.
func (p *parser) parseRange(pf *core.Peptidoform, pepIdx int, groups map[string]*groupBuilder, groupOrder *[]string) error {
	start := p.pos
	p.pos++
	var rangePositions []int
	for p.pos < len(p.text) && p.text[p.pos] != ')' {
		rc := p.text[p.pos]
		if rc < 'A' || rc > 'Z' {
			return parseErr(MalformedSyntax, p.pos, p.pos+1, string(rc))
		}
		if !chem.IsAminoAcid(rc) {
			return parseErr(UnknownResidue, p.pos, p.pos+1, string(rc))
		}
		pf.Residues = append(pf.Residues, core.Residue{AminoAcid: rc})
		rangePositions = append(rangePositions, len(pf.Residues)-1)
		p.pos++
		for p.pos < len(p.text) && p.text[p.pos] == '[' {
			tok, err := p.parseBracket()
			if err != nil {
				return err
			}
			if err := p.attach(pf, pepIdx, len(pf.Residues)-1, tok, groups, groupOrder); err != nil {
				return err
			}
		}
	}
	if p.pos >= len(p.text) {
		return parseErr(MalformedSyntax, start, p.pos, "unclosed range")
	}
	p.pos++
	if len(rangePositions) == 0 {
		return parseErr(MalformedSyntax, start, p.pos, "empty range")
	}
	sawMod := false
	for p.pos < len(p.text) && p.text[p.pos] == '[' {
		tok, err := p.parseBracket()
		if err != nil {
			return err
		}
		if tok.info {
			continue
		}
		if !tok.hasMod {
			return parseErr(UnresolvedModification, tok.start, tok.end, p.text[tok.start:tok.end])
		}
		if tok.isXL {
			return parseErr(InvalidCrossLink, tok.start, tok.end, "cross-linker on a range")
		}
		sawMod = true
		if tok.groupID != "" {
			g := p.group(groups, groupOrder, tok)
			if tok.hasMod {
				if g.hasMod {
					return parseErr(MalformedSyntax, tok.start, tok.end, "ambiguous group defined twice")
				}
				g.mod, g.hasMod = tok.mod, true
			}
			g.positions = append(g.positions, rangePositions...)
			continue
		}
		pf.Ambiguous = append(pf.Ambiguous, core.AmbiguousGroup{
			Modification: tok.mod,
			Positions:    append([]int(nil), rangePositions...),
			ExactlyOne:   true,
		})
	}
	if !sawMod {
		return parseErr(MalformedSyntax, start, p.pos, "range without modification")
	}
	return nil
}

func (p *parser) group(groups map[string]*groupBuilder, groupOrder *[]string, tok modToken) *groupBuilder {
	g := groups[tok.groupID]
	if g == nil {
		g = &groupBuilder{id: tok.groupID, scores: make(map[int]float64), start: tok.start, end: tok.end}
		groups[tok.groupID] = g
		*groupOrder = append(*groupOrder, tok.groupID)
	}
	return g
}

// attach applies a parsed bracket token to a residue position.
func (p *parser) attach(pf *core.Peptidoform, pepIdx, pos int, tok modToken, groups map[string]*groupBuilder, groupOrder *[]string) error {
	if tok.info {
		return nil
	}
	if tok.isXL || isCrossLinkID(tok.groupID) {
		if tok.groupID == "" {
			return parseErr(InvalidCrossLink, tok.start, tok.end, "cross-linker without identifier")
		}
		b := p.xls[tok.groupID]
		if b == nil {
			b = &xlBuilder{name: tok.groupID}
			p.xls[tok.groupID] = b
			p.xlOrder = append(p.xlOrder, tok.groupID)
		}
		b.start, b.end = tok.start, tok.end
		if tok.isXL {
			if b.hasLinker {
				return parseErr(InvalidCrossLink, tok.start, tok.end, "cross-linker defined twice for "+tok.groupID)
			}
			b.linker, b.hasLinker = tok.mod, true
		}
		if len(b.endpoints) >= 2 {
			return parseErr(InvalidCrossLink, tok.start, tok.end, tok.groupID+" has more than two endpoints")
		}
		b.endpoints = append(b.endpoints, core.CrossLinkEndpoint{Peptidoform: pepIdx, Position: pos})
		return nil
	}
	if tok.groupID != "" {
		g := p.group(groups, groupOrder, tok)
		if tok.hasMod {
			if g.hasMod {
				return parseErr(MalformedSyntax, tok.start, tok.end, "ambiguous group defined twice")
			}
			g.mod, g.hasMod = tok.mod, true
		}
		g.positions = append(g.positions, pos)
		if tok.hasScore {
			g.scores[pos] = tok.score
			g.anyScore = true
		}
		return nil
	}
	if !tok.hasMod {
		return parseErr(MalformedSyntax, tok.start, tok.end, "empty modification")
	}
	pf.Residues[pos].Modifications = append(pf.Residues[pos].Modifications, tok.mod)
	return nil
}

// finishGroups converts named group builders into AmbiguousGroups with
// positions sorted ascending. Duplicate identifiers were merged during the
// scan, so each identifier yields exactly one group.
func (p *parser) finishGroups(pf *core.Peptidoform, groups map[string]*groupBuilder, groupOrder []string) error {
	for _, id := range groupOrder {
		g := groups[id]
		if !g.hasMod {
			return parseErr(MalformedSyntax, g.start, g.end, "ambiguous group "+id+" never defines a modification")
		}
		sort.Ints(g.positions)
		group := core.AmbiguousGroup{
			ID:           g.id,
			Modification: g.mod,
			Positions:    g.positions,
			ExactlyOne:   true,
		}
		if g.anyScore {
			group.Scores = make([]float64, len(g.positions))
			for i, pos := range g.positions {
				group.Scores[i] = g.scores[pos]
			}
		}
		pf.Ambiguous = append(pf.Ambiguous, group)
	}
	return nil
}

// finishCrossLinks materializes cross-link builders into the set arena and
// wires the index references into the member peptidoforms.
func (p *parser) finishCrossLinks() error {
	for _, id := range p.xlOrder {
		b := p.xls[id]
		if len(b.endpoints) != 2 {
			return parseErr(InvalidCrossLink, b.start, b.end, id)
		}
		if !b.hasLinker {
			if !strings.EqualFold(id, "BRANCH") {
				return parseErr(InvalidCrossLink, b.start, b.end, id+" has no linker definition")
			}
			b.linker = core.MassModification(0)
		}
		idx := len(p.set.CrossLinks)
		p.set.CrossLinks = append(p.set.CrossLinks, core.CrossLink{
			Name:      id,
			Endpoints: [2]core.CrossLinkEndpoint{b.endpoints[0], b.endpoints[1]},
			Linker:    b.linker,
		})
		seen := make(map[int]bool, 2)
		for _, ep := range b.endpoints {
			if ep.Peptidoform < len(p.set.Peptidoforms) && !seen[ep.Peptidoform] {
				pf := p.set.Peptidoforms[ep.Peptidoform]
				pf.CrossLinkRefs = append(pf.CrossLinkRefs, idx)
				seen[ep.Peptidoform] = true
			}
		}
	}
	return nil
}

// isCrossLinkID reports whether a group identifier names a cross-link. Per
// convention cross-link identifiers start with "XL"; "BRANCH" marks a branch.
func isCrossLinkID(id string) bool {
	return len(id) >= 2 && strings.EqualFold(id[:2], "XL") || strings.EqualFold(id, "BRANCH")
}

// parseGlobal parses <[mod]@C,M> or <[mod]@N-term>.
func (p *parser) parseGlobal() (core.GlobalModification, error) {
	start := p.pos
	p.pos++ // '<'
	if p.pos >= len(p.text) || p.text[p.pos] != '[' {
		return core.GlobalModification{}, parseErr(MalformedSyntax, start, p.pos+1, "global annotation requires a bracketed modification")
	}
	tok, err := p.parseBracket()
	if err != nil {
		return core.GlobalModification{}, err
	}
	if !tok.hasMod {
		return core.GlobalModification{}, parseErr(UnresolvedModification, tok.start, tok.end, p.text[tok.start:tok.end])
	}
	if p.pos >= len(p.text) || p.text[p.pos] != '@' {
		return core.GlobalModification{}, parseErr(MalformedSyntax, start, p.pos, "global annotation requires @targets")
	}
	p.pos++
	end := strings.IndexByte(p.text[p.pos:], '>')
	if end < 0 {
		return core.GlobalModification{}, parseErr(MalformedSyntax, start, len(p.text), "unclosed global annotation")
	}
	targetText := p.text[p.pos : p.pos+end]
	p.pos += end + 1

	g := core.GlobalModification{Modification: tok.mod}
	for _, target := range strings.Split(targetText, ",") {
		target = strings.TrimSpace(target)
		switch {
		case strings.EqualFold(target, "N-term"):
			g.NTerm = true
		case strings.EqualFold(target, "C-term"):
			g.CTerm = true
		case len(target) == 1 && chem.IsAminoAcid(target[0]):
			g.Targets = append(g.Targets, target[0])
		default:
			return core.GlobalModification{}, parseErr(MalformedSyntax, start, p.pos, "invalid global target "+strconv.Quote(target))
		}
	}
	return g, nil
}

// parseBracket parses one [..] token, splitting off a trailing #identifier
// with optional (score) and resolving the modification body.
func (p *parser) parseBracket() (modToken, error) {
	start := p.pos
	closing := strings.IndexByte(p.text[start:], ']')
	if closing < 0 {
		return modToken{}, parseErr(MalformedSyntax, start, len(p.text), "unclosed modification")
	}
	end := start + closing + 1
	content := p.text[start+1 : end-1]
	p.pos = end

	tok := modToken{start: start, end: end}

	if scheme, _, ok := strings.Cut(content, ":"); ok && strings.EqualFold(scheme, "INFO") {
		tok.info = true
		return tok, nil
	}

	body := content
	if hash := strings.LastIndexByte(content, '#'); hash >= 0 {
		body = content[:hash]
		id := content[hash+1:]
		if open := strings.IndexByte(id, '('); open >= 0 {
			if !strings.HasSuffix(id, ")") {
				return modToken{}, parseErr(MalformedSyntax, start, end, content)
			}
			score, err := strconv.ParseFloat(id[open+1:len(id)-1], 64)
			if err != nil {
				return modToken{}, parseErr(MalformedSyntax, start, end, content)
			}
			tok.score, tok.hasScore = score, true
			id = id[:open]
		}
		if id == "" {
			return modToken{}, parseErr(MalformedSyntax, start, end, content)
		}
		tok.groupID = id
	}
	if body == "" {
		return tok, nil
	}

	mod, isXL, err := p.resolveBody(body, start, end)
	if err != nil {
		return modToken{}, err
	}
	tok.mod, tok.hasMod, tok.isXL = mod, true, isXL
	return tok, nil
}

// resolveBody resolves a modification token body. Resolution order is fixed:
// explicit mass offset, then formula syntax, then named database lookup,
// then glycan composition. The first successful resolution wins.
func (p *parser) resolveBody(body string, start, end int) (core.Modification, bool, error) {
	if scheme, rest, ok := strings.Cut(body, ":"); ok {
		switch {
		case strings.EqualFold(scheme, "XL") || (len(scheme) == 1 && strings.EqualFold(scheme, "X")):
			mod, err := p.db.LinkerModification(rest)
			if err != nil {
				return core.Modification{}, false, parseErr(UnresolvedModification, start, end, body)
			}
			return mod, true, nil
		case strings.EqualFold(scheme, "Formula"):
			f, err := chem.ParseFormula(rest)
			if err != nil {
				return core.Modification{}, false, parseErr(UnresolvedModification, start, end, body)
			}
			return core.FormulaModification(f), false, nil
		case strings.EqualFold(scheme, "Glycan"):
			c, err := chem.ParseComposition(rest)
			if err != nil {
				return core.Modification{}, false, parseErr(UnresolvedModification, start, end, body)
			}
			return core.GlycanModification(c), false, nil
		case strings.EqualFold(scheme, "U") || strings.EqualFold(scheme, "M") || strings.EqualFold(scheme, "Unimod"):
			mod, err := core.DatabaseModification(p.db, rest)
			if err != nil {
				return core.Modification{}, false, parseErr(UnresolvedModification, start, end, body)
			}
			return mod, false, nil
		}
		// Unknown scheme: the colon is part of the name (e.g. Cation:Na).
	}

	if body[0] == '+' || body[0] == '-' {
		mass, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return core.Modification{}, false, parseErr(UnresolvedModification, start, end, body)
		}
		return core.MassModification(mass), false, nil
	}
	if mod, err := core.DatabaseModification(p.db, body); err == nil {
		return mod, false, nil
	}
	if c, err := chem.ParseComposition(body); err == nil {
		return core.GlycanModification(c), false, nil
	}
	return core.Modification{}, false, parseErr(UnresolvedModification, start, end, body)
}

// parseCharge parses the trailing /n charge annotation with an optional
// ionic-species list, e.g. /2 or /3[+2Na+,+H+].
func (p *parser) parseCharge(pf *core.Peptidoform) error {
	start := p.pos
	p.pos++ // '/'
	neg := false
	if p.pos < len(p.text) && p.text[p.pos] == '-' {
		neg = true
		p.pos++
	}
	n, ok := p.parseUint()
	if !ok {
		return parseErr(MalformedSyntax, start, p.pos, "charge requires a number")
	}
	charge := n
	if neg {
		charge = -n
	}
	if p.pos < len(p.text) && p.text[p.pos] == '[' {
		carriers, err := p.parseAdducts()
		if err != nil {
			return err
		}
		pf.ChargeCarriers = carriers
		return nil
	}
	pf.ChargeCarriers = []core.ChargeCarrier{core.Proton(charge)}
	return nil
}

// parseAdducts parses an ionic-species list such as [+2Na+,-H+].
func (p *parser) parseAdducts() ([]core.ChargeCarrier, error) {
	start := p.pos
	closing := strings.IndexByte(p.text[start:], ']')
	if closing < 0 {
		return nil, parseErr(MalformedSyntax, start, len(p.text), "unclosed ionic species list")
	}
	content := p.text[start+1 : start+closing]
	p.pos = start + closing + 1

	var carriers []core.ChargeCarrier
	for _, item := range strings.Split(content, ",") {
		item = strings.TrimSpace(item)
		carrier, err := parseAdduct(item, start)
		if err != nil {
			return nil, err
		}
		carriers = append(carriers, carrier)
	}
	if len(carriers) == 0 {
		return nil, parseErr(MalformedSyntax, start, p.pos, "empty ionic species list")
	}
	return carriers, nil
}

// parseAdduct parses one species such as +2Na+ or -H+: a count sign, an
// optional count, an element symbol, and trailing charge signs.
func parseAdduct(item string, offset int) (core.ChargeCarrier, error) {
	bad := func() (core.ChargeCarrier, error) {
		return core.ChargeCarrier{}, parseErr(MalformedSyntax, offset, offset+len(item), item)
	}
	if len(item) < 2 || (item[0] != '+' && item[0] != '-') {
		return bad()
	}
	countSign := 1
	if item[0] == '-' {
		countSign = -1
	}
	i := 1
	count := 0
	for i < len(item) && item[i] >= '0' && item[i] <= '9' {
		count = count*10 + int(item[i]-'0')
		i++
	}
	if count == 0 {
		count = 1
	}
	sym := ""
	for i < len(item) && ((item[i] >= 'A' && item[i] <= 'Z') || (item[i] >= 'a' && item[i] <= 'z')) {
		sym += string(item[i])
		i++
	}
	if _, ok := chem.Elements[sym]; !ok {
		return bad()
	}
	charge := 0
	for i < len(item) {
		switch item[i] {
		case '+':
			charge++
		case '-':
			charge--
		default:
			return bad()
		}
		i++
	}
	if charge == 0 {
		return bad()
	}
	return core.ChargeCarrier{
		Formula: chem.Formula{sym: 1},
		Charge:  charge,
		Count:   countSign * count,
	}, nil
}

func (p *parser) parseUint() (int, bool) {
	start := p.pos
	n := 0
	for p.pos < len(p.text) && p.text[p.pos] >= '0' && p.text[p.pos] <= '9' {
		n = n*10 + int(p.text[p.pos]-'0')
		p.pos++
	}
	return n, p.pos > start
}
