// Package proforma parses and serializes ProForma 2.0 peptidoform notation.
package proforma

import "fmt"

// ErrorKind classifies parse failures.
type ErrorKind int

const (
	// MalformedSyntax is any structural violation of the grammar.
	MalformedSyntax ErrorKind = iota
	// UnknownResidue is a sequence character that is not a recognized amino acid.
	UnknownResidue
	// UnresolvedModification is a modification token that resolved under none
	// of the accepted syntaxes (mass offset, formula, named, glycan).
	UnresolvedModification
	// InvalidCrossLink is a cross-link identifier with fewer or more than two
	// endpoints, or an endpoint without a linker definition.
	InvalidCrossLink
)

func (k ErrorKind) String() string {
	switch k {
	case MalformedSyntax:
		return "malformed syntax"
	case UnknownResidue:
		return "unknown residue"
	case UnresolvedModification:
		return "unresolved modification"
	case InvalidCrossLink:
		return "invalid cross-link"
	default:
		return "unknown error"
	}
}

// ParseError carries the failure kind and the offending text span so the
// caller can point at the problem without re-scanning the input.
type ParseError struct {
	Kind  ErrorKind
	Start int    // byte offset of the offending span
	End   int    // byte offset one past the span
	Token string // the offending text
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s at %d-%d: %q", e.Kind, e.Start, e.End, e.Token)
	}
	return fmt.Sprintf("%s at %d-%d", e.Kind, e.Start, e.End)
}

func parseErr(kind ErrorKind, start, end int, token string) *ParseError {
	return &ParseError{Kind: kind, Start: start, End: end, Token: token}
}
