// Package reader defines the contract shared by spectrum and identification
// sources. Format packages (mgf, sage) implement streaming readers that
// yield one record per Next call.
package reader

import "github.com/mjhoffman/profrag/pkg/core"

// SpectrumSource is a streaming spectrum reader. The usual loop is
//
//	for src.Next() {
//	    spec := src.Spectrum()
//	    ...
//	}
//	if err := src.Err(); err != nil { ... }
type SpectrumSource interface {
	// Next advances to the next spectrum, returning false at the end of
	// input or on error.
	Next() bool
	// Spectrum returns the current spectrum. Only valid after a true Next.
	Spectrum() *core.Spectrum
	// Err returns the error that stopped iteration, or nil at clean EOF.
	Err() error
}
