// Package mgf provides a streaming reader for Mascot Generic Format peak
// lists.
package mgf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mjhoffman/profrag/pkg/chem"
	"github.com/mjhoffman/profrag/pkg/core"
)

// Reader provides streaming access to MGF files. One BEGIN IONS/END IONS
// block yields one spectrum.
type Reader struct {
	scanner *bufio.Scanner
	source  string
	lineNum int
	current *core.Spectrum
	err     error
}

// NewReader creates an MGF reader. source names the input (usually the file
// path) and is recorded on every spectrum.
func NewReader(r io.Reader, source string) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{scanner: sc, source: source}
}

// Next advances to the next spectrum. Returns false when no more spectra or
// on error.
func (r *Reader) Next() bool {
	r.current = nil
	spec, err := r.readSpectrum()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}
	r.current = spec
	return true
}

// Spectrum returns the current spectrum.
func (r *Reader) Spectrum() *core.Spectrum {
	return r.current
}

// Err returns any error encountered during reading.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) readSpectrum() (*core.Spectrum, error) {
	inBlock := false
	spec := &core.Spectrum{SourceFile: r.source}

	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}
		// Comment markers and global parameters outside a block.
		if !inBlock {
			if line == "BEGIN IONS" {
				inBlock = true
			}
			continue
		}
		if line == "END IONS" {
			r.finish(spec)
			return spec, nil
		}
		switch c := line[0]; {
		case c == '#' || c == ';' || c == '!':
			continue
		case strings.ContainsRune(line, '='):
			if err := r.parseHeader(spec, line); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
		default:
			peak, err := r.parsePeak(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
			}
			spec.Peaks = append(spec.Peaks, peak)
		}
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if inBlock {
		return nil, fmt.Errorf("line %d: unterminated BEGIN IONS block", r.lineNum)
	}
	return nil, io.EOF
}

func (r *Reader) parseHeader(spec *core.Spectrum, line string) error {
	key, value, _ := strings.Cut(line, "=")
	switch strings.ToUpper(key) {
	case "TITLE":
		spec.Title = value
	case "PEPMASS":
		// PEPMASS carries the precursor m/z, optionally followed by
		// intensity.
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return fmt.Errorf("empty PEPMASS")
		}
		mz, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("invalid PEPMASS %q: %w", value, err)
		}
		spec.PrecursorMZ = mz
	case "CHARGE":
		z, err := parseCharge(value)
		if err != nil {
			return err
		}
		spec.PrecursorCharge = z
	case "RTINSECONDS":
		rt, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid RTINSECONDS %q: %w", value, err)
		}
		spec.RetentionTime = &rt
	default:
		// SCANS and other parameters are ignored.
	}
	return nil
}

// parseCharge accepts "2+", "+2", "2", and their negative forms.
func parseCharge(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty CHARGE")
	}
	sign := 1
	switch s[len(s)-1] {
	case '+':
		s = s[:len(s)-1]
	case '-':
		sign = -1
		s = s[:len(s)-1]
	}
	z, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid CHARGE %q: %w", s, err)
	}
	return sign * z, nil
}

// parsePeak parses "mz intensity" with an optional trailing charge column.
func (r *Reader) parsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak line %q: expected at least m/z and intensity", line)
	}
	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z %q: %w", fields[0], err)
	}
	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity %q: %w", fields[1], err)
	}
	peak := core.Peak{MZ: mz, Intensity: intensity}
	if len(fields) >= 3 {
		if z, err := parseCharge(fields[2]); err == nil {
			peak.Charge = z
		}
	}
	return peak, nil
}

// finish derives the neutral precursor mass and restores peak order.
func (r *Reader) finish(spec *core.Spectrum) {
	if spec.PrecursorMZ > 0 && spec.PrecursorCharge > 0 {
		z := float64(spec.PrecursorCharge)
		spec.PrecursorMass = spec.PrecursorMZ*z - z*chem.ProtonMass
	}
	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}
}
