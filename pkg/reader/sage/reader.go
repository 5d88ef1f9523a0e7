// Package sage provides a streaming reader for Sage search results (TSV).
// The peptide column uses bracketed mass offsets (e.g. "EM[+15.9949]K"),
// which parse as ProForma.
package sage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mjhoffman/profrag/pkg/core"
	"github.com/mjhoffman/profrag/pkg/proforma"
)

// Record is one peptide-spectrum match from a results file.
type Record struct {
	Set      *core.PeptidoformSet
	Peptide  string // the peptide column as written
	Charge   int
	Scan     string
	Filename string
	Score    float64
}

// Reader provides streaming access to a Sage results file.
type Reader struct {
	csv     *csv.Reader
	cols    map[string]int
	lineNum int
	current *Record
	err     error
}

// NewReader creates a reader and consumes the header line. The peptide
// column is required; charge, scannr, filename, and score columns are
// optional.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read results header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	if _, ok := cols["peptide"]; !ok {
		return nil, fmt.Errorf("results file has no peptide column")
	}
	return &Reader{csv: cr, cols: cols, lineNum: 1}, nil
}

// Next advances to the next record. Returns false when no more records or
// on error.
func (r *Reader) Next() bool {
	r.current = nil
	row, err := r.csv.Read()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}
	r.lineNum++
	rec, err := r.parseRow(row)
	if err != nil {
		r.err = fmt.Errorf("line %d: %w", r.lineNum, err)
		return false
	}
	r.current = rec
	return true
}

// Record returns the current record.
func (r *Reader) Record() *Record {
	return r.current
}

// Err returns any error encountered during reading.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) field(row []string, name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (r *Reader) parseRow(row []string) (*Record, error) {
	peptide := r.field(row, "peptide")
	if peptide == "" {
		return nil, fmt.Errorf("empty peptide column")
	}
	set, err := proforma.Parse(peptide)
	if err != nil {
		return nil, fmt.Errorf("peptide %q: %w", peptide, err)
	}
	rec := &Record{
		Set:      set,
		Peptide:  peptide,
		Scan:     r.field(row, "scannr"),
		Filename: r.field(row, "filename"),
	}
	if v := r.field(row, "charge"); v != "" {
		z, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid charge %q: %w", v, err)
		}
		rec.Charge = z
	}
	for _, col := range []string{"sage_discriminant_score", "hyperscore"} {
		if v := r.field(row, col); v != "" {
			score, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid score %q: %w", v, err)
			}
			rec.Score = score
			break
		}
	}
	return rec, nil
}
