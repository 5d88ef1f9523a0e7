package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Peak is a single observed m/z, intensity pair.
type Peak struct {
	MZ        float64
	Intensity float64
	Charge    int // 0 when unknown
}

// Spectrum is an observed spectrum: peaks ordered by m/z plus precursor
// metadata. Raw file ingestion is out of scope; adapters (e.g. the MGF
// reader) produce these values.
type Spectrum struct {
	Title           string
	PrecursorMZ     float64
	PrecursorCharge int
	PrecursorMass   float64 // neutral mass when known, 0 otherwise
	RetentionTime   *float64
	Peaks           []Peak

	SourceFile string
}

// ValidationError represents an error found during validation of a spectrum
// or peptidoform.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum is usable by the matcher.
func (s *Spectrum) Validate() error {
	var errs []string

	if len(s.Peaks) == 0 {
		errs = append(errs, "at least one peak is required")
	}
	for i, peak := range s.Peaks {
		if math.IsNaN(peak.MZ) || math.IsInf(peak.MZ, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid m/z", i))
		}
		if math.IsNaN(peak.Intensity) || math.IsInf(peak.Intensity, 0) {
			errs = append(errs, fmt.Sprintf("peak %d has invalid intensity", i))
		}
		if peak.MZ <= 0 {
			errs = append(errs, fmt.Sprintf("peak %d m/z must be positive", i))
		}
		if peak.Intensity < 0 {
			errs = append(errs, fmt.Sprintf("peak %d intensity must be non-negative", i))
		}
	}
	if !s.ArePeaksSorted() {
		errs = append(errs, "peaks must be sorted by m/z")
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "Spectrum",
			Message: strings.Join(errs, "; "),
		}
	}
	return nil
}

// ArePeaksSorted checks if peaks are sorted by m/z in ascending order.
func (s *Spectrum) ArePeaksSorted() bool {
	for i := 1; i < len(s.Peaks); i++ {
		if s.Peaks[i].MZ < s.Peaks[i-1].MZ {
			return false
		}
	}
	return true
}

// SortPeaks sorts peaks by m/z in ascending order.
func (s *Spectrum) SortPeaks() {
	sort.Slice(s.Peaks, func(i, j int) bool {
		return s.Peaks[i].MZ < s.Peaks[j].MZ
	})
}

// BasePeak returns the most intense peak and its index, or -1 for an empty
// spectrum.
func (s *Spectrum) BasePeak() (Peak, int) {
	idx := -1
	best := 0.0
	for i, p := range s.Peaks {
		if p.Intensity > best || idx == -1 {
			best = p.Intensity
			idx = i
		}
	}
	if idx == -1 {
		return Peak{}, -1
	}
	return s.Peaks[idx], idx
}

// TotalIonCurrent returns the summed intensity of all peaks.
func (s *Spectrum) TotalIonCurrent() float64 {
	total := 0.0
	for _, p := range s.Peaks {
		total += p.Intensity
	}
	return total
}
