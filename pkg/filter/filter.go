// Package filter provides spectrum preprocessing: peak pruning ahead of
// matching.
package filter

import (
	"fmt"
	"sort"

	"github.com/mjhoffman/profrag/pkg/core"
)

// Config holds the preprocessing configuration. Zero values disable each
// filter.
type Config struct {
	TopN            int     // keep only the N most intense peaks
	IntensityCutoff float64 // keep only peaks above this % of the base peak
	MinMZ           float64 // drop peaks below this m/z
	MaxMZ           float64 // drop peaks above this m/z
}

// Apply runs the configured filters on the spectrum in place. Peaks stay
// sorted by m/z afterwards.
func (c *Config) Apply(spec *core.Spectrum) error {
	if c.TopN < 0 {
		return fmt.Errorf("invalid filter: top N must be non-negative, got %d", c.TopN)
	}
	if c.IntensityCutoff < 0 || c.IntensityCutoff > 100 {
		return fmt.Errorf("invalid filter: intensity cutoff must be in [0, 100], got %g", c.IntensityCutoff)
	}
	if c.MinMZ > 0 && c.MaxMZ > 0 && c.MinMZ > c.MaxMZ {
		return fmt.Errorf("invalid filter: min m/z %g above max m/z %g", c.MinMZ, c.MaxMZ)
	}

	if c.MinMZ > 0 || c.MaxMZ > 0 {
		c.filterByMZRange(spec)
	}
	if c.IntensityCutoff > 0 {
		c.filterByIntensity(spec)
	}
	if c.TopN > 0 {
		c.filterTopN(spec)
	}
	spec.SortPeaks()
	return nil
}

func (c *Config) filterByMZRange(spec *core.Spectrum) {
	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if c.MinMZ > 0 && peak.MZ < c.MinMZ {
			continue
		}
		if c.MaxMZ > 0 && peak.MZ > c.MaxMZ {
			continue
		}
		filtered = append(filtered, peak)
	}
	spec.Peaks = filtered
}

func (c *Config) filterByIntensity(spec *core.Spectrum) {
	base, idx := spec.BasePeak()
	if idx < 0 {
		return
	}
	threshold := (c.IntensityCutoff / 100.0) * base.Intensity
	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if peak.Intensity >= threshold {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}

func (c *Config) filterTopN(spec *core.Spectrum) {
	if len(spec.Peaks) <= c.TopN {
		return
	}
	peaks := make([]core.Peak, len(spec.Peaks))
	copy(peaks, spec.Peaks)
	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Intensity > peaks[j].Intensity
	})
	spec.Peaks = peaks[:c.TopN]
}

// RemoveZeroIntensityPeaks drops peaks with zero intensity.
func RemoveZeroIntensityPeaks(spec *core.Spectrum) {
	filtered := spec.Peaks[:0]
	for _, peak := range spec.Peaks {
		if peak.Intensity > 0 {
			filtered = append(filtered, peak)
		}
	}
	spec.Peaks = filtered
}
