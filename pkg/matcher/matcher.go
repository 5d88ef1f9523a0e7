// Package matcher assigns theoretical fragments to observed spectrum peaks
// under a mass tolerance and scores the resulting annotation.
package matcher

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mjhoffman/profrag/pkg/core"
	"github.com/mjhoffman/profrag/pkg/fragment"
)

// Tolerance is a symmetric mass window, either relative (ppm) or absolute
// (Da). There is no default: callers state the tolerance explicitly.
type Tolerance struct {
	Value float64
	PPM   bool
}

// PPM returns a relative tolerance in parts per million.
func PPM(v float64) Tolerance { return Tolerance{Value: v, PPM: true} }

// Da returns an absolute tolerance in dalton.
func Da(v float64) Tolerance { return Tolerance{Value: v} }

// Window returns the half-width of the window around mz, in m/z units.
func (t Tolerance) Window(mz float64) float64 {
	if t.PPM {
		return mz * t.Value * 1e-6
	}
	return t.Value
}

// Within reports whether observed falls inside the window around theoretical.
func (t Tolerance) Within(theoretical, observed float64) bool {
	return math.Abs(observed-theoretical) <= t.Window(theoretical)
}

func (t Tolerance) String() string {
	if t.PPM {
		return strconv.FormatFloat(t.Value, 'g', -1, 64) + "ppm"
	}
	return strconv.FormatFloat(t.Value, 'g', -1, 64) + "da"
}

// ParseTolerance parses a tolerance such as "10ppm" or "0.02da". The unit is
// mandatory.
func ParseTolerance(s string) (Tolerance, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	var unit string
	switch {
	case strings.HasSuffix(trimmed, "ppm"):
		unit = "ppm"
	case strings.HasSuffix(trimmed, "da"):
		unit = "da"
	default:
		return Tolerance{}, fmt.Errorf("invalid tolerance %q: unit must be ppm or da", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(trimmed, unit)), 64)
	if err != nil {
		return Tolerance{}, fmt.Errorf("invalid tolerance %q: %w", s, err)
	}
	if v <= 0 {
		return Tolerance{}, fmt.Errorf("invalid tolerance %q: must be positive", s)
	}
	return Tolerance{Value: v, PPM: unit == "ppm"}, nil
}

// PeakMatch pairs one observed peak with one theoretical fragment.
type PeakMatch struct {
	PeakIndex int
	Fragment  fragment.Fragment
	ErrorDa   float64 // observed minus theoretical
	ErrorPPM  float64
}

// Report is the outcome of matching one fragment list against one spectrum.
type Report struct {
	Matches            []PeakMatch
	UnmatchedFragments []fragment.Fragment
	// UnexplainedPeaks indexes the peaks no fragment accounts for.
	UnexplainedPeaks []int
}

// MatchedFraction returns the fraction of fragments that found a peak.
func (r *Report) MatchedFraction() float64 {
	total := len(r.Matches) + len(r.UnmatchedFragments)
	if total == 0 {
		return 0
	}
	return float64(len(r.Matches)) / float64(total)
}

// PeptidoformMatches returns the matches attributed to one member of the
// peptidoform set, for chimeric attribution.
func (r *Report) PeptidoformMatches(idx int) []PeakMatch {
	var out []PeakMatch
	for _, m := range r.Matches {
		if m.Fragment.Peptidoform == idx {
			out = append(out, m)
		}
	}
	return out
}

// PeakAttribution returns, per matched peak index, the sorted set of
// peptidoform indices whose fragments explain that peak. A peak shared by
// fragments of several chimeric members lists every member once.
func (r *Report) PeakAttribution() map[int][]int {
	out := make(map[int][]int)
	for _, m := range r.Matches {
		seen := false
		for _, idx := range out[m.PeakIndex] {
			if idx == m.Fragment.Peptidoform {
				seen = true
				break
			}
		}
		if !seen {
			out[m.PeakIndex] = append(out[m.PeakIndex], m.Fragment.Peptidoform)
		}
	}
	for _, idxs := range out {
		sort.Ints(idxs)
	}
	return out
}

// Match assigns each fragment to the best peak inside the tolerance window
// around its theoretical m/z: smallest absolute error wins, ties go to the
// more intense peak. A peak may explain several fragments (distinct
// fragments, or members of a chimeric set, can share a peak). The spectrum's
// peaks must be sorted by m/z; Match sorts a copy when they are not.
func Match(spec *core.Spectrum, frags []fragment.Fragment, tol Tolerance) *Report {
	type indexedPeak struct {
		core.Peak
		idx int
	}
	peaks := make([]indexedPeak, len(spec.Peaks))
	for i, p := range spec.Peaks {
		peaks[i] = indexedPeak{Peak: p, idx: i}
	}
	if !spec.ArePeaksSorted() {
		sort.Slice(peaks, func(i, j int) bool { return peaks[i].MZ < peaks[j].MZ })
	}

	rep := &Report{}
	explained := make([]bool, len(spec.Peaks))
	for _, f := range frags {
		mz := f.MZ()
		window := tol.Window(mz)
		lo := sort.Search(len(peaks), func(i int) bool { return peaks[i].MZ >= mz-window })
		best := -1
		bestErr := math.Inf(1)
		for i := lo; i < len(peaks) && peaks[i].MZ <= mz+window; i++ {
			err := math.Abs(peaks[i].MZ - mz)
			if err < bestErr || (err == bestErr && best >= 0 && peaks[i].Intensity > peaks[best].Intensity) {
				bestErr = err
				best = i
			}
		}
		if best < 0 {
			rep.UnmatchedFragments = append(rep.UnmatchedFragments, f)
			continue
		}
		p := peaks[best]
		rep.Matches = append(rep.Matches, PeakMatch{
			PeakIndex: p.idx,
			Fragment:  f,
			ErrorDa:   p.MZ - mz,
			ErrorPPM:  (p.MZ - mz) / mz * 1e6,
		})
		explained[p.idx] = true
	}
	for i := range spec.Peaks {
		if !explained[i] {
			rep.UnexplainedPeaks = append(rep.UnexplainedPeaks, i)
		}
	}
	return rep
}
