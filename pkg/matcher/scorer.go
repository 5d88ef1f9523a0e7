package matcher

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mjhoffman/profrag/pkg/core"
)

// Scorer condenses a match report into a single comparable number.
type Scorer interface {
	Score(spec *core.Spectrum, rep *Report) float64
}

// SpectralCount scores by the fraction of theoretical fragments that found a
// peak, in [0, 1].
type SpectralCount struct{}

func (SpectralCount) Score(_ *core.Spectrum, rep *Report) float64 {
	return rep.MatchedFraction()
}

// IntensityWeighted scores by the fraction of total ion current carried by
// the explained peaks, in [0, 1]. Intense matched peaks count for more than
// matched noise.
type IntensityWeighted struct{}

func (IntensityWeighted) Score(spec *core.Spectrum, rep *Report) float64 {
	if len(spec.Peaks) == 0 {
		return 0
	}
	intensities := make([]float64, len(spec.Peaks))
	for i, p := range spec.Peaks {
		intensities[i] = p.Intensity
	}
	tic := floats.Sum(intensities)
	if tic == 0 {
		return 0
	}
	seen := make(map[int]bool, len(rep.Matches))
	explained := 0.0
	for _, m := range rep.Matches {
		if seen[m.PeakIndex] {
			continue
		}
		seen[m.PeakIndex] = true
		explained += spec.Peaks[m.PeakIndex].Intensity
	}
	return explained / tic
}

// MeanAbsoluteErrorPPM returns the mean absolute mass error of the matches
// in ppm, or NaN when nothing matched. Useful as a calibration check next to
// a score.
func MeanAbsoluteErrorPPM(rep *Report) float64 {
	if len(rep.Matches) == 0 {
		return math.NaN()
	}
	errs := make([]float64, len(rep.Matches))
	for i, m := range rep.Matches {
		errs[i] = math.Abs(m.ErrorPPM)
	}
	return stat.Mean(errs, nil)
}
