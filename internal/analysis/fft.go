package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns the FFT magnitudes of the mean-removed series for
// frequencies 0 .. n/2-1. Any length is accepted.
func PowerSpectrum(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}

	mean := stat.Mean(data, nil)
	centered := make([]float64, len(data))
	for i, v := range data {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	ps := make([]float64, len(coeffs)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(coeffs[i])
	}
	return ps
}

// DominantPeriod returns the period, in steps, of the strongest non-zero
// frequency, or 0 for a flat series.
func DominantPeriod(data []float64) float64 {
	ps := PowerSpectrum(data)
	best, bestPow := 0, 0.0
	for i := 1; i < len(ps); i++ {
		if ps[i] > bestPow {
			best, bestPow = i, ps[i]
		}
	}
	if best == 0 || bestPow < 1e-9 {
		return 0
	}
	return float64(len(data)) / float64(best)
}
