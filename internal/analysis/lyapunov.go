package analysis

import (
	"math"

	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/growth"
)

const derivativeStep = 1e-7

// LyapunovExponent estimates the exponent of the one-dimensional map
// x -> Mean(x) as the orbit average of ln|f'(x)|. A positive value
// indicates chaos.
//
// Algorithm:
// 1. Iterate transient steps from x0
// 2. Accumulate ln|f'(x_t)| by central differences for n steps
// 3. λ ≈ (1/n) * Σ ln|f'(x_t)|
func LyapunovExponent(m growth.Model, p ecology.Params, x0 float64, transient, n int) float64 {
	x := x0
	for range transient {
		x = m.Mean(x, p)
	}

	sumLog := 0.0
	count := 0
	for range n {
		d := derivative(m, p, x)
		if d != 0 && !math.IsNaN(d) && !math.IsInf(d, 0) {
			sumLog += math.Log(math.Abs(d))
			count++
		}
		x = m.Mean(x, p)
		if x <= 0 {
			break
		}
	}

	if count == 0 {
		return 0
	}
	return sumLog / float64(count)
}

func derivative(m growth.Model, p ecology.Params, x float64) float64 {
	h := derivativeStep * math.Max(1, math.Abs(x))
	return (m.Mean(x+h, p) - m.Mean(x-h, p)) / (2 * h)
}

// TrajectoryDivergence estimates the exponent from two nearby orbits,
// renormalizing the separation each step.
func TrajectoryDivergence(m growth.Model, p ecology.Params, x0, perturbation float64, n int) float64 {
	if perturbation <= 0 {
		return 0
	}

	x, xp := x0, x0+perturbation
	sumLog := 0.0
	count := 0

	for range n {
		x = m.Mean(x, p)
		xp = m.Mean(xp, p)

		sep := math.Abs(xp - x)
		if sep > 0 {
			sumLog += math.Log(sep / perturbation)
			count++
			// Renormalize to prevent saturation
			xp = x + (xp-x)*perturbation/sep
		}
	}

	if count == 0 {
		return 0
	}
	return sumLog / float64(count)
}
