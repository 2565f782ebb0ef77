// Package scaling maps between the normalized control interface and
// physical population units.
package scaling

import "math"

// Continuous maps [-1, 1] onto [0, 2K].
type Continuous struct {
	K float64
}

// UnscaleAction clips a into [-1, 1] and maps it onto [0, 2K].
func (c Continuous) UnscaleAction(a float64) float64 {
	return (Clip(a, -1, 1) + 1) * c.K
}

// ScaleAction is the inverse of UnscaleAction on [0, 2K].
func (c Continuous) ScaleAction(u float64) float64 {
	return u/c.K - 1
}

// UnscaleState maps an observation onto population units without clipping.
func (c Continuous) UnscaleState(obs float64) float64 {
	return (obs + 1) * c.K
}

// ScaleState maps a population onto an observation.
func (c Continuous) ScaleState(x float64) float64 {
	return x/c.K - 1
}

// Discrete maps an action index in [0, N] onto a fraction of K.
type Discrete struct {
	N int
	K float64
}

// UnscaleAction maps index i onto (i/N)*K, clipping i into [0, N].
func (d Discrete) UnscaleAction(i float64) float64 {
	return (math.Round(Clip(i, 0, float64(d.N))) / float64(d.N)) * d.K
}

// ScaleAction rounds u to the nearest action index.
func (d Discrete) ScaleAction(u float64) float64 {
	return math.Round(u * float64(d.N) / d.K)
}

// Clip bounds v into [lo, hi]. NaN clips to lo.
func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
