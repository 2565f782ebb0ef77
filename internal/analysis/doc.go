// Package analysis characterizes the deterministic growth maps and
// recorded population trajectories.
//
//   - [BifurcationDiagram]: long-run states of x -> Mean(x) over a parameter sweep
//   - [TippingPoint]: first parameter value where the long-run state collapses
//   - [LyapunovExponent]: mean log-derivative of the map along an orbit
//   - [ReturnMap]: (x_t, x_t+1) pairs of a trajectory
//   - [PowerSpectrum]: FFT magnitudes of a trajectory
//
// # Cycles and chaos
//
// A positive Lyapunov exponent indicates chaotic dynamics:
//
//	lambda := analysis.LyapunovExponent(growth.Ricker, p, 0.5, 200, 1000)
//	if lambda > 0 {
//	    // map is chaotic at these parameters
//	}
package analysis
