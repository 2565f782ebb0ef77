package growth

import "github.com/san-kum/conservation/internal/ecology"

// DefaultParams returns the stock coefficients for a stationary environment
// driven by m. The per-model noise and initial states are not uniform.
func DefaultParams(m Model) ecology.Params {
	base := ecology.Params{Cost: 2.0, Benefit: 1.0}
	switch m {
	case Allen:
		base.R, base.K, base.C, base.Sigma, base.X0 = 0.3, 1, 0.5, 0.01, 0.75
	case BevertonHolt:
		base.R, base.K, base.Sigma, base.X0 = 0.3, 1, 0.01, 0.75
	case Myers:
		base.R, base.K, base.M, base.Theta, base.Sigma, base.X0 = 1.0, 1.0, 1.0, 3.0, 0.01, 1.5
	case May:
		base.R, base.K, base.M, base.Q, base.B = 0.7, 1.5, 1.5, 3, 0.15
		base.Sigma, base.A, base.X0 = 0.01, 0.2, 0.75
	default:
		base.R, base.K, base.Sigma, base.X0 = 0.3, 1, 0.01, 0.75
	}
	return base
}
