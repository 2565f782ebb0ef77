// Package growth implements the stochastic population growth laws.
//
// Every law builds a log-scale mean mu from the current population and
// draws the next population from LogNormal(mu, sigma). Singular
// expressions (log of zero or a negative number, 0/0) floor the result at
// zero instead of failing.
package growth

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/san-kum/conservation/internal/ecology"
	"gonum.org/v1/gonum/stat/distuv"
)

// Model selects one of the growth laws.
type Model int

const (
	Ricker Model = iota
	BevertonHolt
	Allen
	Myers
	May
)

var modelNames = [...]string{
	Ricker:       "ricker",
	BevertonHolt: "beverton_holt",
	Allen:        "allen",
	Myers:        "myers",
	May:          "may",
}

func (m Model) String() string {
	if m < 0 || int(m) >= len(modelNames) {
		return fmt.Sprintf("model(%d)", int(m))
	}
	return modelNames[m]
}

// Parse looks a model up by name.
func Parse(name string) (Model, error) {
	n := strings.ToLower(strings.ReplaceAll(name, "-", "_"))
	for i, s := range modelNames {
		if s == n {
			return Model(i), nil
		}
	}
	return 0, fmt.Errorf("unknown growth model: %s", name)
}

// All returns every model in declaration order.
func All() []Model {
	return []Model{Ricker, BevertonHolt, Allen, Myers, May}
}

// LogMean returns mu for population x. The result may be NaN or -Inf when
// the law is singular at x.
func (m Model) LogMean(x float64, p ecology.Params) float64 {
	switch m {
	case Ricker:
		return math.Log(x) + p.R*(1-x/p.K)
	case BevertonHolt:
		x = math.Max(x, 0)
		a := math.Max(p.R, 0) + 1
		b := math.Max(p.K, 0) / math.Max(p.R, 0)
		return math.Log(a) + math.Log(x) - math.Log(1+x/b)
	case Allen:
		return math.Log(x) + p.R*(1-x/p.K)*(1-p.C)/p.K
	case Myers:
		a := p.R + 1
		return math.Log(a) + p.Theta*math.Log(x) - math.Log(1+math.Pow(x, p.Theta)/p.M)
	case May:
		xq := math.Pow(x, p.Q)
		v := x + x*p.R*(1-x/p.M) - p.A*xq/(xq+math.Pow(p.B, p.Q))
		if v < 0 {
			v = 0
		}
		return math.Log(v)
	}
	return math.NaN()
}

// Mean is the deterministic map x -> exp(mu), floored at zero.
func (m Model) Mean(x float64, p ecology.Params) float64 {
	mu := m.LogMean(x, p)
	if singular(mu) {
		return 0
	}
	return math.Exp(mu)
}

// Draw samples the next population. A nil src uses the global generator.
// With p.Sigma == 0 the draw equals Mean exactly.
func (m Model) Draw(x float64, p ecology.Params, src rand.Source) float64 {
	mu := m.LogMean(x, p)
	if singular(mu) {
		return 0
	}
	d := distuv.LogNormal{Mu: mu, Sigma: p.Sigma, Src: src}
	next := d.Rand()
	if math.IsNaN(next) || next < 0 {
		return 0
	}
	return next
}

func singular(mu float64) bool {
	return math.IsNaN(mu) || math.IsInf(mu, -1)
}
