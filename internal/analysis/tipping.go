package analysis

import (
	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/growth"
)

// Equilibrium is the long-run state reached from x0 for one parameter value.
type Equilibrium struct {
	Param float64
	State float64
}

// Equilibria iterates the map for transient steps at each swept value and
// reports the final state.
func Equilibria(m growth.Model, p ecology.Params, sw Sweep, x0 float64, transient int) ([]Equilibrium, error) {
	if _, err := p.Get(sw.Name); err != nil {
		return nil, err
	}

	vals := sw.Values()
	out := make([]Equilibrium, 0, len(vals))
	for _, v := range vals {
		q := p
		if err := q.Set(sw.Name, v); err != nil {
			return nil, err
		}
		x := x0
		for range transient {
			x = m.Mean(x, q)
		}
		out = append(out, Equilibrium{Param: v, State: x})
	}
	return out, nil
}

// TippingPoint returns the first swept value whose equilibrium falls below
// threshold, starting from the high state x0. found is false when the
// equilibrium stays above threshold over the whole sweep.
func TippingPoint(m growth.Model, p ecology.Params, sw Sweep, x0 float64, transient int, threshold float64) (value float64, found bool, err error) {
	eq, err := Equilibria(m, p, sw, x0, transient)
	if err != nil {
		return 0, false, err
	}
	for _, e := range eq {
		if e.State < threshold {
			return e.Param, true, nil
		}
	}
	return 0, false, nil
}
