package metrics

import (
	"math"

	"github.com/san-kum/conservation/internal/sim"
)

// ActionEffort is the mean absolute unscaled action per step, summed over
// action components.
type ActionEffort struct {
	name    string
	sum     float64
	samples int
}

func NewActionEffort() *ActionEffort {
	return &ActionEffort{
		name: "action_effort",
	}
}

func (c *ActionEffort) Name() string {
	return c.name
}

func (c *ActionEffort) Observe(r sim.Row) {
	if len(r.Actions) > 0 {
		for _, val := range r.Actions {
			c.sum += math.Abs(val)
		}
	} else {
		c.sum += math.Abs(r.Action)
	}
	c.samples++
}

func (c *ActionEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ActionEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
