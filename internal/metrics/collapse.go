package metrics

import "github.com/san-kum/conservation/internal/sim"

// CollapseRate is 1 for an episode that ended before its horizon and 0
// otherwise; averaged over episodes it is the collapse frequency.
type CollapseRate struct {
	name      string
	collapsed bool
}

func NewCollapseRate() *CollapseRate {
	return &CollapseRate{name: "collapse_rate"}
}

func (c *CollapseRate) Name() string { return c.name }

func (c *CollapseRate) Observe(r sim.Row) {
	if r.Done {
		c.collapsed = true
	}
}

func (c *CollapseRate) Value() float64 {
	if c.collapsed {
		return 1
	}
	return 0
}

func (c *CollapseRate) Reset() { c.collapsed = false }
