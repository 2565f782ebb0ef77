package metrics

import (
	"math"

	"github.com/san-kum/conservation/internal/sim"
)

// Persistence is the fraction of steps whose population exceeds a
// threshold. Ensembles count a step only when every replicate does.
type Persistence struct {
	name      string
	threshold float64
	above     int
	samples   int
}

func NewPersistence(threshold float64) *Persistence {
	return &Persistence{
		name:      "persistence",
		threshold: threshold,
	}
}

func (p *Persistence) Name() string {
	return p.name
}

func (p *Persistence) Observe(r sim.Row) {
	p.samples++
	states := r.States
	if len(states) == 0 {
		states = []float64{r.State}
	}
	for _, x := range states {
		if x <= p.threshold {
			return
		}
	}
	p.above++
}

func (p *Persistence) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return float64(p.above) / float64(p.samples)
}

func (p *Persistence) Reset() {
	p.above = 0
	p.samples = 0
}

// MinState is the lowest mean population seen before an action.
type MinState struct {
	name string
	min  float64
}

func NewMinState() *MinState {
	return &MinState{name: "min_state", min: math.Inf(1)}
}

func (m *MinState) Name() string { return m.name }

func (m *MinState) Observe(r sim.Row) {
	m.min = math.Min(m.min, r.State)
}

func (m *MinState) Value() float64 {
	if math.IsInf(m.min, 1) {
		return 0
	}
	return m.min
}

func (m *MinState) Reset() { m.min = math.Inf(1) }
