package metrics

import "github.com/san-kum/conservation/internal/sim"

// EpisodeReward is the undiscounted reward collected in one episode.
type EpisodeReward struct {
	name string
	sum  float64
}

func NewEpisodeReward() *EpisodeReward {
	return &EpisodeReward{name: "episode_reward"}
}

func (e *EpisodeReward) Name() string      { return e.name }
func (e *EpisodeReward) Observe(r sim.Row) { e.sum += r.Reward }
func (e *EpisodeReward) Value() float64    { return e.sum }
func (e *EpisodeReward) Reset()            { e.sum = 0 }

// Standard is the metric set reported by the CLI.
func Standard(threshold float64) []sim.Metric {
	return []sim.Metric{
		NewEpisodeReward(),
		NewActionEffort(),
		NewPersistence(threshold),
		NewCollapseRate(),
		NewMinState(),
	}
}
