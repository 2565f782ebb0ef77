package sim

// Row is one recorded step: the unscaled state before the action, the
// unscaled action taken and the reward received. State is the replicate
// mean and Action the first component; the full vectors are kept in
// States and Actions when they have more than one entry.
type Row struct {
	Time    int       `json:"time"`
	State   float64   `json:"state"`
	Action  float64   `json:"action"`
	Reward  float64   `json:"reward"`
	Rep     int       `json:"rep"`
	Done    bool      `json:"done,omitempty"`
	States  []float64 `json:"states,omitempty"`
	Actions []float64 `json:"actions,omitempty"`
}

// Trajectory is an append-only table of rows.
type Trajectory []Row

// PolicyPoint is one sample of a policy's decision surface.
type PolicyPoint struct {
	State  float64 `json:"state"`
	Action float64 `json:"action"`
	Rep    int     `json:"rep"`
}

type Metric interface {
	Name() string
	Observe(r Row)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(r Row)
}

// Episode summarizes one repetition.
type Episode struct {
	Rep       int                `json:"rep"`
	Steps     int                `json:"steps"`
	Reward    float64            `json:"reward"`
	Collapsed bool               `json:"collapsed"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

type Result struct {
	Trajectory Trajectory         `json:"trajectory"`
	Episodes   []Episode          `json:"episodes"`
	Metrics    map[string]float64 `json:"metrics"`
}
