package policy

import (
	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/scaling"
)

// PID drives the mean population towards Target, one call per year.
type PID struct {
	env      ecology.Env
	Kp       float64
	Ki       float64
	Kd       float64
	Target   float64
	integral float64
	prevErr  float64
	first    bool
}

func NewPID(e ecology.Env, kp, ki, kd, target float64) *PID {
	return &PID{
		env:    e,
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		first:  true,
	}
}

func (p *PID) Predict(obs ecology.Observation, deterministic bool) (ecology.Action, any, error) {
	err := p.Target - meanState(p.env, obs)

	var u float64
	if p.first {
		u = p.Kp * err
		p.first = false
	} else {
		p.integral += err
		u = p.Kp*err + p.Ki*p.integral + p.Kd*(err-p.prevErr)
	}
	p.prevErr = err

	k := p.env.Params().K
	u = scaling.Clip(u, 0, 2*k)
	return p.env.ScaleAction(broadcast(p.env, u)), p.integral, nil
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// Params returns tunable gains for live adjustment
func (p *PID) Params() map[string]float64 {
	return map[string]float64{
		"Kp":     p.Kp,
		"Ki":     p.Ki,
		"Kd":     p.Kd,
		"Target": p.Target,
	}
}

// SetParam adjusts a gain by name
func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	case "Target":
		p.Target = value
	}
}
