// Package policy provides scripted decision rules for population control.
//
// Every policy binds to one environment at construction and implements
// [ecology.Policy]:
//
//   - [Fixed]: a constant unscaled action
//   - [TargetState]: steers the population towards an absolute level
//   - [TargetParameter]: pushes the tipping parameter towards a target
//   - [Interactive]: reads each action from an injected reader
//   - [PID]: proportional-integral-derivative control of the population
//
// # Usage
//
//	e, _ := env.Stationary(growth.Ricker).New()
//	p := policy.NewTargetState(e, 0.5)
//	traj, _ := sim.Simulate(ctx, e, p, 10)
//
// Policies are baselines; they hold no learned state.
package policy
