// Package ecology provides the core types shared by the population control
// simulator.
//
// The package defines the vocabulary every other package speaks:
//
//   - [Params]: named growth, drift and reward coefficients
//   - [Observation]: normalized population vector in [-1, 1]
//   - [Action]: normalized control vector in [-1, 1]
//   - [Policy]: decision rule consumed through Predict
//   - [Env]: the environment surface used by drivers and policies
//
// # Example
//
//	e, _ := registry.Make("conservation-v5", nil)
//	obs := e.Reset()
//	act, _, _ := pol.Predict(obs, true)
//	obs, reward, done, info, err := e.Step(act)
//
// # Thread Safety
//
// Environments are NOT thread-safe. Each goroutine must own its own
// environment instance; see sim.Batch.
package ecology
