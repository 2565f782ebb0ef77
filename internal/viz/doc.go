// Package viz provides terminal views of a running conservation episode.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [Model]: steps an environment with a policy and plots the population
//   - [App]: environment and policy picker in front of [Model]
//   - [Canvas]: Braille-based pixel canvas for the population trace
//
// # Key Bindings
//
//	Space - Pause/Resume
//	N     - Advance one year
//	R     - New episode
//	T     - Cycle color themes
//	[]    - Replay recorded years
//	+/-   - Change speed
package viz
