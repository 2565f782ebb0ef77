package sim

import (
	"encoding/csv"
	"io"
	"slices"
	"strconv"
)

// Reps returns the distinct repetition indices in order of appearance.
func (t Trajectory) Reps() []int {
	var reps []int
	for _, r := range t {
		if !slices.Contains(reps, r.Rep) {
			reps = append(reps, r.Rep)
		}
	}
	return reps
}

// Rep returns the rows of one repetition.
func (t Trajectory) Rep(rep int) Trajectory {
	var out Trajectory
	for _, r := range t {
		if r.Rep == rep {
			out = append(out, r)
		}
	}
	return out
}

// Column extracts one field per row: "state", "action", "reward" or "time".
func (t Trajectory) Column(name string) []float64 {
	out := make([]float64, len(t))
	for i, r := range t {
		switch name {
		case "state":
			out[i] = r.State
		case "action":
			out[i] = r.Action
		case "reward":
			out[i] = r.Reward
		case "time":
			out[i] = float64(r.Time)
		}
	}
	return out
}

// WriteCSV writes the reporting table: time, state, action, reward, rep.
func (t Trajectory) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "state", "action", "reward", "rep"}); err != nil {
		return err
	}
	for _, r := range t {
		rec := []string{
			strconv.Itoa(r.Time),
			strconv.FormatFloat(r.State, 'g', -1, 64),
			strconv.FormatFloat(r.Action, 'g', -1, 64),
			strconv.FormatFloat(r.Reward, 'g', -1, 64),
			strconv.Itoa(r.Rep),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
