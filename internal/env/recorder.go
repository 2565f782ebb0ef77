package env

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
)

// Recorder appends one CSV row per step. A replicate column is written
// only when there is more than one replicate.
type Recorder struct {
	mu         sync.Mutex
	f          *os.File
	w          *csv.Writer
	replicates int
	closed     bool
}

// OpenRecorder truncates path and writes the header.
func OpenRecorder(path string, replicates, actionDim int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open trajectory log: %w", err)
	}

	r := &Recorder{f: f, w: csv.NewWriter(f), replicates: replicates}

	header := []string{"years_passed"}
	if replicates > 1 {
		header = append(header, "replicate")
	}
	header = append(header, "unscaled_state")
	if actionDim == 1 {
		header = append(header, "unscaled_action")
	} else {
		for i := range actionDim {
			header = append(header, fmt.Sprintf("unscaled_action%d", i))
		}
	}
	header = append(header, "reward")

	if err := r.w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Write records the populations of every replicate at time t.
func (r *Recorder) Write(t int, states, actions []float64, reward float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return fmt.Errorf("write trajectory log: file already closed")
	}

	for i, x := range states {
		row := []string{strconv.Itoa(t)}
		if r.replicates > 1 {
			row = append(row, strconv.Itoa(i))
		}
		row = append(row, formatFloat(x))
		for _, u := range actions {
			row = append(row, formatFloat(u))
		}
		row = append(row, formatFloat(reward))
		if err := r.w.Write(row); err != nil {
			return err
		}
	}
	r.w.Flush()
	return r.w.Error()
}

// Closed reports whether Close has been called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close flushes and closes the file. Subsequent calls are no-ops.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
