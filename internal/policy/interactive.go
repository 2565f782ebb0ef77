package policy

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/conservation/internal/ecology"
)

// Interactive asks for every action. One number applies to all
// components; otherwise one number per component is expected.
type Interactive struct {
	env ecology.Env
	in  *bufio.Reader
	out io.Writer
}

func NewInteractive(e ecology.Env, in io.Reader, out io.Writer) *Interactive {
	return &Interactive{env: e, in: bufio.NewReader(in), out: out}
}

func (p *Interactive) Predict(obs ecology.Observation, deterministic bool) (ecology.Action, any, error) {
	state := p.env.UnscaleState(obs)
	var shown any = state
	if len(state) == 1 {
		shown = state[0]
	}
	if _, err := fmt.Fprintf(p.out, "state: %v. Your action: ", shown); err != nil {
		return nil, obs, err
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || strings.TrimSpace(line) == "") {
		return nil, obs, fmt.Errorf("read action: %w", err)
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, obs, fmt.Errorf("read action: empty input")
	}
	values := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, obs, fmt.Errorf("parse action %q: %w", f, err)
		}
		values[i] = v
	}

	switch {
	case len(values) == 1:
		values = broadcast(p.env, values[0])
	case len(values) != p.env.ActionDim():
		return nil, obs, fmt.Errorf("%w: got %d values, want %d",
			ecology.ErrDimensionMismatch, len(values), p.env.ActionDim())
	}

	return p.env.ScaleAction(values), obs, nil
}
