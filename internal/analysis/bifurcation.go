package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/growth"
)

// BifurcationPoint represents the long-run states for a given parameter value
type BifurcationPoint struct {
	Param  float64
	Values []float64 // Distinct states visited after the transient
}

// Sweep describes a parameter range.
type Sweep struct {
	Name  string
	Min   float64
	Max   float64
	Steps int
}

// Values returns Steps evenly spaced values from Min to Max.
func (s Sweep) Values() []float64 {
	if s.Steps <= 1 {
		return []float64{s.Min}
	}
	vals := make([]float64, s.Steps)
	step := (s.Max - s.Min) / float64(s.Steps-1)
	for i := range vals {
		vals[i] = s.Min + float64(i)*step
	}
	return vals
}

// BifurcationDiagram iterates the deterministic map from x0 for every
// parameter value, discards transient steps and records the distinct
// states of the next record steps.
func BifurcationDiagram(m growth.Model, p ecology.Params, sw Sweep, x0 float64, transient, record int) ([]BifurcationPoint, error) {
	if _, err := p.Get(sw.Name); err != nil {
		return nil, err
	}
	if record < 1 {
		return nil, fmt.Errorf("record steps must be positive, got %d", record)
	}

	vals := sw.Values()
	results := make([]BifurcationPoint, 0, len(vals))

	for _, v := range vals {
		q := p
		if err := q.Set(sw.Name, v); err != nil {
			return nil, err
		}

		x := x0
		for range transient {
			x = m.Mean(x, q)
		}

		values := make([]float64, 0, 16)
		for range record {
			x = m.Mean(x, q)
			if !visited(values, x) {
				values = append(values, x)
			}
		}

		results = append(results, BifurcationPoint{Param: v, Values: values})
	}

	return results, nil
}

const distinctTol = 1e-4

func visited(values []float64, x float64) bool {
	for _, v := range values {
		if math.Abs(v-x) < distinctTol {
			return true
		}
	}
	return false
}

// BifurcationToASCII converts bifurcation data to ASCII art
func BifurcationToASCII(data []BifurcationPoint, width, height int) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	var minVal, maxVal float64
	found := false
	for _, p := range data {
		for _, v := range p.Values {
			if !found {
				minVal, maxVal = v, v
				found = true
				continue
			}
			minVal = min(minVal, v)
			maxVal = max(maxVal, v)
		}
	}
	if !found {
		return ""
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	canvas := newCanvas(width, height)
	for i, p := range data {
		col := min(i*width/len(data), width-1)
		for _, v := range p.Values {
			row := height - 1 - int((v-minVal)/(maxVal-minVal)*float64(height-1))
			canvas.set(row, col, '•')
		}
	}
	return canvas.String()
}

type canvas [][]rune

func newCanvas(width, height int) canvas {
	c := make(canvas, height)
	for i := range c {
		c[i] = []rune(strings.Repeat(" ", width))
	}
	return c
}

func (c canvas) set(row, col int, r rune) {
	if row >= 0 && row < len(c) && col >= 0 && col < len(c[row]) {
		c[row][col] = r
	}
}

func (c canvas) String() string {
	var sb strings.Builder
	for _, row := range c {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
