package analysis

import (
	"github.com/san-kum/conservation/internal/ecology"
	"github.com/san-kum/conservation/internal/growth"
)

// Point is one (x_t, x_t+1) pair.
type Point struct {
	X, Y float64
}

// ReturnMap pairs every state with its successor.
func ReturnMap(states []float64) []Point {
	if len(states) < 2 {
		return nil
	}
	pts := make([]Point, len(states)-1)
	for i := range pts {
		pts[i] = Point{X: states[i], Y: states[i+1]}
	}
	return pts
}

// Orbit iterates the deterministic map n times from x0, including x0.
func Orbit(m growth.Model, p ecology.Params, x0 float64, n int) []float64 {
	xs := make([]float64, 0, n+1)
	x := x0
	xs = append(xs, x)
	for range n {
		x = m.Mean(x, p)
		xs = append(xs, x)
	}
	return xs
}

// Cobweb samples the map itself over [0, hi] for plotting against the
// identity line.
func Cobweb(m growth.Model, p ecology.Params, hi float64, n int) []Point {
	if n < 2 {
		return nil
	}
	pts := make([]Point, n)
	for i := range pts {
		x := hi * float64(i) / float64(n-1)
		pts[i] = Point{X: x, Y: m.Mean(x, p)}
	}
	return pts
}

// ReturnMapToASCII converts return map points to ASCII art, with the
// identity line drawn where it is visible.
func ReturnMapToASCII(points []Point, width, height int) string {
	if len(points) == 0 || width <= 1 || height <= 1 {
		return ""
	}

	lo, hi := points[0].X, points[0].X
	for _, p := range points {
		lo = min(lo, p.X, p.Y)
		hi = max(hi, p.X, p.Y)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	lo -= span * 0.1
	hi += span * 0.1
	span = hi - lo

	c := newCanvas(width, height)
	for col := range width {
		v := lo + span*float64(col)/float64(width-1)
		row := height - 1 - int((v-lo)/span*float64(height-1))
		c.set(row, col, '·')
	}
	for _, p := range points {
		col := int((p.X - lo) / span * float64(width-1))
		row := height - 1 - int((p.Y-lo)/span*float64(height-1))
		c.set(row, col, '•')
	}
	return c.String()
}
