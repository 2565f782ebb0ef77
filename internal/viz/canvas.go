package viz

import (
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a braille pixel grid. Its size in sub-pixels is
// (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the sub-pixel at (x, y); out of range pixels are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// row maps v in [lo, hi] onto a sub-pixel row, hi at the top.
func (c *Canvas) row(v, lo, hi float64) int {
	h := c.Height*4 - 1
	if hi <= lo {
		return h
	}
	f := (v - lo) / (hi - lo)
	f = min(max(f, 0), 1)
	return h - int(f*float64(h)+0.5)
}

// PlotSeries draws the most recent values as a connected line scaled
// into [lo, hi]. Values outside the range are pinned to the edge.
func (c *Canvas) PlotSeries(values []float64, lo, hi float64) {
	w := c.Width * 2
	if len(values) > w {
		values = values[len(values)-w:]
	}
	for i, v := range values {
		y := c.row(v, lo, hi)
		if i == 0 {
			c.Set(0, y)
			continue
		}
		c.DrawLine(i-1, c.row(values[i-1], lo, hi), i, y)
	}
}

// HLine draws a dotted horizontal reference at v.
func (c *Canvas) HLine(v, lo, hi float64) {
	y := c.row(v, lo, hi)
	for x := 0; x < c.Width*2; x += 3 {
		c.Set(x, y)
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
