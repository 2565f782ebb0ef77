package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/conservation/internal/sim"
)

const (
	width       = 70
	height      = 16
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer is a simulator observer that redraws a scrolling strip
// chart of the population while an experiment runs.
type LiveRenderer struct {
	out       io.Writer
	title     string
	k         float64
	frameRate int
	lastFrame time.Time
	canvas    [][]rune
	trail     []sim.Row
}

// NewLiveRenderer draws populations on [0, 2k]. A frameRate of zero or
// less redraws on every step.
func NewLiveRenderer(out io.Writer, title string, k float64, frameRate int) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return &LiveRenderer{
		out:       out,
		title:     title,
		k:         k,
		frameRate: frameRate,
		canvas:    canvas,
		trail:     make([]sim.Row, 0, width),
	}
}

func (r *LiveRenderer) OnStep(row sim.Row) {
	if len(r.trail) > 0 && row.Rep != r.trail[len(r.trail)-1].Rep {
		r.trail = r.trail[:0]
	}
	r.trail = append(r.trail, row)
	if len(r.trail) > width {
		r.trail = r.trail[1:]
	}

	if r.frameRate > 0 {
		if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) && !row.Done {
			return
		}
		r.lastFrame = time.Now()
	}

	r.clear()
	r.draw()
	r.render(row)
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

// level maps a population onto a canvas row, 2k at the top.
func (r *LiveRenderer) level(v float64) int {
	hi := 2 * r.k
	if hi <= 0 {
		hi = 1
	}
	f := min(max(v/hi, 0), 1)
	return height - 1 - int(f*float64(height-1)+0.5)
}

func (r *LiveRenderer) draw() {
	ky := r.level(r.k)
	for x := 0; x < width; x += 2 {
		r.set(x, ky, '-')
	}
	for x, row := range r.trail {
		y := r.level(row.State)
		for yy := y + 1; yy < height; yy++ {
			if r.canvas[yy][x] == ' ' {
				r.set(x, yy, '.')
			}
		}
		c := 'o'
		if row.Done {
			c = 'X'
		}
		r.set(x, y, c)
	}
}

func (r *LiveRenderer) render(row sim.Row) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  rep=%d year=%d\n", r.title, row.Rep, row.Time))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, line := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(line))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	b.WriteString(fmt.Sprintf("  state=%.4f action=%.4f reward=%.4f\n", row.State, row.Action, row.Reward))

	fmt.Fprint(r.out, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.out, showCursor) }
