package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/conservation/internal/analysis"
	"github.com/san-kum/conservation/internal/sim"
)

var palette = []string{"#00ff88", "#00ccff", "#ffcc00", "#ff6b6b", "#ff88ff", "#a3d977"}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func (b *bounds) add(x, y float64) {
	b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
	b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
}

// pad widens the box by 10% on every side.
func (b *bounds) pad() {
	rangeX, rangeY := b.maxX-b.minX, b.maxY-b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.1
	b.maxX += rangeX * 0.1
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
}

func (b bounds) project(x, y float64, width, height int) (float64, float64) {
	px := (x - b.minX) / (b.maxX - b.minX) * float64(width)
	py := float64(height) - (y-b.minY)/(b.maxY-b.minY)*float64(height)
	return px, py
}

func emptyBounds() bounds {
	return bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
}

func header(sb *strings.Builder, width, height int) {
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))
}

// TrajectoryToSVG plots one column of a trajectory against time, one
// polyline per repetition. column is any name accepted by
// Trajectory.Column.
func TrajectoryToSVG(traj sim.Trajectory, column string, width, height int) string {
	if len(traj) < 2 {
		return ""
	}

	b := emptyBounds()
	reps := traj.Reps()
	series := make([][]float64, len(reps))
	times := make([][]float64, len(reps))
	for i, rep := range reps {
		rt := traj.Rep(rep)
		series[i] = rt.Column(column)
		times[i] = rt.Column("time")
		for j := range series[i] {
			b.add(times[i][j], series[i][j])
		}
	}
	b.pad()

	var sb strings.Builder
	header(&sb, width, height)
	for i := range reps {
		if len(series[i]) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, palette[i%len(palette)]))
		for j := range series[i] {
			x, y := b.project(times[i][j], series[i][j], width, height)
			if j == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// PointsToSVG draws a scatter plot, such as a return map, with the
// identity line for reference.
func PointsToSVG(points []analysis.Point, width, height int) string {
	if len(points) == 0 {
		return ""
	}

	b := emptyBounds()
	for _, p := range points {
		b.add(p.X, p.Y)
	}
	lo, hi := math.Min(b.minX, b.minY), math.Max(b.maxX, b.maxY)
	b = bounds{lo, hi, lo, hi}
	b.pad()

	var sb strings.Builder
	header(&sb, width, height)

	x0, y0 := b.project(b.minX, b.minX, width, height)
	x1, y1 := b.project(b.maxX, b.maxX, width, height)
	sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#444466" stroke-dasharray="4"/>
`, x0, y0, x1, y1))

	sb.WriteString(`<g fill="#00ff88">` + "\n")
	for _, p := range points {
		x, y := b.project(p.X, p.Y, width, height)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="2"/>
`, x, y))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// BifurcationToSVG draws every recorded state against its parameter value.
func BifurcationToSVG(data []analysis.BifurcationPoint, width, height int) string {
	var pts []analysis.Point
	for _, d := range data {
		for _, v := range d.Values {
			pts = append(pts, analysis.Point{X: d.Param, Y: v})
		}
	}
	if len(pts) == 0 {
		return ""
	}

	b := emptyBounds()
	for _, p := range pts {
		b.add(p.X, p.Y)
	}
	b.pad()

	var sb strings.Builder
	header(&sb, width, height)
	sb.WriteString(`<g fill="#00ccff">` + "\n")
	for _, p := range pts {
		x, y := b.project(p.X, p.Y, width, height)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="1"/>
`, x, y))
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
