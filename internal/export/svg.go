package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/msmseg/internal/mesh"
	"github.com/san-kum/msmseg/internal/relax"
)

type XY struct{ X, Y float64 }

// bounds is the padded extent of a point set.
type bounds struct {
	minX, minY     float64
	rangeX, rangeY float64
}

func boundsOf(points []XY) bounds {
	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	return bounds{minX: minX, minY: minY, rangeX: maxX - minX, rangeY: maxY - minY}
}

// project maps p into a width x height viewport with y growing upward.
func (b bounds) project(p XY, width, height int) (float64, float64) {
	x := (p.X - b.minX) / b.rangeX * float64(width)
	y := float64(height) - (p.Y-b.minY)/b.rangeY*float64(height)
	return x, y
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

// CurveSVG draws a polyline through points.
func CurveSVG(points []XY, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}
	b := boundsOf(points)

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i, p := range points {
		x, y := b.project(p, width, height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// ConvergenceSVG plots the maximum displacement of every iteration.
func ConvergenceSVG(history []relax.IterationStats, width, height int) string {
	points := make([]XY, len(history))
	for i, h := range history {
		points[i] = XY{X: float64(h.Iteration), Y: h.MaxDisplacement}
	}
	return CurveSVG(points, width, height, "#00ff88")
}

// MeshSVG draws the axial (x-y) projection of m: springs as lines and
// mass points as dots. Points listed in outOfBounds are drawn in red.
func MeshSVG(m *mesh.Mesh, outOfBounds map[int]int, width, height int) string {
	if m == nil || len(m.Points) == 0 {
		return ""
	}
	points := make([]XY, len(m.Points))
	for i, p := range m.Points {
		points[i] = XY{X: p.Pos.X, Y: p.Pos.Y}
	}
	b := boundsOf(points)

	var sb strings.Builder
	header(&sb, width, height)

	sb.WriteString(`<g stroke="#446688" stroke-width="0.6">
`)
	for _, e := range m.Edges() {
		x1, y1 := b.project(points[e.A], width, height)
		x2, y2 := b.project(points[e.B], width, height)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
`, x1, y1, x2, y2)
	}
	sb.WriteString("</g>\n")

	sx, sy := b.project(XY{X: m.Seed.X, Y: m.Seed.Y}, width, height)
	fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="#ffff00"/>
`, sx, sy)

	sb.WriteString(`<g fill="#00ffff">
`)
	for i, p := range points {
		x, y := b.project(p, width, height)
		if outOfBounds[i] > 0 {
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="1.5" fill="#ff4444"/>
`, x, y)
			continue
		}
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="1.5"/>
`, x, y)
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
