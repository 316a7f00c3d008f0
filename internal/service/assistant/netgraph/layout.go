// Package netgraph lays out, draws and hit-tests relationship graphs.
package netgraph

import (
	"math"

	models "flowbot/internal/domain/models/assistant"
)

// Bounds is the size of the drawing surface in pixels
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a position on the drawing surface
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RadiusFactor scales the layout circle against the smaller surface side.
const RadiusFactor = 0.3

// Layout places node i at angle (i/n)·2π on a circle of radius
// 0.3·min(width, height) centred in bounds. It is pure: the same nodes and
// bounds always give the same positions.
func Layout(nodes []models.GraphNode, b Bounds) []Point {
	n := len(nodes)
	positions := make([]Point, n)
	if n == 0 {
		return positions
	}

	cx, cy := b.Width/2, b.Height/2
	radius := RadiusFactor * math.Min(b.Width, b.Height)
	for i := range nodes {
		angle := float64(i) / float64(n) * 2 * math.Pi
		positions[i] = Point{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}
	}
	return positions
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
