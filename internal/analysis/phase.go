package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/rigidkit/internal/sim"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds one body's trajectory in a 2D state plane.
type PhasePortrait2D struct {
	Body   int
	XLabel string
	YLabel string
	Points []Point
}

// Axis selects a sampled quantity of a body.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisVX
	AxisVY
	AxisSpeed
	AxisAngularZ
)

var axisLabels = [...]string{"x", "y", "vx", "vy", "speed", "wz"}

func (a Axis) String() string {
	if int(a) < len(axisLabels) {
		return axisLabels[a]
	}
	return "?"
}

func (a Axis) of(b sim.Body) float64 {
	switch a {
	case AxisX:
		return b.Position.X()
	case AxisY:
		return b.Position.Y()
	case AxisVX:
		return b.Velocity.X()
	case AxisVY:
		return b.Velocity.Y()
	case AxisSpeed:
		return b.Speed()
	case AxisAngularZ:
		return b.AngularVelocity.Z()
	}
	return math.NaN()
}

// GeneratePhasePortrait extracts the (x, y) axes of one body from a run.
// Height against vertical velocity shows each bounce as a shrinking loop.
func GeneratePhasePortrait(r *sim.Result, body int, x, y Axis) *PhasePortrait2D {
	if r == nil || len(r.Frames) == 0 || body >= len(r.Frames[0].Bodies) {
		return nil
	}

	portrait := &PhasePortrait2D{
		Body:   body,
		XLabel: x.String(),
		YLabel: y.String(),
		Points: make([]Point, 0, len(r.Frames)),
	}
	for _, f := range r.Frames {
		if body >= len(f.Bodies) {
			break
		}
		b := f.Bodies[body]
		portrait.Points = append(portrait.Points, Point{X: x.of(b), Y: y.of(b)})
	}
	return portrait
}

// PhasePortraitToASCII plots the portrait on a width x height character
// grid with 10% padding, drawing the axes where they are in view.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
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
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
