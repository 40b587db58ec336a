package viz

import (
	"math"
	"strings"
)

// Braille cells are 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBlank = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a dot grid of Width*2 by Height*4 sub-pixels rendered as
// braille characters.
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

// Dots returns the canvas size in sub-pixels.
func (c *Canvas) Dots() (int, int) { return c.Width * 2, c.Height * 4 }

func (c *Canvas) cell(x, y int) (*rune, rune, bool) {
	if x < 0 || y < 0 {
		return nil, 0, false
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return nil, 0, false
	}
	return &c.Grid[row][col], pixelMap[y%4][x%2], true
}

// Set lights the sub-pixel at (x, y). Points off the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if r, bit, ok := c.cell(x, y); ok {
		*r |= bit
	}
}

func (c *Canvas) Unset(x, y int) {
	if r, bit, ok := c.cell(x, y); ok {
		*r &^= bit
	}
}

func (c *Canvas) IsSet(x, y int) bool {
	r, bit, ok := c.cell(x, y)
	return ok && *r&bit != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
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

// DrawCircle draws a circle outline with the midpoint algorithm. A radius
// below one dot draws a single dot.
func (c *Canvas) DrawCircle(cx, cy, r int) {
	if r < 1 {
		c.Set(cx, cy)
		return
	}
	x, y, d := r, 0, 1-r
	for x >= y {
		for _, p := range [...][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			c.Set(cx+p[0], cy+p[1])
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

// DrawPolygon draws the closed outline through pts.
func (c *Canvas) DrawPolygon(pts [][2]int) {
	for i := range pts {
		j := (i + 1) % len(pts)
		c.DrawLine(pts[i][0], pts[i][1], pts[j][0], pts[j][1])
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

// Viewport maps world XY metres onto canvas sub-pixels, y up.
type Viewport struct {
	// CenterX, CenterY is the world point at the middle of the canvas.
	CenterX, CenterY float64
	// Scale is sub-pixels per metre.
	Scale float64
	W, H  int
}

// FitViewport frames the world box [minX,maxX]x[minY,maxY] with a margin.
func FitViewport(minX, maxX, minY, maxY float64, w, h int) Viewport {
	v := Viewport{CenterX: (minX + maxX) / 2, CenterY: (minY + maxY) / 2, W: w, H: h, Scale: 10}
	spanX, spanY := (maxX-minX)*1.2, (maxY-minY)*1.2
	if spanX > 0 && spanY > 0 {
		v.Scale = math.Min(float64(w)/spanX, float64(h)/spanY)
	}
	return v
}

func (v Viewport) Project(x, y float64) (int, int) {
	px := float64(v.W)/2 + (x-v.CenterX)*v.Scale
	py := float64(v.H)/2 - (y-v.CenterY)*v.Scale
	return int(math.Round(px)), int(math.Round(py))
}

// Length converts a world length to sub-pixels.
func (v Viewport) Length(l float64) int {
	return int(math.Round(l * v.Scale))
}

func (v *Viewport) Zoom(factor float64) {
	v.Scale = math.Min(200, math.Max(0.5, v.Scale*factor))
}

func (v *Viewport) Pan(dx, dy float64) {
	v.CenterX += dx / v.Scale
	v.CenterY += dy / v.Scale
}
