package metrics

import (
	"math"

	"github.com/san-kum/rigidkit/internal/sim"
)

// MinHeight tracks the lowest vertical position reached by any non-static
// body, measured at body origins.
type MinHeight struct {
	name string
	min  float64
	seen bool
}

func NewMinHeight() *MinHeight {
	return &MinHeight{name: "min_height"}
}

func (m *MinHeight) Name() string { return m.name }

func (m *MinHeight) Observe(f sim.Frame) {
	for _, b := range f.Dynamic() {
		y := b.Position.Y()
		if !m.seen || y < m.min {
			m.min = y
			m.seen = true
		}
	}
}

func (m *MinHeight) Value() float64 {
	if !m.seen {
		return math.NaN()
	}
	return m.min
}

func (m *MinHeight) Reset() {
	m.min = 0
	m.seen = false
}

// MaxSpeed is the highest linear speed of any body over the run.
type MaxSpeed struct {
	name string
	max  float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{name: "max_speed"}
}

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(f sim.Frame) {
	for _, b := range f.Bodies {
		m.max = math.Max(m.max, b.Speed())
	}
}

func (m *MaxSpeed) Value() float64 { return m.max }

func (m *MaxSpeed) Reset() { m.max = 0 }
