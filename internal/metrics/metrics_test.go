package metrics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/sim"
)

func frame(bodies ...sim.Body) sim.Frame {
	return sim.Frame{Bodies: bodies}
}

func ball(y, vy float64) sim.Body {
	return sim.Body{Kind: "dynamic", Mass: 2, Position: mgl64.Vec3{0, y, 0}, Velocity: mgl64.Vec3{0, vy, 0}}
}

func TestMinHeight(t *testing.T) {
	m := NewMinHeight()
	if !math.IsNaN(m.Value()) {
		t.Error("expected NaN before any frame")
	}

	ground := sim.Body{Kind: "static", Position: mgl64.Vec3{0, -100, 0}}
	m.Observe(frame(ground, ball(5, 0)))
	m.Observe(frame(ground, ball(2, 0)))
	m.Observe(frame(ground, ball(3, 0)))
	if m.Value() != 2 {
		t.Errorf("expected 2, got %v", m.Value())
	}

	m.Reset()
	if !math.IsNaN(m.Value()) {
		t.Error("expected NaN after reset")
	}
}

func TestMaxSpeed(t *testing.T) {
	m := NewMaxSpeed()
	m.Observe(frame(ball(0, -3), ball(0, 1)))
	m.Observe(frame(ball(0, 2)))
	if m.Value() != 3 {
		t.Errorf("expected 3, got %v", m.Value())
	}
}

func TestKineticEnergy(t *testing.T) {
	m := NewKineticEnergy()
	m.Observe(frame(ball(0, 1)))
	m.Observe(frame(ball(0, 3)))
	// (1 + 9) / 2
	if math.Abs(m.Value()-5) > 1e-12 {
		t.Errorf("expected 5, got %v", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Errorf("expected 0 after reset, got %v", m.Value())
	}
}

func TestEnergyLossFreeFall(t *testing.T) {
	const g = 9.81
	m := NewEnergyLoss(g)

	// Ideal free fall conserves energy.
	h0 := 10.0
	for _, tt := range []float64{0, 0.5, 1} {
		y := h0 - 0.5*g*tt*tt
		m.Observe(frame(ball(y, -g*tt)))
	}
	if math.Abs(m.Value()) > 1e-9 {
		t.Errorf("expected no loss, got %v", m.Value())
	}

	// Coming to rest on the ground dissipates everything.
	m.Reset()
	m.Observe(frame(ball(h0, 0)))
	m.Observe(frame(ball(0, 0)))
	if math.Abs(m.Value()-1) > 1e-9 {
		t.Errorf("expected full loss, got %v", m.Value())
	}
}

func TestPopulation(t *testing.T) {
	m := NewPopulation()
	if m.Value() != 1 {
		t.Errorf("expected 1 with no samples, got %v", m.Value())
	}
	m.Observe(frame(ball(0, 0), ball(1, 0)))
	m.Observe(frame(ball(0, 0), ball(1, 0)))
	m.Observe(frame(ball(0, 0), ball(1, 0)))
	m.Observe(frame(ball(0, 0)))
	if m.Value() != 0.75 {
		t.Errorf("expected 0.75, got %v", m.Value())
	}
}

func TestSleeping(t *testing.T) {
	m := NewSleeping()
	a, b := ball(0, 0), ball(1, 0)
	a.Sleeping = true
	m.Observe(frame(a, b, sim.Body{Kind: "static"}))
	if m.Value() != 0.5 {
		t.Errorf("expected 0.5, got %v", m.Value())
	}
}

func TestDefaults(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range Defaults(9.81) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %s", m.Name())
		}
		seen[m.Name()] = true
	}
	for _, name := range []string{"min_height", "max_speed", "kinetic_energy", "population"} {
		if !seen[name] {
			t.Errorf("missing metric %s", name)
		}
	}
}
