package metrics

import (
	"math"

	"github.com/san-kum/rigidkit/internal/sim"
)

// KineticEnergy is the mean total kinetic energy per frame.
type KineticEnergy struct {
	name    string
	total   float64
	samples int
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(f sim.Frame) {
	e.total += frameKinetic(f)
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.total = 0
	e.samples = 0
}

func frameKinetic(f sim.Frame) float64 {
	var ke float64
	for _, b := range f.Bodies {
		ke += b.KineticEnergy()
	}
	return ke
}

// EnergyLoss compares mechanical energy (kinetic plus potential in a uniform
// field of strength gravity along -y) at the last frame with the first. A
// value of 0.25 means a quarter of the initial energy was dissipated.
type EnergyLoss struct {
	name    string
	gravity float64
	initial float64
	current float64
	samples int
}

func NewEnergyLoss(gravity float64) *EnergyLoss {
	return &EnergyLoss{name: "energy_loss", gravity: gravity}
}

func (e *EnergyLoss) Name() string { return e.name }

func (e *EnergyLoss) Observe(f sim.Frame) {
	energy := frameKinetic(f)
	for _, b := range f.Dynamic() {
		if !math.IsInf(b.Mass, 0) {
			energy += b.Mass * e.gravity * b.Position.Y()
		}
	}
	if e.samples == 0 {
		e.initial = energy
	}
	e.current = energy
	e.samples++
}

func (e *EnergyLoss) Value() float64 {
	if e.samples == 0 || e.initial == 0 {
		return 0
	}
	return (e.initial - e.current) / math.Abs(e.initial)
}

func (e *EnergyLoss) Reset() {
	e.initial = 0
	e.current = 0
	e.samples = 0
}
