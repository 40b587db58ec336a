package metrics

import "github.com/san-kum/rigidkit/internal/sim"

// Population is the fraction of frames whose body count matches the first
// frame. Anything below 1 means actors were destroyed or added mid-run.
type Population struct {
	name       string
	expected   int
	violations int
	samples    int
}

func NewPopulation() *Population {
	return &Population{name: "population"}
}

func (p *Population) Name() string { return p.name }

func (p *Population) Observe(f sim.Frame) {
	if p.samples == 0 {
		p.expected = len(f.Bodies)
	}
	p.samples++
	if len(f.Bodies) != p.expected {
		p.violations++
	}
}

func (p *Population) Value() float64 {
	if p.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(p.violations)/float64(p.samples)
}

func (p *Population) Reset() {
	p.expected = 0
	p.violations = 0
	p.samples = 0
}

// Sleeping is the fraction of dynamic bodies asleep in the latest frame.
type Sleeping struct {
	name  string
	value float64
}

func NewSleeping() *Sleeping {
	return &Sleeping{name: "sleeping"}
}

func (s *Sleeping) Name() string { return s.name }

func (s *Sleeping) Observe(f sim.Frame) {
	bodies := f.Dynamic()
	if len(bodies) == 0 {
		s.value = 0
		return
	}
	asleep := 0
	for _, b := range bodies {
		if b.Sleeping {
			asleep++
		}
	}
	s.value = float64(asleep) / float64(len(bodies))
}

func (s *Sleeping) Value() float64 { return s.value }

func (s *Sleeping) Reset() { s.value = 0 }

// Defaults returns the metric set recorded for every scenario run.
func Defaults(gravity float64) []sim.Metric {
	return []sim.Metric{
		NewMinHeight(),
		NewMaxSpeed(),
		NewKineticEnergy(),
		NewEnergyLoss(gravity),
		NewPopulation(),
		NewSleeping(),
	}
}
