package analysis

import "github.com/san-kum/rigidkit/internal/sim"

// SettleTime returns the time after which every non-static body stays below
// speed threshold, or -1 if the run never settles.
func SettleTime(r *sim.Result, threshold float64) float64 {
	settled := -1.0
	for _, f := range r.Frames {
		moving := false
		for _, b := range f.Dynamic() {
			if b.Speed() > threshold {
				moving = true
				break
			}
		}
		switch {
		case moving:
			settled = -1
		case settled < 0:
			settled = f.Time
		}
	}
	return settled
}

// Bounces counts how often a body's vertical velocity turns from falling
// faster than minSpeed to rising faster than minSpeed.
func Bounces(r *sim.Result, body int, minSpeed float64) int {
	count := 0
	falling := false
	for _, f := range r.Frames {
		if body >= len(f.Bodies) {
			continue
		}
		vy := f.Bodies[body].Velocity.Y()
		switch {
		case vy < -minSpeed:
			falling = true
		case vy > minSpeed && falling:
			count++
			falling = false
		}
	}
	return count
}
