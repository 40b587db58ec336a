package analysis

import (
	"math"

	"github.com/san-kum/rigidkit/internal/sim"
)

// Divergence returns the distance between the same body in two runs, frame
// by frame, up to the shorter run.
func Divergence(a, b *sim.Result, body int) []float64 {
	n := min(len(a.Frames), len(b.Frames))
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		fa, fb := a.Frames[i], b.Frames[i]
		if body >= len(fa.Bodies) || body >= len(fb.Bodies) {
			break
		}
		out = append(out, fa.Bodies[body].Position.Sub(fb.Bodies[body].Position).Len())
	}
	return out
}

// DivergenceRate estimates the exponential growth rate of a separation
// series sampled every dt seconds:
//
//	λ ≈ (1/t) * ln(d(t)/d(0))
//
// averaged over the samples. Contact-rich scenes are sensitive to initial
// conditions, so two runs of a pile started a millimetre apart give a
// positive rate; a lone falling body gives roughly zero.
func DivergenceRate(sep []float64, dt float64) float64 {
	if len(sep) < 2 || dt <= 0 {
		return 0
	}
	d0 := sep[0]
	if d0 <= 0 {
		return 0
	}

	sumLog := 0.0
	count := 0
	for i := 1; i < len(sep); i++ {
		if sep[i] <= 0 {
			continue
		}
		t := float64(i) * dt
		sumLog += math.Log(sep[i]/d0) / t
		count++
	}
	if count == 0 {
		return 0
	}
	return sumLog / float64(count)
}
