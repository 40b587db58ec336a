package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrum is a one-sided amplitude spectrum.
type Spectrum struct {
	Freqs     []float64
	Amplitude []float64
}

// PowerSpectrum returns the amplitude spectrum of a signal sampled every dt
// seconds. The mean is removed and a Hann window applied first, so a body
// at rest yields an all-zero spectrum.
func PowerSpectrum(data []float64, dt float64) Spectrum {
	n := len(data)
	if n < 2 || dt <= 0 {
		return Spectrum{}
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	w := window.Hann(n)
	x := make([]float64, n)
	for i, v := range data {
		x[i] = (v - mean) * w[i]
	}

	coeffs := fft.FFTReal(x)
	half := n / 2
	s := Spectrum{
		Freqs:     make([]float64, half),
		Amplitude: make([]float64, half),
	}
	for i := 0; i < half; i++ {
		s.Freqs[i] = float64(i) / (float64(n) * dt)
		s.Amplitude[i] = cmplx.Abs(coeffs[i]) / float64(n)
	}
	return s
}

// Dominant returns the frequency with the largest amplitude above DC, or 0
// when the spectrum is flat.
func (s Spectrum) Dominant() float64 {
	best, bestAmp := 0.0, 0.0
	for i := 1; i < len(s.Amplitude); i++ {
		if s.Amplitude[i] > bestAmp {
			best, bestAmp = s.Freqs[i], s.Amplitude[i]
		}
	}
	if bestAmp < 1e-12 || math.IsNaN(bestAmp) {
		return 0
	}
	return best
}
