package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrInvalidState indicates a body pose or velocity with NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid body state (NaN or Inf detected)")

	// ErrNoScene indicates a simulator built without a scene.
	ErrNoScene = errors.New("sim: no scene")
)

// Body is one actor's sampled state.
type Body struct {
	Name            string
	Kind            string
	Shape           string
	Position        mgl64.Vec3
	Rotation        mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Mass            float64
	Sleeping        bool
}

// Speed is the magnitude of the linear velocity.
func (b Body) Speed() float64 { return b.Velocity.Len() }

func (b Body) KineticEnergy() float64 {
	if math.IsInf(b.Mass, 0) {
		return 0
	}
	return 0.5 * b.Mass * b.Velocity.Dot(b.Velocity)
}

func (b Body) IsValid() bool {
	for _, v := range [...]float64{
		b.Position.X(), b.Position.Y(), b.Position.Z(),
		b.Velocity.X(), b.Velocity.Y(), b.Velocity.Z(),
		b.Rotation.W, b.Rotation.V.X(), b.Rotation.V.Y(), b.Rotation.V.Z(),
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Frame is every tracked body after one scene step.
type Frame struct {
	Index  uint64
	Time   float64
	Bodies []Body
}

func (f Frame) Clone() Frame {
	f.Bodies = append([]Body(nil), f.Bodies...)
	return f
}

func (f Frame) IsValid() bool {
	for _, b := range f.Bodies {
		if !b.IsValid() {
			return false
		}
	}
	return true
}

// Dynamic returns the bodies that are not static.
func (f Frame) Dynamic() []Body {
	out := make([]Body, 0, len(f.Bodies))
	for _, b := range f.Bodies {
		if b.Kind != "static" {
			out = append(out, b)
		}
	}
	return out
}

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(f Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Frame)

func (fn ObserverFunc) OnFrame(f Frame) { fn(f) }

type Config struct {
	Dt    float64
	Steps int
	// ValidateState stops the run at the first frame with a non-finite body.
	ValidateState bool
}

type Result struct {
	Frames     []Frame
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

// Final returns the last recorded frame.
func (r *Result) Final() Frame {
	if len(r.Frames) == 0 {
		return Frame{}
	}
	return r.Frames[len(r.Frames)-1]
}

// Series returns one coordinate of one body over the run; axis is 0, 1 or 2.
func (r *Result) Series(body, axis int) []float64 {
	out := make([]float64, 0, len(r.Frames))
	for _, f := range r.Frames {
		if body < len(f.Bodies) {
			out = append(out, f.Bodies[body].Position[axis])
		}
	}
	return out
}

// Times returns the frame times.
func (r *Result) Times() []float64 {
	out := make([]float64, len(r.Frames))
	for i, f := range r.Frames {
		out[i] = f.Time
	}
	return out
}

// StepError records where a run stopped.
type StepError struct {
	Frame   uint64
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("frame %d (t=%.4f): %v", e.Frame, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error { return e.Wrapped }
