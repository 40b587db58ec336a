package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/rigidkit/internal/rigid"
)

type tracked struct {
	name  string
	actor rigid.RigidActor
}

// Simulator steps one scene and samples the bodies it tracks after every
// step. Sampling hangs off the scene's Updated observer, so frames are
// recorded however the scene is driven while a run is active.
type Simulator struct {
	scene     *rigid.Scene
	metrics   []Metric
	observers []Observer

	mu      sync.Mutex
	bodies  []tracked
	active  bool
	elapsed float64
	dt      float64
	frames  []Frame
	sampleE []error
}

func New(scene *rigid.Scene) *Simulator {
	s := &Simulator{scene: scene}
	if scene != nil {
		scene.OnUpdated(s.onUpdated)
	}
	return s
}

func (s *Simulator) Scene() *rigid.Scene { return s.scene }

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Track adds an actor to every recorded frame, in call order.
func (s *Simulator) Track(name string, a rigid.RigidActor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies = append(s.bodies, tracked{name: name, actor: a})
}

// TrackAll tracks every actor currently in the scene.
func (s *Simulator) TrackAll() {
	for i, a := range s.scene.ActiveActors() {
		s.Track(fmt.Sprintf("%s_%d", a.Collider().Type(), i), a)
	}
}

func (s *Simulator) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func (s *Simulator) onUpdated(frame uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.elapsed += s.dt
	f, err := s.sample(frame)
	if err != nil {
		s.sampleE = append(s.sampleE, err)
	}
	s.frames = append(s.frames, f)
}

// Snapshot samples the tracked bodies now.
func (s *Simulator) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, _ := s.sample(s.scene.FrameCount())
	return f
}

// sample reads every tracked body. Caller holds s.mu.
func (s *Simulator) sample(index uint64) (Frame, error) {
	f := Frame{Index: index, Time: s.elapsed, Bodies: make([]Body, 0, len(s.bodies))}
	var firstErr error
	for _, t := range s.bodies {
		b, err := sampleBody(t)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		f.Bodies = append(f.Bodies, b)
	}
	return f, firstErr
}

func sampleBody(t tracked) (Body, error) {
	b := Body{
		Name:  t.name,
		Kind:  t.actor.Kind().String(),
		Shape: t.actor.Collider().Type().String(),
	}
	pose, err := t.actor.Transform()
	if err != nil {
		return b, err
	}
	b.Position, b.Rotation = pose.Position, pose.Rotation

	rb, ok := t.actor.(*rigid.Rigidbody)
	if !ok {
		return b, nil
	}
	if b.Velocity, err = rb.Velocity(); err != nil {
		return b, err
	}
	if b.AngularVelocity, err = rb.AngularVelocity(); err != nil {
		return b, err
	}
	if b.Mass, err = rb.Mass(); err != nil {
		return b, err
	}
	b.Sleeping, err = rb.IsSleeping()
	return b, err
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.scene == nil {
		return ErrNoScene
	}
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", cfg.Steps)
	}
	return nil
}

func (s *Simulator) begin(dt float64) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active, s.dt, s.elapsed = true, dt, 0
	s.frames, s.sampleE = s.frames[:0], nil
	f, _ := s.sample(s.scene.FrameCount())
	return f
}

func (s *Simulator) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// take drains the frames recorded since the last call.
func (s *Simulator) take() ([]Frame, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames, errs := s.frames, s.sampleE
	s.frames, s.sampleE = nil, nil
	return frames, errs
}

// Run steps the scene cfg.Steps times. Scene step failures end the run and
// are reported in Result.Errors; only an invalid config or a cancelled
// context return an error.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Frames:  make([]Frame, 0, cfg.Steps+1),
		Metrics: make(map[string]float64),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	first := s.begin(cfg.Dt)
	defer s.end()
	result.Frames = append(result.Frames, first)
	s.observe(first)

	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			s.collectMetrics(result)
			return result, ctx.Err()
		default:
		}

		if err := s.scene.Update(cfg.Dt); err != nil {
			result.Errors = append(result.Errors, &StepError{
				Frame:   s.scene.FrameCount(),
				Time:    result.Final().Time,
				Wrapped: err,
			})
			break
		}
		result.StepsTaken++

		frames, errs := s.take()
		result.Errors = append(result.Errors, errs...)
		stop := false
		for _, f := range frames {
			result.Frames = append(result.Frames, f)
			s.observe(f)
			if cfg.ValidateState && !f.IsValid() {
				result.Errors = append(result.Errors, &StepError{Frame: f.Index, Time: f.Time, Wrapped: ErrInvalidState})
				stop = true
			}
		}
		if stop {
			break
		}
	}

	s.collectMetrics(result)
	return result, nil
}

func (s *Simulator) observe(f Frame) {
	for _, m := range s.metrics {
		m.Observe(f)
	}
	for _, o := range s.observers {
		o.OnFrame(f)
	}
}

func (s *Simulator) collectMetrics(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// RunWithCallback steps until callback returns false, cfg.Steps is reached
// (zero means no limit) or ctx is done. Frames are not retained.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(Frame) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	f := s.begin(cfg.Dt)
	defer s.end()
	if !callback(f) {
		return nil
	}

	for i := 0; cfg.Steps == 0 || i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := s.scene.Update(cfg.Dt); err != nil {
			return &StepError{Frame: s.scene.FrameCount(), Wrapped: err}
		}
		frames, _ := s.take()
		for _, f := range frames {
			if cfg.ValidateState && !f.IsValid() {
				return &StepError{Frame: f.Index, Time: f.Time, Wrapped: ErrInvalidState}
			}
			if !callback(f) {
				return nil
			}
		}
	}
	return nil
}
