// Package nativetest wraps a native.Engine to count calls and inject
// failures in tests.
package nativetest

import (
	"sync"

	"github.com/san-kum/rigidkit/internal/native"
)

// Recorder forwards to the wrapped engine. Calls that create or release
// objects, and the step calls, are counted and logged in order.
type Recorder struct {
	native.Engine

	mu       sync.Mutex
	calls    map[string]int
	log      []string
	failures map[string]error
	code     native.ErrorCode
}

func NewRecorder(e native.Engine) *Recorder {
	return &Recorder{
		Engine:   e,
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

// FailNext makes the next call to op return err without reaching the engine.
func (r *Recorder) FailNext(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
}

// FetchCode makes every FetchResults report code after the real step.
func (r *Recorder) FetchCode(code native.ErrorCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.code = code
}

func (r *Recorder) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

// Log returns the recorded operation names in call order.
func (r *Recorder) Log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.log...)
}

func (r *Recorder) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	r.log = append(r.log, op)
	if err, ok := r.failures[op]; ok {
		delete(r.failures, op)
		return err
	}
	return nil
}

func (r *Recorder) CreateFoundation() (native.Foundation, error) {
	if err := r.record("CreateFoundation"); err != nil {
		return native.Foundation{}, err
	}
	return r.Engine.CreateFoundation()
}

func (r *Recorder) ReleaseFoundation(f native.Foundation) error {
	if err := r.record("ReleaseFoundation"); err != nil {
		return err
	}
	return r.Engine.ReleaseFoundation(f)
}

func (r *Recorder) CreatePhysics(f native.Foundation, d native.PhysicsDesc) (native.Physics, error) {
	if err := r.record("CreatePhysics"); err != nil {
		return native.Physics{}, err
	}
	return r.Engine.CreatePhysics(f, d)
}

func (r *Recorder) ReleasePhysics(p native.Physics) error {
	if err := r.record("ReleasePhysics"); err != nil {
		return err
	}
	return r.Engine.ReleasePhysics(p)
}

func (r *Recorder) CreateDispatcher(threads int) (native.Dispatcher, error) {
	if err := r.record("CreateDispatcher"); err != nil {
		return native.Dispatcher{}, err
	}
	return r.Engine.CreateDispatcher(threads)
}

func (r *Recorder) ReleaseDispatcher(d native.Dispatcher) error {
	if err := r.record("ReleaseDispatcher"); err != nil {
		return err
	}
	return r.Engine.ReleaseDispatcher(d)
}

func (r *Recorder) CreateScene(p native.Physics, d native.SceneDesc) (native.Scene, error) {
	if err := r.record("CreateScene"); err != nil {
		return native.Scene{}, err
	}
	return r.Engine.CreateScene(p, d)
}

func (r *Recorder) ReleaseScene(s native.Scene) error {
	if err := r.record("ReleaseScene"); err != nil {
		return err
	}
	return r.Engine.ReleaseScene(s)
}

func (r *Recorder) CreateShape(p native.Physics, g native.Geometry, m native.Material, exclusive bool, flags native.ShapeFlags) (native.Shape, error) {
	if err := r.record("CreateShape"); err != nil {
		return native.Shape{}, err
	}
	return r.Engine.CreateShape(p, g, m, exclusive, flags)
}

func (r *Recorder) ReleaseShape(s native.Shape) error {
	if err := r.record("ReleaseShape"); err != nil {
		return err
	}
	return r.Engine.ReleaseShape(s)
}

func (r *Recorder) CreateStaticActor(p native.Physics, pose native.Transform, s native.Shape) (native.Actor, error) {
	if err := r.record("CreateStaticActor"); err != nil {
		return native.Actor{}, err
	}
	return r.Engine.CreateStaticActor(p, pose, s)
}

func (r *Recorder) CreateDynamicActor(p native.Physics, pose native.Transform, s native.Shape, density float64) (native.Actor, error) {
	if err := r.record("CreateDynamicActor"); err != nil {
		return native.Actor{}, err
	}
	return r.Engine.CreateDynamicActor(p, pose, s, density)
}

func (r *Recorder) CreateKinematicActor(p native.Physics, pose native.Transform, s native.Shape, density float64) (native.Actor, error) {
	if err := r.record("CreateKinematicActor"); err != nil {
		return native.Actor{}, err
	}
	return r.Engine.CreateKinematicActor(p, pose, s, density)
}

func (r *Recorder) ReleaseActor(a native.Actor) error {
	if err := r.record("ReleaseActor"); err != nil {
		return err
	}
	return r.Engine.ReleaseActor(a)
}

func (r *Recorder) AddActor(s native.Scene, a native.Actor) error {
	if err := r.record("AddActor"); err != nil {
		return err
	}
	return r.Engine.AddActor(s, a)
}

func (r *Recorder) RemoveActor(s native.Scene, a native.Actor, wake bool) error {
	if err := r.record("RemoveActor"); err != nil {
		return err
	}
	return r.Engine.RemoveActor(s, a, wake)
}

func (r *Recorder) Simulate(s native.Scene, dt float64) error {
	if err := r.record("Simulate"); err != nil {
		return err
	}
	return r.Engine.Simulate(s, dt)
}

func (r *Recorder) FetchResults(s native.Scene, block bool) (bool, native.ErrorCode, error) {
	if err := r.record("FetchResults"); err != nil {
		return false, native.CodeOK, err
	}
	ready, code, err := r.Engine.FetchResults(s, block)
	r.mu.Lock()
	if r.code != native.CodeOK && err == nil && ready {
		code = r.code
	}
	r.mu.Unlock()
	return ready, code, err
}
