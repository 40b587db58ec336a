package rigid

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/san-kum/rigidkit/internal/native"
	"github.com/san-kum/rigidkit/internal/pvd"
	"github.com/san-kum/rigidkit/internal/registry"
)

// DefaultTimestep is the step used by Scene.Step.
const DefaultTimestep = 1.0 / 60

// Scene owns one native scene and the actors created in it.
type Scene struct {
	system *System
	engine native.Engine
	id     uint64

	mu     sync.Mutex
	handle native.Scene
	actors *registry.Keyed[RigidActor]

	closing  atomic.Bool
	closeMu  sync.Mutex
	closed   bool
	stepping atomic.Bool
	frame    atomic.Uint64
	cleanup  runtime.Cleanup

	obsMu     sync.RWMutex
	updating  []func(frame uint64)
	updated   []func(frame uint64)
	disposing []func(*Scene)
}

type sceneRelease struct {
	engine native.Engine
	handle native.Scene
}

func releaseScene(r sceneRelease) {
	_ = r.engine.ReleaseScene(r.handle)
}

func newScene(sys *System, h native.Scene, id uint64) *Scene {
	sc := &Scene{
		system: sys,
		engine: sys.engine,
		id:     id,
		handle: h,
		actors: registry.New[RigidActor](),
	}
	sc.cleanup = runtime.AddCleanup(sc, releaseScene, sceneRelease{sys.engine, h})
	return sc
}

func (sc *Scene) ID() uint64 { return sc.id }

// System returns the system that created the scene. The scene does not own it.
func (sc *Scene) System() *System { return sc.system }

func (sc *Scene) Handle() native.Scene {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.handle
}

func (sc *Scene) FrameCount() uint64 { return sc.frame.Load() }

func (sc *Scene) OnUpdating(fn func(frame uint64)) {
	sc.obsMu.Lock()
	defer sc.obsMu.Unlock()
	sc.updating = append(sc.updating, fn)
}

func (sc *Scene) OnUpdated(fn func(frame uint64)) {
	sc.obsMu.Lock()
	defer sc.obsMu.Unlock()
	sc.updated = append(sc.updated, fn)
}

func (sc *Scene) OnDisposing(fn func(*Scene)) {
	sc.obsMu.Lock()
	defer sc.obsMu.Unlock()
	sc.disposing = append(sc.disposing, fn)
}

func (sc *Scene) fire(list *[]func(uint64), frame uint64) {
	sc.obsMu.RLock()
	fns := slices.Clone(*list)
	sc.obsMu.RUnlock()
	for _, fn := range fns {
		fn(frame)
	}
}

func (sc *Scene) native() (native.Scene, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.handle.IsNull() {
		return native.Scene{}, disposed("scene")
	}
	return sc.handle, nil
}

// Step advances the scene by DefaultTimestep.
func (sc *Scene) Step() error { return sc.Update(DefaultTimestep) }

// Update runs one simulation step and blocks until the engine finishes it.
// Updating observers see the frame index before the step, Updated observers
// the index after it. A failed step leaves the frame counter unchanged.
func (sc *Scene) Update(dt float64) error {
	if !sc.stepping.CompareAndSwap(false, true) {
		return ErrStepInProgress
	}
	defer sc.stepping.Store(false)

	h, err := sc.native()
	if err != nil {
		return err
	}

	sc.fire(&sc.updating, sc.frame.Load())

	if err := sc.engine.Simulate(h, dt); err != nil {
		return nativeErr("simulate", err)
	}
	_, code, err := sc.engine.FetchResults(h, true)
	if err != nil {
		return nativeErr("fetch results", err)
	}
	if code != native.CodeOK {
		return &NativeCallError{Op: "fetch results", Code: code}
	}

	frame := sc.frame.Add(1)
	sc.fire(&sc.updated, frame)
	sc.transmit(frame)
	return nil
}

// transmit streams the scene to the system's debug visualizer.
func (sc *Scene) transmit(frame uint64) {
	client := sc.system.pvd
	if client == nil {
		return
	}
	flags := sc.system.cfg.PVD.Flags
	if flags == 0 {
		return
	}

	f := pvd.Frame{Scene: sc.id, Frame: frame, Flags: uint8(flags)}
	for _, a := range sc.ActiveActors() {
		t, err := a.Transform()
		if err != nil {
			continue
		}
		q := t.Rotation
		f.Actors = append(f.Actors, pvd.ActorState{
			ID:       uint64(a.Handle().Handle),
			Kind:     a.Kind().String(),
			Shape:    a.Collider().Type().String(),
			Position: [3]float64{t.Position.X(), t.Position.Y(), t.Position.Z()},
			Rotation: [4]float64{q.W, q.V.X(), q.V.Y(), q.V.Z()},
		})
	}
	if err := client.Send(f); err != nil {
		sc.system.logger.Printf("rigid: scene %d: pvd frame %d dropped: %v", sc.id, frame, err)
	}
}

// Destroy removes the actor from the scene and releases it. Touching actors
// that were asleep are woken.
func (sc *Scene) Destroy(a RigidActor) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.handle.IsNull() {
		return disposed("scene")
	}
	if !sc.actors.Contains(a) {
		return fmt.Errorf("rigid: destroy: actor not in scene %d: %w", sc.id, native.ErrNotInScene)
	}
	released, err := sc.releaseActor(a, true)
	if released {
		sc.actors.Remove(a)
	}
	return err
}

// releaseActor detaches and releases one actor. The actor keeps its handle
// until the release succeeds, so a failed call can be retried. An actor
// whose handle went stale is already gone and counts as released. Caller
// holds sc.mu.
func (sc *Scene) releaseActor(a RigidActor, wake bool) (bool, error) {
	b := a.base()
	h := b.Handle()
	if h.IsNull() {
		return true, nil
	}
	fail := func(op string, err error) (bool, error) {
		if errors.Is(err, native.ErrInvalidHandle) {
			b.invalidate()
			return true, nativeErr(op, err)
		}
		return false, nativeErr(op, err)
	}
	if !b.isDetached() {
		if err := sc.engine.RemoveActor(sc.handle, h, wake); err != nil {
			return fail("remove actor", err)
		}
		b.setDetached()
	}
	if err := sc.engine.ReleaseActor(h); err != nil {
		return fail("release actor", err)
	}
	b.invalidate()
	return true, nil
}

func (sc *Scene) ActiveActors() []RigidActor {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.actors.Snapshot()
}

func (sc *Scene) ForEachActiveActor(fn func(RigidActor)) {
	for _, a := range sc.ActiveActors() {
		fn(a)
	}
}

// TryCopyActiveActors copies the actors into dst. It returns false and
// leaves dst untouched when dst is too short.
func (sc *Scene) TryCopyActiveActors(dst []RigidActor) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.actors.CopyTo(dst)
}

func (sc *Scene) ActiveActorCount() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.actors.Len()
}

func (sc *Scene) CreateMaterial(staticFriction, dynamicFriction, restitution float64) (*Material, error) {
	return sc.system.CreateMaterial(staticFriction, dynamicFriction, restitution)
}

// Close fires the Disposing observers, releases every actor and then the
// native scene, and detaches the scene from its system. Disposing observers
// run once. When a release fails the scene keeps whatever is still alive and
// a later Close retries it. Calls after the native scene is released return
// nil.
func (sc *Scene) Close() error {
	sc.closeMu.Lock()
	defer sc.closeMu.Unlock()
	if sc.closed {
		return nil
	}

	if sc.closing.CompareAndSwap(false, true) {
		sc.obsMu.RLock()
		disposing := slices.Clone(sc.disposing)
		sc.obsMu.RUnlock()
		for _, fn := range disposing {
			fn(sc)
		}
	}

	sc.mu.Lock()
	var errs []error
	for _, a := range sc.actors.Snapshot() {
		released, err := sc.releaseActor(a, false)
		if released {
			sc.actors.Remove(a)
		}
		errs = append(errs, err)
	}
	if sc.actors.Len() == 0 {
		if err := sc.engine.ReleaseScene(sc.handle); err != nil {
			errs = append(errs, nativeErr("release scene", err))
		} else {
			sc.handle = native.Scene{}
			sc.cleanup.Stop()
			sc.closed = true
		}
	}
	sc.mu.Unlock()

	if sc.closed {
		sc.system.removeScene(sc)
	}
	if err := errors.Join(errs...); err != nil {
		sc.system.logger.Printf("rigid: scene %d close: %v", sc.id, err)
		return err
	}
	sc.system.logger.Printf("rigid: scene %d closed after %d frames", sc.id, sc.frame.Load())
	return nil
}
