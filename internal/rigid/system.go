package rigid

import (
	"context"
	"errors"
	"io"
	"log"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/native"
	"github.com/san-kum/rigidkit/internal/pvd"
	"github.com/san-kum/rigidkit/internal/registry"
)

// DefaultGravity is the gravity of CreateDefaultScene.
var DefaultGravity = mgl64.Vec3{0, -9.81, 0}

type SystemConfig struct {
	// Threads sizes the dispatcher's worker pool. Zero steps scenes on the
	// calling goroutine.
	Threads int
	Physics native.PhysicsDesc
	Scene   SceneSettings
	// PVD, when set, connects the system to a debug visualizer. A failed
	// connection is logged and the system runs without it.
	PVD    *PVDConfig
	Logger *log.Logger
}

func DefaultSystemConfig() SystemConfig {
	return SystemConfig{
		Threads: 1,
		Physics: native.DefaultPhysicsDesc(),
		Scene:   DefaultSceneSettings(),
	}
}

// System owns one native physics instance, its dispatcher and the scenes
// created from it.
type System struct {
	foundation *Foundation
	engine     native.Engine
	cfg        SystemConfig
	logger     *log.Logger
	pvd        *pvd.Client

	mu     sync.Mutex
	scenes *registry.Keyed[*Scene]

	closeMu    sync.Mutex
	life       sync.Mutex
	physics    native.Physics
	dispatcher native.Dispatcher
	closed     bool
	cleanup    runtime.Cleanup

	obsMu        sync.RWMutex
	sceneCreated []func(*Scene)

	sceneIDs atomic.Uint64
}

type systemRelease struct {
	engine     native.Engine
	physics    native.Physics
	dispatcher native.Dispatcher
}

func releaseSystem(r systemRelease) {
	_ = r.engine.ReleaseDispatcher(r.dispatcher)
	_ = r.engine.ReleasePhysics(r.physics)
}

func NewSystem(f *Foundation, cfg SystemConfig) (*System, error) {
	fh, err := f.native()
	if err != nil {
		return nil, err
	}
	if cfg.Physics == (native.PhysicsDesc{}) {
		cfg.Physics = native.DefaultPhysicsDesc()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	engine := f.Engine()
	physics, err := engine.CreatePhysics(fh, cfg.Physics)
	if err != nil {
		return nil, nativeErr("create physics", err)
	}
	dispatcher, err := engine.CreateDispatcher(cfg.Threads)
	if err != nil {
		_ = engine.ReleasePhysics(physics)
		return nil, nativeErr("create dispatcher", err)
	}

	s := &System{
		foundation: f,
		engine:     engine,
		cfg:        cfg,
		logger:     logger,
		scenes:     registry.New[*Scene](),
		physics:    physics,
		dispatcher: dispatcher,
	}
	s.cleanup = runtime.AddCleanup(s, releaseSystem, systemRelease{engine, physics, dispatcher})

	if cfg.PVD != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		client, err := pvd.Dial(ctx, cfg.PVD.Addr())
		cancel()
		if err != nil {
			logger.Printf("rigid: debug visualizer unavailable: %v", err)
		} else {
			s.pvd = client
		}
	}

	logger.Printf("rigid: system created (threads=%d solver=%d)", cfg.Threads, cfg.Scene.Solver)
	return s, nil
}

func (s *System) Engine() native.Engine { return s.engine }

func (s *System) Foundation() *Foundation { return s.foundation }

func (s *System) Config() SystemConfig { return s.cfg }

func (s *System) handles() (native.Physics, native.Dispatcher, error) {
	s.life.Lock()
	defer s.life.Unlock()
	if s.closed {
		return native.Physics{}, native.Dispatcher{}, disposed("system")
	}
	return s.physics, s.dispatcher, nil
}

// OnSceneCreated registers fn to run after every CreateScene.
func (s *System) OnSceneCreated(fn func(*Scene)) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.sceneCreated = append(s.sceneCreated, fn)
}

func (s *System) CreateDefaultScene() (*Scene, error) {
	return s.CreateScene(DefaultGravity)
}

// CreateScene creates a native scene on the system's dispatcher and tracks
// it until it is closed.
func (s *System) CreateScene(gravity mgl64.Vec3) (*Scene, error) {
	s.mu.Lock()
	physics, dispatcher, err := s.handles()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	desc := native.SceneDesc{
		Gravity:      gravity,
		Dispatcher:   dispatcher,
		FilterShader: native.DefaultFilterShader,
		SolverType:   s.cfg.Scene.Solver,
	}
	h, err := s.engine.CreateScene(physics, desc)
	if err != nil {
		s.mu.Unlock()
		return nil, nativeErr("create scene", err)
	}

	sc := newScene(s, h, s.sceneIDs.Add(1))
	if err := s.scenes.Add(sc); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()

	s.logger.Printf("rigid: scene %d created (gravity=%v)", sc.id, gravity)

	s.obsMu.RLock()
	observers := slices.Clone(s.sceneCreated)
	s.obsMu.RUnlock()
	for _, fn := range observers {
		fn(sc)
	}
	return sc, nil
}

// removeScene is called by a scene once it has closed.
func (s *System) removeScene(sc *Scene) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes.Remove(sc)
}

// CreateMaterial allocates a new native material on every call.
func (s *System) CreateMaterial(staticFriction, dynamicFriction, restitution float64) (*Material, error) {
	physics, _, err := s.handles()
	if err != nil {
		return nil, err
	}
	h, err := s.engine.CreateMaterial(physics, staticFriction, dynamicFriction, restitution)
	if err != nil {
		return nil, nativeErr("create material", err)
	}
	return &Material{
		handle:          h,
		StaticFriction:  staticFriction,
		DynamicFriction: dynamicFriction,
		Restitution:     restitution,
	}, nil
}

func (s *System) Scenes() []*Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenes.Snapshot()
}

func (s *System) ForEachScene(fn func(*Scene)) {
	for _, sc := range s.Scenes() {
		fn(sc)
	}
}

// TryCopyScenes copies the tracked scenes into dst. It returns false and
// leaves dst untouched when dst is too short.
func (s *System) TryCopyScenes(dst []*Scene) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenes.CopyTo(dst)
}

func (s *System) SceneCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scenes.Len()
}

// Close closes every scene, then releases the dispatcher and the physics
// instance. The system refuses new scenes from the first call on. When a
// release fails Close returns the error and a later call retries what is
// still alive. Calls after a successful Close return nil.
func (s *System) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	s.life.Lock()
	if s.physics.IsNull() && s.dispatcher.IsNull() {
		s.life.Unlock()
		return nil
	}
	s.closed = true
	s.life.Unlock()

	var errs []error
	for _, sc := range s.Scenes() {
		errs = append(errs, sc.Close())
	}
	if s.SceneCount() > 0 {
		err := errors.Join(errs...)
		s.logger.Printf("rigid: system close: %v", err)
		return err
	}

	if s.pvd != nil {
		errs = append(errs, s.pvd.Close())
		s.pvd = nil
	}

	s.life.Lock()
	if !s.dispatcher.IsNull() {
		if err := s.engine.ReleaseDispatcher(s.dispatcher); err != nil {
			errs = append(errs, nativeErr("release dispatcher", err))
		} else {
			s.dispatcher = native.Dispatcher{}
		}
	}
	if !s.physics.IsNull() {
		if err := s.engine.ReleasePhysics(s.physics); err != nil {
			errs = append(errs, nativeErr("release physics", err))
		} else {
			s.physics = native.Physics{}
		}
	}
	released := s.physics.IsNull() && s.dispatcher.IsNull()
	s.life.Unlock()
	if released {
		s.cleanup.Stop()
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.Printf("rigid: system close: %v", err)
		return err
	}
	s.logger.Printf("rigid: system closed")
	return nil
}

// Material is a native surface material. A nil *Material selects the
// engine default.
type Material struct {
	handle          native.Material
	StaticFriction  float64
	DynamicFriction float64
	Restitution     float64
}

func (m *Material) Handle() native.Material {
	if m == nil {
		return native.Material{}
	}
	return m.handle
}
