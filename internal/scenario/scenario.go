package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/config"
	"github.com/san-kum/rigidkit/internal/metrics"
	"github.com/san-kum/rigidkit/internal/native"
	"github.com/san-kum/rigidkit/internal/native/planar"
	"github.com/san-kum/rigidkit/internal/rigid"
	"github.com/san-kum/rigidkit/internal/sim"
)

var ErrNotSetup = errors.New("scenario: not set up")

// Build is handed to a Builder. Actors added through it are tracked by the
// scene's simulator in the order they were added.
type Build struct {
	Scene  *rigid.Scene
	Config *config.Config
	Rand   *rand.Rand

	materials map[config.MaterialConfig]*rigid.Material
	sim       *sim.Simulator
}

// Add spawns a.Count copies of a (one when Count is zero), offset by
// a.Spacing.
func (b *Build) Add(a config.ActorConfig) error {
	if err := a.Validate(); err != nil {
		return err
	}
	n := a.Copies()
	for i := 0; i < n; i++ {
		name := a.Name
		if name == "" {
			name = a.Shape
		}
		if n > 1 {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		actor, err := b.spawn(a, i)
		if err != nil {
			return fmt.Errorf("spawn %s: %w", name, err)
		}
		b.sim.Track(name, actor)
	}
	return nil
}

func (b *Build) material(m *config.MaterialConfig) (*rigid.Material, error) {
	if m == nil {
		return nil, nil
	}
	if mat, ok := b.materials[*m]; ok {
		return mat, nil
	}
	mat, err := b.Scene.CreateMaterial(m.StaticFriction, m.DynamicFriction, m.Restitution)
	if err != nil {
		return nil, err
	}
	b.materials[*m] = mat
	return mat, nil
}

func (b *Build) spawn(a config.ActorConfig, i int) (rigid.RigidActor, error) {
	mat, err := b.material(a.Material)
	if err != nil {
		return nil, err
	}
	pos, rot := a.Pose(i)
	density := a.DensityOrDefault()
	half := mgl64.Vec3(a.HalfExtents)

	var actor rigid.RigidActor
	switch a.Kind + "/" + a.Shape {
	case "static/plane":
		p := a.Plane
		actor, err = b.Scene.AddStaticPlane(native.NewPlane(p[0], p[1], p[2], p[3]), pos, rot, mat)
	case "static/sphere":
		actor, err = b.Scene.AddStaticSphere(a.Radius, pos, rot, mat)
	case "static/box":
		actor, err = b.Scene.AddStaticBox(half, pos, rot, mat)
	case "static/capsule":
		actor, err = b.Scene.AddStaticCapsule(a.Radius, a.HalfHeight, pos, rot, mat)
	case "dynamic/sphere":
		actor, err = b.body(b.Scene.AddDynamicSphere(a.Radius, pos, rot, density, mat))
	case "dynamic/box":
		actor, err = b.body(b.Scene.AddDynamicBox(half, pos, rot, density, mat))
	case "dynamic/capsule":
		actor, err = b.body(b.Scene.AddDynamicCapsule(a.Radius, a.HalfHeight, pos, rot, density, mat))
	case "kinematic/sphere":
		actor, err = b.body(b.Scene.AddKinematicSphere(a.Radius, pos, rot, density, mat))
	case "kinematic/box":
		actor, err = b.body(b.Scene.AddKinematicBox(half, pos, rot, density, mat))
	case "kinematic/capsule":
		actor, err = b.body(b.Scene.AddKinematicCapsule(a.Radius, a.HalfHeight, pos, rot, density, mat))
	default:
		return nil, fmt.Errorf("%w: %s %s", config.ErrInvalidActor, a.Kind, a.Shape)
	}
	if err != nil {
		return nil, err
	}

	if rb, ok := actor.(*rigid.Rigidbody); ok && a.Velocity != [3]float64{} {
		if err := rb.SetVelocity(mgl64.Vec3(a.Velocity)); err != nil {
			return nil, err
		}
	}
	return actor, nil
}

// body keeps a nil *Rigidbody from becoming a non-nil interface.
func (b *Build) body(rb *rigid.Rigidbody, err error) (rigid.RigidActor, error) {
	if err != nil {
		return nil, err
	}
	return rb, nil
}

// Options control how a Scenario sets up its system.
type Options struct {
	// Engine defaults to a new planar engine.
	Engine native.Engine
	Logger *log.Logger
	// Scenes is the number of identical scenes built on one system. Zero
	// means one.
	Scenes int
	// Metrics builds the metric set of each scene. Defaults to
	// metrics.Defaults for the configured gravity.
	Metrics func(cfg *config.Config) []sim.Metric
}

// Scenario owns a foundation, a system and the scenes built from one
// config.
type Scenario struct {
	cfg    *config.Config
	opts   Options
	logger *log.Logger

	foundation *rigid.Foundation
	system     *rigid.System
	sims       []*sim.Simulator
}

func New(cfg *config.Config, opts Options) *Scenario {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Scenes < 1 {
		opts.Scenes = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = func(cfg *config.Config) []sim.Metric {
			return metrics.Defaults(-cfg.Gravity[1])
		}
	}
	return &Scenario{cfg: cfg, opts: opts, logger: logger}
}

// SystemConfig maps the config's system settings onto rigid.SystemConfig.
func SystemConfig(cfg *config.Config, logger *log.Logger) (rigid.SystemConfig, error) {
	sc := rigid.DefaultSystemConfig()
	sc.Threads = cfg.Threads
	sc.Logger = logger
	switch cfg.Solver {
	case "", "pgs":
		sc.Scene.Solver = rigid.ProjectedGaussSeidel
	case "tgs":
		sc.Scene.Solver = rigid.TemporalGaussSeidel
	default:
		return sc, fmt.Errorf("unknown solver: %s", cfg.Solver)
	}
	if cfg.PVD.Enabled {
		p := rigid.DefaultPVDConfig()
		if cfg.PVD.Host != "" {
			p.Host = cfg.PVD.Host
		}
		if cfg.PVD.Port != 0 {
			p.Port = cfg.PVD.Port
		}
		sc.PVD = &p
	}
	return sc, nil
}

// Setup creates the system and builds every scene with the named builder
// from reg. On error everything created so far is released.
func (s *Scenario) Setup(reg *Registry) (err error) {
	if err := s.cfg.Validate(); err != nil {
		return err
	}
	builder, err := reg.Get(s.cfg.Scenario)
	if err != nil {
		return err
	}
	sysCfg, err := SystemConfig(s.cfg, s.logger)
	if err != nil {
		return err
	}

	engine := s.opts.Engine
	if engine == nil {
		engine = planar.New()
	}
	if s.foundation, err = rigid.NewFoundation(engine); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, s.Close())
		}
	}()
	if s.system, err = rigid.NewSystem(s.foundation, sysCfg); err != nil {
		return err
	}

	for i := 0; i < s.opts.Scenes; i++ {
		scene, err := s.system.CreateScene(s.cfg.GravityVec())
		if err != nil {
			return err
		}
		simulator := sim.New(scene)
		for _, m := range s.opts.Metrics(s.cfg) {
			simulator.AddMetric(m)
		}
		b := &Build{
			Scene:     scene,
			Config:    s.cfg,
			Rand:      rand.New(rand.NewSource(s.cfg.Seed)),
			materials: make(map[config.MaterialConfig]*rigid.Material),
			sim:       simulator,
		}
		if err := builder(b); err != nil {
			return fmt.Errorf("scenario %s: %w", s.cfg.Scenario, err)
		}
		s.sims = append(s.sims, simulator)
	}
	s.logger.Printf("scenario: %s ready (%d scenes, %d actors each)", s.cfg.Scenario, len(s.sims), s.sims[0].Tracked())
	return nil
}

func (s *Scenario) simConfig() sim.Config {
	return sim.Config{Dt: s.cfg.Dt, Steps: s.cfg.Steps, ValidateState: true}
}

// Run steps the first scene for the configured number of steps.
func (s *Scenario) Run(ctx context.Context) (*sim.Result, error) {
	if len(s.sims) == 0 {
		return nil, ErrNotSetup
	}
	return s.sims[0].Run(ctx, s.simConfig())
}

// RunAll steps every scene concurrently.
func (s *Scenario) RunAll(ctx context.Context) ([]*sim.Result, error) {
	if len(s.sims) == 0 {
		return nil, ErrNotSetup
	}
	return sim.NewEnsemble(s.sims...).Run(ctx, s.simConfig())
}

// Simulator returns the simulator of the first scene, for adding observers.
func (s *Scenario) Simulator() *sim.Simulator {
	if len(s.sims) == 0 {
		return nil
	}
	return s.sims[0]
}

func (s *Scenario) Simulators() []*sim.Simulator { return s.sims }

func (s *Scenario) System() *rigid.System { return s.system }

func (s *Scenario) Config() *config.Config { return s.cfg }

// Close releases the system and the foundation. Calls after the first
// return nil.
func (s *Scenario) Close() error {
	var errs []error
	if s.system != nil {
		errs = append(errs, s.system.Close())
	}
	if s.foundation != nil {
		errs = append(errs, s.foundation.Close())
	}
	s.sims = nil
	return errors.Join(errs...)
}
