package planar

import (
	"fmt"
	"math"
	"sync"

	"github.com/jakecoffman/cp"

	"github.com/san-kum/rigidkit/internal/native"
)

// Engine is a native.Engine that simulates every scene in the xy plane.
type Engine struct {
	mu sync.Mutex

	foundations arena[struct{}]
	physics     arena[*physicsObj]
	dispatchers arena[*dispatcher]
	scenes      arena[*scene]
	materials   arena[*material]
	shapes      arena[*shape]
	actors      arena[*actor]
}

var _ native.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{}
}

// Counts reports live objects per kind, for leak checks.
type Counts struct {
	Foundations, Physics, Dispatchers int
	Scenes, Materials, Shapes, Actors int
}

func (e *Engine) Counts() Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Counts{
		Foundations: e.foundations.len(),
		Physics:     e.physics.len(),
		Dispatchers: e.dispatchers.len(),
		Scenes:      e.scenes.len(),
		Materials:   e.materials.len(),
		Shapes:      e.shapes.len(),
		Actors:      e.actors.len(),
	}
}

func invalid(kind string, h native.Handle) error {
	return fmt.Errorf("%w: %s %v", native.ErrInvalidHandle, kind, h)
}

// guard turns a solver assertion into an error.
func guard(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", native.ErrInvalidArgument, r)
	}
}

func (e *Engine) CreateFoundation() (native.Foundation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return native.Foundation{Handle: e.foundations.insert(struct{}{})}, nil
}

func (e *Engine) ReleaseFoundation(f native.Foundation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.foundations.get(f.Handle); !ok {
		return invalid("foundation", f.Handle)
	}
	inUse := false
	e.physics.each(func(_ native.Handle, p *physicsObj) {
		if p.foundation == f {
			inUse = true
		}
	})
	if inUse {
		return fmt.Errorf("%w: foundation has live physics", native.ErrInUse)
	}
	e.foundations.remove(f.Handle)
	return nil
}

func (e *Engine) CreatePhysics(f native.Foundation, desc native.PhysicsDesc) (native.Physics, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.foundations.get(f.Handle); !ok {
		return native.Physics{}, invalid("foundation", f.Handle)
	}
	if !(desc.ToleranceLength > 0) || !(desc.ToleranceSpeed > 0) {
		return native.Physics{}, fmt.Errorf("%w: tolerances %+v", native.ErrInvalidArgument, desc)
	}

	obj := &physicsObj{foundation: f, desc: desc}
	p := native.Physics{Handle: e.physics.insert(obj)}
	obj.defaultMat = native.Material{Handle: e.materials.insert(&material{
		physics:        p,
		staticFriction: 0.5,
		friction:       0.5,
		restitution:    0.6,
	})}
	return p, nil
}

// ReleasePhysics frees the physics object together with the materials,
// shapes and actors created from it. Scenes must be released first.
func (e *Engine) ReleasePhysics(p native.Physics) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.physics.get(p.Handle); !ok {
		return invalid("physics", p.Handle)
	}
	live := 0
	e.scenes.each(func(_ native.Handle, s *scene) {
		if s.physics == p {
			live++
		}
	})
	if live > 0 {
		return fmt.Errorf("%w: %d scenes still alive", native.ErrInUse, live)
	}

	var drop []native.Handle
	e.actors.each(func(h native.Handle, a *actor) {
		if a.physics == p {
			drop = append(drop, h)
		}
	})
	for _, h := range drop {
		e.actors.remove(h)
	}
	drop = drop[:0]
	e.shapes.each(func(h native.Handle, s *shape) {
		if s.physics == p {
			drop = append(drop, h)
		}
	})
	for _, h := range drop {
		e.shapes.remove(h)
	}
	drop = drop[:0]
	e.materials.each(func(h native.Handle, m *material) {
		if m.physics == p {
			drop = append(drop, h)
		}
	})
	for _, h := range drop {
		e.materials.remove(h)
	}

	e.physics.remove(p.Handle)
	return nil
}

func (e *Engine) CreateDispatcher(threads int) (native.Dispatcher, error) {
	if threads < 0 {
		return native.Dispatcher{}, fmt.Errorf("%w: %d threads", native.ErrInvalidArgument, threads)
	}
	d := &dispatcher{pool: newWorkerPool(threads)}
	e.mu.Lock()
	defer e.mu.Unlock()
	return native.Dispatcher{Handle: e.dispatchers.insert(d)}, nil
}

func (e *Engine) ReleaseDispatcher(h native.Dispatcher) error {
	e.mu.Lock()
	d, ok := e.dispatchers.get(h.Handle)
	if !ok {
		e.mu.Unlock()
		return invalid("dispatcher", h.Handle)
	}
	if d.scenes > 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: dispatcher serves %d scenes", native.ErrInUse, d.scenes)
	}
	e.dispatchers.remove(h.Handle)
	e.mu.Unlock()

	d.pool.stop()
	return nil
}

func (e *Engine) CreateScene(p native.Physics, desc native.SceneDesc) (native.Scene, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.physics.get(p.Handle); !ok {
		return native.Scene{}, invalid("physics", p.Handle)
	}
	d, ok := e.dispatchers.get(desc.Dispatcher.Handle)
	if !ok {
		return native.Scene{}, invalid("dispatcher", desc.Dispatcher.Handle)
	}
	g := desc.Gravity
	if !finite(g.X(), g.Y(), g.Z()) {
		return native.Scene{}, fmt.Errorf("%w: gravity %v", native.ErrInvalidArgument, g)
	}

	space := cp.NewSpace()
	space.Iterations = defaultIterations
	space.SetGravity(vec2(g))
	space.SleepTimeThreshold = defaultSleepTime

	s := &scene{
		physics: p,
		disp:    d,
		desc:    desc,
		space:   space,
		actors:  make(map[*actor]struct{}),
	}
	d.scenes++
	return native.Scene{Handle: e.scenes.insert(s)}, nil
}

// ReleaseScene removes every actor from the scene and frees it. The actors
// themselves stay alive.
func (e *Engine) ReleaseScene(h native.Scene) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.scenes.get(h.Handle)
	if !ok {
		return invalid("scene", h.Handle)
	}
	if s.pending != nil {
		return native.ErrStepPending
	}
	for a := range s.actors {
		s.removeActor(a, false)
	}
	s.disp.scenes--
	e.scenes.remove(h.Handle)
	return nil
}

func (e *Engine) CreateMaterial(p native.Physics, staticFriction, dynamicFriction, restitution float64) (native.Material, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.physics.get(p.Handle); !ok {
		return native.Material{}, invalid("physics", p.Handle)
	}
	if staticFriction < 0 || dynamicFriction < 0 || restitution < 0 || restitution > 1 {
		return native.Material{}, fmt.Errorf("%w: material %v/%v/%v", native.ErrInvalidArgument, staticFriction, dynamicFriction, restitution)
	}
	m := &material{
		physics:        p,
		staticFriction: staticFriction,
		friction:       dynamicFriction,
		restitution:    restitution,
	}
	return native.Material{Handle: e.materials.insert(m)}, nil
}

func (e *Engine) ReleaseMaterial(h native.Material) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.materials.remove(h.Handle); !ok {
		return invalid("material", h.Handle)
	}
	return nil
}

func (e *Engine) CreateShape(p native.Physics, g native.Geometry, m native.Material, exclusive bool, flags native.ShapeFlags) (native.Shape, error) {
	if err := native.Validate(g); err != nil {
		return native.Shape{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	phys, ok := e.physics.get(p.Handle)
	if !ok {
		return native.Shape{}, invalid("physics", p.Handle)
	}
	if m.IsNull() {
		m = phys.defaultMat
	}
	mat, ok := e.materials.get(m.Handle)
	if !ok {
		return native.Shape{}, invalid("material", m.Handle)
	}

	s := &shape{
		physics:   p,
		geom:      g,
		local:     native.Identity(),
		flags:     flags,
		mat:       mat,
		exclusive: exclusive,
		refs:      1,
	}
	s.handle = native.Shape{Handle: e.shapes.insert(s)}
	return s.handle, nil
}

func (e *Engine) ReleaseShape(h native.Shape) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.shapes.get(h.Handle)
	if !ok {
		return invalid("shape", h.Handle)
	}
	e.unrefShape(s)
	return nil
}

// unrefShape drops one reference and frees the shape on the last one.
// Caller holds e.mu.
func (e *Engine) unrefShape(s *shape) {
	s.refs--
	if s.refs <= 0 {
		e.shapes.remove(s.handle.Handle)
	}
}

func (e *Engine) CreateStaticActor(p native.Physics, pose native.Transform, sh native.Shape) (native.Actor, error) {
	return e.createActor(p, kindStatic, pose, sh, 0)
}

func (e *Engine) CreateDynamicActor(p native.Physics, pose native.Transform, sh native.Shape, density float64) (native.Actor, error) {
	return e.createActor(p, kindDynamic, pose, sh, density)
}

func (e *Engine) CreateKinematicActor(p native.Physics, pose native.Transform, sh native.Shape, density float64) (native.Actor, error) {
	return e.createActor(p, kindKinematic, pose, sh, density)
}

func (e *Engine) createActor(p native.Physics, kind actorKind, pose native.Transform, sh native.Shape, density float64) (h native.Actor, err error) {
	if !pose.IsFinite() {
		return native.Actor{}, fmt.Errorf("%w: pose %v", native.ErrInvalidArgument, pose)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	defer guard(&err)

	if _, ok := e.physics.get(p.Handle); !ok {
		return native.Actor{}, invalid("physics", p.Handle)
	}
	s, ok := e.shapes.get(sh.Handle)
	if !ok {
		return native.Actor{}, invalid("shape", sh.Handle)
	}
	// A planar shape belongs to one body, so even shared shapes attach once.
	if s.owner != nil {
		return native.Actor{}, fmt.Errorf("%w: shape already attached", native.ErrInUse)
	}
	if kind != kindStatic && s.geom.Type() == native.GeometryPlane {
		return native.Actor{}, fmt.Errorf("%w: plane on a non-static actor", native.ErrUnsupportedGeometry)
	}

	a := newActor(p, kind, pose)
	a.shapes = append(a.shapes, s)
	s.refs++
	s.owner = a
	s.attach()

	if kind != kindStatic {
		if err := a.updateMass(density); err != nil {
			s.detach()
			s.owner = nil
			s.refs--
			return native.Actor{}, fmt.Errorf("%w: density %v", err, density)
		}
	}
	return native.Actor{Handle: e.actors.insert(a)}, nil
}

func (e *Engine) ReleaseActor(h native.Actor) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, ok := e.actors.get(h.Handle)
	if !ok {
		return invalid("actor", h.Handle)
	}
	if sc := a.scene; sc != nil {
		if sc.pending != nil {
			return native.ErrStepPending
		}
		sc.removeActor(a, false)
	}
	for _, s := range a.shapes {
		s.detach()
		s.owner = nil
		e.unrefShape(s)
	}
	a.shapes = nil
	e.actors.remove(h.Handle)
	return nil
}

func (e *Engine) actor(h native.Actor) (*actor, error) {
	a, ok := e.actors.get(h.Handle)
	if !ok {
		return nil, invalid("actor", h.Handle)
	}
	return a, nil
}

// withActor runs fn with the actor's scene locked against a running step.
func (e *Engine) withActor(h native.Actor, fn func(*actor) error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	a, err := e.actor(h)
	if err != nil {
		return err
	}
	if a.scene != nil {
		a.scene.mu.Lock()
		defer a.scene.mu.Unlock()
	}
	defer guard(&err)
	return fn(a)
}

// withBody is withActor restricted to dynamic and kinematic actors.
func (e *Engine) withBody(h native.Actor, fn func(*actor) error) error {
	return e.withActor(h, func(a *actor) error {
		if a.kind == kindStatic {
			return fmt.Errorf("%w: static actor has no body", native.ErrInvalidArgument)
		}
		return fn(a)
	})
}

func nonNegative(name string, v float64) error {
	if v < 0 || math.IsNaN(v) {
		return fmt.Errorf("%w: %s %v", native.ErrInvalidArgument, name, v)
	}
	return nil
}
