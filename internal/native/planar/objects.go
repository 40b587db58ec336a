package planar

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/san-kum/rigidkit/internal/native"
)

const (
	planeHalfLength = 1000.0
	planeThickness  = 0.5

	defaultIterations    = 10
	defaultSleepTime     = 0.5
	defaultAngularDamp   = 0.05
	defaultMaxDepen      = 1e32
	defaultMaxAngularVel = 100.0
	defaultSleepEnergy   = 5e-5

	// Velocity writes from the integrator wake the body, so damping and
	// clamping stop below this speed to let resting bodies fall asleep.
	adjustSpeedFloor = 1e-2

	// A body put to sleep wakes when contacts change its velocity by more
	// than this in one step.
	wakeSpeed = 0.1
)

var zAxis = mgl64.Vec3{0, 0, 1}

type physicsObj struct {
	foundation native.Foundation
	desc       native.PhysicsDesc
	defaultMat native.Material
}

type material struct {
	physics                  native.Physics
	staticFriction, friction float64
	restitution              float64
}

type actorKind int

const (
	kindStatic actorKind = iota
	kindDynamic
	kindKinematic
)

type shape struct {
	physics   native.Physics
	geom      native.Geometry
	local     native.Transform
	flags     native.ShapeFlags
	mat       *material
	exclusive bool
	refs      int
	owner     *actor
	cps       *cp.Shape
	handle    native.Shape
}

type actor struct {
	physics native.Physics
	kind    actorKind
	body    *cp.Body
	shapes  []*shape
	scene   *scene

	// The body simulates the twist about z. Depth and the out-of-plane part
	// of the rotation are carried alongside and reapplied on reads.
	z    float64
	tilt mgl64.Quat

	mass    float64
	inertia mgl64.Vec3
	cmass   native.Transform
	// com is where the cp body origin sits in the actor's planar frame. The
	// solver treats the body origin as the centre of gravity, so shapes are
	// built shifted by -com.
	com cp.Vector

	// asleep is set by PutToSleep: the body keeps its pose until woken.
	asleep bool
	held   cp.Vector
	heldW  float64

	linDamp, angDamp   float64
	maxDepen, maxAngle float64
	sleepThreshold     float64

	actorFlags native.ActorFlags
	bodyFlags  native.RigidBodyFlags
	locks      native.LockFlags

	posIters, velIters uint32
}

type stepResult struct {
	code native.ErrorCode
}

type scene struct {
	mu      sync.Mutex
	physics native.Physics
	disp    *dispatcher
	desc    native.SceneDesc
	space   *cp.Space
	actors  map[*actor]struct{}
	pending chan stepResult
}

// twistZ splits q into a rotation about z and the remaining tilt, so that
// q == QuatRotate(angle, z) * tilt.
func twistZ(q mgl64.Quat) (angle float64, tilt mgl64.Quat) {
	q = q.Normalize()
	angle = 2 * math.Atan2(q.V.Z(), q.W)
	twist := mgl64.QuatRotate(angle, zAxis)
	return angle, twist.Inverse().Mul(q).Normalize()
}

func vec2(v mgl64.Vec3) cp.Vector { return cp.Vector{X: v.X(), Y: v.Y()} }

func vec3(v cp.Vector, z float64) mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, z} }

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func newActor(p native.Physics, kind actorKind, pose native.Transform) *actor {
	a := &actor{
		physics:        p,
		kind:           kind,
		cmass:          native.Identity(),
		angDamp:        defaultAngularDamp,
		maxDepen:       defaultMaxDepen,
		maxAngle:       defaultMaxAngularVel,
		sleepThreshold: defaultSleepEnergy,
		actorFlags:     native.ActorVisualization,
		posIters:       4,
		velIters:       1,
	}
	switch kind {
	case kindStatic:
		a.body = cp.NewStaticBody()
	case kindKinematic:
		a.body = cp.NewKinematicBody()
		a.bodyFlags |= native.BodyKinematic
	default:
		a.body = cp.NewBody(1, 1)
	}
	if kind != kindStatic {
		a.body.SetVelocityUpdateFunc(a.integrateVelocity)
		a.body.SetPositionUpdateFunc(a.integratePosition)
	}
	a.setPose(pose)
	return a
}

func (a *actor) setPose(pose native.Transform) {
	angle, tilt := twistZ(pose.Rotation)
	a.z = pose.Position.Z()
	if !a.tilt.ApproxEqual(tilt) {
		a.tilt = tilt
		a.rebuildShapes()
	}
	a.body.SetAngle(angle)
	a.body.SetPosition(vec2(pose.Position).Add(rotate(a.com, angle)))
}

func (a *actor) pose() native.Transform {
	angle := a.body.Angle()
	return native.Transform{
		Rotation: mgl64.QuatRotate(angle, zAxis).Mul(a.tilt),
		Position: vec3(a.body.Position().Sub(rotate(a.com, angle)), a.z),
	}
}

// rotate turns v by angle radians counter-clockwise.
func rotate(v cp.Vector, angle float64) cp.Vector {
	sin, cos := math.Sincos(angle)
	return cp.Vector{X: cos*v.X - sin*v.Y, Y: sin*v.X + cos*v.Y}
}

// shapeSpace maps shape space into the actor's planar frame.
func (a *actor) shapeSpace(s *shape) native.Transform {
	return native.Transform{Rotation: a.tilt}.Mul(s.local)
}

// bodySpace maps shape space into the cp body frame, whose origin is the
// centre of mass.
func (a *actor) bodySpace(s *shape) native.Transform {
	shift := native.Transform{Rotation: mgl64.QuatIdent(), Position: mgl64.Vec3{-a.com.X, -a.com.Y, 0}}
	return shift.Mul(a.shapeSpace(s))
}

// moveCOM places the cp body origin at the stored centre of mass without
// moving the actor.
func (a *actor) moveCOM() {
	c := a.tilt.Rotate(a.cmass.Position)
	com := cp.Vector{X: c.X(), Y: c.Y()}
	if com == a.com {
		return
	}
	angle := a.body.Angle()
	origin := a.body.Position().Sub(rotate(a.com, angle))
	a.com = com
	a.body.SetPosition(origin.Add(rotate(com, angle)))
	a.rebuildShapes()
}

func (a *actor) sleeping() bool {
	return a.scene != nil && a.kind == kindDynamic && (a.asleep || a.body.IsSleeping())
}

func (a *actor) putToSleep() {
	a.asleep = true
	a.held, a.heldW = a.body.Velocity(), a.body.AngularVelocity()
}

func (a *actor) wake() {
	a.asleep = false
	a.body.Activate()
}

// integratePosition is the body position callback. Bodies put to sleep do
// not move.
func (a *actor) integratePosition(body *cp.Body, dt float64) {
	if a.asleep {
		return
	}
	cp.BodyUpdatePosition(body, dt)
}

// integrateVelocity is the body velocity callback. It applies the per-body
// settings the space has no notion of.
func (a *actor) integrateVelocity(body *cp.Body, gravity cp.Vector, damping, dt float64) {
	if a.asleep {
		// Only contact impulses change a held velocity.
		if body.Velocity().Sub(a.held).Length() <= wakeSpeed && math.Abs(body.AngularVelocity()-a.heldW) <= wakeSpeed {
			body.SetVelocityVector(a.held)
			body.SetAngularVelocity(a.heldW)
			return
		}
		a.asleep = false
	}
	if a.actorFlags&native.ActorDisableGravity != 0 {
		gravity = cp.Vector{}
	}
	cp.BodyUpdateVelocity(body, gravity, damping, dt)

	v := body.Velocity()
	w := body.AngularVelocity()
	nv, nw := v, w

	if v.Length() > adjustSpeedFloor && a.linDamp > 0 {
		nv = nv.Mult(1 / (1 + dt*a.linDamp))
	}
	if math.Abs(w) > adjustSpeedFloor && a.angDamp > 0 {
		nw = nw / (1 + dt*a.angDamp)
	}
	if a.maxAngle > 0 && math.Abs(nw) > a.maxAngle {
		nw = math.Copysign(a.maxAngle, nw)
	}
	if a.locks&native.LockLinearX != 0 {
		nv.X = 0
	}
	if a.locks&native.LockLinearY != 0 {
		nv.Y = 0
	}
	if a.locks&native.LockAngularZ != 0 {
		nw = 0
	}

	if nv != v {
		body.SetVelocityVector(nv)
	}
	if nw != w {
		body.SetAngularVelocity(nw)
	}
}

// rebuildShapes recreates every collision shape after the body frame moved
// relative to the shapes.
func (a *actor) rebuildShapes() {
	for _, s := range a.shapes {
		s.rebuild()
	}
}

func (a *actor) space() *cp.Space {
	if a.scene == nil {
		return nil
	}
	return a.scene.space
}
