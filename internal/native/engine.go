package native

import "github.com/go-gl/mathgl/mgl64"

type ShapeFlags uint8

const (
	ShapeSimulation ShapeFlags = 1 << iota
	ShapeSceneQuery
	ShapeTrigger
	ShapeVisualization
)

// DefaultShapeFlags is the flag set used for every collider shape.
const DefaultShapeFlags = ShapeVisualization | ShapeSceneQuery | ShapeSimulation

type ActorFlags uint8

const (
	ActorVisualization ActorFlags = 1 << iota
	ActorDisableGravity
	ActorSendSleepNotifies
	ActorDisableSimulation
)

type RigidBodyFlags uint8

const (
	BodyKinematic RigidBodyFlags = 1 << iota
	BodyKinematicTargetForSceneQueries
	BodyEnableCCD
	BodyEnableCCDFriction
	BodyEnableSpeculativeCCD
)

type LockFlags uint8

const (
	LockLinearX LockFlags = 1 << iota
	LockLinearY
	LockLinearZ
	LockAngularX
	LockAngularY
	LockAngularZ
)

const LockAngular = LockAngularX | LockAngularY | LockAngularZ

type ForceMode int

const (
	// Force: mass * distance / time^2, integrated over the step.
	Force ForceMode = iota
	// Impulse: mass * distance / time, applied at once.
	Impulse
	VelocityChange
	Acceleration
)

type SolverType int

const (
	SolverPGS SolverType = iota
	SolverTGS
)

type FilterShader int

const DefaultFilterShader FilterShader = 0

// PhysicsDesc configures CreatePhysics.
type PhysicsDesc struct {
	ToleranceLength float64
	ToleranceSpeed  float64
}

func DefaultPhysicsDesc() PhysicsDesc {
	return PhysicsDesc{ToleranceLength: 1, ToleranceSpeed: 10}
}

// SceneDesc configures CreateScene. Dispatcher must be a live dispatcher.
type SceneDesc struct {
	Gravity      mgl64.Vec3
	Dispatcher   Dispatcher
	FilterShader FilterShader
	SolverType   SolverType
}

// Lifecycle creates and releases engine objects. Release of an already
// released handle fails with ErrInvalidHandle.
type Lifecycle interface {
	CreateFoundation() (Foundation, error)
	ReleaseFoundation(Foundation) error

	CreatePhysics(Foundation, PhysicsDesc) (Physics, error)
	ReleasePhysics(Physics) error

	CreateDispatcher(threads int) (Dispatcher, error)
	ReleaseDispatcher(Dispatcher) error

	CreateScene(Physics, SceneDesc) (Scene, error)
	ReleaseScene(Scene) error

	CreateMaterial(p Physics, staticFriction, dynamicFriction, restitution float64) (Material, error)
	ReleaseMaterial(Material) error

	// CreateShape returns a shape holding one reference. Attaching it to an
	// actor adds a reference; ReleaseShape drops one.
	CreateShape(p Physics, g Geometry, m Material, exclusive bool, flags ShapeFlags) (Shape, error)
	ReleaseShape(Shape) error

	CreateStaticActor(p Physics, pose Transform, s Shape) (Actor, error)
	CreateDynamicActor(p Physics, pose Transform, s Shape, density float64) (Actor, error)
	CreateKinematicActor(p Physics, pose Transform, s Shape, density float64) (Actor, error)
	// ReleaseActor removes the actor from its scene if needed and drops its
	// references on attached shapes.
	ReleaseActor(Actor) error
}

type SceneOps interface {
	AddActor(Scene, Actor) error
	RemoveActor(s Scene, a Actor, wakeOnLostTouch bool) error
	// Simulate starts one step on the scene's dispatcher.
	Simulate(s Scene, dt float64) error
	// FetchResults completes the pending step. With block false it returns
	// ready=false while the step is still running.
	FetchResults(s Scene, block bool) (ready bool, code ErrorCode, err error)
}

type ShapeOps interface {
	ShapeGeometry(Shape) (Geometry, error)
	SetShapeGeometry(Shape, Geometry) error
	ShapeLocalPose(Shape) (Transform, error)
	SetShapeLocalPose(Shape, Transform) error
	ShapeFlags(Shape) (ShapeFlags, error)
	SetShapeFlag(s Shape, flag ShapeFlags, value bool) error
}

type ActorOps interface {
	GlobalPose(Actor) (Transform, error)
	SetGlobalPose(a Actor, pose Transform, autowake bool) error
	ActorShapes(Actor) ([]Shape, error)
	ActorFlags(Actor) (ActorFlags, error)
	SetActorFlag(a Actor, flag ActorFlags, value bool) error
}

// BodyOps covers dynamic and kinematic actors. Calling them on a static
// actor fails with ErrInvalidArgument.
type BodyOps interface {
	LinearVelocity(Actor) (mgl64.Vec3, error)
	SetLinearVelocity(a Actor, v mgl64.Vec3, autowake bool) error
	AngularVelocity(Actor) (mgl64.Vec3, error)
	SetAngularVelocity(a Actor, v mgl64.Vec3, autowake bool) error

	LinearDamping(Actor) (float64, error)
	SetLinearDamping(Actor, float64) error
	AngularDamping(Actor) (float64, error)
	SetAngularDamping(Actor, float64) error

	Mass(Actor) (float64, error)
	SetMass(Actor, float64) error
	MassSpaceInertiaTensor(Actor) (mgl64.Vec3, error)
	SetMassSpaceInertiaTensor(Actor, mgl64.Vec3) error
	CMassLocalPose(Actor) (Transform, error)
	SetCMassLocalPose(Actor, Transform) error
	UpdateMassAndInertia(a Actor, density float64) error

	MaxDepenetrationVelocity(Actor) (float64, error)
	SetMaxDepenetrationVelocity(Actor, float64) error
	MaxAngularVelocity(Actor) (float64, error)
	SetMaxAngularVelocity(Actor, float64) error

	RigidBodyFlags(Actor) (RigidBodyFlags, error)
	SetRigidBodyFlag(a Actor, flag RigidBodyFlags, value bool) error
	LockFlags(Actor) (LockFlags, error)
	SetLockFlags(Actor, LockFlags) error

	SolverIterationCounts(Actor) (position, velocity uint32, err error)
	SetSolverIterationCounts(a Actor, position, velocity uint32) error

	SleepThreshold(Actor) (float64, error)
	SetSleepThreshold(Actor, float64) error
	IsSleeping(Actor) (bool, error)
	PutToSleep(Actor) error
	WakeUp(Actor) error

	AddForce(a Actor, force mgl64.Vec3, mode ForceMode, autowake bool) error
	AddTorque(a Actor, torque mgl64.Vec3, mode ForceMode, autowake bool) error
	AddForceAtPos(a Actor, force, pos mgl64.Vec3, mode ForceMode, wakeup bool) error
}

// Engine is the full native surface consumed by rigidkit.
type Engine interface {
	Lifecycle
	SceneOps
	ShapeOps
	ActorOps
	BodyOps
}
