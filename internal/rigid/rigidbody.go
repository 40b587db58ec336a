package rigid

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/native"
)

// Rigidbody is a dynamic or kinematic actor. Its accessors pass straight
// through to the engine; writes wake the body where the engine supports it.
type Rigidbody struct {
	actorBase
	scene *Scene

	// pair serialises read-modify-write setters: the two solver iteration
	// counts and the lock flags behind FreezeRotation and Constraints.
	pair sync.Mutex
}

func newRigidbody(engine native.Engine, h native.Actor, c Collider, kind ActorKind, sc *Scene) *Rigidbody {
	return &Rigidbody{
		actorBase: actorBase{engine: engine, kind: kind, collider: c, handle: h},
		scene:     sc,
	}
}

// Scene returns the scene the body was created in.
func (rb *Rigidbody) Scene() *Scene { return rb.scene }

// Kind reports KindKinematic while the kinematic flag is set.
func (rb *Rigidbody) Kind() ActorKind {
	if k, err := rb.IsKinematic(); err == nil {
		if k {
			return KindKinematic
		}
		return KindDynamic
	}
	return rb.kind
}

func (rb *Rigidbody) call(op string, fn func(native.Actor) error) error {
	h, err := rb.native()
	if err != nil {
		return err
	}
	return nativeErr(op, fn(h))
}

func get[V any](rb *Rigidbody, op string, fn func(native.Actor) (V, error)) (V, error) {
	h, err := rb.native()
	if err != nil {
		var zero V
		return zero, err
	}
	v, err := fn(h)
	return v, nativeErr(op, err)
}

func (rb *Rigidbody) Velocity() (mgl64.Vec3, error) {
	return get(rb, "linear velocity", rb.engine.LinearVelocity)
}

func (rb *Rigidbody) SetVelocity(v mgl64.Vec3) error {
	return rb.call("set linear velocity", func(h native.Actor) error {
		return rb.engine.SetLinearVelocity(h, v, true)
	})
}

func (rb *Rigidbody) AngularVelocity() (mgl64.Vec3, error) {
	return get(rb, "angular velocity", rb.engine.AngularVelocity)
}

func (rb *Rigidbody) SetAngularVelocity(v mgl64.Vec3) error {
	return rb.call("set angular velocity", func(h native.Actor) error {
		return rb.engine.SetAngularVelocity(h, v, true)
	})
}

// Drag is the linear damping.
func (rb *Rigidbody) Drag() (float64, error) {
	return get(rb, "linear damping", rb.engine.LinearDamping)
}

func (rb *Rigidbody) SetDrag(v float64) error {
	return rb.call("set linear damping", func(h native.Actor) error {
		return rb.engine.SetLinearDamping(h, v)
	})
}

// AngularDrag is the angular damping.
func (rb *Rigidbody) AngularDrag() (float64, error) {
	return get(rb, "angular damping", rb.engine.AngularDamping)
}

func (rb *Rigidbody) SetAngularDrag(v float64) error {
	return rb.call("set angular damping", func(h native.Actor) error {
		return rb.engine.SetAngularDamping(h, v)
	})
}

func (rb *Rigidbody) Mass() (float64, error) {
	return get(rb, "mass", rb.engine.Mass)
}

func (rb *Rigidbody) SetMass(m float64) error {
	return rb.call("set mass", func(h native.Actor) error {
		return rb.engine.SetMass(h, m)
	})
}

func (rb *Rigidbody) UseGravity() (bool, error) {
	f, err := get(rb, "actor flags", rb.engine.ActorFlags)
	return f&native.ActorDisableGravity == 0, err
}

func (rb *Rigidbody) SetUseGravity(v bool) error {
	return rb.call("set actor flag", func(h native.Actor) error {
		return rb.engine.SetActorFlag(h, native.ActorDisableGravity, !v)
	})
}

func (rb *Rigidbody) MaxDepenetrationVelocity() (float64, error) {
	return get(rb, "max depenetration velocity", rb.engine.MaxDepenetrationVelocity)
}

func (rb *Rigidbody) SetMaxDepenetrationVelocity(v float64) error {
	return rb.call("set max depenetration velocity", func(h native.Actor) error {
		return rb.engine.SetMaxDepenetrationVelocity(h, v)
	})
}

func (rb *Rigidbody) IsKinematic() (bool, error) {
	f, err := get(rb, "rigid body flags", rb.engine.RigidBodyFlags)
	return f&native.BodyKinematic != 0, err
}

func (rb *Rigidbody) SetKinematic(v bool) error {
	return rb.call("set rigid body flag", func(h native.Actor) error {
		return rb.engine.SetRigidBodyFlag(h, native.BodyKinematic, v)
	})
}

// FreezeRotation reports whether all three rotation axes are locked.
func (rb *Rigidbody) FreezeRotation() (bool, error) {
	f, err := get(rb, "lock flags", rb.engine.LockFlags)
	return f&native.LockAngular == native.LockAngular, err
}

func (rb *Rigidbody) SetFreezeRotation(v bool) error {
	rb.pair.Lock()
	defer rb.pair.Unlock()
	return rb.call("set lock flags", func(h native.Actor) error {
		f, err := rb.engine.LockFlags(h)
		if err != nil {
			return err
		}
		if v {
			f |= native.LockAngular
		} else {
			f &^= native.LockAngular
		}
		return rb.engine.SetLockFlags(h, f)
	})
}

func (rb *Rigidbody) Constraints() (RigidbodyConstraints, error) {
	f, err := get(rb, "lock flags", rb.engine.LockFlags)
	return ConstraintsFromLockFlags(f), err
}

func (rb *Rigidbody) SetConstraints(c RigidbodyConstraints) error {
	rb.pair.Lock()
	defer rb.pair.Unlock()
	return rb.call("set lock flags", func(h native.Actor) error {
		return rb.engine.SetLockFlags(h, c.LockFlags())
	})
}

func (rb *Rigidbody) CollisionDetectionMode() (CollisionDetectionMode, error) {
	f, err := get(rb, "rigid body flags", rb.engine.RigidBodyFlags)
	switch {
	case err != nil:
		return Discrete, err
	case f&native.BodyEnableSpeculativeCCD != 0:
		return ContinuousSpeculative, nil
	case f&native.BodyEnableCCD != 0:
		return ContinuousDynamic, nil
	}
	return Discrete, nil
}

func (rb *Rigidbody) SetCollisionDetectionMode(m CollisionDetectionMode) error {
	ccd, speculative := false, false
	switch m {
	case Continuous, ContinuousDynamic:
		ccd = true
	case ContinuousSpeculative:
		speculative = true
	}
	return rb.call("set rigid body flag", func(h native.Actor) error {
		if err := rb.engine.SetRigidBodyFlag(h, native.BodyEnableCCD, ccd); err != nil {
			return err
		}
		return rb.engine.SetRigidBodyFlag(h, native.BodyEnableSpeculativeCCD, speculative)
	})
}

// CenterOfMass is relative to the actor's origin.
func (rb *Rigidbody) CenterOfMass() (mgl64.Vec3, error) {
	t, err := get(rb, "center of mass pose", rb.engine.CMassLocalPose)
	return t.Position, err
}

func (rb *Rigidbody) SetCenterOfMass(v mgl64.Vec3) error {
	return rb.call("set center of mass pose", func(h native.Actor) error {
		t, err := rb.engine.CMassLocalPose(h)
		if err != nil {
			return err
		}
		t.Position = v
		return rb.engine.SetCMassLocalPose(h, t)
	})
}

func (rb *Rigidbody) WorldCenterOfMass() (mgl64.Vec3, error) {
	var out mgl64.Vec3
	err := rb.call("world center of mass", func(h native.Actor) error {
		pose, err := rb.engine.GlobalPose(h)
		if err != nil {
			return err
		}
		c, err := rb.engine.CMassLocalPose(h)
		if err != nil {
			return err
		}
		out = pose.Apply(c.Position)
		return nil
	})
	return out, err
}

func (rb *Rigidbody) InertiaTensor() (mgl64.Vec3, error) {
	return get(rb, "inertia tensor", rb.engine.MassSpaceInertiaTensor)
}

func (rb *Rigidbody) SetInertiaTensor(v mgl64.Vec3) error {
	return rb.call("set inertia tensor", func(h native.Actor) error {
		return rb.engine.SetMassSpaceInertiaTensor(h, v)
	})
}

// DetectCollisions reports whether the first shape takes part in contact
// generation.
func (rb *Rigidbody) DetectCollisions() (bool, error) {
	var on bool
	err := rb.call("shape flags", func(h native.Actor) error {
		shapes, err := rb.engine.ActorShapes(h)
		if err != nil || len(shapes) == 0 {
			return err
		}
		f, err := rb.engine.ShapeFlags(shapes[0])
		on = f&native.ShapeSimulation != 0
		return err
	})
	return on, err
}

func (rb *Rigidbody) SetDetectCollisions(v bool) error {
	return rb.call("set shape flag", func(h native.Actor) error {
		shapes, err := rb.engine.ActorShapes(h)
		if err != nil {
			return err
		}
		for _, s := range shapes {
			if err := rb.engine.SetShapeFlag(s, native.ShapeSimulation, v); err != nil {
				return err
			}
		}
		return nil
	})
}

func (rb *Rigidbody) Position() (mgl64.Vec3, error) {
	t, err := rb.Transform()
	return t.Position, err
}

func (rb *Rigidbody) SetPosition(p mgl64.Vec3) error {
	return rb.call("set global pose", func(h native.Actor) error {
		t, err := rb.engine.GlobalPose(h)
		if err != nil {
			return err
		}
		t.Position = p
		return rb.engine.SetGlobalPose(h, t, true)
	})
}

func (rb *Rigidbody) Rotation() (mgl64.Quat, error) {
	t, err := rb.Transform()
	return t.Rotation, err
}

func (rb *Rigidbody) SetRotation(q mgl64.Quat) error {
	return rb.call("set global pose", func(h native.Actor) error {
		t, err := rb.engine.GlobalPose(h)
		if err != nil {
			return err
		}
		t.Rotation = q
		return rb.engine.SetGlobalPose(h, t, true)
	})
}

// SolverIterations is the minimum position iteration count.
func (rb *Rigidbody) SolverIterations() (int, error) {
	pos, _, err := rb.solverIterationCounts()
	return int(pos), err
}

// SolverVelocityIterations is the minimum velocity iteration count.
func (rb *Rigidbody) SolverVelocityIterations() (int, error) {
	_, vel, err := rb.solverIterationCounts()
	return int(vel), err
}

func (rb *Rigidbody) solverIterationCounts() (uint32, uint32, error) {
	h, err := rb.native()
	if err != nil {
		return 0, 0, err
	}
	pos, vel, err := rb.engine.SolverIterationCounts(h)
	return pos, vel, nativeErr("solver iteration counts", err)
}

func (rb *Rigidbody) SetSolverIterations(n int) error {
	return rb.updateIterations(func(pos, vel *uint32) { *pos = uint32(n) })
}

func (rb *Rigidbody) SetSolverVelocityIterations(n int) error {
	return rb.updateIterations(func(pos, vel *uint32) { *vel = uint32(n) })
}

// SetSolverIterationCounts sets both counts in one engine call.
func (rb *Rigidbody) SetSolverIterationCounts(position, velocity int) error {
	return rb.updateIterations(func(pos, vel *uint32) {
		*pos, *vel = uint32(position), uint32(velocity)
	})
}

func (rb *Rigidbody) updateIterations(fn func(pos, vel *uint32)) error {
	rb.pair.Lock()
	defer rb.pair.Unlock()
	return rb.call("set solver iteration counts", func(h native.Actor) error {
		pos, vel, err := rb.engine.SolverIterationCounts(h)
		if err != nil {
			return err
		}
		fn(&pos, &vel)
		return rb.engine.SetSolverIterationCounts(h, pos, vel)
	})
}

func (rb *Rigidbody) SleepThreshold() (float64, error) {
	return get(rb, "sleep threshold", rb.engine.SleepThreshold)
}

func (rb *Rigidbody) SetSleepThreshold(v float64) error {
	return rb.call("set sleep threshold", func(h native.Actor) error {
		return rb.engine.SetSleepThreshold(h, v)
	})
}

func (rb *Rigidbody) MaxAngularVelocity() (float64, error) {
	return get(rb, "max angular velocity", rb.engine.MaxAngularVelocity)
}

func (rb *Rigidbody) SetMaxAngularVelocity(v float64) error {
	return rb.call("set max angular velocity", func(h native.Actor) error {
		return rb.engine.SetMaxAngularVelocity(h, v)
	})
}

// SetDensity recomputes mass and inertia from the attached shapes.
func (rb *Rigidbody) SetDensity(density float64) error {
	return rb.call("update mass and inertia", func(h native.Actor) error {
		return rb.engine.UpdateMassAndInertia(h, density)
	})
}

func (rb *Rigidbody) Sleep() error {
	return rb.call("put to sleep", rb.engine.PutToSleep)
}

func (rb *Rigidbody) IsSleeping() (bool, error) {
	return get(rb, "is sleeping", rb.engine.IsSleeping)
}

func (rb *Rigidbody) WakeUp() error {
	return rb.call("wake up", rb.engine.WakeUp)
}

func (rb *Rigidbody) ResetCenterOfMass() error {
	return rb.SetCenterOfMass(mgl64.Vec3{})
}

func (rb *Rigidbody) ResetInertiaTensor() error {
	return rb.SetInertiaTensor(mgl64.Vec3{})
}

// AddForce applies a world-space force at the center of mass.
func (rb *Rigidbody) AddForce(force mgl64.Vec3, mode ForceMode) error {
	m, err := mode.native()
	if err != nil {
		return err
	}
	return rb.call("add force", func(h native.Actor) error {
		return rb.engine.AddForce(h, force, m, true)
	})
}

// AddRelativeForce applies a force given in the body's frame. Only the
// rotation is applied to the vector.
func (rb *Rigidbody) AddRelativeForce(force mgl64.Vec3, mode ForceMode) error {
	m, err := mode.native()
	if err != nil {
		return err
	}
	return rb.call("add force", func(h native.Actor) error {
		pose, err := rb.engine.GlobalPose(h)
		if err != nil {
			return err
		}
		return rb.engine.AddForce(h, pose.Rotate(force), m, true)
	})
}

func (rb *Rigidbody) AddTorque(torque mgl64.Vec3, mode ForceMode) error {
	m, err := mode.native()
	if err != nil {
		return err
	}
	return rb.call("add torque", func(h native.Actor) error {
		return rb.engine.AddTorque(h, torque, m, true)
	})
}

func (rb *Rigidbody) AddRelativeTorque(torque mgl64.Vec3, mode ForceMode) error {
	m, err := mode.native()
	if err != nil {
		return err
	}
	return rb.call("add torque", func(h native.Actor) error {
		pose, err := rb.engine.GlobalPose(h)
		if err != nil {
			return err
		}
		return rb.engine.AddTorque(h, pose.Rotate(torque), m, true)
	})
}

// AddForceAtPosition applies a world-space force at a world-space point,
// producing both force and torque.
func (rb *Rigidbody) AddForceAtPosition(force, position mgl64.Vec3, mode ForceMode) error {
	m, err := mode.native()
	if err != nil {
		return err
	}
	return rb.call("add force at position", func(h native.Actor) error {
		return rb.engine.AddForceAtPos(h, force, position, m, true)
	})
}
