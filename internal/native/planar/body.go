package planar

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/san-kum/rigidkit/internal/native"
)

// Velocities are planar: z linear and x/y angular components are dropped.

func (e *Engine) LinearVelocity(h native.Actor) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := e.withBody(h, func(a *actor) error {
		v = vec3(a.body.Velocity(), 0)
		return nil
	})
	return v, err
}

func (e *Engine) SetLinearVelocity(h native.Actor, v mgl64.Vec3, autowake bool) error {
	if !finite(v.X(), v.Y(), v.Z()) {
		return fmt.Errorf("%w: velocity %v", native.ErrInvalidArgument, v)
	}
	return e.withBody(h, func(a *actor) error {
		a.keepSleep(autowake, func() { a.body.SetVelocityVector(vec2(v)) })
		return nil
	})
}

func (e *Engine) AngularVelocity(h native.Actor) (mgl64.Vec3, error) {
	var w mgl64.Vec3
	err := e.withBody(h, func(a *actor) error {
		w = mgl64.Vec3{0, 0, a.body.AngularVelocity()}
		return nil
	})
	return w, err
}

func (e *Engine) SetAngularVelocity(h native.Actor, w mgl64.Vec3, autowake bool) error {
	if !finite(w.X(), w.Y(), w.Z()) {
		return fmt.Errorf("%w: angular velocity %v", native.ErrInvalidArgument, w)
	}
	return e.withBody(h, func(a *actor) error {
		a.keepSleep(autowake, func() { a.body.SetAngularVelocity(w.Z()) })
		return nil
	})
}

// keepSleep runs a body write and puts a sleeping body back to sleep when
// the caller did not ask to wake it.
func (a *actor) keepSleep(autowake bool, write func()) {
	sleeping := a.sleeping()
	write()
	switch {
	case sleeping && !autowake:
		a.putToSleep()
	case sleeping:
		a.wake()
	}
}

func (e *Engine) getFloat(h native.Actor, get func(*actor) float64) (float64, error) {
	var v float64
	err := e.withBody(h, func(a *actor) error {
		v = get(a)
		return nil
	})
	return v, err
}

func (e *Engine) setFloat(h native.Actor, name string, v float64, set func(*actor, float64)) error {
	if err := nonNegative(name, v); err != nil {
		return err
	}
	return e.withBody(h, func(a *actor) error {
		set(a, v)
		return nil
	})
}

func (e *Engine) LinearDamping(h native.Actor) (float64, error) {
	return e.getFloat(h, func(a *actor) float64 { return a.linDamp })
}

func (e *Engine) SetLinearDamping(h native.Actor, v float64) error {
	return e.setFloat(h, "linear damping", v, func(a *actor, v float64) { a.linDamp = v })
}

func (e *Engine) AngularDamping(h native.Actor) (float64, error) {
	return e.getFloat(h, func(a *actor) float64 { return a.angDamp })
}

func (e *Engine) SetAngularDamping(h native.Actor, v float64) error {
	return e.setFloat(h, "angular damping", v, func(a *actor, v float64) { a.angDamp = v })
}

func (e *Engine) Mass(h native.Actor) (float64, error) {
	return e.getFloat(h, func(a *actor) float64 { return a.mass })
}

func (e *Engine) SetMass(h native.Actor, m float64) error {
	if !(m > 0) || math.IsInf(m, 0) {
		return fmt.Errorf("%w: mass %v", native.ErrInvalidArgument, m)
	}
	return e.withBody(h, func(a *actor) error {
		a.mass = m
		a.pushMass()
		return nil
	})
}

func (e *Engine) MassSpaceInertiaTensor(h native.Actor) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	err := e.withBody(h, func(a *actor) error {
		v = a.inertia
		return nil
	})
	return v, err
}

func (e *Engine) SetMassSpaceInertiaTensor(h native.Actor, v mgl64.Vec3) error {
	for _, c := range [...]float64{v.X(), v.Y(), v.Z()} {
		if c < 0 || !finite(c) {
			return fmt.Errorf("%w: inertia %v", native.ErrInvalidArgument, v)
		}
	}
	return e.withBody(h, func(a *actor) error {
		a.inertia = v
		a.pushMass()
		return nil
	})
}

func (e *Engine) CMassLocalPose(h native.Actor) (native.Transform, error) {
	var t native.Transform
	err := e.withBody(h, func(a *actor) error {
		t = a.cmass
		return nil
	})
	return t, err
}

func (e *Engine) SetCMassLocalPose(h native.Actor, t native.Transform) error {
	if !t.IsFinite() {
		return fmt.Errorf("%w: pose %v", native.ErrInvalidArgument, t)
	}
	return e.withBody(h, func(a *actor) error {
		a.cmass = t
		a.pushMass()
		return nil
	})
}

func (e *Engine) UpdateMassAndInertia(h native.Actor, density float64) error {
	return e.withBody(h, func(a *actor) error {
		if err := a.updateMass(density); err != nil {
			return fmt.Errorf("%w: density %v", err, density)
		}
		return nil
	})
}

func (e *Engine) MaxDepenetrationVelocity(h native.Actor) (float64, error) {
	return e.getFloat(h, func(a *actor) float64 { return a.maxDepen })
}

func (e *Engine) SetMaxDepenetrationVelocity(h native.Actor, v float64) error {
	return e.setFloat(h, "max depenetration velocity", v, func(a *actor, v float64) { a.maxDepen = v })
}

func (e *Engine) MaxAngularVelocity(h native.Actor) (float64, error) {
	return e.getFloat(h, func(a *actor) float64 { return a.maxAngle })
}

func (e *Engine) SetMaxAngularVelocity(h native.Actor, v float64) error {
	return e.setFloat(h, "max angular velocity", v, func(a *actor, v float64) { a.maxAngle = v })
}

func (e *Engine) RigidBodyFlags(h native.Actor) (native.RigidBodyFlags, error) {
	var f native.RigidBodyFlags
	err := e.withBody(h, func(a *actor) error {
		f = a.bodyFlags
		return nil
	})
	return f, err
}

func (e *Engine) SetRigidBodyFlag(h native.Actor, flag native.RigidBodyFlags, value bool) error {
	return e.withBody(h, func(a *actor) error {
		wasKinematic := a.bodyFlags&native.BodyKinematic != 0
		if value {
			a.bodyFlags |= flag
		} else {
			a.bodyFlags &^= flag
		}

		isKinematic := a.bodyFlags&native.BodyKinematic != 0
		if wasKinematic == isKinematic {
			return nil
		}
		if isKinematic {
			a.asleep = false
			a.kind = kindKinematic
			a.body.SetType(cp.BODY_KINEMATIC)
			return nil
		}
		a.kind = kindDynamic
		a.body.SetType(cp.BODY_DYNAMIC)
		a.pushMass()
		return nil
	})
}

func (e *Engine) LockFlags(h native.Actor) (native.LockFlags, error) {
	var f native.LockFlags
	err := e.withBody(h, func(a *actor) error {
		f = a.locks
		return nil
	})
	return f, err
}

func (e *Engine) SetLockFlags(h native.Actor, f native.LockFlags) error {
	return e.withBody(h, func(a *actor) error {
		a.locks = f
		return nil
	})
}

func (e *Engine) SolverIterationCounts(h native.Actor) (uint32, uint32, error) {
	var pos, vel uint32
	err := e.withBody(h, func(a *actor) error {
		pos, vel = a.posIters, a.velIters
		return nil
	})
	return pos, vel, err
}

func (e *Engine) SetSolverIterationCounts(h native.Actor, position, velocity uint32) error {
	if position < 1 || position > 255 || velocity > 255 {
		return fmt.Errorf("%w: solver iterations %d/%d", native.ErrInvalidArgument, position, velocity)
	}
	return e.withBody(h, func(a *actor) error {
		a.posIters, a.velIters = position, velocity
		return nil
	})
}

func (e *Engine) SleepThreshold(h native.Actor) (float64, error) {
	return e.getFloat(h, func(a *actor) float64 { return a.sleepThreshold })
}

func (e *Engine) SetSleepThreshold(h native.Actor, v float64) error {
	return e.setFloat(h, "sleep threshold", v, func(a *actor, v float64) { a.sleepThreshold = v })
}

func (e *Engine) IsSleeping(h native.Actor) (bool, error) {
	var sleeping bool
	err := e.withBody(h, func(a *actor) error {
		sleeping = a.sleeping()
		return nil
	})
	return sleeping, err
}

func (e *Engine) PutToSleep(h native.Actor) error {
	return e.withBody(h, func(a *actor) error {
		if a.scene == nil {
			return native.ErrNotInScene
		}
		if a.kind != kindDynamic {
			return fmt.Errorf("%w: kinematic actors do not sleep", native.ErrInvalidArgument)
		}
		a.body.SetVelocityVector(cp.Vector{})
		a.body.SetAngularVelocity(0)
		a.putToSleep()
		return nil
	})
}

func (e *Engine) WakeUp(h native.Actor) error {
	return e.withBody(h, func(a *actor) error {
		if a.scene == nil {
			return native.ErrNotInScene
		}
		a.wake()
		return nil
	})
}

// applyAt pushes a force or impulse through the body at a world point.
// Acceleration and velocity change modes are scaled by the mass.
func (a *actor) applyAt(f, at cp.Vector, mode native.ForceMode) error {
	switch mode {
	case native.Force:
		a.body.ApplyForceAtWorldPoint(f, at)
	case native.Acceleration:
		a.body.ApplyForceAtWorldPoint(f.Mult(a.mass), at)
	case native.Impulse:
		a.body.ApplyImpulseAtWorldPoint(f, at)
	case native.VelocityChange:
		a.body.ApplyImpulseAtWorldPoint(f.Mult(a.mass), at)
	default:
		return fmt.Errorf("%w: force mode %d", native.ErrInvalidArgument, mode)
	}
	return nil
}

// forceTarget checks that a force may be applied now. It returns false when
// the body sleeps and the caller did not ask to wake it.
func (a *actor) forceTarget(wake bool) (bool, error) {
	if a.kind != kindDynamic {
		return false, fmt.Errorf("%w: forces need a dynamic actor", native.ErrInvalidArgument)
	}
	if a.scene == nil {
		return false, native.ErrNotInScene
	}
	if a.sleeping() {
		if !wake {
			return false, nil
		}
		a.wake()
	}
	return true, nil
}

// worldCOG is the centre of mass in world space, which is the cp body
// origin.
func (a *actor) worldCOG() cp.Vector {
	return a.body.Position()
}

func (e *Engine) AddForce(h native.Actor, f mgl64.Vec3, mode native.ForceMode, autowake bool) error {
	if !finite(f.X(), f.Y(), f.Z()) {
		return fmt.Errorf("%w: force %v", native.ErrInvalidArgument, f)
	}
	return e.withBody(h, func(a *actor) error {
		ok, err := a.forceTarget(autowake)
		if !ok || err != nil {
			return err
		}
		return a.applyAt(vec2(f), a.worldCOG(), mode)
	})
}

func (e *Engine) AddForceAtPos(h native.Actor, f, pos mgl64.Vec3, mode native.ForceMode, wakeup bool) error {
	if !finite(f.X(), f.Y(), f.Z(), pos.X(), pos.Y(), pos.Z()) {
		return fmt.Errorf("%w: force %v at %v", native.ErrInvalidArgument, f, pos)
	}
	return e.withBody(h, func(a *actor) error {
		ok, err := a.forceTarget(wakeup)
		if !ok || err != nil {
			return err
		}
		return a.applyAt(vec2(f), vec2(pos), mode)
	})
}

// AddTorque applies the z component of the torque.
func (e *Engine) AddTorque(h native.Actor, t mgl64.Vec3, mode native.ForceMode, autowake bool) error {
	if !finite(t.X(), t.Y(), t.Z()) {
		return fmt.Errorf("%w: torque %v", native.ErrInvalidArgument, t)
	}
	return e.withBody(h, func(a *actor) error {
		ok, err := a.forceTarget(autowake)
		if !ok || err != nil {
			return err
		}
		tz := t.Z()
		b := a.body
		switch mode {
		case native.Force:
			b.SetTorque(b.Torque() + tz)
		case native.Acceleration:
			b.SetTorque(b.Torque() + tz*b.Moment())
		case native.Impulse:
			b.SetAngularVelocity(b.AngularVelocity() + tz/b.Moment())
		case native.VelocityChange:
			b.SetAngularVelocity(b.AngularVelocity() + tz)
		default:
			return fmt.Errorf("%w: force mode %d", native.ErrInvalidArgument, mode)
		}
		return nil
	})
}
