package rigid

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/native"
)

// AddStaticPlane adds an infinite static plane. The actor is placed by the
// plane equation and position/rotation become the shape's local pose.
func (sc *Scene) AddStaticPlane(plane native.Plane, position mgl64.Vec3, rotation mgl64.Quat, mat *Material) (*Rigidstatic, error) {
	pose, err := native.TransformFromPlaneEquation(plane)
	if err != nil {
		return nil, nativeErr("plane transform", err)
	}
	local := native.NewTransform(position, rotation)
	return sc.addStatic(native.PlaneGeometry{}, &local, pose, mat, PlaneColliderType)
}

func (sc *Scene) AddStaticSphere(radius float64, position mgl64.Vec3, rotation mgl64.Quat, mat *Material) (*Rigidstatic, error) {
	return sc.addStatic(native.SphereGeometry{Radius: radius}, nil, native.NewTransform(position, rotation), mat, SphereColliderType)
}

func (sc *Scene) AddStaticBox(halfExtents, position mgl64.Vec3, rotation mgl64.Quat, mat *Material) (*Rigidstatic, error) {
	return sc.addStatic(native.BoxGeometry{HalfExtents: halfExtents}, nil, native.NewTransform(position, rotation), mat, BoxColliderType)
}

func (sc *Scene) AddStaticCapsule(radius, halfHeight float64, position mgl64.Vec3, rotation mgl64.Quat, mat *Material) (*Rigidstatic, error) {
	g := native.CapsuleGeometry{Radius: radius, HalfHeight: halfHeight}
	return sc.addStatic(g, nil, native.NewTransform(position, rotation), mat, CapsuleColliderType)
}

func (sc *Scene) AddDynamicSphere(radius float64, position mgl64.Vec3, rotation mgl64.Quat, density float64, mat *Material) (*Rigidbody, error) {
	return sc.addBody(KindDynamic, native.SphereGeometry{Radius: radius}, native.NewTransform(position, rotation), density, mat, SphereColliderType)
}

func (sc *Scene) AddDynamicBox(halfExtents, position mgl64.Vec3, rotation mgl64.Quat, density float64, mat *Material) (*Rigidbody, error) {
	return sc.addBody(KindDynamic, native.BoxGeometry{HalfExtents: halfExtents}, native.NewTransform(position, rotation), density, mat, BoxColliderType)
}

func (sc *Scene) AddDynamicCapsule(radius, halfHeight float64, position mgl64.Vec3, rotation mgl64.Quat, density float64, mat *Material) (*Rigidbody, error) {
	g := native.CapsuleGeometry{Radius: radius, HalfHeight: halfHeight}
	return sc.addBody(KindDynamic, g, native.NewTransform(position, rotation), density, mat, CapsuleColliderType)
}

func (sc *Scene) AddKinematicSphere(radius float64, position mgl64.Vec3, rotation mgl64.Quat, density float64, mat *Material) (*Rigidbody, error) {
	return sc.addBody(KindKinematic, native.SphereGeometry{Radius: radius}, native.NewTransform(position, rotation), density, mat, SphereColliderType)
}

func (sc *Scene) AddKinematicBox(halfExtents, position mgl64.Vec3, rotation mgl64.Quat, density float64, mat *Material) (*Rigidbody, error) {
	return sc.addBody(KindKinematic, native.BoxGeometry{HalfExtents: halfExtents}, native.NewTransform(position, rotation), density, mat, BoxColliderType)
}

func (sc *Scene) AddKinematicCapsule(radius, halfHeight float64, position mgl64.Vec3, rotation mgl64.Quat, density float64, mat *Material) (*Rigidbody, error) {
	g := native.CapsuleGeometry{Radius: radius, HalfHeight: halfHeight}
	return sc.addBody(KindKinematic, g, native.NewTransform(position, rotation), density, mat, CapsuleColliderType)
}

func (sc *Scene) addStatic(g native.Geometry, local *native.Transform, pose native.Transform, mat *Material, kind ColliderType) (*Rigidstatic, error) {
	var out *Rigidstatic
	err := sc.spawn(g, local, mat, true, kind,
		func(p native.Physics, s native.Shape) (native.Actor, error) {
			return sc.engine.CreateStaticActor(p, pose, s)
		},
		func(h native.Actor, c Collider) RigidActor {
			out = newRigidstatic(sc.engine, h, c)
			return out
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (sc *Scene) addBody(kind ActorKind, g native.Geometry, pose native.Transform, density float64, mat *Material, ct ColliderType) (*Rigidbody, error) {
	create := sc.engine.CreateDynamicActor
	if kind == KindKinematic {
		create = sc.engine.CreateKinematicActor
	}
	var out *Rigidbody
	err := sc.spawn(g, nil, mat, false, ct,
		func(p native.Physics, s native.Shape) (native.Actor, error) {
			return create(p, pose, s, density)
		},
		func(h native.Actor, c Collider) RigidActor {
			out = newRigidbody(sc.engine, h, c, kind, sc)
			return out
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// spawn creates the shape and actor, adds the actor to the native scene and
// registers the wrapper, all under sc.mu. A non-nil local replaces the
// shape's local pose before the actor exists. The creator's shape reference
// is dropped once the actor holds its own.
func (sc *Scene) spawn(
	g native.Geometry,
	local *native.Transform,
	mat *Material,
	exclusive bool,
	kind ColliderType,
	create func(native.Physics, native.Shape) (native.Actor, error),
	wrap func(native.Actor, Collider) RigidActor,
) error {
	physics, _, err := sc.system.handles()
	if err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.handle.IsNull() {
		return disposed("scene")
	}

	sh, err := sc.engine.CreateShape(physics, g, mat.Handle(), exclusive, native.DefaultShapeFlags)
	if err != nil {
		return nativeErr("create shape", err)
	}
	if local != nil {
		if err := sc.engine.SetShapeLocalPose(sh, *local); err != nil {
			return errors.Join(nativeErr("set shape local pose", err), nativeErr("release shape", sc.engine.ReleaseShape(sh)))
		}
	}
	c, err := NewCollider(sc.engine, sh, kind)
	if err != nil {
		return errors.Join(err, nativeErr("release shape", sc.engine.ReleaseShape(sh)))
	}

	h, err := create(physics, sh)
	if err != nil {
		return errors.Join(nativeErr("create actor", err), nativeErr("release shape", sc.engine.ReleaseShape(sh)))
	}
	if err := sc.engine.ReleaseShape(sh); err != nil {
		return errors.Join(nativeErr("release shape", err), nativeErr("release actor", sc.engine.ReleaseActor(h)))
	}
	if err := sc.engine.AddActor(sc.handle, h); err != nil {
		return errors.Join(nativeErr("add actor", err), nativeErr("release actor", sc.engine.ReleaseActor(h)))
	}

	a := wrap(h, c)
	if err := sc.actors.Add(a); err != nil {
		a.base().invalidate()
		return errors.Join(err,
			nativeErr("remove actor", sc.engine.RemoveActor(sc.handle, h, false)),
			nativeErr("release actor", sc.engine.ReleaseActor(h)))
	}
	return nil
}
