package rigid

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/native"
)

type ColliderType int

const (
	BoxColliderType ColliderType = iota
	CapsuleColliderType
	SphereColliderType
	PlaneColliderType
)

func (t ColliderType) String() string {
	switch t {
	case BoxColliderType:
		return "box"
	case CapsuleColliderType:
		return "capsule"
	case SphereColliderType:
		return "sphere"
	case PlaneColliderType:
		return "plane"
	}
	return fmt.Sprintf("ColliderType(%d)", int(t))
}

// Collider is the shape attached to an actor. The set of implementations is
// closed: *BoxCollider, *CapsuleCollider, *SphereCollider, *PlaneCollider.
//
// Accessors read and write the engine's shape directly; a write is seen by
// the next step without any commit.
type Collider interface {
	Type() ColliderType
	Shape() native.Shape
	Center() (mgl64.Vec3, error)
	SetCenter(mgl64.Vec3) error

	shape() *colliderBase
}

// NewCollider wraps a native shape in the collider variant for kind.
func NewCollider(engine native.Engine, s native.Shape, kind ColliderType) (Collider, error) {
	switch kind {
	case BoxColliderType:
		return &BoxCollider{colliderBase{engine: engine, handle: s}}, nil
	case CapsuleColliderType:
		return &CapsuleCollider{colliderBase{engine: engine, handle: s}}, nil
	case SphereColliderType:
		return &SphereCollider{colliderBase{engine: engine, handle: s}}, nil
	case PlaneColliderType:
		return &PlaneCollider{colliderBase{engine: engine, handle: s}}, nil
	}
	return nil, fmt.Errorf("rigid: collider kind %d: %w", int(kind), ErrUnsupportedShapeKind)
}

// colliderBase holds a non-owning view of a shape; the actor's release frees
// the shape.
type colliderBase struct {
	engine native.Engine

	mu     sync.Mutex
	handle native.Shape
}

func (c *colliderBase) shape() *colliderBase { return c }

func (c *colliderBase) Shape() native.Shape {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handle
}

func (c *colliderBase) native() (native.Shape, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle.IsNull() {
		return native.Shape{}, disposed("collider")
	}
	return c.handle, nil
}

func (c *colliderBase) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = native.Shape{}
}

// Center is the shape's offset from its actor.
func (c *colliderBase) Center() (mgl64.Vec3, error) {
	h, err := c.native()
	if err != nil {
		return mgl64.Vec3{}, err
	}
	pose, err := c.engine.ShapeLocalPose(h)
	if err != nil {
		return mgl64.Vec3{}, nativeErr("shape local pose", err)
	}
	return pose.Position, nil
}

func (c *colliderBase) SetCenter(v mgl64.Vec3) error {
	h, err := c.native()
	if err != nil {
		return err
	}
	pose, err := c.engine.ShapeLocalPose(h)
	if err != nil {
		return nativeErr("shape local pose", err)
	}
	pose.Position = v
	return nativeErr("set shape local pose", c.engine.SetShapeLocalPose(h, pose))
}

func (c *colliderBase) flags() (native.ShapeFlags, error) {
	h, err := c.native()
	if err != nil {
		return 0, err
	}
	f, err := c.engine.ShapeFlags(h)
	return f, nativeErr("shape flags", err)
}

func (c *colliderBase) setFlag(flag native.ShapeFlags, v bool) error {
	h, err := c.native()
	if err != nil {
		return err
	}
	return nativeErr("set shape flag", c.engine.SetShapeFlag(h, flag, v))
}

// geometry reads the shape's geometry as G.
func geometry[G native.Geometry](c *colliderBase) (G, error) {
	var zero G
	h, err := c.native()
	if err != nil {
		return zero, err
	}
	g, err := c.engine.ShapeGeometry(h)
	if err != nil {
		return zero, nativeErr("shape geometry", err)
	}
	typed, ok := g.(G)
	if !ok {
		return zero, fmt.Errorf("rigid: shape holds %v: %w", g.Type(), ErrTypeMismatch)
	}
	return typed, nil
}

// updateGeometry applies fn to the shape's geometry and writes it back.
func updateGeometry[G native.Geometry](c *colliderBase, fn func(*G)) error {
	g, err := geometry[G](c)
	if err != nil {
		return err
	}
	fn(&g)
	h, err := c.native()
	if err != nil {
		return err
	}
	return nativeErr("set shape geometry", c.engine.SetShapeGeometry(h, g))
}

type BoxCollider struct{ colliderBase }

func (*BoxCollider) Type() ColliderType { return BoxColliderType }

// Size returns the box half extents.
func (c *BoxCollider) Size() (mgl64.Vec3, error) {
	g, err := geometry[native.BoxGeometry](&c.colliderBase)
	return g.HalfExtents, err
}

func (c *BoxCollider) SetSize(halfExtents mgl64.Vec3) error {
	return updateGeometry(&c.colliderBase, func(g *native.BoxGeometry) { g.HalfExtents = halfExtents })
}

type CapsuleCollider struct{ colliderBase }

func (*CapsuleCollider) Type() ColliderType { return CapsuleColliderType }

func (c *CapsuleCollider) Radius() (float64, error) {
	g, err := geometry[native.CapsuleGeometry](&c.colliderBase)
	return g.Radius, err
}

func (c *CapsuleCollider) SetRadius(r float64) error {
	return updateGeometry(&c.colliderBase, func(g *native.CapsuleGeometry) { g.Radius = r })
}

// Height is the distance between the hemisphere centres, twice the
// geometry's half height.
func (c *CapsuleCollider) Height() (float64, error) {
	g, err := geometry[native.CapsuleGeometry](&c.colliderBase)
	return g.HalfHeight * 2, err
}

func (c *CapsuleCollider) SetHeight(h float64) error {
	return updateGeometry(&c.colliderBase, func(g *native.CapsuleGeometry) { g.HalfHeight = h / 2 })
}

type SphereCollider struct{ colliderBase }

func (*SphereCollider) Type() ColliderType { return SphereColliderType }

func (c *SphereCollider) Radius() (float64, error) {
	g, err := geometry[native.SphereGeometry](&c.colliderBase)
	return g.Radius, err
}

func (c *SphereCollider) SetRadius(r float64) error {
	return updateGeometry(&c.colliderBase, func(g *native.SphereGeometry) { g.Radius = r })
}

type PlaneCollider struct{ colliderBase }

func (*PlaneCollider) Type() ColliderType { return PlaneColliderType }
