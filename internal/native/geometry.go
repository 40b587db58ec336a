package native

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type GeometryType int

const (
	GeometrySphere GeometryType = iota
	GeometryPlane
	GeometryCapsule
	GeometryBox
)

func (g GeometryType) String() string {
	switch g {
	case GeometrySphere:
		return "sphere"
	case GeometryPlane:
		return "plane"
	case GeometryCapsule:
		return "capsule"
	case GeometryBox:
		return "box"
	default:
		return fmt.Sprintf("geometry(%d)", int(g))
	}
}

// Geometry is the shape description handed to CreateShape and read back
// through ShapeGeometry.
type Geometry interface {
	Type() GeometryType
}

type SphereGeometry struct {
	Radius float64
}

// PlaneGeometry is the half-space x <= 0 in shape space. Orientation and
// offset come entirely from the shape and actor poses.
type PlaneGeometry struct{}

// CapsuleGeometry is aligned with the shape-space x axis. HalfHeight is half
// the distance between the two hemisphere centres.
type CapsuleGeometry struct {
	Radius     float64
	HalfHeight float64
}

type BoxGeometry struct {
	HalfExtents mgl64.Vec3
}

func (SphereGeometry) Type() GeometryType  { return GeometrySphere }
func (PlaneGeometry) Type() GeometryType   { return GeometryPlane }
func (CapsuleGeometry) Type() GeometryType { return GeometryCapsule }
func (BoxGeometry) Type() GeometryType     { return GeometryBox }

// Validate reports whether g has usable dimensions.
func Validate(g Geometry) error {
	switch geom := g.(type) {
	case SphereGeometry:
		if !(geom.Radius > 0) {
			return fmt.Errorf("%w: sphere radius %v", ErrInvalidArgument, geom.Radius)
		}
	case PlaneGeometry:
	case CapsuleGeometry:
		if !(geom.Radius > 0) || geom.HalfHeight < 0 {
			return fmt.Errorf("%w: capsule radius %v half height %v", ErrInvalidArgument, geom.Radius, geom.HalfHeight)
		}
	case BoxGeometry:
		h := geom.HalfExtents
		if !(h.X() > 0 && h.Y() > 0 && h.Z() > 0) {
			return fmt.Errorf("%w: box half extents %v", ErrInvalidArgument, h)
		}
	case nil:
		return fmt.Errorf("%w: nil geometry", ErrUnsupportedGeometry)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}
	return nil
}

// Transform is a rigid pose: rotation followed by translation.
type Transform struct {
	Rotation mgl64.Quat
	Position mgl64.Vec3
}

func Identity() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

func NewTransform(position mgl64.Vec3, rotation mgl64.Quat) Transform {
	return Transform{Rotation: rotation, Position: position}
}

// Apply maps a point from local space to the parent space.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(p).Add(t.Position)
}

// Rotate maps a direction from local space to the parent space.
func (t Transform) Rotate(v mgl64.Vec3) mgl64.Vec3 {
	return t.Rotation.Rotate(v)
}

// Mul composes t with a child pose: (t * child).Apply(p) == t.Apply(child.Apply(p)).
func (t Transform) Mul(child Transform) Transform {
	return Transform{
		Rotation: t.Rotation.Mul(child.Rotation),
		Position: t.Apply(child.Position),
	}
}

func (t Transform) IsFinite() bool {
	for _, v := range [...]float64{
		t.Position.X(), t.Position.Y(), t.Position.Z(),
		t.Rotation.W, t.Rotation.V.X(), t.Rotation.V.Y(), t.Rotation.V.Z(),
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Plane holds the equation Normal.p + Distance = 0.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

func NewPlane(nx, ny, nz, distance float64) Plane {
	return Plane{Normal: mgl64.Vec3{nx, ny, nz}, Distance: distance}
}

func (p Plane) Normalized() (Plane, error) {
	l := p.Normal.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Plane{}, fmt.Errorf("%w: plane normal %v", ErrInvalidArgument, p.Normal)
	}
	return Plane{Normal: p.Normal.Mul(1 / l), Distance: p.Distance / l}, nil
}

// TransformFromPlaneEquation returns the pose that places PlaneGeometry on
// the plane: the shape-space +x axis is rotated onto the normal and the
// origin moved to the point of the plane closest to the world origin.
func TransformFromPlaneEquation(p Plane) (Transform, error) {
	p, err := p.Normalized()
	if err != nil {
		return Transform{}, err
	}
	n := p.Normal

	zeros := 0
	for _, c := range [...]float64{n.X(), n.Y(), n.Z()} {
		if c == 0 {
			zeros++
		}
	}

	var q mgl64.Quat
	if zeros == 2 {
		const halfSqrt2 = 0.707106781186547524
		switch {
		case n.X() > 0:
			q = mgl64.QuatIdent()
		case n.X() < 0:
			q = mgl64.Quat{W: 0, V: mgl64.Vec3{0, 0, 1}}
		default:
			q = mgl64.Quat{W: halfSqrt2, V: mgl64.Vec3{0, -n.Z() * halfSqrt2, n.Y() * halfSqrt2}}
		}
	} else {
		q = mgl64.QuatBetweenVectors(mgl64.Vec3{1, 0, 0}, n)
	}

	return Transform{Rotation: q, Position: n.Mul(-p.Distance)}, nil
}
