package native

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestTransformFromPlaneEquation(t *testing.T) {
	tests := []struct {
		name  string
		plane Plane
		pos   mgl64.Vec3
	}{
		{"ground", NewPlane(0, 1, 0, 0), mgl64.Vec3{0, 0, 0}},
		{"raised ground", NewPlane(0, 1, 0, -2), mgl64.Vec3{0, 2, 0}},
		{"wall +x", NewPlane(1, 0, 0, 3), mgl64.Vec3{-3, 0, 0}},
		{"wall -x", NewPlane(-1, 0, 0, 0), mgl64.Vec3{0, 0, 0}},
		{"wall z", NewPlane(0, 0, 1, 1), mgl64.Vec3{0, 0, -1}},
		{"tilted unnormalized", NewPlane(0, 2, 2, 0), mgl64.Vec3{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pose, err := TransformFromPlaneEquation(tt.plane)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !vecNear(pose.Position, tt.pos, 1e-9) {
				t.Errorf("position = %v, want %v", pose.Position, tt.pos)
			}

			n := tt.plane.Normal.Normalize()
			got := pose.Rotate(mgl64.Vec3{1, 0, 0})
			if !vecNear(got, n, 1e-6) {
				t.Errorf("rotated +x = %v, want normal %v", got, n)
			}
			if math.Abs(pose.Rotation.Len()-1) > 1e-9 {
				t.Errorf("rotation not unit: %v", pose.Rotation.Len())
			}
		})
	}
}

func TestTransformFromPlaneEquationZeroNormal(t *testing.T) {
	_, err := TransformFromPlaneEquation(NewPlane(0, 0, 0, 1))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestTransformCompose(t *testing.T) {
	parent := NewTransform(mgl64.Vec3{1, 2, 3}, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	child := NewTransform(mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent())

	p := mgl64.Vec3{0.5, 0, 0}
	direct := parent.Apply(child.Apply(p))
	composed := parent.Mul(child).Apply(p)
	if !vecNear(direct, composed, 1e-9) {
		t.Errorf("composed %v != direct %v", composed, direct)
	}
	if !vecNear(direct, mgl64.Vec3{1, 3.5, 3}, 1e-9) {
		t.Errorf("unexpected point %v", direct)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		geom Geometry
		ok   bool
	}{
		{"sphere", SphereGeometry{Radius: 1}, true},
		{"zero sphere", SphereGeometry{}, false},
		{"plane", PlaneGeometry{}, true},
		{"capsule", CapsuleGeometry{Radius: 0.5, HalfHeight: 1}, true},
		{"negative capsule", CapsuleGeometry{Radius: 0.5, HalfHeight: -1}, false},
		{"box", BoxGeometry{HalfExtents: mgl64.Vec3{1, 1, 1}}, true},
		{"flat box", BoxGeometry{HalfExtents: mgl64.Vec3{1, 0, 1}}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.geom)
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestHandlePacking(t *testing.T) {
	h := MakeHandle(42, 7)
	if h.Index() != 42 || h.Generation() != 7 {
		t.Errorf("unpacked %d/%d", h.Index(), h.Generation())
	}
	if h.IsNull() {
		t.Error("non-zero handle reported null")
	}
	var zero Scene
	if !zero.IsNull() {
		t.Error("zero scene handle must be null")
	}
}
