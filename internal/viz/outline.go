package viz

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/rigidkit/internal/rigid"
)

// outline is the drawable footprint of one actor in the XY plane.
type outline struct {
	actor  rigid.RigidActor
	shape  rigid.ColliderType
	center mgl64.Vec3
	radius float64
	half   mgl64.Vec3
}

func outlineOf(a rigid.RigidActor) (outline, error) {
	o := outline{actor: a, shape: a.Collider().Type()}
	var err error
	if o.center, err = a.Collider().Center(); err != nil {
		return o, err
	}

	switch c := a.Collider().(type) {
	case *rigid.SphereCollider:
		o.radius, err = c.Radius()
	case *rigid.BoxCollider:
		o.half, err = c.Size()
	case *rigid.CapsuleCollider:
		var h float64
		if o.radius, err = c.Radius(); err != nil {
			break
		}
		h, err = c.Height()
		o.half = mgl64.Vec3{h / 2, 0, 0}
	case *rigid.PlaneCollider:
	default:
		err = fmt.Errorf("viz: cannot draw %v", o.shape)
	}
	return o, err
}

// extent is the radius of a circle around the shape centre enclosing it.
func (o outline) extent() float64 {
	switch o.shape {
	case rigid.SphereColliderType:
		return o.radius
	case rigid.BoxColliderType:
		return math.Hypot(o.half.X(), o.half.Y())
	case rigid.CapsuleColliderType:
		return o.half.X() + o.radius
	}
	return 0
}

func (o outline) draw(c *Canvas, v Viewport, pose rigid.Transform) {
	switch o.shape {
	case rigid.SphereColliderType:
		x, y := v.Project(xy(pose.Apply(o.center)))
		c.DrawCircle(x, y, v.Length(o.radius))
		// spoke, so rolling is visible
		ex, ey := v.Project(xy(pose.Apply(o.center.Add(mgl64.Vec3{o.radius, 0, 0}))))
		c.DrawLine(x, y, ex, ey)

	case rigid.BoxColliderType:
		h := o.half
		var pts [][2]int
		for _, s := range [...][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			corner := o.center.Add(mgl64.Vec3{s[0] * h.X(), s[1] * h.Y(), 0})
			x, y := v.Project(xy(pose.Apply(corner)))
			pts = append(pts, [2]int{x, y})
		}
		c.DrawPolygon(pts)

	case rigid.CapsuleColliderType:
		p0 := pose.Apply(o.center.Sub(o.half))
		p1 := pose.Apply(o.center.Add(o.half))
		r := v.Length(o.radius)
		x0, y0 := v.Project(xy(p0))
		x1, y1 := v.Project(xy(p1))
		c.DrawCircle(x0, y0, r)
		c.DrawCircle(x1, y1, r)
		axis := mgl64.Vec2{p1.X() - p0.X(), p1.Y() - p0.Y()}
		if axis.Len() > 0 {
			n := mgl64.Vec2{-axis.Y(), axis.X()}.Normalize().Mul(o.radius)
			for _, s := range [...]float64{1, -1} {
				ax, ay := v.Project(p0.X()+s*n.X(), p0.Y()+s*n.Y())
				bx, by := v.Project(p1.X()+s*n.X(), p1.Y()+s*n.Y())
				c.DrawLine(ax, ay, bx, by)
			}
		}

	case rigid.PlaneColliderType:
		p := pose.Apply(o.center)
		n := pose.Rotate(mgl64.Vec3{1, 0, 0})
		dir := mgl64.Vec2{-n.Y(), n.X()}
		if dir.Len() < 1e-9 {
			return
		}
		dir = dir.Normalize().Mul(float64(v.W+v.H) / v.Scale)
		ax, ay := v.Project(p.X()-dir.X(), p.Y()-dir.Y())
		bx, by := v.Project(p.X()+dir.X(), p.Y()+dir.Y())
		c.DrawLine(ax, ay, bx, by)
	}
}

func xy(p mgl64.Vec3) (float64, float64) { return p.X(), p.Y() }
