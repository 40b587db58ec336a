package planar

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/san-kum/rigidkit/internal/native"
)

// build creates the planar collision shape for s on body. It returns nil when
// the geometry has no footprint in the simulation plane, such as a plane whose
// normal points along z.
func (s *shape) build(a *actor) *cp.Shape {
	m := a.bodySpace(s)
	var cs *cp.Shape

	switch g := s.geom.(type) {
	case native.SphereGeometry:
		cs = cp.NewCircle(a.body, g.Radius, vec2(m.Position))

	case native.CapsuleGeometry:
		p0 := vec2(m.Apply(mgl64.Vec3{-g.HalfHeight, 0, 0}))
		p1 := vec2(m.Apply(mgl64.Vec3{g.HalfHeight, 0, 0}))
		cs = cp.NewSegment(a.body, p0, p1, g.Radius)

	case native.BoxGeometry:
		h := g.HalfExtents
		bb := cp.BB{L: math.Inf(1), B: math.Inf(1), R: math.Inf(-1), T: math.Inf(-1)}
		for _, sx := range [...]float64{-1, 1} {
			for _, sy := range [...]float64{-1, 1} {
				for _, sz := range [...]float64{-1, 1} {
					c := m.Apply(mgl64.Vec3{sx * h.X(), sy * h.Y(), sz * h.Z()})
					bb.L = math.Min(bb.L, c.X())
					bb.R = math.Max(bb.R, c.X())
					bb.B = math.Min(bb.B, c.Y())
					bb.T = math.Max(bb.T, c.Y())
				}
			}
		}
		cs = cp.NewBox2(a.body, bb, 0)

	case native.PlaneGeometry:
		n := m.Rotate(mgl64.Vec3{1, 0, 0})
		n2 := mgl64.Vec2{n.X(), n.Y()}
		if n2.Len() < 1e-9 {
			return nil
		}
		n2 = n2.Normalize()
		dir := mgl64.Vec2{-n2.Y(), n2.X()}
		c := mgl64.Vec2{m.Position.X(), m.Position.Y()}.Sub(n2.Mul(planeThickness))
		p0 := c.Sub(dir.Mul(planeHalfLength))
		p1 := c.Add(dir.Mul(planeHalfLength))
		cs = cp.NewSegment(a.body, cp.Vector{X: p0.X(), Y: p0.Y()}, cp.Vector{X: p1.X(), Y: p1.Y()}, planeThickness)

	default:
		return nil
	}

	s.applyMaterial(cs)
	return cs
}

func (s *shape) applyMaterial(cs *cp.Shape) {
	if cs == nil {
		return
	}
	if s.mat != nil {
		cs.SetFriction(s.mat.friction)
		cs.SetElasticity(s.mat.restitution)
	}
	cs.SetSensor(s.flags&native.ShapeSimulation == 0 || s.flags&native.ShapeTrigger != 0)
}

// attach builds the shape for its owner and adds it to the owner's space.
func (s *shape) attach() {
	if s.owner == nil {
		return
	}
	s.cps = s.build(s.owner)
	if sp := s.owner.space(); sp != nil && s.cps != nil {
		sp.AddShape(s.cps)
	}
}

// detach removes the collision shape from the owner's space.
func (s *shape) detach() {
	if s.cps == nil {
		return
	}
	if s.owner != nil {
		if sp := s.owner.space(); sp != nil {
			sp.RemoveShape(s.cps)
		}
	}
	s.cps = nil
}

func (s *shape) rebuild() {
	s.detach()
	s.attach()
}

// massProps returns the mass, centroid and principal inertia of the shape
// at the given density, in the actor's planar frame.
func (s *shape) massProps(a *actor, density float64) (float64, mgl64.Vec3, mgl64.Vec3) {
	m := a.shapeSpace(s)
	var mass float64
	var inertia mgl64.Vec3

	switch g := s.geom.(type) {
	case native.SphereGeometry:
		mass = density * 4 / 3 * math.Pi * g.Radius * g.Radius * g.Radius
		i := 0.4 * mass * g.Radius * g.Radius
		inertia = mgl64.Vec3{i, i, i}

	case native.BoxGeometry:
		h := g.HalfExtents
		mass = density * 8 * h.X() * h.Y() * h.Z()
		inertia = mgl64.Vec3{
			mass / 3 * (h.Y()*h.Y() + h.Z()*h.Z()),
			mass / 3 * (h.X()*h.X() + h.Z()*h.Z()),
			mass / 3 * (h.X()*h.X() + h.Y()*h.Y()),
		}

	case native.CapsuleGeometry:
		r, hh := g.Radius, g.HalfHeight
		mc := density * math.Pi * r * r * 2 * hh
		ms := density * 4 / 3 * math.Pi * r * r * r
		mass = mc + ms
		axial := mc*r*r/2 + ms*0.4*r*r
		cross := mc*(3*r*r+4*hh*hh)/12 + ms*(0.4*r*r+hh*hh+0.375*r*hh)
		inertia = mgl64.Vec3{axial, cross, cross}

	default:
		return 0, mgl64.Vec3{}, mgl64.Vec3{}
	}
	return mass, m.Position, inertia
}

// updateMass recomputes the body's mass properties from its shapes.
func (a *actor) updateMass(density float64) error {
	if !(density > 0) || math.IsInf(density, 0) {
		return native.ErrInvalidArgument
	}

	var total float64
	var centroid mgl64.Vec3
	type part struct {
		mass    float64
		pos     mgl64.Vec3
		inertia mgl64.Vec3
	}
	parts := make([]part, 0, len(a.shapes))
	for _, s := range a.shapes {
		if s.flags&native.ShapeSimulation == 0 {
			continue
		}
		if s.geom.Type() == native.GeometryPlane {
			return native.ErrUnsupportedGeometry
		}
		m, pos, in := s.massProps(a, density)
		parts = append(parts, part{m, pos, in})
		total += m
		centroid = centroid.Add(pos.Mul(m))
	}
	if total <= 0 {
		total = 1
		centroid = mgl64.Vec3{}
		parts = nil
	} else {
		centroid = centroid.Mul(1 / total)
	}

	var inertia mgl64.Vec3
	for _, p := range parts {
		d := p.pos.Sub(centroid)
		inertia = inertia.Add(mgl64.Vec3{
			p.inertia.X() + p.mass*(d.Y()*d.Y()+d.Z()*d.Z()),
			p.inertia.Y() + p.mass*(d.X()*d.X()+d.Z()*d.Z()),
			p.inertia.Z() + p.mass*(d.X()*d.X()+d.Y()*d.Y()),
		})
	}
	if parts == nil {
		inertia = mgl64.Vec3{1, 1, 1}
	}

	a.mass = total
	a.inertia = inertia
	a.cmass = native.Transform{Rotation: mgl64.QuatIdent(), Position: a.tilt.Inverse().Rotate(centroid)}
	a.pushMass()
	return nil
}

// pushMass copies the stored mass properties into the body. Kinematic
// bodies keep infinite mass in the solver.
func (a *actor) pushMass() {
	if a.kind == kindStatic {
		return
	}
	a.moveCOM()
	if a.bodyFlags&native.BodyKinematic != 0 {
		return
	}
	a.body.SetMass(a.mass)
	if iz := a.inertia.Z(); iz > 0 {
		a.body.SetMoment(iz)
	} else {
		a.body.SetMoment(math.Inf(1))
	}
}
