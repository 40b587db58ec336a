package planar

import (
	"fmt"

	"github.com/san-kum/rigidkit/internal/native"
)

// withShape runs fn on a shape, locking the owner's scene if it has one.
func (e *Engine) withShape(h native.Shape, fn func(*shape) error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.shapes.get(h.Handle)
	if !ok {
		return invalid("shape", h.Handle)
	}
	if s.owner != nil && s.owner.scene != nil {
		s.owner.scene.mu.Lock()
		defer s.owner.scene.mu.Unlock()
	}
	defer guard(&err)
	return fn(s)
}

func (e *Engine) ShapeGeometry(h native.Shape) (native.Geometry, error) {
	var g native.Geometry
	err := e.withShape(h, func(s *shape) error {
		g = s.geom
		return nil
	})
	return g, err
}

func (e *Engine) SetShapeGeometry(h native.Shape, g native.Geometry) error {
	if err := native.Validate(g); err != nil {
		return err
	}
	return e.withShape(h, func(s *shape) error {
		if g.Type() != s.geom.Type() {
			return fmt.Errorf("%w: cannot change %v into %v", native.ErrInvalidArgument, s.geom.Type(), g.Type())
		}
		s.geom = g
		s.rebuild()
		return nil
	})
}

func (e *Engine) ShapeLocalPose(h native.Shape) (native.Transform, error) {
	var t native.Transform
	err := e.withShape(h, func(s *shape) error {
		t = s.local
		return nil
	})
	return t, err
}

func (e *Engine) SetShapeLocalPose(h native.Shape, pose native.Transform) error {
	if !pose.IsFinite() {
		return fmt.Errorf("%w: pose %v", native.ErrInvalidArgument, pose)
	}
	return e.withShape(h, func(s *shape) error {
		s.local = pose
		s.rebuild()
		return nil
	})
}

func (e *Engine) ShapeFlags(h native.Shape) (native.ShapeFlags, error) {
	var f native.ShapeFlags
	err := e.withShape(h, func(s *shape) error {
		f = s.flags
		return nil
	})
	return f, err
}

func (e *Engine) SetShapeFlag(h native.Shape, flag native.ShapeFlags, value bool) error {
	return e.withShape(h, func(s *shape) error {
		f := s.flags &^ flag
		if value {
			f |= flag
		}
		if f&native.ShapeSimulation != 0 && f&native.ShapeTrigger != 0 {
			return fmt.Errorf("%w: shape cannot be both simulation and trigger", native.ErrInvalidArgument)
		}
		s.flags = f
		s.applyMaterial(s.cps)
		return nil
	})
}
