package planar

import (
	"fmt"

	"github.com/san-kum/rigidkit/internal/native"
)

func (e *Engine) GlobalPose(h native.Actor) (native.Transform, error) {
	var t native.Transform
	err := e.withActor(h, func(a *actor) error {
		t = a.pose()
		return nil
	})
	return t, err
}

func (e *Engine) SetGlobalPose(h native.Actor, pose native.Transform, autowake bool) error {
	if !pose.IsFinite() {
		return fmt.Errorf("%w: pose %v", native.ErrInvalidArgument, pose)
	}
	return e.withActor(h, func(a *actor) error {
		sleeping := a.sleeping()
		a.setPose(pose)
		switch {
		case a.kind == kindStatic && a.scene != nil:
			// Static shapes are only reindexed when rebuilt.
			a.rebuildShapes()
		case sleeping && !autowake:
			a.putToSleep()
		case sleeping:
			a.wake()
		}
		return nil
	})
}

func (e *Engine) ActorShapes(h native.Actor) ([]native.Shape, error) {
	var out []native.Shape
	err := e.withActor(h, func(a *actor) error {
		out = make([]native.Shape, len(a.shapes))
		for i, s := range a.shapes {
			out[i] = s.handle
		}
		return nil
	})
	return out, err
}

func (e *Engine) ActorFlags(h native.Actor) (native.ActorFlags, error) {
	var f native.ActorFlags
	err := e.withActor(h, func(a *actor) error {
		f = a.actorFlags
		return nil
	})
	return f, err
}

func (e *Engine) SetActorFlag(h native.Actor, flag native.ActorFlags, value bool) error {
	return e.withActor(h, func(a *actor) error {
		if value {
			a.actorFlags |= flag
		} else {
			a.actorFlags &^= flag
		}
		return nil
	})
}
