package planar

import (
	"fmt"
	"math"

	"github.com/san-kum/rigidkit/internal/native"
)

func (s *scene) addActor(a *actor) {
	s.space.AddBody(a.body)
	for _, sh := range a.shapes {
		if sh.cps == nil {
			sh.cps = sh.build(a)
		}
		if sh.cps != nil {
			s.space.AddShape(sh.cps)
		}
	}
	a.scene = s
	s.actors[a] = struct{}{}
}

func (s *scene) removeActor(a *actor, wakeOnLostTouch bool) {
	for _, sh := range a.shapes {
		if sh.cps != nil {
			s.space.RemoveShape(sh.cps)
		}
	}
	s.space.RemoveBody(a.body)
	a.scene = nil
	a.asleep = false
	delete(s.actors, a)

	if wakeOnLostTouch {
		for other := range s.actors {
			if other.kind != kindStatic {
				other.wake()
			}
		}
	}
}

// iterations is the solver iteration count for the next step: the largest
// position count requested by any actor, and never below the scene default.
func (s *scene) iterations() uint {
	n := uint(defaultIterations)
	for a := range s.actors {
		if uint(a.posIters) > n {
			n = uint(a.posIters)
		}
	}
	return n
}

func (s *scene) step(dt float64) (res stepResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			res.code = native.CodeInternal
		}
	}()

	s.space.Iterations = s.iterations()
	s.space.Step(dt)

	for a := range s.actors {
		if a.kind == kindStatic {
			continue
		}
		p, v := a.body.Position(), a.body.Velocity()
		if !finite(p.X, p.Y, v.X, v.Y, a.body.Angle(), a.body.AngularVelocity()) {
			return stepResult{code: native.CodeUnstable}
		}
	}
	return stepResult{code: native.CodeOK}
}

func (e *Engine) AddActor(h native.Scene, ah native.Actor) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.scenes.get(h.Handle)
	if !ok {
		return invalid("scene", h.Handle)
	}
	a, err := e.actor(ah)
	if err != nil {
		return err
	}
	if a.scene != nil {
		return fmt.Errorf("%w: actor already in a scene", native.ErrInvalidArgument)
	}
	if s.pending != nil {
		return native.ErrStepPending
	}
	defer guard(&err)
	s.addActor(a)
	return nil
}

func (e *Engine) RemoveActor(h native.Scene, ah native.Actor, wakeOnLostTouch bool) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.scenes.get(h.Handle)
	if !ok {
		return invalid("scene", h.Handle)
	}
	a, err := e.actor(ah)
	if err != nil {
		return err
	}
	if a.scene != s {
		return native.ErrNotInScene
	}
	if s.pending != nil {
		return native.ErrStepPending
	}
	defer guard(&err)
	s.removeActor(a, wakeOnLostTouch)
	return nil
}

func (e *Engine) Simulate(h native.Scene, dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: step %v", native.ErrInvalidArgument, dt)
	}
	e.mu.Lock()
	s, ok := e.scenes.get(h.Handle)
	if !ok {
		e.mu.Unlock()
		return invalid("scene", h.Handle)
	}
	if s.pending != nil {
		e.mu.Unlock()
		return native.ErrStepPending
	}
	done := make(chan stepResult, 1)
	s.pending = done
	pool := s.disp.pool
	e.mu.Unlock()

	pool.submit(func() {
		done <- s.step(dt)
	})
	return nil
}

func (e *Engine) FetchResults(h native.Scene, block bool) (bool, native.ErrorCode, error) {
	e.mu.Lock()
	s, ok := e.scenes.get(h.Handle)
	if !ok {
		e.mu.Unlock()
		return false, native.CodeOK, invalid("scene", h.Handle)
	}
	done := s.pending
	e.mu.Unlock()

	if done == nil {
		return true, native.CodeNoStep, nil
	}

	var res stepResult
	if block {
		res = <-done
	} else {
		select {
		case res = <-done:
		default:
			return false, native.CodeOK, nil
		}
	}

	e.mu.Lock()
	if s.pending == done {
		s.pending = nil
	}
	e.mu.Unlock()
	return true, res.code, nil
}
