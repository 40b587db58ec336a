package rigid

import (
	"fmt"
	"sync"

	"github.com/san-kum/rigidkit/internal/native"
)

type ActorKind int

const (
	KindStatic ActorKind = iota
	KindDynamic
	KindKinematic
)

func (k ActorKind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindDynamic:
		return "dynamic"
	case KindKinematic:
		return "kinematic"
	}
	return fmt.Sprintf("ActorKind(%d)", int(k))
}

// RigidActor is implemented by *Rigidstatic and *Rigidbody only.
type RigidActor interface {
	Handle() native.Actor
	Kind() ActorKind
	Collider() Collider
	Transform() (Transform, error)

	base() *actorBase
}

// GetComponent returns the actor's collider as T, or ErrTypeMismatch.
func GetComponent[T Collider](a RigidActor) (T, error) {
	c, ok := a.Collider().(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("rigid: actor has %v collider, not %T: %w", a.Collider().Type(), zero, ErrTypeMismatch)
	}
	return c, nil
}

// actorBase owns the native actor handle. The handle is nulled when the
// actor is destroyed, after which every call fails with ErrUseAfterDispose.
type actorBase struct {
	engine   native.Engine
	kind     ActorKind
	collider Collider

	mu     sync.Mutex
	handle native.Actor
	// detached is set once the native actor has left its scene, so a
	// retried release does not remove it twice.
	detached bool
}

func (a *actorBase) base() *actorBase { return a }

func (a *actorBase) Handle() native.Actor {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.handle
}

func (a *actorBase) Kind() ActorKind { return a.kind }

func (a *actorBase) Collider() Collider { return a.collider }

func (a *actorBase) native() (native.Actor, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handle.IsNull() {
		return native.Actor{}, disposed("actor")
	}
	return a.handle, nil
}

// invalidate nulls the handle after the native actor was released.
func (a *actorBase) invalidate() {
	a.mu.Lock()
	a.handle = native.Actor{}
	a.mu.Unlock()
	a.collider.shape().invalidate()
}

func (a *actorBase) isDetached() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detached
}

func (a *actorBase) setDetached() {
	a.mu.Lock()
	a.detached = true
	a.mu.Unlock()
}

// Transform reads the actor's global pose.
func (a *actorBase) Transform() (Transform, error) {
	h, err := a.native()
	if err != nil {
		return Transform{}, err
	}
	t, err := a.engine.GlobalPose(h)
	if err != nil {
		return Transform{}, nativeErr("global pose", err)
	}
	return t, nil
}

// Rigidstatic is an immovable actor.
type Rigidstatic struct {
	actorBase
}

func newRigidstatic(engine native.Engine, h native.Actor, c Collider) *Rigidstatic {
	return &Rigidstatic{actorBase{engine: engine, kind: KindStatic, collider: c, handle: h}}
}
