package rigid

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/san-kum/rigidkit/internal/native"
)

// Foundation is the engine's root context. Every System is built on one.
type Foundation struct {
	engine native.Engine

	mu      sync.Mutex
	handle  native.Foundation
	shared  bool
	cleanup runtime.Cleanup
}

type foundationRelease struct {
	engine native.Engine
	handle native.Foundation
}

// NewFoundation creates a foundation owned by the caller, who releases it
// with Close after every System built on it is closed.
func NewFoundation(engine native.Engine) (*Foundation, error) {
	h, err := engine.CreateFoundation()
	if err != nil {
		return nil, nativeErr("create foundation", err)
	}
	if h.IsNull() {
		return nil, &NativeCallError{Op: "create foundation", Err: native.ErrInvalidHandle}
	}

	f := &Foundation{engine: engine, handle: h}
	f.cleanup = runtime.AddCleanup(f, func(r foundationRelease) {
		_ = r.engine.ReleaseFoundation(r.handle)
	}, foundationRelease{engine: engine, handle: h})
	return f, nil
}

func (f *Foundation) Engine() native.Engine { return f.engine }

func (f *Foundation) native() (native.Foundation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handle.IsNull() {
		return native.Foundation{}, disposed("foundation")
	}
	return f.handle, nil
}

// Close releases a foundation from NewFoundation exactly once. It is a no-op
// on the shared foundation, which only ReleaseSharedFoundation releases.
func (f *Foundation) Close() error {
	if f.shared {
		return nil
	}
	return f.release()
}

func (f *Foundation) release() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handle.IsNull() {
		return nil
	}
	err := f.engine.ReleaseFoundation(f.handle)
	if err != nil && !errors.Is(err, native.ErrInvalidHandle) {
		return nativeErr("release foundation", err)
	}
	f.handle = native.Foundation{}
	if !f.shared {
		f.cleanup.Stop()
	}
	return nativeErr("release foundation", err)
}

var shared struct {
	mu sync.Mutex
	f  atomic.Pointer[Foundation]
}

// SharedFoundation returns the process-wide foundation, creating it on the
// first call. Later calls must pass the same engine.
func SharedFoundation(engine native.Engine) (*Foundation, error) {
	if f := shared.f.Load(); f != nil {
		return f.sharedWith(engine)
	}

	shared.mu.Lock()
	defer shared.mu.Unlock()
	if f := shared.f.Load(); f != nil {
		return f.sharedWith(engine)
	}

	h, err := engine.CreateFoundation()
	if err != nil {
		return nil, nativeErr("create foundation", err)
	}
	if h.IsNull() {
		return nil, &NativeCallError{Op: "create foundation", Err: native.ErrInvalidHandle}
	}
	f := &Foundation{engine: engine, handle: h, shared: true}
	shared.f.Store(f)
	return f, nil
}

func (f *Foundation) sharedWith(engine native.Engine) (*Foundation, error) {
	if engine != f.engine {
		return nil, fmt.Errorf("rigid: shared foundation belongs to another engine: %w", ErrEngineMismatch)
	}
	return f, nil
}

// ReleaseSharedFoundation releases the shared foundation's handle if it has
// one. The foundation is not reset: SharedFoundation keeps returning it and
// anything built on it afterwards fails with ErrUseAfterDispose.
func ReleaseSharedFoundation() error {
	shared.mu.Lock()
	defer shared.mu.Unlock()
	f := shared.f.Load()
	if f == nil {
		return nil
	}
	return f.release()
}
