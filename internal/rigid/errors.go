package rigid

import (
	"errors"
	"fmt"

	"github.com/san-kum/rigidkit/internal/native"
)

// Lifecycle and identity errors. None of them are retried.
var (
	// ErrTypeMismatch indicates a collider requested as the wrong variant.
	ErrTypeMismatch = errors.New("rigid: collider type mismatch")

	// ErrUnsupportedShapeKind indicates a collider kind outside box, capsule,
	// sphere and plane.
	ErrUnsupportedShapeKind = errors.New("rigid: unsupported shape kind")

	// ErrNativeCall indicates the engine failed an operation or reported a
	// non-zero step error code. Match it with errors.Is; the details are in
	// *NativeCallError.
	ErrNativeCall = errors.New("rigid: native call failed")

	// ErrUseAfterDispose indicates an operation on a closed system, scene
	// or destroyed actor.
	ErrUseAfterDispose = errors.New("rigid: use after dispose")

	// ErrEngineMismatch indicates SharedFoundation was called with a
	// different engine than the one that created the shared foundation.
	ErrEngineMismatch = errors.New("rigid: engine mismatch")

	// ErrStepInProgress indicates Update was called while another Update on
	// the same scene had not returned.
	ErrStepInProgress = errors.New("rigid: scene step already in progress")
)

// NativeCallError records which engine operation failed and how.
type NativeCallError struct {
	Op   string
	Code native.ErrorCode
	Err  error
}

func (e *NativeCallError) Error() string {
	switch {
	case e.Err != nil && e.Code != native.CodeOK:
		return fmt.Sprintf("rigid: %s: %v (code %v)", e.Op, e.Err, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("rigid: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("rigid: %s: error code %v", e.Op, e.Code)
	}
}

func (e *NativeCallError) Unwrap() error { return e.Err }

func (e *NativeCallError) Is(target error) bool { return target == ErrNativeCall }

// nativeErr classifies an engine error. A stale handle means the object was
// released underneath us.
func nativeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, native.ErrInvalidHandle) {
		return fmt.Errorf("rigid: %s: %w", op, ErrUseAfterDispose)
	}
	return &NativeCallError{Op: op, Err: err}
}

func disposed(what string) error {
	return fmt.Errorf("rigid: %s: %w", what, ErrUseAfterDispose)
}
