package native

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandle indicates a null handle or one whose object has
	// already been released.
	ErrInvalidHandle = errors.New("native: invalid or released handle")

	// ErrUnsupportedGeometry indicates a geometry the engine cannot build.
	ErrUnsupportedGeometry = errors.New("native: unsupported geometry")

	// ErrInvalidArgument indicates a parameter outside the engine's domain
	// (negative radius, non-positive density, zero plane normal...).
	ErrInvalidArgument = errors.New("native: invalid argument")

	// ErrStepPending indicates a simulate call while the previous step of
	// the same scene has not been fetched.
	ErrStepPending = errors.New("native: previous step not fetched")

	// ErrNotInScene indicates an actor that is not part of the scene.
	ErrNotInScene = errors.New("native: actor not in scene")

	// ErrInUse indicates a release of an object another object still
	// depends on.
	ErrInUse = errors.New("native: object still in use")
)

// ErrorCode is the status reported by FetchResults.
type ErrorCode uint32

const (
	CodeOK ErrorCode = iota
	// CodeUnstable: the step produced non-finite body state.
	CodeUnstable
	// CodeInternal: the engine failed while executing the step.
	CodeInternal
	// CodeNoStep: fetch without a preceding simulate.
	CodeNoStep
)

func (c ErrorCode) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeUnstable:
		return "unstable"
	case CodeInternal:
		return "internal"
	case CodeNoStep:
		return "no step"
	default:
		return fmt.Sprintf("code(%d)", uint32(c))
	}
}
