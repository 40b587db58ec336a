// Package native defines the boundary between rigidkit and a rigid-body
// physics engine.
//
// Everything on the engine side is reached through opaque handles:
//
//   - [Foundation]: the low-level context the engine needs exactly once
//   - [Physics]: an engine instance created from a foundation
//   - [Dispatcher]: the worker pool that executes simulation steps
//   - [Scene], [Actor], [Shape], [Material]: simulation objects
//
// An [Engine] creates, queries and releases those objects. Handles carry a
// generation, so an engine can reject a handle whose object was released
// and whose slot was reused; such calls fail with [ErrInvalidHandle].
//
// The package also holds the value types that cross the boundary: geometry
// variants, [Transform], [Plane] and the flag sets for shapes, actors and
// rigid bodies.
//
// # Implementations
//
// The planar subpackage provides an engine on top of the Chipmunk2D port
// (github.com/jakecoffman/cp). The nativetest subpackage decorates any
// engine with call counting and failure injection for tests.
package native
