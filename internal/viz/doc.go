// Package viz renders a live side view of a rigid-body scene in the terminal.
//
// [Model] is a Bubble Tea model that steps a [rigid.Scene] on every tick and
// draws its actors on a braille [Canvas] projected onto the XY plane:
// spheres as circles, boxes as rotated rectangles, capsules as two circles
// joined by tangents, and planes as lines across the view.
//
// # Key Bindings
//
//	Space - Pause/Resume stepping
//	R     - Reset bodies to their starting pose and velocity
//	K     - Kick dynamic bodies upward
//	[ ]   - Replay recorded steps
//	+ -   - Zoom
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
