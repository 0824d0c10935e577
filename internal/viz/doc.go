// Package viz renders a running constrained integrator in the terminal.
//
// [Model] is a Bubble Tea model that advances one integrator per tick and
// draws the configuration on a Braille [Canvas]: a 2-D point on its circle,
// or a blob cluster seen from the side above the wall. The side panel shows
// the clock, the constraint residual and a running angle histogram.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	+/-   - More/fewer steps per frame
//	?     - Show help overlay
//	Q     - Quit
package viz
