package reportwriter

import "errors"

// MaxDepth is the deepest container nesting a report may use.
const MaxDepth = 128

// ErrDepthOverflow is returned when a container would nest deeper than
// MaxDepth. The document should be abandoned.
var ErrDepthOverflow = errors.New("reportwriter: container depth overflow")

// DepthTracker records whether each open container is an array or an object.
// Index 0 is the top level, which is neither.
type DepthTracker struct {
	depth   int
	isArray [MaxDepth + 1]bool
}

// Enter opens a new container context.
func (d *DepthTracker) Enter(isArray bool) error {
	if d.depth >= MaxDepth {
		return ErrDepthOverflow
	}
	d.depth++
	d.isArray[d.depth] = isArray
	return nil
}

// Leave closes the current context and reports whether it was an array.
// Leaving the top level is a no-op.
func (d *DepthTracker) Leave() bool {
	wasArray := d.isArray[d.depth]
	if d.depth > 0 {
		d.isArray[d.depth] = false
		d.depth--
	}
	return wasArray
}

// Depth returns the number of open containers.
func (d *DepthTracker) Depth() int {
	return d.depth
}

// InArray reports whether the current context is an array.
func (d *DepthTracker) InArray() bool {
	return d.isArray[d.depth]
}

// InObject reports whether elements written now need a key.
func (d *DepthTracker) InObject() bool {
	return d.depth > 0 && !d.isArray[d.depth]
}

// Full reports whether another Enter would overflow.
func (d *DepthTracker) Full() bool {
	return d.depth >= MaxDepth
}

// Reset returns the tracker to the top level.
func (d *DepthTracker) Reset() {
	*d = DepthTracker{}
}
