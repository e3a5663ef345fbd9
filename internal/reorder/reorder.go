// Package reorder implements drag-to-reorder over an ordered list.
//
// The list operation is the pure function Move. Controller is the gesture
// state machine (idle / dragging(i)); it tracks the dragged item's current
// index and tells the caller which Move to apply on each hover, so it stays
// independent of any UI event binding and of the element type.
package reorder

import (
	"errors"
	"fmt"
)

var (
	ErrDragActive  = errors.New("reorder: a drag is already in progress")
	ErrNotDragging = errors.New("reorder: no drag in progress")
	ErrOutOfRange  = errors.New("reorder: index out of range")
)

// Move returns a new list where the element at from has been removed and
// reinserted at to. The input is not modified. Out-of-range indices return
// an unchanged copy.
func Move[T any](list []T, from, to int) []T {
	out := make([]T, len(list))
	copy(out, list)
	if from == to || from < 0 || to < 0 || from >= len(list) || to >= len(list) {
		return out
	}

	item := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = item
	return out
}

// State of a Controller.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Controller is the drag gesture state machine for one list. The zero value
// is idle and ready to use. It is not safe for concurrent use; callers
// serialize gestures (one active pointer per list).
type Controller struct {
	state State
	index int
}

// State returns the current state and, while dragging, the tracked index.
func (c *Controller) State() (State, int) {
	if c.state != Dragging {
		return Idle, -1
	}
	return c.state, c.index
}

// Start begins a drag at index i of a list of length n.
func (c *Controller) Start(i, n int) error {
	if c.state == Dragging {
		return ErrDragActive
	}
	if i < 0 || i >= n {
		return fmt.Errorf("%w: start %d of %d", ErrOutOfRange, i, n)
	}
	c.state = Dragging
	c.index = i
	return nil
}

// Hover reports the pointer over index j of a list of length n. When j
// differs from the tracked index it returns the move to apply (from, to) with
// moved=true and updates the tracked index to j.
func (c *Controller) Hover(j, n int) (from, to int, moved bool, err error) {
	if c.state != Dragging {
		return 0, 0, false, ErrNotDragging
	}
	if j < 0 || j >= n {
		return 0, 0, false, fmt.Errorf("%w: hover %d of %d", ErrOutOfRange, j, n)
	}
	if c.index >= n {
		// The list shrank under the gesture; nothing sensible to move.
		idx := c.index
		c.End()
		return 0, 0, false, fmt.Errorf("%w: dragged index %d of %d", ErrOutOfRange, idx, n)
	}
	if j == c.index {
		return c.index, j, false, nil
	}
	from = c.index
	c.index = j
	return from, j, true, nil
}

// Removed reports that the element at index i left the list. The tracked
// index shifts down when an earlier element went away; removing the dragged
// element itself ends the gesture.
func (c *Controller) Removed(i int) {
	if c.state != Dragging || i < 0 {
		return
	}
	switch {
	case i == c.index:
		c.End()
	case i < c.index:
		c.index--
	}
}

// End finishes the gesture wherever the pointer is. Moves already applied
// are kept; there is no rollback.
func (c *Controller) End() {
	c.state = Idle
	c.index = 0
}
