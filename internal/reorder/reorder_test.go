package reorder

import (
	"errors"
	"math/rand"
	"reflect"
	"slices"
	"testing"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"forward", 0, 2, []string{"B", "C", "A", "D"}},
		{"backward", 3, 1, []string{"A", "D", "B", "C"}},
		{"to end", 0, 3, []string{"B", "C", "D", "A"}},
		{"same", 2, 2, []string{"A", "B", "C", "D"}},
		{"out of range", 0, 9, []string{"A", "B", "C", "D"}},
		{"negative", -1, 2, []string{"A", "B", "C", "D"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := []string{"A", "B", "C", "D"}
			got := Move(in, tt.from, tt.to)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Move(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
			if !reflect.DeepEqual(in, []string{"A", "B", "C", "D"}) {
				t.Errorf("Move mutated its input: %v", in)
			}
		})
	}
}

// drag applies one hover through the controller the way a handler would.
func drag(t *testing.T, c *Controller, list []string, j int) []string {
	t.Helper()
	from, to, moved, err := c.Hover(j, len(list))
	if err != nil {
		t.Fatalf("Hover(%d): %v", j, err)
	}
	if !moved {
		return list
	}
	return Move(list, from, to)
}

func TestControllerLiveReorder(t *testing.T) {
	var c Controller
	list := []string{"A", "B", "C", "D"}

	if err := c.Start(0, len(list)); err != nil {
		t.Fatal(err)
	}
	list = drag(t, &c, list, 2)
	if want := []string{"B", "C", "A", "D"}; !reflect.DeepEqual(list, want) {
		t.Fatalf("after hover 2: %v, want %v", list, want)
	}
	if st, idx := c.State(); st != Dragging || idx != 2 {
		t.Fatalf("State() = %v, %d; want dragging, 2", st, idx)
	}
	list = drag(t, &c, list, 3)
	if want := []string{"B", "C", "D", "A"}; !reflect.DeepEqual(list, want) {
		t.Fatalf("after hover 3: %v, want %v", list, want)
	}

	c.End()
	if st, _ := c.State(); st != Idle {
		t.Errorf("State after End = %v", st)
	}
	// No rollback on release.
	if want := []string{"B", "C", "D", "A"}; !reflect.DeepEqual(list, want) {
		t.Errorf("list after End: %v", list)
	}
}

func TestControllerHoverOnSelfIsNoop(t *testing.T) {
	var c Controller
	if err := c.Start(1, 3); err != nil {
		t.Fatal(err)
	}
	_, _, moved, err := c.Hover(1, 3)
	if err != nil || moved {
		t.Errorf("Hover on self: moved=%v err=%v", moved, err)
	}
}

func TestControllerRejectsSecondDrag(t *testing.T) {
	var c Controller
	if err := c.Start(0, 2); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(1, 2); !errors.Is(err, ErrDragActive) {
		t.Errorf("second Start err = %v, want ErrDragActive", err)
	}
}

func TestControllerErrors(t *testing.T) {
	var c Controller
	if _, _, _, err := c.Hover(0, 3); !errors.Is(err, ErrNotDragging) {
		t.Errorf("Hover while idle err = %v", err)
	}
	if err := c.Start(5, 3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Start out of range err = %v", err)
	}
	if err := c.Start(0, 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Start on empty list err = %v", err)
	}
	if err := c.Start(2, 3); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := c.Hover(-1, 3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Hover(-1) err = %v", err)
	}
	// The list shrank to two elements while index 2 was being dragged.
	if _, _, _, err := c.Hover(0, 2); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Hover after shrink err = %v", err)
	}
	if st, _ := c.State(); st != Idle {
		t.Errorf("controller still dragging after list shrank")
	}
}

func TestControllerRemoved(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		removed   int
		wantState State
		wantIndex int
	}{
		{"earlier element", 3, 0, Dragging, 2},
		{"later element", 1, 3, Dragging, 1},
		{"dragged element", 2, 2, Idle, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Controller
			if err := c.Start(tt.start, 5); err != nil {
				t.Fatal(err)
			}
			c.Removed(tt.removed)
			if st, idx := c.State(); st != tt.wantState || idx != tt.wantIndex {
				t.Errorf("State() = %v, %d; want %v, %d", st, idx, tt.wantState, tt.wantIndex)
			}
		})
	}

	var idle Controller
	idle.Removed(0)
	if st, _ := idle.State(); st != Idle {
		t.Error("Removed started a drag")
	}
}

func TestControllerConservesMultiset(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		n := 1 + rng.Intn(10)
		list := make([]int, n)
		for i := range list {
			list[i] = i
		}
		orig := slices.Clone(list)

		var c Controller
		if err := c.Start(rng.Intn(n), n); err != nil {
			t.Fatal(err)
		}
		for step := 0; step < 20; step++ {
			from, to, moved, err := c.Hover(rng.Intn(n), n)
			if err != nil {
				t.Fatal(err)
			}
			if moved {
				list = Move(list, from, to)
			}
		}
		c.End()

		if len(list) != n {
			t.Fatalf("length changed: %d -> %d", n, len(list))
		}
		sorted := slices.Clone(list)
		slices.Sort(sorted)
		if !reflect.DeepEqual(sorted, orig) {
			t.Fatalf("not a permutation: %v", list)
		}
	}
}
