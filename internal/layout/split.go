package layout

import "postergen/internal/poster"

// Column is one half of the two-column programme. An empty column keeps its
// slot in the frame and renders a placeholder marker instead of collapsing.
type Column struct {
	Entries []poster.ProgramEntry
}

// Empty reports whether the column renders the placeholder marker.
func (c Column) Empty() bool {
	return len(c.Entries) == 0
}

// Split partitions entries into two columns: the left one receives
// ceil(n/2) entries, the right one the rest. Relative order is preserved
// within each column and the input is not modified.
func Split(entries []poster.ProgramEntry) (left, right Column) {
	mid := (len(entries) + 1) / 2
	left.Entries = append([]poster.ProgramEntry{}, entries[:mid]...)
	right.Entries = append([]poster.ProgramEntry{}, entries[mid:]...)
	return left, right
}
