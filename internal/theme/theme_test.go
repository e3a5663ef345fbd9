package theme

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want ID
	}{
		{"modern", Modern},
		{"classic", Classic},
		{"minimal", Minimal},
		{" Classic ", Classic},
		{"", Modern},
		{"neon", Modern},
	}
	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveUnknownFallsBackToModern(t *testing.T) {
	got := Resolve(ID("brutalist"))
	want := Resolve(Modern)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unknown theme did not resolve to modern bundle")
	}
	if got.ID != Modern {
		t.Errorf("ID = %q, want %q", got.ID, Modern)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	for _, id := range All() {
		a, b := Resolve(id), Resolve(id)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Resolve(%q) not stable across calls", id)
		}
		if a.ID != id {
			t.Errorf("Resolve(%q).ID = %q", id, a.ID)
		}
		if a.HeadingFont == "" || a.BodyFont == "" {
			t.Errorf("Resolve(%q) has empty fonts", id)
		}
		if len(a.Overlays) == 0 {
			t.Errorf("Resolve(%q) has no overlays", id)
		}
	}
}

func TestResolveContainerBase(t *testing.T) {
	tests := []struct {
		id   ID
		want RGB
	}{
		{Modern, RGB{0, 0, 0}},
		{Classic, RGB{15, 23, 42}},
		{Minimal, RGB{255, 255, 255}},
	}
	for _, tt := range tests {
		if got := Resolve(tt.id).ContainerBase; got != tt.want {
			t.Errorf("%s ContainerBase = %+v, want %+v", tt.id, got, tt.want)
		}
	}
}

func TestRGBA(t *testing.T) {
	c := RGB{15, 23, 42}
	if got, want := c.RGBA(0.5), "rgba(15, 23, 42, 0.50)"; got != want {
		t.Errorf("RGBA(0.5) = %q, want %q", got, want)
	}
	if got, want := c.RGBA(3), "rgba(15, 23, 42, 1.00)"; got != want {
		t.Errorf("RGBA(3) = %q, want %q", got, want)
	}
	if got, want := c.RGBA(-1), "rgba(15, 23, 42, 0.00)"; got != want {
		t.Errorf("RGBA(-1) = %q, want %q", got, want)
	}
}
