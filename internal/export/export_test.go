package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"postergen/internal/layout"
	"postergen/internal/poster"
	"postergen/internal/theme"
)

type fakeRasterizer struct {
	page   []byte
	canvas layout.Canvas
	ratio  float64
	err    error
}

func (f *fakeRasterizer) Rasterize(_ context.Context, page []byte, canvas layout.Canvas, ratio float64) ([]byte, error) {
	f.page, f.canvas, f.ratio = page, canvas, ratio
	if f.err != nil {
		return nil, f.err
	}
	return []byte("PNG"), nil
}

type fakePaginator struct {
	got []byte
}

func (f *fakePaginator) BitmapToPDF(_ context.Context, png []byte, _ layout.Canvas) ([]byte, error) {
	f.got = png
	return append([]byte("PDF:"), png...), nil
}

func view(t *testing.T) *layout.View {
	t.Helper()
	p := poster.Default()
	v, err := layout.Compute(p, theme.Resolve(p.Theme))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return v
}

func TestPNGUsesCanvasAndRatio(t *testing.T) {
	r := &fakeRasterizer{}
	e := New(r, &fakePaginator{}, 0, 0)

	out, err := e.PNG(context.Background(), view(t))
	if err != nil {
		t.Fatalf("PNG: %v", err)
	}
	if string(out) != "PNG" {
		t.Errorf("out = %q", out)
	}
	if r.ratio != 3 {
		t.Errorf("ratio = %v, want 3", r.ratio)
	}
	if r.canvas != layout.A4 {
		t.Errorf("canvas = %+v", r.canvas)
	}
	if !bytes.Contains(r.page, []byte(`data-ready="false"`)) {
		t.Error("export page does not gate on readiness")
	}
}

func TestPDFWrapsBitmapAtPDFRatio(t *testing.T) {
	r := &fakeRasterizer{}
	p := &fakePaginator{}
	e := New(r, p, 3, 0)

	out, err := e.PDF(context.Background(), view(t))
	if err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if r.ratio != 2 {
		t.Errorf("ratio = %v, want 2", r.ratio)
	}
	if string(p.got) != "PNG" || string(out) != "PDF:PNG" {
		t.Errorf("paginator got %q, out %q", p.got, out)
	}
}

func TestRasterizeFailure(t *testing.T) {
	boom := errors.New("chrome crashed")
	e := New(&fakeRasterizer{err: boom}, &fakePaginator{}, 0, 0)
	if _, err := e.PNG(context.Background(), view(t)); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestNoBackend(t *testing.T) {
	e := New(nil, nil, 0, 0)
	if _, err := e.PNG(context.Background(), view(t)); !errors.Is(err, ErrNoBackend) {
		t.Errorf("err = %v", err)
	}
}

func TestBackgroundFilename(t *testing.T) {
	at := time.Unix(1700000000, 0)
	if got := BackgroundFilename(at); got != "lagrange-background-1700000000.png" {
		t.Errorf("got %q", got)
	}
}
