package capture

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"postergen/internal/layout"
)

func TestNewDefaultsTimeout(t *testing.T) {
	if c := New("", 0); c.Timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}
	if c := New("/usr/bin/chromium", time.Second); c.Timeout != time.Second || c.ExecPath != "/usr/bin/chromium" {
		t.Errorf("chromium = %+v", c)
	}
}

func TestPDFDocument(t *testing.T) {
	doc, err := pdfDocument([]byte{0x89, 'P', 'N', 'G'}, layout.A4)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"size: 210mm 297mm",
		`data-ready="false"`,
		`src="data:image/png;base64,iVBORw=="`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q:\n%s", want, doc)
		}
	}
}

// TestRasterizeLive needs a local Chromium; set POSTERGEN_CHROMIUM_TEST=1 to run it.
func TestRasterizeLive(t *testing.T) {
	if os.Getenv("POSTERGEN_CHROMIUM_TEST") == "" {
		t.Skip("set POSTERGEN_CHROMIUM_TEST=1 to run against a local Chromium")
	}
	canvas := layout.Canvas{WidthPx: 100, HeightPx: 50, WidthMM: 26.5, HeightMM: 13.2}
	page := []byte(`<!DOCTYPE html><html><body data-ready="true" style="margin:0;background:#c00"></body></html>`)

	c := New(os.Getenv("POSTERGEN_CHROMIUM_PATH"), 30*time.Second)
	png, err := c.Rasterize(context.Background(), page, canvas, 2)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("not a PNG")
	}
	pdf, err := c.BitmapToPDF(context.Background(), png, canvas)
	if err != nil {
		t.Fatalf("BitmapToPDF: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("not a PDF")
	}
}
