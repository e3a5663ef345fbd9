// Package export turns a computed poster view into downloadable files. The
// heavy lifting sits behind two narrow interfaces so the browser can be
// swapped for a fake in tests.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"postergen/internal/layout"
	"postergen/internal/log"
)

// Download names offered to the browser.
const (
	FilenamePNG    = "lagrange-poster.png"
	FilenamePDF    = "lagrange-programme.pdf"
	FilenameConfig = "lagrange-poster-config.json"
)

// BackgroundFilename names a downloaded background image.
func BackgroundFilename(at time.Time) string {
	return fmt.Sprintf("lagrange-background-%d.png", at.Unix())
}

// Default pixel densities.
const (
	DefaultPNGPixelRatio = 3
	DefaultPDFPixelRatio = 2
)

// Rasterizer renders an HTML page of canvas size into a PNG bitmap whose
// pixel dimensions are the canvas multiplied by ratio.
type Rasterizer interface {
	Rasterize(ctx context.Context, page []byte, canvas layout.Canvas, ratio float64) ([]byte, error)
}

// Paginator wraps a PNG bitmap into a single portrait page of canvas size.
type Paginator interface {
	BitmapToPDF(ctx context.Context, png []byte, canvas layout.Canvas) ([]byte, error)
}

// ErrNoBackend is returned when no rasterizer is configured.
var ErrNoBackend = errors.New("export: no rasterizer configured")

// Exporter produces PNG and PDF files from a View.
type Exporter struct {
	Rasterizer Rasterizer
	Paginator  Paginator
	PNGRatio   float64
	PDFRatio   float64
}

// New returns an Exporter with the default pixel ratios. Zero or negative
// ratios fall back to the defaults.
func New(r Rasterizer, p Paginator, pngRatio, pdfRatio float64) *Exporter {
	if pngRatio <= 0 {
		pngRatio = DefaultPNGPixelRatio
	}
	if pdfRatio <= 0 {
		pdfRatio = DefaultPDFPixelRatio
	}
	return &Exporter{Rasterizer: r, Paginator: p, PNGRatio: pngRatio, PDFRatio: pdfRatio}
}

// Page renders the export HTML for v: canvas size, scale 1, preview zoom
// ignored.
func Page(v *layout.View) ([]byte, error) {
	var buf bytes.Buffer
	if err := layout.RenderHTML(&buf, v, layout.RenderOptions{Export: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PNG rasterizes v at the PNG pixel ratio.
func (e *Exporter) PNG(ctx context.Context, v *layout.View) ([]byte, error) {
	return e.rasterize(ctx, v, e.PNGRatio)
}

// PDF rasterizes v at the PDF pixel ratio and wraps the bitmap in an A4 page.
func (e *Exporter) PDF(ctx context.Context, v *layout.View) ([]byte, error) {
	if e.Paginator == nil {
		return nil, errors.New("export: no paginator configured")
	}
	png, err := e.rasterize(ctx, v, e.PDFRatio)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	pdf, err := e.Paginator.BitmapToPDF(ctx, png, v.Canvas)
	if err != nil {
		return nil, fmt.Errorf("export: paginate: %w", err)
	}
	log.Debug("pdf built", "bytes", len(pdf), "took", time.Since(start))
	return pdf, nil
}

func (e *Exporter) rasterize(ctx context.Context, v *layout.View, ratio float64) ([]byte, error) {
	if e.Rasterizer == nil {
		return nil, ErrNoBackend
	}
	page, err := Page(v)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	png, err := e.Rasterizer.Rasterize(ctx, page, v.Canvas, ratio)
	if err != nil {
		return nil, fmt.Errorf("export: rasterize: %w", err)
	}
	log.Debug("page rasterized", "ratio", ratio, "bytes", len(png), "took", time.Since(start))
	return png, nil
}
