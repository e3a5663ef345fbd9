package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"postergen/internal/layout"
	"postergen/internal/log"
)

// DefaultTimeout bounds a single browser run when none is configured.
const DefaultTimeout = 60 * time.Second

const mmPerInch = 25.4

// readySelector matches once the page has loaded every image and font.
const readySelector = `body[data-ready="true"]`

// Chromium drives a headless Chromium through chromedp. Each call starts its
// own browser context, so concurrent calls do not share tabs.
type Chromium struct {
	// ExecPath points at the browser binary; empty uses chromedp's lookup.
	ExecPath string
	// Timeout bounds one Rasterize or BitmapToPDF call.
	Timeout time.Duration
}

// New returns a Chromium with the given binary and timeout.
func New(execPath string, timeout time.Duration) *Chromium {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Chromium{ExecPath: execPath, Timeout: timeout}
}

func (c *Chromium) browser(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancelTimeout := context.WithTimeout(parent, timeout)

	cancelAlloc := context.CancelFunc(func() {})
	if c.ExecPath != "" {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(c.ExecPath))
		ctx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}
	ctx, cancelTab := chromedp.NewContext(ctx)

	return ctx, func() {
		cancelTab()
		cancelAlloc()
		cancelTimeout()
	}
}

// setContent replaces the blank tab's document with html.
func setContent(html string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
	})
}

// Rasterize loads doc into a canvas-sized viewport with the given device
// scale factor, waits for data-ready="true" on the body and captures the
// full page as PNG.
func (c *Chromium) Rasterize(parent context.Context, doc []byte, canvas layout.Canvas, ratio float64) ([]byte, error) {
	if ratio <= 0 {
		ratio = 1
	}
	ctx, cancel := c.browser(parent)
	defer cancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(canvas.WidthPx), int64(canvas.HeightPx), chromedp.EmulateScale(ratio)),
		chromedp.Navigate("about:blank"),
		setContent(string(doc)),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Small extra delay to allow final paints.
		chromedp.Sleep(200 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	log.Debug("rasterized page", "width", canvas.WidthPx, "height", canvas.HeightPx, "ratio", ratio, "bytes", len(png))
	return png, nil
}

var pdfPage = template.Must(template.New("pdf").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
@page { size: {{.W}}mm {{.H}}mm; margin: 0; }
html, body { margin: 0; padding: 0; }
img { display: block; width: {{.W}}mm; height: {{.H}}mm; }
</style></head>
<body data-ready="false"><img src="{{.Src}}" alt="" onload="document.body.setAttribute('data-ready','true')"></body></html>`))

// pdfDocument wraps png in a one-page document sized to canvas.
func pdfDocument(png []byte, canvas layout.Canvas) (string, error) {
	var doc strings.Builder
	err := pdfPage.Execute(&doc, struct {
		W, H float64
		Src  template.URL
	}{
		W:   canvas.WidthMM,
		H:   canvas.HeightMM,
		Src: template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
	})
	if err != nil {
		return "", fmt.Errorf("capture: pdf page: %w", err)
	}
	return doc.String(), nil
}

// BitmapToPDF places png full-bleed on one portrait page of canvas size and
// prints it with backgrounds and zero margins.
func (c *Chromium) BitmapToPDF(parent context.Context, png []byte, canvas layout.Canvas) ([]byte, error) {
	doc, err := pdfDocument(png, canvas)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.browser(parent)
	defer cancel()

	var pdf []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(canvas.WidthPx), int64(canvas.HeightPx)),
		chromedp.Navigate("about:blank"),
		setContent(doc),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(canvas.WidthMM / mmPerInch).
				WithPaperHeight(canvas.HeightMM / mmPerInch).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("capture: print to pdf failed: %w", err)
	}
	log.Debug("printed pdf", "bytes", len(pdf))
	return pdf, nil
}
