// Package media prepares uploaded and generated images for embedding in a
// poster document as data URLs.
package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupported is returned for payloads that are not a known image format.
	ErrUnsupported = errors.New("media: unsupported image format")
	// ErrTooLarge is returned when an upload exceeds the configured size.
	ErrTooLarge = errors.New("media: image too large")
)

const jpegQuality = 90

// MaxPixels bounds the decoded size of an upload. The header is checked
// before the bitmap is allocated.
const MaxPixels = 8192 * 8192

// Kind identifies the poster slot an upload goes to.
type Kind string

const (
	KindBackground Kind = "background"
	KindLogo       Kind = "logo"
	KindQR         Kind = "qr"
)

// ParseKind validates an upload slot name.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBackground, KindLogo, KindQR:
		return k, true
	}
	return "", false
}

// ReadLimited reads r fully, failing with ErrTooLarge past max bytes.
func ReadLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("media: read: %w", err)
	}
	if int64(len(data)) > max {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Normalize decodes data, applies EXIF orientation and shrinks it to fit in
// a maxDim square. JPEG and WebP inputs are re-encoded as JPEG, everything
// else as PNG. SVG documents pass through unchanged. A non-positive maxDim
// disables resizing.
func Normalize(data []byte, maxDim int) ([]byte, string, error) {
	if isSVG(data) {
		return data, "image/svg+xml", nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", ErrUnsupported
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d pixels", ErrTooLarge, cfg.Width, cfg.Height)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("media: decode %s: %w", format, err)
	}

	b := img.Bounds()
	if maxDim > 0 && (b.Dx() > maxDim || b.Dy() > maxDim) {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg", "webp":
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return nil, "", fmt.Errorf("media: encode jpeg: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", fmt.Errorf("media: encode png: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}
}

func isSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	s := strings.ToLower(string(head))
	return strings.Contains(s, "<svg")
}

// DataURL embeds data as a base64 data URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL is the inverse of DataURL. Only base64 payloads are
// accepted.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", ErrUnsupported
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrUnsupported
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", ErrUnsupported
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("media: data url: %w", err)
	}
	if mime == "" {
		mime = "text/plain"
	}
	return data, mime, nil
}

// QRSize is the edge length of generated QR images in pixels.
const QRSize = 256

// QRCode encodes text as a PNG QR code.
func QRCode(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("media: qr text is empty")
	}
	png, err := qrcode.Encode(text, qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("media: qr encode: %w", err)
	}
	return png, nil
}
