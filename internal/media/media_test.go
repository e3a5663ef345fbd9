package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestNormalizeShrinksLargeImages(t *testing.T) {
	out, mime, err := Normalize(encodePNG(t, 400, 200), 100)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if mime != "image/png" {
		t.Errorf("mime = %q", mime)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("size = %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	out, _, err := Normalize(encodePNG(t, 40, 30), 100)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Errorf("size = %dx%d, want 40x30", cfg.Width, cfg.Height)
	}
}

func TestNormalizeJPEGStaysJPEG(t *testing.T) {
	_, mime, err := Normalize(encodeJPEG(t, 20, 20), 0)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %q", mime)
	}
}

func TestNormalizeSVGPassesThrough(t *testing.T) {
	svg := []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"></svg>`)
	out, mime, err := Normalize(svg, 100)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if mime != "image/svg+xml" || !bytes.Equal(out, svg) {
		t.Errorf("svg changed: mime=%q", mime)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, _, err := Normalize([]byte("definitely not an image"), 100); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

// withPNGSize rewrites the IHDR dimensions of a PNG without touching its
// pixel data.
func withPNGSize(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := bytes.Clone(data)
	if string(out[12:16]) != "IHDR" {
		t.Fatal("IHDR is not the first chunk")
	}
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestNormalizeRejectsHugeDimensions(t *testing.T) {
	data := withPNGSize(t, encodePNG(t, 4, 4), 20000, 20000)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width != 20000 {
		t.Fatalf("crafted header not readable: %v %+v", err, cfg)
	}
	if _, _, err := Normalize(data, 2400); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestReadLimited(t *testing.T) {
	if _, err := ReadLimited(strings.NewReader("12345"), 4); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
	data, err := ReadLimited(strings.NewReader("1234"), 4)
	if err != nil || string(data) != "1234" {
		t.Errorf("got %q, %v", data, err)
	}
}

func TestDataURLRoundTrip(t *testing.T) {
	in := []byte{0x89, 'P', 'N', 'G', 0, 1, 2}
	u := DataURL("image/png", in)
	if !strings.HasPrefix(u, "data:image/png;base64,") {
		t.Fatalf("url = %q", u)
	}
	out, mime, err := DecodeDataURL(u)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mime != "image/png" || !bytes.Equal(out, in) {
		t.Errorf("got %q %v", mime, out)
	}
}

func TestDecodeDataURLRejects(t *testing.T) {
	for _, s := range []string{
		"https://example.com/a.png",
		"data:image/png,raw",
		"data:image/png;base64",
	} {
		if _, _, err := DecodeDataURL(s); !errors.Is(err, ErrUnsupported) {
			t.Errorf("DecodeDataURL(%q) err = %v", s, err)
		}
	}
}

func TestQRCode(t *testing.T) {
	out, err := QRCode("https://example.org/programme")
	if err != nil {
		t.Fatalf("QRCode: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if format != "png" || cfg.Width != QRSize {
		t.Errorf("format=%s width=%d", format, cfg.Width)
	}
	if _, err := QRCode("   "); err == nil {
		t.Error("empty text should fail")
	}
}

func TestParseKind(t *testing.T) {
	if k, ok := ParseKind(" Logo "); !ok || k != KindLogo {
		t.Errorf("ParseKind(Logo) = %q %v", k, ok)
	}
	if _, ok := ParseKind("avatar"); ok {
		t.Error("unknown kind accepted")
	}
}
