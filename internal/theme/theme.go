// Package theme maps a poster theme identifier to the presentation constants
// used by the layout engine. Resolution is pure: the same ID always yields an
// identical Bundle and nothing is cached or mutated.
package theme

import (
	"fmt"
	"strings"
)

// ID identifies one of the closed set of poster themes.
type ID string

const (
	Modern  ID = "modern"
	Classic ID = "classic"
	Minimal ID = "minimal"
)

// Default is used whenever an identifier is empty or unknown.
const Default = Modern

// All lists every theme in display order.
func All() []ID {
	return []ID{Modern, Classic, Minimal}
}

// Parse converts a raw identifier (possibly from an imported document) into
// an ID. Unknown values fail closed to Default.
func Parse(s string) ID {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if id.Valid() {
		return id
	}
	return Default
}

// Valid reports whether id is one of the known themes.
func (id ID) Valid() bool {
	switch id {
	case Modern, Classic, Minimal:
		return true
	}
	return false
}

// Label is the human name shown in the editor theme picker.
func (id ID) Label() string {
	switch Parse(string(id)) {
	case Classic:
		return "Classique"
	case Minimal:
		return "Minimaliste"
	default:
		return "Moderne"
	}
}

// RGB is an opaque sRGB color.
type RGB struct {
	R, G, B uint8
}

// RGBA renders the color as a CSS rgba() with the given alpha in [0,1].
func (c RGB) RGBA(alpha float64) string {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", c.R, c.G, c.B, alpha)
}

// Shape of a decorative overlay layer.
type Shape int

const (
	// Fill covers the whole canvas.
	Fill Shape = iota
	// Frame is an inset border around the canvas edge.
	Frame
	// Glow is a blurred circle pinned to a corner.
	Glow
)

// Corner anchors a Glow layer.
type Corner int

const (
	TopLeft Corner = iota
	BottomRight
)

// Layer is one translucent decorative shape composited above the background.
type Layer struct {
	Shape Shape
	// Background is a CSS background value (color or gradient).
	Background string
	// BlendMode is a CSS mix-blend-mode; empty means normal.
	BlendMode string
	// BackdropBlurPx blurs whatever is behind a Fill layer.
	BackdropBlurPx int

	// Frame only.
	BorderPx    int
	BorderColor string

	// Glow only.
	SizePx int
	BlurPx int
	Corner Corner
	// ShiftX/ShiftY translate the glow by a fraction of its own size.
	ShiftX float64
	ShiftY float64
}

// Pill styles the date/location badges in the header.
type Pill struct {
	Background  string
	BorderColor string
	TextColor   string
}

// Bundle is the resolved set of presentation constants for a theme.
type Bundle struct {
	ID ID

	HeadingFont string
	BodyFont    string
	// HeadingTracking is CSS letter-spacing for headings.
	HeadingTracking string

	// TitleColor is a CSS color; when TitleGradient is set the title is
	// painted with the gradient clipped to the text instead.
	TitleColor    string
	TitleGradient string
	SubtitleColor string

	// ContainerBorder is a CSS border shorthand for the program panel.
	ContainerBorder       string
	ContainerBackdropBlur int
	// ContainerBase is composited at the configured content opacity.
	ContainerBase RGB

	AccentColor string

	DatePill     Pill
	LocationPill Pill

	DescriptionColor  string
	DescriptionItalic bool
	ContactTitleColor string

	// LogoStripBorder and LogoStripAlpha style the logo strip. When
	// LogoStripFollowsOpacity is set the alpha is contentOpacity * 0.5.
	LogoStripBorder         string
	LogoStripAlpha          float64
	LogoStripFollowsOpacity bool

	Overlays []Layer
}

const (
	fontOrbitron = `"Orbitron", "Eurostile", "Segoe UI", sans-serif`
	fontInter    = `"Inter", "Helvetica Neue", Arial, sans-serif`
	fontSerif    = `"Playfair Display", "Georgia", "Times New Roman", serif`
)

// Resolve returns the presentation bundle for id. Unknown identifiers
// resolve to the Default theme.
func Resolve(id ID) Bundle {
	switch Parse(string(id)) {
	case Classic:
		return classic()
	case Minimal:
		return minimal()
	default:
		return modern()
	}
}

func modern() Bundle {
	return Bundle{
		ID:                    Modern,
		HeadingFont:           fontOrbitron,
		BodyFont:              fontInter,
		TitleColor:            "#ffffff",
		TitleGradient:         "linear-gradient(to right, #ffffff, #cffafe, #cbd5e1)",
		SubtitleColor:         "#22d3ee",
		ContainerBorder:       "1px solid rgba(255, 255, 255, 0.10)",
		ContainerBackdropBlur: 4,
		ContainerBase:         RGB{0, 0, 0},
		AccentColor:           "#06b6d4",
		DatePill: Pill{
			Background:  "rgba(6, 182, 212, 0.20)",
			BorderColor: "rgba(6, 182, 212, 0.30)",
			TextColor:   "#ffffff",
		},
		LocationPill: Pill{
			Background:  "rgba(168, 85, 247, 0.20)",
			BorderColor: "rgba(168, 85, 247, 0.30)",
			TextColor:   "#ffffff",
		},
		DescriptionColor:  "#d1d5db",
		ContactTitleColor: "#ffffff",
		LogoStripBorder:   "1px solid rgba(255, 255, 255, 0.10)",
		LogoStripAlpha:    0.1,
		Overlays: []Layer{
			{
				Shape:      Fill,
				Background: "linear-gradient(to bottom, rgba(0, 0, 0, 0.6), rgba(0, 0, 0, 0.4), rgba(0, 0, 0, 0.9))",
				BlendMode:  "multiply",
			},
			{
				Shape:          Fill,
				Background:     "rgba(0, 0, 0, 0.2)",
				BackdropBlurPx: 1,
			},
			{
				Shape:      Glow,
				Background: "rgba(6, 182, 212, 0.10)",
				SizePx:     256,
				BlurPx:     64,
				Corner:     TopLeft,
				ShiftX:     -0.5,
				ShiftY:     -0.5,
			},
			{
				Shape:      Glow,
				Background: "rgba(147, 51, 234, 0.10)",
				SizePx:     384,
				BlurPx:     64,
				Corner:     BottomRight,
				ShiftX:     1.0 / 3,
				ShiftY:     1.0 / 3,
			},
		},
	}
}

func classic() Bundle {
	amber := Pill{
		Background:  "rgba(120, 53, 15, 0.40)",
		BorderColor: "rgba(245, 158, 11, 0.40)",
		TextColor:   "#fef3c7",
	}
	return Bundle{
		ID:                Classic,
		HeadingFont:       fontSerif,
		BodyFont:          fontInter,
		TitleColor:        "#fffbeb",
		SubtitleColor:     "rgba(253, 230, 138, 0.80)",
		ContainerBorder:   "2px double rgba(245, 158, 11, 0.30)",
		ContainerBase:     RGB{15, 23, 42},
		AccentColor:       "rgba(245, 158, 11, 0.50)",
		DatePill:          amber,
		LocationPill:      amber,
		DescriptionColor:  "rgba(254, 243, 199, 0.80)",
		DescriptionItalic: true,
		ContactTitleColor: "#fef3c7",
		LogoStripBorder:   "1px solid rgba(255, 255, 255, 0.10)",
		LogoStripAlpha:    0.1,
		Overlays: []Layer{
			{
				Shape:      Fill,
				Background: "rgba(15, 23, 42, 0.40)",
				BlendMode:  "multiply",
			},
			{
				Shape:       Frame,
				BorderPx:    20,
				BorderColor: "rgba(255, 255, 255, 0.05)",
			},
		},
	}
}

func minimal() Bundle {
	return Bundle{
		ID:                      Minimal,
		HeadingFont:             fontInter,
		BodyFont:                fontInter,
		HeadingTracking:         "-0.025em",
		TitleColor:              "#ffffff",
		SubtitleColor:           "#d1d5db",
		ContainerBorder:         "1px solid rgba(255, 255, 255, 0.20)",
		ContainerBackdropBlur:   12,
		ContainerBase:           RGB{255, 255, 255},
		AccentColor:             "#ffffff",
		DatePill: Pill{
			Background:  "rgba(6, 182, 212, 0.20)",
			BorderColor: "rgba(6, 182, 212, 0.30)",
			TextColor:   "#ffffff",
		},
		LocationPill: Pill{
			Background:  "rgba(168, 85, 247, 0.20)",
			BorderColor: "rgba(168, 85, 247, 0.30)",
			TextColor:   "#ffffff",
		},
		DescriptionColor:        "#d1d5db",
		ContactTitleColor:       "#ffffff",
		LogoStripBorder:         "1px solid rgba(255, 255, 255, 0.30)",
		LogoStripFollowsOpacity: true,
		Overlays: []Layer{
			{
				Shape:      Fill,
				Background: "rgba(0, 0, 0, 0.2)",
			},
		},
	}
}
