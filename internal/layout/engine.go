// Package layout turns a poster configuration and its resolved theme into a
// View: every concrete number the renderer needs (clamped style values,
// scaled font sizes, padding, region transforms) plus the split programme.
// RenderHTML turns a View into the HTML document used for preview and export.
package layout

import (
	"errors"
	"fmt"
	"math"

	"postergen/internal/poster"
	"postergen/internal/theme"
)

var (
	// ErrNoConfig is returned when Compute is called without a poster.
	ErrNoConfig = errors.New("layout: no configuration")
	// ErrMissingID is returned when a program entry has no identity.
	ErrMissingID = errors.New("layout: program entry without id")
)

// Canvas is the fixed page surface.
type Canvas struct {
	WidthPx  int
	HeightPx int
	WidthMM  float64
	HeightMM float64
}

// A4 portrait at 96 DPI. Exports always use this size regardless of zoom.
var A4 = Canvas{WidthPx: 794, HeightPx: 1123, WidthMM: 210, HeightMM: 297}

// Accepted ranges, applied at the point of use. Style bounds follow the
// editor sliders; darkness tops out at 0.9.
var (
	blurRange     = bounds{0, 20}
	darknessRange = bounds{0, 0.9}
	opacityRange  = bounds{0, 1}

	scaleRange       = bounds{0.5, 2}
	titleRange       = bounds{16, 96}
	subtitleRange    = bounds{8, 32}
	metaRange        = bounds{8, 28}
	descriptionRange = bounds{8, 28}
	programPctRange  = bounds{50, 200}
	contactRange     = bounds{8, 24}
	logoHeightRange  = bounds{16, 160}
	qrSizeRange      = bounds{32, 160}
	marginRange      = bounds{0, 24}
	gapRange         = bounds{0, 16}
)

// spacingUnit converts margin/gap settings to pixels.
const spacingUnit = 4

type bounds struct{ lo, hi float64 }

func (b bounds) clamp(v float64) float64 { return clamp(v, b.lo, b.hi) }

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Region is the local transform of header, program or footer. The region is
// scaled around Origin and its layout width is divided by Scale, so the
// scaled box always spans the available width exactly.
type Region struct {
	Scale  float64
	Origin string
}

// WidthPercent is the layout width as a percentage of the available width.
func (r Region) WidthPercent() float64 {
	return 100 / r.Scale
}

// LayoutWidth is the unscaled width given to the region's content.
func (r Region) LayoutWidth(available float64) float64 {
	return available * r.WidthPercent() / 100
}

// VisualWidth is the on-canvas width after the scale transform.
func (r Region) VisualWidth(available float64) float64 {
	return r.LayoutWidth(available) * r.Scale
}

// Background is the full-bleed image layer.
type Background struct {
	URL      string
	BlurPx   float64
	Darkness float64
}

// DarknessPercent is the darkness as displayed in the editor.
func (b Background) DarknessPercent() int {
	return int(math.Round(b.Darkness * 100))
}

// Header holds the title block.
type Header struct {
	Region
	Subtitle    string
	Title       string
	Date        string
	Location    string
	Description string

	TitleSizePx       float64
	SubtitleSizePx    float64
	MetaSizePx        float64
	DescriptionSizePx float64
}

// EntryText holds programme font sizes in rem.
type EntryText struct {
	TimeRem        float64
	TitleRem       float64
	SpeakerRem     float64
	DescriptionRem float64
	TimeColumnRem  float64
}

// Program holds the programme panel.
type Program struct {
	Region
	Title   string
	Opacity float64
	// PanelColor is the theme base color at Opacity alpha.
	PanelColor string
	Left       Column
	Right      Column
	Text       EntryText
}

// OpacityPercent is the panel opacity as displayed in the editor.
func (p Program) OpacityPercent() int {
	return int(math.Round(p.Opacity * 100))
}

// QR is the fixed-size square block at the footer's right edge.
type QR struct {
	URL    string
	SizePx float64
}

// Placeholder reports whether the default glyph is drawn instead of an image.
func (q QR) Placeholder() bool {
	return q.URL == ""
}

// Footer holds logos, contact text and the QR block.
type Footer struct {
	Region
	Logos           []string
	LogoHeightPx    float64
	LogoStripColor  string
	LogoStripBorder string
	ContactTitle    string
	ContactDetails  string
	ContactSizePx   float64
	QR              QR
}

// ShowLogos reports whether the logo strip is drawn at all.
func (f Footer) ShowLogos() bool {
	return len(f.Logos) > 0
}

// View is the fully resolved visual tree for one poster page.
type View struct {
	Canvas     Canvas
	Theme      theme.Bundle
	Background Background
	PaddingPx  float64
	GapPx      float64
	Header     Header
	Program    Program
	Footer     Footer
}

// ContentWidth is the canvas width available to the regions.
func (v *View) ContentWidth() float64 {
	return float64(v.Canvas.WidthPx) - 2*v.PaddingPx
}

// Compute resolves p against bundle. Missing style or layout settings fall
// back to defaults; out-of-range values are clamped. It fails only when the
// poster is nil or a program entry has no id.
func Compute(p *poster.Poster, bundle theme.Bundle) (*View, error) {
	if p == nil {
		return nil, ErrNoConfig
	}
	for i, it := range p.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrMissingID, i)
		}
	}

	style := poster.DefaultStyle()
	if p.Style != nil {
		style = *p.Style
	}
	ls := poster.DefaultLayout()
	if p.Layout != nil {
		ls = *p.Layout
	}

	opacity := opacityRange.clamp(style.ContentOpacity)
	left, right := Split(p.Items)
	pct := programPctRange.clamp(ls.ProgramTextPercent) / 100

	logoStrip := theme.RGB{R: 255, G: 255, B: 255}.RGBA(bundle.LogoStripAlpha)
	if bundle.LogoStripFollowsOpacity {
		logoStrip = theme.RGB{R: 255, G: 255, B: 255}.RGBA(opacity * 0.5)
	}

	v := &View{
		Canvas: A4,
		Theme:  bundle,
		Background: Background{
			URL:      p.BackgroundURL,
			BlurPx:   blurRange.clamp(style.BackgroundBlur),
			Darkness: darknessRange.clamp(style.BackgroundDarkness),
		},
		PaddingPx: marginRange.clamp(ls.ContentMargin) * spacingUnit,
		GapPx:     gapRange.clamp(ls.SectionGap) * spacingUnit,
		Header: Header{
			Region:            Region{Scale: scaleRange.clamp(ls.HeaderScale), Origin: "top"},
			Subtitle:          p.Subtitle,
			Title:             p.Title,
			Date:              p.Date,
			Location:          p.Location,
			Description:       p.EventDescription,
			TitleSizePx:       titleRange.clamp(ls.TitleSize),
			SubtitleSizePx:    subtitleRange.clamp(ls.SubtitleSize),
			MetaSizePx:        metaRange.clamp(ls.MetaSize),
			DescriptionSizePx: descriptionRange.clamp(ls.DescriptionSize),
		},
		Program: Program{
			Region:     Region{Scale: scaleRange.clamp(ls.ProgramScale), Origin: "top"},
			Title:      programTitle(p.ProgramTitle),
			Opacity:    opacity,
			PanelColor: bundle.ContainerBase.RGBA(opacity),
			Left:       left,
			Right:      right,
			Text: EntryText{
				TimeRem:        0.8 * pct,
				TitleRem:       0.9 * pct,
				SpeakerRem:     0.75 * pct,
				DescriptionRem: 0.7 * pct,
				TimeColumnRem:  3.5 * pct,
			},
		},
		Footer: Footer{
			Region:          Region{Scale: scaleRange.clamp(ls.FooterScale), Origin: "bottom"},
			Logos:           append([]string{}, p.Logos...),
			LogoHeightPx:    logoHeightRange.clamp(ls.LogoHeight),
			LogoStripColor:  logoStrip,
			LogoStripBorder: bundle.LogoStripBorder,
			ContactTitle:    p.ContactTitle,
			ContactDetails:  p.ContactDetails,
			ContactSizePx:   contactRange.clamp(ls.ContactSize),
			QR: QR{
				URL:    p.QRCodeURL,
				SizePx: qrSizeRange.clamp(ls.QRSize),
			},
		},
	}
	return v, nil
}

func programTitle(s string) string {
	if s == "" {
		return "PROGRAMME"
	}
	return s
}
