package layout

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"postergen/internal/theme"
)

//go:embed templates/poster.html
var templateFS embed.FS

var posterTemplate = template.Must(
	template.New("poster.html").Funcs(template.FuncMap{
		"css":          func(s string) template.CSS { return template.CSS(s) },
		"imgsrc":       imageSource,
		"px":           px,
		"rem":          func(f float64) string { return num(f) + "rem" },
		"wrapperStyle": wrapperStyle,
		"stageStyle":   stageStyle,
		"blurStyle":    blurStyle,
		"layerStyle":   layerStyle,
		"regionStyle":  regionStyle,
		"titleStyle":   titleStyle,
		"pillStyle":    pillStyle,
		"panelStyle":   panelStyle,
		"columnData":   columnData,
	}).ParseFS(templateFS, "templates/poster.html"),
)

// RenderOptions selects between the on-screen preview and the export page.
type RenderOptions struct {
	// Zoom is the preview zoom; ignored when Export is set.
	Zoom float64
	// Export renders at scale 1 and flags the document ready once every
	// image has loaded so the rasterizer can wait for it.
	Export bool
}

type columnView struct {
	Column      Column
	Text        EntryText
	HeadingFont string
}

func columnData(c Column, text EntryText, font string) columnView {
	return columnView{Column: c, Text: text, HeadingFont: font}
}

type page struct {
	*View
	Zoom   float64
	Export bool
}

// RenderHTML writes a standalone HTML document for v.
func RenderHTML(w io.Writer, v *View, opts RenderOptions) error {
	if v == nil {
		return ErrNoConfig
	}
	zoom := 1.0
	if !opts.Export {
		zoom = ClampZoom(opts.Zoom)
	}
	if err := posterTemplate.Execute(w, page{View: v, Zoom: zoom, Export: opts.Export}); err != nil {
		return fmt.Errorf("layout: render html: %w", err)
	}
	return nil
}

// imageSource allows http(s) and embedded image data only. Anything else
// renders as an empty source.
func imageSource(s string) template.URL {
	low := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(low, "https://"), strings.HasPrefix(low, "http://"):
		return template.URL(s)
	case strings.HasPrefix(low, "data:image/"):
		return template.URL(s)
	}
	return ""
}

func px(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64) + "px"
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// stageStyle sizes the outer box to the zoomed poster so the preview
// scrolls correctly.
func stageStyle(p page) template.CSS {
	return template.CSS(fmt.Sprintf("width:%s;height:%s;",
		px(float64(p.Canvas.WidthPx)*p.Zoom), px(float64(p.Canvas.HeightPx)*p.Zoom)))
}

func wrapperStyle(p page) template.CSS {
	s := fmt.Sprintf("width:%dpx;height:%dpx;font-family:%s;", p.Canvas.WidthPx, p.Canvas.HeightPx, p.Theme.BodyFont)
	if p.Zoom != 1 {
		s += "transform:scale(" + num(p.Zoom) + ");transform-origin:top left;"
	}
	return template.CSS(s)
}

func blurStyle(b Background) template.CSS {
	return template.CSS("filter:blur(" + px(b.BlurPx) + ");")
}

func layerStyle(l theme.Layer) template.CSS {
	var b strings.Builder
	switch l.Shape {
	case theme.Frame:
		fmt.Fprintf(&b, "inset:0;border:%dpx solid %s;", l.BorderPx, l.BorderColor)
	case theme.Glow:
		fmt.Fprintf(&b, "width:%dpx;height:%dpx;border-radius:9999px;background:%s;filter:blur(%dpx);",
			l.SizePx, l.SizePx, l.Background, l.BlurPx)
		tx := num(l.ShiftX * 100)
		ty := num(l.ShiftY * 100)
		if l.Corner == theme.BottomRight {
			b.WriteString("right:0;bottom:0;")
		} else {
			b.WriteString("left:0;top:0;")
		}
		fmt.Fprintf(&b, "transform:translate(%s%%,%s%%);", tx, ty)
	default:
		fmt.Fprintf(&b, "inset:0;background:%s;", l.Background)
		if l.BackdropBlurPx > 0 {
			fmt.Fprintf(&b, "backdrop-filter:blur(%dpx);", l.BackdropBlurPx)
		}
	}
	if l.BlendMode != "" {
		b.WriteString("mix-blend-mode:" + l.BlendMode + ";")
	}
	return template.CSS(b.String())
}

func regionStyle(r Region) template.CSS {
	return template.CSS(fmt.Sprintf("transform:scale(%s);transform-origin:%s;width:%s%%;",
		num(r.Scale), r.Origin, num(r.WidthPercent())))
}

func titleStyle(v *View) template.CSS {
	t := v.Theme
	s := fmt.Sprintf("font-family:%s;font-size:%s;color:%s;", t.HeadingFont, px(v.Header.TitleSizePx), t.TitleColor)
	if t.TitleGradient != "" {
		s += "background-image:" + t.TitleGradient + ";-webkit-background-clip:text;background-clip:text;color:transparent;"
	}
	if t.HeadingTracking != "" {
		s += "letter-spacing:" + t.HeadingTracking + ";"
	}
	return template.CSS(s)
}

func pillStyle(pl theme.Pill, size float64) template.CSS {
	return template.CSS(fmt.Sprintf("background:%s;border:1px solid %s;color:%s;font-size:%s;",
		pl.Background, pl.BorderColor, pl.TextColor, px(size)))
}

func panelStyle(v *View) template.CSS {
	s := fmt.Sprintf("background-color:%s;border:%s;", v.Program.PanelColor, v.Theme.ContainerBorder)
	if v.Theme.ContainerBackdropBlur > 0 {
		s += fmt.Sprintf("backdrop-filter:blur(%dpx);", v.Theme.ContainerBackdropBlur)
	}
	return template.CSS(s)
}
