// Package poster holds the poster Configuration record, its built-in default
// and the JSON document codec used for export/import.
//
// A Poster is only ever changed by replacing whole fields or whole lists. The
// helpers in this package never mutate the slices they are given; they return
// fresh ones so a caller holding an older snapshot is unaffected.
package poster

import (
	"errors"

	"github.com/google/uuid"

	"postergen/internal/theme"
)

var (
	// ErrNotFound is returned when an entry id or logo index does not exist.
	ErrNotFound = errors.New("poster: not found")
	// ErrUnknownField is returned by SetField and UpdateEntry for names that
	// are not part of the record.
	ErrUnknownField = errors.New("poster: unknown field")
)

// ProgramEntry is one session in the event programme.
type ProgramEntry struct {
	ID          string `json:"id"`
	Time        string `json:"time"`
	Title       string `json:"title"`
	Speaker     string `json:"speaker"`
	Description string `json:"description"`
}

// StyleSettings controls background treatment and panel opacity.
// Ranges: blur 0..20 px, darkness 0..0.9, opacity 0..1. Values are stored as
// given and clamped by the layout engine.
type StyleSettings struct {
	BackgroundBlur     float64 `json:"backgroundBlur"`
	BackgroundDarkness float64 `json:"backgroundDarkness"`
	ContentOpacity     float64 `json:"contentOpacity"`
}

// LayoutSettings holds independent typography and spacing knobs. Scales are
// unitless factors, sizes are CSS pixels, margin and gap are in 4px units.
type LayoutSettings struct {
	HeaderScale  float64 `json:"headerScale"`
	ProgramScale float64 `json:"programScale"`
	FooterScale  float64 `json:"footerScale"`

	TitleSize          float64 `json:"titleSize"`
	SubtitleSize       float64 `json:"subtitleSize"`
	MetaSize           float64 `json:"metaSize"`
	DescriptionSize    float64 `json:"descriptionSize"`
	ProgramTextPercent float64 `json:"programTextPercent"`
	ContactSize        float64 `json:"contactSize"`

	LogoHeight    float64 `json:"logoHeight"`
	QRSize        float64 `json:"qrSize"`
	ContentMargin float64 `json:"contentMargin"`
	SectionGap    float64 `json:"sectionGap"`
}

// Poster is the configuration record for one poster.
//
// Style and Layout are pointers so that a record built in code without them
// is distinguishable from one that sets every value to zero; the layout
// engine substitutes defaults for nil.
type Poster struct {
	Title            string          `json:"title"`
	Subtitle         string          `json:"subtitle"`
	Date             string          `json:"date"`
	Location         string          `json:"location"`
	EventDescription string          `json:"eventDescription"`
	BackgroundURL    string          `json:"backgroundUrl"`
	Items            []ProgramEntry  `json:"items"`
	ProgramTitle     string          `json:"programTitle"`
	Logos            []string        `json:"logos"`
	Theme            theme.ID        `json:"theme"`
	Style            *StyleSettings  `json:"styleSettings"`
	Layout           *LayoutSettings `json:"layoutSettings"`
	ContactTitle     string          `json:"contactTitle"`
	ContactDetails   string          `json:"contactDetails"`
	// QRCodeURL is empty when no QR image is set.
	QRCodeURL string `json:"qrCodeUrl"`
}

// Clone returns a deep copy of p.
func (p *Poster) Clone() *Poster {
	if p == nil {
		return nil
	}
	c := *p
	c.Items = append(make([]ProgramEntry, 0, len(p.Items)), p.Items...)
	c.Logos = append(make([]string, 0, len(p.Logos)), p.Logos...)
	if p.Style != nil {
		s := *p.Style
		c.Style = &s
	}
	if p.Layout != nil {
		l := *p.Layout
		c.Layout = &l
	}
	return &c
}

// NewID returns a fresh unique program entry id.
func NewID() string {
	return uuid.NewString()
}

// NewEntry returns a placeholder entry with a fresh id, as created by the
// editor's "add" action.
func NewEntry() ProgramEntry {
	return ProgramEntry{
		ID:          NewID(),
		Time:        "12:00",
		Title:       "Nouvelle Présentation",
		Speaker:     "Nom de l'intervenant",
		Description: "Description courte de la présentation.",
	}
}

// AppendEntry returns a new list with e added at the end.
func AppendEntry(items []ProgramEntry, e ProgramEntry) []ProgramEntry {
	out := make([]ProgramEntry, 0, len(items)+1)
	out = append(out, items...)
	return append(out, e)
}

// RemoveEntry returns a new list without the entry identified by id.
func RemoveEntry(items []ProgramEntry, id string) ([]ProgramEntry, error) {
	out := make([]ProgramEntry, 0, len(items))
	found := false
	for _, it := range items {
		if it.ID == id {
			found = true
			continue
		}
		out = append(out, it)
	}
	if !found {
		return nil, ErrNotFound
	}
	return out, nil
}

// UpdateEntry returns a new list where one editable field of the entry
// identified by id is replaced. The id itself is not editable.
func UpdateEntry(items []ProgramEntry, id, field, value string) ([]ProgramEntry, error) {
	idx := -1
	for i, it := range items {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}

	out := append(make([]ProgramEntry, 0, len(items)), items...)
	e := out[idx]
	switch field {
	case "time":
		e.Time = value
	case "title":
		e.Title = value
	case "speaker":
		e.Speaker = value
	case "description":
		e.Description = value
	default:
		return nil, ErrUnknownField
	}
	out[idx] = e
	return out, nil
}

// AppendLogo returns a new list with ref added at the end.
func AppendLogo(logos []string, ref string) []string {
	out := make([]string, 0, len(logos)+1)
	out = append(out, logos...)
	return append(out, ref)
}

// RemoveLogo returns a new list without the logo at index i.
func RemoveLogo(logos []string, i int) ([]string, error) {
	if i < 0 || i >= len(logos) {
		return nil, ErrNotFound
	}
	out := make([]string, 0, len(logos)-1)
	out = append(out, logos[:i]...)
	return append(out, logos[i+1:]...), nil
}
