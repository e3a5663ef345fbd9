package poster

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	appLog "postergen/internal/log"
	"postergen/internal/theme"
)

// ErrParse marks documents that are not a JSON object at all.
var ErrParse = errors.New("poster: malformed document")

// ParseError wraps the decoder failure for a malformed import document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "poster: malformed document: " + e.Err.Error()
}

func (e *ParseError) Unwrap() []error {
	return []error{ErrParse, e.Err}
}

// Export serializes p verbatim, embedded image data included. Nil lists are
// written as empty arrays so the document always has list-typed items/logos.
func Export(p *Poster) ([]byte, error) {
	if p == nil {
		return nil, errors.New("poster: export of nil poster")
	}
	out := *p
	if out.Items == nil {
		out.Items = []ProgramEntry{}
	}
	if out.Logos == nil {
		out.Logos = []string{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("poster: export: %w", err)
	}
	return data, nil
}

// Import decodes a document and merges it over the built-in default:
//
//   - top-level fields present in the document win;
//   - styleSettings and layoutSettings are merged key by key;
//   - items and logos replace the defaults only when they are JSON arrays.
//
// Values of the wrong JSON type are skipped and keep their default. Only a
// document that is not a JSON object fails, with a *ParseError.
func Import(data []byte) (*Poster, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	if doc == nil {
		return nil, &ParseError{Err: errors.New("document is null")}
	}

	p := Default()
	rest := make(map[string]json.RawMessage, len(doc))

	for key, raw := range doc {
		switch key {
		case "items":
			if !isKind(raw, '[') {
				appLog.Warn("import: items is not a list; keeping default")
				continue
			}
			var items []ProgramEntry
			if err := json.Unmarshal(raw, &items); err != nil {
				appLog.Warn("import: some items could not be decoded", "err", err)
			}
			if items == nil {
				items = []ProgramEntry{}
			}
			p.Items = ensureIDs(items)
		case "logos":
			if !isKind(raw, '[') {
				appLog.Warn("import: logos is not a list; keeping default")
				continue
			}
			var logos []string
			if err := json.Unmarshal(raw, &logos); err != nil {
				appLog.Warn("import: some logos could not be decoded", "err", err)
			}
			p.Logos = compactLogos(logos)
		case "styleSettings":
			if isKind(raw, '{') {
				mergeInto(p.Style, raw, key)
			}
		case "layoutSettings":
			if isKind(raw, '{') {
				mergeInto(p.Layout, raw, key)
			}
		default:
			if shadowsSection(key) {
				appLog.Warn("import: skipped key differing from a section name only by case", "key", key)
				continue
			}
			rest[key] = raw
		}
	}

	if len(rest) > 0 {
		// Re-encoding a map of RawMessage cannot fail.
		buf, _ := json.Marshal(rest)
		mergeInto(p, buf, "document")
	}

	appLog.Debug("poster imported", "items", len(p.Items), "logos", len(p.Logos), "theme", p.Theme)
	return p, nil
}

// SetField replaces one top-level field of p with the JSON value raw.
// styleSettings and layoutSettings accept partial objects which are merged
// over the current values before the record is replaced.
func SetField(p *Poster, name string, raw json.RawMessage) error {
	if p == nil {
		return errors.New("poster: set field on nil poster")
	}
	wrap := func(err error) error {
		return fmt.Errorf("poster: field %q: %w", name, err)
	}

	if dst := stringField(p, name); dst != nil {
		var s *string
		if err := json.Unmarshal(raw, &s); err != nil {
			return wrap(err)
		}
		if s == nil {
			*dst = ""
		} else {
			*dst = *s
		}
		return nil
	}

	switch name {
	case "theme":
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return wrap(err)
		}
		p.Theme = theme.Parse(s)
	case "styleSettings":
		next := DefaultStyle()
		if p.Style != nil {
			next = *p.Style
		}
		if err := json.Unmarshal(raw, &next); err != nil {
			return wrap(err)
		}
		p.Style = &next
	case "layoutSettings":
		next := DefaultLayout()
		if p.Layout != nil {
			next = *p.Layout
		}
		if err := json.Unmarshal(raw, &next); err != nil {
			return wrap(err)
		}
		p.Layout = &next
	case "items":
		var items []ProgramEntry
		if err := json.Unmarshal(raw, &items); err != nil {
			return wrap(err)
		}
		if items == nil {
			items = []ProgramEntry{}
		}
		p.Items = ensureIDs(items)
	case "logos":
		var logos []string
		if err := json.Unmarshal(raw, &logos); err != nil {
			return wrap(err)
		}
		p.Logos = compactLogos(logos)
	default:
		return wrap(ErrUnknownField)
	}
	return nil
}

func stringField(p *Poster, name string) *string {
	switch name {
	case "title":
		return &p.Title
	case "subtitle":
		return &p.Subtitle
	case "date":
		return &p.Date
	case "location":
		return &p.Location
	case "eventDescription":
		return &p.EventDescription
	case "backgroundUrl":
		return &p.BackgroundURL
	case "programTitle":
		return &p.ProgramTitle
	case "contactTitle":
		return &p.ContactTitle
	case "contactDetails":
		return &p.ContactDetails
	case "qrCodeUrl":
		return &p.QRCodeURL
	}
	return nil
}

// mergeInto decodes raw over the existing value of dst. encoding/json leaves
// absent keys untouched and skips mistyped ones, which is the merge we want.
func mergeInto(dst any, raw []byte, what string) {
	if err := json.Unmarshal(raw, dst); err != nil {
		appLog.Warn("import: skipped mistyped values", "section", what, "err", err)
	}
}

func isKind(raw json.RawMessage, open byte) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == open
}

// shadowsSection reports keys that encoding/json would fold onto one of the
// sections decoded above, such as "Items" or "stylesettings".
func shadowsSection(key string) bool {
	for _, name := range []string{"items", "logos", "styleSettings", "layoutSettings"} {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}

// ensureIDs gives every entry a unique id. Missing ids and repeats of an
// earlier id are replaced with fresh ones.
func ensureIDs(items []ProgramEntry) []ProgramEntry {
	seen := make(map[string]bool, len(items))
	for i := range items {
		if items[i].ID == "" || seen[items[i].ID] {
			items[i].ID = NewID()
		}
		seen[items[i].ID] = true
	}
	return items
}

func compactLogos(logos []string) []string {
	out := make([]string, 0, len(logos))
	for _, l := range logos {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
