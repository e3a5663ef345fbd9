// Package session holds the single editing session: the current poster
// document, preview zoom and drag gestures, plus the guarded calls out to
// the image generator and the exporter.
//
// Every mutation replaces a whole field or list under the session lock.
// External calls run outside the lock; their result is applied afterwards,
// so a failed call never leaves a partial update behind.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"postergen/internal/export"
	"postergen/internal/ics"
	"postergen/internal/imagegen"
	"postergen/internal/layout"
	appLog "postergen/internal/log"
	"postergen/internal/media"
	"postergen/internal/poster"
	"postergen/internal/reorder"
	"postergen/internal/theme"
)

var (
	// ErrBusy is returned when an export or generation of the same kind is
	// already running.
	ErrBusy = errors.New("session: operation already in progress")
	// ErrUnknownList is returned for drag calls on a list other than items
	// or logos.
	ErrUnknownList = errors.New("session: unknown list")
	// ErrNoSessions is returned when a calendar has no timed event on the
	// requested day.
	ErrNoSessions = errors.New("session: no sessions found in calendar")
)

// List names a reorderable list of the poster.
type List string

const (
	ListItems List = "items"
	ListLogos List = "logos"
)

// ParseList validates a list name.
func ParseList(s string) (List, error) {
	switch l := List(s); l {
	case ListItems, ListLogos:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownList, s)
}

// Options wires the session to its collaborators. Nil collaborators make the
// corresponding operations fail with a descriptive error.
type Options struct {
	Generator imagegen.Generator
	Exporter  *export.Exporter
	Fetcher   *ics.Fetcher
	// Location is the zone calendar sessions are shown in.
	Location *time.Location
	// MaxDimension bounds uploaded images; zero keeps their size.
	MaxDimension int
}

// Session is safe for concurrent use.
type Session struct {
	opts Options

	mu     sync.Mutex
	poster *poster.Poster
	zoom   float64
	drags  map[List]*reorder.Controller

	exporting    atomic.Bool
	generating   atomic.Bool
	snapshotting atomic.Bool
}

// New starts a session on the default poster.
func New(opts Options) *Session {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Session{
		opts:   opts,
		poster: poster.Default(),
		zoom:   layout.DefaultZoom,
		drags: map[List]*reorder.Controller{
			ListItems: {},
			ListLogos: {},
		},
	}
}

// Snapshot returns a deep copy of the current poster.
func (s *Session) Snapshot() *poster.Poster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poster.Clone()
}

// View computes the layout of the current poster.
func (s *Session) View() (*layout.View, error) {
	p := s.Snapshot()
	return layout.Compute(p, theme.Resolve(p.Theme))
}

// Replace swaps in p wholesale and cancels any drag in progress.
func (s *Session) Replace(p *poster.Poster) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poster = p.Clone()
	s.endDragsLocked()
}

// update applies fn to a copy of the poster and commits it only when fn
// succeeds.
func (s *Session) update(fn func(p *poster.Poster) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.poster.Clone()
	if err := fn(next); err != nil {
		return err
	}
	s.poster = next
	return nil
}

// SetField replaces one top-level field from its JSON value. Replacing
// items or logos ends a drag on that list.
func (s *Session) SetField(name string, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.poster.Clone()
	if err := poster.SetField(next, name, raw); err != nil {
		return err
	}
	s.poster = next
	if c, ok := s.drags[List(name)]; ok {
		c.End()
	}
	return nil
}

// AddEntry appends a placeholder entry and returns it.
func (s *Session) AddEntry() poster.ProgramEntry {
	e := poster.NewEntry()
	_ = s.update(func(p *poster.Poster) error {
		p.Items = poster.AppendEntry(p.Items, e)
		return nil
	})
	return e
}

// RemoveEntry deletes the entry with the given id. A drag on the items
// keeps following the dragged entry.
func (s *Session) RemoveEntry(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.poster.Items, func(e poster.ProgramEntry) bool { return e.ID == id })
	items, err := poster.RemoveEntry(s.poster.Items, id)
	if err != nil {
		return err
	}
	next := s.poster.Clone()
	next.Items = items
	s.poster = next
	s.drags[ListItems].Removed(i)
	return nil
}

// UpdateEntry sets one field of one entry.
func (s *Session) UpdateEntry(id, field, value string) error {
	return s.update(func(p *poster.Poster) error {
		items, err := poster.UpdateEntry(p.Items, id, field, value)
		if err != nil {
			return err
		}
		p.Items = items
		return nil
	})
}

// AddLogo appends a logo reference.
func (s *Session) AddLogo(ref string) {
	_ = s.update(func(p *poster.Poster) error {
		p.Logos = poster.AppendLogo(p.Logos, ref)
		return nil
	})
}

// RemoveLogo deletes the logo at index i. A drag on the logos keeps
// following the dragged logo.
func (s *Session) RemoveLogo(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logos, err := poster.RemoveLogo(s.poster.Logos, i)
	if err != nil {
		return err
	}
	next := s.poster.Clone()
	next.Logos = logos
	s.poster = next
	s.drags[ListLogos].Removed(i)
	return nil
}

// SetBackground replaces the background image reference.
func (s *Session) SetBackground(ref string) {
	_ = s.update(func(p *poster.Poster) error {
		p.BackgroundURL = ref
		return nil
	})
}

// SetQRCode replaces the QR image reference.
func (s *Session) SetQRCode(ref string) {
	_ = s.update(func(p *poster.Poster) error {
		p.QRCodeURL = ref
		return nil
	})
}

// ClearQRCode removes the QR image; the placeholder is drawn instead.
func (s *Session) ClearQRCode() {
	s.SetQRCode("")
}

// Upload normalizes an image and stores it in the slot named by kind:
// background and QR are replaced, logos are appended.
func (s *Session) Upload(kind media.Kind, data []byte) error {
	norm, mime, err := media.Normalize(data, s.opts.MaxDimension)
	if err != nil {
		return err
	}
	ref := media.DataURL(mime, norm)
	switch kind {
	case media.KindBackground:
		s.SetBackground(ref)
	case media.KindLogo:
		s.AddLogo(ref)
	case media.KindQR:
		s.SetQRCode(ref)
	default:
		return fmt.Errorf("session: unknown upload kind %q", kind)
	}
	appLog.Info("image uploaded", "kind", kind, "in_bytes", len(data), "out_bytes", len(norm), "mime", mime)
	return nil
}

// GenerateQRCode renders text as a QR image and stores it.
func (s *Session) GenerateQRCode(text string) error {
	png, err := media.QRCode(text)
	if err != nil {
		return err
	}
	s.SetQRCode(media.DataURL("image/png", png))
	return nil
}

// Import replaces the poster with a decoded document merged over defaults.
// A malformed document leaves the session untouched.
func (s *Session) Import(data []byte) error {
	p, err := poster.Import(data)
	if err != nil {
		return err
	}
	s.Replace(p)
	appLog.Info("configuration imported", "items", len(p.Items), "logos", len(p.Logos))
	return nil
}

// Export serializes the current poster.
func (s *Session) Export() ([]byte, error) {
	return poster.Export(s.Snapshot())
}

// Zoom returns the preview zoom.
func (s *Session) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// SetZoom clamps z and stores it, returning the stored value.
func (s *Session) SetZoom(z float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = layout.ClampZoom(z)
	return s.zoom
}

// ZoomIn steps the preview zoom up.
func (s *Session) ZoomIn() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = layout.ZoomIn(s.zoom)
	return s.zoom
}

// ZoomOut steps the preview zoom down.
func (s *Session) ZoomOut() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = layout.ZoomOut(s.zoom)
	return s.zoom
}

// GenerateBackground asks the generator for a new background. On failure
// the current background is kept and the error returned.
func (s *Session) GenerateBackground(ctx context.Context) error {
	if s.opts.Generator == nil {
		return imagegen.ErrDisabled
	}
	if !s.generating.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.generating.Store(false)

	img, err := s.opts.Generator.GenerateBackground(ctx)
	if err != nil {
		appLog.Error("background generation failed", err)
		return err
	}
	if len(img.Data) == 0 {
		return imagegen.ErrNoImage
	}
	mime := img.MimeType
	if mime == "" {
		mime = "image/png"
	}
	s.SetBackground(media.DataURL(mime, img.Data))
	return nil
}

// Generating reports whether a generation is running.
func (s *Session) Generating() bool { return s.generating.Load() }

// Exporting reports whether an export is running.
func (s *Session) Exporting() bool { return s.exporting.Load() }

// ExportPNG rasterizes the current poster.
func (s *Session) ExportPNG(ctx context.Context) ([]byte, error) {
	return s.runExport(ctx, &s.exporting, "png", (*export.Exporter).PNG)
}

// ExportPDF rasterizes the current poster into a one-page PDF.
func (s *Session) ExportPDF(ctx context.Context) ([]byte, error) {
	return s.runExport(ctx, &s.exporting, "pdf", (*export.Exporter).PDF)
}

// PreviewPNG rasterizes the current poster for the preview snapshot. It is
// guarded apart from ExportPNG and ExportPDF, so a scheduled snapshot never
// makes a user export fail with ErrBusy.
func (s *Session) PreviewPNG(ctx context.Context) ([]byte, error) {
	return s.runExport(ctx, &s.snapshotting, "preview", (*export.Exporter).PNG)
}

func (s *Session) runExport(ctx context.Context, guard *atomic.Bool, kind string, fn func(*export.Exporter, context.Context, *layout.View) ([]byte, error)) ([]byte, error) {
	if s.opts.Exporter == nil {
		return nil, export.ErrNoBackend
	}
	if !guard.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer guard.Store(false)

	v, err := s.View()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := fn(s.opts.Exporter, ctx, v)
	if err != nil {
		appLog.Error("export failed", err, "kind", kind)
		return nil, err
	}
	appLog.Info("export done", "kind", kind, "bytes", len(out), "took", time.Since(start))
	return out, nil
}

// ICSRequest selects a calendar and the day to import. Body wins over URL.
// A zero Day picks the day of the earliest timed event.
type ICSRequest struct {
	Body []byte
	URL  string
	Day  time.Time
}

// ImportICS replaces the programme with the calendar's sessions on one day
// and returns how many entries were imported.
func (s *Session) ImportICS(ctx context.Context, req ICSRequest) (int, error) {
	body := req.Body
	if len(body) == 0 {
		if req.URL == "" {
			return 0, ics.ErrEmpty
		}
		if s.opts.Fetcher == nil {
			return 0, errors.New("session: calendar fetching is not configured")
		}
		res, err := s.opts.Fetcher.Fetch(ctx, req.URL)
		if err != nil {
			return 0, err
		}
		body = res.Body
	}

	events, err := ics.Parse(body)
	if err != nil {
		return 0, err
	}
	day := req.Day
	if day.IsZero() {
		first, ok := ics.FirstDay(events, s.opts.Location)
		if !ok {
			return 0, ErrNoSessions
		}
		day = first
	}
	entries := ics.Entries(ics.OccurrencesOn(events, day, s.opts.Location))
	if len(entries) == 0 {
		return 0, ErrNoSessions
	}

	err = s.update(func(p *poster.Poster) error {
		p.Items = entries
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.drags[ListItems].End()
	s.mu.Unlock()

	appLog.Info("calendar imported", "day", day.Format(time.DateOnly), "entries", len(entries))
	return len(entries), nil
}

// DragStart begins dragging element i of list.
func (s *Session) DragStart(list List, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.drags[list]
	if !ok {
		return ErrUnknownList
	}
	return c.Start(i, s.lenLocked(list))
}

// DragHover moves the dragged element of list to index j. It reports
// whether the list changed.
func (s *Session) DragHover(list List, j int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.drags[list]
	if !ok {
		return false, ErrUnknownList
	}
	from, to, moved, err := c.Hover(j, s.lenLocked(list))
	if err != nil || !moved {
		return false, err
	}

	next := s.poster.Clone()
	switch list {
	case ListItems:
		next.Items = reorder.Move(next.Items, from, to)
	case ListLogos:
		next.Logos = reorder.Move(next.Logos, from, to)
	}
	s.poster = next
	return true, nil
}

// DragEnd finishes the gesture on list. The order reached so far stays.
func (s *Session) DragEnd(list List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.drags[list]
	if !ok {
		return ErrUnknownList
	}
	c.End()
	return nil
}

// DragState reports the gesture state of list.
func (s *Session) DragState(list List) (reorder.State, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.drags[list]
	if !ok {
		return reorder.Idle, -1, ErrUnknownList
	}
	st, i := c.State()
	return st, i, nil
}

func (s *Session) lenLocked(list List) int {
	if list == ListLogos {
		return len(s.poster.Logos)
	}
	return len(s.poster.Items)
}

func (s *Session) endDragsLocked() {
	for _, c := range s.drags {
		c.End()
	}
}
