package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"postergen/internal/export"
	"postergen/internal/layout"
	appLog "postergen/internal/log"
	"postergen/internal/media"
	"postergen/internal/session"
)

// maxDocumentBytes bounds JSON and calendar request bodies. Documents embed
// images, so this is a multiple of the upload limit.
const maxDocumentBytes = 4

func (s *Server) documentLimit() int64 {
	return s.cfg.Uploads.MaxBytes * maxDocumentBytes
}

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, media.ErrTooLarge
		}
		return nil, err
	}
	return data, nil
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	data, err := readBody(w, r, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// ---------- Status ----------

type statusResponse struct {
	Exporting       bool    `json:"exporting"`
	Generating      bool    `json:"generating"`
	ImageGeneration bool    `json:"image_generation"`
	Zoom            float64 `json:"zoom"`
	ZoomPercent     int     `json:"zoom_percent"`
	Items           int     `json:"items"`
	Logos           int     `json:"logos"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	p := s.sess.Snapshot()
	z := s.sess.Zoom()
	writeJSON(w, http.StatusOK, statusResponse{
		Exporting:       s.sess.Exporting(),
		Generating:      s.sess.Generating(),
		ImageGeneration: s.cfg.ImageGeneration.Enabled(),
		Zoom:            z,
		ZoomPercent:     layout.ZoomPercent(z),
		Items:           len(p.Items),
		Logos:           len(p.Logos),
	})
}

// ---------- Preview ----------

// handlePoster renders the live preview. ?zoom= overrides the session zoom
// for this response only.
func (s *Server) handlePoster(w http.ResponseWriter, r *http.Request) {
	v, err := s.sess.View()
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	zoom := s.sess.Zoom()
	if q := r.URL.Query().Get("zoom"); q != "" {
		if z, perr := strconv.ParseFloat(q, 64); perr == nil {
			zoom = z
		}
	}

	var buf bytes.Buffer
	if err := layout.RenderHTML(&buf, v, layout.RenderOptions{Zoom: zoom}); err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// ---------- Document ----------

func (s *Server) handleGetPoster(w http.ResponseWriter, _ *http.Request) {
	data, err := s.sess.Export()
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(data)
}

// handlePutPoster imports a whole document, merged over defaults.
func (s *Server) handlePutPoster(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r, s.documentLimit())
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	if err := s.sess.Import(data); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	s.handleGetPoster(w, r)
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r, s.documentLimit())
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	if err := s.sess.SetField(chi.URLParam(r, "name"), data); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- Programme ----------

func (s *Server) handleAddItem(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusCreated, s.sess.AddEntry())
}

type updateItemRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(w, r, s.documentLimit(), &req); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	if err := s.sess.UpdateEntry(chi.URLParam(r, "id"), req.Field, req.Value); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.RemoveEntry(chi.URLParam(r, "id")); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type icsRequest struct {
	URL  string `json:"url"`
	ICS  string `json:"ics"`
	Date string `json:"date"` // YYYY-MM-DD; empty picks the first day
}

type icsResponse struct {
	Imported int `json:"imported"`
}

// handleImportICS replaces the programme from a calendar. A JSON body names
// a URL or carries the calendar inline; any other content type is the
// calendar itself, with the day in ?date=.
func (s *Server) handleImportICS(w http.ResponseWriter, r *http.Request) {
	var req icsRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := decodeJSON(w, r, s.documentLimit(), &req); err != nil {
			fail(w, err, http.StatusBadRequest)
			return
		}
	} else {
		body, err := readBody(w, r, s.documentLimit())
		if err != nil {
			fail(w, err, http.StatusBadRequest)
			return
		}
		req.ICS = string(body)
		req.Date = r.URL.Query().Get("date")
	}

	var day time.Time
	if req.Date != "" {
		d, err := time.ParseInLocation(time.DateOnly, req.Date, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = d
	}

	n, err := s.sess.ImportICS(r.Context(), session.ICSRequest{
		Body: []byte(req.ICS),
		URL:  strings.TrimSpace(req.URL),
		Day:  day,
	})
	if err != nil {
		fail(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, icsResponse{Imported: n})
}

// ---------- Drag reorder ----------

type dragRequest struct {
	Index int `json:"index"`
}

type dragResponse struct {
	State   string `json:"state"`
	Index   int    `json:"index"`
	Changed bool   `json:"changed,omitempty"`
}

func (s *Server) dragList(w http.ResponseWriter, r *http.Request) (session.List, bool) {
	list, err := session.ParseList(chi.URLParam(r, "list"))
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return "", false
	}
	return list, true
}

func (s *Server) writeDragState(w http.ResponseWriter, list session.List, changed bool) {
	st, i, err := s.sess.DragState(list)
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, dragResponse{State: st.String(), Index: i, Changed: changed})
}

func (s *Server) handleDragState(w http.ResponseWriter, r *http.Request) {
	list, ok := s.dragList(w, r)
	if !ok {
		return
	}
	s.writeDragState(w, list, false)
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	list, ok := s.dragList(w, r)
	if !ok {
		return
	}
	var req dragRequest
	if err := decodeJSON(w, r, 1<<10, &req); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	if err := s.sess.DragStart(list, req.Index); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	s.writeDragState(w, list, false)
}

func (s *Server) handleDragHover(w http.ResponseWriter, r *http.Request) {
	list, ok := s.dragList(w, r)
	if !ok {
		return
	}
	var req dragRequest
	if err := decodeJSON(w, r, 1<<10, &req); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	changed, err := s.sess.DragHover(list, req.Index)
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	s.writeDragState(w, list, changed)
}

func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	list, ok := s.dragList(w, r)
	if !ok {
		return
	}
	if err := s.sess.DragEnd(list); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	s.writeDragState(w, list, false)
}

// ---------- Images ----------

// handleUpload takes a multipart "file" field and stores it in the slot
// named by {kind}.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind, ok := media.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown upload kind")
		return
	}

	limit := s.cfg.Uploads.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<10)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, media.ErrTooLarge, http.StatusBadRequest)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := media.ReadLimited(file, limit)
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	if err := s.sess.Upload(kind, data); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteLogo(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid logo index")
		return
	}
	if err := s.sess.RemoveLogo(i); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type qrRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleGenerateQR(w http.ResponseWriter, r *http.Request) {
	var req qrRequest
	if err := decodeJSON(w, r, 4<<10, &req); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	if err := s.sess.GenerateQRCode(req.Text); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearQR(w http.ResponseWriter, _ *http.Request) {
	s.sess.ClearQRCode()
	w.WriteHeader(http.StatusNoContent)
}

// handleGenerateBackground blocks until the generator answers. The current
// background is kept when generation fails.
func (s *Server) handleGenerateBackground(w http.ResponseWriter, r *http.Request) {
	if err := s.sess.GenerateBackground(r.Context()); err != nil {
		fail(w, err, http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type backgroundLink struct {
	URL string `json:"url"`
}

// handleDownloadBackground sends the embedded background as a file. A
// remote background is not fetched or redirected to; its URL is returned as
// JSON for the client to open.
func (s *Server) handleDownloadBackground(w http.ResponseWriter, _ *http.Request) {
	ref := s.sess.Snapshot().BackgroundURL
	if ref == "" {
		writeError(w, http.StatusNotFound, "no background image")
		return
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		writeJSON(w, http.StatusOK, backgroundLink{URL: ref})
		return
	}
	data, mimeType, err := media.DecodeDataURL(ref)
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	writeAttachment(w, mimeType, export.BackgroundFilename(time.Now()), data)
}

// ---------- Zoom ----------

type zoomRequest struct {
	Zoom *float64 `json:"zoom"`
	Step string   `json:"step"` // "in" or "out"
}

type zoomResponse struct {
	Zoom    float64 `json:"zoom"`
	Percent int     `json:"percent"`
}

func writeZoom(w http.ResponseWriter, z float64) {
	writeJSON(w, http.StatusOK, zoomResponse{Zoom: z, Percent: layout.ZoomPercent(z)})
}

func (s *Server) handleGetZoom(w http.ResponseWriter, _ *http.Request) {
	writeZoom(w, s.sess.Zoom())
}

func (s *Server) handleSetZoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	if err := decodeJSON(w, r, 1<<10, &req); err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	switch {
	case req.Step == "in":
		writeZoom(w, s.sess.ZoomIn())
	case req.Step == "out":
		writeZoom(w, s.sess.ZoomOut())
	case req.Zoom != nil:
		writeZoom(w, s.sess.SetZoom(*req.Zoom))
	default:
		writeError(w, http.StatusBadRequest, `expected "zoom" or "step"`)
	}
}

// ---------- Export ----------

func (s *Server) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	data, err := s.sess.ExportPNG(r.Context())
	if err != nil {
		fail(w, err, http.StatusBadGateway)
		return
	}
	writeAttachment(w, "image/png", export.FilenamePNG, data)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	data, err := s.sess.ExportPDF(r.Context())
	if err != nil {
		fail(w, err, http.StatusBadGateway)
		return
	}
	writeAttachment(w, "application/pdf", export.FilenamePDF, data)
}

func (s *Server) handleExportConfig(w http.ResponseWriter, _ *http.Request) {
	data, err := s.sess.Export()
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	appLog.Info("configuration exported", "bytes", len(data))
	writeAttachment(w, "application/json", export.FilenameConfig, data)
}
