package web

import (
	"errors"
	"net/http"

	"postergen/internal/export"
	"postergen/internal/ics"
	"postergen/internal/imagegen"
	"postergen/internal/layout"
	appLog "postergen/internal/log"
	"postergen/internal/media"
	"postergen/internal/poster"
	"postergen/internal/reorder"
	"postergen/internal/session"
)

// statusFor maps domain errors to HTTP status codes. Unrecognized errors
// get fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, poster.ErrParse),
		errors.Is(err, poster.ErrUnknownField),
		errors.Is(err, reorder.ErrOutOfRange),
		errors.Is(err, session.ErrUnknownList),
		errors.Is(err, ics.ErrEmpty),
		errors.Is(err, ics.ErrMalformed),
		errors.Is(err, ics.ErrInvalidURL),
		errors.Is(err, media.ErrUnsupported),
		errors.Is(err, layout.ErrMissingID):
		return http.StatusBadRequest
	case errors.Is(err, poster.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, reorder.ErrDragActive),
		errors.Is(err, reorder.ErrNotDragging):
		return http.StatusConflict
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, session.ErrNoSessions):
		return http.StatusUnprocessableEntity
	case errors.Is(err, imagegen.ErrDisabled),
		errors.Is(err, export.ErrNoBackend):
		return http.StatusServiceUnavailable
	}
	return fallback
}

// fail writes err as a JSON error with the mapped status.
func fail(w http.ResponseWriter, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		appLog.Error("request failed", err, "status", status)
	}
	writeError(w, status, err.Error())
}
