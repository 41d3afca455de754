package http

import (
	"errors"
	"net/http"

	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

var validationErrors = []error{
	core.ErrEmptyID,
	core.ErrInvalidAmount,
	core.ErrNegativeAmount,
	core.ErrInvalidDate,
	core.ErrInvalidStrategy,
	core.ErrInvalidGoalType,
	core.ErrInvalidKind,
	core.ErrInvalidBucket,
	core.ErrEmptyLabel,
	core.ErrEmptyDescription,
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrEmptyBatch):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrIDConflict):
		return http.StatusConflict
	}
	var recErr *services.RecordError
	if errors.As(err, &recErr) {
		return http.StatusUnprocessableEntity
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// writeError writes err with its mapped status. Internal errors are logged
// and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		// The request logger already carries the request ID.
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, log.NewFields().WithPath(r.URL.Path))
		InternalServerError("internal error").Write(w)
		return
	}
	ErrorResponse(status, err.Error()).Write(w)
}
