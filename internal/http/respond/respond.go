// Package respond writes JSON bodies and maps domain errors to HTTP status
// codes for every handler package.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/booking/lock"
	favdomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/favorite/domain"
	poidomain "github.com/iOS-Project-Lab2025/TravelinBackend/internal/poi/domain"
	"github.com/iOS-Project-Lab2025/TravelinBackend/internal/validate"
)

// Page is the envelope of every paginated response.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Limit      int `json:"limit"`
	Offset     int `json:"offset"`
}

// NewPage guarantees a non-nil items slice so empty pages encode as [].
func NewPage[T any](items []T, total int, page poidomain.Page) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, TotalCount: total, Limit: page.Limit, Offset: page.Offset}
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes a bare error body.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// Error picks the status for err. Unexpected errors are logged and hidden
// behind a generic message.
func Error(w http.ResponseWriter, logger *zap.Logger, err error) {
	var fields validate.Errors
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &fields):
		JSON(w, http.StatusBadRequest, errorBody{Error: validate.ErrInvalid.Error(), Fields: fields})
	case errors.As(err, &conflict):
		JSON(w, http.StatusConflict, map[string]any{"error": conflict.Error(), "conflict": conflict.Conflict})
	case errors.Is(err, domain.ErrInvalidDateRange), errors.Is(err, domain.ErrStartInPast):
		Message(w, http.StatusBadRequest, errorText(err))
	case errors.Is(err, domain.ErrIdempotencyReuse):
		Message(w, http.StatusUnprocessableEntity, domain.ErrIdempotencyReuse.Error())
	case errors.Is(err, poidomain.ErrNotFound):
		Message(w, http.StatusNotFound, poidomain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrNotFound):
		Message(w, http.StatusNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, favdomain.ErrNotFound):
		Message(w, http.StatusNotFound, favdomain.ErrNotFound.Error())
	case errors.Is(err, lock.ErrTimeout):
		w.Header().Set("Retry-After", "1")
		Message(w, http.StatusServiceUnavailable, "poi is busy, retry later")
	default:
		if logger != nil {
			logger.Error("request failed", zap.Error(err))
		}
		Message(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func errorText(err error) string {
	for _, sentinel := range []error{domain.ErrInvalidDateRange, domain.ErrStartInPast} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
