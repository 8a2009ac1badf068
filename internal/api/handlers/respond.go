package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dom/todo-tracker/internal/domain"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// timestampLayout is ISO-8601 with the microsecond precision the stores keep.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

type ErrorResponse struct {
	Message string              `json:"message"`
	Kind    string              `json:"kind"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its HTTP status and error kind.
// Unexpected errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Message: verr.Error(),
			Kind:    "validation",
			Errors:  verr.Fields,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Message: "Resource not found", Kind: "not_found"})
	case errors.Is(err, domain.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "Unauthenticated.", Kind: "unauthenticated"})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Message: "Invalid credentials", Kind: "unauthenticated"})
	case errors.Is(err, domain.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Message: "The email has already been taken.",
			Kind:    "conflict",
			Errors:  map[string][]string{"email": {"The email has already been taken."}},
		})
	default:
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Message: "Internal server error", Kind: "internal"})
	}
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Message: message, Kind: "not_found"})
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched; trailing data after the first value is rejected. A value of the wrong type for a field is reported as a
// validation error on that field.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		// The body must hold exactly one JSON value.
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return errBadRequest
		}
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		verr := domain.NewValidationError()
		verr.Add(typeErr.Field, "The "+typeErr.Field+" field has an invalid type.")
		return verr
	}
	return errBadRequest
}

var errBadRequest = errors.New("invalid request body")

func writeDecodeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, errBadRequest) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: "Invalid request body", Kind: "bad_request"})
		return
	}
	writeError(w, r, logger, err)
}
