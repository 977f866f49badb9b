package internal

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"project-service/internal/service"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error  string               `json:"error"`
	Code   string               `json:"code"`
	Fields []service.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func sendErrorResponse(w http.ResponseWriter, message, code string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *service.ValidationError
		nf   *service.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Code:   "VALIDATION_FAILED",
			Fields: verr.Fields,
		})
	case errors.As(err, &nf):
		sendErrorResponse(w, nf.Error(), "NOT_FOUND", http.StatusNotFound)
	default:
		s.Logger.ErrorContext(r.Context(), "request failed", "err", err, "path", r.URL.Path)
		sendErrorResponse(w, "internal server error", "STORE_ERROR", http.StatusInternalServerError)
	}
}

// decodeJSON decodes the request body into dst and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendErrorResponse(w, "invalid JSON: "+err.Error(), "INVALID_JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter and writes a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid path parameter",
			Code:  "VALIDATION_FAILED",
			Fields: []service.FieldError{{
				Field:   name,
				Rule:    "positive_integer",
				Message: "must be a positive integer",
			}},
		})
		return 0, false
	}
	return id, true
}

// artisanParam parses an artisan id URL parameter. Any int64 is accepted so
// every stored artisan id can be looked up.
func artisanParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid path parameter",
			Code:  "VALIDATION_FAILED",
			Fields: []service.FieldError{{
				Field:   name,
				Rule:    "integer",
				Message: "must be an integer",
			}},
		})
		return 0, false
	}
	return id, true
}
