package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"project-service/pkg/workbook"
)

// ImportsHandler handles xlsx project imports
type ImportsHandler struct {
	Projects workbook.ProjectCreator
	MaxBytes int64
	Logger   *slog.Logger
}

// NewImportsHandler creates a new imports handler
func NewImportsHandler(projects workbook.ProjectCreator, maxBytes int64, logger *slog.Logger) *ImportsHandler {
	if maxBytes <= 0 {
		maxBytes = 20 << 20 // 20 MB
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportsHandler{
		Projects: projects,
		MaxBytes: maxBytes,
		Logger:   logger,
	}
}

// UploadExcel handles workbook uploads and creates one project per data row
func (h *ImportsHandler) UploadExcel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)

	if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "content-type must be multipart/form-data")
		return
	}

	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "INVALID_REQUEST", "upload exceeds "+strconv.FormatInt(h.MaxBytes, 10)+" bytes")
			return
		}
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid multipart form: "+err.Error())
		return
	}

	dryRun := r.FormValue("dry_run") == "true"
	maxErrors := 50
	if v := r.FormValue("max_errors"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "max_errors must be a positive integer")
			return
		}
		maxErrors = n
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "file is required: "+err.Error())
		return
	}
	defer file.Close()

	if !isXLSX(header) {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "only .xlsx files are accepted")
		return
	}

	sum, impErr := workbook.ImportProjects(r.Context(), h.Projects, file, workbook.ImportOptions{
		DryRun:    dryRun,
		MaxErrors: maxErrors,
	})
	if impErr != nil {
		h.Logger.WarnContext(r.Context(), "project import failed", "file", header.Filename, "err", impErr)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "IMPORT_FAILED",
			"details": impErr.Error(),
			"data":    sum,
		})
		return
	}

	h.Logger.InfoContext(r.Context(), "projects imported",
		"file", header.Filename, "inserted", sum.Inserted, "errors", sum.Errors, "dry_run", sum.DryRun)
	writeJSON(w, http.StatusOK, map[string]any{
		"data": sum,
		"meta": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// isXLSX checks if the uploaded file is an Excel .xlsx file
func isXLSX(h *multipart.FileHeader) bool {
	return strings.HasSuffix(strings.ToLower(h.Filename), ".xlsx")
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}
