package handlers

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"project-service/internal/models"
	"project-service/pkg/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ProjectLister is the read side of the project service used by exports.
type ProjectLister interface {
	workbook.UpdateSource
	ListAll(ctx context.Context) ([]models.Project, error)
	ListByArtisan(ctx context.Context, artisanID int64) ([]models.Project, error)
}

// ExportsHandler streams projects as an xlsx workbook
type ExportsHandler struct {
	Projects ProjectLister
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewExportsHandler creates a new exports handler
func NewExportsHandler(projects ProjectLister, logger *slog.Logger) *ExportsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportsHandler{Projects: projects, Logger: logger, Now: time.Now}
}

// DownloadExcel exports every project, or those of ?artisanId=, as a workbook.
func (h *ExportsHandler) DownloadExcel(w http.ResponseWriter, r *http.Request) {
	var (
		projects []models.Project
		err      error
	)
	if raw := r.URL.Query().Get("artisanId"); raw != "" {
		artisanID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "artisanId must be an integer")
			return
		}
		projects, err = h.Projects.ListByArtisan(r.Context(), artisanID)
	} else {
		projects, err = h.Projects.ListAll(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// the workbook is complete before any header is written
	var buf bytes.Buffer
	if err := workbook.ExportProjects(r.Context(), &buf, projects, h.Projects); err != nil {
		h.fail(w, r, err)
		return
	}

	name := fmt.Sprintf("projects-%s.xlsx", h.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.Logger.WarnContext(r.Context(), "export write failed", "err", err)
	}
}

func (h *ExportsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.Logger.ErrorContext(r.Context(), "project export failed", "err", err)
	writeError(w, http.StatusInternalServerError, "STORE_ERROR", "internal server error")
}
