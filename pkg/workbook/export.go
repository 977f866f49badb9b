package workbook

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tealeg/xlsx/v3"

	"project-service/internal/models"
)

// Sheet names of an exported workbook.
const (
	ProjectsSheet = "Projects"
	UpdatesSheet  = "Updates"
)

// UpdateSource supplies the progress history of exported projects.
type UpdateSource interface {
	UpdateHistory(ctx context.Context, projectID int64) ([]models.ChantierUpdate, error)
	LatestUpdates(ctx context.Context, projectIDs []int64) (map[int64]models.ChantierUpdate, error)
}

var projectHeader = []string{
	"ID", "Artisan ID", "Title", "Description", "Location",
	"Start Date", "End Date", "Budget", "Status", "Progress (%)",
}

var updateHeader = []string{"Project ID", "Update ID", "Progress (%)", "Note", "Created At"}

// ExportProjects writes projects and their updates as an xlsx workbook.
// The Projects sheet carries the latest progress of each project; the
// Updates sheet lists every update, newest first within a project.
func ExportProjects(ctx context.Context, w io.Writer, projects []models.Project, src UpdateSource) error {
	ids := make([]int64, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	latest, err := src.LatestUpdates(ctx, ids)
	if err != nil {
		return fmt.Errorf("load latest updates: %w", err)
	}

	file := xlsx.NewFile()
	projectSheet, err := file.AddSheet(ProjectsSheet)
	if err != nil {
		return err
	}
	updateSheet, err := file.AddSheet(UpdatesSheet)
	if err != nil {
		return err
	}

	addHeader(projectSheet, projectHeader)
	addHeader(updateSheet, updateHeader)

	for _, p := range projects {
		row := projectSheet.AddRow()
		row.AddCell().SetInt64(p.ID)
		row.AddCell().SetInt64(p.ArtisanID)
		row.AddCell().SetString(p.Title)
		row.AddCell().SetString(deref(p.Description))
		row.AddCell().SetString(deref(p.Location))
		row.AddCell().SetString(dateText(p.StartDate))
		row.AddCell().SetString(dateText(p.EndDate))
		if p.Budget != nil {
			row.AddCell().SetFloat(*p.Budget)
		} else {
			row.AddCell()
		}
		row.AddCell().SetString(string(p.Status))
		if u, ok := latest[p.ID]; ok {
			row.AddCell().SetInt(u.ProgressPercent)
		} else {
			row.AddCell()
		}

		updates, err := src.UpdateHistory(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("load updates of project %d: %w", p.ID, err)
		}
		for _, u := range updates {
			urow := updateSheet.AddRow()
			urow.AddCell().SetInt64(u.ProjectID)
			urow.AddCell().SetInt64(u.ID)
			urow.AddCell().SetInt(u.ProgressPercent)
			urow.AddCell().SetString(deref(u.Note))
			urow.AddCell().SetString(u.CreatedAt.UTC().Format(time.RFC3339))
		}
	}

	return file.Write(w)
}

func addHeader(sheet *xlsx.Sheet, names []string) {
	row := sheet.AddRow()
	for _, name := range names {
		row.AddCell().SetString(name)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dateText(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
