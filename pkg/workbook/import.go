package workbook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tealeg/xlsx/v3"

	"project-service/internal/models"
)

// ProjectCreator is the part of the project service the importer drives.
type ProjectCreator interface {
	ValidateCreate(req models.CreateProjectRequest) error
	Create(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error)
}

// ImportOptions defines the configuration for workbook imports
type ImportOptions struct {
	DryRun    bool
	MaxErrors int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// ErrNoProjectSheet is returned when no sheet carries a Title header.
var ErrNoProjectSheet = errors.New("workbook has no sheet with a Title column")

// maxSamples bounds the error samples kept per sheet.
const maxSamples = 20

// column keys
const (
	colArtisan     = "artisan"
	colTitle       = "title"
	colDescription = "description"
	colLocation    = "location"
	colStart       = "start"
	colEnd         = "end"
	colBudget      = "budget"
)

// headerAliases maps normalised header text to a column key.
var headerAliases = map[string]string{
	"artisan":      colArtisan,
	"artisan id":   colArtisan,
	"artisanid":    colArtisan,
	"title":        colTitle,
	"project":      colTitle,
	"description":  colDescription,
	"location":     colLocation,
	"site":         colLocation,
	"start":        colStart,
	"start date":   colStart,
	"startdate":    colStart,
	"end":          colEnd,
	"end date":     colEnd,
	"enddate":      colEnd,
	"budget":       colBudget,
	"budget (eur)": colBudget,
}

// ImportProjects reads an xlsx workbook and creates one project per data row
// of the first sheet that has a Title header.
func ImportProjects(ctx context.Context, creator ProjectCreator, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}
	if opts.MaxErrors <= 0 {
		opts.MaxErrors = 50
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read workbook: %w", err)
	}
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("failed to open workbook: %w", err)
	}

	for _, sheet := range file.Sheets {
		columns := readHeader(sheet)
		if _, ok := columns[colTitle]; !ok {
			continue
		}

		sheetSummary, err := importSheet(ctx, creator, sheet, columns, opts, file.Date1904)
		summary.Sheets = append(summary.Sheets, sheetSummary)
		summary.Inserted += sheetSummary.Inserted
		summary.Skipped += sheetSummary.Skipped
		summary.Errors += sheetSummary.Errors
		return summary, err
	}

	return summary, ErrNoProjectSheet
}

func readHeader(sheet *xlsx.Sheet) map[string]int {
	columns := make(map[string]int)
	if sheet.MaxRow == 0 {
		return columns
	}
	for col := 0; col < sheet.MaxCol; col++ {
		key, ok := headerAliases[normaliseHeader(cellText(sheet, 0, col))]
		if !ok {
			continue
		}
		if _, seen := columns[key]; !seen {
			columns[key] = col
		}
	}
	return columns
}

func importSheet(ctx context.Context, creator ProjectCreator, sheet *xlsx.Sheet, columns map[string]int, opts ImportOptions, date1904 bool) (SheetSummary, error) {
	summary := SheetSummary{Name: sheet.Name}

	fail := func(row int, err error) {
		summary.Errors++
		if len(summary.Samples) < maxSamples {
			summary.Samples = append(summary.Samples, RowError{Sheet: sheet.Name, Row: row + 1, Message: err.Error()})
		}
	}

	for row := 1; row < sheet.MaxRow; row++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		values := make(map[string]string, len(columns))
		for key, col := range columns {
			if v := cellText(sheet, row, col); v != "" {
				values[key] = v
			}
		}
		if len(values) == 0 {
			summary.Skipped++
			continue
		}

		req, err := buildRequest(sheet, row, columns, values, date1904)
		if err != nil {
			fail(row, err)
		} else if err := creator.ValidateCreate(req); err != nil {
			fail(row, err)
		} else if !opts.DryRun {
			if _, err := creator.Create(ctx, req); err != nil {
				fail(row, err)
			} else {
				summary.Inserted++
			}
		} else {
			summary.Inserted++
		}

		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
		}
	}

	return summary, nil
}

func buildRequest(sheet *xlsx.Sheet, row int, columns map[string]int, values map[string]string, date1904 bool) (models.CreateProjectRequest, error) {
	req := models.CreateProjectRequest{Title: values[colTitle]}

	if s, ok := values[colArtisan]; ok {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return req, fmt.Errorf("artisan id %q is not an integer", s)
		}
		req.ArtisanID = &id
	}
	if s, ok := values[colDescription]; ok {
		req.Description = &s
	}
	if s, ok := values[colLocation]; ok {
		req.Location = &s
	}
	if s, ok := values[colBudget]; ok {
		b, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return req, fmt.Errorf("budget %q is not a number", s)
		}
		req.Budget = &b
	}

	dates := []struct {
		key string
		dst **models.Date
	}{
		{colStart, &req.StartDate},
		{colEnd, &req.EndDate},
	}
	for _, date := range dates {
		s, ok := values[date.key]
		if !ok {
			continue
		}
		d, err := parseDateCell(sheet, row, columns[date.key], s, date1904)
		if err != nil {
			return req, err
		}
		*date.dst = &d
	}

	return req, nil
}

// parseDateCell accepts ISO dates and Excel serial dates.
func parseDateCell(sheet *xlsx.Sheet, row, col int, text string, date1904 bool) (models.Date, error) {
	if d, err := models.ParseDate(text); err == nil {
		return d, nil
	}
	if cell, err := sheet.Cell(row, col); err == nil && cell != nil {
		if f, err := cell.Float(); err == nil {
			t := xlsx.TimeFromExcelTime(f, date1904)
			return models.NewDate(t.Year(), t.Month(), t.Day()), nil
		}
	}
	return models.Date{}, fmt.Errorf("date %q must use the %s layout", text, models.DateLayout)
}

func cellText(sheet *xlsx.Sheet, row, col int) string {
	cell, err := sheet.Cell(row, col)
	if err != nil || cell == nil {
		return ""
	}
	return strings.TrimSpace(cell.Value)
}

func normaliseHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
