//go:build integration

package tests

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"project-service/pkg/workbook"
)

func uploadWorkbook(t *testing.T, rows [][]string, dryRun bool) *http.Request {
	t.Helper()
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Projects")
	require.NoError(t, err)
	for _, values := range rows {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	var content bytes.Buffer
	require.NoError(t, file.Write(&content))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if dryRun {
		require.NoError(t, writer.WriteField("dry_run", "true"))
	}
	fw, err := writer.CreateFormFile("file", "projects.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(content.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/projects/import", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestImportExportRoundTrip(t *testing.T) {
	s := newIntegrationServer(t)
	rows := [][]string{
		{"Artisan ID", "Title", "Location", "Start Date", "Budget"},
		{"3", "Shop front", "Lille", "2024-06-01", "4200"},
		{"3", "Cellar", "", "", "800"},
		{"", "No artisan", "", "", "10"},
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, uploadWorkbook(t, rows, true))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, s, http.MethodGet, "/api/projects", "")
	assert.JSONEq(t, `[]`, w.Body.String())

	w = httptest.NewRecorder()
	s.Router.ServeHTTP(w, uploadWorkbook(t, rows, false))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data workbook.ImportSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Inserted)
	assert.Equal(t, 1, resp.Data.Errors)

	w = call(t, s, http.MethodPost, "/api/projects/1/updates", `{"progressPercent":35}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, s, http.MethodGet, "/api/projects/export?artisanId=3", "")
	require.Equal(t, http.StatusOK, w.Code)

	exported, err := xlsx.OpenBinary(w.Body.Bytes())
	require.NoError(t, err)
	projects := exported.Sheet[workbook.ProjectsSheet]
	require.NotNil(t, projects)
	assert.Equal(t, 3, projects.MaxRow)

	progress, err := projects.Cell(1, 9)
	require.NoError(t, err)
	assert.Equal(t, "35", progress.Value)
}
