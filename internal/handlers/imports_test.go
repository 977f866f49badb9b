package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"project-service/internal/service"
	"project-service/internal/store"
)

func newTestService() *service.ProjectService {
	mem := store.NewMemory()
	return service.NewProjectService(mem.Projects(), mem.Updates())
}

func projectWorkbook(t *testing.T, rows ...[]string) []byte {
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
	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))
	return buf.Bytes()
}

// uploadRequest builds a multipart import request; an empty filename omits the file part.
func uploadRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		fw, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/projects/import", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestImportsHandler_UploadExcel(t *testing.T) {
	valid := projectWorkbook(t,
		[]string{"Artisan ID", "Title", "Budget"},
		[]string{"4", "Terrace", "2000"},
		[]string{"4", "Fence", "350"},
	)

	t.Run("Rejects non-multipart content type", func(t *testing.T) {
		handler := NewImportsHandler(newTestService(), 0, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/projects/import", nil)
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		handler.UploadExcel(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "content-type must be multipart/form-data")
	})

	t.Run("Rejects missing file", func(t *testing.T) {
		handler := NewImportsHandler(newTestService(), 0, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, nil, "", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "file is required")
	})

	t.Run("Rejects non-xlsx file", func(t *testing.T) {
		handler := NewImportsHandler(newTestService(), 0, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, nil, "test.xls", []byte("fake excel content")))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "only .xlsx files are accepted")
	})

	t.Run("Rejects invalid max_errors", func(t *testing.T) {
		handler := NewImportsHandler(newTestService(), 0, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, map[string]string{"max_errors": "zero"}, "p.xlsx", valid))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "max_errors")
	})

	t.Run("Rejects oversized upload", func(t *testing.T) {
		handler := NewImportsHandler(newTestService(), 64, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, nil, "p.xlsx", valid))

		assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
		assert.Less(t, w.Code, http.StatusInternalServerError)
	})

	t.Run("Reports unreadable workbook", func(t *testing.T) {
		handler := NewImportsHandler(newTestService(), 0, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, nil, "test.xlsx", []byte("fake excel content")))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "IMPORT_FAILED")
	})

	t.Run("Imports projects", func(t *testing.T) {
		svc := newTestService()
		handler := NewImportsHandler(svc, 0, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, nil, "projects.xlsx", valid))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Data struct {
				Inserted int  `json:"inserted"`
				DryRun   bool `json:"dry_run"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Data.Inserted)
		assert.False(t, resp.Data.DryRun)

		projects, err := svc.ListByArtisan(context.Background(), 4)
		require.NoError(t, err)
		assert.Len(t, projects, 2)
	})

	t.Run("Dry run leaves store untouched", func(t *testing.T) {
		svc := newTestService()
		handler := NewImportsHandler(svc, 0, nil)

		w := httptest.NewRecorder()
		handler.UploadExcel(w, uploadRequest(t, map[string]string{"dry_run": "true"}, "projects.xlsx", valid))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"dry_run":true`)

		projects, err := svc.ListAll(context.Background())
		require.NoError(t, err)
		assert.Empty(t, projects)
	})
}

func TestIsXLSX(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected bool
	}{
		{"Valid xlsx", "test.xlsx", true},
		{"Valid xlsx uppercase", "TEST.XLSX", true},
		{"Valid xlsx mixed case", "Test.XlSx", true},
		{"Invalid xls", "test.xls", false},
		{"Invalid xlsm", "test.xlsm", false},
		{"Invalid txt", "test.txt", false},
		{"No extension", "test", false},
		{"Empty filename", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := &multipart.FileHeader{
				Filename: tt.filename,
			}
			assert.Equal(t, tt.expected, isXLSX(header))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, http.StatusOK, map[string]any{"message": "test", "count": 42})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "test", response["message"])
	assert.Equal(t, float64(42), response["count"])
}
