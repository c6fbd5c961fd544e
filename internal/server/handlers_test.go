package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bergsoft/invoiceflow/internal/export"
	"github.com/bergsoft/invoiceflow/internal/models"
	"github.com/bergsoft/invoiceflow/internal/pipeline"
	"github.com/bergsoft/invoiceflow/internal/repository"
	"github.com/bergsoft/invoiceflow/internal/storage"
	"github.com/bergsoft/invoiceflow/pkg/database"
)

type stubProcessor struct {
	result *pipeline.Result
	err    error
}

func (s stubProcessor) ProcessUpload(ctx context.Context, documentBase64 string) (*pipeline.Result, error) {
	return s.result, s.err
}

type stubAnalyzer struct {
	text string
	err  error
}

func (s stubAnalyzer) Analyze(ctx context.Context, documentBase64 string) (string, error) {
	return s.text, s.err
}

type stubExtractor struct {
	result *models.ExtractionResult
	err    error
}

func (s stubExtractor) Extract(ctx context.Context, ocrText string) (*models.ExtractionResult, error) {
	return s.result, s.err
}

type stubRenderer struct {
	data []byte
	err  error
}

func (s stubRenderer) FirstPagePNG(data []byte) ([]byte, error) {
	return s.data, s.err
}

type testEnv struct {
	router    *gin.Engine
	repo      *repository.InvoiceRepository
	documents *storage.DocumentStore
}

func newTestEnv(t *testing.T, processor Processor, analyzer Analyzer, extractor Extractor) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_create_invoice_tables.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	repo := repository.NewInvoiceRepository(db, log)
	documents := storage.NewDocumentStore(t.TempDir(), log)

	h := NewHandlers(repo, processor, analyzer, extractor,
		export.NewExporter(log), documents, stubRenderer{data: []byte("png")}, log)

	return testEnv{
		router:    NewRouter(h, log),
		repo:      repo,
		documents: documents,
	}
}

func (e testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e testEnv) seedInvoice(t *testing.T) int64 {
	t.Helper()
	id, err := e.repo.CreateWithLines(context.Background(),
		&models.InvoiceHeader{
			InvoiceNumber: "INV-1", VendorName: "Acme",
			InvoiceDate: "2024-03-15", TotalAmount: 100, Status: "new",
		},
		[]models.InvoiceLine{
			{LineNo: 1, Description: "Widget", Qty: 1, Price: 100, LineAmount: 100},
		})
	require.NoError(t, err)
	return id
}

func TestListInvoicesEmpty(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})

	w := env.do(http.MethodGet, "/invoices", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetInvoiceNotFound(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})

	w := env.do(http.MethodGet, "/invoices/123", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetInvoiceInvalidID(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})

	w := env.do(http.MethodGet, "/invoices/not-a-number", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetInvoiceDetail(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})
	id := env.seedInvoice(t)

	w := env.do(http.MethodGet, "/invoices/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var invoice models.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invoice))
	assert.Equal(t, "INV-1", invoice.Header.InvoiceNumber)
	require.Len(t, invoice.Lines, 1)
	assert.Equal(t, "Widget", invoice.Lines[0].Description)
}

func TestUpdateInvoice(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})
	id := env.seedInvoice(t)

	w := env.do(http.MethodPut, "/invoices/"+itoa(id), map[string]interface{}{
		"header": models.InvoiceHeader{
			InvoiceNumber: "INV-1", VendorName: "Acme International",
			InvoiceDate: "2024-03-15", TotalAmount: 150, Status: "new",
		},
		"lines": []models.InvoiceLine{
			{LineNo: 1, Description: "Widget Deluxe", Qty: 1, Price: 150, LineAmount: 150},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	invoice, err := env.repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Acme International", invoice.Header.VendorName)
	assert.Equal(t, "Widget Deluxe", invoice.Lines[0].Description)
}

func TestUpdateInvoiceNotFound(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})

	w := env.do(http.MethodPut, "/invoices/999", map[string]interface{}{
		"header": models.InvoiceHeader{},
		"lines":  []models.InvoiceLine{},
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteInvoice(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})
	id := env.seedInvoice(t)

	w := env.do(http.MethodDelete, "/invoices/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/invoices/"+itoa(id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetStatusFlow(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})
	id := env.seedInvoice(t)

	w := env.do(http.MethodPost, "/invoices/"+itoa(id)+"/status", map[string]string{"status": "ready"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/invoices/"+itoa(id)+"/status", map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusOK, w.Code)

	// cancelled is terminal
	w = env.do(http.MethodPost, "/invoices/"+itoa(id)+"/status", map[string]string{"status": "sent"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})
	id := env.seedInvoice(t)

	w := env.do(http.MethodPost, "/invoices/"+itoa(id)+"/status", map[string]string{"status": "archived"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportInvoices(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})
	env.seedInvoice(t)

	w := env.do(http.MethodGet, "/invoices/export", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())
}

func TestGetDocumentNotFound(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})
	id := env.seedInvoice(t)

	w := env.do(http.MethodGet, "/invoices/"+itoa(id)+"/document", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDocumentAndPreview(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})
	id := env.seedInvoice(t)

	_, err := env.documents.SaveDocument(id, []byte("%PDF-1.4 stored upload"))
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/invoices/"+itoa(id)+"/document", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = env.do(http.MethodGet, "/invoices/"+itoa(id)+"/preview", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "png", w.Body.String())
}

func TestExtractDocumentEndpoint(t *testing.T) {
	env := newTestEnv(t, stubProcessor{},
		stubAnalyzer{text: "Header at row 0 column 0 is: Invoice No."}, stubExtractor{})

	w := env.do(http.MethodPost, "/openai/extract", map[string]string{"document": "ZG9j"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"body": "Header at row 0 column 0 is: Invoice No."}`, w.Body.String())
}

func TestExtractDocumentUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, stubProcessor{},
		stubAnalyzer{err: errors.New("ocr down")}, stubExtractor{})

	w := env.do(http.MethodPost, "/openai/extract", map[string]string{"document": "ZG9j"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestChatEndpoint(t *testing.T) {
	number := "12345"
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{
		result: &models.ExtractionResult{
			Header: models.ExtractedHeader{InvoiceNumber: &number},
			Lines:  []models.ExtractedLine{},
		},
	})

	w := env.do(http.MethodPost, "/openai/chat", map[string]string{"request": "scan text"})

	require.Equal(t, http.StatusOK, w.Code)
	var result models.ExtractionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotNil(t, result.Header.InvoiceNumber)
	assert.Equal(t, "12345", *result.Header.InvoiceNumber)
}

func TestProcessDocumentEndpoint(t *testing.T) {
	env := newTestEnv(t, stubProcessor{result: &pipeline.Result{HeaderID: 9}},
		stubAnalyzer{}, stubExtractor{})

	w := env.do(http.MethodPost, "/openai/getJson", map[string]string{"document": "ZG9j"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true, "id": 9}`, w.Body.String())
}

func TestProcessDocumentFailure(t *testing.T) {
	env := newTestEnv(t, stubProcessor{err: errors.New("pipeline failed")},
		stubAnalyzer{}, stubExtractor{})

	w := env.do(http.MethodPost, "/openai/getJson", map[string]string{"document": "ZG9j"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestProcessDocumentMissingBody(t *testing.T) {
	env := newTestEnv(t, stubProcessor{}, stubAnalyzer{}, stubExtractor{})

	w := env.do(http.MethodPost, "/openai/getJson", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
