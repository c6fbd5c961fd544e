package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bergsoft/invoiceflow/internal/export"
	"github.com/bergsoft/invoiceflow/internal/models"
	"github.com/bergsoft/invoiceflow/internal/pipeline"
	"github.com/bergsoft/invoiceflow/internal/repository"
	"github.com/bergsoft/invoiceflow/internal/status"
	"github.com/bergsoft/invoiceflow/internal/storage"
)

// InvoiceStore is the CRUD surface the handlers need from the store.
type InvoiceStore interface {
	List(ctx context.Context) ([]models.InvoiceHeader, error)
	ListWithLines(ctx context.Context) ([]models.Invoice, error)
	Get(ctx context.Context, id int64) (*models.Invoice, error)
	Update(ctx context.Context, id int64, header *models.InvoiceHeader, lines []models.InvoiceLine) error
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, to status.Status) error
}

// Processor runs the full scan-extract-persist pipeline.
type Processor interface {
	ProcessUpload(ctx context.Context, documentBase64 string) (*pipeline.Result, error)
}

// Analyzer exposes the OCR step on its own for the extract endpoint.
type Analyzer interface {
	Analyze(ctx context.Context, documentBase64 string) (string, error)
}

// Extractor exposes the LLM step on its own for the chat endpoint.
type Extractor interface {
	Extract(ctx context.Context, ocrText string) (*models.ExtractionResult, error)
}

// DocumentLoader reads back stored uploads.
type DocumentLoader interface {
	LoadDocument(id int64) ([]byte, string, error)
}

// PreviewRenderer renders a PNG preview from PDF bytes.
type PreviewRenderer interface {
	FirstPagePNG(data []byte) ([]byte, error)
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	store     InvoiceStore
	processor Processor
	analyzer  Analyzer
	extractor Extractor
	exporter  *export.Exporter
	documents DocumentLoader
	previews  PreviewRenderer
	logger    *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	store InvoiceStore,
	processor Processor,
	analyzer Analyzer,
	extractor Extractor,
	exporter *export.Exporter,
	documents DocumentLoader,
	previews PreviewRenderer,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		store:     store,
		processor: processor,
		analyzer:  analyzer,
		extractor: extractor,
		exporter:  exporter,
		documents: documents,
		previews:  previews,
		logger:    logger,
	}
}

type updateInvoiceRequest struct {
	Header models.InvoiceHeader `json:"header"`
	Lines  []models.InvoiceLine `json:"lines"`
}

type setStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type documentRequest struct {
	Document string `json:"document" binding:"required"`
}

type chatRequest struct {
	Request string `json:"request" binding:"required"`
}

// ListInvoices handles GET /invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	headers, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching invoices"})
		return
	}
	c.JSON(http.StatusOK, headers)
}

// GetInvoice handles GET /invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		h.logger.Error("Failed to get invoice", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error fetching invoice details"})
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// UpdateInvoice handles PUT /invoices/:id
func (h *Handlers) UpdateInvoice(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req updateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.store.Update(c.Request.Context(), id, &req.Header, req.Lines); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		h.logger.Error("Failed to update invoice", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error updating invoice"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteInvoice handles DELETE /invoices/:id
func (h *Handlers) DeleteInvoice(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
			return
		}
		h.logger.Error("Failed to delete invoice", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error deleting invoice"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// SetStatus handles POST /invoices/:id/status
func (h *Handlers) SetStatus(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.store.SetStatus(c.Request.Context(), id, status.Status(req.Status))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
	case errors.Is(err, status.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
	case errors.Is(err, status.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Failed to set invoice status", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error updating status"})
	}
}

// ExportInvoices handles GET /invoices/export
func (h *Handlers) ExportInvoices(c *gin.Context) {
	invoices, err := h.store.ListWithLines(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list invoices for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error exporting invoices"})
		return
	}

	f, err := h.exporter.Build(invoices)
	if err != nil {
		h.logger.Error("Failed to build export workbook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error exporting invoices"})
		return
	}
	defer f.Close()

	c.Header("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("Failed to stream export workbook", zap.Error(err))
	}
}

// GetDocument handles GET /invoices/:id/document
func (h *Handlers) GetDocument(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	data, contentType, err := h.documents.LoadDocument(id)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		h.logger.Error("Failed to load document", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error loading document"})
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// GetPreview handles GET /invoices/:id/preview
func (h *Handlers) GetPreview(c *gin.Context) {
	id, ok := h.invoiceID(c)
	if !ok {
		return
	}

	data, contentType, err := h.documents.LoadDocument(id)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		h.logger.Error("Failed to load document for preview", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error loading preview"})
		return
	}

	// Images are served as-is; PDFs are rendered to a first-page PNG.
	if contentType != "application/pdf" {
		c.Data(http.StatusOK, contentType, data)
		return
	}

	preview, err := h.previews.FirstPagePNG(data)
	if err != nil {
		h.logger.Error("Failed to render preview", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error rendering preview"})
		return
	}
	c.Data(http.StatusOK, "image/png", preview)
}

// ExtractDocument handles POST /openai/extract: OCR only, returning
// the flattened table text.
func (h *Handlers) ExtractDocument(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	text, err := h.analyzer.Analyze(c.Request.Context(), req.Document)
	if err != nil {
		h.logger.Error("Document analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error analyzing document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"body": text})
}

// Chat handles POST /openai/chat: LLM extraction of already-flattened
// scan text, returning the parsed JSON.
func (h *Handlers) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.extractor.Extract(c.Request.Context(), req.Request)
	if err != nil {
		h.logger.Error("Extraction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error communicating with the language model"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ProcessDocument handles POST /openai/getJson: the full pipeline for
// one uploaded document.
func (h *Handlers) ProcessDocument(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.processor.ProcessUpload(c.Request.Context(), req.Document)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "error processing document"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": result.HeaderID})
}

func (h *Handlers) invoiceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return 0, false
	}
	return id, true
}
