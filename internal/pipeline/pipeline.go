package pipeline

import (
	"context"
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/bergsoft/invoiceflow/internal/models"
)

// Analyzer runs OCR table extraction on a base64-encoded document.
type Analyzer interface {
	Analyze(ctx context.Context, documentBase64 string) (string, error)
}

// Extractor converts flattened OCR text into a structured result.
type Extractor interface {
	Extract(ctx context.Context, ocrText string) (*models.ExtractionResult, error)
}

// Store persists a mapped header with its lines.
type Store interface {
	CreateWithLines(ctx context.Context, header *models.InvoiceHeader, lines []models.InvoiceLine) (int64, error)
}

// DocumentStore keeps the raw uploaded document for later display.
type DocumentStore interface {
	SaveDocument(id int64, data []byte) (string, error)
}

// Result reports the outcome of one processed upload.
type Result struct {
	HeaderID int64 `json:"id"`
}

// Pipeline sequences scan analysis, LLM extraction and persistence for
// a single uploaded document. Stages run strictly in order; the first
// failure aborts the rest.
type Pipeline struct {
	analyzer  Analyzer
	extractor Extractor
	store     Store
	documents DocumentStore
	logger    *zap.Logger
}

// New creates a new pipeline. documents may be nil when uploads should
// not be kept on disk.
func New(analyzer Analyzer, extractor Extractor, store Store, documents DocumentStore, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		analyzer:  analyzer,
		extractor: extractor,
		store:     store,
		documents: documents,
		logger:    logger,
	}
}

// ProcessUpload runs the full pipeline for one document.
func (p *Pipeline) ProcessUpload(ctx context.Context, documentBase64 string) (*Result, error) {
	ocrText, err := p.analyzer.Analyze(ctx, documentBase64)
	if err != nil {
		p.logger.Error("Document analysis failed", zap.Error(err))
		return nil, err
	}

	extracted, err := p.extractor.Extract(ctx, ocrText)
	if err != nil {
		p.logger.Error("Extraction failed", zap.Error(err))
		return nil, err
	}

	header, lines := MapExtraction(extracted)

	headerID, err := p.store.CreateWithLines(ctx, header, lines)
	if err != nil {
		p.logger.Error("Failed to persist extracted invoice", zap.Error(err))
		return nil, err
	}

	// Keeping the original upload is best effort; the invoice is
	// already persisted at this point.
	if p.documents != nil {
		if data, err := base64.StdEncoding.DecodeString(documentBase64); err != nil {
			p.logger.Warn("Uploaded document is not valid base64, skipping storage",
				zap.Int64("id", headerID), zap.Error(err))
		} else if _, err := p.documents.SaveDocument(headerID, data); err != nil {
			p.logger.Warn("Failed to store uploaded document",
				zap.Int64("id", headerID), zap.Error(err))
		}
	}

	p.logger.Info("Upload processed",
		zap.Int64("id", headerID),
		zap.Int("lines", len(lines)))
	return &Result{HeaderID: headerID}, nil
}
