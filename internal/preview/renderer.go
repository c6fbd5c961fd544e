package preview

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// Renderer produces PNG previews of stored invoice documents for the
// list UI. PDFs are rendered from their first page; images pass
// through unchanged at the handler level.
type Renderer struct {
	logger *zap.Logger
}

// NewRenderer creates a new preview renderer
func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// FirstPagePNG renders the first page of a PDF document as PNG bytes.
func (r *Renderer) FirstPagePNG(data []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("failed to render first page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	r.logger.Debug("Preview rendered", zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}
