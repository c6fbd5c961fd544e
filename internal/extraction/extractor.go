package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bergsoft/invoiceflow/internal/models"
)

// ErrInvalidResponse is returned when the completion text cannot be
// parsed as JSON. There is no retry or repair attempt; the caller
// fails the whole pipeline.
var ErrInvalidResponse = errors.New("extraction response is not valid JSON")

// systemPrompt fixes the output shape for the completion. Field names
// match the invoice_header/invoice_line columns so the parsed object
// maps straight onto store records.
const systemPrompt = `You are an assistant that reads the result of a document scan of an invoice and returns the invoice data as JSON. Answer nothing but the JSON response, in plain text without markdown markers.
The scan text describes every detected table cell by row and column.
Return an object with a "header" object and a "lines" array.
The header fields are: invoicenumber, vendorname, vendorno, registrationno, vatno, invoicedate, totalamount.
Each line has the fields: lineno, no, description, qty, uom, price, discount, vatpercent, vatamount, lineamount.
If any value is not present in the scan, return null for it.
Dates use the format YYYY-MM-DD. Decimal numbers use a dot as the separator.
The buyer's own company name, registration number and VAT number must not be used for the vendor fields; the vendor is the party issuing the invoice.
Prefer the number printed next to an "Invoice No." label as the invoice number.`

// Config holds extraction client configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Extractor turns flattened OCR text into a structured extraction
// result with a single chat completion.
type Extractor struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// New creates a new extractor
func New(cfg Config, logger *zap.Logger) *Extractor {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Extractor{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Extract issues one completion request and parses the response text
// as JSON. No schema validation happens here; absent fields are
// handled permissively by the persistence mapper.
func (e *Extractor) Extract(ctx context.Context, ocrText string) (*models.ExtractionResult, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: ocrText},
		},
	})
	if err != nil {
		e.logger.Error("Completion request failed", zap.Error(err))
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in completion response", ErrInvalidResponse)
	}

	content := resp.Choices[0].Message.Content

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		// Some models wrap the object in a markdown code fence despite
		// the instruction not to.
		if fenced := extractJSON(content); fenced != "" {
			if err := json.Unmarshal([]byte(fenced), &result); err == nil {
				e.logger.Debug("Extracted JSON from fenced completion response")
				return &result, nil
			}
		}
		e.logger.Error("Failed to parse completion response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	e.logger.Info("Invoice data extracted",
		zap.Int("lines", len(result.Lines)))
	return &result, nil
}

// extractJSON pulls the body out of a ```json fenced block, or the
// outermost braces as a last resort. Empty string when nothing looks
// like JSON.
func extractJSON(content string) string {
	if idx := strings.Index(content, "```json"); idx >= 0 {
		rest := content[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return ""
}
