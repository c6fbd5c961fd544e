package docintel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds document-intelligence API configuration
type Config struct {
	Endpoint        string
	APIKey          string
	APIVersion      string
	ModelID         string
	PollInterval    time.Duration
	MaxPollAttempts int
	RequestTimeout  time.Duration
}

// Client calls the document-intelligence layout API: submit a
// base64-encoded document, then poll the returned operation location
// until the analysis completes.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new document analysis client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 60
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}
}

type analyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

type analyzeStatusResponse struct {
	Status        string          `json:"status"`
	Error         json.RawMessage `json:"error,omitempty"`
	AnalyzeResult *AnalyzeResult  `json:"analyzeResult,omitempty"`
}

// AnalyzeResult is the subset of the layout response we consume.
type AnalyzeResult struct {
	Content string  `json:"content"`
	Tables  []Table `json:"tables"`
}

// Table holds the detected cells of one table, in row-major order as
// returned by the service.
type Table struct {
	RowCount    int    `json:"rowCount"`
	ColumnCount int    `json:"columnCount"`
	Cells       []Cell `json:"cells"`
}

// Cell is a single detected table cell.
type Cell struct {
	Kind        string `json:"kind"`
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

// Analyze submits the document and blocks until the analysis job
// completes, returning the flattened text for LLM consumption.
func (c *Client) Analyze(ctx context.Context, documentBase64 string) (string, error) {
	operationLocation, err := c.submit(ctx, documentBase64)
	if err != nil {
		return "", err
	}

	result, err := c.pollResult(ctx, operationLocation)
	if err != nil {
		return "", err
	}

	return Flatten(result), nil
}

func (c *Client) submit(ctx context.Context, documentBase64 string) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.ModelID, c.cfg.APIVersion)

	body, err := json.Marshal(analyzeRequest{Base64Source: documentBase64})
	if err != nil {
		return "", fmt.Errorf("failed to encode analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		c.logger.Error("Document analysis submit rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("payload", payload))
		return "", fmt.Errorf("analyze submit returned status %d: %s", resp.StatusCode, payload)
	}

	operationLocation := resp.Header.Get("Operation-Location")
	if operationLocation == "" {
		return "", ErrMissingOperationLocation
	}

	c.logger.Debug("Document submitted for analysis",
		zap.String("operation_location", operationLocation))
	return operationLocation, nil
}

// pollResult polls the operation location until the job succeeds,
// fails, or the attempt budget runs out. Only the "still running"
// status is retried; transport errors and non-200 responses abort.
func (c *Client) pollResult(ctx context.Context, operationLocation string) (*AnalyzeResult, error) {
	for attempt := 1; attempt <= c.cfg.MaxPollAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationLocation, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build poll request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll request failed: %w", err)
		}

		payload, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read poll response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			c.logger.Error("Document analysis poll rejected",
				zap.Int("status", resp.StatusCode),
				zap.ByteString("payload", payload))
			return nil, fmt.Errorf("analyze poll returned status %d: %s", resp.StatusCode, payload)
		}

		var status analyzeStatusResponse
		if err := json.Unmarshal(payload, &status); err != nil {
			return nil, fmt.Errorf("failed to decode poll response: %w", err)
		}

		switch status.Status {
		case "succeeded":
			if status.AnalyzeResult == nil {
				return nil, fmt.Errorf("%w: succeeded without analyzeResult", ErrAnalysisFailed)
			}
			return status.AnalyzeResult, nil
		case "failed":
			return nil, fmt.Errorf("%w: %s", ErrAnalysisFailed, status.Error)
		default:
			c.logger.Debug("Analysis still running",
				zap.String("status", status.Status),
				zap.Int("attempt", attempt))
		}

		// No point waiting out the interval when the budget is spent
		if attempt == c.cfg.MaxPollAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrAnalysisTimeout, c.cfg.MaxPollAttempts)
}
