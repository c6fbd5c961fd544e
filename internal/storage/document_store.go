package storage

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrDocumentNotFound is returned when no stored document exists for an id
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore keeps uploaded invoice documents on the local
// filesystem, one file per header id with an extension derived from
// the detected content type.
type DocumentStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewDocumentStore creates a new document store
func NewDocumentStore(baseDir string, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{baseDir: baseDir, logger: logger}
}

// SaveDocument writes the raw document for the given header id and
// returns the stored path. An existing document for the id is
// overwritten.
func (s *DocumentStore) SaveDocument(id int64, data []byte) (string, error) {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		s.logger.Error("Failed to create document directory",
			zap.String("dir", s.baseDir), zap.Error(err))
		return "", fmt.Errorf("failed to create document directory: %w", err)
	}

	path := filepath.Join(s.baseDir, fmt.Sprintf("%d%s", id, extensionFor(data)))
	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Error("Failed to write document",
			zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to write document: %w", err)
	}

	s.logger.Debug("Document stored",
		zap.Int64("id", id),
		zap.String("path", path),
		zap.Int("size", len(data)))
	return path, nil
}

// LoadDocument returns the stored document bytes and content type for
// a header id. ErrDocumentNotFound when nothing was stored.
func (s *DocumentStore) LoadDocument(id int64) ([]byte, string, error) {
	matches, err := filepath.Glob(filepath.Join(s.baseDir, fmt.Sprintf("%d.*", id)))
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up document: %w", err)
	}
	if len(matches) == 0 {
		return nil, "", ErrDocumentNotFound
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, "", fmt.Errorf("failed to read document: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

func extensionFor(data []byte) string {
	switch http.DetectContentType(data) {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	default:
		return ".bin"
	}
}
