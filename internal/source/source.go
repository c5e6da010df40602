// Package source provides page-oriented access to document files.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/decklens/internal/models"
)

// DocumentSource is the narrow document interface the pipeline consumes:
// enumerate pages, read a page as text, or render it as a payload for the
// vision backend. Format-specific parsing lives behind this interface.
type DocumentSource interface {
	// ID is a stable content-derived document identifier.
	ID() string
	// Name is the original file name, if known.
	Name() string
	// PageCount returns the total number of pages.
	PageCount() int
	// PageText returns the embedded digital text of the 1-based page index,
	// verbatim and without OCR. A malformed page yields an empty string, not an
	// error; the caller flags such pages for vision fallback.
	PageText(index int) (string, error)
	// PageImage returns a payload for the vision backend (bytes plus media
	// type) for the 1-based page index.
	PageImage(index int) ([]byte, string, error)
	Close() error
}

// Open reads the file at path and returns a DocumentSource for its format.
// Returns models.ErrDocumentUnreadable (wrapped) when the file cannot be parsed.
func Open(path string) (DocumentSource, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return OpenBytes(content, filepath.Base(path))
}

// OpenBytes returns a DocumentSource for content, picking the format from the
// name's extension. Unknown extensions are treated as plain text.
func OpenBytes(content []byte, name string) (DocumentSource, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return newPDFSource(content, name)
	case ".docx":
		return newDOCXSource(content, name)
	case ".xlsx":
		return newXLSXSource(content, name)
	default:
		return newPlainSource(content, name), nil
	}
}

// unreadable wraps a parse error in the document-level typed failure.
func unreadable(format string, err error) error {
	return fmt.Errorf("%s: %v: %w", format, err, models.ErrDocumentUnreadable)
}
