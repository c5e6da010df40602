package source

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// pdfSource reads pages from a PDF. Native text comes from the embedded text
// layer; vision payloads are single-page PDF slices.
type pdfSource struct {
	content []byte
	name    string
	id      string
	reader  *pdf.Reader
}

func newPDFSource(content []byte, name string) (*pdfSource, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, unreadable("open PDF", err)
	}
	return &pdfSource{
		content: content,
		name:    name,
		id:      DocID(content),
		reader:  r,
	}, nil
}

func (s *pdfSource) ID() string     { return s.id }
func (s *pdfSource) Name() string   { return s.name }
func (s *pdfSource) PageCount() int { return s.reader.NumPage() }

// PageText returns the embedded text of the page, or an empty string when the
// page object is malformed. The parser panics on some malformed content
// streams, so extraction is isolated behind a recover.
func (s *pdfSource) PageText(index int) (text string, err error) {
	if index < 1 || index > s.reader.NumPage() {
		return "", fmt.Errorf("page %d out of range (1-%d)", index, s.reader.NumPage())
	}
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = nil
		}
	}()
	page := s.reader.Page(index)
	if page.V.IsNull() {
		return "", nil
	}
	text, perr := page.GetPlainText(nil)
	if perr != nil {
		return "", nil
	}
	return text, nil
}

// PageImage extracts the page as a standalone single-page PDF payload, which
// vision-capable backends accept as a document attachment.
func (s *pdfSource) PageImage(index int) ([]byte, string, error) {
	if index < 1 || index > s.reader.NumPage() {
		return nil, "", fmt.Errorf("page %d out of range (1-%d)", index, s.reader.NumPage())
	}
	var buf bytes.Buffer
	pages := []string{strconv.Itoa(index)}
	if err := api.Trim(bytes.NewReader(s.content), &buf, pages, nil); err != nil {
		return nil, "", fmt.Errorf("extract page %d: %w", index, err)
	}
	return buf.Bytes(), "application/pdf", nil
}

func (s *pdfSource) Close() error { return nil }
