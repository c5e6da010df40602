package source

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const docxDocumentXMLPath = "word/document.xml"

// wtTag matches <w:t>text</w:t> with any attributes (e.g. xml:space="preserve").
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// docxPageBreak matches explicit page breaks and renderer-recorded breaks, the
// only page structure a .docx carries.
var docxPageBreak = regexp.MustCompile(`<w:br[^>]*w:type="page"[^>]*/>|<w:lastRenderedPageBreak[^>]*/>`)

// docxSource reads a .docx as a sequence of pseudo-pages split on page breaks.
// DOCX is a ZIP containing word/document.xml (OOXML); text nodes are extracted
// from <w:t> runs regardless of paragraph/run attributes. No vision payload is
// available for this format.
type docxSource struct {
	name  string
	id    string
	pages []string
}

func newDOCXSource(content []byte, name string) (*docxSource, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, unreadable("open DOCX", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docxDocumentXMLPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, unreadable("open DOCX document.xml", err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, unreadable("read DOCX document.xml", err)
		}
		_ = rc.Close()
		docXML = buf.Bytes()
		break
	}
	if docXML == nil {
		return nil, unreadable("DOCX", fmt.Errorf("%s not found", docxDocumentXMLPath))
	}

	segments := docxPageBreak.Split(string(docXML), -1)
	pages := make([]string, 0, len(segments))
	for _, seg := range segments {
		pages = append(pages, joinTextRuns(wtTag.FindAllStringSubmatch(seg, -1)))
	}
	if len(pages) == 0 {
		pages = []string{""}
	}
	return &docxSource{name: name, id: DocID(content), pages: pages}, nil
}

func joinTextRuns(parts [][]string) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(p[1]))
	}
	return strings.TrimSpace(b.String())
}

func (s *docxSource) ID() string     { return s.id }
func (s *docxSource) Name() string   { return s.name }
func (s *docxSource) PageCount() int { return len(s.pages) }

func (s *docxSource) PageText(index int) (string, error) {
	if index < 1 || index > len(s.pages) {
		return "", fmt.Errorf("page %d out of range (1-%d)", index, len(s.pages))
	}
	return s.pages[index-1], nil
}

func (s *docxSource) PageImage(index int) ([]byte, string, error) {
	return nil, "", fmt.Errorf("docx source has no page image for page %d", index)
}

func (s *docxSource) Close() error { return nil }
