package source

import (
	"archive/zip"
	"bytes"
	"testing"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create(docxDocumentXMLPath)
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestDOCXSource_TextRuns(t *testing.T) {
	content := buildDOCX(t, `<w:document><w:p><w:r><w:t>hello</w:t></w:r><w:r><w:t xml:space="preserve">world</w:t></w:r></w:p></w:document>`)
	src, err := newDOCXSource(content, "doc.docx")
	if err != nil {
		t.Fatalf("newDOCXSource: %v", err)
	}
	if src.PageCount() != 1 {
		t.Fatalf("PageCount=%d, want 1", src.PageCount())
	}
	text, _ := src.PageText(1)
	if text != "hello world" {
		t.Errorf("PageText(1)=%q", text)
	}
}

func TestDOCXSource_PageBreakSplit(t *testing.T) {
	content := buildDOCX(t, `<w:document><w:t>first page</w:t><w:br w:type="page"/><w:t>second page</w:t></w:document>`)
	src, err := newDOCXSource(content, "doc.docx")
	if err != nil {
		t.Fatalf("newDOCXSource: %v", err)
	}
	if src.PageCount() != 2 {
		t.Fatalf("PageCount=%d, want 2", src.PageCount())
	}
	p2, _ := src.PageText(2)
	if p2 != "second page" {
		t.Errorf("PageText(2)=%q", p2)
	}
}

func TestDOCXSource_MissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, _ := zw.Create("word/other.xml")
	_, _ = f.Write([]byte("<x/>"))
	_ = zw.Close()
	if _, err := newDOCXSource(buf.Bytes(), "bad.docx"); err == nil {
		t.Error("expected error when document.xml is absent")
	}
}

func TestDOCXSource_NotAZip(t *testing.T) {
	if _, err := newDOCXSource([]byte("plainly not a zip"), "bad.docx"); err == nil {
		t.Error("expected error for non-zip content")
	}
}
