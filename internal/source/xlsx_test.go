package source

import (
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Revenue")
	_ = f.SetCellValue("Sheet1", "B1", 1200000)
	if _, err := f.NewSheet("Metrics"); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	_ = f.SetCellValue("Metrics", "A1", "Active users")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestXLSXSource_SheetPerPage(t *testing.T) {
	src, err := newXLSXSource(buildXLSX(t), "model.xlsx")
	if err != nil {
		t.Fatalf("newXLSXSource: %v", err)
	}
	if src.PageCount() != 2 {
		t.Fatalf("PageCount=%d, want 2", src.PageCount())
	}
	p1, _ := src.PageText(1)
	if !strings.Contains(p1, "Revenue") {
		t.Errorf("sheet 1 text missing cell value: %q", p1)
	}
	if !strings.Contains(p1, "Sheet1") {
		t.Errorf("sheet 1 text missing sheet name: %q", p1)
	}
	p2, _ := src.PageText(2)
	if !strings.Contains(p2, "Active users") {
		t.Errorf("sheet 2 text missing cell value: %q", p2)
	}
}

func TestXLSXSource_NotASpreadsheet(t *testing.T) {
	if _, err := newXLSXSource([]byte("not an xlsx"), "bad.xlsx"); err == nil {
		t.Error("expected error for invalid content")
	}
}
