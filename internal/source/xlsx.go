package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// xlsxSource treats each worksheet as one page, rows joined with tabs.
// Spreadsheet decks (financial models, metrics tabs) score well under the
// financials/traction keyword tables this way.
type xlsxSource struct {
	name  string
	id    string
	pages []string
}

func newXLSXSource(content []byte, name string) (*xlsxSource, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, unreadable("open XLSX", err)
	}
	defer f.Close()

	var pages []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, unreadable(fmt.Sprintf("XLSX sheet %q", sheet), err)
		}
		var buf strings.Builder
		buf.WriteString(sheet)
		buf.WriteByte('\n')
		for _, row := range rows {
			buf.WriteString(strings.Join(row, "\t"))
			buf.WriteByte('\n')
		}
		pages = append(pages, strings.TrimSpace(buf.String()))
	}
	if len(pages) == 0 {
		pages = []string{""}
	}
	return &xlsxSource{name: name, id: DocID(content), pages: pages}, nil
}

func (s *xlsxSource) ID() string     { return s.id }
func (s *xlsxSource) Name() string   { return s.name }
func (s *xlsxSource) PageCount() int { return len(s.pages) }

func (s *xlsxSource) PageText(index int) (string, error) {
	if index < 1 || index > len(s.pages) {
		return "", fmt.Errorf("page %d out of range (1-%d)", index, len(s.pages))
	}
	return s.pages[index-1], nil
}

func (s *xlsxSource) PageImage(index int) ([]byte, string, error) {
	return nil, "", fmt.Errorf("xlsx source has no page image for page %d", index)
}

func (s *xlsxSource) Close() error { return nil }
