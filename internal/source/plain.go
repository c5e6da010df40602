package source

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// plainSource reads text files (.txt, .md, unknown extensions) split into pages
// on form feed characters. A file without form feeds is a single page.
type plainSource struct {
	name  string
	id    string
	pages []string
}

func newPlainSource(content []byte, name string) *plainSource {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	pages := strings.Split(text, "\f")
	for i := range pages {
		pages[i] = strings.TrimSpace(pages[i])
	}
	return &plainSource{name: name, id: DocID(content), pages: pages}
}

func (s *plainSource) ID() string     { return s.id }
func (s *plainSource) Name() string   { return s.name }
func (s *plainSource) PageCount() int { return len(s.pages) }

func (s *plainSource) PageText(index int) (string, error) {
	if index < 1 || index > len(s.pages) {
		return "", fmt.Errorf("page %d out of range (1-%d)", index, len(s.pages))
	}
	return s.pages[index-1], nil
}

func (s *plainSource) PageImage(index int) ([]byte, string, error) {
	return nil, "", fmt.Errorf("plain text source has no page image for page %d", index)
}

func (s *plainSource) Close() error { return nil }
