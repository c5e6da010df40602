package classify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/decklens/internal/models"
)

// fakeSource is a minimal DocumentSource over fixed page texts.
type fakeSource struct {
	pages []string
}

func (f *fakeSource) ID() string     { return "doc:test" }
func (f *fakeSource) Name() string   { return "test" }
func (f *fakeSource) PageCount() int { return len(f.pages) }
func (f *fakeSource) PageText(index int) (string, error) {
	if index < 1 || index > len(f.pages) {
		return "", fmt.Errorf("page %d out of range", index)
	}
	return f.pages[index-1], nil
}
func (f *fakeSource) PageImage(index int) ([]byte, string, error) {
	return nil, "", fmt.Errorf("no image")
}
func (f *fakeSource) Close() error { return nil }

func TestClassify_TextDominant(t *testing.T) {
	c := New(Config{})
	src := &fakeSource{pages: []string{"this page has plenty of embedded text", "", ""}}
	got, err := c.Classify(src)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != models.ClassificationTextDominant {
		t.Errorf("Classify=%s, want text_dominant", got)
	}
}

func TestClassify_ImageDominant(t *testing.T) {
	c := New(Config{})
	src := &fakeSource{pages: []string{"", "  ", "x", "later page with lots of text that is never sampled"}}
	got, err := c.Classify(src)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != models.ClassificationImageDominant {
		t.Errorf("Classify=%s, want image_dominant", got)
	}
}

func TestClassify_ShortDocumentSamplesAllPages(t *testing.T) {
	c := New(Config{SamplePages: 3})
	src := &fakeSource{pages: []string{"this single page carries enough text"}}
	got, err := c.Classify(src)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != models.ClassificationTextDominant {
		t.Errorf("Classify=%s, want text_dominant", got)
	}
}

func TestClassify_EmptyDocument(t *testing.T) {
	c := New(Config{})
	_, err := c.Classify(&fakeSource{})
	if err == nil {
		t.Fatal("expected error for zero-page document")
	}
	if !errors.Is(err, models.ErrDocumentUnreadable) {
		t.Errorf("error %v is not ErrDocumentUnreadable", err)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := New(Config{})
	src := &fakeSource{pages: []string{"short", "", "a page with a decent amount of content here"}}
	first, err := c.Classify(src)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	for i := 0; i < 5; i++ {
		got, err := c.Classify(src)
		if err != nil {
			t.Fatalf("Classify run %d: %v", i, err)
		}
		if got != first {
			t.Errorf("run %d classified %s, first run said %s", i, got, first)
		}
	}
}

func TestHasNativeText(t *testing.T) {
	c := New(Config{MinChars: 10})
	if c.HasNativeText("too short") {
		t.Error("9 chars should not pass a 10-char threshold")
	}
	if !c.HasNativeText("exactly ten") {
		t.Error("11 chars should pass a 10-char threshold")
	}
	if c.HasNativeText("         \t\n") {
		t.Error("whitespace should not count")
	}
}
