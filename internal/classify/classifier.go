// Package classify decides whether a document is text-dominant or image-dominant.
package classify

import (
	"fmt"
	"strings"

	"github.com/hyperjump/decklens/internal/models"
	"github.com/hyperjump/decklens/internal/source"
)

// Config holds classification settings.
type Config struct {
	// SamplePages is how many leading pages to inspect. Default: 3.
	SamplePages int `yaml:"sample_pages"`
	// MinChars is the embedded-text character count above which a page counts
	// as text-capable. Default: 20.
	MinChars int `yaml:"min_chars"`
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.SamplePages == 0 {
		c.SamplePages = 3
	}
	if c.MinChars == 0 {
		c.MinChars = 20
	}
}

// Classifier samples leading pages for native text. Classification is cheap by
// contract: it makes no vision calls, so documents that never needed routing
// never spend budget on it.
type Classifier struct {
	cfg Config
}

// New returns a Classifier. A zero config gets defaults applied.
func New(cfg Config) *Classifier {
	cfg.ApplyDefaults()
	return &Classifier{cfg: cfg}
}

// Classify samples up to SamplePages leading pages. If any sampled page has at
// least MinChars of embedded text the document is text-dominant (routed per
// page); otherwise it is image-dominant. A document shorter than the sample
// size uses all its pages. Deterministic for unchanged input.
func (c *Classifier) Classify(src source.DocumentSource) (models.Classification, error) {
	total := src.PageCount()
	if total <= 0 {
		return "", fmt.Errorf("document has no pages: %w", models.ErrDocumentUnreadable)
	}
	sample := c.cfg.SamplePages
	if sample > total {
		sample = total
	}
	for i := 1; i <= sample; i++ {
		text, err := src.PageText(i)
		if err != nil {
			// Page read errors during sampling count as no text, not failure;
			// a later page may still classify the document as text-capable.
			continue
		}
		if len(strings.TrimSpace(text)) >= c.cfg.MinChars {
			return models.ClassificationTextDominant, nil
		}
	}
	return models.ClassificationImageDominant, nil
}

// HasNativeText reports whether a single page's text meets the native
// extraction threshold. Used by the orchestrator for per-page routing.
func (c *Classifier) HasNativeText(text string) bool {
	return len(strings.TrimSpace(text)) >= c.cfg.MinChars
}
