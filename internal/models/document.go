// Package models defines core data structures for documents, pages, and extraction results.
package models

import "time"

// Classification describes whether a document carries extractable digital text.
type Classification string

const (
	// ClassificationTextDominant means sampled pages contain enough embedded text
	// for native extraction; routing is decided per page.
	ClassificationTextDominant Classification = "text_dominant"
	// ClassificationImageDominant means no sampled page had enough embedded text;
	// the document is routed to holistic vision processing.
	ClassificationImageDominant Classification = "image_dominant"
	// ClassificationMixed is recorded when a document ends up with both native and
	// vision pages after routing.
	ClassificationMixed Classification = "mixed"
)

// ExtractionSource identifies how a page's text was obtained.
type ExtractionSource string

const (
	SourceNative      ExtractionSource = "native"
	SourceVision      ExtractionSource = "vision"
	SourceUnprocessed ExtractionSource = "unprocessed"
)

// Category is a business-content bucket used to score and prioritize pages.
type Category string

const (
	CategoryFinancials  Category = "financials"
	CategoryCompetition Category = "competition"
	CategoryMarket      Category = "market"
	CategoryTraction    Category = "traction"
	CategoryTeam        Category = "team"
	// CategoryGeneral is used when a whole short document is selected without scoring.
	CategoryGeneral Category = "general"
	// CategoryNone marks pages with no category assignment.
	CategoryNone Category = ""
)

// Categories lists the scoreable categories in priority order
// (priority 1 first; order within a priority level is fixed for determinism).
func Categories() []Category {
	return []Category{
		CategoryFinancials,
		CategoryCompetition,
		CategoryMarket,
		CategoryTraction,
		CategoryTeam,
	}
}

// Document represents an ingested document. Immutable once extraction completes.
type Document struct {
	ID             string         `json:"id"`
	Name           string         `json:"name,omitempty"`
	PageCount      int            `json:"page_count"`
	Classification Classification `json:"classification"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Page is one page of a document after extraction.
type Page struct {
	// Index is 1-based; ordering is significant.
	Index int `json:"index"`
	// Text is the extracted text, possibly empty on unrecoverable failure.
	Text string `json:"text"`
	// Source is how the text was obtained.
	Source ExtractionSource `json:"source"`
	// Category is the assigned content category, if any.
	Category Category `json:"category,omitempty"`
	// Score is the non-negative relevance score from content scoring.
	Score float64 `json:"score,omitempty"`
	// Confidence is 0.0-1.0 and only meaningful when Source is vision.
	Confidence float64 `json:"confidence,omitempty"`
	// Failure records a page-local failure kind ("" when the page succeeded).
	Failure string `json:"failure,omitempty"`
}

// Page-local failure kinds recorded on Page.Failure.
const (
	FailureTimeout    = "page_timeout"
	FailureExtraction = "page_extraction_error"
	FailureBudget     = "budget_exceeded"
)
