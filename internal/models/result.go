package models

import "fmt"

// RouteMode is the routing decision made by the orchestrator after classification.
type RouteMode string

const (
	// RouteNativeOnly means every page had sufficient embedded text; no vision calls.
	RouteNativeOnly RouteMode = "native_only"
	// RouteHybrid means native pages are extracted locally and the remainder is
	// scored, selected, and vision-processed.
	RouteHybrid RouteMode = "hybrid"
	// RouteHolistic means no usable embedded text exists; strategic pages are
	// selected by positional heuristics and vision-processed.
	RouteHolistic RouteMode = "holistic"
)

// FallbackTextOnly is set on ExtractionResult.FallbackMode when every vision call
// failed and the result degraded to native text alone.
const FallbackTextOnly = "text_only"

// ExtractionResult is the unified per-document output consumed by downstream
// analysis. Pages is always index-aligned with the document: len(Pages) equals
// PageCount and Pages[i].Index == i+1, even under heavy degradation.
type ExtractionResult struct {
	DocumentID string `json:"document_id"`
	RunID      string `json:"run_id"`
	PageCount  int    `json:"page_count"`
	Pages      []Page `json:"pages"`

	Classification Classification `json:"classification"`
	Route          RouteMode      `json:"route"`

	// MethodCounts maps extraction source to the number of pages it produced.
	MethodCounts map[ExtractionSource]int `json:"method_counts"`

	// Partial is true when the run was cut short (cancellation or budget
	// exhaustion) but completed pages were salvaged.
	Partial bool `json:"partial,omitempty"`
	// FallbackMode is FallbackTextOnly when all vision calls failed.
	FallbackMode string `json:"fallback_mode,omitempty"`

	VisionCalls  int   `json:"vision_calls"`
	VisionTokens int   `json:"vision_tokens"`
	ElapsedMS    int64 `json:"elapsed_ms"`
}

// Texts returns the page texts in document order.
func (r *ExtractionResult) Texts() []string {
	texts := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		texts[i] = p.Text
	}
	return texts
}

// Validate checks the index-completeness invariant: exactly PageCount entries,
// in original order, no gaps.
func (r *ExtractionResult) Validate() error {
	if len(r.Pages) != r.PageCount {
		return fmt.Errorf("result has %d pages, document has %d", len(r.Pages), r.PageCount)
	}
	for i, p := range r.Pages {
		if p.Index != i+1 {
			return fmt.Errorf("page at position %d has index %d", i, p.Index)
		}
	}
	return nil
}
