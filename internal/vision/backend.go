// Package vision invokes an external vision-capable model to extract text from
// page payloads, under strict budget, rate, and concurrency discipline.
package vision

import "context"

// Request is one page payload plus its category-specific instruction.
type Request struct {
	// Data is the page payload (image bytes or a single-page PDF).
	Data []byte
	// MediaType is the payload MIME type (e.g. "image/png", "application/pdf").
	MediaType string
	// Prompt is the extraction instruction for the page's category.
	Prompt string
}

// Result is the structured output of one vision extraction.
type Result struct {
	Text string
	// Confidence is 0.0-1.0, derived from response shape.
	Confidence float64
	// TokensUsed is the total token usage of the call.
	TokensUsed int
}

// Backend is the opaque vision extraction capability. Implementations must
// respect ctx cancellation and return structured results or errors; the
// pipeline does not care how extraction happens.
type Backend interface {
	Extract(ctx context.Context, req *Request) (*Result, error)
	Name() string
}
