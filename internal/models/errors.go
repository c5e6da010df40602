package models

import "errors"

// Error taxonomy. Page-level errors (timeout, extraction) never propagate past
// the orchestrator; they degrade the affected page only. Document-level and
// budget-level errors propagate to the caller as typed failures.
var (
	// ErrDocumentUnreadable is fatal for one document: no partial extraction is
	// possible and the pipeline halts for that document only.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrPageTimeout is local to one page; its text becomes empty and the run continues.
	ErrPageTimeout = errors.New("page extraction timed out")

	// ErrPageExtraction is local to one page (malformed image, backend error).
	ErrPageExtraction = errors.New("page extraction failed")

	// ErrBudgetExceeded halts further vision calls for the remainder of a run;
	// completed pages are preserved and the result is marked partial.
	ErrBudgetExceeded = errors.New("extraction budget exceeded")

	// ErrCacheMiss is returned by cache lookups that find no live entry.
	ErrCacheMiss = errors.New("cache miss")
)
