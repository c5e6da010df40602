// Package cli provides output helpers for the DeckLens command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/decklens/internal/models"
	"github.com/hyperjump/decklens/pkg/utils"
)

// OutputFormat is the format for result output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteResult writes an extraction result to w in the given format.
func WriteResult(w io.Writer, result *models.ExtractionResult, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	writeResultText(w, result)
	return nil
}

func writeResultText(w io.Writer, result *models.ExtractionResult) {
	fmt.Fprintf(w, "\nDocument %s (%d pages, %s, route %s) in %dms\n",
		result.DocumentID, result.PageCount, result.Classification, result.Route, result.ElapsedMS)
	if result.Partial {
		fmt.Fprintln(w, "PARTIAL: run stopped before all selected pages were processed")
	}
	if result.FallbackMode != "" {
		fmt.Fprintf(w, "Fallback: %s\n", result.FallbackMode)
	}
	fmt.Fprintf(w, "Pages: %d native, %d vision, %d unprocessed | vision calls %d, tokens %d\n\n",
		result.MethodCounts[models.SourceNative],
		result.MethodCounts[models.SourceVision],
		result.MethodCounts[models.SourceUnprocessed],
		result.VisionCalls, result.VisionTokens)
	for _, page := range result.Pages {
		fmt.Fprintf(w, "── page %d [%s]", page.Index, page.Source)
		if page.Category != "" && page.Category != models.CategoryNone {
			fmt.Fprintf(w, " %s", page.Category)
		}
		if page.Score > 0 {
			fmt.Fprintf(w, " score=%.2f", page.Score)
		}
		if page.Failure != "" {
			fmt.Fprintf(w, " FAILED(%s)", page.Failure)
		}
		fmt.Fprintln(w)
		if page.Text != "" {
			fmt.Fprintf(w, "%s\n", utils.Truncate(page.Text, 200))
		}
	}
	fmt.Fprintln(w)
}

// WriteEntries writes cached lookup entries to w in the given format.
func WriteEntries(w io.Writer, entries []*models.CacheEntry, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	fmt.Fprintf(w, "\n%d cached page(s)\n\n", len(entries))
	for _, entry := range entries {
		fmt.Fprintf(w, "── %s page %d [%s] confidence=%.2f\n",
			entry.DocumentID, entry.PageIndex, entry.Category, entry.Confidence)
		if entry.Content != "" {
			fmt.Fprintf(w, "%s\n", utils.Truncate(entry.Content, 200))
		}
	}
	fmt.Fprintln(w)
	return nil
}
