package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/decklens/internal/models"
)

func sampleResult() *models.ExtractionResult {
	return &models.ExtractionResult{
		DocumentID:     "doc:abc",
		RunID:          "run-1",
		PageCount:      2,
		Classification: models.ClassificationMixed,
		Route:          models.RouteHybrid,
		MethodCounts: map[models.ExtractionSource]int{
			models.SourceNative: 1,
			models.SourceVision: 1,
		},
		Pages: []models.Page{
			{Index: 1, Text: "native text", Source: models.SourceNative},
			{Index: 2, Text: "vision text", Source: models.SourceVision, Category: models.CategoryFinancials, Confidence: 0.9},
		},
		VisionCalls:  1,
		VisionTokens: 100,
	}
}

func TestWriteResult_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResult(&buf, sampleResult(), OutputText); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"doc:abc", "hybrid", "page 1", "page 2", "financials"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResult(&buf, sampleResult(), OutputJSON); err != nil {
		t.Fatalf("WriteResult: %v", err)
	}
	var got models.ExtractionResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if got.RunID != "run-1" {
		t.Errorf("RunID=%s", got.RunID)
	}
}

func TestWriteEntries_Text(t *testing.T) {
	entries := []*models.CacheEntry{
		{DocumentID: "doc:abc", PageIndex: 4, Category: models.CategoryFinancials, Content: "revenue details", Confidence: 0.8},
	}
	var buf bytes.Buffer
	if err := WriteEntries(&buf, entries, OutputText); err != nil {
		t.Fatalf("WriteEntries: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "page 4") || !strings.Contains(out, "financials") {
		t.Errorf("entries output missing fields:\n%s", out)
	}
}
