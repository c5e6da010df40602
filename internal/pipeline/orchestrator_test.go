package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/decklens/internal/cache"
	"github.com/hyperjump/decklens/internal/classify"
	"github.com/hyperjump/decklens/internal/models"
	"github.com/hyperjump/decklens/internal/scoring"
	"github.com/hyperjump/decklens/internal/selection"
	"github.com/hyperjump/decklens/internal/vision"
)

// fakeSource is an in-memory DocumentSource with a vision payload per page.
type fakeSource struct {
	id    string
	pages []string
}

func (f *fakeSource) ID() string     { return f.id }
func (f *fakeSource) Name() string   { return "fake.pdf" }
func (f *fakeSource) PageCount() int { return len(f.pages) }
func (f *fakeSource) PageText(index int) (string, error) {
	if index < 1 || index > len(f.pages) {
		return "", fmt.Errorf("page %d out of range", index)
	}
	return f.pages[index-1], nil
}
func (f *fakeSource) PageImage(index int) ([]byte, string, error) {
	return []byte("page-image"), "image/png", nil
}
func (f *fakeSource) Close() error { return nil }

func textPages(n int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = fmt.Sprintf("page %d carries a comfortable amount of embedded text", i+1)
	}
	return pages
}

func newTestOrchestrator(t *testing.T, backend vision.Backend, budget *vision.Budget, withCache bool) *Orchestrator {
	t.Helper()
	worker, err := vision.NewWorker(backend, budget, vision.WorkerConfig{PageTimeout: "2s"}, nil)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	var c *cache.Cache
	if withCache {
		c, err = cache.New(cache.Config{}, nil)
		if err != nil {
			t.Fatalf("cache.New: %v", err)
		}
		t.Cleanup(func() { _ = c.Close() })
	}
	o, err := New(
		classify.New(classify.Config{}),
		scoring.NewScorer(nil),
		selection.NewSelector(nil),
		worker,
		c,
		Config{},
		nil,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func validateResult(t *testing.T, result *models.ExtractionResult) {
	t.Helper()
	if err := result.Validate(); err != nil {
		t.Fatalf("result violates index completeness: %v", err)
	}
	counted := 0
	for _, n := range result.MethodCounts {
		counted += n
	}
	if counted != result.PageCount {
		t.Errorf("MethodCounts sum to %d, PageCount is %d", counted, result.PageCount)
	}
}

func TestRun_NativeOnly(t *testing.T) {
	mock := vision.NewMockBackend()
	o := newTestOrchestrator(t, mock, nil, false)
	src := &fakeSource{id: "doc:native", pages: textPages(12)}

	result, err := o.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	validateResult(t, result)
	if result.Route != models.RouteNativeOnly {
		t.Errorf("Route=%s, want native_only", result.Route)
	}
	if result.Classification != models.ClassificationTextDominant {
		t.Errorf("Classification=%s", result.Classification)
	}
	if mock.Calls() != 0 {
		t.Errorf("native-only run made %d vision calls", mock.Calls())
	}
	if result.MethodCounts[models.SourceNative] != 12 {
		t.Errorf("native count=%d, want 12", result.MethodCounts[models.SourceNative])
	}
	if result.Partial {
		t.Error("clean run flagged partial")
	}
	if result.RunID == "" {
		t.Error("RunID not set")
	}
}

func TestRun_Holistic(t *testing.T) {
	mock := vision.NewMockBackend()
	o := newTestOrchestrator(t, mock, nil, false)
	src := &fakeSource{id: "doc:scanned", pages: make([]string, 20)}

	result, err := o.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	validateResult(t, result)
	if result.Route != models.RouteHolistic {
		t.Errorf("Route=%s, want holistic", result.Route)
	}
	if result.Classification != models.ClassificationImageDominant {
		t.Errorf("Classification=%s", result.Classification)
	}
	visionPages := result.MethodCounts[models.SourceVision]
	if visionPages < 3 || visionPages > 7 {
		t.Errorf("vision pages=%d, want between floor 3 and cap 7", visionPages)
	}
	for _, page := range result.Pages {
		if page.Source == models.SourceVision && page.Failure == "" {
			if page.Text != "mock extracted text" {
				t.Errorf("page %d vision text=%q", page.Index, page.Text)
			}
			if page.Confidence == 0 {
				t.Errorf("page %d vision confidence unset", page.Index)
			}
		}
	}
}

func TestRun_HybridRoutesThinPagesToVision(t *testing.T) {
	mock := vision.NewMockBackend()
	o := newTestOrchestrator(t, mock, nil, false)
	pages := textPages(10)
	pages[4] = "revenue arr"  // keywords but below the native-text threshold
	pages[7] = ""             // nothing at all
	src := &fakeSource{id: "doc:hybrid", pages: pages}

	result, err := o.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	validateResult(t, result)
	if result.Route != models.RouteHybrid {
		t.Errorf("Route=%s, want hybrid", result.Route)
	}
	if result.Classification != models.ClassificationMixed {
		t.Errorf("Classification=%s, want mixed after hybrid extraction", result.Classification)
	}
	p5 := result.Pages[4]
	if p5.Source != models.SourceVision {
		t.Errorf("page 5 source=%s, want vision", p5.Source)
	}
	if p5.Category != models.CategoryFinancials {
		t.Errorf("page 5 category=%s, want financials from its keywords", p5.Category)
	}
	if result.Pages[0].Source != models.SourceNative {
		t.Errorf("page 1 source=%s, want native", result.Pages[0].Source)
	}
}

func TestRun_BudgetExhaustionSalvagesPartial(t *testing.T) {
	mock := vision.NewMockBackend()
	budget := vision.NewBudget(2, 0)
	o := newTestOrchestrator(t, mock, budget, false)
	src := &fakeSource{id: "doc:budget", pages: make([]string, 20)}

	result, err := o.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	validateResult(t, result)
	if !result.Partial {
		t.Error("budget-stopped run should be partial")
	}
	if got := result.MethodCounts[models.SourceVision]; got != 2 {
		t.Errorf("vision pages=%d, want exactly the 2 budgeted calls", got)
	}
	if result.VisionCalls != 2 {
		t.Errorf("VisionCalls=%d, want 2", result.VisionCalls)
	}
}

func TestRun_AllVisionFailedFallsBackTextOnly(t *testing.T) {
	mock := vision.NewMockBackend()
	mock.Err = errors.New("backend down")
	o := newTestOrchestrator(t, mock, nil, false)
	src := &fakeSource{id: "doc:degraded", pages: make([]string, 20)}

	result, err := o.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	validateResult(t, result)
	if result.FallbackMode != models.FallbackTextOnly {
		t.Errorf("FallbackMode=%q, want text_only", result.FallbackMode)
	}
	for _, page := range result.Pages {
		if page.Source == models.SourceVision && page.Failure != models.FailureExtraction {
			t.Errorf("page %d failure=%q, want page_extraction_error", page.Index, page.Failure)
		}
	}
}

func TestRun_OverallTimeoutSalvagesCompletedPages(t *testing.T) {
	mock := vision.NewMockBackend()
	mock.Delay = 70 * time.Millisecond
	worker, err := vision.NewWorker(mock, nil, vision.WorkerConfig{PageTimeout: "1s"}, nil)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	o, err := New(
		classify.New(classify.Config{}),
		scoring.NewScorer(nil),
		selection.NewSelector(nil),
		worker,
		nil,
		Config{OverallTimeout: "100ms"},
		nil,
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	src := &fakeSource{id: "doc:slow", pages: make([]string, 20)}

	result, err := o.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	validateResult(t, result)
	if !result.Partial {
		t.Error("timed-out run should be partial")
	}
	done := 0
	for _, page := range result.Pages {
		if page.Source == models.SourceVision && page.Failure == "" {
			done++
		}
	}
	if done < 1 {
		t.Error("at least the first page should have completed before the deadline")
	}
}

func TestRun_PopulatesCache(t *testing.T) {
	mock := vision.NewMockBackend()
	o := newTestOrchestrator(t, mock, nil, true)
	src := &fakeSource{id: "doc:cached", pages: make([]string, 20)}

	result, err := o.Run(context.Background(), src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	ctx := context.Background()
	stored, err := o.cache.Result(ctx, src.ID())
	if err != nil {
		t.Fatalf("stored result not found: %v", err)
	}
	if stored.RunID != result.RunID {
		t.Errorf("stored RunID=%s, want %s", stored.RunID, result.RunID)
	}
	for _, page := range result.Pages {
		if page.Source != models.SourceVision || page.Failure != "" {
			continue
		}
		entry, err := o.cache.Get(ctx, src.ID(), page.Index)
		if err != nil {
			t.Errorf("vision page %d missing from cache: %v", page.Index, err)
			continue
		}
		if entry.Content != page.Text {
			t.Errorf("cached content for page %d differs", page.Index)
		}
	}
}

func TestSupplement(t *testing.T) {
	mock := vision.NewMockBackend()
	o := newTestOrchestrator(t, mock, nil, true)
	pages := make([]string, 15)
	pages[9] = "revenue arr"
	pages[11] = "burn rate"
	src := &fakeSource{id: "doc:supplement", pages: pages}

	entries, err := o.Supplement(context.Background(), src, models.CategoryFinancials, 2)
	if err != nil {
		t.Fatalf("Supplement: %v", err)
	}
	if len(entries) == 0 || len(entries) > 2 {
		t.Fatalf("got %d entries, want 1-2", len(entries))
	}
	for _, entry := range entries {
		if entry.Category != models.CategoryFinancials {
			t.Errorf("entry category=%s, want financials", entry.Category)
		}
		if !strings.HasPrefix(entry.DocumentID, "doc:") {
			t.Errorf("entry document ID %q", entry.DocumentID)
		}
		if _, err := o.cache.Get(context.Background(), src.ID(), entry.PageIndex); err != nil {
			t.Errorf("supplemented page %d not cached: %v", entry.PageIndex, err)
		}
	}
}

func TestSupplement_SkipsCachedPages(t *testing.T) {
	mock := vision.NewMockBackend()
	o := newTestOrchestrator(t, mock, nil, true)
	pages := make([]string, 15)
	pages[9] = "revenue arr"
	pages[11] = "burn rate"
	src := &fakeSource{id: "doc:skip", pages: pages}

	if _, err := o.Supplement(context.Background(), src, models.CategoryFinancials, 1); err != nil {
		t.Fatalf("first Supplement: %v", err)
	}
	before := mock.Calls()
	// Page 10 is now cached; a second supplement must extract a different page.
	entries, err := o.Supplement(context.Background(), src, models.CategoryFinancials, 1)
	if err != nil {
		t.Fatalf("second Supplement: %v", err)
	}
	if mock.Calls() <= before {
		t.Error("second supplement should have made a fresh vision call")
	}
	for _, entry := range entries {
		if entry.PageIndex == 10 {
			t.Error("already-cached page re-extracted")
		}
	}
}
