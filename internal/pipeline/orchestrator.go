// Package pipeline sequences classification, scoring, selection, and
// extraction into a bounded run that always produces a complete,
// index-aligned result, degraded where individual pages failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/decklens/internal/cache"
	"github.com/hyperjump/decklens/internal/classify"
	"github.com/hyperjump/decklens/internal/models"
	"github.com/hyperjump/decklens/internal/scoring"
	"github.com/hyperjump/decklens/internal/selection"
	"github.com/hyperjump/decklens/internal/source"
	"github.com/hyperjump/decklens/internal/vision"
)

// Config holds orchestration settings.
type Config struct {
	// OverallTimeout bounds one full run, independent of the per-page vision
	// timeout. Default: "35s" (a 7-page batch at 5s per page).
	OverallTimeout string `yaml:"overall_timeout"`
	// NativeWorkers is the parallelism for local text extraction, which is
	// cheap and has no external backend to exhaust. Default: 4.
	NativeWorkers int `yaml:"native_workers"`
	// SupplementPages caps on-demand supplemental extraction. Default: 3.
	SupplementPages int `yaml:"supplement_pages"`
	// MaxKeywords caps the keyword list stored per cache entry. Default: 8.
	MaxKeywords int `yaml:"max_keywords"`
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.OverallTimeout == "" {
		c.OverallTimeout = "35s"
	}
	if c.NativeWorkers == 0 {
		c.NativeWorkers = 4
	}
	if c.SupplementPages == 0 {
		c.SupplementPages = 3
	}
	if c.MaxKeywords == 0 {
		c.MaxKeywords = 8
	}
}

// Orchestrator owns the extraction run. It exclusively holds the result while
// building it and hands the finished value to the caller.
type Orchestrator struct {
	classifier      *classify.Classifier
	scorer          *scoring.Scorer
	selector        *selection.Selector
	worker          *vision.Worker
	cache           *cache.Cache
	overallTimeout  time.Duration
	nativeWorkers   int
	supplementPages int
	maxKeywords     int
	logger          *zap.Logger
}

// New creates an Orchestrator. The cache may be nil (results are then not
// persisted for later lookup).
func New(
	classifier *classify.Classifier,
	scorer *scoring.Scorer,
	selector *selection.Selector,
	worker *vision.Worker,
	resultCache *cache.Cache,
	cfg Config,
	logger *zap.Logger,
) (*Orchestrator, error) {
	cfg.ApplyDefaults()
	timeout, err := time.ParseDuration(cfg.OverallTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid overall_timeout %q: %w", cfg.OverallTimeout, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		classifier:      classifier,
		scorer:          scorer,
		selector:        selector,
		worker:          worker,
		cache:           resultCache,
		overallTimeout:  timeout,
		nativeWorkers:   cfg.NativeWorkers,
		supplementPages: cfg.SupplementPages,
		maxKeywords:     cfg.MaxKeywords,
		logger:          logger,
	}, nil
}

// BudgetSpent reports vision calls and tokens committed so far this session.
func (o *Orchestrator) BudgetSpent() (calls, tokens int) {
	return o.worker.Budget().Spent()
}

// Run processes one document end to end. Stages: classify, native-extract,
// route, score, select, extract, merge. Page-level failures degrade only the
// affected page; the returned result always satisfies the index-completeness
// invariant. Document-level failures (unreadable input) return an error.
func (o *Orchestrator) Run(ctx context.Context, src source.DocumentSource) (*models.ExtractionResult, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, o.overallTimeout)
	defer cancel()

	classification, err := o.classifier.Classify(src)
	if err != nil {
		return nil, err
	}
	pageCount := src.PageCount()
	o.logger.Info("document classified",
		zap.String("document_id", src.ID()),
		zap.String("classification", string(classification)),
		zap.Int("pages", pageCount))

	// Native pass. Image-dominant documents skip it: there is no text layer
	// worth reading and classification already sampled the leading pages.
	texts := make(map[int]string)
	nativeOK := make(map[int]bool)
	if classification == models.ClassificationTextDominant {
		texts = o.extractNative(runCtx, src, pageCount)
		for index, text := range texts {
			nativeOK[index] = o.classifier.HasNativeText(text)
		}
	}

	route := o.route(classification, nativeOK, pageCount)

	var sel *models.SelectionSet
	scores := map[int]*scoring.PageScore{}
	switch route {
	case models.RouteNativeOnly:
		// Every page reads natively; scoring still runs for category metadata
		// but nothing is selected for vision.
		for _, ps := range o.scorer.ScorePages(texts) {
			scores[ps.Index] = ps
		}
		sel = models.NewSelectionSet(o.selector.Cap())
	case models.RouteHybrid:
		pool := make([]*scoring.PageScore, 0)
		for _, ps := range o.scorer.ScorePages(texts) {
			scores[ps.Index] = ps
			if !nativeOK[ps.Index] {
				pool = append(pool, ps)
			}
		}
		sel = o.selector.Select(pool, pageCount)
	case models.RouteHolistic:
		// No text exists to score against; the selector's positional fallback
		// carries the whole selection.
		sel = o.selector.Select(nil, pageCount)
	}

	visionPages, partial := o.extractVision(runCtx, src, sel, nativeOK)

	result := o.merge(src, classification, route, pageCount, texts, nativeOK, scores, sel, visionPages)
	result.RunID = uuid.NewString()
	result.Partial = partial || runCtx.Err() != nil
	result.ElapsedMS = time.Since(start).Milliseconds()

	o.persist(ctx, result, scores, visionPages)
	return result, nil
}

// extractNative reads embedded page text with bounded local parallelism.
func (o *Orchestrator) extractNative(ctx context.Context, src source.DocumentSource, pageCount int) map[int]string {
	texts := make(map[int]string, pageCount)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, o.nativeWorkers)
	for index := 1; index <= pageCount; index++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(index int) {
			defer wg.Done()
			defer func() { <-sem }()
			text, err := src.PageText(index)
			if err != nil {
				text = ""
			}
			mu.Lock()
			texts[index] = text
			mu.Unlock()
		}(index)
	}
	wg.Wait()
	return texts
}

func (o *Orchestrator) route(classification models.Classification, nativeOK map[int]bool, pageCount int) models.RouteMode {
	if classification == models.ClassificationImageDominant {
		return models.RouteHolistic
	}
	for index := 1; index <= pageCount; index++ {
		if !nativeOK[index] {
			return models.RouteHybrid
		}
	}
	return models.RouteNativeOnly
}

// visionPage is the outcome of one vision extraction attempt.
type visionPage struct {
	text       string
	confidence float64
	failure    string
}

// extractVision runs the selected pages through the vision worker in document
// order. Pages that already read natively are skipped. Budget exhaustion and
// cancellation stop further calls but keep completed pages; per-page timeout
// or backend failure degrades only that page.
func (o *Orchestrator) extractVision(
	ctx context.Context,
	src source.DocumentSource,
	sel *models.SelectionSet,
	nativeOK map[int]bool,
) (map[int]*visionPage, bool) {
	pages := make(map[int]*visionPage)
	partial := false
	for _, index := range sel.Indices() {
		if nativeOK[index] {
			continue
		}
		if ctx.Err() != nil {
			partial = true
			break
		}
		category := sel.CategoryFor(index)
		outcome := o.extractOnePage(ctx, src, index, category)
		if outcome == nil {
			// Budget refused the call; nothing past this point can run either.
			partial = true
			break
		}
		pages[index] = outcome
	}
	return pages, partial
}

// extractOnePage renders a page and calls the vision worker. Returns nil only
// on budget exhaustion; every other failure is recorded in the outcome.
func (o *Orchestrator) extractOnePage(ctx context.Context, src source.DocumentSource, index int, category models.Category) *visionPage {
	data, mediaType, err := src.PageImage(index)
	if err != nil {
		o.logger.Warn("page image unavailable",
			zap.String("document_id", src.ID()),
			zap.Int("page", index),
			zap.Error(err))
		return &visionPage{failure: models.FailureExtraction}
	}
	res, err := o.worker.ExtractPage(ctx, &vision.Request{
		Data:      data,
		MediaType: mediaType,
		Prompt:    vision.PromptFor(category),
	})
	switch {
	case err == nil:
		return &visionPage{text: res.Text, confidence: res.Confidence}
	case errors.Is(err, models.ErrBudgetExceeded):
		o.logger.Warn("vision budget exhausted mid-run",
			zap.String("document_id", src.ID()),
			zap.Int("page", index))
		return nil
	case errors.Is(err, models.ErrPageTimeout):
		o.logger.Warn("page timed out",
			zap.String("document_id", src.ID()),
			zap.Int("page", index))
		return &visionPage{failure: models.FailureTimeout}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	default:
		o.logger.Warn("page extraction failed",
			zap.String("document_id", src.ID()),
			zap.Int("page", index),
			zap.Error(err))
		return &visionPage{failure: models.FailureExtraction}
	}
}

// merge assembles the unified result: exactly pageCount entries in original
// order, every index present with some text (possibly empty), never a gap.
func (o *Orchestrator) merge(
	src source.DocumentSource,
	classification models.Classification,
	route models.RouteMode,
	pageCount int,
	texts map[int]string,
	nativeOK map[int]bool,
	scores map[int]*scoring.PageScore,
	sel *models.SelectionSet,
	visionPages map[int]*visionPage,
) *models.ExtractionResult {
	result := &models.ExtractionResult{
		DocumentID:     src.ID(),
		PageCount:      pageCount,
		Pages:          make([]models.Page, pageCount),
		Classification: classification,
		Route:          route,
		MethodCounts:   make(map[models.ExtractionSource]int),
	}

	visionAttempts, visionSuccesses := 0, 0
	for index := 1; index <= pageCount; index++ {
		page := models.Page{Index: index, Source: models.SourceUnprocessed}
		if ps, ok := scores[index]; ok {
			page.Category = ps.Category
			page.Score = ps.Total
		}
		switch {
		case nativeOK[index]:
			page.Text = texts[index]
			page.Source = models.SourceNative
		case visionPages[index] != nil:
			vp := visionPages[index]
			visionAttempts++
			page.Source = models.SourceVision
			page.Text = vp.text
			page.Confidence = vp.confidence
			page.Failure = vp.failure
			if cat := sel.CategoryFor(index); cat != models.CategoryNone {
				page.Category = cat
			}
			if vp.failure == "" {
				visionSuccesses++
			}
		default:
			// Unselected (or unreached) page: keep whatever thin native text
			// exists rather than nothing.
			page.Text = texts[index]
		}
		result.MethodCounts[page.Source]++
		result.Pages[index-1] = page
	}

	result.VisionCalls, result.VisionTokens = o.worker.Budget().Spent()
	if visionAttempts > 0 && visionSuccesses == 0 {
		result.FallbackMode = models.FallbackTextOnly
	}
	if route == models.RouteHybrid && visionAttempts > 0 {
		result.Classification = models.ClassificationMixed
	}
	return result
}

// persist writes vision pages and the unified result to the cache, best effort.
func (o *Orchestrator) persist(ctx context.Context, result *models.ExtractionResult, scores map[int]*scoring.PageScore, visionPages map[int]*visionPage) {
	if o.cache == nil {
		return
	}
	for index, vp := range visionPages {
		if vp.failure != "" {
			continue
		}
		page := result.Pages[index-1]
		entry := &models.CacheEntry{
			DocumentID:  result.DocumentID,
			PageIndex:   index,
			Category:    page.Category,
			Content:     vp.text,
			Confidence:  vp.confidence,
			Keywords:    o.entryKeywords(scores[index], vp.text),
			ProcessedAt: time.Now(),
		}
		if err := o.cache.Put(ctx, entry); err != nil {
			o.logger.Warn("cache put failed", zap.String("key", entry.Key()), zap.Error(err))
		}
	}
	if err := o.cache.StoreResult(ctx, result); err != nil {
		o.logger.Warn("result store failed", zap.String("document_id", result.DocumentID), zap.Error(err))
	}
}

// entryKeywords picks the short keyword list stored with a cache entry:
// keywords that fired during scoring, or keywords re-scored from the vision
// text when the page had none.
func (o *Orchestrator) entryKeywords(ps *scoring.PageScore, visionText string) []string {
	matched := []string(nil)
	if ps != nil {
		matched = ps.Matched
	} else if rescored := o.scorer.ScorePage(1, visionText); rescored != nil {
		matched = rescored.Matched
	}
	if len(matched) > o.maxKeywords {
		matched = matched[:o.maxKeywords]
	}
	return matched
}

// Supplement runs a small on-demand extraction for one category, capped at
// SupplementPages, skipping pages already cached. Used by lookup misses.
func (o *Orchestrator) Supplement(ctx context.Context, src source.DocumentSource, category models.Category, limit int) ([]*models.CacheEntry, error) {
	if limit <= 0 || limit > o.supplementPages {
		limit = o.supplementPages
	}
	pageCount := src.PageCount()
	if pageCount <= 0 {
		return nil, models.ErrDocumentUnreadable
	}

	candidates := o.supplementCandidates(ctx, src, category, pageCount)
	runCtx, cancel := context.WithTimeout(ctx, o.overallTimeout)
	defer cancel()

	var entries []*models.CacheEntry
	for _, index := range candidates {
		if len(entries) >= limit {
			break
		}
		if o.cache != nil {
			if _, err := o.cache.Get(runCtx, src.ID(), index); err == nil {
				continue
			}
		}
		outcome := o.extractOnePage(runCtx, src, index, category)
		if outcome == nil {
			break
		}
		if outcome.failure != "" {
			continue
		}
		entry := &models.CacheEntry{
			DocumentID:  src.ID(),
			PageIndex:   index,
			Category:    category,
			Content:     outcome.text,
			Confidence:  outcome.confidence,
			Keywords:    o.entryKeywords(nil, outcome.text),
			ProcessedAt: time.Now(),
		}
		if o.cache != nil {
			if err := o.cache.Put(runCtx, entry); err != nil {
				o.logger.Warn("cache put failed", zap.String("key", entry.Key()), zap.Error(err))
			}
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, models.ErrCacheMiss
	}
	return entries, nil
}

// supplementCandidates orders pages by their score for the requested
// category, falling back to all pages in document order when nothing scores.
func (o *Orchestrator) supplementCandidates(ctx context.Context, src source.DocumentSource, category models.Category, pageCount int) []int {
	texts := o.extractNative(ctx, src, pageCount)
	type candidate struct {
		index int
		score float64
	}
	var scored []candidate
	for _, ps := range o.scorer.ScorePages(texts) {
		if s, ok := ps.ByCategory[category]; ok {
			scored = append(scored, candidate{ps.Index, s})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].index < scored[j].index
	})
	if len(scored) > 0 {
		indices := make([]int, len(scored))
		for i, c := range scored {
			indices[i] = c.index
		}
		return indices
	}
	indices := make([]int, pageCount)
	for i := range indices {
		indices[i] = i + 1
	}
	return indices
}
