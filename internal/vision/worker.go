package vision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/decklens/internal/models"
)

// WorkerConfig holds extraction worker settings.
type WorkerConfig struct {
	// PageTimeout bounds each vision call independently of the overall
	// pipeline timeout. Default: "5s".
	PageTimeout string `yaml:"page_timeout"`
	// MaxRetries is how many times a failed call is retried (timeouts are not
	// retried; the page degrades instead). Default: 1.
	MaxRetries int `yaml:"max_retries"`
	// Concurrency caps in-flight calls toward the backend. This is a hard
	// invariant: excessive concurrent connections to the backend cause
	// cascading connection-pool failures. Default: 1; keep it at 1-2.
	Concurrency int `yaml:"concurrency"`
	// RatePerMinute additionally rate-limits calls. 0 disables.
	RatePerMinute int `yaml:"rate_per_minute"`
}

// ApplyDefaults fills in zero values with defaults.
func (c *WorkerConfig) ApplyDefaults() {
	if c.PageTimeout == "" {
		c.PageTimeout = "5s"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 1
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
}

// Worker runs vision extractions with per-page timeout, retry, budget
// reservation, rate limiting, and capped concurrency toward the backend.
// All call sites share this wrapper; there is no per-component retry logic.
type Worker struct {
	backend     Backend
	budget      *Budget
	sem         chan struct{}
	limiter     *rate.Limiter
	pageTimeout time.Duration
	maxRetries  int
	logger      *zap.Logger
}

// NewWorker creates a Worker. A nil budget means unlimited.
func NewWorker(backend Backend, budget *Budget, cfg WorkerConfig, logger *zap.Logger) (*Worker, error) {
	cfg.ApplyDefaults()
	timeout, err := time.ParseDuration(cfg.PageTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid page_timeout %q: %w", cfg.PageTimeout, err)
	}
	if budget == nil {
		budget = NewBudget(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter *rate.Limiter
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RatePerMinute)/60.0), 1)
	}
	return &Worker{
		backend:     backend,
		budget:      budget,
		sem:         make(chan struct{}, cfg.Concurrency),
		limiter:     limiter,
		pageTimeout: timeout,
		maxRetries:  cfg.MaxRetries,
		logger:      logger,
	}, nil
}

// Budget returns the shared budget counter.
func (w *Worker) Budget() *Budget { return w.budget }

// PageTimeout returns the per-page timeout.
func (w *Worker) PageTimeout() time.Duration { return w.pageTimeout }

// ExtractPage runs one vision extraction. Returns:
//   - models.ErrBudgetExceeded (wrapped) when the budget refuses the call up-front
//   - models.ErrPageTimeout (wrapped) when the per-page timeout elapses; the
//     timed-out call still counts against the call ceiling
//   - models.ErrPageExtraction (wrapped) on backend failure after retries
func (w *Worker) ExtractPage(ctx context.Context, req *Request) (*Result, error) {
	if err := w.budget.Reserve(); err != nil {
		return nil, fmt.Errorf("vision call refused: %w", err)
	}

	select {
	case w.sem <- struct{}{}:
		defer func() { <-w.sem }()
	case <-ctx.Done():
		w.budget.Release()
		return nil, ctx.Err()
	}

	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			w.budget.Release()
			return nil, err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if ctx.Err() != nil {
			w.budget.Release()
			return nil, ctx.Err()
		}
		callCtx, cancel := context.WithTimeout(ctx, w.pageTimeout)
		res, err := w.backend.Extract(callCtx, req)
		cancel()
		if err == nil {
			w.budget.Commit(res.TokensUsed)
			return res, nil
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			// Per-page timeout: give up on this page, do not retry. The call
			// went out and stays counted against the call ceiling, so a
			// flapping backend cannot burn unbounded real calls.
			return nil, fmt.Errorf("vision backend %s after %s: %w", w.backend.Name(), w.pageTimeout, models.ErrPageTimeout)
		}
		lastErr = err
		w.logger.Warn("vision extraction attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	w.budget.Release()
	return nil, fmt.Errorf("vision backend %s: %v: %w", w.backend.Name(), lastErr, models.ErrPageExtraction)
}
