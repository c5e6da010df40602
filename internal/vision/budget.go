package vision

import (
	"sync"

	"github.com/hyperjump/decklens/internal/models"
)

// Budget is the shared cost counter for vision calls. Calls reserve before
// dialing out; a reservation that would exceed either ceiling is refused
// up-front with models.ErrBudgetExceeded, without making the external call.
//
// A mutex guards the counters even though calls are normally serialized, so
// raising the worker concurrency to 2 needs no correctness change here.
type Budget struct {
	mu        sync.Mutex
	maxCalls  int
	maxTokens int
	calls     int
	tokens    int
}

// NewBudget creates a budget. A zero ceiling means unlimited for that axis.
func NewBudget(maxCalls, maxTokens int) *Budget {
	return &Budget{maxCalls: maxCalls, maxTokens: maxTokens}
}

// Reserve claims one call slot. Returns models.ErrBudgetExceeded when either
// the call ceiling is reached or the token ceiling is already spent.
func (b *Budget) Reserve() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.maxCalls > 0 && b.calls >= b.maxCalls {
		return models.ErrBudgetExceeded
	}
	if b.maxTokens > 0 && b.tokens >= b.maxTokens {
		return models.ErrBudgetExceeded
	}
	b.calls++
	return nil
}

// Release returns a reserved slot whose call should not count against the
// ceiling (cancelled or rate-limited before dialing out, or abandoned after
// backend failure). Timed-out calls are not released; they went out.
func (b *Budget) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.calls > 0 {
		b.calls--
	}
}

// Commit records the token cost of a completed call.
func (b *Budget) Commit(tokens int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens += tokens
}

// Spent returns the calls made and tokens consumed so far.
func (b *Budget) Spent() (calls, tokens int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls, b.tokens
}
