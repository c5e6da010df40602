package vision

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockBackend is a deterministic Backend for tests and offline development.
// It returns canned results keyed by prompt substring, with an optional fixed
// delay and error injection.
type MockBackend struct {
	mu sync.Mutex
	// Response is returned when no keyed response matches.
	Response *Result
	// Responses maps a prompt substring to a canned result.
	Responses map[string]*Result
	// Err, when set, is returned from every call.
	Err error
	// Delay is applied before responding, honoring ctx cancellation.
	Delay time.Duration

	calls int
}

// NewMockBackend returns a mock that answers every request with fixed text.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Response: &Result{Text: "mock extracted text", Confidence: 0.9, TokensUsed: 100},
	}
}

// Name returns the backend name.
func (m *MockBackend) Name() string { return "mock" }

// Calls returns how many extractions were attempted.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Extract returns the canned result for the request.
func (m *MockBackend) Extract(ctx context.Context, req *Request) (*Result, error) {
	m.mu.Lock()
	m.calls++
	delay, err := m.Delay, m.Err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for substr, res := range m.Responses {
		if substr != "" && strings.Contains(req.Prompt, substr) {
			return res, nil
		}
	}
	if m.Response != nil {
		return m.Response, nil
	}
	return &Result{Text: "", Confidence: 0}, nil
}
