package vision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyperjump/decklens/internal/models"
)

func testRequest() *Request {
	return &Request{Data: []byte("payload"), MediaType: "image/png", Prompt: "extract"}
}

func TestWorker_Success(t *testing.T) {
	mock := NewMockBackend()
	w, err := NewWorker(mock, nil, WorkerConfig{}, nil)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	res, err := w.ExtractPage(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("ExtractPage: %v", err)
	}
	if res.Text != "mock extracted text" {
		t.Errorf("Text=%q", res.Text)
	}
	calls, tokens := w.Budget().Spent()
	if calls != 1 || tokens != 100 {
		t.Errorf("Spent=(%d,%d), want (1,100)", calls, tokens)
	}
}

func TestWorker_PageTimeoutNotRetried(t *testing.T) {
	mock := NewMockBackend()
	mock.Delay = 200 * time.Millisecond
	w, err := NewWorker(mock, nil, WorkerConfig{PageTimeout: "20ms", MaxRetries: 3}, nil)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	_, err = w.ExtractPage(context.Background(), testRequest())
	if !errors.Is(err, models.ErrPageTimeout) {
		t.Fatalf("err=%v, want ErrPageTimeout", err)
	}
	if mock.Calls() != 1 {
		t.Errorf("backend called %d times, timeouts must not be retried", mock.Calls())
	}
	calls, tokens := w.Budget().Spent()
	if calls != 1 || tokens != 0 {
		t.Errorf("Spent=(%d,%d), want (1,0): the timed-out call went out and counts", calls, tokens)
	}
}

func TestWorker_TimeoutsConsumeCallBudget(t *testing.T) {
	mock := NewMockBackend()
	mock.Delay = 200 * time.Millisecond
	budget := NewBudget(2, 0)
	w, err := NewWorker(mock, budget, WorkerConfig{PageTimeout: "20ms"}, nil)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := w.ExtractPage(context.Background(), testRequest()); !errors.Is(err, models.ErrPageTimeout) {
			t.Fatalf("call %d: err=%v, want ErrPageTimeout", i+1, err)
		}
	}
	_, err = w.ExtractPage(context.Background(), testRequest())
	if !errors.Is(err, models.ErrBudgetExceeded) {
		t.Fatalf("err=%v, want ErrBudgetExceeded once timeouts spent the ceiling", err)
	}
	if mock.Calls() != 2 {
		t.Errorf("backend called %d times, want 2", mock.Calls())
	}
}

func TestWorker_FailureRetriedThenWrapped(t *testing.T) {
	mock := NewMockBackend()
	mock.Err = errors.New("backend unavailable")
	w, err := NewWorker(mock, nil, WorkerConfig{MaxRetries: 2}, nil)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	_, err = w.ExtractPage(context.Background(), testRequest())
	if !errors.Is(err, models.ErrPageExtraction) {
		t.Fatalf("err=%v, want ErrPageExtraction", err)
	}
	if mock.Calls() != 3 {
		t.Errorf("backend called %d times, want 3 (initial + 2 retries)", mock.Calls())
	}
}

func TestWorker_BudgetRefusal(t *testing.T) {
	mock := NewMockBackend()
	budget := NewBudget(1, 0)
	w, err := NewWorker(mock, budget, WorkerConfig{}, nil)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	if _, err := w.ExtractPage(context.Background(), testRequest()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err = w.ExtractPage(context.Background(), testRequest())
	if !errors.Is(err, models.ErrBudgetExceeded) {
		t.Fatalf("err=%v, want ErrBudgetExceeded", err)
	}
	if mock.Calls() != 1 {
		t.Errorf("backend called %d times, refused call must not reach it", mock.Calls())
	}
}

func TestWorker_CancelledContext(t *testing.T) {
	mock := NewMockBackend()
	w, err := NewWorker(mock, nil, WorkerConfig{}, nil)
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.ExtractPage(ctx, testRequest()); !errors.Is(err, context.Canceled) {
		t.Errorf("err=%v, want context.Canceled", err)
	}
	calls, _ := w.Budget().Spent()
	if calls != 0 {
		t.Errorf("budget shows %d calls after cancelled run", calls)
	}
}

func TestWorker_InvalidTimeout(t *testing.T) {
	if _, err := NewWorker(NewMockBackend(), nil, WorkerConfig{PageTimeout: "bogus"}, nil); err == nil {
		t.Error("expected error for unparseable page_timeout")
	}
}
