package httpengine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/doc2md/doc2md/internal/core/domain"
)

func testEngine(t *testing.T, cfg Config) (*Engine, *[]time.Duration) {
	t.Helper()
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 10_000
	}
	engine := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var delays []time.Duration
	engine.SetSleepForTest(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	})
	return engine, &delays
}

func TestRetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	base := 300 * time.Millisecond
	engine, delays := testEngine(t, Config{RetryMax: 2, RetryBase: base})

	raw, err := engine.PostJSON(context.Background(), "svc", server.URL, nil, map[string]any{"a": 1}, "trace")
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || !parsed.OK {
		t.Fatalf("unexpected parsed body %s (err %v)", raw, err)
	}
	if calls.Load() != 3 {
		t.Fatalf("server saw %d calls, want 3", calls.Load())
	}
	if len(*delays) != 2 || (*delays)[0] != base || (*delays)[1] != 2*base {
		t.Fatalf("backoff schedule = %v, want [%v %v]", *delays, base, 2*base)
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	engine, delays := testEngine(t, Config{RetryMax: 3, RetryBase: time.Millisecond})

	_, err := engine.PostJSON(context.Background(), "svc", server.URL, nil, nil, "trace")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusBadRequest {
		t.Fatalf("error = %v, want StatusError with 400", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("server saw %d calls, want 1", calls.Load())
	}
	if len(*delays) != 0 {
		t.Fatalf("recorded backoffs %v, want none", *delays)
	}
}

func TestRateLimitStatusIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	engine, _ := testEngine(t, Config{RetryMax: 1, RetryBase: time.Millisecond})

	if _, err := engine.PostJSON(context.Background(), "svc", server.URL, nil, nil, "trace"); err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("server saw %d calls, want 2", calls.Load())
	}
}

func TestNonJSONSuccessBodyIsContractViolation(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	engine, delays := testEngine(t, Config{RetryMax: 2, RetryBase: time.Millisecond})

	_, err := engine.PostJSON(context.Background(), "svc", server.URL, nil, nil, "trace")
	if !domain.IsKind(err, domain.ErrAPIContract) {
		t.Fatalf("error = %v, want ErrAPIContract kind", err)
	}
	if calls.Load() != 1 || len(*delays) != 0 {
		t.Fatalf("contract violation was retried: calls=%d backoffs=%v", calls.Load(), *delays)
	}
}

func TestExhaustionSurfacesLastStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine, delays := testEngine(t, Config{RetryMax: 2, RetryBase: time.Millisecond})

	_, err := engine.PostJSON(context.Background(), "svc", server.URL, nil, nil, "trace")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want StatusError with 503", err)
	}
	if len(*delays) != 2 {
		t.Fatalf("recorded %d backoffs, want 2", len(*delays))
	}
}

func TestOversizedErrorBodyIsTruncated(t *testing.T) {
	// Multi-byte runes make sure truncation never splits UTF-8 sequences.
	body := strings.Repeat("界", 1200)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	engine, _ := testEngine(t, Config{RetryMax: 0, RetryBase: time.Millisecond})

	_, err := engine.PostJSON(context.Background(), "svc", server.URL, nil, nil, "trace")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if !strings.HasSuffix(statusErr.Message, "...(truncated)") {
		t.Fatalf("message not truncated: %q", statusErr.Message[:40])
	}
	if got := len([]rune(strings.TrimSuffix(statusErr.Message, "...(truncated)"))); got != errorBodyMaxRunes {
		t.Fatalf("kept %d runes, want %d", got, errorBodyMaxRunes)
	}
	if !strings.Contains(statusErr.Message, "界") || strings.ContainsRune(statusErr.Message, '�') {
		t.Fatalf("truncation damaged UTF-8: %q", statusErr.Message[:20])
	}
}

func TestTransportErrorIsRetriedThenSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	engine, delays := testEngine(t, Config{RetryMax: 2, RetryBase: time.Millisecond})

	_, err := engine.PostJSON(context.Background(), "svc", server.URL, nil, nil, "trace")
	if !domain.IsKind(err, domain.ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient kind", err)
	}
	if len(*delays) != 2 {
		t.Fatalf("recorded %d backoffs, want 2", len(*delays))
	}
}

func TestMarshalFailureSurfacesImmediately(t *testing.T) {
	engine, _ := testEngine(t, Config{RetryMax: 2, RetryBase: time.Millisecond})

	_, err := engine.PostJSON(context.Background(), "svc", "http://unused.invalid", nil, make(chan int), "trace")
	if err == nil || !strings.Contains(err.Error(), "serialize") {
		t.Fatalf("error = %v, want serialize failure", err)
	}
}
