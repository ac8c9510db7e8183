// Package httpengine is the single outbound transport for all provider
// calls. It applies per-attempt timeouts, a closed retry classification with
// exponential backoff, a shared rate limiter, and an optional per-service
// circuit breaker.
package httpengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/doc2md/doc2md/internal/core/domain"
)

// Config carries the transport knobs; zero values fall back to defaults.
type Config struct {
	RequestTimeout time.Duration
	RetryMax       int
	RetryBase      time.Duration
	RateLimit      float64
	BreakerEnabled bool
}

func (c Config) normalize() Config {
	out := c
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = 30 * time.Second
	}
	if out.RetryMax < 0 {
		out.RetryMax = 0
	}
	if out.RetryBase <= 0 {
		out.RetryBase = 300 * time.Millisecond
	}
	if out.RateLimit <= 0 {
		out.RateLimit = 4
	}
	return out
}

type Engine struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger

	// sleep is swapped out by tests to record the backoff schedule.
	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[json.RawMessage]
}

func New(cfg Config, log *slog.Logger) *Engine {
	cfg = cfg.normalize()
	return &Engine{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		log:      log,
		sleep:    sleepCtx,
		breakers: make(map[string]*gobreaker.CircuitBreaker[json.RawMessage]),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PostJSON sends one JSON request and returns the parsed body of the first
// successful attempt. Retries happen only for positively classified
// transient failures; any other outcome surfaces immediately.
func (e *Engine) PostJSON(ctx context.Context, service, url string, header http.Header, payload any, traceID string) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize %s request: %w", service, err)
	}

	if !e.cfg.BreakerEnabled {
		return e.postWithRetry(ctx, service, url, header, body, traceID)
	}

	breaker := e.circuitBreaker(service)
	return breaker.Execute(func() (json.RawMessage, error) {
		return e.postWithRetry(ctx, service, url, header, body, traceID)
	})
}

func (e *Engine) postWithRetry(ctx context.Context, service, url string, header http.Header, body []byte, traceID string) (json.RawMessage, error) {
	var lastErr error

	for attempt := 0; attempt <= e.cfg.RetryMax; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		started := time.Now()
		parsed, err := e.postOnce(ctx, service, url, header, body, traceID, attempt, started)
		if err == nil {
			return parsed, nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == e.cfg.RetryMax {
			return nil, err
		}

		delay := e.backoff(attempt)
		e.log.Warn("transient_retry",
			"service", service,
			"url", url,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"trace_id", traceID,
			"error", err,
		)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

func (e *Engine) postOnce(ctx context.Context, service, url string, header http.Header, body []byte, traceID string, attempt int, started time.Time) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", service, err)
	}
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Warn("http_transport_error",
			"service", service,
			"url", url,
			"attempt", attempt,
			"latency_ms", time.Since(started).Milliseconds(),
			"trace_id", traceID,
			"error", err,
		)
		return nil, classifyTransportError(ctx, service, err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, service, fmt.Errorf("read %s response body: %w", service, err))
	}

	e.log.Info("http_response",
		"service", service,
		"url", url,
		"status", resp.StatusCode,
		"attempt", attempt,
		"latency_ms", time.Since(started).Milliseconds(),
		"trace_id", traceID,
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if !json.Valid(text) {
			return nil, domain.WrapError(domain.ErrAPIContract, service,
				fmt.Errorf("invalid JSON in %d response", resp.StatusCode))
		}
		return json.RawMessage(text), nil
	}

	return nil, &StatusError{
		Service: service,
		Status:  resp.StatusCode,
		Message: truncateForError(string(text)),
	}
}

func (e *Engine) backoff(attempt int) time.Duration {
	return e.cfg.RetryBase << uint(attempt)
}

func (e *Engine) circuitBreaker(service string) *gobreaker.CircuitBreaker[json.RawMessage] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if breaker, ok := e.breakers[service]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        service,
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		IsSuccessful: func(err error) bool {
			// Only positively transient failures count against the breaker.
			return err == nil || !isRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.log.Warn("circuit_breaker_state_change", "service", name, "from", from.String(), "to", to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[json.RawMessage](settings)
	e.breakers[service] = breaker
	return breaker
}

// SetSleepForTest replaces the backoff sleeper; tests use it to record the
// retry schedule without waiting.
func (e *Engine) SetSleepForTest(sleep func(ctx context.Context, d time.Duration) error) {
	e.sleep = sleep
}
