package httpengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/doc2md/doc2md/internal/core/domain"
)

const errorBodyMaxRunes = 800

// StatusError is a non-2xx answer from a provider, with the body truncated
// to a bounded length.
type StatusError struct {
	Service string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "api status error"
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("%s API call failed with status %d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s API call failed with status %d: %s", e.Service, e.Status, strings.TrimSpace(e.Message))
}

// Transient reports whether the status is on the retry allow-list: rate
// limiting or a server-side failure. Every other status is final.
func (e *StatusError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// classifyTransportError marks an attempt failure as transient only when it
// is positively identified as a timeout or connection-level fault. Anything
// unrecognized stays non-retryable so permanent failures are never masked.
func classifyTransportError(ctx context.Context, service string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		// The caller gave up; retrying would only fight the context.
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.WrapError(domain.ErrTransient, service, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.WrapError(domain.ErrTransient, service, err)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return domain.WrapError(domain.ErrTransient, service, err)
	}
	return err
}

func isRetryable(err error) bool {
	if domain.IsKind(err, domain.ErrTransient) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	return false
}

// truncateForError bounds oversized error bodies on rune boundaries and
// appends a visible marker.
func truncateForError(content string) string {
	runes := []rune(content)
	if len(runes) <= errorBodyMaxRunes {
		return content
	}
	return string(runes[:errorBodyMaxRunes]) + "...(truncated)"
}
