// Package upstream classifies failures of third-party HTTP APIs.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	// ErrUpstream means the provider answered with an error or garbage.
	ErrUpstream = errors.New("upstream service error")
	// ErrUnavailable means the circuit breaker is rejecting calls.
	ErrUnavailable = errors.New("upstream service unavailable")
)

// StatusError carries a non-2xx response from a provider.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Service, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUpstream
}

// Classify maps breaker rejections to ErrUnavailable and anything else not
// already classified to ErrUpstream.
func Classify(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, service, err)
	}
	if errors.Is(err, ErrUpstream) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrUpstream, service, err)
}

// NewHTTPClient returns a client whose transport is traced with otelhttp.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
