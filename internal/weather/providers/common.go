package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BackoffConfig controls linear retry backoff. The delay before attempt n+1
// is Base * n, capped at Max when Max > 0.
type BackoffConfig struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig

	// Sleep waits between attempts. Defaults to a context-aware timer;
	// tests inject a recording stub.
	Sleep func(ctx context.Context, d time.Duration) error
}

// StatusError is a non-2xx response from the upstream API.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.Code)
}

var (
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// retryableStatus reports whether a status signals a transient upstream
// condition worth retrying: rate limiting or the usual 5xx gateway set.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// doResilientGet executes the HTTP request with bounded retries, linear
// backoff, and a circuit breaker. Transport errors and retryable statuses are
// retried up to MaxAttempts total attempts; any other non-2xx status fails
// immediately with a StatusError.
func doResilientGet(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxAttempts < 1 || cfg.Backoff.Base <= 0 {
		return nil, errInvalidConfig
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error

	for attempt := 1; attempt <= cfg.Backoff.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, &StatusError{Code: resp.StatusCode}
			}
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !retryableStatus(statusErr.Code) {
			return nil, statusErr
		}

		lastErr = err
		if attempt == cfg.Backoff.MaxAttempts {
			break
		}

		delay := time.Duration(attempt) * cfg.Backoff.Base
		if cfg.Backoff.Max > 0 && delay > cfg.Backoff.Max {
			delay = cfg.Backoff.Max
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", cfg.Backoff.MaxAttempts, lastErr)
}
