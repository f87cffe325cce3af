package search

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

const (
	defaultMaxRetries = 20
	defaultBackoffCap = 600 * time.Second
)

// searchSleepFunc waits between failed attempts (injectable for tests)
var searchSleepFunc = sleepContext

// searchSeedFunc returns the first backoff interval in seconds (injectable for tests)
var searchSeedFunc = func() float64 {
	return 1 + rand.Float64()*9
}

// Backoff is the retry policy for transport failures. The first failure waits a
// random 1-10s seed; every later failure doubles the previous wait up to Cap.
type Backoff struct {
	MaxRetries int
	Cap        time.Duration
}

// DefaultBackoff returns the policy used when none is configured
func DefaultBackoff() Backoff {
	return Backoff{MaxRetries: defaultMaxRetries, Cap: defaultBackoffCap}
}

func (b Backoff) withDefaults() Backoff {
	if b.MaxRetries <= 0 {
		b.MaxRetries = defaultMaxRetries
	}
	if b.Cap <= 0 {
		b.Cap = defaultBackoffCap
	}
	return b
}

// next returns the wait after a failure given the previous wait (0 before the first)
func (b Backoff) next(prev time.Duration) time.Duration {
	var d time.Duration
	if prev == 0 {
		d = time.Duration(searchSeedFunc() * float64(time.Second))
	} else {
		d = prev * 2
	}
	if d > b.Cap {
		d = b.Cap
	}
	return d
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

// doWithRetry sends the request built by newRequest until a response arrives.
// Only transport errors are retried; a response of any status is returned to
// the caller, which owns its body.
func doWithRetry(ctx context.Context, client *http.Client, kind Kind, policy Backoff, newRequest func(context.Context) (*http.Request, error)) (*http.Response, error) {
	policy = policy.withDefaults()

	var lastErr error
	var wait time.Duration
	for attempt := 1; attempt <= policy.MaxRetries; attempt++ {
		req, err := newRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil {
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr = err
		searchRetries.WithLabelValues(string(kind)).Inc()
		if attempt == policy.MaxRetries {
			break
		}

		wait = policy.next(wait)
		if err := searchSleepFunc(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%s: %w after %d attempts: %w", kind, ErrExhaustedRetries, policy.MaxRetries, lastErr)
}

// checkStatus turns a 4xx/5xx response into an HTTPStatusError
func checkStatus(kind Kind, resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &HTTPStatusError{
		Provider:   kind,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}
