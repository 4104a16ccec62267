package embedding

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultAttempts is the default number of embedding attempts per text.
	DefaultAttempts = 3

	// DefaultBackoff is the wait before the first retry; it doubles on each retry.
	DefaultBackoff = 500 * time.Millisecond
)

// Retrying wraps a Provider with bounded retries, exponential backoff and an
// optional request rate limit. Exhausted or permanent failures are returned as *Error.
type Retrying struct {
	provider Provider
	attempts int
	backoff  time.Duration
	limiter  *rate.Limiter
	sleep    func(ctx context.Context, d time.Duration) error
}

// RetryOption configures a Retrying provider.
type RetryOption func(*Retrying)

// WithAttempts sets the maximum number of attempts (at least 1).
func WithAttempts(n int) RetryOption {
	return func(r *Retrying) {
		if n > 0 {
			r.attempts = n
		}
	}
}

// WithBackoff sets the initial backoff between attempts.
func WithBackoff(d time.Duration) RetryOption {
	return func(r *Retrying) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

// WithRateLimit limits requests to perSecond, with bursts of one.
// Zero or negative disables limiting.
func WithRateLimit(perSecond float64) RetryOption {
	return func(r *Retrying) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			r.limiter = nil
		}
	}
}

// NewRetrying wraps provider with retry behavior.
func NewRetrying(provider Provider, opts ...RetryOption) *Retrying {
	r := &Retrying{
		provider: provider,
		attempts: DefaultAttempts,
		backoff:  DefaultBackoff,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Embed generates an embedding, retrying transient failures.
func (r *Retrying) Embed(ctx context.Context, text string) (Embedding, error) {
	var lastErr error
	attempt := 0
	for attempt < r.attempts {
		attempt++

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}

		emb, err := r.provider.Embed(ctx, text)
		if err == nil {
			return emb, nil
		}
		lastErr = err

		if IsPermanent(err) || ctx.Err() != nil || attempt == r.attempts {
			break
		}
		if err := r.sleep(ctx, r.backoff<<(attempt-1)); err != nil {
			lastErr = err
			break
		}
	}

	return Embedding{}, &Error{Model: r.provider.ModelName(), Attempts: attempt, Err: lastErr}
}

// ModelName returns the name of the wrapped embedding model.
func (r *Retrying) ModelName() string {
	return r.provider.ModelName()
}

// Dimensions returns the wrapped provider's vector dimensions.
func (r *Retrying) Dimensions() int {
	return r.provider.Dimensions()
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
