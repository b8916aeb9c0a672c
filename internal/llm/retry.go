package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/havenbackend/internal/logger"
)

var (
	// ErrProviderUnavailable means no completion provider was configured,
	// typically because the API key was missing at startup. Never retried.
	ErrProviderUnavailable = errors.New("completion provider is not configured")

	// ErrExhaustedRetries means every attempt in the retry budget failed.
	ErrExhaustedRetries = errors.New("completion retries exhausted")
)

// TransientError records a single failed attempt inside the retry loop.
type TransientError struct {
	Attempt int
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("completion attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// RetryPolicy makes the retry schedule an explicit value instead of
// constants buried in the loop. Tests inject a zero-delay policy.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy is the production schedule: delays of 2s, 4s, 8s and
// 16s between the five attempts, no jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		Multiplier:  2,
	}
}

// Client wraps a CompletionProvider in the retry policy. It holds no
// mutable state, so a single client may serve concurrent calls.
type Client struct {
	provider CompletionProvider
	policy   RetryPolicy
	log      *logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewClient builds a retrying client around the provider. A nil provider is
// allowed and makes every Complete call fail with ErrProviderUnavailable.
func NewClient(provider CompletionProvider, policy RetryPolicy, log *logger.Logger) *Client {
	return &Client{
		provider: provider,
		policy:   policy,
		log:      log,
		sleep:    sleepContext,
	}
}

// Complete issues the generation call, retrying per the policy. It returns
// the generated text, ErrProviderUnavailable when no provider is configured,
// or ErrExhaustedRetries (wrapping the last attempt's error) once the budget
// is spent. Backoff waits abort early if the context is cancelled.
func (c *Client) Complete(ctx context.Context, systemInstructions, userContent string) (string, error) {
	if c.provider == nil {
		return "", ErrProviderUnavailable
	}

	var lastErr error
	delay := c.policy.BaseDelay
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		text, err := c.provider.Generate(ctx, systemInstructions, userContent)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.reportAttemptFailure(attempt, err)

		if attempt == c.policy.MaxAttempts {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("completion backoff interrupted: %w", err)
		}
		delay = time.Duration(float64(delay) * c.policy.Multiplier)
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrExhaustedRetries, c.policy.MaxAttempts, lastErr)
}

// reportAttemptFailure feeds the observability hook. A broken hook must
// never take down the retry loop.
func (c *Client) reportAttemptFailure(attempt int, err error) {
	defer func() { _ = recover() }()
	if c.log == nil {
		return
	}
	terr := &TransientError{Attempt: attempt, Err: err}
	c.log.Warn("completion attempt failed",
		"attempt", attempt,
		"max_attempts", c.policy.MaxAttempts,
		"error", terr.Error(),
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
