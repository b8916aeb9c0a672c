package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenbackend/internal/logger"
)

// fakeProvider fails a fixed number of times before succeeding.
type fakeProvider struct {
	failures int
	calls    int
	lastSys  string
	lastUser string
}

func (p *fakeProvider) Generate(ctx context.Context, systemInstructions, userContent string) (string, error) {
	p.calls++
	p.lastSys = systemInstructions
	p.lastUser = userContent
	if p.calls <= p.failures {
		return "", fmt.Errorf("upstream 503 (call %d)", p.calls)
	}
	return "generated text", nil
}

// newTestClient wires a recording sleeper so tests assert the schedule
// without real waits.
func newTestClient(provider CompletionProvider, policy RetryPolicy) (*Client, *[]time.Duration) {
	client := NewClient(provider, policy, logger.NewNop())
	var slept []time.Duration
	client.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return client, &slept
}

func TestCompleteSucceedsFirstAttempt(t *testing.T) {
	provider := &fakeProvider{}
	client, slept := newTestClient(provider, DefaultRetryPolicy())

	text, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
	assert.Equal(t, 1, provider.calls)
	assert.Empty(t, *slept)
}

func TestCompleteRetriesWithDoublingBackoff(t *testing.T) {
	provider := &fakeProvider{failures: 4}
	client, slept := newTestClient(provider, DefaultRetryPolicy())

	text, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
	assert.Equal(t, 5, provider.calls)
	assert.Equal(t, []time.Duration{
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}, *slept)
}

func TestCompleteExhaustsRetries(t *testing.T) {
	provider := &fakeProvider{failures: 100}
	client, slept := newTestClient(provider, DefaultRetryPolicy())

	_, err := client.Complete(context.Background(), "system", "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhaustedRetries)
	assert.Contains(t, err.Error(), "upstream 503 (call 5)")
	// Exactly 5 attempts, no 6th, and no sleep after the final failure.
	assert.Equal(t, 5, provider.calls)
	assert.Len(t, *slept, 4)
}

func TestCompleteProviderUnavailable(t *testing.T) {
	client := NewClient(nil, DefaultRetryPolicy(), logger.NewNop())

	_, err := client.Complete(context.Background(), "system", "user")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCompleteProviderUnavailableNeverCallsProvider(t *testing.T) {
	// Even with a provider-shaped fake lying around, a client built
	// without one must short-circuit.
	provider := &fakeProvider{}
	client := NewClient(nil, DefaultRetryPolicy(), logger.NewNop())

	_, err := client.Complete(context.Background(), "system", "user")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 0, provider.calls)
}

func TestCompleteAbortsBackoffOnCancel(t *testing.T) {
	provider := &fakeProvider{failures: 100}
	client := NewClient(provider, DefaultRetryPolicy(), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "system", "user")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, provider.calls)
}

func TestCompleteNilLoggerDoesNotBlockRetries(t *testing.T) {
	provider := &fakeProvider{failures: 1}
	client := NewClient(provider, RetryPolicy{MaxAttempts: 3, BaseDelay: 0, Multiplier: 2}, nil)

	text, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "generated text", text)
	assert.Equal(t, 2, provider.calls)
}

func TestTransientErrorUnwraps(t *testing.T) {
	underlying := errors.New("rate limited")
	terr := &TransientError{Attempt: 3, Err: underlying}
	assert.ErrorIs(t, terr, underlying)
	assert.Contains(t, terr.Error(), "attempt 3")
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 5, policy.MaxAttempts)
	assert.Equal(t, 2*time.Second, policy.BaseDelay)
	assert.Equal(t, float64(2), policy.Multiplier)
}
