package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
	"github.com/dev-mohitbeniwal/modelgate/retry"
)

func TestCeiling(t *testing.T) {
	base := 100 * time.Millisecond
	max := 2 * time.Second

	assert.Equal(t, 100*time.Millisecond, retry.Ceiling(0, base, max))
	assert.Equal(t, 200*time.Millisecond, retry.Ceiling(1, base, max))
	assert.Equal(t, 800*time.Millisecond, retry.Ceiling(3, base, max))
	assert.Equal(t, max, retry.Ceiling(5, base, max))
	assert.Equal(t, max, retry.Ceiling(200, base, max))
	assert.Equal(t, 100*time.Millisecond, retry.Ceiling(-4, base, max))
}

func TestNextDelay_WithinBound(t *testing.T) {
	p := retry.NewPolicy(3, 50*time.Millisecond, 3*time.Second, true).WithSeed(7)

	for attempt := 0; attempt < 12; attempt++ {
		bound := retry.Ceiling(attempt, p.BaseFactor, p.MaxDelay)
		for i := 0; i < 200; i++ {
			d := p.NextDelay(attempt)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.LessOrEqual(t, d, bound, "attempt %d", attempt)
		}
	}
}

func TestNextDelay_WithoutJitter(t *testing.T) {
	p := retry.NewPolicy(3, time.Second, 600*time.Second, false)

	assert.Equal(t, time.Second, p.NextDelay(0))
	assert.Equal(t, 2*time.Second, p.NextDelay(1))
	assert.Equal(t, 4*time.Second, p.NextDelay(2))
	assert.Equal(t, 600*time.Second, p.NextDelay(20))
}

func TestIsRetryable(t *testing.T) {
	permanent := []gate_errors.ErrorKind{
		gate_errors.KindMalformedInput,
		gate_errors.KindOutOfRange,
		gate_errors.KindTypeMismatch,
		gate_errors.KindResourceExhausted,
		gate_errors.KindEncoding,
	}
	for _, kind := range permanent {
		err := gate_errors.NewExecutionError(kind, "boom")
		assert.False(t, retry.IsRetryable(err), string(kind))
		assert.False(t, retry.IsRetryable(fmt.Errorf("wrapped: %w", err)), string(kind))
	}

	transient := []gate_errors.ErrorKind{
		gate_errors.KindTransient,
		gate_errors.KindTimeout,
		gate_errors.KindInternal,
	}
	for _, kind := range transient {
		assert.True(t, retry.IsRetryable(gate_errors.NewExecutionError(kind, "boom")), string(kind))
	}

	assert.True(t, retry.IsRetryable(errors.New("connection reset")))
	assert.False(t, retry.IsRetryable(gate_errors.ErrModelNotFound))
	assert.False(t, retry.IsRetryable(nil))
}

func TestShouldRetry(t *testing.T) {
	p := retry.NewPolicy(2, time.Millisecond, time.Second, true)
	transient := gate_errors.NewExecutionError(gate_errors.KindTransient, "flaky")

	assert.True(t, p.ShouldRetry(transient, 0))
	assert.True(t, p.ShouldRetry(transient, 1))
	assert.False(t, p.ShouldRetry(transient, 2))
	assert.False(t, p.ShouldRetry(gate_errors.NewExecutionError(gate_errors.KindEncoding, "bad bytes"), 0))
}

func TestWait(t *testing.T) {
	assert.NoError(t, retry.Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, retry.Wait(ctx, time.Hour), context.Canceled)
}
