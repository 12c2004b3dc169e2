// retry/policy.go

// Package retry decides whether a failed model invocation is attempted
// again and how long the dispatcher waits before doing so.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
)

const (
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second
	DefaultBackoffMax = 600 * time.Second
)

// Policy is an exponential-backoff-with-full-jitter retry policy.
type Policy struct {
	MaxRetries int
	BaseFactor time.Duration
	MaxDelay   time.Duration
	Jitter     bool

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPolicy returns a policy; non-positive values fall back to the defaults.
func NewPolicy(maxRetries int, baseFactor, maxDelay time.Duration, jitter bool) *Policy {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseFactor <= 0 {
		baseFactor = DefaultBackoff
	}
	if maxDelay <= 0 {
		maxDelay = DefaultBackoffMax
	}
	return &Policy{
		MaxRetries: maxRetries,
		BaseFactor: baseFactor,
		MaxDelay:   maxDelay,
		Jitter:     jitter,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSeed makes the jitter sequence reproducible.
func (p *Policy) WithSeed(seed int64) *Policy {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rnd = rand.New(rand.NewSource(seed))
	return p
}

// Ceiling returns min(maxDelay, baseFactor * 2^attempt).
func Ceiling(attempt int, baseFactor, maxDelay time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if baseFactor <= 0 {
		return 0
	}
	// 2^attempt overflows int64 nanoseconds long before attempt reaches 63.
	scaled := float64(baseFactor) * math.Pow(2, float64(attempt))
	if scaled >= float64(maxDelay) || math.IsInf(scaled, 1) {
		return maxDelay
	}
	return time.Duration(scaled)
}

// NextDelay returns the wait before retry number attempt (0 on the first
// retry). With jitter the delay is drawn uniformly from [0, Ceiling].
func (p *Policy) NextDelay(attempt int) time.Duration {
	ceiling := Ceiling(attempt, p.BaseFactor, p.MaxDelay)
	if !p.Jitter || ceiling <= 0 {
		return ceiling
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rnd == nil {
		p.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return time.Duration(p.rnd.Int63n(int64(ceiling) + 1))
}

// IsRetryable classifies err. Malformed input, out of range, type mismatch,
// resource exhaustion and encoding errors are permanent; everything else,
// including timeouts and unclassified errors, may be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var execErr *gate_errors.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Retryable()
	}
	if errors.Is(err, gate_errors.ErrModelNotFound) {
		return false
	}
	return true
}

// ShouldRetry reports whether a job that has already been retried
// `retries` times may be retried again after failing with err.
func (p *Policy) ShouldRetry(err error, retries int) bool {
	return IsRetryable(err) && retries < p.MaxRetries
}

// Wait blocks for d or until ctx is done.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
