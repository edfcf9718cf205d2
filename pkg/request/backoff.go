package request

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// ProviderBackoff spaces out requests to a provider that recently throttled
// or failed. Each provider (content API, speech engine, LLM) is tracked on
// its own.
type ProviderBackoff struct {
	mu        sync.Mutex
	providers map[string]*backoffState
	baseDelay time.Duration
	maxDelay  time.Duration
}

type backoffState struct {
	failures    int
	nextAllowed time.Time
}

// NewProviderBackoff creates a backoff manager.
func NewProviderBackoff(baseDelay, maxDelay time.Duration) *ProviderBackoff {
	return &ProviderBackoff{
		providers: make(map[string]*backoffState),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// Wait blocks until provider may be called again or ctx ends.
func (b *ProviderBackoff) Wait(ctx context.Context, provider string) error {
	_, next := b.GetState(provider)
	d := time.Until(next)
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecordFailure doubles the provider's delay, up to maxDelay.
func (b *ProviderBackoff) RecordFailure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.providers[provider]
	if !ok {
		state = &backoffState{}
		b.providers[provider] = state
	}
	state.failures++
	state.nextAllowed = time.Now().Add(b.delay(state.failures))
}

// RecordSuccess steps the failure count down by one. The delay is cleared
// once it reaches zero.
func (b *ProviderBackoff) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, ok := b.providers[provider]
	if !ok {
		return
	}
	if state.failures > 0 {
		state.failures--
	}
	if state.failures == 0 {
		delete(b.providers, provider)
	}
}

// delay is baseDelay * 2^(failures-1), capped, plus up to 10% jitter.
func (b *ProviderBackoff) delay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	d := time.Duration(float64(b.baseDelay) * math.Pow(2, float64(failures-1)))
	if d > b.maxDelay || d <= 0 {
		d = b.maxDelay
	}
	return d + time.Duration(rand.Float64()*0.1*float64(d))
}

// GetState reports the failure count and the earliest time the next call may go out.
func (b *ProviderBackoff) GetState(provider string) (failures int, nextAllowed time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state, ok := b.providers[provider]; ok {
		return state.failures, state.nextAllowed
	}
	return 0, time.Time{}
}
