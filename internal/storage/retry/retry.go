// Package retry implements the storage engine's bounded exponential-backoff
// retry combinator. It replaces annotation-driven retry and exception-based
// transient detection with an explicit higher-order function over a pure
// error classifier, per the storage contract's re-architecture guidance.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

// Policy configures the retry combinator. The zero value has Enabled false,
// under which Do runs op exactly once; DefaultPolicy returns the enabled
// default preset.
type Policy struct {
	MaxRetries  int
	BaseDelay   time.Duration
	Jitter      time.Duration
	MaxDuration time.Duration
	Enabled     bool
}

// DefaultPolicy matches the storage contract's default preset.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  3,
		BaseDelay:   200 * time.Millisecond,
		Jitter:      100 * time.Millisecond,
		MaxDuration: 30 * time.Second,
		Enabled:     true,
	}
}

// Event is one observed retry attempt, reported to an Observer before the
// delay preceding the next attempt.
type Event struct {
	Operation string
	Attempt   int
	Delay     time.Duration
	ErrorKind storeerr.Kind
}

// Observer receives a structured event before every retried attempt.
type Observer func(Event)

// jitteredBackOff implements the cenkalti/backoff/v5 BackOff interface with
// the contract's exact delay formula: base × 2^attempt, jittered uniformly
// in [-jitter, +jitter]. It reports each computed delay to observe so
// callers can assert on retry telemetry.
type jitteredBackOff struct {
	base      time.Duration
	jitter    time.Duration
	attempt   int
	operation string
	observe   Observer
	lastKind  *storeerr.Kind
}

// Reset returns the backoff to its first-retry delay.
func (b *jitteredBackOff) Reset() { b.attempt = 0 }

func (b *jitteredBackOff) NextBackOff() time.Duration {
	delay := b.base
	for i := 0; i < b.attempt; i++ {
		delay *= 2
	}
	if b.jitter > 0 {
		offset := time.Duration(rand.Int63n(int64(2*b.jitter+1))) - b.jitter
		delay += offset
	}
	if delay < 0 {
		delay = 0
	}

	if b.observe != nil {
		kind := storeerr.KindTransientBackend
		if b.lastKind != nil {
			kind = *b.lastKind
		}
		// Attempt is 1-based: the first retry (following the initial,
		// unreported attempt 0) is reported as attempt 1.
		b.observe(Event{Operation: b.operation, Attempt: b.attempt + 1, Delay: delay, ErrorKind: kind})
	}
	b.attempt++
	return delay
}

// Do runs op under policy, retrying transient failures (per
// storeerr.Classify) with exponential backoff jittered uniformly in
// [-jitter, +jitter], until MaxRetries is exceeded, MaxDuration elapses, ctx
// is cancelled, or op returns a permanent error. A permanent error
// short-circuits retries immediately.
func Do(ctx context.Context, policy Policy, operation string, observe Observer, op func(ctx context.Context) error) error {
	if !policy.Enabled {
		return op(ctx)
	}

	var lastKind storeerr.Kind
	bo := &jitteredBackOff{
		base:      policy.BaseDelay,
		jitter:    policy.Jitter,
		operation: operation,
		observe:   observe,
		lastKind:  &lastKind,
	}

	wrapped := func() (struct{}, error) {
		err := op(ctx)
		if err == nil {
			return struct{}{}, nil
		}
		kind := storeerr.Classify(err)
		lastKind = kind
		if !kind.Transient() {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(policy.MaxRetries+1)),
		backoff.WithMaxElapsedTime(policy.MaxDuration),
	)
	return err
}
