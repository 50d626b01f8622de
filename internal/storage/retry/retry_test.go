package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragstore/internal/storage/retry"
	"github.com/fyrsmithlabs/ragstore/internal/storage/storeerr"
)

func policy() retry.Policy {
	return retry.Policy{
		Enabled:     true,
		MaxRetries:  3,
		BaseDelay:   10 * time.Millisecond,
		Jitter:      5 * time.Millisecond,
		MaxDuration: time.Second,
	}
}

// TestDo_PermanentErrorNoRetry covers universal property 9's first half:
// a permanent error short-circuits after exactly one attempt.
func TestDo_PermanentErrorNoRetry(t *testing.T) {
	attempts := 0
	err := retry.Do(context.Background(), policy(), "op", nil, func(ctx context.Context) error {
		attempts++
		return storeerr.New(storeerr.KindInvalidArgument, "op", errors.New("bad input"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

// TestDo_TransientRecoversWithinBudget covers scenario S4: a transient
// failure on the first attempt that succeeds on the second produces
// exactly one observed retry event and an overall success.
func TestDo_TransientRecoversWithinBudget(t *testing.T) {
	attempts := 0
	var events []retry.Event

	err := retry.Do(context.Background(), policy(), "op", func(e retry.Event) {
		events = append(events, e)
	}, func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return storeerr.New(storeerr.KindTransientBackend, "op", errors.New("connection reset"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].Attempt)
}

// TestDo_ExhaustsMaxRetries covers property 9's second half: a
// permanently transient failure gives up after exactly MaxRetries+1
// attempts.
func TestDo_ExhaustsMaxRetries(t *testing.T) {
	p := policy()
	attempts := 0
	err := retry.Do(context.Background(), p, "op", nil, func(ctx context.Context) error {
		attempts++
		return storeerr.New(storeerr.KindTransientBackend, "op", errors.New("still down"))
	})
	require.Error(t, err)
	assert.Equal(t, p.MaxRetries+1, attempts)
}

// TestDo_DisabledPolicyRunsOnce ensures a disabled policy bypasses the
// combinator entirely, regardless of error kind.
func TestDo_DisabledPolicyRunsOnce(t *testing.T) {
	attempts := 0
	err := retry.Do(context.Background(), retry.Policy{Enabled: false}, "op", nil, func(ctx context.Context) error {
		attempts++
		return storeerr.New(storeerr.KindTransientBackend, "op", errors.New("down"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
