package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rperrors "github.com/jumpwire-ai/jwctl/internal/errors"
)

func fastPolicy(retries int) Policy {
	return Policy{
		MaxRetries:   retries,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, p.InitialDelay)
	assert.Equal(t, 2.0, p.Multiplier)
	assert.Equal(t, 4, p.MaxAttempts())
}

func TestPolicy_MaxAttemptsNegative(t *testing.T) {
	assert.Equal(t, 1, Policy{MaxRetries: -2}.MaxAttempts())
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	v, attempts, err := Do(context.Background(), fastPolicy(3), func(context.Context, int) (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	v, attempts, err := Do(context.Background(), fastPolicy(3), func(_ context.Context, attempt int) (int, error) {
		if attempt < 3 {
			return 0, rperrors.Network("test", "connection reset")
		}
		return attempt, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 3, attempts)
}

func TestDo_StopsAtBudget(t *testing.T) {
	calls := 0
	_, attempts, err := Do(context.Background(), fastPolicy(3), func(context.Context, int) (int, error) {
		calls++
		return 0, rperrors.Network("test", "502")
	})

	require.Error(t, err)
	assert.True(t, rperrors.IsKind(err, rperrors.KindNetwork))
	assert.LessOrEqual(t, calls, 4)
	assert.Equal(t, calls, attempts)
}

func TestDo_DoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	_, attempts, err := Do(context.Background(), fastPolicy(3), func(context.Context, int) (int, error) {
		calls++
		return 0, rperrors.Conflict("test", "already resolved")
	})

	require.Error(t, err)
	assert.True(t, rperrors.IsKind(err, rperrors.KindConflict))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
}

func TestDo_NoRetries(t *testing.T) {
	calls := 0
	_, attempts, err := Do(context.Background(), fastPolicy(0), func(context.Context, int) (int, error) {
		calls++
		return 0, rperrors.Network("test", "reset")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextAlreadyDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, attempts, err := Do(ctx, fastPolicy(3), func(context.Context, int) (int, error) {
		calls++
		return 0, nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, calls)
	assert.Zero(t, attempts)
}

func TestDo_ReturnsLastAttemptError(t *testing.T) {
	_, _, err := Do(context.Background(), fastPolicy(1), func(_ context.Context, attempt int) (int, error) {
		if attempt == 1 {
			return 0, rperrors.Network("test", "first")
		}
		return 0, rperrors.Network("test", "second")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "second")
}
