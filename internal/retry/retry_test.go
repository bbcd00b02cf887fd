package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	policy := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	out, err := Do(context.Background(), policy, nil, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, attempts)
}

func TestDo_StopsWhenShouldRetryReturnsFalse(t *testing.T) {
	attempts := 0
	policy := Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	_, err := Do(context.Background(), policy, func(error) bool { return false }, func(ctx context.Context) (string, error) {
		attempts++
		return "", errors.New("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	attempts := 0
	policy := Policy{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	_, err := Do(context.Background(), policy, nil, func(ctx context.Context) (int, error) {
		attempts++
		return 0, errors.New("always fails")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}
