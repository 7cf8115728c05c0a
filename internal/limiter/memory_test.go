package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	_ Limiter = (*PG)(nil)
	_ Limiter = (*Memory)(nil)
)

func TestMemory_BlocksAfterMaxFails(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemory(Policy{Window: 5 * time.Minute, MaxFails: 3, BlockFor: 10 * time.Minute})
	l.now = func() time.Time { return now }
	ctx := context.Background()
	ip := HashIP("10.0.0.1")

	for i := 0; i < 2; i++ {
		blocked, _, err := l.Failure(ctx, "john@mail.com", ip)
		require.NoError(t, err)
		require.False(t, blocked)
	}
	blocked, dur, err := l.Failure(ctx, "john@mail.com", ip)
	require.NoError(t, err)
	require.True(t, blocked)
	require.Equal(t, 10*time.Minute, dur)

	ok, retry, err := l.Allow(ctx, "john@mail.com", ip)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 10*time.Minute, retry)

	ok, _, _ = l.Allow(ctx, "john@mail.com", HashIP("10.0.0.2"))
	require.True(t, ok, "other ip is not affected")

	now = now.Add(11 * time.Minute)
	ok, _, _ = l.Allow(ctx, "john@mail.com", ip)
	require.True(t, ok)
}

func TestMemory_WindowResetsAndSuccessClears(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemory(Policy{Window: time.Minute, MaxFails: 2, BlockFor: time.Hour})
	l.now = func() time.Time { return now }
	ctx := context.Background()
	ip := HashIP("10.0.0.1")

	_, _, _ = l.Failure(ctx, "a@mail.com", ip)
	now = now.Add(2 * time.Minute)
	blocked, _, _ := l.Failure(ctx, "a@mail.com", ip)
	require.False(t, blocked, "failure outside the window starts a new count")

	require.NoError(t, l.Success(ctx, "a@mail.com", ip))
	blocked, _, _ = l.Failure(ctx, "a@mail.com", ip)
	require.False(t, blocked)
}
