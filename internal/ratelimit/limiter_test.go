package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	now := start
	l := NewLimiter()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheckConsumesWindow(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	cfg := Config{MaxRequests: 3, Window: time.Second}

	for i, wantRemaining := range []int{2, 1, 0} {
		res, err := l.Check("u1", cfg)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, wantRemaining, res.Remaining)
		assert.Zero(t, res.RetryAfter)
	}

	res, err := l.Check("u1", cfg)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestCheckWindowExpiryResets(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1000, 0))
	cfg := Config{MaxRequests: 3, Window: time.Second}

	for i := 0; i < 4; i++ {
		_, err := l.Check("u1", cfg)
		require.NoError(t, err)
	}

	*now = now.Add(1100 * time.Millisecond)
	res, err := l.Check("u1", cfg)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, cfg.MaxRequests-1, res.Remaining)
	assert.Equal(t, now.Add(cfg.Window), res.ResetAt)
}

func TestStatusDoesNotConsume(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	cfg := Config{MaxRequests: 2, Window: time.Minute}

	_, err := l.Check("u1", cfg)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		status, err := l.Status("u1", cfg)
		require.NoError(t, err)
		assert.True(t, status.Allowed)
		assert.Equal(t, 1, status.Remaining)
	}

	res, err := l.Check("u1", cfg)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "status calls must not charge the window")
	assert.Zero(t, res.Remaining)
}

func TestStatusUnknownIdentifier(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1000, 0))
	cfg := Config{MaxRequests: 5, Window: time.Minute}

	status, err := l.Status("ghost", cfg)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 5, status.Remaining)
	assert.Equal(t, now.Add(cfg.Window), status.ResetAt)
}

func TestStatusExhausted(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	cfg := Config{MaxRequests: 1, Window: time.Minute}

	_, err := l.Check("u1", cfg)
	require.NoError(t, err)

	status, err := l.Status("u1", cfg)
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Zero(t, status.Remaining)
	assert.Greater(t, status.RetryAfter, time.Duration(0))
}

func TestResetDropsBucket(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	cfg := Config{MaxRequests: 1, Window: time.Hour}

	res, err := l.Check("u1", cfg)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Check("u1", cfg)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	l.Reset("u1")

	res, err = l.Check("u1", cfg)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestInvalidConfig(t *testing.T) {
	l := NewLimiter()

	_, err := l.Check("u1", Config{MaxRequests: 0, Window: time.Second})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = l.Check("u1", Config{MaxRequests: 5, Window: 0})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = l.Status("u1", Config{MaxRequests: -1, Window: time.Second})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestIndependentIdentifiers(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))
	cfg := Config{MaxRequests: 1, Window: time.Minute}

	res, err := l.Check("u1", cfg)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Check("u2", cfg)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "identifiers must not share buckets")
}
