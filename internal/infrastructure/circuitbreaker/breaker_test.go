package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCircuitBreaker_TripsAndRecovers(t *testing.T) {
	var transitions []gobreaker.State

	cb := NewCircuitBreaker(Config{
		Name:        "redis",
		MaxRequests: 1,
		Timeout:     20 * time.Millisecond,
		OnStateChange: func(_ string, _ gobreaker.State, to gobreaker.State) {
			transitions = append(transitions, to)
		},
	}, zap.NewNop())

	failure := errors.New("connection refused")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, "get", func() error { return failure }), failure)
	}

	require.Equal(t, gobreaker.StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, "get", func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)

	time.Sleep(40 * time.Millisecond)

	require.NoError(t, cb.Execute(ctx, "get", func() error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen, gobreaker.StateHalfOpen, gobreaker.StateClosed}, transitions)
}

func TestManager(t *testing.T) {
	m := NewManager(zap.NewNop())

	redis := m.GetBreaker("redis", Config{Timeout: time.Second})
	assert.Same(t, redis, m.GetBreaker("redis", Config{}))

	m.GetBreaker("mqtt", Config{})

	require.NoError(t, redis.Execute(context.Background(), "set", func() error { return nil }))

	stats := m.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "mqtt", stats[0].Name)
	assert.Equal(t, "redis", stats[1].Name)
	assert.Equal(t, "closed", stats[1].State)
	assert.Equal(t, uint32(1), stats[1].TotalSuccesses)
}
