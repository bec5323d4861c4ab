package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/shopcore/pkg/logger"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := New[int](Settings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, logger.Discard())
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		_, err := b.Execute(func() (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	called := false
	_, err := b.Execute(func() (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called, "open breaker must not call through")
}

func TestBreaker_PassesResult(t *testing.T) {
	b := New[string](Settings{Name: "ok"}, logger.Discard())

	v, err := b.Execute(func() (string, error) { return "value", nil })
	require.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_IsSuccessfulIgnoresCancellation(t *testing.T) {
	b := New[int](Settings{
		Name:                "cancel",
		ConsecutiveFailures: 1,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}, logger.Discard())

	_, err := b.Execute(func() (int, error) { return 0, context.Canceled })
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
