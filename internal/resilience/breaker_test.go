package resilience

import (
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
)

func TestNewBreaker_TripsAfterThreshold(t *testing.T) {
	cb := NewBreaker[string](BreakerConfig{Name: "test-trip", FailureThreshold: 2, Timeout: time.Hour})

	boom := errors.New("boom")
	for range 2 {
		_, err := cb.Execute(func() (string, error) { return "", boom })
		require.ErrorIs(t, err, boom)
	}
	require.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.Execute(func() (string, error) { return "ok", nil })
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNewBreaker_PassesResults(t *testing.T) {
	cb := NewBreaker[int](DefaultBreakerConfig("test-pass"))
	v, err := cb.Execute(func() (int, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, v)
}
