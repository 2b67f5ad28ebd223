package connection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDefaultSequence(t *testing.T) {
	b := NewBackoff()

	// Base values without jitter: 1s, 2s, 4s, 8s, 16s, 32s, then capped.
	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}

	for i, exp := range expected {
		assert.Equal(t, exp, b.Current(), "attempt %d", i)
		_ = b.Next()
	}
	assert.Equal(t, len(expected), b.Attempts())
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff()

	for i := 0; i < 50; i++ {
		base := b.Current()
		delay := b.Peek()
		require.GreaterOrEqual(t, delay, base)
		require.LessOrEqual(t, delay, base+time.Duration(float64(base)*JitterFactor))
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff()

	for i := 0; i < 4; i++ {
		b.Next()
	}
	require.Equal(t, 4, b.Attempts())
	require.Equal(t, 16*time.Second, b.Current())

	b.Reset()
	assert.Equal(t, 0, b.Attempts())
	assert.Equal(t, InitialBackoff, b.Current())
}

func TestBackoffCustomConfig(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    10 * time.Millisecond,
		Max:        40 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     0,
	})

	assert.Equal(t, 10*time.Millisecond, b.Next())
	assert.Equal(t, 20*time.Millisecond, b.Next())
	assert.Equal(t, 40*time.Millisecond, b.Next())
	assert.Equal(t, 40*time.Millisecond, b.Next())
}

func TestBackoffConfigDefaults(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{})

	assert.Equal(t, InitialBackoff, b.Current())
	b.Next()
	assert.Equal(t, 2*time.Second, b.Current())
}
