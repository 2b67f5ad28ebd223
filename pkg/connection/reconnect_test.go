package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{
		Initial:    5 * time.Millisecond,
		Max:        20 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     0,
	})
}

type stateRecorder struct {
	mu          sync.Mutex
	transitions []string
}

func (r *stateRecorder) record(oldState, newState State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, oldState.String()+"->"+newState.String())
}

func (r *stateRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.transitions))
	copy(out, r.transitions)
	return out
}

func TestManagerConnect(t *testing.T) {
	var calls atomic.Int32
	m := NewManager(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	defer m.Close()

	rec := &stateRecorder{}
	m.OnStateChange(rec.record)

	connected := make(chan struct{}, 1)
	m.OnConnected(func() { connected <- struct{}{} })

	require.NoError(t, m.Connect(context.Background()))
	require.Equal(t, StateConnected, m.State())
	require.True(t, m.IsConnected())
	assert.EqualValues(t, 1, calls.Load())

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("OnConnected not called")
	}

	assert.Equal(t, []string{
		"DISCONNECTED->CONNECTING",
		"CONNECTING->CONNECTED",
	}, rec.snapshot())
}

func TestManagerConnectFailure(t *testing.T) {
	dialErr := errors.New("broker unavailable")
	m := NewManager(func(ctx context.Context) error { return dialErr })
	defer m.Close()

	err := m.Connect(context.Background())
	require.ErrorIs(t, err, dialErr)
	assert.Equal(t, StateDisconnected, m.State())
}

func TestManagerConnectTimeout(t *testing.T) {
	m := NewManager(func(ctx context.Context) error {
		return context.DeadlineExceeded
	})
	defer m.Close()

	err := m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectTimeout)
}

func TestManagerAlreadyConnected(t *testing.T) {
	m := NewManager(func(ctx context.Context) error { return nil })
	defer m.Close()

	require.NoError(t, m.Connect(context.Background()))
	assert.ErrorIs(t, m.Connect(context.Background()), ErrAlreadyConnected)
}

func TestManagerConnectAfterClose(t *testing.T) {
	m := NewManager(func(ctx context.Context) error { return nil })
	m.Close()

	assert.ErrorIs(t, m.Connect(context.Background()), ErrConnectionClosed)
}

func TestManagerReconnectAfterLoss(t *testing.T) {
	// First dial succeeds, the next two fail, then it recovers.
	var calls atomic.Int32
	m := NewManager(func(ctx context.Context) error {
		n := calls.Add(1)
		if n == 2 || n == 3 {
			return errors.New("still down")
		}
		return nil
	})
	defer m.Close()

	m.SetBackoff(fastBackoff())
	m.StartReconnectLoop()

	reconnected := make(chan struct{}, 4)
	m.OnConnected(func() { reconnected <- struct{}{} })

	var reconnectAttempts atomic.Int32
	m.OnReconnecting(func(attempt int, delay time.Duration) {
		reconnectAttempts.Store(int32(attempt))
	})

	require.NoError(t, m.Connect(context.Background()))
	<-reconnected

	m.NotifyConnectionLost()
	require.Equal(t, StateReconnecting, m.State())

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("did not reconnect")
	}

	assert.Equal(t, StateConnected, m.State())
	assert.EqualValues(t, 4, calls.Load())
	assert.GreaterOrEqual(t, reconnectAttempts.Load(), int32(2))

	// Success resets backoff for the next loss.
	assert.Equal(t, 0, m.BackoffAttempts())
}

func TestManagerLossWithoutAutoReconnect(t *testing.T) {
	m := NewManager(func(ctx context.Context) error { return nil })
	defer m.Close()

	m.SetAutoReconnect(false)
	m.StartReconnectLoop()

	require.NoError(t, m.Connect(context.Background()))
	m.NotifyConnectionLost()

	assert.Equal(t, StateDisconnected, m.State())
	assert.ErrorIs(t, m.TriggerReconnect(), ErrReconnectDisabled)
}

func TestManagerTriggerReconnect(t *testing.T) {
	var calls atomic.Int32
	m := NewManager(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	defer m.Close()

	m.SetBackoff(fastBackoff())
	m.StartReconnectLoop()

	connected := make(chan struct{}, 2)
	m.OnConnected(func() { connected <- struct{}{} })

	require.NoError(t, m.TriggerReconnect())

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not reconnect")
	}
	assert.ErrorIs(t, m.TriggerReconnect(), ErrAlreadyConnected)
}

func TestManagerCloseStopsReconnect(t *testing.T) {
	var calls atomic.Int32
	m := NewManager(func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			return nil
		}
		return errors.New("still down")
	})

	m.SetBackoff(fastBackoff())
	m.StartReconnectLoop()

	require.NoError(t, m.Connect(context.Background()))
	m.NotifyConnectionLost()

	// Close must stop the loop even mid-backoff. Close blocks on the
	// reconnect goroutine, so returning at all is the assertion.
	m.Close()
	assert.Equal(t, StateClosed, m.State())

	before := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, calls.Load())
}

func TestManagerDisconnectedCallback(t *testing.T) {
	m := NewManager(func(ctx context.Context) error { return nil })
	defer m.Close()

	m.SetAutoReconnect(false)

	disconnected := make(chan struct{}, 1)
	m.OnDisconnected(func() { disconnected <- struct{}{} })

	require.NoError(t, m.Connect(context.Background()))
	m.Disconnect()

	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("OnDisconnected not called")
	}
	assert.Equal(t, StateDisconnected, m.State())
}
