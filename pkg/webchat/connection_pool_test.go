package webchat

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubConn struct {
	mu       sync.Mutex
	writes   [][]byte
	blockCh  chan struct{}
	closedCh chan struct{}
}

func newStubConn(blockWrites bool) *stubConn {
	blockCh := make(chan struct{})
	if !blockWrites {
		close(blockCh)
	}
	return &stubConn{blockCh: blockCh, closedCh: make(chan struct{})}
}

func (s *stubConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-s.closedCh:
		return errors.New("closed")
	case <-s.blockCh:
	}
	s.mu.Lock()
	s.writes = append(s.writes, data)
	s.mu.Unlock()
	return nil
}

func (s *stubConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.closedCh:
		return nil
	default:
		close(s.closedCh)
		return nil
	}
}

func (s *stubConn) SetWriteDeadline(_ time.Time) error {
	return nil
}

func (s *stubConn) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.writes))
	for _, w := range s.writes {
		out = append(out, string(w))
	}
	return out
}

func TestConnectionPoolDropsOnFullBuffer(t *testing.T) {
	pool := NewConnectionPool(zerolog.Nop())
	pool.sendBuffer = 1
	pool.writeTimeout = 0

	conn := newStubConn(true)
	pool.Add(conn)

	pool.Broadcast([]byte("one"))
	pool.Broadcast([]byte("two"))
	pool.Broadcast([]byte("three"))

	require.Eventually(t, func() bool {
		return pool.Count() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestConnectionPoolBroadcastsInOrder(t *testing.T) {
	pool := NewConnectionPool(zerolog.Nop())
	a, b := newStubConn(false), newStubConn(false)
	pool.Add(a)
	pool.Add(b)

	pool.Broadcast([]byte("one"))
	pool.Broadcast([]byte("two"))
	pool.SendToOne(a, []byte("only-a"))

	require.Eventually(t, func() bool {
		return len(a.written()) == 3 && len(b.written()) == 2
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"one", "two", "only-a"}, a.written())
	require.Equal(t, []string{"one", "two"}, b.written())

	pool.CloseAll()
	require.Zero(t, pool.Count())
	pool.Broadcast([]byte("late"))
	pool.SendToOne(a, []byte("late"))
}

func TestConnectionPoolDropsFailedWriter(t *testing.T) {
	pool := NewConnectionPool(zerolog.Nop())
	conn := newStubConn(false)
	require.NoError(t, conn.Close())
	pool.Add(conn)

	pool.Broadcast([]byte("one"))
	require.Eventually(t, func() bool {
		return pool.Count() == 0
	}, time.Second, 10*time.Millisecond)
}
