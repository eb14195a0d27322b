package events

import (
	"sync"

	"github.com/go-go-golems/chatbot/pkg/chat"
)

// snapshotQueue hands snapshots from the store's notify path to the publishing goroutine.
// push never blocks; snapshots come out in the order they went in.
type snapshotQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []chat.Snapshot
	closed bool
}

func newSnapshotQueue() *snapshotQueue {
	q := &snapshotQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *snapshotQueue) push(s chat.Snapshot) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, s)
	q.cond.Signal()
}

// next waits for snapshots and returns all of them. open is false once the queue is closed;
// the final batch is still returned.
func (q *snapshotQueue) next() (batch []chat.Snapshot, open bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	batch, q.items = q.items, nil
	return batch, !q.closed
}

func (q *snapshotQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
