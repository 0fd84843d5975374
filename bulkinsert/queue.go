package bulkinsert

import (
	"context"
	"sync"
	"time"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/timerx"
)

type entryKind int

const (
	entryDocument entryKind = iota
	entryEndOfStream
)

// entry is a queue slot, either a document or the end-of-stream marker.
type entry struct {
	kind entryKind
	doc  Document
}

// documentQueue is a bounded FIFO between the writers and the batch writer.
// Once sealed it accepts nothing but the single end-of-stream marker.
type documentQueue struct {
	ch chan entry

	// timer bounds Dequeue. It is owned by the single consumer.
	timer *time.Timer

	mu     sync.RWMutex
	sealed bool
}

func newDocumentQueue(capacity int) *documentQueue {
	return &documentQueue{
		ch:    make(chan entry, capacity),
		timer: timerx.NewStoppedTimer(),
	}
}

// TryEnqueue adds the document without blocking. It returns false when the queue is full or sealed.
func (q *documentQueue) TryEnqueue(doc Document) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.sealed {
		return false
	}

	select {
	case q.ch <- entry{kind: entryDocument, doc: doc}:
		return true
	default:
		return false
	}
}

func (q *documentQueue) Sealed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.sealed
}

// Seal rejects every later enqueue and appends the end-of-stream marker, waiting for room if needed.
// Only the first call enqueues the marker.
func (q *documentQueue) Seal(ctx context.Context) error {
	q.mu.Lock()
	if q.sealed {
		q.mu.Unlock()
		return nil
	}
	q.sealed = true
	q.mu.Unlock()

	select {
	case q.ch <- entry{kind: entryEndOfStream}:
		return nil
	case <-ctx.Done():
		return errorx.CancelledErrorf("sealing the document queue: %v", ctx.Err()).WithCause(ctx.Err())
	}
}

// Dequeue waits at most timeout for the next entry. It must not be called concurrently.
func (q *documentQueue) Dequeue(timeout time.Duration) (entry, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
	}

	timerx.Reset(q.timer, timeout)
	defer timerx.StopTimer(q.timer)

	select {
	case e := <-q.ch:
		return e, true
	case <-q.timer.C:
		return entry{}, false
	}
}

func (q *documentQueue) Len() int {
	return len(q.ch)
}

func (q *documentQueue) Cap() int {
	return cap(q.ch)
}
