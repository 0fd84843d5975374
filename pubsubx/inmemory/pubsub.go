package inmemorypubsub

import (
	"context"
	"sync"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/pubsubx"
	"github.com/samber/lo"
)

const defaultBufferSize = 16

type (
	memorySource struct {
		l          *logrusx.Logger
		bufferSize int

		mu            sync.RWMutex
		closed        bool
		subscriptions map[string][]*memorySubscription
	}
	memorySubscription struct {
		s           *memorySource
		operationID string
		ch          chan *pubsubx.Notification
		done        chan struct{}
		exited      chan struct{}
		once        sync.Once
	}
)

var (
	_ pubsubx.Source       = (*memorySource)(nil)
	_ pubsubx.Publisher    = (*memorySource)(nil)
	_ pubsubx.Subscription = (*memorySubscription)(nil)
)

// NewSource returns a process-local notification source. Publish is what a server would do on its side.
func NewSource(l *logrusx.Logger, c *pubsubx.Config) (*memorySource, error) {
	if l == nil {
		return nil, errorx.FailedPreconditionErrorf("logger is required")
	}
	bufferSize := defaultBufferSize
	if c != nil && c.Providers.InMemory.BufferSize > 0 {
		bufferSize = c.Providers.InMemory.BufferSize
	}

	return &memorySource{
		l:             l,
		bufferSize:    bufferSize,
		subscriptions: make(map[string][]*memorySubscription),
	}, nil
}

// Subscribe implements Source.
// The handler runs on a dedicated goroutine, so Close must not be called from within it.
func (m *memorySource) Subscribe(ctx context.Context, operationID string, handler pubsubx.Handler) (pubsubx.Subscription, error) {
	if operationID == "" {
		return nil, errorx.InvalidArgumentErrorf("operation id is required")
	}
	if handler == nil {
		return nil, errorx.InvalidArgumentErrorf("nil handler for operation %s", operationID)
	}

	sub := &memorySubscription{
		s:           m,
		operationID: operationID,
		ch:          make(chan *pubsubx.Notification, m.bufferSize),
		done:        make(chan struct{}),
		exited:      make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errorx.FailedPreconditionErrorf("notification source is closed")
	}
	m.subscriptions[operationID] = append(m.subscriptions[operationID], sub)
	m.mu.Unlock()

	go sub.deliver(ctx, handler)

	return sub, nil
}

func (s *memorySubscription) deliver(ctx context.Context, handler pubsubx.Handler) {
	defer close(s.exited)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case n := <-s.ch:
			handler(ctx, n)
		}
	}
}

// Publish implements Publisher. Notifications for operations nobody subscribed to are dropped.
func (m *memorySource) Publish(ctx context.Context, notifications ...*pubsubx.Notification) error {
	for _, n := range notifications {
		if err := n.Validate(); err != nil {
			return err
		}

		m.mu.RLock()
		if m.closed {
			m.mu.RUnlock()
			return errorx.FailedPreconditionErrorf("notification source is closed")
		}
		subs := m.subscriptions[n.OperationID]
		m.mu.RUnlock()

		for _, sub := range subs {
			select {
			case sub.ch <- n:
			case <-sub.done:
			case <-ctx.Done():
				return errorx.CancelledErrorf("publishing notification for operation %s: %v", n.OperationID, ctx.Err()).WithCause(ctx.Err())
			}
		}
	}

	return nil
}

// Close implements Subscription.
func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.s.remove(s)
	})
	<-s.exited
	return nil
}

func (m *memorySource) remove(sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	remaining := lo.Without(m.subscriptions[sub.operationID], sub)
	if len(remaining) == 0 {
		delete(m.subscriptions, sub.operationID)
		return
	}
	m.subscriptions[sub.operationID] = remaining
}

// Close implements Source.
func (m *memorySource) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := lo.Flatten(lo.Values(m.subscriptions))
	m.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}

	return nil
}
