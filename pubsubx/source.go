package pubsubx

import "context"

// Handler receives the notifications of a single operation.
// Handlers of one subscription are never called concurrently.
type Handler func(ctx context.Context, n *Notification)

// Source is the async change-notification channel.
type Source interface {
	// Subscribe starts delivering notifications about operationID to handler until the
	// subscription is closed or ctx is done.
	Subscribe(ctx context.Context, operationID string, handler Handler) (Subscription, error)
	// Close closes the source and every subscription still open.
	Close() error
}

type Subscription interface {
	// Close stops the delivery. It is safe to call it more than once.
	Close() error
}

// Publisher emits notifications. Servers and test doubles use it; the bulk insert client only subscribes.
type Publisher interface {
	Publish(ctx context.Context, notifications ...*Notification) error
}
