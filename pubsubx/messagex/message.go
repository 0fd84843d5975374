package messagex

import (
	"context"
	"maps"

	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel/propagation"
)

// IDHeaderKey is the broker header carrying the message id.
const IDHeaderKey = "_clinia_message_id"

// Message is a notification as carried by a broker record: an encoded payload, keyed by operation id,
// with string headers for the message id and the trace context.
type Message struct {
	ID       string
	Key      []byte
	Metadata MessageMetadata
	Payload  []byte
	// Offset is only set on consumed messages.
	Offset int64
}

type MessageMetadata map[string]string

type MessageOption func(*Message)

// NewMessage wraps payload with a fresh ksuid as id.
func NewMessage(payload []byte, opts ...MessageOption) *Message {
	m := &Message{
		ID:       ksuid.New().String(),
		Metadata: MessageMetadata{},
		Payload:  payload,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithKey sets the partitioning key. Notifications are keyed by operation id.
func WithKey(key string) MessageOption {
	return func(m *Message) {
		m.Key = []byte(key)
	}
}

// WithMetadata adds the entries to the message metadata.
func WithMetadata(md MessageMetadata) MessageOption {
	return func(m *Message) {
		maps.Copy(m.Metadata, md)
	}
}

var propagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})

func (m *Message) InjectTraceContext(ctx context.Context) {
	if m.Metadata == nil {
		m.Metadata = MessageMetadata{}
	}
	propagator.Inject(ctx, propagation.MapCarrier(m.Metadata))
}

// ExtractTraceContext returns ctx carrying the span context the producer injected, if any.
func (m *Message) ExtractTraceContext(ctx context.Context) context.Context {
	if len(m.Metadata) == 0 {
		return ctx
	}
	return propagator.Extract(ctx, propagation.MapCarrier(m.Metadata))
}
