package kgox

import (
	"context"

	"github.com/clinia/bulkx/pubsubx"
	"github.com/clinia/bulkx/pubsubx/messagex"
	"github.com/twmb/franz-go/pkg/kgo"
)

// newRecord encodes n into a record of topic keyed by its operation id, so every notification of
// an operation lands on the same partition in order. The trace context of ctx travels in the headers.
func newRecord(ctx context.Context, n *pubsubx.Notification, topic string) (*kgo.Record, error) {
	payload, err := pubsubx.EncodeNotification(n)
	if err != nil {
		return nil, err
	}

	msg := messagex.NewMessage(payload, messagex.WithKey(n.OperationID))
	msg.InjectTraceContext(ctx)

	headers := make([]kgo.RecordHeader, 0, len(msg.Metadata)+1)
	headers = append(headers, kgo.RecordHeader{Key: messagex.IDHeaderKey, Value: []byte(msg.ID)})
	for k, v := range msg.Metadata {
		headers = append(headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	return &kgo.Record{
		Context: ctx,
		Topic:   topic,
		Key:     msg.Key,
		Headers: headers,
		Value:   msg.Payload,
	}, nil
}

// messageFromRecord is the reverse of newRecord, without decoding the payload.
func messageFromRecord(r *kgo.Record) *messagex.Message {
	msg := &messagex.Message{
		Key:      r.Key,
		Metadata: make(messagex.MessageMetadata, len(r.Headers)),
		Payload:  r.Value,
		Offset:   r.Offset,
	}
	for _, h := range r.Headers {
		if h.Key == messagex.IDHeaderKey {
			msg.ID = string(h.Value)
			continue
		}
		msg.Metadata[h.Key] = string(h.Value)
	}
	return msg
}
