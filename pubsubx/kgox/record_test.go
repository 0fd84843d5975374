package kgox

import (
	"context"
	"testing"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/pubsubx"
	"github.com/clinia/bulkx/pubsubx/messagex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/trace"
)

func TestRecord(t *testing.T) {
	t.Run("should key the record by operation id", func(t *testing.T) {
		n := &pubsubx.Notification{OperationID: "op-1", Type: pubsubx.NotificationTypeBulkInsertError, Message: "index Docs is corrupted"}

		r, err := newRecord(context.Background(), n, "staging.bulk-insert-changes")
		require.NoError(t, err)
		assert.Equal(t, "staging.bulk-insert-changes", r.Topic)
		assert.Equal(t, []byte("op-1"), r.Key)
		require.NotEmpty(t, r.Headers)
		assert.Equal(t, messagex.IDHeaderKey, r.Headers[0].Key)
		assert.NotEmpty(t, r.Headers[0].Value)

		decoded, err := pubsubx.DecodeNotification(r.Value)
		require.NoError(t, err)
		assert.Equal(t, n, decoded)
	})

	t.Run("should refuse invalid notifications", func(t *testing.T) {
		_, err := newRecord(context.Background(), &pubsubx.Notification{}, "bulk-insert-changes")
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should restore the message and its trace context", func(t *testing.T) {
		traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		require.NoError(t, err)
		spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
		require.NoError(t, err)
		ctx := trace.ContextWithSpanContext(context.Background(),
			trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled}))

		r, err := newRecord(ctx, &pubsubx.Notification{OperationID: "op-1", Type: pubsubx.NotificationTypeBulkInsertEnded}, "bulk-insert-changes")
		require.NoError(t, err)
		r.Offset = 42

		msg := messageFromRecord(r)
		assert.Equal(t, string(r.Headers[0].Value), msg.ID)
		assert.Equal(t, []byte("op-1"), msg.Key)
		assert.Equal(t, r.Value, msg.Payload)
		assert.Equal(t, int64(42), msg.Offset)
		assert.NotContains(t, msg.Metadata, messagex.IDHeaderKey)
		assert.Equal(t, traceID, trace.SpanContextFromContext(msg.ExtractTraceContext(context.Background())).TraceID())
	})

	t.Run("should read records without headers", func(t *testing.T) {
		msg := messageFromRecord(&kgo.Record{Value: []byte(`{}`)})
		assert.Empty(t, msg.ID)
		assert.Empty(t, msg.Metadata)
	})
}
