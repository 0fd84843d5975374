package bulkinsert

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	documents       metric.Int64Counter
	frames          metric.Int64Counter
	compressedBytes metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	documents, err := meter.Int64Counter("bulkinsert.documents",
		metric.WithDescription("Documents streamed to the server."),
		metric.WithUnit("{document}"))
	if err != nil {
		return nil, err
	}
	frames, err := meter.Int64Counter("bulkinsert.frames",
		metric.WithDescription("Frames written to the bulk insert stream."),
		metric.WithUnit("{frame}"))
	if err != nil {
		return nil, err
	}
	compressedBytes, err := meter.Int64Counter("bulkinsert.compressed_bytes",
		metric.WithDescription("Compressed payload bytes written to the bulk insert stream."),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	return &metrics{documents: documents, frames: frames, compressedBytes: compressedBytes}, nil
}

func (m *metrics) recordFrame(ctx context.Context, documents int, compressed int) {
	m.documents.Add(ctx, int64(documents))
	m.frames.Add(ctx, 1)
	m.compressedBytes.Add(ctx, int64(compressed))
}
