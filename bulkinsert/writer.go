package bulkinsert

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/tracex"
)

// batchWriter is the only consumer of the queue and the only writer of the request body.
type batchWriter struct {
	queue          *documentQueue
	body           io.WriteCloser
	batchSize      int
	dequeueTimeout time.Duration
	metrics        *metrics
	report         func(string)
	l              *logrusx.Logger

	written atomic.Int64
}

// run drains the queue into frames until the end of stream, then closes the body.
func (w *batchWriter) run(ctx context.Context) (err error) {
	defer tracex.RecoverAsError(w.l, &err, "panic while writing bulk insert frames")

	batch := make([]Document, 0, w.batchSize)
	for {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}

		e, ok := w.queue.Dequeue(w.dequeueTimeout)
		if !ok {
			continue
		}

		if e.kind == entryEndOfStream {
			if len(batch) > 0 {
				if err := w.flush(ctx, batch); err != nil {
					return err
				}
			}
			if err := w.body.Close(); err != nil {
				return errorx.UnavailableErrorf("failed to close the bulk insert stream: %v", err).WithCause(err)
			}
			w.report("Finished writing all results to server")
			return nil
		}

		batch = append(batch, e.doc)
		if len(batch) == w.batchSize {
			if err := w.flush(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
}

func (w *batchWriter) flush(ctx context.Context, batch []Document) error {
	compressed, err := EncodeFrame(w.body, batch)
	if err != nil {
		if errorx.IsInvalidArgumentError(err) || errorx.IsInternalError(err) {
			return err
		}
		return errorx.UnavailableErrorf("failed to write frame to server: %v", err).WithCause(err)
	}

	total := w.written.Add(int64(len(batch)))
	w.metrics.recordFrame(ctx, len(batch), compressed)
	w.l.Debugf("flushed %d documents in a %d bytes frame", len(batch), compressed)
	w.report(fmt.Sprintf("Wrote %d (total %d) documents to server gzipped to %d kb", len(batch), total, compressed/1024))

	return nil
}
