package bulkinsert

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/clinia/bulkx/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument(t *testing.T, i int) Document {
	t.Helper()
	doc, err := NewDocument(fmt.Sprintf("docs/%d", i), map[string]any{}, map[string]any{"n": fmt.Sprint(i)})
	require.NoError(t, err)
	return doc
}

func TestQueueCapacity(t *testing.T) {
	assert.Equal(t, 128, QueueCapacity(1))
	assert.Equal(t, 128, QueueCapacity(85))
	assert.Equal(t, 129, QueueCapacity(86))
	assert.Equal(t, 150, QueueCapacity(100))
	assert.Equal(t, 1500, QueueCapacity(1000))
}

func TestDocumentQueue(t *testing.T) {
	t.Run("should keep the enqueue order", func(t *testing.T) {
		q := newDocumentQueue(8)
		for i := 0; i < 5; i++ {
			require.True(t, q.TryEnqueue(testDocument(t, i)))
		}
		require.NoError(t, q.Seal(context.Background()))

		for i := 0; i < 5; i++ {
			e, ok := q.Dequeue(time.Second)
			require.True(t, ok)
			assert.Equal(t, entryDocument, e.kind)
			assert.Equal(t, fmt.Sprintf("docs/%d", i), e.doc.ID)
		}
		e, ok := q.Dequeue(time.Second)
		require.True(t, ok)
		assert.Equal(t, entryEndOfStream, e.kind)
	})

	t.Run("should refuse documents when full", func(t *testing.T) {
		q := newDocumentQueue(2)
		assert.True(t, q.TryEnqueue(testDocument(t, 0)))
		assert.True(t, q.TryEnqueue(testDocument(t, 1)))
		assert.False(t, q.TryEnqueue(testDocument(t, 2)))
		assert.False(t, q.Sealed())
		assert.Equal(t, 2, q.Len())
		assert.Equal(t, 2, q.Cap())
	})

	t.Run("should refuse documents once sealed and seal only once", func(t *testing.T) {
		q := newDocumentQueue(4)
		require.NoError(t, q.Seal(context.Background()))
		require.NoError(t, q.Seal(context.Background()))
		assert.True(t, q.Sealed())
		assert.False(t, q.TryEnqueue(testDocument(t, 0)))
		assert.Equal(t, 1, q.Len())
	})

	t.Run("should time out on an empty queue", func(t *testing.T) {
		q := newDocumentQueue(1)
		start := time.Now()
		_, ok := q.Dequeue(20 * time.Millisecond)
		assert.False(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("should wait for room to seal and give up with the context", func(t *testing.T) {
		q := newDocumentQueue(1)
		require.True(t, q.TryEnqueue(testDocument(t, 0)))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := q.Seal(ctx)
		assert.True(t, errorx.IsCancelledError(err))

		q = newDocumentQueue(1)
		require.True(t, q.TryEnqueue(testDocument(t, 0)))
		done := make(chan error)
		go func() { done <- q.Seal(context.Background()) }()
		e, ok := q.Dequeue(time.Second)
		require.True(t, ok)
		assert.Equal(t, entryDocument, e.kind)
		require.NoError(t, <-done)
		e, ok = q.Dequeue(time.Second)
		require.True(t, ok)
		assert.Equal(t, entryEndOfStream, e.kind)
	})

	t.Run("should never place a document after the end of stream", func(t *testing.T) {
		q := newDocumentQueue(QueueCapacity(1000))
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					q.TryEnqueue(testDocument(t, w*100+i))
				}
			}(w)
		}
		time.Sleep(time.Millisecond)
		require.NoError(t, q.Seal(context.Background()))
		wg.Wait()

		for {
			e, ok := q.Dequeue(10 * time.Millisecond)
			require.True(t, ok, "end of stream must be the last entry")
			if e.kind == entryEndOfStream {
				break
			}
		}
		assert.Equal(t, 0, q.Len())
	})
}
