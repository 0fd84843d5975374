package tracex

import (
	"errors"
	"io"
	"testing"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/testx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(t *testing.T) (*logrusx.Logger, *testx.ConcurrentBuffer) {
	buf := testx.NewConcurrentBuffer(t)
	return logrusx.New("test", "", logrusx.ForceFormat("json"), logrusx.WithOutput(buf)), buf
}

func TestRecoverWithStackTracef(t *testing.T) {
	t.Run("should log the panic with its stack trace", func(t *testing.T) {
		l, buf := newJSONLogger(t)

		func() {
			defer RecoverWithStackTracef(l, "panic while handling notification for operation %d", 42)
			panic("frame too large")
		}()

		lines := buf.JSONLines()
		require.Len(t, lines, 1)
		assert.Equal(t, "panic while handling notification for operation 42", lines[0].Get("msg").String())
		assert.Equal(t, "frame too large", lines[0].Get("exception__message").String())
		assert.Contains(t, lines[0].Get("exception__stacktrace").String(), "tracex/recover.go")
		assert.LessOrEqual(t, len(lines[0].Get("exception__stacktrace").String()), maxStackTraceSize+512)
	})

	t.Run("should describe any panic value", func(t *testing.T) {
		for _, tc := range []struct {
			value    any
			expected string
		}{
			{value: errors.New("broken pipe"), expected: "broken pipe"},
			{value: errorx.UnavailableErrorf("gone"), expected: "[UNAVAILABLE] gone"},
			{value: 123, expected: "unknown panic"},
			{value: []int{}, expected: "unknown panic"},
		} {
			l, buf := newJSONLogger(t)

			func() {
				defer RecoverWithStackTracef(l, "")
				panic(tc.value)
			}()

			lines := buf.JSONLines()
			require.Len(t, lines, 1)
			assert.Equal(t, tc.expected, lines[0].Get("exception__message").String())
		}
	})

	t.Run("should not panic when logging panics", func(t *testing.T) {
		w := &panickingWriter{}
		l := logrusx.New("test", "", logrusx.WithOutput(w))

		func() {
			defer RecoverWithStackTracef(l, "panic while consuming notifications")
			panic("test panic")
		}()

		assert.Equal(t, 1, w.panics)
	})

	t.Run("should recover without a logger", func(t *testing.T) {
		assert.NotPanics(t, func() {
			defer RecoverWithStackTracef(nil, "panic while consuming notifications")
			panic("test panic")
		})
	})
}

func TestRecoverAsError(t *testing.T) {
	t.Run("should turn the panic into an internal error", func(t *testing.T) {
		l, buf := newJSONLogger(t)

		run := func() (err error) {
			defer RecoverAsError(l, &err, "panic while writing frames")
			panic("boom")
		}

		err := run()
		require.Error(t, err)
		assert.True(t, errorx.IsInternalError(err))
		assert.Contains(t, err.Error(), "panic while writing frames: boom")

		lines := buf.JSONLines()
		require.Len(t, lines, 1)
		assert.Equal(t, "panic while writing frames", lines[0].Get("msg").String())
	})

	t.Run("should leave the error untouched without a panic", func(t *testing.T) {
		run := func() (err error) {
			defer RecoverAsError(nil, &err, "unused")
			return nil
		}

		assert.NoError(t, run())
	})
}

func TestStackTrace(t *testing.T) {
	assert.Contains(t, stackTrace(1), "tracex/recover.go")
	assert.Contains(t, stackTrace(2), "tracex/recover_test.go")
}

type panickingWriter struct {
	panics int
}

func (w *panickingWriter) Write([]byte) (int, error) {
	w.panics++
	panic("expected")
}

var _ io.Writer = (*panickingWriter)(nil)
