package tracex

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const maxStackTraceSize = 2048

// RecoverWithStackTracef recovers from a panic and logs the message with a stack trace.
// It should only be used as a defer statement at the beginning of a goroutine.
// i.e. defer tracex.RecoverWithStackTracef(l, "panic while consuming notifications")
func RecoverWithStackTracef(l *logrusx.Logger, msg string, args ...interface{}) {
	// The recoverer itself must never panic.
	defer func() {
		recover() //nolint:errcheck
	}()

	if r := recover(); r != nil {
		logPanic(l, r, msg, args...)
	}
}

// RecoverAsError recovers from a panic, logs it like RecoverWithStackTracef and stores an internal error in errp.
// It should only be used as a defer statement in a function with a named error result.
// i.e. defer tracex.RecoverAsError(l, &err, "panic while writing frames")
func RecoverAsError(l *logrusx.Logger, errp *error, msg string) {
	defer func() {
		recover() //nolint:errcheck
	}()

	if r := recover(); r != nil {
		if errp != nil {
			*errp = errorx.InternalErrorf("%s: %s", msg, panicMessage(r))
		}
		logPanic(l, r, "%s", msg)
	}
}

func logPanic(l *logrusx.Logger, r any, msg string, args ...interface{}) {
	if l == nil {
		return
	}
	l.WithAttributes(
		semconv.ExceptionStacktrace(stackTrace(3)),
		semconv.ExceptionMessage(panicMessage(r)),
	).Errorf(msg, args...)
}

// stackTrace formats the stack starting skip frames above runtime.Callers, cut at maxStackTraceSize.
func stackTrace(skip int) string {
	pc := make([]uintptr, 16)
	frames := runtime.CallersFrames(pc[:runtime.Callers(skip, pc)])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more || b.Len() > maxStackTraceSize {
			return b.String()
		}
	}
}

func panicMessage(r any) string {
	switch v := r.(type) {
	case string:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return "unknown panic"
	}
}
