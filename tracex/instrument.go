package tracex

import (
	"context"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const ComponentNameSeparator = "."

func ComponentName(packageName, structName string) string {
	return packageName + ComponentNameSeparator + structName
}

/*
Instrument starts a span named after the component and returns a logger bound to it. `span.End()` must be called at the end of using the span.

	ctx, span, l := tracex.Instrument(ctx, s.l, s.tracer, "bulkinsert.Session", "Close")
	defer span.End()
*/
func Instrument(ctx context.Context, l *logrusx.Logger, tracer trace.Tracer, componentName string, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span, *logrusx.Logger) {
	fullComponentName := ComponentName(componentName, name)
	ctx, span := tracer.Start(ctx, fullComponentName, opts...)
	return ctx, span, l.WithContext(ctx).WithField("component", fullComponentName)
}

// RecordError marks the span as failed with err. The error type of a CliniaError is added as "error.type".
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	var attrs []attribute.KeyValue
	if cerr, ok := errorx.IsCliniaError(err); ok {
		attrs = append(attrs, semconv.ErrorTypeKey.String(cerr.Type.String()))
	}
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, err.Error())
}
