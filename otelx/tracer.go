package otelx

import (
	"context"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newTracerProvider(ctx context.Context, l *logrusx.Logger, c *Config, res *resource.Resource, o *options) (*sdktrace.TracerProvider, func(context.Context) error, error) {
	var exp sdktrace.SpanExporter
	switch c.Tracing.Provider {
	case ProviderStdout:
		sOpts := []stdouttrace.Option{stdouttrace.WithWriter(o.out)}
		if c.Tracing.Pretty {
			sOpts = append(sOpts, stdouttrace.WithPrettyPrint())
		}
		e, err := stdouttrace.New(sOpts...)
		if err != nil {
			return nil, nil, errorx.InternalErrorf("failed to create stdout trace exporter: %v", err).WithCause(err)
		}
		exp = e
		l.Infof("Stdout tracer configured! Sending spans to stdout")

	case ProviderOTLP:
		if c.Tracing.OTLP.ServerURL == "" {
			return nil, nil, errorx.InvalidArgumentErrorf("tracing otlp server url is required")
		}
		hOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.Tracing.OTLP.ServerURL)}
		if c.Tracing.OTLP.Insecure {
			hOpts = append(hOpts, otlptracehttp.WithInsecure())
		}
		e, err := otlptracehttp.New(ctx, hOpts...)
		if err != nil {
			return nil, nil, errorx.InternalErrorf("failed to create otlp trace exporter: %v", err).WithCause(err)
		}
		exp = e
		l.Infof("OTLP tracer configured! Sending spans to %s", c.Tracing.OTLP.ServerURL)

	case ProviderNone:
		l.Debugf("Missing tracing provider in config - skipping tracing setup")
		return nil, nil, nil

	default:
		return nil, nil, errorx.InvalidArgumentErrorf("unknown tracing provider %q", c.Tracing.Provider)
	}

	ratio := c.Tracing.SamplingRatio
	if ratio <= 0 {
		ratio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)

	return tp, tp.Shutdown, nil
}
