package otelx

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/clinia/bulkx/logrusx"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Telemetry bundles the providers handed to the instrumented components.
type Telemetry struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Propagator     propagation.TextMapPropagator

	shutdowns []func(context.Context) error
}

type options struct {
	out io.Writer
}

type Option func(*options)

// WithWriter sets where the stdout providers write to, os.Stdout by default.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.out = w
	}
}

// NewNoop returns telemetry recording nothing.
func NewNoop() *Telemetry {
	return &Telemetry{
		TracerProvider: tracenoop.NewTracerProvider(),
		MeterProvider:  metricnoop.NewMeterProvider(),
		Propagator:     propagation.NewCompositeTextMapPropagator(),
	}
}

// New builds the tracer and meter providers selected by the configuration.
func New(ctx context.Context, l *logrusx.Logger, c *Config, opts ...Option) (*Telemetry, error) {
	o := &options{out: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	t := NewNoop()
	t.Propagator = propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)

	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(c.ServiceName))

	tp, shutdown, err := newTracerProvider(ctx, l, c, res, o)
	if err != nil {
		return nil, err
	}
	if tp != nil {
		t.TracerProvider = tp
		t.shutdowns = append(t.shutdowns, shutdown)
	}

	mp, shutdown, err := newMeterProvider(ctx, l, c, res, o)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	if mp != nil {
		t.MeterProvider = mp
		t.shutdowns = append(t.shutdowns, shutdown)
	}

	return t, nil
}

// Shutdown flushes and stops the providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, shutdown := range t.shutdowns {
		errs = append(errs, shutdown(ctx))
	}
	t.shutdowns = nil
	return errors.Join(errs...)
}
