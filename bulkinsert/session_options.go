package bulkinsert

import (
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/pubsubx"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type sessionOptions struct {
	l              *logrusx.Logger
	report         func(string)
	source         pubsubx.Source
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

type SessionOption func(*sessionOptions)

func WithLogger(l *logrusx.Logger) SessionOption {
	return func(o *sessionOptions) {
		o.l = l
	}
}

// WithReport registers a callback receiving the human readable progress lines of the session.
func WithReport(report func(string)) SessionOption {
	return func(o *sessionOptions) {
		o.report = report
	}
}

// WithNotifications subscribes the session to the change notifications of its operation.
// An error notification aborts the session.
func WithNotifications(source pubsubx.Source) SessionOption {
	return func(o *sessionOptions) {
		o.source = source
	}
}

func WithTracerProvider(tp trace.TracerProvider) SessionOption {
	return func(o *sessionOptions) {
		o.tracerProvider = tp
	}
}

func WithMeterProvider(mp metric.MeterProvider) SessionOption {
	return func(o *sessionOptions) {
		o.meterProvider = mp
	}
}

func newSessionOptions(opts []SessionOption) *sessionOptions {
	o := &sessionOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.l == nil {
		o.l = logrusx.New("bulkx", "")
	}
	if o.report == nil {
		o.report = func(string) {}
	}
	if o.tracerProvider == nil {
		o.tracerProvider = tracenoop.NewTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = metricnoop.NewMeterProvider()
	}

	return o
}
