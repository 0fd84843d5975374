package otelx

import (
	"context"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

func newMeterProvider(ctx context.Context, l *logrusx.Logger, c *Config, res *resource.Resource, o *options) (*sdkmetric.MeterProvider, func(context.Context) error, error) {
	var exp sdkmetric.Exporter
	switch c.Metrics.Provider {
	case ProviderStdout:
		e, err := stdoutmetric.New(stdoutmetric.WithWriter(o.out))
		if err != nil {
			return nil, nil, errorx.InternalErrorf("failed to create stdout metric exporter: %v", err).WithCause(err)
		}
		exp = e
		l.Infof("Stdout meter configured! Sending measurements to stdout")

	case ProviderOTLP:
		if c.Metrics.OTLP.ServerURL == "" {
			return nil, nil, errorx.InvalidArgumentErrorf("metrics otlp server url is required")
		}
		hOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(c.Metrics.OTLP.ServerURL)}
		if c.Metrics.OTLP.Insecure {
			hOpts = append(hOpts, otlpmetrichttp.WithInsecure())
		}
		e, err := otlpmetrichttp.New(ctx, hOpts...)
		if err != nil {
			return nil, nil, errorx.InternalErrorf("failed to create otlp metric exporter: %v", err).WithCause(err)
		}
		exp = e
		l.Infof("OTLP meter configured! Sending measurements to %s", c.Metrics.OTLP.ServerURL)

	case ProviderNone:
		l.Debugf("Missing metrics provider in config - skipping meter setup")
		return nil, nil, nil

	default:
		return nil, nil, errorx.InvalidArgumentErrorf("unknown metrics provider %q", c.Metrics.Provider)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(res),
	)

	return mp, mp.Shutdown, nil
}
