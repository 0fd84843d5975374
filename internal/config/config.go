package config

import (
	"context"
	_ "embed"
	"time"

	"github.com/clinia/bulkx/bulkinsert"
	"github.com/clinia/bulkx/configx"
	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/httpx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/otelx"
	"github.com/clinia/bulkx/pubsubx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/pflag"
)

//go:embed config.schema.json
var Schema []byte

const (
	KeyServerURL                   = "server.url"
	KeyServerDatabase              = "server.database"
	KeyServerTimeout               = "server.timeout"
	KeyServerExpectContinueTimeout = "server.expect_continue_timeout"
	KeyServerSkipTLSVerify         = "server.skip_tls_verify"

	KeyBatchSize                = "bulk.batch_size"
	KeyCheckForUpdates          = "bulk.check_for_updates"
	KeyCheckReferencesInIndexes = "bulk.check_references_in_indexes"
	KeyEnqueueRetryInterval     = "bulk.enqueue_retry_interval"
	KeyDequeueTimeout           = "bulk.dequeue_timeout"
	KeyPollInterval             = "bulk.poll_interval"
	KeyPollTimeout              = "bulk.poll_timeout"
	KeyAuthTimeout              = "bulk.auth_timeout"

	KeyNotificationsProvider   = "notifications.provider"
	KeyNotificationsScope      = "notifications.scope"
	KeyNotificationsBufferSize = "notifications.inmemory.buffer_size"
	KeyKafkaBrokers            = "notifications.kafka.brokers"
	KeyKafkaTopic              = "notifications.kafka.topic"

	KeyLogLevel               = "log.level"
	KeyLogFormat              = "log.format"
	KeyLogLeakSensitiveValues = "log.leak_sensitive_values"

	KeyTracingProvider      = "tracing.provider"
	KeyTracingSamplingRatio = "tracing.sampling_ratio"
	KeyTracingOTLPServerURL = "tracing.otlp.server_url"
	KeyTracingOTLPInsecure  = "tracing.otlp.insecure"
	KeyMetricsProvider      = "metrics.provider"
	KeyMetricsOTLPServerURL = "metrics.otlp.server_url"
	KeyMetricsOTLPInsecure  = "metrics.otlp.insecure"
)

// Config exposes the loaded configuration as the typed values the components take.
type Config struct {
	p *configx.Provider
}

// RegisterFlags adds --config and one flag per configuration key.
func RegisterFlags(flags *pflag.FlagSet) {
	configx.RegisterConfigFlag(flags, nil)
	configx.RegisterFlags(flags, Schema)
}

// New loads the configuration from the schema defaults, the files, the BULKX_ environment and the flags.
func New(ctx context.Context, flags *pflag.FlagSet, modifiers ...configx.OptionModifier) (*Config, error) {
	opts := []configx.OptionModifier{configx.WithStderrValidationReporter()}
	if flags != nil {
		opts = append(opts, configx.WithFlags(flags))
		if files, err := flags.GetStringSlice(configx.ConfigFlagName); err == nil {
			opts = append(opts, configx.WithConfigFiles(files...))
		}
	}

	p, err := configx.New(ctx, Schema, append(opts, modifiers...)...)
	if err != nil {
		return nil, err
	}

	return &Config{p: p}, nil
}

func (c *Config) Provider() *configx.Provider {
	return c.p
}

func (c *Config) duration(key string) time.Duration {
	d, err := cast.ToDurationE(c.p.Get(key))
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) ServerURL() string {
	return c.p.String(KeyServerURL)
}

func (c *Config) Database() string {
	return c.p.String(KeyServerDatabase)
}

func (c *Config) HTTPClient() *httpx.Client {
	opts := []httpx.Option{
		httpx.WithTimeout(c.duration(KeyServerTimeout)),
		httpx.WithExpectContinueTimeout(c.duration(KeyServerExpectContinueTimeout)),
	}
	if c.p.Bool(KeyServerSkipTLSVerify) {
		opts = append(opts, httpx.WithSkipTLSVerification())
	}
	return httpx.NewClient(opts...)
}

// Client builds the bulk insert client of the configured server.
func (c *Config) Client() (*bulkinsert.Client, error) {
	if c.ServerURL() == "" {
		return nil, errorx.InvalidArgumentErrorf("%s is required", KeyServerURL)
	}
	return bulkinsert.NewClient(c.ServerURL(), c.Database(), c.HTTPClient())
}

func (c *Config) BulkInsertOptions() bulkinsert.Options {
	return bulkinsert.Options{
		BatchSize:                c.p.Int(KeyBatchSize),
		CheckForUpdates:          c.p.Bool(KeyCheckForUpdates),
		CheckReferencesInIndexes: c.p.Bool(KeyCheckReferencesInIndexes),
		EnqueueRetryInterval:     c.duration(KeyEnqueueRetryInterval),
		DequeueTimeout:           c.duration(KeyDequeueTimeout),
		PollInterval:             c.duration(KeyPollInterval),
		PollTimeout:              c.duration(KeyPollTimeout),
		AuthTimeout:              c.duration(KeyAuthTimeout),
	}
}

func (c *Config) PubSub() *pubsubx.Config {
	return &pubsubx.Config{
		Scope:    c.p.String(KeyNotificationsScope),
		Provider: c.p.String(KeyNotificationsProvider),
		Providers: pubsubx.ProvidersConfig{
			InMemory: pubsubx.InMemoryConfig{BufferSize: c.p.Int(KeyNotificationsBufferSize)},
			Kafka: pubsubx.KafkaConfig{
				Brokers: c.p.Strings(KeyKafkaBrokers),
				Topic:   c.p.String(KeyKafkaTopic),
			},
		},
	}
}

// NotificationsEnabled reports whether a notification provider is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.p.String(KeyNotificationsProvider) != ""
}

func (c *Config) Telemetry(serviceName string) *otelx.Config {
	return &otelx.Config{
		ServiceName: serviceName,
		Tracing: otelx.TracingConfig{
			Provider:      c.p.String(KeyTracingProvider),
			SamplingRatio: c.p.Float64(KeyTracingSamplingRatio),
			OTLP: otelx.OTLPConfig{
				ServerURL: c.p.String(KeyTracingOTLPServerURL),
				Insecure:  c.p.Bool(KeyTracingOTLPInsecure),
			},
		},
		Metrics: otelx.MetricsConfig{
			Provider: c.p.String(KeyMetricsProvider),
			OTLP: otelx.OTLPConfig{
				ServerURL: c.p.String(KeyMetricsOTLPServerURL),
				Insecure:  c.p.Bool(KeyMetricsOTLPInsecure),
			},
		},
	}
}

// LoggerOptions returns the logrusx options matching the log keys.
func (c *Config) LoggerOptions() []logrusx.Option {
	opts := []logrusx.Option{logrusx.ForceFormat(c.p.String(KeyLogFormat))}
	if level, err := logrus.ParseLevel(c.p.String(KeyLogLevel)); err == nil {
		opts = append(opts, logrusx.ForceLevel(level))
	}
	if c.p.Bool(KeyLogLeakSensitiveValues) {
		opts = append(opts, logrusx.LeakSensitive())
	}
	return opts
}
