package config

import (
	"context"
	"testing"
	"time"

	"github.com/clinia/bulkx/bulkinsert"
	"github.com/clinia/bulkx/configx"
	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/otelx"
	"github.com/clinia/bulkx/pubsubx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("should default to the bulk insert defaults", func(t *testing.T) {
		c, err := New(ctx, nil, configx.DisableEnvLoading())
		require.NoError(t, err)

		assert.Equal(t, bulkinsert.DefaultOptions(), c.BulkInsertOptions())
		assert.False(t, c.NotificationsEnabled())
		assert.Equal(t, pubsubx.DefaultTopic, c.PubSub().Providers.Kafka.Topic)
		assert.Equal(t, 64, c.PubSub().Providers.InMemory.BufferSize)
		assert.Equal(t, otelx.ProviderNone, c.Telemetry("bulkx").Tracing.Provider)
		assert.Equal(t, 1.0, c.Telemetry("bulkx").Tracing.SamplingRatio)

		_, err = c.Client()
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should read the environment and the flags", func(t *testing.T) {
		t.Setenv("BULKX_SERVER_URL", "http://localhost:8080")
		t.Setenv("BULKX_SERVER_DATABASE", "Northwind")
		t.Setenv("BULKX_BULK_POLL_TIMEOUT", "30s")
		t.Setenv("BULKX_NOTIFICATIONS_PROVIDER", "kafka")
		t.Setenv("BULKX_NOTIFICATIONS_KAFKA_BROKERS", "a:9092,b:9092")

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		RegisterFlags(flags)
		require.NoError(t, flags.Parse([]string{"--bulk-batch-size=10", "--bulk-check-for-updates", "--log-level=debug", "--tracing-provider=stdout"}))

		c, err := New(ctx, flags)
		require.NoError(t, err)

		o := c.BulkInsertOptions()
		assert.Equal(t, 10, o.BatchSize)
		assert.True(t, o.CheckForUpdates)
		assert.Equal(t, 30*time.Second, o.PollTimeout)
		assert.Equal(t, 250*time.Millisecond, o.EnqueueRetryInterval)

		assert.True(t, c.NotificationsEnabled())
		assert.Equal(t, []string{"a:9092", "b:9092"}, c.PubSub().Providers.Kafka.Brokers)
		assert.Equal(t, otelx.ProviderStdout, c.Telemetry("bulkx").Tracing.Provider)
		assert.Len(t, c.LoggerOptions(), 2)

		client, err := c.Client()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/databases/Northwind", client.BaseURL())
	})

	t.Run("should load the config files named by --config", func(t *testing.T) {
		path := t.TempDir() + "/bulkx.yaml"
		require.NoError(t, writeFile(path, "server:\n  url: http://files:8080\nbulk:\n  batch_size: 3\n"))

		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		RegisterFlags(flags)
		require.NoError(t, flags.Parse([]string{"--config", path}))

		c, err := New(ctx, flags, configx.DisableEnvLoading())
		require.NoError(t, err)
		assert.Equal(t, "http://files:8080", c.ServerURL())
		assert.Equal(t, 3, c.BulkInsertOptions().BatchSize)
	})

	t.Run("should reject invalid values", func(t *testing.T) {
		_, err := New(ctx, nil, configx.DisableEnvLoading(), configx.WithValue(KeyBatchSize, 0))
		assert.True(t, errorx.IsInvalidArgumentError(err))

		_, err = New(ctx, nil, configx.DisableEnvLoading(), configx.WithValue(KeyPollInterval, "soon"))
		assert.True(t, errorx.IsInvalidArgumentError(err))

		_, err = New(ctx, nil, configx.DisableEnvLoading(), configx.WithValue(KeyNotificationsProvider, "nats"))
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should force the configured log level", func(t *testing.T) {
		c, err := New(ctx, nil, configx.DisableEnvLoading(), configx.WithValue(KeyLogLevel, "warn"))
		require.NoError(t, err)

		_, err = logrus.ParseLevel(c.Provider().String(KeyLogLevel))
		require.NoError(t, err)
		assert.Len(t, c.LoggerOptions(), 2)
	})

	t.Run("should leak sensitive values only when asked", func(t *testing.T) {
		c, err := New(ctx, nil, configx.DisableEnvLoading())
		require.NoError(t, err)
		assert.False(t, logrusx.New("bulkx", "", c.LoggerOptions()...).LeakSensitiveData())

		c, err = New(ctx, nil, configx.DisableEnvLoading(), configx.WithValue(KeyLogLeakSensitiveValues, true))
		require.NoError(t, err)
		assert.True(t, logrusx.New("bulkx", "", c.LoggerOptions()...).LeakSensitiveData())
	})
}
