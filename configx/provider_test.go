// Copyright © 2023 Ory Corp
// SPDX-License-Identifier: Apache-2.0

package configx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/clinia/bulkx/errorx"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = []byte(`{
  "$id": "https://example.com/test.schema.json",
  "type": "object",
  "properties": {
    "server": {
      "type": "object",
      "properties": {
        "url": {"type": "string"},
        "skip_tls_verify": {"type": "boolean", "default": false}
      }
    },
    "bulk": {
      "type": "object",
      "properties": {
        "batch_size": {"type": "integer", "minimum": 1, "default": 100},
        "poll_interval": {"type": "string", "default": "500ms"}
      }
    },
    "brokers": {"type": "array", "items": {"type": "string"}}
  }
}`)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("should load the schema defaults", func(t *testing.T) {
		p, err := New(ctx, testSchema, DisableEnvLoading())
		require.NoError(t, err)
		assert.Equal(t, 100, p.Int("bulk.batch_size"))
		assert.Equal(t, 500*time.Millisecond, p.Duration("bulk.poll_interval"))
		assert.False(t, p.Bool("server.skip_tls_verify"))
		assert.False(t, p.Exists("server.url"))
	})

	t.Run("should override the defaults with the config file", func(t *testing.T) {
		yml := writeFile(t, "config.yaml", "server:\n  url: http://localhost:8080\nbulk:\n  batch_size: 10\n")
		p, err := New(ctx, testSchema, DisableEnvLoading(), WithConfigFiles(yml))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", p.String("server.url"))
		assert.Equal(t, 10, p.Int("bulk.batch_size"))

		js := writeFile(t, "config.json", `{"bulk": {"batch_size": 20}}`)
		p, err = New(ctx, testSchema, DisableEnvLoading(), WithConfigFiles(yml, js))
		require.NoError(t, err)
		assert.Equal(t, 20, p.Int("bulk.batch_size"))
	})

	t.Run("should override the file with the environment", func(t *testing.T) {
		t.Setenv("BULKX_BULK_BATCH_SIZE", "42")
		t.Setenv("BULKX_SERVER_SKIP_TLS_VERIFY", "true")
		t.Setenv("BULKX_BROKERS", "a:9092,b:9092")
		t.Setenv("BULKX_UNKNOWN", "ignored")
		yml := writeFile(t, "config.yml", "bulk:\n  batch_size: 10\n")

		p, err := New(ctx, testSchema, WithConfigFiles(yml))
		require.NoError(t, err)
		assert.Equal(t, 42, p.Int("bulk.batch_size"))
		assert.True(t, p.Bool("server.skip_tls_verify"))
		assert.Equal(t, []string{"a:9092", "b:9092"}, p.Strings("brokers"))
		assert.False(t, p.Exists("unknown"))
	})

	t.Run("should honor a custom env prefix", func(t *testing.T) {
		t.Setenv("OTHER_BULK_BATCH_SIZE", "7")
		p, err := New(ctx, testSchema, WithEnvPrefix("OTHER_"))
		require.NoError(t, err)
		assert.Equal(t, 7, p.Int("bulk.batch_size"))
	})

	t.Run("should override the environment with changed flags only", func(t *testing.T) {
		t.Setenv("BULKX_BULK_BATCH_SIZE", "42")
		t.Setenv("BULKX_SERVER_URL", "http://env:8080")
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Int(FlagName("bulk.batch_size"), 100, "")
		flags.String(FlagName("server.url"), "", "")
		flags.StringSlice(FlagName("brokers"), nil, "")
		flags.String("file", "", "")
		require.NoError(t, flags.Parse([]string{"--bulk-batch-size=5", "--brokers=c:9092", "--file=docs.ndjson"}))

		p, err := New(ctx, testSchema, WithFlags(flags))
		require.NoError(t, err)
		assert.Equal(t, 5, p.Int("bulk.batch_size"))
		assert.Equal(t, "http://env:8080", p.String("server.url"))
		assert.Equal(t, []string{"c:9092"}, p.Strings("brokers"))
		assert.False(t, p.Exists("file"))
	})

	t.Run("should apply base and forced values", func(t *testing.T) {
		t.Setenv("BULKX_BULK_BATCH_SIZE", "42")
		p, err := New(ctx, testSchema,
			WithBaseValues(map[string]interface{}{"server.url": "http://base", "bulk.batch_size": 1}),
			WithValue("bulk.poll_interval", "1s"),
		)
		require.NoError(t, err)
		assert.Equal(t, "http://base", p.String("server.url"))
		assert.Equal(t, 42, p.Int("bulk.batch_size"))
		assert.Equal(t, time.Second, p.Duration("bulk.poll_interval"))

		p, err = New(ctx, testSchema, WithValues(map[string]interface{}{"bulk.batch_size": 3}))
		require.NoError(t, err)
		assert.Equal(t, 3, p.Int("bulk.batch_size"))
	})

	t.Run("should reject values the schema forbids", func(t *testing.T) {
		var out bytes.Buffer
		_, err := New(ctx, testSchema, DisableEnvLoading(), WithValue("bulk.batch_size", 0), WithStandardValidationReporter(&out))
		require.Error(t, err)
		assert.True(t, errorx.IsInvalidArgumentError(err))
		assert.Contains(t, out.String(), "bulk.batch_size")

		_, err = New(ctx, testSchema, DisableEnvLoading(), SkipValidation(), WithValue("bulk.batch_size", 0))
		assert.NoError(t, err)
	})

	t.Run("should reject values that cannot be coerced", func(t *testing.T) {
		t.Setenv("BULKX_BULK_BATCH_SIZE", "many")
		_, err := New(ctx, testSchema)
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should reject unknown file formats and missing files", func(t *testing.T) {
		_, err := New(ctx, testSchema, DisableEnvLoading(), WithConfigFiles(writeFile(t, "config.ini", "a=b")))
		assert.True(t, errorx.IsInvalidArgumentError(err))

		_, err = New(ctx, testSchema, DisableEnvLoading(), WithConfigFiles(filepath.Join(t.TempDir(), "missing.yaml")))
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should list the schema keys", func(t *testing.T) {
		p, err := New(ctx, testSchema, DisableEnvLoading())
		require.NoError(t, err)
		assert.Equal(t, []string{"brokers", "bulk.batch_size", "bulk.poll_interval", "server.skip_tls_verify", "server.url"}, p.SchemaKeys())
	})
}

func TestNames(t *testing.T) {
	assert.Equal(t, "BULKX_BULK_BATCH_SIZE", EnvName(DefaultEnvPrefix, "bulk.batch_size"))
	assert.Equal(t, "notifications-kafka-brokers", FlagName("notifications.kafka.brokers"))
}
