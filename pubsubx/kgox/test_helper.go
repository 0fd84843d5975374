package kgox

import (
	"os"
	"strings"
	"testing"

	"github.com/clinia/bulkx/pubsubx"
	"github.com/segmentio/ksuid"
)

// getPubsubConfig skips the test unless the KAFKA environment variable lists the brokers to use.
func getPubsubConfig(t *testing.T) *pubsubx.Config {
	t.Helper()
	brokers := os.Getenv("KAFKA")
	if brokers == "" {
		t.Skip("KAFKA is not set, skipping kafka integration test")
	}

	return &pubsubx.Config{
		Scope:    "test-scope",
		Provider: pubsubx.ProviderKafka,
		Providers: pubsubx.ProvidersConfig{
			Kafka: pubsubx.KafkaConfig{
				Brokers: strings.Split(brokers, ","),
				Topic:   "bulk-insert-changes-" + strings.ToLower(ksuid.New().String()),
			},
		},
	}
}
