package pubsubx

type Config struct {
	Scope     string          `json:"scope"`
	Provider  string          `json:"provider"`
	Providers ProvidersConfig `json:"providers"`
}

type ProvidersConfig struct {
	InMemory InMemoryConfig `json:"inmemory"`
	Kafka    KafkaConfig    `json:"kafka"`
}

type InMemoryConfig struct {
	// BufferSize is the number of notifications queued per subscription before publishing blocks.
	BufferSize int `json:"buffer_size"`
}

type KafkaConfig struct {
	Brokers []string `json:"brokers"`
	Topic   string   `json:"topic"`
}

const (
	ProviderInMemory = "inmemory"
	ProviderKafka    = "kafka"

	DefaultTopic = "bulk-insert-changes"
)
