package otelx

const (
	ProviderNone   = ""
	ProviderStdout = "stdout"
	ProviderOTLP   = "otel"
)

type OTLPConfig struct {
	// ServerURL is the host:port of the OTLP/HTTP collector.
	ServerURL string `json:"server_url"`
	Insecure  bool   `json:"insecure"`
}

type TracingConfig struct {
	Provider      string     `json:"provider"`
	SamplingRatio float64    `json:"sampling_ratio"`
	Pretty        bool       `json:"pretty"`
	OTLP          OTLPConfig `json:"otlp"`
}

type MetricsConfig struct {
	Provider string     `json:"provider"`
	OTLP     OTLPConfig `json:"otlp"`
}

type Config struct {
	ServiceName string        `json:"service_name"`
	Tracing     TracingConfig `json:"tracing"`
	Metrics     MetricsConfig `json:"metrics"`
}
