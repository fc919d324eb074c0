package observability

// Config groups the observability knobs shared by the library and the demo
// server. Zero values mean quiet console logging and no tracing.
type Config struct {
	Logging LogConfig   `json:"logging" yaml:"logging"`
	Tracing TraceConfig `json:"tracing" yaml:"tracing"`
}

// TraceConfig controls the otel tracer. Spans go to the stdouttrace
// exporter; for a development-time library stdout is the right sink.
type TraceConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name"`
	Version     string `json:"version" yaml:"version"`
}

func DefaultConfig() Config {
	return Config{
		Logging: DefaultLogConfig(),
		Tracing: DefaultTraceConfig(),
	}
}

func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		Enabled:     false,
		ServiceName: "snapfire",
		Version:     "dev",
	}
}
