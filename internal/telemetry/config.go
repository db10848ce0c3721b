package telemetry

// Config holds the OpenTelemetry tracing settings. Tracing is off by
// default; enabling it exports spans for every vault operation, publish,
// resolve, and façade call over OTLP/gRPC.
type Config struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP/gRPC collector address (e.g., "localhost:4317").
	Endpoint string

	// Insecure disables TLS on the exporter connection.
	Insecure bool

	// SampleRate is the head-sampling ratio in [0.0, 1.0].
	SampleRate float64
}

// DefaultConfig returns the disabled-by-default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceName:    "cipherbox",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		SampleRate:     1.0,
	}
}
