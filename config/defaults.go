package config

import "time"

// DefaultConfig returns the baseline configuration that YAML and env
// overrides are applied on top of.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    8080,
			MetricsPort: 9090,
			ReadTimeout: 30 * time.Second,
			// Streams stay open for the run's lifetime; the write timeout
			// is disabled and idle shutdown handles dead connections.
			WriteTimeout:    0,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    50,
			RateLimitBurst:  100,
		},
		Engine: EngineConfig{
			StepDelay:     100 * time.Millisecond,
			Retention:     time.Hour,
			SweepInterval: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
