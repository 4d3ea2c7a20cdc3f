package internal

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration file cannot be parsed.
var ErrInvalidConfig = errors.New("expanse: invalid configuration")

// Config is the file- and environment-driven part of the application setup.
// Values are applied in order: defaults, YAML file, environment.
type Config struct {
	// Address the server listens on.
	Address string `yaml:"address" env:"APP_ADDRESS"`

	// Debug exposes error details and stack traces in error responses.
	Debug bool `yaml:"debug" env:"APP_DEBUG"`

	// OffloadWorkers bounds the pool that runs blocking handlers.
	// Zero means GOMAXPROCS*4.
	OffloadWorkers int `yaml:"offload_workers" env:"APP_OFFLOAD_WORKERS"`

	// JSONFallback renders results without a dedicated adapter as JSON.
	JSONFallback bool `yaml:"json_fallback" env:"APP_JSON_FALLBACK"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"APP_SHUTDOWN_TIMEOUT"`

	// Health enables the liveness and readiness endpoints.
	Health HealthConfig `yaml:"health" envPrefix:"APP_HEALTH_"`
}

// HealthConfig configures the health endpoints.
type HealthConfig struct {
	Enabled       bool   `yaml:"enabled" env:"ENABLED"`
	LivenessPath  string `yaml:"liveness_path" env:"LIVENESS_PATH"`
	ReadinessPath string `yaml:"readiness_path" env:"READINESS_PATH"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Address:         ":8080",
		ShutdownTimeout: defaultShutdownTimeout,
		Health: HealthConfig{
			LivenessPath:  defaultLivenessPath,
			ReadinessPath: defaultReadinessPath,
		},
	}
}

// LoadConfig reads the YAML file at path (optional when empty) and applies
// environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Join(ErrInvalidConfig, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Join(ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML bytes on top of the defaults. Environment
// variables are not consulted.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Join(ErrInvalidConfig, err)
	}
	return cfg, nil
}
