package domain

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete Harrier configuration.
type Config struct {
	// Component configurations
	Repository RepositoryConfig `yaml:"repository"`
	Cache      CacheConfig      `yaml:"cache"`
	EventBus   EventBusConfig   `yaml:"eventBus"`

	// Engine settings
	Engine EngineConfig `yaml:"engine"`

	// Worker settings
	Worker WorkerConfig `yaml:"worker"`

	// Observability
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// EngineConfig holds adjudication and fraud engine settings.
type EngineConfig struct {
	// BenefitsCacheTTL is how long resolved member benefits payloads are cached.
	BenefitsCacheTTL time.Duration `yaml:"benefitsCacheTtl"`

	// RatioCacheTTL is how long provider code-usage ratios are cached.
	RatioCacheTTL time.Duration `yaml:"ratioCacheTtl"`

	// UpcodingLookbackDays bounds the claim history window used to compute
	// provider code-usage ratios.
	UpcodingLookbackDays int `yaml:"upcodingLookbackDays"`
}

// WorkerConfig holds async worker settings.
type WorkerConfig struct {
	// InsurerIDs is the list of insurers to process (empty = all)
	InsurerIDs []string `yaml:"insurerIds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"serviceName"`
	Endpoint    string `yaml:"endpoint"`
}

// DefaultConfig returns the default configuration: SQLite storage, in-memory
// cache, channel event bus.
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./harrier.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Engine: EngineConfig{
			BenefitsCacheTTL:     10 * time.Minute,
			RatioCacheTTL:        time.Hour,
			UpcodingLookbackDays: 365,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "harrier",
		},
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}
