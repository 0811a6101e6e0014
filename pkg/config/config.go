// Package config defines the explicit configuration surface of the
// planning pipeline: cache TTLs per data class, executor concurrency and
// deadline, and collaborator retry/rate-limit settings. Configuration is
// passed by value into constructors; there is no global mutable state.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use human-readable
// values like "30s" or "6h".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// CacheConfig configures the TTL cache store.
type CacheConfig struct {
	// Path is the SQLite database file backing both cache namespaces.
	Path string `yaml:"path" json:"path"`

	// EphemeralTTL applies to volatile data (weather, searches).
	EphemeralTTL Duration `yaml:"ephemeral_ttl" json:"ephemeral_ttl"`

	// DurableTTL applies to slow-changing reference data (places).
	DurableTTL Duration `yaml:"durable_ttl" json:"durable_ttl"`
}

// ExecutorConfig configures the workflow executor.
type ExecutorConfig struct {
	// MaxConcurrentStages bounds one fan-out's parallelism.
	MaxConcurrentStages int `yaml:"max_concurrent_stages" json:"max_concurrent_stages"`

	// RunDeadline caps one run end to end. Zero disables the deadline.
	RunDeadline Duration `yaml:"run_deadline" json:"run_deadline"`
}

// AdapterConfig configures collaborator adapters.
type AdapterConfig struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	InitialBackoff    Duration `yaml:"initial_backoff" json:"initial_backoff"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	MaxBackoff        Duration `yaml:"max_backoff" json:"max_backoff"`

	// RateLimitPerSecond caps real collaborator calls per adapter instance.
	RateLimitPerSecond int `yaml:"rate_limit_per_second" json:"rate_limit_per_second"`
}

// Config is the full configuration of a Runner.
type Config struct {
	Cache    CacheConfig    `yaml:"cache" json:"cache"`
	Executor ExecutorConfig `yaml:"executor" json:"executor"`
	Adapters AdapterConfig  `yaml:"adapters" json:"adapters"`
}

// Default returns the configuration used when no file is supplied.
// TTL defaults mirror the data volatility split: hours for live data,
// a week for reference data.
func Default() Config {
	return Config{
		Cache: CacheConfig{
			Path:         "wayfarer.db",
			EphemeralTTL: Duration(6 * time.Hour),
			DurableTTL:   Duration(7 * 24 * time.Hour),
		},
		Executor: ExecutorConfig{
			MaxConcurrentStages: 4,
			RunDeadline:         Duration(2 * time.Minute),
		},
		Adapters: AdapterConfig{
			MaxAttempts:        3,
			InitialBackoff:     Duration(200 * time.Millisecond),
			BackoffMultiplier:  2.0,
			MaxBackoff:         Duration(5 * time.Second),
			RateLimitPerSecond: 10,
		},
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c Config) Validate() error {
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required")
	}
	if c.Cache.EphemeralTTL <= 0 {
		return fmt.Errorf("cache.ephemeral_ttl must be positive, got %s", c.Cache.EphemeralTTL)
	}
	if c.Cache.DurableTTL <= 0 {
		return fmt.Errorf("cache.durable_ttl must be positive, got %s", c.Cache.DurableTTL)
	}
	if c.Executor.MaxConcurrentStages <= 0 {
		return fmt.Errorf("executor.max_concurrent_stages must be positive, got %d", c.Executor.MaxConcurrentStages)
	}
	if c.Executor.RunDeadline < 0 {
		return fmt.Errorf("executor.run_deadline must not be negative, got %s", c.Executor.RunDeadline)
	}
	if c.Adapters.MaxAttempts <= 0 {
		return fmt.Errorf("adapters.max_attempts must be positive, got %d", c.Adapters.MaxAttempts)
	}
	if c.Adapters.RateLimitPerSecond < 0 {
		return fmt.Errorf("adapters.rate_limit_per_second must not be negative, got %d", c.Adapters.RateLimitPerSecond)
	}
	return nil
}
