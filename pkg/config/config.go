// Package config loads the execution engine's runtime configuration: the
// scheduler's worker pool size, the outbound HTTP client defaults, and the
// per-service circuit breaker thresholds. Values come from environment
// variables (FLOWCORE_*) with sane defaults, following the engine's override
// pattern of the cluster-discovered workflow definitions.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SchedulerConfig controls the Scheduler's (C4) bounded worker pool.
type SchedulerConfig struct {
	// Parallelism is the default number of tasks allowed to run
	// concurrently within a single execution. Per-execution options can
	// override this.
	Parallelism int `mapstructure:"parallelism"`
}

// HTTPConfig controls the outbound HTTP client used by HTTP tasks (C2).
type HTTPConfig struct {
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ResponseTimeout time.Duration `mapstructure:"response_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
}

// CircuitBreakerConfig controls the per-hostname circuit breaker.
type CircuitBreakerConfig struct {
	FailureThreshold     uint32        `mapstructure:"failure_threshold"`
	CoolOff              time.Duration `mapstructure:"cool_off"`
	HalfOpenMaxRequests  uint32        `mapstructure:"half_open_max_requests"`
	HalfOpenSuccessCount uint32        `mapstructure:"half_open_success_count"`
}

// Config is the root configuration object for the execution engine.
type Config struct {
	Scheduler      SchedulerConfig      `mapstructure:"scheduler"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// DefaultConfig returns conservative production defaults: parallelism 50,
// a five-failure threshold opening the circuit, and a half-open trial of
// two consecutive successes before closing again.
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Parallelism: 50,
		},
		HTTP: HTTPConfig{
			DialTimeout:     5 * time.Second,
			ResponseTimeout: 30 * time.Second,
			MaxIdleConns:    100,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold:     5,
			CoolOff:              30 * time.Second,
			HalfOpenMaxRequests:  2,
			HalfOpenSuccessCount: 2,
		},
	}
}

// Load reads configuration from FLOWCORE_* environment variables, falling
// back to DefaultConfig for anything unset. A .env file in the working
// directory is loaded first, if present, so local development doesn't
// require exporting every variable by hand.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FLOWCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	v.SetDefault("scheduler.parallelism", cfg.Scheduler.Parallelism)
	v.SetDefault("http.dial_timeout", cfg.HTTP.DialTimeout)
	v.SetDefault("http.response_timeout", cfg.HTTP.ResponseTimeout)
	v.SetDefault("http.max_idle_conns", cfg.HTTP.MaxIdleConns)
	v.SetDefault("circuit_breaker.failure_threshold", cfg.CircuitBreaker.FailureThreshold)
	v.SetDefault("circuit_breaker.cool_off", cfg.CircuitBreaker.CoolOff)
	v.SetDefault("circuit_breaker.half_open_max_requests", cfg.CircuitBreaker.HalfOpenMaxRequests)
	v.SetDefault("circuit_breaker.half_open_success_count", cfg.CircuitBreaker.HalfOpenSuccessCount)

	bind := func(keys ...string) error {
		for _, k := range keys {
			if err := v.BindEnv(k); err != nil {
				return fmt.Errorf("failed to bind env for %s: %w", k, err)
			}
		}
		return nil
	}
	if err := bind(
		"scheduler.parallelism",
		"http.dial_timeout", "http.response_timeout", "http.max_idle_conns",
		"circuit_breaker.failure_threshold", "circuit_breaker.cool_off",
		"circuit_breaker.half_open_max_requests", "circuit_breaker.half_open_success_count",
	); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
