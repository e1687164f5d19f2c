// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/chargeroute/chargeroute/internal/solver"
)

// Source names for LOCATIONS_SOURCE and DIRECTIONS_STORE.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the settings shared by the commands.
type Config struct {
	Environment string

	ORSAPIKey  string
	ORSBaseURL string
	ORSProfile string

	DirectionsStore     string
	DirectionsCachePath string
	DistanceCachePath   string

	LocationsSource string
	LocationsPath   string
	ChargersPath    string

	SolverStrategy   solver.Strategy
	SolverTimeLimit  time.Duration
	SolverExactLimit int

	OTelEnabled  bool
	OTLPEndpoint string

	PubSubProjectID     string
	PubSubSubscription  string
	PrefetchConcurrency int

	LogLevel string
}

// FromEnv reads Config from environment variables, applying defaults.
func FromEnv() (Config, error) {
	strategy, err := solver.ParseStrategy(getEnvOrDefault("SOLVER_STRATEGY", string(solver.StrategyAuto)))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	timeLimit, err := time.ParseDuration(getEnvOrDefault("SOLVER_TIME_LIMIT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: SOLVER_TIME_LIMIT: %w", ErrInvalid, err)
	}

	exactLimit, err := strconv.Atoi(getEnvOrDefault("SOLVER_EXACT_LIMIT", strconv.Itoa(solver.DefaultExactLimit)))
	if err != nil {
		return Config{}, fmt.Errorf("%w: SOLVER_EXACT_LIMIT: %w", ErrInvalid, err)
	}

	concurrency, err := strconv.Atoi(getEnvOrDefault("PREFETCH_CONCURRENCY", "3"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: PREFETCH_CONCURRENCY: %w", ErrInvalid, err)
	}

	otelEnabled, err := strconv.ParseBool(getEnvOrDefault("OTEL_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: OTEL_ENABLED: %w", ErrInvalid, err)
	}

	cfg := Config{
		Environment:         getEnvOrDefault("APP_ENV", "development"),
		ORSAPIKey:           os.Getenv("ORS_API_KEY"),
		ORSBaseURL:          getEnvOrDefault("ORS_BASE_URL", "https://api.openrouteservice.org"),
		ORSProfile:          getEnvOrDefault("ORS_PROFILE", "driving-car"),
		DirectionsStore:     getEnvOrDefault("DIRECTIONS_STORE", SourceFile),
		DirectionsCachePath: getEnvOrDefault("DIRECTIONS_CACHE_PATH", "cached_directions.json"),
		DistanceCachePath:   getEnvOrDefault("DISTANCE_CACHE_PATH", "cached_distances.json"),
		LocationsSource:     getEnvOrDefault("LOCATIONS_SOURCE", SourceFile),
		LocationsPath:       getEnvOrDefault("LOCATIONS_PATH", "cached_attractions.json"),
		ChargersPath:        os.Getenv("CHARGERS_PATH"),
		SolverStrategy:      strategy,
		SolverTimeLimit:     timeLimit,
		SolverExactLimit:    exactLimit,
		OTelEnabled:         otelEnabled,
		OTLPEndpoint:        getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		PubSubProjectID:     os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubSubscription:  getEnvOrDefault("PUBSUB_SUBSCRIPTION", "chargeroute-prefetch"),
		PrefetchConcurrency: concurrency,
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	switch c.DirectionsStore {
	case SourceFile, SourceSQLite:
	default:
		return fmt.Errorf("%w: DIRECTIONS_STORE %q", ErrInvalid, c.DirectionsStore)
	}
	switch c.LocationsSource {
	case SourceFile, SourcePostgres:
	default:
		return fmt.Errorf("%w: LOCATIONS_SOURCE %q", ErrInvalid, c.LocationsSource)
	}
	if c.PrefetchConcurrency < 1 {
		return fmt.Errorf("%w: PREFETCH_CONCURRENCY must be positive", ErrInvalid)
	}
	if c.SolverExactLimit < 2 || c.SolverExactLimit > solver.MaxExactLocations {
		return fmt.Errorf("%w: SOLVER_EXACT_LIMIT must be between 2 and %d", ErrInvalid, solver.MaxExactLocations)
	}
	if c.SolverTimeLimit < 0 {
		return fmt.Errorf("%w: SOLVER_TIME_LIMIT must not be negative", ErrInvalid)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
