// Package app wires the planner's collaborators from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/charging"
	"github.com/chargeroute/chargeroute/internal/config"
	"github.com/chargeroute/chargeroute/internal/database"
	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/distance"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/planner"
	"github.com/chargeroute/chargeroute/internal/provider/openrouteservice"
	"github.com/chargeroute/chargeroute/internal/provider/resilience"
	"github.com/chargeroute/chargeroute/internal/solver"
	"github.com/chargeroute/chargeroute/internal/telemetry"
	"github.com/chargeroute/chargeroute/internal/worker"
)

// App holds the wired components.
type App struct {
	Locations  location.Repository
	Chargers   charging.Repository
	Distances  distance.Provider
	Directions *directions.Cache
	Planner    *planner.Service
	Prefetch   *worker.PrefetchJob
	Registry   *resilience.Registry

	closers []func() error
}

// New builds an App. Without an ORS API key distances are estimated from
// coordinates and missing legs cannot be fetched.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (_ *App, err error) {
	a := &App{Registry: resilience.NewRegistry()}
	defer func() {
		if err != nil {
			_ = a.Close() //nolint:errcheck // best effort cleanup
		}
	}()

	var pool *pgxpool.Pool
	if cfg.LocationsSource == config.SourcePostgres {
		dbConfig := database.ConfigFromEnv()
		pool, err = database.Connect(ctx, dbConfig)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		logger.Info().
			Str("host", dbConfig.Host).
			Str("database", dbConfig.Database).
			Msg("database connected")
	}

	if err := a.initLocations(cfg, pool); err != nil {
		return nil, err
	}

	var ors *openrouteservice.Client
	if cfg.ORSAPIKey != "" {
		ors = openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.ORSAPIKey,
			BaseURL:  cfg.ORSBaseURL,
			Profile:  cfg.ORSProfile,
			Registry: a.Registry,
			Logger:   logger.With().Str("provider", openrouteservice.ProviderName).Logger(),
		})
		a.Distances = distance.NewCachedProvider(distance.NewFileStore(cfg.DistanceCachePath), ors, logger)
	} else {
		logger.Warn().Msg("ORS_API_KEY not set, estimating distances from coordinates")
		a.Distances = distance.HaversineProvider{DetourFactor: distance.DefaultDetourFactor}
	}

	store, err := a.openDirectionsStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	cacheCfg := directions.CacheConfig{Store: store, Logger: logger}
	if ors != nil {
		cacheCfg.Fetcher = ors
	}
	a.Directions, err = directions.NewCache(ctx, cacheCfg)
	if err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewPlannerMetrics()
	if err != nil {
		return nil, fmt.Errorf("init planner metrics: %w", err)
	}

	a.Planner = planner.NewService(planner.Config{
		Solver: solver.New(solver.Config{
			Strategy:   cfg.SolverStrategy,
			ExactLimit: cfg.SolverExactLimit,
			TimeLimit:  cfg.SolverTimeLimit,
			Logger:     logger,
		}),
		Distances:     a.Distances,
		Locations:     a.Locations,
		Directions:    a.Directions,
		Chargers:      a.Chargers,
		StrategyLabel: string(cfg.SolverStrategy),
		Metrics:       metrics,
		Logger:        logger,
	})

	a.Prefetch = worker.NewPrefetchJob(worker.PrefetchJobConfig{
		Config: worker.PrefetchConfig{
			Concurrency: cfg.PrefetchConcurrency,
			Timeout:     worker.DefaultPrefetchConfig().Timeout,
		},
		Cache:     a.Directions,
		Locations: a.Locations,
		Metrics:   metrics,
		Logger:    logger,
	})

	return a, nil
}

func (a *App) initLocations(cfg config.Config, pool *pgxpool.Pool) error {
	if pool != nil {
		a.Locations = location.NewPostgresRepository(pool)
		a.Chargers = charging.NewPostgresRepository(pool)
		return nil
	}

	repo, err := location.NewFileRepository(cfg.LocationsPath)
	if err != nil {
		return fmt.Errorf("load locations: %w", err)
	}
	a.Locations = repo

	if cfg.ChargersPath != "" {
		stations, err := charging.LoadJSON(cfg.ChargersPath)
		if err != nil {
			return err
		}
		a.Chargers = charging.NewInMemoryRepository(stations...)
	}
	return nil
}

func (a *App) openDirectionsStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (directions.Store, error) {
	if cfg.DirectionsStore == config.SourceSQLite {
		store, err := directions.OpenSQLite(ctx, cfg.DirectionsCachePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	}
	return directions.NewFileStore(cfg.DirectionsCachePath, logger), nil
}

// Close releases databases in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
