package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/telemetry"
)

// LegCache is the part of the directions cache the job needs.
type LegCache interface {
	Get(from, to location.ID) (directions.Entry, bool)
	Ensure(ctx context.Context, from, to location.Location) (directions.Entry, error)
}

// PrefetchJob fetches missing route legs into the directions cache.
type PrefetchJob struct {
	config    PrefetchConfig
	cache     LegCache
	locations location.Repository
	metrics   *telemetry.PlannerMetrics
	logger    zerolog.Logger

	mu    sync.RWMutex
	stats PrefetchStats
}

// PrefetchStats accumulates over all runs of a job.
type PrefetchStats struct {
	Runs        int64
	Fetched     int64
	CacheHits   int64
	Failed      int64
	LastRunAt   time.Time
	LastRunTook time.Duration
}

// PrefetchJobConfig holds configuration for creating a PrefetchJob.
type PrefetchJobConfig struct {
	Config    PrefetchConfig
	Cache     LegCache
	Locations location.Repository
	Metrics   *telemetry.PlannerMetrics
	Logger    zerolog.Logger
}

// NewPrefetchJob creates a new prefetch job.
func NewPrefetchJob(cfg PrefetchJobConfig) *PrefetchJob {
	config := cfg.Config
	defaults := DefaultPrefetchConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &PrefetchJob{
		config:    config,
		cache:     cfg.Cache,
		locations: cfg.Locations,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// PrefetchResult contains the result of one run.
type PrefetchResult struct {
	JobID     string
	StartTime time.Time
	Duration  time.Duration
	TotalLegs int
	Fetched   int
	CacheHits int
	Failed    int
	Errors    []LegError
}

// LegError records a leg that could not be fetched.
type LegError struct {
	Leg   Leg
	Error string
}

// Run fetches every missing leg of the targets with bounded concurrency.
// Locations that cannot be resolved fail the run before any fetch starts.
func (j *PrefetchJob) Run(ctx context.Context, targets []PrefetchTarget) (*PrefetchResult, error) {
	legs := UniqueLegs(targets)
	result := &PrefetchResult{
		JobID:     uuid.NewString(),
		StartTime: time.Now(),
		TotalLegs: len(legs),
	}

	logger := j.logger.With().Str("job_id", result.JobID).Logger()

	locs, err := j.resolve(ctx, legs)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("total_legs", result.TotalLegs).
		Int("concurrency", j.config.Concurrency).
		Msg("starting directions prefetch")

	legsChan := make(chan Leg, len(legs))
	resultsChan := make(chan legResult, len(legs))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.prefetchWorker(ctx, locs, legsChan, resultsChan)
		}()
	}

	for _, leg := range legs {
		legsChan <- leg
	}
	close(legsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for lr := range resultsChan {
		switch {
		case lr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, LegError{Leg: lr.leg, Error: lr.err.Error()})
		case lr.hit:
			result.CacheHits++
		default:
			result.Fetched++
		}
	}

	result.Duration = time.Since(result.StartTime)
	j.record(result)

	logger.Info().
		Dur("duration", result.Duration).
		Int("fetched", result.Fetched).
		Int("cache_hits", result.CacheHits).
		Int("failed", result.Failed).
		Msg("directions prefetch completed")

	return result, ctx.Err()
}

type legResult struct {
	leg Leg
	hit bool
	err error
}

func (j *PrefetchJob) prefetchWorker(ctx context.Context, locs map[location.ID]location.Location, legs <-chan Leg, results chan<- legResult) {
	for leg := range legs {
		select {
		case <-ctx.Done():
			results <- legResult{leg: leg, err: ctx.Err()}
		default:
			results <- j.prefetchLeg(ctx, locs, leg)
		}
	}
}

func (j *PrefetchJob) prefetchLeg(ctx context.Context, locs map[location.ID]location.Location, leg Leg) legResult {
	if _, ok := j.cache.Get(leg.From, leg.To); ok {
		return legResult{leg: leg, hit: true}
	}

	legCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := j.cache.Ensure(legCtx, locs[leg.From], locs[leg.To])
	j.metrics.RecordDirectionsFetch(ctx, "prefetch", err)
	if err != nil {
		return legResult{leg: leg, err: err}
	}
	return legResult{leg: leg}
}

func (j *PrefetchJob) resolve(ctx context.Context, legs []Leg) (map[location.ID]location.Location, error) {
	seen := make(map[location.ID]bool)
	var ids []location.ID
	for _, leg := range legs {
		for _, id := range []location.ID{leg.From, leg.To} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	locs, err := j.locations.Get(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve prefetch locations: %w", err)
	}
	return location.Index(locs)
}

func (j *PrefetchJob) record(result *PrefetchResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.stats.Runs++
	j.stats.Fetched += int64(result.Fetched)
	j.stats.CacheHits += int64(result.CacheHits)
	j.stats.Failed += int64(result.Failed)
	j.stats.LastRunAt = result.StartTime
	j.stats.LastRunTook = result.Duration
}

// Stats returns a copy of the accumulated statistics.
func (j *PrefetchJob) Stats() PrefetchStats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats
}
