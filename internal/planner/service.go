// Package planner runs the full planning pipeline: validate the route, fetch
// distances, order the stops and locate where the range budget runs out.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chargeroute/chargeroute/internal/charging"
	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/distance"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/precedence"
	"github.com/chargeroute/chargeroute/internal/rangeplan"
	"github.com/chargeroute/chargeroute/internal/solver"
	"github.com/chargeroute/chargeroute/internal/telemetry"
)

const tracerName = "github.com/chargeroute/chargeroute/internal/planner"

// RouteSolver orders the stops of a route.
type RouteSolver interface {
	Solve(ctx context.Context, r precedence.Route, m *distance.Matrix) (*solver.Tour, error)
}

// LegCache serves leg geometries and fetches the ones it does not have.
type LegCache interface {
	rangeplan.Legs
	Ensure(ctx context.Context, from, to location.Location) (directions.Entry, error)
}

// Config wires the service's collaborators.
type Config struct {
	Solver     RouteSolver
	Distances  distance.Provider
	Locations  location.Repository
	Directions LegCache

	// Chargers is optional; when set, stations near a mid-leg reach point are reported.
	Chargers     charging.Repository
	ChargerCount int

	// StrategyLabel tags solve metrics.
	StrategyLabel string

	Metrics *telemetry.PlannerMetrics
	Tracer  trace.Tracer
	Logger  zerolog.Logger
}

// Service plans routes.
type Service struct {
	solver       RouteSolver
	distances    distance.Provider
	locations    location.Repository
	legs         LegCache
	chargers     charging.Repository
	chargerCount int
	strategy     string
	metrics      *telemetry.PlannerMetrics
	tracer       trace.Tracer
	logger       zerolog.Logger
}

// NewService creates a planner service.
func NewService(cfg Config) *Service {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	count := cfg.ChargerCount
	if count <= 0 {
		count = charging.DefaultNearestCount
	}
	return &Service{
		solver:       cfg.Solver,
		distances:    cfg.Distances,
		locations:    cfg.Locations,
		legs:         cfg.Directions,
		chargers:     cfg.Chargers,
		chargerCount: count,
		strategy:     cfg.StrategyLabel,
		metrics:      cfg.Metrics,
		tracer:       tracer,
		logger:       cfg.Logger,
	}
}

// Plan validates the request, orders its stops and, if a mileage budget is
// given, finds the reach point along the ordered tour.
func (s *Service) Plan(ctx context.Context, req Request) (_ *Plan, err error) {
	plan := &Plan{SessionID: uuid.NewString()}
	logger := s.logger.With().Str("session_id", plan.SessionID).Logger()

	ctx, span := s.tracer.Start(ctx, "planner.Plan", trace.WithAttributes(
		attribute.String("session.id", plan.SessionID),
		attribute.Int("route.locations", len(req.Locations)),
		attribute.Int("route.precedences", len(req.Precedences)),
	))
	defer func() { s.finish(ctx, span, plan, err) }()

	route := req.Route()
	if err := precedence.Validate(route); err != nil {
		return nil, err
	}

	locs, matrix, err := s.load(ctx, req.Locations)
	if err != nil {
		return nil, err
	}

	began := time.Now()
	tour, err := s.solver.Solve(ctx, route, matrix)
	s.metrics.RecordSolve(ctx, s.strategy, len(req.Locations), time.Since(began), err)
	if err != nil {
		return nil, fmt.Errorf("solve route: %w", err)
	}
	plan.Tour = tour

	logger.Info().
		Interface("order", tour.Order).
		Float64("distance", tour.Distance).
		Msg("route ordered")

	if req.MaxMileage == nil {
		return plan, nil
	}

	if err := s.reach(ctx, plan, tour.Order, *req.MaxMileage, matrix, locs, logger); err != nil {
		return nil, err
	}
	return plan, nil
}

// Reach finds the reach point along an already ordered route.
func (s *Service) Reach(ctx context.Context, req ReachRequest) (_ *Plan, err error) {
	plan := &Plan{SessionID: uuid.NewString()}
	logger := s.logger.With().Str("session_id", plan.SessionID).Logger()

	ctx, span := s.tracer.Start(ctx, "planner.Reach", trace.WithAttributes(
		attribute.String("session.id", plan.SessionID),
		attribute.Int("route.locations", len(req.OrderedRoute)),
		attribute.Float64("route.max_mileage", req.MaxMileage),
	))
	defer func() { s.finish(ctx, span, plan, err) }()

	if len(req.OrderedRoute) < 2 {
		return nil, rangeplan.ErrTourTooShort
	}

	locs, matrix, err := s.load(ctx, req.OrderedRoute)
	if err != nil {
		return nil, err
	}

	if err := s.reach(ctx, plan, req.OrderedRoute, req.MaxMileage, matrix, locs, logger); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) load(ctx context.Context, ids []location.ID) (map[location.ID]location.Location, *distance.Matrix, error) {
	locs, err := s.locations.Get(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load locations: %w", err)
	}
	byID, err := location.Index(locs)
	if err != nil {
		return nil, nil, err
	}

	matrix, err := s.distances.Matrix(ctx, locs)
	if err != nil {
		return nil, nil, fmt.Errorf("distance matrix: %w", err)
	}
	return byID, matrix, nil
}

// reach fills plan.Reach. A leg missing from the cache is fetched once and the
// lookup retried.
func (s *Service) reach(
	ctx context.Context,
	plan *Plan,
	order []location.ID,
	budget float64,
	matrix *distance.Matrix,
	locs map[location.ID]location.Location,
	logger zerolog.Logger,
) error {
	result, err := rangeplan.FindReachPoint(order, budget, matrix, s.legs)

	var missing *rangeplan.MissingLegError
	if errors.As(err, &missing) {
		logger.Debug().
			Int64("from", int64(missing.From)).
			Int64("to", int64(missing.To)).
			Msg("fetching missing leg")

		_, fetchErr := s.legs.Ensure(ctx, locs[missing.From], locs[missing.To])
		s.metrics.RecordDirectionsFetch(ctx, "planner", fetchErr)
		if fetchErr != nil {
			return fmt.Errorf("%w: %w", err, fetchErr)
		}
		result, err = rangeplan.FindReachPoint(order, budget, matrix, s.legs)
	}
	if err != nil {
		return err
	}
	plan.Reach = result

	if result.ReachedEndpoint || s.chargers == nil {
		return nil
	}

	nearby, err := s.chargers.Nearest(ctx, *result.Lat, *result.Lon, s.chargerCount)
	if err != nil {
		logger.Warn().Err(err).Msg("charger lookup failed")
		return nil
	}
	plan.Chargers = nearby
	return nil
}

func (s *Service) finish(ctx context.Context, span trace.Span, plan *Plan, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordPlan(ctx, "error")
		s.logger.Warn().Err(err).Str("session_id", plan.SessionID).Msg("planning failed")
		return
	}
	outcome := plan.Outcome()
	span.SetAttributes(attribute.String("plan.outcome", outcome))
	s.metrics.RecordPlan(ctx, outcome)
}
