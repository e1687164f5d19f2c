package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/chargeroute/chargeroute/internal/telemetry"

// PlannerMetrics holds the instruments recorded by the route planner.
type PlannerMetrics struct {
	solveDuration   metric.Float64Histogram
	planTotal       metric.Int64Counter
	directionsFetch metric.Int64Counter
	tourLocations   metric.Int64Histogram
}

// NewPlannerMetrics creates planner instruments on the global meter provider.
func NewPlannerMetrics() (*PlannerMetrics, error) {
	return NewPlannerMetricsWithMeter(otel.Meter(meterName))
}

// NewPlannerMetricsWithMeter creates planner instruments on the given meter.
func NewPlannerMetricsWithMeter(meter metric.Meter) (*PlannerMetrics, error) {
	solveDuration, err := meter.Float64Histogram(
		"planner.solve.duration",
		metric.WithDescription("Duration of route ordering in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	planTotal, err := meter.Int64Counter(
		"planner.plan.total",
		metric.WithDescription("Total number of plan requests by outcome"),
		metric.WithUnit("{plan}"),
	)
	if err != nil {
		return nil, err
	}

	directionsFetch, err := meter.Int64Counter(
		"planner.directions.fetch",
		metric.WithDescription("Number of directions legs fetched from the provider"),
		metric.WithUnit("{leg}"),
	)
	if err != nil {
		return nil, err
	}

	tourLocations, err := meter.Int64Histogram(
		"planner.tour.locations",
		metric.WithDescription("Number of locations per solved tour"),
		metric.WithUnit("{location}"),
	)
	if err != nil {
		return nil, err
	}

	return &PlannerMetrics{
		solveDuration:   solveDuration,
		planTotal:       planTotal,
		directionsFetch: directionsFetch,
		tourLocations:   tourLocations,
	}, nil
}

// RecordSolve records one solver run.
func (m *PlannerMetrics) RecordSolve(ctx context.Context, strategy string, locations int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("solver.strategy", strategy),
		attribute.Bool("error", err != nil),
	)
	m.solveDuration.Record(ctx, duration.Seconds(), attrs)
	m.tourLocations.Record(ctx, int64(locations), attrs)
}

// RecordPlan counts a finished plan by outcome, e.g. "reached", "partial" or "error".
func (m *PlannerMetrics) RecordPlan(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.planTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("plan.outcome", outcome)))
}

// RecordDirectionsFetch counts a provider fetch for a missing leg.
func (m *PlannerMetrics) RecordDirectionsFetch(ctx context.Context, source string, err error) {
	if m == nil {
		return
	}
	m.directionsFetch.Add(ctx, 1, metric.WithAttributes(
		attribute.String("fetch.source", source),
		attribute.Bool("error", err != nil),
	))
}
