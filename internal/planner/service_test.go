package planner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/charging"
	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/distance"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/planner"
	"github.com/chargeroute/chargeroute/internal/precedence"
	"github.com/chargeroute/chargeroute/internal/rangeplan"
	"github.com/chargeroute/chargeroute/internal/solver"
)

type fixedMatrix struct {
	m   *distance.Matrix
	err error
}

func (f fixedMatrix) Matrix(_ context.Context, locs []location.Location) (*distance.Matrix, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.m.Submatrix(location.IDs(locs))
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) Fetch(_ context.Context, from, to location.Location) (directions.Entry, error) {
	f.calls.Add(1)
	if f.err != nil {
		return directions.Entry{}, f.err
	}
	return directions.Entry{
		DistanceMeters:  116000,
		DurationSeconds: 4800,
		Geometry: directions.Geometry{
			Type:        "LineString",
			Coordinates: [][2]float64{{from.Lon, from.Lat}, {to.Lon, to.Lat}},
		},
	}, nil
}

type fixture struct {
	service *planner.Service
	fetcher *countingFetcher
	cache   *directions.Cache
}

func newFixture(t *testing.T, chargers charging.Repository) *fixture {
	t.Helper()

	locs := location.NewInMemoryRepository(
		location.Location{ID: 578, Lat: 46.60, Lon: 8.00, Name: "start"},
		location.Location{ID: 497, Lat: 47.60, Lon: 8.00, Name: "middle"},
		location.Location{ID: 881, Lat: 47.60, Lon: 10.00, Name: "end"},
	)

	m, err := distance.NewMatrix([]location.ID{578, 497, 881}, [][]float64{
		{0, 116000, 300000},
		{116000, 0, 144000},
		{300000, 144000, 0},
	})
	require.NoError(t, err)

	fetcher := &countingFetcher{}
	cache, err := directions.NewCache(context.Background(), directions.CacheConfig{Fetcher: fetcher})
	require.NoError(t, err)

	svc := planner.NewService(planner.Config{
		Solver:        solver.New(solver.Config{Logger: zerolog.Nop()}),
		Distances:     fixedMatrix{m: m},
		Locations:     locs,
		Directions:    cache,
		Chargers:      chargers,
		StrategyLabel: "auto",
		Logger:        zerolog.Nop(),
	})
	return &fixture{service: svc, fetcher: fetcher, cache: cache}
}

func startAt(id location.ID) *location.ID { return &id }

func mileage(v float64) *float64 { return &v }

func TestPlan_OrderOnly(t *testing.T) {
	f := newFixture(t, nil)

	plan, err := f.service.Plan(context.Background(), planner.Request{
		Locations: []location.ID{881, 497, 578},
		Start:     startAt(578),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, plan.SessionID)
	assert.Equal(t, []location.ID{578, 497, 881}, plan.Tour.Order)
	assert.Equal(t, 260000.0, plan.Tour.Distance)
	assert.Nil(t, plan.Reach)
	assert.Equal(t, "ordered", plan.Outcome())
	assert.Zero(t, f.fetcher.calls.Load())
}

func TestPlan_ReachedEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	plan, err := f.service.Plan(context.Background(), planner.Request{
		Locations:  []location.ID{578, 497, 881},
		Start:      startAt(578),
		MaxMileage: mileage(260000),
	})
	require.NoError(t, err)

	require.NotNil(t, plan.Reach)
	assert.True(t, plan.Reach.ReachedEndpoint)
	assert.Equal(t, location.ID(881), plan.Reach.MaxReachLocation)
	assert.Zero(t, plan.Reach.RemainingBudget)
	assert.Equal(t, "reached", plan.Outcome())
}

func TestPlan_FetchesMissingLegOnce(t *testing.T) {
	stations := charging.NewInMemoryRepository(
		charging.Station{ID: 1, Lat: 47.38, Lon: 8.00},
		charging.Station{ID: 2, Lat: 46.61, Lon: 8.00},
	)
	f := newFixture(t, stations)

	plan, err := f.service.Plan(context.Background(), planner.Request{
		Locations:  []location.ID{578, 497, 881},
		Start:      startAt(578),
		MaxMileage: mileage(90000),
	})
	require.NoError(t, err)

	require.NotNil(t, plan.Reach)
	assert.False(t, plan.Reach.ReachedEndpoint)
	assert.Equal(t, location.ID(578), plan.Reach.MaxReachLocation)
	require.NotNil(t, plan.Reach.Next)
	assert.Equal(t, location.ID(497), *plan.Reach.Next)
	assert.InDelta(t, 90000.0/116000.0, plan.Reach.Ratio, 1e-9)
	assert.InDelta(t, 46.60+0.7759, *plan.Reach.Lat, 1e-3)
	assert.Equal(t, int32(1), f.fetcher.calls.Load())
	assert.Equal(t, 1, f.cache.Len())

	require.Len(t, plan.Chargers, 2)
	assert.Equal(t, int64(1), plan.Chargers[0].ID)
	assert.Equal(t, "partial", plan.Outcome())

	_, err = f.service.Plan(context.Background(), planner.Request{
		Locations:  []location.ID{578, 497, 881},
		Start:      startAt(578),
		MaxMileage: mileage(50000),
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.fetcher.calls.Load())
}

func TestPlan_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.service.Plan(ctx, planner.Request{Locations: []location.ID{578, 497}})
	assert.ErrorIs(t, err, precedence.ErrNoStartingPoint)

	_, err = f.service.Plan(ctx, planner.Request{
		Locations: []location.ID{578, 497, 881},
		Start:     startAt(578),
		Precedences: []precedence.Precedence{
			{Before: 497, After: 881},
			{Before: 881, After: 497},
		},
	})
	assert.ErrorIs(t, err, precedence.ErrPrecedenceCycle)

	_, err = f.service.Plan(ctx, planner.Request{
		Locations: []location.ID{578, 12},
		Start:     startAt(578),
	})
	assert.ErrorIs(t, err, location.ErrNotFound)
}

func TestPlan_FetchFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.fetcher.err = errors.New("provider down")

	_, err := f.service.Plan(context.Background(), planner.Request{
		Locations:  []location.ID{578, 497, 881},
		Start:      startAt(578),
		MaxMileage: mileage(90000),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, rangeplan.ErrMissingDirectionsLeg)
	assert.Contains(t, err.Error(), "provider down")
}

func TestReach(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	plan, err := f.service.Reach(ctx, planner.ReachRequest{
		OrderedRoute: []location.ID{578, 497, 881},
		MaxMileage:   116000,
	})
	require.NoError(t, err)
	assert.Nil(t, plan.Tour)
	assert.Equal(t, location.ID(497), plan.Reach.MaxReachLocation)
	assert.False(t, plan.Reach.ReachedEndpoint)

	_, err = f.service.Reach(ctx, planner.ReachRequest{OrderedRoute: []location.ID{578}})
	assert.ErrorIs(t, err, rangeplan.ErrTourTooShort)

	_, err = f.service.Reach(ctx, planner.ReachRequest{
		OrderedRoute: []location.ID{578, 497},
		MaxMileage:   -1,
	})
	assert.ErrorIs(t, err, rangeplan.ErrInvalidBudget)
}
