package rangeplan_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/directions"
	"github.com/chargeroute/chargeroute/internal/distance"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/rangeplan"
)

type legMap map[directions.Key]directions.Entry

func (m legMap) Get(from, to location.ID) (directions.Entry, bool) {
	e, ok := m[directions.Key{From: from, To: to}]
	return e, ok
}

var tour = []location.ID{578, 497, 881}

func scenario(t *testing.T) (*distance.Matrix, legMap) {
	t.Helper()
	m, err := distance.NewMatrix(tour, [][]float64{
		{0, 116000, 240000},
		{116000, 0, 144000},
		{240000, 144000, 0},
	})
	require.NoError(t, err)

	legs := legMap{
		{From: 578, To: 497}: {
			DistanceMeters: 116000,
			Geometry: directions.Geometry{
				Type:        "LineString",
				Coordinates: [][2]float64{{8.31, 47.05}, {8.25, 46.90}, {8.12, 46.75}, {8.04, 46.62}},
			},
		},
		{From: 497, To: 881}: {
			DistanceMeters: 144000,
			Geometry: directions.Geometry{
				Type:        "LineString",
				Coordinates: [][2]float64{{8.04, 46.62}, {7.90, 46.50}},
			},
		},
	}
	return m, legs
}

func TestCumulativeDistanceTo(t *testing.T) {
	m, _ := scenario(t)

	d, err := rangeplan.CumulativeDistanceTo(tour, 578, m)
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = rangeplan.CumulativeDistanceTo(tour, 497, m)
	require.NoError(t, err)
	assert.Equal(t, 116000.0, d)

	d, err = rangeplan.CumulativeDistanceTo(tour, 881, m)
	require.NoError(t, err)
	assert.Equal(t, 260000.0, d)

	_, err = rangeplan.CumulativeDistanceTo(tour, 5, m)
	assert.ErrorIs(t, err, rangeplan.ErrLocationNotInTour)
}

func TestFindLastReachable(t *testing.T) {
	m, _ := scenario(t)

	tests := []struct {
		budget        float64
		wantLocation  location.ID
		wantRemaining float64
	}{
		{budget: 0, wantLocation: 578, wantRemaining: 0},
		{budget: 90000, wantLocation: 578, wantRemaining: 90000},
		{budget: 116000, wantLocation: 497, wantRemaining: 0},
		{budget: 200000, wantLocation: 497, wantRemaining: 84000},
		{budget: 260000, wantLocation: 881, wantRemaining: 0},
		{budget: 300000, wantLocation: 881, wantRemaining: 40000},
	}

	for _, tt := range tests {
		got, remaining, err := rangeplan.FindLastReachable(tour, tt.budget, m)
		require.NoError(t, err)
		assert.Equal(t, tt.wantLocation, got, "budget %v", tt.budget)
		assert.Equal(t, tt.wantRemaining, remaining, "budget %v", tt.budget)
	}
}

func TestFindLastReachable_Monotonic(t *testing.T) {
	m, _ := scenario(t)

	prev := 0
	for budget := 0.0; budget <= 300000; budget += 5000 {
		got, _, err := rangeplan.FindLastReachable(tour, budget, m)
		require.NoError(t, err)

		pos := 0
		for i, id := range tour {
			if id == got {
				pos = i
			}
		}
		assert.GreaterOrEqual(t, pos, prev)
		prev = pos
	}
}

func TestFindLastReachable_Errors(t *testing.T) {
	m, _ := scenario(t)

	_, _, err := rangeplan.FindLastReachable([]location.ID{578}, 10, m)
	assert.ErrorIs(t, err, rangeplan.ErrTourTooShort)

	_, _, err = rangeplan.FindLastReachable(tour, -1, m)
	assert.ErrorIs(t, err, rangeplan.ErrInvalidBudget)

	_, _, err = rangeplan.FindLastReachable(tour, math.NaN(), m)
	assert.ErrorIs(t, err, rangeplan.ErrInvalidBudget)

	_, _, err = rangeplan.FindLastReachable([]location.ID{578, 1}, 10, m)
	assert.ErrorIs(t, err, distance.ErrUnknownLocation)
}

func TestFindReachPoint_Endpoint(t *testing.T) {
	m, legs := scenario(t)

	res, err := rangeplan.FindReachPoint(tour, 260000, m, legs)
	require.NoError(t, err)
	assert.Equal(t, location.ID(881), res.MaxReachLocation)
	assert.True(t, res.ReachedEndpoint)
	assert.Zero(t, res.RemainingBudget)
	assert.Nil(t, res.Lat)
	assert.Nil(t, res.Lon)
	assert.Nil(t, res.Next)
}

func TestFindReachPoint_AtIntermediateStop(t *testing.T) {
	m, legs := scenario(t)

	res, err := rangeplan.FindReachPoint(tour, 116000, m, legs)
	require.NoError(t, err)
	assert.Equal(t, location.ID(497), res.MaxReachLocation)
	assert.False(t, res.ReachedEndpoint)
	assert.Zero(t, res.RemainingBudget)
	require.NotNil(t, res.Next)
	assert.Equal(t, location.ID(881), *res.Next)
	assert.Zero(t, res.Ratio)
	assert.InDelta(t, 46.62, *res.Lat, 1e-9)
	assert.InDelta(t, 8.04, *res.Lon, 1e-9)
}

func TestFindReachPoint_MidLeg(t *testing.T) {
	m, legs := scenario(t)
	twoStops := []location.ID{578, 497}

	res, err := rangeplan.FindReachPoint(twoStops, 90000, m, legs)
	require.NoError(t, err)
	assert.Equal(t, location.ID(578), res.MaxReachLocation)
	assert.False(t, res.ReachedEndpoint)
	assert.Equal(t, 90000.0, res.RemainingBudget)
	assert.InDelta(t, 0.7759, res.Ratio, 1e-4)
	require.NotNil(t, res.Lat)
	require.NotNil(t, res.Lon)

	// Strictly between the leg's endpoints, closer to the destination.
	assert.Less(t, *res.Lat, 47.05)
	assert.Greater(t, *res.Lat, 46.62)
	assert.Less(t, *res.Lon, 8.31)
	assert.Greater(t, *res.Lon, 8.04)
	assert.Less(t, *res.Lat, (47.05+46.62)/2)
}

func TestFindReachPoint_RatioIsClamped(t *testing.T) {
	m, legs := scenario(t)
	// Cached leg geometry is shorter than the matrix distance.
	legs[directions.Key{From: 578, To: 497}] = directions.Entry{
		DistanceMeters: 50000,
		Geometry:       legs[directions.Key{From: 578, To: 497}].Geometry,
	}

	res, err := rangeplan.FindReachPoint([]location.ID{578, 497}, 90000, m, legs)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Ratio)
	assert.InDelta(t, 46.62, *res.Lat, 1e-9)
}

func TestFindReachPoint_MissingLeg(t *testing.T) {
	m, _ := scenario(t)

	_, err := rangeplan.FindReachPoint(tour, 90000, m, legMap{})
	require.ErrorIs(t, err, rangeplan.ErrMissingDirectionsLeg)

	var missing *rangeplan.MissingLegError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, location.ID(578), missing.From)
	assert.Equal(t, location.ID(497), missing.To)
}
