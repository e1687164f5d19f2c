package solver_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/distance"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/precedence"
	"github.com/chargeroute/chargeroute/internal/solver"
)

func startAt(id location.ID) *location.ID {
	return &id
}

func randomInstance(t *testing.T, rng *rand.Rand, n int) ([]location.ID, *distance.Matrix) {
	t.Helper()
	ids := make([]location.ID, n)
	for i := range ids {
		ids[i] = location.ID(100 + 7*i)
	}
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			if i != j {
				rows[i][j] = float64(1 + rng.Intn(1000))
			}
		}
	}
	m, err := distance.NewMatrix(ids, rows)
	require.NoError(t, err)
	return ids, m
}

// randomPrecedences draws acyclic precedences that never target start.
func randomPrecedences(rng *rand.Rand, ids []location.ID, start location.ID, count int) []precedence.Precedence {
	perm := rng.Perm(len(ids))
	rank := make(map[location.ID]int, len(ids))
	for r, i := range perm {
		rank[ids[i]] = r
	}
	var out []precedence.Precedence
	for len(out) < count {
		a, b := ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))]
		if a == b || b == start {
			continue
		}
		if rank[a] > rank[b] {
			a, b = b, a
		}
		if b == start {
			continue
		}
		out = append(out, precedence.Precedence{Before: a, After: b})
	}
	return out
}

func bruteForce(ids []location.ID, start location.ID, precs []precedence.Precedence, m *distance.Matrix) float64 {
	rest := make([]location.ID, 0, len(ids)-1)
	for _, id := range ids {
		if id != start {
			rest = append(rest, id)
		}
	}

	best := math.Inf(1)
	var permute func(k int)
	permute = func(k int) {
		if k == len(rest) {
			order := append([]location.ID{start}, rest...)
			if !precedence.Satisfied(order, precs) {
				return
			}
			var total float64
			for i := 1; i < len(order); i++ {
				d, _ := m.Distance(order[i-1], order[i])
				total += d
			}
			best = math.Min(best, total)
			return
		}
		for i := k; i < len(rest); i++ {
			rest[k], rest[i] = rest[i], rest[k]
			permute(k + 1)
			rest[k], rest[i] = rest[i], rest[k]
		}
	}
	permute(0)
	return best
}

func assertValidTour(t *testing.T, tour *solver.Tour, ids []location.ID, start location.ID, precs []precedence.Precedence, m *distance.Matrix) {
	t.Helper()
	require.Len(t, tour.Order, len(ids))
	assert.Equal(t, start, tour.Order[0])
	assert.ElementsMatch(t, ids, tour.Order)
	assert.True(t, precedence.Satisfied(tour.Order, precs), "precedences violated by %v", tour.Order)

	var total float64
	for i := 1; i < len(tour.Order); i++ {
		d, err := m.Distance(tour.Order[i-1], tour.Order[i])
		require.NoError(t, err)
		total += d
	}
	assert.InDelta(t, total, tour.Distance, 1e-6)
}

func TestSolve_MatchesBruteForce(t *testing.T) {
	strategies := []struct {
		name     string
		strategy solver.Strategy
		maxN     int
	}{
		{name: "held-karp", strategy: solver.StrategyDP, maxN: 7},
		{name: "branch and bound", strategy: solver.StrategyMILP, maxN: 6},
	}

	for _, st := range strategies {
		t.Run(st.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			s := solver.New(solver.Config{Strategy: st.strategy, Logger: zerolog.Nop()})

			for n := 3; n <= st.maxN; n++ {
				for trial := 0; trial < 3; trial++ {
					ids, m := randomInstance(t, rng, n)
					start := ids[rng.Intn(n)]
					precs := randomPrecedences(rng, ids, start, trial)

					tour, err := s.Solve(context.Background(), precedence.Route{
						Locations:   ids,
						Start:       startAt(start),
						Precedences: precs,
					}, m)
					require.NoError(t, err)

					assertValidTour(t, tour, ids, start, precs, m)
					assert.InDelta(t, bruteForce(ids, start, precs, m), tour.Distance, 1e-6,
						"n=%d trial=%d", n, trial)
				}
			}
		})
	}
}

func TestSolve_SevenLocationsWithMILP(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids, m := randomInstance(t, rng, 7)
	precs := []precedence.Precedence{{Before: ids[3], After: ids[1]}, {Before: ids[5], After: ids[2]}}

	s := solver.New(solver.Config{Strategy: solver.StrategyMILP})
	tour, err := s.Solve(context.Background(), precedence.Route{
		Locations:   ids,
		Start:       startAt(ids[0]),
		Precedences: precs,
	}, m)
	require.NoError(t, err)

	assertValidTour(t, tour, ids, ids[0], precs, m)
	assert.InDelta(t, bruteForce(ids, ids[0], precs, m), tour.Distance, 1e-6)
}

func TestSolve_PrecedenceOverridesShorterOrder(t *testing.T) {
	// 1 -> 2 -> 3 is cheapest, but 3 must come before 2.
	m, err := distance.NewMatrix([]location.ID{1, 2, 3}, [][]float64{
		{0, 1, 10},
		{1, 0, 1},
		{10, 1, 0},
	})
	require.NoError(t, err)

	for _, strategy := range []solver.Strategy{solver.StrategyDP, solver.StrategyMILP} {
		tour, err := solver.New(solver.Config{Strategy: strategy}).Solve(context.Background(), precedence.Route{
			Locations:   []location.ID{1, 2, 3},
			Start:       startAt(1),
			Precedences: []precedence.Precedence{{Before: 3, After: 2}},
		}, m)
		require.NoError(t, err)
		assert.Equal(t, []location.ID{1, 3, 2}, tour.Order, string(strategy))
		assert.Equal(t, 11.0, tour.Distance)
	}
}

func TestSolve_TwoLocations(t *testing.T) {
	m, err := distance.NewMatrix([]location.ID{578, 497}, [][]float64{{0, 116000}, {116000, 0}})
	require.NoError(t, err)

	tour, err := solver.New(solver.Config{}).Solve(context.Background(), precedence.Route{
		Locations: []location.ID{497, 578},
		Start:     startAt(578),
	}, m)
	require.NoError(t, err)
	assert.Equal(t, []location.ID{578, 497}, tour.Order)
	assert.Equal(t, 116000.0, tour.Distance)
}

func TestSolve_Errors(t *testing.T) {
	m, err := distance.NewMatrix([]location.ID{1, 2, 3}, [][]float64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}})
	require.NoError(t, err)
	s := solver.New(solver.Config{})
	ctx := context.Background()

	_, err = s.Solve(ctx, precedence.Route{Locations: []location.ID{1}, Start: startAt(1)}, m)
	assert.ErrorIs(t, err, solver.ErrTooFewLocations)

	_, err = s.Solve(ctx, precedence.Route{Locations: []location.ID{1, 2}}, m)
	assert.ErrorIs(t, err, precedence.ErrNoStartingPoint)

	_, err = s.Solve(ctx, precedence.Route{
		Locations:   []location.ID{1, 2, 3},
		Start:       startAt(1),
		Precedences: []precedence.Precedence{{Before: 2, After: 3}, {Before: 3, After: 2}},
	}, m)
	assert.ErrorIs(t, err, precedence.ErrPrecedenceCycle)

	_, err = s.Solve(ctx, precedence.Route{Locations: []location.ID{1, 2, 4}, Start: startAt(1)}, m)
	assert.ErrorIs(t, err, distance.ErrUnknownLocation)
}

func TestSolve_DPRejectsLargeRoutes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ids, m := randomInstance(t, rng, solver.MaxExactLocations+1)

	_, err := solver.New(solver.Config{Strategy: solver.StrategyDP}).Solve(context.Background(), precedence.Route{
		Locations: ids,
		Start:     startAt(ids[0]),
	}, m)
	assert.ErrorIs(t, err, solver.ErrTooManyLocations)
}

func TestSolve_CanceledContext(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	ids, m := randomInstance(t, rng, 9)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := solver.New(solver.Config{Strategy: solver.StrategyMILP}).Solve(ctx, precedence.Route{
		Locations: ids,
		Start:     startAt(ids[0]),
	}, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, solver.ErrSolverFailure)

	var se *solver.SolverError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, solver.StatusCanceled, se.Status)
	assert.ErrorIs(t, err, context.Canceled)
}

type stubOptimizer struct {
	assignment *solver.Assignment
	err        error
	calls      *int
}

func (s stubOptimizer) Optimize(context.Context, *solver.Model) (*solver.Assignment, error) {
	if s.calls != nil {
		*s.calls++
	}
	return s.assignment, s.err
}

func TestSolve_OptimizerOutcomes(t *testing.T) {
	m, err := distance.NewMatrix([]location.ID{1, 2, 3}, [][]float64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}})
	require.NoError(t, err)
	route := precedence.Route{Locations: []location.ID{1, 2, 3}, Start: startAt(1)}

	t.Run("infeasible", func(t *testing.T) {
		s := solver.New(solver.Config{Strategy: solver.StrategyMILP, Optimizer: stubOptimizer{err: solver.ErrInfeasible}})
		_, err := s.Solve(context.Background(), route, m)
		assert.ErrorIs(t, err, solver.ErrInfeasible)
	})

	t.Run("non-optimal status", func(t *testing.T) {
		s := solver.New(solver.Config{
			Strategy:  solver.StrategyMILP,
			Optimizer: stubOptimizer{assignment: &solver.Assignment{Status: solver.StatusNodeLimit}},
		})
		_, err := s.Solve(context.Background(), route, m)
		var se *solver.SolverError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, solver.StatusNodeLimit, se.Status)
	})

	t.Run("broken successor chain falls back to id order", func(t *testing.T) {
		// Arc order in the model: x(1,2) x(1,3) x(2,3) x(3,2); nothing selected.
		values := make([]float64, 6)
		s := solver.New(solver.Config{
			Strategy:  solver.StrategyMILP,
			Optimizer: stubOptimizer{assignment: &solver.Assignment{Status: solver.StatusOptimal, Values: values}},
		})
		tour, err := s.Solve(context.Background(), route, m)
		require.NoError(t, err)
		assert.Equal(t, []location.ID{1, 2, 3}, tour.Order)
	})
}

func TestSolve_TimeLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	ids, m := randomInstance(t, rng, 5)

	s := solver.New(solver.Config{TimeLimit: time.Minute})
	tour, err := s.Solve(context.Background(), precedence.Route{Locations: ids, Start: startAt(ids[2])}, m)
	require.NoError(t, err)
	assertValidTour(t, tour, ids, ids[2], nil, m)
}

func TestParseStrategy(t *testing.T) {
	s, err := solver.ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, solver.StrategyAuto, s)

	s, err = solver.ParseStrategy("milp")
	require.NoError(t, err)
	assert.Equal(t, solver.StrategyMILP, s)

	_, err = solver.ParseStrategy("genetic")
	assert.Error(t, err)
}

func TestSolve_AutoUsesExactSearchUpToLimit(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{name: "twelve stops", n: 12},
		{name: "thirteen stops", n: 13},
		{name: "sixteen stops", n: solver.MaxExactLocations},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(tt.n)))
			ids, m := randomInstance(t, rng, tt.n)
			precs := []precedence.Precedence{{Before: ids[4], After: ids[2]}, {Before: ids[2], After: ids[7]}}
			route := precedence.Route{Locations: ids, Start: startAt(ids[0]), Precedences: precs}

			s := solver.New(solver.Config{TimeLimit: 10 * time.Second, Logger: zerolog.Nop()})
			tour, err := s.Solve(context.Background(), route, m)
			require.NoError(t, err)
			assertValidTour(t, tour, ids, ids[0], precs, m)

			exact, err := solver.New(solver.Config{Strategy: solver.StrategyDP}).Solve(context.Background(), route, m)
			require.NoError(t, err)
			assert.InDelta(t, exact.Distance, tour.Distance, 1e-6)
		})
	}
}

func TestSolve_AutoUsesOptimizerAboveLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	ids, m := randomInstance(t, rng, 5)
	route := precedence.Route{Locations: ids, Start: startAt(ids[0])}

	calls := 0
	s := solver.New(solver.Config{
		ExactLimit: 4,
		Optimizer:  stubOptimizer{err: solver.ErrInfeasible, calls: &calls},
	})
	_, err := s.Solve(context.Background(), route, m)
	assert.ErrorIs(t, err, solver.ErrInfeasible)
	assert.Equal(t, 1, calls)

	calls = 0
	s = solver.New(solver.Config{
		ExactLimit: 5,
		Optimizer:  stubOptimizer{err: solver.ErrInfeasible, calls: &calls},
	})
	_, err = s.Solve(context.Background(), route, m)
	require.NoError(t, err)
	assert.Zero(t, calls)
}
