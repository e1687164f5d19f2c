package solver

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchAndBound_Knapsack(t *testing.T) {
	m := &Model{}
	a := m.AddVar("a", Binary, 0, 1)
	b := m.AddVar("b", Binary, 0, 1)
	c := m.AddVar("c", Binary, 0, 1)
	m.Objective = []Term{{Var: a, Coef: -5}, {Var: b, Coef: -4}, {Var: c, Coef: -3}}
	m.AddConstraint("weight", []Term{{Var: a, Coef: 2}, {Var: b, Coef: 3}, {Var: c, Coef: 1}}, LessEq, 5)

	got, err := NewBranchAndBound(BranchAndBoundConfig{Logger: zerolog.Nop()}).Optimize(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, got.Status)
	assert.InDelta(t, -9, got.Objective, 1e-9)
	assert.Equal(t, []float64{1, 1, 0}, got.Values)
}

func TestBranchAndBound_Integer(t *testing.T) {
	m := &Model{}
	x := m.AddVar("x", Integer, 0, 10)
	m.Objective = []Term{{Var: x, Coef: 1}}
	m.AddConstraint("floor", []Term{{Var: x, Coef: 2}}, GreaterEq, 3)

	got, err := NewBranchAndBound(BranchAndBoundConfig{}).Optimize(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, got.Values)
}

func TestBranchAndBound_Infeasible(t *testing.T) {
	m := &Model{}
	x := m.AddVar("x", Binary, 0, 1)
	m.Objective = []Term{{Var: x, Coef: 1}}
	m.AddConstraint("impossible", []Term{{Var: x, Coef: 1}}, GreaterEq, 2)

	_, err := NewBranchAndBound(BranchAndBoundConfig{}).Optimize(context.Background(), m)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestBranchAndBound_NodeLimitKeepsIncumbent(t *testing.T) {
	m := &Model{}
	x := m.AddVar("x", Binary, 0, 1)
	y := m.AddVar("y", Binary, 0, 1)
	m.Objective = []Term{{Var: x, Coef: 1}, {Var: y, Coef: 2}}
	m.AddConstraint("cover", []Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, GreaterEq, 1)
	m.Hint = []float64{0, 1}

	got, err := NewBranchAndBound(BranchAndBoundConfig{MaxNodes: 1}).Optimize(context.Background(), m)
	// The root relaxation is already integral, so one node is enough.
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, got.Values)

	m.Hint = []float64{0, 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err = NewBranchAndBound(BranchAndBoundConfig{}).Optimize(ctx, m)
	require.ErrorIs(t, err, ErrSolverFailure)
	require.NotNil(t, got)
	assert.Equal(t, StatusCanceled, got.Status)
	assert.Equal(t, []float64{0, 1}, got.Values)
}

func TestModel_Feasible(t *testing.T) {
	m := &Model{}
	x := m.AddVar("x", Integer, 0, 3)
	m.AddConstraint("cap", []Term{{Var: x, Coef: 1}}, LessEq, 2)

	assert.True(t, m.Feasible([]float64{2}, 1e-9))
	assert.False(t, m.Feasible([]float64{3}, 1e-9))
	assert.False(t, m.Feasible([]float64{1.5}, 1e-9))
	assert.False(t, m.Feasible(nil, 1e-9))
}

func TestTourModel_HintIsFeasible(t *testing.T) {
	dist := [][]float64{
		{0, 4, 2, 9},
		{4, 0, 3, 5},
		{2, 3, 0, 7},
		{9, 5, 7, 0},
	}
	precs := [][2]int{{3, 1}}
	tm := buildTourModel(dist, 0, precs)

	order := greedyOrder(dist, 0, precs)
	require.NotNil(t, order)
	assert.Equal(t, 0, order[0])

	hint := tm.hint(order)
	assert.True(t, tm.model.Feasible(hint, 1e-9))

	back, complete := tm.order(hint)
	assert.True(t, complete)
	assert.Equal(t, order, back)
}

func TestHeldKarp_RespectsPredecessors(t *testing.T) {
	dist := [][]float64{
		{0, 1, 10},
		{1, 0, 1},
		{10, 1, 0},
	}
	order, cost, err := heldKarp(context.Background(), dist, 0, predecessorMasks(3, [][2]int{{2, 1}}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, order)
	assert.Equal(t, 11.0, cost)
}

func TestBranchAndBound_NumericalSubtreeIsNotOptimal(t *testing.T) {
	m := &Model{}
	x := m.AddVar("x", Integer, 0, 3)
	m.Objective = []Term{{Var: x, Coef: 1}}
	m.AddConstraint("floor", []Term{{Var: x, Coef: 1}}, GreaterEq, 1.5)

	bb := NewBranchAndBound(BranchAndBoundConfig{Logger: zerolog.Nop()})
	// The x <= 1 branch fails numerically after x >= 2 has produced an incumbent.
	bb.relax = func(m *Model, lower, upper []float64) ([]float64, float64, Status) {
		if upper[0] <= 1 {
			return nil, 0, StatusNumerical
		}
		return solveRelaxation(m, lower, upper)
	}

	got, err := bb.Optimize(context.Background(), m)
	require.ErrorIs(t, err, ErrSolverFailure)

	var se *SolverError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusNumerical, se.Status)

	require.NotNil(t, got)
	assert.Equal(t, StatusNumerical, got.Status)
	assert.Equal(t, []float64{2}, got.Values)
}

func TestBranchAndBound_NumericalWithoutIncumbent(t *testing.T) {
	m := &Model{}
	x := m.AddVar("x", Binary, 0, 1)
	m.Objective = []Term{{Var: x, Coef: 1}}

	bb := NewBranchAndBound(BranchAndBoundConfig{})
	bb.relax = func(*Model, []float64, []float64) ([]float64, float64, Status) {
		return nil, 0, StatusNumerical
	}

	got, err := bb.Optimize(context.Background(), m)
	assert.Nil(t, got)

	var se *SolverError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StatusNumerical, se.Status)
}
