package solver

import (
	"fmt"
	"math"

	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/precedence"
)

type arc struct {
	from, to int
}

// tourModel is the MILP for an open tour over locations 0..n-1 starting at start.
type tourModel struct {
	model     *Model
	n         int
	start     int
	arcs      map[arc]int
	positions map[int]int
}

// buildTourModel creates binary arc variables x(i,j) for every ordered pair with
// j != start and integer positions u(i) in [1, n-1] for every i != start.
// Every non-start location has exactly one predecessor, every location at most
// one successor, and u(i) - u(j) + n*x(i,j) <= n-1 rules out subtours.
// A precedence (a, b) becomes u(a) + 1 <= u(b).
func buildTourModel(dist [][]float64, start int, precs [][2]int) *tourModel {
	n := len(dist)
	tm := &tourModel{
		model:     &Model{},
		n:         n,
		start:     start,
		arcs:      make(map[arc]int, n*n),
		positions: make(map[int]int, n),
	}
	m := tm.model

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || j == start {
				continue
			}
			v := m.AddVar(fmt.Sprintf("x_%d_%d", i, j), Binary, 0, 1)
			tm.arcs[arc{i, j}] = v
			m.Objective = append(m.Objective, Term{Var: v, Coef: dist[i][j]})
		}
	}
	for i := 0; i < n; i++ {
		if i != start {
			tm.positions[i] = m.AddVar(fmt.Sprintf("u_%d", i), Integer, 1, float64(n-1))
		}
	}

	for j := 0; j < n; j++ {
		if j == start {
			continue
		}
		terms := make([]Term, 0, n-1)
		for i := 0; i < n; i++ {
			if v, ok := tm.arcs[arc{i, j}]; ok {
				terms = append(terms, Term{Var: v, Coef: 1})
			}
		}
		m.AddConstraint(fmt.Sprintf("in_%d", j), terms, Equal, 1)
	}

	for i := 0; i < n; i++ {
		terms := make([]Term, 0, n-1)
		for j := 0; j < n; j++ {
			if v, ok := tm.arcs[arc{i, j}]; ok {
				terms = append(terms, Term{Var: v, Coef: 1})
			}
		}
		if len(terms) > 0 {
			m.AddConstraint(fmt.Sprintf("out_%d", i), terms, LessEq, 1)
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || i == start || j == start {
				continue
			}
			m.AddConstraint(fmt.Sprintf("mtz_%d_%d", i, j), []Term{
				{Var: tm.positions[i], Coef: 1},
				{Var: tm.positions[j], Coef: -1},
				{Var: tm.arcs[arc{i, j}], Coef: float64(n)},
			}, LessEq, float64(n-1))
		}
	}

	for _, p := range precs {
		before, after := p[0], p[1]
		// u(start) is 0 and every other position is at least 1.
		if before == start {
			continue
		}
		m.AddConstraint(fmt.Sprintf("prec_%d_%d", before, after), []Term{
			{Var: tm.positions[before], Coef: 1},
			{Var: tm.positions[after], Coef: -1},
		}, LessEq, -1)
	}

	return tm
}

// hint encodes order as a model assignment.
func (tm *tourModel) hint(order []int) []float64 {
	values := make([]float64, len(tm.model.Vars))
	for pos := 1; pos < len(order); pos++ {
		values[tm.arcs[arc{order[pos-1], order[pos]}]] = 1
		values[tm.positions[order[pos]]] = float64(pos)
	}
	return values
}

// order walks the successor arcs from start. The second result is false when
// the walk does not reach every location.
func (tm *tourModel) order(values []float64) ([]int, bool) {
	next := make(map[int]int, tm.n)
	for a, v := range tm.arcs {
		if values[v] > 0.5 {
			next[a.from] = a.to
		}
	}

	order := []int{tm.start}
	seen := map[int]bool{tm.start: true}
	cur := tm.start
	for {
		nxt, ok := next[cur]
		if !ok || seen[nxt] {
			break
		}
		order = append(order, nxt)
		seen[nxt] = true
		cur = nxt
	}
	return order, len(order) == tm.n
}

// greedyOrder builds a precedence-respecting nearest neighbour order.
// Ties go to the lowest index.
func greedyOrder(dist [][]float64, start int, precs [][2]int) []int {
	n := len(dist)
	preds := make([][]int, n)
	for _, p := range precs {
		preds[p[1]] = append(preds[p[1]], p[0])
	}

	visited := make([]bool, n)
	visited[start] = true
	order := []int{start}
	cur := start
	for len(order) < n {
		best, bestDist := -1, math.Inf(1)
		for k := 0; k < n; k++ {
			if visited[k] || !allVisited(preds[k], visited) {
				continue
			}
			if best < 0 || dist[cur][k] < bestDist {
				best, bestDist = k, dist[cur][k]
			}
		}
		if best < 0 {
			return nil
		}
		order = append(order, best)
		visited[best] = true
		cur = best
	}
	return order
}

func allVisited(ids []int, visited []bool) bool {
	for _, i := range ids {
		if !visited[i] {
			return false
		}
	}
	return true
}

func predecessorMasks(n int, precs [][2]int) []uint32 {
	pred := make([]uint32, n)
	for _, p := range precs {
		pred[p[1]] |= uint32(1) << p[0]
	}
	return pred
}

func indexPrecedences(index map[location.ID]int, precs []precedence.Precedence) [][2]int {
	out := make([][2]int, 0, len(precs))
	for _, p := range precs {
		out = append(out, [2]int{index[p.Before], index[p.After]})
	}
	return out
}
