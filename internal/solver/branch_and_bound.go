package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	// DefaultMaxNodes bounds the number of LP relaxations explored per run.
	DefaultMaxNodes = 50000

	integralityTol = 1e-6
	simplexTol     = 1e-10
	pruneTol       = 1e-9
)

// BranchAndBoundConfig configures the LP-based branch and bound optimizer.
type BranchAndBoundConfig struct {
	// MaxNodes limits explored nodes. Default: DefaultMaxNodes
	MaxNodes int

	Logger zerolog.Logger
}

// BranchAndBound solves mixed integer programs by depth-first branch and bound
// over simplex relaxations.
type BranchAndBound struct {
	maxNodes int
	relax    func(m *Model, lower, upper []float64) ([]float64, float64, Status)
	logger   zerolog.Logger
}

// NewBranchAndBound creates a branch and bound optimizer.
func NewBranchAndBound(cfg BranchAndBoundConfig) *BranchAndBound {
	if cfg.MaxNodes <= 0 {
		cfg.MaxNodes = DefaultMaxNodes
	}
	return &BranchAndBound{
		maxNodes: cfg.MaxNodes,
		relax:    solveRelaxation,
		logger:   cfg.Logger,
	}
}

type bbNode struct {
	lower []float64
	upper []float64
}

// Optimize returns an optimal assignment, ErrInfeasible, or a *SolverError when
// the search stops early. A relaxation that fails numerically leaves its
// subtree unexplored, so the run then ends with StatusNumerical. On early stop
// the best incumbent, if any, is returned alongside the error.
func (b *BranchAndBound) Optimize(ctx context.Context, m *Model) (*Assignment, error) {
	root := bbNode{
		lower: make([]float64, len(m.Vars)),
		upper: make([]float64, len(m.Vars)),
	}
	for i, v := range m.Vars {
		if math.IsInf(v.Lower, 0) || math.IsNaN(v.Lower) {
			return nil, fmt.Errorf("variable %s: lower bound must be finite", v.Name)
		}
		root.lower[i] = v.Lower
		root.upper[i] = v.Upper
		if v.Kind != Continuous {
			root.lower[i] = math.Ceil(v.Lower - integralityTol)
			root.upper[i] = math.Floor(v.Upper + integralityTol)
		}
	}

	var best []float64
	bestObj := math.Inf(1)
	if m.Hint != nil && m.Feasible(m.Hint, integralityTol) {
		best = append([]float64(nil), m.Hint...)
		bestObj = m.Evaluate(best)
		b.logger.Debug().Float64("objective", bestObj).Msg("starting from hint")
	}

	stack := []bbNode{root}
	nodes := 0
	numerical := false

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return b.stopped(StatusCanceled, err, best, bestObj, nodes)
		}
		if nodes >= b.maxNodes {
			return b.stopped(StatusNodeLimit, nil, best, bestObj, nodes)
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		x, obj, status := b.relax(m, node.lower, node.upper)
		switch status {
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			return b.stopped(StatusUnbounded, nil, nil, 0, nodes)
		case StatusNumerical:
			numerical = true
			continue
		}

		if obj >= bestObj-pruneTol {
			continue
		}

		k := branchVariable(m, x)
		if k < 0 {
			for i, v := range m.Vars {
				if v.Kind != Continuous {
					x[i] = math.Round(x[i])
				}
			}
			best, bestObj = x, m.Evaluate(x)
			b.logger.Debug().Int("node", nodes).Float64("objective", bestObj).Msg("new incumbent")
			continue
		}

		floor := math.Floor(x[k])
		down := bbNode{lower: node.lower, upper: cloneWith(node.upper, k, floor)}
		up := bbNode{lower: cloneWith(node.lower, k, floor+1), upper: node.upper}

		// The child pushed last is explored first.
		if x[k]-floor >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if numerical {
		return b.stopped(StatusNumerical, nil, best, bestObj, nodes)
	}
	if best == nil {
		return nil, ErrInfeasible
	}

	b.logger.Debug().Int("nodes", nodes).Float64("objective", bestObj).Msg("branch and bound finished")
	return &Assignment{Values: best, Objective: bestObj, Status: StatusOptimal, Nodes: nodes}, nil
}

func (b *BranchAndBound) stopped(status Status, cause error, best []float64, obj float64, nodes int) (*Assignment, error) {
	b.logger.Warn().Str("status", status.String()).Int("nodes", nodes).Bool("has_incumbent", best != nil).
		Msg("branch and bound stopped early")

	var a *Assignment
	if best != nil {
		a = &Assignment{Values: best, Objective: obj, Status: status, Nodes: nodes}
	}
	return a, &SolverError{Status: status, Err: cause}
}

func cloneWith(src []float64, k int, v float64) []float64 {
	out := append([]float64(nil), src...)
	out[k] = v
	return out
}

// branchVariable picks the most fractional binary variable, then the most
// fractional integer one. Returns -1 when x is integral.
func branchVariable(m *Model, x []float64) int {
	pick := func(kind VarKind) int {
		best, bestDist := -1, integralityTol
		for i, v := range m.Vars {
			if v.Kind != kind {
				continue
			}
			f := x[i] - math.Floor(x[i])
			if d := math.Min(f, 1-f); d > bestDist {
				best, bestDist = i, d
			}
		}
		return best
	}
	if k := pick(Binary); k >= 0 {
		return k
	}
	return pick(Integer)
}

type lpRow struct {
	coefs map[int]float64
	slack float64
	rhs   float64
}

// solveRelaxation solves the LP relaxation of m under the given bounds.
// Each variable is shifted to y = x - lower, inequalities get a slack column
// and finite upper bounds become y + s = upper - lower, which yields the
// standard form A y = b, y >= 0 that lp.Simplex expects.
func solveRelaxation(m *Model, lower, upper []float64) ([]float64, float64, Status) {
	n := len(m.Vars)
	col := make([]int, n)
	free := 0
	for i := range m.Vars {
		switch {
		case upper[i] < lower[i]-integralityTol:
			return nil, 0, StatusInfeasible
		case upper[i]-lower[i] <= integralityTol:
			col[i] = -1
		default:
			col[i] = free
			free++
		}
	}

	rows := make([]lpRow, 0, len(m.Constraints)+free)
	for _, c := range m.Constraints {
		r := lpRow{coefs: make(map[int]float64, len(c.Terms)), rhs: c.RHS}
		for _, t := range c.Terms {
			r.rhs -= t.Coef * lower[t.Var]
			if j := col[t.Var]; j >= 0 {
				r.coefs[j] += t.Coef
			}
		}
		for j, v := range r.coefs {
			if math.Abs(v) < 1e-12 {
				delete(r.coefs, j)
			}
		}

		if len(r.coefs) == 0 {
			if !constantHolds(c.Sense, r.rhs) {
				return nil, 0, StatusInfeasible
			}
			continue
		}

		switch c.Sense {
		case LessEq:
			r.slack = 1
		case GreaterEq:
			r.slack = -1
		}
		rows = append(rows, r)
	}
	for i := range m.Vars {
		if col[i] >= 0 && !math.IsInf(upper[i], 1) {
			rows = append(rows, lpRow{
				coefs: map[int]float64{col[i]: 1},
				slack: 1,
				rhs:   upper[i] - lower[i],
			})
		}
	}

	cost := make([]float64, free)
	for _, t := range m.Objective {
		if j := col[t.Var]; j >= 0 {
			cost[j] += t.Coef
		}
	}

	// Drop columns that appear in no row; they sit at their lower bound
	// unless the objective would decrease without limit.
	used := make([]bool, free)
	for _, r := range rows {
		for j := range r.coefs {
			used[j] = true
		}
	}
	remap := make([]int, free)
	cols := 0
	for j := 0; j < free; j++ {
		if !used[j] {
			if cost[j] < -pruneTol {
				return nil, 0, StatusUnbounded
			}
			remap[j] = -1
			continue
		}
		remap[j] = cols
		cols++
	}
	varCols := cols
	for _, r := range rows {
		if r.slack != 0 {
			cols++
		}
	}

	x := append([]float64(nil), lower...)
	if len(rows) == 0 {
		return x, m.Evaluate(x), StatusOptimal
	}
	if cols < len(rows) {
		return nil, 0, StatusNumerical
	}

	a := mat.NewDense(len(rows), cols, nil)
	bvec := make([]float64, len(rows))
	c := make([]float64, cols)
	for j := 0; j < free; j++ {
		if remap[j] >= 0 {
			c[remap[j]] = cost[j]
		}
	}

	slackCol := varCols
	for i, r := range rows {
		sign := 1.0
		if r.rhs < 0 {
			sign = -1
		}
		for j, v := range r.coefs {
			a.Set(i, remap[j], sign*v)
		}
		if r.slack != 0 {
			a.Set(i, slackCol, sign*r.slack)
			slackCol++
		}
		bvec[i] = sign * r.rhs
	}

	_, y, err := lp.Simplex(c, a, bvec, simplexTol, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return nil, 0, StatusInfeasible
		case errors.Is(err, lp.ErrUnbounded):
			return nil, 0, StatusUnbounded
		default:
			return nil, 0, StatusNumerical
		}
	}

	for i := range m.Vars {
		if j := col[i]; j >= 0 && remap[j] >= 0 {
			x[i] = lower[i] + y[remap[j]]
		}
	}
	return x, m.Evaluate(x), StatusOptimal
}

func constantHolds(sense Sense, rhs float64) bool {
	switch sense {
	case LessEq:
		return rhs >= -integralityTol
	case GreaterEq:
		return rhs <= integralityTol
	default:
		return math.Abs(rhs) <= integralityTol
	}
}
