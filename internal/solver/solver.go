// Package solver computes minimum distance visiting orders that honor
// precedence constraints.
package solver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/distance"
	"github.com/chargeroute/chargeroute/internal/location"
	"github.com/chargeroute/chargeroute/internal/precedence"
)

// Strategy selects the search backend.
type Strategy string

const (
	// StrategyAuto uses Held-Karp up to Config.ExactLimit locations and the optimizer above.
	StrategyAuto Strategy = "auto"
	// StrategyDP always uses Held-Karp.
	StrategyDP Strategy = "dp"
	// StrategyMILP always uses the optimizer.
	StrategyMILP Strategy = "milp"
)

// DefaultExactLimit is the largest route StrategyAuto solves with Held-Karp.
const DefaultExactLimit = MaxExactLocations

// ParseStrategy parses a strategy name. Empty means StrategyAuto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyDP, StrategyMILP:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown solver strategy %q", s)
}

// Tour is a visiting order that begins at the starting point.
type Tour struct {
	Order    []location.ID `json:"order"`
	Distance float64       `json:"distance"`
}

// Config configures a Solver.
type Config struct {
	// Optimizer solves the MILP formulation. Default: BranchAndBound
	Optimizer Optimizer

	// Strategy selects the backend. Default: StrategyAuto
	Strategy Strategy

	// ExactLimit is the Held-Karp cutoff for StrategyAuto. Default: DefaultExactLimit
	ExactLimit int

	// TimeLimit bounds a single Solve call. Zero means no limit.
	TimeLimit time.Duration

	Logger zerolog.Logger
}

// Solver orders routes.
type Solver struct {
	optimizer  Optimizer
	strategy   Strategy
	exactLimit int
	timeLimit  time.Duration
	logger     zerolog.Logger
}

// New creates a Solver.
func New(cfg Config) *Solver {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyAuto
	}
	if cfg.ExactLimit <= 0 {
		cfg.ExactLimit = DefaultExactLimit
	}
	if cfg.ExactLimit > MaxExactLocations {
		cfg.ExactLimit = MaxExactLocations
	}
	if cfg.Optimizer == nil {
		cfg.Optimizer = NewBranchAndBound(BranchAndBoundConfig{Logger: cfg.Logger})
	}
	return &Solver{
		optimizer:  cfg.Optimizer,
		strategy:   cfg.Strategy,
		exactLimit: cfg.ExactLimit,
		timeLimit:  cfg.TimeLimit,
		logger:     cfg.Logger,
	}
}

// Solve returns a minimum distance tour over r.Locations starting at r.Start
// in which every precedence's Before is visited earlier than its After.
func (s *Solver) Solve(ctx context.Context, r precedence.Route, m *distance.Matrix) (*Tour, error) {
	if err := precedence.Validate(r); err != nil {
		return nil, err
	}
	n := len(r.Locations)
	if n < 2 {
		return nil, ErrTooFewLocations
	}

	ids := r.Locations
	index := make(map[location.ID]int, n)
	for i, id := range ids {
		index[id] = i
	}
	start := index[*r.Start]

	dist := make([][]float64, n)
	for i, a := range ids {
		dist[i] = make([]float64, n)
		for j, b := range ids {
			d, err := m.Distance(a, b)
			if err != nil {
				return nil, err
			}
			dist[i][j] = d
		}
	}

	if n == 2 {
		return s.tour(ids, dist, []int{start, 1 - start}), nil
	}

	if s.timeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeLimit)
		defer cancel()
	}

	precs := indexPrecedences(index, r.Precedences)

	strategy := s.strategy
	if strategy == StrategyAuto {
		strategy = StrategyMILP
		if n <= s.exactLimit {
			strategy = StrategyDP
		}
	}

	began := time.Now()
	var (
		order []int
		err   error
	)
	switch strategy {
	case StrategyDP:
		order, _, err = heldKarp(ctx, dist, start, predecessorMasks(n, precs))
	default:
		order, err = s.solveMILP(ctx, ids, dist, start, precs)
	}
	if err != nil {
		return nil, err
	}

	tour := s.tour(ids, dist, order)
	s.logger.Debug().
		Str("strategy", string(strategy)).
		Int("locations", n).
		Int("precedences", len(precs)).
		Float64("distance", tour.Distance).
		Dur("elapsed", time.Since(began)).
		Msg("route solved")

	return tour, nil
}

func (s *Solver) solveMILP(ctx context.Context, ids []location.ID, dist [][]float64, start int, precs [][2]int) ([]int, error) {
	tm := buildTourModel(dist, start, precs)
	if greedy := greedyOrder(dist, start, precs); greedy != nil {
		tm.model.Hint = tm.hint(greedy)
	}

	a, err := s.optimizer.Optimize(ctx, tm.model)
	if err != nil {
		if errors.Is(err, ErrInfeasible) || errors.Is(err, ErrSolverFailure) {
			return nil, err
		}
		return nil, &SolverError{Status: StatusNumerical, Err: err}
	}
	if a.Status != StatusOptimal {
		return nil, &SolverError{Status: a.Status}
	}

	order, complete := tm.order(a.Values)
	if !complete {
		order = appendMissing(order, ids)
		s.logger.Warn().
			Int("reached", len(order)).
			Int("locations", len(ids)).
			Msg("successor walk incomplete, appending remaining locations by id")
	}
	return order, nil
}

// appendMissing appends every index absent from order, in ascending id order.
func appendMissing(order []int, ids []location.ID) []int {
	seen := make([]bool, len(ids))
	for _, i := range order {
		seen[i] = true
	}
	var missing []int
	for i := range ids {
		if !seen[i] {
			missing = append(missing, i)
		}
	}
	slices.SortFunc(missing, func(a, b int) int {
		switch {
		case ids[a] < ids[b]:
			return -1
		case ids[a] > ids[b]:
			return 1
		}
		return 0
	})
	return append(order, missing...)
}

func (s *Solver) tour(ids []location.ID, dist [][]float64, order []int) *Tour {
	t := &Tour{Order: make([]location.ID, len(order))}
	for pos, i := range order {
		t.Order[pos] = ids[i]
		if pos > 0 {
			t.Distance += dist[order[pos-1]][i]
		}
	}
	return t
}
