package solver

import (
	"context"
	"fmt"
	"math"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// Sense is the relation of a linear constraint.
type Sense int

const (
	LessEq Sense = iota
	Equal
	GreaterEq
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case Equal:
		return "="
	case GreaterEq:
		return ">="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

// Var is a bounded decision variable. Lower must be finite; Upper may be +Inf.
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is a coefficient applied to a variable index.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is a linear relation Σ terms (sense) RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a minimization problem over mixed integer variables.
type Model struct {
	Vars        []Var
	Objective   []Term
	Constraints []Constraint

	// Hint is an optional feasible assignment used as the first incumbent.
	Hint []float64
}

// AddVar appends a variable and returns its index. Binary variables get [0, 1] bounds.
func (m *Model) AddVar(name string, kind VarKind, lower, upper float64) int {
	if kind == Binary {
		lower, upper = 0, 1
	}
	m.Vars = append(m.Vars, Var{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return len(m.Vars) - 1
}

// AddConstraint appends a linear constraint.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// Evaluate returns the objective value of values.
func (m *Model) Evaluate(values []float64) float64 {
	var total float64
	for _, t := range m.Objective {
		total += t.Coef * values[t.Var]
	}
	return total
}

// Feasible reports whether values satisfies bounds, integrality and constraints within tol.
func (m *Model) Feasible(values []float64, tol float64) bool {
	if len(values) != len(m.Vars) {
		return false
	}
	for i, v := range m.Vars {
		x := values[i]
		if math.IsNaN(x) || x < v.Lower-tol || x > v.Upper+tol {
			return false
		}
		if v.Kind != Continuous && math.Abs(x-math.Round(x)) > tol {
			return false
		}
	}
	for _, c := range m.Constraints {
		var lhs float64
		for _, t := range c.Terms {
			lhs += t.Coef * values[t.Var]
		}
		switch c.Sense {
		case LessEq:
			if lhs > c.RHS+tol {
				return false
			}
		case GreaterEq:
			if lhs < c.RHS-tol {
				return false
			}
		case Equal:
			if math.Abs(lhs-c.RHS) > tol {
				return false
			}
		}
	}
	return true
}

// Status describes how an optimization run ended.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusNodeLimit
	StatusCanceled
	StatusNumerical
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusNodeLimit:
		return "node_limit"
	case StatusCanceled:
		return "canceled"
	case StatusNumerical:
		return "numerical"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Assignment is the best solution an optimizer found.
type Assignment struct {
	Values    []float64
	Objective float64
	Status    Status
	Nodes     int
}

// Optimizer solves mixed integer linear programs.
type Optimizer interface {
	Optimize(ctx context.Context, m *Model) (*Assignment, error)
}
