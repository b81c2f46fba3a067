package diagnose

import (
	"context"
	"errors"
	"fmt"
)

// Solver proposes seeds for Marco: subsets of the rules that are neither
// below a known maximal satisfiable subset nor above a known minimal
// unsatisfiable one.
type Solver interface {
	// Seed returns the next unexplored subset. ok is false once every
	// subset has been covered.
	Seed(ctx context.Context) (seed IntSet, ok bool, err error)
	// BlockDown excludes mss and all of its subsets.
	BlockDown(mss IntSet)
	// BlockUp excludes mus and all of its supersets.
	BlockUp(mus IntSet)
}

const (
	SolverMaxSAT    = "maxsat"
	SolverGophersat = "gophersat"
	SolverGini      = "gini"
)

var (
	ErrUnknownSolver = errors.New("unknown seed solver")
	// ErrSeedUnknown is returned when a solver stops without deciding
	// whether an unexplored subset is left.
	ErrSeedUnknown = errors.New("seed solver gave no answer")
)

// NewSolver returns the named solver over rules. The empty name selects
// MaxSAT, whose seeds are maximal and so converge fastest.
func NewSolver(name string, rules IntSet) (Solver, error) {
	switch name {
	case "", SolverMaxSAT:
		return NewMaxsatSolver(rules), nil
	case SolverGophersat:
		return NewGopherSolver(rules), nil
	case SolverGini:
		return NewGiniSolver(rules), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownSolver, name)
}

// space is the power set of the rules with each rule numbered 1..n, the
// way the CDCL solvers want their variables. A clause is a list of signed
// variables where a positive one means the rule is selected.
type space struct {
	rules []int
	vars  map[int]int
	// done is set once a blocking clause came out empty, which leaves no
	// subset to propose.
	done bool
}

func newSpace(rules IntSet) space {
	sp := space{rules: Sorted(rules), vars: make(map[int]int, rules.Cardinality())}
	for i, r := range sp.rules {
		sp.vars[r] = i + 1
	}
	return sp
}

// down is the clause "some rule outside mss is selected".
func (sp *space) down(mss IntSet) []int {
	var clause []int
	for i, r := range sp.rules {
		if !mss.Contains(r) {
			clause = append(clause, i+1)
		}
	}
	sp.done = sp.done || len(clause) == 0
	return clause
}

// up is the clause "some rule of mus is left out".
func (sp *space) up(mus IntSet) []int {
	var clause []int
	for _, r := range Sorted(mus) {
		if v, ok := sp.vars[r]; ok {
			clause = append(clause, -v)
		}
	}
	sp.done = sp.done || len(clause) == 0
	return clause
}

// seed collects the rules whose variable satisfies selected.
func (sp *space) seed(selected func(v int) bool) IntSet {
	out := NewIntSet()
	for i, r := range sp.rules {
		if selected(i + 1) {
			out.Add(r)
		}
	}
	return out
}
