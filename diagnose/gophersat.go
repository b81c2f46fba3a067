package diagnose

import (
	"context"

	"github.com/crillab/gophersat/solver"
)

// GopherSolver is the gophersat CDCL solver. Its variables mean "rule left
// out", so the solver's default false assignment proposes large seeds.
type GopherSolver struct {
	s *solver.Solver
	space
}

func NewGopherSolver(rules IntSet) *GopherSolver {
	sp := newSpace(rules)
	return &GopherSolver{
		s:     solver.New(solver.ParseSliceNb(nil, len(sp.rules))),
		space: sp,
	}
}

func (s *GopherSolver) Seed(ctx context.Context) (IntSet, bool, error) {
	if s.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	switch s.s.Solve() {
	case solver.Sat:
		model := s.s.Model()
		return s.seed(func(v int) bool { return v > len(model) || !model[v-1] }), true, nil
	case solver.Unsat:
		s.done = true
		return nil, false, nil
	}
	return nil, false, ErrSeedUnknown
}

func (s *GopherSolver) BlockDown(mss IntSet) { s.add(s.down(mss)) }

func (s *GopherSolver) BlockUp(mus IntSet) { s.add(s.up(mus)) }

func (s *GopherSolver) add(clause []int) {
	if len(clause) == 0 {
		return
	}
	lits := make([]solver.Lit, len(clause))
	for i, v := range clause {
		lits[i] = solver.IntToLit(int32(-v))
	}
	s.s.AppendClause(solver.NewClause(lits))
}
