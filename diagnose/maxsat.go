package diagnose

import (
	"context"
	"strconv"

	"github.com/crillab/gophersat/maxsat"
)

// MaxSatSolver re-solves from scratch for every seed. Each rule carries a
// soft clause selecting it, so every seed is a largest unexplored subset.
type MaxSatSolver struct {
	hard []maxsat.Constr
	space
}

func NewMaxsatSolver(rules IntSet) *MaxSatSolver {
	return &MaxSatSolver{space: newSpace(rules)}
}

func (s *MaxSatSolver) Seed(ctx context.Context) (IntSet, bool, error) {
	if s.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	constrs := make([]maxsat.Constr, 0, len(s.rules)+len(s.hard))
	for v := range s.rules {
		constrs = append(constrs, maxsat.SoftClause(lit(v+1)))
	}
	model, _ := maxsat.New(append(constrs, s.hard...)...).Solve()
	if model == nil {
		s.done = true
		return nil, false, nil
	}
	return s.seed(func(v int) bool { return model[strconv.Itoa(v)] }), true, nil
}

func (s *MaxSatSolver) BlockDown(mss IntSet) { s.add(s.down(mss)) }

func (s *MaxSatSolver) BlockUp(mus IntSet) { s.add(s.up(mus)) }

func (s *MaxSatSolver) add(clause []int) {
	if len(clause) == 0 {
		return
	}
	lits := make([]maxsat.Lit, len(clause))
	for i, v := range clause {
		lits[i] = lit(v)
	}
	s.hard = append(s.hard, maxsat.HardClause(lits...))
}

// lit names a variable by its number, negated when v < 0.
func lit(v int) maxsat.Lit {
	if v < 0 {
		return maxsat.Not(strconv.Itoa(-v))
	}
	return maxsat.Var(strconv.Itoa(v))
}
