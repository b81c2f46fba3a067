package diagnose

import (
	"context"
	"time"

	"github.com/irifrance/gini"
	"github.com/irifrance/gini/z"
)

// giniPoll is how often a running gini search is checked for cancellation.
const giniPoll = time.Millisecond

// GiniSolver runs gini in the background so that a cancelled context stops
// the search. A stopped search reports ErrSeedUnknown.
type GiniSolver struct {
	g *gini.Gini
	space
}

func NewGiniSolver(rules IntSet) *GiniSolver {
	sp := newSpace(rules)
	return &GiniSolver{g: gini.NewV(len(sp.rules)), space: sp}
}

func (s *GiniSolver) Seed(ctx context.Context) (IntSet, bool, error) {
	if s.done {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	switch s.solve(ctx) {
	case 1:
		return s.seed(func(v int) bool { return s.g.Value(z.Var(v).Pos()) }), true, nil
	case -1:
		s.done = true
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return nil, false, ErrSeedUnknown
}

func (s *GiniSolver) solve(ctx context.Context) int {
	run := s.g.GoSolve()
	tick := time.NewTicker(giniPoll)
	defer tick.Stop()
	for {
		if res, ok := run.Test(); ok {
			return res
		}
		select {
		case <-ctx.Done():
			return run.Stop()
		case <-tick.C:
		}
	}
}

func (s *GiniSolver) BlockDown(mss IntSet) { s.add(s.down(mss)) }

func (s *GiniSolver) BlockUp(mus IntSet) { s.add(s.up(mus)) }

func (s *GiniSolver) add(clause []int) {
	if len(clause) == 0 {
		return
	}
	for _, v := range clause {
		if v < 0 {
			s.g.Add(z.Var(-v).Neg())
		} else {
			s.g.Add(z.Var(v).Pos())
		}
	}
	s.g.Add(z.LitNull)
}
