// Package diagnose explains why a conjunctive goal has no solution.
//
// The conjuncts of the goal are the rules of a MARCO enumeration: every
// subset is checked by solving the conjunction of its members through the
// prover. Minimal unsatisfiable subsets are the smallest groups of
// conjuncts that cannot hold together, and minimal correction sets are the
// smallest groups whose removal lets the rest succeed.
package diagnose

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"prolog4go/prolog"
	"prolog4go/term"
)

type Config struct {
	// Solver is one of SolverMaxSAT (default), SolverGophersat or SolverGini.
	Solver   string
	MaxLoops int
	Logger   *zap.Logger
}

// Explain diagnoses goal, with args substituted for its placeholders, on p.
func Explain(ctx context.Context, p *prolog.Prover, cfg Config, goal string, args ...any) (*Report, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	b, err := p.Bind(goal, args...)
	if err != nil {
		return nil, err
	}
	g, err := term.Parse(b.Text)
	if err != nil {
		return nil, err
	}
	conjuncts := term.Conjuncts(g)

	report := &Report{Goal: b.Text}
	for _, c := range conjuncts {
		report.Conjuncts = append(report.Conjuncts, term.Format(c))
	}

	rules := make([]int, len(conjuncts))
	for i := range rules {
		rules[i] = i + 1
	}
	sat := satFunc(p, conjuncts)
	ok, err := sat(ctx, rules)
	if err != nil {
		return nil, err
	}
	if ok {
		report.Satisfiable = true
		return report, nil
	}

	solver, err := NewSolver(cfg.Solver, NewIntSet(rules...))
	if err != nil {
		return nil, err
	}
	m := NewMarco(rules, sat)
	m.Solver = solver
	m.Log = log
	if cfg.MaxLoops > 0 {
		m.MaxLoop = cfg.MaxLoops
	}
	if err := m.Run(ctx); err != nil {
		return nil, fmt.Errorf("explain %s: %w", b.Text, err)
	}
	report.Loops = m.LoopCounter
	log.Debug("marco done",
		zap.String("goal", b.Text),
		zap.Int("loops", m.LoopCounter),
		zap.Int("mus", len(m.MUSs)),
		zap.Int("mss", len(m.MSSs)))

	for _, c := range m.Analysis() {
		report.Conflicts = append(report.Conflicts, ConflictReport{
			Unsatisfiable: report.names(c.MUSs),
			Corrections:   report.names(c.MCSs),
			Critical:      report.pick(c.CriticalNodes),
		})
	}
	return report, nil
}

// satFunc checks subsets by solving their conjunction. Results are memoised
// since Marco revisits subsets while growing and shrinking.
func satFunc(p *prolog.Prover, conjuncts []term.Term) SatFunc {
	seen := make(map[string]bool)
	return func(ctx context.Context, rules []int) (bool, error) {
		if len(rules) == 0 {
			return true, nil
		}
		key := joinInt(rules, "", ",")
		if ok, found := seen[key]; found {
			return ok, nil
		}
		goals := make([]term.Term, len(rules))
		for i, r := range rules {
			goals[i] = conjuncts[r-1]
		}
		s, err := p.Solve(ctx, term.Format(term.Conjunction(goals)))
		if err != nil {
			return false, err
		}
		ok := s.Success()
		if err := s.Close(); err != nil {
			return false, err
		}
		seen[key] = ok
		return ok, nil
	}
}

func joinInt(s []int, prefix, sep string) string {
	parts := make([]string, len(s))
	for i, s := range s {
		parts[i] = prefix + strconv.Itoa(s)
	}
	return strings.Join(parts, sep)
}
