package prolog

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"prolog4go/term"
)

// Solution iterates the answers of a goal. The first answer is fetched by
// Solve, so Success and the accessors work without calling Next.
type Solution struct {
	prover  *Prover
	ctx     context.Context
	goal    string
	answers Answers
	vars    []string
	output  string

	current  map[string]term.Term
	success  bool
	found    bool
	consumed bool
	done     bool
	closed   bool
	err      error
}

// fetch advances to the next answer. The caller holds the prover lock.
func (s *Solution) fetch() {
	if s.done {
		s.found = false
		return
	}
	if s.answers.Next(s.ctx) {
		s.current = s.answers.Bindings()
		s.found = true
		return
	}
	s.found = false
	s.done = true
	s.current = nil
	if err := s.answers.Err(); err != nil {
		s.err = s.prover.wrap(fmt.Sprintf("solve %q", s.goal), err)
	}
}

// Success reports whether the goal had at least one answer.
func (s *Solution) Success() bool {
	return s.success
}

// Goal is the goal text after placeholder substitution.
func (s *Solution) Goal() string { return s.goal }

// Next moves to the next answer. The first call yields the answer fetched
// by Solve, later calls backtrack into the engine.
func (s *Solution) Next() bool {
	if s.closed || s.err != nil {
		return false
	}
	if !s.consumed {
		s.consumed = true
		return s.found
	}
	p := s.prover
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		s.err = ErrClosed
		return false
	}
	s.fetch()
	return s.found
}

// On makes v the variable that Value reports.
func (s *Solution) On(v string) *Solution {
	s.output = v
	return s
}

// Term returns the binding of v in the current answer.
func (s *Solution) Term(v string) (term.Term, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if !s.found {
		if s.err != nil {
			return nil, s.err
		}
		return nil, fmt.Errorf("%w: %s", ErrNoSolution, s.goal)
	}
	t, ok := s.current[v]
	if !ok {
		if !slices.Contains(s.vars, v) {
			return nil, fmt.Errorf("%w: %s in %s", ErrUnknownVar, v, s.goal)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnbound, v)
	}
	if _, isVar := t.(term.Var); isVar {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, v)
	}
	return t, nil
}

// Get returns the binding of v converted with the prover's policy.
func (s *Solution) Get(v string) (any, error) {
	t, err := s.Term(v)
	if err != nil {
		return nil, err
	}
	return s.prover.policy.ConvertTerm(t, nil)
}

// Scan stores the converted binding of v in the variable dest points to.
func (s *Solution) Scan(v string, dest any) error {
	t, err := s.Term(v)
	if err != nil {
		return err
	}
	return s.prover.policy.ConvertInto(t, dest)
}

// Value returns the binding of the output variable. Unless On was called it
// is the last output placeholder, or else the last variable of the goal.
func (s *Solution) Value() (any, error) {
	if s.output == "" {
		return nil, fmt.Errorf("%w: goal %s has no variables", ErrUnknownVar, s.goal)
	}
	return s.Get(s.output)
}

// Bindings returns a copy of the current answer.
func (s *Solution) Bindings() map[string]term.Term {
	return maps.Clone(s.current)
}

func (s *Solution) Err() error {
	return s.err
}

func (s *Solution) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	p := s.prover
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	return p.wrap("close solution", s.answers.Close())
}
