package prolog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"prolog4go/term"
)

var errBoom = errors.New("boom")

// fakeDriver answers single-literal goals by matching them against ground
// facts. It is enough to exercise the facade without a real engine.
type fakeDriver struct {
	opens atomic.Int32
	delay time.Duration
}

func (d *fakeDriver) Open(_ context.Context, _ string, _ EngineOptions) (Engine, error) {
	d.opens.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return &fakeEngine{}, nil
}

type fakeEngine struct {
	mu     sync.Mutex
	facts  []term.Term
	closed bool
}

func (e *fakeEngine) Consult(_ context.Context, text string) error {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		t, err := term.Parse(line)
		if err != nil {
			return err
		}
		e.facts = append(e.facts, t)
	}
	return nil
}

func (e *fakeEngine) Assert(_ context.Context, clause term.Term) error {
	e.facts = append(e.facts, clause)
	return nil
}

func (e *fakeEngine) Retract(_ context.Context, clause term.Term) (bool, error) {
	for i, f := range e.facts {
		if match(clause, f, map[string]term.Term{}) {
			e.facts = append(e.facts[:i], e.facts[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (e *fakeEngine) Query(_ context.Context, goal string) (Answers, error) {
	if goal == "boom" {
		return nil, errBoom
	}
	if goal == "late_boom" {
		return &fakeAnswers{err: errBoom}, nil
	}
	g, err := term.Parse(goal)
	if err != nil {
		return nil, err
	}
	if g == term.Atom("true") {
		return &fakeAnswers{rows: []map[string]term.Term{{}}}, nil
	}
	var rows []map[string]term.Term
	for _, f := range e.facts {
		b := map[string]term.Term{}
		if match(g, f, b) {
			rows = append(rows, b)
		}
	}
	return &fakeAnswers{rows: rows}, nil
}

func (e *fakeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func match(pattern, fact term.Term, b map[string]term.Term) bool {
	if v, ok := pattern.(term.Var); ok {
		if v == "_" {
			return true
		}
		if bound, ok := b[string(v)]; ok {
			return term.Equal(bound, fact)
		}
		b[string(v)] = fact
		return true
	}
	pc, ok1 := pattern.(term.Compound)
	fc, ok2 := fact.(term.Compound)
	if ok1 != ok2 {
		return false
	}
	if ok1 {
		if pc.Functor != fc.Functor || len(pc.Args) != len(fc.Args) {
			return false
		}
		for i := range pc.Args {
			if !match(pc.Args[i], fc.Args[i], b) {
				return false
			}
		}
		return true
	}
	return term.Equal(pattern, fact)
}

type fakeAnswers struct {
	rows []map[string]term.Term
	pos  int
	err  error
}

func (a *fakeAnswers) Next(context.Context) bool {
	if a.pos >= len(a.rows) {
		return false
	}
	a.pos++
	return true
}

func (a *fakeAnswers) Bindings() map[string]term.Term { return a.rows[a.pos-1] }
func (a *fakeAnswers) Err() error                     { return a.err }
func (a *fakeAnswers) Close() error                   { return nil }

type memJournal struct {
	mu      sync.Mutex
	entries []string
}

func (j *memJournal) Record(_ context.Context, prover string, kind EntryKind, text string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, prover+" "+string(kind)+" "+text)
	return nil
}

var testDriver = &fakeDriver{}

func init() {
	Register("fake", testDriver)
}
