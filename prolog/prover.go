package prolog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prolog4go/conversion"
	"prolog4go/goal"
	"prolog4go/term"
)

// Prover is a named handle to one engine. Calls on a prover are serialised,
// including the backtracking of its open solutions.
type Prover struct {
	name    string
	driver  string
	policy  *conversion.Policy
	goals   *goal.Cache
	journal Journal
	log     *zap.Logger
	onClose func()

	mu     sync.Mutex
	engine Engine
	closed bool
}

func newProver(name, driver string, engine Engine, o options, log *zap.Logger) (*Prover, error) {
	goals, err := goal.NewCache(o.cacheSize)
	if err != nil {
		return nil, err
	}
	policy := o.policy
	if policy == nil {
		policy = conversion.NewPolicy()
	} else {
		policy = policy.Clone()
	}
	return &Prover{
		name:    name,
		driver:  driver,
		policy:  policy,
		goals:   goals,
		journal: o.journal,
		log:     log,
		engine:  engine,
	}, nil
}

func (p *Prover) Name() string   { return p.name }
func (p *Prover) Driver() string { return p.driver }

// Policy is this prover's conversion policy. Converters added to it apply
// to later calls only.
func (p *Prover) Policy() *conversion.Policy { return p.policy }

// AddTheory consults the given lines as one program text.
func (p *Prover) AddTheory(ctx context.Context, lines ...string) error {
	text := strings.Join(lines, "\n")
	if err := p.apply(ctx, KindTheory, text); err != nil {
		return err
	}
	return p.record(ctx, KindTheory, text)
}

func (p *Prover) LoadTheory(ctx context.Context, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return p.wrap("load theory", err)
	}
	return p.AddTheory(ctx, string(b))
}

// Assertz adds fact at the end of its predicate. Placeholders in fact are
// replaced by args as in Solve.
func (p *Prover) Assertz(ctx context.Context, fact string, args ...any) error {
	clause, err := p.clause(fact, args)
	if err != nil {
		return p.wrap("assertz", err)
	}
	text := term.Format(clause)
	if err := p.apply(ctx, KindAssert, text); err != nil {
		return err
	}
	return p.record(ctx, KindAssert, text)
}

// Retract removes the first clause unifying with fact. It reports false when
// there was none.
func (p *Prover) Retract(ctx context.Context, fact string, args ...any) (bool, error) {
	clause, err := p.clause(fact, args)
	if err != nil {
		return false, p.wrap("retract", err)
	}
	ok, err := p.retract(ctx, clause)
	if err != nil || !ok {
		return ok, err
	}
	return true, p.record(ctx, KindRetract, term.Format(clause))
}

// Replay applies a journal entry without recording it again.
func (p *Prover) Replay(ctx context.Context, kind EntryKind, text string) error {
	return p.apply(ctx, kind, text)
}

func (p *Prover) apply(ctx context.Context, kind EntryKind, text string) error {
	switch kind {
	case KindTheory:
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return ErrClosed
		}
		p.log.Debug("consult", zap.Int("bytes", len(text)))
		return p.wrap("consult", p.engine.Consult(ctx, text))
	case KindAssert:
		clause, err := term.Parse(text)
		if err != nil {
			return p.wrap("assertz", err)
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return ErrClosed
		}
		p.log.Debug("assertz", zap.String("clause", text))
		return p.wrap("assertz", p.engine.Assert(ctx, clause))
	case KindRetract:
		clause, err := term.Parse(text)
		if err != nil {
			return p.wrap("retract", err)
		}
		_, err = p.retract(ctx, clause)
		return err
	}
	return fmt.Errorf("prover %s: unknown entry kind %q", p.name, kind)
}

func (p *Prover) retract(ctx context.Context, clause term.Term) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, ErrClosed
	}
	p.log.Debug("retract", zap.Stringer("clause", clause))
	ok, err := p.engine.Retract(ctx, clause)
	return ok, p.wrap("retract", err)
}

func (p *Prover) clause(text string, args []any) (term.Term, error) {
	b, err := p.Bind(text, args...)
	if err != nil {
		return nil, err
	}
	return term.Parse(b.Text)
}

// Bind substitutes args for the placeholders of text using the prover's
// goal cache and policy.
func (p *Prover) Bind(text string, args ...any) (*goal.Bound, error) {
	tmpl, err := p.goals.Compile(text)
	if err != nil {
		return nil, err
	}
	return tmpl.Bind(p.policy, args...)
}

func (p *Prover) record(ctx context.Context, kind EntryKind, text string) error {
	if p.journal == nil {
		return nil
	}
	return p.wrap("journal", p.journal.Record(ctx, p.name, kind, text))
}

// Solve runs goal and fetches its first answer. The solution must be closed.
func (p *Prover) Solve(ctx context.Context, goalText string, args ...any) (*Solution, error) {
	b, err := p.Bind(goalText, args...)
	if err != nil {
		return nil, p.wrap("solve", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	p.log.Debug("solve", zap.String("goal", b.Text))
	answers, err := p.engine.Query(ctx, b.Text)
	if err != nil {
		return nil, p.wrap(fmt.Sprintf("solve %q", b.Text), err)
	}
	s := &Solution{
		prover:  p,
		ctx:     ctx,
		goal:    b.Text,
		answers: answers,
		vars:    b.Vars,
		output:  b.Default,
	}
	s.fetch()
	s.success = s.found
	if s.err != nil {
		_ = answers.Close()
		return nil, s.err
	}
	return s, nil
}

// SolveAll reports for each goal whether it has a solution.
func (p *Prover) SolveAll(ctx context.Context, goals ...string) ([]bool, error) {
	results := make([]bool, len(goals))
	g, ctx := errgroup.WithContext(ctx)
	for i, text := range goals {
		g.Go(func() error {
			s, err := p.Solve(ctx, text)
			if err != nil {
				return err
			}
			results[i] = s.Success()
			return s.Close()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Close releases the engine. Open solutions fail afterwards.
func (p *Prover) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	err := p.engine.Close()
	p.mu.Unlock()
	if p.onClose != nil {
		p.onClose()
	}
	p.log.Debug("prover closed")
	return p.wrap("close", err)
}

func (p *Prover) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("prover %s: %s: %w", p.name, op, err)
}
