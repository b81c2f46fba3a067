// Package trealla registers the "trealla" driver, backed by Trealla Prolog
// compiled to WebAssembly and run by github.com/trealla-prolog/go.
package trealla

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/trealla-prolog/go/trealla"
	"go.uber.org/zap"

	p4g "prolog4go/prolog"
	"prolog4go/term"
)

const DriverName = "trealla"

// Module receives consulted theory text.
const Module = "user"

func init() {
	p4g.Register(DriverName, Driver{})
}

type Driver struct{}

func (Driver) Open(_ context.Context, _ string, opts p4g.EngineOptions) (p4g.Engine, error) {
	return New(opts)
}

type Engine struct {
	pl trealla.Prolog
}

func New(opts p4g.EngineOptions) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	stdout, err := zap.NewStdLogAt(log.Named("output"), zap.DebugLevel)
	if err != nil {
		return nil, err
	}
	options := []trealla.Option{trealla.WithStdoutLog(stdout)}
	if opts.Dir != "" {
		options = append(options, trealla.WithPreopenDir(opts.Dir))
	}
	pl, err := trealla.New(options...)
	if err != nil {
		return nil, err
	}
	return &Engine{pl: pl}, nil
}

func (e *Engine) Consult(ctx context.Context, text string) error {
	return e.pl.ConsultText(ctx, Module, text)
}

func (e *Engine) Assert(ctx context.Context, clause term.Term) error {
	_, err := e.pl.QueryOnce(ctx, "assertz(("+term.Format(clause)+")).")
	return err
}

func (e *Engine) Retract(ctx context.Context, clause term.Term) (bool, error) {
	_, err := e.pl.QueryOnce(ctx, "retract(("+term.Format(clause)+")).")
	if trealla.IsFailure(err) {
		return false, nil
	}
	return err == nil, err
}

func (e *Engine) Query(ctx context.Context, goal string) (p4g.Answers, error) {
	return &answers{q: e.pl.Query(ctx, goal+".")}, nil
}

func (e *Engine) Close() error {
	e.pl.Close()
	return nil
}

type answers struct {
	q        trealla.Query
	bindings map[string]term.Term
	err      error
}

func (a *answers) Next(ctx context.Context) bool {
	if a.err != nil || !a.q.Next(ctx) {
		return false
	}
	sol := a.q.Current().Solution
	bindings := make(map[string]term.Term, len(sol))
	for name, v := range sol {
		if strings.HasPrefix(name, "_") {
			continue
		}
		t, err := fromTrealla(v)
		if err != nil {
			a.err = fmt.Errorf("binding of %s: %w", name, err)
			return false
		}
		bindings[name] = t
	}
	a.bindings = bindings
	return true
}

func (a *answers) Bindings() map[string]term.Term { return a.bindings }

// Err reports engine errors. A goal without answers is not an error.
func (a *answers) Err() error {
	if a.err != nil {
		return a.err
	}
	if err := a.q.Err(); !trealla.IsFailure(err) {
		return err
	}
	return nil
}

func (a *answers) Close() error {
	return a.q.Close()
}

func fromTrealla(v trealla.Term) (term.Term, error) {
	switch x := v.(type) {
	case trealla.Atom:
		return term.Atom(x), nil
	case trealla.Compound:
		if isCons(x) {
			return fromCons(x)
		}
		args := make([]term.Term, len(x.Args))
		for i, a := range x.Args {
			t, err := fromTrealla(a)
			if err != nil {
				return nil, err
			}
			args[i] = t
		}
		return term.Compound{Functor: string(x.Functor), Args: args}, nil
	case trealla.Variable:
		return term.Var(x.Name), nil
	case int64:
		return term.Int(x), nil
	case *big.Int:
		return term.MakeInt(x), nil
	case float64:
		return term.Float(x), nil
	case string:
		return term.Str(x), nil
	case []trealla.Term:
		elems := make([]term.Term, len(x))
		for i, e := range x {
			t, err := fromTrealla(e)
			if err != nil {
				return nil, err
			}
			elems[i] = t
		}
		return term.NewList(elems...), nil
	}
	return nil, fmt.Errorf("unsupported trealla term %T", v)
}

func isCons(c trealla.Compound) bool {
	return len(c.Args) == 2 && (c.Functor == "." || c.Functor == "[|]")
}

// fromCons folds a chain of list cells ending in something other than []
// into a partial list.
func fromCons(c trealla.Compound) (term.Term, error) {
	var elems []term.Term
	var rest trealla.Term = c
	for {
		cell, ok := rest.(trealla.Compound)
		if !ok || !isCons(cell) {
			break
		}
		head, err := fromTrealla(cell.Args[0])
		if err != nil {
			return nil, err
		}
		elems = append(elems, head)
		rest = cell.Args[1]
	}
	tail, err := fromTrealla(rest)
	if err != nil {
		return nil, err
	}
	if l, ok := tail.(term.List); ok {
		return term.List{Elems: append(elems, l.Elems...), Tail: l.Tail}, nil
	}
	if tail == term.Atom("[]") {
		return term.NewList(elems...), nil
	}
	return term.List{Elems: elems, Tail: tail}, nil
}
