// Package ichiban registers the "ichiban" driver, backed by the pure Go
// interpreter github.com/ichiban/prolog.
package ichiban

import (
	"context"
	"fmt"
	"strings"

	"github.com/ichiban/prolog"
	"go.uber.org/zap"

	p4g "prolog4go/prolog"
	"prolog4go/term"
)

const DriverName = "ichiban"

func init() {
	p4g.Register(DriverName, Driver{})
}

type Driver struct{}

func (Driver) Open(_ context.Context, _ string, opts p4g.EngineOptions) (p4g.Engine, error) {
	return New(opts.Logger)
}

// Logic wraps one interpreter. Text written by the program goes to the
// logger at debug level.
type Logic struct {
	prolog *prolog.Interpreter
}

func New(log *zap.Logger) (*Logic, error) {
	if log == nil {
		log = zap.NewNop()
	}
	out, err := zap.NewStdLogAt(log.Named("output"), zap.DebugLevel)
	if err != nil {
		return nil, err
	}
	return &Logic{prolog: prolog.New(nil, out.Writer())}, nil
}

func (l *Logic) Consult(ctx context.Context, text string) error {
	return l.prolog.ExecContext(ctx, text)
}

func (l *Logic) Assert(ctx context.Context, clause term.Term) error {
	ok, err := l.check(ctx, "assertz(("+term.Format(clause)+"))")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("assertz failed for %s", term.Format(clause))
	}
	return nil
}

func (l *Logic) Retract(ctx context.Context, clause term.Term) (bool, error) {
	return l.check(ctx, "retract(("+term.Format(clause)+"))")
}

func (l *Logic) check(ctx context.Context, goal string) (bool, error) {
	sols, err := l.prolog.QueryContext(ctx, goal+".")
	if err != nil {
		return false, err
	}
	ok := sols.Next()
	if err := sols.Err(); err != nil {
		_ = sols.Close()
		return false, err
	}
	return ok, sols.Close()
}

func (l *Logic) Query(ctx context.Context, goal string) (p4g.Answers, error) {
	sols, err := l.prolog.QueryContext(ctx, goal+".")
	if err != nil {
		return nil, err
	}
	return &answers{sols: sols}, nil
}

func (l *Logic) Close() error {
	return nil
}

type answers struct {
	sols     *prolog.Solutions
	bindings map[string]term.Term
	err      error
}

func (a *answers) Next(ctx context.Context) bool {
	if a.err != nil || ctx.Err() != nil {
		if a.err == nil {
			a.err = ctx.Err()
		}
		return false
	}
	if !a.sols.Next() {
		return false
	}
	var s = make(map[string]prolog.TermString)
	if err := a.sols.Scan(&s); err != nil {
		a.err = err
		return false
	}
	bindings := make(map[string]term.Term, len(s))
	for k, v := range s {
		if strings.HasPrefix(k, "_") {
			continue
		}
		t, err := term.Parse(string(v))
		if err != nil {
			a.err = fmt.Errorf("binding of %s: %w", k, err)
			return false
		}
		bindings[k] = t
	}
	a.bindings = bindings
	return true
}

func (a *answers) Bindings() map[string]term.Term {
	return a.bindings
}

func (a *answers) Err() error {
	if a.err != nil {
		return a.err
	}
	return a.sols.Err()
}

func (a *answers) Close() error {
	return a.sols.Close()
}
