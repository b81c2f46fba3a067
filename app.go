package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"prolog4go/config"
	"prolog4go/kb"
	"prolog4go/prolog"
	"prolog4go/term"
)

// app holds what the commands share once flags and config are read.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	timeout time.Duration

	factory *prolog.Factory
	store   *kb.Store
}

func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, a.timeout)
}

// open builds the factory and, when a store path is configured, the
// journal it records to.
func (a *app) open(ctx context.Context) error {
	opts := []prolog.Option{
		prolog.WithLogger(a.log),
		prolog.WithGoalCacheSize(a.cfg.GoalCacheSize),
		prolog.WithInit(a.initProver),
	}
	if a.cfg.Driver != "" {
		opts = append(opts, prolog.WithDriver(a.cfg.Driver))
	}
	if path := a.cfg.Store.Path; path != "" {
		store, err := kb.Open(ctx, path)
		if err != nil {
			return fmt.Errorf("open store %s: %w", path, err)
		}
		a.store = store
		opts = append(opts, prolog.WithJournal(store))
	}
	a.factory = prolog.NewFactory(opts...)
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.factory != nil {
		errs = append(errs, a.factory.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// prover opens name with the driver configured for it, if any.
func (a *app) prover(ctx context.Context, name string) (*prolog.Prover, error) {
	pc, _ := a.cfg.Prover(name)
	return a.factory.OpenProver(ctx, name, pc.Driver)
}

// initProver loads the configured theory files of p and then replays its
// journal. Theory files are not journaled since they are read on every
// start.
func (a *app) initProver(ctx context.Context, p *prolog.Prover) error {
	if pc, ok := a.cfg.Prover(p.Name()); ok {
		for _, path := range pc.Theories {
			text, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if err := p.Replay(ctx, prolog.KindTheory, string(text)); err != nil {
				return fmt.Errorf("theory %s: %w", path, err)
			}
		}
	}
	if a.store == nil {
		return nil
	}
	n, err := a.store.Restore(ctx, p)
	if err != nil {
		return err
	}
	if n > 0 {
		a.log.Debug("journal restored", zap.String("prover", p.Name()), zap.Int("entries", n))
	}
	return nil
}

// theoryFiles maps the absolute path of every configured theory file to the
// provers that load it.
func (a *app) theoryFiles() (map[string][]string, error) {
	files := make(map[string][]string)
	for _, pc := range a.cfg.Provers {
		for _, path := range pc.Theories {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, err
			}
			files[abs] = append(files[abs], pc.Name)
		}
	}
	return files, nil
}

// reloadTheory reopens every open prover that loads path.
func (a *app) reloadTheory(ctx context.Context, path string) error {
	files, err := a.theoryFiles()
	if err != nil {
		return err
	}
	open := make(map[string]bool)
	for _, name := range a.factory.Provers() {
		open[name] = true
	}
	var errs []error
	for _, name := range files[path] {
		if !open[name] {
			continue
		}
		if err := a.factory.Reset(name); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := a.prover(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// parseArgs reads goal arguments given on the command line. "_" leaves a
// placeholder unbound, text that parses as a non-variable term is passed as
// that term, and anything else is passed as a string.
func parseArgs(args []string) []any {
	out := make([]any, len(args))
	for i, s := range args {
		if s == "_" {
			continue
		}
		if t, err := term.Parse(s); err == nil {
			if _, isVar := t.(term.Var); !isVar {
				out[i] = t
				continue
			}
		}
		out[i] = s
	}
	return out
}
