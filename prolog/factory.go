package prolog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DriverEnv names the driver to use when none is configured.
const DriverEnv = "PROLOG4GO_DRIVER"

// Factory names, caches and closes provers.
type Factory struct {
	opts  options
	group singleflight.Group

	mu      sync.Mutex
	provers map[string]*Prover
	closed  bool
}

func NewFactory(opts ...Option) *Factory {
	return &Factory{
		opts:    newOptions(opts),
		provers: make(map[string]*Prover),
	}
}

var defaultFactory = sync.OnceValue(func() *Factory { return NewFactory() })

// Default returns the process-wide factory.
func Default() *Factory {
	return defaultFactory()
}

// GetProver returns the named prover of the process-wide factory.
func GetProver(ctx context.Context, name string) (*Prover, error) {
	return Default().GetProver(ctx, name)
}

// DriverName reports the driver used for provers that do not name one.
func (f *Factory) DriverName() (string, error) {
	return resolveDriver(f.opts.driver)
}

func resolveDriver(name string) (string, error) {
	if name == "" {
		name = os.Getenv(DriverEnv)
	}
	if name != "" {
		if _, ok := lookupDriver(name); !ok {
			return "", fmt.Errorf("%w %q (registered: %s)", ErrUnknownDriver, name, strings.Join(Drivers(), ", "))
		}
		return name, nil
	}
	names := Drivers()
	switch len(names) {
	case 0:
		return "", ErrNoDriver
	case 1:
		return names[0], nil
	}
	return "", fmt.Errorf("%w: %s", ErrAmbiguousDriver, strings.Join(names, ", "))
}

// GetProver returns the prover called name, opening it with the default
// driver on first use. Concurrent first calls share one engine.
func (f *Factory) GetProver(ctx context.Context, name string) (*Prover, error) {
	return f.OpenProver(ctx, name, "")
}

// OpenProver is GetProver with an explicit driver. The driver only matters
// when the prover does not exist yet.
func (f *Factory) OpenProver(ctx context.Context, name, driver string) (*Prover, error) {
	if p, err := f.cached(name); p != nil || err != nil {
		return p, err
	}
	v, err, _ := f.group.Do(name, func() (any, error) {
		if p, err := f.cached(name); p != nil || err != nil {
			return p, err
		}
		p, err := f.open(ctx, name, driver)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			_ = p.Close()
			return nil, ErrClosed
		}
		f.provers[name] = p
		f.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Prover), nil
}

// NewProver opens an anonymous prover named by a random UUID.
func (f *Factory) NewProver(ctx context.Context) (*Prover, error) {
	return f.GetProver(ctx, uuid.NewString())
}

func (f *Factory) cached(name string) (*Prover, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}
	return f.provers[name], nil
}

func (f *Factory) open(ctx context.Context, name, driver string) (*Prover, error) {
	if driver == "" {
		driver = f.opts.driver
	}
	driver, err := resolveDriver(driver)
	if err != nil {
		return nil, err
	}
	d, _ := lookupDriver(driver)
	log := f.opts.logger.With(zap.String("prover", name), zap.String("driver", driver))
	engine, err := d.Open(ctx, name, EngineOptions{Logger: log, Dir: f.opts.dir})
	if err != nil {
		return nil, fmt.Errorf("open prover %s with %s: %w", name, driver, err)
	}
	p, err := newProver(name, driver, engine, f.opts, log)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	p.onClose = func() { f.forget(name, p) }
	if f.opts.init != nil {
		if err := f.opts.init(ctx, p); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("init prover %s: %w", name, err)
		}
	}
	log.Debug("prover opened")
	return p, nil
}

func (f *Factory) forget(name string, p *Prover) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.provers[name] == p {
		delete(f.provers, name)
	}
}

// Provers returns the sorted names of the open provers.
func (f *Factory) Provers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.provers))
	for name := range f.provers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset closes the named prover. The next GetProver opens a fresh one.
func (f *Factory) Reset(name string) error {
	f.mu.Lock()
	p := f.provers[name]
	delete(f.provers, name)
	f.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Close()
}

// Close closes every prover. The factory cannot be used afterwards.
func (f *Factory) Close() error {
	f.mu.Lock()
	f.closed = true
	provers := f.provers
	f.provers = make(map[string]*Prover)
	f.mu.Unlock()

	var errs []error
	for _, p := range provers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
