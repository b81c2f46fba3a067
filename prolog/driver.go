package prolog

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"prolog4go/term"
)

// Driver opens engines of one kind. Drivers register themselves from an init
// function, the way database/sql drivers do.
type Driver interface {
	Open(ctx context.Context, name string, opts EngineOptions) (Engine, error)
}

type EngineOptions struct {
	Logger *zap.Logger
	// Dir is the directory an engine may read consulted files from.
	Dir string
}

// Engine is one knowledge base inside an inference engine. Goal text passed
// to Query has no terminating period.
type Engine interface {
	Consult(ctx context.Context, text string) error
	Assert(ctx context.Context, clause term.Term) error
	Retract(ctx context.Context, clause term.Term) (bool, error)
	Query(ctx context.Context, goal string) (Answers, error)
	Close() error
}

// Answers iterates the answers of one query. Bindings is valid until the
// next call to Next.
type Answers interface {
	Next(ctx context.Context) bool
	Bindings() map[string]term.Term
	Err() error
	Close() error
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics if d is nil or the
// name is taken.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("prolog: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("prolog: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Unregister removes a driver. Only tests should need it.
func Unregister(name string) {
	driversMu.Lock()
	defer driversMu.Unlock()
	delete(drivers, name)
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupDriver(name string) (Driver, bool) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	return d, ok
}
