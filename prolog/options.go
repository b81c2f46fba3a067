package prolog

import (
	"context"

	"go.uber.org/zap"

	"prolog4go/conversion"
	"prolog4go/goal"
)

type Option func(*options)

type options struct {
	driver    string
	logger    *zap.Logger
	journal   Journal
	policy    *conversion.Policy
	cacheSize int
	dir       string
	init      func(context.Context, *Prover) error
}

func newOptions(opts []Option) options {
	o := options{
		logger:    zap.NewNop(),
		cacheSize: goal.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithDriver selects the driver used for provers that do not name one.
func WithDriver(name string) Option {
	return func(o *options) { o.driver = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithJournal(j Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithPolicy sets the conversion policy new provers start from. Each prover
// receives its own clone.
func WithPolicy(p *conversion.Policy) Option {
	return func(o *options) { o.policy = p }
}

func WithGoalCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithInit runs fn on every prover the factory creates, before the prover
// is handed out. A failing fn closes the prover.
func WithInit(fn func(context.Context, *Prover) error) Option {
	return func(o *options) { o.init = fn }
}
