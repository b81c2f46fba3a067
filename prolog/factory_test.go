package prolog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPanics(t *testing.T) {
	assert.Panics(t, func() { Register("nil", nil) })
	assert.Panics(t, func() { Register("fake", &fakeDriver{}) })
	assert.Contains(t, Drivers(), "fake")
}

func TestResolveDriver(t *testing.T) {
	name, err := resolveDriver("")
	require.NoError(t, err)
	assert.Equal(t, "fake", name)

	Register("fake2", &fakeDriver{})
	defer Unregister("fake2")

	_, err = resolveDriver("")
	assert.ErrorIs(t, err, ErrAmbiguousDriver)

	name, err = resolveDriver("fake2")
	require.NoError(t, err)
	assert.Equal(t, "fake2", name)

	t.Setenv(DriverEnv, "fake")
	name, err = resolveDriver("")
	require.NoError(t, err)
	assert.Equal(t, "fake", name)

	_, err = resolveDriver("missing")
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestResolveNoDriver(t *testing.T) {
	Unregister("fake")
	defer Register("fake", testDriver)

	_, err := NewFactory().GetProver(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoDriver)
}

func TestGetProverOpensOnce(t *testing.T) {
	d := &fakeDriver{delay: 20 * time.Millisecond}
	Register("slow", d)
	defer Unregister("slow")

	f := NewFactory(WithDriver("slow"))
	defer f.Close()

	var wg sync.WaitGroup
	got := make([]*Prover, 16)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := f.GetProver(context.Background(), "shared")
			assert.NoError(t, err)
			got[i] = p
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), d.opens.Load())
	for _, p := range got {
		assert.Same(t, got[0], p)
	}
	assert.Equal(t, "slow", got[0].Driver())
}

func TestNewProverIsAnonymous(t *testing.T) {
	f := NewFactory()
	defer f.Close()

	a, err := f.NewProver(context.Background())
	require.NoError(t, err)
	b, err := f.NewProver(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, a.Name(), b.Name())
	_, err = uuid.Parse(a.Name())
	assert.NoError(t, err)
	assert.Len(t, f.Provers(), 2)
}

func TestResetAndClose(t *testing.T) {
	ctx := context.Background()
	f := NewFactory()

	p, err := f.GetProver(ctx, "kb")
	require.NoError(t, err)
	require.NoError(t, p.AddTheory(ctx, "human(socrates)."))

	require.NoError(t, f.Reset("kb"))
	assert.Empty(t, f.Provers())
	_, err = p.Solve(ctx, "human(socrates)")
	assert.ErrorIs(t, err, ErrClosed)

	fresh, err := f.GetProver(ctx, "kb")
	require.NoError(t, err)
	assert.NotSame(t, p, fresh)
	s, err := fresh.Solve(ctx, "human(socrates)")
	require.NoError(t, err)
	assert.False(t, s.Success())
	require.NoError(t, s.Close())

	// closing a prover directly also drops it from the factory
	require.NoError(t, fresh.Close())
	assert.Empty(t, f.Provers())

	require.NoError(t, f.Close())
	_, err = f.GetProver(ctx, "kb")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWithInit(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(WithInit(func(ctx context.Context, p *Prover) error {
		return p.AddTheory(ctx, "ready("+p.Name()+").")
	}))
	defer f.Close()

	p, err := f.GetProver(ctx, "boot")
	require.NoError(t, err)
	s, err := p.Solve(ctx, "ready(?)", "boot")
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, s.Success())
}
