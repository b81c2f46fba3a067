package prolog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prolog4go/conversion"
	"prolog4go/term"
)

func newTestProver(t *testing.T, opts ...Option) *Prover {
	t.Helper()
	f := NewFactory(opts...)
	t.Cleanup(func() { _ = f.Close() })
	p, err := f.GetProver(context.Background(), "test")
	require.NoError(t, err)
	require.NoError(t, p.AddTheory(context.Background(),
		"human(socrates).",
		"human(plato).",
		"age(plato, 80).",
		"age(socrates, 71).",
		"mystery(_).",
	))
	return p
}

func TestSolveIteration(t *testing.T) {
	p := newTestProver(t)
	s, err := p.Solve(context.Background(), "human(?X)", nil)
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Success())
	assert.Equal(t, "human(X)", s.Goal())

	// the prefetched answer is readable before Next
	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, "socrates", v)

	require.True(t, s.Next())
	v, err = s.Get("X")
	require.NoError(t, err)
	assert.Equal(t, "socrates", v)

	require.True(t, s.Next())
	var name string
	require.NoError(t, s.Scan("X", &name))
	assert.Equal(t, "plato", name)

	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
	assert.True(t, s.Success())
}

func TestSolveWithArguments(t *testing.T) {
	p := newTestProver(t)
	ctx := context.Background()

	s, err := p.Solve(ctx, "human(?)", "plato")
	require.NoError(t, err)
	assert.True(t, s.Success())
	require.NoError(t, s.Close())

	s, err = p.Solve(ctx, "human(?)", "zeus")
	require.NoError(t, err)
	assert.False(t, s.Success())
	assert.False(t, s.Next())
	_, err = s.Term("X")
	assert.ErrorIs(t, err, ErrNoSolution)
	require.NoError(t, s.Close())

	s, err = p.Solve(ctx, "age(?Who, Age)", "plato")
	require.NoError(t, err)
	defer s.Close()
	n, err := First[int](s, "Age")
	require.NoError(t, err)
	assert.Equal(t, 80, n)

	v, err := s.Value()
	require.NoError(t, err)
	assert.Equal(t, int64(80), v)

	_, err = s.On("Who").Value()
	assert.ErrorIs(t, err, ErrUnknownVar)
}

func TestSolutionVariableErrors(t *testing.T) {
	p := newTestProver(t)
	s, err := p.Solve(context.Background(), "mystery(X)")
	require.NoError(t, err)

	_, err = s.Term("X")
	assert.ErrorIs(t, err, ErrUnbound)
	_, err = s.Term("Y")
	assert.ErrorIs(t, err, ErrUnknownVar)

	require.NoError(t, s.Close())
	_, err = s.Term("X")
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, s.Next())
}

func TestCollect(t *testing.T) {
	p := newTestProver(t)
	ctx := context.Background()

	s, err := p.Solve(ctx, "human(X)")
	require.NoError(t, err)
	names, err := Collect[string](s, "X")
	require.NoError(t, err)
	assert.Equal(t, []string{"socrates", "plato"}, names)
	require.NoError(t, s.Close())

	require.NoError(t, p.Assertz(ctx, "human(?)", "plato"))
	s, err = p.Solve(ctx, "human(X)")
	require.NoError(t, err)
	set, err := CollectSet[string](s, "X")
	require.NoError(t, err)
	assert.Equal(t, 2, set.Cardinality())
	assert.True(t, set.Contains("socrates", "plato"))
	require.NoError(t, s.Close())
}

func TestEngineErrorsAreWrapped(t *testing.T) {
	p := newTestProver(t)
	ctx := context.Background()

	_, err := p.Solve(ctx, "boom")
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "prover test")

	_, err = p.Solve(ctx, "late_boom")
	require.ErrorIs(t, err, errBoom)

	_, err = p.Solve(ctx, "human(?)")
	assert.Error(t, err)
}

func TestAssertRetractJournal(t *testing.T) {
	j := &memJournal{}
	p := newTestProver(t, WithJournal(j))
	ctx := context.Background()

	require.NoError(t, p.Assertz(ctx, "human(?)", "Aristotle"))
	s, err := p.Solve(ctx, "human(?)", "Aristotle")
	require.NoError(t, err)
	assert.True(t, s.Success())
	require.NoError(t, s.Close())

	ok, err := p.Retract(ctx, "human(?)", "Aristotle")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.Retract(ctx, "human(?)", "Aristotle")
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, j.entries, 3)
	assert.True(t, strings.HasPrefix(j.entries[0], "test theory human(socrates)."))
	assert.Equal(t, "test assert human('Aristotle')", j.entries[1])
	assert.Equal(t, "test retract human('Aristotle')", j.entries[2])
}

func TestReplay(t *testing.T) {
	j := &memJournal{}
	p := newTestProver(t, WithJournal(j))
	ctx := context.Background()
	before := len(j.entries)

	require.NoError(t, p.Replay(ctx, KindAssert, "human(diogenes)"))
	require.NoError(t, p.Replay(ctx, KindRetract, "human(plato)"))
	assert.Error(t, p.Replay(ctx, EntryKind("bogus"), "x"))
	assert.Len(t, j.entries, before)

	results, err := p.SolveAll(ctx, "human(diogenes)", "human(plato)", "human(socrates)")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, true}, results)
}

func TestSolveAllStopsOnError(t *testing.T) {
	p := newTestProver(t)
	_, err := p.SolveAll(context.Background(), "human(plato)", "boom")
	assert.ErrorIs(t, err, errBoom)
}

type city struct{ name string }

func TestPolicyIsPerProver(t *testing.T) {
	ctx := context.Background()
	f := NewFactory()
	defer f.Close()

	a, err := f.GetProver(ctx, "a")
	require.NoError(t, err)
	b, err := f.GetProver(ctx, "b")
	require.NoError(t, err)

	conversion.AddObject(a.Policy(), func(_ *conversion.Policy, c city) (term.Term, error) {
		return term.Atom(c.name), nil
	})
	require.NoError(t, a.AddTheory(ctx, "capital(paris)."))

	s, err := a.Solve(ctx, "capital(?)", city{"paris"})
	require.NoError(t, err)
	assert.True(t, s.Success())
	require.NoError(t, s.Close())

	_, err = b.Solve(ctx, "capital(?)", city{"paris"})
	assert.ErrorIs(t, err, conversion.ErrNoConverter)
}
