package trealla

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trealla-prolog/go/trealla"

	p4g "prolog4go/prolog"
	"prolog4go/term"
)

func newProver(t *testing.T) *p4g.Prover {
	t.Helper()
	f := p4g.NewFactory(p4g.WithDriver(DriverName))
	t.Cleanup(func() { require.NoError(t, f.Close()) })
	p, err := f.GetProver(context.Background(), "edges")
	require.NoError(t, err)
	require.NoError(t, p.AddTheory(context.Background(),
		":- dynamic(edge/2).",
		"edge(a, b).",
		"edge(b, c).",
		"path(X, Y) :- edge(X, Y).",
		"path(X, Z) :- edge(X, Y), path(Y, Z).",
	))
	return p
}

func TestSolve(t *testing.T) {
	p := newProver(t)
	s, err := p.Solve(context.Background(), "path(a, ?To)", nil)
	require.NoError(t, err)
	defer s.Close()

	to, err := p4g.Collect[string](s, "To")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, to)
}

func TestTermMapping(t *testing.T) {
	p := newProver(t)
	s, err := p.Solve(context.Background(), `X = point(?, [1, 2.5, "str"]), Y = _`, "p")
	require.NoError(t, err)
	defer s.Close()

	x, err := s.Term("X")
	require.NoError(t, err)
	c, ok := x.(term.Compound)
	require.True(t, ok)
	assert.Equal(t, "point", c.Functor)
	assert.Equal(t, term.NewList(term.Int(1), term.Float(2.5), term.Str("str")), c.Args[1])

	_, err = s.Term("Y")
	assert.ErrorIs(t, err, p4g.ErrUnbound)
}

func TestFromTrealla(t *testing.T) {
	cons := func(head, tail trealla.Term) trealla.Compound {
		return trealla.Compound{Functor: ".", Args: []trealla.Term{head, tail}}
	}
	cases := []struct {
		input  trealla.Term
		expect term.Term
	}{
		{trealla.Atom("a"), term.Atom("a")},
		{int64(3), term.Int(3)},
		{"s", term.Str("s")},
		{trealla.Variable{Name: "T"}, term.Var("T")},
		{[]trealla.Term{trealla.Atom("a"), int64(1)}, term.NewList(term.Atom("a"), term.Int(1))},
		{cons(trealla.Atom("a"), trealla.Variable{Name: "T"}),
			term.List{Elems: []term.Term{term.Atom("a")}, Tail: term.Var("T")}},
		{cons(trealla.Atom("a"), cons(trealla.Atom("b"), trealla.Variable{Name: "T"})),
			term.List{Elems: []term.Term{term.Atom("a"), term.Atom("b")}, Tail: term.Var("T")}},
		{cons(trealla.Atom("a"), []trealla.Term{trealla.Atom("b")}),
			term.NewList(term.Atom("a"), term.Atom("b"))},
		{cons(trealla.Atom("a"), trealla.Atom("[]")), term.NewList(term.Atom("a"))},
		{trealla.Compound{Functor: "f", Args: []trealla.Term{trealla.Atom("x")}},
			term.NewCompound("f", term.Atom("x"))},
	}
	for _, tc := range cases {
		got, err := fromTrealla(tc.input)
		require.NoError(t, err, "%v", tc.input)
		assert.True(t, term.Equal(tc.expect, got), "got %s, want %s", term.Format(got), term.Format(tc.expect))
	}

	_, err := fromTrealla(struct{}{})
	assert.Error(t, err)
}

func TestPartialListBinding(t *testing.T) {
	p := newProver(t)
	s, err := p.Solve(context.Background(), "X = [a, b|T]")
	require.NoError(t, err)
	defer s.Close()

	x, err := s.Term("X")
	require.NoError(t, err)
	l, ok := x.(term.List)
	require.True(t, ok, "got %s", term.Format(x))
	assert.Equal(t, []term.Term{term.Atom("a"), term.Atom("b")}, l.Elems)
	assert.IsType(t, term.Var(""), l.Tail)
}

func TestFailingGoalIsNotAnError(t *testing.T) {
	p := newProver(t)
	s, err := p.Solve(context.Background(), "edge(c, _)")
	require.NoError(t, err)
	defer s.Close()
	assert.False(t, s.Success())
	assert.NoError(t, s.Err())
}

func TestAssertRetract(t *testing.T) {
	p := newProver(t)
	ctx := context.Background()

	require.NoError(t, p.Assertz(ctx, "edge(c, ?)", "d"))
	ok, err := p.SolveAll(ctx, "path(a, d)")
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, ok)

	removed, err := p.Retract(ctx, "edge(c, d)")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = p.Retract(ctx, "edge(c, d)")
	require.NoError(t, err)
	assert.False(t, removed)
}
