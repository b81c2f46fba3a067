package mangle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	p4g "prolog4go/prolog"
	"prolog4go/term"
)

const graph = `
edge(/a, /b).
edge(/b, /c).
edge(/c, /d).
reachable(X, Y) :- edge(X, Y).
reachable(X, Z) :- edge(X, Y), reachable(Y, Z).
has_out(X) :- edge(X, _).
`

func newProver(t *testing.T) *p4g.Prover {
	t.Helper()
	f := p4g.NewFactory(p4g.WithDriver(DriverName))
	t.Cleanup(func() { require.NoError(t, f.Close()) })
	p, err := f.GetProver(context.Background(), "graph")
	require.NoError(t, err)
	require.NoError(t, p.AddTheory(context.Background(), graph))
	return p
}

func TestCompileGoal(t *testing.T) {
	cases := []struct {
		goal string
		rule string
		vars []string
	}{
		{"edge(a, X)", "prolog4go_goal(/yes, X) :- edge(/a, X) .", []string{"X"}},
		{`edge(X, Y), \+ edge(Y, _)`, "prolog4go_goal(/yes, X, Y) :- edge(X, Y), !edge(Y, _) .", []string{"X", "Y"}},
		{`edge(X, Y), X \= Y, true`, "prolog4go_goal(/yes, X, Y) :- edge(X, Y), X != Y .", []string{"X", "Y"}},
		{`score(_S, "x", 2.0)`, `prolog4go_goal(/yes) :- score(P4G0, "x", 2.0) .`, nil},
		{"weight(X, N), X == a", "prolog4go_goal(/yes, X, N) :- weight(X, N), X = /a .", []string{"X", "N"}},
		{`edge(X, Y), Y \= b`, "prolog4go_goal(/yes, X, Y) :- edge(X, Y), Y != /b .", []string{"X", "Y"}},
	}
	for _, tc := range cases {
		rule, vars, err := compileGoal(term.MustParse(tc.goal))
		require.NoError(t, err, tc.goal)
		assert.Equal(t, tc.rule, rule, tc.goal)
		assert.Equal(t, tc.vars, vars, tc.goal)
	}

	for _, bad := range []string{"p(f(x))", "p([1])", "halt", "p('hello world')", "true"} {
		_, _, err := compileGoal(term.MustParse(bad))
		assert.ErrorIs(t, err, ErrUnsupported, bad)
	}
}

func TestSolve(t *testing.T) {
	p := newProver(t)
	s, err := p.Solve(context.Background(), "reachable(?, ?To)", "a", nil)
	require.NoError(t, err)
	defer s.Close()

	to, err := p4g.Collect[string](s, "To")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, to)
}

func TestNegation(t *testing.T) {
	p := newProver(t)
	s, err := p.Solve(context.Background(), `edge(_, X), \+ has_out(X)`)
	require.NoError(t, err)
	defer s.Close()

	sinks, err := p4g.Collect[string](s, "X")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, sinks)
}

func TestAssertRetract(t *testing.T) {
	p := newProver(t)
	ctx := context.Background()

	require.NoError(t, p.Assertz(ctx, "edge(d, ?)", "e"))
	ok, err := p.SolveAll(ctx, "reachable(a, e)", "reachable(e, a)")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, ok)

	// consulted facts can be retracted too
	removed, err := p.Retract(ctx, "edge(b, X)")
	require.NoError(t, err)
	assert.True(t, removed)
	ok, err = p.SolveAll(ctx, "reachable(a, e)")
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, ok)

	removed, err = p.Retract(ctx, "edge(b, c)")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.ErrorIs(t, p.Assertz(ctx, "edge(X, a)"), ErrUnsupported)
}

func TestValues(t *testing.T) {
	p := newProver(t)
	ctx := context.Background()
	require.NoError(t, p.AddTheory(ctx, `weight(/a, 3, 1.5, "heavy").`))

	s, err := p.Solve(ctx, "weight(a, N, F, S)")
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, map[string]term.Term{
		"N": term.Int(3),
		"F": term.Float(1.5),
		"S": term.Str("heavy"),
	}, s.Bindings())
}

func TestGoalEndingInName(t *testing.T) {
	p := newProver(t)
	ctx := context.Background()

	s, err := p.Solve(ctx, "edge(X, Y), X == b")
	require.NoError(t, err)
	defer s.Close()
	y, err := p4g.First[string](s, "Y")
	require.NoError(t, err)
	assert.Equal(t, "c", y)

	s2, err := p.Solve(ctx, `edge(X, _), X \= a`)
	require.NoError(t, err)
	defer s2.Close()
	from, err := p4g.Collect[string](s2, "X")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, from)
}

func TestConsultErrors(t *testing.T) {
	p := newProver(t)
	assert.Error(t, p.AddTheory(context.Background(), "broken(/a"))
}
