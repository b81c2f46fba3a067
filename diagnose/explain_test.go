package diagnose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prolog4go/drivers/ichiban"
	"prolog4go/prolog"
)

func newProver(t *testing.T) *prolog.Prover {
	t.Helper()
	f := prolog.NewFactory(prolog.WithDriver(ichiban.DriverName))
	t.Cleanup(func() { _ = f.Close() })
	p, err := f.GetProver(context.Background(), "colors")
	require.NoError(t, err)
	require.NoError(t, p.AddTheory(context.Background(),
		"color(red).",
		"color(blue).",
		"warm(red).",
		"cold(blue).",
	))
	return p
}

func TestExplainConflict(t *testing.T) {
	p := newProver(t)
	for _, solver := range []string{SolverMaxSAT, SolverGophersat, SolverGini} {
		t.Run(solver, func(t *testing.T) {
			r, err := Explain(context.Background(), p, Config{Solver: solver}, "color(X), warm(X), cold(X)")
			require.NoError(t, err)
			assert.False(t, r.Satisfiable)
			assert.Equal(t, []string{"color(X)", "warm(X)", "cold(X)"}, r.Conjuncts)

			require.Len(t, r.Conflicts, 1)
			c := r.Conflicts[0]
			assert.Equal(t, [][]string{{"warm(X)", "cold(X)"}}, c.Unsatisfiable)
			assert.ElementsMatch(t, [][]string{{"warm(X)"}, {"cold(X)"}}, c.Corrections)
			assert.Equal(t, []string{"warm(X)", "cold(X)"}, c.Critical)

			text, err := r.Render()
			require.NoError(t, err)
			assert.Contains(t, text, "conflict 1:")
			assert.Contains(t, text, "fails together: warm(X), cold(X)")
		})
	}
}

func TestExplainSatisfiable(t *testing.T) {
	p := newProver(t)
	r, err := Explain(context.Background(), p, Config{}, "color(?C), warm(?C)", "red")
	require.NoError(t, err)
	assert.True(t, r.Satisfiable)
	assert.Equal(t, "color(red), warm(red)", r.Goal)

	text, err := r.Render()
	require.NoError(t, err)
	assert.Equal(t, "goal: color(red), warm(red)\nthe goal has a solution\n", text)
}

func TestExplainErrors(t *testing.T) {
	p := newProver(t)
	_, err := Explain(context.Background(), p, Config{Solver: "nope"}, "color(X), cold(X), warm(X)")
	assert.ErrorIs(t, err, ErrUnknownSolver)

	_, err = Explain(context.Background(), p, Config{}, "color(?)")
	assert.Error(t, err)
}
