package kb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prolog4go/drivers/ichiban"
	"prolog4go/prolog"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSchemaIdempotent(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, initSchema(context.Background(), s.db))
	}
}

func TestRecordAndEntries(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Record(ctx, "zoo", prolog.KindTheory, "animal(cat)."))
	require.NoError(t, s.Record(ctx, "zoo", prolog.KindAssert, "animal(dog)"))
	require.NoError(t, s.Record(ctx, "farm", prolog.KindAssert, "animal(cow)"))
	require.NoError(t, s.Record(ctx, "zoo", prolog.KindRetract, "animal(cat)"))

	entries, err := s.Entries(ctx, "zoo")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var kinds []prolog.EntryKind
	for i, e := range entries {
		kinds = append(kinds, e.Kind)
		_, err := ulid.ParseStrict(e.ID)
		assert.NoError(t, err)
		if i > 0 {
			assert.Less(t, entries[i-1].ID, e.ID)
		}
	}
	assert.Equal(t, []prolog.EntryKind{prolog.KindTheory, prolog.KindAssert, prolog.KindRetract}, kinds)

	provers, err := s.Provers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"farm", "zoo"}, provers)

	require.NoError(t, s.Clear(ctx, "zoo"))
	entries, err = s.Entries(ctx, "zoo")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, "p", prolog.KindAssert, "a(1)"))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.Entries(ctx, "p")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a(1)", entries[0].Text)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	f := prolog.NewFactory(prolog.WithDriver(ichiban.DriverName), prolog.WithJournal(s))
	defer f.Close()

	p, err := f.GetProver(ctx, "colors")
	require.NoError(t, err)
	require.NoError(t, p.AddTheory(ctx, ":- dynamic(color/1).", "color(red)."))
	require.NoError(t, p.Assertz(ctx, "color(?)", "green"))
	require.NoError(t, p.Assertz(ctx, "color(?)", "blue"))
	_, err = p.Retract(ctx, "color(red)")
	require.NoError(t, err)
	require.NoError(t, f.Reset("colors"))

	fresh, err := f.GetProver(ctx, "colors")
	require.NoError(t, err)
	n, err := s.Restore(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	sol, err := fresh.Solve(ctx, "color(C)")
	require.NoError(t, err)
	colors, err := prolog.Collect[string](sol, "C")
	require.NoError(t, err)
	require.NoError(t, sol.Close())
	assert.Equal(t, []string{"green", "blue"}, colors)

	// replaying does not journal again
	entries, err := s.Entries(ctx, "colors")
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}
