package prolog

import "context"

type EntryKind string

const (
	KindTheory  EntryKind = "theory"
	KindAssert  EntryKind = "assert"
	KindRetract EntryKind = "retract"
)

// Journal receives every change made to a prover's knowledge base, so it can
// be rebuilt later with Prover.Replay.
type Journal interface {
	Record(ctx context.Context, prover string, kind EntryKind, text string) error
}
