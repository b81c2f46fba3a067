package prolog

import "errors"

var (
	ErrNoDriver        = errors.New("no prolog driver registered")
	ErrAmbiguousDriver = errors.New("several prolog drivers registered and none selected")
	ErrUnknownDriver   = errors.New("unknown prolog driver")
	ErrClosed          = errors.New("use of closed prover or solution")
	ErrNoSolution      = errors.New("goal has no solution")
	ErrUnbound         = errors.New("variable is not bound")
	ErrUnknownVar      = errors.New("variable does not occur in goal")
)
