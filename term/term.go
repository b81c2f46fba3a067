// Package term is the engine-neutral representation of Prolog values.
//
// Drivers translate their native terms to and from these types, so code
// written against the facade never sees an engine's own term model.
package term

import (
	"math/big"
	"slices"
)

type Term interface {
	term()
	String() string
}

// Atom is a Prolog atom. The empty list is represented by List{}, not Atom("[]").
type Atom string

// Int is a Prolog integer that fits in 64 bits.
type Int int64

// BigInt is a Prolog integer outside the int64 range.
type BigInt struct {
	*big.Int
}

type Float float64

// Str is a Prolog string object (double_quotes=string).
type Str string

// Var is a named logic variable. "_" is anonymous.
type Var string

type Compound struct {
	Functor string
	Args    []Term
}

// List is a proper list when Tail is nil, otherwise a partial list.
type List struct {
	Elems []Term
	Tail  Term
}

func (Atom) term()     {}
func (Int) term()      {}
func (BigInt) term()   {}
func (Float) term()    {}
func (Str) term()      {}
func (Var) term()      {}
func (Compound) term() {}
func (List) term()     {}

func (t Atom) String() string     { return Format(t) }
func (t Int) String() string      { return Format(t) }
func (t BigInt) String() string   { return Format(t) }
func (t Float) String() string    { return Format(t) }
func (t Str) String() string      { return Format(t) }
func (t Var) String() string      { return Format(t) }
func (t Compound) String() string { return Format(t) }
func (t List) String() string     { return Format(t) }

// NewCompound builds f(args...). With no args it returns the atom f.
func NewCompound(functor string, args ...Term) Term {
	if len(args) == 0 {
		return Atom(functor)
	}
	return Compound{Functor: functor, Args: args}
}

func NewList(elems ...Term) List {
	return List{Elems: elems}
}

// MakeInt returns an Int when b fits in 64 bits and a BigInt otherwise.
func MakeInt(b *big.Int) Term {
	if b.IsInt64() {
		return Int(b.Int64())
	}
	return BigInt{new(big.Int).Set(b)}
}

// Indicator is the name/arity of a callable term, e.g. "append/3".
func Indicator(t Term) (string, int, bool) {
	switch v := t.(type) {
	case Atom:
		return string(v), 0, true
	case Compound:
		return v.Functor, len(v.Args), true
	}
	return "", 0, false
}

func IsEmptyList(t Term) bool {
	switch v := t.(type) {
	case List:
		return len(v.Elems) == 0 && v.Tail == nil
	case Atom:
		return v == "[]"
	}
	return false
}

// Equal reports structural equality. Variables are equal when their names are.
func Equal(a, b Term) bool {
	if IsEmptyList(a) || IsEmptyList(b) {
		return IsEmptyList(a) && IsEmptyList(b)
	}
	switch x := a.(type) {
	case Atom:
		y, ok := b.(Atom)
		return ok && x == y
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case BigInt:
			return y.Int != nil && y.IsInt64() && y.Int64() == int64(x)
		}
		return false
	case BigInt:
		switch y := b.(type) {
		case BigInt:
			return x.Int != nil && y.Int != nil && x.Cmp(y.Int) == 0
		case Int:
			return Equal(y, x)
		}
		return false
	case Float:
		y, ok := b.(Float)
		return ok && x == y
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case Var:
		y, ok := b.(Var)
		return ok && x == y
	case Compound:
		y, ok := b.(Compound)
		if !ok || x.Functor != y.Functor || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case List:
		y, ok := b.(List)
		if !ok {
			return false
		}
		xe, xt := x.flatten()
		ye, yt := y.flatten()
		if len(xe) != len(ye) {
			return false
		}
		for i := range xe {
			if !Equal(xe[i], ye[i]) {
				return false
			}
		}
		if xt == nil || yt == nil {
			return xt == nil && yt == nil
		}
		return Equal(xt, yt)
	}
	return false
}

// flatten merges nested list tails so [a|[b]] and [a,b] compare equal.
func (l List) flatten() ([]Term, Term) {
	elems := slices.Clone(l.Elems)
	tail := l.Tail
	for {
		next, ok := tail.(List)
		if !ok {
			break
		}
		elems = append(elems, next.Elems...)
		tail = next.Tail
	}
	if IsEmptyList(tail) {
		tail = nil
	}
	return elems, tail
}

// Vars returns the distinct named variables of t in first-occurrence order.
// Anonymous "_" variables are skipped.
func Vars(t Term) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Term)
	walk = func(t Term) {
		switch v := t.(type) {
		case Var:
			if v != "_" && !seen[string(v)] {
				seen[string(v)] = true
				out = append(out, string(v))
			}
		case Compound:
			for _, a := range v.Args {
				walk(a)
			}
		case List:
			for _, e := range v.Elems {
				walk(e)
			}
			if v.Tail != nil {
				walk(v.Tail)
			}
		}
	}
	walk(t)
	return out
}

// Conjuncts flattens a ','/2 tree into its goals.
func Conjuncts(t Term) []Term {
	c, ok := t.(Compound)
	if !ok || c.Functor != "," || len(c.Args) != 2 {
		return []Term{t}
	}
	return append(Conjuncts(c.Args[0]), Conjuncts(c.Args[1])...)
}

// Conjunction is the inverse of Conjuncts. An empty slice is "true".
func Conjunction(goals []Term) Term {
	switch len(goals) {
	case 0:
		return Atom("true")
	case 1:
		return goals[0]
	}
	return Compound{Functor: ",", Args: []Term{goals[0], Conjunction(goals[1:])}}
}
