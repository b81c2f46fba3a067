// Package conversion maps Go values to terms and back.
//
// A Policy keeps two ordered registries of converters. Lookup scans each
// registry from the most recently added entry to the oldest and uses the
// first entry whose pattern matches, so later registrations override the
// defaults installed by NewPolicy.
package conversion

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"prolog4go/term"
)

var ErrNoConverter = errors.New("no converter")

// ObjectConverter turns a Go value into a term. The policy is passed so
// converters of containers can convert their elements.
type ObjectConverter func(p *Policy, v any) (term.Term, error)

// TermConverter turns a term into a value assignable to target.
// target is never nil; it is the interface type any when the caller has no
// preference.
type TermConverter func(p *Policy, t term.Term, target reflect.Type) (any, error)

// Pattern selects the runtime types a converter applies to.
type Pattern interface {
	Match(reflect.Type) bool
	String() string
}

type assignable struct {
	to reflect.Type
}

func (a assignable) Match(t reflect.Type) bool { return t != nil && t.AssignableTo(a.to) }
func (a assignable) String() string            { return a.to.String() }

// TypeOf matches types assignable to T. For an interface T this matches all
// implementers.
func TypeOf[T any]() Pattern {
	return assignable{to: reflect.TypeOf((*T)(nil)).Elem()}
}

// Type matches types assignable to t.
func Type(t reflect.Type) Pattern {
	return assignable{to: t}
}

type kinds []reflect.Kind

func (k kinds) Match(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for _, kind := range k {
		if t.Kind() == kind {
			return true
		}
	}
	return false
}

func (k kinds) String() string { return fmt.Sprintf("kinds%v", []reflect.Kind(k)) }

// Kind matches any type of the given kinds, named or not.
func Kind(ks ...reflect.Kind) Pattern {
	return kinds(ks)
}

type objectEntry struct {
	pattern Pattern
	conv    ObjectConverter
}

type termEntry struct {
	pattern Pattern
	result  Pattern
	conv    TermConverter
}

type Policy struct {
	mu      sync.RWMutex
	objects []objectEntry
	terms   []termEntry
}

// NewEmptyPolicy returns a policy without any converters.
func NewEmptyPolicy() *Policy {
	return &Policy{}
}

// NewPolicy returns a policy with the default converters installed.
func NewPolicy() *Policy {
	p := &Policy{}
	installDefaults(p)
	return p
}

// AddObjectConverter registers conv for Go values matching pattern.
func (p *Policy) AddObjectConverter(pattern Pattern, conv ObjectConverter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects = append(p.objects, objectEntry{pattern: pattern, conv: conv})
}

// AddTermConverter registers conv for terms matching pattern. result
// describes the Go types conv can produce; the entry is only used when a
// caller's target type is satisfied by result.
func (p *Policy) AddTermConverter(pattern, result Pattern, conv TermConverter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terms = append(p.terms, termEntry{pattern: pattern, result: result, conv: conv})
}

// AddObject registers a typed object converter for values assignable to T.
func AddObject[T any](p *Policy, conv func(p *Policy, v T) (term.Term, error)) {
	p.AddObjectConverter(TypeOf[T](), func(p *Policy, v any) (term.Term, error) {
		return conv(p, v.(T))
	})
}

// AddTerm registers a typed converter from terms of type K to Go values of type T.
func AddTerm[K term.Term, T any](p *Policy, conv func(p *Policy, t K) (T, error)) {
	p.AddTermConverter(TypeOf[K](), exact{reflect.TypeOf((*T)(nil)).Elem()},
		func(p *Policy, t term.Term, _ reflect.Type) (any, error) {
			return conv(p, t.(K))
		})
}

// exact produces values of exactly one type.
type exact struct {
	t reflect.Type
}

func (e exact) Match(target reflect.Type) bool { return e.t.AssignableTo(target) }
func (e exact) String() string                 { return e.t.String() }

func (p *Policy) objectConverter(t reflect.Type) (ObjectConverter, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := len(p.objects) - 1; i >= 0; i-- {
		if p.objects[i].pattern.Match(t) {
			return p.objects[i].conv, true
		}
	}
	return nil, false
}

// ConvertObject converts v using the most recently registered matching
// converter. A nil v becomes the anonymous variable.
func (p *Policy) ConvertObject(v any) (term.Term, error) {
	if v == nil {
		return term.Var("_"), nil
	}
	conv, ok := p.objectConverter(reflect.TypeOf(v))
	if !ok {
		return nil, fmt.Errorf("%w for Go type %T", ErrNoConverter, v)
	}
	return conv(p, v)
}

// ConvertTerm converts t into a value assignable to target. A nil target
// means any.
func (p *Policy) ConvertTerm(t term.Term, target reflect.Type) (any, error) {
	if t == nil {
		return nil, fmt.Errorf("%w for nil term", ErrNoConverter)
	}
	if target == nil {
		target = anyType
	}
	tt := reflect.TypeOf(t)
	p.mu.RLock()
	entries := p.terms
	p.mu.RUnlock()
	var lastErr error
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if !e.pattern.Match(tt) || !e.result.Match(target) {
			continue
		}
		v, err := e.conv(p, t, target)
		if errors.Is(err, ErrNoConverter) {
			// the converter declined this particular term; keep looking
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w from %s to %s", ErrNoConverter, term.Format(t), target)
}

// Convert converts t into a T.
func Convert[T any](p *Policy, t term.Term) (T, error) {
	var zero T
	target := reflect.TypeOf((*T)(nil)).Elem()
	v, err := p.ConvertTerm(t, target)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		rv := reflect.ValueOf(v)
		if !rv.Type().ConvertibleTo(target) {
			return zero, fmt.Errorf("%w: %T is not %s", ErrNoConverter, v, target)
		}
		out = rv.Convert(target).Interface().(T)
	}
	return out, nil
}

// ConvertInto stores the conversion of t in the variable dest points to.
func (p *Policy) ConvertInto(t term.Term, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("conversion: destination must be a non-nil pointer, got %T", dest)
	}
	elem := rv.Elem()
	v, err := p.ConvertTerm(t, elem.Type())
	if err != nil {
		return err
	}
	if v == nil {
		elem.Set(reflect.Zero(elem.Type()))
		return nil
	}
	val := reflect.ValueOf(v)
	if !val.Type().AssignableTo(elem.Type()) {
		if !val.Type().ConvertibleTo(elem.Type()) {
			return fmt.Errorf("%w: %T is not %s", ErrNoConverter, v, elem.Type())
		}
		val = val.Convert(elem.Type())
	}
	elem.Set(val)
	return nil
}

// Clone returns an independent copy, so provers can customise their policy
// without affecting each other.
func (p *Policy) Clone() *Policy {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return &Policy{
		objects: append([]objectEntry(nil), p.objects...),
		terms:   append([]termEntry(nil), p.terms...),
	}
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()
