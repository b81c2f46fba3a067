package conversion

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"

	"prolog4go/term"
)

// Termer is implemented by Go types that know their own term form.
type Termer interface {
	PrologTerm() (term.Term, error)
}

type targets struct {
	name  string
	match func(reflect.Type) bool
}

func (t targets) Match(target reflect.Type) bool { return t.match(target) }
func (t targets) String() string                 { return t.name }

func anyOr(ks ...reflect.Kind) Pattern {
	return targets{
		name: fmt.Sprintf("any|%v", ks),
		match: func(t reflect.Type) bool {
			if t == anyType {
				return true
			}
			for _, k := range ks {
				if t.Kind() == k {
					return true
				}
			}
			return false
		},
	}
}

var (
	intKinds   = []reflect.Kind{reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64}
	uintKinds  = []reflect.Kind{reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr}
	floatKinds = []reflect.Kind{reflect.Float32, reflect.Float64}
	termType   = reflect.TypeOf((*term.Term)(nil)).Elem()
	bigIntType = reflect.TypeOf((*big.Int)(nil))
)

func numericKinds() []reflect.Kind {
	out := append([]reflect.Kind{}, intKinds...)
	out = append(out, uintKinds...)
	return append(out, floatKinds...)
}

func installDefaults(p *Policy) {
	installTermDefaults(p)
	installObjectDefaults(p)
}

func installObjectDefaults(p *Policy) {
	p.AddObjectConverter(Kind(reflect.Slice, reflect.Array), sliceToList)
	p.AddObjectConverter(Kind(reflect.Map), mapToPairs)
	p.AddObjectConverter(Kind(reflect.Pointer), func(p *Policy, v any) (term.Term, error) {
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return term.Var("_"), nil
		}
		return p.ConvertObject(rv.Elem().Interface())
	})
	p.AddObjectConverter(Kind(reflect.Bool), func(_ *Policy, v any) (term.Term, error) {
		if reflect.ValueOf(v).Bool() {
			return term.Atom("true"), nil
		}
		return term.Atom("false"), nil
	})
	p.AddObjectConverter(Kind(intKinds...), func(_ *Policy, v any) (term.Term, error) {
		return term.Int(reflect.ValueOf(v).Int()), nil
	})
	p.AddObjectConverter(Kind(uintKinds...), func(_ *Policy, v any) (term.Term, error) {
		n := reflect.ValueOf(v).Uint()
		if n > math.MaxInt64 {
			return term.MakeInt(new(big.Int).SetUint64(n)), nil
		}
		return term.Int(int64(n)), nil
	})
	p.AddObjectConverter(Kind(floatKinds...), func(_ *Policy, v any) (term.Term, error) {
		return term.Float(reflect.ValueOf(v).Float()), nil
	})
	p.AddObjectConverter(Kind(reflect.String), func(_ *Policy, v any) (term.Term, error) {
		return term.Atom(reflect.ValueOf(v).String()), nil
	})
	AddObject(p, func(_ *Policy, v *big.Int) (term.Term, error) {
		if v == nil {
			return term.Var("_"), nil
		}
		return term.MakeInt(v), nil
	})
	AddObject(p, func(_ *Policy, v Termer) (term.Term, error) {
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return term.Var("_"), nil
		}
		return v.PrologTerm()
	})
	// terms pass through untouched; registered last so term.Atom does not
	// fall into the string kind converter
	AddObject(p, func(_ *Policy, v term.Term) (term.Term, error) {
		return v, nil
	})
}

func sliceToList(p *Policy, v any) (term.Term, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.IsNil() {
		return term.List{}, nil
	}
	elems := make([]term.Term, rv.Len())
	for i := range elems {
		t, err := p.ConvertObject(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elems[i] = t
	}
	return term.List{Elems: elems}, nil
}

// mapToPairs writes map[string]V as a key-sorted list of Key-Value pairs,
// the shape keysort/2 and pairs_keys_values/3 expect.
func mapToPairs(p *Policy, v any) (term.Term, error) {
	rv := reflect.ValueOf(v)
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("%w for map key type %s", ErrNoConverter, rv.Type().Key())
	}
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	elems := make([]term.Term, len(keys))
	for i, k := range keys {
		val, err := p.ConvertObject(rv.MapIndex(k).Interface())
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k.String(), err)
		}
		elems[i] = term.Compound{Functor: "-", Args: []term.Term{term.Atom(k.String()), val}}
	}
	return term.List{Elems: elems}, nil
}

func installTermDefaults(p *Policy) {
	p.AddTermConverter(TypeOf[term.Term](), targets{
		name:  "term",
		match: func(t reflect.Type) bool { return termType.AssignableTo(t) || t.Implements(termType) },
	}, func(_ *Policy, t term.Term, target reflect.Type) (any, error) {
		if !reflect.TypeOf(t).AssignableTo(target) {
			return nil, fmt.Errorf("%w from %s to %s", ErrNoConverter, term.Format(t), target)
		}
		return t, nil
	})
	p.AddTermConverter(TypeOf[term.Int](), anyOr(numericKinds()...), intToNumber)
	p.AddTermConverter(TypeOf[term.BigInt](), targets{
		name: "any|*big.Int|ints",
		match: func(t reflect.Type) bool {
			return t == anyType || t == bigIntType || kinds(intKinds).Match(t) || kinds(uintKinds).Match(t)
		},
	}, bigToNumber)
	p.AddTermConverter(TypeOf[term.Float](), anyOr(floatKinds...), func(_ *Policy, t term.Term, target reflect.Type) (any, error) {
		return numberAs(float64(t.(term.Float)), target)
	})
	p.AddTermConverter(TypeOf[term.Atom](), anyOr(reflect.String), func(_ *Policy, t term.Term, target reflect.Type) (any, error) {
		return stringAs(string(t.(term.Atom)), target), nil
	})
	p.AddTermConverter(TypeOf[term.Atom](), Kind(reflect.Bool), func(_ *Policy, t term.Term, _ reflect.Type) (any, error) {
		switch t.(term.Atom) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%w from atom %s to bool", ErrNoConverter, term.Format(t))
	})
	p.AddTermConverter(TypeOf[term.Str](), anyOr(reflect.String), func(_ *Policy, t term.Term, target reflect.Type) (any, error) {
		return stringAs(string(t.(term.Str)), target), nil
	})
	p.AddTermConverter(TypeOf[term.List](), anyOr(reflect.Slice, reflect.Array), listToSlice)
	p.AddTermConverter(TypeOf[term.List](), Kind(reflect.Map), pairsToMap)
}

func intToNumber(_ *Policy, t term.Term, target reflect.Type) (any, error) {
	n := int64(t.(term.Int))
	if target == anyType {
		return n, nil
	}
	out := reflect.New(target).Elem()
	switch {
	case kinds(intKinds).Match(target):
		if out.OverflowInt(n) {
			return nil, fmt.Errorf("conversion: %d overflows %s", n, target)
		}
		out.SetInt(n)
	case kinds(uintKinds).Match(target):
		if n < 0 || out.OverflowUint(uint64(n)) {
			return nil, fmt.Errorf("conversion: %d overflows %s", n, target)
		}
		out.SetUint(uint64(n))
	default:
		out.SetFloat(float64(n))
	}
	return out.Interface(), nil
}

func bigToNumber(p *Policy, t term.Term, target reflect.Type) (any, error) {
	b := t.(term.BigInt)
	if target == anyType || target == bigIntType {
		return new(big.Int).Set(b.Int), nil
	}
	if b.IsInt64() {
		return intToNumber(p, term.Int(b.Int64()), target)
	}
	if kinds(uintKinds).Match(target) && b.IsUint64() {
		out := reflect.New(target).Elem()
		if out.OverflowUint(b.Uint64()) {
			return nil, fmt.Errorf("conversion: %s overflows %s", b.String(), target)
		}
		out.SetUint(b.Uint64())
		return out.Interface(), nil
	}
	return nil, fmt.Errorf("conversion: %s overflows %s", b.String(), target)
}

func numberAs(f float64, target reflect.Type) (any, error) {
	if target == anyType {
		return f, nil
	}
	out := reflect.New(target).Elem()
	if out.OverflowFloat(f) {
		return nil, fmt.Errorf("conversion: %g overflows %s", f, target)
	}
	out.SetFloat(f)
	return out.Interface(), nil
}

func stringAs(s string, target reflect.Type) any {
	if target == anyType {
		return s
	}
	out := reflect.New(target).Elem()
	out.SetString(s)
	return out.Interface()
}

func listToSlice(p *Policy, t term.Term, target reflect.Type) (any, error) {
	l := t.(term.List)
	if l.Tail != nil {
		return nil, fmt.Errorf("%w for partial list %s", ErrNoConverter, term.Format(l))
	}
	elemType := anyType
	if target != anyType {
		elemType = target.Elem()
	}
	var out reflect.Value
	switch {
	case target == anyType:
		out = reflect.MakeSlice(reflect.TypeOf([]any(nil)), len(l.Elems), len(l.Elems))
	case target.Kind() == reflect.Array:
		if target.Len() != len(l.Elems) {
			return nil, fmt.Errorf("conversion: list of %d elements does not fit %s", len(l.Elems), target)
		}
		out = reflect.New(target).Elem()
	default:
		out = reflect.MakeSlice(target, len(l.Elems), len(l.Elems))
	}
	for i, e := range l.Elems {
		v, err := p.ConvertTerm(e, elemType)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if err := setValue(out.Index(i), v); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out.Interface(), nil
}

func pairsToMap(p *Policy, t term.Term, target reflect.Type) (any, error) {
	l := t.(term.List)
	if target.Key().Kind() != reflect.String || l.Tail != nil {
		return nil, fmt.Errorf("%w from %s to %s", ErrNoConverter, term.Format(t), target)
	}
	out := reflect.MakeMapWithSize(target, len(l.Elems))
	for _, e := range l.Elems {
		pair, ok := e.(term.Compound)
		if !ok || len(pair.Args) != 2 || (pair.Functor != "-" && pair.Functor != "=") {
			return nil, fmt.Errorf("%w: %s is not a Key-Value pair", ErrNoConverter, term.Format(e))
		}
		k, err := p.ConvertTerm(pair.Args[0], target.Key())
		if err != nil {
			return nil, err
		}
		v, err := p.ConvertTerm(pair.Args[1], target.Elem())
		if err != nil {
			return nil, err
		}
		key := reflect.New(target.Key()).Elem()
		if err := setValue(key, k); err != nil {
			return nil, err
		}
		val := reflect.New(target.Elem()).Elem()
		if err := setValue(val, v); err != nil {
			return nil, err
		}
		out.SetMapIndex(key, val)
	}
	return out.Interface(), nil
}

func setValue(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	val := reflect.ValueOf(v)
	switch {
	case val.Type().AssignableTo(dst.Type()):
		dst.Set(val)
	case val.Type().ConvertibleTo(dst.Type()):
		dst.Set(val.Convert(dst.Type()))
	default:
		return fmt.Errorf("%w: %T is not %s", ErrNoConverter, v, dst.Type())
	}
	return nil
}
