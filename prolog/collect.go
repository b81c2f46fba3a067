package prolog

import (
	mapset "github.com/deckarep/golang-set/v2"

	"prolog4go/conversion"
)

// Collect converts the binding of v in every remaining answer.
func Collect[T any](s *Solution, v string) ([]T, error) {
	var out []T
	for s.Next() {
		t, err := s.Term(v)
		if err != nil {
			return nil, err
		}
		x, err := conversion.Convert[T](s.prover.policy, t)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, s.Err()
}

// CollectSet is Collect without duplicates.
func CollectSet[T comparable](s *Solution, v string) (mapset.Set[T], error) {
	all, err := Collect[T](s, v)
	if err != nil {
		return nil, err
	}
	return mapset.NewThreadUnsafeSet(all...), nil
}

// First converts the binding of v in the first answer.
func First[T any](s *Solution, v string) (T, error) {
	var zero T
	t, err := s.Term(v)
	if err != nil {
		return zero, err
	}
	return conversion.Convert[T](s.prover.policy, t)
}
