package diagnose

import (
	"context"
	"errors"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"prolog4go/graph"
)

var ErrTooManyLoops = errors.New("too many marco iterations")

const DefaultMaxLoops = 1000

type IntSet mapset.Set[int]

func NewIntSet(vals ...int) IntSet {
	return IntSet(mapset.NewSet[int](vals...))
}

// Sorted returns the members of s in increasing order.
func Sorted(s IntSet) []int {
	out := s.ToSlice()
	sort.Ints(out)
	return out
}

// SatFunc reports whether the given rules are satisfiable together.
type SatFunc func(ctx context.Context, rules []int) (bool, error)

// Conflict is one group of overlapping minimal unsatisfiable subsets,
// together with the correction sets restricted to the rules involved.
type Conflict struct {
	MCSs          []IntSet
	MSSs          []IntSet
	MUSs          []IntSet
	CriticalNodes []int
}

// Marco enumerates the minimal unsatisfiable subsets (MUS) and maximal
// satisfiable subsets (MSS) of Rules. The solver proposes seeds that are
// neither below a known MUS's supersets nor above a known MSS.
type Marco struct {
	Rules       IntSet
	MUSs        []IntSet
	MSSs        []IntSet
	MaxLoop     int
	LoopCounter int
	SatFunc     SatFunc
	Solver      Solver
	Log         *zap.Logger
}

func NewMarco(rules []int, satFunc SatFunc) *Marco {
	return &Marco{
		Rules:   NewIntSet(rules...),
		MUSs:    []IntSet{},
		MSSs:    []IntSet{},
		MaxLoop: DefaultMaxLoops,
		SatFunc: satFunc,
		Solver:  NewMaxsatSolver(NewIntSet(rules...)),
		Log:     zap.NewNop(),
	}
}

func (m *Marco) Grow(ctx context.Context, seed IntSet) (IntSet, error) {
	for _, elem := range Sorted(m.Rules.Difference(seed)) {
		newSet := seed.Clone()
		newSet.Add(elem)
		ok, err := m.Sat(ctx, newSet)
		if err != nil {
			return nil, err
		}
		if ok {
			seed.Add(elem)
		}
	}
	return seed, nil
}

func (m *Marco) Shrink(ctx context.Context, seed IntSet) (IntSet, error) {
	for _, elem := range Sorted(seed) {
		newSet := seed.Difference(NewIntSet(elem))
		ok, err := m.Sat(ctx, newSet)
		if err != nil {
			return nil, err
		}
		if !ok {
			seed.Remove(elem)
		}
	}
	return seed, nil
}

func (m *Marco) Sat(ctx context.Context, rules IntSet) (bool, error) {
	return m.SatFunc(ctx, Sorted(rules))
}

// Run enumerates seeds until the solver has covered every subset. A solver
// that cannot decide, or a cancelled ctx, ends the run with an error.
func (m *Marco) Run(ctx context.Context) error {
	for {
		seed, ok, err := m.Solver.Seed(ctx)
		if err != nil {
			return fmt.Errorf("seed %d: %w", m.LoopCounter, err)
		}
		if !ok {
			return nil
		}
		if m.LoopCounter >= m.MaxLoop {
			return fmt.Errorf("%w (%d)", ErrTooManyLoops, m.MaxLoop)
		}

		sat, err := m.Sat(ctx, seed)
		if err != nil {
			return err
		}
		if sat {
			mss, err := m.Grow(ctx, seed)
			if err != nil {
				return err
			}
			m.MSSs = append(m.MSSs, mss)
			m.Log.Debug("found MSS", zap.Ints("rules", Sorted(mss)))
			m.Solver.BlockDown(mss)
		} else {
			mus, err := m.Shrink(ctx, seed)
			if err != nil {
				return err
			}
			m.MUSs = append(m.MUSs, mus)
			m.Log.Debug("found MUS", zap.Ints("rules", Sorted(mus)))
			m.Solver.BlockUp(mus)
		}
		m.LoopCounter++
	}
}

func combinations(input []int) [][]int {
	var results [][]int
	for i := 0; i < len(input); i++ {
		for j := i + 1; j < len(input); j++ {
			results = append(results, []int{input[i], input[j]})
		}
	}
	return results
}

// Analysis groups the MUSs found by Run into conflicts: two MUSs belong to
// the same conflict when they share a rule, directly or through others.
func (m *Marco) Analysis() []Conflict {
	mcss := make([]IntSet, 0, len(m.MSSs))
	for _, mss := range m.MSSs {
		mcss = append(mcss, m.Rules.Difference(mss))
	}

	musIndexList := make([]int, len(m.MUSs))
	for i := range musIndexList {
		musIndexList[i] = i
	}
	musGraph := graph.NewGraph(len(musIndexList))
	for _, combination := range combinations(musIndexList) {
		index1, index2 := combination[0], combination[1]
		if !m.MUSs[index1].Intersect(m.MUSs[index2]).IsEmpty() {
			musGraph.AddEdge(index1, index2)
		}
	}

	conflicts := make([]Conflict, 0)
	for _, component := range musGraph.Components() {
		musList := make([]IntSet, 0, len(component))
		for _, musID := range component {
			musList = append(musList, m.MUSs[musID])
		}

		criticalNodes := NewIntSet()
		for _, mus := range musList {
			criticalNodes = criticalNodes.Union(mus)
		}
		mcsList := make([]IntSet, 0)
		for _, mcs := range mcss {
			reduced := mcs.Intersect(criticalNodes)
			if reduced.IsEmpty() {
				continue
			}
			exist := false
			for _, included := range mcsList {
				if reduced.Equal(included) {
					exist = true
					break
				}
			}
			if !exist {
				mcsList = append(mcsList, reduced)
			}
		}

		mssList := make([]IntSet, 0, len(mcsList))
		for _, mcs := range mcsList {
			mssList = append(mssList, criticalNodes.Difference(mcs))
		}

		conflicts = append(conflicts, Conflict{
			MCSs:          mcsList,
			MSSs:          mssList,
			MUSs:          musList,
			CriticalNodes: Sorted(criticalNodes),
		})
	}
	return conflicts
}
