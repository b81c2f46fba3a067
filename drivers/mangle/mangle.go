// Package mangle registers the "mangle" driver, backed by the Datalog engine
// github.com/google/mangle.
//
// Theory text is Mangle source. Prolog atoms are Mangle names, so the atom
// socrates is the name /socrates. A goal is evaluated by adding the rule
//
//	prolog4go_goal(/yes, V1, ..., Vn) :- Body .
//
// to the program, evaluating it to fixpoint on a fresh store and reading the
// derived rows. Only flat goals over constants and variables are supported.
package mangle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	p4g "prolog4go/prolog"
	"prolog4go/term"
)

const (
	DriverName = "mangle"
	goalPred   = "prolog4go_goal"
)

var ErrUnsupported = errors.New("not expressible in mangle")

var (
	nameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	varRe  = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)
)

func init() {
	p4g.Register(DriverName, Driver{})
}

type Driver struct{}

func (Driver) Open(_ context.Context, _ string, opts p4g.EngineOptions) (p4g.Engine, error) {
	return New(opts.Logger), nil
}

// Engine keeps the program as clauses. Consulted and asserted facts share
// one list, so both can be retracted.
type Engine struct {
	log     *zap.Logger
	clauses []ast.Clause
	decls   []ast.Decl
}

func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{log: log}
}

func (e *Engine) Consult(_ context.Context, text string) error {
	unit, err := parse.Unit(strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	clauses := append(append([]ast.Clause(nil), e.clauses...), unit.Clauses...)
	decls := append(append([]ast.Decl(nil), e.decls...), unit.Decls...)
	if _, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: clauses, Decls: decls}, nil); err != nil {
		return fmt.Errorf("analysis error: %w", err)
	}
	e.clauses, e.decls = clauses, decls
	return nil
}

func (e *Engine) Assert(_ context.Context, clause term.Term) error {
	atom, err := toAtom(clause)
	if err != nil {
		return err
	}
	for _, a := range atom.Args {
		if _, isVar := a.(ast.Variable); isVar {
			return fmt.Errorf("%w: non-ground fact %s", ErrUnsupported, term.Format(clause))
		}
	}
	e.clauses = append(e.clauses, ast.Clause{Head: atom})
	return nil
}

func (e *Engine) Retract(_ context.Context, clause term.Term) (bool, error) {
	pattern, err := toAtom(clause)
	if err != nil {
		return false, err
	}
	for i, c := range e.clauses {
		if len(c.Premises) != 0 || c.Transform != nil {
			continue
		}
		if matches(pattern, c.Head) {
			e.clauses = append(e.clauses[:i:i], e.clauses[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) Query(ctx context.Context, goal string) (p4g.Answers, error) {
	g, err := term.Parse(goal)
	if err != nil {
		return nil, err
	}
	rule, vars, err := compileGoal(g)
	if err != nil {
		return nil, err
	}
	unit, err := parse.Unit(strings.NewReader(rule))
	if err != nil {
		return nil, fmt.Errorf("goal rule %s: %w", rule, err)
	}
	clauses := append(append([]ast.Clause(nil), e.clauses...), unit.Clauses...)
	info, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: clauses, Decls: e.decls}, nil)
	if err != nil {
		return nil, fmt.Errorf("analysis error: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store := factstore.NewSimpleInMemoryStore()
	stats, err := engine.EvalProgramWithStats(info, store)
	if err != nil {
		return nil, fmt.Errorf("evaluation error: %w", err)
	}
	e.log.Debug("evaluated goal", zap.String("rule", rule), zap.Any("stats", stats))

	var atoms []ast.Atom
	sym := ast.PredicateSym{Symbol: goalPred, Arity: len(vars) + 1}
	err = store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
		atoms = append(atoms, a)
		return nil
	})
	if err != nil {
		return nil, err
	}

	type row struct {
		key      string
		bindings map[string]term.Term
	}
	sorted := make([]row, 0, len(atoms))
	for _, a := range atoms {
		r := row{bindings: make(map[string]term.Term, len(vars))}
		args := make([]term.Term, len(vars))
		for i, v := range vars {
			t, err := fromMangle(a.Args[i+1])
			if err != nil {
				return nil, err
			}
			r.bindings[v] = t
			args[i] = t
		}
		r.key = term.Format(term.NewList(args...))
		sorted = append(sorted, r)
	}
	// the store does not promise an order
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].key < sorted[j].key })
	rows := make([]map[string]term.Term, len(sorted))
	for i, r := range sorted {
		rows[i] = r.bindings
	}
	return &answers{rows: rows}, nil
}

func (e *Engine) Close() error {
	e.clauses, e.decls = nil, nil
	return nil
}

type answers struct {
	rows []map[string]term.Term
	pos  int
}

func (a *answers) Next(ctx context.Context) bool {
	if ctx.Err() != nil || a.pos >= len(a.rows) {
		return false
	}
	a.pos++
	return true
}

func (a *answers) Bindings() map[string]term.Term { return a.rows[a.pos-1] }
func (a *answers) Err() error                     { return nil }
func (a *answers) Close() error                   { return nil }

// compileGoal writes the rule deriving the answers of g. It returns the
// reported variables in head order.
func compileGoal(g term.Term) (string, []string, error) {
	names := make(map[string]string)
	var vars []string
	for _, v := range term.Vars(g) {
		names[v] = mangleVar(v, len(names))
		if !strings.HasPrefix(v, "_") {
			vars = append(vars, v)
		}
	}

	var body []string
	for _, c := range term.Conjuncts(g) {
		if c == term.Atom("true") {
			continue
		}
		lit, err := literal(c, names)
		if err != nil {
			return "", nil, err
		}
		body = append(body, lit)
	}
	if len(body) == 0 {
		return "", nil, fmt.Errorf("%w: goal %s has no literals", ErrUnsupported, term.Format(g))
	}

	head := []string{"/yes"}
	for _, v := range vars {
		head = append(head, names[v])
	}
	// "/a." would lex as one name, so the period stands apart
	rule := fmt.Sprintf("%s(%s) :- %s .", goalPred, strings.Join(head, ", "), strings.Join(body, ", "))
	return rule, vars, nil
}

var comparisons = map[string]string{
	"=":   "=",
	`\=`:  "!=",
	"<":   "<",
	"=<":  "<=",
	">":   ">",
	">=":  ">=",
	"==":  "=",
	`\==`: "!=",
}

func literal(t term.Term, names map[string]string) (string, error) {
	c, ok := t.(term.Compound)
	if !ok {
		return "", fmt.Errorf("%w: goal %s", ErrUnsupported, term.Format(t))
	}
	if c.Functor == `\+` && len(c.Args) == 1 {
		inner, err := literal(c.Args[0], names)
		if err != nil {
			return "", err
		}
		return "!" + inner, nil
	}
	if op, ok := comparisons[c.Functor]; ok && len(c.Args) == 2 {
		l, err := arg(c.Args[0], names)
		if err != nil {
			return "", err
		}
		r, err := arg(c.Args[1], names)
		if err != nil {
			return "", err
		}
		return l + " " + op + " " + r, nil
	}
	if !nameRe.MatchString(c.Functor) {
		return "", fmt.Errorf("%w: predicate %s", ErrUnsupported, c.Functor)
	}
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		s, err := arg(a, names)
		if err != nil {
			return "", err
		}
		args[i] = s
	}
	return c.Functor + "(" + strings.Join(args, ", ") + ")", nil
}

func arg(t term.Term, names map[string]string) (string, error) {
	switch v := t.(type) {
	case term.Var:
		if v == "_" {
			return "_", nil
		}
		return names[string(v)], nil
	case term.Atom:
		if !nameRe.MatchString(string(v)) {
			return "", fmt.Errorf("%w: atom %s", ErrUnsupported, term.Format(v))
		}
		return "/" + string(v), nil
	case term.Int:
		return strconv.FormatInt(int64(v), 10), nil
	case term.Float:
		s := strconv.FormatFloat(float64(v), 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s, nil
	case term.Str:
		return strconv.Quote(string(v)), nil
	}
	return "", fmt.Errorf("%w: argument %s", ErrUnsupported, term.Format(t))
}

func mangleVar(name string, n int) string {
	if varRe.MatchString(name) {
		return name
	}
	return "P4G" + strconv.Itoa(n)
}

// toAtom converts a ground or partially bound fact. Variables become Mangle
// variables so the result can serve as a retract pattern.
func toAtom(t term.Term) (ast.Atom, error) {
	name, arity, ok := term.Indicator(t)
	if !ok || arity == 0 || !nameRe.MatchString(name) {
		return ast.Atom{}, fmt.Errorf("%w: fact %s", ErrUnsupported, term.Format(t))
	}
	c := t.(term.Compound)
	args := make([]ast.BaseTerm, len(c.Args))
	for i, a := range c.Args {
		bt, err := toBaseTerm(a)
		if err != nil {
			return ast.Atom{}, err
		}
		args[i] = bt
	}
	return ast.NewAtom(name, args...), nil
}

func toBaseTerm(t term.Term) (ast.BaseTerm, error) {
	switch v := t.(type) {
	case term.Var:
		return ast.Variable{Symbol: string(v)}, nil
	case term.Atom:
		if !nameRe.MatchString(string(v)) {
			return nil, fmt.Errorf("%w: atom %s", ErrUnsupported, term.Format(v))
		}
		return ast.Name("/" + string(v))
	case term.Int:
		return ast.Number(int64(v)), nil
	case term.Float:
		return ast.Float64(float64(v)), nil
	case term.Str:
		return ast.String(string(v)), nil
	}
	return nil, fmt.Errorf("%w: argument %s", ErrUnsupported, term.Format(t))
}

func fromMangle(bt ast.BaseTerm) (term.Term, error) {
	c, ok := bt.(ast.Constant)
	if !ok {
		return nil, fmt.Errorf("%w: result %v", ErrUnsupported, bt)
	}
	switch c.Type {
	case ast.NameType:
		return term.Atom(strings.TrimPrefix(c.Symbol, "/")), nil
	case ast.StringType:
		return term.Str(c.Symbol), nil
	case ast.NumberType:
		return term.Int(c.NumValue), nil
	case ast.Float64Type:
		return term.Float(math.Float64frombits(uint64(c.NumValue))), nil
	}
	return nil, fmt.Errorf("%w: result %v", ErrUnsupported, c)
}

// matches reports whether fact is an instance of pattern.
func matches(pattern, fact ast.Atom) bool {
	if pattern.Predicate != fact.Predicate {
		return false
	}
	bound := make(map[string]ast.BaseTerm)
	for i, p := range pattern.Args {
		if v, ok := p.(ast.Variable); ok {
			if v.Symbol == "_" {
				continue
			}
			if prev, seen := bound[v.Symbol]; seen {
				if !sameConstant(prev, fact.Args[i]) {
					return false
				}
				continue
			}
			bound[v.Symbol] = fact.Args[i]
			continue
		}
		if !sameConstant(p, fact.Args[i]) {
			return false
		}
	}
	return true
}

func sameConstant(a, b ast.BaseTerm) bool {
	x, ok1 := a.(ast.Constant)
	y, ok2 := b.(ast.Constant)
	return ok1 && ok2 && x.Type == y.Type && x.Symbol == y.Symbol && x.NumValue == y.NumValue
}
