package term

import (
	"fmt"
	"math/big"
)

type opKind int

const (
	xfx opKind = iota
	xfy
	yfx
	fy
	fx
)

type opDef struct {
	priority int
	kind     opKind
}

// argMax returns the highest priority allowed for the left and right operands.
func (d opDef) argMax() (int, int) {
	switch d.kind {
	case xfy:
		return d.priority - 1, d.priority
	case yfx:
		return d.priority, d.priority - 1
	case fy:
		return 0, d.priority
	}
	return d.priority - 1, d.priority - 1
}

var infixOps = map[string]opDef{
	":-":  {1200, xfx},
	"-->": {1200, xfx},
	";":   {1100, xfy},
	"|":   {1100, xfy},
	"->":  {1050, xfy},
	"*->": {1050, xfy},
	",":   {1000, xfy},
	"=":   {700, xfx},
	`\=`:  {700, xfx},
	"==":  {700, xfx},
	`\==`: {700, xfx},
	"@<":  {700, xfx},
	"@>":  {700, xfx},
	"@=<": {700, xfx},
	"@>=": {700, xfx},
	"=..": {700, xfx},
	"is":  {700, xfx},
	"=:=": {700, xfx},
	`=\=`: {700, xfx},
	"<":   {700, xfx},
	">":   {700, xfx},
	"=<":  {700, xfx},
	">=":  {700, xfx},
	":":   {200, xfy},
	"+":   {500, yfx},
	"-":   {500, yfx},
	`/\`:  {500, yfx},
	`\/`:  {500, yfx},
	"xor": {500, yfx},
	"*":   {400, yfx},
	"/":   {400, yfx},
	"//":  {400, yfx},
	"rem": {400, yfx},
	"mod": {400, yfx},
	"div": {400, yfx},
	"<<":  {400, yfx},
	">>":  {400, yfx},
	"**":  {200, xfx},
	"^":   {200, xfy},
}

var prefixOps = map[string]opDef{
	":-":  {1200, fx},
	"?-":  {1200, fx},
	`\+`:  {900, fy},
	"-":   {200, fy},
	"+":   {200, fy},
	`\`:   {200, fy},
}

func isOperator(name string) bool {
	_, infix := infixOps[name]
	_, prefix := prefixOps[name]
	return infix || prefix
}

// token is one operand or operator symbol of a flat term sequence.
// Unquoted words carry both a term and an operator name. start and end are
// byte offsets in the source.
type token struct {
	t      Term
	op     string
	number bool
	paren  bool
	start  int
	end    int
}

func (tk token) describe() string {
	if tk.t != nil {
		return Format(tk.t)
	}
	return tk.op
}

type reader struct {
	toks []token
	pos  int
}

func resolve(toks []token, max int) (Term, error) {
	r := &reader{toks: toks}
	t, _, err := r.parse(max)
	if err != nil {
		return nil, err
	}
	if r.pos < len(r.toks) {
		return nil, fmt.Errorf("%w: unexpected %s", ErrSyntax, r.toks[r.pos].describe())
	}
	return t, nil
}

func (r *reader) parse(max int) (Term, int, error) {
	left, prec, err := r.parsePrefix(max)
	if err != nil {
		return nil, 0, err
	}
	return r.parseInfix(left, prec, max)
}

func (r *reader) parsePrefix(max int) (Term, int, error) {
	if r.pos >= len(r.toks) {
		return nil, 0, fmt.Errorf("%w: unexpected end of term", ErrSyntax)
	}
	tk := r.toks[r.pos]
	r.pos++
	if tk.t != nil {
		if tk.op == "" {
			return tk.t, 0, nil
		}
		if def, ok := prefixOps[tk.op]; ok && def.priority <= max && r.startsOperand() {
			return r.prefix(tk.op, def)
		}
		return tk.t, 0, nil
	}
	// a sign is part of the number only when nothing separates them
	if (tk.op == "-" || tk.op == "+") && r.pos < len(r.toks) && r.toks[r.pos].number && tk.end == r.toks[r.pos].start {
		n := r.toks[r.pos].t
		r.pos++
		if tk.op == "-" {
			return negate(n), 0, nil
		}
		return n, 0, nil
	}
	if def, ok := prefixOps[tk.op]; ok && def.priority <= max && r.startsOperand() {
		return r.prefix(tk.op, def)
	}
	// an operator standing alone is an atom
	return Atom(tk.op), 0, nil
}

func (r *reader) prefix(name string, def opDef) (Term, int, error) {
	_, argMax := def.argMax()
	if def.kind == fx {
		argMax = def.priority - 1
	}
	arg, _, err := r.parse(argMax)
	if err != nil {
		return nil, 0, err
	}
	return Compound{Functor: name, Args: []Term{arg}}, def.priority, nil
}

// startsOperand reports whether the next token can begin an operand.
func (r *reader) startsOperand() bool {
	if r.pos >= len(r.toks) {
		return false
	}
	next := r.toks[r.pos]
	if next.t != nil {
		if next.op == "" {
			return true
		}
		_, infix := infixOps[next.op]
		return !infix
	}
	if _, ok := prefixOps[next.op]; ok {
		return true
	}
	_, infix := infixOps[next.op]
	return !infix
}

func (r *reader) parseInfix(left Term, leftPrec, max int) (Term, int, error) {
	for r.pos < len(r.toks) {
		tk := r.toks[r.pos]
		name := tk.op
		var split Term
		if name == "" {
			// 1-(2+3) is read by the grammar as 1 followed by '-'(2+3)
			c, ok := tk.t.(Compound)
			if !ok || tk.paren || len(c.Args) != 1 {
				break
			}
			name, split = c.Functor, c.Args[0]
		}
		def, ok := infixOps[name]
		if !ok {
			break
		}
		lmax, rmax := def.argMax()
		if def.priority > max || leftPrec > lmax {
			break
		}
		r.pos++
		var (
			right Term
			err   error
		)
		if split != nil {
			right, _, err = r.parseInfix(split, 0, rmax)
		} else {
			right, _, err = r.parse(rmax)
		}
		if err != nil {
			return nil, 0, err
		}
		left = Compound{Functor: name, Args: []Term{left, right}}
		leftPrec = def.priority
	}
	return left, leftPrec, nil
}

func negate(t Term) Term {
	switch n := t.(type) {
	case Int:
		if n == -n && n != 0 {
			return MakeInt(new(big.Int).Neg(big.NewInt(int64(n))))
		}
		return -n
	case BigInt:
		return MakeInt(new(big.Int).Neg(n.Int))
	case Float:
		return -n
	}
	return t
}
