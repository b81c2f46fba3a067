package term

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var ErrSyntax = errors.New("syntax error")

// The grammar only groups tokens into operands and operator symbols.
// Operator priorities are resolved afterwards by resolve, which is how a
// Prolog reader works too.

type expr struct {
	Items []*item `@@+`
}

type argExpr struct {
	Items []*argItem `@@+`
}

type item struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Operand *primary `  @@`
	Op      *string  `| @( Op | "," | ";" )`
}

type argItem struct {
	Pos    lexer.Position
	EndPos lexer.Position

	Operand *primary `  @@`
	Op      *string  `| @( Op | ";" )`
}

type primary struct {
	Compound *compound `  @@`
	List     *list     `| @@`
	Curly    *curly    `| @@`
	Paren    *expr     `| "(" @@ ")"`
	Float    *string   `| @Float`
	Int      *string   `| @Int`
	Char     *string   `| @Char`
	Str      *string   `| @String`
	Var      *string   `| @Var`
	Atom     *string   `| @( Atom | QAtom | "!" )`
}

type compound struct {
	Tokens []lexer.Token

	Functor string     `@( Atom | QAtom | Op )`
	Args    []*argExpr `"(" @@ ( "," @@ )* ")"`
}

// spaced reports whether layout separates the functor from "(", which
// makes "- (1, 2)" a prefix operator applied to a parenthesised term.
func (c *compound) spaced() bool {
	if len(c.Tokens) < 2 {
		return false
	}
	f := c.Tokens[0]
	for _, tk := range c.Tokens[1:] {
		if tk.Value == "(" {
			return f.Pos.Offset+len(f.Value) != tk.Pos.Offset
		}
	}
	return false
}

type list struct {
	Elems []*argExpr `"[" ( @@ ( "," @@ )*`
	Tail  *argExpr   `( "|" @@ )? )? "]"`
}

type curly struct {
	Body *expr `"{" @@? "}"`
}

var termLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `%[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Char", Pattern: `0'(?:\\.|''|.)`},
	{Name: "Float", Pattern: `\d+\.\d+(?:[eE][-+]?\d+)?`},
	{Name: "Int", Pattern: `0x[0-9a-fA-F]+|0o[0-7]+|0b[01]+|\d+`},
	{Name: "String", Pattern: `"(?:\\.|""|[^"\\])*"`},
	{Name: "QAtom", Pattern: `'(?:\\.|''|[^'\\])*'`},
	{Name: "Var", Pattern: `[\p{Lu}_][\p{L}\p{N}_]*`},
	{Name: "Atom", Pattern: `[\p{Ll}\p{Lo}\p{Lm}][\p{L}\p{N}_]*`},
	{Name: "Op", Pattern: `[-+*/\\^<>=~:.?@#&$]+`},
	{Name: "Punct", Pattern: `[(),\[\]|{}!;]`},
})

var termParser = participle.MustBuild[expr](
	participle.Lexer(termLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// Parse reads a single term. A terminating "." is optional.
func Parse(s string) (Term, error) {
	src := trimEnd(s)
	if src == "" {
		return nil, fmt.Errorf("%w: empty input", ErrSyntax)
	}
	e, err := termParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	return e.build(1200)
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Term {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// trimEnd drops surrounding layout and the end token. A trailing space
// that is the character of 0' is kept.
func trimEnd(s string) string {
	s = trimSpace(s)
	if !strings.HasSuffix(s, ".") {
		return s
	}
	rest := s[:len(s)-1]
	if rest == "" || endsInCharCode(rest) || strings.ContainsRune(`-+*/\^<>=~:.?@#&$`, rune(rest[len(rest)-1])) {
		return s
	}
	return trimSpace(rest)
}

func trimSpace(s string) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	t := strings.TrimRightFunc(s, unicode.IsSpace)
	if len(t) < len(s) && endsInCharCode(t) {
		_, n := utf8.DecodeRuneInString(s[len(t):])
		return s[:len(t)+n]
	}
	return t
}

// endsInCharCode reports whether s ends with an unfinished 0' prefix
// rather than with a quoted atom such as 'a0'.
func endsInCharCode(s string) bool {
	if !strings.HasSuffix(s, "0'") {
		return false
	}
	if len(s) == 2 {
		return true
	}
	c := s[len(s)-3]
	return c < utf8.RuneSelf && c != '\'' && c != '_' && !('0' <= c && c <= '9') && !('a' <= c && c <= 'z') && !('A' <= c && c <= 'Z')
}

func (e *expr) build(max int) (Term, error) {
	toks := make([]token, 0, len(e.Items))
	for _, it := range e.Items {
		tk, err := itemToken(it.Operand, it.Op)
		if err != nil {
			return nil, err
		}
		tk.start, tk.end = it.Pos.Offset, it.EndPos.Offset
		toks = append(toks, tk)
	}
	return resolve(toks, max)
}

func (e *argExpr) build() (Term, error) {
	toks := make([]token, 0, len(e.Items))
	for _, it := range e.Items {
		tk, err := itemToken(it.Operand, it.Op)
		if err != nil {
			return nil, err
		}
		tk.start, tk.end = it.Pos.Offset, it.EndPos.Offset
		toks = append(toks, tk)
	}
	return resolve(toks, 999)
}

func itemToken(operand *primary, op *string) (token, error) {
	if op != nil {
		return token{op: *op}, nil
	}
	return operand.token()
}

func (p *primary) token() (token, error) {
	switch {
	case p.Compound != nil:
		args := make([]Term, len(p.Compound.Args))
		for i, a := range p.Compound.Args {
			t, err := a.build()
			if err != nil {
				return token{}, err
			}
			args[i] = t
		}
		functor, err := unquoteAtom(p.Compound.Functor)
		if err != nil {
			return token{}, err
		}
		if isOperator(functor) && len(args) > 1 && p.Compound.spaced() {
			args = []Term{Conjunction(args)}
		}
		return token{t: Compound{Functor: functor, Args: args}}, nil
	case p.List != nil:
		l := List{}
		for _, a := range p.List.Elems {
			t, err := a.build()
			if err != nil {
				return token{}, err
			}
			l.Elems = append(l.Elems, t)
		}
		if p.List.Tail != nil {
			t, err := p.List.Tail.build()
			if err != nil {
				return token{}, err
			}
			if !IsEmptyList(t) {
				l.Tail = t
			}
		}
		return token{t: l}, nil
	case p.Curly != nil:
		if p.Curly.Body == nil {
			return token{t: Atom("{}")}, nil
		}
		t, err := p.Curly.Body.build(1200)
		if err != nil {
			return token{}, err
		}
		return token{t: Compound{Functor: "{}", Args: []Term{t}}}, nil
	case p.Paren != nil:
		t, err := p.Paren.build(1200)
		if err != nil {
			return token{}, err
		}
		return token{t: t, paren: true}, nil
	case p.Float != nil:
		f, err := strconv.ParseFloat(*p.Float, 64)
		if err != nil {
			return token{}, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return token{t: Float(f), number: true}, nil
	case p.Int != nil:
		return parseInt(*p.Int)
	case p.Char != nil:
		code, err := charCode((*p.Char)[2:])
		if err != nil {
			return token{}, err
		}
		return token{t: Int(code), number: true}, nil
	case p.Str != nil:
		s, err := unquote(*p.Str, '"')
		if err != nil {
			return token{}, err
		}
		return token{t: Str(s)}, nil
	case p.Var != nil:
		return token{t: Var(*p.Var)}, nil
	case p.Atom != nil:
		name, err := unquoteAtom(*p.Atom)
		if err != nil {
			return token{}, err
		}
		if name == "[]" {
			return token{t: List{}}, nil
		}
		tk := token{t: Atom(name)}
		if !strings.HasPrefix(*p.Atom, "'") {
			// bare words like "is" and "mod" may act as operators
			tk.op = name
		}
		return tk, nil
	}
	return token{}, fmt.Errorf("%w: empty operand", ErrSyntax)
}

func parseInt(s string) (token, error) {
	if n, err := strconv.ParseInt(s, 0, 64); err == nil {
		return token{t: Int(n), number: true}, nil
	}
	b, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return token{}, fmt.Errorf("%w: bad integer %q", ErrSyntax, s)
	}
	return token{t: BigInt{b}, number: true}, nil
}

func charCode(s string) (int64, error) {
	switch s {
	case "''":
		return '\'', nil
	}
	if strings.HasPrefix(s, `\`) {
		r, err := unquote("'"+s+"'", '\'')
		if err != nil || len([]rune(r)) != 1 {
			return 0, fmt.Errorf("%w: bad character code 0'%s", ErrSyntax, s)
		}
		return int64([]rune(r)[0]), nil
	}
	return int64([]rune(s)[0]), nil
}

func unquoteAtom(s string) (string, error) {
	if strings.HasPrefix(s, "'") {
		return unquote(s, '\'')
	}
	return s, nil
}

func unquote(s string, q byte) (string, error) {
	if len(s) < 2 || s[0] != q || s[len(s)-1] != q {
		return "", fmt.Errorf("%w: bad quoted text %s", ErrSyntax, s)
	}
	body := []rune(s[1 : len(s)-1])
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		r := body[i]
		if r == rune(q) && i+1 < len(body) && body[i+1] == rune(q) {
			sb.WriteRune(r)
			i++
			continue
		}
		if r != '\\' || i+1 >= len(body) {
			sb.WriteRune(r)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'x':
			j := i + 1
			for j < len(body) && body[j] != '\\' {
				j++
			}
			n, err := strconv.ParseInt(string(body[i+1:j]), 16, 32)
			if err != nil {
				return "", fmt.Errorf("%w: bad escape in %s", ErrSyntax, s)
			}
			sb.WriteRune(rune(n))
			i = j
		case '\n':
			// line continuation
		default:
			sb.WriteRune(body[i])
		}
	}
	return sb.String(), nil
}
