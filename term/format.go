package term

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	plainAtom  = regexp.MustCompile(`^[\p{Ll}\p{Lo}\p{Lm}][\p{Lu}\p{Ll}\p{Lo}\p{Lm}0-9_]*$`)
	symbolAtom = regexp.MustCompile(`^[-+*/\\^<>=~:.?@#&$]+$`)
)

// Format writes t in canonical Prolog syntax: operators in functional
// notation, symbolic and irregular atoms quoted. The result parses back to
// an equal term in any ISO engine.
func Format(t Term) string {
	var sb strings.Builder
	write(&sb, t)
	return sb.String()
}

func write(sb *strings.Builder, t Term) {
	switch v := t.(type) {
	case nil:
		sb.WriteString("_")
	case Atom:
		sb.WriteString(QuoteAtom(string(v)))
	case Int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case BigInt:
		if v.Int == nil {
			sb.WriteString("0")
			return
		}
		sb.WriteString(v.Int.String())
	case Float:
		sb.WriteString(formatFloat(float64(v)))
	case Str:
		sb.WriteString(quote(string(v), '"'))
	case Var:
		sb.WriteString(string(v))
	case Compound:
		if len(v.Args) == 0 {
			sb.WriteString(QuoteAtom(v.Functor))
			return
		}
		if v.Functor == "{}" && len(v.Args) == 1 {
			sb.WriteByte('{')
			write(sb, v.Args[0])
			sb.WriteByte('}')
			return
		}
		if plainAtom.MatchString(v.Functor) {
			sb.WriteString(v.Functor)
		} else {
			sb.WriteString(quote(v.Functor, '\''))
		}
		sb.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			write(sb, a)
		}
		sb.WriteByte(')')
	case List:
		elems, tail := v.flatten()
		sb.WriteByte('[')
		for i, e := range elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			write(sb, e)
		}
		if tail != nil {
			sb.WriteByte('|')
			write(sb, tail)
		}
		sb.WriteByte(']')
	}
}

// QuoteAtom returns name as it must appear in source text.
func QuoteAtom(name string) string {
	switch {
	case name == "[]", name == "!", name == ";", name == "{}":
		return name
	case plainAtom.MatchString(name):
		return name
	}
	return quote(name, '\'')
}

func quote(s string, q byte) string {
	var sb strings.Builder
	sb.WriteByte(q)
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r == rune(q) {
				sb.WriteByte('\\')
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte(q)
	return sb.String()
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".") {
		return s
	}
	// Prolog floats need a fraction: 1e+20 -> 1.0e+20, 3 -> 3.0
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + ".0" + s[i:]
	}
	return s + ".0"
}
