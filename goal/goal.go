// Package goal rewrites goal text with placeholder markers into plain
// Prolog text.
//
// "?" is an anonymous placeholder and "?Name" a named one. Each anonymous
// occurrence and each distinct named placeholder, in order of first
// occurrence, takes one argument. A nil argument leaves a named placeholder
// as the variable Name, which the caller can then read from the solution.
package goal

import (
	"errors"
	"fmt"
	"strings"

	"prolog4go/conversion"
	"prolog4go/term"
)

var (
	ErrArgCount     = errors.New("wrong number of goal arguments")
	ErrUnterminated = errors.New("unterminated quoted text in goal")
	ErrOutputName   = errors.New("placeholder cannot be an output variable")
)

type placeholder struct {
	name       string
	start, end int
	arg        int
}

type Template struct {
	text         string
	placeholders []placeholder
	named        []string
	vars         []string
	args         int
}

type Bound struct {
	// Text is the goal with every placeholder replaced, without a
	// terminating period.
	Text string
	// Outputs are the named placeholders that were passed nil.
	Outputs []string
	// Vars are the named variables of Text in order of first occurrence,
	// excluding "_"-prefixed ones.
	Vars []string
	// Default is the variable a solution reports when no variable is named.
	Default string
}

func (t *Template) Text() string    { return t.text }
func (t *Template) NumArgs() int    { return t.args }
func (t *Template) Named() []string { return append([]string(nil), t.named...) }

// Compile scans text once and records its placeholders.
func Compile(text string) (*Template, error) {
	text = stripPeriod(text)
	t := &Template{text: text}
	namedArg := make(map[string]int)
	seenVar := make(map[string]bool)
	s := scanner{src: text}
	for s.pos < len(text) {
		c := text[s.pos]
		switch {
		case c == '\'' || c == '"' || c == '`':
			if !s.skipQuoted(c) {
				return nil, fmt.Errorf("%w: %s", ErrUnterminated, text)
			}
		case c == '0' && s.peek(1) == '\'' && !isIdent(s.prev()):
			s.skipCharCode()
		case c == '%':
			s.skipLine()
		case c == '/' && s.peek(1) == '*':
			s.skipBlock()
		case c == '?' && s.placeholderAt():
			start := s.pos
			s.pos++
			name := s.ident()
			ph := placeholder{name: name, start: start, end: s.pos}
			if name == "" {
				ph.arg = t.args
				t.args++
			} else if idx, ok := namedArg[name]; ok {
				ph.arg = idx
			} else {
				ph.arg = t.args
				namedArg[name] = t.args
				t.named = append(t.named, name)
				t.args++
			}
			t.placeholders = append(t.placeholders, ph)
		case isIdentStart(c) && !isIdent(s.prev()):
			name := s.ident()
			if isVarName(name) && !seenVar[name] {
				seenVar[name] = true
				t.vars = append(t.vars, name)
			}
		default:
			s.pos++
		}
	}
	return t, nil
}

// Bind converts args with p and substitutes them into the template.
func (t *Template) Bind(p *conversion.Policy, args ...any) (*Bound, error) {
	if len(args) != t.args {
		return nil, fmt.Errorf("%w: goal %q takes %d, got %d", ErrArgCount, t.text, t.args, len(args))
	}
	rendered := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			continue
		}
		tm, err := p.ConvertObject(a)
		if err != nil {
			return nil, fmt.Errorf("goal argument %d: %w", i+1, err)
		}
		rendered[i] = term.Format(tm)
	}

	b := &Bound{}
	var sb strings.Builder
	last := 0
	outputs := make(map[string]bool)
	for _, ph := range t.placeholders {
		sb.WriteString(t.text[last:ph.start])
		last = ph.end
		if args[ph.arg] != nil {
			r := rendered[ph.arg]
			if strings.HasPrefix(r, "-") {
				// keep "a-?" from lexing as a--1
				sb.WriteByte(' ')
			}
			sb.WriteString(r)
			continue
		}
		switch {
		case ph.name == "":
			sb.WriteString("_")
		case !isVarName(ph.name):
			return nil, fmt.Errorf("%w: ?%s", ErrOutputName, ph.name)
		default:
			sb.WriteString(ph.name)
			if !outputs[ph.name] {
				outputs[ph.name] = true
				b.Outputs = append(b.Outputs, ph.name)
			}
		}
	}
	sb.WriteString(t.text[last:])
	b.Text = sb.String()

	b.Vars = mergeVars(t, outputs)
	switch {
	case len(b.Outputs) > 0:
		b.Default = b.Outputs[len(b.Outputs)-1]
	case len(b.Vars) > 0:
		b.Default = b.Vars[len(b.Vars)-1]
	}
	return b, nil
}

// mergeVars orders goal variables and output placeholders by their first
// position in the template text.
func mergeVars(t *Template, outputs map[string]bool) []string {
	type pos struct {
		name string
		at   int
	}
	var all []pos
	seen := make(map[string]bool)
	for _, ph := range t.placeholders {
		if outputs[ph.name] && !seen[ph.name] {
			seen[ph.name] = true
			all = append(all, pos{ph.name, ph.start})
		}
	}
	for _, v := range t.vars {
		if seen[v] || strings.HasPrefix(v, "_") {
			continue
		}
		seen[v] = true
		all = append(all, pos{v, firstIdent(t.text, v)})
	}
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].at < all[j-1].at; j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = p.name
	}
	return out
}

func firstIdent(text, name string) int {
	from := 0
	for {
		i := strings.Index(text[from:], name)
		if i < 0 {
			return len(text)
		}
		i += from
		end := i + len(name)
		if (i == 0 || !isIdent(text[i-1])) && (end == len(text) || !isIdent(text[end])) {
			return i
		}
		from = end
	}
}

func stripPeriod(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasSuffix(text, ".") && len(text) > 1 && !isSymbol(text[len(text)-2]) {
		return strings.TrimSpace(text[:len(text)-1])
	}
	return text
}

func isVarName(name string) bool {
	return name != "" && name != "_" && (name[0] == '_' || (name[0] >= 'A' && name[0] <= 'Z'))
}
