package goal

import "strings"

const symbolChars = `+-*/\^<>=~:.?@#&$`

type scanner struct {
	src string
	pos int
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func (s *scanner) prev() byte {
	if s.pos > 0 {
		return s.src[s.pos-1]
	}
	return 0
}

// placeholderAt reports whether the "?" under the cursor is a placeholder
// rather than the start of a symbolic atom such as ?= or the ?- query
// prefix. A symbol before it does not matter, so X=? and 3-? take one.
func (s *scanner) placeholderAt() bool {
	next := s.peek(1)
	if next == '-' {
		return strings.TrimSpace(s.src[:s.pos]) != ""
	}
	return !isSymbol(next)
}

// skipQuoted moves past quoted text opened by q. Doubled quotes and
// backslash escapes stay inside the text.
func (s *scanner) skipQuoted(q byte) bool {
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case q:
			if s.peek(1) == q {
				s.pos += 2
				continue
			}
			s.pos++
			return true
		}
		s.pos++
	}
	return false
}

// skipCharCode moves past 0'c, 0'\n and 0'''.
func (s *scanner) skipCharCode() {
	s.pos += 2
	switch {
	case s.peek(0) == '\\':
		s.pos += 2
	case s.peek(0) == '\'' && s.peek(1) == '\'':
		s.pos += 2
	default:
		s.pos++
	}
}

func (s *scanner) skipLine() {
	i := strings.IndexByte(s.src[s.pos:], '\n')
	if i < 0 {
		s.pos = len(s.src)
		return
	}
	s.pos += i + 1
}

func (s *scanner) skipBlock() {
	i := strings.Index(s.src[s.pos+2:], "*/")
	if i < 0 {
		s.pos = len(s.src)
		return
	}
	s.pos += i + 4
}

func (s *scanner) ident() string {
	start := s.pos
	if s.pos < len(s.src) && isIdentStart(s.src[s.pos]) {
		s.pos++
		for s.pos < len(s.src) && isIdent(s.src[s.pos]) {
			s.pos++
		}
	}
	return s.src[start:s.pos]
}

func isSymbol(c byte) bool {
	return c != 0 && strings.IndexByte(symbolChars, c) >= 0
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
