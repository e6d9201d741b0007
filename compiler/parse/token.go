package parse

import (
	"context"
	"strconv"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

type (
	Token any

	Char    byte
	Op      string // two byte operators
	Keyword string
	Ident   string
	Number  string
	String  string // literal with quotes and escapes as written

	// Bad is a byte sequence no token starts with.
	Bad string
)

var keywords = map[string]bool{
	"int":    true,
	"char":   true,
	"void":   true,
	"if":     true,
	"else":   true,
	"return": true,
}

// next returns the token after st.
// tst is where the token starts, i is where it ends. tk is nil at the end of input.
func (s *State) next(ctx context.Context, st int) (tk Token, tst int, i int) {
	if tr := tlog.SpanFromContext(ctx); tr.If("next_token") {
		defer func(st int) {
			tr.Printw("next token", "st", st, "tk", tk, "tst", tst, "i", i, "from", loc.Callers(1, 3))
		}(st)
	}

	st = s.skipSpaces(st)
	i = st

	if i == len(s.b) {
		return nil, st, i
	}

	c := s.b[i]

	switch c {
	case '=':
		if i+1 < len(s.b) && s.b[i+1] == '=' {
			return Op("=="), st, i + 2
		}

		return Char(c), st, i + 1
	case '{', '}', '(', ')', ';', ',', '+', '-', '*':
		return Char(c), st, i + 1
	case '"':
		e, ok := stringEnd(s.b, i+1)
		if !ok {
			return Bad(s.b[i:e]), st, e
		}

		return String(s.b[i:e]), st, e
	}

	switch {
	case isIdent1(c):
		e := skipIdent(s.b, i)

		if keywords[string(s.b[i:e])] {
			return Keyword(s.b[i:e]), st, e
		}

		return Ident(s.b[i:e]), st, e
	case c >= '0' && c <= '9':
		e := skipIdent(s.b, i)

		return Number(s.b[i:e]), st, e
	default:
		return Bad(s.b[i : i+1]), st, i + 1
	}
}

// skipSpaces skips whitespace and comments.
func (s *State) skipSpaces(i int) int {
	b := s.b

	for i < len(b) {
		switch {
		case b[i] == ' ', b[i] == '\t', b[i] == '\n', b[i] == '\r':
			i++
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '/':
			i = skipLine(b, i)
		case b[i] == '/' && i+1 < len(b) && b[i+1] == '*':
			i = skipBlockComment(b, i+2)
		default:
			return i
		}
	}

	return i
}

// stringEnd returns the index after the closing quote.
func stringEnd(b []byte, i int) (int, bool) {
	for i < len(b) {
		switch b[i] {
		case '"':
			return i + 1, true
		case '\n':
			return i, false
		case '\\':
			i++
		}

		i++
	}

	return len(b), false
}

// unquote decodes a C string literal.
func unquote(lit String) (string, error) {
	q := []byte(lit[1 : len(lit)-1])
	r := make([]byte, 0, len(q))

	for i := 0; i < len(q); i++ {
		if q[i] != '\\' {
			r = append(r, q[i])
			continue
		}

		i++

		if i == len(q) {
			return "", strconv.ErrSyntax
		}

		if q[i] >= '0' && q[i] <= '7' {
			c := q[i] - '0'

			for n := 1; n < 3 && i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '7'; n++ {
				i++
				c = c<<3 + q[i] - '0'
			}

			r = append(r, c)

			continue
		}

		switch q[i] {
		case 'a':
			r = append(r, '\a')
		case 'b':
			r = append(r, '\b')
		case 't':
			r = append(r, '\t')
		case 'n':
			r = append(r, '\n')
		case 'v':
			r = append(r, '\v')
		case 'f':
			r = append(r, '\f')
		case 'r':
			r = append(r, '\r')
		case 'e':
			r = append(r, 27)
		default:
			r = append(r, q[i])
		}
	}

	return string(r), nil
}

func isIdent1(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && (isIdent1(b[i]) || b[i] >= '0' && b[i] <= '9') {
		i++
	}

	return i
}

func skipLine(b []byte, i int) int {
	for i < len(b) && b[i] != '\n' {
		i++
	}

	return i
}

func skipBlockComment(b []byte, i int) int {
	for i+1 < len(b) {
		if b[i] == '*' && b[i+1] == '/' {
			return i + 2
		}

		i++
	}

	return len(b)
}

func (c Char) String() string {
	return string(c)
}
