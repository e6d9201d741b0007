package parse

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minicc/compiler/ast"
)

type (
	// State parses C source text into an ast.Program.
	State struct {
		b []byte // all files concatenated

		files []file
	}

	file struct {
		name  string
		base  int
		lines []int // line start offsets relative to base
	}

	UnexpectedError struct {
		Token Token
		Want  []Token
		Pos   ast.Pos
	}
)

func Parse(ctx context.Context, name string, text []byte) (*ast.Program, error) {
	s := New()

	s.AddFile(name, text)

	return s.Parse(ctx)
}

func New() *State {
	return &State{}
}

// AddFile appends text to the parsed source. Declarations of all files
// end up in one Program.
func (s *State) AddFile(name string, text []byte) {
	f := file{
		name:  name,
		base:  len(s.b),
		lines: []int{0},
	}

	for i, c := range text {
		if c == '\n' {
			f.lines = append(f.lines, i+1)
		}
	}

	s.b = append(s.b, text...)
	s.b = append(s.b, '\n')

	s.files = append(s.files, f)
}

func (s *State) Parse(ctx context.Context) (p *ast.Program, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "parse", "files", len(s.files), "size", len(s.b))
	defer tr.Finish("err", &err)

	p = &ast.Program{Base: s.base(0)}

	for i := 0; ; {
		tk, _, _ := s.next(ctx, i)
		if tk == nil {
			break
		}

		var x ast.Node

		x, i, err = s.parseTopLevel(ctx, i)
		if err != nil {
			return nil, errors.Wrap(err, "at %v", s.pos(i))
		}

		p.Decls = append(p.Decls, x)
	}

	tr.Printw("parsed", "decls", len(p.Decls))

	return p, nil
}

func (s *State) pos(off int) ast.Pos {
	if len(s.files) == 0 {
		return ast.Pos{}
	}

	fi := sort.Search(len(s.files), func(i int) bool { return s.files[i].base > off }) - 1
	if fi < 0 {
		fi = 0
	}

	f := s.files[fi]
	rel := off - f.base

	l := sort.Search(len(f.lines), func(i int) bool { return f.lines[i] > rel }) - 1
	if l < 0 {
		l = 0
	}

	return ast.Pos{File: f.name, Line: l + 1, Col: rel - f.lines[l] + 1}
}

func (s *State) base(off int) ast.Base {
	return ast.Base{Pos: s.pos(off)}
}

func (s *State) parseTopLevel(ctx context.Context, st int) (x ast.Node, i int, err error) {
	st = s.skipSpaces(st)

	typ, i, err := s.parseType(ctx, st)
	if err != nil {
		return nil, i, err
	}

	tk, tst, i := s.next(ctx, i)
	name, ok := tk.(Ident)
	if !ok {
		return nil, tst, s.unexpected(tk, tst, Ident(""))
	}

	tk, _, _ = s.next(ctx, i)
	if tk != Char('(') {
		return s.parseDeclRest(ctx, st, typ, name, i)
	}

	f := &ast.FuncDef{Base: s.base(st), Name: string(name), Type: typ}

	f.Params, i, err = s.parseParams(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "func %v", name)
	}

	tk, tst, _ = s.next(ctx, i)
	if tk == Char(';') {
		return nil, tst, errors.New("func %v: declarations without body are not supported", name)
	}

	f.Body, i, err = s.parseBlock(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "func %v", name)
	}

	tlog.SpanFromContext(ctx).V("parse").Printw("func", "name", f.Name, "params", len(f.Params), "stmts", len(f.Body.Stmts))

	return f, i, nil
}

func (s *State) parseType(ctx context.Context, st int) (typ string, i int, err error) {
	tk, tst, i := s.next(ctx, st)

	switch tk {
	case Keyword("int"), Keyword("char"), Keyword("void"):
	default:
		return "", tst, s.unexpected(tk, tst, Keyword("int"), Keyword("char"), Keyword("void"))
	}

	typ = string(tk.(Keyword))

	for {
		tk, _, e := s.next(ctx, i)
		if tk != Char('*') {
			break
		}

		typ += "*"
		i = e
	}

	return typ, i, nil
}

func (s *State) parseParams(ctx context.Context, st int) (ps []*ast.Decl, i int, err error) {
	i, err = s.expect(ctx, st, Char('('))
	if err != nil {
		return nil, i, err
	}

	tk, _, e := s.next(ctx, i)
	switch tk {
	case Char(')'):
		return nil, e, nil
	case Keyword("void"):
		tk, _, e2 := s.next(ctx, e)
		if tk == Char(')') {
			return nil, e2, nil
		}
	}

	for {
		pst := s.skipSpaces(i)

		typ, j, err := s.parseType(ctx, i)
		if err != nil {
			return nil, j, errors.Wrap(err, "param %d", len(ps))
		}

		tk, tst, j := s.next(ctx, j)
		name, ok := tk.(Ident)
		if !ok {
			return nil, tst, s.unexpected(tk, tst, Ident(""))
		}

		ps = append(ps, &ast.Decl{Base: s.base(pst), Name: string(name), Type: typ})

		tk, tst, i = s.next(ctx, j)
		switch tk {
		case Char(','):
			continue
		case Char(')'):
			return ps, i, nil
		default:
			return nil, tst, s.unexpected(tk, tst, Char(','), Char(')'))
		}
	}
}

func (s *State) parseBlock(ctx context.Context, st int) (b *ast.Block, i int, err error) {
	st = s.skipSpaces(st)

	i, err = s.expect(ctx, st, Char('{'))
	if err != nil {
		return nil, i, err
	}

	b = &ast.Block{Base: s.base(st)}

loop:
	for {
		j := i
		tk, tst, e := s.next(ctx, i)
		switch tk {
		case Char(';'):
			i = e
			continue
		case Char('}'):
			i = e
			break loop
		case nil:
			return nil, tst, s.unexpected(tk, tst, Char('}'))
		default:
			i = j
		}

		var x ast.Node

		x, i, err = s.parseStatement(ctx, i)
		if err != nil {
			return nil, i, err
		}

		b.Stmts = append(b.Stmts, x)
	}

	return b, i, nil
}

func (s *State) parseStatement(ctx context.Context, st int) (x ast.Node, i int, err error) {
	st = s.skipSpaces(st)

	tk, _, i := s.next(ctx, st)

	switch tk {
	case Char('{'):
		return s.parseBlock(ctx, st)
	case Keyword("if"):
		return s.parseIf(ctx, st, i)
	case Keyword("return"):
		return s.parseReturn(ctx, st, i)
	case Keyword("int"), Keyword("char"), Keyword("void"):
		typ, i, err := s.parseType(ctx, st)
		if err != nil {
			return nil, i, err
		}

		tk, tst, i := s.next(ctx, i)
		name, ok := tk.(Ident)
		if !ok {
			return nil, tst, s.unexpected(tk, tst, Ident(""))
		}

		return s.parseDeclRest(ctx, st, typ, name, i)
	}

	x, i, err = s.parseExpr(ctx, st)
	if err != nil {
		return nil, i, err
	}

	i, err = s.expect(ctx, i, Char(';'))
	if err != nil {
		return nil, i, err
	}

	return x, i, nil
}

// parseDeclRest parses an optional initializer and the closing semicolon.
func (s *State) parseDeclRest(ctx context.Context, st int, typ string, name Ident, vst int) (x ast.Node, i int, err error) {
	d := &ast.Decl{Base: s.base(st), Name: string(name), Type: typ}

	tk, _, i := s.next(ctx, vst)
	if tk == Char('=') {
		d.Init, i, err = s.parseExpr(ctx, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "%v init", name)
		}
	} else {
		i = vst
	}

	i, err = s.expect(ctx, i, Char(';'))
	if err != nil {
		return nil, i, err
	}

	return d, i, nil
}

func (s *State) parseIf(ctx context.Context, st, vst int) (x ast.Node, i int, err error) {
	n := &ast.If{Base: s.base(st)}

	i, err = s.expect(ctx, vst, Char('('))
	if err != nil {
		return nil, i, err
	}

	n.Cond, i, err = s.parseExpr(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "if cond")
	}

	i, err = s.expect(ctx, i, Char(')'))
	if err != nil {
		return nil, i, err
	}

	n.Then, i, err = s.parseStatement(ctx, i)
	if err != nil {
		return nil, i, errors.Wrap(err, "then")
	}

	tk, _, e := s.next(ctx, i)
	if tk != Keyword("else") {
		return n, i, nil
	}

	n.Else, i, err = s.parseStatement(ctx, e)
	if err != nil {
		return nil, i, errors.Wrap(err, "else")
	}

	return n, i, nil
}

func (s *State) parseReturn(ctx context.Context, st, vst int) (x ast.Node, i int, err error) {
	r := &ast.Return{Base: s.base(st)}

	tk, _, e := s.next(ctx, vst)
	if tk == Char(';') {
		return r, e, nil
	}

	r.Value, i, err = s.parseExpr(ctx, vst)
	if err != nil {
		return nil, i, errors.Wrap(err, "return")
	}

	i, err = s.expect(ctx, i, Char(';'))
	if err != nil {
		return nil, i, err
	}

	return r, i, nil
}

func (s *State) parseExpr(ctx context.Context, st int) (x ast.Node, i int, err error) {
	return s.parseAssign(ctx, st)
}

// parseAssign is right associative: a = b = c is a = (b = c).
func (s *State) parseAssign(ctx context.Context, st int) (x ast.Node, i int, err error) {
	lhs, i, err := s.parseEquality(ctx, st)
	if err != nil {
		return nil, i, err
	}

	tk, tst, e := s.next(ctx, i)
	if tk != Char('=') {
		return lhs, i, nil
	}

	rhs, i, err := s.parseAssign(ctx, e)
	if err != nil {
		return nil, i, errors.Wrap(err, "rhs")
	}

	return &ast.Assign{Base: s.base(tst), LHS: lhs, RHS: rhs}, i, nil
}

func (s *State) parseEquality(ctx context.Context, st int) (x ast.Node, i int, err error) {
	return s.parseBinary(ctx, st, Op("=="), ast.OpEq, s.parseSum)
}

func (s *State) parseSum(ctx context.Context, st int) (x ast.Node, i int, err error) {
	return s.parseBinary(ctx, st, Char('+'), ast.OpAdd, s.parsePrimary)
}

// parseBinary parses a left associative chain of one operator.
func (s *State) parseBinary(ctx context.Context, st int, tok Token, op ast.Op, arg func(context.Context, int) (ast.Node, int, error)) (x ast.Node, i int, err error) {
	x, i, err = arg(ctx, st)
	if err != nil {
		return nil, i, err
	}

	for {
		tk, tst, e := s.next(ctx, i)
		if tk != tok {
			return x, i, nil
		}

		var r ast.Node

		r, i, err = arg(ctx, e)
		if err != nil {
			return nil, i, errors.Wrap(err, "%v right", op)
		}

		x = &ast.BinOp{Base: s.base(tst), Op: op, Left: x, Right: r}
	}
}

func (s *State) parsePrimary(ctx context.Context, st int) (x ast.Node, i int, err error) {
	tk, tst, i := s.next(ctx, st)

	switch tk := tk.(type) {
	case Number:
		return s.parseNumber(tk, tst, i, false)
	case String:
		v, err := unquote(tk)
		if err != nil {
			return nil, tst, errors.Wrap(err, "string literal at %v", s.pos(tst))
		}

		return &ast.StringConst{Base: s.base(tst), Value: v}, i, nil
	case Ident:
		n, _, e := s.next(ctx, i)
		if n != Char('(') {
			return &ast.Ident{Base: s.base(tst), Name: string(tk)}, i, nil
		}

		c := &ast.Call{Base: s.base(tst), Name: string(tk)}

		c.Args, i, err = s.parseArgs(ctx, e)
		if err != nil {
			return nil, i, errors.Wrap(err, "call %v", tk)
		}

		return c, i, nil
	case Char:
		switch tk {
		case '(':
			x, i, err = s.parseExpr(ctx, i)
			if err != nil {
				return nil, i, err
			}

			i, err = s.expect(ctx, i, Char(')'))
			if err != nil {
				return nil, i, err
			}

			return x, i, nil
		case '-':
			n, nst, e := s.next(ctx, i)
			if num, ok := n.(Number); ok {
				return s.parseNumber(num, nst, e, true)
			}

			return nil, tst, errors.New("unary minus is supported for integer literals only at %v", s.pos(tst))
		}
	}

	return nil, tst, s.unexpected(tk, tst, Number(""), String(""), Ident(""), Char('('))
}

// parseArgs parses call arguments after the opening parenthesis.
func (s *State) parseArgs(ctx context.Context, st int) (args []ast.Node, i int, err error) {
	tk, _, e := s.next(ctx, st)
	if tk == Char(')') {
		return nil, e, nil
	}

	i = st

	for {
		var x ast.Node

		x, i, err = s.parseExpr(ctx, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "arg %d", len(args))
		}

		args = append(args, x)

		tk, tst, e := s.next(ctx, i)
		switch tk {
		case Char(','):
			i = e
		case Char(')'):
			return args, e, nil
		default:
			return nil, tst, s.unexpected(tk, tst, Char(','), Char(')'))
		}
	}
}

func (s *State) parseNumber(tk Number, tst, i int, neg bool) (ast.Node, int, error) {
	text := string(tk)
	if neg {
		text = "-" + text
	}

	v, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		return nil, tst, errors.Wrap(err, "integer literal at %v", s.pos(tst))
	}

	return &ast.IntConst{Base: s.base(tst), Value: v}, i, nil
}

func (s *State) expect(ctx context.Context, st int, want Token) (i int, err error) {
	tk, tst, i := s.next(ctx, st)
	if tk != want {
		return tst, s.unexpected(tk, tst, want)
	}

	return i, nil
}

func (s *State) unexpected(got Token, off int, want ...Token) error {
	return UnexpectedError{
		Token: got,
		Want:  want,
		Pos:   s.pos(off),
	}
}

func (e UnexpectedError) Error() string {
	l := make([]string, len(e.Want))

	for i, w := range e.Want {
		l[i] = tokenName(w)
	}

	return fmt.Sprintf("unexpected %v at %v, want %v", tokenName(e.Token), e.Pos, strings.Join(l, " or "))
}

func tokenName(t Token) string {
	switch t := t.(type) {
	case nil:
		return "end of file"
	case Char:
		return strconv.Quote(string(t))
	case Op:
		return strconv.Quote(string(t))
	case Keyword:
		return strconv.Quote(string(t))
	case Ident:
		if t == "" {
			return "identifier"
		}

		return "identifier " + string(t)
	case Number:
		if t == "" {
			return "number"
		}

		return "number " + string(t)
	case String:
		if t == "" {
			return "string"
		}

		return "string " + string(t)
	case Bad:
		return "invalid text " + strconv.Quote(string(t))
	default:
		return fmt.Sprintf("%v", t)
	}
}
