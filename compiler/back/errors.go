package back

import (
	"fmt"

	"github.com/slowlang/minicc/compiler/ast"
)

type (
	UnresolvedSymbolError struct {
		Name string
		Pos  ast.Pos
	}

	UnsupportedConstructError struct {
		Kind string // node kind
		What string // operator or a short reason
		Pos  ast.Pos
	}

	RegisterExhaustedError struct {
		Kind string
		Pos  ast.Pos
	}

	FrameOverflowError struct {
		Func string
		Size int
		Pos  ast.Pos
	}

	SymbolRedefinedError struct {
		Name string
		Pos  ast.Pos
		Prev ast.Pos
	}
)

func unsupported(x ast.Node, what string) UnsupportedConstructError {
	if x == nil {
		return UnsupportedConstructError{Kind: "nil", What: what}
	}

	return UnsupportedConstructError{Kind: x.Kind(), What: what, Pos: x.Position()}
}

func (e UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("unresolved symbol %q at %v", e.Name, e.Pos)
}

func (e UnsupportedConstructError) Error() string {
	if e.What == "" {
		return fmt.Sprintf("unsupported construct: %v at %v", e.Kind, e.Pos)
	}

	return fmt.Sprintf("unsupported construct: %v %v at %v", e.Kind, e.What, e.Pos)
}

func (e RegisterExhaustedError) Error() string {
	return fmt.Sprintf("registers exhausted: %v at %v", e.Kind, e.Pos)
}

func (e FrameOverflowError) Error() string {
	return fmt.Sprintf("frame overflow: %v needs more than %d bytes at %v", e.Func, e.Size, e.Pos)
}

func (e SymbolRedefinedError) Error() string {
	return fmt.Sprintf("symbol %q redefined at %v, previous definition at %v", e.Name, e.Pos, e.Prev)
}
