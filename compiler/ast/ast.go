package ast

import (
	"fmt"
)

type (
	// Node is one of the node kinds declared in this package.
	Node interface {
		Position() Pos
		Kind() string

		node()
	}

	Op string

	Pos struct {
		File string `json:"file,omitempty"`
		Line int    `json:"line,omitempty"`
		Col  int    `json:"col,omitempty"`
	}

	Base struct {
		Pos Pos
	}

	Program struct {
		Base `tlog:",embed"`

		Decls []Node // *FuncDef or *Decl
	}

	FuncDef struct {
		Base `tlog:",embed"`

		Name   string
		Type   string
		Params []*Decl
		Body   *Block
	}

	Block struct {
		Base `tlog:",embed"`

		Stmts []Node
	}

	Decl struct {
		Base `tlog:",embed"`

		Name string
		Type string
		Init Node
	}

	Ident struct {
		Base `tlog:",embed"`

		Name string
	}

	IntConst struct {
		Base `tlog:",embed"`

		Value int64
	}

	StringConst struct {
		Base `tlog:",embed"`

		Value string
	}

	Assign struct {
		Base `tlog:",embed"`

		LHS Node
		RHS Node
	}

	BinOp struct {
		Base `tlog:",embed"`

		Op    Op
		Left  Node
		Right Node
	}

	If struct {
		Base `tlog:",embed"`

		Cond Node
		Then Node
		Else Node
	}

	Return struct {
		Base `tlog:",embed"`

		Value Node
	}

	Call struct {
		Base `tlog:",embed"`

		Name string
		Args []Node
	}
)

const (
	OpAdd Op = "+"
	OpEq  Op = "=="
)

func (b Base) Position() Pos { return b.Pos }

func (*Program) Kind() string     { return "Program" }
func (*FuncDef) Kind() string     { return "FuncDef" }
func (*Block) Kind() string       { return "Block" }
func (*Decl) Kind() string        { return "Decl" }
func (*Ident) Kind() string       { return "Ident" }
func (*IntConst) Kind() string    { return "IntConst" }
func (*StringConst) Kind() string { return "StringConst" }
func (*Assign) Kind() string      { return "Assign" }
func (*BinOp) Kind() string       { return "BinOp" }
func (*If) Kind() string          { return "If" }
func (*Return) Kind() string      { return "Return" }
func (*Call) Kind() string        { return "Call" }

func (*Program) node()     {}
func (*FuncDef) node()     {}
func (*Block) node()       {}
func (*Decl) node()        {}
func (*Ident) node()       {}
func (*IntConst) node()    {}
func (*StringConst) node() {}
func (*Assign) node()      {}
func (*BinOp) node()       {}
func (*If) node()          {}
func (*Return) node()      {}
func (*Call) node()        {}

func (p Pos) String() string {
	file := p.File
	if file == "" {
		file = "<input>"
	}

	if p.Line == 0 {
		return file
	}

	if p.Col == 0 {
		return fmt.Sprintf("%s:%d", file, p.Line)
	}

	return fmt.Sprintf("%s:%d:%d", file, p.Line, p.Col)
}

// IsZero reports whether the position is unknown.
func (p Pos) IsZero() bool {
	return p == Pos{}
}
