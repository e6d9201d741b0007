package ast

import (
	"encoding/json"

	"tlog.app/go/errors"
)

type (
	// raw is the wire form of any node. Which fields are used depends on Kind.
	raw struct {
		Kind string `json:"kind"`
		Pos  Pos    `json:"pos"`

		Name  string          `json:"name"`
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
		Op    Op              `json:"op"`

		Decls  []json.RawMessage `json:"decls"`
		Params []json.RawMessage `json:"params"`
		Stmts  []json.RawMessage `json:"stmts"`
		Args   []json.RawMessage `json:"args"`

		Body  json.RawMessage `json:"body"`
		Init  json.RawMessage `json:"init"`
		LHS   json.RawMessage `json:"lhs"`
		RHS   json.RawMessage `json:"rhs"`
		Left  json.RawMessage `json:"left"`
		Right json.RawMessage `json:"right"`
		Cond  json.RawMessage `json:"cond"`
		Then  json.RawMessage `json:"then"`
		Else  json.RawMessage `json:"else"`
		Expr  json.RawMessage `json:"expr"`
	}

	UnknownKindError struct {
		Kind string
		Pos  Pos
	}
)

// Decode parses a JSON encoded Program produced by an external parser.
//
// Every object has a "kind" field naming the node kind
// and an optional "pos" object {"file", "line", "col"}.
func Decode(data []byte) (*Program, error) {
	x, err := decode(data)
	if err != nil {
		return nil, err
	}

	p, ok := x.(*Program)
	if !ok {
		return nil, errors.New("expected Program at top level, got %v", kindOf(x))
	}

	return p, nil
}

// DecodeNode parses any single node.
func DecodeNode(data []byte) (Node, error) {
	return decode(data)
}

func decode(data []byte) (Node, error) {
	if isNull(data) {
		return nil, nil
	}

	var r raw

	err := json.Unmarshal(data, &r)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal")
	}

	b := Base{Pos: r.Pos}

	switch r.Kind {
	case "Program":
		x := &Program{Base: b}

		x.Decls, err = decodeList(r.Decls)
		if err != nil {
			return nil, errors.Wrap(err, "decls")
		}

		return x, nil
	case "FuncDef":
		x := &FuncDef{Base: b, Name: r.Name, Type: r.Type}

		for i, p := range r.Params {
			d, err := decode(p)
			if err != nil {
				return nil, errors.Wrap(err, "param %d", i)
			}

			pd, ok := d.(*Decl)
			if !ok {
				return nil, errors.New("param %d: expected Decl, got %v", i, kindOf(d))
			}

			x.Params = append(x.Params, pd)
		}

		body, err := decode(r.Body)
		if err != nil {
			return nil, errors.Wrap(err, "body")
		}

		if body != nil {
			bb, ok := body.(*Block)
			if !ok {
				return nil, errors.New("body: expected Block, got %v", kindOf(body))
			}

			x.Body = bb
		}

		return x, nil
	case "Block":
		x := &Block{Base: b}

		x.Stmts, err = decodeList(r.Stmts)
		if err != nil {
			return nil, errors.Wrap(err, "stmts")
		}

		return x, nil
	case "Decl":
		x := &Decl{Base: b, Name: r.Name, Type: r.Type}

		x.Init, err = decode(r.Init)
		if err != nil {
			return nil, errors.Wrap(err, "init")
		}

		return x, nil
	case "Ident":
		return &Ident{Base: b, Name: r.Name}, nil
	case "IntConst":
		x := &IntConst{Base: b}

		err = json.Unmarshal(r.Value, &x.Value)
		if err != nil {
			return nil, errors.Wrap(err, "int value")
		}

		return x, nil
	case "StringConst":
		x := &StringConst{Base: b}

		err = json.Unmarshal(r.Value, &x.Value)
		if err != nil {
			return nil, errors.Wrap(err, "string value")
		}

		return x, nil
	case "Assign":
		x := &Assign{Base: b}

		x.LHS, err = decode(r.LHS)
		if err != nil {
			return nil, errors.Wrap(err, "lhs")
		}

		x.RHS, err = decode(r.RHS)
		if err != nil {
			return nil, errors.Wrap(err, "rhs")
		}

		return x, nil
	case "BinOp":
		x := &BinOp{Base: b, Op: r.Op}

		x.Left, err = decode(r.Left)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		x.Right, err = decode(r.Right)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		return x, nil
	case "If":
		x := &If{Base: b}

		x.Cond, err = decode(r.Cond)
		if err != nil {
			return nil, errors.Wrap(err, "cond")
		}

		x.Then, err = decode(r.Then)
		if err != nil {
			return nil, errors.Wrap(err, "then")
		}

		x.Else, err = decode(r.Else)
		if err != nil {
			return nil, errors.Wrap(err, "else")
		}

		return x, nil
	case "Return":
		x := &Return{Base: b}

		x.Value, err = decode(r.Expr)
		if err != nil {
			return nil, errors.Wrap(err, "expr")
		}

		return x, nil
	case "Call":
		x := &Call{Base: b, Name: r.Name}

		x.Args, err = decodeList(r.Args)
		if err != nil {
			return nil, errors.Wrap(err, "args")
		}

		return x, nil
	default:
		return nil, UnknownKindError{Kind: r.Kind, Pos: r.Pos}
	}
}

func decodeList(l []json.RawMessage) (r []Node, err error) {
	for i, data := range l {
		x, err := decode(data)
		if err != nil {
			return nil, errors.Wrap(err, "%d", i)
		}

		if x == nil {
			return nil, errors.New("%d: null node", i)
		}

		r = append(r, x)
	}

	return r, nil
}

func isNull(data []byte) bool {
	t := trim(data)

	return len(t) == 0 || string(t) == "null"
}

func trim(b []byte) []byte {
	for len(b) != 0 && (b[0] == ' ' || b[0] == '\t' || b[0] == '\n' || b[0] == '\r') {
		b = b[1:]
	}

	for l := len(b); l != 0 && (b[l-1] == ' ' || b[l-1] == '\t' || b[l-1] == '\n' || b[l-1] == '\r'); l = len(b) {
		b = b[:l-1]
	}

	return b
}

func kindOf(x Node) string {
	if x == nil {
		return "null"
	}

	return x.Kind()
}

func (e UnknownKindError) Error() string {
	return "unknown node kind " + quote(e.Kind) + " at " + e.Pos.String()
}

func quote(s string) string {
	q, _ := json.Marshal(s)
	return string(q)
}
