// Package interp is a small, direct tree-walking evaluator over the typed
// Blaze AST. It exists only as a test oracle for spec §8's VM–AST agreement
// property: for programs that don't call externs, running the bytecode VM
// and running this interpreter over the same typed AST must yield the same
// final value. It is never wired into cmd/blazify.
//
// Grounded on informatter-nilan/interpreter's TreeWalkInterpreter — same
// switch-driven (there: visitor-driven) evaluate-and-recurse shape, reusing
// Blaze's own internal/ast nodes rather than a second parallel AST since
// Blaze already has typed nodes to walk.
package interp

import (
	"fmt"
	"strings"

	"github.com/blazify/blazify/internal/ast"
)

// Kind mirrors bytecode.ValueKind's closed value-domain tagging, kept as a
// separate type because bytecode.Value's value() method is unexported and
// so cannot be implemented outside package bytecode.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindChar
	KindString
	KindArray
	KindObject
	KindFunc
)

// Value is any runtime value this interpreter's eval loop produces.
type Value interface {
	Kind() Kind
	String() string
}

type Null struct{}

func (Null) Kind() Kind      { return KindNull }
func (Null) String() string { return "null" }

type Int int64

func (Int) Kind() Kind      { return KindInt }
func (v Int) String() string { return fmt.Sprintf("%d", int64(v)) }

type Float float64

func (Float) Kind() Kind      { return KindFloat }
func (v Float) String() string { return fmt.Sprintf("%g", float64(v)) }

type Bool bool

func (Bool) Kind() Kind      { return KindBool }
func (v Bool) String() string { return fmt.Sprintf("%t", bool(v)) }

type Char rune

func (Char) Kind() Kind      { return KindChar }
func (v Char) String() string { return string(rune(v)) }

type String string

func (String) Kind() Kind      { return KindString }
func (v String) String() string { return string(v) }

type Array struct{ Elements []Value }

func (Array) Kind() Kind { return KindArray }
func (a Array) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Object is a class instance or object literal: a field map plus, for a
// class instance, its bound methods (closures over the instance itself,
// the same "soul" idea the bytecode compiler and LLVM emitter both use).
type Object struct {
	Fields  map[string]Value
	Methods map[string]*Func
}

func (Object) Kind() Kind { return KindObject }
func (o Object) String() string { return fmt.Sprintf("object{%d fields}", len(o.Fields)) }

// Func is a user-defined function or bound method: its parameter names,
// body, the environment it closes over, and, for a method, the receiver
// name its body refers to as "soul".
type Func struct {
	Params   []string
	Body     []ast.Node
	Env      *Env
	Soul     string
	Receiver Value
}

func (Func) Kind() Kind      { return KindFunc }
func (f Func) String() string { return fmt.Sprintf("fun(%d params)", len(f.Params)) }
