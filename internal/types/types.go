// Package types defines Blaze's type lattice (spec §3 "Types"): the set of
// ground types, type variables, and the structural Array/Fun/Object/Class
// constructors layered over them. This package only holds the lattice and
// its pretty-printer; constraint generation and unification live in
// internal/infer so that the AST (which embeds a types.Type slot on every
// node) never needs to import the inferencer.
package types

import (
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the sum type of spec §3 "Types".
type Kind int

const (
	Int Kind = iota
	Float
	Boolean
	Char
	String
	Null
	Array
	Fun
	Object
	Class
	Var
)

// Type is a node in the type lattice. Ground types (Int, Float, Boolean,
// Char, String, Null) carry no payload; Array/Fun/Object/Class/Var carry the
// fields below relevant to their Kind.
type Type struct {
	Kind Kind

	// Array
	Elem *Type
	Size *int // nil = unknown/unconstrained size

	// Fun
	Params []Type
	Ret    *Type

	// Object / Class
	Fields map[string]Type

	// Var
	ID int
}

func Ground(k Kind) Type { return Type{Kind: k} }

func NewArray(elem Type, size *int) Type { return Type{Kind: Array, Elem: &elem, Size: size} }

func NewFun(params []Type, ret Type) Type { return Type{Kind: Fun, Params: params, Ret: &ret} }

func NewObject(fields map[string]Type) Type { return Type{Kind: Object, Fields: fields} }

func NewClass(obj Type) Type { return Type{Kind: Class, Fields: obj.Fields} }

func NewVar(id int) Type { return Type{Kind: Var, ID: id} }

// String renders t the way diagnostics and -l dumps show types.
func (t Type) String() string {
	switch t.Kind {
	case Int:
		return "int"
	case Float:
		return "float"
	case Boolean:
		return "bool"
	case Char:
		return "char"
	case String:
		return "string"
	case Null:
		return "null"
	case Var:
		return fmt.Sprintf("t%d", t.ID)
	case Array:
		if t.Size != nil {
			return fmt.Sprintf("[%s; %d]", t.Elem.String(), *t.Size)
		}
		return fmt.Sprintf("[%s]", t.Elem.String())
	case Fun:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		ret := "void"
		if t.Ret != nil {
			ret = t.Ret.String()
		}
		return fmt.Sprintf("fun(%s) -> %s", strings.Join(parts, ", "), ret)
	case Object, Class:
		names := make([]string, 0, len(t.Fields))
		for n := range t.Fields {
			names = append(names, n)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, n := range names {
			parts[i] = fmt.Sprintf("%s: %s", n, t.Fields[n].String())
		}
		prefix := "{"
		if t.Kind == Class {
			prefix = "class{"
		}
		return prefix + strings.Join(parts, ", ") + "}"
	default:
		return "?"
	}
}

// Equal reports structural equality without unifying free variables — two
// distinct Var ids are equal only if they carry the same id.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Var:
		return a.ID == b.ID
	case Array:
		if (a.Size == nil) != (b.Size == nil) {
			return false
		}
		if a.Size != nil && *a.Size != *b.Size {
			return false
		}
		return Equal(*a.Elem, *b.Elem)
	case Fun:
		if len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		if (a.Ret == nil) != (b.Ret == nil) {
			return false
		}
		return a.Ret == nil || Equal(*a.Ret, *b.Ret)
	case Object, Class:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for k, v := range a.Fields {
			bv, ok := b.Fields[k]
			if !ok || !Equal(v, bv) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// FreeVars collects the set of type-variable ids reachable from t, used by
// the inferencer's occurs-check.
func FreeVars(t Type, out map[int]bool) {
	switch t.Kind {
	case Var:
		out[t.ID] = true
	case Array:
		FreeVars(*t.Elem, out)
	case Fun:
		for _, p := range t.Params {
			FreeVars(p, out)
		}
		if t.Ret != nil {
			FreeVars(*t.Ret, out)
		}
	case Object, Class:
		for _, v := range t.Fields {
			FreeVars(v, out)
		}
	}
}
