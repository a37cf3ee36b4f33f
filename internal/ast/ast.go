// Package ast defines Blaze's abstract syntax tree: the exhaustive node
// variant table of spec §3, each carrying its own Span. The shape is
// grounded on the teacher's tagged ir.Node (NodeType + Data + Children) but
// expressed as one concrete Go struct per variant, the way
// informatter-nilan's ast package separates Expression/Stmt types, since
// Blaze's variants each need differently-typed fields (If's case list,
// VarAssign's mutability flag, …) that a single Data-interface{} field
// would only recover through brittle type assertions.
package ast

import (
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/types"
)

// Node is implemented by every AST variant. TypeOf/SetType hold the slot the
// type inferencer annotates (spec §4.3): before inference it holds the zero
// types.Type for every node; after a successful infer.Engine.Run every
// node's TypeOf is ground.
type Node interface {
	Span() diag.Span
	TypeOf() types.Type
	SetType(types.Type)
	node()
}

// base is embedded by every concrete node to provide Span/TypeOf/SetType
// without repeating them on each variant.
type base struct {
	span diag.Span
	typ  types.Type
}

func (b *base) Span() diag.Span      { return b.span }
func (b *base) TypeOf() types.Type   { return b.typ }
func (b *base) SetType(t types.Type) { b.typ = t }
func (*base) node()                  {}

func newBase(span diag.Span) base { return base{span: span} }

// --- literals ---

type Number struct {
	base
	IsFloat  bool
	IntVal   int64
	FloatVal float64
}

type String struct {
	base
	Value token.SymbolID
}

type Char struct {
	base
	Value rune
}

type Boolean struct {
	base
	Value bool
}

// --- variables ---

type VarAccess struct {
	base
	Name token.SymbolID
}

type VarAssign struct {
	base
	Name    token.SymbolID
	Value   Node
	Mutable bool
}

// ReassignOp enumerates the compound-assignment operators of spec §3.
type ReassignOp int

const (
	ReassignSet ReassignOp = iota
	ReassignAdd
	ReassignSub
	ReassignMul
	ReassignDiv
)

type VarReassign struct {
	base
	Name  token.SymbolID
	Op    ReassignOp
	Value Node
}

// --- operators ---

type UnaryOp int

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
	UnaryNot
)

type Unary struct {
	base
	Op      UnaryOp
	Operand Node
}

type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinEq
	BinNeq
	BinLt
	BinLe
	BinGt
	BinGe
	BinAnd
	BinOr
	BinPow
)

type Binary struct {
	base
	Left  Node
	Op    BinaryOp
	Right Node
}

// --- control flow ---

// IfCase is one `cond { body }` arm; else-if chains flatten into Cases and a
// trailing bare `else { body }` becomes Else.
type IfCase struct {
	Cond Node
	Body []Node
}

type If struct {
	base
	Cases []IfCase
	Else  []Node // nil if there is no else clause
}

type While struct {
	base
	Cond Node
	Body []Node
}

type For struct {
	base
	Var   token.SymbolID
	Start Node
	End   Node
	Step  Node // never nil: a missing `step` is desugared to the literal 1
	Body  []Node
}

// --- functions ---

type FunDef struct {
	base
	Name   token.SymbolID // zero value (interned "") for an anonymous function
	Named  bool
	Params []token.SymbolID
	Body   []Node
}

type Call struct {
	base
	Callee Node
	Args   []Node
}

type Return struct {
	base
	Value Node // nil for a bare `return`
}

// --- aggregates ---

type Array struct {
	base
	Elements []Node
}

type Index struct {
	base
	Array Node
	Idx   Node
}

type ObjectField struct {
	Name  token.SymbolID
	Value Node
}

type ObjectDef struct {
	base
	Properties []ObjectField
}

type ObjectPropAccess struct {
	base
	Object   Node
	Property token.SymbolID
}

type ObjectPropEdit struct {
	base
	Object   Node
	Property token.SymbolID
	NewValue Node
}

type ObjectMethodCall struct {
	base
	Object   Node
	Property token.SymbolID
	Args     []Node
}

// --- classes ---

type ClassConstructor struct {
	Params []token.SymbolID
	Body   []Node
}

type ClassMethod struct {
	Name   token.SymbolID
	Params []token.SymbolID
	Body   []Node
	Static bool
}

type ClassField struct {
	Name    token.SymbolID
	Value   Node
	Mutable bool
	Static  bool
}

type ClassDef struct {
	base
	Name        token.SymbolID
	Constructor *ClassConstructor // nil if the class declares no constructor
	Properties  []ClassField
	Methods     []ClassMethod
}

type ClassInit struct {
	base
	Name token.SymbolID
	Args []Node
}

// --- FFI ---

// TypeExprKind names the ground types an extern signature may mention.
type TypeExprKind int

const (
	TypeVoid TypeExprKind = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeString
	TypeChar
)

type Extern struct {
	base
	Name       token.SymbolID
	ArgTypes   []TypeExprKind
	ReturnType TypeExprKind
	Variadic   bool
}

// --- sequencing ---

type Statements struct {
	base
	List []Node
}

// constructors below stamp the Span at creation time, mirroring the
// teacher's nodeInit helper in frontend/tree.go.

func NewNumberInt(span diag.Span, v int64) *Number  { return &Number{base: newBase(span), IntVal: v} }
func NewNumberFloat(span diag.Span, v float64) *Number {
	return &Number{base: newBase(span), IsFloat: true, FloatVal: v}
}
func NewString(span diag.Span, v token.SymbolID) *String   { return &String{base: newBase(span), Value: v} }
func NewChar(span diag.Span, v rune) *Char                 { return &Char{base: newBase(span), Value: v} }
func NewBoolean(span diag.Span, v bool) *Boolean            { return &Boolean{base: newBase(span), Value: v} }
func NewVarAccess(span diag.Span, name token.SymbolID) *VarAccess {
	return &VarAccess{base: newBase(span), Name: name}
}
func NewVarAssign(span diag.Span, name token.SymbolID, value Node, mutable bool) *VarAssign {
	return &VarAssign{base: newBase(span), Name: name, Value: value, Mutable: mutable}
}
func NewVarReassign(span diag.Span, name token.SymbolID, op ReassignOp, value Node) *VarReassign {
	return &VarReassign{base: newBase(span), Name: name, Op: op, Value: value}
}
func NewUnary(span diag.Span, op UnaryOp, operand Node) *Unary {
	return &Unary{base: newBase(span), Op: op, Operand: operand}
}
func NewBinary(span diag.Span, left Node, op BinaryOp, right Node) *Binary {
	return &Binary{base: newBase(span), Left: left, Op: op, Right: right}
}
func NewIf(span diag.Span, cases []IfCase, elseBody []Node) *If {
	return &If{base: newBase(span), Cases: cases, Else: elseBody}
}
func NewWhile(span diag.Span, cond Node, body []Node) *While {
	return &While{base: newBase(span), Cond: cond, Body: body}
}
func NewFor(span diag.Span, v token.SymbolID, start, end, step Node, body []Node) *For {
	return &For{base: newBase(span), Var: v, Start: start, End: end, Step: step, Body: body}
}
func NewFunDef(span diag.Span, name token.SymbolID, named bool, params []token.SymbolID, body []Node) *FunDef {
	return &FunDef{base: newBase(span), Name: name, Named: named, Params: params, Body: body}
}
func NewCall(span diag.Span, callee Node, args []Node) *Call {
	return &Call{base: newBase(span), Callee: callee, Args: args}
}
func NewReturn(span diag.Span, value Node) *Return { return &Return{base: newBase(span), Value: value} }
func NewArray(span diag.Span, elems []Node) *Array  { return &Array{base: newBase(span), Elements: elems} }
func NewIndex(span diag.Span, arr, idx Node) *Index {
	return &Index{base: newBase(span), Array: arr, Idx: idx}
}
func NewObjectDef(span diag.Span, props []ObjectField) *ObjectDef {
	return &ObjectDef{base: newBase(span), Properties: props}
}
func NewObjectPropAccess(span diag.Span, obj Node, prop token.SymbolID) *ObjectPropAccess {
	return &ObjectPropAccess{base: newBase(span), Object: obj, Property: prop}
}
func NewObjectPropEdit(span diag.Span, obj Node, prop token.SymbolID, val Node) *ObjectPropEdit {
	return &ObjectPropEdit{base: newBase(span), Object: obj, Property: prop, NewValue: val}
}
func NewObjectMethodCall(span diag.Span, obj Node, prop token.SymbolID, args []Node) *ObjectMethodCall {
	return &ObjectMethodCall{base: newBase(span), Object: obj, Property: prop, Args: args}
}
func NewClassDef(span diag.Span, name token.SymbolID, ctor *ClassConstructor, props []ClassField, methods []ClassMethod) *ClassDef {
	return &ClassDef{base: newBase(span), Name: name, Constructor: ctor, Properties: props, Methods: methods}
}
func NewClassInit(span diag.Span, name token.SymbolID, args []Node) *ClassInit {
	return &ClassInit{base: newBase(span), Name: name, Args: args}
}
func NewExtern(span diag.Span, name token.SymbolID, argTypes []TypeExprKind, ret TypeExprKind, variadic bool) *Extern {
	return &Extern{base: newBase(span), Name: name, ArgTypes: argTypes, ReturnType: ret, Variadic: variadic}
}
func NewStatements(span diag.Span, list []Node) *Statements {
	return &Statements{base: newBase(span), List: list}
}
