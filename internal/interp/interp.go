package interp

import (
	"fmt"
	"math"

	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/token"
)

// Interp walks a typed Blaze program directly, the reference oracle spec §8
// checks the bytecode VM against. Panics (caught by Eval) stand in for the
// VM's *diag.Diagnostic error returns, following the teacher analogue's own
// recover-based error reporting (interpreter.go's Interpret).
type Interp struct {
	interner *token.Interner
	classes  map[string]*ast.ClassDef
}

func New(interner *token.Interner) *Interp {
	return &Interp{interner: interner, classes: make(map[string]*ast.ClassDef)}
}

func (in *Interp) name(id token.SymbolID) string { return in.interner.Lookup(id) }

// returnSignal carries a return-in-progress up through nested block
// evaluation; caught by the nearest function call frame.
type returnSignal struct{ value Value }

// Eval runs prog to completion and returns the value of its last top-level
// expression (spec §4.5's "the program's value is its last statement's
// value", mirrored by the VM leaving that value on top of the stack).
func (in *Interp) Eval(prog []ast.Node) (result Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rs, ok := r.(returnSignal); ok {
				result = rs.value
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()
	env := NewEnv(nil)
	result = in.evalBlock(prog, env)
	return result, nil
}

func (in *Interp) evalBlock(body []ast.Node, env *Env) Value {
	var last Value = Null{}
	for _, stmt := range body {
		last = in.evalStmt(stmt, env)
	}
	return last
}

func (in *Interp) evalStmt(n ast.Node, env *Env) Value {
	switch v := n.(type) {
	case *ast.Return:
		var val Value = Null{}
		if v.Value != nil {
			val = in.eval(v.Value, env)
		}
		panic(returnSignal{val})
	case *ast.ClassDef:
		in.classes[in.name(v.Name)] = v
		return Null{}
	case *ast.Extern:
		return Null{}
	default:
		return in.eval(n, env)
	}
}

func (in *Interp) eval(n ast.Node, env *Env) Value {
	switch v := n.(type) {
	case *ast.Number:
		if v.IsFloat {
			return Float(v.FloatVal)
		}
		return Int(v.IntVal)
	case *ast.String:
		return String(in.name(v.Value))
	case *ast.Char:
		return Char(v.Value)
	case *ast.Boolean:
		return Bool(v.Value)
	case *ast.VarAccess:
		b, ok := env.lookup(in.name(v.Name))
		if !ok {
			panic(fmt.Sprintf("undefined variable %q", in.name(v.Name)))
		}
		return b.value
	case *ast.VarAssign:
		val := in.eval(v.Value, env)
		env.bind(in.name(v.Name), val, v.Mutable)
		return val
	case *ast.VarReassign:
		name := in.name(v.Name)
		b, ok := env.lookup(name)
		if !ok {
			panic(fmt.Sprintf("undefined variable %q", name))
		}
		rhs := in.eval(v.Value, env)
		switch v.Op {
		case ast.ReassignSet:
			b.value = rhs
		case ast.ReassignAdd:
			b.value = arith(ast.BinAdd, b.value, rhs)
		case ast.ReassignSub:
			b.value = arith(ast.BinSub, b.value, rhs)
		case ast.ReassignMul:
			b.value = arith(ast.BinMul, b.value, rhs)
		case ast.ReassignDiv:
			b.value = arith(ast.BinDiv, b.value, rhs)
		}
		return b.value
	case *ast.Unary:
		return in.evalUnary(v, env)
	case *ast.Binary:
		return in.evalBinary(v, env)
	case *ast.If:
		return in.evalIf(v, env)
	case *ast.While:
		return in.evalWhile(v, env)
	case *ast.For:
		return in.evalFor(v, env)
	case *ast.FunDef:
		fn := &Func{Params: namesOf(in, v.Params), Body: v.Body, Env: env}
		if v.Named {
			env.bind(in.name(v.Name), fn, false)
		}
		return fn
	case *ast.Call:
		return in.evalCall(v, env)
	case *ast.Array:
		elems := make([]Value, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = in.eval(e, env)
		}
		return Array{Elements: elems}
	case *ast.Index:
		arr := in.eval(v.Array, env)
		idxV := in.eval(v.Idx, env)
		return indexInto(arr, idxV)
	case *ast.ObjectDef:
		fields := make(map[string]Value, len(v.Properties))
		for _, f := range v.Properties {
			fields[in.name(f.Name)] = in.eval(f.Value, env)
		}
		return Object{Fields: fields}
	case *ast.ObjectPropAccess:
		obj := in.eval(v.Object, env)
		o, ok := obj.(Object)
		if !ok {
			panic("property access on a non-object value")
		}
		return o.Fields[in.name(v.Property)]
	case *ast.ObjectPropEdit:
		obj := in.eval(v.Object, env)
		o, ok := obj.(Object)
		if !ok {
			panic("property assignment on a non-object value")
		}
		val := in.eval(v.NewValue, env)
		o.Fields[in.name(v.Property)] = val
		return val
	case *ast.ObjectMethodCall:
		obj := in.eval(v.Object, env)
		o, ok := obj.(Object)
		if !ok {
			panic("method call on a non-object value")
		}
		m, ok := o.Methods[in.name(v.Property)]
		if !ok {
			panic(fmt.Sprintf("unknown method %q", in.name(v.Property)))
		}
		args := make([]Value, len(v.Args))
		for i, a := range v.Args {
			args[i] = in.eval(a, env)
		}
		return in.invoke(m, args)
	case *ast.ClassInit:
		return in.evalClassInit(v, env)
	case *ast.Statements:
		return in.evalBlock(v.List, NewEnv(env))
	default:
		panic(fmt.Sprintf("interp: unsupported node %T", n))
	}
}

func namesOf(in *Interp, ids []token.SymbolID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = in.name(id)
	}
	return out
}

func (in *Interp) evalUnary(v *ast.Unary, env *Env) Value {
	operand := in.eval(v.Operand, env)
	switch v.Op {
	case ast.UnaryPlus:
		return operand
	case ast.UnaryMinus:
		switch n := operand.(type) {
		case Int:
			return -n
		case Float:
			return -n
		default:
			panic("unary '-' applied to a non-numeric value")
		}
	case ast.UnaryNot:
		b, ok := operand.(Bool)
		if !ok {
			panic("'not' applied to a non-boolean")
		}
		return !b
	}
	panic("unreachable unary operator")
}

func (in *Interp) evalBinary(v *ast.Binary, env *Env) Value {
	left := in.eval(v.Left, env)
	right := in.eval(v.Right, env)
	switch v.Op {
	case ast.BinAnd, ast.BinOr:
		lb, ok1 := left.(Bool)
		rb, ok2 := right.(Bool)
		if !ok1 || !ok2 {
			panic("boolean operator applied to non-boolean operands")
		}
		if v.Op == ast.BinAnd {
			return Bool(lb && rb)
		}
		return Bool(lb || rb)
	case ast.BinEq, ast.BinNeq:
		eq := valuesEqual(left, right)
		if v.Op == ast.BinNeq {
			eq = !eq
		}
		return Bool(eq)
	case ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		cmp := compareValues(left, right)
		switch v.Op {
		case ast.BinLt:
			return Bool(cmp < 0)
		case ast.BinLe:
			return Bool(cmp <= 0)
		case ast.BinGt:
			return Bool(cmp > 0)
		default:
			return Bool(cmp >= 0)
		}
	default:
		return arith(v.Op, left, right)
	}
}

// arith replicates internal/vm/vm.go's arith() byte for byte (same
// int×string repeat, int÷string index, int/float promotion rules) so the
// two evaluators agree on every well-typed program spec §8 compares them
// against.
func arith(op ast.BinaryOp, left, right Value) Value {
	if op == ast.BinAdd {
		if ls, ok := left.(String); ok {
			if rs, ok := right.(String); ok {
				return ls + rs
			}
		}
	}
	if op == ast.BinMul {
		if li, ok := left.(Int); ok {
			if rs, ok := right.(String); ok {
				return String(repeatString(string(rs), int64(li)))
			}
		}
		if ls, ok := left.(String); ok {
			if ri, ok := right.(Int); ok {
				return String(repeatString(string(ls), int64(ri)))
			}
		}
	}
	if op == ast.BinDiv {
		if li, ok := left.(Int); ok {
			if rs, ok := right.(String); ok {
				if len(rs) == 0 {
					panic("cannot index an empty string")
				}
				idx := int(li) % len(rs)
				if idx < 0 {
					idx += len(rs)
				}
				return Char(rune(rs[idx]))
			}
		}
	}

	li, lok := left.(Int)
	ri, rok := right.(Int)
	if lok && rok {
		switch op {
		case ast.BinAdd:
			return li + ri
		case ast.BinSub:
			return li - ri
		case ast.BinMul:
			return li * ri
		case ast.BinDiv:
			if ri == 0 {
				panic("integer division by zero")
			}
			return li / ri
		case ast.BinPow:
			return Int(int64(math.Pow(float64(li), float64(ri))))
		}
	}

	lf, lIsNum := toFloat(left)
	rf, rIsNum := toFloat(right)
	if lIsNum && rIsNum {
		switch op {
		case ast.BinAdd:
			return Float(lf + rf)
		case ast.BinSub:
			return Float(lf - rf)
		case ast.BinMul:
			return Float(lf * rf)
		case ast.BinDiv:
			if rf == 0 {
				panic("floating-point division by zero")
			}
			return Float(lf / rf)
		case ast.BinPow:
			return Float(math.Pow(lf, rf))
		}
	}
	panic(fmt.Sprintf("operator not defined for %T and %T", left, right))
}

func repeatString(s string, n int64) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	default:
		return 0, false
	}
}

func valuesEqual(a, b Value) bool {
	if a.Kind() != b.Kind() {
		panic("equality compared across different variants")
	}
	switch av := a.(type) {
	case Int:
		return av == b.(Int)
	case Float:
		return av == b.(Float)
	case Bool:
		return av == b.(Bool)
	case Char:
		return av == b.(Char)
	case String:
		return av == b.(String)
	case Null:
		return true
	default:
		panic("value variant does not support equality")
	}
}

func compareValues(a, b Value) int {
	if a.Kind() != b.Kind() {
		panic("comparison across different variants")
	}
	switch av := a.(type) {
	case Int:
		bv := b.(Int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case Float:
		bv := b.(Float)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case Char:
		return int(av) - int(b.(Char))
	case String:
		bv := b.(String)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		panic("value variant does not support ordering")
	}
}

func indexInto(arr, idx Value) Value {
	a, ok := arr.(Array)
	if !ok {
		panic("indexing a non-array value")
	}
	i, ok := idx.(Int)
	if !ok {
		panic("array index is not an int")
	}
	if int(i) < 0 || int(i) >= len(a.Elements) {
		panic("array index out of range")
	}
	return a.Elements[i]
}

// evalIf mirrors compileIf's "no matching case, no else" fallthrough: the
// VM pushes Null for that path, so this interpreter does too.
func (in *Interp) evalIf(v *ast.If, env *Env) Value {
	for _, c := range v.Cases {
		condV, ok := in.eval(c.Cond, env).(Bool)
		if !ok {
			panic("if condition is not a boolean")
		}
		if bool(condV) {
			return in.evalBlock(c.Body, NewEnv(env))
		}
	}
	if v.Else != nil {
		return in.evalBlock(v.Else, NewEnv(env))
	}
	return Null{}
}

func (in *Interp) evalWhile(v *ast.While, env *Env) Value {
	for {
		condV, ok := in.eval(v.Cond, env).(Bool)
		if !ok {
			panic("while condition is not a boolean")
		}
		if !bool(condV) {
			break
		}
		in.evalBlock(v.Body, NewEnv(env))
	}
	return Null{}
}

// evalFor replicates compileFor's desugaring exactly: bind Start, loop
// while the variable differs from End, run the body, reassign by Step.
func (in *Interp) evalFor(v *ast.For, env *Env) Value {
	loopEnv := NewEnv(env)
	name := in.name(v.Var)
	loopEnv.bind(name, in.eval(v.Start, loopEnv), true)
	for {
		cur, _ := loopEnv.lookup(name)
		end := in.eval(v.End, loopEnv)
		if valuesEqual(cur.value, end) {
			break
		}
		in.evalBlock(v.Body, NewEnv(loopEnv))
		step := in.eval(v.Step, loopEnv)
		cur.value = arith(ast.BinAdd, cur.value, step)
	}
	return Null{}
}

func (in *Interp) evalCall(v *ast.Call, env *Env) Value {
	calleeV := in.eval(v.Callee, env)
	fn, ok := calleeV.(*Func)
	if !ok {
		panic("call target is not a function")
	}
	args := make([]Value, len(v.Args))
	for i, a := range v.Args {
		args[i] = in.eval(a, env)
	}
	return in.invoke(fn, args)
}

func (in *Interp) invoke(fn *Func, args []Value) (result Value) {
	callEnv := NewEnv(fn.Env)
	for i, p := range fn.Params {
		if i < len(args) {
			callEnv.bind(p, args[i], false)
		}
	}
	if fn.Soul != "" {
		callEnv.bind(fn.Soul, fn.Receiver, false)
	}
	defer func() {
		if r := recover(); r != nil {
			if rs, ok := r.(returnSignal); ok {
				result = rs.value
				return
			}
			panic(r)
		}
	}()
	return in.evalBlock(fn.Body, callEnv)
}

// evalClassInit allocates an instance, binds each method as a closure over
// that instance via "soul" (mirroring compileClassDef/genCtorBody's
// store-the-method-on-the-instance model), fills property defaults, then
// runs the constructor body for its side effects.
func (in *Interp) evalClassInit(v *ast.ClassInit, env *Env) Value {
	cls, ok := in.classes[in.name(v.Name)]
	if !ok {
		panic(fmt.Sprintf("unknown class %q", in.name(v.Name)))
	}
	inst := Object{Fields: make(map[string]Value), Methods: make(map[string]*Func)}
	for _, m := range cls.Methods {
		inst.Methods[in.name(m.Name)] = &Func{
			Params: namesOf(in, m.Params), Body: m.Body, Env: env, Soul: "soul", Receiver: inst,
		}
	}
	for _, p := range cls.Properties {
		if p.Value != nil {
			inst.Fields[in.name(p.Name)] = in.eval(p.Value, env)
		} else {
			inst.Fields[in.name(p.Name)] = Null{}
		}
	}
	for _, m := range inst.Methods {
		m.Receiver = inst
	}
	if cls.Constructor != nil {
		ctorEnv := NewEnv(env)
		ctorEnv.bind("soul", inst, false)
		args := make([]Value, len(v.Args))
		for i, a := range v.Args {
			args[i] = in.eval(a, env)
		}
		for i, p := range cls.Constructor.Params {
			if i < len(args) {
				ctorEnv.bind(in.name(p), args[i], false)
			}
		}
		in.evalBlock(cls.Constructor.Body, ctorEnv)
	}
	return inst
}
