package infer

import (
	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/types"
)

// walk performs annotation (allocating a fresh type variable for every
// expression) and constraint collection together in a single recursive
// pass, per node, rather than as the two separate tree-walks spec §4.3
// describes for "Annotation (C5a)" and "Constraint collection (C5b)": both
// need the same scope-aware traversal, and folding them together avoids a
// redundant walk while emitting exactly the constraints spec §4.3's table
// names (see SPEC_FULL.md). Solving (C5c) remains its own separate phase
// over the resulting constraint list.
func (e *Engine) walk(n ast.Node, sc *scope) types.Type {
	t := e.fresh()
	n.SetType(t)

	switch v := n.(type) {
	case *ast.Number:
		if v.IsFloat {
			e.constrain(t, types.Ground(types.Float), v.Span())
		} else {
			e.constrain(t, types.Ground(types.Int), v.Span())
		}
	case *ast.String:
		e.constrain(t, types.Ground(types.String), v.Span())
	case *ast.Char:
		e.constrain(t, types.Ground(types.Char), v.Span())
	case *ast.Boolean:
		e.constrain(t, types.Ground(types.Boolean), v.Span())

	case *ast.VarAccess:
		if bound, ok := sc.lookup(v.Name); ok {
			e.constrain(t, bound, v.Span())
		} else {
			e.constrain(t, e.fresh(), v.Span()) // unbound: surfaces later as a free variable
		}

	case *ast.VarAssign:
		vt := e.walk(v.Value, sc)
		e.constrain(t, vt, v.Span())
		sc.bind(v.Name, t)

	case *ast.VarReassign:
		prev, ok := sc.lookup(v.Name)
		if !ok {
			prev = e.fresh()
		}
		vt := e.walk(v.Value, sc)
		e.constrain(prev, vt, v.Span())
		e.constrain(t, prev, v.Span())

	case *ast.Unary:
		ot := e.walk(v.Operand, sc)
		if v.Op == ast.UnaryNot {
			e.constrain(t, types.Ground(types.Boolean), v.Span())
			e.constrain(ot, types.Ground(types.Boolean), v.Span())
		} else {
			e.constrain(t, ot, v.Span())
		}

	case *ast.Binary:
		lt := e.walk(v.Left, sc)
		rt := e.walk(v.Right, sc)
		switch v.Op {
		case ast.BinAnd, ast.BinOr:
			e.constrain(lt, types.Ground(types.Boolean), v.Span())
			e.constrain(rt, types.Ground(types.Boolean), v.Span())
			e.constrain(t, types.Ground(types.Boolean), v.Span())
		case ast.BinEq, ast.BinNeq, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
			e.constrain(lt, rt, v.Span())
			e.constrain(t, types.Ground(types.Boolean), v.Span())
		default: // arithmetic, including Pow
			e.constrain(lt, rt, v.Span())
			e.constrain(t, lt, v.Span())
		}

	case *ast.If:
		for _, c := range v.Cases {
			ct := e.walk(c.Cond, sc)
			e.constrain(ct, types.Ground(types.Boolean), c.Cond.Span())
			bodyScope := newScope(sc)
			bt := e.walkBlock(c.Body, bodyScope)
			e.constrain(t, bt, v.Span())
		}
		if v.Else != nil {
			elseScope := newScope(sc)
			et := e.walkBlock(v.Else, elseScope)
			e.constrain(t, et, v.Span())
		}

	case *ast.While:
		ct := e.walk(v.Cond, sc)
		e.constrain(ct, types.Ground(types.Boolean), v.Cond.Span())
		bodyScope := newScope(sc)
		e.walkBlock(v.Body, bodyScope)
		e.constrain(t, types.Ground(types.Null), v.Span())

	case *ast.For:
		st := e.walk(v.Start, sc)
		et := e.walk(v.End, sc)
		stept := e.walk(v.Step, sc)
		e.constrain(st, et, v.Span())
		e.constrain(st, stept, v.Span())
		bodyScope := newScope(sc)
		bodyScope.bind(v.Var, st)
		e.walkBlock(v.Body, bodyScope)
		e.constrain(t, types.Ground(types.Null), v.Span())

	case *ast.FunDef:
		paramTypes := make([]types.Type, len(v.Params))
		for i := range v.Params {
			paramTypes[i] = e.fresh()
		}
		retType := e.fresh()
		funType := types.NewFun(paramTypes, retType)
		if v.Named {
			sc.bind(v.Name, funType) // bound before the body so recursion resolves
		}
		bodyScope := newScope(sc)
		bodyScope.fnReturn = &retType
		for i, p := range v.Params {
			bodyScope.bind(p, paramTypes[i])
		}
		bodyType := e.walkBlock(v.Body, bodyScope)
		// A body with no explicit `return` yields its tail expression's
		// value, mirroring the bytecode compiler's "return compiles
		// identically to a bare expr" convention (spec §4.4/§4.5).
		e.constrain(retType, bodyType, v.Span())
		e.constrain(t, funType, v.Span())

	case *ast.Call:
		ct := e.walk(v.Callee, sc)
		argTypes := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			argTypes[i] = e.walk(a, sc)
		}
		e.constrain(ct, types.NewFun(argTypes, t), v.Span())

	case *ast.Return:
		if v.Value != nil {
			vt := e.walk(v.Value, sc)
			if sc.fnReturn != nil {
				e.constrain(*sc.fnReturn, vt, v.Span())
			}
			e.constrain(t, vt, v.Span())
		} else if sc.fnReturn != nil {
			e.constrain(*sc.fnReturn, types.Ground(types.Null), v.Span())
		}

	case *ast.Array:
		var elemType types.Type
		if len(v.Elements) > 0 {
			elemType = e.walk(v.Elements[0], sc)
			for _, el := range v.Elements[1:] {
				et := e.walk(el, sc)
				e.constrain(elemType, et, el.Span())
			}
		} else {
			elemType = e.fresh()
		}
		n := len(v.Elements)
		e.constrain(t, types.NewArray(elemType, &n), v.Span())

	case *ast.Index:
		at := e.walk(v.Array, sc)
		it := e.walk(v.Idx, sc)
		e.constrain(it, types.Ground(types.Int), v.Idx.Span())
		e.constrain(at, types.NewArray(t, nil), v.Span())

	case *ast.ObjectDef:
		fields := make(map[string]types.Type, len(v.Properties))
		for _, f := range v.Properties {
			fields[e.name(f.Name)] = e.walk(f.Value, sc)
		}
		e.constrain(t, types.NewObject(fields), v.Span())

	case *ast.ObjectPropAccess:
		ot := e.walk(v.Object, sc)
		e.constrainAccess(ot, types.NewObject(map[string]types.Type{e.name(v.Property): t}), v.Span())

	case *ast.ObjectPropEdit:
		ot := e.walk(v.Object, sc)
		vt := e.walk(v.NewValue, sc)
		e.constrain(t, vt, v.Span())
		e.constrainAccess(ot, types.NewObject(map[string]types.Type{e.name(v.Property): vt}), v.Span())

	case *ast.ObjectMethodCall:
		ot := e.walk(v.Object, sc)
		argTypes := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			argTypes[i] = e.walk(a, sc)
		}
		methodType := types.NewFun(argTypes, t)
		e.constrainAccess(ot, types.NewObject(map[string]types.Type{e.name(v.Property): methodType}), v.Span())

	case *ast.ClassDef:
		fields := make(map[string]types.Type, len(v.Properties)+len(v.Methods))
		classScope := newScope(sc)
		for _, f := range v.Properties {
			if f.Value != nil {
				fields[e.name(f.Name)] = e.walk(f.Value, classScope)
			} else {
				fields[e.name(f.Name)] = e.fresh()
			}
		}
		for _, m := range v.Methods {
			paramTypes := make([]types.Type, len(m.Params))
			for i := range m.Params {
				paramTypes[i] = e.fresh()
			}
			retType := e.fresh()
			methodScope := newScope(classScope)
			methodScope.fnReturn = &retType
			// fields is the same map on every iteration, still being
			// appended to below as later methods are walked, so soul's
			// bound Class type sees every sibling method (not just the
			// ones already processed) once its Fields map is read back.
			methodScope.bind(e.interner.Intern("soul"), types.NewClass(types.NewObject(fields)))
			for i, p := range m.Params {
				methodScope.bind(p, paramTypes[i])
			}
			methodBodyType := e.walkBlock(m.Body, methodScope)
			e.constrain(retType, methodBodyType, v.Span())
			fields[e.name(m.Name)] = types.NewFun(paramTypes, retType)
		}
		classType := types.NewClass(types.NewObject(fields))
		// Every class is constructible via `new`, whether or not it
		// declares an explicit constructor body (the bytecode compiler
		// always synthesizes one, §4.4); bind the class name to a
		// zero-arity constructor type unless an explicit one overrides it.
		var ctorParamTypes []types.Type
		if v.Constructor != nil {
			ctorParamTypes = make([]types.Type, len(v.Constructor.Params))
			for i := range v.Constructor.Params {
				ctorParamTypes[i] = e.fresh()
			}
			ctorScope := newScope(classScope)
			ctorScope.bind(e.interner.Intern("soul"), classType)
			for i, p := range v.Constructor.Params {
				ctorScope.bind(p, ctorParamTypes[i])
			}
			e.walkBlock(v.Constructor.Body, ctorScope)
		}
		sc.bind(v.Name, types.NewFun(ctorParamTypes, classType))
		e.constrain(t, classType, v.Span())

	case *ast.ClassInit:
		ctorType, ok := sc.lookup(v.Name)
		if !ok {
			ctorType = e.fresh()
		}
		argTypes := make([]types.Type, len(v.Args))
		for i, a := range v.Args {
			argTypes[i] = e.walk(a, sc)
		}
		e.constrain(ctorType, types.NewFun(argTypes, t), v.Span())

	case *ast.Extern:
		params := make([]types.Type, len(v.ArgTypes))
		for i, k := range v.ArgTypes {
			params[i] = typeExprKind(k)
		}
		e.constrain(t, types.NewFun(params, typeExprKind(v.ReturnType)), v.Span())
		sc.bind(v.Name, t)

	case *ast.Statements:
		bt := e.walkBlock(v.List, sc)
		e.constrain(t, bt, v.Span())
	}

	return t
}

// walkBlock infers every statement in a block in order and returns the type
// of the block's last statement (blocks are expressions, matching If/Fun
// bodies being usable as values per the AST's block-based control flow).
func (e *Engine) walkBlock(body []ast.Node, sc *scope) types.Type {
	var last types.Type = types.Ground(types.Null)
	for _, stmt := range body {
		last = e.walk(stmt, sc)
	}
	return last
}

func (e *Engine) name(id token.SymbolID) string { return e.interner.Lookup(id) }

func typeExprKind(k ast.TypeExprKind) types.Type {
	switch k {
	case ast.TypeInt:
		return types.Ground(types.Int)
	case ast.TypeFloat:
		return types.Ground(types.Float)
	case ast.TypeBool:
		return types.Ground(types.Boolean)
	case ast.TypeString:
		return types.Ground(types.String)
	case ast.TypeChar:
		return types.Ground(types.Char)
	default:
		return types.Ground(types.Null)
	}
}
