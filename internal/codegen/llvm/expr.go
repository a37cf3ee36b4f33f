package llvm

import (
	golvm "tinygo.org/x/go-llvm"

	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/types"
)

// genExpr lowers a single expression node to an SSA value, dispatching on
// the node's concrete type the way the teacher's genExpression switches on
// ast.NodeType — generalized from VSL's int/float-only operands to Blaze's
// full ground-type lattice, which inference has already resolved by the
// time codegen runs (every arithmetic/comparison operand pair reaching here
// shares the same Kind, spec §4.3's unification having already rejected
// anything else).
func (e *Emitter) genExpr(n ast.Node, fc *funcContext) (val, *diag.Diagnostic) {
	switch v := n.(type) {
	case *ast.Number:
		if v.IsFloat {
			return val{ll: golvm.ConstFloat(e.ctx.DoubleType(), v.FloatVal), ty: v.TypeOf()}, nil
		}
		return val{ll: golvm.ConstInt(e.ctx.IntType(128), uint64(v.IntVal), true), ty: v.TypeOf()}, nil

	case *ast.String:
		s := e.interner.Lookup(v.Value)
		return val{ll: e.builder.CreateGlobalStringPtr(s, ".str"), ty: v.TypeOf()}, nil

	case *ast.Char:
		return val{ll: golvm.ConstInt(e.ctx.Int8Type(), uint64(v.Value), false), ty: v.TypeOf()}, nil

	case *ast.Boolean:
		n := uint64(0)
		if v.Value {
			n = 1
		}
		return val{ll: golvm.ConstInt(e.ctx.Int1Type(), n, false), ty: v.TypeOf()}, nil

	case *ast.VarAccess:
		sv, ok := e.lookupVar(v.Name)
		if !ok {
			return val{}, e.codegenErr(v.Span(), e.name(v.Name), "unbound identifier")
		}
		return val{ll: e.builder.CreateLoad(sv.alloca, e.name(v.Name)), ty: sv.ty}, nil

	case *ast.VarAssign:
		vv, err := e.genExpr(v.Value, fc)
		if err != nil {
			return val{}, err
		}
		alloc := e.builder.CreateAlloca(e.llvmType(vv.ty), e.name(v.Name)+".addr")
		e.builder.CreateStore(vv.ll, alloc)
		e.scope[len(e.scope)-1].vars[v.Name] = scopeVar{alloca: alloc, ty: vv.ty, mutable: v.Mutable}
		return vv, nil

	case *ast.VarReassign:
		return e.genReassign(v, fc)

	case *ast.Unary:
		return e.genUnary(v, fc)

	case *ast.Binary:
		return e.genBinary(v, fc)

	case *ast.Call:
		return e.genCall(v, fc)

	case *ast.Array:
		return e.genArrayLit(v, fc)

	case *ast.Index:
		return e.genIndex(v, fc)

	case *ast.ObjectDef:
		return e.genObjectLit(v, fc)

	case *ast.ObjectPropAccess:
		return e.genPropAccess(v, fc)

	case *ast.ObjectPropEdit:
		return e.genPropEdit(v, fc)

	case *ast.ObjectMethodCall:
		return e.genMethodCall(v, fc)

	case *ast.ClassInit:
		return e.genClassInit(v, fc)

	case *ast.FunDef:
		fd, ok := e.fnByNode[v]
		if !ok {
			return val{}, e.codegenErr(v.Span(), "", "function literal was not collected")
		}
		return val{ll: fd.ll, ty: types.NewFun(fd.paramTypes, fd.retTy)}, nil

	case *ast.Statements:
		_, last, err := e.genBlock(v.List, fc)
		return last, err

	case *ast.If:
		return e.genIfExpr(v, fc)

	default:
		return val{}, e.codegenErr(n.Span(), "", "expression form not supported by the AOT backend")
	}
}

// genIfExpr evaluates an If used in expression position (e.g. `val x = if
// ... else ...`); genBlock already special-cases If used in statement
// position so it can observe the terminated flag genIf returns.
func (e *Emitter) genIfExpr(v *ast.If, fc *funcContext) (val, *diag.Diagnostic) {
	_, res, err := e.genIf(v, fc)
	return res, err
}

func (e *Emitter) genReassign(v *ast.VarReassign, fc *funcContext) (val, *diag.Diagnostic) {
	sv, ok := e.lookupVar(v.Name)
	if !ok {
		return val{}, e.codegenErr(v.Span(), e.name(v.Name), "unbound identifier")
	}
	rv, err := e.genExpr(v.Value, fc)
	if err != nil {
		return val{}, err
	}
	rv = e.coerce(rv, sv.ty)
	result := rv
	if v.Op != ast.ReassignSet {
		cur := val{ll: e.builder.CreateLoad(sv.alloca, e.name(v.Name)), ty: sv.ty}
		op := ast.BinAdd
		switch v.Op {
		case ast.ReassignAdd:
			op = ast.BinAdd
		case ast.ReassignSub:
			op = ast.BinSub
		case ast.ReassignMul:
			op = ast.BinMul
		case ast.ReassignDiv:
			op = ast.BinDiv
		}
		combined, err := e.arith(op, cur, rv, v.Span())
		if err != nil {
			return val{}, err
		}
		result = combined
	}
	e.builder.CreateStore(result.ll, sv.alloca)
	return result, nil
}

func (e *Emitter) genUnary(v *ast.Unary, fc *funcContext) (val, *diag.Diagnostic) {
	ov, err := e.genExpr(v.Operand, fc)
	if err != nil {
		return val{}, err
	}
	switch v.Op {
	case ast.UnaryPlus:
		return ov, nil
	case ast.UnaryNot:
		return val{ll: e.builder.CreateNot(ov.ll, ""), ty: ov.ty}, nil
	case ast.UnaryMinus:
		if ov.ty.Kind == types.Float {
			return val{ll: e.builder.CreateFSub(golvm.ConstFloat(e.ctx.DoubleType(), 0), ov.ll, ""), ty: ov.ty}, nil
		}
		return val{ll: e.builder.CreateSub(golvm.ConstInt(e.ctx.IntType(128), 0, false), ov.ll, ""), ty: ov.ty}, nil
	}
	return val{}, e.codegenErr(v.Span(), "", "unsupported unary operator")
}

func (e *Emitter) genBinary(v *ast.Binary, fc *funcContext) (val, *diag.Diagnostic) {
	lv, err := e.genExpr(v.Left, fc)
	if err != nil {
		return val{}, err
	}
	rv, err := e.genExpr(v.Right, fc)
	if err != nil {
		return val{}, err
	}
	switch v.Op {
	case ast.BinAnd:
		return val{ll: e.builder.CreateAnd(lv.ll, rv.ll, ""), ty: types.Ground(types.Boolean)}, nil
	case ast.BinOr:
		return val{ll: e.builder.CreateOr(lv.ll, rv.ll, ""), ty: types.Ground(types.Boolean)}, nil
	case ast.BinEq, ast.BinNeq, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		return e.compare(v.Op, lv, rv)
	default:
		return e.arith(v.Op, lv, rv, v.Span())
	}
}

// arith implements spec §4.6's ground-type arithmetic lowering: Int ops use
// the integer builder methods, Float ops the floating-point ones, and
// BinAdd over two strings concatenates via the runtime's strcat-style
// helper. Inference having already forced both operands to the same Kind
// (internal/infer/walk.go's Binary default case), the dynamic int*string /
// int/string polymorphism the bytecode VM supports (internal/vm/vm.go's
// arith()) never reaches this path — see DESIGN.md.
func (e *Emitter) arith(op ast.BinaryOp, l, r val, span diag.Span) (val, *diag.Diagnostic) {
	if l.ty.Kind == types.String {
		if op != ast.BinAdd {
			return val{}, e.codegenErr(span, "", "operator not defined for strings")
		}
		return e.genStringConcat(l, r), nil
	}
	if l.ty.Kind == types.Float {
		var res golvm.Value
		switch op {
		case ast.BinAdd:
			res = e.builder.CreateFAdd(l.ll, r.ll, "")
		case ast.BinSub:
			res = e.builder.CreateFSub(l.ll, r.ll, "")
		case ast.BinMul:
			res = e.builder.CreateFMul(l.ll, r.ll, "")
		case ast.BinDiv:
			res = e.builder.CreateFDiv(l.ll, r.ll, "")
		case ast.BinPow:
			return val{ll: e.builder.CreateCall(e.libmPow(), []golvm.Value{l.ll, r.ll}, ""), ty: l.ty}, nil
		default:
			return val{}, e.codegenErr(span, "", "operator not defined for floats")
		}
		return val{ll: res, ty: l.ty}, nil
	}

	var res golvm.Value
	switch op {
	case ast.BinAdd:
		res = e.builder.CreateAdd(l.ll, r.ll, "")
	case ast.BinSub:
		res = e.builder.CreateSub(l.ll, r.ll, "")
	case ast.BinMul:
		res = e.builder.CreateMul(l.ll, r.ll, "")
	case ast.BinDiv:
		res = e.builder.CreateSDiv(l.ll, r.ll, "")
	case ast.BinPow:
		lf := e.builder.CreateSIToFP(l.ll, e.ctx.DoubleType(), "")
		rf := e.builder.CreateSIToFP(r.ll, e.ctx.DoubleType(), "")
		powed := e.builder.CreateCall(e.libmPow(), []golvm.Value{lf, rf}, "")
		return val{ll: e.builder.CreateFPToSI(powed, e.ctx.IntType(128), ""), ty: l.ty}, nil
	default:
		return val{}, e.codegenErr(span, "", "operator not defined for this type")
	}
	return val{ll: res, ty: l.ty}, nil
}

func (e *Emitter) compare(op ast.BinaryOp, l, r val) (val, *diag.Diagnostic) {
	boolTy := types.Ground(types.Boolean)
	if l.ty.Kind == types.Float {
		pred := map[ast.BinaryOp]golvm.FloatPredicate{
			ast.BinEq: golvm.FloatOEQ, ast.BinNeq: golvm.FloatONE,
			ast.BinLt: golvm.FloatOLT, ast.BinLe: golvm.FloatOLE,
			ast.BinGt: golvm.FloatOGT, ast.BinGe: golvm.FloatOGE,
		}[op]
		return val{ll: e.builder.CreateFCmp(pred, l.ll, r.ll, ""), ty: boolTy}, nil
	}
	// Int, Boolean, Char all lower to LLVM integers of various widths;
	// signed integer comparison is correct for all three (Boolean/Char are
	// never negative so signed vs. unsigned doesn't matter).
	pred := map[ast.BinaryOp]golvm.IntPredicate{
		ast.BinEq: golvm.IntEQ, ast.BinNeq: golvm.IntNE,
		ast.BinLt: golvm.IntSLT, ast.BinLe: golvm.IntSLE,
		ast.BinGt: golvm.IntSGT, ast.BinGe: golvm.IntSGE,
	}[op]
	if l.ty.Kind == types.String {
		// String ordering compares via the runtime strcmp shim against zero.
		cmp := e.builder.CreateCall(e.libcStrcmp(), []golvm.Value{l.ll, r.ll}, "")
		return val{ll: e.builder.CreateICmp(pred, cmp, golvm.ConstInt(e.ctx.Int32Type(), 0, true), ""), ty: boolTy}, nil
	}
	return val{ll: e.builder.CreateICmp(pred, l.ll, r.ll, ""), ty: boolTy}, nil
}

// libmPow/libcStrcmp/genStringConcat declare and call the small set of libc
// helpers Blaze's string/float semantics need, the same on-demand
// extern-declaration pattern the teacher's genAtoi/genAtof use for atoi/atof.
func (e *Emitter) libmPow() golvm.Value {
	if fn := e.module.NamedFunction("pow"); !fn.IsNil() {
		return fn
	}
	ftyp := golvm.FunctionType(e.ctx.DoubleType(), []golvm.Type{e.ctx.DoubleType(), e.ctx.DoubleType()}, false)
	return golvm.AddFunction(e.module, "pow", ftyp)
}

func (e *Emitter) libcStrcmp() golvm.Value {
	if fn := e.module.NamedFunction("strcmp"); !fn.IsNil() {
		return fn
	}
	i8p := golvm.PointerType(e.ctx.Int8Type(), 0)
	ftyp := golvm.FunctionType(e.ctx.Int32Type(), []golvm.Type{i8p, i8p}, false)
	return golvm.AddFunction(e.module, "strcmp", ftyp)
}

func (e *Emitter) libcStrlen() golvm.Value {
	if fn := e.module.NamedFunction("strlen"); !fn.IsNil() {
		return fn
	}
	i8p := golvm.PointerType(e.ctx.Int8Type(), 0)
	ftyp := golvm.FunctionType(e.ctx.Int64Type(), []golvm.Type{i8p}, false)
	return golvm.AddFunction(e.module, "strlen", ftyp)
}

func (e *Emitter) libcStrcpy() golvm.Value {
	if fn := e.module.NamedFunction("strcpy"); !fn.IsNil() {
		return fn
	}
	i8p := golvm.PointerType(e.ctx.Int8Type(), 0)
	ftyp := golvm.FunctionType(i8p, []golvm.Type{i8p, i8p}, false)
	return golvm.AddFunction(e.module, "strcpy", ftyp)
}

func (e *Emitter) libcStrcat() golvm.Value {
	if fn := e.module.NamedFunction("strcat"); !fn.IsNil() {
		return fn
	}
	i8p := golvm.PointerType(e.ctx.Int8Type(), 0)
	ftyp := golvm.FunctionType(i8p, []golvm.Type{i8p, i8p}, false)
	return golvm.AddFunction(e.module, "strcat", ftyp)
}

// genStringConcat mallocs len(l)+len(r)+1 bytes, strcpy's the left operand
// in and strcat's the right, mirroring the VM's `ls + rs` string-value
// concatenation (internal/vm/vm.go's arith()) at the pointer level.
func (e *Emitter) genStringConcat(l, r val) val {
	ll := e.builder.CreateCall(e.libcStrlen(), []golvm.Value{l.ll}, "")
	lr := e.builder.CreateCall(e.libcStrlen(), []golvm.Value{r.ll}, "")
	total := e.builder.CreateAdd(ll, lr, "")
	total = e.builder.CreateAdd(total, golvm.ConstInt(e.ctx.Int64Type(), 1, false), "")
	buf := e.builder.CreateCall(e.mallocFn(), []golvm.Value{total}, "")
	e.builder.CreateCall(e.libcStrcpy(), []golvm.Value{buf, l.ll}, "")
	e.builder.CreateCall(e.libcStrcat(), []golvm.Value{buf, r.ll}, "")
	return val{ll: buf, ty: types.Ground(types.String)}
}
