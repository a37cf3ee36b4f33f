package llvm

import (
	golvm "tinygo.org/x/go-llvm"

	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/types"
)

// mallocFn declares (once per module) the libc malloc Blaze's heap-allocated
// arrays, objects and class instances are built from, the same lazy
// extern-declaration idiom the teacher's genAtoi/genAtof use.
func (e *Emitter) mallocFn() golvm.Value {
	if fn := e.module.NamedFunction("malloc"); !fn.IsNil() {
		return fn
	}
	ftyp := golvm.FunctionType(golvm.PointerType(e.ctx.Int8Type(), 0), []golvm.Type{e.ctx.Int64Type()}, false)
	return golvm.AddFunction(e.module, "malloc", ftyp)
}

// sizeOfType computes a runtime i64 byte size for t via the classic
// null-pointer-GEP idiom (index 1 off a null pointer of the target type,
// then ptrtoint) — the portable way to ask LLVM for a type's size without a
// TargetData handle at IR-construction time.
func (e *Emitter) sizeOfType(t golvm.Type) golvm.Value {
	null := golvm.ConstNull(golvm.PointerType(t, 0))
	one := golvm.ConstInt(e.ctx.Int32Type(), 1, false)
	sizePtr := golvm.ConstGEP(null, []golvm.Value{one})
	return golvm.ConstPtrToInt(sizePtr, e.ctx.Int64Type())
}

// gepField indexes into a heap object pointer at the given 0-based struct
// slot (slot 0 is always the alignment tag; property slots start at 1, per
// fieldIndex/objectStructType in emitter.go).
func (e *Emitter) gepField(objPtr golvm.Value, slot int) golvm.Value {
	indices := []golvm.Value{
		golvm.ConstInt(e.ctx.Int32Type(), 0, false),
		golvm.ConstInt(e.ctx.Int32Type(), uint64(slot), false),
	}
	return e.builder.CreateGEP(objPtr, indices, "")
}

// allocObject mallocs and bitcasts a pointer-to-structTy, stamping the
// alignment tag into slot 0, the object layout spec §4.6 and §5 describe.
func (e *Emitter) allocObject(structTy golvm.Type) golvm.Value {
	raw := e.builder.CreateCall(e.mallocFn(), []golvm.Value{e.sizeOfType(structTy)}, "")
	ptr := e.builder.CreateBitCast(raw, golvm.PointerType(structTy, 0), "")
	tagPtr := e.gepField(ptr, 0)
	e.builder.CreateStore(golvm.ConstInt(e.ctx.Int64Type(), uint64(e.nextAlignTag()), false), tagPtr)
	return ptr
}

func (e *Emitter) genArrayLit(v *ast.Array, fc *funcContext) (val, *diag.Diagnostic) {
	ty := v.TypeOf()
	arrTy := e.llvmType(ty)
	ptr := e.builder.CreateAlloca(arrTy, "arr")
	for i, elNode := range v.Elements {
		ev, err := e.genExpr(elNode, fc)
		if err != nil {
			return val{}, err
		}
		ev = e.coerce(ev, *ty.Elem)
		idx := []golvm.Value{
			golvm.ConstInt(e.ctx.Int32Type(), 0, false),
			golvm.ConstInt(e.ctx.Int32Type(), uint64(i), false),
		}
		e.builder.CreateStore(ev.ll, e.builder.CreateGEP(ptr, idx, ""))
	}
	return val{ll: e.builder.CreateLoad(ptr, "arr.val"), ty: ty}, nil
}

func (e *Emitter) genIndex(v *ast.Index, fc *funcContext) (val, *diag.Diagnostic) {
	av, err := e.genExpr(v.Array, fc)
	if err != nil {
		return val{}, err
	}
	iv, err := e.genExpr(v.Idx, fc)
	if err != nil {
		return val{}, err
	}
	ptr := e.builder.CreateAlloca(e.llvmType(av.ty), "idx.base")
	e.builder.CreateStore(av.ll, ptr)
	indices := []golvm.Value{golvm.ConstInt(e.ctx.Int32Type(), 0, false), iv.ll}
	elemPtr := e.builder.CreateGEP(ptr, indices, "")
	return val{ll: e.builder.CreateLoad(elemPtr, ""), ty: *av.ty.Elem}, nil
}

// genObjectLit builds an anonymous `{...}` literal as a heap object,
// matching the way a class instance is laid out (tag, then sorted fields)
// so ObjectPropAccess/Edit work identically for both.
func (e *Emitter) genObjectLit(v *ast.ObjectDef, fc *funcContext) (val, *diag.Diagnostic) {
	ty := v.TypeOf()
	structTy := e.objectStructType(ty)
	ptr := e.allocObject(structTy)
	for _, f := range v.Properties {
		fv, err := e.genExpr(f.Value, fc)
		if err != nil {
			return val{}, err
		}
		name := e.name(f.Name)
		slot := fieldIndex(ty.Fields, name)
		fv = e.coerce(fv, ty.Fields[name])
		e.builder.CreateStore(fv.ll, e.gepField(ptr, slot))
	}
	return val{ll: ptr, ty: ty}, nil
}

func (e *Emitter) genPropAccess(v *ast.ObjectPropAccess, fc *funcContext) (val, *diag.Diagnostic) {
	ov, err := e.genExpr(v.Object, fc)
	if err != nil {
		return val{}, err
	}
	name := e.name(v.Property)
	slot := fieldIndex(ov.ty.Fields, name)
	if slot < 0 {
		return val{}, e.codegenErr(v.Span(), name, "unknown property")
	}
	fieldTy := ov.ty.Fields[name]
	return val{ll: e.builder.CreateLoad(e.gepField(ov.ll, slot), name), ty: fieldTy}, nil
}

func (e *Emitter) genPropEdit(v *ast.ObjectPropEdit, fc *funcContext) (val, *diag.Diagnostic) {
	ov, err := e.genExpr(v.Object, fc)
	if err != nil {
		return val{}, err
	}
	nv, err := e.genExpr(v.NewValue, fc)
	if err != nil {
		return val{}, err
	}
	name := e.name(v.Property)
	slot := fieldIndex(ov.ty.Fields, name)
	if slot < 0 {
		return val{}, e.codegenErr(v.Span(), name, "unknown property")
	}
	nv = e.coerce(nv, ov.ty.Fields[name])
	e.builder.CreateStore(nv.ll, e.gepField(ov.ll, slot))
	return nv, nil
}

// genMethodCall loads the method's function pointer out of the object's own
// struct slot (stored there by the constructor, see genCtorBody) and calls
// it with the object itself as the implicit first (soul) argument — the
// LLVM-level analogue of the bytecode method call, which pushes the args,
// then the object as soul, then the looked-up method
// (internal/bytecode/compiler.go's ObjectMethodCall case).
func (e *Emitter) genMethodCall(v *ast.ObjectMethodCall, fc *funcContext) (val, *diag.Diagnostic) {
	ov, err := e.genExpr(v.Object, fc)
	if err != nil {
		return val{}, err
	}
	name := e.name(v.Property)
	methodTy, ok := ov.ty.Fields[name]
	if !ok || methodTy.Kind != types.Fun {
		return val{}, e.codegenErr(v.Span(), name, "unknown method")
	}
	slot := fieldIndex(ov.ty.Fields, name)
	methodPtr := e.builder.CreateLoad(e.gepField(ov.ll, slot), name)

	args := make([]golvm.Value, 0, len(v.Args)+1)
	args = append(args, ov.ll)
	for i, a := range v.Args {
		av, err := e.genExpr(a, fc)
		if err != nil {
			return val{}, err
		}
		if i < len(methodTy.Params) {
			av = e.coerce(av, methodTy.Params[i])
		}
		args = append(args, av.ll)
	}
	result := e.builder.CreateCall(methodPtr, args, "")
	retTy := types.Ground(types.Null)
	if methodTy.Ret != nil {
		retTy = *methodTy.Ret
	}
	return val{ll: result, ty: retTy}, nil
}

// genClassInit calls the class's constructor funcDecl (registered by
// registerClass), which allocates and returns the new instance itself.
func (e *Emitter) genClassInit(v *ast.ClassInit, fc *funcContext) (val, *diag.Diagnostic) {
	ctorFd, ok := e.ctors[v.Name]
	if !ok {
		return val{}, e.codegenErr(v.Span(), e.name(v.Name), "unknown class")
	}
	args := make([]golvm.Value, len(v.Args))
	for i, a := range v.Args {
		av, err := e.genExpr(a, fc)
		if err != nil {
			return val{}, err
		}
		if i < len(ctorFd.paramTypes) {
			av = e.coerce(av, ctorFd.paramTypes[i])
		}
		args[i] = av.ll
	}
	result := e.builder.CreateCall(ctorFd.ll, args, "")
	return val{ll: result, ty: ctorFd.retTy}, nil
}
