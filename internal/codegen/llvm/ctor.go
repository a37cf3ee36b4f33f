package llvm

import (
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/token"
)

// genCtorBody generates a class's constructor: allocate the instance on the
// heap, wire every method slot to its mangled function, fill property slots
// with their declared defaults, bind "soul" to the new instance the same
// way a method's implicit receiver is bound, then run the constructor body
// for its side effects (internal/bytecode/compiler.go's ClassDef case does
// the equivalent push-soul/run-body/push-soul-back sequence on the VM).
func (e *Emitter) genCtorBody(fd *funcDecl) *diag.Diagnostic {
	bb := e.ctx.AddBasicBlock(fd.ll, "entry")
	e.builder.SetInsertPointAtEnd(bb)

	frame := &scopeFrame{vars: make(map[token.SymbolID]scopeVar)}
	e.pushScope(frame)
	defer e.popScope()

	llParams := fd.ll.Params()
	for i, p := range fd.params {
		pv := llParams[i]
		alloc := e.builder.CreateAlloca(pv.Type(), e.name(p)+".addr")
		e.builder.CreateStore(pv, alloc)
		frame.vars[p] = scopeVar{alloca: alloc, ty: fd.paramTypes[i], mutable: false}
	}

	classTy := fd.retTy
	structTy := e.objectStructType(classTy)
	objPtr := e.allocObject(structTy)

	fc := &funcContext{fn: fd.ll, classOf: fd.owner, retTy: classTy}

	for _, m := range fd.owner.Methods {
		methodFd := e.methods[fd.owner.Name][m.Name]
		slot := fieldIndex(classTy.Fields, e.name(m.Name))
		e.builder.CreateStore(methodFd.ll, e.gepField(objPtr, slot))
	}
	for _, p := range fd.owner.Properties {
		slot := fieldIndex(classTy.Fields, e.name(p.Name))
		fieldTy := classTy.Fields[e.name(p.Name)]
		if p.Value != nil {
			pv, err := e.genExpr(p.Value, fc)
			if err != nil {
				return err
			}
			e.builder.CreateStore(e.coerce(pv, fieldTy).ll, e.gepField(objPtr, slot))
		} else {
			e.builder.CreateStore(e.zeroOf(fieldTy), e.gepField(objPtr, slot))
		}
	}

	soulSym := e.interner.Intern("soul")
	soulAlloc := e.builder.CreateAlloca(objPtr.Type(), "soul.addr")
	e.builder.CreateStore(objPtr, soulAlloc)
	frame.vars[soulSym] = scopeVar{alloca: soulAlloc, ty: classTy, mutable: false}

	terminated, _, err := e.genBlock(fd.body, fc)
	if err != nil {
		return err
	}
	if !terminated {
		e.builder.CreateRet(e.builder.CreateLoad(soulAlloc, ""))
	}
	return nil
}
