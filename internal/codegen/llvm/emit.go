package llvm

import (
	golvm "tinygo.org/x/go-llvm"

	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/token"
	"github.com/blazify/blazify/internal/types"
)

// Emit lowers a fully type-checked program to an object file at outPath for
// the host triple, running the same genFuncHeader/genFuncBody-then-optimize
// sequence the teacher's GenLLVM drives, plus the synthesized main() spec
// §4.6 requires every Blaze program gets (a single i32-returning entry
// point, since Blaze source has no explicit `fun main`).
func Emit(interner *token.Interner, prog []ast.Node, moduleName, outPath string) *diag.Diagnostic {
	e := New(interner, moduleName)
	defer e.Dispose()

	mainBody, err := e.collect(prog)
	if err != nil {
		return err
	}
	if err := e.genHeaders(); err != nil {
		return err
	}
	if err := e.genBodies(); err != nil {
		return err
	}
	if err := e.genMain(mainBody); err != nil {
		return err
	}
	e.optimize()
	return e.writeObjectFile(outPath)
}

// genMain wraps the program's top-level statements (everything collect
// didn't lift out as a function/class/extern) in the process entry point.
func (e *Emitter) genMain(body []ast.Node) *diag.Diagnostic {
	ftyp := golvm.FunctionType(e.ctx.Int32Type(), nil, false)
	mainFn := golvm.AddFunction(e.module, "main", ftyp)

	bb := e.ctx.AddBasicBlock(mainFn, "entry")
	e.builder.SetInsertPointAtEnd(bb)
	e.pushScope(&scopeFrame{vars: make(map[token.SymbolID]scopeVar)})
	defer e.popScope()

	fc := &funcContext{fn: mainFn, retTy: types.Ground(types.Int)}
	terminated, _, err := e.genBlock(body, fc)
	if err != nil {
		return err
	}
	if !terminated {
		e.builder.CreateRet(golvm.ConstInt(e.ctx.Int32Type(), 0, false))
	}
	return nil
}
