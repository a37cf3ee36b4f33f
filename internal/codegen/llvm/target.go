package llvm

import (
	"fmt"
	"os"

	golvm "tinygo.org/x/go-llvm"

	"github.com/blazify/blazify/internal/diag"
)

// optimize runs the function-level pass pipeline spec §4.6 specifies over
// every function in the module: instruction combining and reassociation to
// canonicalize arithmetic, GVN and CFG simplification to remove redundant
// work the straightforward alloca-per-variable/alloca-per-if-result
// lowering above introduces, mem2reg to promote those allocas into SSA
// registers, then a second instcombine/reassociate pass to clean up what
// mem2reg exposes. Grounded on llvm.org/bindings/go/llvm's
// NewFunctionPassManagerForModule, the same pass-manager type the teacher's
// module builds target machines from (transform.go's tm/td setup).
func (e *Emitter) optimize() {
	pm := golvm.NewFunctionPassManagerForModule(e.module)
	defer pm.Dispose()

	pm.AddInstructionCombiningPass()
	pm.AddReassociatePass()
	pm.AddGVNPass()
	pm.AddCFGSimplificationPass()
	pm.AddBasicAliasAnalysisPass()
	pm.AddPromoteMemoryToRegisterPass()
	pm.AddInstructionCombiningPass()
	pm.AddReassociatePass()

	pm.InitializeFunc()
	for fn := e.module.FirstFunction(); !fn.IsNil(); fn = golvm.NextFunction(fn) {
		pm.RunFunc(fn)
	}
	pm.FinalizeFunc()
}

// writeObjectFile mirrors the teacher's target-machine setup (transform.go,
// the tail of GenLLVM): initialize the native target, resolve the host
// triple, build a TargetMachine at the default (no cross-compilation flag
// in Blaze's driver surface, unlike the teacher's -target option) code-gen
// level, stamp the module's data layout/target from it, and emit an object
// file.
func (e *Emitter) writeObjectFile(outPath string) *diag.Diagnostic {
	golvm.InitializeAllTargetInfos()
	golvm.InitializeAllTargetMCs()
	golvm.InitializeAllAsmParsers()
	golvm.InitializeAllAsmPrinters()

	triple := golvm.DefaultTargetTriple()
	target, err := golvm.GetTargetFromTriple(triple)
	if err != nil {
		return e.codegenErr(diag.Span{}, "", fmt.Sprintf("resolving target triple %q: %v", triple, err))
	}

	tm := target.CreateTargetMachine(triple, "generic", "",
		golvm.CodeGenLevelDefault, golvm.RelocDefault, golvm.CodeModelDefault)
	defer tm.Dispose()

	td := tm.CreateTargetData()
	defer td.Dispose()
	e.module.SetDataLayout(td.String())
	e.module.SetTarget(tm.Triple())

	buf, err := tm.EmitToMemoryBuffer(e.module, golvm.ObjectFile)
	if err != nil {
		return e.codegenErr(diag.Span{}, "", fmt.Sprintf("emitting object code: %v", err))
	}
	if buf.IsNil() {
		return e.codegenErr(diag.Span{}, "", "target machine produced no object code")
	}

	fd, ferr := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if ferr != nil {
		return diag.New(diag.IOError, diag.Span{}, outPath, ferr.Error())
	}
	defer fd.Close()
	if _, ferr := fd.Write(buf.Bytes()); ferr != nil {
		return diag.New(diag.IOError, diag.Span{}, outPath, ferr.Error())
	}
	return nil
}
