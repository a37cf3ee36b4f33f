package llvm

import (
	golvm "tinygo.org/x/go-llvm"

	"github.com/blazify/blazify/internal/types"
)

// zeroOf returns t's zero value. Used for a function falling off its end
// with no tail expression, and for the "no case matched, no else" branch of
// an If — spec's bytecode VM pushes a dynamic Null there (compiler.go's
// compileIf), but null has no representation in a scalar LLVM register type
// (i128, double, i1, i8), so the AOT path substitutes t's zero value
// instead; see DESIGN.md.
func (e *Emitter) zeroOf(t types.Type) golvm.Value {
	return golvm.ConstNull(e.llvmType(t))
}

// coerce widens/narrows v to target where inference leaves a numeric gap
// (an Int literal flowing into a Float-typed parameter or return slot);
// every other case is already exact-Kind by construction (unification, not
// codegen, is what proves operand types line up).
func (e *Emitter) coerce(v val, target types.Type) val {
	if v.ll.IsNil() {
		return val{ll: e.zeroOf(target), ty: target}
	}
	if v.ty.Kind == target.Kind {
		return v
	}
	switch {
	case v.ty.Kind == types.Int && target.Kind == types.Float:
		return val{ll: e.builder.CreateSIToFP(v.ll, e.ctx.DoubleType(), ""), ty: target}
	case v.ty.Kind == types.Float && target.Kind == types.Int:
		return val{ll: e.builder.CreateFPToSI(v.ll, e.ctx.IntType(128), ""), ty: target}
	default:
		return v
	}
}
