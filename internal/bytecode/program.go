package bytecode

// SymIdx is a compiler-local 16-bit symbol index (spec §4.4: "Identifiers
// are interned to 16-bit symbol indices via a compiler-local table; index 0
// is reserved"). The index space is shared by every ByteCode compiled in one
// Compile call, including nested function bodies, so a function's captured
// outer-scope symbols and its own parameters address the same space (spec
// §4.5).
type SymIdx uint16

// Const is one constant-pool entry. Scalars (numbers, strings, functions)
// are immediately usable Values; arrays and objects are stored as small
// per-element/per-field programs because their contents can be arbitrary
// expressions, not just literals (spec §4.4: "an array is [ByteCode…]; an
// object is map<sym-idx, ByteCode>").
type Const interface{ isConst() }

// ConstValue is a constant that needs no further evaluation: it is pushed
// verbatim by OpConstant.
type ConstValue struct{ V Value }

func (ConstValue) isConst() {}

// ConstArray holds one sub-program per array element; OpConstant runs each
// to completion and collects the results into a runtime Array.
type ConstArray struct{ Elements []*ByteCode }

func (ConstArray) isConst() {}

// ConstObject holds one sub-program per field; OpConstant runs each to
// completion and collects the results into a runtime Object.
type ConstObject struct{ Fields map[SymIdx]*ByteCode }

func (ConstObject) isConst() {}

// ByteCode is one compiled program: a flat instruction stream plus the
// constant pool it indexes into, matching the teacher's ir/lir.ByteCode
// pairing of an instruction slice with a constant table. Symbols is the
// compiler-wide symbol table (spec §4.4/§6: "(bytecode, sym-table)"),
// populated only on the top-level ByteCode Compile returns — nested
// function/array/object sub-programs address the same shared index space
// (spec §4.5) and so don't carry their own copy.
type ByteCode struct {
	Code    []byte
	Consts  []Const
	Symbols map[SymIdx]string
}
