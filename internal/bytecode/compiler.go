package bytecode

import (
	"encoding/binary"

	"github.com/blazify/blazify/internal/ast"
	"github.com/blazify/blazify/internal/diag"
	"github.com/blazify/blazify/internal/token"
)

// soulName is the identifier spec §3 reserves for a method's implicit
// receiver.
const soulName = "soul"

// Compiler walks a type-checked AST and emits a flat instruction stream plus
// a constant pool, per the opcode table and compilation rules of spec §4.4.
type Compiler struct {
	interner *token.Interner
	symbols  *SymbolTable
	code     []byte
	consts   []Const
}

// New returns a Compiler with a fresh, compiler-wide symbol table.
func New(interner *token.Interner) *Compiler {
	return &Compiler{interner: interner, symbols: NewSymbolTable()}
}

// childCompiler returns a Compiler for a nested function/method/constructor
// body that shares this Compiler's symbol table — spec §4.5 relies on the
// symbol-index space being compiler-wide so a function's captured outer
// scope and its own locals share one indexing scheme.
func (c *Compiler) childCompiler() *Compiler {
	return &Compiler{interner: c.interner, symbols: c.symbols}
}

// Compile compiles a full program into one top-level ByteCode. The final
// top-level statement's value is left on the stack as the program's result
// (every earlier statement is compiled for its side effects and popped).
func Compile(interner *token.Interner, prog []ast.Node) (*ByteCode, *diag.Diagnostic) {
	c := New(interner)
	if err := c.compileBlockValue(prog); err != nil {
		return nil, err
	}
	return &ByteCode{Code: c.code, Consts: c.consts, Symbols: c.symbols.names(interner)}, nil
}

func (c *Compiler) emit(op Op) int {
	c.code = append(c.code, byte(op))
	return len(c.code) - 1
}

func (c *Compiler) emitOperand(op Op, operand uint16) int {
	pos := len(c.code)
	c.code = append(c.code, byte(op), 0, 0)
	binary.BigEndian.PutUint16(c.code[pos+1:pos+3], operand)
	return pos
}

// patchOperand rewrites the operand of the 3-byte instruction starting at
// pos to the current end of the instruction stream, used for forward jumps
// whose target is only known once the jumped-over code has been emitted.
func (c *Compiler) patchOperand(pos int) {
	binary.BigEndian.PutUint16(c.code[pos+1:pos+3], uint16(len(c.code)))
}

func (c *Compiler) addConst(k Const) uint16 {
	c.consts = append(c.consts, k)
	return uint16(len(c.consts) - 1)
}

func (c *Compiler) pushValueConst(v Value) {
	c.emitOperand(OpConstant, c.addConst(ConstValue{V: v}))
}

func (c *Compiler) pushNull() { c.pushValueConst(Null{}) }

func (c *Compiler) symIdx(name token.SymbolID) SymIdx { return c.symbols.Index(name) }

// compileBlockValue compiles body so that exactly one value — the last
// statement's — remains on the stack, matching the AST's block-as-expression
// convention (if/fun bodies evaluate to their last statement).
func (c *Compiler) compileBlockValue(body []ast.Node) *diag.Diagnostic {
	if len(body) == 0 {
		c.pushNull()
		return nil
	}
	for _, stmt := range body[:len(body)-1] {
		if err := c.compileExpr(stmt); err != nil {
			return err
		}
		c.emit(OpPop)
	}
	return c.compileExpr(body[len(body)-1])
}

// compileBlockVoid compiles body purely for side effects, leaving nothing on
// the stack, used for while/for bodies and class constructor bodies.
func (c *Compiler) compileBlockVoid(body []ast.Node) *diag.Diagnostic {
	for _, stmt := range body {
		if err := c.compileExpr(stmt); err != nil {
			return err
		}
		c.emit(OpPop)
	}
	return nil
}

// compileExpr compiles n so that it leaves exactly one value on the stack.
func (c *Compiler) compileExpr(n ast.Node) *diag.Diagnostic {
	switch v := n.(type) {
	case *ast.Number:
		if v.IsFloat {
			c.pushValueConst(Float(v.FloatVal))
		} else {
			c.pushValueConst(Int(v.IntVal))
		}
	case *ast.String:
		c.pushValueConst(String(c.interner.Lookup(v.Value)))
	case *ast.Char:
		c.pushValueConst(Char(v.Value))
	case *ast.Boolean:
		c.pushValueConst(Bool(v.Value))

	case *ast.VarAccess:
		c.emitOperand(OpVarAccess, uint16(c.symIdx(v.Name)))

	case *ast.VarAssign:
		c.pushValueConst(Bool(v.Mutable))
		if err := c.compileExpr(v.Value); err != nil {
			return err
		}
		idx := c.symIdx(v.Name)
		c.emitOperand(OpVarAssign, uint16(idx))
		// VarAssign has stack effect -2 +0; the AST treats assignment as an
		// expression (its value is the assigned value), so read it back.
		c.emitOperand(OpVarAccess, uint16(idx))

	case *ast.VarReassign:
		idx := c.symIdx(v.Name)
		if v.Op != ast.ReassignSet {
			c.emitOperand(OpVarAccess, uint16(idx))
			if err := c.compileExpr(v.Value); err != nil {
				return err
			}
			switch v.Op {
			case ast.ReassignAdd:
				c.emit(OpAdd)
			case ast.ReassignSub:
				c.emit(OpSub)
			case ast.ReassignMul:
				c.emit(OpMul)
			case ast.ReassignDiv:
				c.emit(OpDiv)
			}
		} else if err := c.compileExpr(v.Value); err != nil {
			return err
		}
		c.emitOperand(OpVarReassign, uint16(idx))
		c.emitOperand(OpVarAccess, uint16(idx))

	case *ast.Unary:
		if err := c.compileExpr(v.Operand); err != nil {
			return err
		}
		switch v.Op {
		case ast.UnaryPlus:
			c.emit(OpUPlus)
		case ast.UnaryMinus:
			c.emit(OpUMinus)
		case ast.UnaryNot:
			c.emit(OpNot)
		}

	case *ast.Binary:
		if err := c.compileExpr(v.Left); err != nil {
			return err
		}
		if err := c.compileExpr(v.Right); err != nil {
			return err
		}
		c.emit(binaryOp(v.Op))

	case *ast.If:
		return c.compileIf(v.Cases, v.Else)

	case *ast.While:
		loop := len(c.code)
		if err := c.compileExpr(v.Cond); err != nil {
			return err
		}
		endJump := c.emitOperand(OpJumpIfFalse, 0)
		c.emit(OpBlockStart)
		if err := c.compileBlockVoid(v.Body); err != nil {
			return err
		}
		c.emit(OpBlockEnd)
		c.emitOperand(OpJump, uint16(loop))
		c.patchOperand(endJump)
		c.pushNull()

	case *ast.For:
		return c.compileFor(v)

	case *ast.FunDef:
		fn, err := c.compileFunc(nil, v.Params, v.Body)
		if err != nil {
			return err
		}
		idx := c.addConst(ConstValue{V: *fn})
		if !v.Named {
			c.emitOperand(OpConstant, idx)
			break
		}
		fnIdx := c.symIdx(v.Name)
		c.pushValueConst(Bool(false))
		c.emitOperand(OpConstant, idx)
		c.emitOperand(OpVarAssign, uint16(fnIdx))
		c.emitOperand(OpVarAccess, uint16(fnIdx))

	case *ast.Call:
		for _, a := range v.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		if err := c.compileExpr(v.Callee); err != nil {
			return err
		}
		c.emit(OpCall)

	case *ast.Return:
		// The opcode table has no Return instruction: only tail-position
		// `return` is supported in this bytecode path (full early-return
		// lives in the LLVM AOT path, see internal/codegen/llvm). A
		// `return expr` compiles exactly like `expr`.
		if v.Value != nil {
			return c.compileExpr(v.Value)
		}
		c.pushNull()

	case *ast.Array:
		progs := make([]*ByteCode, len(v.Elements))
		for i, el := range v.Elements {
			sub := c.childCompiler()
			if err := sub.compileExpr(el); err != nil {
				return err
			}
			progs[i] = &ByteCode{Code: sub.code, Consts: sub.consts}
		}
		idx := c.addConst(ConstArray{Elements: progs})
		c.emitOperand(OpConstant, idx)

	case *ast.Index:
		if err := c.compileExpr(v.Array); err != nil {
			return err
		}
		if err := c.compileExpr(v.Idx); err != nil {
			return err
		}
		c.emit(OpIndexArray)

	case *ast.ObjectDef:
		fields := make(map[SymIdx]*ByteCode, len(v.Properties))
		for _, f := range v.Properties {
			sub := c.childCompiler()
			if err := sub.compileExpr(f.Value); err != nil {
				return err
			}
			fields[c.symIdx(f.Name)] = &ByteCode{Code: sub.code, Consts: sub.consts}
		}
		idx := c.addConst(ConstObject{Fields: fields})
		c.emitOperand(OpConstant, idx)

	case *ast.ObjectPropAccess:
		if err := c.compileExpr(v.Object); err != nil {
			return err
		}
		c.emitOperand(OpPropertyAccess, uint16(c.symIdx(v.Property)))

	case *ast.ObjectPropEdit:
		if err := c.compileExpr(v.NewValue); err != nil {
			return err
		}
		if err := c.compileExpr(v.Object); err != nil {
			return err
		}
		c.emitOperand(OpPropertyAssign, uint16(c.symIdx(v.Property)))
		c.pushNull()

	case *ast.ObjectMethodCall:
		for _, a := range v.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		if err := c.compileExpr(v.Object); err != nil { // implicit soul argument
			return err
		}
		if err := c.compileExpr(v.Object); err != nil { // receiver for property lookup
			return err
		}
		c.emitOperand(OpPropertyAccess, uint16(c.symIdx(v.Property)))
		c.emit(OpCall)

	case *ast.ClassDef:
		return c.compileClassDef(v)

	case *ast.ClassInit:
		for _, a := range v.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		c.emitOperand(OpVarAccess, uint16(c.symIdx(v.Name)))
		c.emit(OpCall)

	case *ast.Extern:
		if v.Variadic {
			return diag.New(diag.BytecodeError, v.Span(), "UnsupportedVariadic",
				"variadic extern functions are only callable from the LLVM AOT path")
		}
		c.pushValueConst(Bool(false))
		c.pushValueConst(Native{Name: c.interner.Lookup(v.Name), Arity: len(v.ArgTypes)})
		c.emitOperand(OpVarAssign, uint16(c.symIdx(v.Name)))
		c.emitOperand(OpVarAccess, uint16(c.symIdx(v.Name)))

	case *ast.Statements:
		return c.compileBlockValue(v.List)

	default:
		return diag.New(diag.BytecodeError, n.Span(), "UnsupportedNode", "no bytecode lowering for this node")
	}
	return nil
}

func binaryOp(op ast.BinaryOp) Op {
	switch op {
	case ast.BinAdd:
		return OpAdd
	case ast.BinSub:
		return OpSub
	case ast.BinMul:
		return OpMul
	case ast.BinDiv:
		return OpDiv
	case ast.BinPow:
		return OpPow
	case ast.BinEq:
		return OpEq
	case ast.BinNeq:
		return OpNeq
	case ast.BinLt:
		return OpLt
	case ast.BinLe:
		return OpLe
	case ast.BinGt:
		return OpGt
	case ast.BinGe:
		return OpGe
	case ast.BinAnd:
		return OpAnd
	default: // ast.BinOr
		return OpOr
	}
}

// compileIf lowers an (already-flattened) else-if chain by recursing on the
// tail of cases, per spec §4.4's "forward JumpIfFalse, patched once the
// target is known" rule.
func (c *Compiler) compileIf(cases []ast.IfCase, elseBody []ast.Node) *diag.Diagnostic {
	if len(cases) == 0 {
		if elseBody == nil {
			c.pushNull()
			return nil
		}
		return c.compileBlockValue(elseBody)
	}
	if err := c.compileExpr(cases[0].Cond); err != nil {
		return err
	}
	elseJump := c.emitOperand(OpJumpIfFalse, 0)
	if err := c.compileBlockValue(cases[0].Body); err != nil {
		return err
	}
	endJump := c.emitOperand(OpJump, 0)
	c.patchOperand(elseJump)
	if err := c.compileIf(cases[1:], elseBody); err != nil {
		return err
	}
	c.patchOperand(endJump)
	return nil
}

// compileFor lowers the desugaring spec §4.4 spells out literally: bind the
// loop variable, compare against the bound each iteration, and reassign by
// the step expression after the body runs.
func (c *Compiler) compileFor(v *ast.For) *diag.Diagnostic {
	idx := c.symIdx(v.Var)
	c.pushValueConst(Bool(true))
	if err := c.compileExpr(v.Start); err != nil {
		return err
	}
	c.emitOperand(OpVarAssign, uint16(idx))

	loop := len(c.code)
	c.emitOperand(OpVarAccess, uint16(idx))
	if err := c.compileExpr(v.End); err != nil {
		return err
	}
	c.emit(OpNeq)
	endJump := c.emitOperand(OpJumpIfFalse, 0)

	c.emit(OpBlockStart)
	if err := c.compileBlockVoid(v.Body); err != nil {
		return err
	}
	c.emit(OpBlockEnd)

	c.emitOperand(OpVarAccess, uint16(idx))
	if err := c.compileExpr(v.Step); err != nil {
		return err
	}
	c.emit(OpAdd)
	c.emitOperand(OpVarReassign, uint16(idx))

	c.emitOperand(OpJump, uint16(loop))
	c.patchOperand(endJump)
	c.pushNull()
	return nil
}

// compileFunc compiles a function/method body into its own ByteCode and
// returns a Func constant value. soul, when non-nil, is bound as the
// method's implicit receiver symbol ahead of its declared parameters.
func (c *Compiler) compileFunc(soul *token.SymbolID, params []token.SymbolID, body []ast.Node) (*Func, *diag.Diagnostic) {
	sub := c.childCompiler()
	paramIdx := make([]SymIdx, len(params))
	for i, p := range params {
		paramIdx[i] = sub.symIdx(p)
	}
	if err := sub.compileBlockValue(body); err != nil {
		return nil, err
	}
	f := &Func{Params: paramIdx, Code: &ByteCode{Code: sub.code, Consts: sub.consts}}
	if soul != nil {
		f.Soul = sub.symIdx(*soul)
	}
	return f, nil
}

// compileClassDef synthesizes a constructor Func that builds a fresh Object
// from the class's field defaults and methods, runs the user-written
// constructor body (which mutates fields through `soul.x = …`), then yields
// the object — there being no dedicated "new object" opcode in spec §4.4's
// table, class instantiation is expressed purely in terms of the existing
// Object/Func value model.
func (c *Compiler) compileClassDef(v *ast.ClassDef) *diag.Diagnostic {
	soul := c.interner.Intern(soulName)

	fieldFields := make(map[SymIdx]*ByteCode, len(v.Properties)+len(v.Methods))
	for _, f := range v.Properties {
		sub := c.childCompiler()
		if f.Value != nil {
			if err := sub.compileExpr(f.Value); err != nil {
				return err
			}
		} else {
			sub.pushNull()
		}
		fieldFields[c.symIdx(f.Name)] = &ByteCode{Code: sub.code, Consts: sub.consts}
	}
	for _, m := range v.Methods {
		fn, err := c.compileFunc(&soul, m.Params, m.Body)
		if err != nil {
			return err
		}
		sub := c.childCompiler()
		idx := sub.addConst(ConstValue{V: *fn})
		sub.emitOperand(OpConstant, idx)
		fieldFields[c.symIdx(m.Name)] = &ByteCode{Code: sub.code, Consts: sub.consts}
	}

	ctor := c.childCompiler()
	var ctorParams []SymIdx
	if v.Constructor != nil {
		for _, p := range v.Constructor.Params {
			ctorParams = append(ctorParams, ctor.symIdx(p))
		}
	}
	soulIdx := ctor.symIdx(soul)
	ctor.pushValueConst(Bool(false))
	objIdx := ctor.addConst(ConstObject{Fields: fieldFields})
	ctor.emitOperand(OpConstant, objIdx)
	ctor.emitOperand(OpVarAssign, uint16(soulIdx))
	if v.Constructor != nil {
		if err := ctor.compileBlockVoid(v.Constructor.Body); err != nil {
			return err
		}
	}
	ctor.emitOperand(OpVarAccess, uint16(soulIdx))
	ctorFunc := Func{Params: ctorParams, Code: &ByteCode{Code: ctor.code, Consts: ctor.consts}}

	idx := c.addConst(ConstValue{V: ctorFunc})
	c.pushValueConst(Bool(false))
	c.emitOperand(OpConstant, idx)
	c.emitOperand(OpVarAssign, uint16(c.symIdx(v.Name)))
	c.emitOperand(OpVarAccess, uint16(c.symIdx(v.Name)))
	return nil
}
