// Package bytecode implements Blaze's stack-machine IR: the opcode table and
// compiler of spec §4.4. The instruction-stream-plus-constant-pool shape is
// grounded on the teacher's ir/lir package (ir/lir/lir.go, ir/lir/constant.go
// give a ByteCode-plus-Value-interface pair), and the concrete byte-opcode
// constants and compiler-walks-the-AST-emitting-bytes pattern follow
// informatter-nilan/compiler's code.Instructions/OpXxx shape — the closest
// analogue in the pack to a from-scratch bytecode compiler.
package bytecode

import "fmt"

// Op is a single-byte instruction tag. Three-byte instructions follow an Op
// with a big-endian uint16 operand.
type Op byte

const (
	OpConstant       Op = 0x01
	OpPop            Op = 0x02
	OpAdd            Op = 0x03
	OpSub            Op = 0x04
	OpMul            Op = 0x05
	OpDiv            Op = 0x06
	OpPow            Op = 0x07
	OpJump           Op = 0x08
	OpJumpIfFalse    Op = 0x09
	OpUPlus          Op = 0x0A
	OpUMinus         Op = 0x0B
	OpNot            Op = 0x0C
	OpAnd            Op = 0x0D
	OpOr             Op = 0x0E
	OpEq             Op = 0x0F
	OpNeq            Op = 0x1A
	OpGt             Op = 0x1B
	OpGe             Op = 0x1C
	OpLt             Op = 0x1D
	OpLe             Op = 0x1E
	OpVarAssign      Op = 0x1F
	OpVarAccess      Op = 0x2A
	OpVarReassign    Op = 0x2B
	OpBlockStart     Op = 0x2C
	OpBlockEnd       Op = 0x2D
	OpCall           Op = 0x2E
	OpIndexArray     Op = 0x2F
	OpPropertyAccess Op = 0x3A
	// OpPropertyAssign backs ObjectPropEdit lowering as a single opcode
	// instead of a property-access-then-reassign pair (spec §9 Open
	// Question (b): implemented, not dropped).
	OpPropertyAssign Op = 0x3B
)

// hasOperand reports whether op is followed by a 16-bit operand.
func hasOperand(op Op) bool {
	switch op {
	case OpConstant, OpJump, OpJumpIfFalse, OpVarAssign, OpVarAccess, OpVarReassign,
		OpPropertyAccess, OpPropertyAssign:
		return true
	default:
		return false
	}
}

func (op Op) String() string {
	switch op {
	case OpConstant:
		return "Constant"
	case OpPop:
		return "Pop"
	case OpAdd:
		return "Add"
	case OpSub:
		return "Sub"
	case OpMul:
		return "Mul"
	case OpDiv:
		return "Div"
	case OpPow:
		return "Pow"
	case OpJump:
		return "Jump"
	case OpJumpIfFalse:
		return "JumpIfFalse"
	case OpUPlus:
		return "UPlus"
	case OpUMinus:
		return "UMinus"
	case OpNot:
		return "Not"
	case OpAnd:
		return "And"
	case OpOr:
		return "Or"
	case OpEq:
		return "Eq"
	case OpNeq:
		return "Neq"
	case OpGt:
		return "Gt"
	case OpGe:
		return "Ge"
	case OpLt:
		return "Lt"
	case OpLe:
		return "Le"
	case OpVarAssign:
		return "VarAssign"
	case OpVarAccess:
		return "VarAccess"
	case OpVarReassign:
		return "VarReassign"
	case OpBlockStart:
		return "BlockStart"
	case OpBlockEnd:
		return "BlockEnd"
	case OpCall:
		return "Call"
	case OpIndexArray:
		return "IndexArray"
	case OpPropertyAccess:
		return "PropertyAccess"
	case OpPropertyAssign:
		return "PropertyAssign"
	default:
		return fmt.Sprintf("Op(%02X)", byte(op))
	}
}
