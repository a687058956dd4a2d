package handlers

import (
	"govm/instr"
	"govm/opcode"
)

// Dispatch implements the category-then-leaf match of spec.md Section
// 4.6: every decoded instruction belongs to exactly one of the twelve
// opcode categories, and each category function further switches on
// the specific opcode.
func Dispatch(ctx Context, in instr.Instruction) Result {
	switch in.Code.Category() {
	case opcode.CategoryFundamental:
		return Fundamental(ctx, in)
	case opcode.CategoryLocal:
		return Local(ctx, in)
	case opcode.CategoryData:
		return Data(ctx, in)
	case opcode.CategoryArithmetic:
		return Arithmetic(ctx, in)
	case opcode.CategoryBitwise:
		return Bitwise(ctx, in)
	case opcode.CategoryMath:
		return Math(ctx, in)
	case opcode.CategoryConversion:
		return Conversion(ctx, in)
	case opcode.CategoryComparison:
		return Comparison(ctx, in)
	case opcode.CategoryControlFlow:
		return ControlFlow(ctx, in)
	case opcode.CategoryCalling:
		return Calling(ctx, in)
	case opcode.CategoryMemory:
		return Memory(ctx, in)
	case opcode.CategoryMachine:
		return Machine(ctx, in)
	default:
		return TerminateWith(TerminateUnreachable)
	}
}
