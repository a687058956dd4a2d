package handlers

import (
	stdmath "math"

	"govm/instr"
	"govm/opcode"
)

// Math dispatches category 0x06, the floating-point-only operations.
func Math(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()
	switch in.Code {
	case opcode.AbsF32:
		return unF32(s, in, func(a float32) float32 { return float32(stdmath.Abs(float64(a))) })
	case opcode.NegF32:
		return unF32(s, in, func(a float32) float32 { return -a })
	case opcode.SqrtF32:
		return unF32(s, in, func(a float32) float32 { return float32(stdmath.Sqrt(float64(a))) })
	case opcode.CeilF32:
		return unF32(s, in, func(a float32) float32 { return float32(stdmath.Ceil(float64(a))) })
	case opcode.FloorF32:
		return unF32(s, in, func(a float32) float32 { return float32(stdmath.Floor(float64(a))) })
	case opcode.TruncF32:
		return unF32(s, in, func(a float32) float32 { return float32(stdmath.Trunc(float64(a))) })
	case opcode.RoundF32:
		return unF32(s, in, func(a float32) float32 { return float32(stdmath.RoundToEven(float64(a))) })
	case opcode.MinF32:
		return binF32(s, in, func(a, b float32) float32 { return float32(stdmath.Min(float64(a), float64(b))) })
	case opcode.MaxF32:
		return binF32(s, in, func(a, b float32) float32 { return float32(stdmath.Max(float64(a), float64(b))) })
	case opcode.CopysignF32:
		return binF32(s, in, func(a, b float32) float32 { return float32(stdmath.Copysign(float64(a), float64(b))) })

	case opcode.AbsF64:
		return unF64(s, in, stdmath.Abs)
	case opcode.NegF64:
		return unF64(s, in, func(a float64) float64 { return -a })
	case opcode.SqrtF64:
		return unF64(s, in, stdmath.Sqrt)
	case opcode.CeilF64:
		return unF64(s, in, stdmath.Ceil)
	case opcode.FloorF64:
		return unF64(s, in, stdmath.Floor)
	case opcode.TruncF64:
		return unF64(s, in, stdmath.Trunc)
	case opcode.RoundF64:
		return unF64(s, in, stdmath.RoundToEven)
	case opcode.MinF64:
		return binF64(s, in, stdmath.Min)
	case opcode.MaxF64:
		return binF64(s, in, stdmath.Max)
	case opcode.CopysignF64:
		return binF64(s, in, stdmath.Copysign)

	default:
		return TerminateWith(TerminateUnreachable)
	}
}
