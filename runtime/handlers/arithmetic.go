package handlers

import (
	"govm/instr"
	"govm/opcode"
)

// Arithmetic dispatches category 0x04: the four numeric types' basic
// arithmetic. Integer division/remainder by zero resolves spec.md
// Section 9's open question by terminating with a dedicated code
// rather than letting a Go panic cross the handler boundary.
func Arithmetic(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()
	switch in.Code {
	case opcode.AddI32:
		return binI32(s, in, func(a, b uint32) uint32 { return a + b })
	case opcode.SubI32:
		return binI32(s, in, func(a, b uint32) uint32 { return a - b })
	case opcode.MulI32:
		return binI32(s, in, func(a, b uint32) uint32 { return a * b })
	case opcode.DivI32S:
		return binI32Checked(s, in, func(a, b int32) (int32, Result) {
			if b == 0 {
				return 0, TerminateWith(TerminateIntegerDivideByZero)
			}
			return a / b, Result{}
		})
	case opcode.DivI32U:
		return binI32CheckedU(s, in, func(a, b uint32) (uint32, Result) {
			if b == 0 {
				return 0, TerminateWith(TerminateIntegerDivideByZero)
			}
			return a / b, Result{}
		})
	case opcode.RemI32S:
		return binI32Checked(s, in, func(a, b int32) (int32, Result) {
			if b == 0 {
				return 0, TerminateWith(TerminateIntegerDivideByZero)
			}
			return a % b, Result{}
		})
	case opcode.RemI32U:
		return binI32CheckedU(s, in, func(a, b uint32) (uint32, Result) {
			if b == 0 {
				return 0, TerminateWith(TerminateIntegerDivideByZero)
			}
			return a % b, Result{}
		})
	case opcode.NegI32:
		return unI32(s, in, func(a uint32) uint32 { return uint32(-int32(a)) })

	case opcode.AddI64:
		return binI64(s, in, func(a, b uint64) uint64 { return a + b })
	case opcode.SubI64:
		return binI64(s, in, func(a, b uint64) uint64 { return a - b })
	case opcode.MulI64:
		return binI64(s, in, func(a, b uint64) uint64 { return a * b })
	case opcode.DivI64S:
		return binI64Checked(s, in, func(a, b int64) (int64, Result) {
			if b == 0 {
				return 0, TerminateWith(TerminateIntegerDivideByZero)
			}
			return a / b, Result{}
		})
	case opcode.DivI64U:
		return binI64CheckedU(s, in, func(a, b uint64) (uint64, Result) {
			if b == 0 {
				return 0, TerminateWith(TerminateIntegerDivideByZero)
			}
			return a / b, Result{}
		})
	case opcode.RemI64S:
		return binI64Checked(s, in, func(a, b int64) (int64, Result) {
			if b == 0 {
				return 0, TerminateWith(TerminateIntegerDivideByZero)
			}
			return a % b, Result{}
		})
	case opcode.RemI64U:
		return binI64CheckedU(s, in, func(a, b uint64) (uint64, Result) {
			if b == 0 {
				return 0, TerminateWith(TerminateIntegerDivideByZero)
			}
			return a % b, Result{}
		})
	case opcode.NegI64:
		return unI64(s, in, func(a uint64) uint64 { return uint64(-int64(a)) })

	case opcode.AddF32:
		return binF32(s, in, func(a, b float32) float32 { return a + b })
	case opcode.SubF32:
		return binF32(s, in, func(a, b float32) float32 { return a - b })
	case opcode.MulF32:
		return binF32(s, in, func(a, b float32) float32 { return a * b })
	case opcode.DivF32:
		return binF32(s, in, func(a, b float32) float32 { return a / b })

	case opcode.AddF64:
		return binF64(s, in, func(a, b float64) float64 { return a + b })
	case opcode.SubF64:
		return binF64(s, in, func(a, b float64) float64 { return a - b })
	case opcode.MulF64:
		return binF64(s, in, func(a, b float64) float64 { return a * b })
	case opcode.DivF64:
		return binF64(s, in, func(a, b float64) float64 { return a / b })

	default:
		return TerminateWith(TerminateUnreachable)
	}
}
