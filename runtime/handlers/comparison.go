package handlers

import (
	"govm/instr"
	"govm/opcode"
)

// Comparison dispatches category 0x08. eqz is a unary zero test;
// every other comparison pops two operands and pushes a 0/1 i32.
func Comparison(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()
	switch in.Code {
	case opcode.EqzI32:
		return unI32(s, in, func(a uint32) uint32 {
			if a == 0 {
				return 1
			}
			return 0
		})
	case opcode.EqI32:
		return cmpI32(s, in, func(a, b uint32) bool { return a == b })
	case opcode.NeI32:
		return cmpI32(s, in, func(a, b uint32) bool { return a != b })
	case opcode.LtI32S:
		return cmpI32(s, in, func(a, b uint32) bool { return int32(a) < int32(b) })
	case opcode.LtI32U:
		return cmpI32(s, in, func(a, b uint32) bool { return a < b })
	case opcode.GtI32S:
		return cmpI32(s, in, func(a, b uint32) bool { return int32(a) > int32(b) })
	case opcode.GtI32U:
		return cmpI32(s, in, func(a, b uint32) bool { return a > b })
	case opcode.LeI32S:
		return cmpI32(s, in, func(a, b uint32) bool { return int32(a) <= int32(b) })
	case opcode.LeI32U:
		return cmpI32(s, in, func(a, b uint32) bool { return a <= b })
	case opcode.GeI32S:
		return cmpI32(s, in, func(a, b uint32) bool { return int32(a) >= int32(b) })
	case opcode.GeI32U:
		return cmpI32(s, in, func(a, b uint32) bool { return a >= b })

	case opcode.EqzI64:
		v, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		return pushBool(s, in, v == 0)
	case opcode.EqI64:
		return cmpI64(s, in, func(a, b uint64) bool { return a == b })
	case opcode.NeI64:
		return cmpI64(s, in, func(a, b uint64) bool { return a != b })
	case opcode.LtI64S:
		return cmpI64(s, in, func(a, b uint64) bool { return int64(a) < int64(b) })
	case opcode.LtI64U:
		return cmpI64(s, in, func(a, b uint64) bool { return a < b })
	case opcode.GtI64S:
		return cmpI64(s, in, func(a, b uint64) bool { return int64(a) > int64(b) })
	case opcode.GtI64U:
		return cmpI64(s, in, func(a, b uint64) bool { return a > b })
	case opcode.LeI64S:
		return cmpI64(s, in, func(a, b uint64) bool { return int64(a) <= int64(b) })
	case opcode.LeI64U:
		return cmpI64(s, in, func(a, b uint64) bool { return a <= b })
	case opcode.GeI64S:
		return cmpI64(s, in, func(a, b uint64) bool { return int64(a) >= int64(b) })
	case opcode.GeI64U:
		return cmpI64(s, in, func(a, b uint64) bool { return a >= b })

	case opcode.EqF32:
		return cmpF32(s, in, func(a, b float32) bool { return a == b })
	case opcode.NeF32:
		return cmpF32(s, in, func(a, b float32) bool { return a != b })
	case opcode.LtF32:
		return cmpF32(s, in, func(a, b float32) bool { return a < b })
	case opcode.GtF32:
		return cmpF32(s, in, func(a, b float32) bool { return a > b })
	case opcode.LeF32:
		return cmpF32(s, in, func(a, b float32) bool { return a <= b })
	case opcode.GeF32:
		return cmpF32(s, in, func(a, b float32) bool { return a >= b })

	case opcode.EqF64:
		return cmpF64(s, in, func(a, b float64) bool { return a == b })
	case opcode.NeF64:
		return cmpF64(s, in, func(a, b float64) bool { return a != b })
	case opcode.LtF64:
		return cmpF64(s, in, func(a, b float64) bool { return a < b })
	case opcode.GtF64:
		return cmpF64(s, in, func(a, b float64) bool { return a > b })
	case opcode.LeF64:
		return cmpF64(s, in, func(a, b float64) bool { return a <= b })
	case opcode.GeF64:
		return cmpF64(s, in, func(a, b float64) bool { return a >= b })

	default:
		return TerminateWith(TerminateUnreachable)
	}
}
