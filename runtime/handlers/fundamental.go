package handlers

import (
	"math"

	"govm/instr"
	"govm/opcode"
)

// Fundamental dispatches the stack-shape/literal category (0x01):
// nop, the four imm_* literal pushes, and drop/duplicate/select.
func Fundamental(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()
	switch in.Code {
	case opcode.Nop:
		return Advance(in.Size())

	case opcode.ImmI32:
		if err := s.PushI32(in.Params[0]); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.ImmI64:
		v := uint64(in.Params[0]) | uint64(in.Params[1])<<32
		if err := s.PushI64(v); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.ImmF32:
		if err := s.PushF32(math.Float32frombits(in.Params[0])); err != nil {
			return floatOrStackErr(err)
		}
	case opcode.ImmF64:
		v := uint64(in.Params[0]) | uint64(in.Params[1])<<32
		if err := s.PushF64(math.Float64frombits(v)); err != nil {
			return floatOrStackErr(err)
		}

	case opcode.Drop:
		if err := s.Drop(); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.Duplicate:
		if err := s.Duplicate(); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.Select:
		if err := s.Select(); err != nil {
			return overflowOrUnderflow(err)
		}

	default:
		return TerminateWith(TerminateUnreachable)
	}
	return Advance(in.Size())
}
