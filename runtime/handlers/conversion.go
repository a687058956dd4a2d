package handlers

import (
	"govm/instr"
	"govm/opcode"
	"govm/stack"
)

// Conversion dispatches category 0x07: width/representation changes
// between the four operand types.
func Conversion(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()
	switch in.Code {
	case opcode.TruncateI64ToI32:
		return unI64toI32(s, in, func(a uint64) uint32 { return uint32(a) })
	case opcode.ExtendI32SToI64:
		return unI32toI64(s, in, func(a uint32) uint64 { return uint64(int64(int32(a))) })
	case opcode.ExtendI32UToI64:
		return unI32toI64(s, in, func(a uint32) uint64 { return uint64(a) })
	case opcode.DemoteF64ToF32:
		v, err := s.PopF64()
		if err != nil {
			return floatOrStackErr(err)
		}
		if err := s.PushF32(float32(v)); err != nil {
			return floatOrStackErr(err)
		}
	case opcode.PromoteF32ToF64:
		v, err := s.PopF32()
		if err != nil {
			return floatOrStackErr(err)
		}
		if err := s.PushF64(float64(v)); err != nil {
			return floatOrStackErr(err)
		}

	case opcode.ConvertF32ToI32S:
		return f32toI32(s, in, func(v float32) uint32 { return uint32(int32(v)) })
	case opcode.ConvertF32ToI32U:
		return f32toI32(s, in, func(v float32) uint32 { return uint32(v) })
	case opcode.ConvertF32ToI64S:
		return f32toI64(s, in, func(v float32) uint64 { return uint64(int64(v)) })
	case opcode.ConvertF32ToI64U:
		return f32toI64(s, in, func(v float32) uint64 { return uint64(v) })
	case opcode.ConvertF64ToI32S:
		return f64toI32(s, in, func(v float64) uint32 { return uint32(int32(v)) })
	case opcode.ConvertF64ToI32U:
		return f64toI32(s, in, func(v float64) uint32 { return uint32(v) })
	case opcode.ConvertF64ToI64S:
		return f64toI64(s, in, func(v float64) uint64 { return uint64(int64(v)) })
	case opcode.ConvertF64ToI64U:
		return f64toI64(s, in, func(v float64) uint64 { return uint64(v) })

	case opcode.ConvertI32SToF32:
		return i32toF32(s, in, func(v uint32) float32 { return float32(int32(v)) })
	case opcode.ConvertI32UToF32:
		return i32toF32(s, in, func(v uint32) float32 { return float32(v) })
	case opcode.ConvertI64SToF32:
		return i64toF32(s, in, func(v uint64) float32 { return float32(int64(v)) })
	case opcode.ConvertI64UToF32:
		return i64toF32(s, in, func(v uint64) float32 { return float32(v) })
	case opcode.ConvertI32SToF64:
		return i32toF64(s, in, func(v uint32) float64 { return float64(int32(v)) })
	case opcode.ConvertI32UToF64:
		return i32toF64(s, in, func(v uint32) float64 { return float64(v) })
	case opcode.ConvertI64SToF64:
		return i64toF64(s, in, func(v uint64) float64 { return float64(int64(v)) })
	case opcode.ConvertI64UToF64:
		return i64toF64(s, in, func(v uint64) float64 { return float64(v) })

	default:
		return TerminateWith(TerminateUnreachable)
	}
	return Advance(in.Size())
}

func unI64toI32(s *stack.Stack, in instr.Instruction, f func(uint64) uint32) Result {
	v, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushI32(f(v)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func unI32toI64(s *stack.Stack, in instr.Instruction, f func(uint32) uint64) Result {
	v, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushI64(f(v)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func f32toI32(s *stack.Stack, in instr.Instruction, f func(float32) uint32) Result {
	v, err := s.PopF32()
	if err != nil {
		return floatOrStackErr(err)
	}
	if err := s.PushI32(f(v)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func f32toI64(s *stack.Stack, in instr.Instruction, f func(float32) uint64) Result {
	v, err := s.PopF32()
	if err != nil {
		return floatOrStackErr(err)
	}
	if err := s.PushI64(f(v)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func f64toI32(s *stack.Stack, in instr.Instruction, f func(float64) uint32) Result {
	v, err := s.PopF64()
	if err != nil {
		return floatOrStackErr(err)
	}
	if err := s.PushI32(f(v)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func f64toI64(s *stack.Stack, in instr.Instruction, f func(float64) uint64) Result {
	v, err := s.PopF64()
	if err != nil {
		return floatOrStackErr(err)
	}
	if err := s.PushI64(f(v)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func i32toF32(s *stack.Stack, in instr.Instruction, f func(uint32) float32) Result {
	v, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushF32(f(v)); err != nil {
		return floatOrStackErr(err)
	}
	return Advance(in.Size())
}

func i64toF32(s *stack.Stack, in instr.Instruction, f func(uint64) float32) Result {
	v, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushF32(f(v)); err != nil {
		return floatOrStackErr(err)
	}
	return Advance(in.Size())
}

func i32toF64(s *stack.Stack, in instr.Instruction, f func(uint32) float64) Result {
	v, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushF64(f(v)); err != nil {
		return floatOrStackErr(err)
	}
	return Advance(in.Size())
}

func i64toF64(s *stack.Stack, in instr.Instruction, f func(uint64) float64) Result {
	v, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushF64(f(v)); err != nil {
		return floatOrStackErr(err)
	}
	return Advance(in.Size())
}
