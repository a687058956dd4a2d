package handlers

import (
	"govm/instr"
	"govm/stack"
)

// This file holds the generic pop-pop-push/pop-push helpers every
// arithmetic/bitwise/math/comparison handler is built from, mirroring
// KTStephano-GVM's exec.go arithmeticLogical(vm, opFunc) pattern: one
// tiny closure supplies the operation, the helper supplies the stack
// plumbing and error translation.

func binI32(s *stack.Stack, in instr.Instruction, f func(a, b uint32) uint32) Result {
	b, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	a, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushI32(f(a, b)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func binI32Checked(s *stack.Stack, in instr.Instruction, f func(a, b int32) (int32, Result)) Result {
	b, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	a, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	v, res := f(int32(a), int32(b))
	if res.Kind == Terminate {
		return res
	}
	if err := s.PushI32(uint32(v)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func binI32CheckedU(s *stack.Stack, in instr.Instruction, f func(a, b uint32) (uint32, Result)) Result {
	b, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	a, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	v, res := f(a, b)
	if res.Kind == Terminate {
		return res
	}
	if err := s.PushI32(v); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func unI32(s *stack.Stack, in instr.Instruction, f func(a uint32) uint32) Result {
	a, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushI32(f(a)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func binI64(s *stack.Stack, in instr.Instruction, f func(a, b uint64) uint64) Result {
	b, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	a, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushI64(f(a, b)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func binI64Checked(s *stack.Stack, in instr.Instruction, f func(a, b int64) (int64, Result)) Result {
	b, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	a, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	v, res := f(int64(a), int64(b))
	if res.Kind == Terminate {
		return res
	}
	if err := s.PushI64(uint64(v)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func binI64CheckedU(s *stack.Stack, in instr.Instruction, f func(a, b uint64) (uint64, Result)) Result {
	b, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	a, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	v, res := f(a, b)
	if res.Kind == Terminate {
		return res
	}
	if err := s.PushI64(v); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func unI64(s *stack.Stack, in instr.Instruction, f func(a uint64) uint64) Result {
	a, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	if err := s.PushI64(f(a)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}

func binF32(s *stack.Stack, in instr.Instruction, f func(a, b float32) float32) Result {
	b, err := s.PopF32()
	if err != nil {
		return floatOrStackErr(err)
	}
	a, err := s.PopF32()
	if err != nil {
		return floatOrStackErr(err)
	}
	if err := s.PushF32(f(a, b)); err != nil {
		return floatOrStackErr(err)
	}
	return Advance(in.Size())
}

func unF32(s *stack.Stack, in instr.Instruction, f func(a float32) float32) Result {
	a, err := s.PopF32()
	if err != nil {
		return floatOrStackErr(err)
	}
	if err := s.PushF32(f(a)); err != nil {
		return floatOrStackErr(err)
	}
	return Advance(in.Size())
}

func binF64(s *stack.Stack, in instr.Instruction, f func(a, b float64) float64) Result {
	b, err := s.PopF64()
	if err != nil {
		return floatOrStackErr(err)
	}
	a, err := s.PopF64()
	if err != nil {
		return floatOrStackErr(err)
	}
	if err := s.PushF64(f(a, b)); err != nil {
		return floatOrStackErr(err)
	}
	return Advance(in.Size())
}

func unF64(s *stack.Stack, in instr.Instruction, f func(a float64) float64) Result {
	a, err := s.PopF64()
	if err != nil {
		return floatOrStackErr(err)
	}
	if err := s.PushF64(f(a)); err != nil {
		return floatOrStackErr(err)
	}
	return Advance(in.Size())
}

// cmpI32/cmpI64/cmpF32/cmpF64 push a boolean (0/1) i32 result —
// spec.md Section 4.4's comparison family contract.
func cmpI32(s *stack.Stack, in instr.Instruction, f func(a, b uint32) bool) Result {
	b, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	a, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	return pushBool(s, in, f(a, b))
}

func cmpI64(s *stack.Stack, in instr.Instruction, f func(a, b uint64) bool) Result {
	b, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	a, err := s.PopI64()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	return pushBool(s, in, f(a, b))
}

func cmpF32(s *stack.Stack, in instr.Instruction, f func(a, b float32) bool) Result {
	b, err := s.PopF32()
	if err != nil {
		return floatOrStackErr(err)
	}
	a, err := s.PopF32()
	if err != nil {
		return floatOrStackErr(err)
	}
	return pushBool(s, in, f(a, b))
}

func cmpF64(s *stack.Stack, in instr.Instruction, f func(a, b float64) bool) Result {
	b, err := s.PopF64()
	if err != nil {
		return floatOrStackErr(err)
	}
	a, err := s.PopF64()
	if err != nil {
		return floatOrStackErr(err)
	}
	return pushBool(s, in, f(a, b))
}

func pushBool(s *stack.Stack, in instr.Instruction, v bool) Result {
	var w uint32
	if v {
		w = 1
	}
	if err := s.PushI32(w); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}
