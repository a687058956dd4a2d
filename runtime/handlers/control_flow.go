package handlers

import (
	"govm/instr"
	"govm/opcode"
	"govm/stack"
)

// ControlFlow dispatches category 0x09, spec.md Section 4.3's five
// structured primitives plus `end`. Offsets for break_/block_alt's
// alternate branch/break_alt/block_nez's skip are relative to the
// byte address of the branching instruction itself ("jumps PC by
// offset", "to the instruction at PC + offset"); recur's offset is
// relative to the current function's start (PC 0), matching "set PC
// to start + offset" — the assembler always resolves the sign so a
// plain unsigned wraparound add reproduces both directions.
func ControlFlow(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()
	pc := ctx.PC()

	switch in.Code {
	case opcode.Block:
		return enterBlock(ctx, in, pc, false)

	case opcode.End:
		frame, err := s.EndFrame()
		if err != nil {
			return frameErr(err)
		}
		if frame.IsFunction {
			if frame.ReturnPC == (stack.PC{}) {
				return Finished()
			}
			return EndAt(frame.ReturnPC)
		}
		return Advance(in.Size())

	case opcode.Break:
		layers := int(in.Params[0])
		offset := in.Params[1]
		return doBreak(s, pc, layers, offset)

	case opcode.Recur:
		layers := int(in.Params[0])
		offset := in.Params[1]
		if _, err := s.Recur(layers); err != nil {
			return frameErr(err)
		}
		return JumpTo(stack.PC{ModuleIndex: pc.ModuleIndex, FunctionInternalIndex: pc.FunctionInternalIndex, InstructionAddress: offset})

	case opcode.BlockAlt:
		cond, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		if errRes := createBlockFrame(ctx, in, pc, false); errRes != nil {
			return *errRes
		}
		if cond != 0 {
			return Advance(in.Size())
		}
		return JumpTo(stack.PC{ModuleIndex: pc.ModuleIndex, FunctionInternalIndex: pc.FunctionInternalIndex, InstructionAddress: pc.InstructionAddress + in.Params[2]})

	case opcode.BreakAlt:
		target := pc.InstructionAddress + in.Params[0]
		if _, err := s.EndFrame(); err != nil {
			return frameErr(err)
		}
		return JumpTo(stack.PC{ModuleIndex: pc.ModuleIndex, FunctionInternalIndex: pc.FunctionInternalIndex, InstructionAddress: target})

	case opcode.BlockNez:
		cond, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		if cond != 0 {
			return enterBlock(ctx, in, pc, true)
		}
		return JumpTo(stack.PC{ModuleIndex: pc.ModuleIndex, FunctionInternalIndex: pc.FunctionInternalIndex, InstructionAddress: pc.InstructionAddress + in.Params[1]})

	default:
		return TerminateWith(TerminateUnreachable)
	}
}

// enterBlock implements `block type_idx local_list_idx` / `block_nez`'s
// taken branch: create a (non-function) frame for the block's
// declared signature and continue at the next instruction.
func enterBlock(ctx Context, in instr.Instruction, pc stack.PC, nez bool) Result {
	if errRes := createBlockFrame(ctx, in, pc, nez); errRes != nil {
		return *errRes
	}
	return Advance(in.Size())
}

// createBlockFrame creates the frame for `block`/`block_alt` (sized to
// the function type named by Params[0]/Params[1]) or for `block_nez`
// (nez selects its single (local_list_idx, offset) parameter layout,
// which has no type_idx — a block_nez's result count is always 0, used
// for side-effect-only conditional regions, never value-producing
// ones). block_alt creates its frame unconditionally, regardless of
// which branch is taken, since both branches share it and converge on
// the same `end`/`break_alt`.
func createBlockFrame(ctx Context, in instr.Instruction, pc stack.PC, nez bool) *Result {
	mod, err := ctx.Module(pc.ModuleIndex)
	if err != nil {
		r := genericErr(err)
		return &r
	}

	if nez {
		localListIndex := in.Params[0]
		list, err := mod.LocalList(localListIndex)
		if err != nil {
			r := genericErr(err)
			return &r
		}
		if err := ctx.Stack().CreateFrame(list, localListIndex, 0, 0, list.AllocatedBytes, nil); err != nil {
			r := frameErr(err)
			return &r
		}
		return nil
	}

	typeIndex := in.Params[0]
	localListIndex := in.Params[1]
	sig, err := mod.Type(typeIndex)
	if err != nil {
		r := genericErr(err)
		return &r
	}
	list, err := mod.LocalList(localListIndex)
	if err != nil {
		r := genericErr(err)
		return &r
	}
	if err := ctx.Stack().CreateFrame(list, localListIndex, len(sig.Params), len(sig.Results), list.AllocatedBytes, nil); err != nil {
		r := frameErr(err)
		return &r
	}
	return nil
}

// doBreak implements `break_ layers offset`: unwind layers+1 frames
// (Break threads the target frame's own declared results through in
// one step) and resume at PC + offset.
func doBreak(s *stack.Stack, pc stack.PC, layers int, offset uint32) Result {
	if _, err := s.Break(layers); err != nil {
		return frameErr(err)
	}
	return JumpTo(stack.PC{ModuleIndex: pc.ModuleIndex, FunctionInternalIndex: pc.FunctionInternalIndex, InstructionAddress: pc.InstructionAddress + offset})
}
