package handlers

import (
	"govm/envcall"
	"govm/instr"
	"govm/opcode"
	"govm/stack"
	"govm/syscallutil"
)

// Calling dispatches category 0x0A, spec.md Section 4.4 "Calling".
func Calling(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()

	switch in.Code {
	case opcode.Call:
		return doCall(ctx, in.Params[0], in.Size())

	case opcode.CallDynamic:
		publicIndex, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		return doCall(ctx, publicIndex, in.Size())

	case opcode.Syscall:
		syscallNum, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		paramsCount, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		args := make([]uintptr, paramsCount)
		for i := int(paramsCount) - 1; i >= 0; i-- {
			v, err := s.PopI64()
			if err != nil {
				return overflowOrUnderflow(err)
			}
			args[i] = uintptr(v)
		}
		result, errno := syscallutil.Invoke(uintptr(syscallNum), args)
		if err := s.PushI64(uint64(result)); err != nil {
			return overflowOrUnderflow(err)
		}
		if err := s.PushI32(uint32(errno)); err != nil {
			return overflowOrUnderflow(err)
		}
		return Advance(in.Size())

	case opcode.Envcall:
		return doEnvcall(ctx, envcall.Number(in.Params[0]), in.Size())

	case opcode.Extcall:
		return doExtcall(ctx, in.Params[0], in.Size())

	default:
		return TerminateWith(TerminateUnreachable)
	}
}

// doCall implements `call public_index` / `call_dynamic`: resolve the
// public index to a target module/function, verify the operand stack
// already holds the callee's declared params, and create a function
// frame whose return_pc is the instruction immediately after this one
// (PC + instrSize, per spec.md's `return_pc = PC+8` for the 8-byte
// `call` form — generalized here to the actual decoded instruction
// size so call_dynamic's shorter 2-byte form also returns correctly).
func doCall(ctx Context, publicIndex uint32, instrSize int) Result {
	pc := ctx.PC()
	cur, err := ctx.Current()
	if err != nil {
		return genericErr(err)
	}
	targetModule, internalIndex, err := cur.ResolveFunction(publicIndex)
	if err != nil {
		return genericErr(err)
	}
	target, err := ctx.Module(targetModule)
	if err != nil {
		return genericErr(err)
	}
	fn, err := target.FunctionItem(internalIndex)
	if err != nil {
		return genericErr(err)
	}
	sig, err := target.Type(fn.TypeIndex)
	if err != nil {
		return genericErr(err)
	}
	list, err := target.LocalList(fn.LocalListIndex)
	if err != nil {
		return genericErr(err)
	}

	returnPC := pc
	returnPC.InstructionAddress += uint32(instrSize)

	if err := ctx.Stack().CreateFrame(list, fn.LocalListIndex, len(sig.Params), len(sig.Results), list.AllocatedBytes, &returnPC); err != nil {
		return frameErr(err)
	}
	return JumpTo(stack.PC{ModuleIndex: targetModule, FunctionInternalIndex: internalIndex, InstructionAddress: 0})
}

// doEnvcall implements `envcall envcall_num`: pop a params_count
// operand, collect that many i64 operands off the stack (in push
// order), invoke the registered host handler, then push each result
// value followed by a results_count operand — the spec leaves the
// envcall marshalling convention to the host surface, so this mirrors
// the syscall handler's (count, values...) shape for symmetry.
func doEnvcall(ctx Context, n envcall.Number, instrSize int) Result {
	s := ctx.Stack()
	paramsCount, err := s.PopI32()
	if err != nil {
		return overflowOrUnderflow(err)
	}
	params := make([]uint64, paramsCount)
	for i := int(paramsCount) - 1; i >= 0; i-- {
		v, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		params[i] = v
	}
	results, err := ctx.EnvcallTable().Invoke(n, params)
	if err != nil {
		return TerminateWith(TerminateEnvcallFailure)
	}
	for _, r := range results {
		if err := s.PushI64(r); err != nil {
			return overflowOrUnderflow(err)
		}
	}
	if err := s.PushI32(uint32(len(results))); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(instrSize)
}

// doExtcall implements `extcall external_function_index`: resolve the
// external function's library/descriptor/signature, obtain the
// bridge's cached wrapper, pop its declared param count off the
// stack into a contiguous byte buffer, call it, and push the result
// if the signature declares one.
func doExtcall(ctx Context, externalIndex uint32, instrSize int) Result {
	s := ctx.Stack()
	cur, err := ctx.Current()
	if err != nil {
		return genericErr(err)
	}
	lib, fn, sig, err := cur.ExternalFunction(externalIndex)
	if err != nil {
		return genericErr(err)
	}
	w, err := ctx.FFIBridge().Wrapper(ctx.CurrentModuleIndex(), externalIndex, lib, fn, sig)
	if err != nil {
		return TerminateWith(TerminateFailedToLoadExternalFunction)
	}

	paramsBytes := make([]byte, w.ParamsCount()*8)
	for i := w.ParamsCount() - 1; i >= 0; i-- {
		slot, err := s.TopBytes()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		copy(paramsBytes[i*8:i*8+8], slot)
		if err := s.Drop(); err != nil {
			return overflowOrUnderflow(err)
		}
	}

	out, err := w.Call(paramsBytes)
	if err != nil {
		return TerminateWith(TerminateFailedToLoadExternalFunction)
	}
	if w.HasReturn() {
		if err := s.PushI64(readI64(out)); err != nil {
			return overflowOrUnderflow(err)
		}
	}
	return Advance(instrSize)
}
