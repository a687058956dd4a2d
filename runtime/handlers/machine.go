package handlers

import (
	"unsafe"

	"govm/alloc"
	"govm/ffi"
	"govm/instr"
	"govm/opcode"
	"govm/stack"
)

// Machine dispatches category 0x0C, spec.md Section 4.4 "Machine":
// converting a VM-addressable location into a raw host pointer, and
// (for functions) a callback delegate external code can call back
// into the VM through.
func Machine(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()

	switch in.Code {
	case opcode.HostAddrLocal:
		packed, extraOffset := in.Params[0], in.Params[1]
		layers, index := int(packed>>16), int(packed&0xFFFF)
		addr, err := s.LocalVariableAddress(layers, index, 0)
		if err != nil {
			return frameErr(err)
		}
		b, err := s.Bytes(addr+int(extraOffset), 1)
		if err != nil {
			return frameErr(err)
		}
		return pushHostAddr(s, in, b)

	case opcode.HostAddrData:
		offset := int(int16(in.Params[0]))
		publicIndex := in.Params[1]
		mod, err := ctx.Current()
		if err != nil {
			return genericErr(err)
		}
		targetModule, sectionType, internalIndex, err := mod.ResolveData(publicIndex)
		if err != nil {
			return genericErr(err)
		}
		target, err := ctx.Module(targetModule)
		if err != nil {
			return genericErr(err)
		}
		item, err := target.DataBytes(sectionType, internalIndex)
		if err != nil {
			return genericErr(err)
		}
		if offset < 0 || offset > len(item) {
			return TerminateWith(TerminateIndexOutOfRange)
		}
		return pushHostAddr(s, in, item[offset:])

	case opcode.HostAddrHeap:
		offset, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		tagged, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		idx, isAllocated := alloc.Untag(tagged)
		if !isAllocated {
			return TerminateWith(TerminateIndexOutOfRange)
		}
		ptr, err := ctx.Allocator().HostPointer(idx, int(offset))
		if err != nil {
			return allocErr(err)
		}
		if err := s.PushI64(uint64(ptr)); err != nil {
			return overflowOrUnderflow(err)
		}
		return Advance(in.Size())

	case opcode.HostAddrFunction:
		publicIndex := in.Params[0]
		mod, err := ctx.Current()
		if err != nil {
			return genericErr(err)
		}
		targetModule, internalIndex, err := mod.ResolveFunction(publicIndex)
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
		ptr, err := ffi.BuildCallback(ctx, targetModule, internalIndex, sig)
		if err != nil {
			return TerminateWith(TerminateFailedToLoadExternalFunction)
		}
		if err := s.PushI64(uint64(ptr)); err != nil {
			return overflowOrUnderflow(err)
		}
		return Advance(in.Size())

	case opcode.Terminate:
		return TerminateWith(TerminateCode(in.Params[0]))

	default:
		return TerminateWith(TerminateUnreachable)
	}
}

// pushHostAddr pushes the address of b's first byte, or 0 for a
// zero-length region (nothing to take the address of).
func pushHostAddr(s *stack.Stack, in instr.Instruction, b []byte) Result {
	var ptr uintptr
	if len(b) > 0 {
		ptr = uintptr(unsafe.Pointer(&b[0]))
	}
	if err := s.PushI64(uint64(ptr)); err != nil {
		return overflowOrUnderflow(err)
	}
	return Advance(in.Size())
}
