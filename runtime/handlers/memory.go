package handlers

import (
	"govm/alloc"
	"govm/instr"
	"govm/opcode"
)

// Memory dispatches category 0x0B, spec.md Section 3.4/4.4 "Memory".
// memory_allocate/memory_reallocate/memory_free/memory_capacity only
// ever address allocator-owned regions (a module's static data
// sections have no resize/free operation); memory_fill/memory_copy
// address either kind transparently through the MSB tag, which is
// the whole point of alloc.Tag/Untag.
//
// Operand order follows every multi-operand instruction's listed
// signature read right-to-left off the stack: the last-named operand
// is the most recently pushed, so it pops first.
func Memory(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()
	a := ctx.Allocator()

	switch in.Code {
	case opcode.MemoryAllocate:
		align, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		size, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		idx, err := a.Allocate(int(size), int(align))
		if err != nil {
			return allocErr(err)
		}
		if err := s.PushI64(alloc.Tag(idx)); err != nil {
			return overflowOrUnderflow(err)
		}
		return Advance(in.Size())

	case opcode.MemoryReallocate:
		newSize, err := s.PopI32()
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
		if err := a.Reallocate(idx, int(newSize)); err != nil {
			return allocErr(err)
		}
		return Advance(in.Size())

	case opcode.MemoryFree:
		tagged, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		idx, isAllocated := alloc.Untag(tagged)
		if !isAllocated {
			return TerminateWith(TerminateIndexOutOfRange)
		}
		if err := a.Free(idx); err != nil {
			return allocErr(err)
		}
		return Advance(in.Size())

	case opcode.MemoryCapacity:
		tagged, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		idx, isAllocated := alloc.Untag(tagged)
		if !isAllocated {
			return TerminateWith(TerminateIndexOutOfRange)
		}
		length, err := a.GetLength(idx)
		if err != nil {
			return allocErr(err)
		}
		if err := s.PushI64(uint64(length)); err != nil {
			return overflowOrUnderflow(err)
		}
		return Advance(in.Size())

	case opcode.MemoryFill:
		value, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		size, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		offset, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		tagged, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		module, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		target, res := resolveMemoryBytes(ctx, module, tagged)
		if res.Kind == Terminate {
			return res
		}
		if int(offset)+int(size) > len(target) {
			return TerminateWith(TerminateIndexOutOfRange)
		}
		b := byte(value)
		for i := uint32(0); i < size; i++ {
			target[offset+i] = b
		}
		return Advance(in.Size())

	case opcode.MemoryCopy:
		size, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		dstOff, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		dstTagged, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		dstModule, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		srcOff, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		srcTagged, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		srcModule, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}

		src, res := resolveMemoryBytes(ctx, srcModule, srcTagged)
		if res.Kind == Terminate {
			return res
		}
		dst, res := resolveMemoryBytes(ctx, dstModule, dstTagged)
		if res.Kind == Terminate {
			return res
		}
		if int(srcOff)+int(size) > len(src) || int(dstOff)+int(size) > len(dst) {
			return TerminateWith(TerminateIndexOutOfRange)
		}
		copy(dst[dstOff:dstOff+size], src[srcOff:srcOff+size])
		return Advance(in.Size())

	default:
		return TerminateWith(TerminateUnreachable)
	}
}

// resolveMemoryBytes addresses either an allocator region (MSB set)
// or a module's data section (MSB clear, module/tagged-as-public-index
// resolved through the owning module's index section), returning the
// full backing slice so the caller applies its own offset/size.
func resolveMemoryBytes(ctx Context, moduleIndex uint32, tagged uint64) ([]byte, Result) {
	idx, isAllocated := alloc.Untag(tagged)
	if isAllocated {
		b, err := ctx.Allocator().GetBytes(idx)
		if err != nil {
			return nil, allocErr(err)
		}
		return b, Result{}
	}

	mod, err := ctx.Module(moduleIndex)
	if err != nil {
		return nil, genericErr(err)
	}
	targetModule, sectionType, internalIndex, err := mod.ResolveData(idx)
	if err != nil {
		return nil, genericErr(err)
	}
	target, err := ctx.Module(targetModule)
	if err != nil {
		return nil, genericErr(err)
	}
	b, err := target.DataBytes(sectionType, internalIndex)
	if err != nil {
		return nil, genericErr(err)
	}
	return b, Result{}
}
