package handlers

import (
	"math"

	"govm/instr"
	"govm/opcode"
)

// Data dispatches the data-section access category (0x03),
// spec.md Section 4.4 "Data access": three addressing families are
// immediate-indexed (`offset:i16 index:i32` baked into the
// instruction), extended-offset/"long" (index baked in, a 64-bit byte
// offset popped from the operand stack), and dynamic (module index,
// public index, and offset all popped from the stack). Every family
// resolves (module, public_index) through ResolveData to a concrete
// module instance, section, and internal index, then memcpys between
// the resolved bytes and the operand stack.
func Data(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()
	width := dataWidth(in.Code)

	var moduleIndex uint32
	var publicIndex uint32
	var offset int64

	switch in.Form {
	case instr.FormP16P32:
		moduleIndex = ctx.CurrentModuleIndex()
		publicIndex = in.Params[1]
		offset = int64(int16(in.Params[0]))
	case instr.Form32x2:
		moduleIndex = ctx.CurrentModuleIndex()
		publicIndex = in.Params[0]
		v, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		offset = int64(v)
	case instr.FormNone:
		off, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		idx, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		mod, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		offset = int64(off)
		publicIndex = idx
		moduleIndex = mod
	default:
		return TerminateWith(TerminateUnreachable)
	}

	mod, err := ctx.Module(moduleIndex)
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
	if offset < 0 || int(offset)+width > len(item) {
		return TerminateWith(TerminateIndexOutOfRange)
	}
	b := item[offset : int(offset)+width]

	switch in.Code {
	case opcode.DataLoadI32, opcode.DataLongLoadI32, opcode.DataDynamicLoadI32:
		if err := s.PushI32(readI32(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.DataLoadI64, opcode.DataLongLoadI64, opcode.DataDynamicLoadI64:
		if err := s.PushI64(readI64(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.DataLoadF32, opcode.DataLongLoadF32, opcode.DataDynamicLoadF32:
		if err := s.PushF32(math.Float32frombits(readF32Bits(b))); err != nil {
			return floatOrStackErr(err)
		}
	case opcode.DataLoadF64, opcode.DataLongLoadF64, opcode.DataDynamicLoadF64:
		if err := s.PushF64(math.Float64frombits(readF64Bits(b))); err != nil {
			return floatOrStackErr(err)
		}
	case opcode.DataLoadI8S:
		if err := s.PushI32(readI8S(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.DataLoadI8U:
		if err := s.PushI32(readI8U(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.DataLoadI16S:
		if err := s.PushI32(readI16S(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.DataLoadI16U:
		if err := s.PushI32(readI16U(b)); err != nil {
			return overflowOrUnderflow(err)
		}

	case opcode.DataStoreI32, opcode.DataLongStoreI32, opcode.DataDynamicStoreI32:
		v, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		writeI32(b, v)
	case opcode.DataStoreI64, opcode.DataLongStoreI64, opcode.DataDynamicStoreI64:
		v, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		writeI64(b, v)
	case opcode.DataStoreF32, opcode.DataLongStoreF32, opcode.DataDynamicStoreF32:
		v, err := s.PopF32()
		if err != nil {
			return floatOrStackErr(err)
		}
		writeI32(b, math.Float32bits(v))
	case opcode.DataStoreF64, opcode.DataLongStoreF64, opcode.DataDynamicStoreF64:
		v, err := s.PopF64()
		if err != nil {
			return floatOrStackErr(err)
		}
		writeI64(b, math.Float64bits(v))
	case opcode.DataStoreI8:
		v, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		writeI8(b, v)
	case opcode.DataStoreI16:
		v, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		writeI16(b, v)

	default:
		return TerminateWith(TerminateUnreachable)
	}

	return Advance(in.Size())
}

func dataWidth(c opcode.Code) int {
	switch c {
	case opcode.DataLoadI8S, opcode.DataLoadI8U, opcode.DataStoreI8:
		return 1
	case opcode.DataLoadI16S, opcode.DataLoadI16U, opcode.DataStoreI16:
		return 2
	case opcode.DataLoadI32, opcode.DataStoreI32, opcode.DataLoadF32, opcode.DataStoreF32,
		opcode.DataLongLoadI32, opcode.DataLongStoreI32, opcode.DataLongLoadF32, opcode.DataLongStoreF32,
		opcode.DataDynamicLoadI32, opcode.DataDynamicStoreI32, opcode.DataDynamicLoadF32, opcode.DataDynamicStoreF32:
		return 4
	default:
		return 8
	}
}
