package handlers

import (
	"math"

	"govm/instr"
	"govm/opcode"
)

// Local dispatches the local-variable access category (0x02),
// implementing spec.md Section 4.2's
// get_local_variable_start_address(layers, index, expected_size) on
// top of the flat stack buffer: a load/store is a bounds-checked
// memcpy between the operand stack top and the addressed local slot.
//
// Short forms carry (layers:16, index:16, reserved:16) in
// Params[0..2]. Long forms pack (layers<<16|index) into Params[0] and
// carry an extra byte offset, added to the variable's own start
// address, in Params[1] — for element access inside an aggregate
// local the short form's single fixed offset can't reach.
func Local(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()

	var layers, index int
	var extraOffset int
	switch in.Form {
	case instr.FormP16x3:
		layers = int(in.Params[0])
		index = int(in.Params[1])
	case instr.Form32x2:
		layers = int(in.Params[0] >> 16)
		index = int(in.Params[0] & 0xFFFF)
		extraOffset = int(in.Params[1])
	default:
		return TerminateWith(TerminateUnreachable)
	}

	width := localWidth(in.Code)
	addr, err := s.LocalVariableAddress(layers, index, extraOffset+width)
	if err != nil {
		return frameErr(err)
	}
	addr += extraOffset

	b, err := s.Bytes(addr, width)
	if err != nil {
		return TerminateWith(TerminateIndexOutOfRange)
	}

	switch in.Code {
	case opcode.LocalLoadI32, opcode.LocalLongLoadI32:
		if err := s.PushI32(readI32(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.LocalLoadI64, opcode.LocalLongLoadI64:
		if err := s.PushI64(readI64(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.LocalLoadF32, opcode.LocalLongLoadF32:
		if err := s.PushF32(math.Float32frombits(readF32Bits(b))); err != nil {
			return floatOrStackErr(err)
		}
	case opcode.LocalLoadF64, opcode.LocalLongLoadF64:
		if err := s.PushF64(math.Float64frombits(readF64Bits(b))); err != nil {
			return floatOrStackErr(err)
		}
	case opcode.LocalLoadI8S:
		if err := s.PushI32(readI8S(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.LocalLoadI8U:
		if err := s.PushI32(readI8U(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.LocalLoadI16S:
		if err := s.PushI32(readI16S(b)); err != nil {
			return overflowOrUnderflow(err)
		}
	case opcode.LocalLoadI16U:
		if err := s.PushI32(readI16U(b)); err != nil {
			return overflowOrUnderflow(err)
		}

	case opcode.LocalStoreI32, opcode.LocalLongStoreI32:
		v, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		writeI32(b, v)
	case opcode.LocalStoreI64, opcode.LocalLongStoreI64:
		v, err := s.PopI64()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		writeI64(b, v)
	case opcode.LocalStoreF32, opcode.LocalLongStoreF32:
		v, err := s.PopF32()
		if err != nil {
			return floatOrStackErr(err)
		}
		writeI32(b, math.Float32bits(v))
	case opcode.LocalStoreF64, opcode.LocalLongStoreF64:
		v, err := s.PopF64()
		if err != nil {
			return floatOrStackErr(err)
		}
		writeI64(b, math.Float64bits(v))
	case opcode.LocalStoreI8:
		v, err := s.PopI32()
		if err != nil {
			return overflowOrUnderflow(err)
		}
		writeI8(b, v)
	case opcode.LocalStoreI16:
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

func localWidth(c opcode.Code) int {
	switch c {
	case opcode.LocalLoadI8S, opcode.LocalLoadI8U, opcode.LocalStoreI8:
		return 1
	case opcode.LocalLoadI16S, opcode.LocalLoadI16U, opcode.LocalStoreI16:
		return 2
	case opcode.LocalLoadI32, opcode.LocalStoreI32, opcode.LocalLoadF32, opcode.LocalStoreF32,
		opcode.LocalLongLoadI32, opcode.LocalLongStoreI32, opcode.LocalLongLoadF32, opcode.LocalLongStoreF32:
		return 4
	default:
		return 8
	}
}
