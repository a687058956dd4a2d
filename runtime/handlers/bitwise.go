package handlers

import (
	"math/bits"

	"govm/instr"
	"govm/opcode"
)

// Bitwise dispatches category 0x05.
func Bitwise(ctx Context, in instr.Instruction) Result {
	s := ctx.Stack()
	switch in.Code {
	case opcode.AndI32:
		return binI32(s, in, func(a, b uint32) uint32 { return a & b })
	case opcode.OrI32:
		return binI32(s, in, func(a, b uint32) uint32 { return a | b })
	case opcode.XorI32:
		return binI32(s, in, func(a, b uint32) uint32 { return a ^ b })
	case opcode.NotI32:
		return unI32(s, in, func(a uint32) uint32 { return ^a })
	case opcode.ShlI32:
		return binI32(s, in, func(a, b uint32) uint32 { return a << (b & 31) })
	case opcode.ShrI32S:
		return binI32(s, in, func(a, b uint32) uint32 { return uint32(int32(a) >> (b & 31)) })
	case opcode.ShrI32U:
		return binI32(s, in, func(a, b uint32) uint32 { return a >> (b & 31) })
	case opcode.RotlI32:
		return binI32(s, in, func(a, b uint32) uint32 { return bits.RotateLeft32(a, int(b&31)) })
	case opcode.RotrI32:
		return binI32(s, in, func(a, b uint32) uint32 { return bits.RotateLeft32(a, -int(b&31)) })
	case opcode.ClzI32:
		return unI32(s, in, func(a uint32) uint32 { return uint32(bits.LeadingZeros32(a)) })
	case opcode.CtzI32:
		return unI32(s, in, func(a uint32) uint32 { return uint32(bits.TrailingZeros32(a)) })
	case opcode.PopcntI32:
		return unI32(s, in, func(a uint32) uint32 { return uint32(bits.OnesCount32(a)) })

	case opcode.AndI64:
		return binI64(s, in, func(a, b uint64) uint64 { return a & b })
	case opcode.OrI64:
		return binI64(s, in, func(a, b uint64) uint64 { return a | b })
	case opcode.XorI64:
		return binI64(s, in, func(a, b uint64) uint64 { return a ^ b })
	case opcode.NotI64:
		return unI64(s, in, func(a uint64) uint64 { return ^a })
	case opcode.ShlI64:
		return binI64(s, in, func(a, b uint64) uint64 { return a << (b & 63) })
	case opcode.ShrI64S:
		return binI64(s, in, func(a, b uint64) uint64 { return uint64(int64(a) >> (b & 63)) })
	case opcode.ShrI64U:
		return binI64(s, in, func(a, b uint64) uint64 { return a >> (b & 63) })
	case opcode.RotlI64:
		return binI64(s, in, func(a, b uint64) uint64 { return bits.RotateLeft64(a, int(b&63)) })
	case opcode.RotrI64:
		return binI64(s, in, func(a, b uint64) uint64 { return bits.RotateLeft64(a, -int(b&63)) })
	case opcode.ClzI64:
		return unI64(s, in, func(a uint64) uint64 { return uint64(bits.LeadingZeros64(a)) })
	case opcode.CtzI64:
		return unI64(s, in, func(a uint64) uint64 { return uint64(bits.TrailingZeros64(a)) })
	case opcode.PopcntI64:
		return unI64(s, in, func(a uint64) uint64 { return uint64(bits.OnesCount64(a)) })

	default:
		return TerminateWith(TerminateUnreachable)
	}
}
