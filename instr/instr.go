// Package instr implements the fixed-width, little-endian bytecode
// encoding described in spec.md Section 4.1: 16/32/64/96-bit
// instructions, decoded purely from opcode identity (no explicit
// alignment markers), with a 128-bit extension for block_alt (see
// DESIGN.md "block_alt encoding").
package instr

import (
	"encoding/binary"
	"fmt"

	"govm/opcode"
)

// Form identifies an instruction's on-disk shape.
type Form byte

const (
	// FormNone is the 16-bit [opcode] shape.
	FormNone Form = iota
	// FormP16 is the 32-bit [opcode][p:16] shape.
	FormP16
	// FormPad32 is the 64-bit [opcode][pad:16][p:32] shape.
	FormPad32
	// FormP16P32 is the 64-bit [opcode][p:16][p:32] shape.
	FormP16P32
	// FormP16x3 is the 64-bit [opcode][p:16][p:16][p:16] shape.
	FormP16x3
	// Form32x2 is the 96-bit [opcode][pad:16][p:32][p:32] shape.
	Form32x2
	// Form32x3 is a 128-bit [opcode][pad:16][p:32][p:32][p:32] shape,
	// an extension beyond spec.md's table used only by block_alt,
	// which needs three independent 32-bit operands. See DESIGN.md.
	Form32x3
)

// Size returns the encoded byte length of the form.
func (f Form) Size() int {
	switch f {
	case FormNone:
		return 2
	case FormP16:
		return 4
	case FormPad32, FormP16P32, FormP16x3:
		return 8
	case Form32x2:
		return 12
	case Form32x3:
		return 16
	default:
		panic(fmt.Sprintf("instr: unknown form %d", f))
	}
}

// formOf maps every defined opcode to its on-disk shape. Instructions
// absent from this table are FormNone by default (pure stack-shape
// ops: drop, duplicate, select, end, nop, halts, ...).
var formOf = map[opcode.Code]Form{
	opcode.ImmI32: FormPad32,
	opcode.ImmI64: Form32x2,
	opcode.ImmF32: FormPad32,
	opcode.ImmF64: Form32x2,

	opcode.LocalLoadI32:  FormP16x3,
	opcode.LocalLoadI64:  FormP16x3,
	opcode.LocalLoadF32:  FormP16x3,
	opcode.LocalLoadF64:  FormP16x3,
	opcode.LocalLoadI8S:  FormP16x3,
	opcode.LocalLoadI8U:  FormP16x3,
	opcode.LocalLoadI16S: FormP16x3,
	opcode.LocalLoadI16U: FormP16x3,
	opcode.LocalStoreI32: FormP16x3,
	opcode.LocalStoreI64: FormP16x3,
	opcode.LocalStoreF32: FormP16x3,
	opcode.LocalStoreF64: FormP16x3,
	opcode.LocalStoreI8:  FormP16x3,
	opcode.LocalStoreI16: FormP16x3,

	opcode.LocalLongLoadI32:  Form32x2,
	opcode.LocalLongLoadI64:  Form32x2,
	opcode.LocalLongLoadF32:  Form32x2,
	opcode.LocalLongLoadF64:  Form32x2,
	opcode.LocalLongStoreI32: Form32x2,
	opcode.LocalLongStoreI64: Form32x2,
	opcode.LocalLongStoreF32: Form32x2,
	opcode.LocalLongStoreF64: Form32x2,

	opcode.DataLoadI32:  FormP16P32,
	opcode.DataLoadI64:  FormP16P32,
	opcode.DataLoadF32:  FormP16P32,
	opcode.DataLoadF64:  FormP16P32,
	opcode.DataLoadI8S:  FormP16P32,
	opcode.DataLoadI8U:  FormP16P32,
	opcode.DataLoadI16S: FormP16P32,
	opcode.DataLoadI16U: FormP16P32,
	opcode.DataStoreI32: FormP16P32,
	opcode.DataStoreI64: FormP16P32,
	opcode.DataStoreF32: FormP16P32,
	opcode.DataStoreF64: FormP16P32,
	opcode.DataStoreI8:  FormP16P32,
	opcode.DataStoreI16: FormP16P32,

	opcode.DataLongLoadI32:  Form32x2,
	opcode.DataLongLoadI64:  Form32x2,
	opcode.DataLongLoadF32:  Form32x2,
	opcode.DataLongLoadF64:  Form32x2,
	opcode.DataLongStoreI32: Form32x2,
	opcode.DataLongStoreI64: Form32x2,
	opcode.DataLongStoreF32: Form32x2,
	opcode.DataLongStoreF64: Form32x2,

	opcode.DataDynamicLoadI32:  FormNone,
	opcode.DataDynamicLoadI64:  FormNone,
	opcode.DataDynamicLoadF32:  FormNone,
	opcode.DataDynamicLoadF64:  FormNone,
	opcode.DataDynamicStoreI32: FormNone,
	opcode.DataDynamicStoreI64: FormNone,
	opcode.DataDynamicStoreF32: FormNone,
	opcode.DataDynamicStoreF64: FormNone,

	opcode.Block:    Form32x2,
	opcode.Break:    Form32x2,
	opcode.Recur:    Form32x2,
	opcode.BlockAlt: Form32x3,
	opcode.BreakAlt: FormPad32,
	opcode.BlockNez: Form32x2,

	opcode.Call:        FormPad32,
	opcode.CallDynamic: FormNone,
	opcode.Syscall:     FormNone,
	opcode.Envcall:     FormPad32,
	opcode.Extcall:     FormPad32,

	opcode.MemoryAllocate:   FormNone,
	opcode.MemoryReallocate: FormNone,
	opcode.MemoryFree:       FormNone,
	opcode.MemoryFill:       FormNone,
	opcode.MemoryCopy:       FormNone,
	opcode.MemoryCapacity:   FormNone,

	opcode.HostAddrLocal:    Form32x2,
	opcode.HostAddrData:     FormP16P32,
	opcode.HostAddrHeap:     FormNone,
	opcode.HostAddrFunction: FormPad32,

	opcode.Terminate: FormPad32,
}

// FormOf returns the on-disk shape for an opcode. Opcodes not present
// in formOf are pure-stack operations with no operands (FormNone).
func FormOf(c opcode.Code) Form {
	if f, ok := formOf[c]; ok {
		return f
	}
	return FormNone
}

// Instruction is a single decoded bytecode instruction: its opcode
// plus up to three 32-bit parameters (narrowed to 16 bits by the
// caller where the Form calls for it).
type Instruction struct {
	Code   opcode.Code
	Form   Form
	Params [3]uint32
}

// Size returns the encoded length in bytes, including the opcode.
func (in Instruction) Size() int { return in.Form.Size() }

var byteOrder = binary.LittleEndian

// Writer accumulates a function's code stream, inserting the nop
// padding spec.md Section 4.1 requires before any instruction whose
// encoding contains a 32-bit parameter when the write cursor isn't
// 4-byte aligned.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty instruction stream writer.
func NewWriter() *Writer { return &Writer{} }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the accumulated code stream. The returned slice
// aliases the writer's internal buffer.
func (w *Writer) Bytes() []byte { return w.buf }

func hasThirtyTwoBitParam(f Form) bool {
	switch f {
	case FormPad32, FormP16P32, Form32x2, Form32x3:
		return true
	default:
		return false
	}
}

// Emit appends one instruction, padding with a nop first if needed.
// Returns the byte offset the instruction was written at.
func (w *Writer) Emit(in Instruction) int {
	if hasThirtyTwoBitParam(in.Form) && len(w.buf)%4 != 0 {
		w.buf = byteOrder.AppendUint16(w.buf, uint16(opcode.Nop))
	}

	offset := len(w.buf)
	w.buf = byteOrder.AppendUint16(w.buf, uint16(in.Code))

	switch in.Form {
	case FormNone:
	case FormP16:
		w.buf = byteOrder.AppendUint16(w.buf, uint16(in.Params[0]))
	case FormPad32:
		w.buf = byteOrder.AppendUint16(w.buf, 0)
		w.buf = byteOrder.AppendUint32(w.buf, in.Params[0])
	case FormP16P32:
		w.buf = byteOrder.AppendUint16(w.buf, uint16(in.Params[0]))
		w.buf = byteOrder.AppendUint32(w.buf, in.Params[1])
	case FormP16x3:
		w.buf = byteOrder.AppendUint16(w.buf, uint16(in.Params[0]))
		w.buf = byteOrder.AppendUint16(w.buf, uint16(in.Params[1]))
		w.buf = byteOrder.AppendUint16(w.buf, uint16(in.Params[2]))
	case Form32x2:
		w.buf = byteOrder.AppendUint16(w.buf, 0)
		w.buf = byteOrder.AppendUint32(w.buf, in.Params[0])
		w.buf = byteOrder.AppendUint32(w.buf, in.Params[1])
	case Form32x3:
		w.buf = byteOrder.AppendUint16(w.buf, 0)
		w.buf = byteOrder.AppendUint32(w.buf, in.Params[0])
		w.buf = byteOrder.AppendUint32(w.buf, in.Params[1])
		w.buf = byteOrder.AppendUint32(w.buf, in.Params[2])
	}

	return offset
}

// PatchParam overwrites one already-written instruction's parameter
// slot in place. Used to back-patch forward branch offsets the way
// spec.md Section 4.3 describes ("stubs ... patched later via fixed
// slot offsets"). slot is 0-based among the instruction's 32-bit
// params; only Form32x2/Form32x3/FormPad32/FormP16P32 support this.
func (w *Writer) PatchParam(instrOffset int, slot int, value uint32) {
	var byteOffset int
	switch slot {
	case 0:
		byteOffset = instrOffset + 4
	case 1:
		byteOffset = instrOffset + 8
	case 2:
		byteOffset = instrOffset + 12
	default:
		panic("instr: slot out of range")
	}
	byteOrder.PutUint32(w.buf[byteOffset:], value)
}

// Reader decodes instructions from a function's code slice, one at a
// time, advancing strictly by what FormOf(opcode) says to consume.
type Reader struct {
	Code []byte
}

// Decode reads the instruction at byte offset pc. It returns the
// decoded instruction; the caller advances pc by in.Size().
func (r Reader) Decode(pc uint32) (Instruction, error) {
	if int(pc)+2 > len(r.Code) {
		return Instruction{}, fmt.Errorf("instr: truncated opcode at %d", pc)
	}
	code := opcode.Code(byteOrder.Uint16(r.Code[pc:]))
	form := FormOf(code)
	size := form.Size()
	if int(pc)+size > len(r.Code) {
		return Instruction{}, fmt.Errorf("instr: truncated operand for %s at %d", code, pc)
	}

	in := Instruction{Code: code, Form: form}
	body := r.Code[pc:]
	switch form {
	case FormNone:
	case FormP16:
		in.Params[0] = uint32(byteOrder.Uint16(body[2:]))
	case FormPad32:
		in.Params[0] = byteOrder.Uint32(body[4:])
	case FormP16P32:
		in.Params[0] = uint32(byteOrder.Uint16(body[2:]))
		in.Params[1] = byteOrder.Uint32(body[4:])
	case FormP16x3:
		in.Params[0] = uint32(byteOrder.Uint16(body[2:]))
		in.Params[1] = uint32(byteOrder.Uint16(body[4:]))
		in.Params[2] = uint32(byteOrder.Uint16(body[6:]))
	case Form32x2:
		in.Params[0] = byteOrder.Uint32(body[4:])
		in.Params[1] = byteOrder.Uint32(body[8:])
	case Form32x3:
		in.Params[0] = byteOrder.Uint32(body[4:])
		in.Params[1] = byteOrder.Uint32(body[8:])
		in.Params[2] = byteOrder.Uint32(body[12:])
	}

	return in, nil
}
