// Package stack implements the operand stack and the block/function
// frame protocol of spec.md Section 3.3 and Section 4.2: typed
// 8-byte-slot push/pop, frame creation and teardown, and layered
// local-variable addressing.
package stack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"govm/image"
)

var byteOrder = binary.LittleEndian

// SlotSize is the fixed width of one operand-stack slot (spec.md
// Section 3.1).
const SlotSize = image.SlotSize

var (
	// ErrStackOverflow is returned when a push or frame creation
	// would exceed the stack's fixed capacity (spec.md Section 6.3
	// TERMINATE_CODE_STACK_OVERFLOW).
	ErrStackOverflow = errors.New("stack: overflow")
	// ErrStackUnderflow is returned when a pop or frame creation
	// needs more operands than are present.
	ErrStackUnderflow = errors.New("stack: underflow")
	// ErrUnsupportedFloat is returned when a pushed or popped
	// floating-point bit pattern is a signalling NaN or other
	// unsupported variant (spec.md Section 4.2,
	// TERMINATE_CODE_UNSUPPORTED_FLOATING_POINT_VARIANTS).
	ErrUnsupportedFloat = errors.New("stack: unsupported floating-point variant")
)

// Stack is the flat byte-addressed operand stack. Frame headers are
// not serialized into it (they exist only for the lifetime of
// execution); the data bytes of a frame's local-variable area and
// operand space do live in this buffer, addressed by byte offset.
type Stack struct {
	data   []byte
	sp     int
	frames []Frame
}

// New allocates a stack with the given byte capacity.
func New(capacityBytes int) *Stack {
	return &Stack{data: make([]byte, capacityBytes)}
}

// SP returns the current stack pointer: the byte offset one past the
// top operand.
func (s *Stack) SP() int { return s.sp }

func (s *Stack) reserve(n int) error {
	if s.sp+n > len(s.data) {
		return ErrStackOverflow
	}
	return nil
}

// PushI32 zero-extends v into a full 8-byte slot; it never
// sign-extends, so the slot's upper four bytes are always zero.
func (s *Stack) PushI32(v uint32) error {
	if err := s.reserve(SlotSize); err != nil {
		return err
	}
	byteOrder.PutUint64(s.data[s.sp:], uint64(v))
	s.sp += SlotSize
	return nil
}

func (s *Stack) PushI64(v uint64) error {
	if err := s.reserve(SlotSize); err != nil {
		return err
	}
	byteOrder.PutUint64(s.data[s.sp:], v)
	s.sp += SlotSize
	return nil
}

func (s *Stack) PushF32(v float32) error {
	bits := math.Float32bits(v)
	if !isSupportedFloat32(bits) {
		return ErrUnsupportedFloat
	}
	return s.PushI32(bits)
}

func (s *Stack) PushF64(v float64) error {
	bits := math.Float64bits(v)
	if !isSupportedFloat64(bits) {
		return ErrUnsupportedFloat
	}
	return s.PushI64(bits)
}

func (s *Stack) popSlot() (uint64, error) {
	if s.sp < SlotSize {
		return 0, ErrStackUnderflow
	}
	s.sp -= SlotSize
	return byteOrder.Uint64(s.data[s.sp:]), nil
}

// PopI32 truncates the popped slot to its low 32 bits.
func (s *Stack) PopI32() (uint32, error) {
	v, err := s.popSlot()
	return uint32(v), err
}

func (s *Stack) PopI64() (uint64, error) {
	return s.popSlot()
}

func (s *Stack) PopF32() (float32, error) {
	v, err := s.popSlot()
	if err != nil {
		return 0, err
	}
	bits := uint32(v)
	if !isSupportedFloat32(bits) {
		return 0, ErrUnsupportedFloat
	}
	return math.Float32frombits(bits), nil
}

func (s *Stack) PopF64() (float64, error) {
	v, err := s.popSlot()
	if err != nil {
		return 0, err
	}
	if !isSupportedFloat64(v) {
		return 0, ErrUnsupportedFloat
	}
	return math.Float64frombits(v), nil
}

// Drop discards the top operand without inspecting it.
func (s *Stack) Drop() error {
	if s.sp < SlotSize {
		return ErrStackUnderflow
	}
	s.sp -= SlotSize
	return nil
}

// Duplicate copies the top operand, leaving two identical slots.
func (s *Stack) Duplicate() error {
	if s.sp < SlotSize {
		return ErrStackUnderflow
	}
	v := byteOrder.Uint64(s.data[s.sp-SlotSize:])
	return s.PushI64(v)
}

// Select pops a condition then two operands, pushing the first if the
// condition is non-zero, else the second (fundamental "select" op).
func (s *Stack) Select() error {
	cond, err := s.PopI32()
	if err != nil {
		return err
	}
	a, err := s.popSlot()
	if err != nil {
		return err
	}
	b, err := s.popSlot()
	if err != nil {
		return err
	}
	if cond != 0 {
		return s.PushI64(a)
	}
	return s.PushI64(b)
}

// isSupportedFloat32 rejects signalling NaNs: a NaN (all exponent bits
// set, non-zero mantissa) whose quiet bit (mantissa MSB) is clear.
func isSupportedFloat32(bits uint32) bool {
	const expMask, mantissaMSB, mantissaMask = 0x7F800000, 0x00400000, 0x007FFFFF
	isNaN := bits&expMask == expMask && bits&mantissaMask != 0
	isSignaling := isNaN && bits&mantissaMSB == 0
	return !isSignaling
}

func isSupportedFloat64(bits uint64) bool {
	const expMask, mantissaMSB, mantissaMask = uint64(0x7FF0000000000000), uint64(0x0008000000000000), uint64(0x000FFFFFFFFFFFFF)
	isNaN := bits&expMask == expMask && bits&mantissaMask != 0
	isSignaling := isNaN && bits&mantissaMSB == 0
	return !isSignaling
}

// Bytes exposes the raw stack memory for a byte range, used by the
// local/data/memory handlers to memcpy between operand slots and
// local-variable or data-section storage without a temporary copy
// (spec.md Section 4.4).
func (s *Stack) Bytes(offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 || offset+length > len(s.data) {
		return nil, fmt.Errorf("stack: byte range [%d,%d) outside capacity %d", offset, offset+length, len(s.data))
	}
	return s.data[offset : offset+length], nil
}

// TopBytes returns the byte range of the top operand slot, for
// handlers that need to memcpy into/out of it directly.
func (s *Stack) TopBytes() ([]byte, error) {
	return s.Bytes(s.sp-SlotSize, SlotSize)
}
