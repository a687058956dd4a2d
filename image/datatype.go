package image

import "fmt"

// DataType is the one-byte type tag stored in DataItem and
// LocalVariableItem records. The four VM operand types occupy the
// same tag space as the "raw bytes" data-section-only pseudo-type;
// see spec.md Section 3.1.
type DataType uint8

const (
	TypeI32 DataType = iota
	TypeI64
	TypeF32
	TypeF64
	// TypeBytes marks a data-section item whose contents are opaque
	// bytes rather than one of the four scalar operand types. It
	// never appears on the operand stack.
	TypeBytes
)

// Size returns the item's natural byte width. TypeBytes has no
// natural width; callers use the item's own actual_size/data_length
// field instead.
func (t DataType) Size() int {
	switch t {
	case TypeI32, TypeF32:
		return 4
	case TypeI64, TypeF64:
		return 8
	default:
		return 0
	}
}

func (t DataType) String() string {
	switch t {
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeF32:
		return "f32"
	case TypeF64:
		return "f64"
	case TypeBytes:
		return "bytes"
	default:
		return fmt.Sprintf("datatype(%d)", uint8(t))
	}
}

// SlotSize is the fixed width of one operand-stack slot (spec.md
// Section 3.1): every scalar value, regardless of natural width,
// occupies 8 bytes on the stack.
const SlotSize = 8
