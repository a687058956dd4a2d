package handlers

import (
	"encoding/binary"

	"govm/image"
)

var byteOrder = binary.LittleEndian

// widthOf returns the byte width a value of data type dt occupies
// in backing storage (as opposed to the 8-byte operand slot
// it always occupies on the stack).
func widthOf(dt image.DataType) int {
	switch dt {
	case image.TypeI32, image.TypeF32:
		return 4
	case image.TypeI64, image.TypeF64:
		return 8
	default:
		return int(dt.Size())
	}
}

// readI8S sign-extends a stored byte to a 32-bit value.
func readI8S(b []byte) uint32 { return uint32(int32(int8(b[0]))) }
func readI8U(b []byte) uint32 { return uint32(b[0]) }
func readI16S(b []byte) uint32 {
	return uint32(int32(int16(byteOrder.Uint16(b))))
}
func readI16U(b []byte) uint32 { return uint32(byteOrder.Uint16(b)) }

func readI32(b []byte) uint32 { return byteOrder.Uint32(b) }
func readI64(b []byte) uint64 { return byteOrder.Uint64(b) }

func readF32Bits(b []byte) uint32 { return byteOrder.Uint32(b) }
func readF64Bits(b []byte) uint64 { return byteOrder.Uint64(b) }

func writeI8(b []byte, v uint32)  { b[0] = byte(v) }
func writeI16(b []byte, v uint32) { byteOrder.PutUint16(b, uint16(v)) }
func writeI32(b []byte, v uint32) { byteOrder.PutUint32(b, v) }
func writeI64(b []byte, v uint64) { byteOrder.PutUint64(b, v) }

// validFloat32/64 reject signalling NaNs the same way stack.Push*
// does. No handler calls them: float loads and stores are checked by
// stack.PushF32/PushF64 and PopF32/PopF64 instead.
func validFloat32(bits uint32) bool {
	const expMask, mantissaMSB, mantissaMask = 0x7F800000, 0x00400000, 0x007FFFFF
	isNaN := bits&expMask == expMask && bits&mantissaMask != 0
	return !(isNaN && bits&mantissaMSB == 0)
}

func validFloat64(bits uint64) bool {
	const expMask, mantissaMSB, mantissaMask = uint64(0x7FF0000000000000), uint64(0x0008000000000000), uint64(0x000FFFFFFFFFFFFF)
	isNaN := bits&expMask == expMask && bits&mantissaMask != 0
	return !(isNaN && bits&mantissaMSB == 0)
}
