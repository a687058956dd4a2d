package image

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies a govm module image. Spec.md Section 6.1 leaves the
// exact bytes implementation-defined but requires them to be stable.
var Magic = [8]byte{'g', 'o', 'v', 'm', 'i', 'm', 'a', 'g'}

// FormatVersion is the only version this package parses and emits.
const FormatVersion uint32 = 1

var byteOrder = binary.LittleEndian

// SectionID names one of the defined module sections (spec.md
// Section 3.2). Values are arbitrary but, per spec.md Section 6.2,
// must stay stable once chosen since they are embedded in binaries.
type SectionID uint32

const (
	SectionType SectionID = iota + 1
	SectionLocalVariable
	SectionFunction
	SectionReadOnlyData
	SectionReadWriteData
	SectionUninitData
	SectionFunctionIndex
	SectionDataIndex
	SectionFunctionName
	SectionDataName
	SectionExternalLibrary
	SectionExternalFunction
)

func (id SectionID) String() string {
	switch id {
	case SectionType:
		return "type"
	case SectionLocalVariable:
		return "local_variable"
	case SectionFunction:
		return "function"
	case SectionReadOnlyData:
		return "read_only_data"
	case SectionReadWriteData:
		return "read_write_data"
	case SectionUninitData:
		return "uninit_data"
	case SectionFunctionIndex:
		return "function_index"
	case SectionDataIndex:
		return "data_index"
	case SectionFunctionName:
		return "function_name"
	case SectionDataName:
		return "data_name"
	case SectionExternalLibrary:
		return "external_library"
	case SectionExternalFunction:
		return "external_function"
	default:
		return fmt.Sprintf("section(%d)", uint32(id))
	}
}

// sectionTableEntrySize is {id:u32, offset:u32, length:u32} padded to
// 16 bytes, per spec.md Section 6.1.
const sectionTableEntrySize = 16

// sectionTableEntry is one row of the file's section table.
type sectionTableEntry struct {
	ID     SectionID
	Offset uint32
	Length uint32
}

func putSectionTableEntry(dst []byte, e sectionTableEntry) {
	byteOrder.PutUint32(dst[0:4], uint32(e.ID))
	byteOrder.PutUint32(dst[4:8], e.Offset)
	byteOrder.PutUint32(dst[8:12], e.Length)
	byteOrder.PutUint32(dst[12:16], 0)
}

func getSectionTableEntry(src []byte) sectionTableEntry {
	return sectionTableEntry{
		ID:     SectionID(byteOrder.Uint32(src[0:4])),
		Offset: byteOrder.Uint32(src[4:8]),
		Length: byteOrder.Uint32(src[8:12]),
	}
}

// fileHeaderSize is 8-byte magic + 4-byte version + 4-byte section
// count, per spec.md Section 6.1.
const fileHeaderSize = 16
