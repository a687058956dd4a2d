package image

import "fmt"

// tableHeaderSize is the {item_count:u32}{pad:u32} prefix shared by
// both section payload shapes in spec.md Section 6.1.
const tableHeaderSize = 8

func putTableHeader(dst []byte, itemCount int) {
	byteOrder.PutUint32(dst[0:4], uint32(itemCount))
	byteOrder.PutUint32(dst[4:8], 0)
}

func getTableHeader(src []byte) (itemCount int, err error) {
	if len(src) < tableHeaderSize {
		return 0, fmt.Errorf("image: section payload too short for table header: %d bytes", len(src))
	}
	return int(byteOrder.Uint32(src[0:4])), nil
}
