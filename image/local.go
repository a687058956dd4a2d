package image

import "fmt"

// LocalVariableItem is exactly 12 bytes, per spec.md Section 6.1:
// {var_offset:u32, var_actual_length:u32, memory_data_type:u8, pad:u8, var_align:u16}.
type LocalVariableItem struct {
	Offset       uint32
	ActualLength uint32
	DataType     DataType
	Align        uint16
}

const localVariableItemSize = 12

func putLocalVariableItem(dst []byte, it LocalVariableItem) {
	byteOrder.PutUint32(dst[0:4], it.Offset)
	byteOrder.PutUint32(dst[4:8], it.ActualLength)
	dst[8] = byte(it.DataType)
	dst[9] = 0
	byteOrder.PutUint16(dst[10:12], it.Align)
}

func getLocalVariableItem(src []byte) LocalVariableItem {
	return LocalVariableItem{
		Offset:       byteOrder.Uint32(src[0:4]),
		ActualLength: byteOrder.Uint32(src[4:8]),
		DataType:     DataType(src[8]),
		Align:        byteOrder.Uint16(src[10:12]),
	}
}

// LocalVariableList is one function's local-variable layout: the
// per-variable records plus the list's total allocated size, per
// spec.md Section 3.2/4.2. Offsets within Items are 8-byte aligned
// and each variable's slot is its ActualLength padded up to a
// multiple of 8 — AllocatedBytes is the sum of those padded slots.
type LocalVariableList struct {
	Items          []LocalVariableItem
	AllocatedBytes uint32
}

// LocalVariableSection is the array of lists referenced by
// FunctionItem.LocalListIndex, spec.md Section 3.2.
type LocalVariableSection struct {
	Lists []LocalVariableList
}

// listDescriptorSize is {items_offset:u32, items_count:u32, allocated_bytes:u32} = 12 bytes.
const listDescriptorSize = 12

func EmitLocalVariableSection(s LocalVariableSection) []byte {
	var data []byte
	descriptors := make([]byte, len(s.Lists)*listDescriptorSize)
	for i, list := range s.Lists {
		offset := uint32(len(data))
		for _, it := range list.Items {
			rec := make([]byte, localVariableItemSize)
			putLocalVariableItem(rec, it)
			data = append(data, rec...)
		}
		off := i * listDescriptorSize
		byteOrder.PutUint32(descriptors[off:], offset)
		byteOrder.PutUint32(descriptors[off+4:], uint32(len(list.Items)))
		byteOrder.PutUint32(descriptors[off+8:], list.AllocatedBytes)
	}

	out := make([]byte, tableHeaderSize+len(descriptors)+len(data))
	putTableHeader(out, len(s.Lists))
	copy(out[tableHeaderSize:], descriptors)
	copy(out[tableHeaderSize+len(descriptors):], data)
	return out
}

func ParseLocalVariableSection(payload []byte) (LocalVariableSection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return LocalVariableSection{}, err
	}
	descriptorsEnd := tableHeaderSize + count*listDescriptorSize
	if descriptorsEnd > len(payload) {
		return LocalVariableSection{}, fmt.Errorf("image: local variable list table truncated")
	}
	data := payload[descriptorsEnd:]

	out := LocalVariableSection{Lists: make([]LocalVariableList, count)}
	for i := 0; i < count; i++ {
		off := tableHeaderSize + i*listDescriptorSize
		itemsOffset := byteOrder.Uint32(payload[off:])
		itemsCount := byteOrder.Uint32(payload[off+4:])
		allocatedBytes := byteOrder.Uint32(payload[off+8:])

		start := int(itemsOffset)
		end := start + int(itemsCount)*localVariableItemSize
		if start > len(data) || end > len(data) {
			return LocalVariableSection{}, fmt.Errorf("image: local variable list %d items outside data area", i)
		}
		items := make([]LocalVariableItem, itemsCount)
		for j := range items {
			items[j] = getLocalVariableItem(data[start+j*localVariableItemSize:])
		}
		out.Lists[i] = LocalVariableList{Items: items, AllocatedBytes: allocatedBytes}
	}
	return out, nil
}
