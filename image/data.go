package image

import "fmt"

// DataItem is exactly 12 bytes, per spec.md Section 6.1:
// {data_offset:u32, data_length:u32, memory_data_type:u8, pad:u8, data_align:u16}.
type DataItem struct {
	Offset   uint32
	Length   uint32
	DataType DataType
	Align    uint16
}

const dataItemSize = 12

func putDataItem(dst []byte, it DataItem) {
	byteOrder.PutUint32(dst[0:4], it.Offset)
	byteOrder.PutUint32(dst[4:8], it.Length)
	dst[8] = byte(it.DataType)
	dst[9] = 0
	byteOrder.PutUint16(dst[10:12], it.Align)
}

func getDataItem(src []byte) DataItem {
	return DataItem{
		Offset:   byteOrder.Uint32(src[0:4]),
		Length:   byteOrder.Uint32(src[4:8]),
		DataType: DataType(src[8]),
		Align:    byteOrder.Uint16(src[10:12]),
	}
}

// DataSection backs ReadOnlyData, ReadWriteData and UninitData
// (spec.md Section 3.2). HasBytes distinguishes read/write sections
// (which carry an initial-value byte buffer) from uninit sections
// (which reserve space without storing contents on disk).
type DataSection struct {
	Items    []DataItem
	HasBytes bool
	Data     []byte
}

func EmitDataSection(s DataSection) []byte {
	items := make([]byte, len(s.Items)*dataItemSize)
	for i, it := range s.Items {
		putDataItem(items[i*dataItemSize:], it)
	}

	var dataLen int
	if s.HasBytes {
		dataLen = len(s.Data)
	}
	out := make([]byte, tableHeaderSize+len(items)+dataLen)
	putTableHeader(out, len(s.Items))
	copy(out[tableHeaderSize:], items)
	if s.HasBytes {
		copy(out[tableHeaderSize+len(items):], s.Data)
	}
	return out
}

func ParseDataSection(payload []byte, hasBytes bool) (DataSection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return DataSection{}, err
	}
	itemsEnd := tableHeaderSize + count*dataItemSize
	if itemsEnd > len(payload) {
		return DataSection{}, fmt.Errorf("image: data item table truncated")
	}

	out := DataSection{Items: make([]DataItem, count), HasBytes: hasBytes}
	for i := range out.Items {
		out.Items[i] = getDataItem(payload[tableHeaderSize+i*dataItemSize:])
	}
	if hasBytes {
		out.Data = payload[itemsEnd:]
	}
	return out, nil
}

// Bytes returns the initial-value bytes for one item of a read/write
// or read-only data section. It returns an error if called on an
// uninit section (HasBytes false) or with an out-of-range index.
func (s DataSection) Bytes(internalIndex uint32) ([]byte, error) {
	if !s.HasBytes {
		return nil, fmt.Errorf("image: uninit data section has no stored bytes")
	}
	if int(internalIndex) >= len(s.Items) {
		return nil, fmt.Errorf("image: data internal index %d out of range", internalIndex)
	}
	it := s.Items[internalIndex]
	start, end := int(it.Offset), int(it.Offset)+int(it.Length)
	if start > len(s.Data) || end > len(s.Data) {
		return nil, fmt.Errorf("image: data item %d range [%d,%d) outside data area of length %d", internalIndex, start, end, len(s.Data))
	}
	return s.Data[start:end], nil
}
