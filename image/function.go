package image

import "fmt"

// FunctionItem is one entry of the FunctionSection, spec.md Section 3.2:
// {type_index, local_list_index, code_offset, code_length}.
type FunctionItem struct {
	TypeIndex      uint32
	LocalListIndex uint32
	CodeOffset     uint32
	CodeLength     uint32
}

const functionItemSize = 16

// FunctionSection is the module's function table plus the flat code
// buffer every FunctionItem's (CodeOffset, CodeLength) indexes into.
type FunctionSection struct {
	Items     []FunctionItem
	CodesData []byte
}

func EmitFunctionSection(s FunctionSection) []byte {
	items := make([]byte, len(s.Items)*functionItemSize)
	for i, it := range s.Items {
		off := i * functionItemSize
		byteOrder.PutUint32(items[off:], it.TypeIndex)
		byteOrder.PutUint32(items[off+4:], it.LocalListIndex)
		byteOrder.PutUint32(items[off+8:], it.CodeOffset)
		byteOrder.PutUint32(items[off+12:], it.CodeLength)
	}

	out := make([]byte, tableHeaderSize+len(items)+len(s.CodesData))
	putTableHeader(out, len(s.Items))
	copy(out[tableHeaderSize:], items)
	copy(out[tableHeaderSize+len(items):], s.CodesData)
	return out
}

func ParseFunctionSection(payload []byte) (FunctionSection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return FunctionSection{}, err
	}
	itemsEnd := tableHeaderSize + count*functionItemSize
	if itemsEnd > len(payload) {
		return FunctionSection{}, fmt.Errorf("image: function item table truncated")
	}

	out := FunctionSection{
		Items:     make([]FunctionItem, count),
		CodesData: payload[itemsEnd:],
	}
	for i := range out.Items {
		off := tableHeaderSize + i*functionItemSize
		out.Items[i] = FunctionItem{
			TypeIndex:      byteOrder.Uint32(payload[off:]),
			LocalListIndex: byteOrder.Uint32(payload[off+4:]),
			CodeOffset:     byteOrder.Uint32(payload[off+8:]),
			CodeLength:     byteOrder.Uint32(payload[off+12:]),
		}
	}
	return out, nil
}

// Code returns the byte slice for one function's instructions.
func (s FunctionSection) Code(internalIndex uint32) ([]byte, error) {
	if int(internalIndex) >= len(s.Items) {
		return nil, fmt.Errorf("image: function internal index %d out of range", internalIndex)
	}
	it := s.Items[internalIndex]
	start, end := int(it.CodeOffset), int(it.CodeOffset)+int(it.CodeLength)
	if start > len(s.CodesData) || end > len(s.CodesData) {
		return nil, fmt.Errorf("image: function %d code [%d,%d) outside codes_data of length %d", internalIndex, start, end, len(s.CodesData))
	}
	return s.CodesData[start:end], nil
}
