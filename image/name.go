package image

import "fmt"

// Visibility controls whether a named function or data item is
// resolvable from outside its owning module, per spec.md Section 3.2
// (FunctionNameSection/DataNameSection entries carry a visibility).
type Visibility uint8

const (
	VisibilityPrivate Visibility = iota
	VisibilityPublic
)

func (v Visibility) String() string {
	if v == VisibilityPublic {
		return "public"
	}
	return "private"
}

// FunctionNameItem maps one qualified name to an internal function
// index, with its visibility.
type FunctionNameItem struct {
	Name          string
	Visibility    Visibility
	InternalIndex uint32
}

const functionNameItemSize = 12 // {name_offset:u32, name_length:u16, visibility:u8, pad:u8, internal_index:u32}

// FunctionNameSection is the symbol table for function names.
type FunctionNameSection struct {
	Items []FunctionNameItem
}

func EmitFunctionNameSection(s FunctionNameSection) []byte {
	var data []byte
	items := make([]byte, len(s.Items)*functionNameItemSize)
	for i, it := range s.Items {
		nameOffset := uint32(len(data))
		data = append(data, it.Name...)
		off := i * functionNameItemSize
		byteOrder.PutUint32(items[off:], nameOffset)
		byteOrder.PutUint16(items[off+4:], uint16(len(it.Name)))
		items[off+6] = byte(it.Visibility)
		byteOrder.PutUint32(items[off+8:], it.InternalIndex)
	}
	out := make([]byte, tableHeaderSize+len(items)+len(data))
	putTableHeader(out, len(s.Items))
	copy(out[tableHeaderSize:], items)
	copy(out[tableHeaderSize+len(items):], data)
	return out
}

func ParseFunctionNameSection(payload []byte) (FunctionNameSection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return FunctionNameSection{}, err
	}
	itemsEnd := tableHeaderSize + count*functionNameItemSize
	if itemsEnd > len(payload) {
		return FunctionNameSection{}, fmt.Errorf("image: function name table truncated")
	}
	data := payload[itemsEnd:]

	out := FunctionNameSection{Items: make([]FunctionNameItem, count)}
	for i := range out.Items {
		off := tableHeaderSize + i*functionNameItemSize
		nameOffset := byteOrder.Uint32(payload[off:])
		nameLength := byteOrder.Uint16(payload[off+4:])
		name, err := sliceString(data, nameOffset, nameLength)
		if err != nil {
			return FunctionNameSection{}, fmt.Errorf("image: function name %d: %w", i, err)
		}
		out.Items[i] = FunctionNameItem{
			Name:          name,
			Visibility:    Visibility(payload[off+6]),
			InternalIndex: byteOrder.Uint32(payload[off+8:]),
		}
	}
	return out, nil
}

// DataNameItem is the data-section equivalent of FunctionNameItem,
// with an added section-type discriminant (data lives in one of
// three sections; spec.md Section 3.2).
type DataNameItem struct {
	Name          string
	Visibility    Visibility
	SectionType   DataSectionType
	InternalIndex uint32
}

const dataNameItemSize = 12 // {name_offset:u32, name_length:u16, visibility:u8, section_type:u8, internal_index:u32}

// DataNameSection is the symbol table for data item names.
type DataNameSection struct {
	Items []DataNameItem
}

func EmitDataNameSection(s DataNameSection) []byte {
	var data []byte
	items := make([]byte, len(s.Items)*dataNameItemSize)
	for i, it := range s.Items {
		nameOffset := uint32(len(data))
		data = append(data, it.Name...)
		off := i * dataNameItemSize
		byteOrder.PutUint32(items[off:], nameOffset)
		byteOrder.PutUint16(items[off+4:], uint16(len(it.Name)))
		items[off+6] = byte(it.Visibility)
		items[off+7] = byte(it.SectionType)
		byteOrder.PutUint32(items[off+8:], it.InternalIndex)
	}
	out := make([]byte, tableHeaderSize+len(items)+len(data))
	putTableHeader(out, len(s.Items))
	copy(out[tableHeaderSize:], items)
	copy(out[tableHeaderSize+len(items):], data)
	return out
}

func ParseDataNameSection(payload []byte) (DataNameSection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return DataNameSection{}, err
	}
	itemsEnd := tableHeaderSize + count*dataNameItemSize
	if itemsEnd > len(payload) {
		return DataNameSection{}, fmt.Errorf("image: data name table truncated")
	}
	data := payload[itemsEnd:]

	out := DataNameSection{Items: make([]DataNameItem, count)}
	for i := range out.Items {
		off := tableHeaderSize + i*dataNameItemSize
		nameOffset := byteOrder.Uint32(payload[off:])
		nameLength := byteOrder.Uint16(payload[off+4:])
		name, err := sliceString(data, nameOffset, nameLength)
		if err != nil {
			return DataNameSection{}, fmt.Errorf("image: data name %d: %w", i, err)
		}
		out.Items[i] = DataNameItem{
			Name:          name,
			Visibility:    Visibility(payload[off+6]),
			SectionType:   DataSectionType(payload[off+7]),
			InternalIndex: byteOrder.Uint32(payload[off+8:]),
		}
	}
	return out, nil
}

func sliceString(data []byte, offset uint32, length uint16) (string, error) {
	end := int(offset) + int(length)
	if offset > uint32(len(data)) || end > len(data) {
		return "", fmt.Errorf("name range [%d,%d) outside data area of length %d", offset, end, len(data))
	}
	return string(data[offset:end]), nil
}
