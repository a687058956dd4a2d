package image

import "fmt"

// ExternalLibraryKind distinguishes how a SymbolResolver should treat
// an ExternalLibraryItem (see ffi.SymbolResolver).
type ExternalLibraryKind uint8

const (
	// ExternalLibrarySharedObject names a dynamically loaded shared
	// library (resolved via the embedder's SymbolResolver, spec.md
	// Section 6.4).
	ExternalLibrarySharedObject ExternalLibraryKind = iota
	// ExternalLibrarySystem names the implicit default namespace
	// (e.g. symbols already resident in the host process).
	ExternalLibrarySystem
)

// ExternalLibraryItem is one external library descriptor, spec.md
// Section 3.2.
type ExternalLibraryItem struct {
	Name string
	Kind ExternalLibraryKind
}

const externalLibraryItemSize = 8 // {name_offset:u32, name_length:u16, kind:u8, pad:u8}

// ExternalLibrarySection is the module's external library table.
type ExternalLibrarySection struct {
	Items []ExternalLibraryItem
}

func EmitExternalLibrarySection(s ExternalLibrarySection) []byte {
	var data []byte
	items := make([]byte, len(s.Items)*externalLibraryItemSize)
	for i, it := range s.Items {
		nameOffset := uint32(len(data))
		data = append(data, it.Name...)
		off := i * externalLibraryItemSize
		byteOrder.PutUint32(items[off:], nameOffset)
		byteOrder.PutUint16(items[off+4:], uint16(len(it.Name)))
		items[off+6] = byte(it.Kind)
	}
	out := make([]byte, tableHeaderSize+len(items)+len(data))
	putTableHeader(out, len(s.Items))
	copy(out[tableHeaderSize:], items)
	copy(out[tableHeaderSize+len(items):], data)
	return out
}

func ParseExternalLibrarySection(payload []byte) (ExternalLibrarySection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return ExternalLibrarySection{}, err
	}
	itemsEnd := tableHeaderSize + count*externalLibraryItemSize
	if itemsEnd > len(payload) {
		return ExternalLibrarySection{}, fmt.Errorf("image: external library table truncated")
	}
	data := payload[itemsEnd:]

	out := ExternalLibrarySection{Items: make([]ExternalLibraryItem, count)}
	for i := range out.Items {
		off := tableHeaderSize + i*externalLibraryItemSize
		nameOffset := byteOrder.Uint32(payload[off:])
		nameLength := byteOrder.Uint16(payload[off+4:])
		name, err := sliceString(data, nameOffset, nameLength)
		if err != nil {
			return ExternalLibrarySection{}, fmt.Errorf("image: external library %d: %w", i, err)
		}
		out.Items[i] = ExternalLibraryItem{Name: name, Kind: ExternalLibraryKind(payload[off+6])}
	}
	return out, nil
}

// ExternalFunctionItem is one external function descriptor, spec.md
// Section 3.2: {name, library_index, type_index}.
type ExternalFunctionItem struct {
	Name         string
	LibraryIndex uint32
	TypeIndex    uint32
}

const externalFunctionItemSize = 14 // {name_offset:u32, name_length:u16, library_index:u32, type_index:u32}

// ExternalFunctionSection is the module's external function table,
// referenced by extcall's external_function_index operand.
type ExternalFunctionSection struct {
	Items []ExternalFunctionItem
}

func EmitExternalFunctionSection(s ExternalFunctionSection) []byte {
	var data []byte
	items := make([]byte, len(s.Items)*externalFunctionItemSize)
	for i, it := range s.Items {
		nameOffset := uint32(len(data))
		data = append(data, it.Name...)
		off := i * externalFunctionItemSize
		byteOrder.PutUint32(items[off:], nameOffset)
		byteOrder.PutUint16(items[off+4:], uint16(len(it.Name)))
		byteOrder.PutUint32(items[off+6:], it.LibraryIndex)
		byteOrder.PutUint32(items[off+10:], it.TypeIndex)
	}
	out := make([]byte, tableHeaderSize+len(items)+len(data))
	putTableHeader(out, len(s.Items))
	copy(out[tableHeaderSize:], items)
	copy(out[tableHeaderSize+len(items):], data)
	return out
}

func ParseExternalFunctionSection(payload []byte) (ExternalFunctionSection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return ExternalFunctionSection{}, err
	}
	itemsEnd := tableHeaderSize + count*externalFunctionItemSize
	if itemsEnd > len(payload) {
		return ExternalFunctionSection{}, fmt.Errorf("image: external function table truncated")
	}
	data := payload[itemsEnd:]

	out := ExternalFunctionSection{Items: make([]ExternalFunctionItem, count)}
	for i := range out.Items {
		off := tableHeaderSize + i*externalFunctionItemSize
		nameOffset := byteOrder.Uint32(payload[off:])
		nameLength := byteOrder.Uint16(payload[off+4:])
		name, err := sliceString(data, nameOffset, nameLength)
		if err != nil {
			return ExternalFunctionSection{}, fmt.Errorf("image: external function %d: %w", i, err)
		}
		out.Items[i] = ExternalFunctionItem{
			Name:         name,
			LibraryIndex: byteOrder.Uint32(payload[off+6:]),
			TypeIndex:    byteOrder.Uint32(payload[off+10:]),
		}
	}
	return out, nil
}
