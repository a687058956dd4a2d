package image

import "fmt"

// FunctionType is one entry of the TypeSection: a function signature
// referenced by index from FunctionSection, ExternalFunctionSection,
// and block instructions (spec.md Section 3.2).
type FunctionType struct {
	Params  []DataType
	Results []DataType
}

// TypeSection is the array of function signatures, spec.md Section
// 3.2. On disk it uses the "table + data area" shape: each table item
// is a typeItem record referencing a shared byte run of DataType tags
// in the data area.
type TypeSection struct {
	Types []FunctionType
}

// typeItemSize is {params_offset:u32, params_count:u16, results_offset:u32, results_count:u16} = 12 bytes.
const typeItemSize = 12

func EmitTypeSection(s TypeSection) []byte {
	var data []byte
	items := make([]byte, len(s.Types)*typeItemSize)
	for i, t := range s.Types {
		paramsOffset := uint32(len(data))
		for _, d := range t.Params {
			data = append(data, byte(d))
		}
		resultsOffset := uint32(len(data))
		for _, d := range t.Results {
			data = append(data, byte(d))
		}
		off := i * typeItemSize
		byteOrder.PutUint32(items[off:], paramsOffset)
		byteOrder.PutUint16(items[off+4:], uint16(len(t.Params)))
		byteOrder.PutUint32(items[off+6:], resultsOffset)
		byteOrder.PutUint16(items[off+10:], uint16(len(t.Results)))
	}

	out := make([]byte, tableHeaderSize+len(items)+len(data))
	putTableHeader(out, len(s.Types))
	copy(out[tableHeaderSize:], items)
	copy(out[tableHeaderSize+len(items):], data)
	return out
}

func ParseTypeSection(payload []byte) (TypeSection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return TypeSection{}, err
	}
	itemsEnd := tableHeaderSize + count*typeItemSize
	if itemsEnd > len(payload) {
		return TypeSection{}, fmt.Errorf("image: type section item table truncated")
	}
	data := payload[itemsEnd:]

	out := TypeSection{Types: make([]FunctionType, count)}
	for i := 0; i < count; i++ {
		off := tableHeaderSize + i*typeItemSize
		paramsOffset := byteOrder.Uint32(payload[off:])
		paramsCount := byteOrder.Uint16(payload[off+4:])
		resultsOffset := byteOrder.Uint32(payload[off+6:])
		resultsCount := byteOrder.Uint16(payload[off+10:])

		params, err := sliceDataTypes(data, paramsOffset, paramsCount)
		if err != nil {
			return TypeSection{}, fmt.Errorf("image: type %d params: %w", i, err)
		}
		results, err := sliceDataTypes(data, resultsOffset, resultsCount)
		if err != nil {
			return TypeSection{}, fmt.Errorf("image: type %d results: %w", i, err)
		}
		out.Types[i] = FunctionType{Params: params, Results: results}
	}
	return out, nil
}

func sliceDataTypes(data []byte, offset uint32, count uint16) ([]DataType, error) {
	if count == 0 {
		return nil, nil
	}
	end := int(offset) + int(count)
	if offset > uint32(len(data)) || end > len(data) {
		return nil, fmt.Errorf("range [%d,%d) outside data area of length %d", offset, end, len(data))
	}
	out := make([]DataType, count)
	for i, b := range data[offset:end] {
		out[i] = DataType(b)
	}
	return out, nil
}
