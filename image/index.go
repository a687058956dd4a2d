package image

import "fmt"

// FunctionIndexItem maps one public function index of the owning
// module to its resolved target (spec.md Section 3.2). A function
// whose TargetModuleIndex equals the owning module's own index is a
// local reference; otherwise it crosses a module boundary.
type FunctionIndexItem struct {
	TargetModuleIndex   uint32
	TargetInternalIndex uint32
}

const functionIndexItemSize = 8

// FunctionIndexSection is a flat table indexed by public_index.
type FunctionIndexSection struct {
	Items []FunctionIndexItem
}

func EmitFunctionIndexSection(s FunctionIndexSection) []byte {
	items := make([]byte, len(s.Items)*functionIndexItemSize)
	for i, it := range s.Items {
		off := i * functionIndexItemSize
		byteOrder.PutUint32(items[off:], it.TargetModuleIndex)
		byteOrder.PutUint32(items[off+4:], it.TargetInternalIndex)
	}
	out := make([]byte, tableHeaderSize+len(items))
	putTableHeader(out, len(s.Items))
	copy(out[tableHeaderSize:], items)
	return out
}

func ParseFunctionIndexSection(payload []byte) (FunctionIndexSection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return FunctionIndexSection{}, err
	}
	end := tableHeaderSize + count*functionIndexItemSize
	if end > len(payload) {
		return FunctionIndexSection{}, fmt.Errorf("image: function index table truncated")
	}
	out := FunctionIndexSection{Items: make([]FunctionIndexItem, count)}
	for i := range out.Items {
		off := tableHeaderSize + i*functionIndexItemSize
		out.Items[i] = FunctionIndexItem{
			TargetModuleIndex:   byteOrder.Uint32(payload[off:]),
			TargetInternalIndex: byteOrder.Uint32(payload[off+4:]),
		}
	}
	return out, nil
}

// DataSectionType names which of the three data sections a
// DataIndexItem's target lives in.
type DataSectionType uint8

const (
	DataSectionReadOnly DataSectionType = iota
	DataSectionReadWrite
	DataSectionUninit
)

func (t DataSectionType) String() string {
	switch t {
	case DataSectionReadOnly:
		return "read_only"
	case DataSectionReadWrite:
		return "read_write"
	case DataSectionUninit:
		return "uninit"
	default:
		return fmt.Sprintf("data_section_type(%d)", uint8(t))
	}
}

// DataIndexItem maps one public data index to its resolved target,
// spec.md Section 3.2 (the data equivalent of FunctionIndexItem, with
// an added section-type discriminant since data lives in one of three
// sections).
type DataIndexItem struct {
	TargetModuleIndex   uint32
	TargetInternalIndex uint32
	TargetSectionType   DataSectionType
}

const dataIndexItemSize = 12

// DataIndexSection is a flat table indexed by public_index.
type DataIndexSection struct {
	Items []DataIndexItem
}

func EmitDataIndexSection(s DataIndexSection) []byte {
	items := make([]byte, len(s.Items)*dataIndexItemSize)
	for i, it := range s.Items {
		off := i * dataIndexItemSize
		byteOrder.PutUint32(items[off:], it.TargetModuleIndex)
		byteOrder.PutUint32(items[off+4:], it.TargetInternalIndex)
		items[off+8] = byte(it.TargetSectionType)
	}
	out := make([]byte, tableHeaderSize+len(items))
	putTableHeader(out, len(s.Items))
	copy(out[tableHeaderSize:], items)
	return out
}

func ParseDataIndexSection(payload []byte) (DataIndexSection, error) {
	count, err := getTableHeader(payload)
	if err != nil {
		return DataIndexSection{}, err
	}
	end := tableHeaderSize + count*dataIndexItemSize
	if end > len(payload) {
		return DataIndexSection{}, fmt.Errorf("image: data index table truncated")
	}
	out := DataIndexSection{Items: make([]DataIndexItem, count)}
	for i := range out.Items {
		off := tableHeaderSize + i*dataIndexItemSize
		out.Items[i] = DataIndexItem{
			TargetModuleIndex:   byteOrder.Uint32(payload[off:]),
			TargetInternalIndex: byteOrder.Uint32(payload[off+4:]),
			TargetSectionType:   DataSectionType(payload[off+8]),
		}
	}
	return out, nil
}
