package runtime

import (
	"fmt"

	"govm/image"
	"govm/runtime/handlers"
)

// ModuleInstance is one loaded module: its parsed image plus the
// mutable storage for its writable data sections. ReadOnlyData is
// served directly from the image's bytes; ReadWriteData gets a private
// copy so each instance starts from the module's declared initial
// values but diverges independently; UninitData has no on-disk bytes
// at all and is zero-filled up to the furthest end offset of its items.
type ModuleInstance struct {
	img           *image.Image
	readWriteData []byte
	uninitData    []byte
}

// NewModuleInstance instantiates img: copies ReadWriteData's initial
// bytes and allocates zeroed storage for UninitData.
func NewModuleInstance(img *image.Image) *ModuleInstance {
	rw := make([]byte, len(img.ReadWriteData.Data))
	copy(rw, img.ReadWriteData.Data)

	var uninitLen uint32
	for _, it := range img.UninitData.Items {
		if end := it.Offset + it.Length; end > uninitLen {
			uninitLen = end
		}
	}

	return &ModuleInstance{
		img:           img,
		readWriteData: rw,
		uninitData:    make([]byte, uninitLen),
	}
}

var _ handlers.ModuleAccessor = (*ModuleInstance)(nil)

func (m *ModuleInstance) Image() *image.Image { return m.img }

// DataBytes implements handlers.ModuleAccessor. ReadOnly bytes alias
// the image's own backing array (never mutated); ReadWrite/Uninit
// bytes alias this instance's private copies.
func (m *ModuleInstance) DataBytes(sectionType image.DataSectionType, internalIndex uint32) ([]byte, error) {
	switch sectionType {
	case image.DataSectionReadOnly:
		return m.img.ReadOnlyData.Bytes(internalIndex)
	case image.DataSectionReadWrite:
		return sliceItem(m.img.ReadWriteData, m.readWriteData, internalIndex)
	case image.DataSectionUninit:
		return sliceItem(m.img.UninitData, m.uninitData, internalIndex)
	default:
		return nil, fmt.Errorf("runtime: unknown data section type %v", sectionType)
	}
}

func sliceItem(section image.DataSection, backing []byte, internalIndex uint32) ([]byte, error) {
	if int(internalIndex) >= len(section.Items) {
		return nil, fmt.Errorf("runtime: data internal index %d out of range", internalIndex)
	}
	it := section.Items[internalIndex]
	start, end := int(it.Offset), int(it.Offset)+int(it.Length)
	if start > len(backing) || end > len(backing) {
		return nil, fmt.Errorf("runtime: data item %d range [%d,%d) outside backing store of length %d", internalIndex, start, end, len(backing))
	}
	return backing[start:end], nil
}

func (m *ModuleInstance) ResolveFunction(publicIndex uint32) (targetModule, internalIndex uint32, err error) {
	items := m.img.FunctionIndex.Items
	if int(publicIndex) >= len(items) {
		return 0, 0, fmt.Errorf("runtime: function public index %d out of range", publicIndex)
	}
	it := items[publicIndex]
	return it.TargetModuleIndex, it.TargetInternalIndex, nil
}

func (m *ModuleInstance) ResolveData(publicIndex uint32) (targetModule uint32, sectionType image.DataSectionType, internalIndex uint32, err error) {
	items := m.img.DataIndex.Items
	if int(publicIndex) >= len(items) {
		return 0, 0, 0, fmt.Errorf("runtime: data public index %d out of range", publicIndex)
	}
	it := items[publicIndex]
	return it.TargetModuleIndex, it.TargetSectionType, it.TargetInternalIndex, nil
}

func (m *ModuleInstance) FunctionItem(internalIndex uint32) (image.FunctionItem, error) {
	items := m.img.Functions.Items
	if int(internalIndex) >= len(items) {
		return image.FunctionItem{}, fmt.Errorf("runtime: function internal index %d out of range", internalIndex)
	}
	return items[internalIndex], nil
}

func (m *ModuleInstance) FunctionCode(internalIndex uint32) ([]byte, error) {
	return m.img.Functions.Code(internalIndex)
}

func (m *ModuleInstance) LocalList(localListIndex uint32) (image.LocalVariableList, error) {
	lists := m.img.Locals.Lists
	if int(localListIndex) >= len(lists) {
		return image.LocalVariableList{}, fmt.Errorf("runtime: local list index %d out of range", localListIndex)
	}
	return lists[localListIndex], nil
}

func (m *ModuleInstance) Type(typeIndex uint32) (image.FunctionType, error) {
	types := m.img.Types.Types
	if int(typeIndex) >= len(types) {
		return image.FunctionType{}, fmt.Errorf("runtime: type index %d out of range", typeIndex)
	}
	return types[typeIndex], nil
}

func (m *ModuleInstance) ExternalFunction(externalIndex uint32) (lib image.ExternalLibraryItem, fn image.ExternalFunctionItem, sig image.FunctionType, err error) {
	fns := m.img.ExternalFunctions.Items
	if int(externalIndex) >= len(fns) {
		return image.ExternalLibraryItem{}, image.ExternalFunctionItem{}, image.FunctionType{}, fmt.Errorf("runtime: external function index %d out of range", externalIndex)
	}
	fn = fns[externalIndex]
	libs := m.img.ExternalLibraries.Items
	if int(fn.LibraryIndex) >= len(libs) {
		return image.ExternalLibraryItem{}, image.ExternalFunctionItem{}, image.FunctionType{}, fmt.Errorf("runtime: external library index %d out of range", fn.LibraryIndex)
	}
	lib = libs[fn.LibraryIndex]
	sig, err = m.Type(fn.TypeIndex)
	return lib, fn, sig, err
}
