// Package image implements the module binary format of spec.md
// Section 3.2 and Section 6.1: file header, section table, and the
// defined sections (types, functions, code, locals, data, indices,
// names, external references), with bit-exact round-trip and the
// Section 3.2 structural invariants.
package image

import (
	"fmt"

	"go.uber.org/multierr"
)

// Image is a fully parsed module: every section decoded into typed
// Go values plus the raw bytes each section's slices alias into
// (CodesData, the three data sections' Data, name/type data areas).
// A module that omits an optional section leaves the corresponding
// field as its zero value.
type Image struct {
	Types             TypeSection
	Locals            LocalVariableSection
	Functions         FunctionSection
	ReadOnlyData      DataSection
	ReadWriteData     DataSection
	UninitData        DataSection
	FunctionIndex     FunctionIndexSection
	DataIndex         DataIndexSection
	FunctionNames     FunctionNameSection
	DataNames         DataNameSection
	ExternalLibraries ExternalLibrarySection
	ExternalFunctions ExternalFunctionSection
}

// sectionDef pairs one section's id with its payload bytes; present is
// false when the section is absent from this image (an absent section
// is simply skipped — it gets no section-table row).
type sectionDef struct {
	id      SectionID
	present bool
	payload []byte
}

func (img Image) sections() []sectionDef {
	return []sectionDef{
		{SectionType, len(img.Types.Types) > 0, EmitTypeSection(img.Types)},
		{SectionLocalVariable, len(img.Locals.Lists) > 0, EmitLocalVariableSection(img.Locals)},
		{SectionFunction, len(img.Functions.Items) > 0, EmitFunctionSection(img.Functions)},
		{SectionReadOnlyData, len(img.ReadOnlyData.Items) > 0, EmitDataSection(img.ReadOnlyData)},
		{SectionReadWriteData, len(img.ReadWriteData.Items) > 0, EmitDataSection(img.ReadWriteData)},
		{SectionUninitData, len(img.UninitData.Items) > 0, EmitDataSection(img.UninitData)},
		{SectionFunctionIndex, len(img.FunctionIndex.Items) > 0, EmitFunctionIndexSection(img.FunctionIndex)},
		{SectionDataIndex, len(img.DataIndex.Items) > 0, EmitDataIndexSection(img.DataIndex)},
		{SectionFunctionName, len(img.FunctionNames.Items) > 0, EmitFunctionNameSection(img.FunctionNames)},
		{SectionDataName, len(img.DataNames.Items) > 0, EmitDataNameSection(img.DataNames)},
		{SectionExternalLibrary, len(img.ExternalLibraries.Items) > 0, EmitExternalLibrarySection(img.ExternalLibraries)},
		{SectionExternalFunction, len(img.ExternalFunctions.Items) > 0, EmitExternalFunctionSection(img.ExternalFunctions)},
	}
}

// Emit serializes the image to its on-disk byte representation:
// file header, section table, then concatenated section payloads, in
// the order spec.md Section 6.1 describes. Padding bytes (the section
// table entry's trailing 4 bytes, each table's item_count/pad header)
// are always written as zero, per spec.md Section 9.
func (img Image) Emit() []byte {
	defs := img.sections()

	var present []sectionDef
	for _, d := range defs {
		if d.present {
			present = append(present, d)
		}
	}

	sectionTableSize := len(present) * sectionTableEntrySize
	offset := uint32(fileHeaderSize + sectionTableSize)

	entries := make([]sectionTableEntry, len(present))
	var payloadsLen int
	for i, d := range present {
		entries[i] = sectionTableEntry{ID: d.id, Offset: offset, Length: uint32(len(d.payload))}
		offset += uint32(len(d.payload))
		payloadsLen += len(d.payload)
	}

	out := make([]byte, fileHeaderSize+sectionTableSize+payloadsLen)
	copy(out[0:8], Magic[:])
	byteOrder.PutUint32(out[8:12], FormatVersion)
	byteOrder.PutUint32(out[12:16], uint32(len(present)))

	for i, e := range entries {
		putSectionTableEntry(out[fileHeaderSize+i*sectionTableEntrySize:], e)
	}

	cursor := fileHeaderSize + sectionTableSize
	for i, d := range present {
		copy(out[entries[i].Offset:], d.payload)
		cursor += len(d.payload)
	}

	return out
}

// Parse decodes a module byte buffer into an Image, validating the
// file header, section table, and every Section 3.2 structural
// invariant. All invariant violations are aggregated via multierr so
// a malformed module reports every problem in one error instead of
// only the first (spec.md SPEC_FULL "Ambient Stack").
func Parse(raw []byte) (Image, error) {
	if len(raw) < fileHeaderSize {
		return Image{}, fmt.Errorf("image: buffer too short for file header: %d bytes", len(raw))
	}
	if [8]byte(raw[0:8]) != Magic {
		return Image{}, fmt.Errorf("image: bad magic")
	}
	version := byteOrder.Uint32(raw[8:12])
	if version != FormatVersion {
		return Image{}, fmt.Errorf("image: unsupported format version %d", version)
	}
	sectionCount := int(byteOrder.Uint32(raw[12:16]))

	tableEnd := fileHeaderSize + sectionCount*sectionTableEntrySize
	if tableEnd > len(raw) {
		return Image{}, fmt.Errorf("image: section table truncated: need %d bytes, have %d", tableEnd, len(raw))
	}

	entries := make([]sectionTableEntry, sectionCount)
	payloads := make(map[SectionID][]byte, sectionCount)
	var errs error
	for i := range entries {
		e := getSectionTableEntry(raw[fileHeaderSize+i*sectionTableEntrySize:])
		entries[i] = e
		start, end := int(e.Offset), int(e.Offset)+int(e.Length)
		if start < tableEnd || start > len(raw) || end > len(raw) {
			errs = multierr.Append(errs, fmt.Errorf("image: section %s payload [%d,%d) outside buffer", e.ID, start, end))
			continue
		}
		payloads[e.ID] = raw[start:end]
	}
	if errs != nil {
		return Image{}, errs
	}

	var img Image
	parseInto(&errs, payloads, SectionType, func(p []byte) (err error) { img.Types, err = ParseTypeSection(p); return })
	parseInto(&errs, payloads, SectionLocalVariable, func(p []byte) (err error) { img.Locals, err = ParseLocalVariableSection(p); return })
	parseInto(&errs, payloads, SectionFunction, func(p []byte) (err error) { img.Functions, err = ParseFunctionSection(p); return })
	parseInto(&errs, payloads, SectionReadOnlyData, func(p []byte) (err error) { img.ReadOnlyData, err = ParseDataSection(p, true); return })
	parseInto(&errs, payloads, SectionReadWriteData, func(p []byte) (err error) { img.ReadWriteData, err = ParseDataSection(p, true); return })
	parseInto(&errs, payloads, SectionUninitData, func(p []byte) (err error) { img.UninitData, err = ParseDataSection(p, false); return })
	parseInto(&errs, payloads, SectionFunctionIndex, func(p []byte) (err error) { img.FunctionIndex, err = ParseFunctionIndexSection(p); return })
	parseInto(&errs, payloads, SectionDataIndex, func(p []byte) (err error) { img.DataIndex, err = ParseDataIndexSection(p); return })
	parseInto(&errs, payloads, SectionFunctionName, func(p []byte) (err error) { img.FunctionNames, err = ParseFunctionNameSection(p); return })
	parseInto(&errs, payloads, SectionDataName, func(p []byte) (err error) { img.DataNames, err = ParseDataNameSection(p); return })
	parseInto(&errs, payloads, SectionExternalLibrary, func(p []byte) (err error) { img.ExternalLibraries, err = ParseExternalLibrarySection(p); return })
	parseInto(&errs, payloads, SectionExternalFunction, func(p []byte) (err error) { img.ExternalFunctions, err = ParseExternalFunctionSection(p); return })
	if errs != nil {
		return Image{}, errs
	}

	if err := img.Validate(); err != nil {
		return Image{}, err
	}
	return img, nil
}

func parseInto(errs *error, payloads map[SectionID][]byte, id SectionID, fn func([]byte) error) {
	p, ok := payloads[id]
	if !ok {
		return
	}
	if err := fn(p); err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("image: section %s: %w", id, err))
	}
}

// Validate checks the Section 3.2 structural invariants that Parse
// cannot have already failed on (since those are per-section boundary
// checks already performed during decode): index validity and
// alignment well-formedness. Errors are aggregated, not short-circuited.
func (img Image) Validate() error {
	var errs error

	for i, t := range img.Functions.Items {
		if int(t.TypeIndex) >= len(img.Types.Types) {
			errs = multierr.Append(errs, fmt.Errorf("image: function %d: type_index %d out of range (%d types)", i, t.TypeIndex, len(img.Types.Types)))
		}
		if int(t.LocalListIndex) >= len(img.Locals.Lists) {
			errs = multierr.Append(errs, fmt.Errorf("image: function %d: local_list_index %d out of range (%d lists)", i, t.LocalListIndex, len(img.Locals.Lists)))
		}
		if _, err := img.Functions.Code(uint32(i)); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	for _, ds := range []struct {
		name string
		sec  DataSection
	}{
		{"read_only_data", img.ReadOnlyData},
		{"read_write_data", img.ReadWriteData},
		{"uninit_data", img.UninitData},
	} {
		for i, it := range ds.sec.Items {
			if !validAlign(it.Align) {
				errs = multierr.Append(errs, fmt.Errorf("image: %s item %d: align %d is not a non-zero power of two in {1,2,4,8,16}", ds.name, i, it.Align))
			}
			if ds.sec.HasBytes {
				if _, err := ds.sec.Bytes(uint32(i)); err != nil {
					errs = multierr.Append(errs, err)
				}
			}
		}
	}

	for i, l := range img.Locals.Lists {
		for j, it := range l.Items {
			if !validAlign(it.Align) {
				errs = multierr.Append(errs, fmt.Errorf("image: local list %d item %d: align %d is not a non-zero power of two in {1,2,4,8,16}", i, j, it.Align))
			}
		}
	}

	for i, it := range img.FunctionIndex.Items {
		if int(it.TargetInternalIndex) >= len(img.Functions.Items) && it.TargetModuleIndex == 0 {
			errs = multierr.Append(errs, fmt.Errorf("image: function index %d: target internal index %d out of range", i, it.TargetInternalIndex))
		}
	}

	return errs
}

func validAlign(a uint16) bool {
	switch a {
	case 1, 2, 4, 8, 16:
		return true
	default:
		return false
	}
}
