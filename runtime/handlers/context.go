// Package handlers implements the per-opcode instruction handler
// contracts of spec.md Section 4.4: one function per category, each
// taking the current Context and decoded Instruction and returning a
// Result describing how the dispatch loop should move the program
// counter (spec.md Section 4.6). It defines Context and ModuleAccessor
// as interfaces rather than importing runtime directly, so that
// runtime.ThreadContext can depend on handlers without a import cycle
// — runtime is the only package that imports handlers, not the other
// way around.
package handlers

import (
	"govm/alloc"
	"govm/diag"
	"govm/envcall"
	"govm/ffi"
	"govm/image"
	"govm/stack"
)

// ModuleAccessor is the per-module-instance surface a handler needs:
// resolving public indices to internal ones, fetching code/data
// bytes, and looking up type/local-list/external-function metadata.
// runtime.ModuleInstance implements this.
type ModuleAccessor interface {
	// Image returns the module's parsed binary image.
	Image() *image.Image
	// DataBytes returns the mutable (for ReadWrite/Uninit) or
	// immutable (for ReadOnly) backing bytes for one data item.
	DataBytes(sectionType image.DataSectionType, internalIndex uint32) ([]byte, error)
	// ResolveFunction maps a public function index (as named by a
	// call/host_addr_function operand) to its target module and
	// internal index, per the module's FunctionIndexSection.
	ResolveFunction(publicIndex uint32) (targetModule uint32, internalIndex uint32, err error)
	// ResolveData maps a public data index to its target module,
	// section, and internal index, per the module's DataIndexSection.
	ResolveData(publicIndex uint32) (targetModule uint32, sectionType image.DataSectionType, internalIndex uint32, err error)
	// FunctionItem returns one function's table entry by internal index.
	FunctionItem(internalIndex uint32) (image.FunctionItem, error)
	// FunctionCode returns one function's instruction bytes.
	FunctionCode(internalIndex uint32) ([]byte, error)
	// LocalList returns one local-variable list by index.
	LocalList(localListIndex uint32) (image.LocalVariableList, error)
	// Type returns one function-type signature by index.
	Type(typeIndex uint32) (image.FunctionType, error)
	// ExternalFunction resolves an external_function_index to its
	// owning library, its own descriptor, and its call signature.
	ExternalFunction(externalIndex uint32) (lib image.ExternalLibraryItem, fn image.ExternalFunctionItem, sig image.FunctionType, err error)
}

// Context is everything a handler needs from the executing thread:
// its operand stack, the shared allocator and FFI bridge, the
// process-wide envcall table, the current program counter, and access
// to any loaded module instance (for cross-module calls/data).
// runtime.ThreadContext implements this.
type Context interface {
	Stack() *stack.Stack
	Allocator() *alloc.Allocator
	FFIBridge() *ffi.Bridge
	EnvcallTable() *envcall.Table
	PC() stack.PC
	CurrentModuleIndex() uint32
	Module(moduleIndex uint32) (ModuleAccessor, error)
	// Current is a shortcut for Module(CurrentModuleIndex()).
	Current() (ModuleAccessor, error)
	// Invoke runs a function to completion on a nested process_function
	// call, satisfying ffi.VMCallable so a Context can be handed
	// directly to ffi.BuildCallback for host_addr_function.
	Invoke(moduleIndex, functionInternalIndex uint32, args []byte) (results []byte, err error)
	// Logger returns the thread's diagnostic logger.
	Logger() *diag.Logger
}
