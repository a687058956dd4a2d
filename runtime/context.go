package runtime

import (
	"fmt"
	"sync"

	"govm/alloc"
	"govm/diag"
	"govm/envcall"
	"govm/ffi"
	"govm/image"
	"govm/runtime/handlers"
	"govm/stack"
)

// ThreadContext is one thread of VM execution, spec.md Section 3.5/5:
// its own operand stack, program counter and loaded module instances,
// sharing the process-wide allocator, FFI bridge and envcall table
// with every other ThreadContext spawned from the same process.
type ThreadContext struct {
	stack    *stack.Stack
	allocator *alloc.Allocator
	bridge   *ffi.Bridge
	envcalls *envcall.Table
	logger   *diag.Logger

	modulesMu sync.RWMutex
	modules   map[uint32]*ModuleInstance

	pc                stack.PC
	currentModuleIndex uint32
}

// NewThreadContext builds a thread sharing the given process-wide
// resources, with its own private operand stack of stackBytes
// capacity. Diagnostics are discarded until SetLogger installs one.
func NewThreadContext(stackBytes int, allocator *alloc.Allocator, bridge *ffi.Bridge, envcalls *envcall.Table) *ThreadContext {
	return &ThreadContext{
		stack:     stack.New(stackBytes),
		allocator: allocator,
		bridge:    bridge,
		envcalls:  envcalls,
		logger:    diag.Noop(),
		modules:   make(map[uint32]*ModuleInstance),
	}
}

// SetLogger installs the diagnostic logger used for module-load and
// terminate records.
func (t *ThreadContext) SetLogger(l *diag.Logger) { t.logger = l }

func (t *ThreadContext) Logger() *diag.Logger { return t.logger }

var _ handlers.Context = (*ThreadContext)(nil)

// LoadModule registers img under moduleIndex, replacing any module
// previously loaded at that index.
func (t *ThreadContext) LoadModule(moduleIndex uint32, img *image.Image) {
	t.modulesMu.Lock()
	t.modules[moduleIndex] = NewModuleInstance(img)
	t.modulesMu.Unlock()

	dataCount := len(img.ReadOnlyData.Items) + len(img.ReadWriteData.Items) + len(img.UninitData.Items)
	t.logger.ModuleLoaded(moduleIndex, len(img.Functions.Items), dataCount)
}

func (t *ThreadContext) Stack() *stack.Stack           { return t.stack }
func (t *ThreadContext) Allocator() *alloc.Allocator   { return t.allocator }
func (t *ThreadContext) FFIBridge() *ffi.Bridge        { return t.bridge }
func (t *ThreadContext) EnvcallTable() *envcall.Table  { return t.envcalls }
func (t *ThreadContext) PC() stack.PC                  { return t.pc }
func (t *ThreadContext) CurrentModuleIndex() uint32    { return t.currentModuleIndex }

func (t *ThreadContext) Module(moduleIndex uint32) (handlers.ModuleAccessor, error) {
	t.modulesMu.RLock()
	defer t.modulesMu.RUnlock()
	m, ok := t.modules[moduleIndex]
	if !ok {
		return nil, fmt.Errorf("runtime: module %d is not loaded", moduleIndex)
	}
	return m, nil
}

func (t *ThreadContext) Current() (handlers.ModuleAccessor, error) {
	return t.Module(t.currentModuleIndex)
}

// Invoke implements ffi.VMCallable and handlers.Context's re-entry
// contract for host_addr_function callbacks: run a nested
// process_function call to completion on this same thread and return
// its results as a flat byte buffer.
func (t *ThreadContext) Invoke(moduleIndex, functionInternalIndex uint32, args []byte) ([]byte, error) {
	return ProcessFunction(t, moduleIndex, functionInternalIndex, args)
}
