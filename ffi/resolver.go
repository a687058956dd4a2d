// Package ffi implements the foreign-function bridge of spec.md
// Section 4.5: lazily built wrapper functions that marshal VM operand
// slots to a host C ABI call, and callback delegates that let
// external code re-enter the VM. It replaces the spec's bespoke JIT
// with github.com/ebitengine/purego, whose own internal
// architecture-specific trampolines (Dlopen/Dlsym/SyscallN/NewCallback)
// perform the native call; this package supplies the per-signature
// marshalling and the (module_index, external_function_index)-keyed
// cache spec.md Section 4.5 step 3 requires.
package ffi

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"

	"govm/image"
)

// SymbolResolver resolves a (library, symbol) pair to a callable
// native address, spec.md Section 6.4: "the VM consumes a symbol
// resolver interface fn resolve(library_name, symbol_name) ->
// Option<*const c_void>". The concrete shared-library loader is out
// of scope (spec.md Section 1); only this abstract surface is core.
type SymbolResolver interface {
	Resolve(libraryName, symbolName string) (uintptr, error)
}

// DlopenResolver is the default SymbolResolver, backed by
// purego.Dlopen/Dlsym. Library handles are cached by name so a
// shared library is opened at most once per process.
type DlopenResolver struct {
	mu      sync.Mutex
	handles map[string]uintptr
}

// NewDlopenResolver returns a resolver with an empty handle cache.
func NewDlopenResolver() *DlopenResolver {
	return &DlopenResolver{handles: make(map[string]uintptr)}
}

func (r *DlopenResolver) handle(libraryName string) (uintptr, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[libraryName]; ok {
		return h, nil
	}
	h, err := purego.Dlopen(libraryName, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, fmt.Errorf("ffi: dlopen %q: %w", libraryName, err)
	}
	r.handles[libraryName] = h
	return h, nil
}

// Resolve implements SymbolResolver.
func (r *DlopenResolver) Resolve(libraryName, symbolName string) (uintptr, error) {
	h, err := r.handle(libraryName)
	if err != nil {
		return 0, err
	}
	sym, err := purego.Dlsym(h, symbolName)
	if err != nil {
		return 0, fmt.Errorf("ffi: dlsym %q in %q: %w", symbolName, libraryName, err)
	}
	return sym, nil
}

// libraryName resolves an ExternalLibraryItem to the string Dlopen
// expects. ExternalLibrarySystem has no file to open — the empty
// string makes Dlopen resolve against the process's own symbol table
// on platforms that support it.
func libraryName(item image.ExternalLibraryItem) string {
	if item.Kind == image.ExternalLibrarySystem {
		return ""
	}
	return item.Name
}
