package ffi

import (
	"fmt"
	"sync"

	"govm/image"
)

// wrapperKey is the (module_index, external_function_index) pair
// spec.md Section 4.5 step 3 caches wrapper functions under.
type wrapperKey struct {
	moduleIndex   uint32
	externalIndex uint32
}

// Bridge owns the process-wide external function table: the single
// mutex-guarded cache of lazily built Wrappers and callback
// delegates, shared across every ThreadContext (spec.md Section 5:
// "the per-process external function table ... every access ...
// acquires the mutex for the full duration").
type Bridge struct {
	mu       sync.Mutex
	resolver SymbolResolver
	wrappers map[wrapperKey]*Wrapper
}

// NewBridge returns a Bridge backed by the given resolver.
func NewBridge(resolver SymbolResolver) *Bridge {
	return &Bridge{resolver: resolver, wrappers: make(map[wrapperKey]*Wrapper)}
}

// Wrapper returns the cached wrapper for (moduleIndex, externalIndex),
// building and caching it on first use under the bridge's lock.
func (b *Bridge) Wrapper(moduleIndex, externalIndex uint32, lib image.ExternalLibraryItem, fn image.ExternalFunctionItem, sig image.FunctionType) (*Wrapper, error) {
	key := wrapperKey{moduleIndex, externalIndex}

	b.mu.Lock()
	defer b.mu.Unlock()

	if w, ok := b.wrappers[key]; ok {
		return w, nil
	}
	w, err := BuildWrapper(b.resolver, lib, fn, sig)
	if err != nil {
		return nil, fmt.Errorf("ffi: failed to load external function %q: %w", fn.Name, err)
	}
	b.wrappers[key] = w
	return w, nil
}
