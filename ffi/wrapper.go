package ffi

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/ebitengine/purego"

	"govm/image"
)

var byteOrder = binary.LittleEndian

// Wrapper is the Go-side equivalent of spec.md Section 4.5's
// JIT-compiled wrapper function: a cached, signature-specific
// marshaller between the VM's flat 8-byte-slot operand layout and a
// target native function's C ABI. purego.RegisterFunc builds the
// actual call trampoline (including float register placement per the
// platform calling convention); Wrapper only does the VM-slot
// marshalling purego can't know about.
type Wrapper struct {
	sig        image.FunctionType
	call       reflect.Value // the registered native call, built by purego.RegisterFunc
	hasReturn  bool
	paramCount int
}

// reflectType maps a VM DataType to the Go type purego.RegisterFunc
// uses to derive the correct native calling-convention slot (integer
// register vs floating-point register) for that argument.
func reflectType(dt image.DataType) (reflect.Type, error) {
	switch dt {
	case image.TypeI32:
		return reflect.TypeOf(int32(0)), nil
	case image.TypeI64:
		return reflect.TypeOf(int64(0)), nil
	case image.TypeF32:
		return reflect.TypeOf(float32(0)), nil
	case image.TypeF64:
		return reflect.TypeOf(float64(0)), nil
	default:
		return nil, fmt.Errorf("ffi: data type %s cannot cross the FFI boundary", dt)
	}
}

// BuildWrapper constructs a new Wrapper for one external function on
// every call; caching is done by Bridge, not here. It implements spec.md Section
// 4.5's construction steps 1-2: resolve the symbol, then build a
// per-signature native call shaped by the module's type entry.
func BuildWrapper(resolver SymbolResolver, lib image.ExternalLibraryItem, fn image.ExternalFunctionItem, sig image.FunctionType) (*Wrapper, error) {
	target, err := resolver.Resolve(libraryName(lib), fn.Name)
	if err != nil {
		return nil, err
	}

	in := make([]reflect.Type, len(sig.Params))
	for i, p := range sig.Params {
		t, err := reflectType(p)
		if err != nil {
			return nil, fmt.Errorf("ffi: %s param %d: %w", fn.Name, i, err)
		}
		in[i] = t
	}

	var out []reflect.Type
	if len(sig.Results) > 1 {
		return nil, fmt.Errorf("ffi: %s: external functions may return at most one value", fn.Name)
	}
	if len(sig.Results) == 1 {
		t, err := reflectType(sig.Results[0])
		if err != nil {
			return nil, fmt.Errorf("ffi: %s result: %w", fn.Name, err)
		}
		out = []reflect.Type{t}
	}

	funcType := reflect.FuncOf(in, out, false)
	funcPtr := reflect.New(funcType)
	purego.RegisterFunc(funcPtr.Interface(), target)

	return &Wrapper{
		sig:        sig,
		call:       funcPtr.Elem(),
		hasReturn:  len(out) == 1,
		paramCount: len(in),
	}, nil
}

// Call implements the extcall contract of spec.md Section 4.4/4.5:
// params is paramsCount contiguous 8-byte VM operand slots; the
// return value, if any, is written to a freshly returned 8-byte slot.
func (w *Wrapper) Call(params []byte) ([]byte, error) {
	if len(params) != w.paramCount*8 {
		return nil, fmt.Errorf("ffi: expected %d param bytes, got %d", w.paramCount*8, len(params))
	}

	args := make([]reflect.Value, w.paramCount)
	for i, dt := range w.sig.Params {
		slot := params[i*8 : i*8+8]
		switch dt {
		case image.TypeI32:
			args[i] = reflect.ValueOf(int32(byteOrder.Uint32(slot)))
		case image.TypeI64:
			args[i] = reflect.ValueOf(int64(byteOrder.Uint64(slot)))
		case image.TypeF32:
			args[i] = reflect.ValueOf(math.Float32frombits(byteOrder.Uint32(slot)))
		case image.TypeF64:
			args[i] = reflect.ValueOf(math.Float64frombits(byteOrder.Uint64(slot)))
		}
	}

	results := w.call.Call(args)

	if !w.hasReturn {
		return nil, nil
	}
	out := make([]byte, 8)
	switch w.sig.Results[0] {
	case image.TypeI32:
		byteOrder.PutUint32(out, uint32(results[0].Int()))
	case image.TypeI64:
		byteOrder.PutUint64(out, uint64(results[0].Int()))
	case image.TypeF32:
		byteOrder.PutUint32(out, math.Float32bits(float32(results[0].Float())))
	case image.TypeF64:
		byteOrder.PutUint64(out, math.Float64bits(results[0].Float()))
	}
	return out, nil
}

// HasReturn reports whether extcall should push a result operand.
func (w *Wrapper) HasReturn() bool { return w.hasReturn }

// ParamsCount is the number of operand slots extcall must pop.
func (w *Wrapper) ParamsCount() int { return w.paramCount }
