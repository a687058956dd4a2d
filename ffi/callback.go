package ffi

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/ebitengine/purego"

	"govm/image"
)

// VMCallable is the subset of ThreadContext a callback delegate needs:
// re-entering process_function for one VM function, spec.md Section
// 4.5 "Callback delegates ... invokes process_function for the
// delegated VM function and copies results back." Kept as a small
// interface here (rather than importing runtime) to preserve the
// leaf-to-root dependency order (image -> stack -> alloc -> ffi ->
// runtime) spec.md Section 2 lays out.
type VMCallable interface {
	Invoke(moduleIndex, functionInternalIndex uint32, args []byte) (results []byte, err error)
}

// BuildCallback constructs the C-ABI function pointer that external
// code calls to invoke a VM function, spec.md Section 4.4
// "host_addr_function" / Section 4.5 "Callback delegates". purego's
// NewCallback builds the actual native entry point; the
// reflect.MakeFunc closure below does the VM-slot marshalling on each
// invocation (argument packing into the flat byte layout
// ThreadContext.Invoke expects, and unpacking the single result).
func BuildCallback(vm VMCallable, moduleIndex, functionInternalIndex uint32, sig image.FunctionType) (uintptr, error) {
	in := make([]reflect.Type, len(sig.Params))
	for i, p := range sig.Params {
		t, err := reflectType(p)
		if err != nil {
			return 0, fmt.Errorf("ffi: callback param %d: %w", i, err)
		}
		in[i] = t
	}
	if len(sig.Results) > 1 {
		return 0, fmt.Errorf("ffi: callback: VM functions exposed as callbacks may return at most one value")
	}
	var out []reflect.Type
	if len(sig.Results) == 1 {
		t, err := reflectType(sig.Results[0])
		if err != nil {
			return 0, fmt.Errorf("ffi: callback result: %w", err)
		}
		out = []reflect.Type{t}
	}

	funcType := reflect.FuncOf(in, out, false)
	fn := reflect.MakeFunc(funcType, func(callArgs []reflect.Value) []reflect.Value {
		args := make([]byte, len(sig.Params)*8)
		for i, p := range sig.Params {
			putArg(args[i*8:i*8+8], p, callArgs[i])
		}

		results, err := vm.Invoke(moduleIndex, functionInternalIndex, args)
		if err != nil {
			panic(fmt.Errorf("ffi: callback into function %d: %w", functionInternalIndex, err))
		}
		if len(out) == 0 {
			return nil
		}
		return []reflect.Value{getResult(results, sig.Results[0])}
	})

	return purego.NewCallback(fn.Interface()), nil
}

func putArg(dst []byte, dt image.DataType, v reflect.Value) {
	switch dt {
	case image.TypeI32:
		byteOrder.PutUint32(dst, uint32(v.Int()))
	case image.TypeI64:
		byteOrder.PutUint64(dst, uint64(v.Int()))
	case image.TypeF32:
		byteOrder.PutUint32(dst, math.Float32bits(float32(v.Float())))
	case image.TypeF64:
		byteOrder.PutUint64(dst, math.Float64bits(v.Float()))
	}
}

func getResult(out []byte, dt image.DataType) reflect.Value {
	switch dt {
	case image.TypeI32:
		return reflect.ValueOf(int32(binary.LittleEndian.Uint32(out)))
	case image.TypeI64:
		return reflect.ValueOf(int64(binary.LittleEndian.Uint64(out)))
	case image.TypeF32:
		return reflect.ValueOf(math.Float32frombits(binary.LittleEndian.Uint32(out)))
	case image.TypeF64:
		return reflect.ValueOf(math.Float64frombits(binary.LittleEndian.Uint64(out)))
	default:
		return reflect.Value{}
	}
}
