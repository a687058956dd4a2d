package runtime_test

import (
	"encoding/binary"
	"testing"

	"govm/alloc"
	"govm/diag"
	"govm/envcall"
	"govm/ffi"
	"govm/image"
	"govm/internal/asmtest"
	"govm/runtime"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

// buildImage assembles a single function with the given signature,
// local layout, and body, wrapping it in a minimal one-function
// module image ready for ModuleInstance.
func buildImage(t *testing.T, params, results []image.DataType, localBytes uint32, body string) image.Image {
	t.Helper()
	code, err := asmtest.Assemble(body)
	assert(t, err == nil, "assemble: %v", err)

	return image.Image{
		Types: image.TypeSection{Types: []image.FunctionType{{Params: params, Results: results}}},
		Locals: image.LocalVariableSection{Lists: []image.LocalVariableList{
			{AllocatedBytes: localBytes},
		}},
		Functions: image.FunctionSection{
			Items:     []image.FunctionItem{{TypeIndex: 0, LocalListIndex: 0, CodeOffset: 0, CodeLength: uint32(len(code))}},
			CodesData: code,
		},
	}
}

func newContext(t *testing.T) *runtime.ThreadContext {
	t.Helper()
	ctx := runtime.NewThreadContext(64*1024, alloc.New(), ffi.NewBridge(ffi.NewDlopenResolver()), envcall.Default())
	ctx.SetLogger(diag.Noop())
	return ctx
}

func i64Args(vals ...int64) []byte {
	out := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
	}
	return out
}

func decodeI64(t *testing.T, results []byte, i int) int64 {
	t.Helper()
	assert(t, (i+1)*8 <= len(results), "result %d out of range (len %d)", i, len(results))
	return int64(binary.LittleEndian.Uint64(results[i*8 : i*8+8]))
}

func TestProcessFunctionArithmetic(t *testing.T) {
	img := buildImage(t, nil, []image.DataType{image.TypeI32}, 0, `
		imm_i32 17
		imm_i32 25
		add_i32
		end
	`)
	ctx := newContext(t)
	ctx.LoadModule(0, &img)

	results, err := runtime.ProcessFunction(ctx, 0, 0, nil)
	assert(t, err == nil, "process_function: %v", err)
	assert(t, decodeI64(t, results, 0) == 42, "got %d, want 42", decodeI64(t, results, 0))
}

// TestProcessFunctionLoop computes the sum of squares from 1 to n
// (passed as the sole i32 parameter) using a block/recur loop. The
// running total and loop counter live as the block's own declared
// params (total, i) rather than as function-level locals: recur
// reinitializes a frame's entire local storage to zero except for
// whatever is freshly pushed as its params immediately beforehand, so
// per-iteration state has to travel through the param slots, not
// through local_store into a fixed local index. Loop exit is a
// conditional block_nez containing a break_ two layers out (the nez
// frame plus the loop block itself), which tears both frames down in
// one stack.Break and leaves the loop's declared result (the running total)
// sitting on top of the function's own frame for its `end` to consume.
func TestProcessFunctionLoop(t *testing.T) {
	funcType := image.FunctionType{Params: []image.DataType{image.TypeI32}, Results: []image.DataType{image.TypeI32}}
	loopType := image.FunctionType{Params: []image.DataType{image.TypeI32, image.TypeI32}, Results: []image.DataType{image.TypeI32}}

	funcLocals := image.LocalVariableList{
		Items:          []image.LocalVariableItem{{Offset: 0, ActualLength: 4, DataType: image.TypeI32, Align: 8}},
		AllocatedBytes: 8,
	}
	loopLocals := image.LocalVariableList{
		Items: []image.LocalVariableItem{
			{Offset: 0, ActualLength: 4, DataType: image.TypeI32, Align: 8},
			{Offset: 8, ActualLength: 4, DataType: image.TypeI32, Align: 8},
		},
		AllocatedBytes: 16,
	}
	nezLocals := image.LocalVariableList{}

	code, err := asmtest.Assemble(`
		imm_i32 0
		imm_i32 1
		block 1 1

	loop_body:
		local_load_i32 0 1 0
		local_load_i32 1 0 0
		gt_i32_s
		block_nez 2 loop_continue

		local_load_i32 1 0 0
		break_ 1 done

	loop_continue:
		local_load_i32 0 0 0
		local_load_i32 0 1 0
		local_load_i32 0 1 0
		mul_i32
		add_i32

		local_load_i32 0 1 0
		imm_i32 1
		add_i32

		recur 0 loop_body

	done:
		end
	`)
	assert(t, err == nil, "assemble: %v", err)

	img := image.Image{
		Types: image.TypeSection{Types: []image.FunctionType{funcType, loopType}},
		Locals: image.LocalVariableSection{Lists: []image.LocalVariableList{
			funcLocals, loopLocals, nezLocals,
		}},
		Functions: image.FunctionSection{
			Items:     []image.FunctionItem{{TypeIndex: 0, LocalListIndex: 0, CodeOffset: 0, CodeLength: uint32(len(code))}},
			CodesData: code,
		},
	}

	ctx := newContext(t)
	ctx.LoadModule(0, &img)

	results, err := runtime.ProcessFunction(ctx, 0, 0, i64Args(4))
	assert(t, err == nil, "process_function: %v", err)
	assert(t, decodeI64(t, results, 0) == 30, "sum of squares 1..4: got %d, want 30", decodeI64(t, results, 0))
}

// TestProcessFunctionBlockAltBreakAlt computes abs(x) with a
// block_alt/break_alt if/else: the then-branch (x < 0) negates x and
// exits early via break_alt; the else-branch falls through to the
// block's own `end`. Both branches share one block frame created
// unconditionally by block_alt itself, and break_alt's jump target
// skips over that shared `end` since break_alt already ends the frame
// on its way out.
func TestProcessFunctionBlockAltBreakAlt(t *testing.T) {
	funcType := image.FunctionType{Params: []image.DataType{image.TypeI32}, Results: []image.DataType{image.TypeI32}}
	blockType := image.FunctionType{Results: []image.DataType{image.TypeI32}}

	funcLocals := image.LocalVariableList{
		Items:          []image.LocalVariableItem{{Offset: 0, ActualLength: 4, DataType: image.TypeI32, Align: 8}},
		AllocatedBytes: 8,
	}
	blockLocals := image.LocalVariableList{}

	code, err := asmtest.Assemble(`
		local_load_i32 0 0 0
		imm_i32 0
		lt_i32_s
		block_alt 1 1 else_branch

		imm_i32 0
		local_load_i32 1 0 0
		sub_i32
		break_alt func_end

	else_branch:
		local_load_i32 1 0 0
		end

	func_end:
		end
	`)
	assert(t, err == nil, "assemble: %v", err)

	img := image.Image{
		Types: image.TypeSection{Types: []image.FunctionType{funcType, blockType}},
		Locals: image.LocalVariableSection{Lists: []image.LocalVariableList{
			funcLocals, blockLocals,
		}},
		Functions: image.FunctionSection{
			Items:     []image.FunctionItem{{TypeIndex: 0, LocalListIndex: 0, CodeOffset: 0, CodeLength: uint32(len(code))}},
			CodesData: code,
		},
	}

	cases := []struct {
		in, want int64
	}{
		{in: -7, want: 7},
		{in: 5, want: 5},
	}
	for _, c := range cases {
		ctx := newContext(t)
		ctx.LoadModule(0, &img)
		results, err := runtime.ProcessFunction(ctx, 0, 0, i64Args(c.in))
		assert(t, err == nil, "process_function(%d): %v", c.in, err)
		assert(t, decodeI64(t, results, 0) == c.want, "abs(%d): got %d, want %d", c.in, decodeI64(t, results, 0), c.want)
	}
}

func TestProcessFunctionDivideByZeroTerminates(t *testing.T) {
	img := buildImage(t, nil, []image.DataType{image.TypeI32}, 0, `
		imm_i32 1
		imm_i32 0
		div_i32_s
		end
	`)
	ctx := newContext(t)
	ctx.LoadModule(0, &img)

	_, err := runtime.ProcessFunction(ctx, 0, 0, nil)
	assert(t, err != nil, "expected a terminate error")
}

func TestProcessFunctionMemoryAllocateFillCapacity(t *testing.T) {
	img := buildImage(t, nil, []image.DataType{image.TypeI64}, 8, `
		imm_i32 16
		imm_i32 8
		memory_allocate
		local_store_i64 0 0 0

		imm_i32 0
		local_load_i64 0 0 0
		imm_i32 0
		imm_i32 16
		imm_i32 255
		memory_fill

		local_load_i64 0 0 0
		memory_capacity
		drop

		local_load_i64 0 0 0
		end
	`)
	img.Locals.Lists[0].Items = []image.LocalVariableItem{{Offset: 0, ActualLength: 8, DataType: image.TypeI64, Align: 8}}
	ctx := newContext(t)
	ctx.LoadModule(0, &img)

	results, err := runtime.ProcessFunction(ctx, 0, 0, nil)
	assert(t, err == nil, "process_function: %v", err)

	tagged := uint64(decodeI64(t, results, 0))
	idx, isAllocated := alloc.Untag(tagged)
	assert(t, isAllocated, "result %#x is not an allocator-tagged index", tagged)
	region, err := ctx.Allocator().GetBytes(idx)
	assert(t, err == nil, "GetBytes: %v", err)
	for i, b := range region {
		assert(t, b == 0xFF, "byte %d = 0x%02x, want 0xff", i, b)
	}
}
