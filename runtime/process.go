package runtime

import (
	"encoding/binary"
	"fmt"
	"math"

	"govm/diag"
	"govm/image"
	"govm/instr"
	"govm/runtime/handlers"
	"govm/stack"
)

var byteOrder = binary.LittleEndian

// ProcessFunction implements spec.md Section 4.6's external entry
// point: push args, create the entry frame, set the PC to the
// function's code, then run the dispatch loop until the entry frame
// ends or a handler terminates. It is safe to call reentrantly on the
// same ThreadContext (ThreadContext.Invoke does exactly that for
// host_addr_function callbacks) since each call only grows the shared
// operand stack for its own duration and always restores the caller's
// PC/module bookkeeping before returning.
func ProcessFunction(ctx *ThreadContext, moduleIndex, functionInternalIndex uint32, args []byte) ([]byte, error) {
	savedPC, savedModule := ctx.pc, ctx.currentModuleIndex
	defer func() { ctx.pc, ctx.currentModuleIndex = savedPC, savedModule }()

	mod, err := ctx.Module(moduleIndex)
	if err != nil {
		return nil, err
	}
	fn, err := mod.FunctionItem(functionInternalIndex)
	if err != nil {
		return nil, err
	}
	sig, err := mod.Type(fn.TypeIndex)
	if err != nil {
		return nil, err
	}
	list, err := mod.LocalList(fn.LocalListIndex)
	if err != nil {
		return nil, err
	}

	if err := pushArgs(ctx.stack, sig.Params, args); err != nil {
		return nil, fmt.Errorf("runtime: process_function: %w", err)
	}

	entryPC := stack.PC{}
	if err := ctx.stack.CreateFrame(list, fn.LocalListIndex, len(sig.Params), len(sig.Results), list.AllocatedBytes, &entryPC); err != nil {
		return nil, fmt.Errorf("runtime: process_function: failed to create entry frame: %w", err)
	}

	ctx.currentModuleIndex = moduleIndex
	ctx.pc = stack.PC{ModuleIndex: moduleIndex, FunctionInternalIndex: functionInternalIndex, InstructionAddress: 0}

	for {
		cur, err := ctx.Module(ctx.pc.ModuleIndex)
		if err != nil {
			return nil, err
		}
		code, err := cur.FunctionCode(ctx.pc.FunctionInternalIndex)
		if err != nil {
			return nil, err
		}
		reader := instr.Reader{Code: code}
		in, err := reader.Decode(ctx.pc.InstructionAddress)
		if err != nil {
			return nil, terminate(ctx, handlers.TerminateIndexOutOfRange)
		}

		ctx.currentModuleIndex = ctx.pc.ModuleIndex
		result := handlers.Dispatch(ctx, in)

		switch result.Kind {
		case handlers.Move:
			ctx.pc.InstructionAddress += uint32(result.MoveDelta)
		case handlers.Jump:
			ctx.pc = result.JumpPC
		case handlers.End:
			if result.EndPC == nil {
				return popResults(ctx.stack, sig.Results)
			}
			ctx.pc = *result.EndPC
		case handlers.Terminate:
			return nil, terminate(ctx, result.TerminateCode)
		default:
			return nil, terminate(ctx, handlers.TerminateUnreachable)
		}
	}
}

// terminate builds the abnormal-exit error for the thread's current
// PC and logs it via the thread's diagnostic logger (spec.md Section
// 7's "optionally with a diagnostic string including PC, function
// index" record).
func terminate(ctx *ThreadContext, code handlers.TerminateCode) error {
	pc := ctx.PC()
	ctx.Logger().Terminate(diag.TerminateRecord{
		Code:                  int32(code),
		ModuleIndex:           pc.ModuleIndex,
		FunctionInternalIndex: pc.FunctionInternalIndex,
		InstructionAddress:    pc.InstructionAddress,
	})
	return &TerminatedError{Code: code, PC: pc}
}

// pushArgs decodes args (one 8-byte VM slot per declared param, same
// packing ffi.Wrapper.Call uses) and pushes each typed value in
// declaration order, so the callee's first local variables line up
// with its parameter list once CreateFrame runs.
func pushArgs(s *stack.Stack, types []image.DataType, args []byte) error {
	if len(args) != len(types)*8 {
		return fmt.Errorf("expected %d argument bytes for %d params, got %d", len(types)*8, len(types), len(args))
	}
	for i, dt := range types {
		slot := args[i*8 : i*8+8]
		if err := pushSlot(s, dt, slot); err != nil {
			return err
		}
	}
	return nil
}

func pushSlot(s *stack.Stack, dt image.DataType, slot []byte) error {
	switch dt {
	case image.TypeI32:
		return s.PushI32(byteOrder.Uint32(slot))
	case image.TypeI64:
		return s.PushI64(byteOrder.Uint64(slot))
	case image.TypeF32:
		return s.PushF32(math.Float32frombits(byteOrder.Uint32(slot)))
	case image.TypeF64:
		return s.PushF64(math.Float64frombits(byteOrder.Uint64(slot)))
	default:
		return fmt.Errorf("data type %s cannot be a function parameter", dt)
	}
}

// popResults pops the declared results off the stack (results are
// pushed in declaration order, so the last one declared sits on top)
// and packs each into an 8-byte VM slot in declaration order.
func popResults(s *stack.Stack, types []image.DataType) ([]byte, error) {
	out := make([]byte, len(types)*8)
	for i := len(types) - 1; i >= 0; i-- {
		slot := out[i*8 : i*8+8]
		if err := popSlot(s, types[i], slot); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func popSlot(s *stack.Stack, dt image.DataType, dst []byte) error {
	switch dt {
	case image.TypeI32:
		v, err := s.PopI32()
		if err != nil {
			return err
		}
		byteOrder.PutUint32(dst, v)
	case image.TypeI64:
		v, err := s.PopI64()
		if err != nil {
			return err
		}
		byteOrder.PutUint64(dst, v)
	case image.TypeF32:
		v, err := s.PopF32()
		if err != nil {
			return err
		}
		byteOrder.PutUint32(dst, math.Float32bits(v))
	case image.TypeF64:
		v, err := s.PopF64()
		if err != nil {
			return err
		}
		byteOrder.PutUint64(dst, math.Float64bits(v))
	default:
		return fmt.Errorf("data type %s cannot be a function result", dt)
	}
	return nil
}
