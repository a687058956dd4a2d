package handlers

import (
	"errors"

	"govm/alloc"
	"govm/stack"
)

// overflowOrUnderflow maps a stack push/pop error to the matching
// Terminate code. Any other error (shouldn't happen for these calls)
// falls back to STACK_UNDERFLOW since that's the more common bug.
func overflowOrUnderflow(err error) Result {
	switch {
	case errors.Is(err, stack.ErrStackOverflow):
		return TerminateWith(TerminateStackOverflow)
	case errors.Is(err, stack.ErrUnsupportedFloat):
		return TerminateWith(TerminateUnsupportedFloatingPointVariant)
	default:
		return TerminateWith(TerminateStackUnderflow)
	}
}

// floatOrStackErr is overflowOrUnderflow's mirror for calls whose
// dominant failure mode is a rejected float bit pattern.
func floatOrStackErr(err error) Result {
	if errors.Is(err, stack.ErrUnsupportedFloat) {
		return TerminateWith(TerminateUnsupportedFloatingPointVariant)
	}
	return overflowOrUnderflow(err)
}

// frameErr maps a stack frame-protocol error (layer/index/size
// mismatches, missing frame) to a Terminate result.
func frameErr(err error) Result {
	switch {
	case errors.Is(err, stack.ErrStackOverflow):
		return TerminateWith(TerminateStackOverflow)
	case errors.Is(err, stack.ErrStackUnderflow):
		return TerminateWith(TerminateStackUnderflow)
	case errors.Is(err, stack.ErrLayerOutOfRange), errors.Is(err, stack.ErrLocalIndexOutOfRange), errors.Is(err, stack.ErrLocalSizeMismatch), errors.Is(err, stack.ErrNoFrame):
		return TerminateWith(TerminateIndexOutOfRange)
	default:
		return TerminateWith(TerminateUnreachable)
	}
}

// allocErr maps an alloc.Allocator error to a Terminate result.
func allocErr(err error) Result {
	switch {
	case errors.Is(err, alloc.ErrInvalidIndex), errors.Is(err, alloc.ErrOutOfRange):
		return TerminateWith(TerminateIndexOutOfRange)
	default:
		return TerminateWith(TerminateAllocatorFailure)
	}
}

// genericErr is for resolution failures (image lookups) that have no
// more specific Terminate code.
func genericErr(error) Result {
	return TerminateWith(TerminateIndexOutOfRange)
}
