package handlers

import "govm/stack"

// ResultKind is the dispatch-loop directive a handler returns, per
// spec.md Section 4.6: Move advances the PC by a byte delta within
// the current function; Jump sets an absolute PC (entering a called
// function or a block); End pops the current frame and resumes at a
// caller-supplied PC, or finishes the whole process_function call
// when the frame that ended was its entry frame; Terminate aborts with
// a code.
type ResultKind int

const (
	Move ResultKind = iota
	Jump
	End
	Terminate
)

// Result is the outcome of one instruction handler invocation.
type Result struct {
	Kind ResultKind

	// MoveDelta is the byte offset to add to the current
	// instruction_address, valid when Kind == Move.
	MoveDelta int
	// JumpPC is the absolute program counter to resume at, valid
	// when Kind == Jump.
	JumpPC stack.PC
	// EndPC is the program counter to resume at after the current
	// frame ends, valid when Kind == End. Nil means the frame that
	// just ended was the entry frame: process_function returns.
	EndPC *stack.PC
	// TerminateCode is the abnormal-exit code, valid when Kind == Terminate.
	TerminateCode TerminateCode
}

// MoveBy returns a Result that advances the PC within the current function.
func MoveBy(delta int) Result { return Result{Kind: Move, MoveDelta: delta} }

// Advance returns a Result that moves past one decoded instruction —
// the common case for every handler that doesn't alter control flow.
func Advance(size int) Result { return MoveBy(size) }

// JumpTo returns a Result that sets an absolute program counter.
func JumpTo(pc stack.PC) Result { return Result{Kind: Jump, JumpPC: pc} }

// EndAt returns a Result that ends the current frame and resumes at pc.
func EndAt(pc stack.PC) Result { return Result{Kind: End, EndPC: &pc} }

// Finished returns a Result that ends the current (entry) frame with
// no caller to resume: process_function returns normally.
func Finished() Result { return Result{Kind: End} }

// TerminateWith returns a Result that aborts execution with code.
func TerminateWith(code TerminateCode) Result { return Result{Kind: Terminate, TerminateCode: code} }
