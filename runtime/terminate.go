package runtime

import (
	"govm/runtime/handlers"
	"govm/stack"
)

// TerminatedError is what process_function returns when execution
// ends abnormally, per spec.md Section 7 class 2/3: "returned from
// process_function as an error containing that code."
type TerminatedError struct {
	Code        handlers.TerminateCode
	PC          stack.PC
	Disassembly string
}

func (e *TerminatedError) Error() string {
	return "govm: terminated: " + e.Code.String()
}
