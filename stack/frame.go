package stack

import (
	"errors"
	"fmt"

	"govm/image"
)

// PC is the execution cursor, spec.md Section 3.5: a module index, the
// internal index of the function currently executing, and a byte
// offset into that function's code.
type PC struct {
	ModuleIndex           uint32
	FunctionInternalIndex uint32
	InstructionAddress    uint32
}

// Frame is one stack frame: a function call or a block. Per spec.md
// Section 3.3, only function frames carry a return PC; block frames
// share the rest of the layout and chain to their enclosing frame for
// layered local-variable lookups.
type Frame struct {
	IsFunction      bool
	ReturnPC        PC
	LocalListIndex  uint32
	ParamsCount     int
	ResultsCount    int
	LocalAllocBytes uint32
	LocalBase       int
	List            image.LocalVariableList
}

var (
	// ErrNoFrame is returned when an operation requires a current
	// frame but the frame stack is empty.
	ErrNoFrame = errors.New("stack: no current frame")
	// ErrLayerOutOfRange is returned when a layered local access
	// requests more enclosing frames than exist.
	ErrLayerOutOfRange = errors.New("stack: layer out of range")
	// ErrLocalIndexOutOfRange is returned when a local-variable
	// index has no entry in the frame's local-variable list.
	ErrLocalIndexOutOfRange = errors.New("stack: local variable index out of range")
	// ErrLocalSizeMismatch is returned when a local access requests
	// more bytes than the variable's actual size (spec.md Section 4.2
	// "If expected_size > list[index].actual_size, fail").
	ErrLocalSizeMismatch = errors.New("stack: local variable access exceeds actual size")
)

// Depth returns the number of frames currently on the stack.
func (s *Stack) Depth() int { return len(s.frames) }

// CurrentFrame returns the innermost frame.
func (s *Stack) CurrentFrame() (*Frame, error) {
	if len(s.frames) == 0 {
		return nil, ErrNoFrame
	}
	return &s.frames[len(s.frames)-1], nil
}

// CreateFrame implements spec.md Section 4.2 "Create frame": verifies
// the top paramsCount operands exist, takes them in place as the start
// of the frame's local area (so the arguments become the first local
// variables; the frame header is kept outside the byte buffer), zero-
// initializes the remaining local area, and links the new frame onto
// the frame stack.
func (s *Stack) CreateFrame(list image.LocalVariableList, localListIndex uint32, paramsCount, resultsCount int, localAllocBytes uint32, returnPC *PC) error {
	paramsBytes := paramsCount * SlotSize
	if s.sp < paramsBytes {
		return ErrStackUnderflow
	}
	localBase := s.sp - paramsBytes

	remaining := int(localAllocBytes) - paramsBytes
	if remaining < 0 {
		return fmt.Errorf("stack: local_alloc_bytes %d smaller than params area %d", localAllocBytes, paramsBytes)
	}
	if err := s.reserve(remaining); err != nil {
		return err
	}
	for i := s.sp; i < s.sp+remaining; i++ {
		s.data[i] = 0
	}
	s.sp += remaining

	f := Frame{
		LocalListIndex:  localListIndex,
		ParamsCount:     paramsCount,
		ResultsCount:    resultsCount,
		LocalAllocBytes: localAllocBytes,
		LocalBase:       localBase,
		List:            list,
	}
	if returnPC != nil {
		f.IsFunction = true
		f.ReturnPC = *returnPC
	}
	s.frames = append(s.frames, f)
	return nil
}

// EndFrame implements spec.md Section 4.2 "End frame": pops the
// innermost frame's declared result operands into a scratch buffer,
// discards the frame's header and locals, then pushes the results
// back. The popped Frame is returned so the dispatch loop can decide
// whether to resume at ReturnPC (function frame) or simply continue
// after the block (block frame), and whether the whole invocation is
// finished (a function frame whose ReturnPC is the zero PC is the
// entry frame of a process_function call).
func (s *Stack) EndFrame() (Frame, error) {
	f, err := s.CurrentFrame()
	if err != nil {
		return Frame{}, err
	}
	frame := *f

	resultsBytes := frame.ResultsCount * SlotSize
	if s.sp < resultsBytes {
		return Frame{}, ErrStackUnderflow
	}
	scratch := make([]byte, resultsBytes)
	copy(scratch, s.data[s.sp-resultsBytes:s.sp])

	s.sp = frame.LocalBase
	if err := s.reserve(resultsBytes); err != nil {
		return Frame{}, err
	}
	copy(s.data[s.sp:], scratch)
	s.sp += resultsBytes

	s.frames = s.frames[:len(s.frames)-1]
	return frame, nil
}

// Recur implements spec.md Section 4.3 "recur": re-initializes the
// frame `layers` out with fresh argument values popped from the
// current stack top, discarding any operand content above that
// frame and every frame inside it. It returns the re-initialized
// target frame; the caller resumes execution at the target
// block/function's start offset.
func (s *Stack) Recur(layers int) (Frame, error) {
	idx := len(s.frames) - 1 - layers
	if idx < 0 {
		return Frame{}, ErrLayerOutOfRange
	}
	target := s.frames[idx]

	paramsBytes := target.ParamsCount * SlotSize
	if s.sp < paramsBytes {
		return Frame{}, ErrStackUnderflow
	}
	args := make([]byte, paramsBytes)
	copy(args, s.data[s.sp-paramsBytes:s.sp])

	s.sp = target.LocalBase
	copy(s.data[s.sp:], args)
	s.sp += paramsBytes

	remaining := int(target.LocalAllocBytes) - paramsBytes
	if err := s.reserve(remaining); err != nil {
		return Frame{}, err
	}
	for i := s.sp; i < s.sp+remaining; i++ {
		s.data[i] = 0
	}
	s.sp += remaining

	s.frames = s.frames[:idx+1]
	return target, nil
}

// Break implements spec.md Section 4.3 "break_": unwinds layers+1
// frames in one step. Only the outermost popped frame (popped[0], the
// break_'s target) has its declared results preserved — they're
// captured off the current stack top, the whole torn-down region
// (down to popped[0].LocalBase) is discarded, and then restored once.
// Every layer in between is exited early, not ended normally, so its
// own ResultsCount never enters into it; threading each intervening
// frame's results independently (as repeated EndFrame calls would)
// throws away the target's result the moment an inner 0-result frame
// is unwound.
func (s *Stack) Break(layers int) ([]Frame, error) {
	if layers+1 > len(s.frames) {
		return nil, ErrLayerOutOfRange
	}
	idx := len(s.frames) - layers - 1
	popped := make([]Frame, layers+1)
	copy(popped, s.frames[idx:])

	target := popped[0]
	resultsBytes := target.ResultsCount * SlotSize
	if s.sp < resultsBytes {
		return nil, ErrStackUnderflow
	}
	scratch := make([]byte, resultsBytes)
	copy(scratch, s.data[s.sp-resultsBytes:s.sp])

	s.sp = target.LocalBase
	if err := s.reserve(resultsBytes); err != nil {
		return nil, err
	}
	copy(s.data[s.sp:], scratch)
	s.sp += resultsBytes

	s.frames = s.frames[:idx]
	return popped, nil
}

// LocalVariableAddress implements
// get_local_variable_start_address(layers, index, expected_size),
// spec.md Section 4.2: walk outward `layers` frames, retrieve that
// frame's local-variable list, and compute frame_base + list[index].offset.
func (s *Stack) LocalVariableAddress(layers int, index int, expectedSize int) (int, error) {
	idx := len(s.frames) - 1 - layers
	if idx < 0 {
		return 0, ErrLayerOutOfRange
	}
	frame := s.frames[idx]
	if index < 0 || index >= len(frame.List.Items) {
		return 0, ErrLocalIndexOutOfRange
	}
	item := frame.List.Items[index]
	if expectedSize > int(item.ActualLength) {
		return 0, ErrLocalSizeMismatch
	}
	return frame.LocalBase + int(item.Offset), nil
}
