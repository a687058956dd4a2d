package envcall

import "sync/atomic"

var nextThreadID uint32

// ThreadHandle is the parent-side view of a spawned child
// ThreadContext: its id and the two FIFO channels spec.md Section 5
// describes ("parent->child and child->parent channels are first-in-
// first-out"). Actually starting an OS thread to run the child is
// the host's responsibility — this package only fixes the contract.
type ThreadHandle struct {
	ID        uint32
	ToChild   *Channel
	FromChild *Channel
}

// NewThreadHandle allocates a fresh thread id and a pair of channels
// for a spawned child.
func NewThreadHandle(channelBuffer int) *ThreadHandle {
	return &ThreadHandle{
		ID:        atomic.AddUint32(&nextThreadID, 1),
		ToChild:   NewChannel(channelBuffer),
		FromChild: NewChannel(channelBuffer),
	}
}

// Terminate implements thread_terminate, spec.md Section 5: "drops
// the child's handle, which (by dropping the sender) causes the
// child's next receive to return channel-closed." There is no
// asynchronous kill; the child is expected to observe the close and
// exit on its own.
func (h *ThreadHandle) Terminate() {
	h.ToChild.Close()
}
