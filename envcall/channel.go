package envcall

import "sync"

// Message is one unit of inter-thread communication, carrying a raw
// VM byte payload (spec.md Section 5 "message-passing channels").
type Message struct {
	Data []byte
}

// Channel is a first-in-first-out, single-producer message channel
// between a parent and child ThreadContext.
type Channel struct {
	ch     chan Message
	once   sync.Once
	closed chan struct{}
}

// NewChannel returns an open channel with the given buffer depth.
func NewChannel(buffer int) *Channel {
	return &Channel{ch: make(chan Message, buffer), closed: make(chan struct{})}
}

// Send enqueues a message. It reports an error if the channel has
// already been closed.
func (c *Channel) Send(m Message) error {
	select {
	case <-c.closed:
		return errClosed
	default:
	}
	select {
	case c.ch <- m:
		return nil
	case <-c.closed:
		return errClosed
	}
}

// Receive blocks until a message arrives or the channel is closed.
// ok is false exactly when the channel closed with nothing left
// buffered — the envcall handler for thread_receive_msg/
// thread_wait_and_collect is expected to propagate that as the
// envcall's own "channel closed" result.
func (c *Channel) Receive() (Message, bool) {
	select {
	case m, ok := <-c.ch:
		if ok {
			return m, true
		}
		return Message{}, false
	case <-c.closed:
		select {
		case m, ok := <-c.ch:
			if ok {
				return m, true
			}
		default:
		}
		return Message{}, false
	}
}

// Close drops the sender side. Safe to call more than once.
func (c *Channel) Close() {
	c.once.Do(func() { close(c.closed) })
}

type channelClosedError struct{}

func (channelClosedError) Error() string { return "envcall: channel closed" }

var errClosed = channelClosedError{}
