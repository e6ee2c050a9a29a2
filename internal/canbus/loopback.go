package canbus

import (
	"sync"
	"time"
)

func init() {
	Register("virtual", func(channel string, bitrate int) (Bus, error) {
		return NewLoopback(), nil
	})
}

// Loopback is an in-memory Bus. Sent frames are recorded, received frames
// come from a queue fed by Inject. It backs the "virtual" interface type for
// dry runs and serves as the bus double in tests.
type Loopback struct {
	mu     sync.Mutex
	closed bool
	done   chan struct{}
	sent   []Frame
	inbox  chan Frame
}

// NewLoopback returns an open loopback bus.
func NewLoopback() *Loopback {
	return &Loopback{
		done:  make(chan struct{}),
		inbox: make(chan Frame, 64),
	}
}

// Send records the frame. On a virtual bus there is no peer, so sending
// always succeeds while the bus is open.
func (l *Loopback) Send(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.sent = append(l.sent, f)
	return nil
}

// Recv pops the next injected frame, waiting at most timeout. Closing the
// bus wakes a blocked Recv with ErrClosed.
func (l *Loopback) Recv(timeout time.Duration) (Frame, bool, error) {
	select {
	case <-l.done:
		return Frame{}, false, ErrClosed
	default:
	}
	select {
	case f := <-l.inbox:
		return f, true, nil
	case <-l.done:
		return Frame{}, false, ErrClosed
	case <-time.After(timeout):
		return Frame{}, false, nil
	}
}

// Inject queues a frame to be returned by a later Recv.
func (l *Loopback) Inject(f Frame) {
	l.inbox <- f
}

// Sent returns a copy of all frames sent so far, in order.
func (l *Loopback) Sent() []Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Frame, len(l.sent))
	copy(out, l.sent)
	return out
}

// Close shuts the bus; further Send/Recv return ErrClosed and a Recv
// blocked in its wait returns immediately.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	return nil
}
