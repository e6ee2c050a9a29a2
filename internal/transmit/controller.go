package transmit

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iwtcode/canAdapter/internal/canbus"
	"github.com/iwtcode/canAdapter/internal/protocol"
)

// State of the per-packet handshake.
type State int

const (
	StateSending State = iota
	StateAwaitingAck
	StateSatisfied
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateSending:
		return "SENDING"
	case StateAwaitingAck:
		return "AWAITING_ACK"
	case StateSatisfied:
		return "SATISFIED"
	case StateTimedOut:
		return "TIMED_OUT"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status byte values reported by the motors in acknowledgement frames.
const (
	statusMoving = 1
	statusDone   = 2
)

// expectedResponders are the arbitration ids authoritative for command
// completion. Only their acknowledgements advance the handshake.
var expectedResponders = []uint32{1, 2}

// Result reports how one packet resolved.
type Result struct {
	State   State
	Elapsed time.Duration
}

// Satisfied reports whether every expected responder acknowledged with
// status done.
func (r Result) Satisfied() bool {
	return r.State == StateSatisfied
}

// Events receives transmission lifecycle notifications. All methods are
// called from the sending goroutine; implementations must not block for
// long.
type Events interface {
	PacketSent(seq int, frames int)
	PacketResolved(seq int, res Result)
}

// Controller owns the bus and transmits packets strictly one at a time:
// packet N+1 is never sent before packet N resolves to SATISFIED or
// TIMED_OUT. Timeouts are reported, not fatal; a timed-out packet is never
// retried.
type Controller struct {
	bus     canbus.Bus
	timeout time.Duration
	log     *logrus.Logger
	events  Events
	seq     int
}

// NewController returns a controller using the given bus and per-packet
// acknowledgement timeout.
func NewController(bus canbus.Bus, timeout time.Duration, log *logrus.Logger) *Controller {
	return &Controller{bus: bus, timeout: timeout, log: log}
}

// SetEvents installs an optional lifecycle listener.
func (c *Controller) SetEvents(ev Events) {
	c.events = ev
}

// SendPacket transmits all frames of the packet and blocks until the
// handshake resolves. The returned error covers bus failures only; a
// timeout is a normal Result, not an error.
func (c *Controller) SendPacket(p protocol.Packet) (Result, error) {
	c.seq++
	seq := c.seq

	for _, f := range p {
		wire := f.Marshal()
		cf := canbus.NewFrame(uint32(f.AxisID), wire[1:])
		if err := c.bus.Send(cf); err != nil {
			return Result{}, fmt.Errorf("send frame for axis %d: %w", f.AxisID, err)
		}
		c.log.WithFields(logrus.Fields{
			"packet": seq,
			"axis":   f.AxisID,
			"frame":  f.Hex(),
		}).Debug("frame sent")
	}
	if c.events != nil {
		c.events.PacketSent(seq, len(p))
	}

	res, err := c.awaitAcks()
	if err != nil {
		return Result{}, err
	}
	if res.Satisfied() {
		c.log.WithFields(logrus.Fields{"packet": seq, "elapsed": res.Elapsed}).
			Info("all expected motors acknowledged with status done")
	} else {
		c.log.WithFields(logrus.Fields{"packet": seq, "timeout": c.timeout}).
			Warn("timeout waiting for motor acknowledgements")
	}
	if c.events != nil {
		c.events.PacketResolved(seq, res)
	}
	return res, nil
}

// awaitAcks runs the AWAITING_ACK state as a single-deadline receive loop.
// Frames from unexpected ids or with unrecognized status bytes are ignored
// and do not extend or reset the window.
func (c *Controller) awaitAcks() (Result, error) {
	start := time.Now()
	deadline := start.Add(c.timeout)
	lastStatus := make(map[uint32]byte, len(expectedResponders))

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Result{State: StateTimedOut, Elapsed: time.Since(start)}, nil
		}
		f, ok, err := c.bus.Recv(remaining)
		if err != nil {
			return Result{}, fmt.Errorf("receive acknowledgement: %w", err)
		}
		if !ok {
			return Result{State: StateTimedOut, Elapsed: time.Since(start)}, nil
		}
		payload := f.Payload()
		if len(payload) < 2 {
			continue
		}
		status := payload[1]
		if status != statusMoving && status != statusDone {
			continue
		}
		if !isExpected(f.ID) {
			continue
		}
		lastStatus[f.ID] = status
		c.log.WithFields(logrus.Fields{
			"id":     f.ID,
			"status": status,
		}).Debug("acknowledgement received")
		if allDone(lastStatus) {
			return Result{State: StateSatisfied, Elapsed: time.Since(start)}, nil
		}
	}
}

func isExpected(id uint32) bool {
	for _, e := range expectedResponders {
		if id == e {
			return true
		}
	}
	return false
}

// allDone reports whether every expected responder has answered and its
// latest status is done (not still moving).
func allDone(lastStatus map[uint32]byte) bool {
	for _, e := range expectedResponders {
		if lastStatus[e] != statusDone {
			return false
		}
	}
	return true
}
