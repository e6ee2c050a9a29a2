// Package canbus provides the CAN bus transport used by the transmission
// controller: a minimal frame type, a Bus interface with timeout-bounded
// receive, and pluggable interface drivers (slcan, socketcan, virtual).
package canbus

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Frame is a classical CAN 2.0 data frame. The motion protocol only uses
// standard 11-bit identifiers.
type Frame struct {
	ID       uint32
	Extended bool
	Len      uint8 // 0..8
	Data     [8]byte
}

// NewFrame builds a standard data frame from an id and up to 8 payload bytes.
func NewFrame(id uint32, data []byte) Frame {
	var f Frame
	f.ID = id
	f.Len = uint8(len(data))
	copy(f.Data[:], data)
	return f
}

// Payload returns the valid portion of the frame data.
func (f Frame) Payload() []byte {
	return f.Data[:f.Len]
}

// Validate returns an error if the frame cannot go on the wire.
func (f Frame) Validate() error {
	if f.Len > 8 {
		return ErrInvalidLen
	}
	if !f.Extended && f.ID > 0x7FF {
		return ErrInvalidID
	}
	if f.Extended && f.ID > 0x1FFFFFFF {
		return ErrInvalidID
	}
	return nil
}

var (
	ErrClosed     = errors.New("canbus: closed")
	ErrInvalidID  = errors.New("canbus: invalid identifier")
	ErrInvalidLen = errors.New("canbus: invalid data length")
)

// Bus is a CAN bus connection. Recv blocks for at most the given timeout and
// reports ok=false when nothing arrived in time; a timeout is not an error.
type Bus interface {
	Send(f Frame) error
	Recv(timeout time.Duration) (Frame, bool, error)
	Close() error
}

// OpenFunc constructs a Bus for a channel (device path or interface name)
// at the given bitrate.
type OpenFunc func(channel string, bitrate int) (Bus, error)

var drivers = map[string]OpenFunc{}

// Register adds a bus driver under an interface type name. Called from
// init functions of the driver files.
func Register(ifaceType string, open OpenFunc) {
	drivers[ifaceType] = open
}

// Open creates a bus for the given interface type ("slcan", "socketcan",
// "virtual").
func Open(ifaceType, channel string, bitrate int) (Bus, error) {
	open, ok := drivers[ifaceType]
	if !ok {
		return nil, fmt.Errorf("canbus: unsupported interface type %q (have %v)", ifaceType, Interfaces())
	}
	return open(channel, bitrate)
}

// Interfaces lists the registered interface type names, sorted.
func Interfaces() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
