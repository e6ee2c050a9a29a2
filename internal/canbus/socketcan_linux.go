//go:build linux

package canbus

import (
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

func init() {
	Register("socketcan", func(channel string, bitrate int) (Bus, error) {
		// Bitrate is configured on the interface itself (ip link); the raw
		// socket only binds to it.
		return DialSocketCAN(channel)
	})
}

// canFrameSize is sizeof(struct can_frame) from linux/can.h.
const canFrameSize = 16

const (
	canEffFlag = 0x80000000
	canRtrFlag = 0x40000000
	canEffMask = 0x1FFFFFFF
	canSffMask = 0x7FF
)

// SocketCAN is a Bus over a Linux raw CAN socket bound to one interface
// (e.g. "can0").
type SocketCAN struct {
	fd int

	mu     sync.Mutex
	closed bool
}

// DialSocketCAN opens a raw CAN socket bound to the named interface.
func DialSocketCAN(ifname string) (*SocketCAN, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan: socket: %w", err)
	}
	netIf, err := net.InterfaceByName(ifname)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: interface %s: %w", ifname, err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: netIf.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind %s: %w", ifname, err)
	}
	return &SocketCAN{fd: fd}, nil
}

// Send writes one frame in the kernel can_frame layout.
func (s *SocketCAN) Send(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}
	id := f.ID
	if f.Extended {
		id |= canEffFlag
	}
	buf := make([]byte, canFrameSize)
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = f.Len
	copy(buf[8:], f.Data[:])
	n, err := unix.Write(s.fd, buf)
	if err != nil {
		return fmt.Errorf("socketcan: write: %w", err)
	}
	if n != canFrameSize {
		return fmt.Errorf("socketcan: short write (%d bytes)", n)
	}
	return nil
}

// Recv reads one frame, waiting at most timeout via SO_RCVTIMEO.
func (s *SocketCAN) Recv(timeout time.Duration) (Frame, bool, error) {
	if s.isClosed() {
		return Frame{}, false, ErrClosed
	}
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return Frame{}, false, fmt.Errorf("socketcan: set receive timeout: %w", err)
	}
	buf := make([]byte, canFrameSize)
	for {
		n, err := unix.Read(s.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return Frame{}, false, nil
		}
		if err != nil {
			return Frame{}, false, fmt.Errorf("socketcan: read: %w", err)
		}
		if n < canFrameSize {
			return Frame{}, false, fmt.Errorf("socketcan: short read (%d bytes)", n)
		}
		id := binary.LittleEndian.Uint32(buf[0:4])
		if id&canRtrFlag != 0 {
			// Remote frames carry no payload the handshake cares about.
			continue
		}
		var f Frame
		f.Extended = id&canEffFlag != 0
		if f.Extended {
			f.ID = id & canEffMask
		} else {
			f.ID = id & canSffMask
		}
		f.Len = buf[4]
		if f.Len > 8 {
			f.Len = 8
		}
		copy(f.Data[:], buf[8:16])
		return f, true, nil
	}
}

func (s *SocketCAN) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the socket.
func (s *SocketCAN) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}
