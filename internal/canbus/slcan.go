package canbus

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"
)

func init() {
	Register("slcan", func(channel string, bitrate int) (Bus, error) {
		return DialSLCAN(channel, bitrate)
	})
}

// slcan speed codes per the Lawicel SLCAN command set.
var slcanSpeed = map[int]byte{
	10000:   '0',
	20000:   '1',
	50000:   '2',
	100000:  '3',
	125000:  '4',
	250000:  '5',
	500000:  '6',
	800000:  '7',
	1000000: '8',
}

// slcanPollInterval bounds each serial read so Recv can honor its deadline.
const slcanPollInterval = 20 * time.Millisecond

// SLCAN is a Bus over a serial-line CAN adapter (USB dongles exposing a
// /dev/ttyACMx or /dev/ttyUSBx device).
type SLCAN struct {
	port *serial.Port
	buf  []byte
}

// DialSLCAN opens the serial device, programs the bitrate and opens the CAN
// channel.
func DialSLCAN(device string, bitrate int) (*SLCAN, error) {
	code, ok := slcanSpeed[bitrate]
	if !ok {
		return nil, fmt.Errorf("slcan: unsupported bitrate %d", bitrate)
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        115200,
		ReadTimeout: slcanPollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("slcan: open %s: %w", device, err)
	}
	s := &SLCAN{port: port}
	// Close a possibly open channel first; the adapter rejects S commands
	// while the channel is open.
	for _, cmd := range []string{"C\r", "S" + string(code) + "\r", "O\r"} {
		if _, err := port.Write([]byte(cmd)); err != nil {
			port.Close()
			return nil, fmt.Errorf("slcan: init %s: %w", device, err)
		}
	}
	return s, nil
}

// Send transmits one frame as an ASCII t/T command.
func (s *SLCAN) Send(f Frame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	var cmd string
	if f.Extended {
		cmd = fmt.Sprintf("T%08X%d%s\r", f.ID, f.Len, strings.ToUpper(hex.EncodeToString(f.Payload())))
	} else {
		cmd = fmt.Sprintf("t%03X%d%s\r", f.ID, f.Len, strings.ToUpper(hex.EncodeToString(f.Payload())))
	}
	if _, err := s.port.Write([]byte(cmd)); err != nil {
		return fmt.Errorf("slcan: send: %w", err)
	}
	return nil
}

// Recv reads until a complete t/T message arrives or the timeout elapses.
// Command acknowledgements (CR, BEL) and unknown messages are skipped.
func (s *SLCAN) Recv(timeout time.Duration) (Frame, bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		if f, ok := s.popFrame(); ok {
			return f, true, nil
		}
		if time.Now().After(deadline) {
			return Frame{}, false, nil
		}
		chunk := make([]byte, 64)
		n, err := s.port.Read(chunk)
		if n > 0 {
			s.buf = append(s.buf, chunk[:n]...)
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			// tarm/serial reports a poll expiry as io.EOF with n == 0; only
			// a real failure ends the receive loop.
			return Frame{}, false, fmt.Errorf("slcan: recv: %w", err)
		}
	}
}

// popFrame scans the buffered input for the next complete CAN message.
func (s *SLCAN) popFrame() (Frame, bool) {
	for {
		i := -1
		for j, b := range s.buf {
			if b == '\r' || b == 0x07 {
				i = j
				break
			}
		}
		if i < 0 {
			return Frame{}, false
		}
		msg := string(s.buf[:i])
		s.buf = s.buf[i+1:]
		if f, err := parseSLCAN(msg); err == nil {
			return f, true
		}
	}
}

// parseSLCAN decodes a t (standard) or T (extended) message.
func parseSLCAN(msg string) (Frame, error) {
	if len(msg) == 0 {
		return Frame{}, fmt.Errorf("slcan: empty message")
	}
	var idLen int
	var extended bool
	switch msg[0] {
	case 't':
		idLen = 3
	case 'T':
		idLen, extended = 8, true
	default:
		return Frame{}, fmt.Errorf("slcan: unsupported message %q", msg)
	}
	if len(msg) < 1+idLen+1 {
		return Frame{}, fmt.Errorf("slcan: short message %q", msg)
	}
	id, err := strconv.ParseUint(msg[1:1+idLen], 16, 32)
	if err != nil {
		return Frame{}, fmt.Errorf("slcan: bad id in %q: %w", msg, err)
	}
	dlc, err := strconv.Atoi(msg[1+idLen : 1+idLen+1])
	if err != nil || dlc > 8 {
		return Frame{}, fmt.Errorf("slcan: bad length in %q", msg)
	}
	data, err := hex.DecodeString(msg[1+idLen+1:])
	if err != nil || len(data) != dlc {
		return Frame{}, fmt.Errorf("slcan: bad data in %q", msg)
	}
	f := NewFrame(uint32(id), data)
	f.Extended = extended
	return f, nil
}

// Close closes the CAN channel and the serial device.
func (s *SLCAN) Close() error {
	s.port.Write([]byte("C\r"))
	return s.port.Close()
}
