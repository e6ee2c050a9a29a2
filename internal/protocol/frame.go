// Package protocol implements the 9-byte motion frame format understood by
// the motor controllers: axis id, opcode 0xF5, 16-bit speed, subcommand 0x02,
// signed 24-bit relative displacement and a byte-sum checksum.
package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// Opcode is the fixed command byte of every motion frame.
	Opcode = 0xF5
	// SubMove is the fixed subcommand byte selecting a relative move.
	SubMove = 0x02

	// FrameSize is the encoded size of a motion frame in bytes.
	FrameSize = 9
	// AxisCount is the number of motor axes addressed by one command.
	AxisCount = 6
)

// Frame is one motion frame addressed to a single axis.
type Frame struct {
	AxisID       uint8
	Speed        uint16
	Displacement int32 // signed 24-bit, already masked by the encoder
}

// Packet is the ordered set of six frames produced from one motion command,
// axis ids ascending.
type Packet []Frame

// Checksum returns the byte-sum checksum over data, modulo 256.
func Checksum(data []byte) byte {
	var sum int
	for _, b := range data {
		sum += int(b)
	}
	return byte(sum & 0xFF)
}

// Marshal encodes the frame into its 9-byte wire form, appending the
// checksum over the preceding 8 bytes.
func (f Frame) Marshal() [FrameSize]byte {
	var b [FrameSize]byte
	b[0] = f.AxisID
	b[1] = Opcode
	b[2] = byte(f.Speed >> 8)
	b[3] = byte(f.Speed)
	b[4] = SubMove
	u := uint32(f.Displacement) & 0xFFFFFF
	b[5] = byte(u >> 16)
	b[6] = byte(u >> 8)
	b[7] = byte(u)
	b[8] = Checksum(b[:8])
	return b
}

// Hex returns the frame as 18 uppercase hex characters, the line format of
// a .can file.
func (f Frame) Hex() string {
	b := f.Marshal()
	return strings.ToUpper(hex.EncodeToString(b[:]))
}

// ParseHex decodes one .can line back into a Frame, verifying the checksum.
func ParseHex(line string) (Frame, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(line))
	if err != nil {
		return Frame{}, fmt.Errorf("invalid hex frame %q: %w", line, err)
	}
	if len(raw) != FrameSize {
		return Frame{}, fmt.Errorf("invalid frame length %d, want %d", len(raw), FrameSize)
	}
	if sum := Checksum(raw[:8]); sum != raw[8] {
		return Frame{}, fmt.Errorf("checksum mismatch: computed %02X, frame carries %02X", sum, raw[8])
	}
	return Frame{
		AxisID:       raw[0],
		Speed:        uint16(raw[2])<<8 | uint16(raw[3]),
		Displacement: DecodeInt24(uint32(raw[5])<<16 | uint32(raw[6])<<8 | uint32(raw[7])),
	}, nil
}

// DecodeInt24 interprets the low 24 bits of u as a signed two's-complement
// integer.
func DecodeInt24(u uint32) int32 {
	u &= 0xFFFFFF
	if u&0x800000 != 0 {
		return int32(u) - 1<<24
	}
	return int32(u)
}

// EncodeInt24 masks d to its signed 24-bit representation. Values outside
// [-2^23, 2^23-1] wrap around; overflow is defined behavior, not an error.
func EncodeInt24(d int32) int32 {
	return DecodeInt24(uint32(d))
}
