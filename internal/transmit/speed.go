// Package transmit sends encoded motion packets over a CAN bus and runs the
// acknowledgement handshake with the motor controllers.
package transmit

import (
	"github.com/iwtcode/canAdapter/internal/protocol"
)

// Normalizer rewrites the speed fields of a packet before transmission.
type Normalizer interface {
	Normalize(p protocol.Packet)
}

// ReferenceSpeed is the integer average of all frame speeds in the packet.
func ReferenceSpeed(p protocol.Packet) int {
	if len(p) == 0 {
		return 0
	}
	sum := 0
	for _, f := range p {
		sum += int(f.Speed)
	}
	return sum / len(p)
}

// AverageRatio is the shipped Normalizer. It scales each speed by its ratio
// to the packet's reference speed, which lands back on (approximately) the
// original speed after float truncation. The controllers have only ever seen
// this behavior, so it is kept as the default; a true averaging policy can
// be swapped in through the Normalizer interface.
type AverageRatio struct{}

// Normalize rewrites each frame's speed in place. A zero reference speed
// leaves the packet untouched.
func (AverageRatio) Normalize(p protocol.Packet) {
	ref := ReferenceSpeed(p)
	if ref == 0 {
		return
	}
	for i := range p {
		adjusted := int(float64(p[i].Speed) / float64(ref) * float64(ref))
		p[i].Speed = uint16(adjusted)
	}
}
