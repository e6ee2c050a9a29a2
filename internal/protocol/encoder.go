package protocol

// Encoder turns axis targets into wire frames, using a Tracker to derive
// relative displacements.
type Encoder struct {
	tracker *Tracker
}

// NewEncoder returns an encoder bound to the given tracker.
func NewEncoder(tracker *Tracker) *Encoder {
	return &Encoder{tracker: tracker}
}

// Encode builds the motion frame for one axis target at the given feed rate.
// Checksum generation happens in Frame.Marshal and cannot fail.
func (e *Encoder) Encode(axisID uint8, feedRate uint16, target float64) Frame {
	d := e.tracker.RelativeDisplacement(axisID, target)
	d = e.tracker.Axis(axisID).Direction.Apply(d)
	return Frame{
		AxisID:       axisID,
		Speed:        feedRate,
		Displacement: EncodeInt24(d),
	}
}

// EncodePacket encodes all six axis targets of one motion command, in axis
// order. The order is load-bearing: the transmission handshake identifies
// the authoritative responders by axis id.
func (e *Encoder) EncodePacket(feedRate uint16, targets [AxisCount]float64) Packet {
	p := make(Packet, 0, AxisCount)
	for i := 0; i < AxisCount; i++ {
		p = append(p, e.Encode(uint8(i+1), feedRate, targets[i]))
	}
	return p
}
