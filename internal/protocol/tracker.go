package protocol

import "fmt"

// DirectionMode selects how an axis displacement sign is treated.
// The controllers shipped so far expect Identity for every axis; Negate is
// available for wiring axes whose positive direction is reversed.
type DirectionMode int

const (
	// DirectionIdentity leaves the displacement sign untouched (default).
	DirectionIdentity DirectionMode = iota
	// DirectionNegate flips the displacement sign before encoding.
	DirectionNegate
)

// Apply transforms a raw displacement according to the mode.
func (m DirectionMode) Apply(d int32) int32 {
	if m == DirectionNegate {
		return -d
	}
	return d
}

// AxisConfig holds the static parameters of one axis. Set once at startup.
type AxisConfig struct {
	AxisID    uint8
	GearRatio float64
	Direction DirectionMode
}

// AxisState is the mutable per-axis tracking state owned by the Tracker.
type AxisState struct {
	InitialPosition float64
	LastPosition    float64
}

// Tracker maintains the running absolute position of all six axes across a
// command stream. It is not safe for concurrent use; the conversion pipeline
// is strictly sequential.
type Tracker struct {
	axes  [AxisCount]AxisConfig
	state [AxisCount]AxisState
}

// NewTracker builds a tracker for the given axis configurations. Exactly six
// axes, ids 1..6 in order, are required.
func NewTracker(axes [AxisCount]AxisConfig) (*Tracker, error) {
	for i, a := range axes {
		if a.AxisID != uint8(i+1) {
			return nil, fmt.Errorf("axis config %d has id %d, want %d", i, a.AxisID, i+1)
		}
		if a.GearRatio <= 0 {
			return nil, fmt.Errorf("axis %d: gear ratio must be positive, got %v", a.AxisID, a.GearRatio)
		}
	}
	return &Tracker{axes: axes}, nil
}

// Axis returns the static configuration of the given axis (1..6).
func (t *Tracker) Axis(axisID uint8) AxisConfig {
	return t.axes[axisID-1]
}

// Reset clears the tracking state so a new command stream starts from the
// origin again.
func (t *Tracker) Reset() {
	t.state = [AxisCount]AxisState{}
}

// RelativeDisplacement converts an absolute target for the given axis into
// the fixed-point relative displacement to encode: the gear-ratio-scaled
// delta from the axis origin, scaled by 100, truncated toward zero and
// masked to signed 24 bits. As a side effect it records the new absolute
// position for the axis.
func (t *Tracker) RelativeDisplacement(axisID uint8, target float64) int32 {
	s := &t.state[axisID-1]
	scaled := target * t.axes[axisID-1].GearRatio
	d := int32(int64((scaled - s.InitialPosition) * 100))
	s.LastPosition = scaled
	return EncodeInt24(d)
}

// LastPosition reports the most recent gear-ratio-scaled position recorded
// for the axis.
func (t *Tracker) LastPosition(axisID uint8) float64 {
	return t.state[axisID-1].LastPosition
}
