package canadapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iwtcode/canAdapter/internal/protocol"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.Equal(t, "slcan", cfg.Interface)
	require.Equal(t, "/dev/ttyACM0", cfg.Channel)
	require.Equal(t, 500000, cfg.Bitrate)
	require.Equal(t, 3*time.Second, cfg.AckTimeout)
	require.Equal(t, defaultGearRatios, cfg.GearRatios)
	require.Equal(t, defaultInvert, cfg.InvertDirection)
	require.False(t, cfg.ApplyInversion)
	require.Empty(t, cfg.KafkaBroker)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CAN_INTERFACE", "socketcan")
	t.Setenv("CAN_CHANNEL", "can0")
	t.Setenv("CAN_BITRATE", "250000")
	t.Setenv("CAN_ACK_TIMEOUT_MS", "1500")
	t.Setenv("AXIS1_GEAR_RATIO", "27.0")
	t.Setenv("AXIS3_INVERT", "true")

	cfg := Load()
	require.Equal(t, "socketcan", cfg.Interface)
	require.Equal(t, "can0", cfg.Channel)
	require.Equal(t, 250000, cfg.Bitrate)
	require.Equal(t, 1500*time.Millisecond, cfg.AckTimeout)
	require.Equal(t, 27.0, cfg.GearRatios[0])
	require.True(t, cfg.InvertDirection[2])
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CAN_BITRATE", "fast")
	t.Setenv("AXIS2_GEAR_RATIO", "many")

	cfg := Load()
	require.Equal(t, 500000, cfg.Bitrate)
	require.Equal(t, defaultGearRatios[1], cfg.GearRatios[1])
}

func TestAxesMapping(t *testing.T) {
	cfg := Load()

	// Identity is the shipped default even for axes flagged as inverted.
	axes := cfg.Axes()
	for i, a := range axes {
		require.Equal(t, uint8(i+1), a.AxisID)
		require.Equal(t, protocol.DirectionIdentity, a.Direction)
	}

	cfg.ApplyInversion = true
	axes = cfg.Axes()
	require.Equal(t, protocol.DirectionNegate, axes[0].Direction)
	require.Equal(t, protocol.DirectionNegate, axes[1].Direction)
	require.Equal(t, protocol.DirectionIdentity, axes[2].Direction)
}

func TestNewRejectsBadGearRatio(t *testing.T) {
	cfg := Load()
	cfg.GearRatios[4] = 0
	_, err := New(cfg)
	require.ErrorContains(t, err, "gear ratios must be positive")
}

func TestNewClient(t *testing.T) {
	cfg := Load()
	cfg.LogLevel = "off"
	client, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, client.Logger())
}
