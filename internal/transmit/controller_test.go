package transmit

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iwtcode/canAdapter/internal/canbus"
	"github.com/iwtcode/canAdapter/internal/protocol"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testPacket(speed uint16) protocol.Packet {
	p := make(protocol.Packet, protocol.AxisCount)
	for i := range p {
		p[i] = protocol.Frame{AxisID: uint8(i + 1), Speed: speed, Displacement: int32(100 * (i + 1))}
	}
	return p
}

func ack(id uint32, status byte) canbus.Frame {
	return canbus.NewFrame(id, []byte{0xF5, status})
}

func TestSendPacketSatisfied(t *testing.T) {
	bus := canbus.NewLoopback()
	defer bus.Close()
	c := NewController(bus, time.Second, testLogger())

	bus.Inject(ack(1, 2))
	bus.Inject(ack(2, 2))

	res, err := c.SendPacket(testPacket(1000))
	require.NoError(t, err)
	require.True(t, res.Satisfied())
	require.Less(t, res.Elapsed, time.Second)

	sent := bus.Sent()
	require.Len(t, sent, protocol.AxisCount)
	for i, f := range sent {
		require.Equal(t, uint32(i+1), f.ID)
		require.Equal(t, uint8(8), f.Len)
		require.Equal(t, byte(protocol.Opcode), f.Data[0])
	}
}

func TestSendPacketRequiresStatusDone(t *testing.T) {
	bus := canbus.NewLoopback()
	defer bus.Close()
	c := NewController(bus, time.Second, testLogger())

	// Axis 1 first reports it is still moving; only the later done status
	// may satisfy the handshake.
	bus.Inject(ack(1, 1))
	bus.Inject(ack(2, 2))
	bus.Inject(ack(1, 2))

	res, err := c.SendPacket(testPacket(500))
	require.NoError(t, err)
	require.Equal(t, StateSatisfied, res.State)
}

func TestSendPacketTimesOutWithoutBothResponders(t *testing.T) {
	bus := canbus.NewLoopback()
	defer bus.Close()
	timeout := 80 * time.Millisecond
	c := NewController(bus, timeout, testLogger())

	// Only axis 1 answers; axis 2 stays silent.
	bus.Inject(ack(1, 2))

	start := time.Now()
	res, err := c.SendPacket(testPacket(500))
	require.NoError(t, err)
	require.Equal(t, StateTimedOut, res.State)
	require.GreaterOrEqual(t, time.Since(start), timeout)
}

func TestUnexpectedFramesAreIgnored(t *testing.T) {
	bus := canbus.NewLoopback()
	defer bus.Close()
	c := NewController(bus, 80*time.Millisecond, testLogger())

	bus.Inject(ack(5, 2))                        // wrong arbitration id
	bus.Inject(ack(1, 7))                        // unrecognized status
	bus.Inject(canbus.NewFrame(2, []byte{0x01})) // payload too short
	bus.Inject(ack(1, 2))

	res, err := c.SendPacket(testPacket(500))
	require.NoError(t, err)
	require.Equal(t, StateTimedOut, res.State)
}

func TestPacketBarrier(t *testing.T) {
	bus := canbus.NewLoopback()
	defer bus.Close()
	timeout := 60 * time.Millisecond
	c := NewController(bus, timeout, testLogger())

	start := time.Now()
	for i := 0; i < 2; i++ {
		res, err := c.SendPacket(testPacket(uint16(1000 + i)))
		require.NoError(t, err)
		require.Equal(t, StateTimedOut, res.State)
	}

	// No frame of packet two may be sent before packet one resolved, so two
	// unacknowledged packets take at least two full timeout windows.
	require.GreaterOrEqual(t, time.Since(start), 2*timeout)

	sent := bus.Sent()
	require.Len(t, sent, 2*protocol.AxisCount)
	for i, f := range sent {
		require.Equal(t, uint32(i%protocol.AxisCount+1), f.ID)
	}
	// Speed bytes distinguish the packets: all of packet one precedes
	// packet two.
	for i := 0; i < protocol.AxisCount; i++ {
		require.Equal(t, byte(0xE8), sent[i].Data[2])
		require.Equal(t, byte(0xE9), sent[protocol.AxisCount+i].Data[2])
	}
}
