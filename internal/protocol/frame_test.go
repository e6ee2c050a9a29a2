package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	require.Equal(t, byte(0x00), Checksum(nil))
	require.Equal(t, byte(0x06), Checksum([]byte{1, 2, 3}))
	// Sum overflows a byte and wraps.
	require.Equal(t, byte(0xFE), Checksum([]byte{0xFF, 0xFF}))
}

func TestMarshalAppendsChecksum(t *testing.T) {
	frames := []Frame{
		{AxisID: 1, Speed: 1000, Displacement: 13500},
		{AxisID: 3, Speed: 0, Displacement: -1},
		{AxisID: 6, Speed: 0xFFFF, Displacement: -8388608},
	}
	for _, f := range frames {
		b := f.Marshal()
		require.Equal(t, Checksum(b[:8]), b[8], "frame %+v", f)
	}
}

func TestInt24RoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 100, -100, 13500, 8388607, -8388608}
	for _, d := range values {
		b := Frame{AxisID: 1, Displacement: EncodeInt24(d)}.Marshal()
		got := DecodeInt24(uint32(b[5])<<16 | uint32(b[6])<<8 | uint32(b[7]))
		require.Equal(t, d, got)
	}
}

func TestInt24Wraparound(t *testing.T) {
	// 2^23 is out of signed range and must wrap to -2^23, not fail.
	require.Equal(t, EncodeInt24(-8388608), EncodeInt24(8388608))
	require.Equal(t, int32(-8388608), EncodeInt24(8388608))
	require.Equal(t, EncodeInt24(1), EncodeInt24(1+1<<24))
}

func TestGoldenFrame(t *testing.T) {
	// Feed rate 1000, axis 1, displacement 13500 (target 10.0 at gear
	// ratio 13.5).
	f := Frame{AxisID: 1, Speed: 1000, Displacement: 13500}
	require.Equal(t, "01F503E8020034BCD3", f.Hex())
}

func TestParseHexRoundTrip(t *testing.T) {
	orig := Frame{AxisID: 4, Speed: 1200, Displacement: -250}
	got, err := ParseHex(orig.Hex())
	require.NoError(t, err)
	require.Equal(t, orig.AxisID, got.AxisID)
	require.Equal(t, orig.Speed, got.Speed)
	require.Equal(t, EncodeInt24(orig.Displacement), got.Displacement)
}

func TestParseHexRejectsCorruption(t *testing.T) {
	_, err := ParseHex("01F503E8020034BCD4") // checksum off by one
	require.ErrorContains(t, err, "checksum mismatch")

	_, err = ParseHex("01F503E8")
	require.ErrorContains(t, err, "invalid frame length")

	_, err = ParseHex("not hex at all")
	require.Error(t, err)
}
