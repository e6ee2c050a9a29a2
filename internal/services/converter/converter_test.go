package converter

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iwtcode/canAdapter/internal/protocol"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testAxes() [protocol.AxisCount]protocol.AxisConfig {
	ratios := [protocol.AxisCount]float64{13.5, 150, 150, 48, 67.82, 67.82}
	var axes [protocol.AxisCount]protocol.AxisConfig
	for i := range axes {
		axes[i] = protocol.AxisConfig{AxisID: uint8(i + 1), GearRatio: ratios[i]}
	}
	return axes
}

const sampleProgram = `; six axis move
G21
F1000
G90 10.0 0 0 0 0 0
G90 10.0 0 0 0 0 0
`

func TestConvertStream(t *testing.T) {
	svc := New(testAxes(), testLogger())

	var out strings.Builder
	commands, err := svc.ConvertStream(strings.NewReader(sampleProgram), &out)
	require.NoError(t, err)
	require.Equal(t, 2, commands)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2*protocol.AxisCount)

	// Axis 1: feed 1000, displacement 13500.
	require.Equal(t, "01F503E8020034BCD3", lines[0])
	// Axis 2: zero displacement at the same feed.
	require.Equal(t, "02F503E802000000E4", lines[1])
	// Origins are fixed, so the identical command encodes identically.
	require.Equal(t, lines[0], lines[protocol.AxisCount])

	for i, line := range lines {
		f, err := protocol.ParseHex(line)
		require.NoError(t, err, "line %d", i+1)
		require.Equal(t, uint8(i%protocol.AxisCount+1), f.AxisID)
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "part.gcode")
	require.NoError(t, os.WriteFile(in, []byte(sampleProgram), 0o644))

	svc := New(testAxes(), testLogger())
	out, err := svc.ConvertFile(in, "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "part.can"), out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "01F503E8020034BCD3\n"))
}

func TestConvertFileToOutputDir(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "part.gcode")
	require.NoError(t, os.WriteFile(in, []byte(sampleProgram), 0o644))

	outDir := filepath.Join(dir, "converted")
	svc := New(testAxes(), testLogger())
	out, err := svc.ConvertFile(in, outDir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(outDir, "part.can"), out)
	_, err = os.Stat(out)
	require.NoError(t, err)
}

func TestConvertDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.gcode", "b.gcode", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(sampleProgram), 0o644))
	}

	svc := New(testAxes(), testLogger())
	require.NoError(t, svc.ConvertDir(dir, ""))

	for _, name := range []string{"a.can", "b.can"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
	}
	_, err := os.Stat(filepath.Join(dir, "notes.can"))
	require.True(t, os.IsNotExist(err))
}

func TestConvertDirMissing(t *testing.T) {
	svc := New(testAxes(), testLogger())
	err := svc.ConvertDir(filepath.Join(t.TempDir(), "nope"), "")
	require.ErrorContains(t, err, "read directory")
}

func TestConvertFileMissing(t *testing.T) {
	svc := New(testAxes(), testLogger())
	_, err := svc.ConvertFile(filepath.Join(t.TempDir(), "nope.gcode"), "")
	require.ErrorContains(t, err, "open")
}
