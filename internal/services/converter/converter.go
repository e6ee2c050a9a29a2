// Package converter turns .gcode files into .can files: one hex-encoded
// motion frame per line, six lines per motion command.
package converter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iwtcode/canAdapter/internal/gcode"
	"github.com/iwtcode/canAdapter/internal/protocol"
)

// Service converts G-code command streams using a fixed axis configuration.
type Service struct {
	axes [protocol.AxisCount]protocol.AxisConfig
	log  *logrus.Logger
}

// New returns a converter for the given axis configuration.
func New(axes [protocol.AxisCount]protocol.AxisConfig, log *logrus.Logger) *Service {
	return &Service{axes: axes, log: log}
}

// ConvertStream encodes every recognized motion command from r onto w and
// returns the number of commands converted. Position tracking starts from
// the origin for each stream.
func (s *Service) ConvertStream(r io.Reader, w io.Writer) (int, error) {
	tracker, err := protocol.NewTracker(s.axes)
	if err != nil {
		return 0, err
	}
	tracker.Reset()
	encoder := protocol.NewEncoder(tracker)
	parser := gcode.NewParser()

	out := bufio.NewWriter(w)
	commands := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cmd, ok := parser.ParseLine(scanner.Text())
		if !ok {
			continue
		}
		for _, f := range encoder.EncodePacket(cmd.FeedRate, cmd.Targets) {
			if _, err := out.WriteString(f.Hex() + "\n"); err != nil {
				return commands, fmt.Errorf("write frame: %w", err)
			}
		}
		commands++
	}
	if err := scanner.Err(); err != nil {
		return commands, fmt.Errorf("read command stream: %w", err)
	}
	return commands, out.Flush()
}

// ConvertFile converts one .gcode file into a .can file next to it, or into
// outputDir when non-empty. It returns the path of the written file.
func (s *Service) ConvertFile(path, outputDir string) (string, error) {
	outPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".can"
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory %s: %w", outputDir, err)
		}
		outPath = filepath.Join(outputDir, filepath.Base(outPath))
	}

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", outPath, err)
	}
	defer out.Close()

	commands, err := s.ConvertStream(in, out)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", path, err)
	}
	s.log.WithFields(logrus.Fields{
		"input":    path,
		"output":   outPath,
		"commands": commands,
	}).Info("converted gcode file")
	return outPath, nil
}

// ConvertDir converts every .gcode file in dir. A failure in one file is
// logged and does not abort the remaining files; the first error is
// returned after all files were attempted.
func (s *Service) ConvertDir(dir, outputDir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", dir, err)
	}
	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".gcode") {
			continue
		}
		if _, err := s.ConvertFile(filepath.Join(dir, entry.Name()), outputDir); err != nil {
			s.log.WithError(err).WithField("file", entry.Name()).Error("conversion failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
