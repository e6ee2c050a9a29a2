// Package sender reads .can files, groups frames into packets of six and
// drives the transmission controller packet by packet.
package sender

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iwtcode/canAdapter/internal/canbus"
	"github.com/iwtcode/canAdapter/internal/protocol"
	"github.com/iwtcode/canAdapter/internal/transmit"
)

// Service sends encoded motion packets over a bus with per-packet speed
// normalization and the acknowledgement handshake.
type Service struct {
	controller *transmit.Controller
	normalizer transmit.Normalizer
	log        *logrus.Logger
}

// New returns a sender over the given bus with the shipped average-ratio
// speed normalizer.
func New(bus canbus.Bus, ackTimeout time.Duration, log *logrus.Logger) *Service {
	return &Service{
		controller: transmit.NewController(bus, ackTimeout, log),
		normalizer: transmit.AverageRatio{},
		log:        log,
	}
}

// SetEvents installs a transmission lifecycle listener.
func (s *Service) SetEvents(ev transmit.Events) {
	s.controller.SetEvents(ev)
}

// SetNormalizer replaces the speed normalization policy.
func (s *Service) SetNormalizer(n transmit.Normalizer) {
	s.normalizer = n
}

// ReadPackets parses a .can stream into packets. The stream must hold
// complete packets: six frames per motion command, axis ids 1..6 ascending.
// A trailing partial group or an out-of-order frame fails validation and
// nothing is considered sendable.
func ReadPackets(r io.Reader) ([]protocol.Packet, error) {
	var frames []protocol.Frame
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		f, err := protocol.ParseHex(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		frames = append(frames, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read frames: %w", err)
	}
	if len(frames)%protocol.AxisCount != 0 {
		return nil, fmt.Errorf("frame count %d is not a multiple of %d: trailing partial packet", len(frames), protocol.AxisCount)
	}
	packets := make([]protocol.Packet, 0, len(frames)/protocol.AxisCount)
	for i := 0; i < len(frames); i += protocol.AxisCount {
		p := protocol.Packet(frames[i : i+protocol.AxisCount])
		for j, f := range p {
			if f.AxisID != uint8(j+1) {
				return nil, fmt.Errorf("packet %d: frame %d addresses axis %d, want %d",
					i/protocol.AxisCount+1, j+1, f.AxisID, j+1)
			}
		}
		packets = append(packets, p)
	}
	return packets, nil
}

// SendPackets normalizes and transmits each packet in order. The handshake
// barrier holds between packets: the next packet is not sent until the
// previous one resolved. Timeouts are logged by the controller and do not
// stop the run.
func (s *Service) SendPackets(packets []protocol.Packet) error {
	for i, p := range packets {
		s.normalizer.Normalize(p)
		if _, err := s.controller.SendPacket(p); err != nil {
			return fmt.Errorf("packet %d: %w", i+1, err)
		}
	}
	return nil
}

// SendFile reads, validates and transmits one .can file.
func (s *Service) SendFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	packets, err := ReadPackets(f)
	if err != nil {
		return fmt.Errorf("validate %s: %w", path, err)
	}
	s.log.WithFields(logrus.Fields{"file": path, "packets": len(packets)}).
		Info("sending motion packets")
	return s.SendPackets(packets)
}
