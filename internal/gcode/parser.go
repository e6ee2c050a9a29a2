// Package gcode scans G-code command streams for the subset this adapter
// understands: F feed-rate words and absolute-positioning (G90) motion lines
// carrying six axis targets.
package gcode

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/iwtcode/canAdapter/internal/protocol"
)

// MotionCommand is one parsed motion line: a feed rate and six axis targets.
type MotionCommand struct {
	FeedRate uint16
	Targets  [protocol.AxisCount]float64
}

var (
	feedRe = regexp.MustCompile(`F(\d+)`)
	numRe  = regexp.MustCompile(`[-+]?\d*\.\d+|[-+]?\d+`)
)

// markerAbsolute marks motion lines using absolute positioning.
const markerAbsolute = "G90"

// Parser is a stateful line scanner. The feed rate carries forward across
// lines until a new F word changes it, so motion lines without their own F
// word reuse the last one seen.
type Parser struct {
	feedRate uint16
}

// NewParser returns a parser with feed rate zero.
func NewParser() *Parser {
	return &Parser{}
}

// FeedRate reports the feed rate currently carried forward.
func (p *Parser) FeedRate() uint16 {
	return p.feedRate
}

// ParseLine consumes one input line. It returns a MotionCommand and true for
// a recognized motion line; all other lines (comments, other G words,
// malformed feed tokens, motion lines with fewer than seven numbers) update
// carried state where applicable and return false. The parser is lenient by
// design and never returns an error.
func (p *Parser) ParseLine(line string) (MotionCommand, bool) {
	if m := feedRe.FindStringSubmatch(line); m != nil {
		if v, err := strconv.ParseUint(m[1], 10, 16); err == nil {
			p.feedRate = uint16(v)
		}
	}

	if !strings.HasPrefix(line, markerAbsolute) {
		return MotionCommand{}, false
	}

	// First number is the G-word address itself, the next six are the axis
	// targets. Shorter lines are ignored, not rejected.
	nums := numRe.FindAllString(line, -1)
	if len(nums) < 1+protocol.AxisCount {
		return MotionCommand{}, false
	}

	cmd := MotionCommand{FeedRate: p.feedRate}
	for i := 0; i < protocol.AxisCount; i++ {
		v, err := strconv.ParseFloat(nums[i+1], 64)
		if err != nil {
			return MotionCommand{}, false
		}
		cmd.Targets[i] = v
	}
	return cmd, true
}
