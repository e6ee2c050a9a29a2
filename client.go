// Package canadapter converts G-code motion programs into the motor
// controllers' CAN frame protocol and transmits them with an
// acknowledgement handshake. It is the library entry point; cmd/app wraps
// it into a CLI.
package canadapter

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/iwtcode/canAdapter/internal/canbus"
	"github.com/iwtcode/canAdapter/internal/services/converter"
	"github.com/iwtcode/canAdapter/internal/services/sender"
	"github.com/iwtcode/canAdapter/internal/services/telemetry"
)

// Client is the main entry point for interacting with the library.
type Client struct {
	config    *Config
	logger    *logrus.Logger
	converter *converter.Service
}

// New creates a client from the given configuration.
func New(cfg *Config) (*Client, error) {
	logger := logrus.New()

	if cfg.LogLevel == "off" || cfg.LogLevel == "none" {
		logger.SetOutput(io.Discard)
	} else {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
		logger.SetOutput(os.Stdout)
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		ForceColors:     true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	for _, r := range cfg.GearRatios {
		if r <= 0 {
			return nil, fmt.Errorf("gear ratios must be positive, got %v", cfg.GearRatios)
		}
	}

	return &Client{
		config:    cfg,
		logger:    logger,
		converter: converter.New(cfg.Axes(), logger),
	}, nil
}

// Logger returns the logger in use.
func (c *Client) Logger() *logrus.Logger {
	return c.logger
}

// ConvertFile converts one .gcode file into a .can file and returns the
// output path.
func (c *Client) ConvertFile(path, outputDir string) (string, error) {
	return c.converter.ConvertFile(path, outputDir)
}

// ConvertDir converts every .gcode file in dir. Per-file failures are
// logged and do not abort the remaining files.
func (c *Client) ConvertDir(dir, outputDir string) error {
	return c.converter.ConvertDir(dir, outputDir)
}

// SendFile opens the configured bus and transmits a .can file packet by
// packet. When a Kafka broker is configured, lifecycle events are published
// alongside.
func (c *Client) SendFile(path string) error {
	bus, err := canbus.Open(c.config.Interface, c.config.Channel, c.config.Bitrate)
	if err != nil {
		return fmt.Errorf("open %s bus on %s: %w", c.config.Interface, c.config.Channel, err)
	}
	defer bus.Close()

	svc := sender.New(bus, c.config.AckTimeout, c.logger)
	if c.config.KafkaBroker != "" {
		producer := telemetry.NewProducer(c.config.KafkaBroker, c.config.KafkaTopic, c.logger)
		defer producer.Close()
		svc.SetEvents(producer)
	}
	return svc.SendFile(path)
}
