package canadapter

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/iwtcode/canAdapter/internal/protocol"
)

// Config holds the adapter configuration: per-axis mechanics, bus interface
// parameters, handshake timeout and optional telemetry.
type Config struct {
	// Per-axis gearbox ratios, axis 1 first.
	GearRatios [protocol.AxisCount]float64
	// Per-axis direction inversion flags.
	InvertDirection [protocol.AxisCount]bool
	// ApplyInversion makes the encoder honor InvertDirection by negating
	// displacements. Off by default: the deployed controllers were all
	// commissioned against the identity behavior, see
	// protocol.DirectionMode.
	ApplyInversion bool

	// Interface is the bus driver type: "slcan", "socketcan" or "virtual".
	Interface string
	// Channel is the device path (slcan) or interface name (socketcan).
	Channel string
	// Bitrate of the CAN bus in bits per second.
	Bitrate int
	// AckTimeout bounds the per-packet acknowledgement wait.
	AckTimeout time.Duration

	// KafkaBroker enables telemetry publishing when non-empty.
	KafkaBroker string
	KafkaTopic  string

	LogLevel string
}

// defaultGearRatios matches the six-axis arm this adapter was built for.
var defaultGearRatios = [protocol.AxisCount]float64{13.5, 150, 150, 48, 67.82, 67.82}

// defaultInvert marks the axes whose positive direction is mechanically
// reversed on that arm.
var defaultInvert = [protocol.AxisCount]bool{true, true, false, false, false, false}

// Load builds a Config from environment variables, falling back to the
// built-in defaults. Callers wanting .env support run godotenv.Load first.
func Load() *Config {
	cfg := &Config{
		GearRatios:      defaultGearRatios,
		InvertDirection: defaultInvert,
		ApplyInversion:  getEnvAsBool("CAN_APPLY_INVERSION", false),
		Interface:       getEnv("CAN_INTERFACE", "slcan"),
		Channel:         getEnv("CAN_CHANNEL", "/dev/ttyACM0"),
		Bitrate:         getEnvAsInt("CAN_BITRATE", 500000),
		AckTimeout:      time.Duration(getEnvAsInt("CAN_ACK_TIMEOUT_MS", 3000)) * time.Millisecond,
		KafkaBroker:     getEnv("KAFKA_BROKER", ""),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "can_adapter_events"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
	for i := 0; i < protocol.AxisCount; i++ {
		cfg.GearRatios[i] = getEnvAsFloat(fmt.Sprintf("AXIS%d_GEAR_RATIO", i+1), cfg.GearRatios[i])
		cfg.InvertDirection[i] = getEnvAsBool(fmt.Sprintf("AXIS%d_INVERT", i+1), cfg.InvertDirection[i])
	}
	return cfg
}

// Axes translates the configuration into the encoder's axis table.
func (c *Config) Axes() [protocol.AxisCount]protocol.AxisConfig {
	var axes [protocol.AxisCount]protocol.AxisConfig
	for i := 0; i < protocol.AxisCount; i++ {
		mode := protocol.DirectionIdentity
		if c.ApplyInversion && c.InvertDirection[i] {
			mode = protocol.DirectionNegate
		}
		axes[i] = protocol.AxisConfig{
			AxisID:    uint8(i + 1),
			GearRatio: c.GearRatios[i],
			Direction: mode,
		}
	}
	return axes
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	val, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return val
}
