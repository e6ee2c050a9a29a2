package main

import (
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	canadapter "github.com/iwtcode/canAdapter"
)

func main() {
	var (
		file    = flag.String("f", "", "single .gcode file to convert")
		dir     = flag.String("d", "", "directory of .gcode files to convert")
		output  = flag.String("o", "", "output directory for converted .can files")
		send    = flag.String("s", "", ".can file to send over the CAN bus")
		iface   = flag.String("i", "", "bus interface type: slcan, socketcan or virtual (overrides CAN_INTERFACE)")
		channel = flag.String("c", "", "bus channel, device path or interface name (overrides CAN_CHANNEL)")
		bitrate = flag.Int("b", 0, "CAN bitrate in bits per second (overrides CAN_BITRATE)")
		timeout = flag.Int("t", 0, "acknowledgement timeout in milliseconds (overrides CAN_ACK_TIMEOUT_MS)")
		virtual = flag.Bool("virtual", false, "use an in-memory bus instead of a physical one")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file, using environment variables: %v", err)
	}

	cfg := canadapter.Load()
	applyOverrides(cfg, *iface, *channel, *bitrate, *timeout)
	if *virtual {
		cfg.Interface = "virtual"
	}

	client, err := canadapter.New(cfg)
	if err != nil {
		log.Fatalf("failed to create client: %v", err)
	}
	logger := client.Logger()

	switch {
	case *file != "":
		out, err := client.ConvertFile(*file, *output)
		if err != nil {
			logger.Fatalf("conversion failed: %v", err)
		}
		logger.Infof("successfully converted %s to %s", *file, out)
	case *dir != "":
		if err := client.ConvertDir(*dir, *output); err != nil {
			logger.Fatalf("conversion finished with errors: %v", err)
		}
		logger.Info("conversion completed")
	case *send != "":
		if err := client.SendFile(*send); err != nil {
			logger.Fatalf("send failed: %v", err)
		}
	default:
		flag.Usage()
	}
}

// applyOverrides layers explicit command-line values over the
// environment-loaded configuration. Zero values mean the flag was not given
// and the configured value stays.
func applyOverrides(cfg *canadapter.Config, iface, channel string, bitrate, timeoutMs int) {
	if iface != "" {
		cfg.Interface = iface
	}
	if channel != "" {
		cfg.Channel = channel
	}
	if bitrate > 0 {
		cfg.Bitrate = bitrate
	}
	if timeoutMs > 0 {
		cfg.AckTimeout = time.Duration(timeoutMs) * time.Millisecond
	}
}
