//go:build !linux

package canbus

import "errors"

func init() {
	Register("socketcan", func(channel string, bitrate int) (Bus, error) {
		return nil, errors.New("canbus: socketcan is only supported on linux")
	})
}
