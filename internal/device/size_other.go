//go:build !linux

package device

import (
	"errors"
	"os"
)

var errUnsupportedProbe = errors.New("block device size probe unsupported on this platform")

func probeBlockDeviceSize(f *os.File) (int64, error) {
	return 0, errUnsupportedProbe
}
