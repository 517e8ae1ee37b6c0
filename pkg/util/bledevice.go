package util

import (
	"time"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/pkg/errors"
)

// NewDevice opens the local HCI adapter and makes it the default go-ble device
func NewDevice(dialTimeout time.Duration) (ble.Device, error) {
	opts := []ble.Option{}
	if dialTimeout > 0 {
		opts = append(opts, ble.OptDialerTimeout(dialTimeout))
	}
	device, err := linux.NewDevice(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "linux.NewDevice issue")
	}
	ble.SetDefaultDevice(device)
	return device, nil
}
