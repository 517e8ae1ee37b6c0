package ble

import (
	"context"

	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/go-ble/ble"
)

// gattClient is the part of ble.Client a peripheral needs
type gattClient interface {
	ExchangeMTU(rxMTU int) (txMTU int, err error)
	DiscoverProfile(force bool) (*ble.Profile, error)
	ReadCharacteristic(c *ble.Characteristic) ([]byte, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

// advertisement is the part of ble.Advertisement turned into models.Advertisement
type advertisement interface {
	Addr() ble.Addr
	LocalName() string
	Services() []ble.UUID
	RSSI() int
}

type coreMethods interface {
	Dial(context.Context, ble.Addr) (gattClient, error)
	Scan(context.Context, func(advertisement)) error
}

type realCoreMethods struct{}

func (bc *realCoreMethods) Dial(ctx context.Context, addr ble.Addr) (gattClient, error) {
	var client ble.Client
	err := util.CatchErrs(func() error {
		c, e := ble.Dial(ctx, addr)
		client = c
		return e
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (bc *realCoreMethods) Scan(ctx context.Context, handle func(advertisement)) error {
	return util.CatchErrs(func() error {
		return ble.Scan(ctx, true, func(a ble.Advertisement) { handle(a) }, nil)
	})
}
