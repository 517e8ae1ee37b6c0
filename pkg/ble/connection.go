package ble

import (
	"context"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/go-ble/ble"
	"github.com/pkg/errors"
)

// Transport implements models.Transport on top of the local HCI adapter
type Transport struct {
	methods coreMethods
}

// NewTransport opens the default HCI device. dialTimeout bounds each connection attempt.
func NewTransport(dialTimeout time.Duration) (*Transport, error) {
	if _, err := util.NewDevice(dialTimeout); err != nil {
		return nil, errors.Wrap(err, "NewDevice issue")
	}
	return &Transport{methods: &realCoreMethods{}}, nil
}

func (t *Transport) Scan(ctx context.Context, handle func(models.Advertisement)) error {
	err := t.methods.Scan(ctx, func(a advertisement) {
		handle(toAdvertisement(a))
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (t *Transport) Peripheral(adv models.Advertisement) (models.Peripheral, error) {
	if adv.Address == "" {
		return nil, errors.New("advertisement has no address")
	}
	return newPeripheral(t.methods, adv.Address), nil
}

func toAdvertisement(a advertisement) models.Advertisement {
	services := []string{}
	for _, u := range a.Services() {
		services = append(services, UuidToStr(u))
	}
	return models.NewAdvertisement(a.Addr().String(), a.LocalName(), a.RSSI(), services...)
}

// UuidToStr returns the canonical string form of a go-ble UUID
func UuidToStr(u ble.UUID) string {
	return util.NormalizeUUID(u.String())
}
