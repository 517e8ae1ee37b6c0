// Package server emulates a light peripheral: it exposes the light service over
// GATT, keeps the alarms written to it and plays them when they trigger.
package server

import (
	"context"
	"time"

	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/go-ble/ble"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// PollingInterval is how often pending alarms are checked
	PollingInterval  = time.Second
	readvertiseDelay = time.Second
)

type advertiser interface {
	AddService(*ble.Service) error
	AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error
}

type defaultAdvertiser struct{}

func (defaultAdvertiser) AddService(s *ble.Service) error { return ble.AddService(s) }

func (defaultAdvertiser) AdvertiseNameAndServices(ctx context.Context, name string, uuids ...ble.UUID) error {
	return ble.AdvertiseNameAndServices(ctx, name, uuids...)
}

// LightServer is an emulated light peripheral
type LightServer struct {
	name    string
	device  *Device
	player  *Player
	methods advertiser
}

// NewLightServer serves device over the default BLE device (see util.NewDevice)
func NewLightServer(name string, device *Device) *LightServer {
	return &LightServer{name: name, device: device, player: NewPlayer(device), methods: defaultAdvertiser{}}
}

func (server *LightServer) Device() *Device { return server.device }

// Service is the light service with its four characteristics
func (server *LightServer) Service() *ble.Service {
	d := server.device
	service := ble.NewService(ble.MustParse(util.LightServiceUUID))
	service.AddCharacteristic(newReadWriteChar(util.LightStateUUID, d.LightBytes, d.WriteLightState))
	service.AddCharacteristic(newWriteChar(util.TimestampUUID, d.WriteTimestamp))
	service.AddCharacteristic(newWriteChar(util.AlarmArrayUUID, func(data []byte) error {
		_, err := d.AddProgram(data)
		return err
	}))
	service.AddCharacteristic(newReadChar(util.LightProgramsUUID, d.LightPrograms))
	return service
}

// Run registers the service, advertises until ctx is done and plays alarms as they fall due
func (server *LightServer) Run(ctx context.Context) error {
	if err := server.methods.AddService(server.Service()); err != nil {
		return err
	}
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return server.device.Run(gctx, server.player, PollingInterval)
	})
	group.Go(func() error {
		server.advertise(gctx)
		return nil
	})
	return group.Wait()
}

// advertise restarts advertising whenever it stops, as a central connecting ends it
func (server *LightServer) advertise(ctx context.Context) {
	uuid := ble.MustParse(util.LightServiceUUID)
	for ctx.Err() == nil {
		log.Info().Str("name", server.name).Msg("Started advertising")
		err := server.methods.AdvertiseNameAndServices(ctx, server.name, uuid)
		if err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("Advertising stopped")
		}
		select {
		case <-ctx.Done():
		case <-time.After(readvertiseDelay):
		}
	}
}
