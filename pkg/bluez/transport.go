// Package bluez implements the light transport over the BlueZ D-Bus API.
package bluez

import (
	"context"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const pollInterval = 500 * time.Millisecond

// Transport talks to one BlueZ adapter on the system bus
type Transport struct {
	conn    *dbus.Conn
	adapter string
}

func NewTransport(adapter string) (*Transport, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "connect to system bus")
	}
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, errors.Wrap(err, "list bus names")
	}
	for _, n := range names {
		if n == busName {
			return &Transport{conn: conn, adapter: adapter}, nil
		}
	}
	return nil, errors.New("org.bluez not found on system bus, is bluetooth.service running?")
}

func (t *Transport) managedObjects(ctx context.Context) (managedObjects, error) {
	var objects managedObjects
	call := t.conn.Object(busName, "/").CallWithContext(ctx, objectManagerIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, errors.Wrap(call.Err, "GetManagedObjects failed")
	}
	if err := call.Store(&objects); err != nil {
		return nil, errors.Wrap(err, "failed to parse managed objects")
	}
	return objects, nil
}

// Scan runs LE discovery and reports every device BlueZ sees until ctx is done
func (t *Transport) Scan(ctx context.Context, handle func(models.Advertisement)) error {
	adapter := t.conn.Object(busName, adapterPath(t.adapter))
	filter := map[string]dbus.Variant{
		"Transport":     dbus.MakeVariant("le"),
		"DuplicateData": dbus.MakeVariant(true),
	}
	if call := adapter.CallWithContext(ctx, adapterIface+".SetDiscoveryFilter", 0, filter); call.Err != nil {
		return errors.Wrap(call.Err, "failed to set discovery filter")
	}
	if call := adapter.CallWithContext(ctx, adapterIface+".StartDiscovery", 0); call.Err != nil {
		return errors.Wrap(call.Err, "failed to start discovery")
	}
	defer func() {
		if call := adapter.Call(adapterIface+".StopDiscovery", 0); call.Err != nil {
			log.Debug().Err(call.Err).Msg("StopDiscovery failed")
		}
	}()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		objects, err := t.managedObjects(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		for _, adv := range devicesFromObjects(t.adapter, objects) {
			handle(adv)
		}
	}
}

func (t *Transport) Peripheral(adv models.Advertisement) (models.Peripheral, error) {
	if adv.Address == "" {
		return nil, errors.New("advertisement has no address")
	}
	return newPeripheral(t, adv.Address), nil
}

// getDBusProperty reads a property from a BlueZ D-Bus object
func getDBusProperty[T any](conn *dbus.Conn, path dbus.ObjectPath, iface, property string) (T, error) {
	var zero T
	variant, err := conn.Object(busName, path).GetProperty(iface + "." + property)
	if err != nil {
		return zero, err
	}
	val, ok := variant.Value().(T)
	if !ok {
		return zero, errors.Errorf("property %s.%s has unexpected type %T", iface, property, variant.Value())
	}
	return val, nil
}
