package bluez

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const resolveTimeout = 15 * time.Second

type peripheral struct {
	t      *Transport
	addr   string
	path   dbus.ObjectPath
	states chan models.ConnectionState

	mutex     sync.Mutex
	chars     map[string]charInfo
	voluntary bool
	stop      chan struct{}
}

func newPeripheral(t *Transport, addr string) *peripheral {
	return &peripheral{
		t:      t,
		addr:   addr,
		path:   deviceObjectPath(t.adapter, addr),
		states: make(chan models.ConnectionState, 8),
	}
}

func (p *peripheral) Address() string                       { return p.addr }
func (p *peripheral) States() <-chan models.ConnectionState { return p.states }

func (p *peripheral) emit(st models.ConnectionState) {
	select {
	case p.states <- st:
	default:
		log.Warn().Str("addr", p.addr).Stringer("state", st).Msg("Dropping peripheral state, nobody listening")
	}
}

// Connect asks BlueZ to connect, waits for service discovery and indexes the characteristics
func (p *peripheral) Connect(ctx context.Context) error {
	p.emit(models.Connecting{})
	device := p.t.conn.Object(busName, p.path)
	if call := device.CallWithContext(ctx, deviceIface+".Connect", 0); call.Err != nil {
		return errors.Wrapf(call.Err, "BlueZ Connect failed for %s", p.addr)
	}
	if err := p.waitServicesResolved(ctx); err != nil {
		p.cancelConnection()
		return err
	}
	objects, err := p.t.managedObjects(ctx)
	if err != nil {
		p.cancelConnection()
		return err
	}
	chars := characteristicsFromObjects(p.path, objects)
	if err := p.watch(); err != nil {
		p.cancelConnection()
		return err
	}
	p.mutex.Lock()
	p.chars = chars
	p.voluntary = false
	p.mutex.Unlock()
	log.Debug().Str("addr", p.addr).Int("characteristics", len(chars)).Msg("Services resolved")
	p.emit(models.Connected{})
	return nil
}

func (p *peripheral) cancelConnection() {
	p.t.conn.Object(busName, p.path).Call(deviceIface+".Disconnect", 0)
}

func (p *peripheral) waitServicesResolved(ctx context.Context) error {
	deadline := time.After(resolveTimeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return errors.Errorf("service discovery timed out after %s", resolveTimeout)
		case <-ticker.C:
			resolved, err := getDBusProperty[bool](p.t.conn, p.path, deviceIface, "ServicesResolved")
			if err == nil && resolved {
				return nil
			}
		}
	}
}

// watch reports a Disconnected state when BlueZ drops the link without being asked to
func (p *peripheral) watch() error {
	matchRule := fmt.Sprintf(
		"type='signal',sender='%s',interface='%s',member='PropertiesChanged',path='%s'",
		busName, propsIface, p.path,
	)
	if call := p.t.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule); call.Err != nil {
		return errors.Wrap(call.Err, "failed to add signal match")
	}
	sigCh := make(chan *dbus.Signal, 16)
	p.t.conn.Signal(sigCh)
	stop := make(chan struct{})
	p.mutex.Lock()
	p.stop = stop
	p.mutex.Unlock()

	go func() {
		defer p.t.conn.RemoveSignal(sigCh)
		defer p.t.conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, matchRule)
		for {
			select {
			case <-stop:
				return
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if sig.Path != p.path || sig.Name != propsIface+".PropertiesChanged" || len(sig.Body) < 2 {
					continue
				}
				changed, ok := sig.Body[1].(map[string]dbus.Variant)
				if !ok {
					continue
				}
				if connected, ok := variantAs[bool](changed, "Connected"); ok && !connected {
					p.mutex.Lock()
					voluntary := p.voluntary
					p.mutex.Unlock()
					if voluntary {
						p.emit(models.Disconnected{})
					} else {
						p.emit(models.Disconnected{Status: models.StatusOf(models.StatusLinkLost)})
					}
					return
				}
			}
		}
	}()
	return nil
}

func (p *peripheral) Disconnect(ctx context.Context) error {
	p.mutex.Lock()
	p.voluntary = true
	stop := p.stop
	p.stop = nil
	p.chars = nil
	p.mutex.Unlock()
	if stop != nil {
		close(stop)
	}
	call := p.t.conn.Object(busName, p.path).CallWithContext(ctx, deviceIface+".Disconnect", 0)
	return errors.Wrap(call.Err, "BlueZ Disconnect failed")
}

func (p *peripheral) Characteristic(service, uuid string) (models.Characteristic, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	info, ok := p.chars[util.NormalizeUUID(uuid)]
	if !ok || (info.service != "" && !util.UuidEqualStr(info.service, service)) {
		return models.Characteristic{}, errors.Errorf("characteristic %s not found in service %s", uuid, service)
	}
	return models.Characteristic{Service: util.NormalizeUUID(service), UUID: util.NormalizeUUID(uuid)}, nil
}

func (p *peripheral) charPath(c models.Characteristic) (dbus.ObjectPath, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	info, ok := p.chars[c.UUID]
	if !ok {
		return "", errors.Errorf("characteristic %s not resolved", c.UUID)
	}
	return info.path, nil
}

func (p *peripheral) Read(ctx context.Context, c models.Characteristic) ([]byte, error) {
	path, err := p.charPath(c)
	if err != nil {
		return nil, err
	}
	call := p.t.conn.Object(busName, path).CallWithContext(ctx, gattCharIface+".ReadValue", 0, map[string]dbus.Variant{})
	if call.Err != nil {
		return nil, errors.Wrap(call.Err, "ReadValue issue")
	}
	var data []byte
	if err := call.Store(&data); err != nil {
		return nil, errors.Wrap(err, "failed to decode read result")
	}
	return data, nil
}

func (p *peripheral) Write(ctx context.Context, c models.Characteristic, data []byte) error {
	if len(data) == 0 {
		return errors.New("refusing to write empty value")
	}
	path, err := p.charPath(c)
	if err != nil {
		return err
	}
	call := p.t.conn.Object(busName, path).CallWithContext(ctx, gattCharIface+".WriteValue", 0, data, map[string]dbus.Variant{
		"type": dbus.MakeVariant("request"),
	})
	return errors.Wrap(call.Err, "WriteValue issue")
}
