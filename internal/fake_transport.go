package internal

import (
	"context"
	"sync"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/pkg/errors"
)

// FakeTransport replays a fixed list of advertisements and hands out FakePeripherals
type FakeTransport struct {
	mutex       sync.Mutex
	ads         []models.Advertisement
	scanErr     error
	scanCalls   int
	peripherals map[string]*FakePeripheral
}

func NewFakeTransport(ads ...models.Advertisement) *FakeTransport {
	return &FakeTransport{ads: ads, peripherals: map[string]*FakePeripheral{}}
}

// SetScanError makes the next scans fail with err after replaying the advertisements
func (t *FakeTransport) SetScanError(err error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.scanErr = err
}

func (t *FakeTransport) SetAdvertisements(ads ...models.Advertisement) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.ads = ads
}

func (t *FakeTransport) ScanCalls() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.scanCalls
}

// Scan replays the advertisements, then fails or blocks until ctx is done
func (t *FakeTransport) Scan(ctx context.Context, handle func(models.Advertisement)) error {
	t.mutex.Lock()
	t.scanCalls++
	ads := append([]models.Advertisement{}, t.ads...)
	scanErr := t.scanErr
	t.mutex.Unlock()
	for _, adv := range ads {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		handle(adv)
	}
	if scanErr != nil {
		return scanErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (t *FakeTransport) Peripheral(adv models.Advertisement) (models.Peripheral, error) {
	return t.PeripheralFor(adv.Address), nil
}

// PeripheralFor returns the fake behind addr, creating it on first use
func (t *FakeTransport) PeripheralFor(addr string) *FakePeripheral {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	key := util.NormalizeAddr(addr)
	if p, ok := t.peripherals[key]; ok {
		return p
	}
	p := NewFakePeripheral(addr)
	t.peripherals[key] = p
	return p
}

type FakeWrite struct {
	UUID string
	Data []byte
}

// FakePeripheral records writes and serves a configurable light-state read
type FakePeripheral struct {
	mutex           sync.Mutex
	addr            string
	lightState      []byte
	connected       bool
	connectErr      error
	readErr         error
	writeErr        error
	missing         map[string]bool
	writes          []FakeWrite
	connectCalls    int
	disconnectCalls int
	blockConnect    chan struct{}
	states          chan models.ConnectionState
}

func NewFakePeripheral(addr string) *FakePeripheral {
	return &FakePeripheral{
		addr:       addr,
		lightState: []byte{128, 128},
		missing:    map[string]bool{},
		states:     make(chan models.ConnectionState, 16),
	}
}

func (p *FakePeripheral) SetLightState(data []byte) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.lightState = data
}

func (p *FakePeripheral) SetConnectError(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.connectErr = err
}

func (p *FakePeripheral) SetReadError(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.readErr = err
}

func (p *FakePeripheral) SetWriteError(err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.writeErr = err
}

// RemoveCharacteristic makes lookups of uuid fail
func (p *FakePeripheral) RemoveCharacteristic(uuid string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.missing[util.NormalizeUUID(uuid)] = true
}

// HoldConnect makes Connect block until the returned function is called
func (p *FakePeripheral) HoldConnect() func() {
	ch := make(chan struct{})
	p.mutex.Lock()
	p.blockConnect = ch
	p.mutex.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (p *FakePeripheral) Writes() []FakeWrite {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]FakeWrite{}, p.writes...)
}

// WritesTo returns the payloads written to one characteristic, in order
func (p *FakePeripheral) WritesTo(uuid string) [][]byte {
	ret := [][]byte{}
	for _, w := range p.Writes() {
		if w.UUID == util.NormalizeUUID(uuid) {
			ret = append(ret, w.Data)
		}
	}
	return ret
}

func (p *FakePeripheral) ResetWrites() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.writes = nil
}

func (p *FakePeripheral) IsConnected() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.connected
}

func (p *FakePeripheral) ConnectCalls() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.connectCalls
}

func (p *FakePeripheral) DisconnectCalls() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.disconnectCalls
}

// Drop simulates the link going away with the given status
func (p *FakePeripheral) Drop(status models.DisconnectStatus) {
	p.mutex.Lock()
	p.connected = false
	p.mutex.Unlock()
	p.states <- models.Disconnected{Status: models.StatusOf(status)}
}

func (p *FakePeripheral) Address() string                       { return p.addr }
func (p *FakePeripheral) States() <-chan models.ConnectionState { return p.states }

func (p *FakePeripheral) Connect(ctx context.Context) error {
	p.mutex.Lock()
	p.connectCalls++
	hold := p.blockConnect
	err := p.connectErr
	p.mutex.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	p.mutex.Lock()
	p.connected = true
	p.mutex.Unlock()
	return nil
}

func (p *FakePeripheral) Disconnect(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.disconnectCalls++
	p.connected = false
	return nil
}

func (p *FakePeripheral) Characteristic(service, uuid string) (models.Characteristic, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.missing[util.NormalizeUUID(uuid)] {
		return models.Characteristic{}, errors.Errorf("no characteristic %s", uuid)
	}
	return models.Characteristic{Service: util.NormalizeUUID(service), UUID: util.NormalizeUUID(uuid)}, nil
}

func (p *FakePeripheral) Read(ctx context.Context, c models.Characteristic) ([]byte, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.readErr != nil {
		return nil, p.readErr
	}
	if !p.connected {
		return nil, errors.New("not connected")
	}
	if c.UUID == util.NormalizeUUID(util.LightStateUUID) {
		return append([]byte{}, p.lightState...), nil
	}
	return nil, nil
}

func (p *FakePeripheral) Write(ctx context.Context, c models.Characteristic, data []byte) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.writeErr != nil {
		return p.writeErr
	}
	if !p.connected {
		return errors.New("not connected")
	}
	p.writes = append(p.writes, FakeWrite{c.UUID, append([]byte{}, data...)})
	return nil
}
