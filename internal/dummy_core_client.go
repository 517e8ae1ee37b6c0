package internal

import (
	"sync"

	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/go-ble/ble"
)

type DummyWrite struct {
	UUID  string
	Value []byte
	NoRsp bool
}

// DummyCoreClient stands in for a connected go-ble client
type DummyCoreClient struct {
	mutex        sync.Mutex
	services     []*ble.Service
	readData     map[string][]byte
	writes       []DummyWrite
	disconnected chan struct{}
	closed       bool
	cancelled    bool
	ReadErr      error
	WriteErr     error
	DiscoverErr  error
}

func NewDummyCoreClient(charUUIDs ...string) *DummyCoreClient {
	return &DummyCoreClient{
		services:     GetTestServices(charUUIDs),
		readData:     map[string][]byte{},
		disconnected: make(chan struct{}),
	}
}

func (c *DummyCoreClient) SetReadData(uuid string, data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.readData[util.NormalizeUUID(uuid)] = data
}

func (c *DummyCoreClient) Writes() []DummyWrite {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]DummyWrite{}, c.writes...)
}

// Drop simulates the remote side going away
func (c *DummyCoreClient) Drop() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.close()
}

func (c *DummyCoreClient) close() {
	if !c.closed {
		c.closed = true
		close(c.disconnected)
	}
}

func (c *DummyCoreClient) ExchangeMTU(rxMTU int) (txMTU int, err error) { return rxMTU, nil }
func (c *DummyCoreClient) DiscoverProfile(force bool) (*ble.Profile, error) {
	if c.DiscoverErr != nil {
		return nil, c.DiscoverErr
	}
	return &ble.Profile{Services: c.services}, nil
}
func (c *DummyCoreClient) ReadCharacteristic(char *ble.Characteristic) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.ReadErr != nil {
		return nil, c.ReadErr
	}
	return c.readData[util.NormalizeUUID(char.UUID.String())], nil
}
func (c *DummyCoreClient) WriteCharacteristic(char *ble.Characteristic, value []byte, noRsp bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.WriteErr != nil {
		return c.WriteErr
	}
	c.writes = append(c.writes, DummyWrite{util.NormalizeUUID(char.UUID.String()), value, noRsp})
	return nil
}
func (c *DummyCoreClient) CancelConnection() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cancelled = true
	c.close()
	return nil
}
func (c *DummyCoreClient) WasCancelled() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.cancelled
}
func (c *DummyCoreClient) Disconnected() <-chan struct{} { return c.disconnected }
