package internal

import (
	"time"

	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/go-ble/ble"
)

type DummyAdv struct {
	Address    ble.Addr
	Rssi       int
	Name       string
	NonService bool
}

type DummyAddr struct {
	Address string
}

func (addr DummyAddr) String() string { return addr.Address }

func (a DummyAdv) LocalName() string { return a.Name }
func (a DummyAdv) Services() []ble.UUID {
	if a.NonService {
		return nil
	}
	return GetTestServiceUUIDs()
}
func (a DummyAdv) RSSI() int      { return a.Rssi }
func (a DummyAdv) Addr() ble.Addr { return a.Address }

func GetTestServiceUUIDs() []ble.UUID {
	return []ble.UUID{ble.MustParse(util.LightServiceUUID)}
}

// GetTestServices returns the light service with the given characteristics
func GetTestServices(charUUIDs []string) []*ble.Service {
	chars := []*ble.Characteristic{}
	for _, uuid := range charUUIDs {
		chars = append(chars, &ble.Characteristic{UUID: ble.MustParse(uuid)})
	}
	return []*ble.Service{{UUID: ble.MustParse(util.LightServiceUUID), Characteristics: chars}}
}

// LightCharUUIDs are the characteristics a real light peripheral exposes
func LightCharUUIDs() []string {
	return []string{util.AlarmArrayUUID, util.LightStateUUID, util.TimestampUUID}
}

// FixedClock always reports the same instant
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
