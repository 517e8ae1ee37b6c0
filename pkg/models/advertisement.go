package models

import (
	"encoding/json"
	"sync"

	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/bradfitz/slice"
	mapset "github.com/deckarep/golang-set"
)

// Advertisement is one observed broadcast from a nearby peripheral
type Advertisement struct {
	Address  string
	Name     string
	RSSI     int
	Services mapset.Set
}

// NewAdvertisement builds an Advertisement with canonicalized service UUIDs
func NewAdvertisement(addr, name string, rssi int, services ...string) Advertisement {
	set := mapset.NewSet()
	for _, s := range services {
		set.Add(util.NormalizeUUID(s))
	}
	return Advertisement{Address: addr, Name: name, RSSI: rssi, Services: set}
}

// HasService reports whether the advertisement lists the given service UUID
func (a Advertisement) HasService(uuid string) bool {
	if a.Services == nil {
		return false
	}
	return a.Services.Contains(util.NormalizeUUID(uuid))
}

// ServiceUUIDs returns the advertised services in sorted order
func (a Advertisement) ServiceUUIDs() []string {
	ret := []string{}
	if a.Services == nil {
		return ret
	}
	for _, s := range a.Services.ToSlice() {
		ret = append(ret, s.(string))
	}
	slice.Sort(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// AdvertisementMap holds the last advertisement seen per address
type AdvertisementMap struct {
	data  map[string]Advertisement
	mutex sync.RWMutex
}

func NewAdvertisementMap() *AdvertisementMap {
	return &AdvertisementMap{data: map[string]Advertisement{}}
}

func mapKey(addr string) string { return util.NormalizeAddr(addr) }

// Set records adv, replacing any earlier advertisement from the same address
func (m *AdvertisementMap) Set(adv Advertisement) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data[mapKey(adv.Address)] = adv
}

func (m *AdvertisementMap) Get(addr string) (Advertisement, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	adv, ok := m.data[mapKey(addr)]
	return adv, ok
}

func (m *AdvertisementMap) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.data)
}

func (m *AdvertisementMap) Clear() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.data = map[string]Advertisement{}
}

// Values returns a snapshot of the map ordered by address
func (m *AdvertisementMap) Values() []Advertisement {
	m.mutex.RLock()
	ret := make([]Advertisement, 0, len(m.data))
	for _, adv := range m.data {
		ret = append(ret, adv)
	}
	m.mutex.RUnlock()
	slice.Sort(ret, func(i, j int) bool { return mapKey(ret[i].Address) < mapKey(ret[j].Address) })
	return ret
}

type advertisementJSON struct {
	Address  string   `json:"address"`
	Name     string   `json:"name,omitempty"`
	RSSI     int      `json:"rssi"`
	Services []string `json:"services"`
}

func (a Advertisement) MarshalJSON() ([]byte, error) {
	return json.Marshal(advertisementJSON{a.Address, a.Name, a.RSSI, a.ServiceUUIDs()})
}
