package bluez

import (
	"strings"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/godbus/dbus/v5"
)

const (
	busName            = "org.bluez"
	adapterIface       = "org.bluez.Adapter1"
	deviceIface        = "org.bluez.Device1"
	gattServiceIface   = "org.bluez.GattService1"
	gattCharIface      = "org.bluez.GattCharacteristic1"
	propsIface         = "org.freedesktop.DBus.Properties"
	objectManagerIface = "org.freedesktop.DBus.ObjectManager"
)

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

func adapterPath(adapter string) dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + adapter)
}

// deviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(adapter, addr string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(util.NormalizeAddr(addr), ":", "_")
	return dbus.ObjectPath(string(adapterPath(adapter)) + "/dev_" + escaped)
}

// macFromPath extracts a MAC address from a BlueZ device object path.
func macFromPath(adapter string, path dbus.ObjectPath) string {
	s := string(path)
	prefix := string(adapterPath(adapter)) + "/dev_"
	if !strings.HasPrefix(s, prefix) || strings.Contains(s[len(prefix):], "/") {
		return ""
	}
	return strings.ReplaceAll(s[len(prefix):], "_", ":")
}

func variantAs[T any](props map[string]dbus.Variant, key string) (T, bool) {
	var zero T
	v, ok := props[key]
	if !ok {
		return zero, false
	}
	val, ok := v.Value().(T)
	return val, ok
}

// advertisementFromProps builds an advertisement from Device1 properties. RSSI is
// only present while the device is being seen by an active discovery.
func advertisementFromProps(addr string, props map[string]dbus.Variant) models.Advertisement {
	if a, ok := variantAs[string](props, "Address"); ok {
		addr = a
	}
	name, _ := variantAs[string](props, "Name")
	rssi, _ := variantAs[int16](props, "RSSI")
	uuids, _ := variantAs[[]string](props, "UUIDs")
	return models.NewAdvertisement(addr, name, int(rssi), uuids...)
}

// devicesFromObjects returns the devices known to adapter that were seen by discovery
func devicesFromObjects(adapter string, objects managedObjects) []models.Advertisement {
	ret := []models.Advertisement{}
	for path, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		addr := macFromPath(adapter, path)
		if addr == "" {
			continue
		}
		if _, seen := props["RSSI"]; !seen {
			continue
		}
		ret = append(ret, advertisementFromProps(addr, props))
	}
	return ret
}

type charInfo struct {
	path    dbus.ObjectPath
	service string
}

// characteristicsFromObjects indexes the GATT characteristics under device by normalized UUID
func characteristicsFromObjects(device dbus.ObjectPath, objects managedObjects) map[string]charInfo {
	prefix := string(device) + "/"
	ret := map[string]charInfo{}
	for path, ifaces := range objects {
		props, ok := ifaces[gattCharIface]
		if !ok || !strings.HasPrefix(string(path), prefix) {
			continue
		}
		uuid, ok := variantAs[string](props, "UUID")
		if !ok {
			continue
		}
		info := charInfo{path: path}
		if svcPath, ok := variantAs[dbus.ObjectPath](props, "Service"); ok {
			info.service, _ = variantAs[string](objects[svcPath][gattServiceIface], "UUID")
		}
		ret[util.NormalizeUUID(uuid)] = info
	}
	return ret
}
