package models

import "fmt"

// LightState is the controller's view of the peripheral's light. Both fields live in [0,1];
// a ColorTemperatureBalance of 0 is fully cold, 1 fully warm.
type LightState struct {
	Intensity               float64 `json:"intensity"`
	ColorTemperatureBalance float64 `json:"color_temperature_balance"`
}

// DefaultLightState is what a session reports before it has read anything from a device
func DefaultLightState() LightState {
	return LightState{Intensity: 0.5, ColorTemperatureBalance: 0.5}
}

// DisconnectStatus is a reason code attached to a disconnect the controller did not ask for
type DisconnectStatus int

const (
	StatusUnknown DisconnectStatus = iota
	StatusLinkLost
	StatusRemoteTerminated
	StatusConnectFailed
	StatusWriteFailed
)

func (s DisconnectStatus) String() string {
	switch s {
	case StatusLinkLost:
		return "LinkLost"
	case StatusRemoteTerminated:
		return "RemoteTerminated"
	case StatusConnectFailed:
		return "ConnectFailed"
	case StatusWriteFailed:
		return "WriteFailed"
	}
	return "Unknown"
}

// StatusOf returns a pointer suitable for Disconnected.Status
func StatusOf(s DisconnectStatus) *DisconnectStatus { return &s }

// ConnectionState is one of Disconnected, Connecting, Connected or Disconnecting
type ConnectionState interface {
	fmt.Stringer
	isConnectionState()
}

// Disconnected carries a non-nil Status when the link ended abnormally
type Disconnected struct {
	Status *DisconnectStatus
}

type Connecting struct{}

type Connected struct{}

type Disconnecting struct{}

func (Disconnected) isConnectionState()  {}
func (Connecting) isConnectionState()    {}
func (Connected) isConnectionState()     {}
func (Disconnecting) isConnectionState() {}

// Abnormal reports whether the disconnect was not requested locally
func (d Disconnected) Abnormal() bool { return d.Status != nil }

func (d Disconnected) String() string {
	if d.Status == nil {
		return "Disconnected"
	}
	return "Disconnected(" + d.Status.String() + ")"
}
func (Connecting) String() string    { return "Connecting" }
func (Connected) String() string     { return "Connected" }
func (Disconnecting) String() string { return "Disconnecting" }

// IsDisconnected reports whether s is a Disconnected state
func IsDisconnected(s ConnectionState) bool {
	_, ok := s.(Disconnected)
	return ok
}

// IsConnected reports whether s is the Connected state
func IsConnected(s ConnectionState) bool {
	_, ok := s.(Connected)
	return ok
}

// ScanStatus is one of ScanStopped, Scanning or ScanFailed
type ScanStatus interface {
	fmt.Stringer
	isScanStatus()
}

type ScanStopped struct{}

type Scanning struct{}

type ScanFailed struct {
	Message string
}

func (ScanStopped) isScanStatus() {}
func (Scanning) isScanStatus()    {}
func (ScanFailed) isScanStatus()  {}

func (ScanStopped) String() string  { return "Stopped" }
func (Scanning) String() string     { return "Scanning" }
func (f ScanFailed) String() string { return "Failed(" + f.Message + ")" }
