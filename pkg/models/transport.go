package models

import "context"

// Characteristic names a GATT characteristic inside a service
type Characteristic struct {
	Service string
	UUID    string
}

// Transport is the platform BLE stack as seen by the scanner and the session
type Transport interface {
	// Scan reports advertisements to handle until ctx is done or the stack fails.
	Scan(ctx context.Context, handle func(Advertisement)) error
	// Peripheral returns a handle for the advertised device without connecting to it.
	Peripheral(adv Advertisement) (Peripheral, error)
}

// Peripheral is a single remote device
type Peripheral interface {
	Address() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	// States reports transport-level state changes. A Disconnected with a status
	// means the link dropped without a local Disconnect call.
	States() <-chan ConnectionState
	// Characteristic resolves a characteristic from the discovered profile.
	Characteristic(service, uuid string) (Characteristic, error)
	Read(ctx context.Context, c Characteristic) ([]byte, error)
	Write(ctx context.Context, c Characteristic, data []byte) error
}
