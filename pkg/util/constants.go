package util

import "time"

const (
	// MTU is the ATT MTU requested after connecting; the light firmware accepts up to 512
	MTU = 512
	// LightServiceUUID identifies the light peripheral's GATT service and is the filter for compatible advertisements
	LightServiceUUID = "b53e36d0-a21b-47b2-abac-343f523ff4d5"
	// AlarmArrayUUID is the write-only characteristic accepting one alarm (trigger + light program) per write
	AlarmArrayUUID = "a14af994-2a22-4762-b9e5-cb17a716645c"
	// LightStateUUID holds the two channel bytes (cold, warm)
	LightStateUUID = "3c95cda9-7bde-471d-9c2b-ac0364befa78"
	// TimestampUUID receives the controller's epoch seconds
	TimestampUUID = "ab110e08-d3bb-4c8c-87a7-51d7076218cf"
	// LightProgramsUUID lists the programs stored on the peripheral
	LightProgramsUUID = "265b9c95-a99d-4477-99dd-fef48fa26004"

	// ScanDuration is how long a single scan runs before stopping on its own
	ScanDuration = 10 * time.Second
	// DisconnectTimeout bounds the best-effort transport disconnect
	DisconnectTimeout = 5 * time.Second
)
