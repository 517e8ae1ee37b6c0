package client

import "github.com/pkg/errors"

var (
	// ErrNotConnected means a write was attempted without a ready connection
	ErrNotConnected = errors.New("not connected")
	// ErrWriteFailed means the transport rejected a write; the session has disconnected
	ErrWriteFailed = errors.New("characteristic write failed")
	// ErrUnsupportedSchedule means the schedule cannot be encoded for the peripheral
	ErrUnsupportedSchedule = errors.New("unsupported schedule")
)
