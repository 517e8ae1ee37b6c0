package server

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/program"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrShortWrite = errors.New("write too short")
	ErrZeroRamp   = errors.New("ramp with zero duration")
)

// Alarm is a light program waiting for its trigger
type Alarm struct {
	Trigger  time.Time
	Segments []program.Segment
	raw      []byte
}

// Device is the state of an emulated light: its two channels, its clock and the
// alarms written to it.
type Device struct {
	mutex    sync.Mutex
	clock    *util.OffsetClock
	light    *models.Cell[program.Color]
	alarms   []Alarm
	programs []byte
}

// NewDevice starts dark with its clock following base
func NewDevice(base util.Clock) *Device {
	return &Device{
		clock:    &util.OffsetClock{Base: base},
		light:    models.NewCell(program.Color{}),
		programs: []byte{},
	}
}

func (d *Device) Light() program.Color { return d.light.Get() }

func (d *Device) SetLight(c program.Color) {
	if d.light.Get() != c {
		log.Debug().Uint8("cold", c.Cold).Uint8("warm", c.Warm).Msg("Light updated")
	}
	d.light.Set(c)
}

// LightChanges follows every SetLight
func (d *Device) LightChanges() models.Watchable[program.Color] { return d.light }

// LightBytes is the light-state characteristic value: cold then warm
func (d *Device) LightBytes() []byte {
	c := d.Light()
	return []byte{c.Cold, c.Warm}
}

func (d *Device) WriteLightState(data []byte) error {
	if len(data) < 2 {
		return errors.Wrapf(ErrShortWrite, "light state needs 2 bytes, got %d", len(data))
	}
	d.SetLight(program.Color{Cold: data[0], Warm: data[1]})
	return nil
}

// WriteTimestamp re-bases the device clock on the epoch seconds in data
func (d *Device) WriteTimestamp(data []byte) error {
	if len(data) < 8 {
		return errors.Wrapf(ErrShortWrite, "timestamp needs 8 bytes, got %d", len(data))
	}
	ts := time.Unix(util.BytesToInt64(data), 0)
	d.mutex.Lock()
	d.clock.Sync(ts)
	d.mutex.Unlock()
	log.Info().Time("now", ts).Msg("Clock synced")
	return nil
}

func (d *Device) Now() time.Time {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.clock.Now()
}

// AddProgram stores an alarm payload. It returns false when the same payload is
// already pending.
func (d *Device) AddProgram(data []byte) (bool, error) {
	trigger, segments, err := program.ParseAlarm(data)
	if err != nil {
		return false, err
	}
	for _, s := range segments {
		if r, ok := s.(program.Ramp); ok && r.Duration == 0 {
			return false, ErrZeroRamp
		}
	}
	d.mutex.Lock()
	defer d.mutex.Unlock()
	for _, a := range d.alarms {
		if bytes.Equal(a.raw, data) {
			log.Debug().Time("trigger", trigger).Msg("Alarm already pending")
			return false, nil
		}
	}
	raw := append([]byte{}, data...)
	d.alarms = append(d.alarms, Alarm{Trigger: trigger, Segments: segments, raw: raw})
	d.programs = raw
	log.Info().Time("trigger", trigger).Int("segments", len(segments)).Msg("Alarm added")
	return true, nil
}

// LightPrograms is the light-programs characteristic value: the last alarm added
func (d *Device) LightPrograms() []byte {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]byte{}, d.programs...)
}

func (d *Device) Pending() []Alarm {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]Alarm{}, d.alarms...)
}

// Due removes and returns the alarms triggering at or before now, in insertion order
func (d *Device) Due(now time.Time) []Alarm {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	due := []Alarm{}
	kept := d.alarms[:0]
	for _, a := range d.alarms {
		if !a.Trigger.After(now) {
			due = append(due, a)
		} else {
			kept = append(kept, a)
		}
	}
	d.alarms = kept
	return due
}

// Run checks for due alarms every tick and plays them one after the other
func (d *Device) Run(ctx context.Context, player *Player, tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		for _, a := range d.Due(d.Now()) {
			log.Info().Time("trigger", a.Trigger).Msg("Alarm triggered")
			if err := player.Play(ctx, a.Segments); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
