package alarms

import (
	"context"

	"github.com/Krajiyah/ble-light/pkg/client"
	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrAlarmInPast = errors.New("alarm time is in the past")
	// ErrNotUploaded means the alarm was stored but the light did not receive it
	ErrNotUploaded = errors.New("alarm saved but not uploaded")
)

// Uploader is the part of a device session the service needs
type Uploader interface {
	Connected() bool
	UploadAlarm(ctx context.Context, alarm models.Alarm) error
}

// Service validates alarms, keeps them in a Store and uploads them when the light is reachable
type Service struct {
	store    Store
	uploader Uploader
	clock    util.Clock
	alarms   *models.Cell[[]models.Alarm]
}

func NewService(store Store, uploader Uploader, clock util.Clock) (*Service, error) {
	if clock == nil {
		clock = util.SystemClock{}
	}
	s := &Service{store: store, uploader: uploader, clock: clock, alarms: models.NewCell([]models.Alarm{})}
	if err := s.publish(); err != nil {
		return nil, err
	}
	return s, nil
}

// Alarms publishes the full list after every change
func (s *Service) Alarms() models.Watchable[[]models.Alarm] { return s.alarms }

func (s *Service) List() ([]models.Alarm, error) { return s.store.List() }

func (s *Service) validate(alarm models.Alarm) error {
	if err := client.CheckSchedule(alarm.Schedule); err != nil {
		return err
	}
	moment := alarm.Schedule.(models.SpecificMoment)
	if !moment.Time.After(s.clock.Now()) {
		return errors.Wrap(ErrAlarmInPast, moment.Time.String())
	}
	return nil
}

// Save stores the alarm and, if it is enabled and the light is connected, uploads it.
// The stored alarm is returned even when the upload fails.
func (s *Service) Save(ctx context.Context, alarm models.Alarm) (models.Alarm, error) {
	if err := s.validate(alarm); err != nil {
		return alarm, err
	}
	saved, err := s.store.Upsert(alarm)
	if err != nil {
		return alarm, err
	}
	if err := s.publish(); err != nil {
		return saved, err
	}
	if saved.Enabled {
		return saved, s.upload(ctx, saved)
	}
	return saved, nil
}

// Toggle enables or disables an alarm. Enabling uploads it again when possible.
func (s *Service) Toggle(ctx context.Context, id int64, enabled bool) (models.Alarm, error) {
	alarm, err := s.store.Get(id)
	if err != nil {
		return alarm, err
	}
	alarm.Enabled = enabled
	if enabled {
		if err := s.validate(alarm); err != nil {
			return alarm, err
		}
	}
	if alarm, err = s.store.Upsert(alarm); err != nil {
		return alarm, err
	}
	if err := s.publish(); err != nil {
		return alarm, err
	}
	if enabled {
		return alarm, s.upload(ctx, alarm)
	}
	return alarm, nil
}

// Delete forgets the alarm locally. Alarms already on the light stay there until they fire.
func (s *Service) Delete(id int64) error {
	if err := s.store.Delete(id); err != nil {
		return err
	}
	return s.publish()
}

// UploadPending sends every enabled alarm that has not fired yet and returns how many made it
func (s *Service) UploadPending(ctx context.Context) (int, error) {
	alarms, err := s.store.ListEnabled()
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, alarm := range alarms {
		if s.validate(alarm) != nil {
			continue
		}
		if err := s.upload(ctx, alarm); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// Watch uploads pending alarms every time the connection counter moves. A counter
// survives coalescing, so a quick drop and reconnect still triggers an upload.
func (s *Service) Watch(ctx context.Context, connections models.Watchable[uint64]) {
	var seen uint64
	for n := range connections.Subscribe(ctx) {
		if n == seen {
			continue
		}
		seen = n
		sent, err := s.UploadPending(ctx)
		if err != nil {
			log.Error().Err(err).Int("uploaded", sent).Msg("Uploading pending alarms failed")
		} else {
			log.Info().Int("uploaded", sent).Msg("Pending alarms uploaded")
		}
	}
}

func (s *Service) upload(ctx context.Context, alarm models.Alarm) error {
	if s.uploader == nil || !s.uploader.Connected() {
		log.Debug().Int64("alarm_id", alarm.ID).Msg("Light not connected, alarm will be uploaded later")
		return nil
	}
	if err := s.uploader.UploadAlarm(ctx, alarm); err != nil {
		log.Warn().Err(err).Int64("alarm_id", alarm.ID).Msg("Alarm upload failed")
		return errors.Wrap(ErrNotUploaded, err.Error())
	}
	log.Info().Int64("alarm_id", alarm.ID).Msg("Alarm uploaded")
	return nil
}

func (s *Service) publish() error {
	alarms, err := s.store.List()
	if err != nil {
		return err
	}
	s.alarms.Set(alarms)
	return nil
}
