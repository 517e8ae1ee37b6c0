package client

import (
	"context"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/program"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/pkg/errors"
)

// SyncTime writes the controller's epoch seconds so the peripheral can evaluate triggers
func (s *Session) SyncTime(ctx context.Context) error {
	ts := util.Int64ToBytes(s.clock.Now().Unix())
	return s.write(ctx, func(h *handles) models.Characteristic { return h.timestamp }, ts)
}

// CheckSchedule reports ErrUnsupportedSchedule for schedules the peripheral cannot store
func CheckSchedule(schedule models.Schedule) error {
	switch schedule.(type) {
	case models.SpecificMoment:
		return nil
	case models.WeekdaysWithLocalTime:
		return errors.Wrap(ErrUnsupportedSchedule, "weekday schedules")
	}
	return errors.Wrapf(ErrUnsupportedSchedule, "%T", schedule)
}

// AddAlarm sends one alarm to the peripheral
func (s *Session) AddAlarm(ctx context.Context, schedule models.Schedule, action models.AlarmAction) error {
	if err := CheckSchedule(schedule); err != nil {
		return err
	}
	moment := schedule.(models.SpecificMoment)
	payload := program.EncodeAlarm(moment.Time, action)
	return s.write(ctx, func(h *handles) models.Characteristic { return h.alarmArray }, payload)
}

// UploadAlarm syncs the peripheral clock and then adds the alarm
func (s *Session) UploadAlarm(ctx context.Context, alarm models.Alarm) error {
	if err := CheckSchedule(alarm.Schedule); err != nil {
		return err
	}
	if err := s.SyncTime(ctx); err != nil {
		return errors.Wrap(err, "sync time")
	}
	return errors.Wrap(s.AddAlarm(ctx, alarm.Schedule, alarm.Action), "add alarm")
}

// Connected reports whether writes can currently reach the peripheral
func (s *Session) Connected() bool { return s.isConnected() }
