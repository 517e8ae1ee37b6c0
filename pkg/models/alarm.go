package models

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// AlarmAction describes the light program a peripheral runs when an alarm triggers
type AlarmAction struct {
	HasRamp                 bool          `json:"has_ramp" mapstructure:"has_ramp"`
	RampDuration            time.Duration `json:"ramp_duration" mapstructure:"ramp_duration"`
	TargetDuration          time.Duration `json:"target_duration" mapstructure:"target_duration"`
	TargetIntensity         float64       `json:"target_intensity" mapstructure:"target_intensity"`
	ColorTemperatureBalance float64       `json:"color_temperature_balance" mapstructure:"color_temperature_balance"`
	ShouldBlink             bool          `json:"should_blink" mapstructure:"should_blink"`
	BlinkPeriodLength       time.Duration `json:"blink_period_length" mapstructure:"blink_period_length"`
	BlinkDuration           time.Duration `json:"blink_duration" mapstructure:"blink_duration"`
}

// DefaultAlarmAction matches what a freshly created alarm starts with
func DefaultAlarmAction() AlarmAction {
	return AlarmAction{
		RampDuration:      30 * time.Second,
		TargetDuration:    15 * time.Minute,
		BlinkPeriodLength: 2 * time.Second,
		BlinkDuration:     10 * time.Minute,
	}
}

// Schedule is either a SpecificMoment or a WeekdaysWithLocalTime
type Schedule interface {
	isSchedule()
}

// SpecificMoment fires once at Time
type SpecificMoment struct {
	Time time.Time
}

// WeekdaysWithLocalTime recurs on Days at Hour:Minute local time. Peripherals
// cannot store it; it exists so callers can be told so.
type WeekdaysWithLocalTime struct {
	Days   []time.Weekday
	Hour   int
	Minute int
}

func (SpecificMoment) isSchedule()        {}
func (WeekdaysWithLocalTime) isSchedule() {}

const (
	scheduleSpecific = "SpecificTimestamp"
	scheduleWeekdays = "WeekdaysWithLocalTime"
)

type scheduleJSON struct {
	Type   string         `json:"type"`
	Time   *time.Time     `json:"utc_timestamp,omitempty"`
	Days   []time.Weekday `json:"days,omitempty"`
	Hour   int            `json:"hour,omitempty"`
	Minute int            `json:"minute,omitempty"`
}

// MarshalSchedule encodes a schedule with a type tag
func MarshalSchedule(s Schedule) ([]byte, error) {
	switch v := s.(type) {
	case SpecificMoment:
		t := v.Time.UTC()
		return json.Marshal(scheduleJSON{Type: scheduleSpecific, Time: &t})
	case WeekdaysWithLocalTime:
		return json.Marshal(scheduleJSON{Type: scheduleWeekdays, Days: v.Days, Hour: v.Hour, Minute: v.Minute})
	}
	return nil, errors.Errorf("unknown schedule type %T", s)
}

// UnmarshalSchedule is the inverse of MarshalSchedule
func UnmarshalSchedule(data []byte) (Schedule, error) {
	var raw scheduleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode schedule")
	}
	switch raw.Type {
	case scheduleSpecific:
		if raw.Time == nil {
			return nil, errors.New("specific schedule without timestamp")
		}
		return SpecificMoment{Time: *raw.Time}, nil
	case scheduleWeekdays:
		return WeekdaysWithLocalTime{Days: raw.Days, Hour: raw.Hour, Minute: raw.Minute}, nil
	}
	return nil, errors.Errorf("unknown schedule type %q", raw.Type)
}

// Alarm is a stored alarm. ID is zero until the alarm has been saved.
type Alarm struct {
	ID       int64
	Enabled  bool
	Schedule Schedule
	Action   AlarmAction
}

type alarmJSON struct {
	ID       int64           `json:"id"`
	Enabled  bool            `json:"enabled"`
	Schedule json.RawMessage `json:"schedule"`
	Action   AlarmAction     `json:"action"`
}

func (a Alarm) MarshalJSON() ([]byte, error) {
	sched, err := MarshalSchedule(a.Schedule)
	if err != nil {
		return nil, err
	}
	return json.Marshal(alarmJSON{a.ID, a.Enabled, sched, a.Action})
}

func (a *Alarm) UnmarshalJSON(data []byte) error {
	var raw alarmJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sched, err := UnmarshalSchedule(raw.Schedule)
	if err != nil {
		return err
	}
	*a = Alarm{ID: raw.ID, Enabled: raw.Enabled, Schedule: sched, Action: raw.Action}
	return nil
}
