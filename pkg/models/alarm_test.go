package models

import (
	"encoding/json"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestScheduleJSON(t *testing.T) {
	at := time.Date(2030, 1, 2, 6, 30, 0, 0, time.UTC)
	data, err := MarshalSchedule(SpecificMoment{Time: at})
	assert.NilError(t, err)
	assert.Equal(t, `{"type":"SpecificTimestamp","utc_timestamp":"2030-01-02T06:30:00Z"}`, string(data))

	s, err := UnmarshalSchedule(data)
	assert.NilError(t, err)
	moment, ok := s.(SpecificMoment)
	assert.Assert(t, ok)
	assert.Assert(t, moment.Time.Equal(at))

	data, err = MarshalSchedule(WeekdaysWithLocalTime{Days: []time.Weekday{time.Monday, time.Friday}, Hour: 7})
	assert.NilError(t, err)
	s, err = UnmarshalSchedule(data)
	assert.NilError(t, err)
	assert.DeepEqual(t, WeekdaysWithLocalTime{Days: []time.Weekday{time.Monday, time.Friday}, Hour: 7}, s)
}

func TestUnknownSchedule(t *testing.T) {
	_, err := UnmarshalSchedule([]byte(`{"type":"Lunar"}`))
	assert.ErrorContains(t, err, "Lunar")
	_, err = MarshalSchedule(nil)
	assert.ErrorContains(t, err, "unknown schedule type")
}

func TestAlarmJSON(t *testing.T) {
	alarm := Alarm{ID: 4, Enabled: true, Schedule: SpecificMoment{Time: time.Unix(1900000000, 0).UTC()}, Action: DefaultAlarmAction()}
	data, err := json.Marshal(alarm)
	assert.NilError(t, err)
	var back Alarm
	assert.NilError(t, json.Unmarshal(data, &back))
	assert.Equal(t, alarm.ID, back.ID)
	assert.Equal(t, alarm.Enabled, back.Enabled)
	assert.Equal(t, alarm.Action, back.Action)
	assert.Assert(t, back.Schedule.(SpecificMoment).Time.Equal(alarm.Schedule.(SpecificMoment).Time))
}

func TestDefaultAlarmAction(t *testing.T) {
	a := DefaultAlarmAction()
	assert.Equal(t, 30*time.Second, a.RampDuration)
	assert.Equal(t, 2*time.Second, a.BlinkPeriodLength)
	assert.Equal(t, 10*time.Minute, a.BlinkDuration)
	assert.Assert(t, !a.HasRamp && !a.ShouldBlink)
}
