package mqtt

import (
	"encoding/json"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

var ErrUnknownCommand = errors.New("unknown command")

type valueCommand struct {
	Value float64 `mapstructure:"value"`
}

type scanCommand struct {
	AutoConnect bool `mapstructure:"auto_connect"`
}

type connectCommand struct {
	Address string `mapstructure:"address"`
}

type addAlarmCommand struct {
	ID      int64              `mapstructure:"id"`
	Time    time.Time          `mapstructure:"time"`
	Enabled *bool              `mapstructure:"enabled"`
	Action  models.AlarmAction `mapstructure:"action"`
}

func (c addAlarmCommand) alarm() models.Alarm {
	enabled := true
	if c.Enabled != nil {
		enabled = *c.Enabled
	}
	return models.Alarm{ID: c.ID, Enabled: enabled, Schedule: models.SpecificMoment{Time: c.Time}, Action: c.Action}
}

type toggleAlarmCommand struct {
	ID      int64 `mapstructure:"id"`
	Enabled bool  `mapstructure:"enabled"`
}

type deleteAlarmCommand struct {
	ID int64 `mapstructure:"id"`
}

// decode reads a JSON payload into out. Bare JSON values are treated as {"value": v};
// durations may be given as strings like "30s" and times as RFC3339.
func decode(payload []byte, out any) error {
	var raw any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &raw); err != nil {
			return errors.Wrap(err, "payload is not JSON")
		}
	}
	switch raw.(type) {
	case nil:
		raw = map[string]any{}
	case map[string]any:
	default:
		raw = map[string]any{"value": raw}
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return errors.Wrap(decoder.Decode(raw), "decode command")
}
