package mqtt

import (
	"context"
	"strings"
	"sync"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const commandPrefix = "cmd/"

// Publisher is what the bridge needs from a broker connection
type Publisher interface {
	Publish(topic string, payload any, retained bool) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
}

// Target receives light and connection commands
type Target interface {
	SetIntensity(ctx context.Context, v float64)
	SetColorTemperatureBalance(ctx context.Context, v float64)
	StartScanning(autoConnect bool) bool
	StopScanning()
	ClearScanResults()
	ConnectAddress(ctx context.Context, addr string) error
	Disconnect(ctx context.Context)
}

// Alarms receives alarm commands
type Alarms interface {
	Save(ctx context.Context, alarm models.Alarm) (models.Alarm, error)
	Toggle(ctx context.Context, id int64, enabled bool) (models.Alarm, error)
	Delete(id int64) error
}

// Sources are the values the bridge keeps published. Nil fields are skipped.
type Sources struct {
	LightState      models.Watchable[models.LightState]
	ConnectionState models.Watchable[models.ConnectionState]
	ScanStatus      models.Watchable[models.ScanStatus]
	Compatible      models.Watchable[[]models.Advertisement]
	Incompatible    models.Watchable[[]models.Advertisement]
	Alarms          models.Watchable[[]models.Alarm]
}

type Bridge struct {
	pub     Publisher
	target  Target
	alarms  Alarms
	sources Sources
}

func NewBridge(pub Publisher, target Target, alarms Alarms, sources Sources) *Bridge {
	return &Bridge{pub: pub, target: target, alarms: alarms, sources: sources}
}

type statePayload struct {
	State string `json:"state"`
}

// Run subscribes to commands and republishes every source change until ctx is done
func (b *Bridge) Run(ctx context.Context) error {
	err := b.pub.Subscribe(commandPrefix+"#", func(topic string, payload []byte) {
		command := strings.TrimPrefix(topic, commandPrefix)
		if err := b.Dispatch(ctx, command, payload); err != nil {
			log.Warn().Err(err).Str("command", command).Msg("Command failed")
			b.publish("error", map[string]string{"command": command, "error": err.Error()}, false)
		}
	})
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	start := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	if w := b.sources.LightState; w != nil {
		start(func() { watch(ctx, b, "light_state", w, func(v models.LightState) any { return v }) })
	}
	if w := b.sources.ConnectionState; w != nil {
		start(func() {
			watch(ctx, b, "connection_state", w, func(v models.ConnectionState) any { return statePayload{v.String()} })
		})
	}
	if w := b.sources.ScanStatus; w != nil {
		start(func() {
			watch(ctx, b, "scan_status", w, func(v models.ScanStatus) any { return statePayload{v.String()} })
		})
	}
	if w := b.sources.Compatible; w != nil {
		start(func() { watch(ctx, b, "devices/compatible", w, func(v []models.Advertisement) any { return v }) })
	}
	if w := b.sources.Incompatible; w != nil {
		start(func() { watch(ctx, b, "devices/incompatible", w, func(v []models.Advertisement) any { return v }) })
	}
	if w := b.sources.Alarms; w != nil {
		start(func() { watch(ctx, b, "alarms", w, func(v []models.Alarm) any { return v }) })
	}
	wg.Wait()
	return nil
}

func watch[T any](ctx context.Context, b *Bridge, topic string, w models.Watchable[T], payload func(T) any) {
	for v := range w.Subscribe(ctx) {
		b.publish(topic, payload(v), true)
	}
}

func (b *Bridge) publish(topic string, payload any, retained bool) {
	if err := b.pub.Publish(topic, payload, retained); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Publish failed")
	}
}

// Dispatch runs one command, named by its topic below cmd/
func (b *Bridge) Dispatch(ctx context.Context, command string, payload []byte) error {
	log.Debug().Str("command", command).Bytes("payload", payload).Msg("Command received")
	switch command {
	case "intensity", "balance":
		var cmd valueCommand
		if err := decode(payload, &cmd); err != nil {
			return err
		}
		if command == "intensity" {
			b.target.SetIntensity(ctx, cmd.Value)
		} else {
			b.target.SetColorTemperatureBalance(ctx, cmd.Value)
		}
	case "scan/start":
		var cmd scanCommand
		if err := decode(payload, &cmd); err != nil {
			return err
		}
		b.target.StartScanning(cmd.AutoConnect)
	case "scan/stop":
		b.target.StopScanning()
	case "scan/clear":
		b.target.ClearScanResults()
	case "connect":
		var cmd connectCommand
		if err := decode(payload, &cmd); err != nil {
			return err
		}
		if cmd.Address == "" {
			return errors.New("connect needs an address")
		}
		return b.target.ConnectAddress(ctx, cmd.Address)
	case "disconnect":
		b.target.Disconnect(ctx)
	case "alarm/add":
		cmd := addAlarmCommand{Action: models.DefaultAlarmAction()}
		if err := decode(payload, &cmd); err != nil {
			return err
		}
		if cmd.Time.IsZero() {
			return errors.New("alarm needs a time")
		}
		_, err := b.alarms.Save(ctx, cmd.alarm())
		return err
	case "alarm/toggle":
		var cmd toggleAlarmCommand
		if err := decode(payload, &cmd); err != nil {
			return err
		}
		_, err := b.alarms.Toggle(ctx, cmd.ID, cmd.Enabled)
		return err
	case "alarm/delete":
		var cmd deleteAlarmCommand
		if err := decode(payload, &cmd); err != nil {
			return err
		}
		return b.alarms.Delete(cmd.ID)
	default:
		return errors.Wrap(ErrUnknownCommand, command)
	}
	return nil
}
