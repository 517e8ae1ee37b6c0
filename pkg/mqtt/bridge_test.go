package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/pkg/errors"
	"gotest.tools/assert"
	"gotest.tools/poll"
)

type published struct {
	Topic    string
	Payload  string
	Retained bool
}

type fakePublisher struct {
	mutex    sync.Mutex
	messages []published
	handler  func(string, []byte)
}

func (p *fakePublisher) Publish(topic string, payload any, retained bool) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.messages = append(p.messages, published{topic, string(data), retained})
	return nil
}

func (p *fakePublisher) Subscribe(topic string, handler func(string, []byte)) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.handler = handler
	return nil
}

func (p *fakePublisher) last(topic string) (published, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	for i := len(p.messages) - 1; i >= 0; i-- {
		if p.messages[i].Topic == topic {
			return p.messages[i], true
		}
	}
	return published{}, false
}

func (p *fakePublisher) deliver(topic, payload string) {
	p.mutex.Lock()
	h := p.handler
	p.mutex.Unlock()
	h(topic, []byte(payload))
}

type fakeTarget struct {
	calls     []string
	intensity float64
	balance   float64
	auto      bool
	addr      string
}

func (t *fakeTarget) SetIntensity(ctx context.Context, v float64) {
	t.calls = append(t.calls, "intensity")
	t.intensity = v
}

func (t *fakeTarget) SetColorTemperatureBalance(ctx context.Context, v float64) {
	t.calls = append(t.calls, "balance")
	t.balance = v
}

func (t *fakeTarget) StartScanning(autoConnect bool) bool {
	t.calls = append(t.calls, "start")
	t.auto = autoConnect
	return true
}

func (t *fakeTarget) StopScanning()     { t.calls = append(t.calls, "stop") }
func (t *fakeTarget) ClearScanResults() { t.calls = append(t.calls, "clear") }

func (t *fakeTarget) ConnectAddress(ctx context.Context, addr string) error {
	t.calls = append(t.calls, "connect")
	t.addr = addr
	return nil
}

func (t *fakeTarget) Disconnect(ctx context.Context) { t.calls = append(t.calls, "disconnect") }

type fakeAlarms struct {
	saved   []models.Alarm
	toggled map[int64]bool
	deleted []int64
}

func (a *fakeAlarms) Save(ctx context.Context, alarm models.Alarm) (models.Alarm, error) {
	a.saved = append(a.saved, alarm)
	return alarm, nil
}

func (a *fakeAlarms) Toggle(ctx context.Context, id int64, enabled bool) (models.Alarm, error) {
	if a.toggled == nil {
		a.toggled = map[int64]bool{}
	}
	a.toggled[id] = enabled
	return models.Alarm{ID: id, Enabled: enabled}, nil
}

func (a *fakeAlarms) Delete(id int64) error {
	a.deleted = append(a.deleted, id)
	return nil
}

func TestDispatchLightAndScan(t *testing.T) {
	target := &fakeTarget{}
	b := NewBridge(&fakePublisher{}, target, &fakeAlarms{}, Sources{})
	ctx := context.Background()
	assert.NilError(t, b.Dispatch(ctx, "intensity", []byte(`{"value": 0.25}`)))
	assert.NilError(t, b.Dispatch(ctx, "balance", []byte(`0.75`)))
	assert.NilError(t, b.Dispatch(ctx, "scan/start", []byte(`{"auto_connect": true}`)))
	assert.NilError(t, b.Dispatch(ctx, "scan/stop", nil))
	assert.NilError(t, b.Dispatch(ctx, "scan/clear", nil))
	assert.NilError(t, b.Dispatch(ctx, "connect", []byte(`{"address": "11:22:33:44:55:66"}`)))
	assert.NilError(t, b.Dispatch(ctx, "disconnect", nil))

	assert.DeepEqual(t, []string{"intensity", "balance", "start", "stop", "clear", "connect", "disconnect"}, target.calls)
	assert.Equal(t, 0.25, target.intensity)
	assert.Equal(t, 0.75, target.balance)
	assert.Assert(t, target.auto)
	assert.Equal(t, "11:22:33:44:55:66", target.addr)
}

func TestDispatchAlarms(t *testing.T) {
	alarms := &fakeAlarms{}
	b := NewBridge(&fakePublisher{}, &fakeTarget{}, alarms, Sources{})
	ctx := context.Background()
	payload := `{"time": "2030-01-02T07:30:00Z", "action": {"has_ramp": true, "ramp_duration": "45s", "target_intensity": 0.8}}`
	assert.NilError(t, b.Dispatch(ctx, "alarm/add", []byte(payload)))
	assert.Equal(t, 1, len(alarms.saved))
	saved := alarms.saved[0]
	assert.Assert(t, saved.Enabled)
	want := time.Date(2030, 1, 2, 7, 30, 0, 0, time.UTC)
	assert.Assert(t, saved.Schedule.(models.SpecificMoment).Time.Equal(want))
	assert.Assert(t, saved.Action.HasRamp)
	assert.Equal(t, 45*time.Second, saved.Action.RampDuration)
	assert.Equal(t, 0.8, saved.Action.TargetIntensity)
	assert.Equal(t, 15*time.Minute, saved.Action.TargetDuration)
	assert.Equal(t, 2*time.Second, saved.Action.BlinkPeriodLength)

	assert.NilError(t, b.Dispatch(ctx, "alarm/toggle", []byte(`{"id": 4, "enabled": false}`)))
	enabled, ok := alarms.toggled[4]
	assert.Assert(t, ok && !enabled)
	assert.NilError(t, b.Dispatch(ctx, "alarm/delete", []byte(`{"id": 4}`)))
	assert.DeepEqual(t, []int64{4}, alarms.deleted)
}

func TestDispatchErrors(t *testing.T) {
	b := NewBridge(&fakePublisher{}, &fakeTarget{}, &fakeAlarms{}, Sources{})
	ctx := context.Background()
	assert.Assert(t, errors.Is(b.Dispatch(ctx, "reboot", nil), ErrUnknownCommand))
	assert.ErrorContains(t, b.Dispatch(ctx, "intensity", []byte(`{`)), "not JSON")
	assert.ErrorContains(t, b.Dispatch(ctx, "connect", []byte(`{}`)), "address")
	assert.ErrorContains(t, b.Dispatch(ctx, "alarm/add", []byte(`{"time": "tomorrow"}`)), "decode command")
	assert.ErrorContains(t, b.Dispatch(ctx, "alarm/add", []byte(`{}`)), "needs a time")
}

func TestRunPublishesState(t *testing.T) {
	pub := &fakePublisher{}
	light := models.NewCell(models.DefaultLightState())
	conn := models.NewCell[models.ConnectionState](models.Disconnected{})
	target := &fakeTarget{}
	b := NewBridge(pub, target, &fakeAlarms{}, Sources{LightState: light, ConnectionState: conn})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- b.Run(ctx) }()

	waitFor := func(topic, payload string) {
		poll.WaitOn(t, func(poll.LogT) poll.Result {
			if m, ok := pub.last(topic); ok && m.Payload == payload {
				assert.Assert(t, m.Retained)
				return poll.Success()
			}
			return poll.Continue("no %s on %s", payload, topic)
		}, poll.WithTimeout(2*time.Second), poll.WithDelay(5*time.Millisecond))
	}
	waitFor("light_state", `{"intensity":0.5,"color_temperature_balance":0.5}`)
	waitFor("connection_state", `{"state":"Disconnected"}`)

	conn.Set(models.Connected{})
	waitFor("connection_state", `{"state":"Connected"}`)

	pub.deliver("cmd/reboot", "")
	m, ok := pub.last("error")
	assert.Assert(t, ok)
	assert.Assert(t, !m.Retained)
	pub.deliver("cmd/intensity", "1")
	assert.Equal(t, 1.0, target.intensity)

	cancel()
	assert.NilError(t, <-done)
}
