package server

import (
	"context"
	"testing"
	"time"

	"github.com/Krajiyah/ble-light/pkg/program"
	"gotest.tools/assert"
)

type recordingLight struct {
	current program.Color
	history []program.Color
}

func (l *recordingLight) Light() program.Color { return l.current }

func (l *recordingLight) SetLight(c program.Color) {
	l.current = c
	l.history = append(l.history, c)
}

func newTestPlayer(light *recordingLight) (*Player, *[]time.Duration) {
	slept := []time.Duration{}
	p := NewPlayer(light)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return p, &slept
}

func TestPlayFixed(t *testing.T) {
	light := &recordingLight{}
	p, slept := newTestPlayer(light)
	err := p.Play(context.Background(), []program.Segment{program.Fixed{Duration: time.Minute, Color: program.Color{Cold: 5, Warm: 6}}})
	assert.NilError(t, err)
	assert.DeepEqual(t, []program.Color{{Cold: 5, Warm: 6}}, light.history)
	assert.DeepEqual(t, []time.Duration{time.Minute}, *slept)
}

func TestPlayRamp(t *testing.T) {
	light := &recordingLight{current: program.Color{Cold: 0, Warm: 100}}
	p, slept := newTestPlayer(light)
	p.step = 25 * time.Millisecond
	err := p.Play(context.Background(), []program.Segment{program.Ramp{Duration: 100 * time.Millisecond, Color: program.Color{Cold: 200, Warm: 0}}})
	assert.NilError(t, err)
	assert.DeepEqual(t, []program.Color{{Cold: 50, Warm: 75}, {Cold: 100, Warm: 50}, {Cold: 150, Warm: 25}, {Cold: 200, Warm: 0}}, light.history)
	assert.DeepEqual(t, []time.Duration{25 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond}, *slept)
}

func TestPlayShortRampJumps(t *testing.T) {
	light := &recordingLight{}
	p, _ := newTestPlayer(light)
	err := p.Play(context.Background(), []program.Segment{program.Ramp{Duration: time.Millisecond, Color: program.Color{Cold: 9, Warm: 9}}})
	assert.NilError(t, err)
	assert.DeepEqual(t, []program.Color{{Cold: 9, Warm: 9}}, light.history)
}

func TestPlayBlinkRestoresLight(t *testing.T) {
	start := program.Color{Cold: 1, Warm: 2}
	high := program.Color{Cold: 255, Warm: 0}
	off := program.Color{}
	light := &recordingLight{current: start}
	p, slept := newTestPlayer(light)
	blink := program.Blink{Duration: 2500 * time.Millisecond, Low: time.Second, High: time.Second, HighColor: high, LowColor: off}
	assert.NilError(t, p.Play(context.Background(), []program.Segment{blink}))
	assert.DeepEqual(t, []program.Color{high, off, high, start}, light.history)
	assert.DeepEqual(t, []time.Duration{time.Second, time.Second, 500 * time.Millisecond}, *slept)
}

func TestPlayStopsWhenCancelled(t *testing.T) {
	light := &recordingLight{}
	p, slept := newTestPlayer(light)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	segments := []program.Segment{
		program.Fixed{Duration: time.Second, Color: program.Color{Cold: 1}},
		program.Fixed{Duration: time.Second, Color: program.Color{Cold: 2}},
	}
	assert.Equal(t, context.Canceled, p.Play(ctx, segments))
	assert.Equal(t, 1, len(*slept))
}
