package models

import (
	"context"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestCellGetSet(t *testing.T) {
	c := NewCell(DefaultLightState())
	assert.Equal(t, DefaultLightState(), c.Get())
	c.Set(LightState{Intensity: 1})
	assert.Equal(t, 1.0, c.Get().Intensity)
	got := c.Update(func(s LightState) LightState {
		s.ColorTemperatureBalance = 0.2
		return s
	})
	assert.Equal(t, LightState{Intensity: 1, ColorTemperatureBalance: 0.2}, got)
}

func TestCellSubscribeLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCell(0)
	ch := c.Subscribe(ctx)
	assert.Equal(t, 0, <-ch)
	for i := 1; i <= 10; i++ {
		c.Set(i)
	}
	assert.Equal(t, 10, <-ch)
	cancel()
	select {
	case _, ok := <-ch:
		assert.Assert(t, !ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	c.Set(11)
	assert.Equal(t, 11, c.Get())
}

func TestCellSealedStates(t *testing.T) {
	var c Watchable[ConnectionState] = NewCell[ConnectionState](Disconnected{})
	assert.Assert(t, IsDisconnected(c.Get()))
	assert.Assert(t, !c.Get().(Disconnected).Abnormal())
	d := Disconnected{Status: StatusOf(StatusLinkLost)}
	assert.Assert(t, d.Abnormal())
	assert.Equal(t, "Disconnected(LinkLost)", d.String())
	assert.Equal(t, "Failed(no adapter)", ScanFailed{Message: "no adapter"}.String())
}
