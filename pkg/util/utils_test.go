package util

import (
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestUuidEqualStr(t *testing.T) {
	assert.Assert(t, UuidEqualStr(LightServiceUUID, "B53E36D0-A21B-47B2-ABAC-343F523FF4D5"))
	assert.Assert(t, UuidEqualStr(LightServiceUUID, "b53e36d0a21b47b2abac343f523ff4d5"))
	assert.Assert(t, !UuidEqualStr(LightServiceUUID, LightStateUUID))
	assert.Equal(t, "180a", NormalizeUUID("180A"))
}

func TestAddrEqualAddr(t *testing.T) {
	assert.Assert(t, AddrEqualAddr("aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF"))
	assert.Assert(t, !AddrEqualAddr("aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:00"))
	assert.Assert(t, AddrEqualAddr(" aa:bb:cc:dd:ee:ff", "AA:BB:CC:DD:EE:FF "))
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", NormalizeAddr("aa:bb:cc:dd:ee:ff"))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(3))
	assert.Equal(t, 0.25, Clamp01(0.25))
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestOffsetClock(t *testing.T) {
	base := fixedClock{time.Unix(1000, 0)}
	c := &OffsetClock{Base: base}
	assert.Equal(t, int64(1000), c.Now().Unix())
	c.Sync(time.Unix(5000, 0))
	assert.Equal(t, int64(5000), c.Now().Unix())
}
