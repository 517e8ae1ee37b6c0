package util

import (
	"math"
	"testing"
	"time"

	"gotest.tools/assert"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestEncodeIntensityBalance(t *testing.T) {
	cases := []struct {
		name               string
		intensity, balance float64
		cold, warm         byte
	}{
		{"neutral full", 1, 0.5, 255, 255},
		{"full cold", 1, 0, 255, 0},
		{"full warm", 1, 1, 0, 255},
		{"off", 0, 0.3, 0, 0},
		{"half towards cold", 0.5, 0.25, 128, 64},
		{"half towards warm", 0.5, 0.75, 64, 128},
		{"overflow clamps", 2, 0, 255, 0},
		{"negative clamps", -1, 1, 0, 0},
	}
	for _, c := range cases {
		cold, warm := EncodeIntensityBalance(c.intensity, c.balance)
		assert.Equal(t, c.cold, cold, c.name)
		assert.Equal(t, c.warm, warm, c.name)
	}
}

func TestEncodeNeutralBalanceIsSymmetric(t *testing.T) {
	for i := 0; i <= 100; i++ {
		intensity := float64(i) / 100
		cold, warm := EncodeIntensityBalance(intensity, 0.5)
		assert.Equal(t, cold, warm)
		assert.Equal(t, channelByte(intensity), cold)
	}
}

func TestEncodeNaN(t *testing.T) {
	cold, warm := EncodeIntensityBalance(math.NaN(), 0.2)
	assert.Equal(t, byte(0), cold)
	assert.Equal(t, byte(0), warm)
}

func TestDecodeIntensityBalance(t *testing.T) {
	cases := []struct {
		name               string
		cold, warm         byte
		intensity, balance float64
	}{
		{"both off", 0, 0, 0, 0.5},
		{"cold only", 255, 0, 1, 0},
		{"warm only", 0, 255, 1, 1},
		{"equal", 255, 255, 1, 0.5},
		{"cold dominant", 200, 100, 200.0 / 255, 0.25},
		{"warm dominant", 100, 200, 200.0 / 255, 1 - 100.0/510},
		{"dim warm dominant", 1, 2, 2.0 / 255, 1 - 1.0/510},
	}
	for _, c := range cases {
		intensity, balance := DecodeIntensityBalance(c.cold, c.warm)
		assert.Assert(t, near(c.intensity, intensity), "%s: intensity %v", c.name, intensity)
		assert.Assert(t, near(c.balance, balance), "%s: balance %v", c.name, balance)
	}
}

func TestDecodeStaysInRange(t *testing.T) {
	for c := 0; c < 256; c++ {
		for w := 0; w < 256; w++ {
			intensity, balance := DecodeIntensityBalance(byte(c), byte(w))
			if intensity < 0 || intensity > 1 || balance < 0 || balance > 1 {
				t.Fatalf("decode(%d, %d) = (%v, %v), out of [0, 1]", c, w, intensity, balance)
			}
		}
	}
}

func TestRoundTripColdSide(t *testing.T) {
	for _, b := range []float64{0, 0.1, 0.25, 0.4} {
		cold, warm := EncodeIntensityBalance(1, b)
		intensity, balance := DecodeIntensityBalance(cold, warm)
		assert.Assert(t, near(1, intensity))
		assert.Assert(t, math.Abs(balance-b) < 1.0/255, "balance %v decoded as %v", b, balance)
	}
}

func TestLittleEndian(t *testing.T) {
	assert.DeepEqual(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, Int64ToBytes(1))
	assert.DeepEqual(t, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, Int64ToBytes(-1))
	assert.DeepEqual(t, []byte{0x34, 0x12}, Uint16ToBytes(0x1234))
	assert.DeepEqual(t, []byte{0x30, 0x75, 0, 0, 0, 0, 0, 0}, DurationToMillisBytes(30*time.Second))
	assert.Equal(t, int64(1700000000), BytesToInt64(Int64ToBytes(1700000000)))
	assert.Equal(t, uint16(65535), BytesToUint16(Uint16ToBytes(65535)))
}
