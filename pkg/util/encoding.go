package util

import (
	"encoding/binary"
	"math"
	"time"
)

// EncodeIntensityBalance maps a light intensity and a cold/warm balance (both in [0,1])
// onto the two channel bytes sent to the peripheral. The dominant channel carries the
// intensity; the other one is scaled down towards the ends of the balance range.
func EncodeIntensityBalance(intensity, balance float64) (cold byte, warm byte) {
	var c, w float64
	if balance < 0.5 {
		c = intensity
		w = balance * 2 * intensity
	} else {
		c = (1 - balance) * 2 * intensity
		w = intensity
	}
	return channelByte(c), channelByte(w)
}

func channelByte(v float64) byte {
	x := math.RoundToEven(v * 255)
	if x != x || x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}

// DecodeIntensityBalance is the inverse of EncodeIntensityBalance for bytes read back from the peripheral.
func DecodeIntensityBalance(cold, warm byte) (intensity float64, balance float64) {
	c := float64(cold)
	w := float64(warm)
	intensity = Clamp01(math.Max(c, w) / 255)
	switch {
	case cold == 0 && warm == 0:
		balance = 0.5
	case cold == 0:
		balance = 1
	case warm == 0:
		balance = 0
	case c >= w:
		balance = w / c * 0.5
	default:
		// cold is the weaker channel
		balance = (-c/255)/2 + 1.0
	}
	return intensity, Clamp01(balance)
}

func Int64ToBytes(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func Uint16ToBytes(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

// DurationToMillisBytes encodes d as little-endian int64 milliseconds
func DurationToMillisBytes(d time.Duration) []byte {
	return Int64ToBytes(d.Milliseconds())
}

// BytesToInt64 reads the first 8 bytes of b as little-endian int64. The caller checks the length.
func BytesToInt64(b []byte) int64 {
	return int64(binary.LittleEndian.Uint64(b[:8]))
}

func BytesToUint16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b[:2])
}
