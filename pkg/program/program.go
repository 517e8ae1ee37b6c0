// Package program encodes alarm light programs into the byte layout the
// peripheral stores, and parses that layout back into segments.
package program

import (
	"math"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
)

// Tag is the first byte of every segment
type Tag byte

const (
	TagFixed Tag = 0
	TagRamp  Tag = 1
	TagBlink Tag = 2
)

const (
	// SegmentSize is the length of a fixed or ramp segment
	SegmentSize = 11
	// BlinkSegmentSize is the length of a blink segment
	BlinkSegmentSize = 17
	// TriggerSize is the epoch-seconds prefix of an alarm payload
	TriggerSize = 8
)

// Encode turns an action into segments: an optional ramp, the fixed target, and an optional blink.
func Encode(action models.AlarmAction) []byte {
	cold, warm := util.EncodeIntensityBalance(action.TargetIntensity, action.ColorTemperatureBalance)
	out := make([]byte, 0, SegmentSize*2+BlinkSegmentSize)
	if action.HasRamp {
		out = appendSegment(out, TagRamp, action.RampDuration, cold, warm)
	}
	out = appendSegment(out, TagFixed, action.TargetDuration, cold, warm)
	if action.ShouldBlink {
		half := HalfPeriod(action.BlinkPeriodLength)
		offCold, offWarm := util.EncodeIntensityBalance(0, 0)
		out = append(out, byte(TagBlink))
		out = append(out, util.DurationToMillisBytes(action.BlinkDuration)...)
		out = append(out, util.Uint16ToBytes(half)...)
		out = append(out, util.Uint16ToBytes(half)...)
		out = append(out, cold, warm, offCold, offWarm)
	}
	return out
}

// EncodeAlarm prefixes the program with the trigger time in epoch seconds
func EncodeAlarm(trigger time.Time, action models.AlarmAction) []byte {
	return append(util.Int64ToBytes(trigger.Unix()), Encode(action)...)
}

// HalfPeriod is half the blink period in milliseconds, clamped to what fits in a uint16
func HalfPeriod(period time.Duration) uint16 {
	half := period.Milliseconds() / 2
	if half < 0 {
		return 0
	}
	if half > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(half)
}

func appendSegment(out []byte, tag Tag, d time.Duration, cold, warm byte) []byte {
	out = append(out, byte(tag))
	out = append(out, util.DurationToMillisBytes(d)...)
	return append(out, cold, warm)
}
