package program

import (
	"time"

	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/pkg/errors"
)

var (
	ErrUnknownTag = errors.New("unknown segment tag")
	ErrTruncated  = errors.New("truncated segment")
)

// Color is a raw (cold, warm) channel pair
type Color struct {
	Cold byte
	Warm byte
}

// Segment is one of Fixed, Ramp or Blink
type Segment interface {
	Tag() Tag
	Length() time.Duration
}

// Fixed holds Color for Duration
type Fixed struct {
	Duration time.Duration
	Color    Color
}

// Ramp fades from the current light to Color over Duration
type Ramp struct {
	Duration time.Duration
	Color    Color
}

// Blink alternates between High and Low for Duration
type Blink struct {
	Duration  time.Duration
	Low       time.Duration
	High      time.Duration
	HighColor Color
	LowColor  Color
}

func (Fixed) Tag() Tag { return TagFixed }
func (Ramp) Tag() Tag  { return TagRamp }
func (Blink) Tag() Tag { return TagBlink }

func (s Fixed) Length() time.Duration { return s.Duration }
func (s Ramp) Length() time.Duration  { return s.Duration }
func (s Blink) Length() time.Duration { return s.Duration }

// Parse walks the segments of a program. There is no length prefix; each tag
// determines how many bytes follow it.
func Parse(data []byte) ([]Segment, error) {
	segments := []Segment{}
	for offset := 0; offset < len(data); {
		tag := Tag(data[offset])
		size := SegmentSize
		if tag == TagBlink {
			size = BlinkSegmentSize
		}
		if tag > TagBlink {
			return nil, errors.Wrapf(ErrUnknownTag, "tag %d at offset %d", tag, offset)
		}
		if offset+size > len(data) {
			return nil, errors.Wrapf(ErrTruncated, "tag %d at offset %d needs %d bytes, %d left", tag, offset, size, len(data)-offset)
		}
		segments = append(segments, parseSegment(tag, data[offset+1:offset+size]))
		offset += size
	}
	return segments, nil
}

func parseSegment(tag Tag, b []byte) Segment {
	d := time.Duration(util.BytesToInt64(b)) * time.Millisecond
	switch tag {
	case TagRamp:
		return Ramp{Duration: d, Color: Color{b[8], b[9]}}
	case TagBlink:
		return Blink{
			Duration:  d,
			Low:       time.Duration(util.BytesToUint16(b[8:])) * time.Millisecond,
			High:      time.Duration(util.BytesToUint16(b[10:])) * time.Millisecond,
			HighColor: Color{b[12], b[13]},
			LowColor:  Color{b[14], b[15]},
		}
	}
	return Fixed{Duration: d, Color: Color{b[8], b[9]}}
}

// ParseAlarm splits an alarm payload into its trigger time and program
func ParseAlarm(payload []byte) (time.Time, []Segment, error) {
	if len(payload) < TriggerSize {
		return time.Time{}, nil, errors.Wrap(ErrTruncated, "alarm trigger")
	}
	trigger := time.Unix(util.BytesToInt64(payload), 0)
	segments, err := Parse(payload[TriggerSize:])
	if err != nil {
		return time.Time{}, nil, err
	}
	return trigger, segments, nil
}
