package server

import (
	"context"
	"math"
	"time"

	"github.com/Krajiyah/ble-light/pkg/program"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RampStep is how often a ramp updates the light
const RampStep = 20 * time.Millisecond

type Light interface {
	Light() program.Color
	SetLight(program.Color)
}

// Player drives a Light through program segments
type Player struct {
	light Light
	step  time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPlayer(light Light) *Player {
	return &Player{light: light, step: RampStep, sleep: sleep}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Play runs the segments in order and stops early when ctx is cancelled
func (p *Player) Play(ctx context.Context, segments []program.Segment) error {
	for _, s := range segments {
		var err error
		switch v := s.(type) {
		case program.Fixed:
			log.Debug().Dur("duration", v.Duration).Msg("Fixed segment")
			p.light.SetLight(v.Color)
			err = p.sleep(ctx, v.Duration)
		case program.Ramp:
			log.Debug().Dur("duration", v.Duration).Msg("Ramp segment")
			err = p.ramp(ctx, v)
		case program.Blink:
			log.Debug().Dur("duration", v.Duration).Msg("Blink segment")
			err = p.blink(ctx, v)
		default:
			err = errors.Errorf("unknown segment %T", s)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Player) ramp(ctx context.Context, r program.Ramp) error {
	start := p.light.Light()
	steps := int(r.Duration / p.step)
	if steps < 1 {
		steps = 1
	}
	interval := r.Duration / time.Duration(steps)
	for i := 1; i <= steps; i++ {
		p.light.SetLight(program.Color{
			Cold: interpolate(start.Cold, r.Color.Cold, i, steps),
			Warm: interpolate(start.Warm, r.Color.Warm, i, steps),
		})
		if err := p.sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

func interpolate(from, to byte, i, n int) byte {
	return byte(math.Round(float64(from) + float64(int(to)-int(from))*float64(i)/float64(n)))
}

// blink alternates High and Low phases and puts the light back the way it found it
func (p *Player) blink(ctx context.Context, b program.Blink) error {
	start := p.light.Light()
	defer p.light.SetLight(start)
	if b.High+b.Low <= 0 {
		p.light.SetLight(b.HighColor)
		return p.sleep(ctx, b.Duration)
	}
	remaining := b.Duration
	phases := []struct {
		color program.Color
		d     time.Duration
	}{{b.HighColor, b.High}, {b.LowColor, b.Low}}
	for remaining > 0 {
		for _, phase := range phases {
			if remaining <= 0 {
				break
			}
			d := min(phase.d, remaining)
			p.light.SetLight(phase.color)
			if err := p.sleep(ctx, d); err != nil {
				return err
			}
			remaining -= d
		}
	}
	return nil
}
