package client

import (
	"context"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func (s *Session) active() (*link, *handles) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	l := s.link
	if l == nil || l.closing || l.handles == nil || l.ctx.Err() != nil || !models.IsConnected(s.connState.Get()) {
		return nil, nil
	}
	return l, l.handles
}

func (s *Session) isConnected() bool {
	l, _ := s.active()
	return l != nil
}

// write is the only path to the peripheral. A transport failure disconnects; nothing is retried.
func (s *Session) write(ctx context.Context, pick func(*handles) models.Characteristic, data []byte) error {
	l, h := s.active()
	if l == nil {
		log.Warn().Msg("Write skipped, not connected")
		return ErrNotConnected
	}
	c := pick(h)
	wctx, cancel := context.WithCancel(l.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := l.peripheral.Write(wctx, c, data)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if l.ctx.Err() != nil {
		return errors.Wrap(ErrNotConnected, "connection closed during write")
	}
	logger := l.logger()
	logger.Error().Err(err).Str("characteristic", c.UUID).Msg("Write failed, disconnecting")
	s.teardown(context.Background(), l, models.StatusOf(models.StatusWriteFailed))
	return errors.Wrap(ErrWriteFailed, err.Error())
}

func (s *Session) pushLightState(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	st := s.lightState.Get()
	cold, warm := util.EncodeIntensityBalance(st.Intensity, st.ColorTemperatureBalance)
	return s.write(ctx, func(h *handles) models.Characteristic { return h.lightState }, []byte{cold, warm})
}

// SetIntensity clamps v to [0,1], stores it, and mirrors the light to the peripheral when connected
func (s *Session) SetIntensity(ctx context.Context, v float64) {
	s.lightState.Update(func(st models.LightState) models.LightState {
		st.Intensity = util.Clamp01(v)
		return st
	})
	s.mirror(ctx)
}

// SetColorTemperatureBalance clamps v to [0,1], stores it, and mirrors the light to the peripheral when connected
func (s *Session) SetColorTemperatureBalance(ctx context.Context, v float64) {
	s.lightState.Update(func(st models.LightState) models.LightState {
		st.ColorTemperatureBalance = util.Clamp01(v)
		return st
	})
	s.mirror(ctx)
}

func (s *Session) mirror(ctx context.Context) {
	if !s.isConnected() {
		return
	}
	if err := s.pushLightState(ctx); err != nil {
		log.Warn().Err(err).Msg("Light state not sent")
	}
}
