// Package client holds the device session: the connection lifecycle of one light
// peripheral and every write the controller sends to it.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options tune a Session. The zero value is usable.
type Options struct {
	// LightStateRate caps light-state writes per second; zero means unlimited.
	LightStateRate    float64
	Clock             util.Clock
	DisconnectTimeout time.Duration
}

// Session owns at most one connection to a light peripheral at a time
type Session struct {
	transport         models.Transport
	clock             util.Clock
	limiter           *rate.Limiter
	disconnectTimeout time.Duration
	lightState        *models.Cell[models.LightState]
	connState         *models.Cell[models.ConnectionState]
	connections       *models.Cell[uint64]
	mutex             sync.Mutex
	link              *link
}

type handles struct {
	alarmArray models.Characteristic
	lightState models.Characteristic
	timestamp  models.Characteristic
}

// link is the scope of one connection attempt. Every goroutine it starts stops when ctx is cancelled.
type link struct {
	id         string
	peripheral models.Peripheral
	ctx        context.Context
	cancel     context.CancelFunc
	group      *errgroup.Group
	handles    *handles
	closing    bool
}

func (l *link) logger() zerolog.Logger {
	return log.With().Str("conn_id", l.id).Str("addr", l.peripheral.Address()).Logger()
}

func NewSession(transport models.Transport, opts Options) *Session {
	limit := rate.Inf
	if opts.LightStateRate > 0 {
		limit = rate.Limit(opts.LightStateRate)
	}
	if opts.Clock == nil {
		opts.Clock = util.SystemClock{}
	}
	if opts.DisconnectTimeout <= 0 {
		opts.DisconnectTimeout = util.DisconnectTimeout
	}
	return &Session{
		transport:         transport,
		clock:             opts.Clock,
		limiter:           rate.NewLimiter(limit, 1),
		disconnectTimeout: opts.DisconnectTimeout,
		lightState:        models.NewCell(models.DefaultLightState()),
		connState:         models.NewCell[models.ConnectionState](models.Disconnected{}),
		connections:       models.NewCell[uint64](0),
	}
}

func (s *Session) LightState() models.Watchable[models.LightState] { return s.lightState }

func (s *Session) ConnectionState() models.Watchable[models.ConnectionState] { return s.connState }

// Connections counts the connections established so far. Unlike ConnectionState,
// a subscriber that falls behind still sees every reconnect as a new value.
func (s *Session) Connections() models.Watchable[uint64] { return s.connections }

// Idle reports whether a Connect call would be accepted
func (s *Session) Idle() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.link == nil && models.IsDisconnected(s.connState.Get())
}

// Address returns the address of the current or pending peripheral, or ""
func (s *Session) Address() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.link == nil {
		return ""
	}
	return s.link.peripheral.Address()
}

// Connect starts connecting to adv in the background. It returns false, and does
// nothing else, unless the session is Disconnected with no connection in flight.
func (s *Session) Connect(adv models.Advertisement) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.link != nil || !models.IsDisconnected(s.connState.Get()) {
		log.Warn().Str("addr", adv.Address).Stringer("state", s.connState.Get()).Msg("Connect rejected, session is busy")
		return false
	}
	p, err := s.transport.Peripheral(adv)
	if err != nil {
		log.Error().Err(err).Str("addr", adv.Address).Msg("Could not create peripheral")
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	l := &link{id: uuid.NewString(), peripheral: p, ctx: gctx, cancel: cancel, group: group}
	s.link = l
	s.connState.Set(models.Connecting{})
	logger := l.logger()
	logger.Info().Msg("Connecting")
	group.Go(func() error {
		s.observe(l)
		return nil
	})
	group.Go(func() error {
		s.establish(l)
		return nil
	})
	return true
}

func (s *Session) establish(l *link) {
	if err := l.peripheral.Connect(l.ctx); err != nil {
		s.fail(l, errors.Wrap(err, "transport connect"))
		return
	}
	h, err := resolve(l.peripheral)
	if err != nil {
		s.fail(l, err)
		return
	}
	s.mutex.Lock()
	if s.link != l || l.closing {
		s.mutex.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), s.disconnectTimeout)
		defer cancel()
		l.peripheral.Disconnect(ctx)
		return
	}
	l.handles = h
	s.connState.Set(models.Connected{})
	s.connections.Update(func(n uint64) uint64 { return n + 1 })
	s.mutex.Unlock()
	logger := l.logger()
	logger.Info().Msg("Connected")
	if err := s.refreshLightState(l); err != nil {
		s.fail(l, err)
	}
}

func resolve(p models.Peripheral) (*handles, error) {
	h := &handles{}
	var err error
	if h.alarmArray, err = p.Characteristic(util.LightServiceUUID, util.AlarmArrayUUID); err != nil {
		return nil, errors.Wrap(err, "resolve alarm array")
	}
	if h.lightState, err = p.Characteristic(util.LightServiceUUID, util.LightStateUUID); err != nil {
		return nil, errors.Wrap(err, "resolve light state")
	}
	if h.timestamp, err = p.Characteristic(util.LightServiceUUID, util.TimestampUUID); err != nil {
		return nil, errors.Wrap(err, "resolve timestamp")
	}
	return h, nil
}

// refreshLightState adopts the peripheral's light and writes it straight back
func (s *Session) refreshLightState(l *link) error {
	data, err := l.peripheral.Read(l.ctx, l.handles.lightState)
	if err != nil {
		return errors.Wrap(err, "read light state")
	}
	if len(data) < 2 {
		return errors.Errorf("light state payload has %d bytes, want 2", len(data))
	}
	intensity, balance := util.DecodeIntensityBalance(data[0], data[1])
	s.lightState.Set(models.LightState{Intensity: intensity, ColorTemperatureBalance: balance})
	return s.pushLightState(l.ctx)
}

func (s *Session) fail(l *link, err error) {
	if l.ctx.Err() != nil {
		return
	}
	logger := l.logger()
	logger.Error().Err(err).Msg("Connection failed")
	s.teardown(context.Background(), l, models.StatusOf(models.StatusConnectFailed))
}

func (s *Session) observe(l *link) {
	for {
		select {
		case <-l.ctx.Done():
			return
		case st := <-l.peripheral.States():
			if d, ok := st.(models.Disconnected); ok && d.Abnormal() {
				logger := l.logger()
				logger.Warn().Stringer("status", d.Status).Msg("Peripheral disconnected unexpectedly")
				s.teardown(context.Background(), l, d.Status)
				return
			}
		}
	}
}

// Disconnect tears down the current connection, if any, and waits for its goroutines
func (s *Session) Disconnect(ctx context.Context) {
	s.mutex.Lock()
	l := s.link
	s.mutex.Unlock()
	if l == nil {
		log.Debug().Msg("Disconnect: no active connection")
		return
	}
	s.teardown(ctx, l, nil)
	l.group.Wait()
}

// teardown never waits for l's goroutines so they can call it themselves
func (s *Session) teardown(ctx context.Context, l *link, status *models.DisconnectStatus) {
	s.mutex.Lock()
	if s.link != l || l.closing {
		s.mutex.Unlock()
		return
	}
	l.closing = true
	s.connState.Set(models.Disconnecting{})
	s.mutex.Unlock()

	logger := l.logger()
	dctx, cancel := context.WithTimeout(ctx, s.disconnectTimeout)
	defer cancel()
	err := util.Timeout(func() error { return l.peripheral.Disconnect(dctx) }, s.disconnectTimeout)
	if err != nil {
		logger.Warn().Err(err).Msg("Transport disconnect failed")
	}

	s.mutex.Lock()
	s.link = nil
	l.cancel()
	s.connState.Set(models.Disconnected{Status: status})
	s.mutex.Unlock()
	logger.Info().Stringer("state", models.Disconnected{Status: status}).Msg("Disconnected")
}
