// Package scanner runs time-boxed scans for light peripherals and keeps the
// compatible and incompatible results apart.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Connector receives compatible advertisements when auto-connect is on
type Connector interface {
	Idle() bool
	Connect(adv models.Advertisement) bool
}

// Scanner is reusable: a stopped, failed or timed-out scan can always be followed by a new one
type Scanner struct {
	transport        models.Transport
	duration         time.Duration
	connector        Connector
	status           *models.Cell[models.ScanStatus]
	compatible       *models.AdvertisementMap
	incompatible     *models.AdvertisementMap
	compatibleList   *models.Cell[[]models.Advertisement]
	incompatibleList *models.Cell[[]models.Advertisement]

	ctx    context.Context
	close  context.CancelFunc
	mutex  sync.Mutex
	gen    int
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scanner. duration <= 0 uses util.ScanDuration; connector may be nil.
func New(transport models.Transport, duration time.Duration, connector Connector) *Scanner {
	if duration <= 0 {
		duration = util.ScanDuration
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scanner{
		transport:        transport,
		duration:         duration,
		connector:        connector,
		status:           models.NewCell[models.ScanStatus](models.ScanStopped{}),
		compatible:       models.NewAdvertisementMap(),
		incompatible:     models.NewAdvertisementMap(),
		compatibleList:   models.NewCell([]models.Advertisement{}),
		incompatibleList: models.NewCell([]models.Advertisement{}),
		ctx:              ctx,
		close:            cancel,
	}
}

func (s *Scanner) Status() models.Watchable[models.ScanStatus] { return s.status }

func (s *Scanner) Compatible() models.Watchable[[]models.Advertisement] { return s.compatibleList }

func (s *Scanner) Incompatible() models.Watchable[[]models.Advertisement] { return s.incompatibleList }

// Lookup finds a compatible advertisement by address
func (s *Scanner) Lookup(addr string) (models.Advertisement, bool) {
	return s.compatible.Get(addr)
}

// StartScanning begins a scan unless one is already running, in which case it
// returns false without touching the running scan's deadline.
func (s *Scanner) StartScanning(autoConnect bool) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, running := s.status.Get().(models.Scanning); running {
		log.Debug().Msg("Scan already running")
		return false
	}
	if s.ctx.Err() != nil {
		log.Warn().Msg("Scanner closed, not scanning")
		return false
	}
	s.gen++
	ctx, cancel := context.WithTimeout(s.ctx, s.duration)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.status.Set(models.Scanning{})
	log.Info().Bool("auto_connect", autoConnect).Dur("duration", s.duration).Msg("Scan started")
	go s.run(ctx, cancel, done, s.gen, autoConnect)
	return true
}

func (s *Scanner) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}, gen int, autoConnect bool) {
	defer close(done)
	defer cancel()
	err := s.transport.Scan(ctx, func(adv models.Advertisement) {
		s.handle(ctx, cancel, adv, autoConnect)
	})
	var final models.ScanStatus = models.ScanStopped{}
	if err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("Scan failed")
		final = models.ScanFailed{Message: err.Error()}
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.gen != gen {
		return
	}
	s.status.Set(final)
	log.Info().Stringer("status", final).Msg("Scan finished")
}

func (s *Scanner) handle(ctx context.Context, stop context.CancelFunc, adv models.Advertisement, autoConnect bool) {
	if ctx.Err() != nil {
		return
	}
	if adv.HasService(util.LightServiceUUID) {
		s.compatible.Set(adv)
		s.compatibleList.Set(s.compatible.Values())
		if autoConnect && s.connector != nil && s.connector.Idle() {
			log.Info().Str("addr", adv.Address).Msg("Auto-connecting to compatible peripheral")
			s.connector.Connect(adv)
			stop()
		}
		return
	}
	if adv.Name != "" {
		s.incompatible.Set(adv)
		s.incompatibleList.Set(s.incompatible.Values())
	}
}

// StopScanning cancels the running scan, if any, and waits for it to finish
func (s *Scanner) StopScanning() {
	s.mutex.Lock()
	cancel, done := s.cancel, s.done
	s.mutex.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// ClearScanResults stops scanning and forgets everything seen so far
func (s *Scanner) ClearScanResults() {
	s.StopScanning()
	s.compatible.Clear()
	s.incompatible.Clear()
	s.compatibleList.Set([]models.Advertisement{})
	s.incompatibleList.Set([]models.Advertisement{})
}

// Close stops scanning for good
func (s *Scanner) Close() {
	s.close()
	s.StopScanning()
}
