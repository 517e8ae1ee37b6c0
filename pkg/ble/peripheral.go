package ble

import (
	"context"
	"sync"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const stateBufferSize = 8

type peripheral struct {
	methods         coreMethods
	addr            string
	mutex           sync.Mutex
	cln             gattClient
	characteristics map[string]*ble.Characteristic
	voluntary       bool
	states          chan models.ConnectionState
}

func newPeripheral(methods coreMethods, addr string) *peripheral {
	return &peripheral{
		methods: methods, addr: addr,
		characteristics: map[string]*ble.Characteristic{},
		states:          make(chan models.ConnectionState, stateBufferSize),
	}
}

func charKey(service, uuid string) string {
	return util.NormalizeUUID(service) + "/" + util.NormalizeUUID(uuid)
}

func (p *peripheral) Address() string                       { return p.addr }
func (p *peripheral) States() <-chan models.ConnectionState { return p.states }

func (p *peripheral) emit(s models.ConnectionState) {
	select {
	case p.states <- s:
	default:
		log.Warn().Str("addr", p.addr).Stringer("state", s).Msg("state buffer full, dropping transition")
	}
}

func (p *peripheral) Connect(ctx context.Context) error {
	p.emit(models.Connecting{})
	cln, err := p.methods.Dial(ctx, ble.NewAddr(p.addr))
	if err != nil {
		return errors.Wrap(err, "Dial issue")
	}
	chars := map[string]*ble.Characteristic{}
	err = util.CatchErrs(func() error {
		_, err := cln.ExchangeMTU(util.MTU)
		if err != nil {
			return errors.Wrap(err, "ExchangeMTU issue")
		}
		prof, err := cln.DiscoverProfile(true)
		if err != nil {
			return errors.Wrap(err, "DiscoverProfile issue")
		}
		for _, s := range prof.Services {
			for _, c := range s.Characteristics {
				chars[charKey(UuidToStr(s.UUID), UuidToStr(c.UUID))] = c
			}
		}
		return nil
	})
	if err != nil {
		cln.CancelConnection()
		return err
	}
	p.mutex.Lock()
	p.cln = cln
	p.characteristics = chars
	p.voluntary = false
	p.mutex.Unlock()
	go p.watch(cln)
	p.emit(models.Connected{})
	return nil
}

func (p *peripheral) watch(cln gattClient) {
	<-cln.Disconnected()
	p.mutex.Lock()
	voluntary := p.voluntary
	if p.cln == cln {
		p.cln = nil
		p.characteristics = map[string]*ble.Characteristic{}
	}
	p.mutex.Unlock()
	if voluntary {
		p.emit(models.Disconnected{})
		return
	}
	p.emit(models.Disconnected{Status: models.StatusOf(models.StatusLinkLost)})
}

func (p *peripheral) Disconnect(ctx context.Context) error {
	p.mutex.Lock()
	cln := p.cln
	p.voluntary = true
	p.mutex.Unlock()
	if cln == nil {
		return nil
	}
	return withContext(ctx, cln.CancelConnection)
}

func (p *peripheral) Characteristic(service, uuid string) (models.Characteristic, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if _, ok := p.characteristics[charKey(service, uuid)]; !ok {
		return models.Characteristic{}, errors.Errorf("No such characteristic (%s) in service (%s) advertised from %s", uuid, service, p.addr)
	}
	return models.Characteristic{Service: util.NormalizeUUID(service), UUID: util.NormalizeUUID(uuid)}, nil
}
