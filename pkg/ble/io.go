package ble

import (
	"context"

	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/go-ble/ble"
	"github.com/pkg/errors"
)

// withContext runs a blocking go-ble call and gives up when ctx is done.
// go-ble calls are not cancellable, so the call itself may outlive ctx.
func withContext(ctx context.Context, fn func() error) error {
	ch := make(chan error, 1)
	go func() { ch <- util.CatchErrs(fn) }()
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *peripheral) getCharacteristic(c models.Characteristic) (gattClient, *ble.Characteristic, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.cln == nil {
		return nil, nil, errors.Errorf("not connected to %s", p.addr)
	}
	char, ok := p.characteristics[charKey(c.Service, c.UUID)]
	if !ok {
		return nil, nil, errors.Errorf("No such uuid (%s) in characteristics advertised from %s", c.UUID, p.addr)
	}
	return p.cln, char, nil
}

func (p *peripheral) Read(ctx context.Context, c models.Characteristic) ([]byte, error) {
	cln, char, err := p.getCharacteristic(c)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = withContext(ctx, func() error {
		d, e := cln.ReadCharacteristic(char)
		data = d
		return errors.Wrap(e, "ReadCharacteristic issue")
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (p *peripheral) Write(ctx context.Context, c models.Characteristic, data []byte) error {
	if len(data) == 0 {
		return errors.New("empty data to write")
	}
	cln, char, err := p.getCharacteristic(c)
	if err != nil {
		return err
	}
	return withContext(ctx, func() error {
		return errors.Wrap(cln.WriteCharacteristic(char, data, false), "WriteCharacteristic issue")
	})
}
