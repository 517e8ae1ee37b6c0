// Package controller owns the one device session and the scanner that feeds it.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/Krajiyah/ble-light/pkg/client"
	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/scanner"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrUnknownDevice is returned when an address was never seen as a compatible advertisement
var ErrUnknownDevice = errors.New("no compatible device with that address")

type Options struct {
	Session      client.Options
	ScanDuration time.Duration
}

// Controller keeps at most one connection alive. Scanner auto-connect and
// explicit connects both land on the same Session.
type Controller struct {
	Session *client.Session
	Scanner *scanner.Scanner
	mutex   sync.Mutex
}

func New(transport models.Transport, opts Options) *Controller {
	session := client.NewSession(transport, opts.Session)
	return &Controller{
		Session: session,
		Scanner: scanner.New(transport, opts.ScanDuration, session),
	}
}

func (c *Controller) StartScanning(autoConnect bool) bool {
	return c.Scanner.StartScanning(autoConnect)
}

func (c *Controller) StopScanning() { c.Scanner.StopScanning() }

func (c *Controller) ClearScanResults() { c.Scanner.ClearScanResults() }

func (c *Controller) SetIntensity(ctx context.Context, v float64) {
	c.Session.SetIntensity(ctx, v)
}

func (c *Controller) SetColorTemperatureBalance(ctx context.Context, v float64) {
	c.Session.SetColorTemperatureBalance(ctx, v)
}

// Connect switches the session to adv, disconnecting whatever it was attached to first
func (c *Controller) Connect(ctx context.Context, adv models.Advertisement) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.Session.Idle() {
		log.Info().Str("addr", c.Session.Address()).Str("next", adv.Address).Msg("Switching peripheral")
		c.Session.Disconnect(ctx)
	}
	return c.Session.Connect(adv)
}

// ConnectAddress connects to a device from the compatible scan results
func (c *Controller) ConnectAddress(ctx context.Context, addr string) error {
	if current := c.Session.Address(); current != "" && util.AddrEqualAddr(current, addr) {
		log.Debug().Str("addr", current).Msg("Already attached to that peripheral")
		return nil
	}
	adv, ok := c.Scanner.Lookup(addr)
	if !ok {
		return errors.Wrap(ErrUnknownDevice, addr)
	}
	if !c.Connect(ctx, adv) {
		return errors.Errorf("could not start connecting to %s", addr)
	}
	return nil
}

func (c *Controller) Disconnect(ctx context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.Session.Disconnect(ctx)
}

// Close stops scanning for good and drops the connection
func (c *Controller) Close(ctx context.Context) {
	c.Scanner.Close()
	c.Disconnect(ctx)
}
