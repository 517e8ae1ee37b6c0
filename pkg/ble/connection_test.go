package ble

import (
	"context"
	"testing"
	"time"

	. "github.com/Krajiyah/ble-light/internal"
	"github.com/Krajiyah/ble-light/pkg/models"
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/go-ble/ble"
	"github.com/pkg/errors"
	"gotest.tools/assert"
)

const (
	testAddr      = "11:22:33:44:55:66"
	testOtherAddr = "22:33:44:55:66:77"
	testRSSI      = -60
)

type testCoreMethods struct {
	client  *DummyCoreClient
	dialErr error
	ads     []DummyAdv
}

func (bc *testCoreMethods) Dial(_ context.Context, a ble.Addr) (gattClient, error) {
	if bc.dialErr != nil {
		return nil, bc.dialErr
	}
	return bc.client, nil
}

func (bc *testCoreMethods) Scan(ctx context.Context, handle func(advertisement)) error {
	for _, a := range bc.ads {
		handle(a)
	}
	<-ctx.Done()
	return errors.Wrap(ctx.Err(), "can't scan")
}

func newTestTransport(methods *testCoreMethods) *Transport {
	return &Transport{methods: methods}
}

func nextState(t *testing.T, p models.Peripheral) models.ConnectionState {
	select {
	case s := <-p.States():
		return s
	case <-time.After(time.Second):
		t.Fatal("no state transition")
	}
	return nil
}

func connected(t *testing.T, client *DummyCoreClient) models.Peripheral {
	tr := newTestTransport(&testCoreMethods{client: client})
	p, err := tr.Peripheral(models.NewAdvertisement(testAddr, "", testRSSI))
	assert.NilError(t, err)
	assert.NilError(t, p.Connect(context.Background()))
	assert.Equal(t, models.Connecting{}, nextState(t, p))
	assert.Equal(t, models.Connected{}, nextState(t, p))
	return p
}

func TestScan(t *testing.T) {
	methods := &testCoreMethods{ads: []DummyAdv{
		{Address: DummyAddr{Address: testAddr}, Rssi: testRSSI, Name: "lamp"},
		{Address: DummyAddr{Address: testOtherAddr}, Rssi: -80, NonService: true},
	}}
	tr := newTestTransport(methods)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	seen := []models.Advertisement{}
	err := tr.Scan(ctx, func(a models.Advertisement) { seen = append(seen, a) })
	assert.Assert(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 2, len(seen))
	assert.Equal(t, testAddr, seen[0].Address)
	assert.Equal(t, "lamp", seen[0].Name)
	assert.Equal(t, testRSSI, seen[0].RSSI)
	assert.Assert(t, seen[0].HasService(util.LightServiceUUID))
	assert.Assert(t, !seen[1].HasService(util.LightServiceUUID))
}

func TestConnectResolvesCharacteristics(t *testing.T) {
	client := NewDummyCoreClient(LightCharUUIDs()...)
	p := connected(t, client)
	c, err := p.Characteristic(util.LightServiceUUID, util.LightStateUUID)
	assert.NilError(t, err)
	assert.Equal(t, util.LightStateUUID, c.UUID)
	_, err = p.Characteristic(util.LightServiceUUID, util.LightProgramsUUID)
	assert.ErrorContains(t, err, "No such characteristic")
}

func TestReadWrite(t *testing.T) {
	client := NewDummyCoreClient(LightCharUUIDs()...)
	client.SetReadData(util.LightStateUUID, []byte{10, 20})
	p := connected(t, client)
	c, err := p.Characteristic(util.LightServiceUUID, util.LightStateUUID)
	assert.NilError(t, err)

	data, err := p.Read(context.Background(), c)
	assert.NilError(t, err)
	assert.DeepEqual(t, []byte{10, 20}, data)

	assert.NilError(t, p.Write(context.Background(), c, []byte{1, 2}))
	writes := client.Writes()
	assert.Equal(t, 1, len(writes))
	assert.Equal(t, util.LightStateUUID, writes[0].UUID)
	assert.DeepEqual(t, []byte{1, 2}, writes[0].Value)
	assert.Assert(t, !writes[0].NoRsp)

	assert.ErrorContains(t, p.Write(context.Background(), c, nil), "empty data")
}

func TestWriteErrorIsWrapped(t *testing.T) {
	client := NewDummyCoreClient(LightCharUUIDs()...)
	p := connected(t, client)
	c, _ := p.Characteristic(util.LightServiceUUID, util.TimestampUUID)
	client.WriteErr = errors.New("att error")
	assert.ErrorContains(t, p.Write(context.Background(), c, []byte{1}), "WriteCharacteristic issue: att error")
}

func TestDialFailure(t *testing.T) {
	tr := newTestTransport(&testCoreMethods{dialErr: errors.New("no route")})
	p, err := tr.Peripheral(models.NewAdvertisement(testAddr, "", testRSSI))
	assert.NilError(t, err)
	assert.ErrorContains(t, p.Connect(context.Background()), "Dial issue: no route")
}

func TestDiscoverFailureCancels(t *testing.T) {
	client := NewDummyCoreClient(LightCharUUIDs()...)
	client.DiscoverErr = errors.New("gatt busy")
	tr := newTestTransport(&testCoreMethods{client: client})
	p, _ := tr.Peripheral(models.NewAdvertisement(testAddr, "", testRSSI))
	assert.ErrorContains(t, p.Connect(context.Background()), "DiscoverProfile issue")
	assert.Assert(t, client.WasCancelled())
}

func TestVoluntaryDisconnect(t *testing.T) {
	client := NewDummyCoreClient(LightCharUUIDs()...)
	p := connected(t, client)
	assert.NilError(t, p.Disconnect(context.Background()))
	s := nextState(t, p)
	assert.Assert(t, models.IsDisconnected(s))
	assert.Assert(t, !s.(models.Disconnected).Abnormal())
	_, err := p.Read(context.Background(), models.Characteristic{Service: util.LightServiceUUID, UUID: util.LightStateUUID})
	assert.ErrorContains(t, err, "not connected")
}

func TestLinkLoss(t *testing.T) {
	client := NewDummyCoreClient(LightCharUUIDs()...)
	p := connected(t, client)
	client.Drop()
	s := nextState(t, p)
	d, ok := s.(models.Disconnected)
	assert.Assert(t, ok)
	assert.Assert(t, d.Abnormal())
	assert.Equal(t, models.StatusLinkLost, *d.Status)
}

func TestPeripheralNeedsAddress(t *testing.T) {
	_, err := newTestTransport(&testCoreMethods{}).Peripheral(models.Advertisement{})
	assert.ErrorContains(t, err, "no address")
}
