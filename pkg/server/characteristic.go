package server

import (
	"github.com/Krajiyah/ble-light/pkg/util"
	"github.com/go-ble/ble"
	"github.com/rs/zerolog/log"
)

func getAddrFromReq(req ble.Request) string {
	return util.NormalizeAddr(req.Conn().RemoteAddr().String())
}

func newWriteChar(uuid string, onWrite func(data []byte) error) *ble.Characteristic {
	c := ble.NewCharacteristic(ble.MustParse(uuid))
	c.HandleWrite(ble.WriteHandlerFunc(generateWriteHandler(uuid, onWrite)))
	return c
}

func newReadChar(uuid string, load func() []byte) *ble.Characteristic {
	c := ble.NewCharacteristic(ble.MustParse(uuid))
	c.HandleRead(ble.ReadHandlerFunc(generateReadHandler(uuid, load)))
	return c
}

func newReadWriteChar(uuid string, load func() []byte, onWrite func(data []byte) error) *ble.Characteristic {
	c := newWriteChar(uuid, onWrite)
	c.HandleRead(ble.ReadHandlerFunc(generateReadHandler(uuid, load)))
	return c
}

func generateWriteHandler(uuid string, onWrite func(data []byte) error) func(req ble.Request, rsp ble.ResponseWriter) {
	return func(req ble.Request, rsp ble.ResponseWriter) {
		addr := getAddrFromReq(req)
		if err := onWrite(req.Data()); err != nil {
			log.Warn().Err(err).Str("addr", addr).Str("characteristic", uuid).Msg("Rejected write")
			rsp.SetStatus(ble.ErrUnlikely)
			return
		}
		log.Debug().Str("addr", addr).Str("characteristic", uuid).Int("len", len(req.Data())).Msg("Write handled")
	}
}

func generateReadHandler(uuid string, load func() []byte) func(req ble.Request, rsp ble.ResponseWriter) {
	return func(req ble.Request, rsp ble.ResponseWriter) {
		log.Debug().Str("addr", getAddrFromReq(req)).Str("characteristic", uuid).Msg("Read handled")
		if _, err := rsp.Write(load()); err != nil {
			log.Warn().Err(err).Str("characteristic", uuid).Msg("Read response too long")
		}
	}
}
