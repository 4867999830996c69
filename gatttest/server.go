package gatttest

import (
	"bytes"
	"encoding/binary"
	"time"

	gatt "github.com/XC-/gattlib"
	"github.com/XC-/gattlib/att"
)

// serverConn serves one link. readLoop counts a request as in flight
// from arrival until serve has produced its response, so a client that
// does not wait for responses shows up in MaxInFlight.
type serverConn struct {
	p    *Peripheral
	l    *pipeEnd
	mtu  uint16 // guarded by p.mu
	reqs chan []byte
}

func (sc *serverConn) readLoop() {
	defer close(sc.reqs)
	b := make([]byte, att.MaxMTU)
	for {
		n, err := sc.l.Read(b)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		pdu := append([]byte(nil), b[:n]...)
		sc.p.mu.Lock()
		log := sc.p.log
		switch {
		case pdu[0] == att.OpHandleCnf:
			sc.p.cnfs++
		case att.IsRequest(pdu[0]):
			sc.p.requests++
			sc.p.inflight++
			if sc.p.inflight > sc.p.maxIn {
				sc.p.maxIn = sc.p.inflight
			}
		}
		sc.p.mu.Unlock()
		log.Tracef("srv R: [ % X ]", pdu)
		if pdu[0] != att.OpHandleCnf {
			sc.reqs <- pdu
		}
	}
}

func (sc *serverConn) serve() {
	for pdu := range sc.reqs {
		sc.p.mu.Lock()
		delay := sc.p.respDelay
		sc.p.mu.Unlock()
		if delay > 0 && att.IsRequest(pdu[0]) {
			select {
			case <-time.After(delay):
			case <-sc.l.s.done:
				return
			}
		}

		sc.p.mu.Lock()
		rsp := sc.handle(pdu)
		if att.IsRequest(pdu[0]) {
			sc.p.inflight--
		}
		sc.p.mu.Unlock()

		if rsp != nil {
			sc.write(rsp)
		}
	}
}

func (sc *serverConn) write(pdu []byte) {
	sc.p.mu.Lock()
	log := sc.p.log
	sc.p.mu.Unlock()
	log.Tracef("srv W: [ % X ]", pdu)
	sc.l.Write(pdu)
}

// handle returns the response to pdu, or nil. It runs with p.mu held.
func (sc *serverConn) handle(pdu []byte) []byte {
	op := pdu[0]
	switch op {
	case att.OpMtuReq:
		return sc.handleMTU(pdu)
	case att.OpReadByGroupReq:
		return sc.handleReadByGroup(pdu)
	case att.OpReadByTypeReq:
		return sc.handleReadByType(pdu)
	case att.OpFindInfoReq:
		return sc.handleFindInfo(pdu)
	case att.OpReadReq:
		return sc.handleRead(pdu)
	case att.OpReadBlobReq:
		return sc.handleReadBlob(pdu)
	case att.OpWriteReq, att.OpWriteCmd:
		return sc.handleWrite(pdu)
	}
	if att.IsRequest(op) {
		return att.ErrorResp(op, 0, att.EcodeReqNotSupp)
	}
	return nil
}

func (sc *serverConn) handleMTU(pdu []byte) []byte {
	mtu, err := att.ParseMtu(pdu)
	if err != nil {
		return att.ErrorResp(pdu[0], 0, att.EcodeInvalidPDU)
	}
	if mtu > sc.p.mtu {
		mtu = sc.p.mtu
	}
	if mtu < att.DefaultMTU {
		mtu = att.DefaultMTU
	}
	sc.mtu = mtu
	return att.MtuResp(sc.p.mtu)
}

// parseRange decodes the [start, end] and little-endian type of a
// range request.
func parseRange(pdu []byte) (start, end uint16, typ []byte, ecode byte) {
	if len(pdu) != 7 && len(pdu) != 21 {
		return 0, 0, nil, att.EcodeInvalidPDU
	}
	start = binary.LittleEndian.Uint16(pdu[1:])
	end = binary.LittleEndian.Uint16(pdu[3:])
	if start == 0 || start > end {
		return start, end, nil, att.EcodeInvalidHandle
	}
	return start, end, pdu[5:], 0
}

func (sc *serverConn) handleReadByGroup(pdu []byte) []byte {
	start, end, typ, ecode := parseRange(pdu)
	if ecode != 0 {
		return att.ErrorResp(pdu[0], start, ecode)
	}
	if !bytes.Equal(typ, gatt.PrimaryServiceUUID.Bytes()) {
		return att.ErrorResp(pdu[0], start, att.EcodeUnsuppGrpType)
	}

	b := []byte{att.OpReadByGroupResp, 0}
	for _, a := range sc.p.attrs.Subrange(start, end) {
		if !a.isService() {
			continue
		}
		n := 4 + len(a.value)
		if b[1] == 0 {
			b[1] = byte(n)
		}
		if int(b[1]) != n || len(b)+n > int(sc.mtu) {
			break
		}
		b = binary.LittleEndian.AppendUint16(b, a.h)
		b = binary.LittleEndian.AppendUint16(b, a.endh)
		b = append(b, a.value...)
	}
	if len(b) == 2 {
		return att.ErrorResp(pdu[0], start, att.EcodeAttrNotFound)
	}
	return b
}

func (sc *serverConn) handleReadByType(pdu []byte) []byte {
	start, end, typ, ecode := parseRange(pdu)
	if ecode != 0 {
		return att.ErrorResp(pdu[0], start, ecode)
	}

	b := []byte{att.OpReadByTypeResp, 0}
	for _, a := range sc.p.attrs.Subrange(start, end) {
		if !bytes.Equal(a.typ.Bytes(), typ) {
			continue
		}
		if code, ok := sc.p.fail[a.h]; ok {
			if len(b) == 2 {
				return att.ErrorResp(pdu[0], a.h, code)
			}
			break
		}
		v := a.value
		if lim := int(sc.mtu) - 4; len(v) > lim {
			v = v[:lim]
		}
		if lim := 253; len(v) > lim {
			v = v[:lim]
		}
		n := 2 + len(v)
		if b[1] == 0 {
			b[1] = byte(n)
		}
		if int(b[1]) != n || len(b)+n > int(sc.mtu) {
			break
		}
		b = binary.LittleEndian.AppendUint16(b, a.h)
		b = append(b, v...)
	}
	if len(b) == 2 {
		return att.ErrorResp(pdu[0], start, att.EcodeAttrNotFound)
	}
	return b
}

func (sc *serverConn) handleFindInfo(pdu []byte) []byte {
	if len(pdu) != 5 {
		return att.ErrorResp(pdu[0], 0, att.EcodeInvalidPDU)
	}
	start := binary.LittleEndian.Uint16(pdu[1:])
	end := binary.LittleEndian.Uint16(pdu[3:])
	if start == 0 || start > end {
		return att.ErrorResp(pdu[0], start, att.EcodeInvalidHandle)
	}

	b := []byte{att.OpFindInfoResp, 0}
	for _, a := range sc.p.attrs.Subrange(start, end) {
		format := byte(0x01)
		if a.typ.Len() == 16 {
			format = 0x02
		}
		if b[1] == 0 {
			b[1] = format
		}
		if b[1] != format || len(b)+2+a.typ.Len() > int(sc.mtu) {
			break
		}
		b = binary.LittleEndian.AppendUint16(b, a.h)
		b = append(b, a.typ.Bytes()...)
	}
	if len(b) == 2 {
		return att.ErrorResp(pdu[0], start, att.EcodeAttrNotFound)
	}
	return b
}

// lookup resolves h for an access needing need, returning an error code on failure.
func (sc *serverConn) lookup(h uint16, need gatt.Property) (*attr, byte) {
	a, ok := sc.p.attrs.At(h)
	if h == 0 || !ok {
		return nil, att.EcodeInvalidHandle
	}
	if code, ok := sc.p.fail[h]; ok {
		return nil, code
	}
	if a.props&need == 0 {
		if need == gatt.PropRead {
			return nil, att.EcodeReadNotPerm
		}
		return nil, att.EcodeWriteNotPerm
	}
	return a, 0
}

func (sc *serverConn) handleRead(pdu []byte) []byte {
	if len(pdu) != 3 {
		return att.ErrorResp(pdu[0], 0, att.EcodeInvalidPDU)
	}
	h := binary.LittleEndian.Uint16(pdu[1:])
	a, code := sc.lookup(h, gatt.PropRead)
	if code != 0 {
		return att.ErrorResp(pdu[0], h, code)
	}
	v := a.value
	if lim := int(sc.mtu) - 1; len(v) > lim {
		v = v[:lim]
	}
	return append([]byte{att.OpReadResp}, v...)
}

func (sc *serverConn) handleReadBlob(pdu []byte) []byte {
	if len(pdu) != 5 {
		return att.ErrorResp(pdu[0], 0, att.EcodeInvalidPDU)
	}
	h := binary.LittleEndian.Uint16(pdu[1:])
	off := int(binary.LittleEndian.Uint16(pdu[3:]))
	a, code := sc.lookup(h, gatt.PropRead)
	if code != 0 {
		return att.ErrorResp(pdu[0], h, code)
	}
	if off > len(a.value) {
		return att.ErrorResp(pdu[0], h, att.EcodeInvalidOffset)
	}
	v := a.value[off:]
	if lim := int(sc.mtu) - 1; len(v) > lim {
		v = v[:lim]
	}
	return append([]byte{att.OpReadBlobResp}, v...)
}

func (sc *serverConn) handleWrite(pdu []byte) []byte {
	op := pdu[0]
	cmd := op == att.OpWriteCmd
	if len(pdu) < 3 {
		if cmd {
			return nil
		}
		return att.ErrorResp(op, 0, att.EcodeInvalidPDU)
	}
	h := binary.LittleEndian.Uint16(pdu[1:])
	need := gatt.PropWrite
	if cmd {
		need = gatt.PropWriteNR
	}
	a, code := sc.lookup(h, need)
	if code != 0 {
		if cmd {
			return nil
		}
		return att.ErrorResp(op, h, code)
	}
	v := append([]byte(nil), pdu[3:]...)
	a.value = v
	sc.p.writes = append(sc.p.writes, Write{Handle: h, Value: v, Command: cmd})
	if cmd {
		return nil
	}
	return []byte{att.OpWriteResp}
}
