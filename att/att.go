// Package att encodes and decodes Attribute Protocol PDUs.
//
// It is shared by the GATT client and by the in-memory peripheral in
// gatttest, so both sides of a link agree on the wire format.
package att

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Opcodes [Vol 3, Part F, 3.4.8].
const (
	OpError           = 0x01
	OpMtuReq          = 0x02
	OpMtuResp         = 0x03
	OpFindInfoReq     = 0x04
	OpFindInfoResp    = 0x05
	OpFindByTypeReq   = 0x06
	OpFindByTypeResp  = 0x07
	OpReadByTypeReq   = 0x08
	OpReadByTypeResp  = 0x09
	OpReadReq         = 0x0a
	OpReadResp        = 0x0b
	OpReadBlobReq     = 0x0c
	OpReadBlobResp    = 0x0d
	OpReadMultiReq    = 0x0e
	OpReadMultiResp   = 0x0f
	OpReadByGroupReq  = 0x10
	OpReadByGroupResp = 0x11
	OpWriteReq        = 0x12
	OpWriteResp       = 0x13
	OpWriteCmd        = 0x52
	OpPrepWriteReq    = 0x16
	OpPrepWriteResp   = 0x17
	OpExecWriteReq    = 0x18
	OpExecWriteResp   = 0x19
	OpHandleNotify    = 0x1b
	OpHandleInd       = 0x1d
	OpHandleCnf       = 0x1e
	OpSignedWriteCmd  = 0xd2
)

// Error codes carried by an Error Response.
const (
	EcodeSuccess           = 0x00
	EcodeInvalidHandle     = 0x01
	EcodeReadNotPerm       = 0x02
	EcodeWriteNotPerm      = 0x03
	EcodeInvalidPDU        = 0x04
	EcodeAuthentication    = 0x05
	EcodeReqNotSupp        = 0x06
	EcodeInvalidOffset     = 0x07
	EcodeAuthorization     = 0x08
	EcodePrepQueueFull     = 0x09
	EcodeAttrNotFound      = 0x0a
	EcodeAttrNotLong       = 0x0b
	EcodeInsuffEncrKeySize = 0x0c
	EcodeInvalAttrValueLen = 0x0d
	EcodeUnlikely          = 0x0e
	EcodeInsuffEnc         = 0x0f
	EcodeUnsuppGrpType     = 0x10
	EcodeInsuffResources   = 0x11
)

const (
	// DefaultMTU is ATT_MTU for LE before any exchange.
	DefaultMTU = 23

	// MaxMTU is the largest ATT_MTU a client may propose.
	MaxMTU = 517

	// CID is the L2CAP fixed channel carrying ATT on LE links.
	CID = 0x0004
)

// ErrShortPDU is returned when a PDU is too short for its opcode.
var ErrShortPDU = errors.New("att: short pdu")

// respFor maps from att request
// codes to att response codes.
var respFor = map[byte]byte{
	OpMtuReq:         OpMtuResp,
	OpFindInfoReq:    OpFindInfoResp,
	OpFindByTypeReq:  OpFindByTypeResp,
	OpReadByTypeReq:  OpReadByTypeResp,
	OpReadReq:        OpReadResp,
	OpReadBlobReq:    OpReadBlobResp,
	OpReadMultiReq:   OpReadMultiResp,
	OpReadByGroupReq: OpReadByGroupResp,
	OpWriteReq:       OpWriteResp,
	OpPrepWriteReq:   OpPrepWriteResp,
	OpExecWriteReq:   OpExecWriteResp,
}

// ResponseFor reports the response opcode for request opcode op.
func ResponseFor(op byte) (byte, bool) {
	r, ok := respFor[op]
	return r, ok
}

// IsRequest reports whether op is a request that demands a response.
func IsRequest(op byte) bool {
	_, ok := respFor[op]
	return ok
}

// IsResponse reports whether op is a response to some request, including
// the Error Response.
func IsResponse(op byte) bool {
	if op == OpError {
		return true
	}
	for _, r := range respFor {
		if r == op {
			return true
		}
	}
	return false
}

// IsCommand reports whether op has the command flag set.
func IsCommand(op byte) bool { return op&0x40 != 0 }

var ecodeNames = map[byte]string{
	EcodeInvalidHandle:     "invalid handle",
	EcodeReadNotPerm:       "read not permitted",
	EcodeWriteNotPerm:      "write not permitted",
	EcodeInvalidPDU:        "invalid pdu",
	EcodeAuthentication:    "insufficient authentication",
	EcodeReqNotSupp:        "request not supported",
	EcodeInvalidOffset:     "invalid offset",
	EcodeAuthorization:     "insufficient authorization",
	EcodePrepQueueFull:     "prepare queue full",
	EcodeAttrNotFound:      "attribute not found",
	EcodeAttrNotLong:       "attribute not long",
	EcodeInsuffEncrKeySize: "insufficient encryption key size",
	EcodeInvalAttrValueLen: "invalid attribute value length",
	EcodeUnlikely:          "unlikely error",
	EcodeInsuffEnc:         "insufficient encryption",
	EcodeUnsuppGrpType:     "unsupported group type",
	EcodeInsuffResources:   "insufficient resources",
}

// EcodeString returns a readable name for error code c.
func EcodeString(c byte) string {
	if s, ok := ecodeNames[c]; ok {
		return s
	}
	if c >= 0x80 && c <= 0x9f {
		return fmt.Sprintf("application error 0x%02x", c)
	}
	return fmt.Sprintf("error 0x%02x", c)
}

// ErrorResponse is the body of an Error Response [Vol 3, Part F, 3.4.1.1].
type ErrorResponse struct {
	Opcode uint8
	Handle uint16
	Code   uint8
}

// TODO: Reformulate in a way that lets the caller avoid allocs.
// Accept a []byte? Write directly to an io.Writer?
func (e ErrorResponse) Marshal() []byte {
	// little-endian encoding for handle
	return []byte{OpError, e.Opcode, byte(e.Handle), byte(e.Handle >> 8), e.Code}
}

// Unmarshal decodes a complete Error Response PDU, opcode included.
func (e *ErrorResponse) Unmarshal(b []byte) error {
	if len(b) < 5 || b[0] != OpError {
		return ErrShortPDU
	}
	*e = ErrorResponse{Opcode: b[1], Handle: binary.LittleEndian.Uint16(b[2:]), Code: b[4]}
	return nil
}

// ErrorResp builds an Error Response for request op on handle h.
func ErrorResp(op byte, h uint16, code uint8) []byte {
	return ErrorResponse{Opcode: op, Handle: h, Code: code}.Marshal()
}
