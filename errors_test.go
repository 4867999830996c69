package gatt

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/XC-/gattlib/att"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind error
	}{
		{name: "invalid handle", err: &AttError{Code: att.EcodeInvalidHandle}, kind: ErrInvalidHandle},
		{name: "attr not found", err: &AttError{Code: att.EcodeAttrNotFound}, kind: ErrInvalidHandle},
		{name: "read not permitted", err: &AttError{Code: att.EcodeReadNotPerm}, kind: ErrPermissionDenied},
		{name: "write not permitted", err: &AttError{Code: att.EcodeWriteNotPerm}, kind: ErrPermissionDenied},
		{name: "authorization", err: &AttError{Code: att.EcodeAuthorization}, kind: ErrPermissionDenied},
		{name: "key size", err: &AttError{Code: att.EcodeInsuffEncrKeySize}, kind: ErrPermissionDenied},
		{name: "not supported", err: &AttError{Code: att.EcodeReqNotSupp}, kind: ErrRejected},
		{name: "link lost", err: fmt.Errorf("%w: eof", ErrLinkLost), kind: ErrLinkLost},
		{name: "not connected", err: ErrNotConnected, kind: ErrLinkLost},
		{name: "timeout", err: fmt.Errorf("%w: %w", ErrTimeout, context.DeadlineExceeded), kind: ErrTimeout},
		{name: "canceled", err: context.Canceled, kind: context.Canceled},
		{name: "too long", err: ErrValueTooLong, kind: ErrValueTooLong},
		{name: "other", err: errors.New("?"), kind: ErrRejected},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.kind, errorKind(tt.err), tt.name)
	}
}

func TestGattError(t *testing.T) {
	assert.NoError(t, gattErr("write", 0x2e, nil))

	err := gattErr("write", 0x2e, &AttError{Opcode: att.OpWriteReq, Handle: 0x2e, Code: att.EcodeInvalidHandle})
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.NotErrorIs(t, err, ErrLinkLost)
	assert.Equal(t, "write 0x002e: gatt: invalid handle: att: opcode 0x12 handle 0x002e: invalid handle", err.Error())

	var ae *AttError
	assert.True(t, errors.As(err, &ae))
	assert.Equal(t, byte(att.EcodeInvalidHandle), ae.Code)

	err = &GattError{Op: "read", Kind: ErrInvalidHandle}
	assert.Equal(t, "read 0x0000: gatt: invalid handle", err.Error())
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestConnectError(t *testing.T) {
	addr, _ := ParseBDAddr("00:11:22:33:44:55")
	err := &ConnectError{Addr: addr, Kind: ErrTimeout}
	assert.Equal(t, "connect 00:11:22:33:44:55: gatt: timed out", err.Error())
	assert.ErrorIs(t, err, ErrTimeout)

	cause := errors.New("no route")
	err = &ConnectError{Addr: addr, Kind: ErrLinkLost, Err: cause}
	assert.ErrorIs(t, err, ErrLinkLost)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTimeout)
}
