package gatt

import (
	"context"
	"errors"
	"fmt"

	"github.com/XC-/gattlib/att"
)

var (
	// ErrTimeout is returned when a connection or a request does not
	// complete in time.
	ErrTimeout = errors.New("gatt: timed out")

	// ErrLinkLost is returned when the link to the peripheral is gone,
	// or was never established.
	ErrLinkLost = errors.New("gatt: link lost")

	// ErrRadioUnavailable is returned when no usable local controller exists.
	ErrRadioUnavailable = errors.New("gatt: radio unavailable")

	// ErrInvalidHandle is returned when the peripheral has no attribute
	// at the requested handle.
	ErrInvalidHandle = errors.New("gatt: invalid handle")

	// ErrPermissionDenied is returned when the peripheral refuses access
	// to an attribute.
	ErrPermissionDenied = errors.New("gatt: permission denied")

	// ErrRejected is returned for any other ATT error response.
	ErrRejected = errors.New("gatt: request rejected")

	// ErrValueTooLong is returned when a request does not fit in the MTU.
	ErrValueTooLong = errors.New("gatt: value too long for mtu")

	// ErrNotConnected indicates an operation on a Conn that is not
	// Connected. It matches ErrLinkLost.
	ErrNotConnected = fmt.Errorf("gatt: not connected: %w", ErrLinkLost)
)

// A ConnectError describes why a connection did not come up.
// Kind is one of ErrTimeout, ErrLinkLost or ErrRadioUnavailable.
type ConnectError struct {
	Addr BDAddr
	Kind error
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connect %s: %v", e.Addr, e.Kind)
	}
	return fmt.Sprintf("connect %s: %v: %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() []error { return nonNil(e.Kind, e.Err) }

// An AttError is an Error Response received from the peripheral.
type AttError struct {
	Opcode byte
	Handle uint16
	Code   byte
}

func (e *AttError) Error() string {
	return fmt.Sprintf("att: opcode 0x%02x handle 0x%04x: %s", e.Opcode, e.Handle, att.EcodeString(e.Code))
}

// A GattError is the error returned by GATT client operations.
// Kind is one of ErrInvalidHandle, ErrPermissionDenied, ErrLinkLost,
// ErrTimeout, ErrValueTooLong or ErrRejected; Err is the underlying cause.
type GattError struct {
	Op     string
	Handle uint16
	Kind   error
	Err    error
}

func (e *GattError) Error() string {
	s := fmt.Sprintf("%s 0x%04x: %v", e.Op, e.Handle, e.Kind)
	if e.Err != nil && e.Err != e.Kind {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *GattError) Unwrap() []error { return nonNil(e.Kind, e.Err) }

// gattErr wraps a transport error for operation op on handle h.
func gattErr(op string, h uint16, err error) error {
	if err == nil {
		return nil
	}
	return &GattError{Op: op, Handle: h, Kind: errorKind(err), Err: err}
}

func errorKind(err error) error {
	var ae *AttError
	if errors.As(err, &ae) {
		switch ae.Code {
		case att.EcodeInvalidHandle, att.EcodeAttrNotFound:
			return ErrInvalidHandle
		case att.EcodeReadNotPerm, att.EcodeWriteNotPerm,
			att.EcodeAuthentication, att.EcodeAuthorization,
			att.EcodeInsuffEncrKeySize, att.EcodeInsuffEnc:
			return ErrPermissionDenied
		}
		return ErrRejected
	}
	for _, k := range []error{ErrLinkLost, ErrTimeout, ErrInvalidHandle, ErrValueTooLong, context.Canceled} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrRejected
}

func nonNil(errs ...error) []error {
	out := errs[:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
