package gatt

import (
	"context"
	"errors"
	"fmt"

	"github.com/XC-/gattlib/att"
)

// WriteByHandle writes value to the attribute at handle with a Write
// Request and waits for the Write Response.
//
// Errors are *GattError values. Their Kind is ErrInvalidHandle when the
// peripheral has no such attribute, ErrPermissionDenied when it refuses
// the write, and ErrLinkLost when c is not Connected or the link drops.
func (c *Conn) WriteByHandle(ctx context.Context, handle uint16, value []byte) error {
	const op = "write"
	if handle == 0 {
		return &GattError{Op: op, Kind: ErrInvalidHandle}
	}
	a, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return gattErr(op, handle, err)
	}
	defer cancel()
	_, err = a.sendRequest(ctx, att.WriteReq(handle, value))
	return gattErr(op, handle, err)
}

// WriteCmdByHandle writes value to the attribute at handle with a Write
// Command. The peripheral does not answer, so only local and link
// errors are reported.
func (c *Conn) WriteCmdByHandle(ctx context.Context, handle uint16, value []byte) error {
	const op = "write-cmd"
	if handle == 0 {
		return &GattError{Op: op, Kind: ErrInvalidHandle}
	}
	a, _, cancel, err := c.client(ctx)
	if err != nil {
		return gattErr(op, handle, err)
	}
	defer cancel()
	return gattErr(op, handle, a.sendCommand(att.WriteCmd(handle, value)))
}

// ReadByHandle reads the value of the attribute at handle. Values that
// fill a whole Read Response are continued with Read Blob Requests.
func (c *Conn) ReadByHandle(ctx context.Context, handle uint16) ([]byte, error) {
	const op = "read"
	if handle == 0 {
		return nil, &GattError{Op: op, Kind: ErrInvalidHandle}
	}
	a, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return nil, gattErr(op, handle, err)
	}
	defer cancel()

	rsp, err := a.sendRequest(ctx, att.ReadReq(handle))
	if err != nil {
		return nil, gattErr(op, handle, err)
	}
	v := append([]byte(nil), rsp[1:]...)
	for len(rsp)-1 == a.MTU()-1 && len(v) < 0xffff {
		rsp, err = a.sendRequest(ctx, att.ReadBlobReq(handle, uint16(len(v))))
		var ae *AttError
		if errors.As(err, &ae) && (ae.Code == att.EcodeAttrNotLong || ae.Code == att.EcodeInvalidOffset) {
			break
		}
		if err != nil {
			return nil, gattErr(op, handle, err)
		}
		if len(rsp) == 1 {
			break
		}
		v = append(v, rsp[1:]...)
	}
	return v, nil
}

// ReadByUUID reads the values of every attribute of type u, in handle
// order. It fails with ErrInvalidHandle when no attribute matches.
func (c *Conn) ReadByUUID(ctx context.Context, u UUID) ([][]byte, error) {
	const op = "read-by-uuid"
	a, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return nil, gattErr(op, 0, err)
	}
	defer cancel()

	var vals [][]byte
	err = readByType(ctx, a, MinHandle, MaxHandle, u.b, func(hv att.HandleValue) {
		vals = append(vals, hv.Value)
	})
	if err != nil {
		return nil, gattErr(op, 0, err)
	}
	if len(vals) == 0 {
		return nil, &GattError{Op: op, Kind: ErrInvalidHandle, Err: fmt.Errorf("no attribute of type %s", u)}
	}
	return vals, nil
}

// ExchangeMTU proposes mtu as the client receive MTU and returns the
// resulting ATT_MTU, the smaller of both sides' values. The proposal is
// clamped to [23, 517].
func (c *Conn) ExchangeMTU(ctx context.Context, mtu int) (int, error) {
	const op = "exchange-mtu"
	a, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return 0, gattErr(op, 0, err)
	}
	defer cancel()
	m, err := a.exchangeMTU(ctx, mtu)
	if err != nil {
		return 0, gattErr(op, 0, err)
	}
	return int(m), nil
}

// DiscoverPrimary returns all primary services of the peripheral.
func (c *Conn) DiscoverPrimary(ctx context.Context) ([]Service, error) {
	const op = "discover-primary"
	a, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return nil, gattErr(op, 0, err)
	}
	defer cancel()

	var svcs []Service
	for start := MinHandle; ; {
		rsp, err := a.sendRequest(ctx, att.ReadByGroupReq(start, MaxHandle, PrimaryServiceUUID.b))
		if attrNotFound(err) {
			return svcs, nil
		}
		if err != nil {
			return nil, gattErr(op, start, err)
		}
		gv, err := att.ParseReadByGroupResp(rsp)
		if err != nil || len(gv) == 0 {
			return nil, gattErr(op, start, fmt.Errorf("%w: malformed read by group response", ErrRejected))
		}
		for _, g := range gv {
			u, ok := uuidFromLE(g.Value)
			if !ok {
				return nil, gattErr(op, g.Handle, fmt.Errorf("%w: bad service uuid [ % X ]", ErrRejected, g.Value))
			}
			svcs = append(svcs, Service{UUID: u, Handle: g.Handle, EndHandle: g.EndHandle})
		}
		last := gv[len(gv)-1].EndHandle
		if last == MaxHandle || last < start {
			return svcs, nil
		}
		start = last + 1
	}
}

// DiscoverCharacteristics returns the characteristics declared in
// [start, end]. A zero start or end means the whole handle range.
// If u is non-nil only characteristics of that type are returned.
func (c *Conn) DiscoverCharacteristics(ctx context.Context, start, end uint16, u *UUID) ([]Characteristic, error) {
	const op = "discover-characteristics"
	if start == 0 {
		start = MinHandle
	}
	if end == 0 {
		end = MaxHandle
	}
	a, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return nil, gattErr(op, start, err)
	}
	defer cancel()

	var chars []Characteristic
	var bad error
	err = readByType(ctx, a, start, end, CharacteristicUUID.b, func(hv att.HandleValue) {
		ch, ok := parseCharDecl(hv.Handle, hv.Value)
		if !ok {
			if bad == nil {
				bad = fmt.Errorf("%w: bad characteristic declaration at 0x%04x", ErrRejected, hv.Handle)
			}
			return
		}
		if u == nil || u.Equal(ch.UUID) {
			chars = append(chars, ch)
		}
	})
	if err == nil {
		err = bad
	}
	if err != nil {
		return nil, gattErr(op, start, err)
	}
	return chars, nil
}

// DiscoverDescriptors returns every attribute in [start, end] with
// Find Information Requests. For the descriptors of a characteristic,
// start is the handle after its value and end the handle before the
// next declaration.
func (c *Conn) DiscoverDescriptors(ctx context.Context, start, end uint16) ([]Descriptor, error) {
	const op = "discover-descriptors"
	if start == 0 {
		return nil, &GattError{Op: op, Kind: ErrInvalidHandle}
	}
	a, ctx, cancel, err := c.client(ctx)
	if err != nil {
		return nil, gattErr(op, start, err)
	}
	defer cancel()

	var descs []Descriptor
	for start <= end {
		rsp, err := a.sendRequest(ctx, att.FindInfoReq(start, end))
		if attrNotFound(err) {
			break
		}
		if err != nil {
			return nil, gattErr(op, start, err)
		}
		hv, err := att.ParseFindInfoResp(rsp)
		if err != nil || len(hv) == 0 {
			return nil, gattErr(op, start, fmt.Errorf("%w: malformed find information response", ErrRejected))
		}
		for _, v := range hv {
			u, _ := uuidFromLE(v.Value)
			descs = append(descs, Descriptor{UUID: u, Handle: v.Handle})
		}
		last := hv[len(hv)-1].Handle
		if last >= end || last < start {
			break
		}
		start = last + 1
	}
	return descs, nil
}

// readByType runs Read By Type Requests over [start, end] until the
// server reports Attribute Not Found or the range is exhausted.
func readByType(ctx context.Context, a *attClient, start, end uint16, typ []byte, fn func(att.HandleValue)) error {
	for start <= end {
		rsp, err := a.sendRequest(ctx, att.ReadByTypeReq(start, end, typ))
		if attrNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		hv, err := att.ParseReadByTypeResp(rsp)
		if err != nil || len(hv) == 0 {
			return fmt.Errorf("%w: malformed read by type response", ErrRejected)
		}
		for _, v := range hv {
			fn(v)
		}
		last := hv[len(hv)-1].Handle
		if last >= end || last < start {
			return nil
		}
		start = last + 1
	}
	return nil
}

func attrNotFound(err error) bool {
	var ae *AttError
	return errors.As(err, &ae) && ae.Code == att.EcodeAttrNotFound
}
