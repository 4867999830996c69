package gatt

import (
	"context"
	"io"
)

// A Link is an open ATT bearer to one peripheral, typically the LE
// L2CAP fixed channel 0x0004. Each Read returns exactly one ATT PDU
// and each Write sends exactly one. Close must unblock a pending Read.
type Link interface {
	io.ReadWriteCloser
}

// A Dialer opens Links. Dial must honor ctx cancellation.
type Dialer interface {
	Dial(ctx context.Context, addr BDAddr, typ AddrType) (Link, error)
}

// DialerFunc is an adapter to allow the use of ordinary functions
// as Dialers.
type DialerFunc func(ctx context.Context, addr BDAddr, typ AddrType) (Link, error)

// Dial returns f(ctx, addr, typ).
func (f DialerFunc) Dial(ctx context.Context, addr BDAddr, typ AddrType) (Link, error) {
	return f(ctx, addr, typ)
}
