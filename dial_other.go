//go:build !linux

package gatt

import (
	"context"
	"fmt"
	"runtime"
)

func defaultDialer(hci int) Dialer {
	return DialerFunc(func(ctx context.Context, addr BDAddr, typ AddrType) (Link, error) {
		return nil, fmt.Errorf("%w: no L2CAP support on %s", ErrRadioUnavailable, runtime.GOOS)
	})
}
