package gatt

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/XC-/gattlib/linux"
)

// radioErrnos are dial failures that mean no usable local controller.
var radioErrnos = []error{
	unix.ENODEV,
	unix.ENETDOWN,
	unix.EAFNOSUPPORT,
	unix.EPROTONOSUPPORT,
	unix.EADDRNOTAVAIL,
	unix.ERFKILL,
}

// defaultDialer opens the LE ATT channel with the kernel's L2CAP sockets.
func defaultDialer(hci int) Dialer {
	return DialerFunc(func(ctx context.Context, addr BDAddr, typ AddrType) (Link, error) {
		l, err := linux.Dial(ctx, hci, addr.Octets(), typ == AddrRandom)
		if err != nil {
			for _, e := range radioErrnos {
				if errors.Is(err, e) {
					return nil, fmt.Errorf("%w: %w", ErrRadioUnavailable, err)
				}
			}
			return nil, err
		}
		return l, nil
	})
}
