//go:build linux

// Package linux opens LE ATT bearers through the kernel's L2CAP sockets.
package linux

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

const (
	attCID = 0x0004

	// pollInterval bounds how long a pending connect goes without
	// checking its context, in milliseconds.
	pollInterval = 100
)

// Dial opens the ATT fixed channel to the LE peripheral at addr, given
// in display order. hci selects the local adapter; a negative value
// lets the kernel choose. Each Read on the returned bearer yields one
// ATT PDU. Closing it unblocks pending Reads.
func Dial(ctx context.Context, hci int, addr [6]byte, random bool) (io.ReadWriteCloser, error) {
	local := &unix.SockaddrL2{CID: attCID, AddrType: unix.BDADDR_LE_PUBLIC}
	if hci >= 0 {
		di, err := DeviceInfo(hci)
		if err != nil {
			return nil, err
		}
		if !di.Up() {
			return nil, fmt.Errorf("hci%d: %w", hci, unix.ENETDOWN)
		}
		local.Addr = di.BDAddr()
	} else if err := anyAdapterUp(); err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_SEQPACKET|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.BTPROTO_L2CAP)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if err := unix.Bind(fd, local); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}

	remote := &unix.SockaddrL2{CID: attCID, Addr: addr, AddrType: unix.BDADDR_LE_PUBLIC}
	if random {
		remote.AddrType = unix.BDADDR_LE_RANDOM
	}
	if err := connect(ctx, fd, remote); err != nil {
		unix.Close(fd)
		return nil, err
	}

	// A non-blocking fd makes the File pollable, so Close interrupts Read.
	f := os.NewFile(uintptr(fd), fmt.Sprintf("l2cap-att:%x", addr))
	return f, nil
}

func anyAdapterUp() error {
	dd, err := DeviceList()
	if err != nil {
		return err
	}
	for _, d := range dd {
		if d.Up() {
			return nil
		}
	}
	if len(dd) == 0 {
		return fmt.Errorf("no hci adapter: %w", unix.ENODEV)
	}
	return fmt.Errorf("no hci adapter up: %w", unix.ENETDOWN)
}

func connect(ctx context.Context, fd int, sa unix.Sockaddr) error {
	err := unix.Connect(fd, sa)
	if err == nil {
		return nil
	}
	if err != unix.EINPROGRESS && err != unix.EAGAIN {
		return os.NewSyscallError("connect", err)
	}

	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := unix.Poll(pfd, pollInterval)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return os.NewSyscallError("poll", err)
		}
		if n > 0 {
			break
		}
	}

	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt", err)
	}
	if soerr != 0 {
		return os.NewSyscallError("connect", unix.Errno(soerr))
	}
	return nil
}
