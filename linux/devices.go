//go:build linux

package linux

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	hciGetDeviceList = 0x800448d2 // HCIGETDEVLIST, _IOR('H', 210, int)
	hciGetDeviceInfo = 0x800448d3 // HCIGETDEVINFO, _IOR('H', 211, int)
	hciMaxDevices    = 16

	hciUp = 1 << 0 // HCI_UP in hci_dev_info.flags
)

type HCIDeviceRequest struct {
	DevId  uint16
	DevOpt uint32
}

type HCIDeviceListRequest struct {
	DevNum     uint16
	DevRequest [hciMaxDevices]HCIDeviceRequest
}

// HCIDeviceInfo mirrors struct hci_dev_info.
type HCIDeviceInfo struct {
	DevId uint16
	name  [8]byte

	btAddr [6]byte

	Flags   uint32
	DevType uint8

	Features [8]uint8

	PktType    uint32
	LinkPolicy uint32
	LinkMode   uint32

	AclMtu  uint16
	AclPkts uint16
	ScoMtu  uint16
	ScoPkts uint16

	Stats HCIDeviceStats
}

type HCIDeviceStats struct {
	ErrRx  uint32
	ErrTx  uint32
	CmdTx  uint32
	EvtRx  uint32
	AclTx  uint32
	AclRx  uint32
	ScoTx  uint32
	ScoRx  uint32
	ByteRx uint32
	ByteTx uint32
}

func (hdi *HCIDeviceInfo) Name() string {
	return strings.TrimRight(string(hdi.name[:]), "\x00")
}

// BDAddr returns the adapter address in display order.
func (hdi *HCIDeviceInfo) BDAddr() [6]byte {
	a := hdi.btAddr
	return [6]byte{a[5], a[4], a[3], a[2], a[1], a[0]} // yeah backwards, who knew right!?
}

func (hdi *HCIDeviceInfo) Addr() string {
	a := hdi.BDAddr()
	return fmt.Sprintf("%.2x:%.2x:%.2x:%.2x:%.2x:%.2x", a[0], a[1], a[2], a[3], a[4], a[5])
}

// Up reports whether the adapter is powered.
func (hdi *HCIDeviceInfo) Up() bool { return hdi.Flags&hciUp != 0 }

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

func hciSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.BTPROTO_HCI)
	if err != nil {
		return -1, fmt.Errorf("hci socket: %w", err)
	}
	return fd, nil
}

// DeviceInfo returns the state of adapter hci<n>.
func DeviceInfo(n int) (*HCIDeviceInfo, error) {
	fd, err := hciSocket()
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	di := HCIDeviceInfo{DevId: uint16(n)}
	if err := ioctl(fd, hciGetDeviceInfo, unsafe.Pointer(&di)); err != nil {
		return nil, fmt.Errorf("hci%d: %w", n, err)
	}
	return &di, nil
}

// DeviceList returns every adapter known to the kernel.
func DeviceList() ([]*HCIDeviceInfo, error) {
	fd, err := hciSocket()
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	req := HCIDeviceListRequest{DevNum: hciMaxDevices}
	if err := ioctl(fd, hciGetDeviceList, unsafe.Pointer(&req)); err != nil {
		return nil, fmt.Errorf("hci device list: %w", err)
	}

	dd := []*HCIDeviceInfo{}
	for i := 0; i < int(req.DevNum); i++ {
		di := HCIDeviceInfo{DevId: req.DevRequest[i].DevId}
		if err := ioctl(fd, hciGetDeviceInfo, unsafe.Pointer(&di)); err != nil {
			return dd, fmt.Errorf("hci%d: %w", di.DevId, err)
		}
		dd = append(dd, &di)
	}
	return dd, nil
}
