package gatt

import (
	"fmt"
	"net"
	"strings"
)

// A BDAddr (Bluetooth Device Address) is a hardware-addressed-based net.Addr.
type BDAddr struct{ net.HardwareAddr }

func (a BDAddr) Network() string { return "BLE" }

func (a BDAddr) String() string { return strings.ToUpper(a.HardwareAddr.String()) }

// ParseBDAddr parses s as six colon- or dash-separated hex octets,
// e.g. "00:11:22:33:44:55".
func ParseBDAddr(s string) (BDAddr, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return BDAddr{}, fmt.Errorf("gatt: invalid address %q: %w", s, err)
	}
	if len(hw) != 6 {
		return BDAddr{}, fmt.Errorf("gatt: invalid address %q: want 6 octets, got %d", s, len(hw))
	}
	return BDAddr{hw}, nil
}

// Octets returns the address in display order.
func (a BDAddr) Octets() [6]byte {
	var b [6]byte
	copy(b[:], a.HardwareAddr)
	return b
}

// AddrType is the LE address type of a peripheral.
type AddrType uint8

const (
	AddrPublic AddrType = iota
	AddrRandom
)

func (t AddrType) String() string {
	switch t {
	case AddrPublic:
		return "public"
	case AddrRandom:
		return "random"
	}
	return fmt.Sprintf("AddrType(%d)", uint8(t))
}

// ParseAddrType accepts "public" or "random".
func ParseAddrType(s string) (AddrType, error) {
	switch strings.ToLower(s) {
	case "", "public":
		return AddrPublic, nil
	case "random":
		return AddrRandom, nil
	}
	return 0, fmt.Errorf("gatt: unknown address type %q", s)
}
