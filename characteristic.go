package gatt

import (
	"fmt"
	"strings"
)

// Property is the property bit field of a characteristic declaration.
type Property uint8

// Do not re-order the bit flags below;
// they are organized to match the Bluetooth Core Specification.

// Characteristic property flags.
const (
	PropBroadcast   Property = 1 << iota // the value may be broadcast
	PropRead                             // the characteristic may be read
	PropWriteNR                          // the characteristic may be written to, with no reply
	PropWrite                            // the characteristic may be written to, with a reply
	PropNotify                           // the characteristic supports notifications
	PropIndicate                         // the characteristic supports indications
	PropSignedWrite                      // the characteristic supports signed writes
	PropExtended                         // extended properties are in a descriptor
)

var propNames = []string{"broadcast", "read", "write-without-response", "write", "notify", "indicate", "signed-write", "extended"}

func (p Property) String() string {
	var s []string
	for i, n := range propNames {
		if p&(1<<i) != 0 {
			s = append(s, n)
		}
	}
	return strings.Join(s, "|")
}

// A Characteristic is a characteristic declaration found by
// DiscoverCharacteristics. Handle is the declaration; the value
// lives at ValueHandle.
type Characteristic struct {
	UUID        UUID
	Handle      uint16
	Properties  Property
	ValueHandle uint16
}

func (c Characteristic) String() string {
	return fmt.Sprintf("characteristic %s handle 0x%04x value 0x%04x (%s)", c.UUID, c.Handle, c.ValueHandle, c.Properties)
}

// parseCharDecl decodes a characteristic declaration value:
// properties, value handle, then a 16- or 128-bit uuid.
func parseCharDecl(h uint16, v []byte) (Characteristic, bool) {
	if len(v) < 5 {
		return Characteristic{}, false
	}
	u, ok := uuidFromLE(v[3:])
	if !ok {
		return Characteristic{}, false
	}
	return Characteristic{
		UUID:        u,
		Handle:      h,
		Properties:  Property(v[0]),
		ValueHandle: uint16(v[1]) | uint16(v[2])<<8,
	}, true
}
