package gatt

import "fmt"

// A Descriptor is an attribute found by DiscoverDescriptors.
type Descriptor struct {
	UUID   UUID
	Handle uint16
}

func (d Descriptor) String() string {
	return fmt.Sprintf("descriptor %s handle 0x%04x", d.UUID, d.Handle)
}
