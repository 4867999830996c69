package gatt

import "fmt"

// A Service is a primary service found by DiscoverPrimary.
// It owns the handles in [Handle, EndHandle].
type Service struct {
	UUID      UUID
	Handle    uint16
	EndHandle uint16
}

func (s Service) String() string {
	return fmt.Sprintf("service %s [0x%04x, 0x%04x]", s.UUID, s.Handle, s.EndHandle)
}
