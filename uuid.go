package gatt

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// A UUID is a BLE UUID. It is stored in the little-endian
// order used on the wire; String renders it big-endian.
type UUID struct {
	// Hide the bytes, so that we can enforce that they have length 2 or 16,
	// and that they are immutable. This simplifies the code and API.
	b []byte
}

// UUID16 converts a uint16 (such as 0x1800) to a UUID.
func UUID16(i uint16) UUID {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, i)
	return UUID{b}
}

// ParseUUID parses a standard-format UUID string, such
// as "1800" or "34DA3AD1-7110-41A1-B1EF-4430F509CDE7".
func ParseUUID(s string) (UUID, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	switch len(s) {
	case 4:
		b, err := hex.DecodeString(s)
		if err != nil {
			return UUID{}, fmt.Errorf("gatt: invalid uuid %q: %w", s, err)
		}
		return UUID{reverse(b)}, nil
	case 32, 36:
		u, err := uuid.Parse(s)
		if err != nil {
			return UUID{}, fmt.Errorf("gatt: invalid uuid %q: %w", s, err)
		}
		return UUID{reverse(u[:])}, nil
	}
	return UUID{}, fmt.Errorf("gatt: invalid uuid %q: want 16 or 128 bits", s)
}

// MustParseUUID parses a standard-format UUID string,
// like ParseUUID, but panics in case of error.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// uuidFromLE wraps wire bytes, which must be 2 or 16 bytes long.
func uuidFromLE(b []byte) (UUID, bool) {
	if len(b) != 2 && len(b) != 16 {
		return UUID{}, false
	}
	return UUID{append([]byte(nil), b...)}, true
}

// Len returns the length of the UUID, in bytes.
// BLE UUIDs are either 2 or 16 bytes.
func (u UUID) Len() int { return len(u.b) }

// Bytes returns the wire (little-endian) form of u.
func (u UUID) Bytes() []byte { return append([]byte(nil), u.b...) }

// String hex-encodes a UUID.
func (u UUID) String() string {
	if len(u.b) == 16 {
		var v uuid.UUID
		copy(v[:], reverse(u.b))
		return v.String()
	}
	return fmt.Sprintf("%x", reverse(u.b))
}

// Equal returns a boolean reporting whether v represent the same UUID as u.
func (u UUID) Equal(v UUID) bool { return bytes.Equal(u.b, v.b) }

// reverse returns a reversed copy of u.
func reverse(u []byte) []byte {
	// Special-case 16 bit UUIDS for speed.
	l := len(u)
	if l == 2 {
		return []byte{u[1], u[0]}
	}
	b := make([]byte, l)
	for i := range b {
		b[i] = u[l-i-1]
	}
	return b
}
