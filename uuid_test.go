package gatt

import (
	"bytes"
	"testing"
)

func TestUUID16(t *testing.T) {
	if want, got := (UUID{[]byte{0x00, 0x18}}), UUID16(0x1800); !got.Equal(want) {
		t.Errorf("UUID16: got %x, want %x", got, want)
	}
}

func TestParseUUID(t *testing.T) {
	cases := []struct {
		in      string
		wire    []byte
		str     string
		wanterr bool
	}{
		{in: "1800", wire: []byte{0x00, 0x18}, str: "1800"},
		{in: "0x2A00", wire: []byte{0x00, 0x2a}, str: "2a00"},
		{
			in:   "09fc95c0-c111-11e3-9904-0002a5d5c51b",
			wire: []byte{0x1b, 0xc5, 0xd5, 0xa5, 0x02, 0x00, 0x04, 0x99, 0xe3, 0x11, 0x11, 0xc1, 0xc0, 0x95, 0xfc, 0x09},
			str:  "09fc95c0-c111-11e3-9904-0002a5d5c51b",
		},
		{
			in:   "09FC95C0C11111E399040002A5D5C51B",
			wire: []byte{0x1b, 0xc5, 0xd5, 0xa5, 0x02, 0x00, 0x04, 0x99, 0xe3, 0x11, 0x11, 0xc1, 0xc0, 0x95, 0xfc, 0x09},
			str:  "09fc95c0-c111-11e3-9904-0002a5d5c51b",
		},
		{in: "18", wanterr: true},
		{in: "zzzz", wanterr: true},
		{in: "09fc95c0-c111-11e3-9904-0002a5d5c5zz", wanterr: true},
	}

	for _, tt := range cases {
		u, err := ParseUUID(tt.in)
		if tt.wanterr {
			if err == nil {
				t.Errorf("ParseUUID(%q): want error, got %v", tt.in, u)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUUID(%q): unexpected error %v", tt.in, err)
			continue
		}
		if !bytes.Equal(u.Bytes(), tt.wire) {
			t.Errorf("ParseUUID(%q): got wire %x want %x", tt.in, u.Bytes(), tt.wire)
		}
		if u.String() != tt.str {
			t.Errorf("ParseUUID(%q).String(): got %q want %q", tt.in, u.String(), tt.str)
		}
	}
}

func TestReverse(t *testing.T) {
	cases := []struct {
		fwd  []byte
		back []byte
	}{
		{fwd: []byte{}, back: []byte{}},
		{fwd: []byte{0, 1}, back: []byte{1, 0}},
		{fwd: []byte{0, 1, 2}, back: []byte{2, 1, 0}},
		{fwd: []byte{0, 1, 2, 3}, back: []byte{3, 2, 1, 0}},
		{
			fwd:  []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
			back: []byte{15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
		},
	}

	for _, tt := range cases {
		got := reverse(tt.fwd)
		if !bytes.Equal(got, tt.back) {
			t.Errorf("reverse(%x): got %x want %x", tt.fwd, got, tt.back)
		}
	}
}

func BenchmarkReverseBytes16(b *testing.B) {
	u := UUID{make([]byte, 2)}
	for i := 0; i < b.N; i++ {
		reverse(u.b)
	}
}

func BenchmarkReverseBytes128(b *testing.B) {
	u := UUID{make([]byte, 16)}
	for i := 0; i < b.N; i++ {
		reverse(u.b)
	}
}
