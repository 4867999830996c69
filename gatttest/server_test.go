package gatttest

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gatt "github.com/XC-/gattlib"
	"github.com/XC-/gattlib/att"
)

var testAddr = gatt.BDAddr{HardwareAddr: []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}}

func readPDU(t *testing.T, l gatt.Link) []byte {
	t.Helper()
	type result struct {
		b   []byte
		err error
	}
	rc := make(chan result, 1)
	go func() {
		b := make([]byte, att.MaxMTU)
		n, err := l.Read(b)
		rc <- result{b[:n], err}
	}()
	select {
	case r := <-rc:
		require.NoError(t, r.err)
		return r.b
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for pdu")
		return nil
	}
}

func send(t *testing.T, l gatt.Link, s string) {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	_, err = l.Write(b)
	require.NoError(t, err)
}

// newTestPeripheral builds:
//
//	1  service 0x1800         [1, 5]
//	2  characteristic decl    -> 3
//	3  0x2a00 "gopher"        read
//	4  characteristic decl    -> 5
//	5  0x2a01 0080            read
//	6  service 0x1801         [6, 6]
//	7  service 09fc95c0-...   [7, 12]
//	8  characteristic decl    -> 9
//	9  16fe0d80-...           write, write-without-response
//	10 characteristic decl    -> 11
//	11 0x2a19 64              read, indicate
//	12 cccd 0000
func newTestPeripheral(opts ...Option) *Peripheral {
	p := New(opts...)
	gap := p.AddService(gatt.UUID16(0x1800))
	gap.AddCharacteristic(gatt.UUID16(0x2a00), gatt.PropRead, []byte("gopher"))
	gap.AddCharacteristic(gatt.UUID16(0x2a01), gatt.PropRead, []byte{0x00, 0x80})
	p.AddService(gatt.UUID16(0x1801))
	svc := p.AddService(gatt.MustParseUUID("09fc95c0-c111-11e3-9904-0002a5d5c51b"))
	svc.AddCharacteristic(gatt.MustParseUUID("16fe0d80-c111-11e3-b8c8-0002a5d5c51b"), gatt.PropWrite|gatt.PropWriteNR, nil)
	svc.AddCharacteristic(gatt.UUID16(0x2a19), gatt.PropRead|gatt.PropIndicate, []byte{100})
	return p
}

func TestHandles(t *testing.T) {
	p := New()
	svc := p.AddService(gatt.UUID16(0x180f))
	c := svc.AddCharacteristic(gatt.UUID16(0x2a19), gatt.PropRead|gatt.PropNotify, []byte{1})
	assert.Equal(t, uint16(1), svc.Handle())
	assert.Equal(t, uint16(2), c.Handle)
	assert.Equal(t, uint16(3), c.ValueHandle)
	assert.Equal(t, uint16(4), c.CCCDHandle)
	assert.Equal(t, uint16(4), svc.EndHandle())

	p = New(FirstHandle(0x2c))
	svc = p.AddService(gatt.UUID16(0xfff0))
	c = svc.AddCharacteristic(gatt.UUID16(0xfff1), gatt.PropWrite, nil)
	assert.Equal(t, uint16(0x2e), c.ValueHandle)
	assert.Zero(t, c.CCCDHandle)

	assert.Panics(t, func() {
		first := p.AddService(gatt.UUID16(0x1800))
		p.AddService(gatt.UUID16(0x1801))
		first.AddCharacteristic(gatt.UUID16(0x2a00), gatt.PropRead, nil)
	})
}

func TestServing(t *testing.T) {
	p := newTestPeripheral(MTU(135))
	l, err := p.Dial(context.Background(), testAddr, gatt.AddrPublic)
	require.NoError(t, err)
	defer l.Close()

	rxtx := []struct {
		name   string
		before func()
		send   string
		want   string // empty for no response
		after  func()
	}{
		{
			name: "set mtu to 23 -- server mtu is 135",
			send: "021700",
			want: "038700",
		},
		{
			name: "read multiple -- unsupported",
			send: "0e01000200",
			want: "010e000006",
		},
		{
			name: "find info [1,10] -- 1: 0x2800, 2: 0x2803, 3: 0x2a00, 4: 0x2803, 5: 0x2a01",
			send: "0401000A00",
			want: "050101000028020003280300002a040003280500012a",
		},
		{
			name: "find info [1,2] -- 1: 0x2800, 2: 0x2803",
			send: "0401000200",
			want: "05010100002802000328",
		},
		{
			name: "find info [0,2] -- invalid handle",
			send: "0400000200",
			want: "0104000001",
		},
		{
			name: "read by group [1,3] svc uuid -- unsupported group type at handle 1",
			send: "10010003001bc5d5a502000499e31111c1c095fc09",
			want: "0110010010",
		},
		{
			name: "read by group [1,3] 0x2800 -- group at [1,5]: 0x1800",
			send: "10010003000028",
			want: "1106010005000018",
		},
		{
			name: "read by group [1,14] 0x2800 -- group at [1,5]: 0x1800, [6,6]: 0x1801",
			send: "1001000E000028",
			want: "1106010005000018060006000118",
		},
		{
			name: "read by group [7,ffff] 0x2800 -- group at [7,12]: 09fc95c0-...",
			send: "100700ffff0028",
			want: "1114" + "07000c00" + "1bc5d5a502000499e31111c1c095fc09",
		},
		{
			name: "read by group [8,ffff] 0x2800 -- not found",
			send: "100800ffff0028",
			want: "011008000a",
		},
		{
			name: "read by type [1,5] 0x2a00 (device name) -- found 3",
			send: "0801000500002a",
			want: "09080300676f70686572",
		},
		{
			name: "read by type [4,5] 0x2a00 (device name) -- not found",
			send: "0804000500002a",
			want: "010804000a",
		},
		{
			name: "read by type [1,ffff] 0x2803 -- 2, 4",
			send: "080100ffff0328",
			want: "09070200020300002a0400020500012a",
		},
		{
			name: "read by type [5,ffff] 0x2803 -- 8",
			send: "080500ffff0328",
			want: "091508000c09001bc5d5a50200c8b8e31111c1800dfe16",
		},
		{
			name: "read 3 -- gopher",
			send: "0a0300",
			want: "0b676f70686572",
		},
		{
			name: "read 0 -- invalid handle",
			send: "0a0000",
			want: "010a000001",
		},
		{
			name: "read 0x99 -- invalid handle",
			send: "0a9900",
			want: "010a990001",
		},
		{
			name: "read 9 -- read not permitted",
			send: "0a0900",
			want: "010a090002",
		},
		{
			name: "read blob 3 @2 -- pher",
			send: "0c03000200",
			want: "0d70686572",
		},
		{
			name: "read blob 3 @7 -- invalid offset",
			send: "0c03000700",
			want: "010c030007",
		},
		{
			name: "write 3 -- write not permitted",
			send: "12030001",
			want: "0112030003",
		},
		{
			name: "write 9 <- 02",
			send: "12090002",
			want: "13",
			after: func() {
				v, _ := p.Value(9)
				assert.Equal(t, []byte{2}, v)
			},
		},
		{
			name: "write cmd 9 <- 0304 -- no response",
			send: "5209000304",
		},
		{
			name: "write cmd 3 -- not permitted, no response",
			send: "520300ff",
		},
		{
			name: "write cccd 12 <- 0200",
			send: "120c000200",
			want: "13",
			after: func() {
				v, _ := p.Value(9)
				assert.Equal(t, []byte{3, 4}, v)
				v, _ = p.Value(3)
				assert.Equal(t, []byte("gopher"), v)
			},
		},
		{
			name:   "read 11 -- injected insufficient encryption",
			before: func() { p.FailHandle(11, att.EcodeInsuffEnc) },
			send:   "0a0b00",
			want:   "010a0b000f",
			after:  func() { p.FailHandle(11, 0) },
		},
		{
			name: "read 11 -- 64",
			send: "0a0b00",
			want: "0b64",
		},
	}

	for _, tt := range rxtx {
		if tt.before != nil {
			tt.before()
		}
		send(t, l, tt.send)
		if tt.want != "" {
			got := hex.EncodeToString(readPDU(t, l))
			if want := strings.ToLower(tt.want); got != want {
				t.Errorf("%s: sent %s got %s want %s", tt.name, tt.send, got, want)
			}
		}
		if tt.after != nil {
			tt.after()
		}
	}

	want := []Write{
		{Handle: 9, Value: []byte{2}},
		{Handle: 9, Value: []byte{3, 4}, Command: true},
		{Handle: 12, Value: []byte{2, 0}},
	}
	assert.Equal(t, want, p.Writes())
	assert.Equal(t, 1, p.MaxInFlight())
}

func TestMaxInFlight(t *testing.T) {
	p := newTestPeripheral(ResponseDelay(50 * time.Millisecond))
	l, err := p.Dial(context.Background(), testAddr, gatt.AddrPublic)
	require.NoError(t, err)
	defer l.Close()

	send(t, l, "0a0300")
	send(t, l, "0a0500")
	assert.Equal(t, "0b676f70686572", hex.EncodeToString(readPDU(t, l)))
	assert.Equal(t, "0b0080", hex.EncodeToString(readPDU(t, l)))
	assert.Equal(t, 2, p.MaxInFlight())
	assert.Equal(t, 2, p.Requests())
}

func TestIndicate(t *testing.T) {
	p := newTestPeripheral()
	l, err := p.Dial(context.Background(), testAddr, gatt.AddrRandom)
	require.NoError(t, err)
	defer l.Close()

	p.Indicate(11, []byte{99})
	assert.Equal(t, "1d0b0063", hex.EncodeToString(readPDU(t, l)))
	send(t, l, "1e")
	assert.Eventually(t, func() bool { return p.Confirmations() == 1 }, time.Second, time.Millisecond)

	p.Notify(11, []byte{98})
	assert.Equal(t, "1b0b0062", hex.EncodeToString(readPDU(t, l)))
}

func TestDisconnect(t *testing.T) {
	p := newTestPeripheral()
	l, err := p.Dial(context.Background(), testAddr, gatt.AddrPublic)
	require.NoError(t, err)

	p.Disconnect()
	_, err = l.Read(make([]byte, att.MaxMTU))
	assert.Error(t, err)
	_, err = l.Write([]byte{att.OpReadReq, 3, 0})
	assert.Error(t, err)
}

func TestDial(t *testing.T) {
	errDown := errors.New("adapter down")
	p := New(DialError(errDown))
	_, err := p.Dial(context.Background(), testAddr, gatt.AddrPublic)
	assert.ErrorIs(t, err, errDown)

	p.Option(DialError(nil), DialDelay(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Dial(ctx, testAddr, gatt.AddrPublic)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.Len(t, p.Dials(), 2)
	assert.Equal(t, "00:11:22:33:44:55", p.Dials()[0].String())
}
