// Package gatttest provides an in-memory GATT peripheral for testing
// code built on package gatt.
//
// A Peripheral holds an attribute table and serves ATT requests over
// in-memory links. It implements gatt.Dialer, so it plugs into a Conn
// with gatt.WithDialer:
//
//	p := gatttest.New()
//	svc := p.AddService(gatt.UUID16(0x180f))
//	ch := svc.AddCharacteristic(gatt.UUID16(0x2a19), gatt.PropRead|gatt.PropWrite, []byte{100})
//	c, err := gatt.Dial(ctx, "00:11:22:33:44:55", gatt.WithDialer(p))
package gatttest

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	gatt "github.com/XC-/gattlib"
	"github.com/XC-/gattlib/att"
)

// A Write is a value written to the peripheral.
type Write struct {
	Handle  uint16
	Value   []byte
	Command bool // sent as a Write Command
}

// A Peripheral is a simulated GATT server.
type Peripheral struct {
	mu sync.Mutex

	log       logrus.Ext1FieldLogger
	mtu       uint16
	respDelay time.Duration
	dialDelay time.Duration
	dialErr   error

	attrs    attrRange
	last     *Service
	fail     map[uint16]byte
	writes   []Write
	dials    []gatt.BDAddr
	conns    []*serverConn
	requests int
	cnfs     int
	inflight int
	maxIn    int
}

// New returns a Peripheral with an empty attribute table starting at
// handle 0x0001.
func New(opts ...Option) *Peripheral {
	p := &Peripheral{
		log:   logrus.StandardLogger(),
		mtu:   att.DefaultMTU,
		attrs: attrRange{base: gatt.MinHandle},
		fail:  make(map[uint16]byte),
	}
	p.Option(opts...)
	return p
}

// Option sets the options specified.
// It returns an option to restore the last arg's previous value.
func (p *Peripheral) Option(opts ...Option) (prev Option) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, opt := range opts {
		prev = opt(p)
	}
	return prev
}

// A Service is a primary service in the attribute table.
type Service struct {
	p    *Peripheral
	decl *attr
}

// Handle returns the service declaration handle.
func (s *Service) Handle() uint16 { return s.decl.h }

// EndHandle returns the last handle of the service.
func (s *Service) EndHandle() uint16 { return s.decl.endh }

// A Characteristic is a characteristic in the attribute table.
type Characteristic struct {
	UUID        gatt.UUID
	Handle      uint16 // declaration
	ValueHandle uint16
	CCCDHandle  uint16 // zero unless notify or indicate is set
	Properties  gatt.Property
}

// AddService appends a primary service to the attribute table.
func (p *Peripheral) AddService(u gatt.UUID) *Service {
	p.mu.Lock()
	defer p.mu.Unlock()
	a := p.attrs.push(&attr{typ: gatt.PrimaryServiceUUID, value: u.Bytes(), props: gatt.PropRead})
	a.endh = a.h
	s := &Service{p: p, decl: a}
	p.last = s
	return s
}

// AddCharacteristic appends a characteristic with the given properties
// and initial value to s. A characteristic that can notify or indicate
// also gets a Client Characteristic Configuration descriptor.
// AddCharacteristic panics if s is not the last service added.
func (s *Service) AddCharacteristic(u gatt.UUID, props gatt.Property, value []byte) *Characteristic {
	p := s.p
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != s {
		panic("gatttest: characteristics must be added to the last service")
	}

	decl := p.attrs.push(&attr{typ: gatt.CharacteristicUUID, props: gatt.PropRead})
	val := p.attrs.push(&attr{typ: u, value: append([]byte(nil), value...), props: props})
	decl.value = append([]byte{byte(props), byte(val.h), byte(val.h >> 8)}, u.Bytes()...)

	c := &Characteristic{UUID: u, Handle: decl.h, ValueHandle: val.h, Properties: props}
	if props&(gatt.PropNotify|gatt.PropIndicate) != 0 {
		cccd := p.attrs.push(&attr{typ: gatt.ClientCharacteristicConfigUUID, value: []byte{0, 0}, props: gatt.PropRead | gatt.PropWrite})
		c.CCCDHandle = cccd.h
	}
	s.decl.endh = p.attrs.next() - 1
	return c
}

// FailHandle makes every read or write of handle h fail with the ATT
// error code. A zero code removes the failure.
func (p *Peripheral) FailHandle(h uint16, code byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if code == 0 {
		delete(p.fail, h)
		return
	}
	p.fail[h] = code
}

// Value returns the current value of the attribute at h.
func (p *Peripheral) Value(h uint16) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attrs.At(h)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), a.value...), true
}

// Writes returns the values written so far, in arrival order.
func (p *Peripheral) Writes() []Write {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Write(nil), p.writes...)
}

// Dials returns the addresses passed to Dial.
func (p *Peripheral) Dials() []gatt.BDAddr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]gatt.BDAddr(nil), p.dials...)
}

// Requests returns the number of requests received.
func (p *Peripheral) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}

// MaxInFlight returns the largest number of requests that were ever
// received but not yet answered at the same time.
func (p *Peripheral) MaxInFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxIn
}

// Confirmations returns the number of Handle Value Confirmations received.
func (p *Peripheral) Confirmations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cnfs
}

// Dial implements gatt.Dialer. It waits for the DialDelay option, then
// returns a new link served by p, or the DialError option.
func (p *Peripheral) Dial(ctx context.Context, addr gatt.BDAddr, typ gatt.AddrType) (gatt.Link, error) {
	p.mu.Lock()
	p.dials = append(p.dials, addr)
	delay, err, log := p.dialDelay, p.dialErr, p.log
	p.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	cl, srv := pipe()
	sc := &serverConn{p: p, l: srv, mtu: att.DefaultMTU, reqs: make(chan []byte, 64)}
	p.mu.Lock()
	p.conns = append(p.conns, sc)
	p.mu.Unlock()
	go sc.readLoop()
	go sc.serve()
	log.WithFields(logrus.Fields{"addr": addr, "type": typ}).Debug("gatttest: connected")
	return cl, nil
}

// Disconnect drops every open link.
func (p *Peripheral) Disconnect() {
	p.mu.Lock()
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()
	for _, sc := range conns {
		sc.l.Close()
	}
}

// Notify sends a Handle Value Notification for h on every open link.
func (p *Peripheral) Notify(h uint16, v []byte) {
	p.push(append([]byte{att.OpHandleNotify, byte(h), byte(h >> 8)}, v...))
}

// Indicate sends a Handle Value Indication for h on every open link.
// Confirmations are counted by Confirmations.
func (p *Peripheral) Indicate(h uint16, v []byte) {
	p.push(append([]byte{att.OpHandleInd, byte(h), byte(h >> 8)}, v...))
}

func (p *Peripheral) push(pdu []byte) {
	p.mu.Lock()
	conns := append([]*serverConn(nil), p.conns...)
	p.mu.Unlock()
	for _, sc := range conns {
		sc.write(pdu)
	}
}
