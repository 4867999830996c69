package gatt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/XC-/gattlib/att"
	"github.com/XC-/gattlib/internal/groutine"
)

var errConnClosed = fmt.Errorf("%w: connection closed", ErrLinkLost)

// A Conn is one logical connection to a peripheral. It is created in
// StateConnecting by Connect and owned by the caller, who must Close it.
// GATT operations are only valid while it is Connected.
type Conn struct {
	addr BDAddr

	addrType       AddrType
	connectTimeout time.Duration
	requestTimeout time.Duration
	clientMTU      uint16
	hci            int
	dialer         Dialer
	log            logrus.Ext1FieldLogger

	mu      sync.Mutex
	state   State
	err     error         // why the last transition away from Connected/Connecting happened
	changed chan struct{} // closed and replaced on every state change
	att     *attClient
	cancel  context.CancelFunc
	closed  bool
}

// Connect starts connecting to the peripheral at address, written as six
// colon-separated hex octets. It returns at once, with the Conn in
// StateConnecting; use WaitUntilConnected to block until the link is up.
func Connect(address string, opts ...Option) (*Conn, error) {
	addr, err := ParseBDAddr(address)
	if err != nil {
		return nil, err
	}
	c := &Conn{
		addr:           addr,
		connectTimeout: DefaultConnectTimeout,
		requestTimeout: DefaultRequestTimeout,
		clientMTU:      att.DefaultMTU,
		hci:            -1,
		log:            logrus.StandardLogger(),
		state:          StateDisconnected,
		changed:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = defaultDialer(c.hci)
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	c.log = c.log.WithField("addr", addr.String())

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.setState(StateConnecting, nil)
	c.mu.Unlock()

	d := dialParams{dialer: c.dialer, typ: c.addrType, mtu: c.clientMTU, timeout: c.requestTimeout}
	groutine.Go(ctx, "gatt-dial", func(ctx context.Context) { c.dial(ctx, d) })
	return c, nil
}

// Dial connects to address and waits until the link is up.
// On failure the Conn is closed and only the error is returned.
func Dial(ctx context.Context, address string, opts ...Option) (*Conn, error) {
	c, err := Connect(address, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.WaitUntilConnected(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

type dialParams struct {
	dialer  Dialer
	typ     AddrType
	mtu     uint16
	timeout time.Duration
}

func (c *Conn) dial(ctx context.Context, d dialParams) {
	c.log.WithField("type", d.typ).Debug("connecting")
	l, err := d.dialer.Dial(ctx, c.addr, d.typ)
	if err != nil {
		if ctx.Err() == nil {
			c.fail(err)
		}
		return
	}

	a := newATTClient(l, d.mtu, c.log)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		l.Close()
		return
	}
	c.att = a
	c.mu.Unlock()
	a.start(ctx)

	if d.mtu > att.DefaultMTU {
		rctx, cancel := withTimeout(ctx, d.timeout)
		_, err := a.exchangeMTU(rctx, int(d.mtu))
		cancel()
		var ae *AttError
		switch {
		case errors.As(err, &ae):
			c.log.WithError(err).Warn("mtu exchange refused, keeping default")
		case err != nil:
			c.fail(err)
			return
		}
	}

	c.mu.Lock()
	if c.closed || c.att != a {
		c.mu.Unlock()
		return
	}
	c.setState(StateConnected, nil)
	c.mu.Unlock()
	c.log.WithField("mtu", a.MTU()).Info("connected")

	groutine.Go(ctx, "gatt-link-watch", func(context.Context) {
		<-a.done
		c.linkDown(a)
	})
}

// fail moves a connecting Conn to StateFailed.
func (c *Conn) fail(err error) {
	kind := ErrLinkLost
	if errors.Is(err, ErrRadioUnavailable) {
		kind = ErrRadioUnavailable
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	a := c.att
	c.setState(StateFailed, &ConnectError{Addr: c.addr, Kind: kind, Err: err})
	c.mu.Unlock()
	if a != nil {
		a.close()
	}
	c.log.WithError(err).Warn("connection failed")
}

func (c *Conn) linkDown(a *attClient) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.att != a || c.state != StateConnected {
		return
	}
	c.setState(StateDisconnected, &ConnectError{Addr: c.addr, Kind: ErrLinkLost, Err: a.err})
	c.log.WithError(a.err).Info("disconnected")
}

// setState must be called with c.mu held.
func (c *Conn) setState(s State, err error) {
	c.state = s
	c.err = err
	close(c.changed)
	c.changed = make(chan struct{})
}

// WaitUntilConnected blocks until c is Connected, the attempt fails, or
// the wait times out. The wait ends at ctx's deadline or after the
// ConnectTimeout option, whichever comes first. A timed out wait leaves
// the attempt running; Close abandons it.
func (c *Conn) WaitUntilConnected(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, c.connectTimeout)
	defer cancel()
	for {
		c.mu.Lock()
		s, err, changed := c.state, c.err, c.changed
		c.mu.Unlock()

		switch s {
		case StateConnected:
			return nil
		case StateFailed, StateDisconnected:
			if err == nil {
				err = &ConnectError{Addr: c.addr, Kind: ErrLinkLost}
			}
			return err
		}

		select {
		case <-changed:
		case <-ctx.Done():
			cerr := ctx.Err()
			if !errors.Is(cerr, context.DeadlineExceeded) {
				return fmt.Errorf("connect %s: %w", c.addr, cerr)
			}
			return &ConnectError{Addr: c.addr, Kind: ErrTimeout, Err: cerr}
		}
	}
}

// State returns the current state of c.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether c is Connected.
func (c *Conn) IsConnected() bool { return c.State() == StateConnected }

// Err returns why c left StateConnecting or StateConnected, if it did.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// RemoteAddr returns the address of the peripheral.
func (c *Conn) RemoteAddr() BDAddr { return c.addr }

// MTU returns the current ATT_MTU, or the LE default before connecting.
func (c *Conn) MTU() int {
	c.mu.Lock()
	a := c.att
	c.mu.Unlock()
	if a == nil {
		return att.DefaultMTU
	}
	return a.MTU()
}

// Close releases c: it abandons a pending connection attempt, drops the
// link and wakes every waiter. Close is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	a := c.att
	prev := c.state
	c.cancel()
	c.setState(StateDisconnected, &ConnectError{Addr: c.addr, Kind: ErrLinkLost, Err: errConnClosed})
	c.mu.Unlock()

	if a != nil {
		a.close()
	}
	c.log.WithField("state", prev).Debug("closed")
	return nil
}

// client returns the ATT client of a Connected c and the request context.
func (c *Conn) client(ctx context.Context) (*attClient, context.Context, context.CancelFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.att == nil {
		return nil, nil, nil, ErrNotConnected
	}
	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	return c.att, ctx, cancel, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
