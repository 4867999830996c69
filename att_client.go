package gatt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/XC-/gattlib/att"
	"github.com/XC-/gattlib/internal/groutine"
)

// attClient is the client side of one ATT bearer. ATT is strictly
// sequential: a new request may not be sent before the previous one
// has been answered [Vol 3, Part F, 3.3.2].
type attClient struct {
	l   Link
	log logrus.Ext1FieldLogger

	sem chan struct{} // holds the one outstanding request
	wmu sync.Mutex    // serializes writes to the link

	mu      sync.Mutex
	pending chan []byte
	mtu     uint16
	rxMTU   uint16 // the mtu we advertise

	done      chan struct{}
	err       error // valid once done is closed
	closeOnce sync.Once
}

func newATTClient(l Link, rxMTU uint16, log logrus.Ext1FieldLogger) *attClient {
	rxMTU = clampMTU(int(rxMTU))
	return &attClient{
		l:     l,
		log:   log,
		sem:   make(chan struct{}, 1),
		mtu:   att.DefaultMTU,
		rxMTU: rxMTU,
		done:  make(chan struct{}),
	}
}

func (c *attClient) start(ctx context.Context) {
	groutine.Go(ctx, "att-reader", func(context.Context) { c.loop() })
}

func (c *attClient) MTU() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.mtu)
}

// sendRequest sends the request pdu and waits for its response, which is
// returned opcode included. An Error Response is returned as *AttError.
// If ctx ends after the request went out, the bearer is closed: a late
// response could otherwise be matched to the next request.
func (c *attClient) sendRequest(ctx context.Context, pdu []byte) ([]byte, error) {
	select {
	case c.sem <- struct{}{}:
	case <-c.done:
		return nil, c.err
	case <-ctx.Done():
		return nil, ctxErr(ctx)
	}
	defer func() { <-c.sem }()

	if len(pdu) > c.MTU() {
		return nil, fmt.Errorf("%w: %d > %d", ErrValueTooLong, len(pdu), c.MTU())
	}

	op := pdu[0]
	rspc := make(chan []byte, 1)
	c.mu.Lock()
	c.pending = rspc
	c.mu.Unlock()

	if err := c.write(pdu); err != nil {
		c.clearPending(rspc)
		return nil, err
	}

	select {
	case rsp := <-rspc:
		return checkResponse(op, rsp)
	case <-c.done:
		return nil, c.err
	case <-ctx.Done():
		c.clearPending(rspc)
		err := ctxErr(ctx)
		c.log.WithField("opcode", fmt.Sprintf("0x%02x", op)).Warn("att: request abandoned, closing bearer")
		c.shutdown(fmt.Errorf("%w: att transaction abandoned", ErrLinkLost))
		return nil, err
	}
}

// sendCommand sends a pdu that has no response, such as a Write Command.
func (c *attClient) sendCommand(pdu []byte) error {
	if len(pdu) > c.MTU() {
		return fmt.Errorf("%w: %d > %d", ErrValueTooLong, len(pdu), c.MTU())
	}
	return c.write(pdu)
}

// exchangeMTU proposes mtu to the server and applies the result.
// Both the proposal and the result stay within [DefaultMTU, MaxMTU],
// the size of the receive buffer.
func (c *attClient) exchangeMTU(ctx context.Context, mtu int) (uint16, error) {
	rx := clampMTU(mtu)
	rsp, err := c.sendRequest(ctx, att.MtuReq(rx))
	if err != nil {
		return 0, err
	}
	srv, err := att.ParseMtu(rsp)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed mtu response", ErrRejected)
	}
	m := clampMTU(min(int(srv), int(rx)))
	c.mu.Lock()
	c.mtu = m
	c.mu.Unlock()
	c.log.WithField("mtu", m).Debug("att: mtu exchanged")
	return m, nil
}

func clampMTU(mtu int) uint16 {
	return uint16(min(max(mtu, att.DefaultMTU), att.MaxMTU))
}

func checkResponse(op byte, rsp []byte) ([]byte, error) {
	if rsp[0] == att.OpError {
		var e att.ErrorResponse
		if err := e.Unmarshal(rsp); err != nil {
			return nil, fmt.Errorf("%w: malformed error response [ % X ]", ErrRejected, rsp)
		}
		if e.Opcode != op {
			return nil, fmt.Errorf("%w: error response for opcode 0x%02x, sent 0x%02x", ErrRejected, e.Opcode, op)
		}
		return nil, &AttError{Opcode: e.Opcode, Handle: e.Handle, Code: e.Code}
	}
	if want, _ := att.ResponseFor(op); rsp[0] != want {
		return nil, fmt.Errorf("%w: response 0x%02x to request 0x%02x", ErrRejected, rsp[0], op)
	}
	return rsp, nil
}

func (c *attClient) clearPending(rspc chan []byte) {
	c.mu.Lock()
	if c.pending == rspc {
		c.pending = nil
	}
	c.mu.Unlock()
}

func (c *attClient) write(pdu []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	select {
	case <-c.done:
		return c.err
	default:
	}
	c.log.Tracef("W: [ % X ]", pdu)
	if _, err := c.l.Write(pdu); err != nil {
		c.shutdown(fmt.Errorf("%w: %v", ErrLinkLost, err))
		return c.err
	}
	return nil
}

func (c *attClient) loop() {
	b := make([]byte, att.MaxMTU)
	for {
		n, err := c.l.Read(b)
		if err != nil {
			c.shutdown(fmt.Errorf("%w: %v", ErrLinkLost, err))
			return
		}
		if n == 0 {
			c.shutdown(fmt.Errorf("%w: closed by peer", ErrLinkLost))
			return
		}
		p := make([]byte, n)
		copy(p, b)
		c.log.Tracef("R: [ % X ]", p)
		c.handle(p)
	}
}

func (c *attClient) handle(p []byte) {
	op := p[0]
	switch {
	case att.IsResponse(op):
		c.mu.Lock()
		rspc := c.pending
		c.pending = nil
		c.mu.Unlock()
		if rspc == nil {
			c.log.WithField("opcode", fmt.Sprintf("0x%02x", op)).Warn("att: dropping unsolicited response")
			return
		}
		rspc <- p

	case op == att.OpHandleNotify, op == att.OpHandleInd:
		if len(p) >= 3 {
			c.log.WithFields(logrus.Fields{
				"handle": fmt.Sprintf("0x%04x", uint16(p[1])|uint16(p[2])<<8),
				"value":  fmt.Sprintf("% X", p[3:]),
			}).Debug("att: unsubscribed handle value")
		}
		if op == att.OpHandleInd {
			c.reply(att.HandleCnf())
		}

	case op == att.OpMtuReq:
		if srv, err := att.ParseMtu(p); err == nil {
			m := clampMTU(min(int(srv), int(c.rxMTU)))
			c.mu.Lock()
			c.mtu = m
			c.mu.Unlock()
		}
		c.reply(att.MtuResp(c.rxMTU))

	case att.IsCommand(op):
		// commands never get a response

	default:
		c.reply(att.ErrorResp(op, 0x0000, att.EcodeReqNotSupp))
	}
}

// reply answers the server from the reader goroutine.
func (c *attClient) reply(pdu []byte) {
	if err := c.write(pdu); err != nil {
		c.log.WithError(err).Debug("att: reply failed")
	}
}

func (c *attClient) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		c.l.Close()
		close(c.done)
		c.log.WithError(err).Debug("att: bearer closed")
	})
}

func (c *attClient) close() { c.shutdown(errConnClosed) }

func ctxErr(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
