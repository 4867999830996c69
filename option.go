package gatt

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultConnectTimeout bounds WaitUntilConnected.
	DefaultConnectTimeout = 15 * time.Second

	// DefaultRequestTimeout bounds each ATT transaction.
	DefaultRequestTimeout = 15 * time.Second
)

// An Option configures a Conn in Connect. It returns an option to
// restore the last arg's previous value.
// See http://commandcenter.blogspot.com.au/2014/01/self-referential-functions-and-design.html for more discussion.
type Option func(*Conn) Option

// ConnectTimeout bounds WaitUntilConnected. Zero leaves the bound to the
// caller's context.
func ConnectTimeout(d time.Duration) Option {
	return func(c *Conn) Option {
		prev := c.connectTimeout
		c.connectTimeout = d
		return ConnectTimeout(prev)
	}
}

// RequestTimeout bounds every ATT transaction. Zero leaves the bound to
// the caller's context.
func RequestTimeout(d time.Duration) Option {
	return func(c *Conn) Option {
		prev := c.requestTimeout
		c.requestTimeout = d
		return RequestTimeout(prev)
	}
}

// AddressType sets whether the peripheral uses a public or random address.
func AddressType(t AddrType) Option {
	return func(c *Conn) Option {
		prev := c.addrType
		c.addrType = t
		return AddressType(prev)
	}
}

// ClientMTU sets the ATT_MTU proposed once connected. Values above the
// LE default trigger an MTU exchange before the Conn reports Connected.
// The value is clamped to [23, 517].
func ClientMTU(mtu int) Option {
	return func(c *Conn) Option {
		prev := c.clientMTU
		c.clientMTU = clampMTU(mtu)
		return ClientMTU(int(prev))
	}
}

// HCI selects the local adapter by index, e.g. 0 for hci0.
// A negative index lets the system choose. It has no effect
// together with WithDialer.
func HCI(n int) Option {
	return func(c *Conn) Option {
		prev := c.hci
		c.hci = n
		return HCI(prev)
	}
}

// WithDialer replaces the platform dialer.
func WithDialer(d Dialer) Option {
	return func(c *Conn) Option {
		prev := c.dialer
		c.dialer = d
		return WithDialer(prev)
	}
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(l logrus.Ext1FieldLogger) Option {
	return func(c *Conn) Option {
		prev := c.log
		c.log = l
		return WithLogger(prev)
	}
}
