package gatttest

import (
	"time"

	"github.com/sirupsen/logrus"
)

// An Option configures a Peripheral. It returns an option to restore
// the last arg's previous value.
type Option func(*Peripheral) Option

// MTU sets the server receive MTU sent in Exchange MTU Responses.
func MTU(mtu uint16) Option {
	return func(p *Peripheral) Option {
		prev := p.mtu
		p.mtu = mtu
		return MTU(prev)
	}
}

// FirstHandle sets the handle of the next attribute added.
// It must be set before any service is added.
func FirstHandle(h uint16) Option {
	return func(p *Peripheral) Option {
		prev := p.attrs.base
		if len(p.attrs.aa) == 0 {
			p.attrs.base = h
		}
		return FirstHandle(prev)
	}
}

// ResponseDelay delays every response.
func ResponseDelay(d time.Duration) Option {
	return func(p *Peripheral) Option {
		prev := p.respDelay
		p.respDelay = d
		return ResponseDelay(prev)
	}
}

// DialDelay delays Dial.
func DialDelay(d time.Duration) Option {
	return func(p *Peripheral) Option {
		prev := p.dialDelay
		p.dialDelay = d
		return DialDelay(prev)
	}
}

// DialError makes Dial fail with err.
func DialError(err error) Option {
	return func(p *Peripheral) Option {
		prev := p.dialErr
		p.dialErr = err
		return DialError(prev)
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.Ext1FieldLogger) Option {
	return func(p *Peripheral) Option {
		prev := p.log
		p.log = l
		return WithLogger(prev)
	}
}
