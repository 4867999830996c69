package gatttest

import (
	"io"
	"sync"
)

// pipe returns the two ends of an in-memory packet link. Every Write
// arrives as exactly one Read on the other end. Closing either end
// closes both and unblocks pending Reads with io.EOF once the
// messages already sent are drained.
func pipe() (*pipeEnd, *pipeEnd) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	s := &pipeState{done: make(chan struct{})}
	return &pipeEnd{rx: ba, tx: ab, s: s}, &pipeEnd{rx: ab, tx: ba, s: s}
}

type pipeState struct {
	once sync.Once
	done chan struct{}
}

type pipeEnd struct {
	rx <-chan []byte
	tx chan<- []byte
	s  *pipeState
}

func (p *pipeEnd) Read(b []byte) (int, error) {
	select {
	case m := <-p.rx:
		return copy(b, m), nil
	default:
	}
	select {
	case m := <-p.rx:
		return copy(b, m), nil
	case <-p.s.done:
		return 0, io.EOF
	}
}

func (p *pipeEnd) Write(b []byte) (int, error) {
	m := append([]byte(nil), b...)
	select {
	case <-p.s.done:
		return 0, io.ErrClosedPipe
	default:
	}
	select {
	case p.tx <- m:
		return len(b), nil
	case <-p.s.done:
		return 0, io.ErrClosedPipe
	}
}

func (p *pipeEnd) Close() error {
	p.s.once.Do(func() { close(p.s.done) })
	return nil
}
