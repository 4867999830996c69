package gatt

import "fmt"

// State is the state of a Conn.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFailed
)

func (s State) String() string {
	str := []string{
		"Disconnected",
		"Connecting",
		"Connected",
		"Failed",
	}
	if s < 0 || int(s) >= len(str) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return str[int(s)]
}
