// Command gattwrite connects to a BLE peripheral and writes a value to
// one attribute handle.
//
//	gattwrite 00:11:22:33:44:55
//	gattwrite --handle 0x2e --value 02 00:11:22:33:44:55
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		// Ctrl+C is a normal exit
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		os.Exit(1)
	}
}
