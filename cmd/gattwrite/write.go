package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	gatt "github.com/XC-/gattlib"
	"github.com/XC-/gattlib/config"
)

type writeFlags struct {
	handle          uint16
	value           string
	withoutResponse bool
	timeout         time.Duration
	addressType     string
	hci             int
	mtu             int
	configPath      string
	logLevel        string
}

// newRootCmd builds the command. A nil dialer uses the platform one.
func newRootCmd(dialer gatt.Dialer) *cobra.Command {
	var f writeFlags
	cmd := &cobra.Command{
		Use:   "gattwrite <device-address>",
		Short: "Write a value to a GATT attribute handle",
		Long: `Connects to a BLE peripheral, waits until the link is up and writes
a value to one attribute handle.

Examples:
  # Write 02 to handle 0x2e
  gattwrite 00:11:22:33:44:55

  # Write a longer value to another handle without waiting for a response
  gattwrite 00:11:22:33:44:55 --handle 0x10 --value 0102ff --without-response`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// arguments are valid, runtime errors need no usage text
			cmd.SilenceUsage = true
			return runWrite(cmd, args[0], &f, dialer)
		},
	}
	cmd.SilenceErrors = true

	fl := cmd.Flags()
	fl.Uint16Var(&f.handle, "handle", 0x2e, "Attribute handle, decimal or 0x-prefixed hex")
	fl.StringVar(&f.value, "value", "02", "Value as hex bytes, e.g. 02 or 01:02:ff")
	fl.BoolVar(&f.withoutResponse, "without-response", false, "Send a Write Command instead of a Write Request")
	fl.DurationVar(&f.timeout, "timeout", 15*time.Second, "Connect timeout")
	fl.StringVar(&f.addressType, "address-type", "public", "Peripheral address type (public, random)")
	fl.IntVar(&f.hci, "hci", -1, "Adapter index, -1 for any")
	fl.IntVar(&f.mtu, "mtu", 23, "ATT_MTU to propose after connecting")
	fl.StringVar(&f.configPath, "config", "", "YAML config file")
	fl.StringVar(&f.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	return cmd
}

// loadConfig reads the config file, if any, and applies the flags the
// user set explicitly on top of it.
func loadConfig(cmd *cobra.Command, f *writeFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}

	fl := cmd.Flags()
	if fl.Changed("timeout") {
		cfg.ConnectTimeout = f.timeout
	}
	if fl.Changed("address-type") {
		cfg.AddressType = f.addressType
	}
	if fl.Changed("hci") {
		cfg.HCI = f.hci
	}
	if fl.Changed("mtu") {
		cfg.MTU = f.mtu
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseValue decodes hex bytes, optionally 0x-prefixed and separated
// by colons or spaces.
func parseValue(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	s = strings.NewReplacer(":", "", " ", "", "-", "").Replace(s)
	if s == "" {
		return nil, errors.New("empty value")
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex value: %w", err)
	}
	return b, nil
}

func runWrite(cmd *cobra.Command, address string, f *writeFlags, dialer gatt.Dialer) error {
	value, err := parseValue(f.value)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	log.SetOutput(cmd.ErrOrStderr())

	opts := cfg.Options(log)
	if dialer != nil {
		opts = append(opts, gatt.WithDialer(dialer))
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	ok := color.New(color.FgGreen)

	fmt.Fprint(out, "Connecting... ")
	c, err := gatt.Connect(address, opts...)
	if err != nil {
		fmt.Fprintln(out)
		return err
	}
	defer c.Close()
	if err := c.WaitUntilConnected(ctx); err != nil {
		fmt.Fprintln(out)
		return err
	}
	ok.Fprintln(out, "OK!")

	log.WithFields(logrus.Fields{
		"handle": fmt.Sprintf("0x%04x", f.handle),
		"value":  fmt.Sprintf("% X", value),
	}).Debug("writing")
	if f.withoutResponse {
		err = c.WriteCmdByHandle(ctx, f.handle, value)
	} else {
		err = c.WriteByHandle(ctx, f.handle, value)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Done.")
	return nil
}
