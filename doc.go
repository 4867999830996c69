// Package gatt provides a Bluetooth Low Energy GATT client.
//
// Gatt (Generic Attribute Profile) is the protocol used to talk to
// BLE peripherals (servers) from centrals (clients). This package is
// the client side: connect to one peripheral, then read and write its
// attributes over ATT.
//
// # STATUS
//
// Connecting, MTU exchange, primary service and characteristic
// discovery, reads (including long reads) and writes are done.
// Notifications and indications are acknowledged and logged but not
// yet delivered to callers.
//
// # SETUP
//
// gatt only supports Linux, with BlueZ installed. The link is an L2CAP
// socket on the LE ATT fixed channel, so bluetoothd may keep running
// and no exclusive access to the adapter is needed. Make sure the
// adapter is up:
//
//	sudo hciconfig hci0 up
//
// Opening L2CAP sockets may require privileges:
//
//	sudo <executable>
//	# OR
//	sudo setcap 'cap_net_raw,cap_net_admin+eip' <executable>
//	<executable>
//
// On other systems Connect fails with ErrRadioUnavailable unless a
// Dialer is supplied with WithDialer.
//
// # USAGE
//
// A Conn is created by Connect, which returns at once. Wait for the
// link, then issue requests:
//
//	c, err := gatt.Connect("00:11:22:33:44:55")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//	if err := c.WaitUntilConnected(ctx); err != nil {
//		log.Fatal(err)
//	}
//	if err := c.WriteByHandle(ctx, 0x2e, []byte{0x02}); err != nil {
//		log.Fatal(err)
//	}
//
// ATT allows one outstanding request per bearer. Requests issued
// concurrently on one Conn are queued and sent one at a time. A request
// whose context ends after it was sent closes the link, since its
// response can no longer be told apart from the next one.
//
// Errors are *ConnectError and *GattError values; match them with
// errors.Is against ErrTimeout, ErrLinkLost, ErrRadioUnavailable,
// ErrInvalidHandle or ErrPermissionDenied.
//
// Package gatttest provides an in-memory peripheral for tests.
//
// # REFERENCES
//
// Bluetooth Core Specification v5.3, Vol 3, Part F (ATT) and Part G (GATT).
package gatt
