package gatt

// This file includes constants from the Bluetooth Core Specification.

// GATT attribute types [Vol 3, Part G, 3].
var (
	PrimaryServiceUUID   = UUID16(0x2800)
	SecondaryServiceUUID = UUID16(0x2801)
	IncludeUUID          = UUID16(0x2802)
	CharacteristicUUID   = UUID16(0x2803)

	ClientCharacteristicConfigUUID = UUID16(0x2902)
	DeviceNameUUID                 = UUID16(0x2A00)
)

// Handles span [MinHandle, MaxHandle]; 0x0000 is reserved.
const (
	MinHandle uint16 = 0x0001
	MaxHandle uint16 = 0xffff
)
