// Package regmap describes the register map: which offsets exist under
// each base, whether they are readable/writable, and their write-masks
// and bit layouts. It holds no device state — it is a lookup table
// consulted by both the device's command interpreter and the driver's
// local access-permission check.
package regmap

import "regctl/internal/protocol"

// Offsets within each base.
const (
	// MAIN (read-only)
	OffConnectedDevice byte = 0x00
	OffReservedMain    byte = 0x01
	OffPowerState      byte = 0x02
	OffErrorState      byte = 0x03

	// SENSOR (read-only)
	OffTempID     byte = 0x10
	OffTempValue  byte = 0x11
	OffHumidID    byte = 0x20
	OffHumidValue byte = 0x21

	// ACTUATOR (read/write)
	OffLED    byte = 0x10
	OffFan    byte = 0x20
	OffHeater byte = 0x30
	OffDoors  byte = 0x40

	// CONTROL (read/write)
	OffPowerSensors   byte = 0xFB
	OffPowerActuators byte = 0xFC
	OffResetSensors   byte = 0xFD
	OffResetActuators byte = 0xFE
)

// Bit masks shared by connected_device/power_state/error_state and by
// the actuator/control write-masks. Per spec.md §9 Open Question 1,
// these match the driver source rather than the LAW.md table: one bit
// per component, not grouped by kind.
const (
	MaskTempSensor  byte = 0x01 // sa
	MaskHumidSensor byte = 0x10 // sb
	MaskLED         byte = 0x01
	MaskFan         byte = 0x04
	MaskHeater      byte = 0x10
	MaskDoors       byte = 0x40
)

// Register write-masks (§3).
const (
	MaskHeaterWrite         byte = 0x0F
	MaskDoorsWrite          byte = 0x55
	MaskPowerSensorsWrite   byte = 0x11
	MaskResetSensorsWrite   byte = 0x11
	MaskPowerActuatorsWrite byte = 0x55
	MaskResetActuatorsWrite byte = 0x55
)

// Access describes how a base space may be accessed.
type Access int

const (
	AccessNone Access = iota
	AccessReadOnly
	AccessReadWrite
)

// BaseAccess returns the access mode for a base address.
func BaseAccess(base byte) Access {
	switch base {
	case protocol.BaseReserved:
		return AccessNone
	case protocol.BaseMain, protocol.BaseSensor:
		return AccessReadOnly
	case protocol.BaseActuator, protocol.BaseControl:
		return AccessReadWrite
	default:
		return AccessNone
	}
}

// KnownOffset reports whether offset is a recognized register within
// base, and if so, the write-mask that applies to writes at that
// offset (0 for read-only registers, where writes are forbidden
// outright rather than masked).
func KnownOffset(base, offset byte) (known bool, writeMask byte) {
	switch base {
	case protocol.BaseMain:
		switch offset {
		case OffConnectedDevice, OffReservedMain, OffPowerState, OffErrorState:
			return true, 0
		}
	case protocol.BaseSensor:
		switch offset {
		case OffTempID, OffTempValue, OffHumidID, OffHumidValue:
			return true, 0
		}
	case protocol.BaseActuator:
		switch offset {
		case OffLED, OffFan:
			return true, 0xFF
		case OffHeater:
			return true, MaskHeaterWrite
		case OffDoors:
			return true, MaskDoorsWrite
		}
	case protocol.BaseControl:
		switch offset {
		case OffPowerSensors:
			return true, MaskPowerSensorsWrite
		case OffPowerActuators:
			return true, MaskPowerActuatorsWrite
		case OffResetSensors:
			return true, MaskResetSensorsWrite
		case OffResetActuators:
			return true, MaskResetActuatorsWrite
		}
	}
	return false, 0
}

// DoorBit returns the doors-register bit position for a 1-indexed door
// id (1..4), per spec.md §4.4: bit = 2*(id-1).
func DoorBit(id int) (bit uint, ok bool) {
	if id < 1 || id > 4 {
		return 0, false
	}
	return uint(2 * (id - 1)), true
}
