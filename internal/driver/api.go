// This file implements the high-level sensor/actuator/power/reset
// operations of spec.md §4.4, built on top of the register read/write
// layer in registers.go. Every exported method here acquires the
// session mutex once for its full duration, matching spec.md §5: "a
// new command is not sent until the previous response is received."
package driver

import (
	"regctl/internal/protocol"
	"regctl/internal/regmap"
)

// Status mirrors spec.md §4.4's get_status output record.
type Status struct {
	Connected        bool
	SensorsPowered   bool
	ActuatorsPowered bool
	HasErrors        bool
}

// GetStatus reads MAIN.connected_device, MAIN.power_state and
// MAIN.error_state and decodes them into a Status.
func (s *Session) GetStatus() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	connected, e := s.readRegister(protocol.BaseMain, regmap.OffConnectedDevice)
	if e != nil {
		return Status{}, e
	}
	power, e := s.readRegister(protocol.BaseMain, regmap.OffPowerState)
	if e != nil {
		return Status{}, e
	}
	errs, e := s.readRegister(protocol.BaseMain, regmap.OffErrorState)
	if e != nil {
		return Status{}, e
	}

	sensorMask := regmap.MaskTempSensor | regmap.MaskHumidSensor
	actuatorMask := regmap.MaskLED | regmap.MaskFan | regmap.MaskHeater | regmap.MaskDoors
	return Status{
		Connected:        connected != 0,
		SensorsPowered:   power&sensorMask != 0,
		ActuatorsPowered: power&actuatorMask != 0,
		HasErrors:        errs != 0,
	}, nil
}

// GetTemperature reads SENSOR.temp_value.
func (s *Session) GetTemperature() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readWrap(protocol.BaseSensor, regmap.OffTempValue)
}

// GetHumidity reads SENSOR.humid_value.
func (s *Session) GetHumidity() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readWrap(protocol.BaseSensor, regmap.OffHumidValue)
}

// GetLED reads ACTUATOR.LED.
func (s *Session) GetLED() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readWrap(protocol.BaseActuator, regmap.OffLED)
}

// SetLED writes ACTUATOR.LED.
func (s *Session) SetLED(v byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.writeRegister(protocol.BaseActuator, regmap.OffLED, v); e != nil {
		return e
	}
	return nil
}

// GetFan reads ACTUATOR.fan.
func (s *Session) GetFan() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readWrap(protocol.BaseActuator, regmap.OffFan)
}

// SetFan writes ACTUATOR.fan.
func (s *Session) SetFan(v byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.writeRegister(protocol.BaseActuator, regmap.OffFan, v); e != nil {
		return e
	}
	return nil
}

// GetHeater reads ACTUATOR.heater, masked to the low (writable) nibble.
func (s *Session) GetHeater() (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, e := s.readWrap(protocol.BaseActuator, regmap.OffHeater)
	if e != nil {
		return 0, e
	}
	return v & regmap.MaskHeaterWrite, nil
}

// SetHeater performs a read-modify-write: it reads the current heater
// byte, preserves the reserved upper nibble, and writes
// (current &^ 0x0F) | (v & 0x0F), per spec.md §4.4/§9 ("partial-write
// registers").
func (s *Session) SetHeater(v byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, e := s.readRegister(protocol.BaseActuator, regmap.OffHeater)
	if e != nil {
		return e
	}
	next := (current &^ regmap.MaskHeaterWrite) | (v & regmap.MaskHeaterWrite)
	if e := s.writeRegister(protocol.BaseActuator, regmap.OffHeater, next); e != nil {
		return e
	}
	return nil
}

// SetDoor sets or clears the single bit for door id (1..4), preserving
// all other door bits, then reads the register back and verifies the
// target bit took effect (spec.md §4.4/§9: doors are safety-relevant,
// so the driver pays for the extra round trip here and nowhere else).
func (s *Session) SetDoor(id int, open bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bit, ok := regmap.DoorBit(id)
	if !ok {
		return s.setErr(newErr(ErrInvalidParameter, "door id %d out of range 1..4", id))
	}
	mask := byte(1) << bit

	current, e := s.readRegister(protocol.BaseActuator, regmap.OffDoors)
	if e != nil {
		return e
	}
	var next byte
	if open {
		next = (current | mask) & regmap.MaskDoorsWrite
	} else {
		next = (current &^ mask) & regmap.MaskDoorsWrite
	}
	if e := s.writeRegister(protocol.BaseActuator, regmap.OffDoors, next); e != nil {
		return e
	}

	verify, e := s.readRegister(protocol.BaseActuator, regmap.OffDoors)
	if e != nil {
		return e
	}
	gotOpen := verify&mask != 0
	if gotOpen != open {
		return s.setErr(newErr(ErrDeviceError, "door %d verification failed: wanted open=%v, read back %#x", id, open, verify))
	}
	return nil
}

// GetDoorState reads the doors register fresh from the device (no
// cache) and returns whether door id is open.
func (s *Session) GetDoorState(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bit, ok := regmap.DoorBit(id)
	if !ok {
		return false, s.setErr(newErr(ErrInvalidParameter, "door id %d out of range 1..4", id))
	}
	v, e := s.readRegister(protocol.BaseActuator, regmap.OffDoors)
	if e != nil {
		return false, e
	}
	return v&(byte(1)<<bit) != 0, nil
}

// SetPowerState updates only the bit for component in the applicable
// CONTROL power register (power_sensors or power_actuators),
// preserving the other bits.
func (s *Session) SetPowerState(c Component, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bit, e := c.bit()
	if e != nil {
		return s.setErr(e)
	}
	offset := regmap.OffPowerActuators
	if c.isSensor() {
		offset = regmap.OffPowerSensors
	}

	current, ee := s.readRegister(protocol.BaseControl, offset)
	if ee != nil {
		return ee
	}
	var next byte
	if on {
		next = current | bit
	} else {
		next = current &^ bit
	}
	if ee := s.writeRegister(protocol.BaseControl, offset, next); ee != nil {
		return ee
	}
	return nil
}

// GetPowerState reads MAIN.power_state and projects it to component's
// bit.
func (s *Session) GetPowerState(c Component) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bit, e := c.bit()
	if e != nil {
		return false, s.setErr(e)
	}
	v, ee := s.readRegister(protocol.BaseMain, regmap.OffPowerState)
	if ee != nil {
		return false, ee
	}
	return v&bit != 0, nil
}

// GetErrorState reads MAIN.error_state and projects it to component's
// bit.
func (s *Session) GetErrorState(c Component) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bit, e := c.bit()
	if e != nil {
		return false, s.setErr(e)
	}
	v, ee := s.readRegister(protocol.BaseMain, regmap.OffErrorState)
	if ee != nil {
		return false, ee
	}
	return v&bit != 0, nil
}

// ResetComponent sets component's single bit in the applicable CONTROL
// reset register and clears the other bits in the same write, per
// spec.md §4.4: "a single-shot request; the device auto-clears."
func (s *Session) ResetComponent(c Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bit, e := c.bit()
	if e != nil {
		return s.setErr(e)
	}
	offset := regmap.OffResetActuators
	if c.isSensor() {
		offset = regmap.OffResetSensors
	}
	if ee := s.writeRegister(protocol.BaseControl, offset, bit); ee != nil {
		return ee
	}
	return nil
}

// readWrap lifts readRegister's *Error to the plain error interface
// expected by exported methods.
func (s *Session) readWrap(base, offset byte) (byte, error) {
	v, e := s.readRegister(base, offset)
	if e != nil {
		return 0, e
	}
	return v, nil
}
