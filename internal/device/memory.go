// Package device implements the device side of the register protocol:
// the authoritative register memory, the side-effect engine that
// applies masked writes, power propagation and reset auto-clear, and
// the TCP server that serializes client commands onto it. It is the
// simulator half of the protocol pair described by the teacher's
// internal/driver/device package, generalized from an ASIC's
// TxConfig/RxStatus wire format to the register protocol's six-hex-digit
// frames.
package device

import (
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"regctl/internal/protocol"
	"regctl/internal/regmap"
)

// Initial register values, §4.2.
const (
	initConnectedDevice byte = 0xFF
	initPowerState      byte = 0xFF
	initErrorState      byte = 0x00
	initSensorAID       byte = 0xA1
	initSensorBID       byte = 0xB2
	initPowerSensors    byte = 0x11
	initPowerActuators  byte = 0x55
)

// Stats counts commands processed by the memory engine, for the
// diagnostics surface. Memory holds it in its stats field, guarded by
// Memory's mutex.
type Stats struct {
	Reads   uint64
	Writes  uint64
	Errors  map[byte]uint64
}

// Memory is the authoritative register state of one simulated device.
// All access is serialized on mu: the command interpreter holds it for
// the full duration of one frame, including the trailing sensor tick,
// matching spec.md §4.2's concurrency rule.
type Memory struct {
	mu sync.Mutex

	connectedDevice byte
	reservedMain    byte
	powerState      byte
	errorState      byte

	sensorAID      byte
	sensorAReading byte
	sensorBID      byte
	sensorBReading byte

	led    byte
	fan    byte
	heater byte
	doors  byte

	powerSensors   byte
	powerActuators byte
	resetSensors   byte
	resetActuators byte

	rng   *rand.Rand
	stats Stats

	// badEchoOnce, when set, causes the next accepted write to echo a
	// corrupted data byte instead of the request's own data — a test
	// hook for scenario 7 of spec.md §8 (write-verification failure).
	// It is not reachable from the wire protocol.
	badEchoOnce bool
}

// NewMemory creates a device memory block initialized per spec.md §4.2.
// The sensor random walk is seeded from a digest of now and the initial
// register bytes, so runs are reproducible given the same start time
// without the engine claiming any particular statistical distribution
// (spec.md §9 Open Question 3).
func NewMemory(now time.Time) *Memory {
	m := &Memory{
		connectedDevice: initConnectedDevice,
		powerState:      initPowerState,
		errorState:      initErrorState,
		sensorAID:       initSensorAID,
		sensorBID:       initSensorBID,
		powerSensors:    initPowerSensors,
		powerActuators:  initPowerActuators,
		stats:           Stats{Errors: make(map[byte]uint64)},
	}
	m.rng = rand.New(rand.NewSource(seedFromTime(now)))
	m.sensorAReading = byte(m.rng.Intn(256))
	m.sensorBReading = byte(m.rng.Intn(256))
	return m
}

func seedFromTime(now time.Time) int64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(now.UnixNano()))
	buf[8] = initConnectedDevice
	buf[9] = initPowerState
	buf[10] = initSensorAID
	buf[11] = initSensorBID
	digest := blake2b.Sum256(buf[:])
	return int64(binary.LittleEndian.Uint64(digest[:8]))
}

// InjectBadEcho arms the write-verification-failure test hook: the next
// accepted write responds with a corrupted data byte instead of echoing
// the request. It exists for scenario 7 of spec.md §8 and is not part
// of the shipping wire surface.
func (m *Memory) InjectBadEcho() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.badEchoOnce = true
}

// SetErrorBit forces a bit of error_state, bypassing the normal
// side-effect engine. It exists so tests can induce the precondition
// for reset auto-clear (scenario 6 of spec.md §8) without waiting on
// the probabilistic sensor error model.
func (m *Memory) SetErrorBit(bit byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorState |= bit
}

// Execute dispatches one parsed request and returns the response
// message, applying the command interpretation rules of spec.md §4.2
// and then advancing the sensor simulation once before returning.
func (m *Memory) Execute(req protocol.Message) protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	resp := m.dispatch(req)
	if resp.IsError() {
		m.stats.Errors[resp.Error]++
	} else if req.RW == protocol.RWWrite {
		m.stats.Writes++
	} else {
		m.stats.Reads++
	}
	m.tickSensors()
	return resp
}

// Malformed records a frame that failed to parse (wrong length or a
// non-hex byte): per spec.md §4.2/§9.2 this is reported as forbidden,
// and, like any dispatched command, it still advances the sensor tick
// exactly once.
func (m *Memory) Malformed() protocol.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Errors[protocol.ErrForbidden]++
	m.tickSensors()
	return protocol.MakeError(protocol.ErrForbidden)
}

func (m *Memory) dispatch(req protocol.Message) protocol.Message {
	if req.Base == protocol.BaseReserved {
		return protocol.MakeError(protocol.ErrForbidden)
	}
	if req.RW != protocol.RWRead && req.RW != protocol.RWWrite {
		return protocol.MakeError(protocol.ErrInvalid)
	}

	switch regmap.BaseAccess(req.Base) {
	case regmap.AccessReadOnly:
		return m.dispatchReadOnly(req)
	case regmap.AccessReadWrite:
		if req.Base == protocol.BaseActuator {
			return m.dispatchActuator(req)
		}
		return m.dispatchControl(req)
	default:
		return protocol.MakeError(protocol.ErrForbidden)
	}
}

func (m *Memory) dispatchReadOnly(req protocol.Message) protocol.Message {
	if req.RW == protocol.RWWrite {
		return protocol.MakeError(protocol.ErrForbidden)
	}
	known, _ := regmap.KnownOffset(req.Base, req.Offset)
	if !known {
		return protocol.MakeError(protocol.ErrInvalid)
	}
	value := m.readKnown(req.Base, req.Offset)
	return protocol.Message{Base: req.Base, Offset: req.Offset, RW: req.RW, Data: value}
}

func (m *Memory) readKnown(base, offset byte) byte {
	if base == protocol.BaseMain {
		switch offset {
		case regmap.OffConnectedDevice:
			return m.connectedDevice
		case regmap.OffReservedMain:
			return m.reservedMain
		case regmap.OffPowerState:
			return m.powerState
		case regmap.OffErrorState:
			return m.errorState
		}
	}
	switch offset {
	case regmap.OffTempID:
		return m.sensorAID
	case regmap.OffTempValue:
		return m.sensorAReading
	case regmap.OffHumidID:
		return m.sensorBID
	case regmap.OffHumidValue:
		return m.sensorBReading
	}
	return 0
}

func (m *Memory) dispatchActuator(req protocol.Message) protocol.Message {
	known, writeMask := regmap.KnownOffset(req.Base, req.Offset)
	if !known {
		return protocol.MakeError(protocol.ErrInvalid)
	}
	if req.RW == protocol.RWRead {
		var value byte
		switch req.Offset {
		case regmap.OffLED:
			value = m.led
		case regmap.OffFan:
			value = m.fan
		case regmap.OffHeater:
			value = m.heater
		case regmap.OffDoors:
			value = m.doors
		}
		return protocol.Message{Base: req.Base, Offset: req.Offset, RW: req.RW, Data: value}
	}

	stored := req.Data & writeMask
	switch req.Offset {
	case regmap.OffLED:
		m.led = stored
	case regmap.OffFan:
		m.fan = stored
	case regmap.OffHeater:
		m.heater = stored
	case regmap.OffDoors:
		m.doors = stored
	}
	return m.writeEcho(req)
}

func (m *Memory) dispatchControl(req protocol.Message) protocol.Message {
	known, writeMask := regmap.KnownOffset(req.Base, req.Offset)
	if !known {
		return protocol.MakeError(protocol.ErrInvalid)
	}
	if req.RW == protocol.RWRead {
		var value byte
		switch req.Offset {
		case regmap.OffPowerSensors:
			value = m.powerSensors
		case regmap.OffPowerActuators:
			value = m.powerActuators
		case regmap.OffResetSensors:
			value = m.resetSensors
		case regmap.OffResetActuators:
			value = m.resetActuators
		}
		return protocol.Message{Base: req.Base, Offset: req.Offset, RW: req.RW, Data: value}
	}

	stored := req.Data & writeMask
	switch req.Offset {
	case regmap.OffPowerSensors:
		m.powerSensors = stored
		m.propagatePower(stored, regmap.MaskPowerSensorsWrite)
	case regmap.OffPowerActuators:
		m.powerActuators = stored
		m.propagatePower(stored, regmap.MaskPowerActuatorsWrite)
	case regmap.OffResetSensors:
		m.resetSensors = m.applySensorReset(stored)
	case regmap.OffResetActuators:
		m.resetActuators = m.applyActuatorReset(stored)
	}
	return m.writeEcho(req)
}

// writeEcho builds the response for an accepted write: the request
// echoed verbatim, per spec.md §4.2/P5 — except when the test hook in
// InjectBadEcho has been armed, in which case the data byte is
// corrupted once.
func (m *Memory) writeEcho(req protocol.Message) protocol.Message {
	if m.badEchoOnce {
		m.badEchoOnce = false
		return protocol.Message{Base: req.Base, Offset: req.Offset, RW: req.RW, Data: req.Data ^ 0xFF}
	}
	return req
}

// propagatePower sets or clears each bit of mask in connected_device and
// power_state according to the corresponding bit of value, per spec.md
// §4.2's CONTROL.power_sensors/power_actuators rules.
func (m *Memory) propagatePower(value, mask byte) {
	for i := 0; i < 8; i++ {
		bit := byte(1) << uint(i)
		if mask&bit == 0 {
			continue
		}
		if value&bit != 0 {
			m.connectedDevice |= bit
			m.powerState |= bit
		} else {
			m.connectedDevice &^= bit
			m.powerState &^= bit
		}
	}
}

// applySensorReset clears error_state bits under the written mask and
// then auto-clears those same bits in the reset register itself.
func (m *Memory) applySensorReset(written byte) byte {
	m.errorState &^= written
	return 0
}

// applyActuatorReset clears error_state bits, zeros the corresponding
// actuator register(s), then auto-clears the reset register.
func (m *Memory) applyActuatorReset(written byte) byte {
	m.errorState &^= written
	if written&regmap.MaskLED != 0 {
		m.led = 0
	}
	if written&regmap.MaskFan != 0 {
		m.fan = 0
	}
	if written&regmap.MaskHeater != 0 {
		m.heater = 0
	}
	if written&regmap.MaskDoors != 0 {
		m.doors = 0
	}
	return 0
}

// Stats returns a copy of the command counters, for the diagnostics
// surface in internal/diagnostics.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := make(map[byte]uint64, len(m.stats.Errors))
	for k, v := range m.stats.Errors {
		errs[k] = v
	}
	return Stats{Reads: m.stats.Reads, Writes: m.stats.Writes, Errors: errs}
}

// Snapshot is a decoded, point-in-time view of the MAIN registers, the
// two sensor readings and the four actuator registers, used
// by the diagnostics HTTP surface so it never has to speak the wire
// protocol against its own process.
type Snapshot struct {
	ConnectedDevice byte
	PowerState      byte
	ErrorState      byte
	SensorAReading  byte
	SensorBReading  byte
	LED             byte
	Fan             byte
	Heater          byte
	Doors           byte
}

// Snapshot returns a copy of the externally-visible register state.
func (m *Memory) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		ConnectedDevice: m.connectedDevice,
		PowerState:      m.powerState,
		ErrorState:      m.errorState,
		SensorAReading:  m.sensorAReading,
		SensorBReading:  m.sensorBReading,
		LED:             m.led,
		Fan:             m.fan,
		Heater:          m.heater,
		Doors:           m.doors,
	}
}
