package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regctl/internal/protocol"
	"regctl/internal/regmap"
)

func newTestMemory() *Memory {
	return NewMemory(time.Unix(0, 1))
}

func TestReservedBaseForbidden(t *testing.T) {
	m := newTestMemory()
	resp := m.Execute(protocol.MakeRead(protocol.BaseReserved, 0x00))
	require.True(t, resp.IsError())
	assert.Equal(t, protocol.ErrForbidden, resp.Error)
}

func TestReadOnlyBaseRejectsWrite(t *testing.T) {
	m := newTestMemory()
	resp := m.Execute(protocol.MakeWrite(protocol.BaseMain, regmap.OffConnectedDevice, 0x00))
	require.True(t, resp.IsError())
	assert.Equal(t, protocol.ErrForbidden, resp.Error)
}

func TestUnknownOffsetIsInvalid(t *testing.T) {
	m := newTestMemory()
	resp := m.Execute(protocol.MakeRead(protocol.BaseActuator, 0x99))
	require.True(t, resp.IsError())
	assert.Equal(t, protocol.ErrInvalid, resp.Error)
}

func TestWriteToUnknownOffsetOnReadOnlyBaseIsForbidden(t *testing.T) {
	m := newTestMemory()
	resp := m.Execute(protocol.MakeWrite(protocol.BaseMain, 0x10, 0x00))
	require.True(t, resp.IsError())
	assert.Equal(t, protocol.ErrForbidden, resp.Error, "write to a read-only base is forbidden even at an unrecognized offset")
}

func TestWriteEchoesRequestExactly(t *testing.T) {
	m := newTestMemory()
	req := protocol.MakeWrite(protocol.BaseActuator, regmap.OffLED, 0xAB)
	resp := m.Execute(req)
	assert.Equal(t, req, resp)
}

func TestWriteMaskIsApplied(t *testing.T) {
	m := newTestMemory()
	m.Execute(protocol.MakeWrite(protocol.BaseActuator, regmap.OffHeater, 0xFF))
	resp := m.Execute(protocol.MakeRead(protocol.BaseActuator, regmap.OffHeater))
	assert.Equal(t, regmap.MaskHeaterWrite, resp.Data)
}

func TestPowerPropagationSetsConnectedAndPowerState(t *testing.T) {
	m := newTestMemory()
	m.Execute(protocol.MakeWrite(protocol.BaseControl, regmap.OffPowerActuators, 0x00))

	resp := m.Execute(protocol.MakeRead(protocol.BaseMain, regmap.OffPowerState))
	assert.Equal(t, byte(0x00), resp.Data&regmap.MaskPowerActuatorsWrite)

	resp = m.Execute(protocol.MakeRead(protocol.BaseMain, regmap.OffConnectedDevice))
	assert.Equal(t, byte(0x00), resp.Data&regmap.MaskPowerActuatorsWrite)
}

func TestResetAutoClearsAndClearsErrorState(t *testing.T) {
	m := newTestMemory()
	m.SetErrorBit(regmap.MaskLED)
	m.Execute(protocol.MakeWrite(protocol.BaseActuator, regmap.OffLED, 0x01))

	m.Execute(protocol.MakeWrite(protocol.BaseControl, regmap.OffResetActuators, regmap.MaskLED))

	resp := m.Execute(protocol.MakeRead(protocol.BaseControl, regmap.OffResetActuators))
	assert.Equal(t, byte(0x00), resp.Data, "reset register must auto-clear")

	resp = m.Execute(protocol.MakeRead(protocol.BaseMain, regmap.OffErrorState))
	assert.Equal(t, byte(0x00), resp.Data&regmap.MaskLED)

	resp = m.Execute(protocol.MakeRead(protocol.BaseActuator, regmap.OffLED))
	assert.Equal(t, byte(0x00), resp.Data, "reset must zero the actuator register")
}

func TestDoorBitsAreIndependent(t *testing.T) {
	m := newTestMemory()
	m.Execute(protocol.MakeWrite(protocol.BaseActuator, regmap.OffDoors, 0x01))
	resp := m.Execute(protocol.MakeRead(protocol.BaseActuator, regmap.OffDoors))
	assert.Equal(t, byte(0x01), resp.Data)

	m.Execute(protocol.MakeWrite(protocol.BaseActuator, regmap.OffDoors, 0x01|0x04))
	resp = m.Execute(protocol.MakeRead(protocol.BaseActuator, regmap.OffDoors))
	assert.Equal(t, byte(0x01|0x04)&regmap.MaskDoorsWrite, resp.Data)
}

func TestSensorGatedOnPower(t *testing.T) {
	m := newTestMemory()
	m.Execute(protocol.MakeWrite(protocol.BaseControl, regmap.OffPowerSensors, 0x00))

	before := m.Execute(protocol.MakeRead(protocol.BaseSensor, regmap.OffTempValue)).Data
	for i := 0; i < 50; i++ {
		m.Execute(protocol.MakeRead(protocol.BaseSensor, regmap.OffTempValue))
	}
	after := m.Execute(protocol.MakeRead(protocol.BaseSensor, regmap.OffTempValue)).Data
	assert.Equal(t, before, after, "unpowered sensor reading must stay stable")
}

func TestInjectBadEchoCorruptsNextWriteOnly(t *testing.T) {
	m := newTestMemory()
	m.InjectBadEcho()

	req := protocol.MakeWrite(protocol.BaseActuator, regmap.OffLED, 0x01)
	resp := m.Execute(req)
	assert.NotEqual(t, req.Data, resp.Data, "armed bad-echo write must not match request")

	req2 := protocol.MakeWrite(protocol.BaseActuator, regmap.OffLED, 0x02)
	resp2 := m.Execute(req2)
	assert.Equal(t, req2, resp2, "bad echo must be single-shot")
}

func TestMalformedFrameCountsAsForbidden(t *testing.T) {
	m := newTestMemory()
	resp := m.Malformed()
	assert.True(t, resp.IsError())
	assert.Equal(t, protocol.ErrForbidden, resp.Error)
	assert.Equal(t, uint64(1), m.Stats().Errors[protocol.ErrForbidden])
}

func TestStatsCountReadsAndWrites(t *testing.T) {
	m := newTestMemory()
	m.Execute(protocol.MakeRead(protocol.BaseMain, regmap.OffConnectedDevice))
	m.Execute(protocol.MakeWrite(protocol.BaseActuator, regmap.OffLED, 0x01))

	stats := m.Stats()
	assert.Equal(t, uint64(1), stats.Reads)
	assert.Equal(t, uint64(1), stats.Writes)
}
